package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/kingrea/phonon-interface/internal/cell"
	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/interfaces"
	"github.com/kingrea/phonon-interface/internal/logging"
	"github.com/kingrea/phonon-interface/internal/phonopyyaml"
	"github.com/kingrea/phonon-interface/internal/structure"
	"github.com/kingrea/phonon-interface/internal/tui"
)

func runCell(cwd string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cell", flag.ContinueOnError)
	fs.SetOutput(stderr)
	iface := fs.String("interface", "", "simulation code ("+strings.Join(interfaces.ModeNames(), ", ")+")")
	symbols := fs.String("symbols", "", "chemical symbols overriding the POSCAR ones (vasp only), e.g. Na,Cl")
	yamlMode := fs.Bool("yaml", false, "read "+interfaces.YAMLCellFilename+" regardless of the interface")
	writeYAML := fs.String("write-yaml", "", "write the cell as "+interfaces.YAMLCellFilename+" to this path")
	quiet := fs.Bool("q", false, "print nothing but errors")
	verbose := fs.Bool("v", false, "print extra detail")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "Usage: phonon cell [flags] [file]")
		return 2
	}

	s, err := openSession(cwd, stdout, *quiet, *verbose)
	if err != nil {
		fmt.Fprintf(stderr, "phonon: %v\n", err)
		return 2
	}
	defer s.Close()

	req := structure.Request{Filename: fs.Arg(0), YAML: *yamlMode, Symbols: splitList(*symbols)}
	if !req.YAML {
		req.Mode, err = s.mode(*iface)
		if err != nil {
			fmt.Fprintf(stderr, "phonon: %v\n", err)
			return 2
		}
	}

	var journal event.Sink
	if s.book != nil {
		journal = s.book
	}
	loader := structure.NewLoader(structure.WithSink(event.Multi(tui.ConsoleSink(stdout, s.logger.Level()), journal)))
	res, err := loader.Load(req)
	if err != nil {
		s.book.Error("cell: %v", err)
		fmt.Fprintf(stderr, "phonon: %v\n", err)
		var missing *structure.MissingFileError
		if errors.As(err, &missing) {
			return 1
		}
		return 2
	}

	if s.logger.Enabled(logging.Normal) {
		printCell(stdout, res)
	}
	if *writeYAML != "" {
		if err := phonopyyaml.WriteCell(*writeYAML, res.Cell); err != nil {
			fmt.Fprintf(stderr, "phonon: %v\n", err)
			return 2
		}
		s.logger.Printf("%s has been written.", *writeYAML)
	}
	return 0
}

func printCell(w io.Writer, res structure.Result) {
	c := res.Cell
	fmt.Fprintf(w, "Structure source: %s\n", res.Provenance.Describe())
	fmt.Fprintf(w, "Formula: %s (%d atoms, volume %.6f)\n", c.Formula(), c.NumAtoms(), c.Volume())
	fmt.Fprintln(w, "Lattice vectors:")
	for _, v := range c.Lattice {
		fmt.Fprintf(w, "  %14.8f %14.8f %14.8f\n", v[0], v[1], v[2])
	}
	fmt.Fprintln(w, "Atomic positions (fractional):")
	for i, p := range c.Positions {
		fmt.Fprintf(w, "  %3d %-3s %12.8f %12.8f %12.8f%s\n", i+1, c.Symbols[i], p[0], p[1], p[2], massSuffix(c, i))
	}
	switch p := res.Provenance.(type) {
	case interfaces.PwscfProvenance:
		fmt.Fprintf(w, "Pseudopotentials: %s\n", strings.Join(p.Files(), ", "))
	case interfaces.Wien2kProvenance:
		fmt.Fprintln(w, "Radial mesh (NPT, R0, RMT):")
		for i := range p.NPTs {
			fmt.Fprintf(w, "  %5d %12.8f %10.5f\n", p.NPTs[i], p.R0s[i], p.RMTs[i])
		}
	case interfaces.ElkProvenance:
		fmt.Fprintf(w, "Species files: %s\n", strings.Join(p.SpeciesFiles, ", "))
	}
}

func massSuffix(c *cell.Cell, i int) string {
	if len(c.Masses) != c.NumAtoms() {
		return ""
	}
	return fmt.Sprintf("  mass %.5f", c.Masses[i])
}
