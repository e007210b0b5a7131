// Package elk reads Elk elk.in cells and forces from INFO.OUT. Lengths
// stay in Bohr.
package elk

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kingrea/phonon-interface/internal/backend"
	"github.com/kingrea/phonon-interface/internal/cell"
	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/interfaces"
)

// Backend implements interfaces.Backend for Elk.
type Backend struct{}

// New returns the Elk backend.
func New() *Backend { return &Backend{} }

// Mode implements interfaces.Backend.
func (b *Backend) Mode() interfaces.Mode { return interfaces.ELK }

// DefaultCellFilename implements interfaces.Backend.
func (b *Backend) DefaultCellFilename() string { return "elk.in" }

// Experimental implements interfaces.Backend.
func (b *Backend) Experimental() bool { return true }

// ReadStructure implements interfaces.Backend.
func (b *Backend) ReadStructure(src interfaces.Source, _ interfaces.ReadOptions) (*cell.Cell, interfaces.Provenance, error) {
	//nolint:gosec // G304: path comes from the user's command line.
	f, err := os.Open(src.File)
	if err != nil {
		return nil, interfaces.ElkProvenance{Source: src}, fmt.Errorf("elk: open %s: %w", src.File, err)
	}
	defer func() { _ = f.Close() }()
	in, err := ParseInput(f)
	if err != nil {
		return nil, interfaces.ElkProvenance{Source: src}, fmt.Errorf("elk: %s: %w", src.File, err)
	}
	return in.Cell, interfaces.ElkProvenance{Source: src, SpeciesFiles: in.SpeciesFiles}, nil
}

// ParseForces implements interfaces.Backend.
func (b *Backend) ParseForces(plan *dataset.Plan, filenames []string, args interfaces.ForceArgs) (bool, error) {
	n := args.NumAtoms
	if n <= 0 && plan != nil {
		n = plan.NAtom
	}
	read := func(path string) ([][3]float64, error) {
		return ReadForces(path, n)
	}
	return backend.FillPlan(plan, filenames, read, backend.FillOptions{
		Mode:     interfaces.ELK,
		NumAtoms: n,
		Sink:     args.Sink,
	})
}

// Input is the structural part of elk.in.
type Input struct {
	Cell         *cell.Cell
	SpeciesFiles []string
}

// ParseInput reads the avec, scale, scale1..3 and atoms blocks.
func ParseInput(r io.Reader) (*Input, error) {
	lines, err := backend.ScanLines(r)
	if err != nil {
		return nil, err
	}
	blocks := splitBlocks(lines)

	avec, ok := blocks["avec"]
	if !ok {
		return nil, fmt.Errorf("avec block is not found")
	}
	if len(avec) < 3 {
		return nil, fmt.Errorf("avec: expected 3 lines, got %d", len(avec))
	}
	var lattice [3][3]float64
	for i := 0; i < 3; i++ {
		v, err := backend.Vec3(strings.Fields(avec[i]))
		if err != nil {
			return nil, fmt.Errorf("avec line %d: %w", i+1, err)
		}
		lattice[i] = v
	}
	scale, err := scalar(blocks, "scale")
	if err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		s, err := scalar(blocks, "scale"+strconv.Itoa(i+1))
		if err != nil {
			return nil, err
		}
		for k := 0; k < 3; k++ {
			lattice[i][k] *= scale * s
		}
	}

	atoms, ok := blocks["atoms"]
	if !ok {
		return nil, fmt.Errorf("atoms block is not found")
	}
	in := &Input{}
	positions, symbols, err := in.readAtoms(atoms)
	if err != nil {
		return nil, err
	}
	c, err := cell.New(lattice, positions, symbols, nil)
	if err != nil {
		return nil, err
	}
	in.Cell = c
	return in, nil
}

func (in *Input) readAtoms(block []string) ([][3]float64, []string, error) {
	next := 0
	take := func(what string) ([]string, error) {
		if next >= len(block) {
			return nil, fmt.Errorf("atoms: %s is missing", what)
		}
		fields := strings.Fields(block[next])
		next++
		if len(fields) == 0 {
			return nil, fmt.Errorf("atoms: %s is empty", what)
		}
		return fields, nil
	}
	fields, err := take("number of species")
	if err != nil {
		return nil, nil, err
	}
	nspecies, err := strconv.Atoi(fields[0])
	if err != nil || nspecies <= 0 {
		return nil, nil, fmt.Errorf("atoms: invalid number of species %q", fields[0])
	}
	var positions [][3]float64
	var symbols []string
	for s := 0; s < nspecies; s++ {
		fields, err := take("species file")
		if err != nil {
			return nil, nil, err
		}
		file := strings.Trim(fields[0], `'"`)
		in.SpeciesFiles = append(in.SpeciesFiles, file)
		symbol := cell.CleanSymbol(file)
		if !cell.IsSymbol(symbol) {
			return nil, nil, fmt.Errorf("atoms: cannot determine element of %q", file)
		}
		fields, err = take("number of atoms")
		if err != nil {
			return nil, nil, err
		}
		natoms, err := strconv.Atoi(fields[0])
		if err != nil || natoms < 0 {
			return nil, nil, fmt.Errorf("atoms: invalid number of atoms %q for %s", fields[0], file)
		}
		for a := 0; a < natoms; a++ {
			fields, err := take("atomic position")
			if err != nil {
				return nil, nil, err
			}
			v, err := backend.Vec3(fields)
			if err != nil {
				return nil, nil, fmt.Errorf("atoms: %s position %d: %w", file, a+1, err)
			}
			positions = append(positions, v)
			symbols = append(symbols, symbol)
		}
	}
	return positions, symbols, nil
}

// splitBlocks groups the lines under each block keyword. Blocks end at a
// blank line or the next keyword; comments follow ':' or '!'.
func splitBlocks(lines []string) map[string][]string {
	blocks := map[string][]string{}
	current := ""
	for _, raw := range lines {
		line := backend.StripComment(raw, ":", "!")
		if line == "" {
			current = ""
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 1 && isKeyword(fields[0]) {
			current = strings.ToLower(fields[0])
			blocks[current] = nil
			continue
		}
		if current != "" {
			blocks[current] = append(blocks[current], line)
		}
	}
	return blocks
}

func isKeyword(tok string) bool {
	c := tok[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func scalar(blocks map[string][]string, key string) (float64, error) {
	lines, ok := blocks[key]
	if !ok {
		return 1, nil
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("%s: value is missing", key)
	}
	fields := strings.Fields(lines[0])
	v, err := backend.ParseFloat(fields[0])
	if err != nil {
		return 0, fmt.Errorf("%s: invalid value %q", key, fields[0])
	}
	return v, nil
}
