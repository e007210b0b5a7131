// Package abinit reads ABINIT input cells and cartesian forces from ABINIT
// output. Lengths stay in Bohr.
package abinit

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

var keywords = map[string]bool{
	"acell": true, "rprim": true, "natom": true, "ntypat": true,
	"typat": true, "znucl": true, "xred": true, "xcart": true, "xangst": true,
}

// Backend implements interfaces.Backend for ABINIT.
type Backend struct{}

// New returns the ABINIT backend.
func New() *Backend { return &Backend{} }

// Mode implements interfaces.Backend.
func (b *Backend) Mode() interfaces.Mode { return interfaces.ABINIT }

// DefaultCellFilename implements interfaces.Backend.
func (b *Backend) DefaultCellFilename() string { return "unitcell.in" }

// Experimental implements interfaces.Backend.
func (b *Backend) Experimental() bool { return true }

// ReadStructure implements interfaces.Backend.
func (b *Backend) ReadStructure(src interfaces.Source, _ interfaces.ReadOptions) (*cell.Cell, interfaces.Provenance, error) {
	prov := interfaces.FileProvenance{Source: src}
	//nolint:gosec // G304: path comes from the user's command line.
	f, err := os.Open(src.File)
	if err != nil {
		return nil, prov, fmt.Errorf("abinit: open %s: %w", src.File, err)
	}
	defer func() { _ = f.Close() }()
	c, err := ParseInput(f)
	if err != nil {
		return nil, prov, fmt.Errorf("abinit: %s: %w", src.File, err)
	}
	return c, prov, nil
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
		Mode:     interfaces.ABINIT,
		NumAtoms: n,
		Sink:     args.Sink,
	})
}

// ParseInput reads the structure variables of an ABINIT input file.
func ParseInput(r io.Reader) (*cell.Cell, error) {
	lines, err := backend.ScanLines(r)
	if err != nil {
		return nil, err
	}
	vars := collect(lines)

	natom, err := intValue(vars, "natom")
	if err != nil {
		return nil, err
	}
	acell := []float64{1, 1, 1}
	if tokens, ok := vars["acell"]; ok {
		acell, err = lengths(tokens, 3)
		if err != nil {
			return nil, fmt.Errorf("acell: %w", err)
		}
	}
	rprim := []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	if tokens, ok := vars["rprim"]; ok {
		rprim, err = floats(tokens, 9)
		if err != nil {
			return nil, fmt.Errorf("rprim: %w", err)
		}
	}
	var lattice [3][3]float64
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			lattice[i][k] = acell[i] * rprim[3*i+k]
		}
	}

	symbols, err := atomSymbols(vars, natom)
	if err != nil {
		return nil, err
	}

	switch {
	case vars["xred"] != nil:
		xred, err := floats(vars["xred"], 3*natom)
		if err != nil {
			return nil, fmt.Errorf("xred: %w", err)
		}
		return cell.New(lattice, triples(xred), symbols, nil)
	case vars["xcart"] != nil:
		xcart, err := lengths(vars["xcart"], 3*natom)
		if err != nil {
			return nil, fmt.Errorf("xcart: %w", err)
		}
		return cell.FromCartesian(lattice, triples(xcart), symbols, nil)
	case vars["xangst"] != nil:
		xangst, err := floats(vars["xangst"], 3*natom)
		if err != nil {
			return nil, fmt.Errorf("xangst: %w", err)
		}
		for i := range xangst {
			xangst[i] /= cell.BohrAngstrom
		}
		return cell.FromCartesian(lattice, triples(xangst), symbols, nil)
	}
	return nil, fmt.Errorf("none of xred, xcart or xangst is given")
}

// collect groups the tokens that follow each known keyword. A keyword seen
// twice keeps its last values.
func collect(lines []string) map[string][]string {
	vars := map[string][]string{}
	current := ""
	for _, line := range lines {
		for _, tok := range strings.Fields(backend.StripComment(line, "#", "!")) {
			key := strings.ToLower(tok)
			if keywords[key] {
				current = key
				vars[key] = []string{}
				continue
			}
			if isWord(tok) && !isUnit(tok) {
				// Any other variable ends the current one.
				current = ""
				continue
			}
			if current != "" {
				vars[current] = append(vars[current], tok)
			}
		}
	}
	return vars
}

func isWord(tok string) bool {
	c := tok[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isUnit(tok string) bool {
	switch strings.ToLower(tok) {
	case "angstr", "angstrom", "angstroms", "bohr", "bohrs", "au":
		return true
	}
	return false
}

// expand resolves "n*v" repeats and drops unit tokens. It reports whether
// an Angstrom unit was present.
func expand(tokens []string) ([]string, bool, error) {
	var out []string
	angstrom := false
	for _, tok := range tokens {
		if isUnit(tok) {
			angstrom = strings.HasPrefix(strings.ToLower(tok), "angstr")
			continue
		}
		if n, v, ok := strings.Cut(tok, "*"); ok {
			count, err := strconv.Atoi(n)
			if err != nil || count < 0 {
				return nil, false, fmt.Errorf("invalid repeat %q", tok)
			}
			for i := 0; i < count; i++ {
				out = append(out, v)
			}
			continue
		}
		out = append(out, tok)
	}
	return out, angstrom, nil
}

func floats(tokens []string, want int) ([]float64, error) {
	vals, _, err := expand(tokens)
	if err != nil {
		return nil, err
	}
	if len(vals) < want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(vals))
	}
	return backend.ParseFloats(vals[:want])
}

// lengths is floats with an optional Angstrom unit converted to Bohr.
func lengths(tokens []string, want int) ([]float64, error) {
	vals, angstrom, err := expand(tokens)
	if err != nil {
		return nil, err
	}
	if len(vals) < want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(vals))
	}
	out, err := backend.ParseFloats(vals[:want])
	if err != nil {
		return nil, err
	}
	if angstrom {
		for i := range out {
			out[i] /= cell.BohrAngstrom
		}
	}
	return out, nil
}

func ints(tokens []string, want int) ([]int, error) {
	vals, err := floats(tokens, want)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(v + 0.5)
	}
	return out, nil
}

func intValue(vars map[string][]string, key string) (int, error) {
	tokens, ok := vars[key]
	if !ok {
		return 0, fmt.Errorf("%s is not given", key)
	}
	v, err := ints(tokens, 1)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if v[0] <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v[0], nil
}

func atomSymbols(vars map[string][]string, natom int) ([]string, error) {
	ntypat := 1
	if _, ok := vars["ntypat"]; ok {
		n, err := intValue(vars, "ntypat")
		if err != nil {
			return nil, err
		}
		ntypat = n
	}
	znucl, err := ints(vars["znucl"], ntypat)
	if err != nil {
		return nil, fmt.Errorf("znucl: %w", err)
	}
	typat := make([]int, natom)
	for i := range typat {
		typat[i] = 1
	}
	if tokens, ok := vars["typat"]; ok {
		typat, err = ints(tokens, natom)
		if err != nil {
			return nil, fmt.Errorf("typat: %w", err)
		}
	}
	symbols := make([]string, natom)
	for i, t := range typat {
		if t < 1 || t > ntypat {
			return nil, fmt.Errorf("typat of atom %d is %d, outside 1..%d", i+1, t, ntypat)
		}
		sym, ok := cell.SymbolOf(znucl[t-1])
		if !ok {
			return nil, fmt.Errorf("unknown atomic number %d", znucl[t-1])
		}
		symbols[i] = sym
	}
	return symbols, nil
}

func triples(vals []float64) [][3]float64 {
	out := make([][3]float64, len(vals)/3)
	for i := range out {
		out[i] = [3]float64{vals[3*i], vals[3*i+1], vals[3*i+2]}
	}
	return out
}
