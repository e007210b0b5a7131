// Package wien2k reads WIEN2k case.struct cells and :FGL force lines from
// case.scf. Lengths stay in Bohr and forces in mRy/Bohr.
package wien2k

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kingrea/phonon-interface/internal/backend"
	"github.com/kingrea/phonon-interface/internal/cell"
	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/interfaces"
	"github.com/kingrea/phonon-interface/internal/symmetry"
)

var fglRe = regexp.MustCompile(`^:FGL([0-9]+):`)

// Backend implements interfaces.Backend for WIEN2k.
type Backend struct{}

// New returns the WIEN2k backend.
func New() *Backend { return &Backend{} }

// Mode implements interfaces.Backend.
func (b *Backend) Mode() interfaces.Mode { return interfaces.WIEN2K }

// DefaultCellFilename implements interfaces.Backend.
func (b *Backend) DefaultCellFilename() string { return "case.struct" }

// Experimental implements interfaces.Backend.
func (b *Backend) Experimental() bool { return true }

// ReadStructure implements interfaces.Backend.
func (b *Backend) ReadStructure(src interfaces.Source, _ interfaces.ReadOptions) (*cell.Cell, interfaces.Provenance, error) {
	//nolint:gosec // G304: path comes from the user's command line.
	f, err := os.Open(src.File)
	if err != nil {
		return nil, interfaces.Wien2kProvenance{Source: src}, fmt.Errorf("wien2k: open %s: %w", src.File, err)
	}
	defer func() { _ = f.Close() }()
	s, err := ParseStruct(f)
	if err != nil {
		return nil, interfaces.Wien2kProvenance{Source: src}, fmt.Errorf("wien2k: %s: %w", src.File, err)
	}
	return s.Cell, interfaces.Wien2kProvenance{Source: src, NPTs: s.NPTs, R0s: s.R0s, RMTs: s.RMTs}, nil
}

// ParseForces implements interfaces.Backend. case.scf lists forces only
// for inequivalent atoms; with args.Distribute they are rotated onto the
// symmetry-equivalent atoms of each displaced supercell.
func (b *Backend) ParseForces(plan *dataset.Plan, filenames []string, args interfaces.ForceArgs) (bool, error) {
	if args.Supercell == nil {
		return false, fmt.Errorf("wien2k: reference supercell is required")
	}
	if plan != nil && args.Supercell.NumAtoms() != plan.NAtom {
		return false, fmt.Errorf("wien2k: supercell has %d atoms, disp.yaml natom is %d", args.Supercell.NumAtoms(), plan.NAtom)
	}
	opts := backend.FillOptions{
		Mode:     interfaces.WIEN2K,
		NumAtoms: args.Supercell.NumAtoms(),
		Sink:     args.Sink,
		Transform: func(i int, forces [][3]float64) ([][3]float64, error) {
			if len(forces) == args.Supercell.NumAtoms() {
				return forces, nil
			}
			if !args.Distribute {
				return nil, fmt.Errorf("%d forces for %d atoms; the structure is treated as P1", len(forces), args.Supercell.NumAtoms())
			}
			displaced, err := plan.DisplacedCell(i, args.Supercell)
			if err != nil {
				return nil, err
			}
			return Distribute(displaced, forces, args.Symprec)
		},
	}
	return backend.FillPlan(plan, filenames, ReadForces, opts)
}

// ReadForces returns the :FGL forces of case.scf ordered by atom index.
// Each index keeps the value of its last occurrence, that is the final
// SCF iteration.
func ReadForces(path string) ([][3]float64, error) {
	lines, err := backend.ReadLines(path)
	if err != nil {
		return nil, err
	}
	return ParseForces(lines)
}

// ParseForces extracts :FGLnnn: lines.
func ParseForces(lines []string) ([][3]float64, error) {
	byIndex := map[int][3]float64{}
	for _, line := range lines {
		m := fglRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, fmt.Errorf("short :FGL line %q", line)
		}
		v, err := backend.Vec3(fields[2:5])
		if err != nil {
			return nil, fmt.Errorf(":FGL%03d: %w", idx, err)
		}
		byIndex[idx] = v
	}
	if len(byIndex) == 0 {
		return nil, fmt.Errorf("no :FGL force lines found")
	}
	indices := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for i, idx := range indices {
		if idx != i+1 {
			return nil, fmt.Errorf(":FGL%03d is missing", i+1)
		}
	}
	forces := make([][3]float64, len(indices))
	for i, idx := range indices {
		forces[i] = byIndex[idx]
	}
	return forces, nil
}

// Distribute expands forces on the inequivalent atoms of c to every atom,
// rotating each representative's force with the operation that carries it
// onto the equivalent atom.
func Distribute(c *cell.Cell, forces [][3]float64, symprec float64) ([][3]float64, error) {
	eq, err := symmetry.Equivalences(c, symprec)
	if err != nil {
		return nil, err
	}
	independent := eq.Independent()
	if len(independent) != len(forces) {
		return nil, fmt.Errorf("%d forces for %d inequivalent atoms", len(forces), len(independent))
	}
	slot := make(map[int]int, len(independent))
	for k, atom := range independent {
		slot[atom] = k
	}
	out := make([][3]float64, c.NumAtoms())
	for a := range out {
		op := eq.Operations[eq.OperationIndex[a]]
		rot, err := symmetry.CartesianRotation(op, c.Lattice)
		if err != nil {
			return nil, err
		}
		out[a] = cell.MulMatVec(rot, forces[slot[eq.Representative[a]]])
	}
	return out, nil
}
