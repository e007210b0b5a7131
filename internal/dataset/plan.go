package dataset

import (
	"errors"
	"fmt"

	"github.com/kingrea/phonon-interface/internal/cell"
)

// ErrEmptyPlan indicates a displacement file without displacements.
var ErrEmptyPlan = errors.New("dataset: displacement plan is empty")

// Displacement is one atomic perturbation of the supercell. Forces is
// filled in place by a force parser.
type Displacement struct {
	// Number is the 0-based index of the displaced atom.
	Number    int
	Direction [3]int
	Vector    [3]float64
	Forces    [][3]float64
}

// Plan is the displacement plan read from disp.yaml. Once forces are
// attached it is the force dataset written to FORCE_SETS.
type Plan struct {
	NAtom      int
	FirstAtoms []Displacement
}

// Validate reports inconsistencies between the atom count and the displacements.
func (p *Plan) Validate() []error {
	if p == nil {
		return []error{fmt.Errorf("plan is nil")}
	}
	var errs []error
	if p.NAtom <= 0 {
		errs = append(errs, fmt.Errorf("natom must be > 0"))
	}
	if len(p.FirstAtoms) == 0 {
		errs = append(errs, ErrEmptyPlan)
	}
	for i, d := range p.FirstAtoms {
		if d.Number < 0 || (p.NAtom > 0 && d.Number >= p.NAtom) {
			errs = append(errs, fmt.Errorf("displacements[%d]: atom %d out of range 1..%d", i, d.Number+1, p.NAtom))
		}
		if d.Forces != nil && len(d.Forces) != p.NAtom {
			errs = append(errs, fmt.Errorf("displacements[%d]: %d forces for %d atoms", i, len(d.Forces), p.NAtom))
		}
	}
	return errs
}

// HasForces reports whether every displacement carries a full force set.
func (p *Plan) HasForces() bool {
	if p == nil || len(p.FirstAtoms) == 0 {
		return false
	}
	for _, d := range p.FirstAtoms {
		if len(d.Forces) != p.NAtom {
			return false
		}
	}
	return true
}

// DisplacedCell returns a copy of supercell with displacement i applied.
func (p *Plan) DisplacedCell(i int, supercell *cell.Cell) (*cell.Cell, error) {
	if i < 0 || i >= len(p.FirstAtoms) {
		return nil, fmt.Errorf("dataset: displacement %d out of range", i+1)
	}
	if supercell == nil || supercell.NumAtoms() != p.NAtom {
		return nil, fmt.Errorf("dataset: supercell does not match natom %d", p.NAtom)
	}
	inv, err := cell.Inverse(supercell.Lattice)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	d := p.FirstAtoms[i]
	shift := cell.MulVecMat(d.Vector, inv)
	out := supercell.Clone()
	for k := 0; k < 3; k++ {
		out.Positions[d.Number][k] += shift[k]
	}
	return out, nil
}

// SubtractDrift removes the mean force from forces in place and returns it.
func SubtractDrift(forces [][3]float64) [3]float64 {
	var drift [3]float64
	if len(forces) == 0 {
		return drift
	}
	for _, f := range forces {
		for k := 0; k < 3; k++ {
			drift[k] += f[k]
		}
	}
	for k := 0; k < 3; k++ {
		drift[k] /= float64(len(forces))
	}
	for i := range forces {
		for k := 0; k < 3; k++ {
			forces[i][k] -= drift[k]
		}
	}
	return drift
}
