// Package symmetry finds the space-group operations of a cell by brute
// force and groups atoms into symmetry orbits. It is small on purpose:
// rotations are searched among integer matrices with entries in {-1, 0, 1},
// which covers every crystallographic point group in a reduced basis.
package symmetry

import (
	"fmt"
	"math"

	"github.com/kingrea/phonon-interface/internal/cell"
)

// DefaultSymprec is the Cartesian tolerance used when none is given.
const DefaultSymprec = 1e-5

// Operation acts on fractional column vectors: x' = Rotation·x + Translation.
type Operation struct {
	Rotation    [3][3]int
	Translation [3]float64
	// Permutation[i] is the atom that atom i is mapped onto.
	Permutation []int
}

// IsIdentity reports whether op is the identity without translation.
func (op Operation) IsIdentity() bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0
			if i == j {
				want = 1
			}
			if op.Rotation[i][j] != want {
				return false
			}
		}
		if math.Abs(op.Translation[i]-math.Round(op.Translation[i])) > 1e-12 {
			return false
		}
	}
	return true
}

// Apply maps a fractional position through op.
func (op Operation) Apply(x [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = op.Translation[i]
		for j := 0; j < 3; j++ {
			out[i] += float64(op.Rotation[i][j]) * x[j]
		}
	}
	return out
}

// Operations returns every operation that maps the atoms of c onto atoms
// of the same species within symprec. The identity is always first.
func Operations(c *cell.Cell, symprec float64) ([]Operation, error) {
	if errs := c.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("symmetry: %w", errs[0])
	}
	if symprec <= 0 {
		symprec = DefaultSymprec
	}
	rotations := latticeRotations(c.Lattice, symprec)

	// Candidate translations come from the least populated species.
	anchor := anchorAtom(c)
	var ops []Operation
	for _, w := range rotations {
		moved := Operation{Rotation: w}.Apply(c.Positions[anchor])
		for j := range c.Positions {
			if c.Symbols[j] != c.Symbols[anchor] {
				continue
			}
			var t [3]float64
			for k := 0; k < 3; k++ {
				t[k] = c.Positions[j][k] - moved[k]
				t[k] -= math.Floor(t[k])
				if t[k] > 1-1e-10 {
					t[k] = 0
				}
			}
			op := Operation{Rotation: w, Translation: t}
			if perm, ok := permutation(c, op, symprec); ok {
				op.Permutation = perm
				ops = append(ops, op)
			}
		}
	}
	for i, op := range ops {
		if op.IsIdentity() {
			ops[0], ops[i] = ops[i], ops[0]
			return ops, nil
		}
	}
	return nil, fmt.Errorf("symmetry: identity not found; symprec %g is too small for this cell", symprec)
}

// Equivalence assigns every atom to the first atom of its orbit and names
// the operation that carries that representative onto it.
type Equivalence struct {
	Operations     []Operation
	Representative []int
	// OperationIndex[i] indexes Operations; applying it to
	// Representative[i] lands on atom i.
	OperationIndex []int
}

// Equivalences computes the orbits of c.
func Equivalences(c *cell.Cell, symprec float64) (*Equivalence, error) {
	ops, err := Operations(c, symprec)
	if err != nil {
		return nil, err
	}
	n := c.NumAtoms()
	eq := &Equivalence{Operations: ops, Representative: make([]int, n), OperationIndex: make([]int, n)}
	for i := range eq.Representative {
		eq.Representative[i] = -1
	}
	for i := 0; i < n; i++ {
		if eq.Representative[i] >= 0 {
			continue
		}
		for k, op := range ops {
			j := op.Permutation[i]
			if eq.Representative[j] < 0 {
				eq.Representative[j] = i
				eq.OperationIndex[j] = k
			}
		}
	}
	return eq, nil
}

// Independent returns the representative atoms in order.
func (e *Equivalence) Independent() []int {
	var out []int
	for i, r := range e.Representative {
		if r == i {
			out = append(out, i)
		}
	}
	return out
}

// CartesianRotation converts op's rotation to Cartesian axes for a
// row-vector lattice.
func CartesianRotation(op Operation, lattice [3][3]float64) ([3][3]float64, error) {
	lt := cell.Transpose(lattice)
	inv, err := cell.Inverse(lt)
	if err != nil {
		return [3][3]float64{}, fmt.Errorf("symmetry: %w", err)
	}
	var w [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			w[i][j] = float64(op.Rotation[i][j])
		}
	}
	return cell.MatMul(cell.MatMul(lt, w), inv), nil
}

// latticeRotations returns the integer matrices W with det ±1 that keep
// the metric tensor G = L·Lᵀ, that is Wᵀ·G·W = G.
func latticeRotations(lattice [3][3]float64, symprec float64) [][3][3]int {
	g := cell.MatMul(lattice, cell.Transpose(lattice))
	var lengths [3]float64
	for i := 0; i < 3; i++ {
		lengths[i] = math.Sqrt(g[i][i])
	}
	var out [][3][3]int
	var w [3][3]int
	for code := 0; code < 19683; code++ {
		rest := code
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				w[i][j] = rest%3 - 1
				rest /= 3
			}
		}
		if d := detInt(w); d != 1 && d != -1 {
			continue
		}
		if keepsMetric(w, g, lengths, symprec) {
			out = append(out, w)
		}
	}
	return out
}

func keepsMetric(w [3][3]int, g [3][3]float64, lengths [3]float64, symprec float64) bool {
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			var v float64
			for k := 0; k < 3; k++ {
				for l := 0; l < 3; l++ {
					v += float64(w[k][i]) * g[k][l] * float64(w[l][j])
				}
			}
			if math.Abs(v-g[i][j]) > symprec*(lengths[i]+lengths[j]) {
				return false
			}
		}
	}
	return true
}

func detInt(m [3][3]int) int {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

func anchorAtom(c *cell.Cell) int {
	counts := map[string]int{}
	for _, s := range c.Symbols {
		counts[s]++
	}
	best := 0
	for i, s := range c.Symbols {
		if counts[s] < counts[c.Symbols[best]] {
			best = i
		}
	}
	return best
}

func permutation(c *cell.Cell, op Operation, symprec float64) ([]int, bool) {
	n := c.NumAtoms()
	perm := make([]int, n)
	used := make([]bool, n)
	for i, x := range c.Positions {
		moved := op.Apply(x)
		found := -1
		for j, y := range c.Positions {
			if used[j] || c.Symbols[j] != c.Symbols[i] {
				continue
			}
			d := cell.WrapDelta([3]float64{y[0] - moved[0], y[1] - moved[1], y[2] - moved[2]})
			if cell.Norm(cell.FracToCart(c.Lattice, d)) <= symprec {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		perm[i] = found
		used[found] = true
	}
	return perm, true
}
