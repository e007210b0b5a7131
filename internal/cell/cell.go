// internal/cell/cell.go
//
// Cell is the normalized structure every interface reader produces.
// Lattice rows are the a, b, c vectors; positions are fractional.

package cell

import (
	"fmt"
	"math"
	"strings"
)

// BohrAngstrom is the length of one Bohr in Angstrom.
const BohrAngstrom = 0.52917721067

// Cell holds a lattice and its atomic basis.
type Cell struct {
	// Lattice rows are the lattice vectors in the native length unit of the
	// code that produced them (Angstrom for VASP, Bohr for the others).
	Lattice   [3][3]float64
	Positions [][3]float64
	Symbols   []string
	// Masses is optional. When empty the standard atomic masses apply.
	Masses []float64
}

// New builds a cell and fills masses from the element table when none are given.
func New(lattice [3][3]float64, positions [][3]float64, symbols []string, masses []float64) (*Cell, error) {
	c := &Cell{
		Lattice:   lattice,
		Positions: append([][3]float64{}, positions...),
		Symbols:   append([]string{}, symbols...),
		Masses:    append([]float64{}, masses...),
	}
	if len(c.Masses) == 0 {
		c.Masses = DefaultMasses(c.Symbols)
	}
	if errs := c.Validate(); len(errs) > 0 {
		return nil, joinErrors(errs)
	}
	return c, nil
}

// NumAtoms returns the number of atoms in the basis.
func (c *Cell) NumAtoms() int {
	if c == nil {
		return 0
	}
	return len(c.Positions)
}

// Clone returns a deep copy.
func (c *Cell) Clone() *Cell {
	if c == nil {
		return nil
	}
	return &Cell{
		Lattice:   c.Lattice,
		Positions: append([][3]float64{}, c.Positions...),
		Symbols:   append([]string{}, c.Symbols...),
		Masses:    append([]float64{}, c.Masses...),
	}
}

// Validate reports every structural problem found in the cell.
func (c *Cell) Validate() []error {
	if c == nil {
		return []error{fmt.Errorf("cell is nil")}
	}
	var errs []error
	if len(c.Positions) == 0 {
		errs = append(errs, fmt.Errorf("cell has no atoms"))
	}
	if len(c.Symbols) != len(c.Positions) {
		errs = append(errs, fmt.Errorf("%d symbols for %d positions", len(c.Symbols), len(c.Positions)))
	}
	if len(c.Masses) != 0 && len(c.Masses) != len(c.Positions) {
		errs = append(errs, fmt.Errorf("%d masses for %d positions", len(c.Masses), len(c.Positions)))
	}
	if math.Abs(Det(c.Lattice)) < 1e-10 {
		errs = append(errs, fmt.Errorf("lattice vectors are linearly dependent"))
	}
	for i, sym := range c.Symbols {
		if !IsSymbol(sym) {
			errs = append(errs, fmt.Errorf("atom %d: unknown chemical symbol %q", i+1, sym))
		}
	}
	return errs
}

// Volume returns the cell volume in the lattice's length unit cubed.
func (c *Cell) Volume() float64 {
	return math.Abs(Det(c.Lattice))
}

// CartesianPositions converts the fractional basis to Cartesian coordinates.
func (c *Cell) CartesianPositions() [][3]float64 {
	out := make([][3]float64, len(c.Positions))
	for i, p := range c.Positions {
		out[i] = FracToCart(c.Lattice, p)
	}
	return out
}

// Species returns unique symbols in order of first appearance.
func (c *Cell) Species() []string {
	seen := map[string]struct{}{}
	var species []string
	for _, sym := range c.Symbols {
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		species = append(species, sym)
	}
	return species
}

// Formula renders a compact composition like "Si2" or "Na4Cl4".
func (c *Cell) Formula() string {
	counts := map[string]int{}
	for _, sym := range c.Symbols {
		counts[sym]++
	}
	var b strings.Builder
	for _, sym := range c.Species() {
		b.WriteString(sym)
		if counts[sym] > 1 {
			fmt.Fprintf(&b, "%d", counts[sym])
		}
	}
	return b.String()
}

// FromCartesian builds a cell from Cartesian positions.
func FromCartesian(lattice [3][3]float64, cart [][3]float64, symbols []string, masses []float64) (*Cell, error) {
	inv, err := Inverse(lattice)
	if err != nil {
		return nil, fmt.Errorf("cell: %w", err)
	}
	frac := make([][3]float64, len(cart))
	for i, r := range cart {
		frac[i] = MulVecMat(r, inv)
	}
	return New(lattice, frac, symbols, masses)
}

// ExpandSymbols turns a per-species symbol list and matching counts into a
// per-atom list.
func ExpandSymbols(species []string, counts []int) ([]string, error) {
	if len(species) != len(counts) {
		return nil, fmt.Errorf("cell: %d species for %d counts", len(species), len(counts))
	}
	var out []string
	for i, sym := range species {
		if counts[i] < 0 {
			return nil, fmt.Errorf("cell: negative count for %s", sym)
		}
		for j := 0; j < counts[i]; j++ {
			out = append(out, sym)
		}
	}
	return out, nil
}

func joinErrors(errs []error) error {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return fmt.Errorf("cell: %s", strings.Join(parts, "; "))
}
