package dataset

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/phonon-interface/internal/cell"
)

// DefaultDisplacementFile is the conventional displacement metadata file.
const DefaultDisplacementFile = "disp.yaml"

type dispDocument struct {
	NAtom         int            `yaml:"natom"`
	Displacements []dispEntry    `yaml:"displacements"`
	Lattice       [][]float64    `yaml:"lattice"`
	Points        []pointEntry   `yaml:"points"`
	Atoms         []pointEntry   `yaml:"atoms"`
	Supercell     *dispSupercell `yaml:"supercell"`
}

type dispSupercell struct {
	Lattice [][]float64  `yaml:"lattice"`
	Points  []pointEntry `yaml:"points"`
}

type dispEntry struct {
	Atom         int       `yaml:"atom"`
	Direction    []int     `yaml:"direction"`
	Displacement []float64 `yaml:"displacement"`
}

type pointEntry struct {
	Symbol      string    `yaml:"symbol"`
	Coordinates []float64 `yaml:"coordinates"`
	Position    []float64 `yaml:"position"`
	Mass        float64   `yaml:"mass"`
}

// ParsePlanYAML decodes a displacement plan and, when present, the
// reference supercell from disp.yaml bytes.
func ParsePlanYAML(data []byte) (*Plan, *cell.Cell, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, fmt.Errorf("dataset: displacement payload is empty")
	}
	var doc dispDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("dataset: decode displacements: %w", err)
	}
	plan, err := doc.plan()
	if err != nil {
		return nil, nil, err
	}
	super, err := doc.supercell()
	if err != nil {
		return nil, nil, err
	}
	if super != nil && plan.NAtom == 0 {
		plan.NAtom = super.NumAtoms()
	}
	if errs := plan.Validate(); len(errs) > 0 {
		return nil, nil, fmt.Errorf("invalid plan: %w", errs[0])
	}
	if super != nil && super.NumAtoms() != plan.NAtom {
		return nil, nil, fmt.Errorf("dataset: natom %d does not match %d supercell atoms", plan.NAtom, super.NumAtoms())
	}
	return plan, super, nil
}

// LoadPlan reads only the displacements from path.
func LoadPlan(path string) (*Plan, error) {
	plan, _, err := loadPlanFile(path)
	return plan, err
}

// LoadPlanWithCell reads the displacements and the reference supercell.
// A file without lattice and atoms is an error here.
func LoadPlanWithCell(path string) (*Plan, *cell.Cell, error) {
	plan, super, err := loadPlanFile(path)
	if err != nil {
		return nil, nil, err
	}
	if super == nil {
		return nil, nil, fmt.Errorf("dataset: %s has no supercell (lattice and points)", path)
	}
	return plan, super, nil
}

func loadPlanFile(path string) (*Plan, *cell.Cell, error) {
	//nolint:gosec // G304: path comes from the user's command line or config.
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	plan, super, parseErr := ParsePlanYAML(content)
	if parseErr != nil {
		return nil, nil, fmt.Errorf("dataset: %s: %w", path, parseErr)
	}
	return plan, super, nil
}

func (d dispDocument) plan() (*Plan, error) {
	plan := &Plan{NAtom: d.NAtom}
	for i, entry := range d.Displacements {
		if entry.Atom < 1 {
			return nil, fmt.Errorf("dataset: displacements[%d]: atom must be >= 1", i)
		}
		vec, err := toVec3(entry.Displacement)
		if err != nil {
			return nil, fmt.Errorf("dataset: displacements[%d].displacement: %w", i, err)
		}
		var dir [3]int
		if len(entry.Direction) == 3 {
			copy(dir[:], entry.Direction)
		}
		plan.FirstAtoms = append(plan.FirstAtoms, Displacement{
			Number:    entry.Atom - 1,
			Direction: dir,
			Vector:    vec,
		})
	}
	return plan, nil
}

func (d dispDocument) supercell() (*cell.Cell, error) {
	lattice, points := d.Lattice, d.Points
	if len(points) == 0 {
		points = d.Atoms
	}
	if d.Supercell != nil && len(lattice) == 0 {
		lattice, points = d.Supercell.Lattice, d.Supercell.Points
	}
	if len(lattice) == 0 && len(points) == 0 {
		return nil, nil
	}
	return buildCell(lattice, points)
}

func buildCell(rows [][]float64, points []pointEntry) (*cell.Cell, error) {
	if len(rows) != 3 {
		return nil, fmt.Errorf("dataset: lattice needs 3 vectors, got %d", len(rows))
	}
	var lattice [3][3]float64
	for i, row := range rows {
		v, err := toVec3(row)
		if err != nil {
			return nil, fmt.Errorf("dataset: lattice[%d]: %w", i, err)
		}
		lattice[i] = v
	}
	positions := make([][3]float64, 0, len(points))
	symbols := make([]string, 0, len(points))
	masses := make([]float64, 0, len(points))
	hasMass := true
	for i, p := range points {
		coords := p.Coordinates
		if coords == nil {
			coords = p.Position
		}
		v, err := toVec3(coords)
		if err != nil {
			return nil, fmt.Errorf("dataset: points[%d]: %w", i, err)
		}
		positions = append(positions, v)
		symbols = append(symbols, p.Symbol)
		masses = append(masses, p.Mass)
		if p.Mass == 0 {
			hasMass = false
		}
	}
	if !hasMass {
		masses = nil
	}
	c, err := cell.New(lattice, positions, symbols, masses)
	if err != nil {
		return nil, fmt.Errorf("dataset: supercell: %w", err)
	}
	return c, nil
}

func toVec3(values []float64) ([3]float64, error) {
	var v [3]float64
	if len(values) != 3 {
		return v, fmt.Errorf("expected 3 components, got %d", len(values))
	}
	copy(v[:], values)
	return v, nil
}
