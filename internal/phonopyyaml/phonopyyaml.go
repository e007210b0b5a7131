// Package phonopyyaml reads and writes the normalized POSCAR.yaml cell
// format: a lattice block plus one point per atom.
package phonopyyaml

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/phonon-interface/internal/cell"
)

type document struct {
	Lattice  [][]float64 `yaml:"lattice,omitempty"`
	Points   []point     `yaml:"points,omitempty"`
	Atoms    []point     `yaml:"atoms,omitempty"`
	UnitCell *document   `yaml:"unit_cell,omitempty"`
}

type point struct {
	Symbol      string    `yaml:"symbol"`
	Coordinates []float64 `yaml:"coordinates,flow,omitempty"`
	Position    []float64 `yaml:"position,flow,omitempty"`
	Mass        float64   `yaml:"mass,omitempty"`
}

// ReadCell loads a cell from a POSCAR.yaml file.
func ReadCell(path string) (*cell.Cell, error) {
	//nolint:gosec // G304: path comes from the user's command line.
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("phonopyyaml: read %s: %w", path, err)
	}
	c, err := ParseCell(content)
	if err != nil {
		return nil, fmt.Errorf("phonopyyaml: %s: %w", path, err)
	}
	return c, nil
}

// ParseCell decodes a top-level cell or one nested under unit_cell.
func ParseCell(data []byte) (*cell.Cell, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("cell payload is empty")
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode cell: %w", err)
	}
	if len(doc.Lattice) == 0 && doc.UnitCell != nil {
		doc = *doc.UnitCell
	}
	points := doc.Points
	if len(points) == 0 {
		points = doc.Atoms
	}
	if len(doc.Lattice) != 3 {
		return nil, fmt.Errorf("lattice needs 3 vectors, got %d", len(doc.Lattice))
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no points found")
	}
	var lattice [3][3]float64
	for i, row := range doc.Lattice {
		if len(row) != 3 {
			return nil, fmt.Errorf("lattice[%d]: expected 3 components, got %d", i, len(row))
		}
		copy(lattice[i][:], row)
	}
	positions := make([][3]float64, len(points))
	symbols := make([]string, len(points))
	masses := make([]float64, len(points))
	hasMass := true
	for i, p := range points {
		coords := p.Coordinates
		if coords == nil {
			coords = p.Position
		}
		if len(coords) != 3 {
			return nil, fmt.Errorf("points[%d]: expected 3 coordinates, got %d", i, len(coords))
		}
		copy(positions[i][:], coords)
		symbols[i] = p.Symbol
		masses[i] = p.Mass
		if p.Mass == 0 {
			hasMass = false
		}
	}
	// Masses are all-or-nothing; partial lists fall back to the table.
	if !hasMass {
		masses = nil
	}
	return cell.New(lattice, positions, symbols, masses)
}

// MarshalCell encodes c in the POSCAR.yaml layout.
func MarshalCell(c *cell.Cell) ([]byte, error) {
	if errs := c.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("phonopyyaml: %w", errs[0])
	}
	doc := document{Lattice: make([][]float64, 3), Points: make([]point, c.NumAtoms())}
	for i := 0; i < 3; i++ {
		doc.Lattice[i] = []float64{c.Lattice[i][0], c.Lattice[i][1], c.Lattice[i][2]}
	}
	for i, x := range c.Positions {
		p := point{Symbol: c.Symbols[i], Coordinates: []float64{x[0], x[1], x[2]}}
		if len(c.Masses) == c.NumAtoms() {
			p.Mass = c.Masses[i]
		}
		doc.Points[i] = p
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("phonopyyaml: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("phonopyyaml: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCell writes c to path, creating parent directories.
func WriteCell(path string, c *cell.Cell) error {
	data, err := MarshalCell(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("phonopyyaml: ensure dir for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("phonopyyaml: write %s: %w", path, err)
	}
	return nil
}
