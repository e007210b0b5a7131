package phonopyyaml

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/phonon-interface/internal/cell"
)

const poscarYAML = `lattice:
- [ 5.430000, 0.000000, 0.000000 ] # a
- [ 0.000000, 5.430000, 0.000000 ] # b
- [ 0.000000, 0.000000, 5.430000 ] # c
points:
- symbol: Si # 1
  coordinates: [ 0.000000, 0.000000, 0.000000 ]
  mass: 28.085500
- symbol: Si # 2
  coordinates: [ 0.250000, 0.250000, 0.250000 ]
  mass: 28.085500
`

func TestParseCellTopLevel(t *testing.T) {
	c, err := ParseCell([]byte(poscarYAML))
	if err != nil {
		t.Fatalf("ParseCell returned error: %v", err)
	}
	if c.NumAtoms() != 2 || c.Masses[1] != 28.0855 {
		t.Fatalf("unexpected cell %+v", c)
	}
}

func TestParseCellUnitCellWrapperAndLegacyAtoms(t *testing.T) {
	doc := "unit_cell:\n" + indent(strings.Replace(poscarYAML, "points:", "atoms:", 1))
	doc = strings.ReplaceAll(doc, "coordinates:", "position:")
	c, err := ParseCell([]byte(doc))
	if err != nil {
		t.Fatalf("ParseCell returned error: %v", err)
	}
	if c.NumAtoms() != 2 || c.Positions[1][0] != 0.25 {
		t.Fatalf("unexpected cell %+v", c)
	}
}

func TestParseCellRejectsEmpty(t *testing.T) {
	if _, err := ParseCell([]byte("  \n")); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := ParseCell([]byte("lattice: []\n")); err == nil {
		t.Fatal("expected error for missing lattice vectors")
	}
}

func TestWriteCellRoundTrip(t *testing.T) {
	orig, err := cell.New(
		[3][3]float64{{3, 0, 0}, {0, 3, 0}, {0, 0, 3}},
		[][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}},
		[]string{"Cs", "Cl"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out", "POSCAR.yaml")
	if err := WriteCell(path, orig); err != nil {
		t.Fatalf("WriteCell returned error: %v", err)
	}
	got, err := ReadCell(path)
	if err != nil {
		t.Fatalf("ReadCell returned error: %v", err)
	}
	if strings.Join(got.Symbols, ",") != "Cs,Cl" || got.Positions[1][2] != 0.5 || got.Lattice[2][2] != 3 {
		t.Fatalf("round trip changed the cell: %+v", got)
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
