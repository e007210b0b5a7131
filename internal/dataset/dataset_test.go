package dataset

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/phonon-interface/internal/cell"
)

const dispYAML = `natom: 2
displacements:
- atom: 1
  direction: [ 1, 0, 0 ]
  displacement: [ 0.02, 0.0, 0.0 ]
- atom: 2
  direction: [ 0, 0, 1 ]
  displacement: [ 0.0, 0.0, 0.02 ]
lattice:
- [ 4.0, 0.0, 0.0 ]
- [ 0.0, 4.0, 0.0 ]
- [ 0.0, 0.0, 4.0 ]
points:
- symbol: Cs
  coordinates: [ 0.0, 0.0, 0.0 ]
- symbol: Cl
  coordinates: [ 0.5, 0.5, 0.5 ]
`

func TestParsePlanYAML(t *testing.T) {
	plan, super, err := ParsePlanYAML([]byte(dispYAML))
	if err != nil {
		t.Fatalf("ParsePlanYAML returned error: %v", err)
	}
	if plan.NAtom != 2 || len(plan.FirstAtoms) != 2 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.FirstAtoms[1].Number != 1 || plan.FirstAtoms[1].Direction != [3]int{0, 0, 1} {
		t.Fatalf("expected 0-based atom number and direction, got %+v", plan.FirstAtoms[1])
	}
	if super == nil || super.NumAtoms() != 2 || super.Symbols[1] != "Cl" {
		t.Fatalf("unexpected supercell %+v", super)
	}
}

func TestParsePlanYAMLWithoutNatomUsesSupercell(t *testing.T) {
	doc := strings.Replace(dispYAML, "natom: 2\n", "", 1)
	plan, _, err := ParsePlanYAML([]byte(doc))
	if err != nil {
		t.Fatalf("ParsePlanYAML returned error: %v", err)
	}
	if plan.NAtom != 2 {
		t.Fatalf("expected natom from supercell, got %d", plan.NAtom)
	}
}

func TestParsePlanYAMLRejectsBadPlans(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", "  \n"},
		{"no displacements", "natom: 2\n"},
		{"atom out of range", "natom: 1\ndisplacements:\n- atom: 3\n  displacement: [ 0.01, 0, 0 ]\n"},
		{"atom zero", "natom: 1\ndisplacements:\n- atom: 0\n  displacement: [ 0.01, 0, 0 ]\n"},
		{"short vector", "natom: 1\ndisplacements:\n- atom: 1\n  displacement: [ 0.01, 0 ]\n"},
		{"natom disagrees with supercell", strings.Replace(dispYAML, "natom: 2", "natom: 3", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParsePlanYAML([]byte(tt.doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	_, _, err := ParsePlanYAML([]byte("natom: 2\n"))
	if !errors.Is(err, ErrEmptyPlan) {
		t.Fatalf("expected ErrEmptyPlan, got %v", err)
	}
}

func TestLoadPlanWithCellNeedsSupercell(t *testing.T) {
	path := writeFile(t, "disp.yaml", "natom: 1\ndisplacements:\n- atom: 1\n  displacement: [ 0.01, 0, 0 ]\n")
	if _, err := LoadPlan(path); err != nil {
		t.Fatalf("LoadPlan returned error: %v", err)
	}
	if _, _, err := LoadPlanWithCell(path); err == nil {
		t.Fatal("expected error for missing supercell")
	}
}

func TestForceSetsRoundTrip(t *testing.T) {
	plan, _, err := ParsePlanYAML([]byte(dispYAML))
	if err != nil {
		t.Fatal(err)
	}
	plan.FirstAtoms[0].Forces = [][3]float64{{-0.0123456789, 0, 0}, {0.0123456789, 0, 0}}
	plan.FirstAtoms[1].Forces = [][3]float64{{0, 0, 0.5}, {0, 0, -0.5}}
	path := filepath.Join(t.TempDir(), "out", DefaultForceSetsFile)
	if err := WriteForceSets(plan, path); err != nil {
		t.Fatalf("WriteForceSets returned error: %v", err)
	}
	got, err := ReadForceSets(path)
	if err != nil {
		t.Fatalf("ReadForceSets returned error: %v", err)
	}
	if got.NAtom != 2 || len(got.FirstAtoms) != 2 || got.FirstAtoms[1].Number != 1 {
		t.Fatalf("unexpected plan %+v", got)
	}
	if math.Abs(got.FirstAtoms[0].Forces[1][0]-0.0123456789) > 1e-10 {
		t.Fatalf("force lost precision: %v", got.FirstAtoms[0].Forces)
	}
	if got.FirstAtoms[0].Vector != [3]float64{0.02, 0, 0} {
		t.Fatalf("unexpected displacement %v", got.FirstAtoms[0].Vector)
	}
}

func TestEncodeForceSetsLayout(t *testing.T) {
	plan := &Plan{NAtom: 1, FirstAtoms: []Displacement{{Number: 0, Vector: [3]float64{0.01, 0, 0}, Forces: [][3]float64{{1, 2, 3}}}}}
	var buf bytes.Buffer
	if err := EncodeForceSets(&buf, plan); err != nil {
		t.Fatalf("EncodeForceSets returned error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 || strings.TrimSpace(lines[0]) != "1" || strings.TrimSpace(lines[3]) != "1" || lines[2] != "" {
		t.Fatalf("unexpected layout:\n%s", buf.String())
	}
}

func TestEncodeForceSetsNeedsForces(t *testing.T) {
	plan := &Plan{NAtom: 2, FirstAtoms: []Displacement{{Number: 0}}}
	if err := EncodeForceSets(&bytes.Buffer{}, plan); err == nil {
		t.Fatal("expected error for missing forces")
	}
}

func TestDecodeForceSetsTruncated(t *testing.T) {
	if _, err := DecodeForceSets(strings.NewReader("2\n1\n\n1\n0.01 0 0\n0 0 0\n")); err == nil {
		t.Fatal("expected error for truncated force set")
	}
}

func TestSubtractDrift(t *testing.T) {
	forces := [][3]float64{{1, 0, 2}, {3, 0, 0}}
	drift := SubtractDrift(forces)
	if drift != [3]float64{2, 0, 1} {
		t.Fatalf("unexpected drift %v", drift)
	}
	if forces[0] != [3]float64{-1, 0, 1} || forces[1] != [3]float64{1, 0, -1} {
		t.Fatalf("unexpected corrected forces %v", forces)
	}
}

func TestDisplacedCell(t *testing.T) {
	plan, super, err := ParsePlanYAML([]byte(dispYAML))
	if err != nil {
		t.Fatal(err)
	}
	displaced, err := plan.DisplacedCell(0, super)
	if err != nil {
		t.Fatalf("DisplacedCell returned error: %v", err)
	}
	if math.Abs(displaced.Positions[0][0]-0.005) > 1e-12 || super.Positions[0][0] != 0 {
		t.Fatalf("expected 0.02 Angstrom shift on a copy, got %v", displaced.Positions[0])
	}
	if _, err := plan.DisplacedCell(5, super); err == nil {
		t.Fatal("expected out of range error")
	}
	small, err := cell.New([3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, [][3]float64{{0, 0, 0}}, []string{"H"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := plan.DisplacedCell(0, small); err == nil {
		t.Fatal("expected supercell size error")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
