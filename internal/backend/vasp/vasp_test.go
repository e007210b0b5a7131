package vasp

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/interfaces"
)

const poscarVASP5 = `NaCl rocksalt
   5.69
     1.0 0.0 0.0
     0.0 1.0 0.0
     0.0 0.0 1.0
   Na Cl
   1 1
Direct
  0.0 0.0 0.0
  0.5 0.5 0.5
`

const poscarVASP4 = `Na Cl
   1.0
     4.0 0.0 0.0
     0.0 4.0 0.0
     0.0 0.0 4.0
   2 1
Selective dynamics
Cartesian
  0.0 0.0 0.0 T T T
  2.0 0.0 0.0 T T T
  2.0 2.0 2.0 F F F
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func vasprun(steps ...[][3]float64) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<modeling>\n")
	for _, forces := range steps {
		b.WriteString(" <calculation>\n  <varray name=\"forces\" >\n")
		for _, f := range forces {
			fmt.Fprintf(&b, "   <v> %16.8f %16.8f %16.8f </v>\n", f[0], f[1], f[2])
		}
		b.WriteString("  </varray>\n </calculation>\n")
	}
	b.WriteString("</modeling>\n")
	return b.String()
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-8
}

func TestParsePOSCARReadsVASP5Symbols(t *testing.T) {
	c, err := ParsePOSCAR(strings.NewReader(poscarVASP5), nil)
	if err != nil {
		t.Fatalf("ParsePOSCAR returned error: %v", err)
	}
	if got := strings.Join(c.Symbols, ","); got != "Na,Cl" {
		t.Fatalf("expected symbols Na,Cl, got %s", got)
	}
	if !near(c.Lattice[0][0], 5.69) || !near(c.Lattice[2][2], 5.69) {
		t.Fatalf("expected scaled lattice, got %v", c.Lattice)
	}
	if !near(c.Positions[1][0], 0.5) {
		t.Fatalf("expected fractional positions preserved, got %v", c.Positions)
	}
}

func TestParsePOSCARUsesCommentLineForVASP4(t *testing.T) {
	c, err := ParsePOSCAR(strings.NewReader(poscarVASP4), nil)
	if err != nil {
		t.Fatalf("ParsePOSCAR returned error: %v", err)
	}
	if got := strings.Join(c.Symbols, ","); got != "Na,Na,Cl" {
		t.Fatalf("expected symbols Na,Na,Cl, got %s", got)
	}
	if !near(c.Positions[1][0], 0.5) || !near(c.Positions[2][2], 0.5) {
		t.Fatalf("expected Cartesian positions converted to fractional, got %v", c.Positions)
	}
}

func TestParsePOSCARSymbolOverrideWins(t *testing.T) {
	c, err := ParsePOSCAR(strings.NewReader(poscarVASP5), []string{"K", "Br"})
	if err != nil {
		t.Fatalf("ParsePOSCAR returned error: %v", err)
	}
	if got := strings.Join(c.Symbols, ","); got != "K,Br" {
		t.Fatalf("expected override symbols in given order, got %s", got)
	}

	c, err = ParsePOSCAR(strings.NewReader(poscarVASP4), []string{"Li", "Be", "B"})
	if err != nil {
		t.Fatalf("ParsePOSCAR returned error: %v", err)
	}
	if got := strings.Join(c.Symbols, ","); got != "Li,Be,B" {
		t.Fatalf("expected per-atom override, got %s", got)
	}
}

func TestParsePOSCARRejectsMismatchedOverride(t *testing.T) {
	if _, err := ParsePOSCAR(strings.NewReader(poscarVASP5), []string{"Na", "Cl", "K", "Br"}); err == nil {
		t.Fatal("expected error for four symbols on a two-atom cell")
	}
}

func TestParsePOSCARWithoutSymbolsFails(t *testing.T) {
	src := strings.Replace(poscarVASP4, "Na Cl\n", "no symbols here\n", 1)
	if _, err := ParsePOSCAR(strings.NewReader(src), nil); err == nil {
		t.Fatal("expected error when no chemical symbols are available")
	}
}

func TestParsePOSCARNegativeScaleIsVolume(t *testing.T) {
	src := strings.Replace(poscarVASP5, "   5.69\n", "   -27.0\n", 1)
	c, err := ParsePOSCAR(strings.NewReader(src), nil)
	if err != nil {
		t.Fatalf("ParsePOSCAR returned error: %v", err)
	}
	if !near(c.Volume(), 27.0) {
		t.Fatalf("expected volume 27, got %f", c.Volume())
	}
}

func TestDecodeVasprunForcesKeepsLastStep(t *testing.T) {
	doc := vasprun(
		[][3]float64{{1, 1, 1}, {-1, -1, -1}},
		[][3]float64{{0.1, 0.2, 0.3}, {-0.1, -0.2, -0.3}},
	)
	forces, err := DecodeVasprunForces(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeVasprunForces returned error: %v", err)
	}
	if len(forces) != 2 || !near(forces[0][2], 0.3) {
		t.Fatalf("expected last ionic step, got %v", forces)
	}
}

func TestDecodeVasprunForcesMissingBlock(t *testing.T) {
	if _, err := DecodeVasprunForces(strings.NewReader("<modeling></modeling>")); err == nil {
		t.Fatal("expected error when no forces block exists")
	}
}

func TestParseForcesSubtractsZeroPoint(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "vasprun-000.xml", vasprun([][3]float64{{0.5, 0, 0}, {0.5, 0, 0}}))
	disp := writeFile(t, dir, "vasprun-001.xml", vasprun([][3]float64{{1.5, 0, 0}, {-0.5, 0, 0}}))

	plan := &dataset.Plan{NAtom: 2, FirstAtoms: []dataset.Displacement{{Number: 0, Vector: [3]float64{0.01, 0, 0}}}}
	rec := &event.Recorder{}
	ok, err := New().ParseForces(plan, []string{ref, disp}, interfaces.ForceArgs{ZeroPoint: true, Sink: rec})
	if err != nil || !ok {
		t.Fatalf("ParseForces returned %v, %v", ok, err)
	}
	got := plan.FirstAtoms[0].Forces
	if !near(got[0][0], 1.0) || !near(got[1][0], -1.0) {
		t.Fatalf("expected reference-subtracted forces, got %v", got)
	}
	if rec.Count(event.KindFileParsed) != 1 {
		t.Fatalf("expected one parsed event, got %d", rec.Count(event.KindFileParsed))
	}
}

func TestParseForcesAtomCountMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vasprun.xml", vasprun([][3]float64{{0, 0, 0}}))
	plan := &dataset.Plan{NAtom: 2, FirstAtoms: []dataset.Displacement{{Number: 0}}}
	rec := &event.Recorder{}
	ok, err := New().ParseForces(plan, []string{path}, interfaces.ForceArgs{Sink: rec})
	if ok || err == nil {
		t.Fatalf("expected failure, got %v, %v", ok, err)
	}
	if rec.Count(event.KindParseFailed) != 1 {
		t.Fatalf("expected parse-failed event, got %v", rec.Events())
	}
}
