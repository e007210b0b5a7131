package backend

import (
	"errors"
	"strings"
	"testing"

	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/interfaces"
)

func twoDisplacements() *dataset.Plan {
	return &dataset.Plan{NAtom: 2, FirstAtoms: []dataset.Displacement{{Number: 0}, {Number: 1}}}
}

func TestFillPlanSubtractsReferenceAndDrift(t *testing.T) {
	plan := twoDisplacements()
	files := map[string][][3]float64{
		"a": {{1.5, 0, 0}, {-0.5, 0, 0}},
		"b": {{0.5, 0, 1}, {0.5, 0, 1}},
	}
	rec := &event.Recorder{}
	ok, err := FillPlan(plan, []string{"a", "b"}, func(path string) ([][3]float64, error) {
		return files[path], nil
	}, FillOptions{Mode: interfaces.VASP, Reference: [][3]float64{{0.5, 0, 0}, {0.5, 0, 0}}, Sink: rec})
	if !ok || err != nil {
		t.Fatalf("FillPlan failed: %v", err)
	}
	if plan.FirstAtoms[0].Forces[0] != [3]float64{1, 0, 0} || plan.FirstAtoms[0].Forces[1] != [3]float64{-1, 0, 0} {
		t.Fatalf("unexpected forces %v", plan.FirstAtoms[0].Forces)
	}
	if plan.FirstAtoms[1].Forces[0] != [3]float64{0, 0, 0} {
		t.Fatalf("expected drift to be removed, got %v", plan.FirstAtoms[1].Forces)
	}
	if rec.Count(event.KindFileParsed) != 2 || rec.Count(event.KindDrift) != 2 {
		t.Fatalf("unexpected events %v", rec.Events())
	}
}

func TestFillPlanStopsAtFirstBadFile(t *testing.T) {
	plan := twoDisplacements()
	rec := &event.Recorder{}
	reads := 0
	ok, err := FillPlan(plan, []string{"a", "b"}, func(string) ([][3]float64, error) {
		reads++
		return [][3]float64{{0, 0, 0}}, nil
	}, FillOptions{Mode: interfaces.ELK, Sink: rec})
	if ok || err == nil || !strings.Contains(err.Error(), "doesn't match to disp.yaml") {
		t.Fatalf("expected atom count failure, got %v %v", ok, err)
	}
	if reads != 1 || rec.Count(event.KindParseFailed) != 1 {
		t.Fatalf("expected one read and one failure event, got %d %v", reads, rec.Events())
	}
}

func TestFillPlanTransformAndReadErrors(t *testing.T) {
	plan := twoDisplacements()
	_, err := FillPlan(plan, []string{"a", "b"}, func(string) ([][3]float64, error) {
		return [][3]float64{{1, 0, 0}}, nil
	}, FillOptions{Mode: interfaces.WIEN2K, Transform: func(_ int, f [][3]float64) ([][3]float64, error) {
		return append(f, [3]float64{-1, 0, 0}), nil
	}})
	if err != nil {
		t.Fatalf("expected transform to complete the force set, got %v", err)
	}

	boom := errors.New("boom")
	_, err = FillPlan(twoDisplacements(), []string{"a", "b"}, func(string) ([][3]float64, error) {
		return nil, boom
	}, FillOptions{Mode: interfaces.ABINIT})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
}

func TestFillPlanChecksInputs(t *testing.T) {
	read := func(string) ([][3]float64, error) { return nil, nil }
	if _, err := FillPlan(nil, nil, read, FillOptions{}); err == nil {
		t.Fatal("expected error for nil plan")
	}
	if _, err := FillPlan(twoDisplacements(), []string{"a"}, read, FillOptions{}); err == nil {
		t.Fatal("expected error for too few files")
	}
	if _, err := FillPlan(twoDisplacements(), []string{"a", "b"}, read, FillOptions{NumAtoms: 3}); err == nil {
		t.Fatal("expected error for atom count disagreement")
	}
}

func TestParseHelpers(t *testing.T) {
	v, err := ParseFloat("1.5D-02,")
	if err != nil || v != 0.015 {
		t.Fatalf("expected 0.015, got %v (%v)", v, err)
	}
	vec, err := Vec3([]string{"1", "2", "3e0", "ignored"})
	if err != nil || vec != [3]float64{1, 2, 3} {
		t.Fatalf("unexpected vector %v (%v)", vec, err)
	}
	if _, err := Vec3([]string{"1", "x", "3"}); err == nil {
		t.Fatal("expected error for invalid number")
	}
	if got := StripComment("acell 3*10.0 # bohr ! note", "#", "!"); got != "acell 3*10.0" {
		t.Fatalf("unexpected stripped line %q", got)
	}
	lines, err := ScanLines(strings.NewReader("a  \r\nb\t\n"))
	if err != nil || len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Fatalf("unexpected lines %q (%v)", lines, err)
	}
}
