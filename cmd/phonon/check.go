package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kingrea/phonon-interface/internal/dataset"
)

// runCheck summarizes a FORCE_SETS file and, when the displacement file
// is present, compares the two. A disagreement exits with 1.
func runCheck(cwd string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	disp := fs.String("disp", "", "displacement file to compare against (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "Usage: phonon check [-disp disp.yaml] [FORCE_SETS]")
		return 2
	}

	s, err := openSession(cwd, stdout, false, false)
	if err != nil {
		fmt.Fprintf(stderr, "phonon: %v\n", err)
		return 2
	}
	defer s.Close()

	path := fs.Arg(0)
	if path == "" {
		path = s.cfg.ForceSetsPath()
	}
	got, err := dataset.ReadForceSets(path)
	if err != nil {
		fmt.Fprintf(stderr, "phonon: %v\n", err)
		return 2
	}
	fmt.Fprintf(stdout, "%s: %d atoms, %d displacements\n", path, got.NAtom, len(got.FirstAtoms))
	for i, d := range got.FirstAtoms {
		fmt.Fprintf(stdout, "  %3d atom %-4d |u| %.6f  max |F| %.6f  residual drift %.2e\n",
			i+1, d.Number+1, norm(d.Vector), maxForce(d.Forces), norm(residual(d.Forces)))
	}

	planPath := *disp
	if planPath == "" {
		planPath = s.cfg.DisplacementsPath()
		if _, err := os.Stat(planPath); err != nil {
			return 0
		}
	}
	plan, err := dataset.LoadPlan(planPath)
	if err != nil {
		fmt.Fprintf(stderr, "phonon: %v\n", err)
		return 2
	}
	if problems := compare(plan, got); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(stdout, "- %s\n", p)
		}
		s.book.Warn("check: %s disagrees with %s", path, planPath)
		return 1
	}
	fmt.Fprintf(stdout, "OK: %s matches %s\n", path, planPath)
	return 0
}

func compare(plan, got *dataset.Plan) []string {
	var problems []string
	if plan.NAtom != got.NAtom {
		problems = append(problems, fmt.Sprintf("natom %d, displacement file has %d", got.NAtom, plan.NAtom))
	}
	if len(plan.FirstAtoms) != len(got.FirstAtoms) {
		problems = append(problems, fmt.Sprintf("%d displacements, displacement file has %d", len(got.FirstAtoms), len(plan.FirstAtoms)))
		return problems
	}
	for i := range plan.FirstAtoms {
		want, have := plan.FirstAtoms[i], got.FirstAtoms[i]
		if want.Number != have.Number {
			problems = append(problems, fmt.Sprintf("displacement %d moves atom %d, displacement file says %d", i+1, have.Number+1, want.Number+1))
		}
		for k := 0; k < 3; k++ {
			if math.Abs(want.Vector[k]-have.Vector[k]) > 1e-8 {
				problems = append(problems, fmt.Sprintf("displacement %d vector differs", i+1))
				break
			}
		}
	}
	return problems
}

func residual(forces [][3]float64) [3]float64 {
	var sum [3]float64
	for _, f := range forces {
		for k := 0; k < 3; k++ {
			sum[k] += f[k]
		}
	}
	return sum
}

func maxForce(forces [][3]float64) float64 {
	m := 0.0
	for _, f := range forces {
		m = math.Max(m, norm(f))
	}
	return m
}

func norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
