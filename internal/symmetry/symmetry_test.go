package symmetry

import (
	"math"
	"testing"

	"github.com/kingrea/phonon-interface/internal/cell"
)

func rocksalt(t *testing.T) *cell.Cell {
	t.Helper()
	lattice := [3][3]float64{{5.64, 0, 0}, {0, 5.64, 0}, {0, 0, 5.64}}
	positions := [][3]float64{
		{0, 0, 0}, {0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0},
		{0.5, 0, 0}, {0.5, 0.5, 0.5}, {0, 0, 0.5}, {0, 0.5, 0},
	}
	symbols := []string{"Na", "Na", "Na", "Na", "Cl", "Cl", "Cl", "Cl"}
	c, err := cell.New(lattice, positions, symbols, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestOperationsSimpleCubic(t *testing.T) {
	c, err := cell.New([3][3]float64{{3, 0, 0}, {0, 3, 0}, {0, 0, 3}}, [][3]float64{{0, 0, 0}}, []string{"Po"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := Operations(c, 1e-5)
	if err != nil {
		t.Fatalf("Operations returned error: %v", err)
	}
	if len(ops) != 48 {
		t.Fatalf("expected 48 operations for Pm-3m, got %d", len(ops))
	}
	if !ops[0].IsIdentity() {
		t.Fatal("expected identity first")
	}
}

func TestOperationsRocksaltConventional(t *testing.T) {
	ops, err := Operations(rocksalt(t), 1e-5)
	if err != nil {
		t.Fatalf("Operations returned error: %v", err)
	}
	if len(ops) != 192 {
		t.Fatalf("expected 48 rotations x 4 centring translations, got %d", len(ops))
	}
}

func TestOperationsTetragonalLowersSymmetry(t *testing.T) {
	c, err := cell.New([3][3]float64{{3, 0, 0}, {0, 3, 0}, {0, 0, 4}}, [][3]float64{{0, 0, 0}}, []string{"Po"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := Operations(c, 1e-5)
	if err != nil {
		t.Fatalf("Operations returned error: %v", err)
	}
	if len(ops) != 16 {
		t.Fatalf("expected 16 operations for P4/mmm, got %d", len(ops))
	}
}

func TestEquivalencesGroupsSpecies(t *testing.T) {
	c := rocksalt(t)
	eq, err := Equivalences(c, 1e-5)
	if err != nil {
		t.Fatalf("Equivalences returned error: %v", err)
	}
	independent := eq.Independent()
	if len(independent) != 2 || independent[0] != 0 || independent[1] != 4 {
		t.Fatalf("expected representatives [0 4], got %v", independent)
	}
	for i, rep := range eq.Representative {
		op := eq.Operations[eq.OperationIndex[i]]
		if op.Permutation[rep] != i {
			t.Fatalf("operation %d does not map atom %d onto %d", eq.OperationIndex[i], rep, i)
		}
	}
}

func TestCartesianRotationCubicMatchesInteger(t *testing.T) {
	op := Operation{Rotation: [3][3]int{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}}}
	lattice := [3][3]float64{{2, 0, 0}, {0, 2, 0}, {0, 0, 2}}
	r, err := CartesianRotation(op, lattice)
	if err != nil {
		t.Fatalf("CartesianRotation returned error: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(r[i][j]-float64(op.Rotation[i][j])) > 1e-12 {
				t.Fatalf("expected %v, got %v", op.Rotation, r)
			}
		}
	}
}

func TestCartesianRotationHexagonalIsOrthogonal(t *testing.T) {
	lattice := cell.LatticeFromParameters(3, 3, 5, 90, 90, 120)
	c, err := cell.New(lattice, [][3]float64{{0, 0, 0}}, []string{"Mg"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := Operations(c, 1e-5)
	if err != nil {
		t.Fatalf("Operations returned error: %v", err)
	}
	if len(ops) != 24 {
		t.Fatalf("expected 24 operations for P6/mmm, got %d", len(ops))
	}
	for _, op := range ops {
		r, err := CartesianRotation(op, lattice)
		if err != nil {
			t.Fatal(err)
		}
		rrt := cell.MatMul(r, cell.Transpose(r))
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1
				}
				if math.Abs(rrt[i][j]-want) > 1e-9 {
					t.Fatalf("rotation %v is not orthogonal: %v", op.Rotation, r)
				}
			}
		}
	}
}
