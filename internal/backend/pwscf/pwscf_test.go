package pwscf

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/interfaces"
)

const siliconInput = ` &control
    calculation = 'scf'
 /
 &system
    ibrav = 0, celldm(1) = 10.26
    nat = 2, ntyp = 1
    ecutwfc = 30.0
 /
 &electrons
 /
ATOMIC_SPECIES
 Si  28.086  Si.pbe-n-kjpaw_psl.0.1.UPF
ATOMIC_POSITIONS crystal
 Si   0.00 0.00 0.00
 Si   0.25 0.25 0.25
CELL_PARAMETERS alat
  0.0 0.5 0.5
  0.5 0.0 0.5
  0.5 0.5 0.0
K_POINTS automatic
 8 8 8 1 1 1
`

const pwOutput = `
     Forces acting on atoms (cartesian axes, Ry/au):

     atom    1 type  1   force =     0.00100000    0.00000000    0.00000000
     atom    2 type  1   force =    -0.00100000    0.00000000    0.00000000
     The non-local contrib.  to forces
     atom    1 type  1   force =     9.00000000    9.00000000    9.00000000
     atom    2 type  1   force =     9.00000000    9.00000000    9.00000000

     Total force =     0.001414     Total SCF correction =     0.000000
`

func TestParseInputReadsSpeciesAndCell(t *testing.T) {
	in, err := ParseInput(strings.NewReader(siliconInput))
	if err != nil {
		t.Fatalf("ParseInput returned error: %v", err)
	}
	if in.Cell.NumAtoms() != 2 {
		t.Fatalf("expected 2 atoms, got %d", in.Cell.NumAtoms())
	}
	if math.Abs(in.Cell.Lattice[0][1]-5.13) > 1e-9 {
		t.Fatalf("expected alat-scaled lattice, got %v", in.Cell.Lattice)
	}
	if math.Abs(in.Cell.Masses[0]-28.086) > 1e-9 {
		t.Fatalf("expected species mass, got %v", in.Cell.Masses)
	}
	if len(in.Species) != 1 || in.Species[0].File != "Si.pbe-n-kjpaw_psl.0.1.UPF" {
		t.Fatalf("expected pseudopotential file, got %+v", in.Species)
	}
}

func TestReadStructureReturnsPwscfProvenance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unitcell.in")
	if err := os.WriteFile(path, []byte(siliconInput), 0644); err != nil {
		t.Fatal(err)
	}
	_, prov, err := New().ReadStructure(interfaces.Source{File: path}, interfaces.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadStructure returned error: %v", err)
	}
	pw, ok := prov.(interfaces.PwscfProvenance)
	if !ok {
		t.Fatalf("expected PwscfProvenance, got %T", prov)
	}
	if files := pw.Files(); len(files) != 1 || files[0] != "Si.pbe-n-kjpaw_psl.0.1.UPF" {
		t.Fatalf("unexpected pseudopotential files %v", files)
	}
}

func TestParseInputMissingNat(t *testing.T) {
	src := strings.Replace(siliconInput, "nat = 2, ", "", 1)
	if _, err := ParseInput(strings.NewReader(src)); err == nil {
		t.Fatal("expected error without nat")
	}
}

func TestParseForcesTakesTotalForcesOnly(t *testing.T) {
	forces, err := ParseForces(strings.Split(pwOutput, "\n"), 2)
	if err != nil {
		t.Fatalf("ParseForces returned error: %v", err)
	}
	if len(forces) != 2 || forces[0][0] != 0.001 || forces[1][0] != -0.001 {
		t.Fatalf("expected total forces, got %v", forces)
	}
}

func TestBackendParseForcesShortFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supercell-001.out")
	if err := os.WriteFile(path, []byte(pwOutput), 0644); err != nil {
		t.Fatal(err)
	}
	plan := &dataset.Plan{NAtom: 3, FirstAtoms: []dataset.Displacement{{Number: 0}}}
	ok, err := New().ParseForces(plan, []string{path}, interfaces.ForceArgs{NumAtoms: 3})
	if ok || err == nil {
		t.Fatalf("expected failure for a two-atom force block, got %v, %v", ok, err)
	}
}
