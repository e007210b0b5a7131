package structure

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/phonon-interface/internal/cell"
	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/interfaces"
)

const poscar = `NaCl
   1.0
     4.0 0.0 0.0
     0.0 4.0 0.0
     0.0 0.0 4.0
   Na Cl
   2 2
Direct
  0.0 0.0 0.0
  0.5 0.5 0.0
  0.5 0.0 0.0
  0.0 0.5 0.0
`

const poscarYAML = `lattice:
- [ 4.0, 0.0, 0.0 ]
- [ 0.0, 4.0, 0.0 ]
- [ 0.0, 0.0, 4.0 ]
points:
- symbol: Cs
  coordinates: [ 0.0, 0.0, 0.0 ]
- symbol: Cl
  coordinates: [ 0.5, 0.5, 0.5 ]
`

// chdir moves the test into dir so default file names resolve there.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadMissingExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.vasp")
	res, err := NewLoader().Load(Request{Filename: path, Mode: interfaces.VASP})
	var missing *MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFileError, got %v", err)
	}
	if res.Cell != nil {
		t.Fatal("expected nil cell")
	}
	if res.Provenance == nil || res.Provenance.Describe() != path {
		t.Fatalf("expected provenance %q, got %v", path, res.Provenance)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	chdir(t, t.TempDir())
	for _, m := range interfaces.Modes() {
		res, err := NewLoader().Load(Request{Mode: m})
		var missing *MissingFileError
		if !errors.As(err, &missing) || !missing.DefaultName {
			t.Fatalf("%s: expected default-name MissingFileError, got %v", m, err)
		}
		want, _ := interfaces.DefaultCellFilename(m, false)
		if got := res.Provenance.Describe(); got != want+" (default file name)" {
			t.Fatalf("%s: unexpected description %q", m, got)
		}
	}
}

func TestLoadYAMLOverridesMode(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, interfaces.YAMLCellFilename), []byte(poscarYAML), 0644); err != nil {
		t.Fatal(err)
	}
	rec := &event.Recorder{}
	res, err := NewLoader(WithSink(rec)).Load(Request{Mode: interfaces.WIEN2K, YAML: true})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if res.Cell.NumAtoms() != 2 {
		t.Fatalf("expected 2 atoms, got %d", res.Cell.NumAtoms())
	}
	if _, ok := res.Provenance.(interfaces.FileProvenance); !ok {
		t.Fatalf("expected FileProvenance, got %T", res.Provenance)
	}
	if rec.Count(event.KindStructureLoaded) != 1 {
		t.Fatalf("expected structure-loaded event, got %v", rec.Events())
	}
}

func TestLoadVaspSymbolOverridePreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "POSCAR")
	if err := os.WriteFile(path, []byte(poscar), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := NewLoader().Load(Request{Filename: path, Mode: interfaces.VASP, Symbols: []string{"K", "Br"}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := strings.Join(res.Cell.Symbols, ","); got != "K,K,Br,Br" {
		t.Fatalf("expected K,K,Br,Br, got %s", got)
	}
	if res.Cell.Positions[1] != [3]float64{0.5, 0.5, 0} {
		t.Fatalf("expected atom order preserved, got %v", res.Cell.Positions)
	}
	if res.Provenance.Describe() != path {
		t.Fatalf("expected plain description, got %q", res.Provenance.Describe())
	}
}

type stubBackend struct {
	mode interfaces.Mode
	opts interfaces.ReadOptions
}

func (s *stubBackend) Mode() interfaces.Mode { return s.mode }
func (s *stubBackend) DefaultCellFilename() string { return "stub" }
func (s *stubBackend) Experimental() bool { return true }
func (s *stubBackend) ReadStructure(src interfaces.Source, opts interfaces.ReadOptions) (*cell.Cell, interfaces.Provenance, error) {
	s.opts = opts
	c, err := cell.New([3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, [][3]float64{{0, 0, 0}}, []string{"H"}, nil)
	return c, interfaces.ElkProvenance{Source: src, SpeciesFiles: []string{"H.in"}}, err
}
func (s *stubBackend) ParseForces(*dataset.Plan, []string, interfaces.ForceArgs) (bool, error) {
	return false, nil
}

func TestLoadPassesProvenanceThroughAndDropsSymbolsForNonVasp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elk.in")
	if err := os.WriteFile(path, []byte("avec\n"), 0644); err != nil {
		t.Fatal(err)
	}
	stub := &stubBackend{mode: interfaces.ELK}
	reg := interfaces.NewRegistry()
	reg.MustRegister(stub)
	res, err := NewLoader(WithRegistry(reg)).Load(Request{Filename: path, Mode: interfaces.ELK, Symbols: []string{"Si"}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(stub.opts.Symbols) != 0 {
		t.Fatalf("expected symbols to be ignored outside vasp, got %v", stub.opts.Symbols)
	}
	elk, ok := res.Provenance.(interfaces.ElkProvenance)
	if !ok || len(elk.SpeciesFiles) != 1 || elk.SpeciesFiles[0] != "H.in" {
		t.Fatalf("expected ElkProvenance passed through, got %#v", res.Provenance)
	}
}

func TestLoadUnknownModeWithExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := NewLoader().Load(Request{Filename: path, Mode: interfaces.Mode("castep")})
	if !errors.Is(err, interfaces.ErrUnsupportedMode) {
		t.Fatalf("expected ErrUnsupportedMode, got %v", err)
	}
	if res.Cell != nil || res.Provenance == nil {
		t.Fatalf("expected nil cell with provenance, got %+v", res)
	}
}
