package builtin

import (
	"errors"
	"testing"

	"github.com/kingrea/phonon-interface/internal/interfaces"
)

func TestDefaultCoversEveryMode(t *testing.T) {
	reg := Default()
	if missing := reg.Missing(); len(missing) != 0 {
		t.Fatalf("expected every mode registered, missing %v", missing)
	}
	for _, m := range interfaces.Modes() {
		b, err := reg.Lookup(m)
		if err != nil {
			t.Fatalf("Lookup(%s) returned error: %v", m, err)
		}
		want, err := interfaces.DefaultCellFilename(m, false)
		if err != nil {
			t.Fatal(err)
		}
		if b.DefaultCellFilename() != want {
			t.Fatalf("%s: expected default file %q, got %q", m, want, b.DefaultCellFilename())
		}
		if b.Experimental() != (m != interfaces.VASP) {
			t.Fatalf("%s: unexpected experimental flag %v", m, b.Experimental())
		}
	}
}

func TestRegisterBuiltinsTwiceFails(t *testing.T) {
	reg := Default()
	if err := RegisterBuiltins(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestLookupUnknownMode(t *testing.T) {
	_, err := Default().Lookup(interfaces.Mode("siesta"))
	if !errors.Is(err, interfaces.ErrUnsupportedMode) {
		t.Fatalf("expected ErrUnsupportedMode, got %v", err)
	}
}
