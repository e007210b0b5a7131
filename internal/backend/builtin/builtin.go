// Package builtin registers the backend of every supported mode.
package builtin

import (
	"github.com/kingrea/phonon-interface/internal/backend/abinit"
	"github.com/kingrea/phonon-interface/internal/backend/elk"
	"github.com/kingrea/phonon-interface/internal/backend/pwscf"
	"github.com/kingrea/phonon-interface/internal/backend/vasp"
	"github.com/kingrea/phonon-interface/internal/backend/wien2k"
	"github.com/kingrea/phonon-interface/internal/interfaces"
)

// Backends returns a fresh instance of every built-in backend.
func Backends() []interfaces.Backend {
	return []interfaces.Backend{
		vasp.New(),
		abinit.New(),
		pwscf.New(),
		wien2k.New(),
		elk.New(),
	}
}

// RegisterBuiltins installs every built-in backend into reg.
func RegisterBuiltins(reg *interfaces.Registry) error {
	for _, b := range Backends() {
		if err := reg.Register(b); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a registry holding every built-in backend.
func Default() *interfaces.Registry {
	reg := interfaces.NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		panic(err)
	}
	return reg
}
