// Package vasp reads VASP POSCAR structures and vasprun.xml forces.
package vasp

import (
	"fmt"

	"github.com/kingrea/phonon-interface/internal/backend"
	"github.com/kingrea/phonon-interface/internal/cell"
	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/interfaces"
)

// Backend implements interfaces.Backend for VASP.
type Backend struct {
	readForces backend.ForceReader
}

// New returns the VASP backend.
func New() *Backend {
	return &Backend{readForces: ReadVasprunForces}
}

// Mode implements interfaces.Backend.
func (b *Backend) Mode() interfaces.Mode { return interfaces.VASP }

// DefaultCellFilename implements interfaces.Backend.
func (b *Backend) DefaultCellFilename() string { return "POSCAR" }

// Experimental implements interfaces.Backend.
func (b *Backend) Experimental() bool { return false }

// ReadStructure implements interfaces.Backend.
func (b *Backend) ReadStructure(src interfaces.Source, opts interfaces.ReadOptions) (*cell.Cell, interfaces.Provenance, error) {
	prov := interfaces.FileProvenance{Source: src}
	c, err := ReadPOSCAR(src.File, opts.Symbols)
	if err != nil {
		return nil, prov, err
	}
	return c, prov, nil
}

// ParseForces implements interfaces.Backend. With args.ZeroPoint the first
// file holds the forces of the perfect supercell and is subtracted from
// every displaced set.
func (b *Backend) ParseForces(plan *dataset.Plan, filenames []string, args interfaces.ForceArgs) (bool, error) {
	opts := backend.FillOptions{Mode: interfaces.VASP, NumAtoms: plan.NAtom, Sink: args.Sink}
	files := filenames
	if args.ZeroPoint {
		if len(filenames) == 0 {
			return false, fmt.Errorf("vasp: zero-point mode needs the perfect-supercell file")
		}
		ref, err := b.readForces(filenames[0])
		if err != nil {
			return false, fmt.Errorf("vasp: reference %s: %w", filenames[0], err)
		}
		opts.Reference = ref
		files = filenames[1:]
	}
	return backend.FillPlan(plan, files, b.readForces, opts)
}
