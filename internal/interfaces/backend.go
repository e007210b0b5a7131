package interfaces

import (
	"github.com/kingrea/phonon-interface/internal/cell"
	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/event"
)

// ReadOptions carries reader inputs that only some backends honour.
type ReadOptions struct {
	// Symbols overrides the chemical symbols of a VASP structure, either one
	// per species (expanded by the counts line) or one per atom.
	Symbols []string
}

// ForceArgs are the mode-dependent inputs to a force parser. Only the
// fields the mode needs are set by the assembler.
type ForceArgs struct {
	// ZeroPoint marks the first file as the perfect-supercell reference (vasp).
	ZeroPoint bool
	// NumAtoms is the supercell atom count (abinit, pwscf, elk).
	NumAtoms int
	// Supercell is the undisplaced reference supercell (wien2k).
	Supercell *cell.Cell
	// Distribute spreads forces of inequivalent atoms over their
	// symmetry-equivalent partners (wien2k).
	Distribute bool
	Symprec    float64
	Sink       event.Sink
}

// Emit forwards e to the configured sink, if any.
func (a ForceArgs) Emit(e event.Event) {
	event.OrDiscard(a.Sink).Emit(e)
}

// Backend is one simulation code's reader and force parser.
type Backend interface {
	Mode() Mode
	// DefaultCellFilename is the structure file read when none is given.
	DefaultCellFilename() string
	// Experimental backends get a warning event before parsing forces.
	Experimental() bool
	// ReadStructure reads the unit cell at src.File. The returned
	// provenance embeds src.
	ReadStructure(src Source, opts ReadOptions) (*cell.Cell, Provenance, error)
	// ParseForces attaches one force set per displacement to plan. It
	// returns false, with or without an error, when any file is unusable;
	// plan may then be partially filled and must not be written.
	ParseForces(plan *dataset.Plan, filenames []string, args ForceArgs) (bool, error)
}
