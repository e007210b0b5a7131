// Package structure loads the initial unit cell for a run. It resolves the
// file name, checks that the file exists, then hands the file to the
// backend of the selected mode or to the POSCAR.yaml reader.
package structure

import (
	"errors"
	"fmt"
	"os"

	"github.com/kingrea/phonon-interface/internal/backend/builtin"
	"github.com/kingrea/phonon-interface/internal/cell"
	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/interfaces"
	"github.com/kingrea/phonon-interface/internal/phonopyyaml"
)

// Request selects what to load.
type Request struct {
	// Filename is optional; the mode's default name is used when empty.
	Filename string
	Mode     interfaces.Mode
	// Symbols overrides chemical symbols (VASP only).
	Symbols []string
	// YAML reads POSCAR.yaml regardless of Mode.
	YAML bool
}

// Result is returned by Load on success and failure. Provenance is always
// set; Cell is nil when loading failed.
type Result struct {
	Cell       *cell.Cell
	Provenance interfaces.Provenance
}

// MissingFileError reports a structure file that does not exist.
type MissingFileError struct {
	Path        string
	DefaultName bool
}

func (e *MissingFileError) Error() string {
	if e.DefaultName {
		return fmt.Sprintf("structure: %s (default file name) not found", e.Path)
	}
	return fmt.Sprintf("structure: %s not found", e.Path)
}

// Loader reads unit cells through a backend registry.
type Loader struct {
	registry *interfaces.Registry
	sink     event.Sink
	readYAML func(path string) (*cell.Cell, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithRegistry replaces the built-in backends.
func WithRegistry(reg *interfaces.Registry) Option {
	return func(l *Loader) {
		if reg != nil {
			l.registry = reg
		}
	}
}

// WithSink receives a KindStructureLoaded event after each successful load.
func WithSink(s event.Sink) Option {
	return func(l *Loader) { l.sink = s }
}

// NewLoader builds a loader over the built-in backends unless overridden.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{readYAML: phonopyyaml.ReadCell}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = builtin.Default()
	}
	l.sink = event.OrDiscard(l.sink)
	return l
}

// Load reads the unit cell described by req.
func (l *Loader) Load(req Request) (Result, error) {
	src := interfaces.Source{File: req.Filename}
	if src.File == "" {
		name, err := interfaces.DefaultCellFilename(req.Mode, req.YAML)
		if err != nil {
			return Result{Provenance: interfaces.FileProvenance{Source: src}}, err
		}
		src = interfaces.Source{File: name, DefaultName: true}
	}
	failed := Result{Provenance: interfaces.FileProvenance{Source: src}}

	if _, err := os.Stat(src.File); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return failed, &MissingFileError{Path: src.File, DefaultName: src.DefaultName}
		}
		return failed, fmt.Errorf("structure: stat %s: %w", src.File, err)
	}

	if req.YAML {
		c, err := l.readYAML(src.File)
		if err != nil {
			return failed, err
		}
		l.loaded(req, src, c)
		return Result{Cell: c, Provenance: interfaces.FileProvenance{Source: src}}, nil
	}

	b, err := l.registry.Lookup(req.Mode)
	if err != nil {
		return failed, err
	}
	opts := interfaces.ReadOptions{}
	if req.Mode == interfaces.VASP {
		opts.Symbols = req.Symbols
	}
	c, prov, err := b.ReadStructure(src, opts)
	if prov == nil {
		prov = failed.Provenance
	}
	if err != nil {
		return Result{Provenance: prov}, err
	}
	l.loaded(req, src, c)
	return Result{Cell: c, Provenance: prov}, nil
}

func (l *Loader) loaded(req Request, src interfaces.Source, c *cell.Cell) {
	mode := string(req.Mode)
	if req.YAML {
		mode = "yaml"
	}
	l.sink.Emit(event.Event{
		Kind:    event.KindStructureLoaded,
		Mode:    mode,
		File:    src.Describe(),
		Message: fmt.Sprintf("%s, %d atoms", c.Formula(), c.NumAtoms()),
	})
}
