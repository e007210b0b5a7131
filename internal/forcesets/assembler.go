// Package forcesets turns per-displacement force files into a FORCE_SETS
// dataset. It loads the displacement plan, checks that the number of
// force files matches it, hands the files to the backend of the selected
// mode and writes the result once the backend reports success.
package forcesets

import (
	"fmt"

	"github.com/kingrea/phonon-interface/internal/backend/builtin"
	"github.com/kingrea/phonon-interface/internal/cell"
	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/interfaces"
	"github.com/kingrea/phonon-interface/internal/logbook"
	"github.com/kingrea/phonon-interface/internal/logging"
	"github.com/kingrea/phonon-interface/internal/symmetry"
)

// Status codes returned in Report.Status and used as process exit codes.
const (
	// StatusOK means the assembly was attempted. Check Report.Created to
	// learn whether the dataset was written.
	StatusOK = 0
	// StatusMismatch means the force files do not match the plan.
	StatusMismatch = 1
	// StatusError covers unsupported modes, unreadable metadata and write
	// failures.
	StatusError = 2
)

// Options configures one assembly.
type Options struct {
	// ZeroPoint marks the first file as the perfect-supercell reference.
	ZeroPoint bool
	// Wien2kP1 expects forces for every atom instead of distributing the
	// forces of inequivalent atoms.
	Wien2kP1 bool
	Symprec  float64
	// DisplacementFile defaults to disp.yaml.
	DisplacementFile string
	// OutputFile defaults to FORCE_SETS.
	OutputFile string
}

// Report is the outcome of Assemble.
type Report struct {
	Status  int
	Created bool
	Output  string
	// Expected is the number of displaced force files after discounting
	// the zero-point file.
	Expected int
	// Displacements is the number of entries in the plan.
	Displacements int
}

// CountMismatchError reports force files that do not match the plan.
type CountMismatchError struct {
	Expected  int
	Files     int
	ZeroPoint bool
}

func (e *CountMismatchError) Error() string {
	if e.ZeroPoint {
		return fmt.Sprintf("forcesets: number of files to be read (%d, one zero-point) doesn't match the number of displacements (%d)", e.Files, e.Expected)
	}
	return fmt.Sprintf("forcesets: number of files to be read (%d) doesn't match the number of displacements (%d)", e.Files, e.Expected)
}

// PlanLoader reads the displacement plan. withCell requests the reference
// supercell as well.
type PlanLoader func(path string, withCell bool) (*dataset.Plan, *cell.Cell, error)

// Writer persists a filled plan.
type Writer func(plan *dataset.Plan, path string) error

// Assembler builds FORCE_SETS through a backend registry.
type Assembler struct {
	registry *interfaces.Registry
	sink     event.Sink
	logger   *logging.Logger
	book     *logbook.Logbook
	loadPlan PlanLoader
	write    Writer
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRegistry replaces the built-in backends.
func WithRegistry(reg *interfaces.Registry) Option {
	return func(a *Assembler) {
		if reg != nil {
			a.registry = reg
		}
	}
}

// WithSink receives every event of an assembly.
func WithSink(s event.Sink) Option {
	return func(a *Assembler) { a.sink = s }
}

// WithLogger sets the status message logger. Without one the assembler is
// silent.
func WithLogger(l *logging.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithLogbook journals every assembly.
func WithLogbook(b *logbook.Logbook) Option {
	return func(a *Assembler) { a.book = b }
}

// WithPlanLoader replaces the disp.yaml reader.
func WithPlanLoader(fn PlanLoader) Option {
	return func(a *Assembler) {
		if fn != nil {
			a.loadPlan = fn
		}
	}
}

// WithWriter replaces the FORCE_SETS writer.
func WithWriter(fn Writer) Option {
	return func(a *Assembler) {
		if fn != nil {
			a.write = fn
		}
	}
}

// New builds an assembler over the built-in backends unless overridden.
func New(opts ...Option) *Assembler {
	a := &Assembler{loadPlan: LoadPlan, write: dataset.WriteForceSets}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = builtin.Default()
	}
	return a
}

// LoadPlan is the default PlanLoader.
func LoadPlan(path string, withCell bool) (*dataset.Plan, *cell.Cell, error) {
	if !withCell {
		plan, err := dataset.LoadPlan(path)
		return plan, nil, err
	}
	return dataset.LoadPlanWithCell(path)
}

// Assemble reads filenames with the backend for mode and writes the
// dataset. Failures never panic: they come back as a Report status with
// the cause as error. A backend that cannot read a file yields StatusOK
// with Created false.
func (a *Assembler) Assemble(mode interfaces.Mode, filenames []string, opts Options) (Report, error) {
	opts = withDefaults(opts)
	report := Report{Output: opts.OutputFile}
	sink := a.events()
	a.book.Info("force sets: %s, %d files, displacements %s", mode, len(filenames), opts.DisplacementFile)

	b, err := a.registry.Lookup(mode)
	if err != nil {
		report.Status = StatusError
		a.notCreated(sink, mode, opts.OutputFile, err)
		return report, err
	}

	plan, supercell, err := a.loadPlan(opts.DisplacementFile, mode.NeedsSupercell())
	if err != nil {
		report.Status = StatusError
		a.notCreated(sink, mode, opts.OutputFile, err)
		return report, err
	}
	report.Displacements = len(plan.FirstAtoms)

	report.Expected = len(filenames)
	if opts.ZeroPoint {
		report.Expected--
	}
	if report.Expected != report.Displacements {
		mismatch := &CountMismatchError{Expected: report.Displacements, Files: len(filenames), ZeroPoint: opts.ZeroPoint}
		sink.Emit(event.Event{Kind: event.KindMismatch, Mode: string(mode), File: opts.DisplacementFile, Message: mismatch.Error()})
		a.logger.Printf("Number of files to be read (%d) don't match to", len(filenames))
		a.logger.Printf("the number of displacements (%d).", report.Displacements)
		report.Status = StatusMismatch
		return report, mismatch
	}

	if b.Experimental() {
		sink.Emit(event.Event{
			Kind:    event.KindExperimental,
			Mode:    string(mode),
			Message: fmt.Sprintf("%s interface is experimental. Please check the results carefully.", mode.DisplayName()),
		})
	}

	args, err := forceArgs(mode, supercell, opts)
	if err != nil {
		report.Status = StatusError
		a.notCreated(sink, mode, opts.OutputFile, err)
		return report, err
	}
	args.Sink = sink

	ok, err := b.ParseForces(plan, filenames, args)
	if ok && !plan.HasForces() {
		ok, err = false, fmt.Errorf("forcesets: %s backend left displacements without forces", mode)
	}
	if !ok {
		a.notCreated(sink, mode, opts.OutputFile, err)
		return report, err
	}

	if err := a.write(plan, opts.OutputFile); err != nil {
		report.Status = StatusError
		a.notCreated(sink, mode, opts.OutputFile, err)
		return report, err
	}
	report.Created = true
	sink.Emit(event.Event{
		Kind:    event.KindWritten,
		Mode:    string(mode),
		File:    opts.OutputFile,
		Message: fmt.Sprintf("%d displacements, %d atoms", len(plan.FirstAtoms), plan.NAtom),
	})
	a.logger.Printf("%s has been created.", opts.OutputFile)
	return report, nil
}

// forceArgs builds the mode-dependent parser inputs.
func forceArgs(mode interfaces.Mode, supercell *cell.Cell, opts Options) (interfaces.ForceArgs, error) {
	var args interfaces.ForceArgs
	switch mode {
	case interfaces.VASP:
		args.ZeroPoint = opts.ZeroPoint
	case interfaces.ABINIT, interfaces.PWSCF, interfaces.ELK:
		if supercell == nil {
			return args, fmt.Errorf("forcesets: %s needs the supercell from %s", mode, opts.DisplacementFile)
		}
		args.NumAtoms = supercell.NumAtoms()
	case interfaces.WIEN2K:
		if supercell == nil {
			return args, fmt.Errorf("forcesets: %s needs the supercell from %s", mode, opts.DisplacementFile)
		}
		args.Supercell = supercell
		args.Distribute = !opts.Wien2kP1
		args.Symprec = opts.Symprec
	default:
		return args, &interfaces.UnsupportedModeError{Mode: mode}
	}
	return args, nil
}

func withDefaults(opts Options) Options {
	if opts.DisplacementFile == "" {
		opts.DisplacementFile = dataset.DefaultDisplacementFile
	}
	if opts.OutputFile == "" {
		opts.OutputFile = dataset.DefaultForceSetsFile
	}
	if opts.Symprec <= 0 {
		opts.Symprec = symmetry.DefaultSymprec
	}
	return opts
}

// events fans assembly events out to the caller's sink, the journal and,
// at verbose level, the logger.
func (a *Assembler) events() event.Sink {
	var book event.Sink
	if a.book != nil {
		book = a.book
	}
	var verbose event.Sink
	if a.logger.Enabled(logging.Verbose) {
		verbose = event.SinkFunc(func(e event.Event) {
			if e.Kind == event.KindDrift || e.Kind == event.KindFileParsed {
				a.logger.Verbosef("%s", e.String())
			}
		})
	}
	return event.Multi(a.sink, book, verbose)
}

func (a *Assembler) notCreated(sink event.Sink, mode interfaces.Mode, output string, cause error) {
	e := event.Event{Kind: event.KindNotCreated, Mode: string(mode), File: output}
	if cause != nil {
		e.Message = cause.Error()
	}
	sink.Emit(e)
	a.logger.Printf("%s could not be created.", output)
}
