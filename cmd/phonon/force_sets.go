package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/forcesets"
	"github.com/kingrea/phonon-interface/internal/interfaces"
	"github.com/kingrea/phonon-interface/internal/logging"
	"github.com/kingrea/phonon-interface/internal/tui"
)

func runForceSets(cwd string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("force-sets", flag.ContinueOnError)
	fs.SetOutput(stderr)
	iface := fs.String("interface", "", "simulation code ("+strings.Join(interfaces.ModeNames(), ", ")+")")
	zeroPoint := fs.Bool("fz", false, "first file holds the forces of the perfect supercell")
	p1 := fs.Bool("wien2k-p1", false, "expect forces for every atom in wien2k supercells")
	symprec := fs.Float64("symprec", 0, "symmetry tolerance for wien2k force distribution")
	disp := fs.String("disp", "", "displacement file (default from config, disp.yaml)")
	output := fs.String("o", "", "output file (default from config, FORCE_SETS)")
	useTUI := fs.Bool("tui", false, "show progress in a terminal view")
	quiet := fs.Bool("q", false, "print nothing but errors")
	verbose := fs.Bool("v", false, "print per-file detail")
	if err := fs.Parse(args); err != nil {
		return forcesets.StatusError
	}
	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(stderr, "Usage: phonon force-sets [flags] files...")
		return forcesets.StatusError
	}

	s, err := openSession(cwd, stdout, *quiet, *verbose)
	if err != nil {
		fmt.Fprintf(stderr, "phonon: %v\n", err)
		return forcesets.StatusError
	}
	defer s.Close()

	mode, err := s.mode(*iface)
	if err != nil {
		fmt.Fprintf(stderr, "phonon: %v\n", err)
		return forcesets.StatusError
	}

	opts := forcesets.Options{
		ZeroPoint:        *zeroPoint || s.cfg.Project.ZeroPoint,
		Wien2kP1:         *p1 || s.cfg.Project.Wien2kP1,
		Symprec:          s.cfg.Project.Symprec,
		DisplacementFile: s.cfg.Project.Files.Displacements,
		OutputFile:       s.cfg.Project.Files.ForceSets,
	}
	if *symprec > 0 {
		opts.Symprec = *symprec
	}
	if *disp != "" {
		opts.DisplacementFile = *disp
	}
	if *output != "" {
		opts.OutputFile = *output
	}

	var report forcesets.Report
	if *useTUI {
		report, err = assembleWithView(s, mode, files, opts, stdout)
	} else {
		a := forcesets.New(
			forcesets.WithSink(tui.ConsoleSink(stdout, s.logger.Level())),
			forcesets.WithLogger(s.logger),
			forcesets.WithLogbook(s.book),
		)
		report, err = a.Assemble(mode, files, opts)
	}
	if err != nil && report.Status != forcesets.StatusMismatch {
		fmt.Fprintf(stderr, "phonon: %v\n", err)
	}
	return report.Status
}

// assembleWithView runs the assembly under the bubbletea progress view.
// Console messages are kept out of the view and only reach the log file.
func assembleWithView(s *session, mode interfaces.Mode, files []string, opts forcesets.Options, stdout io.Writer) (forcesets.Report, error) {
	quiet := logging.New(io.Discard, logging.Quiet)
	if s.book != nil {
		if err := quiet.Attach(s.cfg.ProjectDir); err != nil {
			return forcesets.Report{Status: forcesets.StatusError}, err
		}
	}
	defer func() { _ = quiet.Close() }()

	expected := len(files)
	if opts.ZeroPoint {
		expected--
	}
	run := func(sink event.Sink) (forcesets.Report, error) {
		a := forcesets.New(
			forcesets.WithSink(sink),
			forcesets.WithLogger(quiet),
			forcesets.WithLogbook(s.book),
		)
		return a.Assemble(mode, files, opts)
	}
	model := tui.NewAssembleModel(mode.DisplayName(), expected, run, s.book)
	final, err := tea.NewProgram(model, tea.WithOutput(stdout)).Run()
	if err != nil {
		return forcesets.Report{Status: forcesets.StatusError}, fmt.Errorf("run terminal view: %w", err)
	}
	m, ok := final.(*tui.AssembleModel)
	if !ok || !m.Done() {
		return forcesets.Report{Status: forcesets.StatusError}, fmt.Errorf("assembly interrupted")
	}
	return m.Result()
}
