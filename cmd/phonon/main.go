// cmd/phonon/main.go
//
// Entry point for the phonon CLI. It reads unit cells written for one of
// the supported simulation codes and collects their force outputs into a
// FORCE_SETS dataset.
//
// Commands:
//   phonon interfaces            list supported codes and default file names
//   phonon init [-interface m]   create .phonon/config.yaml in the current directory
//   phonon cell [flags] [file]   read and print a unit cell
//   phonon force-sets [flags] files...
//   phonon check [FORCE_SETS]

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kingrea/phonon-interface/internal/backend/builtin"
	"github.com/kingrea/phonon-interface/internal/config"
	"github.com/kingrea/phonon-interface/internal/interfaces"
	"github.com/kingrea/phonon-interface/internal/logbook"
	"github.com/kingrea/phonon-interface/internal/logging"
)

const usageText = `Usage: phonon <command> [flags] [args]

Commands:
  interfaces   list supported interfaces and their default structure files
  init         create .phonon/config.yaml in the current directory
  cell         read a unit cell and print it
  force-sets   collect force files into FORCE_SETS
  check        summarize a FORCE_SETS file

Run "phonon <command> -h" for the flags of a command.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "Error getting working directory: %v\n", err)
		return 2
	}
	switch args[0] {
	case "interfaces":
		return runInterfaces(stdout)
	case "init":
		return runInit(cwd, args[1:], stdout, stderr)
	case "cell":
		return runCell(cwd, args[1:], stdout, stderr)
	case "force-sets":
		return runForceSets(cwd, args[1:], stdout, stderr)
	case "check":
		return runCheck(cwd, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
		return 0
	}
	fmt.Fprintf(stderr, "phonon: unknown command %q\n\n%s", args[0], usageText)
	return 2
}

func runInterfaces(stdout io.Writer) int {
	reg := builtin.Default()
	fmt.Fprintf(stdout, "%-8s %-8s %-12s %s\n", "MODE", "CODE", "DEFAULT", "STATUS")
	for _, mode := range reg.Modes() {
		b, err := reg.Lookup(mode)
		if err != nil {
			continue
		}
		status := "stable"
		if b.Experimental() {
			status = "experimental"
		}
		fmt.Fprintf(stdout, "%-8s %-8s %-12s %s\n", mode, mode.DisplayName(), b.DefaultCellFilename(), status)
	}
	fmt.Fprintf(stdout, "\n-yaml reads %s regardless of the interface.\n", interfaces.YAMLCellFilename)
	return 0
}

func runInit(cwd string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	iface := fs.String("interface", "", "interface stored in config.yaml ("+strings.Join(interfaces.ModeNames(), ", ")+")")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := config.InitProjectDir(cwd); err != nil {
		fmt.Fprintf(stderr, "Error initializing .phonon directory: %v\n", err)
		return 2
	}
	if *iface != "" {
		cfg, err := config.NewConfig(cwd)
		if err != nil {
			fmt.Fprintf(stderr, "phonon: %v\n", err)
			return 2
		}
		if err := cfg.SetInterface(*iface); err != nil {
			fmt.Fprintf(stderr, "phonon: %v\n", err)
			return 2
		}
	}
	fmt.Fprintf(stdout, "Initialized %s in %s\n", config.PhononDir, cwd)
	return 0
}

// session is the configuration, logger and journal shared by commands.
type session struct {
	cfg    *config.Config
	logger *logging.Logger
	book   *logbook.Logbook
}

// openSession loads the project config and, when .phonon exists, attaches
// the log file and the journal. quiet and verbose override log_level.
func openSession(cwd string, out io.Writer, quiet, verbose bool) (*session, error) {
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		return nil, err
	}
	level := cfg.Project.LogLevel
	switch {
	case quiet:
		level = logging.Quiet
	case verbose:
		level = logging.Verbose
	}
	s := &session{cfg: cfg, logger: logging.New(out, level)}
	if _, err := os.Stat(cfg.PhononProjectDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("stat %s: %w", cfg.PhononProjectDir, err)
	}
	if err := s.logger.Attach(cwd); err != nil {
		return nil, err
	}
	book, err := logbook.New(cfg.JournalPath())
	if err != nil {
		_ = s.logger.Close()
		return nil, err
	}
	s.book = book
	return s, nil
}

func (s *session) Close() {
	_ = s.logger.Close()
}

// mode picks the -interface flag when set, otherwise the configured one.
func (s *session) mode(flagValue string) (interfaces.Mode, error) {
	if strings.TrimSpace(flagValue) == "" {
		return s.cfg.Mode()
	}
	return interfaces.ParseMode(flagValue)
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
