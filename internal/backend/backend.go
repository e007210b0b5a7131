// Package backend holds what the per-code readers share: the loop that
// attaches one force set per displacement and small text-parsing helpers.
package backend

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/event"
	"github.com/kingrea/phonon-interface/internal/interfaces"
)

// ForceReader reads the forces of every atom from one output file.
type ForceReader func(path string) ([][3]float64, error)

// FillOptions configures FillPlan.
type FillOptions struct {
	Mode     interfaces.Mode
	NumAtoms int
	// Reference forces are subtracted from every displaced set.
	Reference [][3]float64
	// Transform runs on the raw forces of displacement i before the atom
	// count is checked.
	Transform func(i int, forces [][3]float64) ([][3]float64, error)
	Sink      event.Sink
}

// FillPlan reads filenames[i] for plan.FirstAtoms[i], removes the drift
// force and stores the result in place. It stops at the first bad file.
func FillPlan(plan *dataset.Plan, filenames []string, read ForceReader, opts FillOptions) (bool, error) {
	sink := event.OrDiscard(opts.Sink)
	mode := string(opts.Mode)
	if plan == nil {
		return false, fmt.Errorf("%s: displacement plan is nil", mode)
	}
	if opts.NumAtoms <= 0 {
		opts.NumAtoms = plan.NAtom
	}
	if plan.NAtom != opts.NumAtoms {
		return false, fmt.Errorf("%s: disp.yaml natom %d does not match %d supercell atoms", mode, plan.NAtom, opts.NumAtoms)
	}
	if len(filenames) < len(plan.FirstAtoms) {
		return false, fmt.Errorf("%s: %d force files for %d displacements", mode, len(filenames), len(plan.FirstAtoms))
	}
	if opts.Reference != nil && len(opts.Reference) != opts.NumAtoms {
		return false, fmt.Errorf("%s: reference forces have %d atoms, expected %d", mode, len(opts.Reference), opts.NumAtoms)
	}
	for i := range plan.FirstAtoms {
		path := filenames[i]
		forces, err := read(path)
		if err == nil && opts.Transform != nil {
			forces, err = opts.Transform(i, forces)
		}
		if err != nil {
			sink.Emit(event.Event{Kind: event.KindParseFailed, Mode: mode, File: path, Index: i + 1, Message: err.Error()})
			return false, fmt.Errorf("%s: %s: %w", mode, path, err)
		}
		if len(forces) != opts.NumAtoms {
			msg := fmt.Sprintf("number of atoms in %s (%d) doesn't match to disp.yaml (%d)", path, len(forces), opts.NumAtoms)
			sink.Emit(event.Event{Kind: event.KindParseFailed, Mode: mode, File: path, Index: i + 1, Message: msg})
			return false, fmt.Errorf("%s: %s", mode, msg)
		}
		if opts.Reference != nil {
			for a := range forces {
				for k := 0; k < 3; k++ {
					forces[a][k] -= opts.Reference[a][k]
				}
			}
		}
		drift := dataset.SubtractDrift(forces)
		sink.Emit(event.Event{
			Kind:    event.KindDrift,
			Mode:    mode,
			File:    path,
			Index:   i + 1,
			Vector:  drift,
			Message: fmt.Sprintf("drift force %.8f %.8f %.8f subtracted", drift[0], drift[1], drift[2]),
		})
		plan.FirstAtoms[i].Forces = forces
		sink.Emit(event.Event{Kind: event.KindFileParsed, Mode: mode, File: path, Index: i + 1})
	}
	return true, nil
}

// ParseFloat accepts Fortran-style exponents such as 1.0D-03.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ",")
	s = strings.NewReplacer("D", "E", "d", "e").Replace(s)
	return strconv.ParseFloat(s, 64)
}

// ParseFloats parses every field.
func ParseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := ParseFloat(f)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// Vec3 parses the first three fields as a vector.
func Vec3(fields []string) ([3]float64, error) {
	var v [3]float64
	if len(fields) < 3 {
		return v, fmt.Errorf("expected 3 numbers, got %d", len(fields))
	}
	vals, err := ParseFloats(fields[:3])
	if err != nil {
		return v, err
	}
	copy(v[:], vals)
	return v, nil
}

// ReadLines returns every line of path with trailing whitespace removed.
func ReadLines(path string) ([]string, error) {
	//nolint:gosec // G304: path comes from the user's command line.
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ScanLines(f)
}

// ScanLines splits r into lines with trailing whitespace removed.
func ScanLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// StripComment cuts line at the first of the given comment markers.
func StripComment(line string, markers ...string) string {
	for _, m := range markers {
		if i := strings.Index(line, m); i >= 0 {
			line = line[:i]
		}
	}
	return strings.TrimSpace(line)
}
