// Package interfaces selects the simulation-code backend for a run. Mode is
// a closed set; every lookup on an unknown mode returns UnsupportedModeError.
package interfaces

import (
	"errors"
	"fmt"
	"strings"
)

// Mode names the external simulation code whose file formats apply.
type Mode string

const (
	VASP   Mode = "vasp"
	ABINIT Mode = "abinit"
	PWSCF  Mode = "pwscf"
	WIEN2K Mode = "wien2k"
	ELK    Mode = "elk"
)

// DefaultMode is used when neither configuration nor flags choose one.
const DefaultMode = VASP

// YAMLCellFilename is the normalized structure file used in YAML mode.
const YAMLCellFilename = "POSCAR.yaml"

// ErrUnsupportedMode matches every UnsupportedModeError via errors.Is.
var ErrUnsupportedMode = errors.New("unsupported interface mode")

// UnsupportedModeError reports a mode outside the closed set, or a mode
// with no registered backend.
type UnsupportedModeError struct {
	Mode Mode
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("interfaces: unsupported interface mode %q (supported: %s)", string(e.Mode), strings.Join(ModeNames(), ", "))
}

// Is lets errors.Is(err, ErrUnsupportedMode) succeed.
func (e *UnsupportedModeError) Is(target error) bool {
	return target == ErrUnsupportedMode
}

// Modes lists every supported mode in a stable order.
func Modes() []Mode {
	return []Mode{VASP, ABINIT, PWSCF, WIEN2K, ELK}
}

// ModeNames lists the mode identifiers as strings.
func ModeNames() []string {
	modes := Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return names
}

// ParseMode normalizes s and checks it against the closed set.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return m, &UnsupportedModeError{Mode: m}
	}
	return m, nil
}

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	switch m {
	case VASP, ABINIT, PWSCF, WIEN2K, ELK:
		return true
	}
	return false
}

// DisplayName is the code's conventional spelling.
func (m Mode) DisplayName() string {
	switch m {
	case VASP:
		return "VASP"
	case ABINIT:
		return "Abinit"
	case PWSCF:
		return "Pwscf"
	case WIEN2K:
		return "Wien2k"
	case ELK:
		return "Elk"
	}
	return string(m)
}

// NeedsSupercell reports whether the force parser for m needs the
// reference supercell from the displacement file.
func (m Mode) NeedsSupercell() bool {
	return m.Valid() && m != VASP
}

// DefaultCellFilename returns the structure file looked up when the user
// gives none. YAML mode always uses POSCAR.yaml.
func DefaultCellFilename(m Mode, yamlMode bool) (string, error) {
	if yamlMode {
		return YAMLCellFilename, nil
	}
	switch m {
	case VASP:
		return "POSCAR", nil
	case ABINIT, PWSCF:
		return "unitcell.in", nil
	case WIEN2K:
		return "case.struct", nil
	case ELK:
		return "elk.in", nil
	}
	return "", &UnsupportedModeError{Mode: m}
}
