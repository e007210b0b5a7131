// Package pwscf reads Quantum ESPRESSO pw.x input cells and forces from
// pw.x output. Lengths stay in Bohr.
package pwscf

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kingrea/phonon-interface/internal/backend"
	"github.com/kingrea/phonon-interface/internal/cell"
	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/interfaces"
)

// Backend implements interfaces.Backend for PWSCF.
type Backend struct{}

// New returns the PWSCF backend.
func New() *Backend { return &Backend{} }

// Mode implements interfaces.Backend.
func (b *Backend) Mode() interfaces.Mode { return interfaces.PWSCF }

// DefaultCellFilename implements interfaces.Backend.
func (b *Backend) DefaultCellFilename() string { return "unitcell.in" }

// Experimental implements interfaces.Backend.
func (b *Backend) Experimental() bool { return true }

// ReadStructure implements interfaces.Backend. The provenance lists the
// pseudopotential of every species.
func (b *Backend) ReadStructure(src interfaces.Source, _ interfaces.ReadOptions) (*cell.Cell, interfaces.Provenance, error) {
	//nolint:gosec // G304: path comes from the user's command line.
	f, err := os.Open(src.File)
	if err != nil {
		return nil, interfaces.PwscfProvenance{Source: src}, fmt.Errorf("pwscf: open %s: %w", src.File, err)
	}
	defer func() { _ = f.Close() }()
	in, err := ParseInput(f)
	if err != nil {
		return nil, interfaces.PwscfProvenance{Source: src}, fmt.Errorf("pwscf: %s: %w", src.File, err)
	}
	return in.Cell, interfaces.PwscfProvenance{Source: src, Pseudopotentials: in.Species}, nil
}

// ParseForces implements interfaces.Backend.
func (b *Backend) ParseForces(plan *dataset.Plan, filenames []string, args interfaces.ForceArgs) (bool, error) {
	n := args.NumAtoms
	if n <= 0 && plan != nil {
		n = plan.NAtom
	}
	read := func(path string) ([][3]float64, error) {
		return ReadForces(path, n)
	}
	return backend.FillPlan(plan, filenames, read, backend.FillOptions{
		Mode:     interfaces.PWSCF,
		NumAtoms: n,
		Sink:     args.Sink,
	})
}

// Input is the structural part of a pw.x input.
type Input struct {
	Cell    *cell.Cell
	Species []interfaces.Pseudopotential
}

// ParseInput reads &system, CELL_PARAMETERS, ATOMIC_SPECIES and
// ATOMIC_POSITIONS.
func ParseInput(r io.Reader) (*Input, error) {
	lines, err := backend.ScanLines(r)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i] = backend.StripComment(lines[i], "!", "#")
	}

	system := namelist(lines, "&system")
	nat, err := namelistInt(system, "nat")
	if err != nil {
		return nil, err
	}
	ntyp, err := namelistInt(system, "ntyp")
	if err != nil {
		return nil, err
	}
	alat := 0.0
	if v, ok := system["celldm(1)"]; ok {
		if alat, err = backend.ParseFloat(v); err != nil {
			return nil, fmt.Errorf("celldm(1): invalid value %q", v)
		}
	}

	lattice, err := cellParameters(lines, alat)
	if err != nil {
		return nil, err
	}
	species, err := atomicSpecies(lines, ntyp)
	if err != nil {
		return nil, err
	}
	masses := map[string]float64{}
	for _, s := range species {
		masses[s.Symbol] = s.Mass
	}

	unit, block, err := cardBlock(lines, "ATOMIC_POSITIONS", nat)
	if err != nil {
		return nil, err
	}
	positions := make([][3]float64, nat)
	symbols := make([]string, nat)
	atomMasses := make([]float64, nat)
	for i, line := range block {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("ATOMIC_POSITIONS line %d: %q", i+1, line)
		}
		label := fields[0]
		m, ok := masses[label]
		if !ok {
			return nil, fmt.Errorf("ATOMIC_POSITIONS line %d: species %q not in ATOMIC_SPECIES", i+1, label)
		}
		v, err := backend.Vec3(fields[1:4])
		if err != nil {
			return nil, fmt.Errorf("ATOMIC_POSITIONS line %d: %w", i+1, err)
		}
		positions[i] = v
		symbols[i] = cell.CleanSymbol(label)
		atomMasses[i] = m
	}

	var c *cell.Cell
	switch unit {
	case "crystal", "":
		c, err = cell.New(lattice, positions, symbols, atomMasses)
	case "alat", "bohr", "angstrom":
		factor := map[string]float64{"alat": alat, "bohr": 1, "angstrom": 1 / cell.BohrAngstrom}[unit]
		if factor == 0 {
			return nil, fmt.Errorf("ATOMIC_POSITIONS alat needs celldm(1)")
		}
		for i := range positions {
			for k := 0; k < 3; k++ {
				positions[i][k] *= factor
			}
		}
		c, err = cell.FromCartesian(lattice, positions, symbols, atomMasses)
	default:
		return nil, fmt.Errorf("ATOMIC_POSITIONS %s is not supported", unit)
	}
	if err != nil {
		return nil, err
	}
	for i, s := range species {
		species[i].Symbol = cell.CleanSymbol(s.Symbol)
	}
	return &Input{Cell: c, Species: species}, nil
}

// namelist collects key = value pairs of one &name ... / group. Keys are
// lower-cased and values unquoted.
func namelist(lines []string, name string) map[string]string {
	out := map[string]string{}
	inside := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if !inside {
			if strings.HasPrefix(lower, name) {
				inside = true
				trimmed = strings.TrimSpace(trimmed[len(name):])
			} else {
				continue
			}
		}
		if trimmed == "/" || strings.HasPrefix(trimmed, "/") {
			break
		}
		for _, pair := range strings.Split(trimmed, ",") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			key = strings.ToLower(strings.Join(strings.Fields(key), ""))
			value = strings.Trim(strings.TrimSpace(value), `'"`)
			out[key] = value
		}
	}
	return out
}

func namelistInt(values map[string]string, key string) (int, error) {
	v, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("&system: %s is not given", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("&system: invalid %s %q", key, v)
	}
	return n, nil
}

// cardBlock returns the option and the n lines following a card header.
func cardBlock(lines []string, card string, n int) (string, []string, error) {
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || !strings.EqualFold(fields[0], card) {
			continue
		}
		option := ""
		if len(fields) > 1 {
			option = strings.ToLower(strings.Trim(fields[1], "(){}"))
		} else if j := strings.IndexAny(line, "({"); j >= 0 {
			option = strings.ToLower(strings.Trim(line[j:], "(){} "))
		}
		var block []string
		for j := i + 1; j < len(lines) && len(block) < n; j++ {
			if strings.TrimSpace(lines[j]) == "" {
				continue
			}
			block = append(block, lines[j])
		}
		if len(block) < n {
			return "", nil, fmt.Errorf("%s: expected %d lines, got %d", card, n, len(block))
		}
		return option, block, nil
	}
	return "", nil, fmt.Errorf("%s card is not found", card)
}

func cellParameters(lines []string, alat float64) ([3][3]float64, error) {
	var lattice [3][3]float64
	unit, block, err := cardBlock(lines, "CELL_PARAMETERS", 3)
	if err != nil {
		return lattice, err
	}
	factor := 1.0
	switch unit {
	case "alat":
		factor = alat
	case "bohr":
	case "angstrom":
		factor = 1 / cell.BohrAngstrom
	case "":
		if alat > 0 {
			factor = alat
		}
	default:
		return lattice, fmt.Errorf("CELL_PARAMETERS %s is not supported", unit)
	}
	if factor == 0 {
		return lattice, fmt.Errorf("CELL_PARAMETERS alat needs celldm(1)")
	}
	for i, line := range block {
		v, err := backend.Vec3(strings.Fields(line))
		if err != nil {
			return lattice, fmt.Errorf("CELL_PARAMETERS line %d: %w", i+1, err)
		}
		for k := 0; k < 3; k++ {
			lattice[i][k] = v[k] * factor
		}
	}
	return lattice, nil
}

func atomicSpecies(lines []string, ntyp int) ([]interfaces.Pseudopotential, error) {
	_, block, err := cardBlock(lines, "ATOMIC_SPECIES", ntyp)
	if err != nil {
		return nil, err
	}
	species := make([]interfaces.Pseudopotential, ntyp)
	for i, line := range block {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("ATOMIC_SPECIES line %d: %q", i+1, line)
		}
		mass, err := backend.ParseFloat(fields[1])
		if err != nil {
			return nil, fmt.Errorf("ATOMIC_SPECIES line %d: invalid mass %q", i+1, fields[1])
		}
		species[i] = interfaces.Pseudopotential{Symbol: fields[0], Mass: mass, File: fields[2]}
	}
	return species, nil
}
