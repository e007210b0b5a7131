package vasp

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kingrea/phonon-interface/internal/backend"
	"github.com/kingrea/phonon-interface/internal/cell"
)

// ReadPOSCAR reads a POSCAR/CONTCAR file. symbols, when non-empty,
// overrides whatever species the file names.
func ReadPOSCAR(path string, symbols []string) (*cell.Cell, error) {
	//nolint:gosec // G304: path comes from the user's command line.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vasp: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	c, err := ParsePOSCAR(f, symbols)
	if err != nil {
		return nil, fmt.Errorf("vasp: %s: %w", path, err)
	}
	return c, nil
}

// ParsePOSCAR decodes the POSCAR layout: comment, scale, three lattice
// vectors, an optional VASP 5 species line, counts, optional selective
// dynamics, coordinate mode and positions.
//
// Species come from, in order: symbols (one per species or one per atom),
// the species line, then the comment line when it holds exactly one valid
// symbol per species.
func ParsePOSCAR(r io.Reader, symbols []string) (*cell.Cell, error) {
	lines, err := backend.ScanLines(r)
	if err != nil {
		return nil, fmt.Errorf("read poscar: %w", err)
	}
	if len(lines) < 8 {
		return nil, fmt.Errorf("poscar is too short (%d lines)", len(lines))
	}
	scaleFields := strings.Fields(lines[1])
	if len(scaleFields) == 0 {
		return nil, fmt.Errorf("missing scale factor")
	}
	scale, err := backend.ParseFloat(scaleFields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid scale factor %q", scaleFields[0])
	}
	var lattice [3][3]float64
	for i := 0; i < 3; i++ {
		v, err := backend.Vec3(strings.Fields(lines[2+i]))
		if err != nil {
			return nil, fmt.Errorf("lattice vector %d: %w", i+1, err)
		}
		lattice[i] = v
	}
	if scale < 0 {
		vol := math.Abs(cell.Det(lattice))
		if vol == 0 {
			return nil, fmt.Errorf("lattice vectors are linearly dependent")
		}
		scale = math.Cbrt(-scale / vol)
	}
	lattice = cell.Scale(lattice, scale)

	pos := 5
	var fileSpecies []string
	if !isCountLine(lines[pos]) {
		fileSpecies = strings.Fields(lines[pos])
		pos++
	}
	counts, err := parseCounts(lines[pos])
	if err != nil {
		return nil, err
	}
	pos++
	natom := 0
	for _, n := range counts {
		natom += n
	}

	if pos < len(lines) && startsWithFold(lines[pos], "s") {
		pos++
	}
	if pos >= len(lines) {
		return nil, fmt.Errorf("missing coordinate mode line")
	}
	cartesian := startsWithFold(lines[pos], "c") || startsWithFold(lines[pos], "k")
	pos++
	if pos+natom > len(lines) {
		return nil, fmt.Errorf("expected %d positions, file ends after %d", natom, len(lines)-pos)
	}

	positions := make([][3]float64, natom)
	for i := 0; i < natom; i++ {
		v, err := backend.Vec3(strings.Fields(lines[pos+i]))
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i+1, err)
		}
		positions[i] = v
	}

	atomSymbols, err := resolveSymbols(symbols, fileSpecies, lines[0], counts, natom)
	if err != nil {
		return nil, err
	}
	if cartesian {
		for i := range positions {
			for k := 0; k < 3; k++ {
				positions[i][k] *= scale
			}
		}
		return cell.FromCartesian(lattice, positions, atomSymbols, nil)
	}
	return cell.New(lattice, positions, atomSymbols, nil)
}

func resolveSymbols(override, fileSpecies []string, comment string, counts []int, natom int) ([]string, error) {
	if len(override) > 0 {
		cleaned := make([]string, len(override))
		for i, s := range override {
			cleaned[i] = strings.TrimSpace(s)
		}
		switch len(cleaned) {
		case natom:
			return cleaned, nil
		case len(counts):
			return cell.ExpandSymbols(cleaned, counts)
		}
		return nil, fmt.Errorf("%d chemical symbols given for %d species and %d atoms", len(cleaned), len(counts), natom)
	}
	if len(fileSpecies) > 0 {
		species := make([]string, len(fileSpecies))
		for i, s := range fileSpecies {
			// POTCAR-style labels such as "Si_pv" or "Fe/3d".
			species[i] = cell.CleanSymbol(strings.Split(s, "/")[0])
		}
		return cell.ExpandSymbols(species, counts)
	}
	if species := strings.Fields(comment); len(species) == len(counts) && allSymbols(species) {
		return cell.ExpandSymbols(species, counts)
	}
	return nil, fmt.Errorf("chemical symbols are not found; give them explicitly")
}

func isCountLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	_, err := strconv.Atoi(fields[0])
	return err == nil
}

func parseCounts(line string) ([]int, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("missing atom counts line")
	}
	counts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		if n < 0 {
			return nil, fmt.Errorf("negative atom count %d", n)
		}
		counts = append(counts, n)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("invalid atom counts line %q", line)
	}
	return counts, nil
}

func allSymbols(values []string) bool {
	for _, v := range values {
		if !cell.IsSymbol(v) {
			return false
		}
	}
	return true
}

func startsWithFold(line, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), prefix)
}
