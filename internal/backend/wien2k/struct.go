package wien2k

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kingrea/phonon-interface/internal/backend"
	"github.com/kingrea/phonon-interface/internal/cell"
)

var (
	coordRe = regexp.MustCompile(`([XYZ])=\s*(-?[0-9]*\.?[0-9]+(?:[eEdD][-+]?[0-9]+)?)`)
	multRe  = regexp.MustCompile(`MULT=\s*([0-9]+)`)
	nptRe   = regexp.MustCompile(`NPT=\s*([0-9]+)`)
	r0Re    = regexp.MustCompile(`R0=\s*([-+0-9.eEdD]+)`)
	rmtRe   = regexp.MustCompile(`RMT=\s*([-+0-9.eEdD]+)`)
	zRe     = regexp.MustCompile(`Z:\s*([-+0-9.eEdD]+)`)
	natRe   = regexp.MustCompile(`ATOMS:\s*([0-9]+)`)
)

// centring lists the extra lattice translations of each centred lattice type.
var centring = map[string][][3]float64{
	"P":   nil,
	"H":   nil,
	"R":   nil,
	"F":   {{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
	"B":   {{0.5, 0.5, 0.5}},
	"CXY": {{0.5, 0.5, 0}},
	"CXZ": {{0.5, 0, 0.5}},
	"CYZ": {{0, 0.5, 0.5}},
}

// Struct is a decoded case.struct file.
type Struct struct {
	LatticeType string
	Cell        *cell.Cell
	// Per inequivalent atom.
	NPTs []int
	R0s  []float64
	RMTs []float64
}

// ParseStruct reads a WIEN2k case.struct file. Centred lattices are expanded
// to the conventional cell; R lattices become the rhombohedral primitive cell.
func ParseStruct(r io.Reader) (*Struct, error) {
	lines, err := backend.ScanLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) < 5 {
		return nil, fmt.Errorf("struct file is too short (%d lines)", len(lines))
	}
	latType := strings.TrimSpace(padRight(lines[1], 4)[:4])
	translations, ok := centring[latType]
	if !ok {
		return nil, fmt.Errorf("unknown lattice type %q", latType)
	}
	m := natRe.FindStringSubmatch(lines[1])
	if m == nil {
		return nil, fmt.Errorf("number of inequivalent atoms not found in %q", lines[1])
	}
	nat, _ := strconv.Atoi(m[1])
	toBohr := 1.0
	if strings.Contains(strings.ToLower(lines[2]), "unit=ang") {
		toBohr = 1 / cell.BohrAngstrom
	}
	params, err := cellParameters(lines[3])
	if err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		params[i] *= toBohr
	}
	lattice := cell.LatticeFromParameters(params[0], params[1], params[2], params[3], params[4], params[5])
	if latType == "R" {
		lattice = rhombohedral(params[0], params[2])
	}

	s := &Struct{LatticeType: latType}
	var positions [][3]float64
	var symbols []string
	pos := 4
	for a := 0; a < nat; a++ {
		if pos >= len(lines) {
			return nil, fmt.Errorf("atom %d: unexpected end of file", a+1)
		}
		first, err := coordinates(lines[pos])
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", a+1, err)
		}
		pos++
		if pos >= len(lines) {
			return nil, fmt.Errorf("atom %d: MULT line missing", a+1)
		}
		mm := multRe.FindStringSubmatch(lines[pos])
		if mm == nil {
			return nil, fmt.Errorf("atom %d: MULT not found in %q", a+1, lines[pos])
		}
		mult, _ := strconv.Atoi(mm[1])
		if mult < 1 {
			return nil, fmt.Errorf("atom %d: MULT must be positive", a+1)
		}
		pos++
		group := [][3]float64{first}
		for k := 1; k < mult; k++ {
			if pos >= len(lines) {
				return nil, fmt.Errorf("atom %d: missing equivalent position %d", a+1, k+1)
			}
			x, err := coordinates(lines[pos])
			if err != nil {
				return nil, fmt.Errorf("atom %d: %w", a+1, err)
			}
			group = append(group, x)
			pos++
		}
		if pos >= len(lines) {
			return nil, fmt.Errorf("atom %d: name line missing", a+1)
		}
		symbol, err := s.readNameLine(lines[pos])
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", a+1, err)
		}
		// Name line and three LOCAL ROT MATRIX lines.
		pos += 4
		for _, x := range group {
			positions = append(positions, x)
			symbols = append(symbols, symbol)
		}
	}

	n := len(positions)
	for _, t := range translations {
		for i := 0; i < n; i++ {
			var x [3]float64
			for k := 0; k < 3; k++ {
				x[k] = positions[i][k] + t[k]
				x[k] -= math.Floor(x[k])
			}
			positions = append(positions, x)
			symbols = append(symbols, symbols[i])
		}
	}
	c, err := cell.New(lattice, positions, symbols, nil)
	if err != nil {
		return nil, err
	}
	s.Cell = c
	return s, nil
}

func (s *Struct) readNameLine(line string) (string, error) {
	name := strings.TrimSpace(padRight(line, 10)[:10])
	npt := 0
	if m := nptRe.FindStringSubmatch(line); m != nil {
		npt, _ = strconv.Atoi(m[1])
	}
	r0, err := floatMatch(r0Re, line)
	if err != nil {
		return "", err
	}
	rmt, err := floatMatch(rmtRe, line)
	if err != nil {
		return "", err
	}
	s.NPTs = append(s.NPTs, npt)
	s.R0s = append(s.R0s, r0)
	s.RMTs = append(s.RMTs, rmt)

	if sym := cell.CleanSymbol(name); cell.IsSymbol(sym) {
		return sym, nil
	}
	z, err := floatMatch(zRe, line)
	if err != nil {
		return "", err
	}
	sym, ok := cell.SymbolOf(int(math.Round(z)))
	if !ok {
		return "", fmt.Errorf("cannot determine element of %q", name)
	}
	return sym, nil
}

func floatMatch(re *regexp.Regexp, line string) (float64, error) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, nil
	}
	v, err := backend.ParseFloat(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", m[1])
	}
	return v, nil
}

func coordinates(line string) ([3]float64, error) {
	var x [3]float64
	found := 0
	for _, m := range coordRe.FindAllStringSubmatch(line, -1) {
		v, err := backend.ParseFloat(m[2])
		if err != nil {
			return x, fmt.Errorf("invalid coordinate %q", m[2])
		}
		x[m[1][0]-'X'] = v
		found++
	}
	if found != 3 {
		return x, fmt.Errorf("expected X= Y= Z= in %q", strings.TrimSpace(line))
	}
	return x, nil
}

// cellParameters reads a b c alpha beta gamma in 6F10.6 columns, falling
// back to whitespace separation.
func cellParameters(line string) ([6]float64, error) {
	var out [6]float64
	if fields := strings.Fields(line); len(fields) >= 6 {
		vals, err := backend.ParseFloats(fields[:6])
		if err == nil {
			copy(out[:], vals)
			return out, nil
		}
	}
	padded := padRight(line, 60)
	for i := 0; i < 6; i++ {
		v, err := backend.ParseFloat(padded[10*i : 10*i+10])
		if err != nil {
			return out, fmt.Errorf("invalid lattice parameters %q", strings.TrimSpace(line))
		}
		out[i] = v
	}
	return out, nil
}

// rhombohedral builds primitive vectors from the hexagonal a and c.
func rhombohedral(a, c float64) [3][3]float64 {
	s3 := math.Sqrt(3)
	return [3][3]float64{
		{a / 2, -a / (2 * s3), c / 3},
		{0, a / s3, c / 3},
		{-a / 2, -a / (2 * s3), c / 3},
	}
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
