package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultForceSetsFile is the conventional output file name.
const DefaultForceSetsFile = "FORCE_SETS"

// EncodeForceSets writes plan in the FORCE_SETS text layout: atom count,
// displacement count, then per displacement the 1-based atom number, the
// displacement vector and one force line per atom.
func EncodeForceSets(w io.Writer, plan *Plan) error {
	if plan == nil {
		return fmt.Errorf("dataset: plan is nil")
	}
	if !plan.HasForces() {
		return fmt.Errorf("dataset: plan has displacements without a full force set")
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%-5d\n", plan.NAtom)
	fmt.Fprintf(bw, "%-5d\n", len(plan.FirstAtoms))
	for _, d := range plan.FirstAtoms {
		fmt.Fprintf(bw, "\n%-5d\n", d.Number+1)
		fmt.Fprintf(bw, "%20.16f %20.16f %20.16f\n", d.Vector[0], d.Vector[1], d.Vector[2])
		for _, f := range d.Forces {
			fmt.Fprintf(bw, "%15.10f %15.10f %15.10f\n", f[0], f[1], f[2])
		}
	}
	return bw.Flush()
}

// WriteForceSets serializes plan to path.
func WriteForceSets(plan *Plan, path string) error {
	var buf bytes.Buffer
	if err := EncodeForceSets(&buf, plan); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("dataset: ensure dir for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("dataset: write %s: %w", path, err)
	}
	return nil
}

// ReadForceSets parses a FORCE_SETS file.
func ReadForceSets(path string) (*Plan, error) {
	//nolint:gosec // G304: path comes from the user's command line.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	plan, err := DecodeForceSets(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return plan, nil
}

// DecodeForceSets parses the FORCE_SETS text layout.
func DecodeForceSets(r io.Reader) (*Plan, error) {
	var lines [][]string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		lines = append(lines, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read force sets: %w", err)
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("force sets header is incomplete")
	}
	natom, err := strconv.Atoi(lines[0][0])
	if err != nil || natom <= 0 {
		return nil, fmt.Errorf("invalid atom count %q", lines[0][0])
	}
	ndisp, err := strconv.Atoi(lines[1][0])
	if err != nil || ndisp < 0 {
		return nil, fmt.Errorf("invalid displacement count %q", lines[1][0])
	}
	plan := &Plan{NAtom: natom}
	pos := 2
	for i := 0; i < ndisp; i++ {
		if pos+2+natom > len(lines) {
			return nil, fmt.Errorf("displacement %d is truncated", i+1)
		}
		number, err := strconv.Atoi(lines[pos][0])
		if err != nil {
			return nil, fmt.Errorf("displacement %d: invalid atom number %q", i+1, lines[pos][0])
		}
		vec, err := parseVec3(lines[pos+1])
		if err != nil {
			return nil, fmt.Errorf("displacement %d: %w", i+1, err)
		}
		forces := make([][3]float64, natom)
		for a := 0; a < natom; a++ {
			forces[a], err = parseVec3(lines[pos+2+a])
			if err != nil {
				return nil, fmt.Errorf("displacement %d atom %d: %w", i+1, a+1, err)
			}
		}
		plan.FirstAtoms = append(plan.FirstAtoms, Displacement{
			Number: number - 1,
			Vector: vec,
			Forces: forces,
		})
		pos += 2 + natom
	}
	if errs := plan.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	return plan, nil
}

func parseVec3(fields []string) ([3]float64, error) {
	var v [3]float64
	if len(fields) < 3 {
		return v, fmt.Errorf("expected 3 values, got %d", len(fields))
	}
	for k := 0; k < 3; k++ {
		x, err := strconv.ParseFloat(fields[k], 64)
		if err != nil {
			return v, fmt.Errorf("invalid number %q", fields[k])
		}
		v[k] = x
	}
	return v, nil
}
