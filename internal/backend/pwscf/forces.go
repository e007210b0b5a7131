package pwscf

import (
	"fmt"
	"strings"

	"github.com/kingrea/phonon-interface/internal/backend"
)

// ReadForces returns the total forces of the last "Forces acting on atoms"
// block of a pw.x output file.
func ReadForces(path string, numAtoms int) ([][3]float64, error) {
	lines, err := backend.ReadLines(path)
	if err != nil {
		return nil, err
	}
	return ParseForces(lines, numAtoms)
}

// ParseForces takes the first numAtoms "force =" lines after the last
// header. Later lines in the block hold per-term contributions.
func ParseForces(lines []string, numAtoms int) ([][3]float64, error) {
	if numAtoms <= 0 {
		return nil, fmt.Errorf("number of atoms must be positive")
	}
	start := -1
	for i, line := range lines {
		if strings.Contains(line, "Forces acting on atoms") {
			start = i
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("no forces block found")
	}
	forces := make([][3]float64, 0, numAtoms)
	for _, line := range lines[start+1:] {
		if len(forces) == numAtoms {
			break
		}
		if strings.Contains(line, "Total force") {
			break
		}
		_, rhs, ok := strings.Cut(line, "force =")
		if !ok {
			if len(forces) > 0 {
				break
			}
			continue
		}
		v, err := backend.Vec3(strings.Fields(rhs))
		if err != nil {
			return nil, fmt.Errorf("forces line %q: %w", strings.TrimSpace(line), err)
		}
		forces = append(forces, v)
	}
	return forces, nil
}
