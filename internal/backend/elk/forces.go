package elk

import (
	"fmt"
	"strings"

	"github.com/kingrea/phonon-interface/internal/backend"
)

// ReadForces returns the last "Total atomic forces" block of INFO.OUT.
func ReadForces(path string, numAtoms int) ([][3]float64, error) {
	lines, err := backend.ReadLines(path)
	if err != nil {
		return nil, err
	}
	return ParseForces(lines, numAtoms)
}

// ParseForces reads the last three numbers of each "atom" line that
// follows the last header.
func ParseForces(lines []string, numAtoms int) ([][3]float64, error) {
	if numAtoms <= 0 {
		return nil, fmt.Errorf("number of atoms must be positive")
	}
	start := -1
	for i, line := range lines {
		if strings.Contains(line, "Total atomic forces") {
			start = i
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("no total atomic forces block found")
	}
	forces := make([][3]float64, 0, numAtoms)
	for _, line := range lines[start+1:] {
		if len(forces) == numAtoms {
			break
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "species") {
			continue
		}
		if !strings.HasPrefix(trimmed, "atom") {
			break
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 3 {
			return nil, fmt.Errorf("short force line %q", trimmed)
		}
		v, err := backend.Vec3(fields[len(fields)-3:])
		if err != nil {
			return nil, fmt.Errorf("force line %q: %w", trimmed, err)
		}
		forces = append(forces, v)
	}
	return forces, nil
}
