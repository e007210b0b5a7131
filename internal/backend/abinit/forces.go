package abinit

import (
	"fmt"
	"strings"

	"github.com/kingrea/phonon-interface/internal/backend"
)

const forcesHeader = "cartesian forces (ev/angstrom)"

// ReadForces returns the last "cartesian forces (eV/Angstrom)" block of an
// ABINIT output file.
func ReadForces(path string, numAtoms int) ([][3]float64, error) {
	lines, err := backend.ReadLines(path)
	if err != nil {
		return nil, err
	}
	return ParseForces(lines, numAtoms)
}

// ParseForces scans output lines for the last complete forces block.
func ParseForces(lines []string, numAtoms int) ([][3]float64, error) {
	if numAtoms <= 0 {
		return nil, fmt.Errorf("number of atoms must be positive")
	}
	var last [][3]float64
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), forcesHeader) {
			continue
		}
		block := make([][3]float64, 0, numAtoms)
		for j := i + 1; j < len(lines) && len(block) < numAtoms; j++ {
			fields := strings.Fields(lines[j])
			if len(fields) < 4 {
				break
			}
			v, err := backend.Vec3(fields[1:4])
			if err != nil {
				break
			}
			block = append(block, v)
		}
		if len(block) > 0 {
			last = block
		}
	}
	if last == nil {
		return nil, fmt.Errorf("no cartesian forces block found")
	}
	return last, nil
}
