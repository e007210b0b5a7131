package cell

import (
	"errors"
	"math"
)

// ErrSingular is returned when a 3x3 matrix cannot be inverted.
var ErrSingular = errors.New("singular matrix")

// Det returns the determinant of m.
func Det(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inverse returns the inverse of m.
func Inverse(m [3][3]float64) ([3][3]float64, error) {
	d := Det(m)
	if math.Abs(d) < 1e-14 {
		return [3][3]float64{}, ErrSingular
	}
	var inv [3][3]float64
	inv[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / d
	inv[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / d
	inv[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / d
	inv[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / d
	inv[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / d
	inv[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / d
	inv[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / d
	inv[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / d
	inv[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / d
	return inv, nil
}

// Transpose returns mᵀ.
func Transpose(m [3][3]float64) [3][3]float64 {
	var t [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

// MatMul returns a·b.
func MatMul(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

// MulMatVec returns m·v (v as a column vector).
func MulMatVec(m [3][3]float64, v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

// MulVecMat returns v·m (v as a row vector).
func MulVecMat(v [3]float64, m [3][3]float64) [3]float64 {
	var out [3]float64
	for j := 0; j < 3; j++ {
		out[j] = v[0]*m[0][j] + v[1]*m[1][j] + v[2]*m[2][j]
	}
	return out
}

// FracToCart converts fractional coordinates to Cartesian for row-vector lattices.
func FracToCart(lattice [3][3]float64, frac [3]float64) [3]float64 {
	return MulVecMat(frac, lattice)
}

// Scale multiplies every lattice vector by s.
func Scale(m [3][3]float64, s float64) [3][3]float64 {
	for i := range m {
		for j := range m[i] {
			m[i][j] *= s
		}
	}
	return m
}

// Norm returns the Euclidean length of v.
func Norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// WrapDelta maps each fractional difference into [-0.5, 0.5).
func WrapDelta(d [3]float64) [3]float64 {
	for i := range d {
		d[i] -= math.Round(d[i])
	}
	return d
}

// LatticeFromParameters builds row lattice vectors from a, b, c and the
// angles alpha, beta, gamma in degrees, with a along x and b in the xy plane.
func LatticeFromParameters(a, b, c, alpha, beta, gamma float64) [3][3]float64 {
	ra := alpha * math.Pi / 180
	rb := beta * math.Pi / 180
	rg := gamma * math.Pi / 180
	cx := c * math.Cos(rb)
	cy := c * (math.Cos(ra) - math.Cos(rb)*math.Cos(rg)) / math.Sin(rg)
	cz := math.Sqrt(math.Max(c*c-cx*cx-cy*cy, 0))
	return [3][3]float64{
		{a, 0, 0},
		{b * math.Cos(rg), b * math.Sin(rg), 0},
		{cx, cy, cz},
	}
}
