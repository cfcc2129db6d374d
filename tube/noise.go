package tube

import "github.com/chewxy/math32"

// hash2D maps integer lattice coordinates to a deterministic value in
// [0,1].
func hash2D(x, y, seed int32) float32 {
	n := x*374761393 + y*668265263 + seed*362437
	n = (n ^ (n >> 13)) * 1274126177
	n = n ^ (n >> 16)
	const invMaxInt = 1.0 / 2147483647.0
	return float32(n&0x7fffffff) * float32(invMaxInt)
}

// hash3 maps a position to a deterministic value in [0,1). The same
// position always produces the same value.
func hash3(x, y, z float32) float32 {
	v := math32.Sin(x*12.9898+y*78.233+z*45.164) * 43758.5453
	return v - math32.Floor(v)
}

// Skew factors of the 2D simplex grid.
const (
	skew2   = 0.36602540378 // (sqrt(3)-1)/2
	unskew2 = 0.2113248654  // (3-sqrt(3))/6
)

var grad2 = [8][2]float32{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{0.70710678, 0.70710678}, {-0.70710678, 0.70710678},
	{0.70710678, -0.70710678}, {-0.70710678, -0.70710678},
}

func corner2(i, j int32, x, y float32) float32 {
	t := 0.5 - x*x - y*y
	if t < 0 {
		return 0
	}
	g := grad2[int(hash2D(i, j, 0)*8)&7]
	t *= t
	return t * t * (g[0]*x + g[1]*y)
}

// simplex2 returns 2D simplex noise in roughly [-1,1].
func simplex2(x, y float32) float32 {
	s := (x + y) * skew2
	i := math32.Floor(x + s)
	j := math32.Floor(y + s)
	t := (i + j) * unskew2
	x0 := x - (i - t)
	y0 := y - (j - t)

	var i1, j1 int32
	if x0 > y0 {
		i1 = 1
	} else {
		j1 = 1
	}
	x1 := x0 - float32(i1) + unskew2
	y1 := y0 - float32(j1) + unskew2
	x2 := x0 - 1 + 2*unskew2
	y2 := y0 - 1 + 2*unskew2

	ii, jj := int32(i), int32(j)
	n := corner2(ii, jj, x0, y0) +
		corner2(ii+i1, jj+j1, x1, y1) +
		corner2(ii+1, jj+1, x2, y2)
	return 70 * n
}

// smoothstep is cubic Hermite easing of x between edge0 and edge1.
func smoothstep(edge0, edge1, x float32) float32 {
	if edge1 <= edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}
