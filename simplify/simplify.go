// Package simplify reduces the number of samples in a stroke.
//
// Simplification is a single left-to-right pass. The first and last samples
// are always kept. An interior sample is kept when dropping it would exceed
// any tolerance relative to the last kept sample:
//
//   - the direction from the last kept sample turns away from the direction
//     of the last kept segment by more than the curvature tolerance;
//   - the distance from the last kept sample exceeds the distance factor
//     times the width of the sample;
//   - the RGBA distance from the color of the last kept sample exceeds the
//     color tolerance;
//   - the difference in light from the last kept sample exceeds the light
//     tolerance.
//
// Every test depends only on samples already kept, so simplifying a
// simplified line with the same tolerance keeps every sample.
package simplify

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stagefmt/stagefile"
)

// Tolerance holds the thresholds of a simplification pass.
type Tolerance struct {
	// Curvature is the largest angle, in radians, between segment
	// directions.
	Curvature float32
	// Distance is the largest segment length, as a multiple of the sample
	// width.
	Distance float32
	// Color is the largest Euclidean distance between RGBA colors.
	Color float32
	// Light is the largest difference in light.
	Light float32
}

// Segments shorter than epsilon have no direction, and are always kept.
const epsilon = 1e-6

// DefaultTolerance returns the reference thresholds.
func DefaultTolerance() Tolerance {
	return Tolerance{
		Curvature: mgl32.DegToRad(3),
		Distance:  4,
		Color:     0.05,
		Light:     0.05,
	}
}

// Scale returns t with every threshold multiplied by factor.
func (t Tolerance) Scale(factor float32) Tolerance {
	return Tolerance{
		Curvature: t.Curvature * factor,
		Distance:  t.Distance * factor,
		Color:     t.Color * factor,
		Light:     t.Light * factor,
	}
}

// Line returns a simplified copy of l, using the default tolerance scaled
// by factor. A factor of 1 uses the reference thresholds.
func Line(l *stagefile.Line, factor float32) *stagefile.Line {
	return WithTolerance(l, DefaultTolerance().Scale(factor))
}

// WithTolerance returns a simplified copy of l.
func WithTolerance(l *stagefile.Line, t Tolerance) *stagefile.Line {
	return Select(l, Indices(l, t))
}

// Indices returns the ascending indices of the samples of l that are kept
// under t.
func Indices(l *stagefile.Line, t Tolerance) []int {
	n := l.Len()
	if n <= 2 {
		keep := make([]int, n)
		for i := range keep {
			keep[i] = i
		}
		return keep
	}

	// Clamp so that the cosine stays monotonic.
	cosCurvature := math32.Cos(min(max(t.Curvature, 0), math32.Pi))

	keep := make([]int, 1, n)
	last := 0
	var lastDir mgl32.Vec3
	hasDir := false
	for i := 1; i < n-1; i++ {
		seg := l.Points[i].Sub(l.Points[last])
		length := seg.Len()

		kept := false
		switch {
		case !(length >= epsilon):
			kept = true
		case length > t.Distance*l.Widths[i]:
			kept = true
		case colorDistance(l.Colors[i], l.Colors[last]) > t.Color:
			kept = true
		case math32.Abs(lightAt(l, i)-lightAt(l, last)) > t.Light:
			kept = true
		case hasDir && lastDir.Dot(seg.Mul(1/length)) < cosCurvature:
			kept = true
		}
		if !kept {
			continue
		}

		keep = append(keep, i)
		if length >= epsilon {
			lastDir = seg.Mul(1 / length)
			hasDir = true
		}
		last = i
	}
	return append(keep, n-1)
}

func lightAt(l *stagefile.Line, i int) float32 {
	if i < len(l.Light) {
		return l.Light[i]
	}
	return stagefile.DefaultLight
}

func colorDistance(a, b stagefile.Color) float32 {
	return a.Vec4().Sub(b.Vec4()).Len()
}

// Select returns a copy of l containing only the samples at the given
// indices, which must be ascending and within range. Style flags and the
// transform are copied unchanged.
func Select(l *stagefile.Line, indices []int) *stagefile.Line {
	c := *l
	c.Points = pick(l.Points, indices)
	c.Rotations = pick(l.Rotations, indices)
	c.Widths = pick(l.Widths, indices)
	c.Colors = pick(l.Colors, indices)
	c.Light = pick(l.Light, indices)
	c.CameraOrientations = pick(l.CameraOrientations, indices)
	return &c
}

// pick gathers a[i] for each index within the length of a. Indices beyond
// the end are skipped, which keeps a short array short.
func pick[T any](a []T, indices []int) []T {
	if a == nil {
		return nil
	}
	out := make([]T, 0, len(indices))
	for _, i := range indices {
		if i < len(a) {
			out = append(out, a[i])
		}
	}
	return out
}
