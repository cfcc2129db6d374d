// Package tube generates renderable geometry from strokes.
//
// Generation has two stages. Build processes the samples of a stroke into a
// Tube: one vertex per sample, plus synthetic cap vertices at each end,
// with a twist-minimizing orientation, Hermite tangents and running
// arclength. Expand then sweeps a cross section selected by the brush type
// along the processed vertices, applies tapering and lighting, and stitches
// the resulting rings into triangles.
package tube

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stagefmt/stagefile"
	"github.com/tanema/gween/ease"
)

// Options controls geometry generation. Library callers usually start from
// DefaultOptions.
type Options struct {
	// Subdivisions is the number of Hermite segments evaluated between each
	// pair of adjacent vertices. Values below 1 are treated as 1.
	Subdivisions int
	// CrossSectionScale multiplies the width of every sample.
	CrossSectionScale float32
	// TaperLength is the arclength over which tapered strokes ease in at
	// each end. It is capped at half the stroke length.
	TaperLength float32
	// Strands is the number of strands of a multi-line stroke.
	Strands int
}

func DefaultOptions() Options {
	return Options{
		Subdivisions:      1,
		CrossSectionScale: 1,
		TaperLength:       0.05,
		Strands:           12,
	}
}

const (
	// Width factor of synthetic tip vertices.
	capScale = 0.00001
	// Number of dome rings at each end of a sphere stroke.
	sphereCaps = 4
	// Largest thickness of a flat stroke.
	flatThickness = 0.0005
	// Segments shorter than epsilon have no direction.
	epsilon = 1e-6
)

var (
	axisX = mgl32.Vec3{1, 0, 0}
	axisY = mgl32.Vec3{0, 1, 0}
	axisZ = mgl32.Vec3{0, 0, 1}
)

// Vertex is a processed sample.
type Vertex struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	// Normal points along the up axis of the orientation, and has the length
	// of the vertical extent.
	Normal mgl32.Vec3
	// Tangent holds half the chord between neighboring vertices, with the
	// width in w.
	Tangent mgl32.Vec4
	// UV holds the light in x and the arclength from the first real sample
	// in y.
	UV      mgl32.Vec2
	Color   stagefile.Color
	Extents mgl32.Vec2
}

// Width returns the horizontal extent of the vertex.
func (v Vertex) Width() float32 { return v.Extents[0] }

// Tube is a stroke processed by Build.
type Tube struct {
	Brush        stagefile.BrushType
	TaperShape   bool
	TaperOpacity bool
	MultiLine    bool
	OneSided     bool

	Vertices []Vertex
	// Lines holds pairs of indices into Vertices.
	Lines []int32
	// Length is the arclength of the real samples.
	Length float32
}

// Empty returns whether the tube has no geometry.
func (t *Tube) Empty() bool {
	return len(t.Vertices) == 0
}

// Orientations propagates a twist-minimizing frame along rots. Each interior
// orientation becomes the spherical midpoint of its neighbors, and each
// endpoint takes the orientation of its only neighbor.
func Orientations(rots []mgl32.Quat) []mgl32.Quat {
	out := make([]mgl32.Quat, len(rots))
	switch len(rots) {
	case 0:
		return out
	case 1:
		out[0] = unit(rots[0])
		return out
	}
	for i := 1; i < len(rots)-1; i++ {
		out[i] = mgl32.QuatSlerp(unit(rots[i-1]), unit(rots[i+1]), 0.5)
	}
	out[0] = unit(rots[1])
	out[len(rots)-1] = unit(rots[len(rots)-2])
	return out
}

func unit(q mgl32.Quat) mgl32.Quat {
	if q.Len() < epsilon {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}

func hasNaN(v mgl32.Vec3) bool {
	return math32.IsNaN(v[0]) || math32.IsNaN(v[1]) || math32.IsNaN(v[2])
}

// point is a sample before vertex emission.
type point struct {
	pos    mgl32.Vec3
	orient mgl32.Quat
	width  float32
	color  stagefile.Color
	light  float32
}

// collect returns the samples of l with valid positions. Samples with NaN
// positions are skipped.
func collect(l *stagefile.Line, o Options) []point {
	var pts []point
	var rots []mgl32.Quat
	for i := 0; i < l.Len(); i++ {
		s := l.Sample(i)
		if hasNaN(s.Position) {
			continue
		}
		if l.ConstantWidth {
			s.Width = l.Widths[0]
		}
		pts = append(pts, point{
			pos:   s.Position,
			width: s.Width * o.CrossSectionScale,
			color: s.Color,
			light: s.Light,
		})
		rots = append(rots, s.Rotation)
	}
	for i, q := range Orientations(rots) {
		pts[i].orient = q
	}
	return pts
}

// direction returns the normalized direction from a to b, or the forward
// axis of orient when the points coincide.
func direction(a, b mgl32.Vec3, orient mgl32.Quat) mgl32.Vec3 {
	d := b.Sub(a)
	if l := d.Len(); l >= epsilon {
		return d.Mul(1 / l)
	}
	return orient.Rotate(axisZ)
}

// caps returns the synthetic points placed beyond end, moving away along
// dir, ordered from end outward.
func caps(end point, dir mgl32.Vec3, brush stagefile.BrushType) []point {
	r := end.width / 2
	if brush != stagefile.BrushSphere {
		c := end
		c.pos = end.pos.Add(dir.Mul(r))
		c.width = end.width * capScale
		return []point{c}
	}
	// A hemisphere: the profile eases from the full width down to the tip.
	pts := make([]point, sphereCaps)
	for k := range pts {
		t := float32(sphereCaps-1-k) / sphereCaps
		h := ease.OutCirc(t, 0, 1, 1)
		c := end
		c.pos = end.pos.Add(dir.Mul(r * (1 - t)))
		c.width = max(end.width*h, end.width*capScale)
		pts[k] = c
	}
	return pts
}

// Build processes the samples of l. Lines with fewer than two valid
// samples produce an empty tube.
//
// The tube has N+2 vertices, or N+8 for the sphere brush, where N is the
// number of samples with valid positions.
func Build(l *stagefile.Line, o Options) *Tube {
	t := &Tube{
		Brush:        l.BrushType,
		TaperShape:   l.TaperShape,
		TaperOpacity: l.TaperOpacity,
		MultiLine:    l.MultiLine,
		OneSided:     l.OneSided,
	}
	pts := collect(l, o)
	if len(pts) < 2 {
		return t
	}

	first, last := pts[0], pts[len(pts)-1]
	start := caps(first, direction(first.pos, pts[1].pos, first.orient).Mul(-1), l.BrushType)
	end := caps(last, direction(pts[len(pts)-2].pos, last.pos, last.orient), l.BrushType)

	all := make([]point, 0, len(start)+len(pts)+len(end))
	for i := len(start) - 1; i >= 0; i-- {
		all = append(all, start[i])
	}
	all = append(all, pts...)
	all = append(all, end...)

	t.Vertices = make([]Vertex, 0, len(all))
	var arc float32
	for i := range all {
		// Arclength starts at the first real sample.
		if i > len(start) {
			if d := all[i].pos.Sub(all[i-1].pos).Len(); d >= epsilon {
				arc += d
			}
		}
		if i == len(start)+len(pts)-1 {
			t.Length = arc
		}
		t.addPoint(all, i, arc, l.Flat)
	}

	n := int32(len(t.Vertices))
	for i := int32(0); i+1 < n; i++ {
		t.Lines = append(t.Lines, i, i+1)
	}
	if l.Web {
		for i := int32(0); i+7 < n; i++ {
			t.Lines = append(t.Lines, i, i+7)
		}
	}
	return t
}

// addPoint emits the vertex for all[i].
func (t *Tube) addPoint(all []point, i int, arc float32, flat bool) {
	p := all[i]
	prev := all[max(i-1, 0)]
	next := all[min(i+1, len(all)-1)]

	height := p.width
	if flat {
		height = min(height, flatThickness)
	}

	chord := next.pos.Sub(prev.pos).Mul(0.5)
	if chord.Len() < epsilon && len(t.Vertices) > 0 {
		// Coincident neighbors keep the previous direction.
		chord = t.Vertices[len(t.Vertices)-1].Tangent.Vec3()
	}

	t.Vertices = append(t.Vertices, Vertex{
		Position:    p.pos,
		Orientation: p.orient,
		Normal:      p.orient.Rotate(axisY).Mul(height),
		Tangent:     chord.Vec4(p.width),
		UV:          mgl32.Vec2{p.light, arc},
		Color:       p.color,
		Extents:     mgl32.Vec2{p.width, height},
	})
}
