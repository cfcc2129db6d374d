package tube

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stagefmt/stagefile"
)

// Mesh is renderable geometry. Every per-vertex slice has the same length.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Tangents  []mgl32.Vec4
	UVs       []mgl32.Vec2
	Colors    []stagefile.Color

	// Triangles holds triples of indices into Positions.
	Triangles []int32
	// Lines holds pairs of indices into Positions.
	Lines []int32
}

// Len returns the number of vertices.
func (m *Mesh) Len() int { return len(m.Positions) }

// Empty returns whether the mesh has no vertices.
func (m *Mesh) Empty() bool { return len(m.Positions) == 0 }

func (m *Mesh) add(pos, normal mgl32.Vec3, tangent mgl32.Vec4, uv mgl32.Vec2, color stagefile.Color) int32 {
	m.Positions = append(m.Positions, pos)
	m.Normals = append(m.Normals, normal)
	m.Tangents = append(m.Tangents, tangent)
	m.UVs = append(m.UVs, uv)
	m.Colors = append(m.Colors, color)
	return int32(len(m.Positions) - 1)
}

func (m *Mesh) triangle(a, b, c int32, flip bool) {
	if flip {
		b, c = c, b
	}
	m.Triangles = append(m.Triangles, a, b, c)
}

// Append adds the geometry of o to m.
func (m *Mesh) Append(o *Mesh) {
	base := int32(len(m.Positions))
	m.Positions = append(m.Positions, o.Positions...)
	m.Normals = append(m.Normals, o.Normals...)
	m.Tangents = append(m.Tangents, o.Tangents...)
	m.UVs = append(m.UVs, o.UVs...)
	m.Colors = append(m.Colors, o.Colors...)
	for _, i := range o.Triangles {
		m.Triangles = append(m.Triangles, base+i)
	}
	for _, i := range o.Lines {
		m.Lines = append(m.Lines, base+i)
	}
}

// Transform applies mat to the positions, normals and tangents of m.
func (m *Mesh) Transform(mat mgl32.Mat4) {
	for i, p := range m.Positions {
		m.Positions[i] = mgl32.TransformCoordinate(p, mat)
	}
	for i, n := range m.Normals {
		m.Normals[i] = mgl32.TransformNormal(n, mat)
	}
	for i, t := range m.Tangents {
		m.Tangents[i] = mgl32.TransformNormal(t.Vec3(), mat).Vec4(t[3])
	}
}

// MeshData converts m to static mesh data. Tangents and line indices are
// not carried over.
func (m *Mesh) MeshData(name string) *stagefile.MeshData {
	return &stagefile.MeshData{
		Name:      name,
		Vertices:  m.Positions,
		Normals:   m.Normals,
		UVs:       m.UVs,
		Colors:    m.Colors,
		Triangles: m.Triangles,
	}
}

// ring is a cross section at one point along the tube.
type ring struct {
	pos     mgl32.Vec3
	forward mgl32.Vec3
	up      mgl32.Vec3
	right   mgl32.Vec3
	extents mgl32.Vec2
	tangent mgl32.Vec4
	uv      mgl32.Vec2
	color   stagefile.Color
}

// RingSize returns the number of vertices in a cross section of brush.
func RingSize(brush stagefile.BrushType) int {
	switch brush {
	case stagefile.BrushSphere:
		return 8
	case stagefile.BrushCube, stagefile.BrushSplat:
		return 4
	default:
		return 2
	}
}

// frame returns an orthonormal basis whose forward axis follows dir and
// whose up axis is closest to the up axis of orient.
func frame(dir mgl32.Vec3, orient mgl32.Quat) (forward, up, right mgl32.Vec3) {
	forward = dir
	if l := forward.Len(); l >= epsilon {
		forward = forward.Mul(1 / l)
	} else {
		forward = orient.Rotate(axisZ)
	}
	for _, axis := range []mgl32.Vec3{axisY, axisX, axisZ} {
		u := orient.Rotate(axis)
		u = u.Sub(forward.Mul(u.Dot(forward)))
		if l := u.Len(); l >= epsilon {
			up = u.Mul(1 / l)
			break
		}
	}
	return forward, up, up.Cross(forward)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func lerpColor(a, b stagefile.Color, t float32) stagefile.Color {
	return stagefile.ColorFromVec4(a.Vec4().Add(b.Vec4().Sub(a.Vec4()).Mul(t)))
}

// hermite evaluates the cubic Hermite curve between a and b at s, returning
// the position and the derivative.
func hermite(a, b Vertex, s float32) (pos, deriv mgl32.Vec3) {
	s2 := s * s
	s3 := s2 * s
	ta, tb := a.Tangent.Vec3(), b.Tangent.Vec3()
	pos = a.Position.Mul(2*s3 - 3*s2 + 1).
		Add(ta.Mul(s3 - 2*s2 + s)).
		Add(b.Position.Mul(-2*s3 + 3*s2)).
		Add(tb.Mul(s3 - s2))
	deriv = a.Position.Mul(6*s2 - 6*s).
		Add(ta.Mul(3*s2 - 4*s + 1)).
		Add(b.Position.Mul(-6*s2 + 6*s)).
		Add(tb.Mul(3*s2 - 2*s))
	return pos, deriv
}

// section returns the cross section between a and b at s.
func section(a, b Vertex, s float32) ring {
	pos, deriv := hermite(a, b, s)
	if deriv.Len() < epsilon {
		deriv = b.Position.Sub(a.Position)
	}
	orient := mgl32.QuatSlerp(a.Orientation, b.Orientation, s)
	r := ring{
		pos:     pos,
		extents: mgl32.Vec2{lerp(a.Extents[0], b.Extents[0], s), lerp(a.Extents[1], b.Extents[1], s)},
		uv:      mgl32.Vec2{lerp(a.UV[0], b.UV[0], s), lerp(a.UV[1], b.UV[1], s)},
		color:   lerpColor(a.Color, b.Color, s),
	}
	r.forward, r.up, r.right = frame(deriv, orient)
	r.tangent = deriv.Mul(0.5).Vec4(r.extents[0])
	return r
}

// sweep evaluates the cross sections along t, applying taper and lighting.
func (t *Tube) sweep(o Options) []ring {
	sub := max(o.Subdivisions, 1)
	v := t.Vertices
	rings := make([]ring, 0, (len(v)-1)*sub+1)
	for i := 0; i+1 < len(v); i++ {
		for j := 0; j < sub; j++ {
			rings = append(rings, section(v[i], v[i+1], float32(j)/float32(sub)))
		}
	}
	rings = append(rings, section(v[len(v)-2], v[len(v)-1], 1))

	taper := min(o.TaperLength, t.Length/2)
	for i := range rings {
		r := &rings[i]
		if t.TaperShape || t.TaperOpacity {
			arc := r.uv[1]
			f := smoothstep(0, taper, arc) * smoothstep(0, taper, t.Length-arc)
			if t.TaperShape {
				r.extents = r.extents.Mul(f)
			}
			if t.TaperOpacity {
				r.color.A *= f
			}
		}
		light := 2 * r.uv[0]
		r.color.R *= light
		r.color.G *= light
		r.color.B *= light
	}
	return rings
}

// Strand noise parameters.
const (
	strandFrequency = 8
	strandSeed      = 17.31
)

// strand returns rings offset for strand k of n. Offsets come from simplex
// noise over arclength and strand index, and shrink as n grows.
func strand(rings []ring, k, n int) []ring {
	out := make([]ring, len(rings))
	scale := 1 / math32.Sqrt(float32(n))
	for i, r := range rings {
		arc := r.uv[1] * strandFrequency
		dx := simplex2(arc, float32(k)*strandSeed)
		dy := simplex2(arc+strandSeed, float32(k)*strandSeed)
		w := r.extents[0]
		r.pos = r.pos.Add(r.right.Mul(dx * w * scale)).Add(r.up.Mul(dy * w * scale))
		r.extents = r.extents.Mul(scale)
		out[i] = r
	}
	return out
}

// emit adds the vertices of a cross section to m, returning the index of
// the first.
func (m *Mesh) emit(brush stagefile.BrushType, r ring) int32 {
	a, b := r.extents[0]/2, r.extents[1]/2
	base := int32(len(m.Positions))
	add := func(offset, normal mgl32.Vec3) {
		if l := normal.Len(); l >= epsilon {
			normal = normal.Mul(1 / l)
		} else {
			normal = r.up
		}
		m.add(r.pos.Add(offset), normal, r.tangent, r.uv, r.color)
	}

	switch brush {
	case stagefile.BrushSphere:
		// Clockwise around the forward axis.
		n := RingSize(brush)
		for k := 0; k < n; k++ {
			theta := -2 * math32.Pi * float32(k) / float32(n)
			c, s := math32.Cos(theta), math32.Sin(theta)
			add(r.right.Mul(c*a).Add(r.up.Mul(s*b)), r.right.Mul(c*b).Add(r.up.Mul(s*a)))
		}
	case stagefile.BrushCube:
		// Counterclockwise around the forward axis.
		for _, c := range [4][2]float32{{1, 1}, {-1, 1}, {-1, -1}, {1, -1}} {
			add(r.right.Mul(c[0]*a).Add(r.up.Mul(c[1]*b)), r.right.Mul(c[0]).Add(r.up.Mul(c[1])))
		}
	case stagefile.BrushSplat:
		// A billboard quad in strip order, rotated and jittered by the
		// position.
		p := r.pos
		angle := hash3(p[0], p[1], p[2]) * 2 * math32.Pi
		jx := (hash3(p[1], p[2], p[0]) - 0.5) * a
		jy := (hash3(p[2], p[0], p[1]) - 0.5) * a
		c, s := math32.Cos(angle), math32.Sin(angle)
		right := r.right.Mul(c).Add(r.up.Mul(s))
		up := r.up.Mul(c).Sub(r.right.Mul(s))
		jitter := r.right.Mul(jx).Add(r.up.Mul(jy))
		for _, q := range [4][2]float32{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
			add(jitter.Add(right.Mul(q[0]*a)).Add(up.Mul(q[1]*a)), r.forward)
		}
	default:
		add(r.right.Mul(-a), r.up)
		add(r.right.Mul(a), r.up)
	}
	return base
}

// quad adds the two triangles of the strip s0, s1, s2, s3, alternating
// winding between them.
func (m *Mesh) quad(s0, s1, s2, s3 int32, flip bool) {
	m.triangle(s0, s1, s2, flip)
	m.triangle(s2, s1, s3, flip)
}

// stitch adds the geometry of one strand.
func (m *Mesh) stitch(brush stagefile.BrushType, rings []ring, twoSided bool) {
	// Sphere rings wind clockwise. The other cross sections wind
	// counterclockwise, so their strips are flipped to face outward.
	flip := brush != stagefile.BrushSphere
	n := int32(RingSize(brush))

	if brush == stagefile.BrushSplat {
		for _, r := range rings {
			b := m.emit(brush, r)
			m.quad(b, b+1, b+2, b+3, flip)
		}
		return
	}

	closed := brush == stagefile.BrushSphere || brush == stagefile.BrushCube
	faces := n
	if !closed {
		faces = n - 1
	}
	prev := m.emit(brush, rings[0])
	for _, r := range rings[1:] {
		cur := m.emit(brush, r)
		for k := int32(0); k < faces; k++ {
			k1 := (k + 1) % n
			m.quad(prev+k, cur+k, prev+k1, cur+k1, flip)
			if twoSided {
				m.quad(prev+k, cur+k, prev+k1, cur+k1, !flip)
			}
		}
		prev = cur
	}
}

// Expand sweeps the cross section of the brush along t and triangulates
// it. A tube with fewer than two vertices produces an empty mesh.
func (t *Tube) Expand(o Options) *Mesh {
	m := new(Mesh)
	if len(t.Vertices) < 2 {
		return m
	}
	rings := t.sweep(o)
	twoSided := !t.OneSided && RingSize(t.Brush) == 2
	if !t.MultiLine || o.Strands <= 1 {
		m.stitch(t.Brush, rings, twoSided)
		return m
	}
	for k := 0; k < o.Strands; k++ {
		m.stitch(t.Brush, strand(rings, k, o.Strands), twoSided)
	}
	return m
}

// LineMesh returns the processed vertices of t connected by its line
// indices.
func (t *Tube) LineMesh() *Mesh {
	m := new(Mesh)
	for _, v := range t.Vertices {
		color := v.Color
		light := 2 * v.UV[0]
		color.R *= light
		color.G *= light
		color.B *= light
		m.add(v.Position, v.Normal, v.Tangent, v.UV, color)
	}
	m.Lines = append(m.Lines, t.Lines...)
	return m
}

// Generate produces the geometry of l. Strokes in line mode produce line
// indices only.
func Generate(l *stagefile.Line, o Options) *Mesh {
	t := Build(l, o)
	if l.BrushMode == stagefile.BrushModeLine {
		return t.LineMesh()
	}
	return t.Expand(o)
}

// Frame produces the geometry of every line in f, each placed by its
// transform.
func Frame(f *stagefile.Frame, o Options) *Mesh {
	m := new(Mesh)
	for _, l := range f.Lines {
		g := Generate(l, o)
		g.Transform(l.Transform.Mat4())
		m.Append(g)
	}
	return m
}
