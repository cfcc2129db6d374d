package stagefile

import (
	"encoding/json"

	"github.com/anaminus/parse"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stagefmt/stagefile/binio"
)

// Color is a linear RGBA color.
type Color struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
	A float32 `json:"a"`
}

// White is opaque white.
var White = Color{1, 1, 1, 1}

// Vec4 returns the color as a vector of r, g, b, a.
func (c Color) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{c.R, c.G, c.B, c.A}
}

// ColorFromVec4 is the inverse of Color.Vec4.
func ColorFromVec4(v mgl32.Vec4) Color {
	return Color{v[0], v[1], v[2], v[3]}
}

// ColorElement encodes r, g, b, a.
var ColorElement = binio.Element[Color]{
	Size: 4 * 4,
	Put: func(fw *parse.BinaryWriter, c Color) bool {
		return binio.PutVec4(fw, c.Vec4())
	},
	Get: func(fr *parse.BinaryReader, c *Color) bool {
		var v mgl32.Vec4
		if binio.GetVec4(fr, &v) {
			return true
		}
		*c = ColorFromVec4(v)
		return false
	},
}

// Transform is a position, rotation and non-uniform scale. The rotation is
// expected to be a unit quaternion, but this is not enforced.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Mat4 returns the transform as a matrix, applying scale, then rotation,
// then translation.
func (t Transform) Mat4() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// TransformElement encodes position, rotation and scale.
var TransformElement = binio.Element[Transform]{
	Size: binio.Vec3.Size + binio.Quat.Size + binio.Vec3.Size,
	Put: func(fw *parse.BinaryWriter, t Transform) bool {
		return binio.PutVec3(fw, t.Position) ||
			binio.PutQuat(fw, t.Rotation) ||
			binio.PutVec3(fw, t.Scale)
	},
	Get: func(fr *parse.BinaryReader, t *Transform) bool {
		return binio.GetVec3(fr, &t.Position) ||
			binio.GetQuat(fr, &t.Rotation) ||
			binio.GetVec3(fr, &t.Scale)
	},
}

type transformJSON struct {
	Position *[3]float32 `json:"position,omitempty"`
	Rotation *[4]float32 `json:"rotation,omitempty"`
	Scale    *[3]float32 `json:"scale,omitempty"`
}

func (t Transform) MarshalJSON() ([]byte, error) {
	p := [3]float32(t.Position)
	r := [4]float32{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W}
	s := [3]float32(t.Scale)
	return json.Marshal(transformJSON{Position: &p, Rotation: &r, Scale: &s})
}

// UnmarshalJSON decodes a transform. Missing components keep their identity
// values.
func (t *Transform) UnmarshalJSON(b []byte) error {
	var v transformJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = Identity()
	if v.Position != nil {
		t.Position = mgl32.Vec3(*v.Position)
	}
	if v.Rotation != nil {
		t.Rotation = mgl32.Quat{W: v.Rotation[3], V: mgl32.Vec3{v.Rotation[0], v.Rotation[1], v.Rotation[2]}}
	}
	if v.Scale != nil {
		t.Scale = mgl32.Vec3(*v.Scale)
	}
	return nil
}

// LoopType determines how a playable behaves outside of its own duration.
type LoopType uint8

const (
	Loop LoopType = iota
	OneShot
	Hold
)

func (l LoopType) String() string {
	switch l {
	case Loop:
		return "Loop"
	case OneShot:
		return "OneShot"
	case Hold:
		return "Hold"
	default:
		return "Invalid"
	}
}

// TrimLoopType determines how a playable behaves outside of its trimmed
// range.
type TrimLoopType uint8

const (
	TrimLoop TrimLoopType = iota
	TrimOneShot
	TrimHold
	TrimInfinity
)

func (l TrimLoopType) String() string {
	switch l {
	case TrimLoop:
		return "Loop"
	case TrimOneShot:
		return "OneShot"
	case TrimHold:
		return "Hold"
	case TrimInfinity:
		return "Infinity"
	default:
		return "Invalid"
	}
}

// trimLoopFrom returns the trim loop type equivalent to l.
func trimLoopFrom(l LoopType) TrimLoopType {
	switch l {
	case OneShot:
		return TrimOneShot
	case Hold:
		return TrimHold
	default:
		return TrimLoop
	}
}

func transformPtr(t Transform) *Transform {
	return &t
}

// orIdentity returns *t, or the identity transform if t is nil.
func orIdentity(t *Transform) Transform {
	if t == nil {
		return Identity()
	}
	return *t
}
