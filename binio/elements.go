package binio

import (
	"github.com/anaminus/parse"
	"github.com/go-gl/mathgl/mgl32"
)

// Element describes the fixed-size encoding of a value of type T.
type Element[T any] struct {
	// Size is the number of bytes occupied by one encoded value.
	Size int

	// Put writes v to fw, returning whether writing failed.
	Put func(fw *parse.BinaryWriter, v T) (failed bool)

	// Get reads a value from fr into v, returning whether reading failed.
	Get func(fr *parse.BinaryReader, v *T) (failed bool)
}

// Float32 encodes a single precision float.
var Float32 = Element[float32]{
	Size: zf32,
	Put: func(fw *parse.BinaryWriter, v float32) bool {
		return fw.Number(v)
	},
	Get: func(fr *parse.BinaryReader, v *float32) bool {
		return fr.Number(v)
	},
}

// Int32 encodes a signed 32-bit integer.
var Int32 = Element[int32]{
	Size: zi32,
	Put: func(fw *parse.BinaryWriter, v int32) bool {
		return fw.Number(v)
	},
	Get: func(fr *parse.BinaryReader, v *int32) bool {
		return fr.Number(v)
	},
}

// Vec2 encodes x, y.
var Vec2 = Element[mgl32.Vec2]{
	Size: 2 * zf32,
	Put:  PutVec2,
	Get:  GetVec2,
}

// Vec3 encodes x, y, z.
var Vec3 = Element[mgl32.Vec3]{
	Size: 3 * zf32,
	Put:  PutVec3,
	Get:  GetVec3,
}

// Vec4 encodes x, y, z, w.
var Vec4 = Element[mgl32.Vec4]{
	Size: 4 * zf32,
	Put:  PutVec4,
	Get:  GetVec4,
}

// Quat encodes x, y, z, w, with the scalar part last.
var Quat = Element[mgl32.Quat]{
	Size: 4 * zf32,
	Put:  PutQuat,
	Get:  GetQuat,
}

func putFloats(fw *parse.BinaryWriter, v ...float32) bool {
	for _, f := range v {
		if fw.Number(f) {
			return true
		}
	}
	return false
}

func getFloats(fr *parse.BinaryReader, v ...*float32) bool {
	for _, f := range v {
		if fr.Number(f) {
			return true
		}
	}
	return false
}

func PutVec2(fw *parse.BinaryWriter, v mgl32.Vec2) bool {
	return putFloats(fw, v[0], v[1])
}

func GetVec2(fr *parse.BinaryReader, v *mgl32.Vec2) bool {
	return getFloats(fr, &v[0], &v[1])
}

func PutVec3(fw *parse.BinaryWriter, v mgl32.Vec3) bool {
	return putFloats(fw, v[0], v[1], v[2])
}

func GetVec3(fr *parse.BinaryReader, v *mgl32.Vec3) bool {
	return getFloats(fr, &v[0], &v[1], &v[2])
}

func PutVec4(fw *parse.BinaryWriter, v mgl32.Vec4) bool {
	return putFloats(fw, v[0], v[1], v[2], v[3])
}

func GetVec4(fr *parse.BinaryReader, v *mgl32.Vec4) bool {
	return getFloats(fr, &v[0], &v[1], &v[2], &v[3])
}

func PutQuat(fw *parse.BinaryWriter, q mgl32.Quat) bool {
	return putFloats(fw, q.V[0], q.V[1], q.V[2], q.W)
}

func GetQuat(fr *parse.BinaryReader, q *mgl32.Quat) bool {
	return getFloats(fr, &q.V[0], &q.V[1], &q.V[2], &q.W)
}

// PutString writes a string prefixed with its int32 byte length.
func PutString(fw *parse.BinaryWriter, s string) bool {
	if fw.Number(int32(len(s))) {
		return true
	}
	return fw.Bytes([]byte(s))
}

// GetString reads a string written by PutString.
func GetString(fr *parse.BinaryReader, s *string) bool {
	var b []byte
	if GetBytes(fr, &b) {
		return true
	}
	*s = string(b)
	return false
}

// PutBool writes a boolean as a single byte.
func PutBool(fw *parse.BinaryWriter, v bool) bool {
	var b uint8
	if v {
		b = 1
	}
	return fw.Number(b)
}

// GetBool reads a boolean written by PutBool.
func GetBool(fr *parse.BinaryReader, v *bool) bool {
	var b uint8
	if fr.Number(&b) {
		return true
	}
	*v = b != 0
	return false
}
