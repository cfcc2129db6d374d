// Package binio implements the binary side channel of a stage file.
//
// Large arrays such as stroke points, mesh vertices, texture and audio bytes
// are kept out of the structural payload. They are written contiguously to a
// separate byte stream, and the structural payload refers to them with a
// Range. Every array is encoded as a little-endian int32 element count
// followed by the elements, each in a fixed field order using IEEE-754 single
// precision without padding.
//
// The same element encodings are used inline by the legacy binary graph
// format, through PutArray and GetArray.
package binio

import "strconv"

// Range locates an encoded array within the side channel. The length
// includes the element count prefix. A nil *Range indicates an absent field.
type Range struct {
	Start  uint64 `json:"start"`
	Length uint64 `json:"length"`
}

// End returns the offset immediately following the range.
func (r Range) End() uint64 {
	return r.Start + r.Length
}

func (r Range) String() string {
	return "[" + strconv.FormatUint(r.Start, 10) + ":" + strconv.FormatUint(r.End(), 10) + "]"
}

// Primitive sizes.
const (
	zi32 = 4
	zf32 = 4

	// Number of bytes used to contain the length of an array.
	zArrayLen = 4

	// Upper bound on the element count of an inline array.
	maxInlineCount = 1 << 28

	// Allocation step of inline reads.
	growChunk = 1 << 16
)
