// Package legacy implements the binary graph format used by version 0 stage
// files, and by the preview entry of every version.
//
// A file consists of a header followed by a sequence of chunks. Each chunk
// has a four byte signature and a payload that may be compressed with lz4.
// The STAG chunk contains the whole scene graph with every array inline, the
// PRVW chunk contains thumbnail images, and the END chunk terminates the
// file.
package legacy

// stageSig is the signature of a binary graph file.
const stageSig = "<stage"

// binaryMarker follows the signature.
const binaryMarker = "!"

// binaryHeader is the header magic of a binary graph file.
const binaryHeader = "\x89\xff\r\n\x1a\n"

// endContent is the expected content of the END chunk.
const endContent = "</stage>"

const (
	sigMETA = "META"
	sigSTAG = "STAG"
	sigPRVW = "PRVW"
	sigEND  = "END\x00"
)

// maxGraphCount bounds the number of children, frames and lines read from a
// single list.
const maxGraphCount = 1 << 24
