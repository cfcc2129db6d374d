package legacy

import (
	"errors"
	"fmt"
)

var (
	// Indicates an unexpected file signature.
	ErrInvalidSig = errors.New("invalid signature")
	// Indicates unexpected header content.
	ErrCorruptHeader = errors.New("the file header is corrupted")
	// Indicates a file without a STAG chunk.
	ErrNoStage = errors.New("no stage chunk")
)

var (
	errUnknownChunkSig    = errors.New("unknown chunk signature")
	errEndChunkCompressed = errors.New("end chunk is compressed")
	errEndChunkContent    = errors.New("end chunk content is not `" + endContent + "`")
	errUnknownKind        = errors.New("unknown playable kind")
	errCountTooLarge      = errors.New("list count too large")
)

type errUnrecognizedVersion uint16

func (err errUnrecognizedVersion) Error() string {
	return fmt.Sprintf("unrecognized version %d", uint16(err))
}

type errReserve struct {
	Offset int64
	Bytes  []byte
}

func (err errReserve) Error() string {
	return fmt.Sprintf("non-zero reserved bytes at offset %d: % 02X", err.Offset, err.Bytes)
}

// ChunkError indicates an error that occurred within a chunk.
type ChunkError struct {
	// Index is the position of the chunk within the file.
	Index int
	// Sig is the signature of the chunk.
	Sig [4]byte

	Cause error
}

func (err ChunkError) Error() string {
	if err.Index < 0 {
		return fmt.Sprintf("%q chunk: %s", string(err.Sig[:]), err.Cause.Error())
	}
	return fmt.Sprintf("#%d %q chunk: %s", err.Index, string(err.Sig[:]), err.Cause.Error())
}

func (err ChunkError) Unwrap() error {
	return err.Cause
}
