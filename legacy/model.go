package legacy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/anaminus/parse"
	"github.com/bkaradzic/go-lz4"
	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/binio"
)

// formatModel models the binary graph format. Directly, it can be used to
// control exactly how a file is encoded.
type formatModel struct {
	// Version indicates the version of the format model.
	Version uint16

	// Chunks is a list of Chunks present in the model.
	Chunks []chunk
}

// WriteTo encodes the header and every chunk of f to w.
func (f *formatModel) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	if fw.Bytes([]byte(stageSig + binaryMarker + binaryHeader)) {
		return fw.End()
	}
	if fw.Number(f.Version) {
		return fw.End()
	}
	var reserved [8]byte
	if fw.Bytes(reserved[:]) {
		return fw.End()
	}

	for i, chunk := range f.Chunks {
		var buf bytes.Buffer
		if _, err := chunk.WriteTo(&buf); err != nil {
			fw.Add(0, ChunkError{Index: i, Sig: chunk.Signature(), Cause: err})
			return fw.End()
		}
		raw := rawChunk{
			signature:  chunk.Signature(),
			compressed: chunk.Compressed(),
			payload:    buf.Bytes(),
		}
		if raw.WriteTo(fw) {
			return fw.End()
		}
	}

	return fw.End()
}

// find returns the first chunk with the given signature.
func (f *formatModel) find(sig string) chunk {
	for _, c := range f.Chunks {
		if s := c.Signature(); string(s[:]) == sig {
			return c
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////

// chunk is a portion of the model that contains distinct data.
type chunk interface {
	// Signature returns a signature used to identify the chunk's type.
	Signature() [4]byte

	// Compressed returns whether the chunk was compressed when decoding, or
	// whether the chunk should be compressed when encoding.
	Compressed() bool

	// SetCompressed sets whether the chunk should be compressed when
	// encoding.
	SetCompressed(bool)

	// ReadFrom processes the payload of a decompressed chunk.
	ReadFrom(r io.Reader) (n int64, err error)

	// WriteTo writes the data from a chunk to an uncompressed payload. The
	// payload will be compressed afterward depending on the chunk's
	// compression settings.
	WriteTo(w io.Writer) (n int64, err error)
}

func signature(s string) (sig [4]byte) {
	copy(sig[:], s)
	return sig
}

// rawChunk contains the compression data and payload of a chunk.
type rawChunk struct {
	signature  [4]byte
	compressed bool
	payload    []byte
}

// ReadFrom reads a raw chunk from a stream, decompressing the chunk if
// necessary. limit is the number of bytes remaining in the stream; lengths
// that cannot fit are rejected before allocating.
func (c *rawChunk) ReadFrom(fr *parse.BinaryReader, limit int64) bool {
	if fr.Bytes(c.signature[:]) {
		return true
	}

	var compressedLength uint32
	if fr.Number(&compressedLength) {
		return true
	}

	var decompressedLength uint32
	if fr.Number(&decompressedLength) {
		return true
	}

	var reserved uint32
	if fr.Number(&reserved) {
		return true
	}

	limit -= 16
	if compressedLength == 0 {
		if int64(decompressedLength) > limit {
			fr.Add(0, io.ErrUnexpectedEOF)
			return true
		}
		c.compressed = false
		c.payload = make([]byte, decompressedLength)
		return fr.Bytes(c.payload)
	}

	c.compressed = true
	if int64(compressedLength) > limit {
		fr.Add(0, io.ErrUnexpectedEOF)
		return true
	}
	if uint64(decompressedLength) > 255*uint64(compressedLength)+16 {
		fr.Add(0, fmt.Errorf("lz4: decompressed length %d is implausible", decompressedLength))
		return true
	}

	// lz4 requires the uncompressed length before the compressed data.
	compressedData := make([]byte, compressedLength+4)
	binary.LittleEndian.PutUint32(compressedData, decompressedLength)
	if fr.Bytes(compressedData[4:]) {
		return true
	}

	c.payload = make([]byte, decompressedLength)
	if _, err := lz4.Decode(c.payload, compressedData); err != nil {
		fr.Add(0, fmt.Errorf("lz4: %w", err))
		return true
	}
	return false
}

// WriteTo writes a raw chunk to a stream, compressing if necessary.
func (c *rawChunk) WriteTo(fw *parse.BinaryWriter) bool {
	if fw.Bytes(c.signature[:]) {
		return true
	}

	if !c.compressed {
		// An uncompressed chunk has a compressed length of 0.
		fw.Number(uint32(0))
		fw.Number(uint32(len(c.payload)))
		fw.Number(uint32(0))
		return fw.Bytes(c.payload)
	}

	compressedData, err := lz4.Encode(nil, c.payload)
	if fw.Add(0, err) {
		return true
	}
	if binary.LittleEndian.Uint32(compressedData[:4]) != uint32(len(c.payload)) {
		panic("lz4 uncompressed length does not match payload length")
	}

	// lz4 prepends the length of the uncompressed payload, which is
	// excluded from the compressed length.
	compressedPayload := compressedData[4:]
	fw.Number(uint32(len(compressedPayload)))
	fw.Number(uint32(len(c.payload)))
	fw.Number(uint32(0))
	return fw.Bytes(compressedPayload)
}

////////////////////////////////////////////////////////////////

// chunkUnknown is a chunk that is not known by the format, or that was not
// requested by the decoder.
type chunkUnknown struct {
	IsCompressed bool
	Sig          [4]byte
	Bytes        []byte
}

func (c *chunkUnknown) Signature() [4]byte   { return c.Sig }
func (c *chunkUnknown) Compressed() bool     { return c.IsCompressed }
func (c *chunkUnknown) SetCompressed(b bool) { c.IsCompressed = b }

func (c *chunkUnknown) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	c.Bytes, _ = fr.All()
	return fr.End()
}

func (c *chunkUnknown) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	fw.Bytes(c.Bytes)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// chunkErrored is a chunk that has errored.
type chunkErrored struct {
	// The state of the chunk as the error occurred.
	chunk

	// Offset is the number of bytes parsed before the error occurred.
	Offset int64

	// The error that occurred.
	Cause error

	// The raw bytes of the chunk.
	Bytes []byte
}

func (c *chunkErrored) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	fw.Bytes(c.Bytes)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// chunkMeta is a chunk that contains file metadata.
type chunkMeta struct {
	IsCompressed bool

	Values [][2]string
}

func (chunkMeta) Signature() [4]byte      { return signature(sigMETA) }
func (c *chunkMeta) Compressed() bool     { return c.IsCompressed }
func (c *chunkMeta) SetCompressed(b bool) { c.IsCompressed = b }

func (c *chunkMeta) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)

	var size uint32
	if fr.Number(&size) {
		return fr.End()
	}
	if size > maxGraphCount {
		fr.Add(0, errCountTooLarge)
		return fr.End()
	}
	c.Values = make([][2]string, int(size))

	for i := range c.Values {
		if binio.GetString(fr, &c.Values[i][0]) {
			return fr.End()
		}
		if binio.GetString(fr, &c.Values[i][1]) {
			return fr.End()
		}
	}

	return fr.End()
}

func (c *chunkMeta) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	if fw.Number(uint32(len(c.Values))) {
		return fw.End()
	}

	for _, pair := range c.Values {
		if binio.PutString(fw, pair[0]) {
			return fw.End()
		}
		if binio.PutString(fw, pair[1]) {
			return fw.End()
		}
	}

	return fw.End()
}

////////////////////////////////////////////////////////////////

// chunkStage contains the scene graph. Previews are stored in a separate
// chunk.
type chunkStage struct {
	IsCompressed bool

	Stage *stagefile.Stage
}

func (chunkStage) Signature() [4]byte      { return signature(sigSTAG) }
func (c *chunkStage) Compressed() bool     { return c.IsCompressed }
func (c *chunkStage) SetCompressed(b bool) { c.IsCompressed = b }

func (c *chunkStage) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	c.Stage = new(stagefile.Stage)
	readStage(fr, c.Stage)
	return fr.End()
}

func (c *chunkStage) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	writeStage(fw, c.Stage)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// chunkPreview contains encoded thumbnail images.
type chunkPreview struct {
	IsCompressed bool

	Images [][]byte
}

func (chunkPreview) Signature() [4]byte      { return signature(sigPRVW) }
func (c *chunkPreview) Compressed() bool     { return c.IsCompressed }
func (c *chunkPreview) SetCompressed(b bool) { c.IsCompressed = b }

func (c *chunkPreview) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)

	var count int32
	if fr.Number(&count) {
		return fr.End()
	}
	if count < 0 || count > maxGraphCount {
		fr.Add(0, errCountTooLarge)
		return fr.End()
	}
	c.Images = make([][]byte, 0, min(int(count), 64))
	for i := 0; i < int(count); i++ {
		var b []byte
		if binio.GetBytes(fr, &b) {
			return fr.End()
		}
		c.Images = append(c.Images, b)
	}

	return fr.End()
}

func (c *chunkPreview) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)

	if fw.Number(int32(len(c.Images))) {
		return fw.End()
	}
	for _, b := range c.Images {
		if binio.PutBytes(fw, b) {
			return fw.End()
		}
	}

	return fw.End()
}

////////////////////////////////////////////////////////////////

// chunkEnd signals the end of the file. It causes the decoder to stop
// reading chunks, so it should be the last chunk.
type chunkEnd struct {
	IsCompressed bool

	// The raw decompressed content of the chunk. For maximum compatibility,
	// the content should be endContent, and the chunk should be
	// uncompressed. The decoder will emit warnings indicating such, if this
	// is not the case.
	Content []byte
}

func newChunkEnd() *chunkEnd {
	return &chunkEnd{Content: []byte(endContent)}
}

func (chunkEnd) Signature() [4]byte      { return signature(sigEND) }
func (c *chunkEnd) Compressed() bool     { return c.IsCompressed }
func (c *chunkEnd) SetCompressed(b bool) { c.IsCompressed = b }

func (c *chunkEnd) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	c.Content, _ = fr.All()
	return fr.End()
}

func (c *chunkEnd) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	fw.Bytes(c.Content)
	return fw.End()
}
