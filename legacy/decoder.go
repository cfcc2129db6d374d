package legacy

import (
	"bytes"
	"io"

	"github.com/anaminus/parse"
	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/binio"
	"github.com/stagefmt/stagefile/errors"
)

// Decoder decodes a binary graph stream.
type Decoder struct {
	// If NoPreview is true, the PRVW chunk is not decoded, and the Previews
	// of a decoded stage are left empty.
	NoPreview bool
}

// Decode reads a stage from r. Problems that do not prevent decoding are
// returned as warnings.
func (d Decoder) Decode(r io.Reader) (stage *stagefile.Stage, warn, err error) {
	if r == nil {
		return nil, nil, errors.New("nil reader")
	}

	want := func(sig string) bool {
		return sig == sigSTAG || sig == sigPRVW && !d.NoPreview
	}
	f, warn, err := d.decode(r, want)
	if err != nil {
		return nil, warn, err
	}

	c, ok := f.find(sigSTAG).(*chunkStage)
	if !ok {
		return nil, warn, binio.DataError{Offset: -1, Cause: ErrNoStage}
	}
	stage = c.Stage
	if p, ok := f.find(sigPRVW).(*chunkPreview); ok {
		stage.Previews = p.Images
	}
	stage.ResolveActive()
	return stage, warn, nil
}

// DecodePreviews reads only the thumbnail images from r. The scene graph is
// not decoded.
func (d Decoder) DecodePreviews(r io.Reader) (images [][]byte, warn, err error) {
	if r == nil {
		return nil, nil, errors.New("nil reader")
	}

	f, warn, err := d.decode(r, func(sig string) bool { return sig == sigPRVW })
	if err != nil {
		return nil, warn, err
	}
	if p, ok := f.find(sigPRVW).(*chunkPreview); ok {
		return p.Images, warn, nil
	}
	return nil, warn, nil
}

func decodeError(r *parse.BinaryReader, err error) error {
	r.Add(0, err)
	err = r.Err()
	if err != nil {
		return binio.DataError{Offset: r.N(), Cause: err}
	}
	return nil
}

// decode parses the format. Chunks for which want returns false are kept as
// raw bytes. A nil want decodes every known chunk.
func (d Decoder) decode(r io.Reader, want func(sig string) bool) (f *formatModel, warn, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	limit := int64(len(data))

	f = &formatModel{}
	fr := parse.NewBinaryReader(bytes.NewReader(data))

	// Check signature.
	sig := make([]byte, len(stageSig+binaryMarker))
	if fr.Bytes(sig) {
		return nil, nil, decodeError(fr, nil)
	}
	if !bytes.Equal(sig, []byte(stageSig+binaryMarker)) {
		return nil, nil, decodeError(fr, ErrInvalidSig)
	}

	// Check header magic.
	header := make([]byte, len(binaryHeader))
	if fr.Bytes(header) {
		return nil, nil, decodeError(fr, nil)
	}
	if !bytes.Equal(header, []byte(binaryHeader)) {
		return nil, nil, decodeError(fr, ErrCorruptHeader)
	}

	// Check version.
	if fr.Number(&f.Version) {
		return nil, nil, decodeError(fr, nil)
	}
	if f.Version != 0 {
		return nil, nil, decodeError(fr, errUnrecognizedVersion(f.Version))
	}

	var reserved [8]byte
	if fr.Bytes(reserved[:]) {
		return nil, nil, decodeError(fr, nil)
	}
	var warns errors.Errors
	if reserved != [8]byte{} {
		warns = append(warns, errReserve{Offset: fr.N() - int64(len(reserved)), Bytes: reserved[:]})
	}

	for i := 0; ; i++ {
		rawChunk := new(rawChunk)
		if rawChunk.ReadFrom(fr, limit-fr.N()) {
			return nil, warns.Return(), decodeError(fr, nil)
		}

		var n int64
		var err error
		var chunk chunk
		payload := bytes.NewReader(rawChunk.payload)
		s := string(rawChunk.signature[:])
		switch {
		case s == sigEND:
			ch := chunkEnd{}
			n, err = ch.ReadFrom(payload)
			chunk = &ch
		case s != sigMETA && s != sigSTAG && s != sigPRVW:
			chunk = &chunkUnknown{Sig: rawChunk.signature, Bytes: rawChunk.payload}
			warns = append(warns, ChunkError{Index: i, Sig: rawChunk.signature, Cause: errUnknownChunkSig})
		case want != nil && !want(s):
			chunk = &chunkUnknown{Sig: rawChunk.signature, Bytes: rawChunk.payload}
		case s == sigMETA:
			ch := chunkMeta{}
			n, err = ch.ReadFrom(payload)
			chunk = &ch
		case s == sigSTAG:
			ch := chunkStage{}
			n, err = ch.ReadFrom(payload)
			chunk = &ch
		default:
			ch := chunkPreview{}
			n, err = ch.ReadFrom(payload)
			chunk = &ch
		}

		chunk.SetCompressed(rawChunk.compressed)

		if err != nil {
			cerr := ChunkError{Index: i, Sig: rawChunk.signature, Cause: err}
			if s == sigSTAG || s == sigPRVW {
				// A graph that cannot be decoded is not recoverable.
				return nil, warns.Return(), binio.DataError{Offset: n, Cause: cerr}
			}
			warns = append(warns, cerr)
			f.Chunks = append(f.Chunks, &chunkErrored{
				chunk:  chunk,
				Offset: n,
				Cause:  err,
				Bytes:  rawChunk.payload,
			})
			continue
		}

		f.Chunks = append(f.Chunks, chunk)

		if chunk, ok := chunk.(*chunkEnd); ok {
			if chunk.Compressed() {
				warns = append(warns, errEndChunkCompressed)
			}
			if !bytes.Equal(chunk.Content, []byte(endContent)) {
				warns = append(warns, errEndChunkContent)
			}
			break
		}
	}

	if err = decodeError(fr, nil); err != nil {
		return nil, warns.Return(), err
	}
	return f, warns.Return(), nil
}
