package binio

import (
	"bytes"
	"io"

	"github.com/anaminus/parse"
	"golang.org/x/crypto/blake2b"
)

// Writer accumulates the side channel while the structural payload is being
// encoded. The zero value is not usable; use NewWriter.
type Writer struct {
	buf bytes.Buffer

	// Identical byte blobs share one Range.
	blobs map[[blake2b.Size256]byte]Range

	// NoDedup disables sharing of identical byte blobs.
	NoDedup bool
}

// NewWriter returns an empty side channel writer.
func NewWriter() *Writer {
	return &Writer{blobs: map[[blake2b.Size256]byte]Range{}}
}

// Len returns the current length of the side channel, which is the absolute
// offset of the next array written.
func (w *Writer) Len() int64 {
	return int64(w.buf.Len())
}

// Bytes returns the content written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteTo flushes the side channel to dst.
func (w *Writer) WriteTo(dst io.Writer) (n int64, err error) {
	return w.buf.WriteTo(dst)
}

func (w *Writer) put(fn func(fw *parse.BinaryWriter) bool) (*Range, error) {
	start := w.Len()
	fw := parse.NewBinaryWriter(&w.buf)
	fn(fw)
	n, err := fw.End()
	if err != nil {
		return nil, DataError{Offset: start + n, Cause: err}
	}
	return &Range{Start: uint64(start), Length: uint64(n)}, nil
}

// WriteArray appends a to the side channel and returns its Range. A nil
// slice is absent, and produces a nil Range.
func WriteArray[T any](w *Writer, e Element[T], a []T) (*Range, error) {
	if a == nil {
		return nil, nil
	}
	return w.put(func(fw *parse.BinaryWriter) bool {
		return PutArray(fw, e, a)
	})
}

// WriteBytes appends b to the side channel and returns its Range. Unless
// NoDedup is set, a blob identical to one previously written reuses the
// earlier Range.
func (w *Writer) WriteBytes(b []byte) (*Range, error) {
	if b == nil {
		return nil, nil
	}
	var sum [blake2b.Size256]byte
	if !w.NoDedup {
		sum = blake2b.Sum256(b)
		if r, ok := w.blobs[sum]; ok {
			return &r, nil
		}
	}
	r, err := w.put(func(fw *parse.BinaryWriter) bool {
		return PutBytes(fw, b)
	})
	if err != nil {
		return nil, err
	}
	if !w.NoDedup {
		if w.blobs == nil {
			w.blobs = map[[blake2b.Size256]byte]Range{}
		}
		w.blobs[sum] = *r
	}
	return r, nil
}

// Reader resolves Ranges against a fully loaded side channel.
type Reader struct {
	data []byte
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{data: b}
}

// Len returns the length of the side channel.
func (r *Reader) Len() int64 {
	return int64(len(r.data))
}

func (r *Reader) get(rg *Range, fn func(fr *parse.BinaryReader) bool) error {
	if rg.Length > uint64(len(r.data)) || rg.Start > uint64(len(r.data))-rg.Length {
		return RangeError{Range: *rg, End: -1, Cause: io.ErrUnexpectedEOF}
	}
	fr := parse.NewBinaryReader(bytes.NewReader(r.data[rg.Start:rg.End()]))
	fn(fr)
	n, err := fr.End()
	if err != nil {
		return RangeError{Range: *rg, End: int64(rg.Start) + n, Cause: err}
	}
	if uint64(n) != rg.Length {
		return RangeError{Range: *rg, End: int64(rg.Start) + n}
	}
	return nil
}

// ReadArray decodes the array located by rg. A nil rg yields a nil slice.
// Reading must end exactly at the end of the range; otherwise a RangeError
// is returned.
func ReadArray[T any](r *Reader, e Element[T], rg *Range) (a []T, err error) {
	if rg == nil {
		return nil, nil
	}
	err = r.get(rg, func(fr *parse.BinaryReader) bool {
		var count int32
		if fr.Number(&count) {
			return true
		}
		if count < 0 {
			fr.Add(0, errNegativeCount)
			return true
		}
		if uint64(count)*uint64(e.Size) > rg.Length-zArrayLen {
			fr.Add(0, errCountTooLarge)
			return true
		}
		a = make([]T, count)
		for i := range a {
			if e.Get(fr, &a[i]) {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ReadBytes decodes the byte array located by rg. A nil rg yields a nil
// slice.
func (r *Reader) ReadBytes(rg *Range) (b []byte, err error) {
	if rg == nil {
		return nil, nil
	}
	err = r.get(rg, func(fr *parse.BinaryReader) bool {
		var n int32
		if fr.Number(&n) {
			return true
		}
		if n < 0 {
			fr.Add(0, errNegativeCount)
			return true
		}
		if uint64(n) > rg.Length-zArrayLen {
			fr.Add(0, errCountTooLarge)
			return true
		}
		b = make([]byte, n)
		return fr.Bytes(b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}
