package binio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func readBack[T any](t *testing.T, r *Reader, e Element[T], rg *Range, want []T) {
	t.Helper()
	got, err := ReadArray(r, e, rg)
	if err != nil {
		t.Error("unexpected error:", err)
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	w := NewWriter()

	// Leading garbage so ranges do not start at zero.
	if _, err := w.WriteBytes([]byte{1, 2, 3}); err != nil {
		t.Fatal("unexpected error:", err)
	}

	points := []mgl32.Vec3{{0, 0, 0}, {1, 2, 3}, {-4.5, 0.25, 1e6}}
	rotations := []mgl32.Quat{mgl32.QuatIdent(), {W: 0.5, V: mgl32.Vec3{0.5, 0.5, 0.5}}}
	widths := []float32{0.1, 0.2, 0.3, 0.4}
	indices := []int32{0, 1, 2, -1}
	uvs := []mgl32.Vec2{{0, 1}, {1, 0}}

	rp, err := WriteArray(w, Vec3, points)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	rr, err := WriteArray(w, Quat, rotations)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	rw, err := WriteArray(w, Float32, widths)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	ri, err := WriteArray(w, Int32, indices)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	ru, err := WriteArray(w, Vec2, uvs)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if rp.Start != 7 {
		t.Error("expected points at 7, got:", rp.Start)
	}
	if want := uint64(zArrayLen + len(points)*Vec3.Size); rp.Length != want {
		t.Errorf("expected points length %d, got %d", want, rp.Length)
	}
	if rr.Start != rp.End() {
		t.Errorf("expected rotations at %d, got %d", rp.End(), rr.Start)
	}

	r := NewReader(bytes.Clone(w.Bytes()))
	readBack(t, r, Vec3, rp, points)
	readBack(t, r, Quat, rr, rotations)
	readBack(t, r, Float32, rw, widths)
	readBack(t, r, Int32, ri, indices)
	readBack(t, r, Vec2, ru, uvs)
}

func TestQuatFieldOrder(t *testing.T) {
	w := NewWriter()
	rg, err := WriteArray(w, Quat, []mgl32.Quat{{W: 4, V: mgl32.Vec3{1, 2, 3}}})
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	b := w.Bytes()[rg.Start+zArrayLen:]
	for i, want := range []float32{1, 2, 3, 4} {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])); got != want {
			t.Errorf("component %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestNilRange(t *testing.T) {
	w := NewWriter()
	rg, err := WriteArray[float32](w, Float32, nil)
	if err != nil || rg != nil {
		t.Error("expected nil range, got:", rg, err)
	}
	if w.Len() != 0 {
		t.Error("expected empty channel, got length:", w.Len())
	}

	if a, err := ReadArray(NewReader(nil), Float32, nil); err != nil || a != nil {
		t.Error("expected nil array, got:", a, err)
	}
	if b, err := NewReader(nil).ReadBytes(nil); err != nil || b != nil {
		t.Error("expected nil bytes, got:", b, err)
	}
}

func TestEmptyArray(t *testing.T) {
	w := NewWriter()
	rg, err := WriteArray(w, Float32, []float32{})
	if err != nil || rg == nil {
		t.Fatal("expected range, got:", rg, err)
	}
	if rg.Length != zArrayLen {
		t.Error("expected count-only length, got:", rg.Length)
	}

	a, err := ReadArray(NewReader(w.Bytes()), Float32, rg)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if a == nil || len(a) != 0 {
		t.Errorf("expected empty non-nil array, got %#v", a)
	}
}

func TestRangeMismatch(t *testing.T) {
	w := NewWriter()
	rg, err := WriteArray(w, Float32, []float32{1, 2, 3})
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	w.buf.Write([]byte{0, 0, 0, 0})

	long := *rg
	long.Length += 4
	short := *rg
	short.Length -= 4
	for _, tt := range []struct {
		name string
		rg   Range
	}{
		{"long", long},
		{"short", short},
		{"outside", Range{Start: 100, Length: 8}},
	} {
		_, err := ReadArray(NewReader(w.Bytes()), Float32, &tt.rg)
		if !errors.Is(err, ErrCorruptContainer) {
			t.Errorf("%s: expected corrupt container, got: %v", tt.name, err)
		}
	}

	_, err = ReadArray(NewReader(w.Bytes()), Float32, &long)
	var rerr RangeError
	if !errors.As(err, &rerr) {
		t.Fatal("expected RangeError, got:", err)
	}
	if rerr.End != int64(rg.End()) {
		t.Errorf("expected end %d, got %d", rg.End(), rerr.End)
	}
}

func TestNegativeCount(t *testing.T) {
	data := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := NewReader(data).ReadBytes(&Range{Start: 0, Length: 4}); !errors.Is(err, ErrCorruptContainer) {
		t.Error("expected corrupt container, got:", err)
	}
}

func TestBytesDedup(t *testing.T) {
	w := NewWriter()
	a, err := w.WriteBytes([]byte("texture"))
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	b, _ := w.WriteBytes([]byte("texture"))
	c, _ := w.WriteBytes([]byte("other"))
	if *a != *b {
		t.Errorf("expected shared range, got %v and %v", *a, *b)
	}
	if *a == *c {
		t.Error("expected distinct range for distinct content, got:", *c)
	}

	got, err := NewReader(w.Bytes()).ReadBytes(b)
	if err != nil || string(got) != "texture" {
		t.Errorf("expected %q, got %q (%v)", "texture", got, err)
	}

	w = NewWriter()
	w.NoDedup = true
	a, _ = w.WriteBytes([]byte("texture"))
	b, _ = w.WriteBytes([]byte("texture"))
	if a.Start == b.Start {
		t.Error("expected separate copies with NoDedup, got start:", a.Start)
	}
}
