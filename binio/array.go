package binio

import "github.com/anaminus/parse"

// PutArray writes the element count of a followed by each element.
func PutArray[T any](fw *parse.BinaryWriter, e Element[T], a []T) (failed bool) {
	if fw.Number(int32(len(a))) {
		return true
	}
	for _, v := range a {
		if e.Put(fw, v) {
			return true
		}
	}
	return false
}

// GetArray reads an array written by PutArray into a.
func GetArray[T any](fr *parse.BinaryReader, e Element[T], a *[]T) (failed bool) {
	var count int32
	if fr.Number(&count) {
		return true
	}
	if count < 0 {
		fr.Add(0, errNegativeCount)
		return true
	}
	if count > maxInlineCount {
		fr.Add(0, errCountTooLarge)
		return true
	}
	// Grow as elements arrive so that a corrupt count fails at the end of
	// the data instead of allocating up front.
	r := make([]T, 0, min(int(count), growChunk))
	for i := 0; i < int(count); i++ {
		var v T
		if e.Get(fr, &v) {
			return true
		}
		r = append(r, v)
	}
	*a = r
	return false
}

// PutBytes writes b prefixed with its int32 length.
func PutBytes(fw *parse.BinaryWriter, b []byte) (failed bool) {
	if fw.Number(int32(len(b))) {
		return true
	}
	return fw.Bytes(b)
}

// GetBytes reads a byte array written by PutBytes.
func GetBytes(fr *parse.BinaryReader, b *[]byte) (failed bool) {
	var n int32
	if fr.Number(&n) {
		return true
	}
	if n < 0 {
		fr.Add(0, errNegativeCount)
		return true
	}
	if n > maxInlineCount {
		fr.Add(0, errCountTooLarge)
		return true
	}
	r := make([]byte, 0, min(int(n), growChunk))
	for len(r) < int(n) {
		k := min(int(n)-len(r), growChunk)
		r = append(r, make([]byte, k)...)
		if fr.Bytes(r[len(r)-k:]) {
			return true
		}
	}
	*b = r
	return false
}
