// Package audiocodec encodes audio samples for storage in a stage file.
//
// Short clips are stored raw, as single precision samples, so they decode
// exactly. Longer clips are quantized to 16 bits, delta coded and compressed
// with lz4. The choice is reported as a StorageType, which must be passed
// back to Decode.
package audiocodec

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/anaminus/parse"
	"github.com/bkaradzic/go-lz4"
	"github.com/stagefmt/stagefile/binio"
)

// StorageType indicates how encoded audio bytes are laid out.
type StorageType uint8

const (
	Raw StorageType = iota
	Compressed
)

func (t StorageType) String() string {
	switch t {
	case Raw:
		return "Raw"
	case Compressed:
		return "Compressed"
	default:
		return "Invalid"
	}
}

// DefaultMaxRawSeconds is the clip length below which clips are stored raw.
const DefaultMaxRawSeconds = 20

var (
	ErrStorageType = errors.New("unknown storage type")
	ErrFormat      = errors.New("invalid channel count or frequency")
	ErrSampleCount = errors.New("sample count does not match channel count")
)

// Codec encodes and decodes clips.
type Codec struct {
	// Clips shorter than MaxRawSeconds are stored raw.
	MaxRawSeconds float64
}

// Default is the codec used when none is specified.
var Default = Codec{MaxRawSeconds: DefaultMaxRawSeconds}

func checkFormat(samples, channels, frequency int) error {
	if channels <= 0 || frequency <= 0 {
		return ErrFormat
	}
	if samples%channels != 0 {
		return ErrSampleCount
	}
	return nil
}

// Encode encodes interleaved samples.
func (c Codec) Encode(samples []float32, channels, frequency int) (data []byte, st StorageType, err error) {
	if err := checkFormat(len(samples), channels, frequency); err != nil {
		return nil, 0, err
	}
	seconds := float64(len(samples)/channels) / float64(frequency)
	if seconds < c.MaxRawSeconds {
		data, err = encodeRaw(samples)
		return data, Raw, err
	}
	data, err = encodeCompressed(samples)
	return data, Compressed, err
}

// Decode decodes samples produced by Encode.
func (c Codec) Decode(data []byte, channels, frequency int, st StorageType) (samples []float32, err error) {
	switch st {
	case Raw:
		samples, err = decodeRaw(data)
	case Compressed:
		samples, err = decodeCompressed(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrStorageType, st)
	}
	if err != nil {
		return nil, err
	}
	if err := checkFormat(len(samples), channels, frequency); err != nil {
		return nil, err
	}
	return samples, nil
}

func encodeRaw(samples []float32) ([]byte, error) {
	var buf bytes.Buffer
	fw := parse.NewBinaryWriter(&buf)
	binio.PutArray(fw, binio.Float32, samples)
	if _, err := fw.End(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRaw(data []byte) (samples []float32, err error) {
	fr := parse.NewBinaryReader(bytes.NewReader(data))
	binio.GetArray(fr, binio.Float32, &samples)
	n, err := fr.End()
	if err != nil {
		return nil, binio.DataError{Offset: n, Cause: err}
	}
	if n != int64(len(data)) {
		return nil, binio.DataError{Offset: n, Cause: errors.New("trailing bytes")}
	}
	return samples, nil
}

func quantize(v float32) int16 {
	f := math.Round(float64(v) * math.MaxInt16)
	return int16(max(min(f, math.MaxInt16), math.MinInt16))
}

func encodeCompressed(samples []float32) ([]byte, error) {
	raw := make([]byte, 2*len(samples))
	var prev int16
	for i, s := range samples {
		q := quantize(s)
		d := uint16(q - prev)
		raw[2*i] = byte(d)
		raw[2*i+1] = byte(d >> 8)
		prev = q
	}
	return lz4.Encode(nil, raw)
}

func decodeCompressed(data []byte) ([]float32, error) {
	raw, err := lz4.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, binio.DataError{Offset: int64(len(raw)), Cause: errors.New("odd sample byte count")}
	}
	samples := make([]float32, len(raw)/2)
	var prev int16
	for i := range samples {
		d := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		prev += d
		samples[i] = float32(prev) / math.MaxInt16
	}
	return samples, nil
}
