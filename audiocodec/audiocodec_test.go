package audiocodec

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bkaradzic/go-lz4"
	"github.com/stagefmt/stagefile/binio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(hz float64, seconds float64, frequency, channels int) []float32 {
	frames := int(seconds * float64(frequency))
	samples := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		v := float32(0.8 * math.Sin(2*math.Pi*hz*float64(i)/float64(frequency)))
		for c := 0; c < channels; c++ {
			samples[i*channels+c] = v
		}
	}
	return samples
}

func assertClose(t *testing.T, want, got []float32, delta float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if !assert.InDelta(t, want[i], got[i], delta, "sample %d", i) {
			return
		}
	}
}

func TestRawRoundTrip(t *testing.T) {
	samples := sine(440, 0.5, 8000, 2)
	data, st, err := Default.Encode(samples, 2, 8000)
	require.NoError(t, err)
	assert.Equal(t, Raw, st)

	got, err := Default.Decode(data, 2, 8000, st)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestCompressedRoundTrip(t *testing.T) {
	samples := sine(440, 0.5, 8000, 1)
	samples = append(samples, 1, -1, 0)
	c := Codec{MaxRawSeconds: 0}
	data, st, err := c.Encode(samples, 1, 8000)
	require.NoError(t, err)
	assert.Equal(t, Compressed, st)
	assert.Less(t, len(data), 4*len(samples))

	got, err := c.Decode(data, 1, 8000, st)
	require.NoError(t, err)
	assertClose(t, samples, got, 1.0/math.MaxInt16)
}

func TestRawThreshold(t *testing.T) {
	for _, tt := range []struct {
		seconds float64
		want    StorageType
	}{
		{19, Raw},
		{20, Compressed},
		{25, Compressed},
	} {
		_, st, err := Default.Encode(sine(5, tt.seconds, 100, 1), 1, 100)
		require.NoError(t, err)
		assert.Equal(t, tt.want, st, "%v seconds", tt.seconds)
	}
}

func TestFormatErrors(t *testing.T) {
	_, _, err := Default.Encode([]float32{0, 0}, 0, 8000)
	assert.ErrorIs(t, err, ErrFormat)
	_, _, err = Default.Encode([]float32{0, 0}, 1, 0)
	assert.ErrorIs(t, err, ErrFormat)
	_, _, err = Default.Encode([]float32{0, 0, 0}, 2, 8000)
	assert.ErrorIs(t, err, ErrSampleCount)

	data, st, err := Default.Encode([]float32{0, 0, 0}, 1, 8000)
	require.NoError(t, err)
	_, err = Default.Decode(data, 2, 8000, st)
	assert.ErrorIs(t, err, ErrSampleCount)
	_, err = Default.Decode(data, 1, 8000, StorageType(9))
	assert.ErrorIs(t, err, ErrStorageType)
	assert.Equal(t, "Invalid", StorageType(9).String())
}

func TestCorruptData(t *testing.T) {
	data, _, err := Default.Encode([]float32{0.5, 0.25}, 1, 8000)
	require.NoError(t, err)

	_, err = Default.Decode(data[:len(data)-1], 1, 8000, Raw)
	assert.ErrorIs(t, err, binio.ErrCorruptContainer)
	_, err = Default.Decode(append(data, 0), 1, 8000, Raw)
	assert.ErrorIs(t, err, binio.ErrCorruptContainer)

	_, err = Default.Decode([]byte{1, 2, 3}, 1, 8000, Compressed)
	assert.Error(t, err)

	odd, err := lz4.Encode(nil, []byte{1, 2, 3})
	require.NoError(t, err)
	_, err = Default.Decode(odd, 1, 8000, Compressed)
	assert.ErrorIs(t, err, binio.ErrCorruptContainer)
}

func exportFile(t *testing.T, c Clip) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, ExportWAV(f, c))
	require.NoError(t, f.Close())
	return path
}

func TestWAVRoundTrip(t *testing.T) {
	for _, channels := range []int{1, 2} {
		clip := Clip{Samples: sine(440, 0.25, 11025, channels), Channels: channels, Frequency: 11025}
		f, err := os.Open(exportFile(t, clip))
		require.NoError(t, err)
		got, err := ImportWAV(f)
		f.Close()
		require.NoError(t, err)

		assert.Equal(t, channels, got.Channels)
		assert.Equal(t, 11025, got.Frequency)
		assert.InDelta(t, clip.Seconds(), got.Seconds(), 1e-6)
		assertClose(t, clip.Samples, got.Samples, 1e-4)
	}
}

func TestExportChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	assert.ErrorIs(t, ExportWAV(f, Clip{Samples: make([]float32, 3), Channels: 3, Frequency: 8000}), ErrChannels)
	assert.ErrorIs(t, ExportWAV(f, Clip{Samples: make([]float32, 3), Channels: 2, Frequency: 8000}), ErrSampleCount)
}

func TestImportInvalid(t *testing.T) {
	_, err := ImportWAV(bytes.NewReader([]byte("not a wav file at all")))
	assert.Error(t, err)
}

func TestClipSeconds(t *testing.T) {
	assert.Equal(t, float32(0.5), Clip{Samples: make([]float32, 8000), Channels: 2, Frequency: 8000}.Seconds())
	assert.Zero(t, Clip{Samples: make([]float32, 10)}.Seconds())
}

func TestJob(t *testing.T) {
	release := make(chan struct{})
	j := Start(func() (Clip, error) {
		<-release
		return Clip{Samples: []float32{1}, Channels: 1, Frequency: 1}, nil
	})
	assert.False(t, j.Finished())
	assert.Panics(t, func() { j.Result() })

	close(release)
	clip, err := j.Pump(runtime.Gosched)
	require.NoError(t, err)
	assert.True(t, j.Finished())
	assert.Equal(t, []float32{1}, clip.Samples)
}

func TestImportJob(t *testing.T) {
	clip := Clip{Samples: sine(220, 0.1, 8000, 1), Channels: 1, Frequency: 8000}
	b, err := os.ReadFile(exportFile(t, clip))
	require.NoError(t, err)

	j := StartImport(bytes.NewReader(b))
	got, err := j.Pump(runtime.Gosched)
	require.NoError(t, err)
	assert.Equal(t, 8000, got.Frequency)
	assertClose(t, clip.Samples, got.Samples, 1e-4)
}
