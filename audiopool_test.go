package stagefile

import (
	"math"
	"runtime"
	"testing"

	"github.com/stagefmt/stagefile/audiocodec"
	"github.com/stagefmt/stagefile/binio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, seconds float64, rate int) []float32 {
	n := int(seconds * float64(rate))
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return s
}

func rmsError(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(a)))
}

func TestAudioPoolIdempotent(t *testing.T) {
	p := NewAudioPool()
	s := sine(440, 0.5, 8000)
	k1, err := p.Add(s, 1, 8000)
	require.NoError(t, err)
	k2, err := p.Add(s, 1, 8000)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Equal(t, 1, p.Len())

	k3, err := p.Add(sine(220, 0.5, 8000), 1, 8000)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, 2, p.Len())
}

func TestAudioKeyLength(t *testing.T) {
	k := KeyOf([]byte{1, 2, 3})
	other := k
	other.Length++
	assert.NotEqual(t, k, other)
	assert.False(t, k.IsZero())
	assert.True(t, AudioKey{}.IsZero())
}

func TestAudioPoolPrune(t *testing.T) {
	p := NewAudioPool()
	a := p.Insert(AudioEntry{Channels: 1, Frequency: 100, Data: []byte("a")})
	b := p.Insert(AudioEntry{Channels: 1, Frequency: 100, Data: []byte("b")})
	c := p.Insert(AudioEntry{Channels: 1, Frequency: 100, Data: []byte("c")})
	missing := KeyOf([]byte("d"))

	p.Prune(map[AudioKey]struct{}{a: {}, c: {}, missing: {}})
	assert.True(t, p.Contains(a))
	assert.False(t, p.Contains(b))
	assert.True(t, p.Contains(c))
	assert.False(t, p.Contains(missing))
	assert.Equal(t, 2, p.Len())
}

func TestAudioPoolRetrieveSine(t *testing.T) {
	p := NewAudioPool()
	s := sine(440, 1, 44100)
	key, err := p.Add(s, 1, 44100)
	require.NoError(t, err)

	e, ok := p.Entry(key)
	require.True(t, ok)
	assert.Equal(t, audiocodec.Raw, e.StorageType)

	clip, err := p.Retrieve(key)
	require.NoError(t, err)
	require.Len(t, clip.Samples, len(s))
	assert.Less(t, rmsError(s, clip.Samples), 1e-4)
	assert.Equal(t, 44100, clip.Frequency)

	again, err := p.Retrieve(key)
	require.NoError(t, err)
	assert.Same(t, &clip.Samples[0], &again.Samples[0])
}

func TestAudioPoolRetrieveMissing(t *testing.T) {
	_, err := NewAudioPool().Retrieve(KeyOf([]byte("x")))
	assert.ErrorIs(t, err, ErrAudioKey)
}

func TestAudioPoolRetrieveAsync(t *testing.T) {
	p := NewAudioPool()
	key, err := p.Add(sine(440, 0.1, 8000), 1, 8000)
	require.NoError(t, err)
	clip, err := p.RetrieveAsync(key).Pump(runtime.Gosched)
	require.NoError(t, err)
	assert.Len(t, clip.Samples, 800)
}

func TestAudioPoolRoundTrip(t *testing.T) {
	p := NewAudioPool()
	key, err := p.Add(sine(440, 0.1, 8000), 1, 8000)
	require.NoError(t, err)
	w := binio.NewWriter()
	recs, err := encodeAudioPool(p, w)
	require.NoError(t, err)

	got, warn, err := decodeAudioPool(recs, binio.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, warn)
	want, _ := p.Entry(key)
	e, ok := got.Entry(key)
	require.True(t, ok)
	assert.Equal(t, want, e)
}

func TestAudioPoolMismatchedKey(t *testing.T) {
	p := NewAudioPool()
	p.Insert(AudioEntry{Channels: 1, Frequency: 100, Data: []byte("abc")})
	w := binio.NewWriter()
	recs, err := encodeAudioPool(p, w)
	require.NoError(t, err)
	recs[0].Hash, recs[0].Length = encodeAudioKey(KeyOf([]byte("xyz")))

	got, warn, err := decodeAudioPool(recs, binio.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Len(t, warn, 1)
	assert.Equal(t, 0, got.Len())
}
