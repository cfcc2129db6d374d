package audiocodec

import (
	"errors"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// Clip is a decoded clip of interleaved samples.
type Clip struct {
	Samples   []float32
	Channels  int
	Frequency int
}

// Seconds returns the duration of the clip.
func (c Clip) Seconds() float32 {
	if c.Channels <= 0 || c.Frequency <= 0 {
		return 0
	}
	return float32(len(c.Samples)/c.Channels) / float32(c.Frequency)
}

var ErrChannels = errors.New("only mono and stereo clips are supported")

// ImportWAV decodes a WAV stream into a clip.
func ImportWAV(r io.Reader) (Clip, error) {
	s, format, err := wav.Decode(r)
	if err != nil {
		return Clip{}, err
	}
	defer s.Close()

	channels := format.NumChannels
	if channels != 1 && channels != 2 {
		return Clip{}, ErrChannels
	}
	clip := Clip{
		Channels:  channels,
		Frequency: int(format.SampleRate),
		Samples:   make([]float32, 0, s.Len()*channels),
	}
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			clip.Samples = append(clip.Samples, float32(frame[0]))
			if channels == 2 {
				clip.Samples = append(clip.Samples, float32(frame[1]))
			}
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return Clip{}, err
	}
	return clip, nil
}

// ExportWAV encodes a clip as 16-bit WAV.
func ExportWAV(w io.WriteSeeker, c Clip) error {
	if c.Channels != 1 && c.Channels != 2 {
		return ErrChannels
	}
	if err := checkFormat(len(c.Samples), c.Channels, c.Frequency); err != nil {
		return err
	}
	pos := 0
	frames := len(c.Samples) / c.Channels
	stream := beep.StreamerFunc(func(buf [][2]float64) (n int, ok bool) {
		for n < len(buf) && pos < frames {
			l := float64(c.Samples[pos*c.Channels])
			r := l
			if c.Channels == 2 {
				r = float64(c.Samples[pos*c.Channels+1])
			}
			buf[n] = [2]float64{l, r}
			n++
			pos++
		}
		return n, n > 0
	})
	format := beep.Format{
		SampleRate:  beep.SampleRate(c.Frequency),
		NumChannels: c.Channels,
		Precision:   2,
	}
	return wav.Encode(w, stream, format)
}
