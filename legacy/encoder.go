package legacy

import (
	"io"

	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/errors"
)

// Encoder encodes stages in the binary graph format.
type Encoder struct {
	// If Uncompressed is true, then chunks are written without compression.
	Uncompressed bool
}

func (e Encoder) model(chunks ...chunk) *formatModel {
	f := &formatModel{Version: 0}
	for _, c := range chunks {
		c.SetCompressed(!e.Uncompressed)
		f.Chunks = append(f.Chunks, c)
	}
	// The end chunk is never compressed.
	f.Chunks = append(f.Chunks, newChunkEnd())
	return f
}

// Encode writes stage to w, including its previews.
func (e Encoder) Encode(w io.Writer, stage *stagefile.Stage) error {
	if w == nil {
		return errors.New("nil writer")
	}
	if stage == nil {
		return errors.New("nil stage")
	}
	meta := &chunkMeta{Values: [][2]string{{"Name", stage.Name}}}
	f := e.model(meta, &chunkStage{Stage: stage}, &chunkPreview{Images: stage.Previews})
	_, err := f.WriteTo(w)
	return err
}

// EncodePreviews writes a file that contains only the given thumbnail
// images.
func (e Encoder) EncodePreviews(w io.Writer, images [][]byte) error {
	if w == nil {
		return errors.New("nil writer")
	}
	_, err := e.model(&chunkPreview{Images: images}).WriteTo(w)
	return err
}
