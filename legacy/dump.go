package legacy

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/errors"
)

// Dump writes to w a readable representation of the binary graph format
// decoded from r.
func (d Decoder) Dump(w io.Writer, r io.Reader) (warn, err error) {
	if r == nil {
		return nil, errors.New("nil reader")
	}
	if w == nil {
		return nil, errors.New("nil writer")
	}

	f, warn, err := d.decode(r, nil)
	if err != nil {
		return warn, err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Version: %d", f.Version)
	fmt.Fprint(bw, "\nChunks: {")
	for i, chunk := range f.Chunks {
		dumpChunk(bw, 1, i, chunk)
	}
	fmt.Fprint(bw, "\n}\n")

	return warn, bw.Flush()
}

func dumpChunk(w *bufio.Writer, indent, i int, chunk chunk) {
	dumpNewline(w, indent)
	if i >= 0 {
		fmt.Fprintf(w, "#%d: ", i)
	}
	dumpSig(w, chunk.Signature())
	if chunk.Compressed() {
		w.WriteString(" (compressed) {")
	} else {
		w.WriteString(" (uncompressed) {")
	}
	switch chunk := chunk.(type) {
	case *chunkMeta:
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Count: %d", len(chunk.Values))
		for _, p := range chunk.Values {
			dumpNewline(w, indent+1)
			w.WriteByte('{')
			dumpNewline(w, indent+2)
			w.WriteString("Key: ")
			dumpString(w, indent+2, p[0])
			dumpNewline(w, indent+2)
			w.WriteString("Value: ")
			dumpString(w, indent+2, p[1])
			dumpNewline(w, indent+1)
			w.WriteByte('}')
		}
	case *chunkStage:
		s := chunk.Stage
		dumpNewline(w, indent+1)
		w.WriteString("Name: ")
		dumpString(w, indent+1, s.Name)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Fps: %g", s.Fps)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "SaveDataVersion: %d", s.SaveDataVersion)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "AudioPool: (count:%d)", s.AudioPool.Len())
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "LUTs: (count:%d)", len(s.LUTs))
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Symbols: (count:%d) {", len(s.Symbols))
		for _, sym := range s.Symbols {
			dumpPlayable(w, indent+2, sym)
		}
		dumpNewline(w, indent+1)
		w.WriteByte('}')
	case *chunkPreview:
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Images: (count:%d) {", len(chunk.Images))
		for i, b := range chunk.Images {
			dumpNewline(w, indent+2)
			fmt.Fprintf(w, "%d: %s (len:%d)", i, PreviewKind(b), len(b))
		}
		dumpNewline(w, indent+1)
		w.WriteByte('}')
	case *chunkEnd:
		dumpNewline(w, indent+1)
		w.WriteString("Content: ")
		dumpString(w, indent+1, string(chunk.Content))
	case *chunkUnknown:
		dumpNewline(w, indent+1)
		w.WriteString("<unknown chunk signature>")
		dumpNewline(w, indent+1)
		w.WriteString("Bytes: ")
		dumpBytes(w, indent+1, chunk.Bytes)
	case *chunkErrored:
		dumpNewline(w, indent+1)
		w.WriteString("<errored chunk>")
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Offset: %d", chunk.Offset)
		dumpNewline(w, indent+1)
		fmt.Fprintf(w, "Error: %s", chunk.Cause)
		dumpNewline(w, indent+1)
		w.WriteString("Bytes: ")
		dumpBytes(w, indent+1, chunk.Bytes)
	}
	dumpNewline(w, indent)
	w.WriteByte('}')
}

func dumpPlayable(w *bufio.Writer, indent int, p stagefile.Playable) {
	b := p.Base()
	dumpNewline(w, indent)
	fmt.Fprintf(w, "%s ", p.Kind())
	dumpString(w, indent, b.Name)
	switch p := p.(type) {
	case *stagefile.TimeLine:
		points := 0
		for _, f := range p.Frames {
			points += f.PointCount()
		}
		fmt.Fprintf(w, " (frames:%d) (points:%d)", len(p.Frames), points)
	case *stagefile.Symbol:
		fmt.Fprintf(w, " (count:%d) {", len(p.Playables))
		for _, c := range p.Playables {
			dumpPlayable(w, indent+1, c)
		}
		dumpNewline(w, indent)
		w.WriteByte('}')
	}
}

func dumpNewline(w *bufio.Writer, indent int) {
	w.WriteByte('\n')
	for i := 0; i < indent; i++ {
		w.WriteByte('\t')
	}
}

func dumpSig(w *bufio.Writer, sig [4]byte) {
	for _, c := range sig {
		if unicode.IsPrint(rune(c)) {
			w.WriteByte(c)
		} else {
			w.WriteByte('.')
		}
	}
	fmt.Fprintf(w, " (% 02X)", sig)
}

func dumpString(w *bufio.Writer, indent int, s string) {
	for _, r := range s {
		if !unicode.IsGraphic(r) {
			dumpBytes(w, indent, []byte(s))
			return
		}
	}
	fmt.Fprintf(w, "(len:%d) ", len(s))
	w.WriteString(strconv.Quote(s))
}

func dumpBytes(w *bufio.Writer, indent int, b []byte) {
	fmt.Fprintf(w, "(len:%d)", len(b))
	const width = 16
	for j := 0; j < len(b); j += width {
		dumpNewline(w, indent+1)
		w.WriteString("| ")
		for i := j; i < j+width; {
			if i < len(b) {
				s := strconv.FormatUint(uint64(b[i]), 16)
				if len(s) == 1 {
					w.WriteString("0")
				}
				w.WriteString(s)
			} else if len(b) < width {
				break
			} else {
				w.WriteString("  ")
			}
			i++
			if i%8 == 0 && i < j+width {
				w.WriteString("  ")
			} else {
				w.WriteString(" ")
			}
		}
		w.WriteString("|")
		n := min(len(b), j+width)
		for i := j; i < n; i++ {
			if 32 <= b[i] && b[i] <= 126 {
				w.WriteRune(rune(b[i]))
			} else {
				w.WriteByte('.')
			}
		}
		w.WriteByte('|')
	}
}
