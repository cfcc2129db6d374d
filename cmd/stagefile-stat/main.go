// The stagefile-stat command displays stats for a stage file.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/container"
	"github.com/stagefmt/stagefile/legacy"
)

const usage = `usage: stagefile-stat [FLAGS] [INPUT] [OUTPUT]

Reads a stage file from INPUT, and writes to OUTPUT statistics for the file.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Warnings and
errors are written to stderr.

FLAGS:
`

type LineLen struct {
	Path   string
	Frame  int
	Line   int
	Brush  string
	Points int
}

func (l LineLen) String() string {
	return fmt.Sprintf("%s[%d].%d:%s(%d)", l.Path, l.Frame, l.Line, l.Brush, l.Points)
}

type LineLenCount map[LineLen]int

func (p LineLenCount) MarshalJSON() ([]byte, error) {
	list := []LineLen{}
	for k := range p {
		list = append(list, k)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Points > list[j].Points
	})
	if len(list) > 20 {
		list = list[:20]
	}
	return json.Marshal(list)
}

type Preview struct {
	Kind string
	Size int
}

type Stats struct {
	// Archive layout.
	Format container.Info

	Name            string
	Fps             float32
	SaveDataVersion int

	// Number of playables overall.
	PlayableCount int

	// Number of playables per kind.
	KindCount map[string]int

	FrameCount int
	LineCount  int
	PointCount int

	// Number of lines per brush type.
	BrushCount map[string]int

	AudioClips int
	AudioBytes int

	Previews []Preview `json:",omitempty"`

	LargestLines LineLenCount `json:",omitempty"`
}

func (s *Stats) addFrames(path string, frames []*stagefile.Frame) {
	s.FrameCount += len(frames)
	for i, f := range frames {
		for j, l := range f.Lines {
			s.LineCount++
			s.PointCount += l.Len()
			s.BrushCount[l.BrushType.String()]++
			s.LargestLines[LineLen{
				Path:   path,
				Frame:  i,
				Line:   j,
				Brush:  l.BrushType.String(),
				Points: l.Len(),
			}]++
		}
	}
}

func (s *Stats) Fill(stage *stagefile.Stage) {
	if stage == nil {
		return
	}
	s.Name = stage.Name
	s.Fps = stage.Fps
	s.SaveDataVersion = stage.SaveDataVersion

	s.KindCount = map[string]int{}
	s.BrushCount = map[string]int{}
	s.LargestLines = LineLenCount{}
	stage.Walk(func(path string, p stagefile.Playable) bool {
		s.PlayableCount++
		s.KindCount[p.Kind().String()]++
		switch p := p.(type) {
		case *stagefile.TimeLine:
			s.addFrames(path, p.Frames)
		case *stagefile.Puppet:
			s.addFrames(path, p.Frames)
		}
		return true
	})

	if stage.AudioPool != nil {
		for _, key := range stage.AudioPool.Keys() {
			e, _ := stage.AudioPool.Entry(key)
			s.AudioClips++
			s.AudioBytes += len(e.Data)
		}
	}

	for _, b := range stage.Previews {
		s.Previews = append(s.Previews, Preview{Kind: legacy.PreviewKind(b), Size: len(b)})
	}
}

func main() {
	var input io.Reader = os.Stdin
	var output io.Writer = os.Stdout

	level := flag.String("log", "warn", "log level: debug, info, warn or error")
	dump := flag.String("dump", "", "write a dump of the legacy `ENTRY` (stage or preview) instead of stats")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(*level)); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("log level: %w", err))
		os.Exit(2)
	}
	stagefile.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))

	args := flag.Args()
	if len(args) >= 1 && args[0] != "-" {
		in, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("open input: %w", err))
			return
		}
		input = in
		defer in.Close()
	}
	if len(args) >= 2 && args[1] != "-" {
		out, err := os.Create(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("create output: %w", err))
			return
		}
		defer out.Close()
		defer func() {
			err := out.Sync()
			if err != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("sync output: %w", err))
				return
			}
		}()
		output = out
	}

	// Archives need random access.
	data, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("read input: %w", err))
		return
	}
	r := bytes.NewReader(data)

	if *dump != "" {
		entry, err := container.Entry(r, r.Size(), *dump)
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("read entry: %w", err))
			return
		}
		warn, err := legacy.Decoder{}.Dump(output, bytes.NewReader(entry))
		if warn != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("dump warning: %w", warn))
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("dump error: %w", err))
		}
		return
	}

	var stats Stats
	if stats.Format, err = container.Inspect(r, r.Size()); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("inspect error: %w", err))
	}
	stage, warn, err := container.Decoder{}.Decode(r, r.Size())
	if warn != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decode warning: %w", warn))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decode error: %w", err))
	}

	stats.Fill(stage)

	je := json.NewEncoder(output)
	je.SetEscapeHTML(false)
	je.SetIndent("", "\t")
	if err := je.Encode(stats); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("write error: %w", err))
	}
}
