// The stagefile-mesh command simplifies and tessellates the strokes of a
// stage file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/config"
	"github.com/stagefmt/stagefile/container"
)

const usage = `usage: stagefile-mesh [FLAGS] INPUT [OUTPUT]

Reads a stage file from INPUT, simplifies every stroke and generates its
geometry, and writes a report for each timeline to stdout.

If OUTPUT is given, the processed stage is written to it. With -bake, the
geometry of each timeline is included as a hidden static mesh.

INPUT and OUTPUT are paths to files. Warnings and errors are written to
stderr.

FLAGS:
`

func main() {
	configPath := flag.String("config", "", "read settings from a TOML or YAML `FILE`")
	bake := flag.Bool("bake", false, "add generated geometry to the output")
	thumb := flag.Int("thumb", 0, "rescale previews to fit within `SIZE` pixels")
	legacyFormat := flag.Bool("legacy", false, "write OUTPUT in the version 0 format")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("config: %w", err))
		os.Exit(2)
	}
	level, _ := cfg.Log.SlogLevel()
	stagefile.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Previews are only needed when they are rewritten.
	noPreview := *thumb <= 0 && len(args) < 2
	stage, warn, err := container.Decoder{NoPreview: noPreview}.DecodeFile(args[0])
	if warn != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decode warning: %w", warn))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decode error: %w", err))
		os.Exit(1)
	}

	reports := process(stage, cfg, *bake)

	if *thumb > 0 {
		if warn := thumbnails(stage, *thumb); warn != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("preview warning: %w", warn))
		}
	}

	if len(args) >= 2 {
		e := container.NewEncoder()
		if *legacyFormat {
			e = container.Encoder{}
		}
		if err := e.Save(args[1], stage); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("save error: %w", err))
			os.Exit(1)
		}
	}

	je := json.NewEncoder(os.Stdout)
	je.SetEscapeHTML(false)
	je.SetIndent("", "\t")
	if err := je.Encode(reports); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("write error: %w", err))
	}
}
