// Package config holds the settings of the stagefile tools.
//
// Configuration files are TOML or YAML, selected by file extension. Fields
// absent from a file keep their default values.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/stagefmt/stagefile/tube"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of a tool.
type Config struct {
	Simplify Simplify `toml:"simplify" yaml:"simplify"`
	Mesh     Mesh     `toml:"mesh" yaml:"mesh"`
	Log      Log      `toml:"log" yaml:"log"`
}

// Simplify configures stroke simplification.
type Simplify struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// Factor scales every simplification threshold.
	Factor float32 `toml:"factor" yaml:"factor"`
}

// Mesh configures tube mesh generation.
type Mesh struct {
	Subdivisions      int     `toml:"subdivisions" yaml:"subdivisions"`
	CrossSectionScale float32 `toml:"cross_section_scale" yaml:"cross_section_scale"`
	TaperLength       float32 `toml:"taper_length" yaml:"taper_length"`
	Strands           int     `toml:"strands" yaml:"strands"`
}

// Log configures logging.
type Log struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`
}

// Default returns the default configuration.
func Default() Config {
	o := tube.DefaultOptions()
	return Config{
		Simplify: Simplify{Enabled: true, Factor: 1},
		Mesh: Mesh{
			Subdivisions:      o.Subdivisions,
			CrossSectionScale: o.CrossSectionScale,
			TaperLength:       o.TaperLength,
			Strands:           o.Strands,
		},
		Log: Log{Level: "info"},
	}
}

// TubeOptions returns the mesh options of c.
func (c Config) TubeOptions() tube.Options {
	return tube.Options{
		Subdivisions:      c.Mesh.Subdivisions,
		CrossSectionScale: c.Mesh.CrossSectionScale,
		TaperLength:       c.Mesh.TaperLength,
		Strands:           c.Mesh.Strands,
	}
}

// SlogLevel parses the level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}

// Validate returns an error describing the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Simplify.Factor <= 0:
		return fmt.Errorf("simplify.factor must be positive, got %v", c.Simplify.Factor)
	case c.Mesh.Subdivisions < 1:
		return fmt.Errorf("mesh.subdivisions must be at least 1, got %d", c.Mesh.Subdivisions)
	case c.Mesh.CrossSectionScale <= 0:
		return fmt.Errorf("mesh.cross_section_scale must be positive, got %v", c.Mesh.CrossSectionScale)
	case c.Mesh.TaperLength < 0:
		return fmt.Errorf("mesh.taper_length must not be negative, got %v", c.Mesh.TaperLength)
	case c.Mesh.Strands < 1:
		return fmt.Errorf("mesh.strands must be at least 1, got %d", c.Mesh.Strands)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Format is an encoding of a configuration file.
type Format int

const (
	TOML Format = iota
	YAML
)

// ErrUnknownFormat is returned for files whose extension selects no format.
var ErrUnknownFormat = errors.New("unknown config format")

// FormatOf returns the format selected by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// decoder is implemented by the decoders of each format.
type decoder interface {
	Decode(v any) error
}

type encoder interface {
	Encode(v any) error
}

func newDecoder(r io.Reader, f Format) decoder {
	if f == YAML {
		return yaml.NewDecoder(r)
	}
	return toml.NewDecoder(r)
}

func newEncoder(w io.Writer, f Format) encoder {
	if f == YAML {
		return yaml.NewEncoder(w)
	}
	return toml.NewEncoder(w)
}

// Decode reads a configuration in format f from r, over the defaults. The
// result is validated.
func Decode(r io.Reader, f Format) (Config, error) {
	c := Default()
	if err := newDecoder(r, f).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, err
	}
	return c, c.Validate()
}

// Encode writes c to w in format f.
func Encode(w io.Writer, f Format, c Config) error {
	e := newEncoder(w, f)
	if err := e.Encode(c); err != nil {
		return err
	}
	if closer, ok := e.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Load reads the configuration file at path. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	fp, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer fp.Close()
	c, err := Decode(bufio.NewReader(fp), f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
