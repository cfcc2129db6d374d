package container

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/binio"
	"github.com/stagefmt/stagefile/errors"
	"github.com/stagefmt/stagefile/legacy"
)

// Decoder reads stage files.
type Decoder struct {
	// If NoPreview is true, the preview entry is not decoded.
	NoPreview bool
}

type archive struct {
	files   []*zip.File
	entries map[string]*zip.File
}

func openArchive(r io.ReaderAt, size int64) (*archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, binio.DataError{Offset: -1, Cause: err}
	}
	a := &archive{files: zr.File, entries: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		a.entries[f.Name] = f
	}
	return a, nil
}

func (a *archive) has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// read returns the content of an entry. A missing entry returns an
// EntryError wrapping ErrMissingEntry.
func (a *archive) read(name string) ([]byte, error) {
	f, ok := a.entries[name]
	if !ok {
		return nil, EntryError{Name: name, Cause: ErrMissingEntry}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, EntryError{Name: name, Cause: err}
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, EntryError{Name: name, Cause: err}
	}
	return b, nil
}

func (a *archive) version() (int, error) {
	if !a.has(EntryVersion) {
		return LegacyVersion, nil
	}
	b, err := a.read(EntryVersion)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || v < 0 {
		return 0, EntryError{Name: EntryVersion, Cause: fmt.Errorf("invalid version %q", b)}
	}
	return v, nil
}

func (d Decoder) previews(a *archive) ([][]byte, error) {
	b, err := a.read(EntryPreview)
	if err != nil {
		return nil, err
	}
	images, _, err := legacy.Decoder{}.DecodePreviews(bytes.NewReader(b))
	if err != nil {
		return nil, EntryError{Name: EntryPreview, Cause: err}
	}
	return images, nil
}

// Decode reads a stage file of the given size from r. Problems that do not
// prevent loading are returned as warnings. Stage upgrades are applied to
// the result.
func (d Decoder) Decode(r io.ReaderAt, size int64) (s *stagefile.Stage, warn, err error) {
	a, err := openArchive(r, size)
	if err != nil {
		return nil, nil, err
	}
	version, err := a.version()
	if err != nil {
		return nil, nil, err
	}

	var warns errors.Errors
	if version > FormatVersion {
		warns = warns.Append(fmt.Errorf("format version %d is newer than %d", version, FormatVersion))
	}

	data, err := a.read(EntryStage)
	if err != nil {
		return nil, nil, err
	}

	if version == LegacyVersion {
		s, warn, err = legacy.Decoder{NoPreview: d.NoPreview}.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, warn, EntryError{Name: EntryStage, Cause: err}
		}
		warns = warns.Append(warn)
	} else {
		bin, err := a.read(EntryBin)
		if err != nil {
			return nil, nil, err
		}
		s, warn, err = stagefile.UnmarshalStage(data, binio.NewReader(bin))
		if err != nil {
			return nil, warn, EntryError{Name: EntryStage, Cause: err}
		}
		warns = warns.Append(warn)
	}

	if !d.NoPreview && a.has(EntryPreview) {
		images, err := d.previews(a)
		if err != nil {
			warns = warns.Append(err)
		} else if len(images) > 0 || s.Previews == nil {
			s.Previews = images
		}
	}

	s.Upgrade()
	return s, warns.Return(), nil
}

// DecodeFile reads the stage file at path.
func (d Decoder) DecodeFile(path string) (s *stagefile.Stage, warn, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	return d.Decode(f, stat.Size())
}

// Load reads the stage file at path. Any failure is logged, and results in
// nil. Warnings are logged.
func Load(path string) *stagefile.Stage {
	s, warn, err := Decoder{}.DecodeFile(path)
	errors.Log(stagefile.Logger(), "load warning", warn, "path", path)
	if err != nil {
		stagefile.Logger().Error("load failed", "path", path, "err", err)
		return nil
	}
	return s
}

// ReadPreview returns the thumbnail images of the stage file at path,
// without decoding the scene graph.
func ReadPreview(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	a, err := openArchive(f, stat.Size())
	if err != nil {
		return nil, err
	}
	return Decoder{}.previews(a)
}

// EntryInfo describes an archive entry.
type EntryInfo struct {
	Name           string
	Size           uint64
	CompressedSize uint64
	Compressed     bool
}

// Info describes the layout of a stage file.
type Info struct {
	Version int
	Entries []EntryInfo
}

// Inspect returns the layout of a stage file without decoding its entries.
func Inspect(r io.ReaderAt, size int64) (info Info, err error) {
	a, err := openArchive(r, size)
	if err != nil {
		return info, err
	}
	for _, f := range a.files {
		info.Entries = append(info.Entries, EntryInfo{
			Name:           f.Name,
			Size:           f.UncompressedSize64,
			CompressedSize: f.CompressedSize64,
			Compressed:     f.Method != zip.Store,
		})
	}
	info.Version, err = a.version()
	return info, err
}

// Entry returns the raw content of the named entry of a stage file.
func Entry(r io.ReaderAt, size int64, name string) ([]byte, error) {
	a, err := openArchive(r, size)
	if err != nil {
		return nil, err
	}
	return a.read(name)
}
