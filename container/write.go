package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/stagefmt/stagefile"
	"github.com/stagefmt/stagefile/binio"
	"github.com/stagefmt/stagefile/legacy"
)

// Encoder writes stage files.
type Encoder struct {
	// Version selects the format. Zero writes LegacyVersion, which has no
	// bin or version entries. Use NewEncoder for the current format.
	Version int

	// Method is the zip compression method of each entry. The default,
	// zip.Store, leaves entries uncompressed.
	Method uint16

	// If Uncompressed is true, entries are stored regardless of Method, and
	// legacy chunks are written without compression.
	Uncompressed bool

	// NoDedup disables deduplication of identical blobs in the bin entry.
	NoDedup bool
}

// NewEncoder returns an Encoder of the current format.
func NewEncoder() Encoder {
	return Encoder{Version: FormatVersion, Method: zip.Deflate}
}

// Encode writes s to w. The audio pool of s is pruned to the clips
// referenced by the graph, and ActivePlayablePath is recomputed from
// ActivePlayable.
func (e Encoder) Encode(w io.Writer, s *stagefile.Stage) (err error) {
	if s == nil {
		return errors.New("nil stage")
	}

	s.PruneAudio()
	s.ActivePlayablePath = s.PathOf(s.ActivePlayable)

	zw := zip.NewWriter(w)
	defer func() {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}()

	// Entries are written in order: the stage entry fills the side channel
	// that is flushed to bin last.
	if err := e.writeEntry(zw, EntryPreview, func(w io.Writer) error {
		return legacy.Encoder{Uncompressed: e.Uncompressed}.EncodePreviews(w, s.Previews)
	}); err != nil {
		return err
	}

	if e.Version == LegacyVersion {
		return e.writeEntry(zw, EntryStage, func(w io.Writer) error {
			return legacy.Encoder{Uncompressed: e.Uncompressed}.Encode(w, s)
		})
	}

	bin := binio.NewWriter()
	bin.NoDedup = e.NoDedup
	if err := e.writeEntry(zw, EntryStage, func(w io.Writer) error {
		data, err := stagefile.MarshalStage(s, bin)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}); err != nil {
		return err
	}

	if err := e.writeEntry(zw, EntryVersion, func(w io.Writer) error {
		_, err := io.WriteString(w, strconv.Itoa(e.Version))
		return err
	}); err != nil {
		return err
	}

	return e.writeEntry(zw, EntryBin, func(w io.Writer) error {
		_, err := bin.WriteTo(w)
		return err
	})
}

func (e Encoder) writeEntry(zw *zip.Writer, name string, fn func(w io.Writer) error) error {
	method := e.Method
	if e.Uncompressed {
		method = zip.Store
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return fmt.Errorf("entry %q: %w", name, err)
	}
	if err := fn(w); err != nil {
		return fmt.Errorf("entry %q: %w", name, err)
	}
	stagefile.Logger().Debug("wrote entry", "name", name)
	return nil
}

// Save writes s to the file at path. An existing file is copied to a .bak
// sibling first, and restored if writing fails. The backup is removed
// afterward in either case.
func (e Encoder) Save(path string, s *stagefile.Stage) (err error) {
	backup := path + ".bak"
	hasBackup := false
	switch _, err := os.Stat(path); {
	case err == nil:
		if err := copyFile(backup, path); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		hasBackup = true
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("backup: %w", err)
	}

	defer func() {
		if err != nil {
			stagefile.Logger().Error("save failed", "path", path, "err", err)
			if hasBackup {
				if rerr := copyFile(path, backup); rerr != nil {
					stagefile.Logger().Error("restore failed", "path", path, "err", rerr)
					// Keep the backup, since the target may be damaged.
					return
				}
			} else {
				os.Remove(path)
			}
		}
		if hasBackup {
			os.Remove(backup)
		}
	}()

	// Encode to memory first, so that an encoding failure never touches
	// the target.
	var buf bytes.Buffer
	if err := e.Encode(&buf, s); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := buf.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Save writes s to path in the current format.
func Save(path string, s *stagefile.Stage) error {
	return NewEncoder().Save(path, s)
}
