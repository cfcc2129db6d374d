// Package container reads and writes stage files.
//
// A stage file is a zip archive with four entries:
//
//	version  ASCII decimal format version; absent in version 0 files
//	stage    the scene graph: JSON for version 1 and later, the legacy
//	         binary graph for version 0
//	bin      the binary side channel referenced by ranges in stage; absent
//	         in version 0 files
//	preview  thumbnail images in the legacy binary graph format, readable
//	         without decoding the rest of the archive
package container

import (
	"errors"
	"fmt"

	"github.com/stagefmt/stagefile/binio"
)

// Entry names.
const (
	EntryVersion = "version"
	EntryStage   = "stage"
	EntryBin     = "bin"
	EntryPreview = "preview"
)

const (
	// LegacyVersion is the format of files without a version entry.
	LegacyVersion = 0

	// FormatVersion is the format written by default.
	FormatVersion = 1
)

// ErrMissingEntry indicates that a mandatory entry is absent.
var ErrMissingEntry = errors.New("missing entry")

// EntryError wraps an error that occurred while processing an archive
// entry. Every EntryError matches binio.ErrCorruptContainer.
type EntryError struct {
	Name  string
	Cause error
}

func (err EntryError) Error() string {
	if err.Cause == nil {
		return fmt.Sprintf("entry %q", err.Name)
	}
	return fmt.Sprintf("entry %q: %s", err.Name, err.Cause.Error())
}

func (err EntryError) Unwrap() error {
	return err.Cause
}

func (err EntryError) Is(target error) bool {
	return target == binio.ErrCorruptContainer
}
