package binio

import (
	"errors"
	"fmt"
)

// ErrCorruptContainer is matched, using errors.Is, by every error that
// indicates a malformed side channel or payload.
var ErrCorruptContainer = errors.New("corrupt container")

var (
	errNegativeCount = errors.New("negative element count")
	errCountTooLarge = errors.New("element count too large")
)

// RangeError indicates that reading a Range did not end at the expected
// offset, or that the Range lies outside of the stream.
type RangeError struct {
	Range Range

	// End is the offset where reading stopped. It is -1 if reading never
	// started.
	End int64

	Cause error
}

func (err RangeError) Error() string {
	s := fmt.Sprintf("range %s", err.Range)
	if err.End >= 0 {
		s += fmt.Sprintf(" ended at %d", err.End)
	}
	if err.Cause != nil {
		s += ": " + err.Cause.Error()
	}
	return s
}

func (err RangeError) Unwrap() error {
	return err.Cause
}

func (err RangeError) Is(target error) bool {
	return target == ErrCorruptContainer
}

// DataError wraps an error that occurred while decoding inline byte data.
type DataError struct {
	// Offset is the byte offset where the error occurred.
	Offset int64

	Cause error
}

func (err DataError) Error() string {
	if err.Cause == nil {
		return fmt.Sprintf("data error at %d", err.Offset)
	}
	return fmt.Sprintf("data error at %d: %s", err.Offset, err.Cause)
}

func (err DataError) Unwrap() error {
	return err.Cause
}

func (err DataError) Is(target error) bool {
	return target == ErrCorruptContainer
}
