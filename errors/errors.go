// The errors package provides error lists, used by decoders to report
// problems that do not prevent decoding.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

func New(text string) error {
	return errors.New(text)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Errors is a list of errors.
type Errors []error

// Error formats the list by separating each message with a newline. Each
// produced line, including lines within messages, is prefixed with a tab.
func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return "no errors"
	case 1:
		return errs[0].Error()
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "%d errors:", len(errs))
	for _, err := range errs {
		buf.WriteString("\n\t")
		buf.WriteString(strings.ReplaceAll(err.Error(), "\n", "\n\t"))
	}
	return buf.String()
}

// Append returns errs with each err appended to it. Nil arguments are
// skipped, and Errors arguments are flattened into errs.
func (errs Errors) Append(err ...error) Errors {
	for _, err := range err {
		switch err := err.(type) {
		case nil:
		case Errors:
			errs = errs.Append(err...)
		default:
			errs = append(errs, err)
		}
	}
	return errs
}

// Unwrap returns the list, so that Is and As match any error within it.
func (errs Errors) Unwrap() []error {
	return errs
}

// Return prepares errs to be returned by a function by returning nil if errs is
// empty.
func (errs Errors) Return() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Union combines errs into one flat Errors. Returns nil if all errs are nil
// or empty.
func Union(errs ...error) error {
	return Errors(nil).Append(errs...).Return()
}

// Log writes each error in err to l as a separate warning. An err that is
// not an Errors is written as a single warning.
func Log(l *slog.Logger, msg string, err error, args ...any) {
	for _, err := range Errors(nil).Append(err) {
		l.Warn(msg, append(args, "err", err)...)
	}
}
