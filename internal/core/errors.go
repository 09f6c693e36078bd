package core

// errors.go defines the failure modes of an import run.
//
// Only two kinds of problem abort a call: input that is unusable as a whole
// (ErrNoData, ErrNoHeader) and caller configuration mistakes
// (ErrUnknownStrategy, ErrUnknownPreset). Everything row- or header-scoped
// is carried as data on the result object so partial success stays
// inspectable.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoData is returned by Parse when the input is empty or whitespace-only.
var ErrNoData = errors.New("no data in input")

// ErrNoHeader is returned by Parse when no header line can be found.
var ErrNoHeader = errors.New("no header line in input")

// ErrUnknownStrategy is wrapped by ParseStrategy for unrecognized names.
var ErrUnknownStrategy = errors.New("unknown merge strategy")

// ErrUnknownPreset is returned for a preset name with no registered profile.
var ErrUnknownPreset = errors.New("unknown preset")

// ErrImportNotFound is returned when an import ID matches no active or
// completed run.
var ErrImportNotFound = errors.New("import not found")

// ErrNoFiles is returned when an import is started with no files at all.
var ErrNoFiles = errors.New("no file provided")

// ErrQuestionNotFound is returned when a question id matches nothing in
// the bank.
var ErrQuestionNotFound = errors.New("question not found")

// HeaderError reports required columns missing from a file's header row.
// Lenient runs carry it as data; strict runs fail the file with it.
type HeaderError struct {
	Filename string
	Missing  []string
}

func (e *HeaderError) Error() string {
	msg := "missing required columns: " + strings.Join(e.Missing, ", ")
	if e.Filename != "" {
		return e.Filename + ": " + msg
	}
	return msg
}

// StrictModeError aborts a run at the first row validation failure when
// strict validation is on. Records accepted before the failing row are
// still returned alongside it.
type StrictModeError struct {
	Issue RowIssue
}

func (e *StrictModeError) Error() string {
	return fmt.Sprintf("strict validation: %s", e.Issue)
}
