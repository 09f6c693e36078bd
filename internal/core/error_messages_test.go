package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "empty input maps correctly",
			err:         fmt.Errorf("parse questions.csv: %w", ErrNoData),
			wantCode:    "PARSE001",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "missing header maps correctly",
			err:         ErrNoHeader,
			wantCode:    "PARSE002",
			wantMessage: "No header line could be found",
		},
		{
			name:        "strict validation maps correctly",
			err:         &StrictModeError{Issue: RowIssue{Line: 3, Message: "question is empty"}},
			wantCode:    "VAL001",
			wantMessage: "A row failed validation and strict mode stopped the import",
		},
		{
			name:        "missing columns maps correctly",
			err:         &HeaderError{Filename: "quiz.csv", Missing: []string{"correct_answer"}},
			wantCode:    "VAL002",
			wantMessage: "Required columns are missing from the file",
		},
		{
			name:        "unknown strategy maps correctly",
			err:         fmt.Errorf("%w: %q", ErrUnknownStrategy, "replace"),
			wantCode:    "MRG001",
			wantMessage: "The merge strategy name is not recognized",
		},
		{
			name:        "import not found maps correctly",
			err:         ErrImportNotFound,
			wantCode:    "IMP001",
			wantMessage: "Import session not found",
		},
		{
			name:        "limiter full maps correctly",
			err:         ErrTooManyImports,
			wantCode:    "IMP002",
			wantMessage: "The system is busy processing other imports",
		},
		{
			name:        "cancellation maps correctly",
			err:         context.Canceled,
			wantCode:    "IMP003",
			wantMessage: "The request was cancelled",
		},
		{
			name:        "timeout maps correctly",
			err:         context.DeadlineExceeded,
			wantCode:    "IMP004",
			wantMessage: "The request timed out",
		},
		{
			name:        "load failure maps correctly",
			err:         errors.New("load bank: open bank.json: permission denied"),
			wantCode:    "BANK001",
			wantMessage: "The question bank could not be loaded",
		},
		{
			name:        "save failure maps correctly",
			err:         errors.New("save bank: disk full"),
			wantCode:    "BANK001",
			wantMessage: "The question bank could not be saved",
		},
		{
			name:        "oversized body maps correctly",
			err:         errors.New("http: request body too large"),
			wantCode:    "FILE001",
			wantMessage: "The file exceeds the size limit",
		},
		{
			name:        "missing file maps correctly",
			err:         ErrNoFiles,
			wantCode:    "FILE002",
			wantMessage: "No file was selected",
		},
		{
			name:        "missing question maps correctly",
			err:         fmt.Errorf("%w: %s", ErrQuestionNotFound, "q-17"),
			wantCode:    "QST001",
			wantMessage: "That question no longer exists",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("NO DATA IN INPUT"),
			wantCode:    "PARSE001",
			wantMessage: "The uploaded file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := fmt.Errorf("%w: %q", ErrUnknownStrategy, "replace")
	result := FormatUserError(err)

	expected := "The merge strategy name is not recognized (Code: MRG001). Use one of: skip, overwrite, force, merge"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestFormatUserError_Nil(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrNoData,
			want: true,
		},
		{
			name: "wrapped known error is user facing",
			err:  fmt.Errorf("import: %w", ErrTooManyImports),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
