package core

// error_messages.go maps technical errors to user-friendly messages with
// codes for support reference.
//
// Error codes are grouped by category:
//
//	PARSE001 - Empty file: the uploaded file has no data
//	PARSE002 - No header: no header line could be found
//	VAL001   - Strict validation stopped the run at the first bad row
//	VAL002   - Required columns missing from the file
//	MRG001   - Unknown merge strategy name
//	IMP001   - Import session not found or expired
//	IMP002   - Too many imports in progress
//	IMP003   - Request was cancelled
//	IMP004   - Request timed out
//	BANK001  - Question bank could not be loaded or saved
//	FILE001  - File exceeds the size limit
//	FILE002  - No file was provided
//	QST001   - Question id matches nothing in the bank
//	ERR000   - Fallback for anything unmatched
//
// Patterns are matched case-insensitively using strings.Contains; the first
// matching pattern wins, so more specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "no data in input",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a CSV file with a header line and data rows",
			Code:    "PARSE001",
		},
	},
	{
		pattern: "no header line",
		msg: UserMessage{
			Message: "No header line could be found",
			Action:  "Make sure the first line of the file names the columns",
			Code:    "PARSE002",
		},
	},
	{
		pattern: "strict validation",
		msg: UserMessage{
			Message: "A row failed validation and strict mode stopped the import",
			Action:  "Fix the reported row or re-run without strict validation",
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required columns are missing from the file",
			Action:  "Check the column headers against the chosen preset",
			Code:    "VAL002",
		},
	},
	{
		pattern: "unknown merge strategy",
		msg: UserMessage{
			Message: "The merge strategy name is not recognized",
			Action:  "Use one of: skip, overwrite, force, merge",
			Code:    "MRG001",
		},
	},
	{
		pattern: "import not found",
		msg: UserMessage{
			Message: "Import session not found",
			Action:  "The import may have expired. Start a new import",
			Code:    "IMP001",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "The system is busy processing other imports",
			Action:  "Wait a moment and try again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Try again",
			Code:    "IMP003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "IMP004",
		},
	},
	{
		pattern: "load bank",
		msg: UserMessage{
			Message: "The question bank could not be loaded",
			Action:  "Try again in a few moments",
			Code:    "BANK001",
		},
	},
	{
		pattern: "save bank",
		msg: UserMessage{
			Message: "The question bank could not be saved",
			Action:  "Try again in a few moments",
			Code:    "BANK001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The file exceeds the size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a CSV file to import",
			Code:    "FILE002",
		},
	},
	{
		pattern: "question not found",
		msg: UserMessage{
			Message: "That question no longer exists",
			Action:  "Refresh the question list and try again",
			Code:    "QST001",
		},
	},
}

// defaultMessage is the ERR000 fallback. Support staff should check the
// application logs for the original technical error when users report it.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the generic ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern and is safe to
// show verbatim to users, rather than falling back to ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
