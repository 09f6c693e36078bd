package core

// validate.go provides record-level validation before merging.
//
// Validation happens at two levels:
//  1. Header validation: ensures the required columns for the chosen preset
//     are present in the file
//  2. Record validation: checks one built record against schema rules
//
// Validation never fails hard; it returns structured results with separate
// error and warning lists so callers can always inspect partial success.

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationResult contains the outcome of validating one record.
type ValidationResult struct {
	Valid    bool       // true if no errors (warnings allowed)
	Errors   []RowIssue // problems that exclude the record
	Warnings []RowIssue // problems worth reporting but not excluding
}

// ValidateRecord checks a built record against schema rules plus the given
// required canonical fields. Line and question context on the returned
// issues are filled in by the caller.
func ValidateRecord(rec *Record, required []string) ValidationResult {
	res := ValidationResult{Valid: true}

	fail := func(field, msg string) {
		res.Valid = false
		res.Errors = append(res.Errors, RowIssue{Field: field, Message: msg})
	}
	warn := func(field, msg string) {
		res.Warnings = append(res.Warnings, RowIssue{Field: field, Message: msg})
	}

	if strings.TrimSpace(rec.Question) == "" {
		fail(FieldQuestion, "question text is required")
	}
	for _, f := range required {
		if f == FieldQuestion {
			continue
		}
		if strings.TrimSpace(fieldValue(rec, f)) == "" {
			fail(f, "required field is empty")
		}
	}

	if !rec.Type.Known() {
		warn(FieldType, fmt.Sprintf("unknown question type %q", rec.Type))
	}

	if rec.Type.IsChoice() {
		if len(rec.Options) < 2 {
			fail(FieldOptions, "choice questions need at least 2 options")
		} else if answerIndex(rec.CorrectAnswer, rec.Options) < 0 {
			if strings.TrimSpace(rec.CorrectAnswer) == "" {
				fail(FieldCorrectAnswer, "correct answer is required for choice questions")
			} else {
				fail(FieldCorrectAnswer, fmt.Sprintf("correct answer %q does not resolve to an option", rec.CorrectAnswer))
			}
		}
	}

	if rec.Points < 0 {
		fail(FieldPoints, "points must be non-negative")
	}
	if rec.TimeLimit < 0 {
		fail(FieldTimeLimit, "time limit must be non-negative")
	}

	if rec.Difficulty != "" && !rec.Difficulty.Known() {
		warn(FieldDifficulty, fmt.Sprintf("unrecognized difficulty %q", rec.Difficulty))
	}
	if dup := duplicateOption(rec.Options); dup != "" {
		warn(FieldOptions, fmt.Sprintf("duplicate option %q", dup))
	}

	return res
}

// MissingHeaders returns the required canonical fields that no resolved
// header provides. Per-option columns satisfy a required options field.
func MissingHeaders(headers []Header, required []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h.Custom {
			continue
		}
		present[h.Canonical] = true
	}

	var missing []string
	for _, f := range required {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// OptionLetter returns the display letter for a 0-based option index ("A"
// for 0). Indexes beyond "Z" return "".
func OptionLetter(idx int) string {
	if idx < 0 || idx >= 26 {
		return ""
	}
	return string(rune('A' + idx))
}

// letterIndex returns the 0-based option index a single-letter answer
// addresses, or -1 when the value is not a letter.
func letterIndex(s string) int {
	s = strings.TrimSpace(s)
	if len(s) != 1 {
		return -1
	}
	c := s[0]
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a')
	case c >= 'A' && c <= 'Z':
		return int(c - 'A')
	}
	return -1
}

// answerIndex resolves a correct answer to a 0-based option index, trying
// letter, 1-based number, then case-insensitive option text. Returns -1
// when nothing resolves.
func answerIndex(answer string, options []string) int {
	answer = strings.TrimSpace(answer)
	if answer == "" || len(options) == 0 {
		return -1
	}
	if idx := letterIndex(answer); idx >= 0 && idx < len(options) {
		return idx
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return n - 1
	}
	for i, opt := range options {
		if strings.EqualFold(answer, opt) {
			return i
		}
	}
	return -1
}

// fieldValue returns the record's value for a canonical field, rendered as
// text for presence checks.
func fieldValue(rec *Record, field string) string {
	switch field {
	case FieldID:
		return rec.ID
	case FieldQuestion:
		return rec.Question
	case FieldType:
		return string(rec.Type)
	case FieldOptions:
		return strings.Join(rec.Options, "|")
	case FieldCorrectAnswer:
		return rec.CorrectAnswer
	case FieldCategory:
		return rec.Category
	case FieldDifficulty:
		return string(rec.Difficulty)
	case FieldPoints:
		return strconv.FormatFloat(rec.Points, 'f', -1, 64)
	case FieldTimeLimit:
		return strconv.Itoa(rec.TimeLimit)
	case FieldExplanation:
		return rec.Explanation
	case FieldTags:
		return strings.Join(rec.Tags, ",")
	case FieldPrerequisites:
		return strings.Join(rec.Prerequisites, ",")
	case FieldObjectives:
		return strings.Join(rec.Objectives, ",")
	case FieldMedia:
		if len(rec.Media) > 0 {
			return rec.Media[0].URL
		}
		return ""
	}
	return ""
}

func duplicateOption(options []string) string {
	if len(options) < 2 {
		return ""
	}
	seen := make(map[string]bool, len(options))
	for _, opt := range options {
		key := strings.ToLower(strings.TrimSpace(opt))
		if seen[key] {
			return opt
		}
		seen[key] = true
	}
	return ""
}
