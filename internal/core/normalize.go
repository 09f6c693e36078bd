package core

// normalize.go maps arbitrary header spellings onto the canonical question
// schema.
//
// Resolution order for each header, first hit wins:
//  1. Caller override map (raw spelling first, then normalized spelling)
//  2. Built-in alias table
//  3. Option-column patterns (option_a, choice_2, answer_b, bare a-f)
//  4. Custom field under the normalized spelling (never dropped)
//
// Normalization itself is pure and deterministic: lower-case, collapse runs
// of non-alphanumeric characters to a single underscore, trim underscores.

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Canonical field names recognized by the schema.
const (
	FieldID            = "id"
	FieldQuestion      = "question"
	FieldType          = "type"
	FieldOptions       = "options"
	FieldCorrectAnswer = "correct_answer"
	FieldCategory      = "category"
	FieldDifficulty    = "difficulty"
	FieldPoints        = "points"
	FieldTimeLimit     = "time_limit"
	FieldExplanation   = "explanation"
	FieldTags          = "tags"
	FieldPrerequisites = "prerequisites"
	FieldObjectives    = "learning_objectives"
	FieldMedia         = "media"
)

// headerAliases lists the raw spellings accepted for each canonical field.
// Spellings are stored in normalized form; every canonical name is its own
// first alias.
var headerAliases = map[string][]string{
	FieldID:            {"id", "question_id", "qid", "ref", "number", "no"},
	FieldQuestion:      {"question", "question_text", "text", "prompt", "stem", "title"},
	FieldType:          {"type", "question_type", "format", "kind"},
	FieldOptions:       {"options", "choices", "answers", "answer_options"},
	FieldCorrectAnswer: {"correct_answer", "answer", "correct", "solution", "answer_key", "right_answer", "key"},
	FieldCategory:      {"category", "subject", "topic", "section", "domain"},
	FieldDifficulty:    {"difficulty", "level", "difficulty_level", "complexity"},
	FieldPoints:        {"points", "score", "marks", "weight", "point_value"},
	FieldTimeLimit:     {"time_limit", "time", "seconds", "time_limit_seconds", "duration", "time_in_seconds"},
	FieldExplanation:   {"explanation", "rationale", "feedback", "reason", "why"},
	FieldTags:          {"tags", "keywords", "labels"},
	FieldPrerequisites: {"prerequisites", "prereqs", "requires", "depends_on"},
	FieldObjectives:    {"learning_objectives", "objectives", "outcomes", "learning_outcomes", "goals"},
	FieldMedia:         {"media", "image", "image_url", "attachment", "media_url", "video_url"},
}

var aliasLookup = func() map[string]string {
	m := make(map[string]string)
	for canonical, spellings := range headerAliases {
		for _, s := range spellings {
			m[s] = canonical
		}
	}
	return m
}()

// optionHeaderRegex matches per-option columns: a recognized prefix with a
// letter or 1-based number suffix. Bare letters are handled separately.
var optionHeaderRegex = regexp.MustCompile(`^(?:option|choice|opt|answer|ans|variant)_?([a-z]|[0-9]{1,2})$`)

// Header describes how one raw column resolves against the canonical schema.
// Option is the 0-based position in the options list, or -1 when the column
// is not an option column.
type Header struct {
	Raw       string
	Canonical string
	Custom    bool
	Option    int
}

// NormalizeHeader reduces a raw header spelling to canonical lookup form.
func NormalizeHeader(raw string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}

// ResolveHeaders maps every raw header to its canonical meaning. The override
// map wins over the built-in alias table; its values may themselves be alias
// spellings or option patterns.
func ResolveHeaders(raw []string, overrides map[string]string) []Header {
	headers := make([]Header, len(raw))
	for i, r := range raw {
		headers[i] = resolveHeader(r, overrides)
	}
	return headers
}

func resolveHeader(raw string, overrides map[string]string) Header {
	norm := NormalizeHeader(raw)

	target := norm
	if overrides != nil {
		if t, ok := overrides[raw]; ok {
			target = NormalizeHeader(t)
		} else if t, ok := overrides[norm]; ok {
			target = NormalizeHeader(t)
		}
	}

	h := resolveName(target)
	h.Raw = raw
	return h
}

func resolveName(name string) Header {
	if canonical, ok := aliasLookup[name]; ok {
		return Header{Canonical: canonical, Option: -1}
	}
	if idx := optionColumnIndex(name); idx >= 0 {
		return Header{Canonical: FieldOptions, Option: idx}
	}
	return Header{Canonical: name, Custom: true, Option: -1}
}

// optionColumnIndex returns the 0-based option position a normalized header
// addresses, or -1 when the header is not an option column.
func optionColumnIndex(norm string) int {
	if m := optionHeaderRegex.FindStringSubmatch(norm); m != nil {
		return optionSuffixIndex(m[1])
	}
	if len(norm) == 1 && norm[0] >= 'a' && norm[0] <= 'f' {
		return int(norm[0] - 'a')
	}
	return -1
}

func optionSuffixIndex(suffix string) int {
	if len(suffix) == 1 && suffix[0] >= 'a' && suffix[0] <= 'z' {
		return int(suffix[0] - 'a')
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 1 {
		return -1
	}
	return n - 1
}

// NormalizeQuestionText reduces question text to its duplicate-matching form:
// lower-cased, punctuation stripped, runs of whitespace collapsed to single
// spaces.
func NormalizeQuestionText(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}
