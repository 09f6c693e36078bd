package core

// builder.go converts one parsed row into a canonical question record.
//
// The builder owns all coercion from cell text to typed fields; nothing
// downstream re-coerces. It applies schema defaults, assembles the options
// list in declared column order, splits joined list cells, and attaches
// every unrecognized column to the record's custom fields.

import (
	"strings"
	"time"
)

// typeSynonyms maps normalized type spellings onto the canonical enum.
var typeSynonyms = map[string]QuestionType{
	"multiple_choice":   TypeMultipleChoice,
	"multiplechoice":    TypeMultipleChoice,
	"mc":                TypeMultipleChoice,
	"mcq":               TypeMultipleChoice,
	"choice":            TypeMultipleChoice,
	"true_false":        TypeTrueFalse,
	"truefalse":         TypeTrueFalse,
	"tf":                TypeTrueFalse,
	"boolean":           TypeTrueFalse,
	"bool":              TypeTrueFalse,
	"yes_no":            TypeTrueFalse,
	"short_answer":      TypeShortAnswer,
	"shortanswer":       TypeShortAnswer,
	"short":             TypeShortAnswer,
	"text":              TypeShortAnswer,
	"essay":             TypeEssay,
	"long_answer":       TypeEssay,
	"open":              TypeEssay,
	"open_ended":        TypeEssay,
	"fill_blank":        TypeFillBlank,
	"fill_in_the_blank": TypeFillBlank,
	"fill_in_blank":     TypeFillBlank,
	"blank":             TypeFillBlank,
	"cloze":             TypeFillBlank,
	"matching":          TypeMatching,
	"match":             TypeMatching,
	"pairs":             TypeMatching,
}

// ParseQuestionType maps a raw type cell onto the canonical enum. Unknown
// values are preserved in normalized form so validation can report them.
func ParseQuestionType(raw string) QuestionType {
	norm := NormalizeHeader(raw)
	if t, ok := typeSynonyms[norm]; ok {
		return t
	}
	return QuestionType(norm)
}

// RowMetadata carries per-run provenance the builder stamps onto records.
type RowMetadata struct {
	UploadID string
	Filename string
	Line     int
	Owner    string
	Tags     []string // applied to every record in the run
}

// BuildRecord builds a record from one row. Cells are expected in cleaned
// form as produced by Parse; row and headers are matched by position.
//
// Defaults when the file is silent: points 1, time limit 30 seconds,
// difficulty Medium, and a type inferred from the presence of options.
func BuildRecord(row []string, headers []Header, meta RowMetadata) *Record {
	now := time.Now().UTC()
	rec := &Record{
		Points:    DefaultPoints,
		TimeLimit: DefaultTimeLimit,
		Source: Source{
			UploadID:  meta.UploadID,
			Filename:  meta.Filename,
			Line:      meta.Line,
			Owner:     meta.Owner,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	var (
		byIndex map[int]string // option columns, keyed by declared position
		maxOpt  = -1
		joined  []string // options from a single joined cell
	)

	for i, h := range headers {
		if i >= len(row) {
			break
		}
		val := row[i]

		if h.Option >= 0 {
			if val != "" {
				if byIndex == nil {
					byIndex = make(map[int]string)
				}
				byIndex[h.Option] = val
				if h.Option > maxOpt {
					maxOpt = h.Option
				}
			}
			continue
		}

		if h.Custom {
			if val != "" {
				if rec.Custom == nil {
					rec.Custom = NewCustomFields()
				}
				rec.Custom.Set(h.Canonical, val)
			}
			continue
		}

		switch h.Canonical {
		case FieldID:
			rec.ID = val
		case FieldQuestion:
			rec.Question = val
		case FieldType:
			if val != "" {
				rec.Type = ParseQuestionType(val)
			}
		case FieldOptions:
			joined = append(joined, SplitOptions(val)...)
		case FieldCorrectAnswer:
			rec.CorrectAnswer = val
		case FieldCategory:
			rec.Category = val
		case FieldDifficulty:
			if val != "" {
				rec.Difficulty = Difficulty(val)
			}
		case FieldPoints:
			if f, ok := ParseNumber(val); ok {
				rec.Points = f
			}
		case FieldTimeLimit:
			if n, ok := ParseSeconds(val); ok {
				rec.TimeLimit = n
			}
		case FieldExplanation:
			rec.Explanation = val
		case FieldTags:
			rec.Tags = append(rec.Tags, SplitList(val)...)
		case FieldPrerequisites:
			rec.Prerequisites = append(rec.Prerequisites, SplitList(val)...)
		case FieldObjectives:
			rec.Objectives = append(rec.Objectives, SplitList(val)...)
		case FieldMedia:
			rec.Media = append(rec.Media, ParseMediaRefs(val)...)
		}
	}

	rec.Options = assembleOptions(joined, byIndex, maxOpt)

	if rec.Type == "" {
		if len(rec.Options) > 0 {
			rec.Type = TypeMultipleChoice
		} else {
			rec.Type = TypeShortAnswer
		}
	}
	if rec.Type == TypeTrueFalse && len(rec.Options) == 0 {
		rec.Options = []string{"True", "False"}
	}
	if rec.Difficulty == "" {
		rec.Difficulty = DifficultyMedium
	}

	rec.Tags = append(rec.Tags, meta.Tags...)
	rec.Tags = dedupList(rec.Tags)
	rec.Prerequisites = dedupList(rec.Prerequisites)
	rec.Objectives = dedupList(rec.Objectives)

	return rec
}

// assembleOptions merges a joined options cell with per-column option values.
// Per-column values win at their declared position; empty positions are
// compacted out so answer letters address the visible options.
func assembleOptions(joined []string, byIndex map[int]string, maxOpt int) []string {
	if maxOpt < 0 && len(joined) == 0 {
		return nil
	}

	size := len(joined)
	if maxOpt+1 > size {
		size = maxOpt + 1
	}
	slots := make([]string, size)
	copy(slots, joined)
	for idx, val := range byIndex {
		slots[idx] = val
	}

	out := make([]string, 0, len(slots))
	for _, o := range slots {
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// dedupList removes exact duplicates while preserving first-seen order.
func dedupList(items []string) []string {
	if len(items) < 2 {
		return items
	}
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
