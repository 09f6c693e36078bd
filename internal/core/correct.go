package core

// correct.go applies automatic fixes for common authoring mistakes before
// validation. Corrections are conservative and idempotent: a record that is
// already canonical passes through unchanged, so applying them twice is a
// no-op.
//
// Fixes applied:
//   - correct_answer given as a 1-based number or as option text becomes
//     the option letter
//   - true/false answers written as yes/no/t/f/1/0 resolve to the matching
//     option
//   - difficulty synonyms collapse onto the four canonical levels
//   - negative points and time limits reset to their defaults
//   - tags are lower-cased and deduplicated

import (
	"strconv"
	"strings"
)

// difficultySynonyms maps lower-cased difficulty spellings onto the four
// canonical levels. Numbers are the 1-4 scale common in exported banks.
var difficultySynonyms = map[string]Difficulty{
	"easy":     DifficultyEasy,
	"beginner": DifficultyEasy,
	"basic":    DifficultyEasy,
	"simple":   DifficultyEasy,
	"novice":   DifficultyEasy,
	"intro":    DifficultyEasy,
	"1":        DifficultyEasy,
	"e":        DifficultyEasy,

	"medium":       DifficultyMedium,
	"intermediate": DifficultyMedium,
	"moderate":     DifficultyMedium,
	"normal":       DifficultyMedium,
	"average":      DifficultyMedium,
	"2":            DifficultyMedium,
	"m":            DifficultyMedium,

	"hard":        DifficultyHard,
	"difficult":   DifficultyHard,
	"advanced":    DifficultyHard,
	"challenging": DifficultyHard,
	"tough":       DifficultyHard,
	"3":           DifficultyHard,
	"h":           DifficultyHard,

	"expert":  DifficultyExpert,
	"master":  DifficultyExpert,
	"extreme": DifficultyExpert,
	"insane":  DifficultyExpert,
	"4":       DifficultyExpert,
	"x":       DifficultyExpert,
}

// AutoCorrect fixes common authoring mistakes in place. It is safe to apply
// to any record, corrected or not.
func AutoCorrect(rec *Record) {
	correctAnswer(rec)
	correctDifficulty(rec)
	if rec.Points < 0 {
		rec.Points = DefaultPoints
	}
	if rec.TimeLimit < 0 {
		rec.TimeLimit = DefaultTimeLimit
	}
	rec.Tags = normalizeTags(rec.Tags)
}

// correctAnswer rewrites the correct answer of a choice question as an
// option letter when it arrives as a number, option text, or a boolean
// spelling. Answers that cannot be resolved are left for the validator.
func correctAnswer(rec *Record) {
	if !rec.Type.IsChoice() || len(rec.Options) == 0 {
		return
	}
	ans := strings.TrimSpace(rec.CorrectAnswer)
	if ans == "" {
		return
	}

	// Already a letter inside the options range: canonicalize case only.
	if idx := letterIndex(ans); idx >= 0 && idx < len(rec.Options) {
		rec.CorrectAnswer = OptionLetter(idx)
		return
	}

	// 1-based numeric index.
	if n, err := strconv.Atoi(ans); err == nil && n >= 1 && n <= len(rec.Options) {
		if letter := OptionLetter(n - 1); letter != "" {
			rec.CorrectAnswer = letter
		}
		return
	}

	// Case-insensitive option text.
	for i, opt := range rec.Options {
		if strings.EqualFold(ans, opt) {
			if letter := OptionLetter(i); letter != "" {
				rec.CorrectAnswer = letter
			}
			return
		}
	}

	// Boolean spellings against true/false options.
	if rec.Type == TypeTrueFalse {
		b, ok := ParseBool(ans)
		if !ok {
			return
		}
		for i, opt := range rec.Options {
			if ob, ok := ParseBool(opt); ok && ob == b {
				if letter := OptionLetter(i); letter != "" {
					rec.CorrectAnswer = letter
				}
				return
			}
		}
	}
}

func correctDifficulty(rec *Record) {
	if rec.Difficulty.Known() {
		return
	}
	key := strings.ToLower(strings.TrimSpace(string(rec.Difficulty)))
	if d, ok := difficultySynonyms[key]; ok {
		rec.Difficulty = d
	}
}

// ParseDifficulty maps a raw difficulty onto the canonical enum, accepting
// the same synonyms auto-correct does. Unknown values pass through unchanged.
func ParseDifficulty(raw string) Difficulty {
	d := Difficulty(strings.TrimSpace(raw))
	if d == "" || d.Known() {
		return d
	}
	if mapped, ok := difficultySynonyms[strings.ToLower(string(d))]; ok {
		return mapped
	}
	return d
}

// normalizeTags lower-cases tags and drops duplicates, preserving first-seen
// order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
