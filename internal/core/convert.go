package core

// convert.go provides conversion functions from raw CSV cells to record
// field values.
//
// These functions handle the messy reality of user-authored question banks:
//   - Currency symbols and thousand separators in numbers
//   - Accounting format negatives ("(5)")
//   - Time limits written as "90s", "1m30s" equivalents, or "1:30"
//   - Excel formula prefixes (="value")
//   - Joined list cells with mixed delimiters
//
// All Parse* functions report ok=false for empty or unusable input so the
// builder can fall back to schema defaults.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// CleanCell removes common CSV artifacts from a cell value:
//   - Trims whitespace
//   - Removes Excel formula prefix (="...")
//   - Removes one pair of surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) > 2 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			s = s[1 : len(s)-1]
		}
	}

	return strings.TrimSpace(s)
}

// ParseNumber converts a cell to a float64. It strips currency symbols and
// thousands separators and accepts accounting-format negatives.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if neg {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseSeconds converts a time-limit cell to whole seconds. Accepted forms:
// plain numbers, "90s"/"90 sec", "2m"/"2 min", and "m:ss".
func ParseSeconds(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	if i := strings.IndexByte(s, ':'); i >= 0 {
		m, err1 := strconv.Atoi(strings.TrimSpace(s[:i]))
		sec, err2 := strconv.Atoi(strings.TrimSpace(s[i+1:]))
		if err1 != nil || err2 != nil || sec < 0 || sec > 59 {
			return 0, false
		}
		return m*60 + sec, true
	}

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "seconds"):
		s = strings.TrimSuffix(s, "seconds")
	case strings.HasSuffix(s, "secs"):
		s = strings.TrimSuffix(s, "secs")
	case strings.HasSuffix(s, "sec"):
		s = strings.TrimSuffix(s, "sec")
	case strings.HasSuffix(s, "minutes"):
		s = strings.TrimSuffix(s, "minutes")
		mult = 60
	case strings.HasSuffix(s, "mins"):
		s = strings.TrimSuffix(s, "mins")
		mult = 60
	case strings.HasSuffix(s, "min"):
		s = strings.TrimSuffix(s, "min")
		mult = 60
	case strings.HasSuffix(s, "m"):
		s = strings.TrimSuffix(s, "m")
		mult = 60
	case strings.HasSuffix(s, "s"):
		s = strings.TrimSuffix(s, "s")
	}

	f, ok := ParseNumber(strings.TrimSpace(s))
	if !ok {
		return 0, false
	}
	return int(math.Round(f * mult)), true
}

// ParseBool converts a cell to a bool.
// Accepts various representations: true/false, yes/no, t/f, y/n, 1/0.
func ParseBool(s string) (bool, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return false, false
	}

	switch s {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// SplitList splits a joined list cell into trimmed, non-empty items.
// Semicolons and pipes are accepted alongside commas.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	}) {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// SplitOptions splits a single joined options cell. Pipe and semicolon
// delimiters win over commas so option text may itself contain commas.
func SplitOptions(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	switch {
	case strings.ContainsRune(s, '|'):
		parts = strings.Split(s, "|")
	case strings.ContainsRune(s, ';'):
		parts = strings.Split(s, ";")
	default:
		parts = strings.Split(s, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseMediaRefs parses a media cell into structured refs. Each item is
// either "kind:url" or a bare URL whose kind is inferred from its extension.
func ParseMediaRefs(s string) []MediaRef {
	items := SplitList(s)
	if len(items) == 0 {
		return nil
	}
	refs := make([]MediaRef, 0, len(items))
	for _, item := range items {
		refs = append(refs, parseMediaRef(item))
	}
	return refs
}

func parseMediaRef(item string) MediaRef {
	for _, kind := range []string{"image", "audio", "video"} {
		prefix := kind + ":"
		if strings.HasPrefix(item, prefix) && !strings.HasPrefix(item, prefix+"//") {
			return MediaRef{Kind: kind, URL: strings.TrimSpace(strings.TrimPrefix(item, prefix))}
		}
	}

	lower := strings.ToLower(item)
	if i := strings.IndexByte(lower, '?'); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case hasAnySuffix(lower, ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"):
		return MediaRef{Kind: "image", URL: item}
	case hasAnySuffix(lower, ".mp3", ".wav", ".ogg"):
		return MediaRef{Kind: "audio", URL: item}
	case hasAnySuffix(lower, ".mp4", ".webm", ".mov"):
		return MediaRef{Kind: "video", URL: item}
	}
	return MediaRef{Kind: "link", URL: item}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
