package core

// parser.go turns raw question-bank text into structured headers and rows.
//
// The scanner is character-level and deliberately forgiving:
//   - A quote character toggles quoted state; inside quotes a doubled quote
//     is a literal quote and a newline belongs to the cell.
//   - Commas split cells only outside quotes.
//   - Rows shorter than the header are right-padded with empty cells.
//   - Rows longer than the header (after dropping trailing empty cells) are
//     recorded as line-level issues and excluded rather than aborting.
//   - An unterminated quote is closed at end of input.
//
// Only an input with no usable content at all fails the parse outright.

import (
	"fmt"
	"strings"
)

// ParseResult is the structural output of one parse. Rows and RowLines are
// parallel: RowLines[i] is the 1-based physical line where Rows[i] started.
type ParseResult struct {
	Headers  []string
	Rows     [][]string
	RowLines []int
	Issues   []RowIssue
	Lines    int
}

// Parse scans raw text into headers and reconciled data rows. The first
// non-empty line is the header; blank lines are skipped. It returns ErrNoData
// for empty or whitespace-only input and ErrNoHeader when no line yields a
// usable column name.
func Parse(text string) (*ParseResult, error) {
	text = sanitizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoData
	}

	records, lines, lineCount := scanRecords(text)

	headerIdx := -1
	for i, rec := range records {
		if !isEmptyRecord(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	headers := make([]string, 0, len(records[headerIdx]))
	for _, cell := range records[headerIdx] {
		headers = append(headers, CleanCell(cell))
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return nil, ErrNoHeader
	}
	// Interior unnamed columns get positional names so their values survive
	// as custom fields instead of colliding on an empty key.
	for i, h := range headers {
		if h == "" {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	res := &ParseResult{Headers: headers, Lines: lineCount}
	want := len(headers)

	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]
		if isEmptyRecord(rec) {
			continue
		}

		row := make([]string, 0, want)
		for _, cell := range rec {
			row = append(row, CleanCell(cell))
		}

		// Trailing empty cells beyond the header width are harmless
		// artifacts of trailing commas.
		for len(row) > want && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		if len(row) > want {
			res.Issues = append(res.Issues, RowIssue{
				Line:     lines[i],
				Message:  fmt.Sprintf("row has %d fields, headers declare %d", len(row), want),
				Question: rowPreview(row),
			})
			continue
		}
		for len(row) < want {
			row = append(row, "")
		}

		res.Rows = append(res.Rows, row)
		res.RowLines = append(res.RowLines, lines[i])
	}

	return res, nil
}

// scanRecords performs the quote-aware character scan. It returns raw records,
// the 1-based starting physical line of each record, and the total line count.
func scanRecords(text string) ([][]string, []int, int) {
	var (
		records  [][]string
		lines    []int
		cur      []string
		field    strings.Builder
		inQuotes bool
	)
	line := 1
	start := 1

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			switch c {
			case '"':
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			case '\n':
				field.WriteByte('\n')
				line++
			default:
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			cur = append(cur, field.String())
			field.Reset()
		case '\n':
			cur = append(cur, field.String())
			field.Reset()
			records = append(records, cur)
			lines = append(lines, start)
			cur = nil
			line++
			start = line
		default:
			field.WriteByte(c)
		}
	}

	// Flush the tail when the input does not end with a newline.
	if field.Len() > 0 || len(cur) > 0 {
		cur = append(cur, field.String())
		records = append(records, cur)
		lines = append(lines, start)
	}

	return records, lines, line
}

// sanitizeText normalizes raw input before scanning: invalid UTF-8 sequences
// become the replacement character, a leading BOM is dropped, and all line
// endings are folded to '\n'.
func sanitizeText(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

func isEmptyRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// rowPreview returns the first non-empty cell of a row, truncated, for use as
// context in line-level issues.
func rowPreview(row []string) string {
	for _, cell := range row {
		if cell == "" {
			continue
		}
		if len(cell) > 60 {
			return cell[:60] + "..."
		}
		return cell
	}
	return ""
}
