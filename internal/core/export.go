package core

// export.go serializes questions back out of the bank.
//
// CSV export is round-trip safe: the column layout mirrors what the parser
// and builder accept, list cells are comma-joined, and custom fields become
// trailing columns, so exporting a bank and importing the file again yields
// field-wise equal records.

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// fixedExportColumns are the canonical columns written before the dynamic
// option and custom columns.
var fixedExportColumns = []string{
	FieldID, FieldQuestion, FieldType, FieldCorrectAnswer, FieldCategory,
	FieldDifficulty, FieldPoints, FieldTimeLimit, FieldExplanation,
	FieldTags, FieldPrerequisites, FieldObjectives, FieldMedia,
}

// WriteCSV writes records as CSV. Option columns are sized to the widest
// record; custom field columns appear after the canonical ones, in order of
// first appearance across the records.
func WriteCSV(w io.Writer, records []*Record) error {
	maxOpts := 0
	customKeys := newOrderedSet()
	for _, rec := range records {
		if len(rec.Options) > maxOpts {
			maxOpts = len(rec.Options)
		}
		if rec.Custom != nil {
			for _, k := range rec.Custom.Keys() {
				customKeys.add(k)
			}
		}
	}

	header := make([]string, 0, 3+maxOpts+len(fixedExportColumns))
	header = append(header, FieldID, FieldQuestion, FieldType)
	for i := 0; i < maxOpts; i++ {
		header = append(header, optionColumnName(i))
	}
	header = append(header, fixedExportColumns[3:]...)
	header = append(header, customKeys.values()...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, 0, len(header))
		row = append(row, rec.ID, rec.Question, string(rec.Type))
		for i := 0; i < maxOpts; i++ {
			if i < len(rec.Options) {
				row = append(row, rec.Options[i])
			} else {
				row = append(row, "")
			}
		}
		row = append(row,
			rec.CorrectAnswer,
			rec.Category,
			string(rec.Difficulty),
			strconv.FormatFloat(rec.Points, 'f', -1, 64),
			strconv.Itoa(rec.TimeLimit),
			rec.Explanation,
			strings.Join(rec.Tags, ", "),
			strings.Join(rec.Prerequisites, ", "),
			strings.Join(rec.Objectives, ", "),
			mediaCell(rec.Media),
		)
		for _, k := range customKeys.values() {
			v := ""
			if rec.Custom != nil {
				v, _ = rec.Custom.Get(k)
			}
			row = append(row, v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// optionColumnName returns "option_a" style names, falling back to 1-based
// numbers past "z".
func optionColumnName(idx int) string {
	if letter := OptionLetter(idx); letter != "" {
		return "option_" + strings.ToLower(letter)
	}
	return "option_" + strconv.Itoa(idx+1)
}

// mediaCell joins refs as "kind:url" items. Plain links are written bare so
// reimport infers the same kind.
func mediaCell(media []MediaRef) string {
	if len(media) == 0 {
		return ""
	}
	parts := make([]string, 0, len(media))
	for _, m := range media {
		if m.Kind == "" || m.Kind == "link" {
			parts = append(parts, m.URL)
			continue
		}
		parts = append(parts, m.Kind+":"+m.URL)
	}
	return strings.Join(parts, ", ")
}

// WriteJSON writes a bank envelope as indented JSON.
func WriteJSON(w io.Writer, env BankEnvelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ReadJSON parses exported question data. Both the bank envelope and a bare
// question array are accepted.
func ReadJSON(data []byte) (BankEnvelope, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return BankEnvelope{}, ErrNoData
	}

	if trimmed[0] == '[' {
		var questions []*Record
		if err := json.Unmarshal(trimmed, &questions); err != nil {
			return BankEnvelope{}, fmt.Errorf("parse question array: %w", err)
		}
		return BankEnvelope{Version: BankVersion, Questions: questions}, nil
	}

	var env BankEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return BankEnvelope{}, fmt.Errorf("parse bank envelope: %w", err)
	}
	return env, nil
}
