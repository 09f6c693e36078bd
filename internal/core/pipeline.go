package core

// pipeline.go drives the builder and validator over many rows in bounded
// chunks.
//
// Chunks are processed strictly sequentially and output order follows source
// row order, minus rows dropped by validation. After every few chunks the
// pipeline yields the processor so a very large import does not monopolize
// a scheduler thread for long unbroken stretches. Cancellation is checked
// between chunks, never mid-chunk.

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// PipelineResult is the output of one batched build-and-validate run.
// Errors includes structural issues carried over from the parse.
type PipelineResult struct {
	Records     []*Record
	Errors      []RowIssue
	Warnings    []RowIssue
	Collections Collections
	Summary     Summary
}

// ProgressFunc receives processed and total row counts between chunks.
type ProgressFunc func(processed, total int)

// RunBatched resolves the parsed headers, then builds and validates every
// row in chunks of opts.BatchSize. Rows that fail validation are collected
// into Errors and excluded from Records; with opts.Strict set, the first
// failing row instead aborts the run with a StrictModeError, returning the
// records accepted so far.
func RunBatched(ctx context.Context, parsed *ParseResult, opts Options, meta RowMetadata, progress ProgressFunc) (*PipelineResult, error) {
	opts = opts.withDefaults()

	preset, ok := GetPreset(opts.Preset)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, opts.Preset)
	}
	headers := ResolveHeaders(parsed.Headers, opts.HeaderOverrides)

	res := &PipelineResult{}
	res.Errors = append(res.Errors, parsed.Issues...)
	sets := newCollectionSets()

	total := len(parsed.Rows)
	grandTotal := total + len(parsed.Issues)
	chunks := 0

	for start := 0; start < total; start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			finishPipeline(res, grandTotal, sets)
			return res, err
		}

		end := start + opts.BatchSize
		if end > total {
			end = total
		}

		for i := start; i < end; i++ {
			rowMeta := meta
			if i < len(parsed.RowLines) {
				rowMeta.Line = parsed.RowLines[i]
			}

			rec := BuildRecord(parsed.Rows[i], headers, rowMeta)
			if opts.DropCustom {
				rec.Custom = nil
			}
			if opts.AutoCorrect {
				AutoCorrect(rec)
			}

			if strictErr := acceptRecord(rec, rowMeta.Line, opts, preset.Required, res, sets); strictErr != nil {
				finishPipeline(res, grandTotal, sets)
				return res, strictErr
			}
		}

		chunks++
		if progress != nil {
			progress(end, total)
		}
		if chunks%opts.YieldEvery == 0 {
			runtime.Gosched()
		}
	}

	finishPipeline(res, grandTotal, sets)
	return res, nil
}

// RunRecords validates pre-built records, typically decoded from a JSON
// payload, in the same chunked fashion as RunBatched. Each record is cloned
// before correction so callers keep their originals untouched. Nil entries
// count toward the total but are otherwise ignored.
func RunRecords(ctx context.Context, recs []*Record, opts Options, meta RowMetadata, progress ProgressFunc) (*PipelineResult, error) {
	opts = opts.withDefaults()

	preset, ok := GetPreset(opts.Preset)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, opts.Preset)
	}

	res := &PipelineResult{}
	sets := newCollectionSets()

	total := len(recs)
	chunks := 0

	for start := 0; start < total; start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			finishPipeline(res, total, sets)
			return res, err
		}

		end := start + opts.BatchSize
		if end > total {
			end = total
		}

		for i := start; i < end; i++ {
			if recs[i] == nil {
				continue
			}
			rec := recs[i].Clone()
			stampSource(rec, meta)
			applyRecordDefaults(rec)
			if opts.DropCustom {
				rec.Custom = nil
			}
			if opts.AutoCorrect {
				AutoCorrect(rec)
			}

			if strictErr := acceptRecord(rec, rec.Source.Line, opts, preset.Required, res, sets); strictErr != nil {
				finishPipeline(res, total, sets)
				return res, strictErr
			}
		}

		chunks++
		if progress != nil {
			progress(end, total)
		}
		if chunks%opts.YieldEvery == 0 {
			runtime.Gosched()
		}
	}

	finishPipeline(res, total, sets)
	return res, nil
}

// acceptRecord validates one built record and folds it into the result.
// The returned error is non-nil only when strict mode must abort the run.
func acceptRecord(rec *Record, line int, opts Options, required []string, res *PipelineResult, sets *collectionSets) *StrictModeError {
	v := ValidateRecord(rec, required)
	for _, w := range v.Warnings {
		w.Line = line
		w.Question = rec.Question
		res.Warnings = append(res.Warnings, w)
	}
	if !v.Valid {
		for _, e := range v.Errors {
			e.Line = line
			e.Question = rec.Question
			res.Errors = append(res.Errors, e)
		}
		if opts.Strict {
			first := v.Errors[0]
			first.Line = line
			first.Question = rec.Question
			return &StrictModeError{Issue: first}
		}
		return nil
	}

	res.Records = append(res.Records, rec)
	sets.observe(rec)
	return nil
}

// stampSource fills import provenance on a pre-built record. Existing owner
// and creation time survive so re-imported exports keep their history.
func stampSource(rec *Record, meta RowMetadata) {
	rec.Source.UploadID = meta.UploadID
	rec.Source.Filename = meta.Filename
	if rec.Source.Owner == "" {
		rec.Source.Owner = meta.Owner
	}
	now := time.Now().UTC()
	if rec.Source.CreatedAt.IsZero() {
		rec.Source.CreatedAt = now
	}
	rec.Source.UpdatedAt = now
	if len(meta.Tags) > 0 {
		rec.Tags = dedupList(append(rec.Tags, meta.Tags...))
	}
}

// applyRecordDefaults fills schema defaults on records that arrived already
// structured, where an omitted field and its zero value look the same.
func applyRecordDefaults(rec *Record) {
	if rec.Points == 0 {
		rec.Points = DefaultPoints
	}
	if rec.TimeLimit == 0 {
		rec.TimeLimit = DefaultTimeLimit
	}
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
}

func finishPipeline(res *PipelineResult, total int, sets *collectionSets) {
	res.Collections = sets.collections()
	res.Summary = Summary{
		Total:      total,
		Successful: len(res.Records),
		Errors:     len(res.Errors),
		Warnings:   len(res.Warnings),
	}
}

// collectionSets accumulates the distinct filter values of accepted records.
type collectionSets struct {
	categories   *orderedSet
	difficulties *orderedSet
	tags         *orderedSet
}

func newCollectionSets() *collectionSets {
	return &collectionSets{
		categories:   newOrderedSet(),
		difficulties: newOrderedSet(),
		tags:         newOrderedSet(),
	}
}

func (c *collectionSets) observe(rec *Record) {
	c.categories.add(rec.Category)
	c.difficulties.add(string(rec.Difficulty))
	for _, t := range rec.Tags {
		c.tags.add(t)
	}
}

func (c *collectionSets) collections() Collections {
	return Collections{
		Categories:   c.categories.values(),
		Difficulties: c.difficulties.values(),
		Tags:         c.tags.values(),
	}
}

// orderedSet accumulates distinct values preserving first-seen order.
type orderedSet struct {
	seen map[string]bool
	vals []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(v string) {
	if v == "" || s.seen[v] {
		return
	}
	s.seen[v] = true
	s.vals = append(s.vals, v)
}

func (s *orderedSet) values() []string {
	if s.vals == nil {
		return []string{}
	}
	return s.vals
}
