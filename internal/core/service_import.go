package core

// service_import.go runs whole import operations: parse, validate, merge,
// save. One runImport covers the synchronous, asynchronous, and preview
// paths; they differ only in phase reporting and in whether the merge step
// touches the bank.

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fileOutcome is what one file contributed to a run.
type fileOutcome struct {
	name      string
	pipe      *PipelineResult
	headers   []string
	rows      int
	headerErr *HeaderError
	err       error
}

// Import runs one file through the full pipeline and persists the outcome.
func (s *Service) Import(ctx context.Context, file IncomingFile, opts Options) (*ImportResult, error) {
	return s.runImport(ctx, uuid.New().String(), []IncomingFile{file}, opts, nil, false)
}

// ImportAll runs several files as one import. Files are processed in order
// against the same bank; a catastrophic failure in one file is reported on
// its file entry and does not stop the others.
func (s *Service) ImportAll(ctx context.Context, files []IncomingFile, opts Options) (*ImportResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return s.runImport(ctx, uuid.New().String(), files, opts, nil, false)
}

// Preview runs the pipeline and classifies candidates against the bank
// without changing it. The result's merge summary and conflicts describe
// what a real run with the same options would do.
func (s *Service) Preview(ctx context.Context, file IncomingFile, opts Options) (*ImportResult, error) {
	return s.runImport(ctx, uuid.New().String(), []IncomingFile{file}, opts, nil, true)
}

// PreviewAll is Preview over several files at once.
func (s *Service) PreviewAll(ctx context.Context, files []IncomingFile, opts Options) (*ImportResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return s.runImport(ctx, uuid.New().String(), files, opts, nil, true)
}

func (s *Service) runImport(ctx context.Context, id string, files []IncomingFile, opts Options, imp *activeImport, dryRun bool) (*ImportResult, error) {
	opts = opts.withDefaults()
	start := time.Now()

	res := &ImportResult{
		ImportID:  id,
		Filename:  files[0].Name,
		Strategy:  opts.Strategy,
		Preview:   dryRun,
		StartedAt: start.UTC(),
	}

	if opts.UploadID == "" {
		opts.UploadID = id
	}

	var (
		outcomes    []fileOutcome
		reports     []FileReport
		candidates  = make([]*Record, 0)
		snapHeaders []string
		rowTotal    int
		firstErr    error
		failedFiles int
	)

	finish := func() {
		res.Questions = candidates
		res.Summary = Summary{
			Total:      rowTotal,
			Successful: len(candidates),
			Errors:     len(res.Errors),
			Warnings:   len(res.Warnings),
		}
		res.Snapshot = BuildSnapshot(res.Errors, res.Warnings, snapHeaders, rowTotal, opts.SnapshotRowLimit)
		res.Duration = time.Since(start)
		if len(files) > 1 {
			res.Files = reports
		}
	}

	fail := func(err error) (*ImportResult, error) {
		res.Error = err.Error()
		finish()
		s.recordRun(res, len(files), dryRun)
		return res, err
	}

	if !opts.Strategy.Valid() {
		return fail(fmt.Errorf("%w: %q", ErrUnknownStrategy, opts.Strategy))
	}
	preset, ok := GetPreset(opts.Preset)
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnknownPreset, opts.Preset))
	}

	s.logger.Info("import started",
		"import_id", id,
		"files", len(files),
		"strategy", string(opts.Strategy),
		"preview", dryRun,
		"client_ip", ClientIPFromContext(ctx),
	)

	for _, file := range files {
		out := s.processFile(ctx, file, opts, preset, imp)
		report := FileReport{Filename: out.name}

		if out.pipe == nil && out.err != nil {
			// this file is unusable; the others still run
			report.Error = out.err.Error()
			res.Errors = append(res.Errors, RowIssue{Message: out.name + ": " + out.err.Error()})
			reports = append(reports, report)
			outcomes = append(outcomes, out)
			failedFiles++
			if firstErr == nil {
				firstErr = out.err
			}
			continue
		}

		rowTotal += out.rows
		if snapHeaders == nil && len(out.headers) > 0 {
			snapHeaders = out.headers
		}
		if out.headerErr != nil {
			res.Errors = append(res.Errors, RowIssue{Message: out.headerErr.Error()})
		}

		if out.pipe != nil {
			res.Errors = append(res.Errors, out.pipe.Errors...)
			res.Warnings = append(res.Warnings, out.pipe.Warnings...)
			report.Summary = out.pipe.Summary
			candidates = append(candidates, out.pipe.Records...)
		} else {
			report.Summary = Summary{Total: out.rows}
		}
		if out.headerErr != nil {
			report.HeaderError = out.headerErr.Error()
			report.Summary.Errors++
		}

		reports = append(reports, report)
		outcomes = append(outcomes, out)

		// strict validation and cancellation abort the whole run
		if out.err != nil {
			return fail(out.err)
		}
	}

	if failedFiles == len(files) {
		return fail(firstErr)
	}

	sets := newCollectionSets()
	for _, rec := range candidates {
		sets.observe(rec)
	}
	res.Collections = sets.collections()

	if imp != nil {
		imp.setPhase(PhaseMerging, "")
	}

	if dryRun {
		s.bankMu.RLock()
		sum, conflicts, err := DryRun(s.bank, candidates, opts.Strategy)
		s.bankMu.RUnlock()
		if err != nil {
			return fail(err)
		}
		res.Merge = sum
		res.Conflicts = conflicts
	} else {
		s.bankMu.Lock()
		for i := range outcomes {
			if outcomes[i].pipe == nil {
				continue
			}
			sum, conflicts, err := Merge(s.bank, outcomes[i].pipe.Records, opts.Strategy)
			if err != nil {
				s.bankMu.Unlock()
				return fail(err)
			}
			reports[i].Merge = sum
			res.Merge.Processed += sum.Processed
			res.Merge.Added += sum.Added
			res.Merge.Updated += sum.Updated
			res.Merge.Skipped += sum.Skipped
			res.Conflicts = append(res.Conflicts, conflicts...)
		}

		if imp != nil {
			imp.setPhase(PhaseSaving, "")
		}
		err := s.store.Save(ctx, s.bank.Envelope())
		s.bankMu.Unlock()
		if err != nil {
			// the in-memory bank is now ahead of disk; Reload rolls back
			s.logger.Error("bank save failed", "import_id", id, "error", err)
			return fail(fmt.Errorf("save bank: %w", err))
		}
	}

	finish()
	s.recordRun(res, len(files), dryRun)

	s.logger.Info("import complete",
		"import_id", id,
		"preview", dryRun,
		"questions", len(candidates),
		"added", res.Merge.Added,
		"updated", res.Merge.Updated,
		"skipped", res.Merge.Skipped,
		"errors", res.Summary.Errors,
		"warnings", res.Summary.Warnings,
		"duration_ms", res.Duration.Milliseconds(),
	)

	return res, nil
}

// processFile parses and validates one file. A nil pipe with a non-nil err
// means the file as a whole was unusable; a non-nil pipe with a non-nil err
// means the run must abort (strict validation hit or cancellation).
func (s *Service) processFile(ctx context.Context, file IncomingFile, opts Options, preset Preset, imp *activeImport) fileOutcome {
	out := fileOutcome{name: file.Name}

	if imp != nil {
		imp.setPhase(PhaseParsing, file.Name)
	}

	meta := RowMetadata{
		UploadID: opts.UploadID,
		Filename: file.Name,
		Owner:    opts.Owner,
		Tags:     opts.Tags,
	}

	if looksLikeJSON(file.Name, file.Text) {
		env, err := ReadJSON([]byte(file.Text))
		if err != nil {
			out.err = err
			return out
		}
		out.rows = len(env.Questions)
		if imp != nil {
			imp.setPhase(PhaseValidating, file.Name)
		}
		out.pipe, out.err = RunRecords(ctx, env.Questions, opts, meta, s.progressFn(imp))
		return out
	}

	parsed, err := Parse(file.Text)
	if err != nil {
		out.err = err
		return out
	}
	out.rows = len(parsed.Rows) + len(parsed.Issues)
	out.headers = parsed.Headers

	headers := ResolveHeaders(parsed.Headers, opts.HeaderOverrides)
	if missing := MissingHeaders(headers, preset.Required); len(missing) > 0 {
		out.headerErr = &HeaderError{Filename: file.Name, Missing: missing}
		if opts.HeaderMode == HeaderStrict {
			return out
		}
	}

	if imp != nil {
		imp.setPhase(PhaseValidating, file.Name)
	}
	out.pipe, out.err = RunBatched(ctx, parsed, opts, meta, s.progressFn(imp))
	return out
}

func (s *Service) progressFn(imp *activeImport) ProgressFunc {
	if imp == nil {
		return nil
	}
	return func(processed, total int) {
		imp.setProcessed(processed, total)
	}
}

// recordRun appends the run to import history. Previews are not history.
func (s *Service) recordRun(res *ImportResult, fileCount int, dryRun bool) {
	if dryRun {
		return
	}
	s.appendHistory(HistoryEntry{
		ImportID:  res.ImportID,
		Filename:  res.Filename,
		Files:     fileCount,
		Strategy:  res.Strategy,
		Summary:   res.Summary,
		Merge:     res.Merge,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
		Error:     res.Error,
	})
}

// looksLikeJSON detects structured payloads by file extension, falling back
// to the first non-space byte for extensionless uploads.
func looksLikeJSON(name, text string) bool {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return true
	}
	t := strings.TrimLeft(text, " \t\r\n\uFEFF")
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}
