package core

import (
	"context"
	"errors"
	"testing"
)

func mustParse(t *testing.T, text string) *ParseResult {
	t.Helper()
	parsed, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return parsed
}

// ----------------------------------------------------------------------------
// RunBatched Tests
// ----------------------------------------------------------------------------

func TestRunBatched_Basic(t *testing.T) {
	parsed := mustParse(t, "question,options,correct_answer,category\n"+
		"Q1,x|y,A,Math\n"+
		"Q2,x|y,B,Science\n"+
		"Q3,x|y,A,Math\n")

	res, err := RunBatched(context.Background(), parsed, Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}

	if len(res.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(res.Records))
	}
	// Output order follows source row order.
	for i, wantQ := range []string{"Q1", "Q2", "Q3"} {
		if res.Records[i].Question != wantQ {
			t.Errorf("record %d = %q, want %q", i, res.Records[i].Question, wantQ)
		}
	}
	// Source lines point at the original file.
	if res.Records[0].Source.Line != 2 || res.Records[2].Source.Line != 4 {
		t.Errorf("source lines = %d, %d, want 2, 4",
			res.Records[0].Source.Line, res.Records[2].Source.Line)
	}

	want := Summary{Total: 3, Successful: 3, Errors: 0, Warnings: 0}
	if res.Summary != want {
		t.Errorf("Summary = %+v, want %+v", res.Summary, want)
	}
}

func TestRunBatched_InvalidRowsExcluded(t *testing.T) {
	parsed := mustParse(t, "question,options,correct_answer\n"+
		"Q1,x|y,A\n"+
		",x|y,A\n"+
		"Q3,x|y,B\n")

	res, err := RunBatched(context.Background(), parsed, Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}

	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want one", res.Errors)
	}
	if res.Errors[0].Line != 3 || res.Errors[0].Field != FieldQuestion {
		t.Errorf("error = %+v, want question error on line 3", res.Errors[0])
	}
	if res.Summary.Total != 3 || res.Summary.Successful != 2 {
		t.Errorf("Summary = %+v", res.Summary)
	}
}

// TestRunBatched_ParseIssuesCarried verifies structural parse issues land in
// the run's error list and count toward the total.
func TestRunBatched_ParseIssuesCarried(t *testing.T) {
	parsed := mustParse(t, "question\nQ1\nQ2,extra\nQ3\n")
	if len(parsed.Issues) != 1 {
		t.Fatalf("parse issues = %v, want one overlong row", parsed.Issues)
	}

	res, err := RunBatched(context.Background(), parsed, Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}

	if res.Summary.Total != 3 {
		t.Errorf("Total = %d, want 3 (2 rows + 1 dropped)", res.Summary.Total)
	}
	if res.Summary.Successful != 2 || res.Summary.Errors != 1 {
		t.Errorf("Summary = %+v", res.Summary)
	}
	if res.Errors[0].Line != 3 {
		t.Errorf("carried issue = %+v, want line 3", res.Errors[0])
	}
}

func TestRunBatched_Strict(t *testing.T) {
	parsed := mustParse(t, "question,options,correct_answer\n"+
		"Q1,x|y,A\n"+
		",x|y,A\n"+
		"Q3,x|y,B\n")

	res, err := RunBatched(context.Background(), parsed, Options{Strict: true}, RowMetadata{}, nil)
	if err == nil {
		t.Fatal("want strict mode error, got nil")
	}

	var strictErr *StrictModeError
	if !errors.As(err, &strictErr) {
		t.Fatalf("error type = %T, want *StrictModeError", err)
	}
	if strictErr.Issue.Line != 3 || strictErr.Issue.Field != FieldQuestion {
		t.Errorf("issue = %+v, want question error on line 3", strictErr.Issue)
	}

	// Rows accepted before the failure are still returned.
	if res == nil || len(res.Records) != 1 {
		t.Fatalf("res = %+v, want the one record accepted before the abort", res)
	}
	if res.Records[0].Question != "Q1" {
		t.Errorf("kept record = %q, want Q1", res.Records[0].Question)
	}
}

func TestRunBatched_UnknownPreset(t *testing.T) {
	parsed := mustParse(t, "question\nQ1\n")

	res, err := RunBatched(context.Background(), parsed, Options{Preset: "nope"}, RowMetadata{}, nil)
	if !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("err = %v, want ErrUnknownPreset", err)
	}
	if res != nil {
		t.Errorf("res = %+v, want nil", res)
	}
}

// TestRunBatched_PresetRequirements verifies a named preset's required fields
// are enforced per row.
func TestRunBatched_PresetRequirements(t *testing.T) {
	parsed := mustParse(t, "question,correct_answer\nQ1,\nQ2,42\n")

	res, err := RunBatched(context.Background(), parsed, Options{Preset: "quiz"}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}

	if res.Summary.Successful != 1 || res.Summary.Errors != 1 {
		t.Fatalf("Summary = %+v, want 1 accepted 1 rejected", res.Summary)
	}
	if res.Errors[0].Field != FieldCorrectAnswer {
		t.Errorf("error = %+v, want missing correct answer", res.Errors[0])
	}
}

func TestRunBatched_Progress(t *testing.T) {
	parsed := mustParse(t, "question\nQ1\nQ2\nQ3\nQ4\nQ5\n")

	var calls [][2]int
	progress := func(processed, total int) {
		calls = append(calls, [2]int{processed, total})
	}

	_, err := RunBatched(context.Background(), parsed, Options{BatchSize: 2}, RowMetadata{}, progress)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}

	want := [][2]int{{2, 5}, {4, 5}, {5, 5}}
	if len(calls) != len(want) {
		t.Fatalf("progress calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestRunBatched_CancelledBeforeStart(t *testing.T) {
	parsed := mustParse(t, "question\nQ1\nQ2\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := RunBatched(ctx, parsed, Options{}, RowMetadata{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res == nil || len(res.Records) != 0 {
		t.Errorf("res = %+v, want empty partial result", res)
	}
	if res.Summary.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Summary.Total)
	}
}

// TestRunBatched_CancelledMidRun cancels from the progress callback so the
// next chunk boundary observes it.
func TestRunBatched_CancelledMidRun(t *testing.T) {
	parsed := mustParse(t, "question\nQ1\nQ2\nQ3\nQ4\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	progress := func(processed, total int) {
		cancel()
	}

	res, err := RunBatched(ctx, parsed, Options{BatchSize: 1}, RowMetadata{}, progress)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(res.Records) != 1 {
		t.Errorf("got %d records, want 1 accepted before cancellation", len(res.Records))
	}
}

func TestRunBatched_AutoCorrect(t *testing.T) {
	const text = "question,options,correct_answer,difficulty\nQ1,x|y,2,beginner\n"

	// Corrections off: the synonym difficulty draws a warning.
	res, err := RunBatched(context.Background(), mustParse(t, text), Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}
	if res.Records[0].CorrectAnswer != "2" {
		t.Errorf("answer = %q, want untouched 2", res.Records[0].CorrectAnswer)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Field != FieldDifficulty {
		t.Errorf("warnings = %v, want one difficulty warning", res.Warnings)
	}

	// Corrections on: answer becomes a letter, difficulty collapses.
	res, err = RunBatched(context.Background(), mustParse(t, text), Options{AutoCorrect: true}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}
	if res.Records[0].CorrectAnswer != "B" {
		t.Errorf("answer = %q, want B", res.Records[0].CorrectAnswer)
	}
	if res.Records[0].Difficulty != DifficultyEasy {
		t.Errorf("difficulty = %q, want Easy", res.Records[0].Difficulty)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v, want none after correction", res.Warnings)
	}
}

func TestRunBatched_DropCustom(t *testing.T) {
	const text = "question,reviewer\nQ1,bob\n"

	res, err := RunBatched(context.Background(), mustParse(t, text), Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}
	if res.Records[0].Custom == nil {
		t.Error("custom fields dropped without DropCustom")
	}

	res, err = RunBatched(context.Background(), mustParse(t, text), Options{DropCustom: true}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}
	if res.Records[0].Custom != nil {
		t.Errorf("Custom = %v, want nil with DropCustom", res.Records[0].Custom)
	}
}

func TestRunBatched_Collections(t *testing.T) {
	parsed := mustParse(t, "question,category,difficulty,tags\n"+
		"Q1,Math,Easy,algebra\n"+
		"Q2,Science,Hard,\"physics, algebra\"\n"+
		"Q3,Math,Easy,\n")

	res, err := RunBatched(context.Background(), parsed, Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}

	if !equalStrings(res.Collections.Categories, []string{"Math", "Science"}) {
		t.Errorf("Categories = %v", res.Collections.Categories)
	}
	if !equalStrings(res.Collections.Difficulties, []string{"Easy", "Hard"}) {
		t.Errorf("Difficulties = %v", res.Collections.Difficulties)
	}
	if !equalStrings(res.Collections.Tags, []string{"algebra", "physics"}) {
		t.Errorf("Tags = %v", res.Collections.Tags)
	}
}

// Collections are never nil so JSON renders them as empty arrays.
func TestRunBatched_EmptyCollections(t *testing.T) {
	parsed := mustParse(t, "question\n,\n")

	res, err := RunBatched(context.Background(), parsed, Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}
	if res.Collections.Categories == nil || res.Collections.Difficulties == nil || res.Collections.Tags == nil {
		t.Errorf("Collections = %+v, want empty non-nil slices", res.Collections)
	}
}

func TestRunBatched_HeaderOverrides(t *testing.T) {
	parsed := mustParse(t, "Key,Question\nq-9,What?\n")

	opts := Options{HeaderOverrides: map[string]string{"Key": "id"}}
	res, err := RunBatched(context.Background(), parsed, opts, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunBatched: %v", err)
	}
	if res.Records[0].ID != "q-9" {
		t.Errorf("ID = %q, want q-9 via override", res.Records[0].ID)
	}
}

// ----------------------------------------------------------------------------
// RunRecords Tests
// ----------------------------------------------------------------------------

func TestRunRecords_DefaultsAndProvenance(t *testing.T) {
	recs := []*Record{
		{Question: "Q1"},
		{Question: "Q2", Points: 5, Source: Source{Owner: "bob"}},
	}
	meta := RowMetadata{UploadID: "u-2", Filename: "bank.json", Owner: "alice"}

	res, err := RunRecords(context.Background(), recs, Options{}, meta, nil)
	if err != nil {
		t.Fatalf("RunRecords: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}

	first := res.Records[0]
	if first.Points != DefaultPoints || first.TimeLimit != DefaultTimeLimit {
		t.Errorf("defaults not applied: points %v, time limit %d", first.Points, first.TimeLimit)
	}
	if first.Type != TypeShortAnswer || first.Difficulty != DifficultyMedium {
		t.Errorf("type %q difficulty %q, want inferred defaults", first.Type, first.Difficulty)
	}
	if first.Source.UploadID != "u-2" || first.Source.Owner != "alice" {
		t.Errorf("Source = %+v", first.Source)
	}

	// Existing owner survives; explicit points survive.
	second := res.Records[1]
	if second.Source.Owner != "bob" {
		t.Errorf("Owner = %q, want existing bob kept", second.Source.Owner)
	}
	if second.Points != 5 {
		t.Errorf("Points = %v, want 5 kept", second.Points)
	}
}

// TestRunRecords_InputNotMutated verifies callers keep their original records.
func TestRunRecords_InputNotMutated(t *testing.T) {
	orig := &Record{Question: "Q1", Difficulty: "beginner"}

	_, err := RunRecords(context.Background(), []*Record{orig}, Options{AutoCorrect: true}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunRecords: %v", err)
	}

	if orig.Points != 0 || orig.TimeLimit != 0 {
		t.Errorf("original defaults filled: %+v", orig)
	}
	if orig.Difficulty != "beginner" {
		t.Errorf("original difficulty = %q, want untouched", orig.Difficulty)
	}
	if !orig.Source.CreatedAt.IsZero() {
		t.Error("original source stamped")
	}
}

func TestRunRecords_NilEntries(t *testing.T) {
	recs := []*Record{{Question: "Q1"}, nil, {Question: "Q3"}}

	res, err := RunRecords(context.Background(), recs, Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunRecords: %v", err)
	}
	if res.Summary.Total != 3 {
		t.Errorf("Total = %d, want 3 including the nil entry", res.Summary.Total)
	}
	if res.Summary.Successful != 2 {
		t.Errorf("Successful = %d, want 2", res.Summary.Successful)
	}
}

func TestRunRecords_CreatedAtKept(t *testing.T) {
	orig := &Record{Question: "Q1"}
	first, err := RunRecords(context.Background(), []*Record{orig}, Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunRecords: %v", err)
	}
	created := first.Records[0].Source.CreatedAt
	if created.IsZero() {
		t.Fatal("CreatedAt not stamped on first run")
	}

	// Re-running the produced record keeps its creation time.
	second, err := RunRecords(context.Background(), first.Records, Options{}, RowMetadata{}, nil)
	if err != nil {
		t.Fatalf("RunRecords: %v", err)
	}
	if !second.Records[0].Source.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v kept", second.Records[0].Source.CreatedAt, created)
	}
}

func TestRunRecords_RunTags(t *testing.T) {
	recs := []*Record{{Question: "Q1", Tags: []string{"algebra"}}}
	meta := RowMetadata{Tags: []string{"imported", "algebra"}}

	res, err := RunRecords(context.Background(), recs, Options{}, meta, nil)
	if err != nil {
		t.Fatalf("RunRecords: %v", err)
	}
	if !equalStrings(res.Records[0].Tags, []string{"algebra", "imported"}) {
		t.Errorf("Tags = %v, want [algebra imported]", res.Records[0].Tags)
	}
}
