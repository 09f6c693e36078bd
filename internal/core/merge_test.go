package core

import (
	"errors"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseStrategy Tests
// ----------------------------------------------------------------------------

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Strategy
		wantErr bool
	}{
		{name: "empty means skip", input: "", want: StrategySkip},
		{name: "skip", input: "skip", want: StrategySkip},
		{name: "overwrite", input: "overwrite", want: StrategyOverwrite},
		{name: "force", input: "force", want: StrategyForce},
		{name: "merge", input: "merge", want: StrategyMerge},
		{name: "case folded", input: "SKIP", want: StrategySkip},
		{name: "whitespace trimmed", input: "  merge  ", want: StrategyMerge},
		{name: "unknown", input: "replace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStrategy) {
					t.Errorf("ParseStrategy(%q) err = %v, want ErrUnknownStrategy", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStrategy(%q) err = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Merge Tests
// ----------------------------------------------------------------------------

func TestMerge_NewRecordsAdded(t *testing.T) {
	b := NewBank()
	candidates := []*Record{
		{Question: "Q1"},
		{Question: "Q2"},
	}

	summary, conflicts, err := Merge(b, candidates, StrategySkip)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := MergeSummary{Processed: 2, Added: 2}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	if len(conflicts) != 0 {
		t.Errorf("conflicts = %v, want none for new records", conflicts)
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
}

func TestMerge_Skip(t *testing.T) {
	existing := &Record{ID: "1", Question: "What is an atom?", Category: "Science"}
	b := newTestBank(existing)

	candidate := &Record{Question: "What is an atom?", Category: "Chemistry"}
	summary, conflicts, err := Merge(b, []*Record{candidate}, StrategySkip)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := MergeSummary{Processed: 1, Skipped: 1}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	if existing.Category != "Science" {
		t.Errorf("existing category = %q, want untouched", existing.Category)
	}
	if b.Len() != 1 {
		t.Errorf("Len = %d, want 1", b.Len())
	}

	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %v, want one", conflicts)
	}
	c := conflicts[0]
	if c.ExistingID != "1" || c.Action != ActionSkip || c.Strategy != StrategySkip {
		t.Errorf("conflict = %+v", c)
	}
}

func TestMerge_Overwrite(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	existing := &Record{
		ID:        "1",
		Question:  "What is an atom?",
		Category:  "Science",
		Analytics: Analytics{TimesAsked: 12, TimesCorrect: 9},
		Source:    Source{CreatedAt: created},
	}
	b := newTestBank(existing)

	candidate := &Record{
		ID:       "imported-9",
		Question: "What is an atom?",
		Category: "Chemistry",
		Points:   3,
	}
	summary, conflicts, err := Merge(b, []*Record{candidate}, StrategyOverwrite)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := MergeSummary{Processed: 1, Updated: 1}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}

	got, ok := b.Get("1")
	if !ok {
		t.Fatal("existing id lost")
	}
	if got.Category != "Chemistry" || got.Points != 3 {
		t.Errorf("record = %+v, want incoming fields", got)
	}
	// Identity, analytics, and creation time stay with the bank.
	if got.ID != "1" {
		t.Errorf("ID = %q, want 1", got.ID)
	}
	if got.Analytics.TimesAsked != 12 || got.Analytics.TimesCorrect != 9 {
		t.Errorf("Analytics = %+v, want preserved", got.Analytics)
	}
	if !got.Source.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.Source.CreatedAt, created)
	}
	// The incoming id never enters the index.
	if _, ok := b.Get("imported-9"); ok {
		t.Error("incoming id indexed")
	}

	if len(conflicts) != 1 || conflicts[0].Action != ActionUpdate {
		t.Errorf("conflicts = %+v", conflicts)
	}
}

func TestMerge_Force(t *testing.T) {
	existing := &Record{ID: "1", Question: "What is an atom?"}
	b := newTestBank(existing)

	candidate := &Record{Question: "What is an atom?"}
	summary, conflicts, err := Merge(b, []*Record{candidate}, StrategyForce)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := MergeSummary{Processed: 1, Added: 1}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	if candidate.ID == "" || candidate.ID == "1" {
		t.Errorf("forced id = %q, want a fresh one", candidate.ID)
	}
	// The original keeps the text index, so the next duplicate still matches it.
	got, ok := b.FindMatch(&Record{Question: "what is an atom"})
	if !ok || got != existing {
		t.Errorf("text match = %v, %v, want the original", got, ok)
	}
	if len(conflicts) != 1 || conflicts[0].Action != ActionAdd {
		t.Errorf("conflicts = %+v", conflicts)
	}
}

// TestMerge_ForceRepeatedly verifies every force import of the same question
// lands as its own record.
func TestMerge_ForceRepeatedly(t *testing.T) {
	b := newTestBank(&Record{ID: "1", Question: "Same question?"})

	for i := 0; i < 3; i++ {
		_, _, err := Merge(b, []*Record{{Question: "Same question?"}}, StrategyForce)
		if err != nil {
			t.Fatalf("Merge %d: %v", i, err)
		}
	}

	if b.Len() != 4 {
		t.Errorf("Len = %d, want 4", b.Len())
	}
	seen := make(map[string]bool)
	for _, rec := range b.Questions {
		if seen[rec.ID] {
			t.Errorf("duplicate id %q", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestMerge_MergeCombinesFields(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	existing := &Record{
		ID:            "1",
		Question:      "What is 2+2?",
		Type:          TypeMultipleChoice,
		Options:       []string{"Three", "Four"},
		CorrectAnswer: "B",
		Explanation:   "Basic addition.",
		Tags:          []string{"math"},
		Points:        1,
		TimeLimit:     30,
		Analytics:     Analytics{TimesAsked: 5},
		Source:        Source{Owner: "alice", CreatedAt: created},
	}
	existing.Custom = NewCustomFields()
	existing.Custom.Set("source_book", "alpha")
	b := newTestBank(existing)

	incoming := &Record{
		ID:       "1",
		Question: "What is 2 + 2?",
		Options:  []string{"", "four"},
		Category: "Math",
		Tags:     []string{"arithmetic", "MATH"},
		Points:   2,
		Source:   Source{Owner: "bob"},
	}
	incoming.Custom = NewCustomFields()
	incoming.Custom.Set("page", "12")

	summary, _, err := Merge(b, []*Record{incoming}, StrategyMerge)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if summary.Updated != 1 {
		t.Fatalf("summary = %+v, want one update", summary)
	}

	got, ok := b.Get("1")
	if !ok {
		t.Fatal("record lost")
	}

	// Non-empty incoming scalars win; empty ones keep the existing value.
	if got.Question != "What is 2 + 2?" {
		t.Errorf("Question = %q", got.Question)
	}
	if got.Category != "Math" {
		t.Errorf("Category = %q, want Math", got.Category)
	}
	if got.Explanation != "Basic addition." {
		t.Errorf("Explanation = %q, want existing kept", got.Explanation)
	}
	if got.Points != 2 {
		t.Errorf("Points = %v, want 2", got.Points)
	}
	if got.TimeLimit != 30 {
		t.Errorf("TimeLimit = %d, want existing 30", got.TimeLimit)
	}

	// Options overlay by position.
	if !equalStrings(got.Options, []string{"Three", "four"}) {
		t.Errorf("Options = %v, want [Three four]", got.Options)
	}

	// Lists union case-insensitively.
	if !equalStrings(got.Tags, []string{"math", "arithmetic"}) {
		t.Errorf("Tags = %v, want [math arithmetic]", got.Tags)
	}

	// Custom fields union per key.
	if v, _ := got.Custom.Get("source_book"); v != "alpha" {
		t.Errorf("Custom[source_book] = %q", v)
	}
	if v, _ := got.Custom.Get("page"); v != "12" {
		t.Errorf("Custom[page] = %q", v)
	}

	// Identity, analytics, and creation time stay with the bank.
	if got.ID != "1" || got.Analytics.TimesAsked != 5 {
		t.Errorf("identity = %q analytics = %+v", got.ID, got.Analytics)
	}
	if !got.Source.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.Source.CreatedAt, created)
	}
	if got.Source.Owner != "bob" {
		t.Errorf("Owner = %q, want incoming bob", got.Source.Owner)
	}
}

func TestMerge_UnknownStrategy(t *testing.T) {
	b := newTestBank(&Record{ID: "1", Question: "Q1"})

	_, _, err := Merge(b, []*Record{{Question: "Q2"}}, Strategy("replace"))
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("err = %v, want ErrUnknownStrategy", err)
	}
	if b.Len() != 1 {
		t.Errorf("Len = %d, bank touched by failed merge", b.Len())
	}
}

func TestMerge_MixedCandidates(t *testing.T) {
	b := newTestBank(
		&Record{ID: "1", Question: "Existing one?"},
		&Record{ID: "2", Question: "Existing two?"},
	)

	// One text duplicate, one fresh record, one id duplicate.
	candidates := []*Record{
		{Question: "Existing one?"},
		{Question: "Brand new?"},
		{ID: "2", Question: "Renamed"},
	}
	summary, conflicts, err := Merge(b, candidates, StrategySkip)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := MergeSummary{Processed: 3, Added: 1, Skipped: 2}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	if len(conflicts) != 2 {
		t.Errorf("conflicts = %v, want two", conflicts)
	}
	if b.Len() != 3 {
		t.Errorf("Len = %d, want 3", b.Len())
	}
}

// ----------------------------------------------------------------------------
// DryRun Tests
// ----------------------------------------------------------------------------

func TestDryRun_NoMutation(t *testing.T) {
	existing := &Record{ID: "1", Question: "What is an atom?", Category: "Science"}
	b := newTestBank(existing)

	for _, strategy := range []Strategy{StrategySkip, StrategyOverwrite, StrategyForce, StrategyMerge} {
		candidates := []*Record{
			{Question: "What is an atom?", Category: "Chemistry"},
			{Question: "Brand new?"},
		}
		_, _, err := DryRun(b, candidates, strategy)
		if err != nil {
			t.Fatalf("DryRun(%s): %v", strategy, err)
		}

		if b.Len() != 1 {
			t.Errorf("%s: Len = %d, bank mutated", strategy, b.Len())
		}
		if existing.Category != "Science" {
			t.Errorf("%s: existing mutated: %+v", strategy, existing)
		}
		if candidates[1].ID != "" {
			t.Errorf("%s: candidate got an id allocated", strategy)
		}
	}
}

// TestDryRun_MatchesMergeCounts verifies the preview reports the same counts
// a real merge produces.
func TestDryRun_MatchesMergeCounts(t *testing.T) {
	build := func() (*Bank, []*Record) {
		b := newTestBank(
			&Record{ID: "1", Question: "Existing one?"},
			&Record{ID: "2", Question: "Existing two?"},
		)
		candidates := []*Record{
			{Question: "Existing one?"},
			{Question: "Brand new?"},
			{ID: "2", Question: "Renamed"},
			{Question: "brand NEW"}, // duplicate within the candidate set
		}
		return b, candidates
	}

	for _, strategy := range []Strategy{StrategySkip, StrategyOverwrite, StrategyForce, StrategyMerge} {
		dryBank, dryCands := build()
		dry, _, err := DryRun(dryBank, dryCands, strategy)
		if err != nil {
			t.Fatalf("DryRun(%s): %v", strategy, err)
		}

		realBank, realCands := build()
		real, _, err := Merge(realBank, realCands, strategy)
		if err != nil {
			t.Fatalf("Merge(%s): %v", strategy, err)
		}

		if dry != real {
			t.Errorf("%s: dry run %+v, merge %+v", strategy, dry, real)
		}
	}
}

// TestDryRun_WithinCandidateDuplicates verifies duplicates inside one upload
// are detected even though nothing is inserted.
func TestDryRun_WithinCandidateDuplicates(t *testing.T) {
	b := NewBank()
	candidates := []*Record{
		{Question: "Same question?"},
		{Question: "same QUESTION"},
	}

	summary, conflicts, err := DryRun(b, candidates, StrategySkip)
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}

	want := MergeSummary{Processed: 2, Added: 1, Skipped: 1}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	if len(conflicts) != 1 {
		t.Errorf("conflicts = %v, want one", conflicts)
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d, bank mutated", b.Len())
	}
}

func TestDryRun_UnknownStrategy(t *testing.T) {
	_, _, err := DryRun(NewBank(), nil, Strategy("replace"))
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("err = %v, want ErrUnknownStrategy", err)
	}
}
