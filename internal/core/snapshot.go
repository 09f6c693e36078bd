package core

// snapshot.go builds the bounded, serializable summary of one import run.

import "time"

// Snapshot is a compact view of one run's outcome, bounded so it stays
// cheap to store and ship no matter how noisy the import was. The full
// error and warning lists remain on the originating result; exporting the
// snapshot anywhere is the caller's business.
type Snapshot struct {
	Timestamp       time.Time  `json:"timestamp"`
	Headers         []string   `json:"headers"`
	Rows            int        `json:"rows"`
	TotalErrors     int        `json:"total_errors"`
	TotalWarnings   int        `json:"total_warnings"`
	CompactErrors   []RowIssue `json:"compact_errors"`
	CompactWarnings []RowIssue `json:"compact_warnings"`
}

// BuildSnapshot captures the run's accumulators at call time. limit caps
// both compact lists; values below one fall back to the default.
func BuildSnapshot(errors, warnings []RowIssue, headers []string, rowCount, limit int) *Snapshot {
	if limit <= 0 {
		limit = DefaultSnapshotRowLimit
	}
	return &Snapshot{
		Timestamp:       time.Now().UTC(),
		Headers:         append([]string(nil), headers...),
		Rows:            rowCount,
		TotalErrors:     len(errors),
		TotalWarnings:   len(warnings),
		CompactErrors:   compactIssues(errors, limit),
		CompactWarnings: compactIssues(warnings, limit),
	}
}

// compactIssues copies at most limit issues so the snapshot never aliases
// the live lists.
func compactIssues(issues []RowIssue, limit int) []RowIssue {
	n := len(issues)
	if n > limit {
		n = limit
	}
	out := make([]RowIssue, n)
	copy(out, issues[:n])
	return out
}
