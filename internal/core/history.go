package core

// history.go keeps a bounded in-memory log of completed import runs so the
// UI can show recent activity without replaying full results.

import "time"

// HistoryEntry summarizes one completed import run.
type HistoryEntry struct {
	ImportID  string        `json:"import_id"`
	Filename  string        `json:"filename"`
	Files     int           `json:"files"`
	Strategy  Strategy      `json:"strategy"`
	Summary   Summary       `json:"summary"`
	Merge     MergeSummary  `json:"merge"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// appendHistory records a completed run, newest first, trimming to the cap.
func (s *Service) appendHistory(entry HistoryEntry) {
	s.histMu.Lock()
	defer s.histMu.Unlock()

	s.history = append([]HistoryEntry{entry}, s.history...)
	if len(s.history) > s.cfg.HistoryLimit {
		s.history = s.history[:s.cfg.HistoryLimit]
	}
}

// History returns recent completed runs, newest first.
func (s *Service) History() []HistoryEntry {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}
