package web

// handlers_questions.go serves the bank itself: question queries, stats,
// collections, presets, and export downloads.

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/qbank/internal/core"
	"github.com/go-chi/chi/v5"
)

type questionListResponse struct {
	Questions []*core.Record `json:"questions"`
	Total     int            `json:"total"`
}

type healthResponse struct {
	Status    string                   `json:"status"`
	Questions int                      `json:"questions"`
	Imports   core.ImportLimiterStatus `json:"imports"`
}

// handleListQuestions returns bank questions matching the query filters.
// All filters are optional: category, difficulty, type, tag, and q (a
// case-insensitive substring of the question text).
func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.QuestionFilter{
		Category:   q.Get("category"),
		Difficulty: core.ParseDifficulty(q.Get("difficulty")),
		Type:       core.ParseQuestionType(q.Get("type")),
		Tag:        q.Get("tag"),
		Query:      q.Get("q"),
	}

	questions := s.service.Questions(filter)
	writeJSON(w, http.StatusOK, questionListResponse{
		Questions: questions,
		Total:     len(questions),
	})
}

// handleGetQuestion returns a single question by id.
func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "questionID")

	rec, ok := s.service.Question(id)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrQuestionNotFound, id), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteQuestion removes a question from the bank and persists the
// change.
func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "questionID")

	if err := s.service.DeleteQuestion(requestContext(r), id); err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleResetBank clears the whole bank. Requires confirm=true so a stray
// request cannot wipe the data.
func (s *Server) handleResetBank(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		s.respondError(w, r, fmt.Errorf("bank reset requires confirm=true"), http.StatusBadRequest)
		return
	}

	removed, err := s.service.ResetBank(requestContext(r))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "reset",
		"removed": removed,
	})
}

// handleStats returns aggregate counts over the bank.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Stats())
}

// handleCollections returns the distinct categories, difficulties, and tags
// across the bank.
func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Collections())
}

// handlePresets lists the registered required-field profiles.
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"presets": core.Presets(),
	})
}

// handleExportCSV downloads the whole bank as a CSV file that round-trips
// through the importer.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("question_bank_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	// Headers are already written, so failures can only be logged.
	if err := s.service.ExportCSV(w); err != nil {
		slog.Error("csv export failed", "error", err)
	}
}

// handleExportJSON downloads the whole bank as a versioned JSON envelope.
func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("question_bank_%s.json", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	if err := s.service.ExportJSON(w); err != nil {
		slog.Error("json export failed", "error", err)
	}
}

// handleHealth reports liveness plus a small amount of operational state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Questions: s.service.Stats().Total,
		Imports:   s.service.LimiterStatus(),
	})
}
