package core

// service.go wires the import pipeline to a persistent question bank.
//
// The service owns the only mutable copy of the bank. All mutation goes
// through a single writer lock, so one import's merge and save are atomic
// with respect to every other import and to readers. Reads hand out deep
// copies; callers never see a record the merge engine might rewrite under
// them.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultImportTimeout bounds one asynchronous import run.
var DefaultImportTimeout = 10 * time.Minute

// DefaultResultTTL is how long a finished run stays queryable by id.
var DefaultResultTTL = 5 * time.Minute

// BankStore persists the bank between runs. Load on a store that has never
// been written must return an empty envelope, not an error.
type BankStore interface {
	Load(ctx context.Context) (BankEnvelope, error)
	Save(ctx context.Context, env BankEnvelope) error
}

// ServiceConfig tunes service behavior. Zero values select defaults.
type ServiceConfig struct {
	MaxConcurrentImports int           // simultaneous import runs (default 5)
	MaxWaitTime          time.Duration // queue wait before rejecting a run (default 30s)
	ImportTimeout        time.Duration // deadline for one async run (default 10m)
	ResultTTL            time.Duration // finished runs stay queryable this long (default 5m)
	CleanupInterval      time.Duration // janitor sweep period (default 1m)
	HistoryLimit         int           // completed runs kept in history (default 50)
	Logger               *slog.Logger
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.MaxConcurrentImports <= 0 {
		c.MaxConcurrentImports = DefaultMaxConcurrentImports
	}
	if c.MaxWaitTime <= 0 {
		c.MaxWaitTime = DefaultMaxWaitTime
	}
	if c.ImportTimeout <= 0 {
		c.ImportTimeout = DefaultImportTimeout
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = DefaultResultTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Minute
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Service provides the core business logic for question imports.
type Service struct {
	store  BankStore
	cfg    ServiceConfig
	logger *slog.Logger

	limiter *ImportLimiter

	bankMu sync.RWMutex
	bank   *Bank

	mu      sync.RWMutex
	imports map[string]*activeImport

	histMu  sync.Mutex
	history []HistoryEntry
}

// NewService loads the bank from the store and returns a ready service.
func NewService(ctx context.Context, store BankStore, cfg ServiceConfig) (*Service, error) {
	cfg = cfg.withDefaults()

	env, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}

	return &Service{
		store:   store,
		cfg:     cfg,
		logger:  cfg.Logger,
		limiter: NewImportLimiter(cfg.MaxConcurrentImports, cfg.MaxWaitTime),
		bank:    FromEnvelope(env),
		imports: make(map[string]*activeImport),
	}, nil
}

// Reload replaces the in-memory bank with the stored copy, discarding any
// state that failed to save.
func (s *Service) Reload(ctx context.Context) error {
	env, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load bank: %w", err)
	}

	s.bankMu.Lock()
	s.bank = FromEnvelope(env)
	s.bankMu.Unlock()

	s.logger.Info("bank reloaded", "questions", len(env.Questions))
	return nil
}

// Questions returns the bank's records matching the filter, in bank order.
// The returned records are deep copies.
func (s *Service) Questions(filter QuestionFilter) []*Record {
	s.bankMu.RLock()
	defer s.bankMu.RUnlock()

	matched := s.bank.Filter(filter)
	out := make([]*Record, 0, len(matched))
	for _, rec := range matched {
		out = append(out, rec.Clone())
	}
	return out
}

// Question returns a deep copy of the record with the given id.
func (s *Service) Question(id string) (*Record, bool) {
	s.bankMu.RLock()
	defer s.bankMu.RUnlock()

	rec, ok := s.bank.Get(id)
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// DeleteQuestion removes one record and persists the change.
func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	s.bankMu.Lock()
	defer s.bankMu.Unlock()

	if !s.bank.Remove(id) {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	if err := s.store.Save(ctx, s.bank.Envelope()); err != nil {
		return fmt.Errorf("save bank: %w", err)
	}

	s.logger.Info("question deleted", "question_id", id)
	return nil
}

// ResetBank removes every question and persists the empty bank. Destructive;
// callers are expected to require explicit confirmation.
func (s *Service) ResetBank(ctx context.Context) (int, error) {
	s.bankMu.Lock()
	defer s.bankMu.Unlock()

	removed := s.bank.Len()
	s.bank = NewBank()
	if err := s.store.Save(ctx, s.bank.Envelope()); err != nil {
		return 0, fmt.Errorf("save bank: %w", err)
	}

	s.logger.Warn("bank reset", "questions_removed", removed)
	return removed, nil
}

// Stats returns aggregate counts over the whole bank.
func (s *Service) Stats() BankStats {
	s.bankMu.RLock()
	defer s.bankMu.RUnlock()
	return s.bank.Stats()
}

// Collections returns the distinct categories, difficulties, and tags
// across the whole bank, in first-seen order.
func (s *Service) Collections() Collections {
	s.bankMu.RLock()
	defer s.bankMu.RUnlock()

	sets := newCollectionSets()
	for _, rec := range s.bank.Questions {
		sets.observe(rec)
	}
	return sets.collections()
}

// ExportCSV writes the whole bank to w in the import column layout, so an
// exported file round-trips through the importer.
func (s *Service) ExportCSV(w io.Writer) error {
	s.bankMu.RLock()
	defer s.bankMu.RUnlock()
	return WriteCSV(w, s.bank.Questions)
}

// ExportJSON writes the whole bank to w as a versioned envelope.
func (s *Service) ExportJSON(w io.Writer) error {
	s.bankMu.RLock()
	defer s.bankMu.RUnlock()
	return WriteJSON(w, s.bank.Envelope())
}

// LimiterStatus reports current import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until all active imports complete or ctx expires.
// Used for graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
