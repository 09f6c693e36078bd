package core

// service_async.go tracks asynchronous import runs.
//
// StartImport acquires a limiter slot, registers the run, and processes it
// on a background goroutine. Callers follow along with SubscribeProgress
// and collect the outcome with Result, which blocks until the run finishes.
// Finished runs stay queryable for ResultTTL and are then swept by the
// janitor.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// activeImport is the bookkeeping entry for one asynchronous run.
type activeImport struct {
	ID     string
	Cancel context.CancelFunc
	Done   chan struct{}

	mu        sync.Mutex
	progress  Progress
	listeners []chan Progress
	done      bool
	finished  time.Time

	finishOnce sync.Once
	Result     *ImportResult
}

// setPhase moves the run into a new phase and notifies listeners.
func (imp *activeImport) setPhase(phase ImportPhase, message string) {
	imp.mu.Lock()
	imp.progress.Phase = phase
	imp.progress.Message = message
	imp.notifyLocked()
	imp.mu.Unlock()
}

// setProcessed updates row counts and notifies listeners.
func (imp *activeImport) setProcessed(processed, total int) {
	imp.mu.Lock()
	imp.progress.Processed = processed
	imp.progress.Total = total
	imp.notifyLocked()
	imp.mu.Unlock()
}

// notifyLocked sends the current progress to all listeners. Slow listeners
// miss updates rather than stall the run. Callers hold imp.mu.
func (imp *activeImport) notifyLocked() {
	for _, ch := range imp.listeners {
		select {
		case ch <- imp.progress:
		default:
		}
	}
}

func (imp *activeImport) currentProgress() Progress {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.progress
}

// closeListeners marks the run finished and closes all listener channels.
func (imp *activeImport) closeListeners(at time.Time) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.done = true
	imp.finished = at
	for _, ch := range imp.listeners {
		close(ch)
	}
	imp.listeners = nil
}

func (imp *activeImport) finishedAt() time.Time {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.finished
}

// StartImport begins an asynchronous import over one or more files and
// returns the import id immediately. Use SubscribeProgress for updates and
// Result for the outcome.
//
// Returns ErrTooManyImports when the concurrency limit is reached and no
// slot frees up within the wait window.
func (s *Service) StartImport(ctx context.Context, files []IncomingFile, opts Options) (string, error) {
	if len(files) == 0 {
		return "", ErrNoFiles
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	importID := uuid.New().String()

	// The run outlives the request, so it gets its own deadline. Only the
	// client address carries over, for logging.
	runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ImportTimeout)
	if ip := ClientIPFromContext(ctx); ip != "" {
		runCtx = ContextWithClientIP(runCtx, ip)
	}

	imp := &activeImport{
		ID:     importID,
		Cancel: cancel,
		Done:   make(chan struct{}),
		progress: Progress{
			ImportID: importID,
			Phase:    PhaseStarting,
			Message:  files[0].Name,
		},
	}

	s.mu.Lock()
	s.imports[importID] = imp
	s.mu.Unlock()

	// Process in background with panic recovery so the limiter slot is
	// always released.
	go func() {
		defer s.limiter.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in import",
					"import_id", importID,
					"panic", r,
				)
				imp.setPhase(PhaseFailed, fmt.Sprintf("internal error: %v", r))
				s.finishImport(imp, &ImportResult{
					ImportID:  importID,
					Filename:  files[0].Name,
					StartedAt: time.Now().UTC(),
					Error:     fmt.Sprintf("internal error: %v", r),
				})
			}
		}()
		s.processImport(runCtx, imp, files, opts)
	}()

	return importID, nil
}

// processImport drives one background run to a terminal phase.
func (s *Service) processImport(ctx context.Context, imp *activeImport, files []IncomingFile, opts Options) {
	res, err := s.runImport(ctx, imp.ID, files, opts, imp, false)

	switch {
	case err == nil:
		imp.setPhase(PhaseComplete, "")
	case errors.Is(err, context.Canceled):
		imp.setPhase(PhaseCancelled, "import cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		imp.setPhase(PhaseFailed, "import timed out")
	default:
		imp.setPhase(PhaseFailed, err.Error())
	}

	s.finishImport(imp, res)
}

// finishImport publishes the result, wakes blocked Result callers, and
// leaves the entry for the janitor to sweep after ResultTTL.
func (s *Service) finishImport(imp *activeImport, res *ImportResult) {
	imp.finishOnce.Do(func() {
		imp.Result = res
		imp.closeListeners(time.Now())
		close(imp.Done)
	})
}

// SubscribeProgress returns a channel of progress updates for a run. The
// channel is closed when the run completes. Subscribing to an already
// finished run yields its final progress and an immediately closed channel.
func (s *Service) SubscribeProgress(importID string) (<-chan Progress, error) {
	s.mu.RLock()
	imp, ok := s.imports[importID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}

	ch := make(chan Progress, 10)

	imp.mu.Lock()
	if imp.done {
		p := imp.progress
		imp.mu.Unlock()
		ch <- p
		close(ch)
		return ch, nil
	}
	imp.listeners = append(imp.listeners, ch)
	// Send current progress immediately
	select {
	case ch <- imp.progress:
	default:
	}
	imp.mu.Unlock()

	return ch, nil
}

// CancelImport cancels an in-progress run.
func (s *Service) CancelImport(importID string) error {
	s.mu.RLock()
	imp, ok := s.imports[importID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}

	imp.Cancel()
	return nil
}

// Result returns the outcome of a run, blocking until it completes.
func (s *Service) Result(importID string) (*ImportResult, error) {
	s.mu.RLock()
	imp, ok := s.imports[importID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}

	<-imp.Done
	return imp.Result, nil
}

// ImportProgress returns the current progress without blocking.
func (s *Service) ImportProgress(importID string) (Progress, error) {
	s.mu.RLock()
	imp, ok := s.imports[importID]
	s.mu.RUnlock()
	if !ok {
		return Progress{}, fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}

	return imp.currentProgress(), nil
}

// ActiveImports lists the progress of every tracked run, sorted by import
// id for stable output.
func (s *Service) ActiveImports() []Progress {
	s.mu.RLock()
	out := make([]Progress, 0, len(s.imports))
	for _, imp := range s.imports {
		out = append(out, imp.currentProgress())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ImportID < out[j].ImportID })
	return out
}

// StartJanitor runs a background loop that drops finished runs once their
// results expire. It runs until the context is cancelled.
func (s *Service) StartJanitor(ctx context.Context) {
	s.logger.Info("import janitor started",
		"interval", s.cfg.CleanupInterval,
		"result_ttl", s.cfg.ResultTTL,
	)

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("import janitor stopped")
			return
		case <-ticker.C:
			if n := s.sweepImports(time.Now()); n > 0 {
				s.logger.Debug("swept finished imports", "removed", n)
			}
		}
	}
}

// sweepImports removes finished runs whose results expired before now.
func (s *Service) sweepImports(now time.Time) int {
	cutoff := now.Add(-s.cfg.ResultTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, imp := range s.imports {
		if t := imp.finishedAt(); !t.IsZero() && t.Before(cutoff) {
			delete(s.imports, id)
			removed++
		}
	}
	return removed
}
