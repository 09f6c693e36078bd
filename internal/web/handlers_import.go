package web

// handlers_import.go receives question files and drives the import service.
//
// Two entry styles are offered:
//   - POST /api/import runs synchronously and answers with the full result.
//     Suits small files and scripting.
//   - POST /api/imports starts a background run and answers with an import
//     id; progress streams over SSE and the result is fetched separately.
//     Suits large files and interactive clients.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/qbank/internal/core"
	"github.com/go-chi/chi/v5"
)

// handleImport runs a synchronous import over the uploaded files.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	files, opts, ok := s.receiveImportForm(w, r)
	if !ok {
		return
	}

	result, err := s.service.ImportAll(requestContext(r), files, opts)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePreview runs the full pipeline and merge simulation without touching
// the bank.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	files, opts, ok := s.receiveImportForm(w, r)
	if !ok {
		return
	}

	result, err := s.service.PreviewAll(requestContext(r), files, opts)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleStartImport starts a background import and returns its id.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	files, opts, ok := s.receiveImportForm(w, r)
	if !ok {
		return
	}

	importID, err := s.service.StartImport(requestContext(r), files, opts)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"import_id": importID})
}

// receiveImportForm reads the multipart body into memory and builds import
// options from the form values. On failure it writes the error response and
// returns ok=false.
func (s *Server) receiveImportForm(w http.ResponseWriter, r *http.Request) ([]core.IncomingFile, core.Options, bool) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r,
				fmt.Errorf("request body too large: limit is %d bytes", maxErr.Limit),
				http.StatusRequestEntityTooLarge)
		} else {
			s.respondError(w, r, fmt.Errorf("invalid multipart form: %w", err), http.StatusBadRequest)
		}
		return nil, core.Options{}, false
	}

	files, err := formFiles(r)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return nil, core.Options{}, false
	}

	opts, err := s.optionsFromForm(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return nil, core.Options{}, false
	}

	return files, opts, true
}

// formFiles collects the uploaded files. Both the multi-file "files" field
// and the single "file" field are accepted.
func formFiles(r *http.Request) ([]core.IncomingFile, error) {
	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
		if len(headers) == 0 {
			headers = r.MultipartForm.File["file"]
		}
	}
	if len(headers) == 0 {
		return nil, core.ErrNoFiles
	}

	files := make([]core.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open uploaded file %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read uploaded file %s: %w", fh.Filename, err)
		}
		files = append(files, core.IncomingFile{Name: fh.Filename, Text: string(data)})
	}
	return files, nil
}

// optionsFromForm builds core.Options from form values, seeding the sizing
// knobs from server configuration.
func (s *Server) optionsFromForm(r *http.Request) (core.Options, error) {
	opts := core.Options{
		BatchSize:        s.cfg.Import.BatchSize,
		SnapshotRowLimit: s.cfg.Import.SnapshotRowLimit,
		Preset:           r.FormValue("preset"),
		Owner:            r.FormValue("owner"),
	}

	strategy, err := core.ParseStrategy(r.FormValue("strategy"))
	if err != nil {
		return core.Options{}, err
	}
	opts.Strategy = strategy

	if opts.Strict, err = formBool(r, "strict"); err != nil {
		return core.Options{}, err
	}
	if opts.AutoCorrect, err = formBool(r, "auto_correct"); err != nil {
		return core.Options{}, err
	}
	if opts.DropCustom, err = formBool(r, "drop_custom"); err != nil {
		return core.Options{}, err
	}

	switch mode := r.FormValue("header_mode"); mode {
	case "", string(core.HeaderLenient):
		opts.HeaderMode = core.HeaderLenient
	case string(core.HeaderStrict):
		opts.HeaderMode = core.HeaderStrict
	default:
		return core.Options{}, fmt.Errorf("unknown header mode %q", mode)
	}

	if tags := r.FormValue("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.Tags = append(opts.Tags, t)
			}
		}
	}

	// Column mapping arrives as a JSON object of raw header to canonical
	// field, mirroring what the export writes.
	if mappingJSON := r.FormValue("mapping"); mappingJSON != "" {
		if err := json.Unmarshal([]byte(mappingJSON), &opts.HeaderOverrides); err != nil {
			return core.Options{}, fmt.Errorf("invalid mapping format: %w", err)
		}
	}

	return opts, nil
}

func formBool(r *http.Request, name string) (bool, error) {
	v := r.FormValue(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", name, v)
	}
	return b, nil
}

// handleImportProgress streams import progress via Server-Sent Events.
// Supports resumption via the Last-Event-ID header (or lastEventId query
// parameter) after reconnection.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	// Browsers resend the last seen event id on reconnect. The event id is
	// the progress percentage, so already-delivered events can be skipped.
	lastEventRaw := r.Header.Get("Last-Event-ID")
	if lastEventRaw == "" {
		lastEventRaw = r.URL.Query().Get("lastEventId")
	}
	lastEventID := -1
	if lastEventRaw != "" {
		if n, err := strconv.Atoi(lastEventRaw); err == nil {
			lastEventID = n
		}
	}

	progressCh, err := s.service.SubscribeProgress(importID)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, fmt.Errorf("streaming unsupported by connection"), http.StatusInternalServerError)
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed: import finished or was cancelled.
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			percent := progress.Percent()
			if percent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleImportResult returns the final result of an import, waiting for the
// run to finish if necessary.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	result, err := s.service.Result(importID)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCancelImport cancels an in-progress import.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	if err := s.service.CancelImport(importID); err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleActiveImports lists currently running imports.
func (s *Server) handleActiveImports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"imports": s.service.ActiveImports(),
	})
}

// handleHistory returns recent import runs, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"history": s.service.History(),
	})
}
