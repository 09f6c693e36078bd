// Package store provides bank persistence backends for the import service.
//
// Both backends hold the bank as a single serialized document. FileStore
// writes a JSON file on local disk and suits single-node deployments and
// tests; PostgresStore keeps the document in a jsonb column for deployments
// that already run a database. Either satisfies core.BankStore.
package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/qbank/internal/core"
)

// FileStore persists the bank as one JSON document on disk.
type FileStore struct {
	path string
}

// NewFile returns a store backed by the JSON file at path. The file does not
// need to exist yet; the first Save creates it along with its directory.
func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the bank file. A missing or empty file yields an empty envelope
// so a fresh deployment starts with a blank bank instead of an error.
func (s *FileStore) Load(_ context.Context) (core.BankEnvelope, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return core.BankEnvelope{Version: core.BankVersion}, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return core.BankEnvelope{}, fmt.Errorf("read bank file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return core.BankEnvelope{Version: core.BankVersion}, nil
	}

	env, err := core.ReadJSON(data)
	if err != nil {
		return core.BankEnvelope{}, fmt.Errorf("parse bank file %s: %w", s.path, err)
	}
	return env, nil
}

// Save writes the envelope through a temp file in the same directory and
// renames it into place, so a crash mid-write never leaves a truncated bank.
func (s *FileStore) Save(_ context.Context, env core.BankEnvelope) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bank directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bank-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := core.WriteJSON(tmp, env); err != nil {
		tmp.Close()
		return fmt.Errorf("write bank file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace bank file: %w", err)
	}
	return nil
}
