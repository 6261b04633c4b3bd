// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state provides the workspace-scoped durable key-value store used
// for conversation reload across sessions.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/deepchat/internal/util"
)

// stateFileName is the on-disk file backing the store, under the workspace
// data directory.
const stateFileName = "state.json"

// ErrKeyNotFound is returned when a key has no stored value.
var ErrKeyNotFound = errors.New("state key not found")

// Store is a small JSON-backed key-value store. Values are arbitrary
// JSON-compatible shapes keyed by string; the whole store is rewritten
// atomically on every Set.
type Store struct {
	mu     sync.Mutex
	path   string
	log    *zap.Logger
	values map[string]json.RawMessage
}

// Open loads (or initializes) the store under the given data directory.
// A missing file is not an error; a corrupted file is reported and the
// store starts empty rather than failing the whole session.
func Open(dataDir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &Store{
		path:   filepath.Join(dataDir, stateFileName),
		log:    log,
		values: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		log.Warn("state file corrupted, starting empty",
			zap.String("path", s.path),
			zap.Error(err))
		s.values = make(map[string]json.RawMessage)
	}

	return s, nil
}

// Get unmarshals the value stored under key into v.
func (s *Store) Get(key string, v any) error {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode state value %q: %w", key, err)
	}
	return nil
}

// Set stores v under key and rewrites the backing file atomically.
// Re-persisting identical state is a harmless no-op in effect.
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode state value %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = raw

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}
