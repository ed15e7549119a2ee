// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the key-value persistence layer for pocketchat.
//
// Every logical collection (contacts, moments, chat histories, ...) lives
// under one string key holding a JSON document, mirroring the app's
// persisted key space. Values are cached in memory after first read; reads
// never fail (missing or corrupt data defaults), and writes never panic
// past this boundary.
package store

import (
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Persisted key space.
const (
	KeyContacts        = "contacts"
	KeyMoments         = "moments"
	KeyUserInfo        = "user_info"
	KeyChatHistories   = "chat_histories"
	KeyComments        = "comments"
	KeyLikes           = "likes"
	KeyPinnedContacts  = "pinned_contacts"
	KeyAppliedModels   = "applied_api_models"
	KeyProviderConfigs = "custom_api_configs"
	KeyAvailableModels = "available_models"
	KeyBackupList      = "backup_list"

	// CloudBackupPrefix prefixes the per-snapshot payload keys.
	CloudBackupPrefix = "cloud_backup_"

	// SettingSelectedModel is the global default model setting.
	SettingSelectedModel = "selected_api_model"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Stats summarizes the persisted key space.
type Stats struct {
	ItemCount  int   `json:"item_count"`
	TotalBytes int64 `json:"total_bytes"`
}

// Store is the JSON-document key-value store backed by SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	cache map[string][]byte
	log   *logrus.Entry
}

// Open opens (creating if necessary) the store database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open store database")
	}

	// Single writer; the store serializes access itself.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set journal mode")
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set busy timeout")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create kv table")
	}

	return &Store{
		db:    db,
		cache: make(map[string][]byte),
		log:   logrus.WithField("component", "store"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get loads the JSON document for key into dest. A missing key or a corrupt
// document leaves dest untouched, so callers pass zero-valued destinations
// and receive the collection default. Corruption is logged, never returned.
func (s *Store) Get(key string, dest interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.loadLocked(key)
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("corrupt value, using default")
	}
}

// GetRaw returns the raw JSON document for key, if present.
func (s *Store) GetRaw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.loadLocked(key)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true
}

// loadLocked returns the cached document for key, falling back to the
// database. Database errors are treated as "missing" after logging.
func (s *Store) loadLocked(key string) ([]byte, bool) {
	if raw, ok := s.cache[key]; ok {
		return raw, true
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("read failed, using default")
		return nil, false
	}

	raw := []byte(value)
	s.cache[key] = raw
	return raw, true
}

// Set serializes value to JSON and writes it through to the database,
// updating the cache only after the write succeeds. On failure the previous
// value for key stays readable and the error is returned for the caller to
// surface.
func (s *Store) Set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("serialize failed")
		return errors.Wrapf(err, "serialize %s", key)
	}
	return s.SetRaw(key, data)
}

// SetRaw writes a pre-serialized JSON document for key.
func (s *Store) SetRaw(key string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(raw))
	if err != nil {
		// Cache keeps the previous value; a failed write must not become
		// visible to readers.
		s.log.WithError(err).WithField("key", key).Error("write failed")
		return errors.Wrapf(err, "write %s", key)
	}

	stored := make([]byte, len(raw))
	copy(stored, raw)
	s.cache[key] = stored
	return nil
}

// DeleteKey removes key from the store and the cache.
func (s *Store) DeleteKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.log.WithError(err).WithField("key", key).Error("delete failed")
		return errors.Wrapf(err, "delete %s", key)
	}
	delete(s.cache, key)
	return nil
}

// Keys returns every persisted key.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, errors.Wrap(err, "list keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "scan key")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ClearCache drops all in-memory cached values without touching persisted
// data. Used after a bulk external overwrite (restore).
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]byte)
}

// EraseAll removes every persisted key and resets the cache. Restore calls
// this before repopulating from a snapshot.
func (s *Store) EraseAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		return errors.Wrap(err, "erase store")
	}
	s.cache = make(map[string][]byte)
	return nil
}

// GetStats reports the key count and approximate byte size of the store.
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	row := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv`)
	if err := row.Scan(&st.ItemCount, &st.TotalBytes); err != nil {
		s.log.WithError(err).Warn("stats query failed")
	}
	return st
}
