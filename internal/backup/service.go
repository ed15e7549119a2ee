// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backup implements full-store export/restore plus managed
// in-store snapshots with a retention cap.
package backup

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jeranaias/pocketchat/internal/model"
	"github.com/jeranaias/pocketchat/internal/store"
	"github.com/jeranaias/pocketchat/internal/util"
)

// ===== ERRORS & CONSTANTS =====

var (
	ErrInvalidBackup        = errors.New("not a valid backup file")
	ErrSnapshotNotFound     = errors.New("snapshot not found")
	ErrConfirmationRequired = errors.New("confirmation required")
)

const (
	// infoKey is the metadata marker embedded in every export.
	infoKey = "_backup_info"

	// maxSnapshots caps the in-store snapshot list; the oldest is evicted
	// when a new one would exceed it.
	maxSnapshots = 10
)

// ===== SERVICE =====

// Service produces and restores backups of the whole key space.
type Service struct {
	store   *store.Store
	version string
	mu      sync.Mutex
	log     *log.Entry
}

// New creates a backup service. version is stamped into export metadata.
func New(st *store.Store, version string) *Service {
	return &Service{
		store:   st,
		version: version,
		log:     log.WithField("component", "backup"),
	}
}

// snapshot captures every persisted key as raw JSON.
func (s *Service) snapshot() (map[string]json.RawMessage, error) {
	keys, err := s.store.Keys()
	if err != nil {
		return nil, errors.Wrap(err, "list store keys")
	}
	snap := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		raw, ok := s.store.GetRaw(key)
		if !ok {
			continue
		}
		if json.Valid(raw) {
			snap[key] = json.RawMessage(raw)
		} else {
			// Legacy unquoted scalar; wrap it so the export stays valid JSON.
			quoted, _ := json.Marshal(string(raw))
			snap[key] = quoted
		}
	}
	return snap, nil
}

func (s *Service) backupInfo(now time.Time, snap map[string]json.RawMessage) model.BackupInfo {
	size := 0
	for _, raw := range snap {
		size += len(raw)
	}
	return model.BackupInfo{
		Timestamp:  now.UnixMilli(),
		Date:       util.FormatDate(now),
		Version:    s.version,
		DataSize:   size,
		ItemsCount: len(snap),
	}
}

// ExportJSON renders the whole store as one indented JSON document with a
// _backup_info metadata entry.
func (s *Service) ExportJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	info, err := json.Marshal(s.backupInfo(time.Now(), snap))
	if err != nil {
		return nil, errors.Wrap(err, "marshal backup info")
	}
	snap[infoKey] = info

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal backup")
	}
	return data, nil
}

// FileName returns the canonical export file name for a point in time.
func FileName(now time.Time) string {
	return fmt.Sprintf("pocketchat-backup-%s-%d.json", now.Format("2006-01-02"), now.UnixMilli())
}

// WriteLocal exports the store to a timestamped file in dir, atomically.
func (s *Service) WriteLocal(dir string) (string, error) {
	data, err := s.ExportJSON()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(time.Now()))
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
		return "", errors.Wrap(err, "write backup file")
	}
	s.log.WithField("path", path).Info("backup written")
	return path, nil
}

// Restore replaces the entire store with the contents of a backup
// document. The data must carry the _backup_info marker (or the legacy
// top-level "timestamp" field) and the caller must pass confirmed=true.
// Values are written back byte for byte so a restore of an export
// round-trips exactly.
func (s *Service) Restore(data []byte, confirmed bool) error {
	var snap map[string]json.RawMessage
	if err := json.Unmarshal(data, &snap); err != nil {
		return ErrInvalidBackup
	}
	if _, ok := snap[infoKey]; !ok {
		if _, legacy := snap["timestamp"]; !legacy {
			return ErrInvalidBackup
		}
	}
	if !confirmed {
		return ErrConfirmationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.EraseAll(); err != nil {
		return errors.Wrap(err, "clear store")
	}
	for key, raw := range snap {
		if key == infoKey {
			continue
		}
		if err := s.store.SetRaw(key, raw); err != nil {
			return errors.Wrapf(err, "restore key %q", key)
		}
	}
	s.store.ClearCache()

	s.log.WithField("keys", len(snap)).Info("backup restored")
	return nil
}

// ===== SNAPSHOTS =====

// CreateSnapshot stores a full snapshot inside the store itself and
// prepends it to the snapshot list, evicting the oldest past the cap.
func (s *Service) CreateSnapshot(description string) (model.BackupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot()
	if err != nil {
		return model.BackupInfo{}, err
	}

	now := time.Now()
	info := s.backupInfo(now, snap)
	info.ID = model.NewID("backup")
	info.Description = description

	payload, err := json.Marshal(snap)
	if err != nil {
		return model.BackupInfo{}, errors.Wrap(err, "marshal snapshot")
	}
	info.Size = len(payload)

	if err := s.store.SaveCloudBackup(info.ID, snap); err != nil {
		return model.BackupInfo{}, err
	}

	list := append([]model.BackupInfo{info}, s.store.BackupList()...)
	for len(list) > maxSnapshots {
		oldest := list[len(list)-1]
		list = list[:len(list)-1]
		if err := s.store.DeleteCloudBackup(oldest.ID); err != nil {
			s.log.WithField("snapshot", oldest.ID).WithError(err).Warn("evict old snapshot")
		}
	}
	if err := s.store.SaveBackupList(list); err != nil {
		return model.BackupInfo{}, err
	}

	s.log.WithField("snapshot", info.ID).Info("snapshot created")
	return info, nil
}

// ListSnapshots returns the snapshot index, newest first.
func (s *Service) ListSnapshots() []model.BackupInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.BackupList()
}

// SnapshotData returns a snapshot's payload as an export-shaped document.
func (s *Service) SnapshotData(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.store.CloudBackup(id)
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	for _, info := range s.store.BackupList() {
		if info.ID == id {
			meta, err := json.Marshal(info)
			if err != nil {
				return nil, errors.Wrap(err, "marshal snapshot info")
			}
			snap[infoKey] = meta
			break
		}
	}
	return json.MarshalIndent(snap, "", "  ")
}

// RestoreSnapshot restores the store from a stored snapshot.
func (s *Service) RestoreSnapshot(id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.store.CloudBackup(id)
	if !ok {
		return ErrSnapshotNotFound
	}

	if err := s.store.EraseAll(); err != nil {
		return errors.Wrap(err, "clear store")
	}
	for key, raw := range snap {
		if key == infoKey {
			continue
		}
		if err := s.store.SetRaw(key, raw); err != nil {
			return errors.Wrapf(err, "restore key %q", key)
		}
	}
	s.store.ClearCache()

	s.log.WithField("snapshot", id).Info("snapshot restored")
	return nil
}

// DeleteSnapshot removes one snapshot and its list entry.
func (s *Service) DeleteSnapshot(id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.store.BackupList()
	kept := list[:0:0]
	found := false
	for _, info := range list {
		if info.ID == id {
			found = true
			continue
		}
		kept = append(kept, info)
	}
	if !found {
		return ErrSnapshotNotFound
	}

	if err := s.store.DeleteCloudBackup(id); err != nil {
		return err
	}
	return s.store.SaveBackupList(kept)
}
