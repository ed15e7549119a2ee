// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"

	"github.com/jeranaias/pocketchat/internal/model"
)

// Typed accessors, one pair per logical collection. Readers return the
// collection default ([] / {}) when the key is missing or corrupt.

// Contacts returns the stored contact list.
func (s *Store) Contacts() []model.Contact {
	var v []model.Contact
	s.Get(KeyContacts, &v)
	return v
}

// SaveContacts persists the contact list.
func (s *Store) SaveContacts(v []model.Contact) error {
	return s.Set(KeyContacts, v)
}

// Moments returns the stored moments feed.
func (s *Store) Moments() []model.Moment {
	var v []model.Moment
	s.Get(KeyMoments, &v)
	return v
}

// SaveMoments persists the moments feed.
func (s *Store) SaveMoments(v []model.Moment) error {
	return s.Set(KeyMoments, v)
}

// UserProfile returns the stored profile record, zero-valued when absent.
func (s *Store) UserProfile() model.UserProfile {
	var v model.UserProfile
	s.Get(KeyUserInfo, &v)
	return v
}

// SaveUserProfile persists the profile record.
func (s *Store) SaveUserProfile(v model.UserProfile) error {
	return s.Set(KeyUserInfo, v)
}

// ChatHistories returns the contact-id -> message-list map.
func (s *Store) ChatHistories() map[string][]model.ChatMessage {
	v := make(map[string][]model.ChatMessage)
	s.Get(KeyChatHistories, &v)
	if v == nil {
		v = make(map[string][]model.ChatMessage)
	}
	return v
}

// SaveChatHistories persists the chat histories map.
func (s *Store) SaveChatHistories(v map[string][]model.ChatMessage) error {
	return s.Set(KeyChatHistories, v)
}

// Comments returns the moment-id -> comment-list map.
func (s *Store) Comments() map[string][]model.Comment {
	v := make(map[string][]model.Comment)
	s.Get(KeyComments, &v)
	if v == nil {
		v = make(map[string][]model.Comment)
	}
	return v
}

// SaveComments persists the comments map.
func (s *Store) SaveComments(v map[string][]model.Comment) error {
	return s.Set(KeyComments, v)
}

// Likes returns the moment-id -> liker-id-list map.
func (s *Store) Likes() map[string][]string {
	v := make(map[string][]string)
	s.Get(KeyLikes, &v)
	if v == nil {
		v = make(map[string][]string)
	}
	return v
}

// SaveLikes persists the likes map.
func (s *Store) SaveLikes(v map[string][]string) error {
	return s.Set(KeyLikes, v)
}

// PinnedContacts returns the pinned contact id list.
func (s *Store) PinnedContacts() []string {
	var v []string
	s.Get(KeyPinnedContacts, &v)
	return v
}

// SavePinnedContacts persists the pinned contact id list.
func (s *Store) SavePinnedContacts(v []string) error {
	return s.Set(KeyPinnedContacts, v)
}

// AppliedModels returns the contact-id -> model-key map.
func (s *Store) AppliedModels() map[string]string {
	v := make(map[string]string)
	s.Get(KeyAppliedModels, &v)
	if v == nil {
		v = make(map[string]string)
	}
	return v
}

// SaveAppliedModels persists the contact-id -> model-key map.
func (s *Store) SaveAppliedModels(v map[string]string) error {
	return s.Set(KeyAppliedModels, v)
}

// ProviderConfigs returns the provider-name -> config map.
func (s *Store) ProviderConfigs() map[string]model.ProviderConfig {
	v := make(map[string]model.ProviderConfig)
	s.Get(KeyProviderConfigs, &v)
	if v == nil {
		v = make(map[string]model.ProviderConfig)
	}
	return v
}

// SaveProviderConfigs persists the provider config map.
func (s *Store) SaveProviderConfigs(v map[string]model.ProviderConfig) error {
	return s.Set(KeyProviderConfigs, v)
}

// AvailableModels returns the provider-name -> discovered models cache.
func (s *Store) AvailableModels() map[string][]model.DiscoveredModel {
	v := make(map[string][]model.DiscoveredModel)
	s.Get(KeyAvailableModels, &v)
	if v == nil {
		v = make(map[string][]model.DiscoveredModel)
	}
	return v
}

// SaveAvailableModels persists the discovered models cache.
func (s *Store) SaveAvailableModels(v map[string][]model.DiscoveredModel) error {
	return s.Set(KeyAvailableModels, v)
}

// BackupList returns the rolling snapshot metadata list, newest first.
func (s *Store) BackupList() []model.BackupInfo {
	var v []model.BackupInfo
	s.Get(KeyBackupList, &v)
	return v
}

// SaveBackupList persists the snapshot metadata list.
func (s *Store) SaveBackupList(v []model.BackupInfo) error {
	return s.Set(KeyBackupList, v)
}

// CloudBackup returns a stored snapshot payload by id.
func (s *Store) CloudBackup(id string) (map[string]json.RawMessage, bool) {
	raw, ok := s.GetRaw(CloudBackupPrefix + id)
	if !ok {
		return nil, false
	}
	var snap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false
	}
	return snap, true
}

// SaveCloudBackup persists a snapshot payload under its id.
func (s *Store) SaveCloudBackup(id string, snap map[string]json.RawMessage) error {
	return s.Set(CloudBackupPrefix+id, snap)
}

// DeleteCloudBackup removes a snapshot payload.
func (s *Store) DeleteCloudBackup(id string) error {
	return s.DeleteKey(CloudBackupPrefix + id)
}

// GetSettingString reads a scalar setting, returning def when absent.
func (s *Store) GetSettingString(key, def string) string {
	raw, ok := s.GetRaw(key)
	if !ok {
		return def
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		// Settings written by older revisions may be unquoted scalars.
		return string(raw)
	}
	return v
}

// SetSetting writes an arbitrary setting value as JSON.
func (s *Store) SetSetting(key string, value interface{}) error {
	return s.Set(key, value)
}
