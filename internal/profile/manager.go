// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile manages the single local user profile: lazy defaults on
// first load and self-repair of the color fields.
package profile

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jeranaias/pocketchat/internal/model"
	"github.com/jeranaias/pocketchat/internal/store"
)

// LightColors is the palette used for the status pill and tag chips. Tag
// colors are assigned round-robin from it.
var LightColors = []string{
	"#e3f2fd", "#f3e5f5", "#e8f5e8", "#fff3e0", "#fce4ec",
	"#f1f8e9", "#fff8e1", "#e8eaf6", "#f9fbe7", "#fffde7",
	"#e0f2f1", "#fff3e0", "#f3e5f5", "#e8f5e9", "#f1f8e9",
	"#fff8e1", "#e0f7fa", "#fce4ec", "#f3e5f5", "#e8eaf6",
}

const (
	defaultBio    = "点击编辑个性签名"
	defaultStatus = "点击设置状态"
)

var ErrUnknownField = errors.New("unknown profile field")

// Manager loads and saves the user profile.
type Manager struct {
	store *store.Store
	mu    sync.Mutex
	log   *log.Entry
}

// NewManager creates a profile manager over the store.
func NewManager(st *store.Store) *Manager {
	return &Manager{store: st, log: log.WithField("component", "profile")}
}

// Load returns the stored profile with defaults filled in for any missing
// field, and with the color fields repaired so every tag has a color. A
// repaired profile is written back so later loads see a consistent record.
func (m *Manager) Load() (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

func (m *Manager) loadLocked() (model.UserProfile, error) {
	p := m.store.UserProfile()
	changed := false

	if p.Name == "" {
		p.Name = "用户"
		changed = true
	}
	if p.Bio == "" {
		p.Bio = defaultBio
		changed = true
	}
	if p.ProfileSignature == "" {
		p.ProfileSignature = defaultBio
		changed = true
	}
	if p.Status == "" {
		p.Status = defaultStatus
		changed = true
	}
	if p.UserID == "" {
		p.UserID = "currentUser"
		changed = true
	}
	if len(p.Tags) == 0 {
		p.Tags = []string{"标签1", "标签2", "标签3"}
		changed = true
	}
	if p.StatusColor == "" {
		p.StatusColor = LightColors[0]
		changed = true
	}
	if len(p.TagColors) != len(p.Tags) {
		p.TagColors = tagColorsFor(len(p.Tags))
		changed = true
	}

	if changed {
		if err := m.store.SaveUserProfile(p); err != nil {
			return model.UserProfile{}, err
		}
	}
	return p, nil
}

// Save validates and persists a full profile, repairing colors first.
func (m *Manager) Save(p model.UserProfile) (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.StatusColor == "" {
		p.StatusColor = LightColors[0]
	}
	if len(p.TagColors) != len(p.Tags) {
		p.TagColors = tagColorsFor(len(p.Tags))
	}
	if err := m.store.SaveUserProfile(p); err != nil {
		return model.UserProfile{}, err
	}
	return p, nil
}

// UpdateField sets one scalar field by its JSON name.
func (m *Manager) UpdateField(field, value string) (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadLocked()
	if err != nil {
		return model.UserProfile{}, err
	}

	switch field {
	case "name":
		p.Name = value
	case "bio":
		p.Bio = value
	case "avatar":
		p.Avatar = value
	case "coverBackground":
		p.CoverBackground = value
	case "profileSignature":
		p.ProfileSignature = value
	case "status":
		p.Status = value
	case "statusColor":
		p.StatusColor = value
	default:
		return model.UserProfile{}, ErrUnknownField
	}

	if err := m.store.SaveUserProfile(p); err != nil {
		return model.UserProfile{}, err
	}
	return p, nil
}

// SetTags replaces the tag list and reassigns colors to match its length.
func (m *Manager) SetTags(tags []string) (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadLocked()
	if err != nil {
		return model.UserProfile{}, err
	}

	p.Tags = tags
	p.TagColors = tagColorsFor(len(tags))
	if err := m.store.SaveUserProfile(p); err != nil {
		return model.UserProfile{}, err
	}
	return p, nil
}

func tagColorsFor(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = LightColors[i%len(LightColors)]
	}
	return colors
}
