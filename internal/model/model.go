// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures persisted by pocketchat:
// contacts, chat messages, moments, comments, the user profile, and the
// provider/model records the API layer works with.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONTACTS & MESSAGES
// =============================================================================

// Contact is a synthetic AI persona the user chats with.
type Contact struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Note is a user-visible alias; it defaults to Name when empty.
	Note string `json:"note,omitempty"`

	// Personality is free-form behavioral text. Empty means the contact is a
	// blank responder; non-empty text seeds both the LLM system prompt and
	// the local template replies.
	Personality string `json:"personality,omitempty"`

	Avatar    string `json:"avatar,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// DisplayName returns the note if set, else the contact name.
func (c Contact) DisplayName() string {
	if c.Note != "" {
		return c.Note
	}
	return c.Name
}

// HasPersonality reports whether the contact carries non-blank personality
// text.
func (c Contact) HasPersonality() bool {
	return strings.TrimSpace(c.Personality) != ""
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn in a contact's history. Messages are immutable
// except for Content/Edited/EditTime on an explicit user edit.
type ChatMessage struct {
	ID       string `json:"id"`
	Role     string `json:"role"` // "user" or "assistant"
	Content  string `json:"content"`
	Time     int64  `json:"time"` // epoch milliseconds
	Edited   bool   `json:"edited,omitempty"`
	EditTime int64  `json:"editTime,omitempty"`
}

// =============================================================================
// MOMENTS FEED
// =============================================================================

// Moment is a user-authored post in the social feed.
type Moment struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Time      string `json:"time"` // display timestamp ("2006-01-02 15:04")
	Author    string `json:"author"`
	CreatedAt int64  `json:"createdAt"`
}

// Comment is one entry in a moment's append-ordered comment list.
type Comment struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
	Time    string `json:"time"`
}

// =============================================================================
// USER PROFILE
// =============================================================================

// UserProfile is the single mutable profile record. It is lazily created
// with defaults on first read; TagColors is kept the same length as Tags on
// every load (the colors themselves are cosmetic and may be regenerated).
type UserProfile struct {
	Name             string   `json:"name"`
	Bio              string   `json:"bio"`
	Avatar           string   `json:"avatar"`
	CoverBackground  string   `json:"coverBackground"`
	UserID           string   `json:"userId"`
	ProfileSignature string   `json:"profileSignature"`
	Status           string   `json:"status"`
	Tags             []string `json:"tags"`
	StatusColor      string   `json:"statusColor"`
	TagColors        []string `json:"tagColors"`
}

// EffectiveUserID returns the stored user id or the anonymous placeholder
// used for like attribution.
func (p UserProfile) EffectiveUserID() string {
	if p.UserID != "" {
		return p.UserID
	}
	return "currentUser"
}

// EffectiveName returns the display name, defaulting to the anonymous "用户".
func (p UserProfile) EffectiveName() string {
	if p.Name != "" {
		return p.Name
	}
	return "用户"
}

// =============================================================================
// PROVIDERS & BACKUPS
// =============================================================================

// ProviderConfig is the stored per-provider API configuration. A disabled
// provider is excluded from the active model set regardless of its key.
type ProviderConfig struct {
	Enabled  bool   `json:"enabled"`
	APIKey   string `json:"apiKey"`
	Endpoint string `json:"endpoint"`
}

// Usable reports whether the provider can actually serve chat requests.
func (c ProviderConfig) Usable() bool {
	return c.Enabled && c.APIKey != ""
}

// DiscoveredModel is a model learned from a provider's list-models endpoint.
type DiscoveredModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
}

// BackupInfo is the metadata block tagged onto every snapshot.
type BackupInfo struct {
	ID          string `json:"id,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Size        int    `json:"size,omitempty"`
	Version     string `json:"version"`
	DataSize    int    `json:"dataSize,omitempty"`
	ItemsCount  int    `json:"itemsCount"`
}

// =============================================================================
// IDS & TIME
// =============================================================================

// NewID returns an opaque unique ID with a type prefix, e.g. "msg_3f2a...".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NowMillis returns the current time in epoch milliseconds, the timestamp
// unit used throughout the persisted records.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// TimeFromMillis converts an epoch-millisecond timestamp back to time.Time.
func TimeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
