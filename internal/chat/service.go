// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jeranaias/pocketchat/internal/model"
	"github.com/jeranaias/pocketchat/internal/store"
)

// ===== ERRORS =====

var (
	ErrContactNotFound      = errors.New("contact not found")
	ErrNameRequired         = errors.New("contact name is required")
	ErrEmptyMessage         = errors.New("message content is required")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotUserMessage       = errors.New("only user messages can be edited")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrUnknownModel         = errors.New("unknown model key")
)

// ===== SERVICE =====

// Service manages contacts and their chat histories. All mutating
// operations are serialized under a single mutex so that read-modify-write
// cycles against the store never interleave.
type Service struct {
	store   *store.Store
	catalog *Catalog
	api     ProviderAPI
	mu      sync.Mutex
	log     *log.Entry
}

// New creates a chat service.
func New(st *store.Store, api ProviderAPI, catalog *Catalog) *Service {
	return &Service{
		store:   st,
		catalog: catalog,
		api:     api,
		log:     log.WithField("component", "chat"),
	}
}

// ListEntry is one row of the conversation list.
type ListEntry struct {
	Contact     model.Contact `json:"contact"`
	Pinned      bool          `json:"pinned"`
	LastMessage string        `json:"lastMessage,omitempty"`
	LastTime    int64         `json:"lastTime,omitempty"`
}

// ListEntries returns contacts ordered for display: pinned contacts first,
// then by most recent message, then by creation time.
func (s *Service) ListEntries() []ListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := s.store.Contacts()
	pinned := pinnedSet(s.store.PinnedContacts())
	histories := s.store.ChatHistories()

	entries := make([]ListEntry, 0, len(contacts))
	for _, c := range contacts {
		e := ListEntry{Contact: c, Pinned: pinned[c.ID]}
		if history := histories[c.ID]; len(history) > 0 {
			last := history[len(history)-1]
			e.LastMessage = last.Content
			e.LastTime = last.Time
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Pinned != entries[j].Pinned {
			return entries[i].Pinned
		}
		if entries[i].LastTime != entries[j].LastTime {
			return entries[i].LastTime > entries[j].LastTime
		}
		return entries[i].Contact.CreatedAt > entries[j].Contact.CreatedAt
	})
	return entries
}

// Contacts returns all contacts in stored order.
func (s *Service) Contacts() []model.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Contacts()
}

// Contact looks up one contact by id.
func (s *Service) Contact(id string) (model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

func (s *Service) findLocked(id string) (model.Contact, error) {
	for _, c := range s.store.Contacts() {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Contact{}, ErrContactNotFound
}

// CreateContact adds a contact. Name is required; the note defaults to the
// name when blank.
func (s *Service) CreateContact(name, note, personality, avatar string) (model.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Contact{}, ErrNameRequired
	}
	if strings.TrimSpace(note) == "" {
		note = name
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := model.NowMillis()
	c := model.Contact{
		ID:          model.NewID("contact"),
		Name:        name,
		Note:        note,
		Personality: personality,
		Avatar:      avatar,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	contacts := append(s.store.Contacts(), c)
	if err := s.store.SaveContacts(contacts); err != nil {
		return model.Contact{}, err
	}
	s.log.WithField("contact", c.ID).Info("contact created")
	return c, nil
}

// UpdateContact replaces a contact's editable fields.
func (s *Service) UpdateContact(id, name, note, personality, avatar string) (model.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Contact{}, ErrNameRequired
	}
	if strings.TrimSpace(note) == "" {
		note = name
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := s.store.Contacts()
	for i := range contacts {
		if contacts[i].ID != id {
			continue
		}
		contacts[i].Name = name
		contacts[i].Note = note
		contacts[i].Personality = personality
		contacts[i].Avatar = avatar
		contacts[i].UpdatedAt = model.NowMillis()
		if err := s.store.SaveContacts(contacts); err != nil {
			return model.Contact{}, err
		}
		return contacts[i], nil
	}
	return model.Contact{}, ErrContactNotFound
}

// DeleteContact removes a contact and everything hanging off it: its chat
// history, pin state, and applied model assignment. The caller must pass
// confirmed=true; without it nothing is touched.
func (s *Service) DeleteContact(id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := s.store.Contacts()
	kept := contacts[:0:0]
	found := false
	for _, c := range contacts {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return ErrContactNotFound
	}

	if err := s.store.SaveContacts(kept); err != nil {
		return err
	}

	pins := s.store.PinnedContacts()
	keptPins := pins[:0:0]
	for _, p := range pins {
		if p != id {
			keptPins = append(keptPins, p)
		}
	}
	if err := s.store.SavePinnedContacts(keptPins); err != nil {
		return err
	}

	histories := s.store.ChatHistories()
	delete(histories, id)
	if err := s.store.SaveChatHistories(histories); err != nil {
		return err
	}

	applied := s.store.AppliedModels()
	delete(applied, id)
	if err := s.store.SaveAppliedModels(applied); err != nil {
		return err
	}

	s.log.WithField("contact", id).Info("contact deleted")
	return nil
}

// TogglePin flips a contact's pin state and reports the new state.
func (s *Service) TogglePin(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.findLocked(id); err != nil {
		return false, err
	}

	pins := s.store.PinnedContacts()
	kept := pins[:0:0]
	was := false
	for _, p := range pins {
		if p == id {
			was = true
			continue
		}
		kept = append(kept, p)
	}
	if !was {
		kept = append(kept, id)
	}
	if err := s.store.SavePinnedContacts(kept); err != nil {
		return was, err
	}
	return !was, nil
}

// History returns a contact's chat messages in order.
func (s *Service) History(id string) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.findLocked(id); err != nil {
		return nil, err
	}
	return s.store.ChatHistories()[id], nil
}

// EditMessage rewrites the content of a user-authored message in place and
// marks it edited. Assistant messages are immutable.
func (s *Service) EditMessage(contactID, messageID, content string) (model.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	histories := s.store.ChatHistories()
	history, ok := histories[contactID]
	if !ok {
		return model.ChatMessage{}, ErrContactNotFound
	}
	for i := range history {
		if history[i].ID != messageID {
			continue
		}
		if history[i].Role != model.RoleUser {
			return model.ChatMessage{}, ErrNotUserMessage
		}
		history[i].Content = content
		history[i].Edited = true
		history[i].EditTime = model.NowMillis()
		histories[contactID] = history
		if err := s.store.SaveChatHistories(histories); err != nil {
			return model.ChatMessage{}, err
		}
		return history[i], nil
	}
	return model.ChatMessage{}, ErrMessageNotFound
}

// AssignModel binds a model key to a contact, or clears the binding when
// key is empty.
func (s *Service) AssignModel(contactID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.findLocked(contactID); err != nil {
		return err
	}

	applied := s.store.AppliedModels()
	if key == "" {
		delete(applied, contactID)
	} else {
		if _, ok := s.catalog.AllModels()[key]; !ok {
			return ErrUnknownModel
		}
		applied[contactID] = key
	}
	return s.store.SaveAppliedModels(applied)
}

func pinnedSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
