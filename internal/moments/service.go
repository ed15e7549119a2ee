// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package moments implements the social feed: posts, per-post likes, and
// per-post comments.
package moments

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jeranaias/pocketchat/internal/model"
	"github.com/jeranaias/pocketchat/internal/profile"
	"github.com/jeranaias/pocketchat/internal/store"
	"github.com/jeranaias/pocketchat/internal/util"
)

// ===== ERRORS =====

var (
	ErrMomentNotFound       = errors.New("moment not found")
	ErrEmptyContent         = errors.New("moment content is required")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// ===== SERVICE =====

// Service manages the moments feed. Mutations are serialized under one
// mutex, matching the chat service.
type Service struct {
	store   *store.Store
	profile *profile.Manager
	mu      sync.Mutex
	log     *log.Entry
}

// New creates a moments service. The profile manager supplies the author
// identity for posts, likes, and comments.
func New(st *store.Store, pm *profile.Manager) *Service {
	return &Service{
		store:   st,
		profile: pm,
		log:     log.WithField("component", "moments"),
	}
}

// List returns all moments, newest first.
func (s *Service) List() []model.Moment {
	s.mu.Lock()
	defer s.mu.Unlock()

	moments := s.store.Moments()
	sort.SliceStable(moments, func(i, j int) bool {
		return moments[i].CreatedAt > moments[j].CreatedAt
	})
	return moments
}

// Get looks up one moment by id.
func (s *Service) Get(id string) (model.Moment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.store.Moments() {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Moment{}, ErrMomentNotFound
}

// Create posts a new moment authored by the current profile.
func (s *Service) Create(content string) (model.Moment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Moment{}, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prof, err := s.profile.Load()
	if err != nil {
		return model.Moment{}, err
	}

	now := model.NowMillis()
	m := model.Moment{
		ID:        model.NewID("moment"),
		Content:   content,
		Time:      util.FormatDate(model.TimeFromMillis(now)),
		Author:    prof.EffectiveName(),
		CreatedAt: now,
	}

	moments := append(s.store.Moments(), m)
	if err := s.store.SaveMoments(moments); err != nil {
		return model.Moment{}, err
	}
	s.log.WithField("moment", m.ID).Info("moment posted")
	return m, nil
}

// Edit replaces a moment's content in place.
func (s *Service) Edit(id, content string) (model.Moment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Moment{}, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	moments := s.store.Moments()
	for i := range moments {
		if moments[i].ID != id {
			continue
		}
		moments[i].Content = content
		if err := s.store.SaveMoments(moments); err != nil {
			return model.Moment{}, err
		}
		return moments[i], nil
	}
	return model.Moment{}, ErrMomentNotFound
}

// Delete removes a moment along with its likes and comments. Requires an
// explicit confirmation flag.
func (s *Service) Delete(id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	moments := s.store.Moments()
	kept := moments[:0:0]
	found := false
	for _, m := range moments {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return ErrMomentNotFound
	}

	if err := s.store.SaveMoments(kept); err != nil {
		return err
	}

	likes := s.store.Likes()
	delete(likes, id)
	if err := s.store.SaveLikes(likes); err != nil {
		return err
	}

	comments := s.store.Comments()
	delete(comments, id)
	if err := s.store.SaveComments(comments); err != nil {
		return err
	}

	s.log.WithField("moment", id).Info("moment deleted")
	return nil
}

// ToggleLike flips the current user's like on a moment and reports whether
// the moment is now liked.
func (s *Service) ToggleLike(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.existsLocked(id) {
		return false, ErrMomentNotFound
	}

	prof, err := s.profile.Load()
	if err != nil {
		return false, err
	}
	userID := prof.EffectiveUserID()

	likes := s.store.Likes()
	users := likes[id]
	kept := users[:0:0]
	was := false
	for _, u := range users {
		if u == userID {
			was = true
			continue
		}
		kept = append(kept, u)
	}
	if !was {
		kept = append(kept, userID)
	}
	likes[id] = kept
	if err := s.store.SaveLikes(likes); err != nil {
		return was, err
	}
	return !was, nil
}

// Likes returns the user ids that liked a moment.
func (s *Service) Likes(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.existsLocked(id) {
		return nil, ErrMomentNotFound
	}
	return s.store.Likes()[id], nil
}

// AddComment appends a comment by the current user to a moment.
func (s *Service) AddComment(id, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.existsLocked(id) {
		return model.Comment{}, ErrMomentNotFound
	}

	prof, err := s.profile.Load()
	if err != nil {
		return model.Comment{}, err
	}

	c := model.Comment{
		ID:      model.NewID("comment"),
		Author:  prof.EffectiveName(),
		Content: content,
		Time:    util.FormatDate(time.Now()),
	}

	comments := s.store.Comments()
	comments[id] = append(comments[id], c)
	if err := s.store.SaveComments(comments); err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

// Comments returns a moment's comments in posting order.
func (s *Service) Comments(id string) ([]model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.existsLocked(id) {
		return nil, ErrMomentNotFound
	}
	return s.store.Comments()[id], nil
}

func (s *Service) existsLocked(id string) bool {
	for _, m := range s.store.Moments() {
		if m.ID == id {
			return true
		}
	}
	return false
}
