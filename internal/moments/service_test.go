// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package moments

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jeranaias/pocketchat/internal/model"
	"github.com/jeranaias/pocketchat/internal/profile"
	"github.com/jeranaias/pocketchat/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, profile.NewManager(st)), st
}

func TestCreateUsesProfileName(t *testing.T) {
	svc, _ := newTestService(t)

	m, err := svc.Create("第一条动态")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Author != "用户" {
		t.Errorf("author = %q, want the profile default", m.Author)
	}
	if m.ID == "" || m.CreatedAt == 0 || m.Time == "" {
		t.Errorf("moment not stamped: %+v", m)
	}

	if _, err := svc.Create("  "); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("blank content: err = %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, st := newTestService(t)

	// Seed with explicit timestamps; Create stamps wall-clock time which
	// may collide within a test.
	if err := st.SaveMoments([]model.Moment{
		{ID: "m1", Content: "old", CreatedAt: 100},
		{ID: "m2", Content: "new", CreatedAt: 300},
		{ID: "m3", Content: "mid", CreatedAt: 200},
	}); err != nil {
		t.Fatalf("SaveMoments: %v", err)
	}

	list := svc.List()
	if len(list) != 3 {
		t.Fatalf("list = %+v", list)
	}
	if list[0].ID != "m2" || list[1].ID != "m3" || list[2].ID != "m1" {
		t.Errorf("order = %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestEdit(t *testing.T) {
	svc, _ := newTestService(t)

	m, _ := svc.Create("before")
	got, err := svc.Edit(m.ID, "after")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got.Content != "after" {
		t.Errorf("content = %q", got.Content)
	}
	if got.CreatedAt != m.CreatedAt {
		t.Errorf("edit changed CreatedAt")
	}

	if _, err := svc.Edit("missing", "x"); !errors.Is(err, ErrMomentNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestDeleteCascade(t *testing.T) {
	svc, st := newTestService(t)

	m, _ := svc.Create("post")
	if _, err := svc.ToggleLike(m.ID); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if _, err := svc.AddComment(m.ID, "nice"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	if err := svc.Delete(m.ID, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("unconfirmed delete: err = %v", err)
	}

	if err := svc.Delete(m.ID, true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(svc.List()) != 0 {
		t.Error("moment still present")
	}
	if _, ok := st.Likes()[m.ID]; ok {
		t.Error("likes survived delete")
	}
	if _, ok := st.Comments()[m.ID]; ok {
		t.Error("comments survived delete")
	}
}

func TestToggleLikeInvolution(t *testing.T) {
	svc, _ := newTestService(t)

	m, _ := svc.Create("post")

	liked, err := svc.ToggleLike(m.ID)
	if err != nil || !liked {
		t.Fatalf("first toggle = %v, %v", liked, err)
	}
	likes, err := svc.Likes(m.ID)
	if err != nil {
		t.Fatalf("Likes: %v", err)
	}
	if len(likes) != 1 || likes[0] != "currentUser" {
		t.Errorf("likes = %v", likes)
	}

	liked, err = svc.ToggleLike(m.ID)
	if err != nil || liked {
		t.Fatalf("second toggle = %v, %v", liked, err)
	}
	likes, _ = svc.Likes(m.ID)
	if len(likes) != 0 {
		t.Errorf("likes after double toggle = %v", likes)
	}

	if _, err := svc.ToggleLike("missing"); !errors.Is(err, ErrMomentNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestComments(t *testing.T) {
	svc, _ := newTestService(t)

	m, _ := svc.Create("post")
	c1, err := svc.AddComment(m.ID, "first")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if c1.Author != "用户" || c1.Time == "" {
		t.Errorf("comment = %+v", c1)
	}
	if _, err := svc.AddComment(m.ID, "second"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	comments, err := svc.Comments(m.ID)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 2 || comments[0].Content != "first" {
		t.Errorf("comments = %+v", comments)
	}

	if _, err := svc.AddComment(m.ID, ""); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("blank comment: err = %v", err)
	}
	if _, err := svc.Comments("missing"); !errors.Is(err, ErrMomentNotFound) {
		t.Errorf("err = %v", err)
	}
}
