// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jeranaias/pocketchat/internal/model"
	"github.com/jeranaias/pocketchat/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewManager(st), st
}

func TestLoadDefaults(t *testing.T) {
	m, _ := newTestManager(t)

	p, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if p.Name != "用户" {
		t.Errorf("name = %q", p.Name)
	}
	if p.Bio != "点击编辑个性签名" || p.ProfileSignature != "点击编辑个性签名" {
		t.Errorf("bio/signature = %q / %q", p.Bio, p.ProfileSignature)
	}
	if p.Status != "点击设置状态" {
		t.Errorf("status = %q", p.Status)
	}
	if p.UserID != "currentUser" {
		t.Errorf("userID = %q", p.UserID)
	}
	if len(p.Tags) != 3 || p.Tags[0] != "标签1" {
		t.Errorf("tags = %v", p.Tags)
	}
	if p.StatusColor != LightColors[0] {
		t.Errorf("statusColor = %q", p.StatusColor)
	}
	if len(p.TagColors) != 3 {
		t.Errorf("tagColors = %v", p.TagColors)
	}
}

func TestLoadPersistsDefaults(t *testing.T) {
	m, st := newTestManager(t)

	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// The repaired record is written back.
	stored := st.UserProfile()
	if stored.Name != "用户" || len(stored.TagColors) != 3 {
		t.Errorf("stored profile = %+v", stored)
	}
}

func TestLoadRepairsTagColors(t *testing.T) {
	m, st := newTestManager(t)

	if err := st.SaveUserProfile(model.UserProfile{
		Name:      "自定义",
		Tags:      []string{"a", "b", "c", "d", "e"},
		TagColors: []string{"#ffffff"},
	}); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}

	p, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "自定义" {
		t.Errorf("existing name overwritten: %q", p.Name)
	}
	if len(p.TagColors) != 5 {
		t.Errorf("tagColors = %v, want one per tag", p.TagColors)
	}
	for i, c := range p.TagColors {
		if c != LightColors[i%len(LightColors)] {
			t.Errorf("tagColors[%d] = %q", i, c)
		}
	}
}

func TestUpdateField(t *testing.T) {
	m, _ := newTestManager(t)

	p, err := m.UpdateField("name", "新名字")
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if p.Name != "新名字" {
		t.Errorf("name = %q", p.Name)
	}

	p, err = m.UpdateField("status", "忙碌中")
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if p.Status != "忙碌中" {
		t.Errorf("status = %q", p.Status)
	}

	if _, err := m.UpdateField("nope", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("unknown field: err = %v", err)
	}
}

func TestSetTags(t *testing.T) {
	m, _ := newTestManager(t)

	p, err := m.SetTags([]string{"旅行", "摄影"})
	if err != nil {
		t.Fatalf("SetTags: %v", err)
	}
	if len(p.Tags) != 2 || len(p.TagColors) != 2 {
		t.Errorf("tags/colors = %v / %v", p.Tags, p.TagColors)
	}
}

func TestSaveRepairsColors(t *testing.T) {
	m, _ := newTestManager(t)

	p, err := m.Save(model.UserProfile{
		Name: "X",
		Tags: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p.StatusColor != LightColors[0] {
		t.Errorf("statusColor = %q", p.StatusColor)
	}
	if len(p.TagColors) != 2 {
		t.Errorf("tagColors = %v", p.TagColors)
	}
}
