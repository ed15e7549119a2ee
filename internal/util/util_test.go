// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello..."},
		{"你好世界你好世界", 4, "你好世界..."},
		{"你好", 4, "你好"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFirstRunes(t *testing.T) {
	if got := FirstRunes("你好世界", 2); got != "你好" {
		t.Errorf("FirstRunes = %q", got)
	}
	if got := FirstRunes("ab", 5); got != "ab" {
		t.Errorf("FirstRunes = %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2025, 6, 1, 9, 5, 30, 0, time.UTC)
	if got := FormatDate(ts); got != "2025-06-01 09:05" {
		t.Errorf("FormatDate = %q", got)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "out.json")

	if err := AtomicWriteFile(path, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatalf("AtomicWriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("content = %s", data)
	}

	// Overwrite in place.
	if err := AtomicWriteFile(path, []byte(`{"a":2}`), 0o600); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != `{"a":2}` {
		t.Errorf("content after overwrite = %s", data)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
