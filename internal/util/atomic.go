// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for pocketchat.
package util

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// AtomicWriteFile writes data to path via a temp file in the same directory
// followed by a rename, fsyncing before the swap. After a crash either the
// old file or the complete new file exists, never a partial write. Parent
// directories are created as needed.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolve path")
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create parent directory")
	}

	// Same directory keeps the rename on one filesystem.
	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmp := f.Name()

	renamed := false
	defer func() {
		if !renamed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return errors.Wrap(err, "write data")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "sync data")
	}
	// Close before rename; required on Windows.
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return errors.Wrap(err, "set permissions")
	}
	if err := os.Rename(tmp, abs); err != nil {
		return errors.Wrap(err, "rename temp file")
	}

	renamed = true
	return nil
}
