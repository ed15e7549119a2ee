// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and watches the pocketchat TOML configuration.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jeranaias/pocketchat/internal/util"
)

// Config is the server configuration.
type Config struct {
	Listen       string `toml:"listen"`
	DataDir      string `toml:"data_dir"`
	LogLevel     string `toml:"log_level"`
	DefaultModel string `toml:"default_model"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Listen:       "127.0.0.1:8787",
		DataDir:      defaultDataDir(),
		LogLevel:     "info",
		DefaultModel: "gpt-3.5",
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pocketchat"
	}
	return filepath.Join(home, ".pocketchat")
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.DefaultModel == "" {
		c.DefaultModel = def.DefaultModel
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("POCKETCHAT_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("POCKETCHAT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("POCKETCHAT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("POCKETCHAT_DEFAULT_MODEL"); v != "" {
		c.DefaultModel = v
	}
}

// Validate checks the fields that have a constrained value set.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return errors.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	return nil
}

// Load reads the config at path. A missing file yields defaults; env
// overrides apply in both cases.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				return Config{}, errors.Wrapf(err, "read config %s", path)
			}
		}
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config to path atomically.
func Save(path string, cfg Config) error {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return util.AtomicWriteFile(path, []byte(b.String()), 0o644)
}

// Watch re-reads the config whenever the file changes and calls onChange
// with the new value. Events are debounced; editors that replace the file
// (rename + create) are handled by watching the directory.
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "watch %s", dir)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		reload := func() {
			cfg, err := Load(path)
			if err != nil {
				log.WithError(err).Warn("config reload failed, keeping previous")
				return
			}
			onChange(cfg)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(250*time.Millisecond, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config watcher error")
			}
		}
	}()
	return nil
}
