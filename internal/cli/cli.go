// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the pocketchat command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeranaias/pocketchat/internal/backup"
	"github.com/jeranaias/pocketchat/internal/chat"
	"github.com/jeranaias/pocketchat/internal/config"
	"github.com/jeranaias/pocketchat/internal/moments"
	"github.com/jeranaias/pocketchat/internal/profile"
	"github.com/jeranaias/pocketchat/internal/provider"
	"github.com/jeranaias/pocketchat/internal/server"
	"github.com/jeranaias/pocketchat/internal/store"
)

var (
	version = "dev"

	cfgPath  string
	logLevel string
)

// SetVersion records the build version for the version command and server
// health endpoint.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pocketchat",
		Short:         "Local AI contact and chat companion",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			if logLevel != "" {
				lvl, err := log.ParseLevel(logLevel)
				if err != nil {
					return errors.Wrapf(err, "invalid log level %q", logLevel)
				}
				log.SetLevel(lvl)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (TOML)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(versionCmd())
	return root
}

func loadConfig() (config.Config, error) {
	path := cfgPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".pocketchat", "config.toml")
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel == "" {
		if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
			log.SetLevel(lvl)
		}
	}
	return cfg, nil
}

// openServices opens the store and wires the domain services over it.
// Callers own closing the returned store.
func openServices(cfg config.Config) (*store.Store, *server.Server, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "create data dir")
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "pocketchat.db"))
	if err != nil {
		return nil, nil, err
	}

	adapter := provider.New()
	catalog := chat.NewCatalog(st, adapter)
	chatSvc := chat.New(st, adapter, catalog)
	profileMgr := profile.NewManager(st)
	momentsSvc := moments.New(st, profileMgr)
	backupSvc := backup.New(st, version)

	srv := server.New(st, chatSvc, catalog, momentsSvc, profileMgr, backupSvc, version)
	return st, srv, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pocketchat HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, srv, err := openServices(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfgPath != "" {
				if err := config.Watch(ctx, cfgPath, func(next config.Config) {
					if lvl, err := log.ParseLevel(next.LogLevel); err == nil {
						log.SetLevel(lvl)
						log.WithField("level", next.LogLevel).Info("log level updated")
					}
				}); err != nil {
					log.WithError(err).Warn("config watch unavailable")
				}
			}

			return srv.ListenAndServe(ctx, cfg.Listen)
		},
	}
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, restore, and list backups",
	}

	var outDir string
	create := &cobra.Command{
		Use:   "create",
		Short: "Write a full backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, _, err := openServices(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			dir := outDir
			if dir == "" {
				dir = "."
			}
			path, err := backup.New(st, version).WriteLocal(dir)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	create.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default current)")

	var yes bool
	restore := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace all data from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("restore replaces ALL data; re-run with --yes to confirm")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read backup file")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, _, err := openServices(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			return backup.New(st, version).Restore(data, true)
		},
	}
	restore.Flags().BoolVar(&yes, "yes", false, "confirm the restore")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, _, err := openServices(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, info := range backup.New(st, version).ListSnapshots() {
				fmt.Printf("%s  %s  %d items  %s\n", info.ID, info.Date, info.ItemsCount, info.Description)
			}
			return nil
		},
	}

	cmd.AddCommand(create, restore, list)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pocketchat " + version)
		},
	}
}
