// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the pocketchat services over a local HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jeranaias/pocketchat/internal/backup"
	"github.com/jeranaias/pocketchat/internal/chat"
	"github.com/jeranaias/pocketchat/internal/moments"
	"github.com/jeranaias/pocketchat/internal/profile"
	"github.com/jeranaias/pocketchat/internal/store"
)

// Server binds the domain services to HTTP handlers.
type Server struct {
	store   *store.Store
	chat    *chat.Service
	catalog *chat.Catalog
	moments *moments.Service
	profile *profile.Manager
	backup  *backup.Service
	version string
	log     *log.Entry
	http    *http.Server
}

// New assembles a server over the given services.
func New(st *store.Store, cs *chat.Service, cat *chat.Catalog, ms *moments.Service, pm *profile.Manager, bs *backup.Service, version string) *Server {
	return &Server{
		store:   st,
		chat:    cs,
		catalog: cat,
		moments: ms,
		profile: pm,
		backup:  bs,
		version: version,
		log:     log.WithField("component", "server"),
	}
}

// Handler returns the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)

	mux.HandleFunc("GET /api/contacts", s.handleListContacts)
	mux.HandleFunc("POST /api/contacts", s.handleCreateContact)
	mux.HandleFunc("GET /api/contacts/{id}", s.handleGetContact)
	mux.HandleFunc("PUT /api/contacts/{id}", s.handleUpdateContact)
	mux.HandleFunc("DELETE /api/contacts/{id}", s.handleDeleteContact)
	mux.HandleFunc("POST /api/contacts/{id}/pin", s.handleTogglePin)
	mux.HandleFunc("PUT /api/contacts/{id}/model", s.handleAssignModel)
	mux.HandleFunc("GET /api/contacts/{id}/messages", s.handleHistory)
	mux.HandleFunc("POST /api/contacts/{id}/messages", s.handleSendMessage)
	mux.HandleFunc("PUT /api/contacts/{id}/messages/{msgID}", s.handleEditMessage)

	mux.HandleFunc("GET /api/moments", s.handleListMoments)
	mux.HandleFunc("POST /api/moments", s.handleCreateMoment)
	mux.HandleFunc("PUT /api/moments/{id}", s.handleEditMoment)
	mux.HandleFunc("DELETE /api/moments/{id}", s.handleDeleteMoment)
	mux.HandleFunc("POST /api/moments/{id}/like", s.handleToggleLike)
	mux.HandleFunc("GET /api/moments/{id}/comments", s.handleListComments)
	mux.HandleFunc("POST /api/moments/{id}/comments", s.handleAddComment)

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handlePutProfile)
	mux.HandleFunc("PUT /api/profile/tags", s.handlePutTags)

	mux.HandleFunc("GET /api/providers", s.handleListProviders)
	mux.HandleFunc("PUT /api/providers/{name}", s.handlePutProvider)
	mux.HandleFunc("POST /api/providers/{name}/test", s.handleTestProvider)
	mux.HandleFunc("POST /api/providers/{name}/models", s.handleRefreshModels)
	mux.HandleFunc("GET /api/models", s.handleListModels)
	mux.HandleFunc("PUT /api/models/default", s.handleSelectDefaultModel)

	mux.HandleFunc("GET /api/backup/export", s.handleExport)
	mux.HandleFunc("POST /api/backup/restore", s.handleRestore)
	mux.HandleFunc("GET /api/backup/snapshots", s.handleListSnapshots)
	mux.HandleFunc("POST /api/backup/snapshots", s.handleCreateSnapshot)
	mux.HandleFunc("POST /api/backup/snapshots/{id}/restore", s.handleRestoreSnapshot)
	mux.HandleFunc("DELETE /api/backup/snapshots/{id}", s.handleDeleteSnapshot)
	mux.HandleFunc("GET /api/backup/snapshots/{id}/download", s.handleDownloadSnapshot)

	return s.withMiddleware(mux)
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ===== RESPONSE HELPERS =====

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps domain sentinels onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrContactNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, moments.ErrMomentNotFound),
		errors.Is(err, backup.ErrSnapshotNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, chat.ErrConfirmationRequired),
		errors.Is(err, moments.ErrConfirmationRequired),
		errors.Is(err, backup.ErrConfirmationRequired):
		writeError(w, http.StatusPreconditionRequired, err)
	case errors.Is(err, chat.ErrNameRequired),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrNotUserMessage),
		errors.Is(err, chat.ErrUnknownModel),
		errors.Is(err, moments.ErrEmptyContent),
		errors.Is(err, backup.ErrInvalidBackup),
		errors.Is(err, profile.ErrUnknownField):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// confirmed reports whether the request carries confirm=true. Destructive
// endpoints refuse to act without it.
func confirmed(r *http.Request) bool {
	return r.URL.Query().Get("confirm") == "true"
}
