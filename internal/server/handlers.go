// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"io"
	"net/http"
	"time"

	"github.com/jeranaias/pocketchat/internal/backup"
	"github.com/jeranaias/pocketchat/internal/model"
)

// ===== HEALTH & STATS =====

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetStats())
}

// ===== CONTACTS =====

type contactRequest struct {
	Name        string `json:"name"`
	Note        string `json:"note"`
	Personality string `json:"personality"`
	Avatar      string `json:"avatar"`
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.ListEntries())
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.chat.CreateContact(req.Name, req.Note, req.Personality, req.Avatar)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	c, err := s.chat.Contact(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.chat.UpdateContact(r.PathValue("id"), req.Name, req.Note, req.Personality, req.Avatar)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.DeleteContact(r.PathValue("id"), confirmed(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	pinned, err := s.chat.TogglePin(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pinned": pinned})
}

func (s *Server) handleAssignModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.chat.AssignModel(r.PathValue("id"), req.Model); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== MESSAGES =====

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.chat.History(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if history == nil {
		history = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.chat.SendMessage(r.Context(), r.PathValue("id"), req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	msg, err := s.chat.EditMessage(r.PathValue("id"), r.PathValue("msgID"), req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// ===== MOMENTS =====

func (s *Server) handleListMoments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.moments.List())
}

func (s *Server) handleCreateMoment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, err := s.moments.Create(req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleEditMoment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, err := s.moments.Edit(r.PathValue("id"), req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMoment(w http.ResponseWriter, r *http.Request) {
	if err := s.moments.Delete(r.PathValue("id"), confirmed(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	liked, err := s.moments.ToggleLike(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.moments.Comments(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.moments.AddComment(r.PathValue("id"), req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ===== PROFILE =====

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profile.Load()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.profile.UpdateField(req.Field, req.Value)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tags []string `json:"tags"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.profile.SetTags(req.Tags)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ===== PROVIDERS & MODELS =====

// providerView hides the API key from listings.
type providerView struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint,omitempty"`
	HasKey      bool   `json:"hasKey"`
	ModelsKnown int    `json:"modelsKnown"`
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	available := s.store.AvailableModels()
	out := make(map[string]providerView)
	for name, cfg := range s.catalog.ProviderConfigs() {
		out[name] = providerView{
			Enabled:     cfg.Enabled,
			Endpoint:    cfg.Endpoint,
			HasKey:      cfg.APIKey != "",
			ModelsKnown: len(available[name]),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutProvider(w http.ResponseWriter, r *http.Request) {
	var req model.ProviderConfig
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.catalog.SaveProviderConfig(r.PathValue("name"), req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTestProvider(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.TestProvider(r.Context(), r.PathValue("name")); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (s *Server) handleRefreshModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.catalog.RefreshModels(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("active") == "true" {
		writeJSON(w, http.StatusOK, s.catalog.ActiveModels())
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.AllModels())
}

func (s *Server) handleSelectDefaultModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.catalog.SelectDefaultModel(req.Model); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== BACKUP =====

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.backup.ExportJSON()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+backup.FileName(time.Now())+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.backup.Restore(data, confirmed(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	list := s.backup.ListSnapshots()
	if list == nil {
		list = []model.BackupInfo{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	info, err := s.backup.CreateSnapshot(req.Description)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.backup.RestoreSnapshot(r.PathValue("id"), confirmed(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.backup.DeleteSnapshot(r.PathValue("id"), confirmed(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.backup.SnapshotData(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+backup.FileName(time.Now())+`"`)
	_, _ = w.Write(data)
}
