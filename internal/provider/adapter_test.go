// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendChatOpenAI(t *testing.T) {
	var gotAuth string
	var gotBody openAIChatBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"你好！"}}]}`))
	}))
	defer srv.Close()

	reply, err := New().SendChat(context.Background(), Request{
		Provider: OpenAI,
		APIKey:   "sk-test",
		Endpoint: srv.URL,
		ModelID:  "gpt-4",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if reply != "你好！" {
		t.Errorf("reply = %q", reply)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody.Model != "gpt-4" {
		t.Errorf("model sent = %q", gotBody.Model)
	}
}

func TestSendChatRejectsMissingKey(t *testing.T) {
	_, err := New().SendChat(context.Background(), Request{Provider: OpenAI, Endpoint: "https://x.test"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}

	_, err = New().SendChat(context.Background(), Request{Provider: Custom, APIKey: "k"})
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Errorf("err = %v, want ErrMissingEndpoint", err)
	}
}

func TestSendChatNon2xxIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	_, err := New().SendChat(context.Background(), Request{
		Provider: OpenAI,
		APIKey:   "sk-bad",
		Endpoint: srv.URL,
		Messages: []Message{{Role: "user", Content: "hi"}},
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", apiErr.Status)
	}
}

func TestSendChatEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer srv.Close()

	_, err := New().SendChat(context.Background(), Request{
		Provider: OpenAI,
		APIKey:   "sk",
		Endpoint: srv.URL,
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestListModelsOpenAIFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":"gpt-4","created":1687882411},
			{"id":"whisper-1"},
			{"id":"text-embedding-ada-002"},
			{"id":"dall-e-3"}
		]}`))
	}))
	defer srv.Close()

	models, err := New().ListModels(context.Background(), Request{
		Provider: OpenAI,
		APIKey:   "sk",
		Endpoint: srv.URL + "/chat/completions",
	})
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}

	// Only ids containing "gpt" or "text" survive the filter.
	if len(models) != 2 {
		t.Fatalf("models = %+v, want 2", models)
	}
	if models[0].ID != "gpt-4" || models[1].ID != "text-embedding-ada-002" {
		t.Errorf("models = %+v", models)
	}
	if models[0].Description == "OpenAI模型" {
		t.Errorf("created timestamp not reflected in description: %q", models[0].Description)
	}
}

func TestListModelsGoogleStripsPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[
			{"name":"models/gemini-1.5-pro"},
			{"name":"models/text-bison"},
			{"name":"models/gemini-pro"}
		]}`))
	}))
	defer srv.Close()

	models, err := New().ListModels(context.Background(), Request{
		Provider: Google,
		APIKey:   "AIza",
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("models = %+v, want gemini entries only", models)
	}
	if models[0].ID != "gemini-1.5-pro" {
		t.Errorf("prefix not stripped: %q", models[0].ID)
	}
}

func TestListModelsCustomFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer srv.Close()

	models, err := New().ListModels(context.Background(), Request{
		Provider: Custom,
		APIKey:   "k",
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0].ID != "custom-model" || models[0].Name != "自定义模型" {
		t.Errorf("fallback entry = %+v", models)
	}
}

func TestListModelsCustomCoalesces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"model":"llama3"},{"name":"qwen"}]`))
	}))
	defer srv.Close()

	models, err := New().ListModels(context.Background(), Request{
		Provider: Custom,
		APIKey:   "k",
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("models = %+v", models)
	}
	if models[0].ID != "llama3" || models[1].ID != "qwen" {
		t.Errorf("coalesced ids = %q, %q", models[0].ID, models[1].ID)
	}
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	err := New().TestConnection(context.Background(), Request{
		Provider: Custom,
		APIKey:   "k",
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Errorf("TestConnection: %v", err)
	}
}

func TestTestConnectionRejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>login page</html>`))
	}))
	defer srv.Close()

	err := New().TestConnection(context.Background(), Request{
		Provider: Custom,
		APIKey:   "k",
		Endpoint: srv.URL,
	})
	if err == nil {
		t.Error("TestConnection accepted a non-JSON body")
	}
}
