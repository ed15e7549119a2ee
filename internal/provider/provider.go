// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider translates canonical chat requests onto the wire formats
// of the supported chat-completion services (OpenAI, Anthropic, Google, and
// a permissive "custom" fallback) and maps each service's JSON reply back to
// plain text.
//
// Every outbound call is bounded by a 30 second timeout; failures come back
// as errors, never panics, so the chat layer can fall through to its local
// template path.
package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Provider names. Anything else falls through to the custom wire format.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Google    = "google"
	Custom    = "custom"
)

const (
	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps response bodies to prevent memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024

	// anthropicVersion is the pinned Anthropic API version header value.
	anthropicVersion = "2023-06-01"
)

// Endpoints holds a provider's default chat and models URLs.
type Endpoints struct {
	Chat   string
	Models string
}

// DefaultEndpoints are used when a provider config leaves the endpoint
// blank. Custom providers always require an explicit endpoint.
var DefaultEndpoints = map[string]Endpoints{
	OpenAI: {
		Chat:   "https://api.openai.com/v1/chat/completions",
		Models: "https://api.openai.com/v1/models",
	},
	Anthropic: {
		Chat:   "https://api.anthropic.com/v1/messages",
		Models: "https://api.anthropic.com/v1/models",
	},
	Google: {
		Chat:   "https://generativelanguage.googleapis.com/v1beta/models",
		Models: "https://generativelanguage.googleapis.com/v1beta/models",
	},
}

// DisplayNames maps provider keys to their display labels.
var DisplayNames = map[string]string{
	OpenAI:    "OpenAI",
	Anthropic: "Anthropic Claude",
	Google:    "Google Gemini",
	Custom:    "自定义",
}

// Error variables for adapter failures.
var (
	// ErrMissingAPIKey indicates the provider config has no key; rejected
	// before any I/O.
	ErrMissingAPIKey = errors.New("API key not configured")

	// ErrMissingEndpoint indicates no endpoint was given and no default
	// exists for the provider.
	ErrMissingEndpoint = errors.New("endpoint not configured")

	// ErrEmptyResponse indicates the provider answered with no extractable
	// content. An empty reply must never reach a chat history.
	ErrEmptyResponse = errors.New("empty response")
)

// APIError represents a non-2xx response from a provider.
type APIError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Message is one canonical chat turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// Request is a canonical outbound call: which provider, its credentials,
// and the conversation to send.
type Request struct {
	Provider string
	APIKey   string
	Endpoint string
	ModelID  string
	Messages []Message
}

// Adapter performs the wire translation and HTTP transport.
type Adapter struct {
	client  *http.Client
	timeout time.Duration
	log     *logrus.Entry
}

// New creates an adapter with a shared pooled HTTP client.
func New() *Adapter {
	return &Adapter{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
			Timeout: DefaultTimeout,
		},
		timeout: DefaultTimeout,
		log:     logrus.WithField("component", "provider"),
	}
}

// WithTimeout overrides the request timeout (tests use short values).
func (a *Adapter) WithTimeout(d time.Duration) *Adapter {
	a.timeout = d
	a.client.Timeout = d
	return a
}

// SendChat sends one canonical conversation to the provider and returns the
// extracted reply text.
func (a *Adapter) SendChat(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return "", ErrMissingAPIKey
	}
	if req.Endpoint == "" {
		return "", ErrMissingEndpoint
	}

	url, body, err := buildChatRequest(req)
	if err != nil {
		return "", err
	}

	respBody, err := a.do(ctx, http.MethodPost, url, apiHeaders(req.Provider, req.APIKey), body)
	if err != nil {
		return "", err
	}

	content := extractContent(req.Provider, respBody)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// do performs one bounded HTTP round trip and returns the body of a 2xx
// response.
func (a *Adapter) do(ctx context.Context, method, url string, headers http.Header, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"method":   method,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("provider request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

// readResponse reads a response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// apiHeaders builds the auth headers for a provider. OpenAI and custom use
// bearer auth; Anthropic and Google use their own header schemes.
func apiHeaders(providerName, apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if apiKey == "" {
		return h
	}
	switch providerName {
	case Anthropic:
		h.Set("x-api-key", apiKey)
		h.Set("anthropic-version", anthropicVersion)
	case Google:
		h.Set("x-goog-api-key", apiKey)
	default:
		h.Set("Authorization", "Bearer "+apiKey)
	}
	return h
}

// TestConnection issues a GET against the provider's models endpoint.
// Success is a 2xx status with a parseable JSON body.
func (a *Adapter) TestConnection(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.APIKey) == "" {
		return ErrMissingAPIKey
	}
	url, err := modelsURL(req.Provider, req.Endpoint)
	if err != nil {
		return err
	}

	body, err := a.do(ctx, http.MethodGet, url, apiHeaders(req.Provider, req.APIKey), nil)
	if err != nil {
		return err
	}
	if !json.Valid(body) {
		return fmt.Errorf("endpoint returned non-JSON response")
	}
	return nil
}
