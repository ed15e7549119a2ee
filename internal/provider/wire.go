// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Default model ids when the request doesn't name one.
const (
	defaultOpenAIModel    = "gpt-3.5-turbo"
	defaultAnthropicModel = "claude-3-haiku-20240307"
	defaultGoogleModel    = "gemini-pro"
	defaultCustomModel    = "default"
)

// =============================================================================
// REQUEST TRANSLATION
// =============================================================================

// openAIChatBody is the OpenAI-style request body, also used for custom
// providers.
type openAIChatBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// anthropicChatBody is the Anthropic messages-API request body. The leading
// system turn travels as the top-level System field, never inside Messages.
type anthropicChatBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

type googleChatBody struct {
	Contents         []googleContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

// buildChatRequest translates a canonical request into the provider's URL
// and request body.
func buildChatRequest(req Request) (url string, body []byte, err error) {
	url = req.Endpoint

	var payload interface{}
	switch req.Provider {
	case Anthropic:
		payload = buildAnthropicBody(req)
	case Google:
		modelID := req.ModelID
		if modelID == "" {
			modelID = defaultGoogleModel
		}
		url = fmt.Sprintf("%s/%s:generateContent", req.Endpoint, modelID)
		payload = buildGoogleBody(req)
	case OpenAI:
		modelID := req.ModelID
		if modelID == "" {
			modelID = defaultOpenAIModel
		}
		payload = openAIChatBody{Model: modelID, Messages: req.Messages, Temperature: 0.7, MaxTokens: 1000}
	default:
		// Custom providers take the permissive OpenAI-style format.
		modelID := req.ModelID
		if modelID == "" {
			modelID = defaultCustomModel
		}
		payload = openAIChatBody{Model: modelID, Messages: req.Messages, Temperature: 0.7, MaxTokens: 1000}
	}

	body, err = json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return url, body, nil
}

// buildAnthropicBody extracts the single leading system message into the
// top-level system field and remaps every remaining non-assistant role to
// "user".
func buildAnthropicBody(req Request) anthropicChatBody {
	body := anthropicChatBody{
		Model:       req.ModelID,
		MaxTokens:   1000,
		Temperature: 0.7,
	}
	if body.Model == "" {
		body.Model = defaultAnthropicModel
	}

	for _, m := range req.Messages {
		if m.Role == "system" && body.System == "" {
			body.System = m.Content
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "assistant"
		}
		body.Messages = append(body.Messages, Message{Role: role, Content: m.Content})
	}
	return body
}

// buildGoogleBody remaps every message to Google's contents shape:
// assistant becomes "model", everything else "user".
func buildGoogleBody(req Request) googleChatBody {
	var body googleChatBody
	for _, m := range req.Messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		body.Contents = append(body.Contents, googleContent{
			Role:  role,
			Parts: []googlePart{{Text: m.Content}},
		})
	}
	body.GenerationConfig.Temperature = 0.7
	body.GenerationConfig.MaxOutputTokens = 1000
	return body
}

// =============================================================================
// RESPONSE EXTRACTION
// =============================================================================

// extractContent pulls the reply text out of a provider response. Missing
// or malformed fields fall through to the empty string; the custom path
// probes a chain of known shapes and finally stringifies the whole body.
func extractContent(providerName string, body []byte) string {
	switch providerName {
	case OpenAI:
		return gjson.GetBytes(body, "choices.0.message.content").String()
	case Anthropic:
		return gjson.GetBytes(body, "content.0.text").String()
	case Google:
		return gjson.GetBytes(body, "candidates.0.content.parts.0.text").String()
	default:
		for _, path := range []string{"choices.0.message.content", "content", "text", "result"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
		return string(body)
	}
}
