// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jeranaias/pocketchat/internal/model"
)

// modelsURL resolves the list-models URL for a provider. An OpenAI-style
// custom endpoint configured for chat has its "/chat/completions" suffix
// stripped before "/models" is appended.
func modelsURL(providerName, endpoint string) (string, error) {
	switch providerName {
	case OpenAI:
		if endpoint != "" {
			return strings.TrimSuffix(endpoint, "/chat/completions") + "/models", nil
		}
		return DefaultEndpoints[OpenAI].Models, nil
	case Anthropic:
		if endpoint != "" {
			return endpoint, nil
		}
		return DefaultEndpoints[Anthropic].Models, nil
	case Google:
		if endpoint != "" {
			return endpoint, nil
		}
		return DefaultEndpoints[Google].Models, nil
	default:
		if endpoint == "" {
			return "", ErrMissingEndpoint
		}
		return endpoint, nil
	}
}

// ListModels fetches and parses the provider's model catalog. Parsing is
// provider-specific; unknown custom shapes degrade to a single synthetic
// entry rather than failing.
func (a *Adapter) ListModels(ctx context.Context, req Request) ([]model.DiscoveredModel, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	url, err := modelsURL(req.Provider, req.Endpoint)
	if err != nil {
		return nil, err
	}

	body, err := a.do(ctx, http.MethodGet, url, apiHeaders(req.Provider, req.APIKey), nil)
	if err != nil {
		return nil, err
	}

	return parseModels(req.Provider, body), nil
}

// parseModels translates a list-models response into the flat discovered
// model shape.
func parseModels(providerName string, body []byte) []model.DiscoveredModel {
	var models []model.DiscoveredModel

	switch providerName {
	case OpenAI:
		gjson.GetBytes(body, "data").ForEach(func(_, item gjson.Result) bool {
			id := item.Get("id").String()
			if !strings.Contains(id, "gpt") && !strings.Contains(id, "text") {
				return true
			}
			desc := "OpenAI模型"
			if created := item.Get("created").Int(); created > 0 {
				desc = "OpenAI模型 (创建时间: " + time.Unix(created, 0).Format("2006-01-02") + ")"
			}
			models = append(models, model.DiscoveredModel{
				ID:          id,
				Name:        id,
				Description: desc,
				Provider:    OpenAI,
			})
			return true
		})

	case Anthropic:
		gjson.GetBytes(body, "data").ForEach(func(_, item gjson.Result) bool {
			id := item.Get("id").String()
			models = append(models, model.DiscoveredModel{
				ID:          id,
				Name:        id,
				Description: "Anthropic Claude模型",
				Provider:    Anthropic,
			})
			return true
		})

	case Google:
		gjson.GetBytes(body, "models").ForEach(func(_, item gjson.Result) bool {
			name := item.Get("name").String()
			if !strings.Contains(name, "models/gemini") {
				return true
			}
			id := strings.TrimPrefix(name, "models/")
			models = append(models, model.DiscoveredModel{
				ID:          id,
				Name:        id,
				Description: "Google Gemini模型",
				Provider:    Google,
			})
			return true
		})

	default:
		parsed := gjson.ParseBytes(body)
		list := parsed
		if !parsed.IsArray() {
			list = parsed.Get("data")
		}
		if list.IsArray() {
			list.ForEach(func(_, item gjson.Result) bool {
				id := coalesce(item, "id", "name", "model")
				name := coalesce(item, "name", "id", "model")
				desc := item.Get("description").String()
				if desc == "" {
					desc = "自定义API模型"
				}
				models = append(models, model.DiscoveredModel{
					ID:          id,
					Name:        name,
					Description: desc,
					Provider:    Custom,
				})
				return true
			})
		}
		if len(models) == 0 {
			// Unparseable custom catalog: expose one synthetic entry so the
			// provider is still selectable.
			models = append(models, model.DiscoveredModel{
				ID:          "custom-model",
				Name:        "自定义模型",
				Description: "自定义API模型",
				Provider:    Custom,
			})
		}
	}

	return models
}

// coalesce returns the first non-empty string field among paths.
func coalesce(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p).String(); v != "" {
			return v
		}
	}
	return ""
}
