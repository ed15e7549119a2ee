// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// Model types.
const (
	ModelTypeBuiltin = "builtin"
	ModelTypeCustom  = "custom"
)

// DefaultModelKey is the hardcoded fallback when neither a per-contact
// assignment nor the global default setting resolves.
const DefaultModelKey = "gpt-3.5"

// ModelSpec describes a selectable model, either a builtin entry or one
// discovered from a configured provider.
type ModelSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"` // "builtin" or "custom"
	Endpoint    string `json:"endpoint,omitempty"`
	Provider    string `json:"provider"`
	ModelID     string `json:"modelId,omitempty"`
}

// BuiltinModels is the registry of fixed model entries. Builtin models do
// not reach a provider; contacts assigned to them answer via the local
// template path.
var BuiltinModels = map[string]ModelSpec{
	"gpt-3.5": {
		Name:        "GPT-3.5 Turbo",
		Description: "快速、经济、适用于大多数对话场景",
		Type:        ModelTypeBuiltin,
		Endpoint:    "https://api.openai.com/v1/chat/completions",
		Provider:    "openai",
	},
	"gpt-4": {
		Name:        "GPT-4",
		Description: "更智能、理解更深层，适用于复杂对话",
		Type:        ModelTypeBuiltin,
		Endpoint:    "https://api.openai.com/v1/chat/completions",
		Provider:    "openai",
	},
	"claude": {
		Name:        "Claude",
		Description: "擅长创意写作和逻辑推理",
		Type:        ModelTypeBuiltin,
		Endpoint:    "https://api.anthropic.com/v1/messages",
		Provider:    "anthropic",
	},
	"ernie": {
		Name:        "文心一言",
		Description: "中文理解优秀，本土化优化",
		Type:        ModelTypeBuiltin,
		Endpoint:    "https://aip.baidubce.com/rpc/2.0/ai_custom/v1/wenxinworkshop/chat/completions",
		Provider:    "baidu",
	},
}

// CustomModelKey builds the composite key for a discovered model,
// "provider:modelId".
func CustomModelKey(provider, modelID string) string {
	return provider + ":" + modelID
}

// SplitModelKey splits a composite model key into provider and model id.
// The second return is false for builtin (non-composite) keys.
func SplitModelKey(key string) (provider, modelID string, ok bool) {
	i := strings.Index(key, ":")
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}
