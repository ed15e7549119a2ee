// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the contact registry, per-contact chat histories, and
// the reply-generation decision between a configured provider model and the
// local template responder.
package chat

import (
	"context"
	"fmt"

	"github.com/jeranaias/pocketchat/internal/model"
	"github.com/jeranaias/pocketchat/internal/provider"
	"github.com/jeranaias/pocketchat/internal/store"
)

// ProviderAPI is the slice of the provider adapter the chat layer uses.
type ProviderAPI interface {
	SendChat(ctx context.Context, req provider.Request) (string, error)
	ListModels(ctx context.Context, req provider.Request) ([]model.DiscoveredModel, error)
	TestConnection(ctx context.Context, req provider.Request) error
}

// Catalog resolves model keys: builtin entries plus models discovered from
// enabled providers, and the per-contact / global default assignment chain.
type Catalog struct {
	store *store.Store
	api   ProviderAPI
}

// NewCatalog creates a model catalog over the store and adapter.
func NewCatalog(st *store.Store, api ProviderAPI) *Catalog {
	return &Catalog{store: st, api: api}
}

// AllModels returns every selectable model: the builtin registry plus the
// discovered models of each enabled provider, keyed "provider:modelId".
func (c *Catalog) AllModels() map[string]model.ModelSpec {
	all := make(map[string]model.ModelSpec, len(model.BuiltinModels))
	for k, v := range model.BuiltinModels {
		all[k] = v
	}

	configs := c.store.ProviderConfigs()
	available := c.store.AvailableModels()
	for name, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		for _, dm := range available[name] {
			display := provider.DisplayNames[name]
			if display == "" {
				display = name
			}
			desc := dm.Description
			if desc == "" {
				desc = fmt.Sprintf("自定义%s模型", name)
			}
			all[model.CustomModelKey(name, dm.ID)] = model.ModelSpec{
				Name:        fmt.Sprintf("%s (%s)", dm.Name, display),
				Description: desc,
				Type:        model.ModelTypeCustom,
				Provider:    name,
				ModelID:     dm.ID,
			}
		}
	}
	return all
}

// ActiveModels filters AllModels down to builtin entries and custom entries
// whose provider config is currently enabled.
func (c *Catalog) ActiveModels() map[string]model.ModelSpec {
	configs := c.store.ProviderConfigs()
	active := make(map[string]model.ModelSpec)
	for key, spec := range c.AllModels() {
		if spec.Type == model.ModelTypeBuiltin || configs[spec.Provider].Enabled {
			active[key] = spec
		}
	}
	return active
}

// ProviderConfigs returns the stored per-provider configurations.
func (c *Catalog) ProviderConfigs() map[string]model.ProviderConfig {
	return c.store.ProviderConfigs()
}

// SaveProviderConfig merges one provider's configuration into the stored
// map.
func (c *Catalog) SaveProviderConfig(name string, cfg model.ProviderConfig) error {
	configs := c.store.ProviderConfigs()
	configs[name] = cfg
	return c.store.SaveProviderConfigs(configs)
}

// RefreshModels fetches the provider's model catalog and merges it into the
// available-models cache, overwriting only that provider's prior entries.
func (c *Catalog) RefreshModels(ctx context.Context, name string) ([]model.DiscoveredModel, error) {
	cfg, ok := c.store.ProviderConfigs()[name]
	if !ok || cfg.APIKey == "" {
		return nil, provider.ErrMissingAPIKey
	}

	models, err := c.api.ListModels(ctx, provider.Request{
		Provider: name,
		APIKey:   cfg.APIKey,
		Endpoint: cfg.Endpoint,
	})
	if err != nil {
		return nil, err
	}

	available := c.store.AvailableModels()
	available[name] = models
	if err := c.store.SaveAvailableModels(available); err != nil {
		return nil, err
	}
	return models, nil
}

// TestProvider checks connectivity for one provider's stored config.
func (c *Catalog) TestProvider(ctx context.Context, name string) error {
	cfg, ok := c.store.ProviderConfigs()[name]
	if !ok || cfg.APIKey == "" {
		return provider.ErrMissingAPIKey
	}
	return c.api.TestConnection(ctx, provider.Request{
		Provider: name,
		APIKey:   cfg.APIKey,
		Endpoint: cfg.Endpoint,
	})
}

// ResolveModelKey returns the model key a contact answers with: its applied
// assignment, else the global default setting, else the builtin fallback.
func (c *Catalog) ResolveModelKey(contactID string) string {
	if key, ok := c.store.AppliedModels()[contactID]; ok && key != "" {
		return key
	}
	return c.store.GetSettingString(store.SettingSelectedModel, model.DefaultModelKey)
}

// SelectDefaultModel sets the global default model key.
func (c *Catalog) SelectDefaultModel(key string) error {
	if _, ok := c.AllModels()[key]; !ok {
		return ErrUnknownModel
	}
	return c.store.SetSetting(store.SettingSelectedModel, key)
}
