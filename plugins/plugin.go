// Package plugins defines the image-generating plugin contract and the
// registry the refresh loop resolves plugin ids against.
package plugins

import (
	"context"
	"image"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkdash/inkdash/model"
)

// Plugin produces a displayable image from its settings and a timestamp.
// Implementations may be slow and may have side effects; callers must treat
// GenerateImage as an arbitrary blocking operation.
type Plugin interface {
	ID() string
	GenerateImage(ctx context.Context, settings map[string]any, now time.Time) (image.Image, error)
}

// Resolver turns a plugin id into a runnable plugin, or nil when the id is
// unknown or the plugin cannot be loaded.
type Resolver interface {
	Resolve(pluginID string) Plugin
}

// Registry is a Resolver over an explicit plugin set.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry builds a registry containing the given plugins.
func NewRegistry(list ...Plugin) *Registry {
	r := &Registry{plugins: make(map[string]Plugin, len(list))}
	for _, p := range list {
		r.Register(p)
	}
	return r
}

// DefaultRegistry returns a registry with the builtin plugins.
func DefaultRegistry() *Registry {
	return NewRegistry(NewClock(), NewBanner())
}

// Register adds or replaces a plugin by its id.
func (r *Registry) Register(p Plugin) {
	if p == nil {
		return
	}
	id := strings.TrimSpace(p.ID())
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[id] = p
}

// Resolve returns the plugin for id, or nil when absent.
func (r *Registry) Resolve(pluginID string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plugins[strings.TrimSpace(pluginID)]
}

// IDs lists the registered plugin ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewInstance builds a playlist entry for a plugin with a fresh instance id.
func NewInstance(pluginID, name string, settings map[string]any, interval time.Duration) *model.PluginInstance {
	return &model.PluginInstance{
		InstanceID:      uuid.NewString(),
		PluginID:        pluginID,
		Name:            name,
		Settings:        settings,
		RefreshInterval: model.Duration(interval),
	}
}
