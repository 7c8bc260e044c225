// Package device owns the on-device configuration: scheduler settings,
// plugin settings, playlists and the last refresh snapshot, all backed by a
// single JSON file.
package device

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/inkdash/inkdash/model"
)

// DefaultInterval is used when the config file does not set
// scheduler_interval.
const DefaultInterval = 60 * time.Second

// PluginSettings is the per-plugin block of the config file. ImageSettings
// are passed through to the display sink untouched.
type PluginSettings struct {
	PluginID      string         `json:"plugin_id"`
	Settings      map[string]any `json:"settings,omitempty"`
	ImageSettings map[string]any `json:"image_settings,omitempty"`
}

type fileConfig struct {
	Name              string            `json:"name,omitempty"`
	SchedulerInterval model.Duration    `json:"scheduler_interval,omitempty"`
	Settings          map[string]any    `json:"settings,omitempty"`
	Plugins           []*PluginSettings `json:"plugins,omitempty"`
	Playlists         []*model.Playlist `json:"playlists,omitempty"`
	RefreshInfo       model.RefreshInfo `json:"refresh_info"`
}

// Config is the mutable device state. It is safe for concurrent use; the
// refresh loop and API callers go through the accessors below and never
// assume exclusive ownership.
type Config struct {
	path string

	mu    sync.RWMutex
	state fileConfig
}

// LoadConfig reads the config file at path. A missing file yields an empty
// config bound to that path, so a fresh device starts with defaults and the
// first WriteConfig creates the file.
func LoadConfig(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("device: config path is empty")
	}
	cfg := &Config{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("device config missing, starting empty")
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "device: read config %s", path)
	}
	if err := json.Unmarshal(data, &cfg.state); err != nil {
		return nil, errors.Wrapf(err, "device: parse config %s", path)
	}
	return cfg, nil
}

// Path returns the backing file path.
func (c *Config) Path() string { return c.path }

// GetConfig returns a named value from the free-form settings block.
func (c *Config) GetConfig(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.state.Settings[name]
	return val, ok
}

// SetConfig stores a named value into the free-form settings block.
func (c *Config) SetConfig(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Settings == nil {
		c.state.Settings = make(map[string]any)
	}
	c.state.Settings[name] = value
}

// Interval returns the scheduler sleep duration. The refresh loop reads this
// at the top of every cycle so operators can retune it without a restart.
func (c *Config) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.SchedulerInterval > 0 {
		return c.state.SchedulerInterval.Std()
	}
	return DefaultInterval
}

// SetInterval overrides the scheduler sleep duration.
func (c *Config) SetInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SchedulerInterval = model.Duration(d)
}

// RefreshInfo returns the last successfully evaluated refresh snapshot.
func (c *Config) RefreshInfo() model.RefreshInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.RefreshInfo
}

// SetRefreshInfo commits a new refresh snapshot into in-memory state. The
// caller persists it separately via WriteConfig.
func (c *Config) SetRefreshInfo(info model.RefreshInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.RefreshInfo = info
}

// PlaylistManager returns a resolver over the configured playlists.
func (c *Config) PlaylistManager() *model.PlaylistManager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &model.PlaylistManager{Playlists: c.state.Playlists}
}

// AddPlaylist appends a playlist to the configured set.
func (c *Config) AddPlaylist(pl *model.Playlist) {
	if pl == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Playlists = append(c.state.Playlists, pl)
}

// EnsureActivePlaylist points the refresh snapshot at the first configured
// playlist when no playlist is active yet, so a fresh device starts rotating
// without manual intervention. Returns true when the snapshot changed.
func (c *Config) EnsureActivePlaylist() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.RefreshInfo.PlaylistID != "" || len(c.state.Playlists) == 0 {
		return false
	}
	for _, pl := range c.state.Playlists {
		if pl != nil && pl.ID != "" {
			c.state.RefreshInfo.PlaylistID = pl.ID
			return true
		}
	}
	return false
}

// Plugin returns the settings block for a plugin id, or ok=false when the
// plugin is not configured.
func (c *Config) Plugin(pluginID string) (*PluginSettings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.state.Plugins {
		if p != nil && p.PluginID == pluginID {
			return p, true
		}
	}
	return nil, false
}

// AddPlugin registers or replaces a plugin settings block.
func (c *Config) AddPlugin(settings *PluginSettings) {
	if settings == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.state.Plugins {
		if p != nil && p.PluginID == settings.PluginID {
			c.state.Plugins[i] = settings
			return
		}
	}
	c.state.Plugins = append(c.state.Plugins, settings)
}

// WriteConfig persists the current state to the backing file via a temp file
// and rename, so a crash mid-write never corrupts the previous config. A
// failure here leaves in-memory state untouched; the next successful write
// captures it.
func (c *Config) WriteConfig() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(&c.state, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "device: marshal config")
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "device: create config dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return errors.Wrap(err, "device: create temp config")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "device: write temp config")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "device: close temp config")
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "device: replace config %s", c.path)
	}
	return nil
}
