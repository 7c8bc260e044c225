// Package model holds the playlist and refresh bookkeeping types shared by
// the device config and the refresh loop.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Duration is a time.Duration that marshals to the string form Go's
// time.ParseDuration accepts ("90s", "5m"). Bare numbers in config files are
// read as seconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*d = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "model: unmarshal duration")
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrapf(err, "model: parse duration %q", s)
		}
		*d = Duration(parsed)
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errors.Wrapf(err, "model: parse duration %q", raw)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// RefreshInfo is an immutable snapshot of the most recent successfully
// evaluated refresh. A dedup skip still counts as a successful evaluation
// and produces a new snapshot with an advanced RefreshTime.
type RefreshInfo struct {
	PlaylistID  string    `json:"playlist_id"`
	PluginID    string    `json:"plugin_id"`
	RefreshTime time.Time `json:"refresh_time"`
	ImageHash   string    `json:"image_hash"`
}

// PluginInstance is one configured entry inside a playlist: a plugin id plus
// the settings it renders with and how often it wants to be refreshed.
type PluginInstance struct {
	InstanceID      string         `json:"instance_id"`
	PluginID        string         `json:"plugin_id"`
	Name            string         `json:"name"`
	Settings        map[string]any `json:"settings,omitempty"`
	RefreshInterval Duration       `json:"refresh_interval"`
	LatestRefresh   time.Time      `json:"latest_refresh"`
}

// Due reports whether the instance's own refresh interval has elapsed.
// An instance with no interval is always due.
func (p *PluginInstance) Due(now time.Time) bool {
	if p == nil {
		return false
	}
	if p.RefreshInterval <= 0 {
		return true
	}
	return !now.Before(p.LatestRefresh.Add(p.RefreshInterval.Std()))
}

// Playlist is a named, ordered collection of plugin instances eligible for
// display.
type Playlist struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Instances []*PluginInstance `json:"instances"`
}

// NextPlugin returns the next instance to refresh at the given time: the
// least recently refreshed instance that is due, or nil when nothing is.
// The chosen instance's LatestRefresh is stamped so rotation progresses
// even when the produced image turns out to be a dedup skip.
func (pl *Playlist) NextPlugin(now time.Time) *PluginInstance {
	if pl == nil {
		return nil
	}
	var next *PluginInstance
	for _, inst := range pl.Instances {
		if inst == nil || !inst.Due(now) {
			continue
		}
		if next == nil || inst.LatestRefresh.Before(next.LatestRefresh) {
			next = inst
		}
	}
	if next != nil {
		next.LatestRefresh = now
	}
	return next
}

// Find returns the instance with the given id, or nil.
func (pl *Playlist) Find(instanceID string) *PluginInstance {
	if pl == nil {
		return nil
	}
	for _, inst := range pl.Instances {
		if inst != nil && inst.InstanceID == instanceID {
			return inst
		}
	}
	return nil
}

// PlaylistManager resolves playlist ids against the configured set.
type PlaylistManager struct {
	Playlists []*Playlist `json:"playlists"`
}

// GetPlaylist returns the playlist with the given id, or nil when absent.
func (m *PlaylistManager) GetPlaylist(id string) *Playlist {
	if m == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	for _, pl := range m.Playlists {
		if pl != nil && pl.ID == id {
			return pl
		}
	}
	return nil
}
