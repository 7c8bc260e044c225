package inkdash

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"

	"github.com/inkdash/inkdash/device"
	"github.com/inkdash/inkdash/model"
	"github.com/inkdash/inkdash/plugins"
)

// RefreshAction captures one unit of work for the refresh loop: run a plugin
// and describe the resulting refresh snapshot. PlaylistRefresh is the only
// kind today; the interface leaves room for future kinds (e.g. a display
// clear) without type switches in the loop.
type RefreshAction interface {
	// Execute runs the plugin and returns the produced image. It may be
	// slow and is not assumed side-effect free.
	Execute(ctx context.Context, plugin plugins.Plugin, cfg *device.Config, now time.Time) (image.Image, error)
	// PluginID identifies the plugin to resolve and run.
	PluginID() string
	// RefreshInfo returns the identity fields of the snapshot this action
	// produces; the loop fills in RefreshTime and ImageHash.
	RefreshInfo() model.RefreshInfo
}

// PlaylistRefresh refreshes one playlist entry. Actions are created fresh
// each cycle and never shared across cycles.
type PlaylistRefresh struct {
	Playlist *model.Playlist
	Instance *model.PluginInstance
}

func (a *PlaylistRefresh) PluginID() string {
	if a == nil || a.Instance == nil {
		return ""
	}
	return a.Instance.PluginID
}

// InstanceID returns the playlist entry id, empty when unknown.
func (a *PlaylistRefresh) InstanceID() string {
	if a == nil || a.Instance == nil {
		return ""
	}
	return a.Instance.InstanceID
}

// Execute generates the image with the instance settings layered over the
// plugin's configured defaults.
func (a *PlaylistRefresh) Execute(ctx context.Context, plugin plugins.Plugin, cfg *device.Config, now time.Time) (image.Image, error) {
	if plugin == nil {
		return nil, errors.New("playlist refresh: nil plugin")
	}
	if a.Instance == nil {
		return nil, errors.New("playlist refresh: nil plugin instance")
	}
	settings := make(map[string]any)
	if cfg != nil {
		if ps, ok := cfg.Plugin(a.Instance.PluginID); ok {
			for k, v := range ps.Settings {
				settings[k] = v
			}
		}
	}
	for k, v := range a.Instance.Settings {
		settings[k] = v
	}
	img, err := plugin.GenerateImage(ctx, settings, now)
	if err != nil {
		return nil, errors.Wrapf(err, "playlist refresh: plugin %s", a.Instance.PluginID)
	}
	if img == nil {
		return nil, errors.Errorf("playlist refresh: plugin %s produced no image", a.Instance.PluginID)
	}
	return img, nil
}

func (a *PlaylistRefresh) RefreshInfo() model.RefreshInfo {
	info := model.RefreshInfo{PluginID: a.PluginID()}
	if a != nil && a.Playlist != nil {
		info.PlaylistID = a.Playlist.ID
	}
	return info
}
