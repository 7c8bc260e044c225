package inkdash

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/inkdash/inkdash/device"
	"github.com/inkdash/inkdash/model"
)

type settingsSpyPlugin struct {
	mu       sync.Mutex
	settings map[string]any
}

func (*settingsSpyPlugin) ID() string { return "spy" }

func (p *settingsSpyPlugin) GenerateImage(ctx context.Context, settings map[string]any, now time.Time) (image.Image, error) {
	p.mu.Lock()
	p.settings = settings
	p.mu.Unlock()
	return uniformImage(color.White), nil
}

func TestPlaylistRefreshMergesInstanceSettingsOverDefaults(t *testing.T) {
	cfg, err := device.LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.AddPlugin(&device.PluginSettings{
		PluginID: "spy",
		Settings: map[string]any{"width": 200, "theme": "dark"},
	})

	action := &PlaylistRefresh{
		Playlist: &model.Playlist{ID: "daily"},
		Instance: &model.PluginInstance{
			InstanceID: "inst-1",
			PluginID:   "spy",
			Settings:   map[string]any{"width": 400},
		},
	}
	plugin := &settingsSpyPlugin{}
	if _, err := action.Execute(context.Background(), plugin, cfg, time.Now()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if got := plugin.settings["width"]; got != 400 {
		t.Fatalf("width = %v, want instance override 400", got)
	}
	if got := plugin.settings["theme"]; got != "dark" {
		t.Fatalf("theme = %v, want plugin default dark", got)
	}
}

func TestPlaylistRefreshInfoTemplate(t *testing.T) {
	action := &PlaylistRefresh{
		Playlist: &model.Playlist{ID: "daily"},
		Instance: &model.PluginInstance{InstanceID: "inst-1", PluginID: "clock"},
	}
	info := action.RefreshInfo()
	if info.PlaylistID != "daily" || info.PluginID != "clock" {
		t.Fatalf("unexpected template: %+v", info)
	}
	if !info.RefreshTime.IsZero() || info.ImageHash != "" {
		t.Fatalf("template must leave time and hash for the loop: %+v", info)
	}
}

func TestPlaylistRefreshExecuteRejectsNilCollaborators(t *testing.T) {
	action := &PlaylistRefresh{Instance: &model.PluginInstance{PluginID: "spy"}}
	if _, err := action.Execute(context.Background(), nil, nil, time.Now()); err == nil {
		t.Fatal("expected error for nil plugin")
	}
	empty := &PlaylistRefresh{}
	if _, err := empty.Execute(context.Background(), &settingsSpyPlugin{}, nil, time.Now()); err == nil {
		t.Fatal("expected error for nil instance")
	}
}
