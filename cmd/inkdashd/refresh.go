package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/inkdash/inkdash"
	"github.com/inkdash/inkdash/device"
	"github.com/inkdash/inkdash/display"
	"github.com/inkdash/inkdash/history"
	"github.com/inkdash/inkdash/model"
)

func newRefreshCmd() *cobra.Command {
	var (
		playlistID string
		instanceID string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle synchronously and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return refreshOnce(playlistID, instanceID, dryRun)
		},
	}
	cmd.Flags().StringVar(&playlistID, "playlist", "", "playlist to refresh (default: active playlist)")
	cmd.Flags().StringVar(&instanceID, "instance", "", "playlist entry to refresh (default: next due entry)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "generate and hash the image without writing the display")
	return cmd
}

func refreshOnce(playlistID, instanceID string, dryRun bool) error {
	cfg, err := device.LoadConfig(resolveConfigPath())
	if err != nil {
		return err
	}
	cfg.EnsureActivePlaylist()

	playlist, instance, err := selectTarget(cfg, playlistID, instanceID)
	if err != nil {
		return err
	}

	var sink display.Manager
	if dryRun {
		sink = display.Null{}
	} else {
		fileSink, err := display.NewFileDisplay(resolveSpoolDir())
		if err != nil {
			return err
		}
		sink = fileSink
	}
	recorder, err := history.NewManager(history.Config{})
	if err != nil {
		return err
	}
	defer recorder.Close()

	refresher, err := inkdash.NewRefresher(inkdash.Config{
		DeviceConfig: cfg,
		Display:      sink,
		Recorder:     recorder,
	})
	if err != nil {
		return err
	}
	if err := refresher.RefreshOnce(playlist, instance); err != nil {
		return err
	}

	info := cfg.RefreshInfo()
	log.Info().
		Str("playlist_id", info.PlaylistID).
		Str("plugin_id", info.PluginID).
		Str("image_hash", info.ImageHash).
		Time("refresh_time", info.RefreshTime).
		Msg("refresh cycle completed")
	return nil
}

func selectTarget(cfg *device.Config, playlistID, instanceID string) (*model.Playlist, *model.PluginInstance, error) {
	if playlistID == "" {
		playlistID = cfg.RefreshInfo().PlaylistID
	}
	playlist := cfg.PlaylistManager().GetPlaylist(playlistID)
	if playlist == nil {
		return nil, nil, errors.Errorf("playlist %q not found", playlistID)
	}
	var instance *model.PluginInstance
	if instanceID != "" {
		instance = playlist.Find(instanceID)
		if instance == nil {
			return nil, nil, errors.Errorf("instance %q not found in playlist %q", instanceID, playlist.ID)
		}
	} else {
		instance = playlist.NextPlugin(time.Now())
		if instance == nil {
			return nil, nil, errors.Errorf("playlist %q has no due entry", playlist.ID)
		}
	}
	return playlist, instance, nil
}
