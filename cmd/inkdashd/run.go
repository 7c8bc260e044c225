package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/inkdash/inkdash"
	"github.com/inkdash/inkdash/device"
	"github.com/inkdash/inkdash/display"
	"github.com/inkdash/inkdash/history"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the refresh daemon until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon()
		},
	}
}

func runDaemon() error {
	cfg, err := device.LoadConfig(resolveConfigPath())
	if err != nil {
		return err
	}
	if cfg.EnsureActivePlaylist() {
		log.Info().Str("playlist_id", cfg.RefreshInfo().PlaylistID).Msg("activated first configured playlist")
	}

	disp, err := display.NewFileDisplay(resolveSpoolDir())
	if err != nil {
		return err
	}
	recorder, err := history.NewManager(history.Config{})
	if err != nil {
		return err
	}
	defer recorder.Close()

	refresher, err := inkdash.NewRefresher(inkdash.Config{
		DeviceConfig: cfg,
		Display:      disp,
		Recorder:     recorder,
	})
	if err != nil {
		return err
	}
	if err := refresher.Start(); err != nil {
		return err
	}
	defer refresher.Stop()

	log.Info().
		Str("config", cfg.Path()).
		Str("spool", disp.Dir()).
		Dur("interval", cfg.Interval()).
		Msg("inkdashd running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")
	return nil
}
