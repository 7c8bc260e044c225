package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/inkdash/inkdash/internal/config"
	"github.com/inkdash/inkdash/internal/env"
)

var rootCmd = &cobra.Command{
	Use:   "inkdashd",
	Short: "Playlist-driven refresh daemon for e-paper displays",
	Long: `inkdashd rotates a playlist of image-generating plugins on a display
device: it wakes on a configurable interval, renders the next due plugin,
skips panel writes when the image is unchanged and records every cycle
outcome to local history.`,
}

var (
	rootConfigPath string
	rootSpoolDir   string
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "device config path (overrides INKDASH_CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&rootSpoolDir, "spool", "", "display spool directory (overrides INKDASH_SPOOL_DIR)")
	rootCmd.AddCommand(
		newRunCmd(),
		newRefreshCmd(),
		newHistoryCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("inkdashd command failed")
	}
}

func resolveConfigPath() string {
	if rootConfigPath != "" {
		return rootConfigPath
	}
	return config.String("INKDASH_CONFIG_PATH", filepath.Join(defaultHome(), "config.json"))
}

func resolveSpoolDir() string {
	if rootSpoolDir != "" {
		return rootSpoolDir
	}
	return config.String("INKDASH_SPOOL_DIR", filepath.Join(defaultHome(), "spool"))
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".inkdash")
}
