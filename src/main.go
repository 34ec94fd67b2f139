package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"YakinikuMap/src/config"
)

var cfg config.Config

func main() {
	cfg = config.Load()
	cfg.SetupLogging()

	rootCmd := &cobra.Command{
		Use:          "yakiniku",
		Short:        "Find yakiniku restaurants near you and keep your own notes on them",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.SearchBackend, "search-backend", cfg.SearchBackend, "search backend (google|elastic)")
	rootCmd.PersistentFlags().StringVar(&cfg.NotesBackend, "notes-backend", cfg.NotesBackend, "note store (memory|redis|sqlite)")
	rootCmd.PersistentFlags().StringVar(&cfg.NotesDB, "notes-db", cfg.NotesDB, "sqlite note database path")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(importCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
