package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "askctl",
	Short: "Operator tools for the Arcos chat assistant",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		lvl, _ := cmd.Flags().GetString("log-level")
		if l, err := zerolog.ParseLevel(lvl); err == nil && l != zerolog.NoLevel {
			zerolog.SetGlobalLevel(l)
		}
		return nil
	},
	SilenceUsage: true,
}

func main() {
	godotenv.Load()

	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(newAskCmd(), newLogCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
