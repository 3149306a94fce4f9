// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pubfetch CLI. Running pubfetch
// with no arguments fetches the configured Google Scholar profile and writes
// publications.json. Exit status is 0 on success and 1 on any failure.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubfetch/internal/logger"
	"github.com/pdiddy/pubfetch/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// configErr records a config file that exists but could not be read.
var configErr error

var rootCmd = &cobra.Command{
	Use:   "pubfetch",
	Short: "Fetch a Google Scholar publication list into publications.json",
	Long: `pubfetch looks up a Google Scholar profile, lists its publications, fetches
each publication's detail page, and writes the normalized list, newest first,
to a JSON file. Failed attempts are retried with exponential backoff.

Settings come from flags, PUBFETCH_* environment variables (a local .env file
is loaded first), and pubfetch.yaml, in that order of precedence.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		logger.Init(viper.GetString("log_level"))
		if configErr != nil {
			return configErr
		}
		if f := viper.ConfigFileUsed(); f != "" {
			log.Info().Str("file", f).Msg("Using config file.")
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug().Strs("keys", keys).Msg("Loaded secrets.")
		}
		return nil
	},
	RunE: runFetch,
}

func init() {
	cobra.OnInitialize(initConfig)
	configure(viper.GetViper())

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pubfetch.yaml or ~/.config/pubfetch/pubfetch.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	viper.BindPFlag("log_level", pf.Lookup("log-level"))

	f := rootCmd.Flags()
	f.String("profile", "", "Google Scholar user id (the user= parameter)")
	f.Int("max-publications", 0, "maximum number of publications to fetch")
	f.String("output", "", "JSON output path")
	f.String("yaml-output", "", "also write the list as YAML to this path")
	f.Int("max-attempts", 0, "total fetch attempts before giving up")
	f.Bool("fail-fast", false, "make a single attempt with no retries")
	f.Bool("no-proxy", false, "skip proxy discovery and connect directly")

	viper.BindPFlag("profile_id", f.Lookup("profile"))
	viper.BindPFlag("max_publications", f.Lookup("max-publications"))
	viper.BindPFlag("output", f.Lookup("output"))
	viper.BindPFlag("yaml_output", f.Lookup("yaml-output"))
	viper.BindPFlag("retry.max_attempts", f.Lookup("max-attempts"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pubfetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pubfetch"))
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = err
		}
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("pubfetch failed.")
		os.Exit(1)
	}
}
