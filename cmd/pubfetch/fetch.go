// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubfetch/internal/fetch"
	"github.com/pdiddy/pubfetch/internal/logger"
	"github.com/pdiddy/pubfetch/internal/proxy"
	"github.com/pdiddy/pubfetch/internal/scholar"
	"github.com/pdiddy/pubfetch/internal/secrets"
	"github.com/pdiddy/pubfetch/pkg/types"
)

// configure sets the env binding and defaults on v.
func configure(v *viper.Viper) {
	v.SetEnvPrefix("PUBFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := types.DefaultFetchConfig()
	v.SetDefault("profile_id", d.ProfileID)
	v.SetDefault("max_publications", d.MaxPublications)
	v.SetDefault("output", d.OutputPath)
	v.SetDefault("yaml_output", "")
	v.SetDefault("item_delay_min", d.ItemDelayMin)
	v.SetDefault("item_delay_max", d.ItemDelayMax)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("retry.jitter", d.Retry.Jitter)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
	v.SetDefault("http.timeout", d.Timeout)
	v.SetDefault("http.user_agent", d.UserAgent)
	v.SetDefault("http.requests_per_second", d.RequestsPerSecond)
	v.SetDefault("scholar.base_url", d.BaseURL)
	v.SetDefault("proxy.enabled", d.Proxy.Enabled)
	v.SetDefault("proxy.url", "")
	v.SetDefault("proxy.max_candidates", d.Proxy.MaxCandidates)
	v.SetDefault("proxy.timeout", d.Proxy.Timeout)
	v.SetDefault("proxy.validation_target", d.Proxy.ValidationTarget)
	v.SetDefault("log_level", "info")
}

// loadConfig reads a FetchConfig from v.
func loadConfig(v *viper.Viper) types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:           v.GetDuration("http.timeout"),
			UserAgent:         v.GetString("http.user_agent"),
			RequestsPerSecond: v.GetFloat64("http.requests_per_second"),
		},
		ProfileID:       v.GetString("profile_id"),
		BaseURL:         v.GetString("scholar.base_url"),
		MaxPublications: v.GetInt("max_publications"),
		OutputPath:      v.GetString("output"),
		YAMLOutputPath:  v.GetString("yaml_output"),
		ItemDelayMin:    v.GetDuration("item_delay_min"),
		ItemDelayMax:    v.GetDuration("item_delay_max"),
		Retry: types.RetryPolicy{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			BaseDelay:   v.GetDuration("retry.base_delay"),
			Jitter:      v.GetDuration("retry.jitter"),
			MaxDelay:    v.GetDuration("retry.max_delay"),
		},
		Proxy: types.ProxyConfig{
			Enabled:          v.GetBool("proxy.enabled"),
			URL:              v.GetString("proxy.url"),
			MaxCandidates:    v.GetInt("proxy.max_candidates"),
			Timeout:          v.GetDuration("proxy.timeout"),
			ValidationTarget: v.GetString("proxy.validation_target"),
		},
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(viper.GetViper())
	if failFast, _ := cmd.Flags().GetBool("fail-fast"); failFast {
		cfg.Retry.MaxAttempts = 1
	}
	if noProxy, _ := cmd.Flags().GetBool("no-proxy"); noProxy {
		cfg.Proxy.Enabled = false
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, cfg, loadedSecrets, cmd.OutOrStdout())
}

// execute wires the Scholar client, the optional proxy selector, and the
// fetcher, then runs the fetch.
func execute(ctx context.Context, cfg types.FetchConfig, creds map[string]string, out io.Writer) error {
	runID := uuid.NewString()
	log := logger.WithComponent("fetch").With().Str("run_id", runID).Logger()

	client, err := scholar.NewClient(cfg.BaseURL, cfg.HTTPConfig)
	if err != nil {
		return fmt.Errorf("creating scholar client: %w", err)
	}

	opts := []fetch.Option{fetch.WithProgress(out)}
	if cfg.Proxy.Enabled {
		explicit := cfg.Proxy.URL
		if explicit == "" {
			explicit = creds[secrets.ProxyURL]
		}
		plog := logger.WithComponent("proxy").With().Str("run_id", runID).Logger()
		sel := proxy.NewSelector(cfg.Proxy, plog, proxy.DefaultSources(explicit, cfg.UserAgent)...)
		opts = append(opts, fetch.WithProxySelector(sel))
	}

	log.Info().
		Str("profile", cfg.ProfileID).
		Int("max_publications", cfg.MaxPublications).
		Int("max_attempts", cfg.Retry.MaxAttempts).
		Bool("proxy", cfg.Proxy.Enabled).
		Msg("Starting fetch.")
	return fetch.New(cfg, client, log, opts...).Run(ctx)
}
