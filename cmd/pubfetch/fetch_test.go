// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubfetch/internal/fetch"
	"github.com/pdiddy/pubfetch/pkg/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	configure(v)

	assert.Equal(t, types.DefaultFetchConfig(), loadConfig(v))
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PUBFETCH_PROFILE_ID", "abcdEFGH1234")
	t.Setenv("PUBFETCH_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("PUBFETCH_RETRY_BASE_DELAY", "2s")
	t.Setenv("PUBFETCH_ITEM_DELAY_MIN", "250ms")
	t.Setenv("PUBFETCH_PROXY_ENABLED", "false")
	t.Setenv("PUBFETCH_HTTP_REQUESTS_PER_SECOND", "0.5")

	v := viper.New()
	configure(v)
	cfg := loadConfig(v)

	assert.Equal(t, "abcdEFGH1234", cfg.ProfileID)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.ItemDelayMin)
	assert.False(t, cfg.Proxy.Enabled)
	assert.Equal(t, 0.5, cfg.RequestsPerSecond)
	assert.Equal(t, types.DefaultMaxDelay, cfg.Retry.MaxDelay)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pubfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`profile_id: fromFile
max_publications: 10
yaml_output: _data/publications.yml
retry:
  max_attempts: 2
  jitter: 1s
proxy:
  url: socks5://10.0.0.1:1080
`), 0o644))

	v := viper.New()
	configure(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg := loadConfig(v)

	assert.Equal(t, "fromFile", cfg.ProfileID)
	assert.Equal(t, 10, cfg.MaxPublications)
	assert.Equal(t, "_data/publications.yml", cfg.YAMLOutputPath)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.Jitter)
	assert.Equal(t, types.DefaultBaseDelay, cfg.Retry.BaseDelay)
	assert.Equal(t, "socks5://10.0.0.1:1080", cfg.Proxy.URL)
	assert.True(t, cfg.Proxy.Enabled)
}

func TestExecuteInvalidBaseURL(t *testing.T) {
	cfg := types.DefaultFetchConfig()
	cfg.BaseURL = "not a url"
	cfg.OutputPath = filepath.Join(t.TempDir(), "publications.json")

	err := execute(context.Background(), cfg, nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, fetch.ErrAttemptsExhausted)
	assert.NoFileExists(t, cfg.OutputPath)
}

func TestExecuteEmptyProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/citations" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><div id="gsc_prf_in">Empty Author</div>
<table id="gsc_a_t"><tbody id="gsc_a_b"></tbody></table></body></html>`)
	}))
	defer srv.Close()

	cfg := types.DefaultFetchConfig()
	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 0
	cfg.Proxy.Enabled = false
	cfg.Retry.MaxAttempts = 1
	cfg.OutputPath = filepath.Join(t.TempDir(), "publications.json")

	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), cfg, nil, &out))

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
	assert.Equal(t, "Wrote 0 publications\n", out.String())
}

func TestExecuteMissingProfileExhausts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := types.DefaultFetchConfig()
	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 0
	cfg.Proxy.Enabled = false
	cfg.Retry.MaxAttempts = 1
	cfg.OutputPath = filepath.Join(t.TempDir(), "publications.json")

	err := execute(context.Background(), cfg, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, fetch.ErrAttemptsExhausted)
	assert.NoFileExists(t, cfg.OutputPath)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "pubfetch dev\n", out.String())
}
