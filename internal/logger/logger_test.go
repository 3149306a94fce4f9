// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInitWriter(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
		warn  bool
	}{
		{"debug", "debug", zerolog.DebugLevel, false},
		{"upper case", "WARN", zerolog.WarnLevel, false},
		{"empty defaults to info", "", zerolog.InfoLevel, false},
		{"unknown defaults to info", "chatty", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			got := InitWriter(&buf, tt.level)
			assert.Equal(t, tt.want, got)
			if tt.warn {
				assert.Contains(t, buf.String(), "unknown log level")
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info")

	l := WithComponent("Fetcher")
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), "component=Fetcher")
	assert.Contains(t, buf.String(), "hello")
}
