package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-u", "/srv/up", "-l", "1000", "-y", "image/png,application/pdf",
			"-f", "0.25", "-x", "9", "-s", "redis", "-d", "db", "-r", "redis:6379", "-t", "3", "-v", "debug",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP: "127.0.0.1:9090",
				UploadDir:        "/srv/up",
				MaxFileSize:      1000,
				AllowedFileTypes: []string{"image/png", "application/pdf"},
				FailureRate:      0.25,
				FailureSeed:      9,
				Store:            "redis",
				DatabaseDSN:      "db",
				RedisAddr:        "redis:6379",
				ShutdownTimeout:  3 * time.Second,
				LogLevel:         "debug",
			}},
		{name: "config flag is ignored here", args: []string{"cmd", "-c", "x.json", "-u", "up"}, expectPanic: false,
			expected: &Config{UploadDir: "up"}},
		{name: "bad size", args: []string{"cmd", "-l", "big"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
