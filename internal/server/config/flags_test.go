package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expected    *Config
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-d", "postgres://db/folio", "-s", "secret",
				"-t", "60", "-sb", "redis", "-r", "redis:6379", "-cb", "s3",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			},
			expected: &Config{
				HTTPAddr:                "127.0.0.1:9090",
				DatabaseDSN:             "postgres://db/folio",
				SecretKey:               "secret",
				SessionValidityDuration: time.Hour,
				SessionBackend:          "redis",
				RedisAddr:               "redis:6379",
				ContentBackend:          "s3",
				S3RootUser:              "user",
				S3RootPassword:          "password",
				S3Bucket:                "bucket",
				S3Region:                "us-west-1",
				S3BaseEndpoint:          "http://endpoint",
			},
		},
		{
			name: "foreign flags are ignored",
			args: []string{"-c", "conf.json", "-env-file", ".env", "-a", ":1"},
			expected: &Config{
				HTTPAddr:                ":1",
				SessionValidityDuration: 90 * time.Second,
			},
		},
		{
			name:        "bad int panics",
			args:        []string{"-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{SessionValidityDuration: 90 * time.Second}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config, tt.args) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
