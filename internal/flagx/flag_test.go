package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "separate value",
			args:         []string{"-c", "conf.json", "-a", ":8080"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "equals form",
			args:         []string{"-config=alt.json", "-a", ":8080"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-config=alt.json"},
		},
		{
			name:         "order preserved",
			args:         []string{"-config=first.json", "-c", "second.json", "-x", "1"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-config=first.json", "-c", "second.json"},
		},
		{
			name:         "unknown flags dropped",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "trailing flag without value",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next flag is not a value",
			args:         []string{"-c", "-d", "dsn"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "empty input",
			args:         nil,
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONConfigPath(t *testing.T) {
	assert.Equal(t, "a.json", JSONConfigPath([]string{"-a", ":80", "-c", "a.json"}))
	assert.Equal(t, "b.json", JSONConfigPath([]string{"-config=b.json"}))
	assert.Equal(t, "second.json", JSONConfigPath([]string{"-c", "first.json", "-config", "second.json"}))
	assert.Equal(t, "", JSONConfigPath([]string{"-a", ":80"}))
}

func TestEnvFilePath(t *testing.T) {
	assert.Equal(t, ".env.local", EnvFilePath([]string{"-env-file", ".env.local", "-c", "x.json"}))
	assert.Equal(t, "", EnvFilePath([]string{"-c", "x.json"}))
}
