package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		allowed   []string
		boolFlags []string
		want      []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.json", "-a", "localhost"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "flag with equals",
			args:    []string{"-config=alt.json", "-a", "localhost"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags and positionals ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag without value at end is kept",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next dash-starting token is not a value",
			args:    []string{"-c", "-notvalue"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:      "bool flag does not swallow a positional",
			args:      []string{"-mail", "ledger.json", "-a", ":12300"},
			allowed:   []string{"-mail", "-a"},
			boolFlags: []string{"-mail"},
			want:      []string{"-mail", "-a", ":12300"},
		},
		{
			name:      "bool flag with explicit value",
			args:      []string{"-mail=false"},
			allowed:   []string{"-mail"},
			boolFlags: []string{"-mail"},
			want:      []string{"-mail=false"},
		},
		{
			name:    "order preserved",
			args:    []string{"-a", "localhost:8080", "-c", "conf.json", "--other", "x"},
			allowed: []string{"-c", "-a"},
			want:    []string{"-a", "localhost:8080", "-c", "conf.json"},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed, tt.boolFlags))
		})
	}
}

func TestDropArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-a", ":1", "-mail"},
		DropArgs([]string{"-c", "conf.json", "-a", ":1", "-config=x.json", "-mail"}, ConfigFlags))
	assert.Equal(t, []string{"-a", "x"}, DropArgs([]string{"-a", "x", "-c"}, ConfigFlags))
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "", ConfigPath(nil))
	assert.Equal(t, "server.json", ConfigPath([]string{"-a", ":1", "-c", "server.json"}))
	assert.Equal(t, "other.json", ConfigPath([]string{"-config=other.json"}))
}
