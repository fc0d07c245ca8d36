package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kmeansviz.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":8080"
session_ttl = "5m"

[clustering]
strict = true
n_init = 3
empty_cluster = "fail"

[log]
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Server.SessionTTL.Duration)
	assert.True(t, cfg.Clustering.Strict)
	assert.Equal(t, 3, cfg.Clustering.NInit)
	assert.Equal(t, "fail", cfg.Clustering.EmptyCluster)
	assert.Equal(t, 100, cfg.Data.DefaultPoints, "unset keys keep defaults")
	assert.Len(t, cfg.Clustering.EngineOptions(), 5)
}

func TestLoadRejects(t *testing.T) {
	for name, body := range map[string]string{
		"UnknownKey":    "[server]\nport = 1\n",
		"BadPolicy":     "[clustering]\nseeding = \"maybe\"\n",
		"BadLevel":      "[log]\nlevel = \"loud\"\n",
		"BadLimits":     "[data]\ndefault_points = 10\nmax_points = 5\n",
		"BadDuration":   "[server]\nread_timeout = \"soon\"\n",
		"NegativeTol":   "[clustering]\ntolerance = -1.0\n",
		"MalformedTOML": "[server\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
