package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", s.Host)
	require.Equal(t, 5000, s.Port)
	require.Equal(t, "info", s.LogLevel)
	require.Equal(t, time.Second, s.SampleInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CRUNCH_LOG_LEVEL", "debug")
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, 8081, s.Port)
	require.Equal(t, "debug", s.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "crunch.yaml", "port: 9000\nsample_interval: 2s\nlog_format: json\n")
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, ReadFile(v, path))
	s, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, 9000, s.Port)
	require.Equal(t, 2*time.Second, s.SampleInterval)
	require.Equal(t, "json", s.LogFormat)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("port", 70000)
	_, err := Load(v)
	require.Error(t, err)

	v = viper.New()
	SetDefaults(v)
	v.Set("log_format", "xml")
	_, err = Load(v)
	require.Error(t, err)
}

func TestLoadProfile(t *testing.T) {
	path := writeFile(t, "spike.toml", "duration = 120\nintensity = 90\ncores = 2\n")
	p, err := LoadProfile(path)
	require.NoError(t, err)
	require.Equal(t, "spike", p.Name)
	require.Equal(t, 120, p.Duration)
	require.Equal(t, 90, p.Intensity)
	require.Equal(t, 2, p.Cores)
	require.True(t, p.CoresSet)
}

func TestLoadProfileDefaultsCores(t *testing.T) {
	path := writeFile(t, "steady.toml", "name = \"steady\"\nduration = 60\nintensity = 50\n")
	p, err := LoadProfile(path)
	require.NoError(t, err)
	require.Equal(t, "steady", p.Name)
	require.False(t, p.CoresSet)
}

func TestLoadProfileErrors(t *testing.T) {
	_, err := LoadProfile("")
	require.Error(t, err)

	_, err = LoadProfile(writeFile(t, "p.yaml", "duration: 1"))
	require.ErrorContains(t, err, ".toml")

	_, err = LoadProfile(writeFile(t, "p.toml", "duration = 10\nintensity = 10\nthreads = 4\n"))
	require.ErrorContains(t, err, "unknown keys")

	_, err = LoadProfile(writeFile(t, "q.toml", "duration = 10\n"))
	require.ErrorContains(t, err, "intensity")
}
