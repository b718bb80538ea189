package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Cleanup(ResetConfig)
	withWorkingDir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultCacheTTLMinutes, cfg.CacheTTLMinutes)
	assert.Empty(t, cfg.EnvironmentURL)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	content := `environment_url: https://org.example.com
access_token: file-token
output: json
cache_ttl_minutes: 60
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fetchsql.yaml"), []byte(content), 0o644))
	withWorkingDir(t, dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://org.example.com", cfg.EnvironmentURL)
	assert.Equal(t, "file-token", cfg.AccessToken)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, 60, cfg.CacheTTLMinutes)
	assert.Equal(t, "fetchsql.yaml", GetConfigFileUsed())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fetchsql.yaml"),
		[]byte("environment_url: https://file.example.com\n"), 0o644))
	withWorkingDir(t, dir)
	t.Setenv("FETCHSQL_ENVIRONMENT_URL", "https://env.example.com")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.EnvironmentURL)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Cleanup(ResetConfig)
	withWorkingDir(t, t.TempDir())
	t.Setenv("FETCHSQL_ENVIRONMENT_URL", "https://env.example.com")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("url", "", "")
	flags.String("token", "", "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--url", "https://flag.example.com", "--verbose"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.EnvironmentURL)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_UnchangedFlagsAreIgnored(t *testing.T) {
	t.Cleanup(ResetConfig)
	withWorkingDir(t, t.TempDir())
	t.Setenv("FETCHSQL_ENVIRONMENT_URL", "https://env.example.com")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("url", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.EnvironmentURL,
		"a flag left at its default must not mask lower-priority sources")
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	t.Cleanup(ResetConfig)
	withWorkingDir(t, t.TempDir())

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nosuch.yaml"), nil)
	assert.Error(t, err, "an explicitly named config file must exist")
}

func TestConfig_CacheTTL(t *testing.T) {
	assert.Equal(t, 15*time.Minute, (&Config{}).CacheTTL())
	assert.Equal(t, time.Hour, (&Config{CacheTTLMinutes: 60}).CacheTTL())
}

func TestConfig_RequireEnvironment(t *testing.T) {
	assert.Error(t, (&Config{}).RequireEnvironment())
	assert.Error(t, (&Config{EnvironmentURL: "org.example.com"}).RequireEnvironment())
	assert.NoError(t, (&Config{EnvironmentURL: "https://org.example.com"}).RequireEnvironment())
}

// withWorkingDir switches the process working directory for the test.
func withWorkingDir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
