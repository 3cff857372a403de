package daemon

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type (
	AppConfig = appConfig
)

// Config returns the configuration of the app.
func (a *App) Config() AppConfig {
	return a.config
}

// NewForTests creates a new App instance for testing purposes.
// The schedule file is empty unless conf sets one.
func NewForTests(t *testing.T, conf *AppConfig, args ...string) *App {
	t.Helper()

	if conf == nil {
		conf = &AppConfig{}
	}
	if conf.ScheduleConfig == "" {
		conf.ScheduleConfig = filepath.Join(t.TempDir(), "schedule.yaml")
	}
	if conf.CompanyConfig == "" {
		conf.CompanyConfig = filepath.Join(t.TempDir(), "company.toml")
	}

	p := GenerateTestConfig(t, conf)
	argsWithConf := append([]string{"--config", p}, args...)

	a, err := New()
	require.NoError(t, err, "Setup: failed to create app")
	a.cmd.SetArgs(argsWithConf)
	return a
}

// GenerateTestConfig generates a temporary config file for testing.
func GenerateTestConfig(t *testing.T, origConf *AppConfig) string {
	t.Helper()

	var conf appConfig

	if origConf != nil {
		conf = *origConf
	}

	if conf.Verbosity == 0 {
		conf.Verbosity = 2
	}

	d, err := yaml.Marshal(conf)
	require.NoError(t, err, "Setup: failed to marshal config for tests")

	confPath := filepath.Join(t.TempDir(), "testconfig.yaml")
	require.NoError(t, os.WriteFile(confPath, d, 0600), "Setup: failed to write config for tests")

	return confPath
}

// SetArgs set some arguments on root command for tests.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetOut redirects the output of the commands for tests.
func (a *App) SetOut(w io.Writer) {
	a.cmd.SetOut(w)
}

// SetSilenceUsage set the SilenceUsage flag on root command for tests.
func (a *App) SetSilenceUsage(silence bool) {
	a.cmd.SilenceUsage = silence
}
