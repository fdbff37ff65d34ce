package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/incident-demo/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, model.RoleAdmin, cfg.Role())
	assert.Equal(t, 1.0, cfg.PlaybackSpeed)
	assert.False(t, cfg.AutoEnable)
	assert.Empty(t, cfg.AutoReset)
	assert.Equal(t, "incident-demo", cfg.Tracing.ServiceName)
	assert.False(t, cfg.TracingConfig().Enabled)
}

func TestLoadReadsPrefixedEnvironment(t *testing.T) {
	t.Setenv("DEMO_HTTP_ADDR", ":9999")
	t.Setenv("DEMO_DEFAULT_ROLE", "dispatcher")
	t.Setenv("DEMO_PLAYBACK_SPEED", "2.5")
	t.Setenv("DEMO_TRACING_ENABLED", "true")
	t.Setenv("DEMO_TRACING_EXPORTER", "otlp")
	t.Setenv("DEMO_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, model.RoleDispatcher, cfg.Role())
	assert.Equal(t, 2.5, cfg.PlaybackSpeed)
	assert.Equal(t, "debug", cfg.Logging().Level)

	tc := cfg.TracingConfig()
	assert.True(t, tc.Enabled)
	assert.Equal(t, "otlp", tc.Exporter)
	assert.Equal(t, "collector:4317", tc.Endpoint)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grpc_addr: ":6000"
auto_enable: true
auto_reset: "0 3 * * *"
log:
  format: json
tracing:
  sample_ratio: 0.25
`), 0o600))

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.GRPCAddr)
	assert.True(t, cfg.AutoEnable)
	assert.Equal(t, "0 3 * * *", cfg.AutoReset)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DEMO_METRICS_ADDR=:7070\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DEMO_METRICS_ADDR") })

	cfg, err := Load(Options{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.MetricsAddr)
}

func TestLoadExplicitEnvFileMustExist(t *testing.T) {
	_, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.Error(t, err)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DEMO_DEFAULT_ROLE", "citizen")
	t.Setenv("DEMO_HTTP_ADDR", ":1111")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--role", "responder", "--speed", "4", "--auto-enable"}))

	cfg, err := Load(Options{Flags: fs})
	require.NoError(t, err)

	assert.Equal(t, model.RoleResponder, cfg.Role())
	assert.Equal(t, 4.0, cfg.PlaybackSpeed)
	assert.True(t, cfg.AutoEnable)
	// Unset flags leave lower-precedence sources alone.
	assert.Equal(t, ":1111", cfg.HTTPAddr)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{
		DefaultRole:   "mayor",
		PlaybackSpeed: 0,
		AutoReset:     "every tuesday",
		Tracing:       TracingConfig{Exporter: "zipkin", SampleRatio: 2},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	for _, field := range []string{"default_role", "playback_speed", "auto_reset", "tracing.exporter", "tracing.sample_ratio"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("DEMO_DEFAULT_ROLE", "mayor")

	_, err := Load(Options{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
