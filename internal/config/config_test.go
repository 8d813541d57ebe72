package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-picarx/pkg/linefollow"
	"github.com/teslashibe/go-picarx/pkg/pipeline"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LOG_LEVEL", "PICARX_BACKEND", "PICARX_SERIAL_PORT", "PICARX_WEB_PORT", "ROBOT_IP", "PICARX_DRIVE_POWER"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "picarx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	pc, err := cfg.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, pipeline.DefaultConfig(), pc)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ScalarReferenceIsBroadcast(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
backend: serial
pipeline:
  sensor_hz: 20
  estimator_hz: 10
  steering_hz: 4
  reference: 1000
  polarity: 0
  sensitivity: 0.7
  scale: 0.8
  max_turn_angle: 25
  drive_power: 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSerial, cfg.Backend)

	pc, err := cfg.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, linefollow.Reference{1000, 1000, 1000}, pc.Reference)
	assert.Equal(t, linefollow.DarkLine, pc.Polarity)
	require.NotNil(t, pc.Sensitivity)
	assert.Equal(t, 0.7, *pc.Sensitivity)
	assert.Equal(t, 20.0, pc.SensorHz)
	assert.Equal(t, 4.0, pc.SteeringHz)
	assert.Equal(t, 25.0, pc.MaxTurnAngle)
	assert.Equal(t, 50, pc.DrivePower)
	assert.Equal(t, linefollow.DefaultChannels, pc.Channels, "unset fields keep defaults")
}

func TestLoad_ListReference(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "pipeline:\n  reference: [10, 20, 30]\n  channels: [2, 1, 0]\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	pc, err := cfg.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, linefollow.Reference{10, 20, 30}, pc.Reference)
	assert.Equal(t, [3]int{2, 1, 0}, pc.Channels)
}

func TestLoad_InvalidReference(t *testing.T) {
	clearEnv(t)
	for _, body := range []string{
		"pipeline:\n  reference: [10, 20]\n",
		"pipeline:\n  reference: [1, 2, 3, 4]\n",
		"pipeline:\n  reference: {left: 1}\n",
		"pipeline:\n  reference: bright\n",
	} {
		_, err := Load(writeFile(t, body))
		assert.ErrorIs(t, err, ErrInvalid, body)
	}

	_, err := Load(writeFile(t, "pipeline:\n  reference: [10, 20]\n"))
	assert.ErrorIs(t, err, linefollow.ErrInvalidReference)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "can" }},
		{"http without url", func(c *Config) { c.Backend = BackendHTTP }},
		{"zero frequency", func(c *Config) { c.Pipeline.EstimatorHz = 0 }},
		{"bad polarity", func(c *Config) { c.Pipeline.Polarity = 2 }},
		{"zero turn angle", func(c *Config) { c.Pipeline.MaxTurnAngle = 0 }},
		{"zero scale", func(c *Config) { c.Pipeline.Scale = 0 }},
		{"duplicate channels", func(c *Config) { c.Pipeline.Channels = [3]int{0, 0, 2} }},
		{"drive power", func(c *Config) { c.Pipeline.DrivePower = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PICARX_BACKEND", "http")
	t.Setenv("ROBOT_IP", "192.168.1.20")
	t.Setenv("PICARX_WEB_PORT", "9090")
	t.Setenv("PICARX_DRIVE_POWER", "40")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendHTTP, cfg.Backend)
	assert.Equal(t, "http://192.168.1.20:8000", cfg.DaemonURL)
	assert.Equal(t, "9090", cfg.WebPort)
	assert.Equal(t, 40, cfg.Pipeline.DrivePower)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyEnv_BadDrivePower(t *testing.T) {
	clearEnv(t)
	t.Setenv("PICARX_DRIVE_POWER", "fast")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate_NegativeScaleAllowed(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Scale = -1.5

	require.NoError(t, cfg.Validate())
	pc, err := cfg.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, -1.5, pc.Scale)
}

func TestRobotIP(t *testing.T) {
	t.Setenv("ROBOT_IP", "")
	assert.Equal(t, "127.0.0.1", RobotIP("127.0.0.1"))
	t.Setenv("ROBOT_IP", "10.0.0.7")
	assert.Equal(t, "10.0.0.7", RobotIP("127.0.0.1"))
	assert.Equal(t, "http://10.0.0.7:8000", DaemonURL(RobotIP("")))
}
