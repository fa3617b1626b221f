package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivebench/internal/benchmark"
)

func validConfig() *Config {
	return &Config{
		OutputDir: "out",
		Benchmarks: []benchmark.Spec{
			{Name: "insert", MinSize: 6.25, Factor: 4, Steps: 4, Repeat: 3},
		},
		Libraries: []benchmark.Library{
			{Name: "rust-driver", Kind: benchmark.KindCompiled, Cache: true, Command: "cargo run", Build: "cargo build", Source: "insert.rs"},
			{Name: "cassandra-driver", Kind: benchmark.KindScripted, Cache: true, Command: "node", Source: "insert.js"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "Valid Configuration",
			mutate: func(c *Config) {},
		},
		{
			name:    "Empty Output Dir",
			mutate:  func(c *Config) { c.OutputDir = "" },
			wantErr: "output_dir must not be empty",
		},
		{
			name:    "Negative Timeout",
			mutate:  func(c *Config) { c.TrialTimeout = -1 },
			wantErr: "trial_timeout must not be negative",
		},
		{
			name:    "Invalid Benchmark",
			mutate:  func(c *Config) { c.Benchmarks[0].Factor = 1 },
			wantErr: "benchmark insert: factor must be greater than 1",
		},
		{
			name: "Duplicate Benchmark",
			mutate: func(c *Config) {
				c.Benchmarks = append(c.Benchmarks, c.Benchmarks[0])
			},
			wantErr: "benchmark insert is defined more than once",
		},
		{
			name:    "Unknown Kind",
			mutate:  func(c *Config) { c.Libraries[1].Kind = "interpreted" },
			wantErr: `library cassandra-driver: kind must be "compiled" or "scripted"`,
		},
		{
			name:    "Missing Command",
			mutate:  func(c *Config) { c.Libraries[0].Command = "" },
			wantErr: "library rust-driver: command is required",
		},
		{
			name:    "Missing Source",
			mutate:  func(c *Config) { c.Libraries[1].Source = "" },
			wantErr: "library cassandra-driver: source is required",
		},
		{
			name:    "Build On Scripted Library",
			mutate:  func(c *Config) { c.Libraries[1].Build = "npm run build" },
			wantErr: "build is only supported for compiled libraries",
		},
		{
			name:    "Unknown Baseline",
			mutate:  func(c *Config) { c.Report.Baseline = "java-driver" },
			wantErr: "report.baseline java-driver is not a configured library",
		},
		{
			name: "Discord Without URL",
			mutate: func(c *Config) {
				c.Notifications.Discord.Enabled = true
			},
			wantErr: "notifications.discord.webhook_url is required",
		},
		{
			name: "Slack With Bad URL",
			mutate: func(c *Config) {
				c.Notifications.Slack.Enabled = true
				c.Notifications.Slack.WebhookURL = "ftp://hooks"
			},
			wantErr: "must be an http(s) URL",
		},
		{
			name:    "Invalid Metrics Address",
			mutate:  func(c *Config) { c.Metrics.Addr = "9090" },
			wantErr: "metrics.addr is invalid",
		},
		{
			name: "History Without Path",
			mutate: func(c *Config) {
				c.History.Enabled = true
			},
			wantErr: "history.path must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, benchmark.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.OutputDir = ""
	cfg.Libraries[0].Command = ""
	cfg.Benchmarks[0].Repeat = 0

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_dir must not be empty")
	assert.Contains(t, err.Error(), "command is required")
	assert.Contains(t, err.Error(), "repeat must be at least 1")
}
