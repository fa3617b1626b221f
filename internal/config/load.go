package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"drivebench/internal/benchmark"
)

// EnvPrefix prefixes every environment override, e.g. DRIVEBENCH_REPEAT.
const EnvPrefix = "DRIVEBENCH"

// Config is the decoded run definition.
type Config struct {
	OutputDir          string        `mapstructure:"output_dir"`
	Workdir            string        `mapstructure:"workdir"`
	Shell              string        `mapstructure:"shell"`
	Repeat             int           `mapstructure:"repeat"`
	Factor             float64       `mapstructure:"factor"`
	Steps              int           `mapstructure:"steps"`
	TrialTimeout       time.Duration `mapstructure:"trial_timeout"`
	OrchestratorSource string        `mapstructure:"orchestrator_source"`
	Verbose            bool          `mapstructure:"verbose"`
	LogFile            string        `mapstructure:"log_file"`

	Benchmarks []benchmark.Spec    `mapstructure:"benchmarks"`
	Libraries  []benchmark.Library `mapstructure:"libraries"`

	Report        ReportConfig        `mapstructure:"report"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	History       HistoryConfig       `mapstructure:"history"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// ReportConfig controls the files produced after the run.
type ReportConfig struct {
	Chart   string `mapstructure:"chart"`
	Archive string `mapstructure:"archive"`
	// Baseline is the library other libraries are compared against.
	Baseline string `mapstructure:"baseline"`
}

type NotificationsConfig struct {
	Discord DiscordConfig `mapstructure:"discord"`
	Slack   SlackConfig   `mapstructure:"slack"`
}

type DiscordConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	// CommitURL is prefixed to the commit hash in the message.
	CommitURL string `mapstructure:"commit_url"`
}

type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
	Addr     string `mapstructure:"addr"`
}

// Load reads the configuration file and environment into viper.
// A missing file is not an error when cfgFile is empty; the plan then has
// to come from the environment or the caller.
func Load(cfgFile string) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("drivebench")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("%w: failed to read config: %v", benchmark.ErrConfiguration, err)
	}
	return nil
}

// SetDefaults registers the default values of every key.
func SetDefaults() {
	viper.SetDefault("output_dir", "out")
	viper.SetDefault("workdir", "")
	viper.SetDefault("shell", benchmark.DefaultShell)
	viper.SetDefault("repeat", 3)
	viper.SetDefault("factor", 4.0)
	viper.SetDefault("steps", 4)
	viper.SetDefault("trial_timeout", 0)
	viper.SetDefault("verbose", false)

	viper.SetDefault("report.chart", "graph.html")
	viper.SetDefault("report.archive", "results.tar.gz")
	viper.SetDefault("report.baseline", "")

	// Standard webhook variables used by CI runners.
	discordURL := os.Getenv("DISCORD_BENCHMARKS_WEBHOOK")
	viper.SetDefault("notifications.discord.enabled", discordURL != "")
	viper.SetDefault("notifications.discord.webhook_url", discordURL)
	viper.SetDefault("notifications.discord.commit_url", "")

	slackURL := os.Getenv("SLACK_WEBHOOK_URL")
	viper.SetDefault("notifications.slack.enabled", slackURL != "")
	viper.SetDefault("notifications.slack.webhook_url", slackURL)
	viper.SetDefault("notifications.slack.channel", "")

	viper.SetDefault("history.enabled", false)
	viper.SetDefault("history.path", ".drivebench/history.db")

	viper.SetDefault("metrics.textfile", "")
	viper.SetDefault("metrics.addr", "")
}

// Decode unmarshals the loaded configuration and fills per-benchmark
// parameters from the global defaults.
func Decode() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config: %v", benchmark.ErrConfiguration, err)
	}

	if cfg.OrchestratorSource == "" {
		cfg.OrchestratorSource = viper.ConfigFileUsed()
	}

	for i := range cfg.Benchmarks {
		b := &cfg.Benchmarks[i]
		if b.Factor == 0 {
			b.Factor = cfg.Factor
		}
		if b.Steps == 0 {
			b.Steps = cfg.Steps
		}
		if b.Repeat == 0 {
			b.Repeat = cfg.Repeat
		}
	}

	return &cfg, nil
}

// Plan returns the benchmark matrix described by the configuration.
func (c *Config) Plan() benchmark.Plan {
	return benchmark.Plan{
		Benchmarks:         c.Benchmarks,
		Libraries:          c.Libraries,
		OrchestratorSource: c.OrchestratorSource,
	}
}

// Library returns the library with the given name.
func (c *Config) Library(name string) (benchmark.Library, bool) {
	for _, l := range c.Libraries {
		if l.Name == name {
			return l, true
		}
	}
	return benchmark.Library{}, false
}

// Benchmark returns the benchmark with the given name.
func (c *Config) Benchmark(name string) (benchmark.Spec, bool) {
	for _, b := range c.Benchmarks {
		if b.Name == name {
			return b, true
		}
	}
	return benchmark.Spec{}, false
}
