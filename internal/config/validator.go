package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"drivebench/internal/benchmark"
)

// Validate checks the decoded configuration and returns a single error
// listing every problem. The error matches benchmark.ErrConfiguration.
func Validate(cfg *Config) error {
	var errors []string

	if cfg.OutputDir == "" {
		errors = append(errors, "output_dir must not be empty")
	}
	if cfg.TrialTimeout < 0 {
		errors = append(errors, fmt.Sprintf("trial_timeout must not be negative, got: %v", cfg.TrialTimeout))
	}

	if len(cfg.Benchmarks) == 0 {
		errors = append(errors, "at least one benchmark is required")
	}
	seen := make(map[string]bool)
	for _, b := range cfg.Benchmarks {
		if err := b.Validate(); err != nil {
			errors = append(errors, strings.TrimPrefix(err.Error(), benchmark.ErrConfiguration.Error()+": "))
		}
		if seen[b.Name] {
			errors = append(errors, fmt.Sprintf("benchmark %s is defined more than once", b.Name))
		}
		seen[b.Name] = true
	}

	if len(cfg.Libraries) == 0 {
		errors = append(errors, "at least one library is required")
	}
	seen = make(map[string]bool)
	for _, l := range cfg.Libraries {
		if l.Name == "" {
			errors = append(errors, "library name is required")
			continue
		}
		if seen[l.Name] {
			errors = append(errors, fmt.Sprintf("library %s is defined more than once", l.Name))
		}
		seen[l.Name] = true
		if !l.Kind.Valid() {
			errors = append(errors, fmt.Sprintf("library %s: kind must be %q or %q, got: %q", l.Name, benchmark.KindCompiled, benchmark.KindScripted, l.Kind))
		}
		if l.Command == "" {
			errors = append(errors, fmt.Sprintf("library %s: command is required", l.Name))
		}
		if l.Source == "" {
			errors = append(errors, fmt.Sprintf("library %s: source is required", l.Name))
		}
		if l.Build != "" && l.Kind == benchmark.KindScripted {
			errors = append(errors, fmt.Sprintf("library %s: build is only supported for compiled libraries", l.Name))
		}
	}

	if cfg.Report.Baseline != "" && !seen[cfg.Report.Baseline] {
		errors = append(errors, fmt.Sprintf("report.baseline %s is not a configured library", cfg.Report.Baseline))
	}

	if d := cfg.Notifications.Discord; d.Enabled {
		if err := validateURL(d.WebhookURL); err != nil {
			errors = append(errors, fmt.Sprintf("notifications.discord.webhook_url %v", err))
		}
	}
	if s := cfg.Notifications.Slack; s.Enabled {
		if err := validateURL(s.WebhookURL); err != nil {
			errors = append(errors, fmt.Sprintf("notifications.slack.webhook_url %v", err))
		}
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		errors = append(errors, "history.path must not be empty when history is enabled")
	}

	if cfg.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			errors = append(errors, fmt.Sprintf("metrics.addr is invalid: %v", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%w: validation failed:\n  %s", benchmark.ErrConfiguration, strings.Join(errors, "\n  "))
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is invalid: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL, got: %q", raw)
	}
	return nil
}
