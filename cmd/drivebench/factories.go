package main

import (
	"context"

	"drivebench/internal/benchmark"
	"drivebench/internal/config"
	"drivebench/internal/git"
	"drivebench/internal/history"
	"drivebench/internal/hostinfo"
	"drivebench/internal/notify"
)

// Collaborators of the commands, replaceable in tests.
var (
	newRunnerFunc = func(cfg *config.Config) benchmark.Runner {
		r := benchmark.NewShellRunner(cfg.Shell, cfg.Workdir)
		r.Timeout = cfg.TrialTimeout
		return r
	}
	newCacheFunc = func(dir string) (benchmark.Cache, error) {
		return benchmark.NewFileCache(dir)
	}
	newHistoryStoreFunc = func(path string) (history.Store, error) {
		return history.NewSQLiteStore(path)
	}
	newGitClientFunc = func() git.IClient {
		return git.NewClient()
	}
	collectHostFunc = func(ctx context.Context) (hostinfo.Info, error) {
		return hostinfo.Collect(ctx)
	}
	newNotifierFunc = newNotifier
)

// newNotifier returns the enabled notification channels, or nil when none is.
func newNotifier(cfg *config.Config) notify.Notifier {
	var channels notify.Multi
	if d := cfg.Notifications.Discord; d.Enabled {
		channels = append(channels, notify.NewDiscordNotifier(d.WebhookURL))
	}
	if s := cfg.Notifications.Slack; s.Enabled {
		channels = append(channels, notify.NewSlackNotifier(s.WebhookURL, s.Channel))
	}
	if len(channels) == 0 {
		return nil
	}
	return channels
}
