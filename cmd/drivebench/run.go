package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"drivebench/internal/benchmark"
	"drivebench/internal/config"
	"drivebench/internal/git"
	"drivebench/internal/history"
	"drivebench/internal/notify"
	"drivebench/internal/report"
	"drivebench/internal/telemetry"
)

type runOptions struct {
	benchmarks []string
	libraries  []string
	noCache    bool
	noNotify   bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark matrix and publish the results",
		Long: `Runs every configured benchmark against every configured library, reusing
cached series whose fingerprint is unchanged. Afterwards it prints a summary,
renders the chart, packages all artifacts into an archive, records the run in
the history database and posts the results to the configured webhooks.

The command exits non-zero when any (benchmark, library) pair failed; the
remaining pairs are still reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runBenchmarks(cmd, cfg, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.benchmarks, "benchmark", "b", nil, "Only run these benchmarks")
	cmd.Flags().StringSliceVarP(&opts.libraries, "library", "l", nil, "Only run these libraries")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Ignore cached series and re-run every pair")
	cmd.Flags().BoolVar(&opts.noNotify, "no-notify", false, "Do not post results to webhooks")
	return cmd
}

func runBenchmarks(cmd *cobra.Command, cfg *config.Config, opts *runOptions) error {
	out := cmd.OutOrStdout()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan, err := selectPlan(cfg, opts)
	if err != nil {
		return err
	}

	cache, err := newCacheFunc(cfg.OutputDir)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := telemetry.StartMetricsServer(ctx, cfg.Metrics.Addr, metrics); err != nil {
				slog.Warn("Metrics server stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	orch := benchmark.NewOrchestrator(newRunnerFunc(cfg), cache)
	orch.Recorder = metrics
	orch.Logger = slog.Default()

	printTitle(out, "Running %d benchmarks against %d libraries", len(plan.Benchmarks), len(plan.Libraries))
	started := time.Now()
	results, runErr := orch.Run(ctx, plan)
	printMuted(out, "Finished in %s", time.Since(started).Round(time.Millisecond))

	if results.Len() == 0 {
		if runErr != nil {
			return fmt.Errorf("no benchmark produced results: %w", runErr)
		}
		printWarning(out, "No benchmark produced results")
		return nil
	}

	if err := report.WriteSummary(out, results, cfg.Report.Baseline); err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}

	// Publishing must not be cut short by the signal that ended the run.
	publishCtx := context.WithoutCancel(ctx)
	files := publish(out, cfg, results)

	if cfg.History.Enabled {
		recordHistory(publishCtx, out, cfg, results, started)
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			printWarning(out, "Failed to write metrics: %v", err)
		}
	}

	if !opts.noNotify {
		if n := newNotifierFunc(cfg); n != nil {
			notifyResults(publishCtx, out, cfg, n, files)
		}
	}

	if runErr != nil {
		return fmt.Errorf("benchmark run incomplete: %w", runErr)
	}
	return nil
}

// selectPlan applies the command-line filters to the configured plan.
func selectPlan(cfg *config.Config, opts *runOptions) (benchmark.Plan, error) {
	plan := cfg.Plan()

	if len(opts.benchmarks) > 0 {
		plan.Benchmarks = nil
		for _, name := range opts.benchmarks {
			b, ok := cfg.Benchmark(name)
			if !ok {
				return plan, fmt.Errorf("%w: unknown benchmark %q", benchmark.ErrConfiguration, name)
			}
			plan.Benchmarks = append(plan.Benchmarks, b)
		}
	}

	if len(opts.libraries) > 0 {
		plan.Libraries = nil
		for _, name := range opts.libraries {
			l, ok := cfg.Library(name)
			if !ok {
				return plan, fmt.Errorf("%w: unknown library %q", benchmark.ErrConfiguration, name)
			}
			plan.Libraries = append(plan.Libraries, l)
		}
	}

	if opts.noCache {
		libs := make([]benchmark.Library, len(plan.Libraries))
		for i, l := range plan.Libraries {
			l.Cache = false
			libs[i] = l
		}
		plan.Libraries = libs
	}

	return plan, nil
}

// reportFiles are the files produced after a run.
type reportFiles struct {
	chart   string
	archive string
}

// publish renders the chart and packages every artifact. Failures are
// reported but do not fail the run.
func publish(out io.Writer, cfg *config.Config, results *benchmark.ResultSet) reportFiles {
	var files reportFiles
	artifacts := results.Artifacts()

	if cfg.Report.Chart != "" {
		path := filepath.Join(cfg.OutputDir, cfg.Report.Chart)
		if err := report.WriteChart(path, "drivebench", results); err != nil {
			printWarning(out, "Failed to render chart: %v", err)
		} else {
			files.chart = path
			artifacts = append(artifacts, path)
			printSuccess(out, "Chart written to %s", path)
		}
	}

	if cfg.Report.Archive != "" && len(artifacts) > 0 {
		path := filepath.Join(cfg.OutputDir, cfg.Report.Archive)
		if err := report.WriteArchive(path, artifacts); err != nil {
			printWarning(out, "Failed to write archive: %v", err)
		} else {
			files.archive = path
			printSuccess(out, "Archived %d files to %s", len(artifacts), path)
		}
	}

	return files
}

func revision(ctx context.Context, cfg *config.Config) git.Revision {
	dir := cfg.Workdir
	if dir == "" {
		dir = "."
	}
	rev, err := git.Describe(ctx, newGitClientFunc(), dir)
	if err != nil {
		slog.Warn("Failed to read git revision", "dir", dir, "error", err)
	}
	return rev
}

func recordHistory(ctx context.Context, out io.Writer, cfg *config.Config, results *benchmark.ResultSet, started time.Time) {
	store, err := newHistoryStoreFunc(cfg.History.Path)
	if err != nil {
		printWarning(out, "Failed to open history: %v", err)
		return
	}
	defer store.Close()

	host, err := collectHostFunc(ctx)
	if err != nil {
		slog.Debug("Incomplete host information", "error", err)
	}
	rev := revision(ctx, cfg)

	id, err := store.RecordRun(ctx, history.Run{
		StartedAt: started,
		Branch:    rev.Branch,
		Commit:    rev.Commit,
		Dirty:     rev.Dirty,
		Host:      host.String(),
	}, results)
	if err != nil {
		printWarning(out, "Failed to record history: %v", err)
		return
	}
	printSuccess(out, "Recorded run #%d in %s", id, cfg.History.Path)
}

// notifyResults posts the branch and commit with the chart, then the
// archive. Runs from a checkout with local changes are marked.
func notifyResults(ctx context.Context, out io.Writer, cfg *config.Config, n notify.Notifier, files reportFiles) {
	rev := revision(ctx, cfg)
	message := fmt.Sprintf("Branch: %s commit: %s%s", rev.Branch, cfg.Notifications.Discord.CommitURL, rev.Commit)
	if rev.Dirty {
		message += " (dirty)"
	}

	var attachments []string
	if files.chart != "" {
		attachments = append(attachments, files.chart)
	}
	if err := n.Upload(ctx, message, attachments...); err != nil {
		printWarning(out, "Failed to post results: %v", err)
		return
	}

	if files.archive != "" {
		if err := n.Upload(ctx, "Results archive", files.archive); err != nil {
			printWarning(out, "Failed to post archive: %v", err)
			return
		}
	}
	printSuccess(out, "Posted results")
}
