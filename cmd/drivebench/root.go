package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"drivebench/internal/benchmark"
	"drivebench/internal/config"
	"drivebench/internal/telemetry"
)

var exit = os.Exit

// Exit codes of the CLI.
const (
	exitFailure     = 1
	exitConfigError = 2
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "drivebench",
		Short: "Benchmark database driver implementations against each other",
		Long: `drivebench runs the same workloads against several client libraries over a
geometric range of input sizes, measures wall time and peak memory with GNU
time, caches every series under a content fingerprint and reports the results.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./drivebench.yaml)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")

	cmd.AddCommand(
		newRunCmd(),
		newStepsCmd(),
		newFingerprintCmd(),
		newSummaryCmd(),
		newHistoryCmd(),
	)
	return cmd
}

// initConfig reads the plan file and environment, then installs the logger.
func initConfig(cmd *cobra.Command, cfgFile string) error {
	if err := config.Load(cfgFile); err != nil {
		return err
	}

	flags := cmd.Root().PersistentFlags()
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag("log_file", flags.Lookup("log-file"))

	telemetry.InitLogger(viper.GetBool("verbose"), viper.GetString("log_file"))
	return nil
}

// loadConfig decodes and validates the plan loaded by initConfig.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Decode()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	// Wrap Execute in panic recovery for graceful shutdown
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n=== CRITICAL ERROR: Command Execution Panic ===\n")
			fmt.Fprintf(os.Stderr, "Error: %v\n", r)
			exit(exitFailure)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, benchmark.ErrConfiguration) {
		return exitConfigError
	}
	return exitFailure
}
