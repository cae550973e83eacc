package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reoring/goshape/internal/config"
	"github.com/reoring/goshape/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "goshape",
	Short: "Structural validation for JSON and YAML documents",
	Long: `goshape checks decoded JSON and YAML values against structural schemas.

Schemas are written as YAML or JSON schema documents.

Usage:
  goshape lint schemas/*.yaml                    # Check schema documents
  goshape check --schema user.yaml input.json    # Validate inputs
  goshape serve --schemas ./schemas              # Serve validation over HTTP`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries the process exit status for a failed command. A nil err
// exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command and exits with its status.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	code := 2
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
		if ee.err == nil {
			return code
		}
	}
	fmt.Fprintln(os.Stderr, "goshape:", err)
	return code
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "goshape.yaml", "config file path (defaults and GOSHAPE_* variables apply when absent)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or console")
}

// loadConfig loads the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
}
