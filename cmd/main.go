package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/sibrol/internal/config"
	"github.com/okian/sibrol/pkg/logger"
)

// Persistent flag names.
const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sibrol",
		Short:         "Audit beneficiary coverage of recorded service events",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String(flagConfig, "", "YAML config file (overrides SIBROL_CONFIG)")
	root.PersistentFlags().String(flagLogLevel, "", "log level: debug, info, warn, error")
	root.PersistentFlags().String(flagLogFormat, "", "log format: text or json")

	root.AddCommand(runCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(evaluateCmd())
	root.AddCommand(generateCmd())
	return root
}

// flagBinding maps flag names to the config fields they override.
type flagBinding func(cfg *config.Config) map[string]*string

// loadConfig layers the changed command line flags on top of the file and
// environment configuration.
func loadConfig(cmd *cobra.Command, bind flagBinding) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)
	cfg, err := config.Load(cmd.Context(), config.WithFile(path))
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{}
	if bind != nil {
		overrides = bind(cfg)
	}
	overrides[flagLogLevel] = &cfg.LogLevel
	overrides[flagLogFormat] = &cfg.LogFormat
	for name, dst := range overrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	return cfg, nil
}

// setupLogger initializes the global logger from cfg writing to w.
func setupLogger(ctx context.Context, w io.Writer, cfg *config.Config) (logger.Logger, error) {
	if err := logger.InitWithOptions(w, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return log, nil
}
