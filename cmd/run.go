package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/sibrol/internal/adapters/store"
	service "github.com/okian/sibrol/internal/app"
	"github.com/okian/sibrol/internal/config"
	"github.com/okian/sibrol/pkg/logger"
	"github.com/okian/sibrol/pkg/metrics"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Annotate an events file and write the audit outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, runFlags)
			if err != nil {
				return err
			}
			if err := applyWorkers(cmd, cfg); err != nil {
				return err
			}
			// every required input is checked before anything is read
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := setupLogger(cmd.Context(), cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}

			res, err := runAudit(cmd.Context(), cfg, log)
			if err != nil {
				log.Error(cmd.Context(), "audit failed", logger.Error(err))
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"run %s: %d events (%d active, %d inactive), %d beneficiaries\n",
				res.RunID, res.Events, res.Active, res.Inactive, len(res.Summaries))
			return nil
		},
	}

	f := cmd.Flags()
	f.String("events", "", "service events file (xlsx or csv)")
	f.String("registry-dir", "", "directory of period registry files")
	f.String("mapping", "", "procedure mapping file (xlsx or csv)")
	f.String("correlation", "", "mandatory coverage correlation file (xlsx or csv)")
	f.String("output", "", "annotated output file (.xlsx or .csv)")
	f.String("summary", "", "beneficiary summary file (default resumo_beneficiarios.xlsx next to the output)")
	f.String("parquet", "", "optional parquet export of the annotated events")
	f.String("summary-json", "", "optional JSON export of the summary")
	f.String("metrics-file", "", "optional Prometheus textfile written after the run")
	f.String("postgres-dsn", "", "optional PostgreSQL DSN receiving the annotated events")
	f.Int("workers", 0, "evaluation workers (default from config)")
	return cmd
}

func runFlags(cfg *config.Config) map[string]*string {
	return map[string]*string{
		"events":       &cfg.EventsPath,
		"registry-dir": &cfg.RegistryDir,
		"mapping":      &cfg.MappingPath,
		"correlation":  &cfg.CorrelationPath,
		"output":       &cfg.OutputPath,
		"summary":      &cfg.SummaryPath,
		"parquet":      &cfg.ParquetPath,
		"summary-json": &cfg.SummaryJSONPath,
		"metrics-file": &cfg.MetricsFile,
		"postgres-dsn": &cfg.PostgresDSN,
	}
}

func applyWorkers(cmd *cobra.Command, cfg *config.Config) error {
	if !cmd.Flags().Changed("workers") {
		return nil
	}
	n, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("%w: --workers must be at least 1", config.ErrInvalidConfig)
	}
	cfg.WorkerCount = n
	return nil
}

// runAudit executes one audit as configured by cfg.
func runAudit(ctx context.Context, cfg *config.Config, log logger.Logger) (service.RunResult, error) {
	opts := append(service.FromConfig(cfg), service.WithLogger(log))

	if cfg.PostgresDSN != "" {
		st, err := store.Open(ctx, cfg.PostgresDSN,
			store.WithTable(cfg.PostgresTable),
			store.WithLogger(log.Named("store")),
		)
		if err != nil {
			return service.RunResult{}, err
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			return service.RunResult{}, err
		}
		opts = append(opts, service.WithSink(st))
	}

	svc := service.New(opts...)
	if err := svc.Load(ctx, service.Inputs{
		RegistryDir:     cfg.RegistryDir,
		MappingPath:     cfg.MappingPath,
		CorrelationPath: cfg.CorrelationPath,
	}); err != nil {
		return service.RunResult{}, err
	}

	res, err := svc.Run(ctx, cfg.EventsPath, service.Outputs{
		Annotated:   cfg.OutputPath,
		Summary:     cfg.SummaryFile(),
		Parquet:     cfg.ParquetPath,
		SummaryJSON: cfg.SummaryJSONPath,
	})
	if err != nil {
		return service.RunResult{}, err
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "metrics file not written", logger.String("path", cfg.MetricsFile), logger.Error(err))
		}
	}
	return res, nil
}
