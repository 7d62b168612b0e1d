package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/sibrol/internal/testevents"
)

func generateCmd() *cobra.Command {
	cfg := testevents.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic dataset for load runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			if _, err := setupLogger(cmd.Context(), cmd.ErrOrStderr(), conf); err != nil {
				return err
			}

			ds, stats, err := testevents.Generate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "generated %d events for %d beneficiaries in %s\n",
				stats.Events, stats.Beneficiaries, stats.Duration)
			_, _ = fmt.Fprintf(out, "  events:      %s\n", ds.EventsPath)
			_, _ = fmt.Fprintf(out, "  registry:    %s\n", ds.RegistryDir)
			_, _ = fmt.Fprintf(out, "  mapping:     %s\n", ds.MappingPath)
			_, _ = fmt.Fprintf(out, "  correlation: %s\n", ds.CorrelationPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Dir, "dir", "", "output directory")
	f.IntVar(&cfg.Beneficiaries, "beneficiaries", cfg.Beneficiaries, "number of beneficiaries")
	f.IntVar(&cfg.Events, "events", cfg.Events, "number of service events")
	f.IntVar(&cfg.Codes, "codes", cfg.Codes, "number of procedure codes")
	f.IntVar(&cfg.Year, "year", cfg.Year, "year of the first registry period")
	f.IntVar(&cfg.Periods, "periods", cfg.Periods, "number of monthly registry periods")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent generators")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
