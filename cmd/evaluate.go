package main

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/sibrol/internal/domain/coverage"
	"github.com/okian/sibrol/internal/domain/model"
)

type evaluation struct {
	Status      string `json:"status"`
	Note        string `json:"note"`
	WaitingFlag string `json:"waiting_flag"`
	Rule        string `json:"rule"`
}

func evaluateCmd() *cobra.Command {
	var contracting, cancellation, reactivation, serviceDate string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a single contract timeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			parse := func(s string) model.Date { return model.ParseDate(s, cfg.DateLayouts...) }

			ev := coverage.NewEvaluator(
				coverage.WithWaitingPeriod(cfg.WaitingPeriodMonths),
				coverage.WithCPTPeriod(cfg.CPTMonths),
				coverage.WithReactivationGrace(cfg.ReactivationGraceDays),
			)
			res := ev.Evaluate(coverage.Input{
				Contracting:  parse(contracting),
				Cancellation: parse(cancellation),
				Reactivation: parse(reactivation),
				Service:      parse(serviceDate),
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(evaluation{
				Status:      string(res.Status),
				Note:        res.Note,
				WaitingFlag: string(res.WaitingFlag),
				Rule:        res.Rule,
			})
		},
	}
	cmd.Flags().StringVar(&contracting, "contracting", "", "contracting date")
	cmd.Flags().StringVar(&cancellation, "cancellation", "", "cancellation date")
	cmd.Flags().StringVar(&reactivation, "reactivation", "", "reactivation date")
	cmd.Flags().StringVar(&serviceDate, "service", "", "service start date")
	return cmd
}
