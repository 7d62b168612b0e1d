// Package report aggregates annotated service events per beneficiary.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/pkg/logger"
)

// Mixed is the overall status of a beneficiary whose events disagree.
const Mixed = "MIXED — review individually"

// Summary is one beneficiary line of the summary export.
type Summary struct {
	BeneficiaryID  string `json:"beneficiary_id" parquet:"beneficiary_id"`
	ProcedureCount int    `json:"procedure_count" parquet:"procedure_count"`
	OverallStatus  string `json:"overall_status" parquet:"overall_status"`
	StandardCodes  string `json:"standard_codes" parquet:"standard_codes"`
}

// Summarize groups events by beneficiary in order of first appearance.
func Summarize(events []model.ServiceEvent) []Summary {
	index := make(map[string]int)
	var (
		out   []Summary
		codes [][]string
	)
	for i := range events {
		ev := &events[i]
		pos, ok := index[ev.BeneficiaryID]
		if !ok {
			pos = len(out)
			index[ev.BeneficiaryID] = pos
			out = append(out, Summary{BeneficiaryID: ev.BeneficiaryID, OverallStatus: string(ev.Coverage.Status)})
			codes = append(codes, nil)
		}
		s := &out[pos]
		s.ProcedureCount++
		if s.OverallStatus != string(ev.Coverage.Status) {
			s.OverallStatus = Mixed
		}
		codes[pos] = append(codes[pos], fmt.Sprintf("%s (%s)", ev.Mapping.StandardCode, ev.Mapping.MandatoryCoverage))
	}
	for i := range out {
		out[i].StandardCodes = strings.Join(codes[i], ", ")
	}
	return out
}

// Narrate logs every beneficiary with its procedures for human review.
func Narrate(ctx context.Context, log logger.Logger, events []model.ServiceEvent) {
	order := make([]string, 0)
	byID := make(map[string][]*model.ServiceEvent)
	for i := range events {
		id := events[i].BeneficiaryID
		if _, ok := byID[id]; !ok {
			order = append(order, id)
		}
		byID[id] = append(byID[id], &events[i])
	}

	for _, id := range order {
		evs := byID[id]
		log.Info(ctx, "beneficiary report",
			logger.String("beneficiary", id),
			logger.Int("procedures", len(evs)),
		)
		for _, ev := range evs {
			log.Info(ctx, "procedure",
				logger.String("beneficiary", id),
				logger.String("service_date", ev.ServiceStartDate.String()),
				logger.String("procedure_code", ev.ProcedureCode),
				logger.String("mapping_status", string(ev.Mapping.Status)),
				logger.String("standard_code", ev.Mapping.StandardCode),
				logger.String("mandatory_coverage", string(ev.Mapping.MandatoryCoverage)),
				logger.String("coverage_status", string(ev.Coverage.Status)),
			)
		}
	}
}
