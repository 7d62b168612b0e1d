package testevents

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const dateLayout = "02/01/2006"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// writeCSV writes rows to path separated by comma.
func writeCSV(path string, comma rune, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	w.Comma = comma
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func write(cfg Config, people []timeline, events []event, first time.Time) (Dataset, error) {
	ds := Dataset{
		EventsPath:      filepath.Join(cfg.Dir, "events.csv"),
		RegistryDir:     filepath.Join(cfg.Dir, "registry"),
		MappingPath:     filepath.Join(cfg.Dir, "mapping.csv"),
		CorrelationPath: filepath.Join(cfg.Dir, "correlation.csv"),
	}
	if err := os.MkdirAll(ds.RegistryDir, 0o755); err != nil {
		return Dataset{}, fmt.Errorf("create registry dir: %w", err)
	}

	for p := 0; p < cfg.Periods; p++ {
		period := first.AddDate(0, p, 0)
		if err := writeRegistry(ds.RegistryDir, period, people); err != nil {
			return Dataset{}, err
		}
	}

	mapping := [][]string{{"Código Sigtap Final", "Código TUSS", "Grau de equivalencia"}}
	correlation := [][]string{{"codigo", "descricao", "cobertura"}}
	for i := 0; i < cfg.Codes; i++ {
		if (i+1)%unmappedEvery != 0 {
			mapping = append(mapping, []string{sourceCode(i), standardCode(i), strconv.Itoa(1 + i%3)})
		}
		coverage := "NAO"
		if i%2 == 0 {
			coverage = "SIM"
		}
		correlation = append(correlation, []string{standardCode(i), "Procedimento " + strconv.Itoa(i+1), coverage})
	}
	if err := writeCSV(ds.MappingPath, ',', mapping); err != nil {
		return Dataset{}, err
	}
	if err := writeCSV(ds.CorrelationPath, ',', correlation); err != nil {
		return Dataset{}, err
	}

	rows := make([][]string, 0, len(events)+1)
	rows = append(rows, []string{"codigoBeneficiario", "dataInicioAtendimento", "codigoProcedimento"})
	for _, ev := range events {
		rows = append(rows, []string{ev.beneficiary, formatDate(ev.service), ev.code})
	}
	if err := writeCSV(ds.EventsPath, ',', rows); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// writeRegistry writes the tab separated snapshot of every contract signed by
// the end of period.
func writeRegistry(dir string, period time.Time, people []timeline) error {
	periodEnd := period.AddDate(0, 1, 0)
	rows := [][]string{{"codigoBeneficiario", "dataContratacao", "dataCancelamento", "dataReativacao"}}
	for _, p := range people {
		if !p.contracting.Before(periodEnd) {
			continue
		}
		rows = append(rows, []string{
			p.id,
			formatDate(p.contracting),
			formatDate(p.cancellation),
			formatDate(p.reactivation),
		})
	}
	name := fmt.Sprintf("beneficiarios_%s.txt", period.Format("012006"))
	return writeCSV(filepath.Join(dir, name), '\t', rows)
}
