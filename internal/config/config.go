// Package config defines the audit configuration and its layered loading.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load layers a YAML file and SIBROL_* environment variables on top.
// - Validate reports the inputs a pipeline run cannot start without.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/okian/sibrol/internal/adapters/tabular"
)

// DefaultSummaryName is the summary file written next to the annotated output
// when no summary path is configured.
const DefaultSummaryName = "resumo_beneficiarios.xlsx"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address of serve mode, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Input files.
	EventsPath      string `koanf:"events"`
	RegistryDir     string `koanf:"registry_dir"`
	MappingPath     string `koanf:"mapping"`
	MappingSheet    string `koanf:"mapping_sheet"`
	CorrelationPath string `koanf:"correlation"`

	// CorrelationCodeCol and CorrelationCoverageCol are zero-based positions
	// in the correlation table.
	CorrelationCodeCol     int `koanf:"correlation_code_col"`
	CorrelationCoverageCol int `koanf:"correlation_coverage_col"`

	// Output files. Only OutputPath is required; the rest are optional sinks.
	OutputPath      string `koanf:"output"`
	SummaryPath     string `koanf:"summary_path"`
	ParquetPath     string `koanf:"parquet_path"`
	SummaryJSONPath string `koanf:"summary_json_path"`
	MetricsFile     string `koanf:"metrics_file"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// EventQueueSize bounds the in-memory evaluation queue.
	EventQueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the narration set; zero keeps every key.
	DedupeSize int `koanf:"dedupe_size"`

	// Registry file reads are retried with a linear backoff.
	RegistryReadAttempts int           `koanf:"registry_read_attempts"`
	RegistryRetryBackoff time.Duration `koanf:"registry_retry_backoff"`

	// Restriction windows.
	WaitingPeriodMonths   int `koanf:"waiting_period_months"`
	CPTMonths             int `koanf:"cpt_months"`
	ReactivationGraceDays int `koanf:"reactivation_grace_days"`

	// Affirmative lists the mandatory coverage tokens read as "yes".
	Affirmative []string `koanf:"affirmative"`

	// DateLayouts overrides the date layouts tried for every input file.
	DateLayouts []string `koanf:"date_layouts"`

	EventColumns    tabular.EventColumns    `koanf:"event_columns"`
	RegistryColumns tabular.RegistryColumns `koanf:"registry_columns"`
	MappingColumns  tabular.MappingColumns  `koanf:"mapping_columns"`

	// PostgresDSN enables the database sink when set.
	PostgresDSN   string `koanf:"postgres_dsn"`
	PostgresTable string `koanf:"postgres_table"`

	// Narrate logs every evaluated contract record and the beneficiary report.
	Narrate bool `koanf:"narrate"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		MappingSheet:           "Mapeamento ativos",
		CorrelationCodeCol:     0,
		CorrelationCoverageCol: 2,
		WorkerCount:            1,
		EventQueueSize:         1024,
		DedupeSize:             0,
		RegistryReadAttempts:   3,
		RegistryRetryBackoff:   200 * time.Millisecond,
		WaitingPeriodMonths:    6,
		CPTMonths:              24,
		ReactivationGraceDays:  30,
		EventColumns:           tabular.DefaultEventColumns,
		RegistryColumns:        tabular.DefaultRegistryColumns,
		MappingColumns:         tabular.DefaultMappingColumns,
		PostgresTable:          "coverage_events",
		Narrate:                true,
	}
}

// Validate reports every missing required input of a pipeline run, joined in
// a single error wrapping ErrMissingInput.
func (c *Config) Validate() error {
	required := []struct{ name, value string }{
		{"events", c.EventsPath},
		{"registry_dir", c.RegistryDir},
		{"mapping", c.MappingPath},
		{"correlation", c.CorrelationPath},
		{"output", c.OutputPath},
	}
	var errs []error
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingInput, r.name))
		}
	}
	return errors.Join(errs...)
}

// Inputs reports whether the lookup tables needed to annotate events are configured.
func (c *Config) Inputs() bool {
	return c.RegistryDir != "" && c.MappingPath != "" && c.CorrelationPath != ""
}

// SummaryFile returns the summary path, defaulting to DefaultSummaryName in
// the directory of the annotated output.
func (c *Config) SummaryFile() string {
	if c.SummaryPath != "" {
		return c.SummaryPath
	}
	return filepath.Join(filepath.Dir(c.OutputPath), DefaultSummaryName)
}

// check rejects values no run can use.
func (c *Config) check() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be at least 1", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.RegistryReadAttempts < 1:
		return fmt.Errorf("%w: registry_read_attempts must be at least 1", ErrInvalidConfig)
	case c.WaitingPeriodMonths < 1 || c.CPTMonths < 1:
		return fmt.Errorf("%w: restriction windows must be positive", ErrInvalidConfig)
	case c.ReactivationGraceDays < 0:
		return fmt.Errorf("%w: reactivation_grace_days must not be negative", ErrInvalidConfig)
	case c.CorrelationCodeCol < 0 || c.CorrelationCoverageCol < 0:
		return fmt.Errorf("%w: correlation columns must not be negative", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	return nil
}
