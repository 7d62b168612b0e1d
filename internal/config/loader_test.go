package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/sibrol/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
				convey.So(cfg.Affirmative, convey.ShouldResemble, []string{"yes", "SIM"})
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SIBROL_ADDR", ":8080")
			_ = os.Setenv("SIBROL_WORKER_COUNT", "4")
			_ = os.Setenv("SIBROL_EVENTS", "/data/events.xlsx")
			_ = os.Setenv("SIBROL_REGISTRY_RETRY_BACKOFF", "1s")
			_ = os.Setenv("SIBROL_EVENT_COLUMNS__PROCEDURE_CODE", "procedimento")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.EventsPath, convey.ShouldEqual, "/data/events.xlsx")
				convey.So(cfg.RegistryRetryBackoff, convey.ShouldEqual, time.Second)
				convey.So(cfg.EventColumns.ProcedureCode, convey.ShouldEqual, "procedimento")
				convey.So(cfg.EventColumns.BeneficiaryID, convey.ShouldEqual, "codigoBeneficiario")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# audit of 2024
events: events.xlsx
registry_dir: ./registry
mapping: mapping.xlsx
correlation: rol.csv
output: out.xlsx
worker_count: 8
waiting_period_months: 3
affirmative: ["S"]
registry_columns:
  contracting_date: dt_contratacao
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SIBROL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep the other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.WaitingPeriodMonths, convey.ShouldEqual, 3)
				convey.So(cfg.CPTMonths, convey.ShouldEqual, 24)
				convey.So(cfg.Affirmative, convey.ShouldResemble, []string{"S"})
				convey.So(cfg.RegistryColumns.ContractingDate, convey.ShouldEqual, "dt_contratacao")
				convey.So(cfg.RegistryColumns.CancellationDate, convey.ShouldEqual, "dataCancelamento")
			})
		})

		convey.Convey("When an explicit file and env are both given", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nworker_count: 2\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SIBROL_WORKER_COUNT", "6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, config.WithFile(tmpFile))

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.Load(ctx, config.WithFile(tmpFile))

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SIBROL_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SIBROL_WORKER_COUNT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigLoaderValidation(t *testing.T) {
	convey.Convey("Given values no run can use", t, func() {
		ctx := context.Background()
		defer clearConfigEnvVars()

		for key, value := range map[string]string{
			"SIBROL_ADDR":                    "",
			"SIBROL_WORKER_COUNT":            "0",
			"SIBROL_QUEUE_SIZE":              "-1",
			"SIBROL_REGISTRY_READ_ATTEMPTS":  "0",
			"SIBROL_CPT_MONTHS":              "0",
			"SIBROL_REACTIVATION_GRACE_DAYS": "-1",
			"SIBROL_LOG_FORMAT":              "xml",
		} {
			clearConfigEnvVars()
			_ = os.Setenv(key, value)

			cfg, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		}
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SIBROL_CONFIG",
		"SIBROL_ADDR",
		"SIBROL_WORKER_COUNT",
		"SIBROL_QUEUE_SIZE",
		"SIBROL_EVENTS",
		"SIBROL_REGISTRY_RETRY_BACKOFF",
		"SIBROL_REGISTRY_READ_ATTEMPTS",
		"SIBROL_EVENT_COLUMNS__PROCEDURE_CODE",
		"SIBROL_CPT_MONTHS",
		"SIBROL_REACTIVATION_GRACE_DAYS",
		"SIBROL_LOG_FORMAT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "sibrol-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
