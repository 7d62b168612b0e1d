package config_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/sibrol/internal/adapters/tabular"
	"github.com/okian/sibrol/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the audit defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.MappingSheet, convey.ShouldEqual, "Mapeamento ativos")
			convey.So(cfg.CorrelationCodeCol, convey.ShouldEqual, 0)
			convey.So(cfg.CorrelationCoverageCol, convey.ShouldEqual, 2)
			convey.So(cfg.RegistryReadAttempts, convey.ShouldEqual, 3)
			convey.So(cfg.RegistryRetryBackoff, convey.ShouldEqual, 200*time.Millisecond)
			convey.So(cfg.WaitingPeriodMonths, convey.ShouldEqual, 6)
			convey.So(cfg.CPTMonths, convey.ShouldEqual, 24)
			convey.So(cfg.ReactivationGraceDays, convey.ShouldEqual, 30)
			convey.So(cfg.EventColumns, convey.ShouldResemble, tabular.DefaultEventColumns)
			convey.So(cfg.RegistryColumns, convey.ShouldResemble, tabular.DefaultRegistryColumns)
			convey.So(cfg.MappingColumns, convey.ShouldResemble, tabular.DefaultMappingColumns)
			convey.So(cfg.Narrate, convey.ShouldBeTrue)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config without inputs", t, func() {
		cfg := config.New()

		convey.Convey("Then every missing input is reported at once", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrMissingInput), convey.ShouldBeTrue)
			for _, name := range []string{"events", "registry_dir", "mapping", "correlation", "output"} {
				convey.So(err.Error(), convey.ShouldContainSubstring, name)
			}
			convey.So(cfg.Inputs(), convey.ShouldBeFalse)
		})

		convey.Convey("When only the output is missing", func() {
			cfg.EventsPath = "events.xlsx"
			cfg.RegistryDir = "registry"
			cfg.MappingPath = "mapping.xlsx"
			cfg.CorrelationPath = "rol.xlsx"

			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "output")
			convey.So(err.Error(), convey.ShouldNotContainSubstring, "events")
			convey.So(cfg.Inputs(), convey.ShouldBeTrue)

			cfg.OutputPath = "out.xlsx"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_SummaryFile(t *testing.T) {
	convey.Convey("Given an output path", t, func() {
		cfg := config.New()
		cfg.OutputPath = filepath.Join("reports", "out.xlsx")

		convey.Convey("Then the summary defaults to the output directory", func() {
			convey.So(cfg.SummaryFile(), convey.ShouldEqual, filepath.Join("reports", config.DefaultSummaryName))
		})

		convey.Convey("Then an explicit summary path wins", func() {
			cfg.SummaryPath = "resumo.csv"
			convey.So(cfg.SummaryFile(), convey.ShouldEqual, "resumo.csv")
		})
	})
}
