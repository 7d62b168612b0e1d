package registry_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/sibrol/internal/adapters/registry"
	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/internal/domain/resolver"
	"github.com/okian/sibrol/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

const registryHeader = "codigoBeneficiario\tdataContratacao\tdataCancelamento\tdataReativacao\n"

func write(dir, name, body string) string {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		panic(err)
	}
	return p
}

func open(dir string, opts ...registry.Option) (*registry.Directory, error) {
	m := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
	return registry.Open(dir, append([]registry.Option{registry.WithMetrics(m), registry.WithRetry(2, time.Millisecond)}, opts...)...)
}

func TestOpen(t *testing.T) {
	Convey("Given a registry directory", t, func() {
		dir := t.TempDir()
		write(dir, "SIB_062023.txt", registryHeader)
		write(dir, "SIB_052023.csv", "codigoBeneficiario;dataContratacao\n")
		write(dir, "notes.md", "ignored")
		So(os.Mkdir(filepath.Join(dir, "SIB_072023.txt"), 0o700), ShouldBeNil)

		d, err := open(dir)
		So(err, ShouldBeNil)

		Convey("Then only registry files are listed, in name order", func() {
			So(d.Files(), ShouldResemble, []string{
				filepath.Join(dir, "SIB_052023.csv"),
				filepath.Join(dir, "SIB_062023.txt"),
			})
		})

		Convey("Then periods are matched on the file name", func() {
			p, ok := d.FileFor("062023")
			So(ok, ShouldBeTrue)
			So(p, ShouldEqual, filepath.Join(dir, "SIB_062023.txt"))

			_, ok = d.FileFor("072023")
			So(ok, ShouldBeFalse)
			_, ok = d.FileFor("")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a missing directory", t, func() {
		_, err := open(filepath.Join(t.TempDir(), "nope"))
		So(errors.Is(err, registry.ErrReadDirectory), ShouldBeTrue)
	})
}

func TestRecords(t *testing.T) {
	ctx := context.Background()

	Convey("Given a period file with repeated beneficiaries", t, func() {
		dir := t.TempDir()
		write(dir, "SIB_062023.txt", registryHeader+
			"100.0\t01/01/2020\t\t\n"+
			"200\t2021-01-01\t2022-01-01\t\n"+
			"100\t2022-05-01\t\t\n")

		d, err := open(dir)
		So(err, ShouldBeNil)

		Convey("When records of a beneficiary are requested", func() {
			recs, err := d.Records(ctx, "062023", "100")

			Convey("Then they come back in file order with parsed dates", func() {
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].ContractingDate.String(), ShouldEqual, "2020-01-01")
				So(recs[0].CancellationDate.IsZero(), ShouldBeTrue)
				So(recs[1].ContractingDate.String(), ShouldEqual, "2022-05-01")
				So(recs[1].Line, ShouldEqual, 3)
			})
		})

		Convey("When an unknown beneficiary is requested", func() {
			recs, err := d.Records(ctx, "062023", "999")
			So(err, ShouldBeNil)
			So(recs, ShouldBeEmpty)
		})

		Convey("When the period has no file", func() {
			_, err := d.Records(ctx, "012024", "100")
			So(errors.Is(err, resolver.ErrPeriodNotFound), ShouldBeTrue)
		})

		Convey("When the same period is used again after the file changed", func() {
			_, err := d.Records(ctx, "062023", "100")
			So(err, ShouldBeNil)
			write(dir, "SIB_062023.txt", registryHeader)

			recs, err := d.Records(ctx, "062023", "200")

			Convey("Then the cached load is served", func() {
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(d.Loaded(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a period file without the beneficiary column", t, func() {
		dir := t.TempDir()
		write(dir, "SIB_062023.txt", "id\tdataContratacao\n1\t2020-01-01\n")
		d, err := open(dir)
		So(err, ShouldBeNil)

		_, err = d.Records(ctx, "062023", "1")

		So(errors.Is(err, registry.ErrLoadPeriod), ShouldBeTrue)
		So(errors.Is(err, resolver.ErrPeriodNotFound), ShouldBeFalse)
	})

	Convey("Given a period file that disappears after discovery", t, func() {
		dir := t.TempDir()
		p := write(dir, "SIB_062023.txt", registryHeader)
		d, err := open(dir)
		So(err, ShouldBeNil)
		So(os.Remove(p), ShouldBeNil)

		_, err = d.Records(ctx, "062023", "1")

		Convey("Then every attempt fails and the error is reported", func() {
			So(errors.Is(err, registry.ErrLoadPeriod), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "after 2 attempts")
		})
	})
}

func TestRecordsCancelledLoad(t *testing.T) {
	Convey("Given a period file that is missing while a caller gives up", t, func() {
		dir := t.TempDir()
		p := write(dir, "SIB_062023.txt", registryHeader+"100\t01/01/2020\t\t\n")
		d, err := open(dir, registry.WithRetry(3, time.Hour))
		So(err, ShouldBeNil)
		So(os.Remove(p), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = d.Records(ctx, "062023", "100")
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
		So(d.Loaded(), ShouldEqual, 0)

		Convey("When the file is back and another caller asks", func() {
			write(dir, "SIB_062023.txt", registryHeader+"100\t01/01/2020\t\t\n")
			recs, err := d.Records(context.Background(), "062023", "100")

			Convey("Then the period is loaded afresh", func() {
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(d.Loaded(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a period whose load failed for good", t, func() {
		dir := t.TempDir()
		p := write(dir, "SIB_062023.txt", registryHeader)
		d, err := open(dir)
		So(err, ShouldBeNil)
		So(os.Remove(p), ShouldBeNil)

		_, err = d.Records(context.Background(), "062023", "100")
		So(errors.Is(err, registry.ErrLoadPeriod), ShouldBeTrue)

		Convey("Then the failure stays cached for the run", func() {
			write(dir, "SIB_062023.txt", registryHeader+"100\t01/01/2020\t\t\n")
			_, err := d.Records(context.Background(), "062023", "100")
			So(errors.Is(err, registry.ErrLoadPeriod), ShouldBeTrue)
			So(d.Loaded(), ShouldEqual, 1)
		})
	})
}

func TestRecordsResolverIntegration(t *testing.T) {
	Convey("Given a resolver over a registry directory", t, func() {
		dir := t.TempDir()
		write(dir, "SIB_062023.txt", registryHeader+"1\t2023-01-01\t\t\n")
		d, err := open(dir)
		So(err, ShouldBeNil)

		m := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
		r := resolver.New(d, resolver.WithMetrics(m))

		Convey("Then events are resolved against the period file", func() {
			c := r.Resolve(context.Background(), model.ServiceEvent{
				BeneficiaryID:    "1",
				ServiceStartDate: model.NewDate(2023, time.June, 10),
			}, nil)
			So(c.Status, ShouldEqual, model.StatusActive)
			So(c.WaitingFlag, ShouldEqual, model.FlagWaitingPeriodOrCPT)

			missing := r.Resolve(context.Background(), model.ServiceEvent{
				BeneficiaryID:    "1",
				ServiceStartDate: model.NewDate(2023, time.July, 10),
			}, nil)
			So(missing.Note, ShouldEqual, resolver.NoteNoRegistryFile)
		})
	})
}
