package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/docalc/internal/chart"
	httpctrl "github.com/Agrid-Dev/docalc/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/docalc/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/docalc/internal/controllers/mqtt"
	"github.com/Agrid-Dev/docalc/internal/district"
	"github.com/Agrid-Dev/docalc/internal/metrics"
	"github.com/Agrid-Dev/docalc/internal/overlap"
	"github.com/Agrid-Dev/docalc/internal/profile"
)

// Run evaluates the configured district once, writes the configured outputs
// and, when a controller is enabled, serves the report until ctx is done.
func Run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	buildings, err := loadBuildings(cfg.Profiles)
	if err != nil {
		return err
	}

	recorder := metrics.New()
	cop := overlap.COP{HeatPump: cfg.COP.HeatPump, Chiller: cfg.COP.Chiller}
	d, err := district.New(cfg.DistrictID, cop, buildings, district.WithObserver(recorder))
	if err != nil {
		return fmt.Errorf("evaluate district %q: %w", cfg.DistrictID, err)
	}

	rep := d.Report()
	logReport(logger, rep)

	if err := writeOutputs(cfg, rep); err != nil {
		return err
	}
	if cfg.Chart.Enabled {
		if err := renderChart(cfg.Chart, rep); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.Chart.Path).Str("kind", cfg.Chart.Kind).Msg("chart written")
	}

	if !cfg.AnyController() {
		return nil
	}
	return serve(ctx, cfg, d, recorder, logger)
}

func loadBuildings(cfg ProfilesConfig) ([]district.Building, error) {
	if len(cfg.Buildings) == 0 {
		return profile.ExampleBuildings(cfg.Steps), nil
	}
	buildings := make([]district.Building, 0, len(cfg.Buildings))
	for _, src := range cfg.Buildings {
		b, err := profile.LoadCSV(src.Path, src.Name)
		if err != nil {
			return nil, fmt.Errorf("building %q: %w", src.Name, err)
		}
		buildings = append(buildings, b)
	}
	return buildings, nil
}

func logReport(logger zerolog.Logger, rep district.Report) {
	logger.Info().
		Str("district", rep.DistrictID).
		Int("steps", rep.Steps).
		Float64("district_doc", rep.DistrictDOC).
		Float64("duration_doc", rep.DurationDOC).
		Float64("mean_bes_doc", rep.MeanBESDOC).
		Float64("network_doc", rep.NetworkDOC).
		Float64("mean_heat", rep.HeatCurve.Area()).
		Float64("mean_cool", rep.CoolCurve.Area()).
		Msg("district evaluated")
	for _, b := range rep.Buildings {
		logger.Debug().Str("building", b.Name).Float64("bes_doc", b.BESDOC).Msg("building evaluated")
	}
}

func writeOutputs(cfg Config, rep district.Report) error {
	if cfg.Export.ReportPath != "" {
		if err := writeFile(cfg.Export.ReportPath, func(f *os.File) error {
			return district.WriteYAML(f, rep)
		}); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if cfg.Export.CurvesPath != "" {
		if err := writeFile(cfg.Export.CurvesPath, func(f *os.File) error {
			return profile.WriteCurves(f, rep)
		}); err != nil {
			return fmt.Errorf("write curves: %w", err)
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func renderChart(cfg ChartConfig, rep district.Report) error {
	kind, err := chart.ParseKind(cfg.Kind)
	if err != nil {
		return err
	}
	series, err := chart.FromReport(rep, kind)
	if err != nil {
		return err
	}
	return series.Save(cfg.Path)
}

func serve(ctx context.Context, cfg Config, d *district.District, recorder *metrics.Recorder, logger zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	if c := cfg.Controllers.HTTP; c.Enabled {
		srv := httpctrl.New(d, c.Addr, recorder.Handler(), logger)
		logger.Info().Str("addr", c.Addr).Msg("http controller enabled")
		g.Go(func() error { return srv.Run(ctx) })
	}

	if c := cfg.Controllers.MQTT; c.Enabled {
		ctrl, err := mqttctrl.New(d, mqttctrl.Config{
			DistrictID:      cfg.DistrictID,
			BrokerURL:       c.BrokerURL,
			ClientID:        c.ClientID,
			BaseTopic:       c.BaseTopic,
			QoS:             c.QoS,
			RetainReport:    c.RetainReport,
			PublishInterval: c.PublishInterval,
			Username:        c.Username,
			Password:        c.Password,
		}, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return ctrl.Run(ctx) })
	}

	if c := cfg.Controllers.MODBUS; c.Enabled {
		ctrl, err := modbusctrl.New(d, modbusctrl.Config{
			Addr:   c.Addr,
			UnitID: c.UnitID,
		}, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return ctrl.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
