package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/timgluz/luftspiegel/device"
	applog "github.com/timgluz/luftspiegel/log"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/metrics"
	"github.com/timgluz/luftspiegel/snapshot"
)

func newLogger(component string) (*slog.Logger, error) {
	logger, err := applog.New(os.Stderr, opts.LogLevel, opts.LogFormat)
	if err != nil {
		return nil, err
	}
	return logger.With("component", component), nil
}

// stores bundles the repositories of one command run.
type stores struct {
	measurements measurement.Repository
	devices      device.Repository
	snapshots    snapshot.Repository

	logger *slog.Logger
}

// openStores connects to postgres when a DSN is configured and falls back to memory otherwise.
func openStores(ctx context.Context, logger *slog.Logger) (*stores, error) {
	s := &stores{snapshots: snapshot.NewMemoryRepository(), logger: logger}

	if opts.DSN == "" {
		logger.Warn("No database configured, samples are kept in memory")
		s.measurements = measurement.NewMemoryRepository()
		s.devices = device.NewMemoryRepository()
		return s, s.seed(ctx)
	}

	db, err := measurement.OpenPostgres(opts.DSN)
	if err != nil {
		return nil, err
	}

	measurements, err := measurement.NewSQLRepository(db, measurement.DialectPostgres, logger)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	if err := measurements.Migrate(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	devices, err := device.NewSQLRepository(db, measurement.DialectPostgres, logger)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	if err := devices.Migrate(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	s.measurements = measurements
	s.devices = devices
	logger.Info("Connected to postgres")
	return s, s.seed(ctx)
}

func (s *stores) seed(ctx context.Context) error {
	if opts.Devices == "" {
		return nil
	}

	f, err := os.Open(opts.Devices)
	if err != nil {
		return fmt.Errorf("failed to open device list: %w", err)
	}
	defer f.Close()

	devices, err := device.LoadDevices(f)
	if err != nil {
		return err
	}
	return device.NewSeeder(s.logger).Seed(ctx, devices, s.devices)
}

func (s *stores) Close() {
	if err := s.snapshots.Close(); err != nil {
		s.logger.Error("Failed to close snapshot repository", "error", err)
	}
	if err := s.devices.Close(); err != nil {
		s.logger.Error("Failed to close device repository", "error", err)
	}
	// the SQL sample repository closes the shared DB
	if err := s.measurements.Close(); err != nil {
		s.logger.Error("Failed to close measurement repository", "error", err)
	}
}

func newMetrics(logger *slog.Logger) (*metrics.Metrics, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		logger.Warn("Metrics are disabled", "error", err)
		return nil, registry
	}
	return m, registry
}
