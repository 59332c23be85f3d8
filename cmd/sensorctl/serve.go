package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timgluz/luftspiegel/api"
	"github.com/timgluz/luftspiegel/metrics"
	"github.com/timgluz/luftspiegel/secret"
	"github.com/timgluz/luftspiegel/task"
)

const shutdownTimeout = 10 * time.Second

type serveCommand struct {
	Listen       string `short:"l" long:"listen" env:"SENSORCTL_LISTEN" default:":8080" description:"Address the HTTP API listens on"`
	APIKey       string `long:"api-key" env:"SENSORCTL_API_KEY" required:"yes" description:"Bearer token accepted by the API"`
	VendorFilter string `long:"vendor-filter" env:"SENSORCTL_VENDOR_FILTER" default:"Ruuvi" description:"Only advertisements whose name contains this are decoded"`
}

func (c *serveCommand) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger("serve")
	if err != nil {
		return err
	}

	s, err := openStores(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	m, registry := newMetrics(logger)
	server := newAPIServer(s, m, secret.NewTokenStore(c.APIKey), c.VendorFilter, logger)
	if !server.IsReady() {
		return fmt.Errorf("API server is not ready")
	}

	router := server.Router()
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return serveHTTP(ctx, &http.Server{Addr: c.Listen, Handler: router, ReadHeaderTimeout: 5 * time.Second}, logger)
}

func newAPIServer(s *stores, m *metrics.Metrics, secrets secret.Store, vendorFilter string, logger *slog.Logger) *api.Server {
	return &api.Server{
		Collector: task.NewAdvertisementCollector(s.measurements, s.devices, s.snapshots, m, logger).
			WithVendorFilter(vendorFilter),
		Synchronizer:  task.NewLogSynchronizer(s.measurements, s.devices, m, logger),
		SeriesBuilder: task.NewSeriesBuilder(s.measurements, m, logger),
		Remover:       task.NewDeviceRemover(s.measurements, s.devices, s.snapshots, logger),
		Devices:       s.devices,
		Snapshots:     s.snapshots,
		Secrets:       secrets,
		Logger:        logger,
	}
}

// serveHTTP runs srv until ctx is done and then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func metricsServer(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
