package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	spinhttp "github.com/spinframework/spin-go-sdk/v2/http"
	"github.com/spinframework/spin-go-sdk/v2/sqlite"
	spinvars "github.com/spinframework/spin-go-sdk/v2/variables"

	"github.com/timgluz/luftspiegel/api"
	"github.com/timgluz/luftspiegel/device"
	applog "github.com/timgluz/luftspiegel/log"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/response"
	"github.com/timgluz/luftspiegel/secret"
	"github.com/timgluz/luftspiegel/task"
)

type SensorAppConfig struct {
	DBName            string `json:"db_name"`
	SnapshotStoreName string `json:"snapshot_store_name"`
	APIKey            string `json:"api_key"`
	LogLevel          string `json:"log_level"`
}

func NewSensorAppConfigFromSpinVariables() (*SensorAppConfig, error) {
	dbName, err := spinvars.Get("db_name")
	if err != nil {
		return nil, fmt.Errorf("failed to get db_name: %w", err)
	}

	storeName, err := spinvars.Get("snapshot_store_name")
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot_store_name: %w", err)
	}

	apiKey, err := spinvars.Get("api_key")
	if err != nil {
		return nil, fmt.Errorf("failed to get api_key: %w", err)
	}

	// log_level is optional
	logLevel, _ := spinvars.Get("log_level")

	return &SensorAppConfig{
		DBName:            dbName,
		SnapshotStoreName: storeName,
		APIKey:            apiKey,
		LogLevel:          logLevel,
	}, nil
}

type sensorAppComponent struct {
	server *api.Server

	measurementRepository *measurement.SQLRepository
	deviceRepository      *device.SQLRepository
	snapshotRepository    *SpinKVSnapshotRepository
	secretStore           secret.Store
	logger                *slog.Logger
}

func (c *sensorAppComponent) Close() {
	if c.snapshotRepository != nil {
		if err := c.snapshotRepository.Close(); err != nil {
			c.logger.Error("Failed to close snapshot repository", "error", err)
		}
	}

	if c.measurementRepository != nil {
		if err := c.measurementRepository.Close(); err != nil {
			c.logger.Error("Failed to close measurement repository", "error", err)
		}
	}

	if c.secretStore != nil {
		if err := c.secretStore.Close(); err != nil {
			c.logger.Error("Failed to close secret store", "error", err)
		}
	}

	c.logger.Debug("Sensor app component closed")
}

func init() {
	spinhttp.Handle(func(w http.ResponseWriter, r *http.Request) {
		config, err := NewSensorAppConfigFromSpinVariables()
		if err != nil {
			response.RenderFatal(w, fmt.Errorf("failed to load sensor app config: %w", err))
			return
		}

		appComponents, err := initSensorAppComponent(r.Context(), *config)
		if err != nil {
			response.RenderFatal(w, fmt.Errorf("failed to initialize sensor app component: %w", err))
			return
		}
		defer appComponents.Close()

		if !appComponents.server.IsReady() {
			response.RenderFatal(w, fmt.Errorf("sensor app component is not ready"))
			return
		}

		appComponents.server.Router().ServeHTTP(w, r)
	})
}

func main() {}

func initSensorAppComponent(ctx context.Context, config SensorAppConfig) (*sensorAppComponent, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: applog.SlogLevelFromString(config.LogLevel),
	})).With("component", "sensors")

	db := sqlite.Open(config.DBName)

	measurementRepository, err := measurement.NewSQLRepository(db, measurement.DialectSQLite, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize measurement repository: %w", err)
	}
	if err := measurementRepository.Migrate(ctx); err != nil {
		return nil, err
	}

	deviceRepository, err := device.NewSQLRepository(db, measurement.DialectSQLite, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device repository: %w", err)
	}
	if err := deviceRepository.Migrate(ctx); err != nil {
		return nil, err
	}

	snapshotRepository, err := NewSpinKVSnapshotRepository(config.SnapshotStoreName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot repository: %w", err)
	}

	secretStore := secret.NewTokenStore(config.APIKey)

	server := &api.Server{
		Collector:     task.NewAdvertisementCollector(measurementRepository, deviceRepository, snapshotRepository, nil, logger),
		Synchronizer:  task.NewLogSynchronizer(measurementRepository, deviceRepository, nil, logger),
		SeriesBuilder: task.NewSeriesBuilder(measurementRepository, nil, logger),
		Remover:       task.NewDeviceRemover(measurementRepository, deviceRepository, snapshotRepository, logger),
		Devices:       deviceRepository,
		Snapshots:     snapshotRepository,
		Secrets:       secretStore,
		Logger:        logger,
	}

	return &sensorAppComponent{
		server:                server,
		measurementRepository: measurementRepository,
		deviceRepository:      deviceRepository,
		snapshotRepository:    snapshotRepository,
		secretStore:           secretStore,
		logger:                logger,
	}, nil
}
