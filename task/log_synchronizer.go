package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/timgluz/luftspiegel/decoder"
	"github.com/timgluz/luftspiegel/device"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/metrics"
)

// FirstLogTimestamp asks a device for its whole log.
const FirstLogTimestamp measurement.Epoch = 1

var loggedChannels = []measurement.Channel{measurement.Temperature, measurement.Humidity, measurement.AirPressure}

type SyncReport struct {
	ID       uuid.UUID                   `json:"id"`
	Device   string                      `json:"device"`
	Records  int                         `json:"records"`
	Decoded  int                         `json:"decoded"`
	Skipped  int                         `json:"skipped"`
	Complete bool                        `json:"complete"`
	Inserted map[measurement.Channel]int `json:"inserted"`
	Errors   []string                    `json:"errors,omitempty"`
}

// LogSynchronizer stores the records of a bulk log transfer.
type LogSynchronizer struct {
	measurementRepo measurement.Repository
	deviceRepo      device.Repository
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

func NewLogSynchronizer(
	measurementRepo measurement.Repository,
	deviceRepo device.Repository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *LogSynchronizer {
	return &LogSynchronizer{
		measurementRepo: measurementRepo,
		deviceRepo:      deviceRepo,
		metrics:         m,
		logger:          logger,
	}
}

// Run registers the device at address and inserts one batch per channel of its decoded
// records. An empty name falls back to device.DefaultName; a registered device keeps its name.
// Records that fail to decode are skipped; the returned error only reports store failures.
func (s *LogSynchronizer) Run(ctx context.Context, address, name string, records []decoder.Record) (*SyncReport, error) {
	canonical, err := measurement.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{
		ID:       uuid.New(),
		Device:   canonical,
		Records:  len(records),
		Complete: true,
		Inserted: map[measurement.Channel]int{},
	}
	logger := s.logger.With("sync", report.ID.String(), "device", canonical)
	logger.Info("Synchronizing device log", "records", len(records))

	var errs []error
	if strings.TrimSpace(name) == "" {
		name = device.DefaultName(canonical)
	}
	if d, err := device.New(canonical, name); err == nil {
		if err := s.deviceRepo.Register(ctx, d); err != nil {
			logger.Error("Failed to register device", "error", err)
			errs = append(errs, err)
		}
	}

	snapshots, skipped := decoder.DecodeLog(records, canonical)
	for _, err := range skipped {
		logger.Warn("Skipping log record", "error", err)
		report.Errors = append(report.Errors, err.Error())
	}
	for _, snap := range snapshots {
		recordRejections(s.metrics, logger, snap)
	}

	report.Decoded = len(snapshots)
	report.Skipped = len(skipped)
	s.metrics.LogRecord("decoded", report.Decoded)
	s.metrics.LogRecord("skipped", report.Skipped)

	inserted, err := storeBatches(ctx, s.measurementRepo, s.metrics, logger, measurement.Partition(snapshots))
	report.Inserted = inserted
	if err = errors.Join(append(errs, err)...); err != nil {
		logger.Error("Log synchronization finished with store failures", "error", err)
		return report, err
	}

	logger.Info("Log synchronized", "decoded", report.Decoded, "skipped", report.Skipped, "inserted", sum(inserted))
	return report, nil
}

// RunPackets parses the raw packets of a legacy log transfer for sensor and stores them like Run.
func (s *LogSynchronizer) RunPackets(ctx context.Context, address, name, sensor string, packets [][]byte) (*SyncReport, error) {
	destination, err := decoder.LogDestination(sensor)
	if err != nil {
		return nil, err
	}

	records, complete, skipped := decoder.ParseLegacyLog(packets, destination)
	report, err := s.Run(ctx, address, name, records)
	if report == nil {
		return nil, err
	}

	report.Complete = complete
	report.Skipped += len(skipped)
	report.Records += len(skipped)
	for _, e := range skipped {
		report.Errors = append(report.Errors, e.Error())
	}
	if !complete {
		s.logger.Warn("Log transfer ended without end marker", "device", report.Device)
	}
	return report, err
}

// StartTimestamp returns the timestamp from which a device should replay its log: the newest
// stored sample of sensor, or for "all" the oldest of the per-channel newest samples.
// Devices without stored samples replay from FirstLogTimestamp.
func (s *LogSynchronizer) StartTimestamp(ctx context.Context, address, sensor string) (measurement.Epoch, error) {
	canonical, err := measurement.ParseAddress(address)
	if err != nil {
		return 0, err
	}

	channels := loggedChannels
	if !strings.EqualFold(strings.TrimSpace(sensor), decoder.SensorAll) {
		channel, err := measurement.ParseChannel(sensor)
		if err != nil {
			return 0, err
		}
		if !channel.IsStored() {
			return 0, fmt.Errorf("%w: %s is not stored", measurement.ErrUnknownChannel, channel)
		}
		channels = []measurement.Channel{channel}
	}

	var start measurement.Epoch
	found := false
	for _, channel := range channels {
		last, ok, err := s.measurementRepo.LastTimestamp(ctx, canonical, channel)
		if err != nil {
			s.logger.Error("Failed to read last sample timestamp", "device", canonical, "channel", channel, "error", err)
			return 0, err
		}
		if ok && (!found || last < start) {
			start, found = last, true
		}
	}

	if !found {
		return FirstLogTimestamp, nil
	}
	return start, nil
}
