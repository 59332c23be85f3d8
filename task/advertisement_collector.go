package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/timgluz/luftspiegel/airquality"
	"github.com/timgluz/luftspiegel/decoder"
	"github.com/timgluz/luftspiegel/device"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/metrics"
	"github.com/timgluz/luftspiegel/snapshot"
)

// DefaultVendorFilter is the display name fragment of the devices whose frames are decoded.
const DefaultVendorFilter = device.Vendor

// Advertisement is one manufacturer data frame as seen by a scanner.
type Advertisement struct {
	Address    string            `json:"address"`
	Name       string            `json:"name"`
	Data       []byte            `json:"data"`
	ReceivedAt measurement.Epoch `json:"received_at"`
}

type AdvertisementCollector struct {
	measurementRepo measurement.Repository
	deviceRepo      device.Repository
	snapshotRepo    snapshot.Repository
	metrics         *metrics.Metrics

	vendorFilter string
	logger       *slog.Logger
}

func NewAdvertisementCollector(
	measurementRepo measurement.Repository,
	deviceRepo device.Repository,
	snapshotRepo snapshot.Repository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AdvertisementCollector {
	return &AdvertisementCollector{
		measurementRepo: measurementRepo,
		deviceRepo:      deviceRepo,
		snapshotRepo:    snapshotRepo,
		metrics:         m,
		vendorFilter:    DefaultVendorFilter,
		logger:          logger,
	}
}

// WithVendorFilter replaces the display name filter; an empty filter accepts every device.
func (c *AdvertisementCollector) WithVendorFilter(filter string) *AdvertisementCollector {
	c.vendorFilter = filter
	return c
}

// Collect decodes and stores one advertisement. It returns a nil snapshot without error when
// the advertisement is not from a matching device or carries an empty frame.
func (c *AdvertisementCollector) Collect(ctx context.Context, adv Advertisement) (*measurement.Snapshot, error) {
	if c.vendorFilter != "" && !strings.Contains(adv.Name, c.vendorFilter) {
		c.logger.Debug("Ignoring advertisement of foreign device", "address", adv.Address, "name", adv.Name)
		return nil, nil
	}

	ts := adv.ReceivedAt
	if ts <= 0 {
		ts = measurement.CurrentEpoch()
	}

	snap, err := decoder.DecodeFrame(adv.Data, adv.Address, ts)
	if err != nil {
		c.metrics.DecodeError(decodeErrorLabel(err))
		if errors.Is(err, decoder.ErrEmptyFrame) {
			c.logger.Debug("Skipping empty frame", "address", adv.Address)
			return nil, nil
		}

		c.logger.Warn("Failed to decode advertisement", "address", adv.Address, "error", err)
		return nil, err
	}

	c.metrics.FrameDecoded(string(snap.Format))
	recordRejections(c.metrics, c.logger, snap)

	if score, ok := airquality.FromSnapshot(snap).Value(); ok {
		snap.AirQualityScore = &score
	}

	var errs []error
	if d, err := device.New(snap.Device, adv.Name); err == nil {
		if err := c.deviceRepo.Register(ctx, d); err != nil {
			c.logger.Error("Failed to register device", "device", snap.Device, "error", err)
			errs = append(errs, err)
		}
	}

	inserted, err := storeBatches(ctx, c.measurementRepo, c.metrics, c.logger, measurement.Partition([]*measurement.Snapshot{snap}))
	if err != nil {
		errs = append(errs, err)
	}

	if err := c.snapshotRepo.Put(ctx, snap); err != nil {
		c.logger.Error("Failed to cache snapshot", "device", snap.Device, "error", err)
		errs = append(errs, err)
	}

	c.logger.Debug("Advertisement collected", "device", snap.Device, "format", snap.Format,
		"channels", len(snap.Measurements), "inserted", sum(inserted))
	return snap, errors.Join(errs...)
}

// storeBatches inserts every batch, continuing past store failures. It returns the number of
// new samples per channel and the joined store errors.
func storeBatches(
	ctx context.Context,
	repo measurement.Repository,
	m *metrics.Metrics,
	logger *slog.Logger,
	batches []measurement.Batch,
) (map[measurement.Channel]int, error) {
	inserted := make(map[measurement.Channel]int, len(batches))

	var errs []error
	for _, batch := range batches {
		n, err := repo.InsertBatch(ctx, batch)
		if err != nil {
			logger.Error("Failed to store sample batch", "device", batch.Device, "channel", batch.Channel,
				"samples", len(batch.Samples), "error", err)
			errs = append(errs, err)
			continue
		}

		inserted[batch.Channel] += n
		m.SamplesStored(string(batch.Channel), n)
	}

	return inserted, errors.Join(errs...)
}

func recordRejections(m *metrics.Metrics, logger *slog.Logger, snap *measurement.Snapshot) {
	for _, rejection := range snap.Rejected {
		logger.Debug("Dropped channel value", "device", snap.Device, "channel", rejection.Channel, "reason", rejection.Reason)
		m.ChannelRejected(string(rejection.Channel), rejectionLabel(rejection.Reason))
	}
}

func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, measurement.ErrSentinel):
		return "no_reading"
	case errors.Is(err, measurement.ErrInvalidChannel):
		return "out_of_range"
	default:
		return "other"
	}
}

func decodeErrorLabel(err error) string {
	switch {
	case errors.Is(err, decoder.ErrEmptyFrame):
		return "empty_frame"
	case errors.Is(err, decoder.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, decoder.ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, decoder.ErrInvalidAddress):
		return "invalid_address"
	default:
		return "other"
	}
}

func sum(counts map[measurement.Channel]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
