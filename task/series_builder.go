package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/timgluz/luftspiegel/airquality"
	"github.com/timgluz/luftspiegel/downsample"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/metrics"
)

// DefaultPeriod is the ISO 8601 duration plotted when a request names none.
const DefaultPeriod = "P1D"

type SeriesRequest struct {
	Device    string
	Channel   measurement.Channel
	Period    measurement.Period
	MaxPoints int
}

// NewSeriesRequest builds a request for the period of the given ISO 8601 length ending at until.
func NewSeriesRequest(device string, channel measurement.Channel, period string, until measurement.Epoch) (SeriesRequest, error) {
	if period == "" {
		period = DefaultPeriod
	}

	p, err := measurement.NewFromISO8601Duration(period, until)
	if err != nil {
		return SeriesRequest{}, fmt.Errorf("invalid period %q: %w", period, err)
	}

	return SeriesRequest{
		Device:    device,
		Channel:   channel,
		Period:    *p,
		MaxPoints: downsample.DefaultMaxPoints,
	}, nil
}

// Plot is a downsampled channel series ready to be drawn.
type Plot struct {
	Device         string               `json:"device"`
	Channel        measurement.Channel  `json:"channel"`
	Unit           string               `json:"unit"`
	Period         measurement.Period   `json:"period"`
	Samples        []measurement.Sample `json:"samples"`
	Aggregated     bool                 `json:"aggregated"`
	BucketDuration time.Duration        `json:"bucket_duration"`
}

type SeriesBuilder struct {
	measurementRepo measurement.Repository
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

func NewSeriesBuilder(measurementRepo measurement.Repository, m *metrics.Metrics, logger *slog.Logger) *SeriesBuilder {
	return &SeriesBuilder{measurementRepo: measurementRepo, metrics: m, logger: logger}
}

// Build loads the requested series and reduces it to at most req.MaxPoints points. The air
// quality score is not stored; it is computed from the PM2.5 and CO2 series of the period.
func (b *SeriesBuilder) Build(ctx context.Context, req SeriesRequest) (*Plot, error) {
	device, err := measurement.ParseAddress(req.Device)
	if err != nil {
		return nil, err
	}
	if !req.Period.IsValid() {
		return nil, measurement.ErrInvalidPeriod
	}

	var samples []measurement.Sample
	switch {
	case req.Channel == measurement.AirQualityScore:
		samples, err = b.scoreSamples(ctx, device, req.Period)
	case req.Channel.IsStored():
		var series *measurement.Timeseries
		series, err = b.measurementRepo.GetTimeseries(ctx, device, req.Channel, req.Period)
		if series != nil {
			samples = series.Samples
		}
	default:
		return nil, fmt.Errorf("%w: %s", measurement.ErrUnknownChannel, req.Channel)
	}
	if err != nil {
		b.logger.Error("Failed to load series", "device", device, "channel", req.Channel, "error", err)
		return nil, err
	}

	maxPoints := req.MaxPoints
	if maxPoints == 0 {
		maxPoints = downsample.DefaultMaxPoints
	}

	result, err := downsample.Reduce(samples, maxPoints)
	if err != nil {
		b.logger.Error("Failed to downsample series", "device", device, "channel", req.Channel, "error", err)
		return nil, err
	}
	b.metrics.Downsampled(len(result.Samples))

	b.logger.Debug("Series built", "device", device, "channel", req.Channel,
		"samples", len(samples), "points", len(result.Samples), "aggregated", result.Aggregated)
	return &Plot{
		Device:         device,
		Channel:        req.Channel,
		Unit:           req.Channel.Unit(),
		Period:         req.Period,
		Samples:        result.Samples,
		Aggregated:     result.Aggregated,
		BucketDuration: result.BucketDuration,
	}, nil
}

func (b *SeriesBuilder) scoreSamples(ctx context.Context, device string, period measurement.Period) ([]measurement.Sample, error) {
	pm25, err := b.measurementRepo.GetTimeseries(ctx, device, measurement.PM25, period)
	if err != nil {
		return nil, err
	}

	co2, err := b.measurementRepo.GetTimeseries(ctx, device, measurement.CO2, period)
	if err != nil {
		return nil, err
	}

	return airquality.Samples(airquality.CalculateSeries(pm25.Samples, co2.Samples)), nil
}
