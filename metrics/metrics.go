// Package metrics exposes decoder and ingestion counters to prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "luftspiegel"

// Metrics groups the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	FramesDecoded    *prometheus.CounterVec
	DecodeErrors     *prometheus.CounterVec
	ChannelsRejected *prometheus.CounterVec
	SamplesInserted  *prometheus.CounterVec
	LogRecords       *prometheus.CounterVec
	DownsampleSize   prometheus.Histogram
}

// New creates the collectors and registers them with reg. Collectors already registered
// with reg are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		FramesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_decoded_total",
			Help:      "Total number of decoded advertisement frames by data format",
		}, []string{"format"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of frames and log records that could not be decoded",
		}, []string{"reason"}),
		ChannelsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_rejected_total",
			Help:      "Total number of channel values dropped during decoding",
		}, []string{"channel", "reason"}),
		SamplesInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_inserted_total",
			Help:      "Total number of new samples written to the store",
		}, []string{"channel"}),
		LogRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_records_total",
			Help:      "Total number of bulk log records by outcome",
		}, []string{"outcome"}),
		DownsampleSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "downsample_points",
			Help:      "Number of points returned per plot series",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 10),
		}),
	}

	var err error
	if m.FramesDecoded, err = register(reg, m.FramesDecoded); err != nil {
		return nil, err
	}
	if m.DecodeErrors, err = register(reg, m.DecodeErrors); err != nil {
		return nil, err
	}
	if m.ChannelsRejected, err = register(reg, m.ChannelsRejected); err != nil {
		return nil, err
	}
	if m.SamplesInserted, err = register(reg, m.SamplesInserted); err != nil {
		return nil, err
	}
	if m.LogRecords, err = register(reg, m.LogRecords); err != nil {
		return nil, err
	}
	if m.DownsampleSize, err = register(reg, m.DownsampleSize); err != nil {
		return nil, err
	}

	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) FrameDecoded(format string) {
	if m == nil {
		return
	}
	m.FramesDecoded.WithLabelValues(format).Inc()
}

func (m *Metrics) DecodeError(reason string) {
	if m == nil {
		return
	}
	m.DecodeErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) ChannelRejected(channel, reason string) {
	if m == nil {
		return
	}
	m.ChannelsRejected.WithLabelValues(channel, reason).Inc()
}

func (m *Metrics) SamplesStored(channel string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SamplesInserted.WithLabelValues(channel).Add(float64(n))
}

func (m *Metrics) LogRecord(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LogRecords.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) Downsampled(points int) {
	if m == nil {
		return
	}
	m.DownsampleSize.Observe(float64(points))
}
