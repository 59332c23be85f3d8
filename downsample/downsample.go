// Package downsample reduces long time series to a bounded number of points while keeping
// the extremes of every time bucket.
package downsample

import (
	"errors"
	"fmt"
	"time"

	"github.com/timgluz/luftspiegel/measurement"
)

// DefaultMaxPoints is the point budget of a plot when the caller does not give one.
const DefaultMaxPoints = 500

var ErrUnordered = errors.New("samples are not strictly ascending by timestamp")

// Result is a downsampled series. BucketDuration is zero when no reduction happened.
type Result struct {
	Samples        []measurement.Sample `json:"samples"`
	Aggregated     bool                 `json:"aggregated"`
	BucketDuration time.Duration        `json:"bucket_duration"`
}

// Reduce returns at most maxPoints samples. When the input is longer than that, the time span
// is split into maxPoints/2 equal buckets and every bucket contributes its minimum and
// maximum in timestamp order. The last bucket absorbs the rounding remainder of the span.
// A maxPoints below one is treated as one.
func Reduce(samples []measurement.Sample, maxPoints int) (Result, error) {
	if err := checkOrder(samples); err != nil {
		return Result{}, err
	}

	maxPoints = max(maxPoints, 1)
	if len(samples) <= maxPoints {
		return Result{Samples: samples}, nil
	}

	buckets := max(maxPoints/2, 1)
	first := samples[0].Timestamp
	span := int64(samples[len(samples)-1].Timestamp - first)
	width := max(span/int64(buckets), 1)

	out := make([]measurement.Sample, 0, maxPoints)
	current := -1
	var lo, hi int

	flush := func() {
		if current < 0 {
			return
		}
		out = appendExtremes(out, samples, lo, hi, maxPoints == 1)
	}

	for i, s := range samples {
		bucket := int(min(int64(s.Timestamp-first)/width, int64(buckets-1)))
		if bucket != current {
			flush()
			current, lo, hi = bucket, i, i
			continue
		}

		if s.Value < samples[lo].Value {
			lo = i
		}
		if s.Value > samples[hi].Value {
			hi = i
		}
	}
	flush()

	return Result{
		Samples:        out,
		Aggregated:     true,
		BucketDuration: time.Duration(width) * time.Second,
	}, nil
}

func appendExtremes(out, samples []measurement.Sample, lo, hi int, maxOnly bool) []measurement.Sample {
	switch {
	case maxOnly || lo == hi:
		return append(out, samples[hi])
	case lo < hi:
		return append(out, samples[lo], samples[hi])
	default:
		return append(out, samples[hi], samples[lo])
	}
}

func checkOrder(samples []measurement.Sample) error {
	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp <= samples[i-1].Timestamp {
			return fmt.Errorf("%w: timestamp %d at index %d follows %d", ErrUnordered,
				samples[i].Timestamp, i, samples[i-1].Timestamp)
		}
	}
	return nil
}
