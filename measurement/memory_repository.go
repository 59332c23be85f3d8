package measurement

import (
	"context"
	"sort"
	"sync"
)

type seriesKey struct {
	device  string
	channel Channel
}

// MemoryRepository keeps samples in process memory with the same idempotent insert
// semantics as the SQL repository.
type MemoryRepository struct {
	mu     sync.RWMutex
	series map[seriesKey]map[Epoch]float64
	closed bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		series: make(map[seriesKey]map[Epoch]float64),
	}
}

func (r *MemoryRepository) IsReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.closed
}

func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *MemoryRepository) InsertBatch(_ context.Context, batch Batch) (int, error) {
	if err := validateBatch(batch); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := seriesKey{batch.Device, batch.Channel}
	samples, ok := r.series[key]
	if !ok {
		samples = make(map[Epoch]float64, len(batch.Samples))
		r.series[key] = samples
	}

	inserted := 0
	for _, sample := range batch.Samples {
		if _, exists := samples[sample.Timestamp]; exists {
			continue
		}
		samples[sample.Timestamp] = sample.Value
		inserted++
	}

	return inserted, nil
}

func (r *MemoryRepository) GetTimeseries(_ context.Context, device string, channel Channel, period Period) (*Timeseries, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.series[seriesKey{device, channel}]
	samples := make([]Sample, 0, len(stored))
	for ts, value := range stored {
		if period.Contains(ts) {
			samples = append(samples, Sample{Timestamp: ts, Value: value})
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp < samples[j].Timestamp
	})

	return &Timeseries{
		Device:  device,
		Channel: channel,
		Unit:    channel.Unit(),
		Samples: samples,
		Start:   period.Start,
		End:     period.End,
	}, nil
}

func (r *MemoryRepository) LastTimestamp(_ context.Context, device string, channel Channel) (Epoch, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.series[seriesKey{device, channel}]
	var last Epoch
	found := false
	for ts := range stored {
		if !found || ts > last {
			last = ts
			found = true
		}
	}

	return last, found, nil
}

func (r *MemoryRepository) DeleteDevice(_ context.Context, device string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.series {
		if key.device == device {
			delete(r.series, key)
		}
	}
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
