package measurement

import (
	"context"
	"errors"
)

var ErrNilBatch = errors.New("batch cannot be empty")

type Repository interface {
	// InsertBatch stores the samples that are not yet present for (device, channel, timestamp)
	// and returns how many were new.
	InsertBatch(ctx context.Context, batch Batch) (int, error)
	// GetTimeseries returns the samples within period in ascending timestamp order.
	GetTimeseries(ctx context.Context, device string, channel Channel, period Period) (*Timeseries, error)
	// LastTimestamp returns the newest stored timestamp for a device channel.
	LastTimestamp(ctx context.Context, device string, channel Channel) (Epoch, bool, error)
	DeleteDevice(ctx context.Context, device string) error

	// IsReady checks if the repository is ready for operations.
	IsReady() bool
	Close() error
}

func validateBatch(batch Batch) error {
	if batch.Device == "" || len(batch.Samples) == 0 {
		return ErrNilBatch
	}
	if !batch.Channel.IsStored() {
		return ErrUnknownChannel
	}
	return nil
}
