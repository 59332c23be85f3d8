package device

import (
	"context"
	"errors"
)

const (
	DefaultLimit  = 100
	DefaultOffset = 0
)

var (
	ErrDeviceNotFound     = errors.New("device not found")
	ErrNilDevice          = errors.New("device cannot be nil")
	ErrRepositoryNotReady = errors.New("device repository is not ready")
)

type Repository interface {
	List(ctx context.Context, offset int, limit int) (*Collection, error)

	Get(ctx context.Context, address string) (*Device, error)
	// Register adds the device unless it is already known; a known device keeps its name.
	Register(ctx context.Context, device *Device) error
	// Rename sets the display name, registering the device when needed.
	Rename(ctx context.Context, device *Device) error
	Delete(ctx context.Context, address string) error

	IsReady() bool
	Close() error
}

// StreamDevices pages through the registry and emits every device until the registry is
// exhausted or ctx is done.
func StreamDevices(ctx context.Context, repo Repository, offset, limit int) (<-chan Device, <-chan error) {
	outCh := make(chan Device)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		if limit <= 0 {
			limit = DefaultLimit
		}
		if offset < 0 {
			offset = DefaultOffset
		}

		for {
			collection, err := repo.List(ctx, offset, limit)
			if err != nil {
				errCh <- err
				return
			}

			if len(collection.Items) == 0 {
				return
			}

			for _, item := range collection.Items {
				select {
				case outCh <- item:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}

			if len(collection.Items) < limit {
				return
			}
			offset += limit
		}
	}()

	return outCh, errCh
}

// normalizePage applies the paging defaults and returns the offset and limit of the page
// together with the number of items it holds.
func normalizePage(offset, limit, total int) (int, int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = DefaultOffset
	}
	if offset > total {
		offset = total
	}
	return offset, limit, min(limit, total-offset)
}
