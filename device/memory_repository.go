package device

import (
	"context"
	"sort"
	"sync"

	"github.com/timgluz/luftspiegel/response"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	devices map[string]Device
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{devices: make(map[string]Device)}
}

func (r *MemoryRepository) List(_ context.Context, offset int, limit int) (*Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addresses := make([]string, 0, len(r.devices))
	for address := range r.devices {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	total := len(addresses)
	offset, limit, count := normalizePage(offset, limit, total)

	items := make([]Device, 0, count)
	for _, address := range addresses[offset : offset+count] {
		items = append(items, r.devices[address])
	}

	return &Collection{Items: items, Pagination: response.NewPagination(offset, limit, total)}, nil
}

func (r *MemoryRepository) Get(_ context.Context, address string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[address]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return &device, nil
}

func (r *MemoryRepository) Register(_ context.Context, device *Device) error {
	if device == nil {
		return ErrNilDevice
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[device.Address]; !ok {
		r.devices[device.Address] = *device
	}
	return nil
}

func (r *MemoryRepository) Rename(_ context.Context, device *Device) error {
	if device == nil {
		return ErrNilDevice
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[device.Address] = *device
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[address]; !ok {
		return ErrDeviceNotFound
	}
	delete(r.devices, address)
	return nil
}

func (r *MemoryRepository) IsReady() bool {
	return r.devices != nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
