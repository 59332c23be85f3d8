package snapshot

import (
	"context"
	"sort"
	"sync"

	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/response"
)

type MemoryRepository struct {
	mu        sync.RWMutex
	snapshots map[string]measurement.Snapshot
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{snapshots: make(map[string]measurement.Snapshot)}
}

func (r *MemoryRepository) List(_ context.Context, offset int, limit int) (*Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.snapshots))
	for key := range r.snapshots {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	total := len(keys)
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 || offset > total {
		offset = min(max(offset, 0), total)
	}
	end := min(offset+limit, total)

	items := make([]measurement.Snapshot, 0, end-offset)
	for _, key := range keys[offset:end] {
		items = append(items, r.snapshots[key])
	}

	return &Collection{Items: items, Pagination: response.NewPagination(offset, limit, total)}, nil
}

func (r *MemoryRepository) Get(_ context.Context, device string) (*measurement.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.snapshots[Key(device)]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return &snap, nil
}

func (r *MemoryRepository) Put(_ context.Context, snap *measurement.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key(snap.Device)
	if cached, ok := r.snapshots[key]; ok && !Supersedes(snap, &cached) {
		return nil
	}
	r.snapshots[key] = *snap
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, device string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.snapshots, Key(device))
	return nil
}

func (r *MemoryRepository) IsReady() bool {
	return r.snapshots != nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
