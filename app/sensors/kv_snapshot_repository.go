package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spinframework/spin-go-sdk/v2/kv"

	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/response"
	"github.com/timgluz/luftspiegel/snapshot"
)

var ErrKVStoreNotAvailable = errors.New("Spin KV store is not available")

// SpinKVSnapshotRepository caches the newest snapshot of every device in a Spin KV store.
type SpinKVSnapshotRepository struct {
	db     *kv.Store
	logger *slog.Logger
}

func NewSpinKVSnapshotRepository(storeName string, logger *slog.Logger) (*SpinKVSnapshotRepository, error) {
	db, err := kv.OpenStore(storeName)
	if err != nil {
		logger.Error("Failed to open Spin KV store", "store", storeName, "error", err)
		return nil, err
	}

	return &SpinKVSnapshotRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *SpinKVSnapshotRepository) IsReady() bool {
	if r.logger == nil {
		return false
	}

	if r.db == nil {
		r.logger.Error("Spin KV store is not initialized")
		return false
	}

	return true
}

func (r *SpinKVSnapshotRepository) Close() error {
	if r.db == nil {
		return nil
	}

	r.db.Close()
	r.logger.Debug("Spin KV store closed")
	return nil
}

func (r *SpinKVSnapshotRepository) List(ctx context.Context, offset int, limit int) (*snapshot.Collection, error) {
	if !r.IsReady() {
		return nil, ErrKVStoreNotAvailable
	}

	keys, err := r.db.GetKeys()
	if err != nil {
		r.logger.Error("Failed to list Spin KV keys", "error", err)
		return nil, err
	}

	snapshotKeys := keys[:0]
	for _, key := range keys {
		if snapshot.IsKey(key) {
			snapshotKeys = append(snapshotKeys, key)
		}
	}
	sort.Strings(snapshotKeys)

	total := len(snapshotKeys)
	offset = min(max(offset, 0), total)
	if limit <= 0 {
		limit = response.DefaultPaginationLimit
	}
	end := min(offset+limit, total)

	items := make([]measurement.Snapshot, 0, end-offset)
	for _, key := range snapshotKeys[offset:end] {
		snap, err := r.get(key)
		if err != nil {
			return nil, err
		}
		items = append(items, *snap)
	}

	return &snapshot.Collection{Items: items, Pagination: response.NewPagination(offset, limit, total)}, nil
}

func (r *SpinKVSnapshotRepository) Get(ctx context.Context, device string) (*measurement.Snapshot, error) {
	if !r.IsReady() {
		return nil, ErrKVStoreNotAvailable
	}

	return r.get(snapshot.Key(device))
}

func (r *SpinKVSnapshotRepository) get(key string) (*measurement.Snapshot, error) {
	exists, err := r.db.Exists(key)
	if err != nil {
		r.logger.Error("Failed to look up snapshot", "key", key, "error", err)
		return nil, err
	}
	if !exists {
		return nil, snapshot.ErrSnapshotNotFound
	}

	jsonBlob, err := r.db.Get(key)
	if err != nil {
		r.logger.Error("Failed to get snapshot", "key", key, "error", err)
		return nil, err
	}

	snap := &measurement.Snapshot{}
	if err := json.Unmarshal(jsonBlob, snap); err != nil {
		r.logger.Error("Failed to unmarshal snapshot JSON", "key", key, "error", err)
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
	}
	return snap, nil
}

// Put stores snap unless the cached snapshot of the device is newer.
func (r *SpinKVSnapshotRepository) Put(ctx context.Context, snap *measurement.Snapshot) error {
	if !r.IsReady() {
		return ErrKVStoreNotAvailable
	}
	if snap == nil {
		return snapshot.ErrNilSnapshot
	}

	key := snapshot.Key(snap.Device)
	cached, err := r.get(key)
	if err != nil && !errors.Is(err, snapshot.ErrSnapshotNotFound) {
		return err
	}
	if cached != nil && !snapshot.Supersedes(snap, cached) {
		r.logger.Debug("Keeping newer cached snapshot", "device", snap.Device, "cached", cached.Timestamp)
		return nil
	}

	jsonBlob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.db.Set(key, jsonBlob); err != nil {
		r.logger.Error("Failed to store snapshot in Spin KV store", "key", key, "error", err)
		return fmt.Errorf("failed to store snapshot %s: %w", key, err)
	}
	return nil
}

func (r *SpinKVSnapshotRepository) Delete(ctx context.Context, device string) error {
	if !r.IsReady() {
		return ErrKVStoreNotAvailable
	}

	key := snapshot.Key(device)
	if err := r.db.Delete(key); err != nil {
		r.logger.Error("Failed to delete snapshot from Spin KV store", "key", key, "error", err)
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

var _ snapshot.Repository = (*SpinKVSnapshotRepository)(nil)
