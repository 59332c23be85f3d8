// Package snapshot caches the latest decoded snapshot of every device.
package snapshot

import (
	"context"
	"errors"
	"strings"

	"github.com/gosimple/slug"

	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/response"
)

const (
	KeyPrefix     = "snapshot"
	DefaultLimit  = 100
	DefaultOffset = 0
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrNilSnapshot      = errors.New("snapshot cannot be nil")
)

type Collection struct {
	Items      []measurement.Snapshot `json:"items"`
	Pagination response.Pagination    `json:"pagination"`
}

type Repository interface {
	List(ctx context.Context, offset int, limit int) (*Collection, error)

	Get(ctx context.Context, device string) (*measurement.Snapshot, error)
	// Put replaces the cached snapshot unless the cached one is newer.
	Put(ctx context.Context, snap *measurement.Snapshot) error
	Delete(ctx context.Context, device string) error

	IsReady() bool
	Close() error
}

// Key returns the cache key of a device, e.g. "snapshot-aa-bb-cc-dd-ee-ff".
func Key(device string) string {
	return slug.Make(strings.Join([]string{KeyPrefix, device}, "-"))
}

// IsKey reports whether a cache key was produced by Key.
func IsKey(key string) bool {
	return strings.HasPrefix(key, KeyPrefix+"-")
}

// Supersedes reports whether next should replace the cached snapshot.
func Supersedes(next, cached *measurement.Snapshot) bool {
	return cached == nil || next.Timestamp >= cached.Timestamp
}
