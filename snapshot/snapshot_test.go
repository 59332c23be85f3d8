package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timgluz/luftspiegel/measurement"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "snapshot-aa-bb-cc-dd-ee-ff", Key("AA:BB:CC:DD:EE:FF"))
	assert.True(t, IsKey(Key("AA:BB:CC:DD:EE:FF")))
	assert.False(t, IsKey("devices"))
}

func TestMemoryRepositoryKeepsNewest(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	newer := measurement.NewSnapshot("AA:BB:CC:DD:EE:FF", 200, measurement.FormatDF5)
	newer.Add(measurement.Temperature, 21)
	older := measurement.NewSnapshot("AA:BB:CC:DD:EE:FF", 100, measurement.FormatDF5)
	older.Add(measurement.Temperature, 19)

	require.NoError(t, repo.Put(ctx, newer))
	require.NoError(t, repo.Put(ctx, older))

	cached, err := repo.Get(ctx, "AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Equal(t, measurement.Epoch(200), cached.Timestamp)

	assert.ErrorIs(t, repo.Put(ctx, nil), ErrNilSnapshot)
}

func TestMemoryRepositoryListAndDelete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, device := range []string{"AA:00:00:00:00:02", "AA:00:00:00:00:01"} {
		require.NoError(t, repo.Put(ctx, measurement.NewSnapshot(device, 1, measurement.FormatDF5)))
	}

	page, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "AA:00:00:00:00:01", page.Items[0].Device)
	assert.Equal(t, 2, page.Pagination.Total)

	require.NoError(t, repo.Delete(ctx, "AA:00:00:00:00:01"))
	_, err = repo.Get(ctx, "AA:00:00:00:00:01")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	page, err = repo.List(ctx, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
