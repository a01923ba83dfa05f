package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Muhammadxon2oo7/agro/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReading(id, device string) *domain.SoilReading {
	return &domain.SoilReading{
		ID:        id,
		DeviceID:  device,
		Timestamp: "2024-03-15T09:31:27Z",
		Readings:  domain.Readings{Nitrogen: 65, Phosphorus: 42, Potassium: 120, PH: 6.8, Temperature: 22.5, Moisture: 38},
		Location:  &domain.Location{Latitude: 41.8781, Longitude: -87.6298},
	}
}

func TestMemoryRepository_AppendAndList(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newReading("1", "a")))
	require.NoError(t, repo.Append(ctx, newReading("2", "b")))
	require.NoError(t, repo.Append(ctx, newReading("3", "a")))

	all, err := repo.List(ctx, domain.ReadingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, "3", all[2].ID)

	onlyA, err := repo.List(ctx, domain.ReadingFilter{DeviceID: "a"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)
}

func TestMemoryRepository_DuplicateID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newReading("1", "a")))
	assert.ErrorIs(t, repo.Append(ctx, newReading("1", "b")), ErrDuplicateID)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryRepository_StoresCopy(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	in := newReading("1", "a")
	require.NoError(t, repo.Append(ctx, in))
	in.DeviceID = "changed"
	in.Location.Latitude = 0

	out, err := repo.List(ctx, domain.ReadingFilter{})
	require.NoError(t, err)
	assert.Equal(t, "a", out[0].DeviceID)
	assert.Equal(t, 41.8781, out[0].Location.Latitude)
}

func TestMemoryRepository_SnapshotIsolation(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newReading("1", "a")))
	snapshot, err := repo.List(ctx, domain.ReadingFilter{})
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, newReading("2", "a")))
	assert.Len(t, snapshot, 1)
}

func TestMemoryRepository_ConcurrentAppend(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	const writers = 8
	const perWriter = 250

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, repo.Append(ctx, newReading(fmt.Sprintf("%d-%d", w, i), "a")))
			}
		}(w)
	}

	// readers race with writers
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				list, err := repo.List(ctx, domain.ReadingFilter{})
				assert.NoError(t, err)
				for _, r := range list {
					assert.NotNil(t, r)
				}
			}
		}()
	}
	wg.Wait()

	all, err := repo.List(ctx, domain.ReadingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, writers*perWriter)

	seen := make(map[string]bool, len(all))
	for _, r := range all {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.Append(ctx, newReading("1", "a")), context.Canceled)
	_, err := repo.List(ctx, domain.ReadingFilter{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.HealthCheck(ctx), context.Canceled)
}
