package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
	"github.com/Muhammadxon2oo7/agro/internal/metrics"
)

// MemoryRepository keeps readings in insertion order for the lifetime of
// the process. Appends are serialized; List returns a snapshot.
type MemoryRepository struct {
	mu       sync.RWMutex
	readings []*domain.SoilReading
	ids      map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		ids: make(map[string]struct{}),
	}
}

var ErrDuplicateID = errors.New("reading id already stored")

func (r *MemoryRepository) Append(ctx context.Context, reading *domain.SoilReading) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := *reading
	if reading.Location != nil {
		loc := *reading.Location
		stored.Location = &loc
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[stored.ID]; ok {
		return ErrDuplicateID
	}
	r.ids[stored.ID] = struct{}{}
	r.readings = append(r.readings, &stored)
	metrics.StoredReadings.Set(float64(len(r.readings)))

	return nil
}

func (r *MemoryRepository) List(ctx context.Context, filter domain.ReadingFilter) ([]*domain.SoilReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	snapshot := make([]*domain.SoilReading, len(r.readings))
	copy(snapshot, r.readings)
	r.mu.RUnlock()

	if filter.IsZero() {
		return snapshot, nil
	}
	return filter.Apply(snapshot), nil
}

func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.readings)
}

func (r *MemoryRepository) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemoryRepository) Close() {}
