package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
	"github.com/Muhammadxon2oo7/agro/pkg/utils"

	"go.uber.org/zap"
)

// SeedDemo stores n generated readings spread over deviceIDs and the last
// 30 days. Readings are stored oldest first and are not forwarded.
func (s *SoilService) SeedDemo(ctx context.Context, deviceIDs []string, n int, rng *rand.Rand) error {
	if n <= 0 || len(deviceIDs) == 0 {
		return nil
	}

	timeGenerator := utils.DefaultTimeGenerator(s.now(), rng)
	times := make([]time.Time, n)
	for i := range times {
		times[i] = timeGenerator.Generate()
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	for i, at := range times {
		reading := &domain.SoilReading{
			ID:        s.newID(),
			DeviceID:  deviceIDs[rng.Intn(len(deviceIDs))],
			Timestamp: at.UTC().Format(domain.TimestampLayout),
			Readings:  utils.GenerateRandomReadings(rng),
		}
		if err := s.repo.Append(ctx, reading); err != nil {
			return fmt.Errorf("failed to seed reading %d: %w", i, err)
		}
	}

	s.logger.Info("[SoilService] Demo readings seeded",
		zap.Int("count", n),
		zap.Int("devices", len(deviceIDs)))
	return nil
}
