package utils

import (
	"math/rand"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/domain"

	"github.com/google/uuid"
)

// NewID returns a time-ordered UUIDv7 string. It falls back to a random
// v4 if the clock source fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// metricRange is the spread used for generated values, centred on the
// figures of the dashboard's sample table.
type metricRange struct {
	min, max float64
}

var demoRanges = map[domain.Metric]metricRange{
	domain.MetricNitrogen:    {55, 70},
	domain.MetricPhosphorus:  {38, 46},
	domain.MetricPotassium:   {110, 125},
	domain.MetricPH:          {6.2, 7.2},
	domain.MetricTemperature: {18, 26},
	domain.MetricMoisture:    {30, 42},
}

// GenerateRandomReadings produces plausible metric values.
func GenerateRandomReadings(rng *rand.Rand) domain.Readings {
	value := func(m domain.Metric) float64 {
		r := demoRanges[m]
		v := r.min + rng.Float64()*(r.max-r.min)
		return float64(int(v*10)) / 10
	}
	return domain.Readings{
		Nitrogen:    value(domain.MetricNitrogen),
		Phosphorus:  value(domain.MetricPhosphorus),
		Potassium:   value(domain.MetricPotassium),
		PH:          value(domain.MetricPH),
		Temperature: value(domain.MetricTemperature),
		Moisture:    value(domain.MetricMoisture),
	}
}

type TimeGenerator struct {
	minTime time.Time
	maxTime time.Time
	rng     *rand.Rand
}

func NewTimeGenerator(min, max time.Time, rng *rand.Rand) *TimeGenerator {
	return &TimeGenerator{
		minTime: min,
		maxTime: max,
		rng:     rng,
	}
}

func (tg *TimeGenerator) Generate() time.Time {
	delta := tg.maxTime.Sub(tg.minTime)
	if delta <= 0 {
		return tg.minTime
	}
	randomDuration := time.Duration(tg.rng.Int63n(int64(delta)))
	return tg.minTime.Add(randomDuration)
}

// DefaultTimeGenerator covers the last 30 days
func DefaultTimeGenerator(now time.Time, rng *rand.Rand) *TimeGenerator {
	return NewTimeGenerator(now.AddDate(0, 0, -30), now, rng)
}
