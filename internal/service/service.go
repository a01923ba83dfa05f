package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
	"github.com/Muhammadxon2oo7/agro/internal/metrics"
	"github.com/Muhammadxon2oo7/agro/internal/validate"
	"github.com/Muhammadxon2oo7/agro/pkg/utils"

	"go.uber.org/zap"
)

type Repository interface {
	Append(ctx context.Context, reading *domain.SoilReading) error
	List(ctx context.Context, filter domain.ReadingFilter) ([]*domain.SoilReading, error)
	HealthCheck(ctx context.Context) error
}

// Publisher receives every accepted reading. Enqueue must not block.
type Publisher interface {
	Enqueue(reading *domain.SoilReading) bool
}

type SoilService struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger

	newID func() string
	now   func() time.Time
}

type Option func(*SoilService)

// WithPublisher forwards accepted readings to p.
func WithPublisher(p Publisher) Option {
	return func(s *SoilService) { s.publisher = p }
}

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SoilService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *SoilService) { s.newID = newID }
}

func NewSoilService(repo Repository, logger *zap.Logger, opts ...Option) *SoilService {
	s := &SoilService{
		repo:   repo,
		logger: logger,
		newID:  utils.NewID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SoilService) CheckStorage(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

// Submit validates a raw JSON submission, assigns it an id and stores it.
func (s *SoilService) Submit(ctx context.Context, raw []byte) (*domain.SoilReading, error) {
	reading, err := validate.ValidatePayload(raw, s.now())
	if err != nil {
		s.reject(err, raw)
		return nil, err
	}
	return s.store(ctx, reading)
}

func (s *SoilService) store(ctx context.Context, reading *domain.SoilReading) (*domain.SoilReading, error) {
	if err := ctx.Err(); err != nil {
		s.logger.Warn("[SoilService] Submission cancelled by context",
			zap.String("device_id", reading.DeviceID))
		return nil, err
	}

	reading.ID = s.newID()

	if err := s.repo.Append(ctx, reading); err != nil {
		metrics.ReadingsRejected.WithLabelValues(metrics.ReasonStorage).Inc()
		s.logger.Error("[SoilService] Failed to store reading",
			zap.String("id", reading.ID),
			zap.String("device_id", reading.DeviceID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to store reading: %w", err)
	}

	metrics.ReadingsAccepted.Inc()
	s.logger.Info("[SoilService] Reading stored",
		zap.String("id", reading.ID),
		zap.String("device_id", reading.DeviceID),
		zap.String("timestamp", reading.Timestamp))

	if s.publisher != nil {
		s.publisher.Enqueue(reading)
	}

	return reading, nil
}

func (s *SoilService) reject(err error, raw []byte) {
	var missing *domain.MissingMetricsError
	reason := metrics.ReasonMalformed
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		reason = metrics.ReasonMissingFields
	case errors.As(err, &missing):
		reason = metrics.ReasonMissingMetrics
	}
	metrics.ReadingsRejected.WithLabelValues(reason).Inc()

	s.logger.Warn("[SoilService] Submission rejected",
		zap.String("reason", reason),
		zap.String("payload", validate.Truncate(raw, 256)),
		zap.Error(err))
}

// ListReadings returns stored readings matching filter in insertion order.
func (s *SoilService) ListReadings(ctx context.Context, filter domain.ReadingFilter) ([]*domain.SoilReading, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	readings, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("[SoilService] Failed to list readings",
			zap.String("device_id", filter.DeviceID),
			zap.Error(err))
		return nil, err
	}
	if readings == nil {
		readings = []*domain.SoilReading{}
	}
	return readings, nil
}

// Summarize aggregates every reading of deviceID, or of all devices when
// deviceID is empty. It returns domain.ErrNotFound if nothing is stored.
func (s *SoilService) Summarize(ctx context.Context, deviceID string) (*domain.ReadingSummary, error) {
	readings, err := s.ListReadings(ctx, domain.ReadingFilter{DeviceID: deviceID})
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("no readings for %q: %w", deviceID, domain.ErrNotFound)
	}

	latest := readings[len(readings)-1]
	summary := &domain.ReadingSummary{
		DeviceID:        deviceID,
		Count:           len(readings),
		LatestTimestamp: latest.Timestamp,
		Metrics:         make(map[domain.Metric]domain.MetricSummary, len(domain.RequiredMetrics)),
	}

	for _, m := range domain.RequiredMetrics {
		values := make([]float64, len(readings))
		for i, r := range readings {
			values[i] = r.Readings.Value(m)
		}
		summary.Metrics[m] = SummarizeValues(values)
	}
	return summary, nil
}

// SummarizeValues describes a series ordered oldest first. values must not
// be empty.
func SummarizeValues(values []float64) domain.MetricSummary {
	ms := domain.MetricSummary{
		Latest: values[len(values)-1],
		Min:    values[0],
		Max:    values[0],
	}

	var sum float64
	for _, v := range values {
		if v < ms.Min {
			ms.Min = v
		}
		if v > ms.Max {
			ms.Max = v
		}
		sum += v
	}
	ms.Average = sum / float64(len(values))

	if len(values) > 1 {
		prev := values[len(values)-2]
		ms.Previous = &prev
		if prev != 0 {
			change := (ms.Latest - prev) / prev * 100
			ms.ChangePercent = &change
		}
	}
	return ms
}
