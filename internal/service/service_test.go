package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
	"github.com/Muhammadxon2oo7/agro/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Append(ctx context.Context, reading *domain.SoilReading) error {
	args := m.Called(ctx, reading)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, filter domain.ReadingFilter) ([]*domain.SoilReading, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SoilReading), args.Error(1)
}

func (m *MockRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Enqueue(reading *domain.SoilReading) bool {
	args := m.Called(reading)
	return args.Bool(0)
}

var fixedNow = time.Date(2024, 3, 15, 9, 31, 27, 123_000_000, time.UTC)

func newTestService(repo Repository, opts ...Option) *SoilService {
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "id-1" }),
	}, opts...)
	return NewSoilService(repo, zap.NewNop(), opts...)
}

const validBody = `{"deviceId":"DEV-001","timestamp":"2024-03-15T09:31:27.000Z",
	"readings":{"nitrogen":65,"phosphorus":42,"potassium":120,"ph":6.8,"temperature":22.5,"moisture":38}}`

func TestSoilService_Submit_Success(t *testing.T) {
	mockRepo := new(MockRepository)
	mockPub := new(MockPublisher)
	svc := newTestService(mockRepo, WithPublisher(mockPub))

	mockRepo.On("Append", mock.Anything, mock.MatchedBy(func(r *domain.SoilReading) bool {
		return r.ID == "id-1" && r.DeviceID == "DEV-001" && r.Readings.PH == 6.8
	})).Return(nil)
	mockPub.On("Enqueue", mock.AnythingOfType("*domain.SoilReading")).Return(true)

	reading, err := svc.Submit(context.Background(), []byte(validBody))

	require.NoError(t, err)
	assert.Equal(t, "id-1", reading.ID)
	assert.Equal(t, "2024-03-15T09:31:27.000Z", reading.Timestamp)
	mockRepo.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestSoilService_Submit_DefaultsTimestamp(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo)
	mockRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

	body := `{"deviceId":"d","readings":{"nitrogen":0,"phosphorus":0,"potassium":0,"ph":0,"temperature":0,"moisture":0}}`
	reading, err := svc.Submit(context.Background(), []byte(body))

	require.NoError(t, err)
	assert.Equal(t, "2024-03-15T09:31:27.123Z", reading.Timestamp)
}

func TestSoilService_Submit_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, err error)
	}{
		{"missing device", `{"readings":{}}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrMissingFields)
		}},
		{"missing metrics", `{"deviceId":"d","readings":{"nitrogen":1}}`, func(t *testing.T, err error) {
			var mm *domain.MissingMetricsError
			require.ErrorAs(t, err, &mm)
			assert.Equal(t, "phosphorus, potassium, ph, temperature, moisture", mm.List())
		}},
		{"malformed", `{"deviceId":`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrMalformedPayload)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			svc := newTestService(mockRepo)

			_, err := svc.Submit(context.Background(), []byte(tt.body))

			tt.check(t, err)
			mockRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		})
	}
}

func TestSoilService_Submit_StorageError(t *testing.T) {
	mockRepo := new(MockRepository)
	mockPub := new(MockPublisher)
	svc := newTestService(mockRepo, WithPublisher(mockPub))

	dbErr := errors.New("disk full")
	mockRepo.On("Append", mock.Anything, mock.Anything).Return(dbErr)

	_, err := svc.Submit(context.Background(), []byte(validBody))

	assert.ErrorIs(t, err, dbErr)
	mockPub.AssertNotCalled(t, "Enqueue", mock.Anything)
}

func TestSoilService_Submit_CancelledContext(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, []byte(validBody))

	assert.ErrorIs(t, err, context.Canceled)
	mockRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSoilService_Submit_StoresTimestampVerbatim(t *testing.T) {
	repo := memory.NewMemoryRepository()
	svc := newTestService(repo)

	body := `{"deviceId":"d","timestamp":" 2024-03-15T09:31:27Z ",
		"readings":{"nitrogen":1,"phosphorus":1,"potassium":1,"ph":1,"temperature":1,"moisture":1}}`
	got, err := svc.Submit(context.Background(), []byte(body))
	require.NoError(t, err)
	assert.Equal(t, " 2024-03-15T09:31:27Z ", got.Timestamp)

	stored, err := svc.ListReadings(context.Background(), domain.ReadingFilter{DeviceID: "d"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, " 2024-03-15T09:31:27Z ", stored[0].Timestamp)
}

func TestSoilService_ListReadings(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo)

	filter := domain.ReadingFilter{DeviceID: "d", Limit: 5}
	mockRepo.On("List", mock.Anything, filter).Return(nil, nil).Once()

	got, err := svc.ListReadings(context.Background(), filter)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = svc.ListReadings(context.Background(), domain.ReadingFilter{Limit: -1})
	var fe *domain.InvalidFilterError
	assert.ErrorAs(t, err, &fe)

	mockRepo.AssertExpectations(t)
}

func TestSoilService_Summarize(t *testing.T) {
	repo := memory.NewMemoryRepository()
	n := 0
	svc := NewSoilService(repo, zap.NewNop(), WithIDGenerator(func() string {
		n++
		return string(rune('a' + n))
	}))
	ctx := context.Background()

	for _, body := range []string{
		`{"deviceId":"DEV-001","timestamp":"2024-03-15T09:31:27Z","readings":` +
			`{"nitrogen":60,"phosphorus":0,"potassium":110,"ph":6.0,"temperature":20,"moisture":30}}`,
		`{"deviceId":"DEV-001","timestamp":"2024-03-15T09:31:27Z","readings":` +
			`{"nitrogen":50,"phosphorus":40,"potassium":100,"ph":7.0,"temperature":20,"moisture":40}}`,
		`{"deviceId":"DEV-001","timestamp":"2024-03-15T09:31:27Z","readings":` +
			`{"nitrogen":55,"phosphorus":44,"potassium":120,"ph":6.5,"temperature":22,"moisture":0}}`,
		`{"deviceId":"DEV-002","readings":` +
			`{"nitrogen":1,"phosphorus":1,"potassium":1,"ph":1,"temperature":1,"moisture":1}}`,
	} {
		_, err := svc.Submit(ctx, []byte(body))
		require.NoError(t, err)
	}

	summary, err := svc.Summarize(ctx, "DEV-001")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, "2024-03-15T09:31:27Z", summary.LatestTimestamp)

	nitrogen := summary.Metrics[domain.MetricNitrogen]
	assert.Equal(t, 55.0, nitrogen.Latest)
	assert.Equal(t, 50.0, nitrogen.Min)
	assert.Equal(t, 60.0, nitrogen.Max)
	assert.InDelta(t, 55.0, nitrogen.Average, 1e-9)
	require.NotNil(t, nitrogen.ChangePercent)
	assert.InDelta(t, 10.0, *nitrogen.ChangePercent, 1e-9)

	moisture := summary.Metrics[domain.MetricMoisture]
	require.NotNil(t, moisture.ChangePercent)
	assert.InDelta(t, -100.0, *moisture.ChangePercent, 1e-9)

	all, err := svc.Summarize(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, all.Count)

	_, err = svc.Summarize(ctx, "DEV-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummarizeValues(t *testing.T) {
	single := SummarizeValues([]float64{4})
	assert.Nil(t, single.Previous)
	assert.Nil(t, single.ChangePercent)
	assert.Equal(t, 4.0, single.Average)

	fromZero := SummarizeValues([]float64{0, 5})
	require.NotNil(t, fromZero.Previous)
	assert.Equal(t, 0.0, *fromZero.Previous)
	assert.Nil(t, fromZero.ChangePercent)

	negatives := SummarizeValues([]float64{-3, -1, -2})
	assert.Equal(t, -3.0, negatives.Min)
	assert.Equal(t, -1.0, negatives.Max)
	assert.InDelta(t, -2.0, negatives.Average, 1e-9)
}

func TestSoilService_CheckStorage(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo)
	mockRepo.On("HealthCheck", mock.Anything).Return(errors.New("down"))

	assert.Error(t, svc.CheckStorage(context.Background()))
}

func TestSoilService_SeedDemo(t *testing.T) {
	repo := memory.NewMemoryRepository()
	svc := NewSoilService(repo, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	require.NoError(t, svc.SeedDemo(ctx, []string{"DEV-001", "DEV-002"}, 20, rand.New(rand.NewSource(7))))

	readings, err := svc.ListReadings(ctx, domain.ReadingFilter{})
	require.NoError(t, err)
	require.Len(t, readings, 20)

	oldest := fixedNow.AddDate(0, 0, -30)
	var prev time.Time
	for _, r := range readings {
		at, ok := r.ObservedAt()
		require.True(t, ok)
		assert.False(t, at.Before(prev), "readings are stored oldest first")
		assert.False(t, at.Before(oldest.Truncate(time.Millisecond)))
		assert.Contains(t, []string{"DEV-001", "DEV-002"}, r.DeviceID)
		prev = at
	}

	assert.NoError(t, svc.SeedDemo(ctx, nil, 5, rand.New(rand.NewSource(7))))
	assert.Equal(t, 20, repo.Len())
}
