package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func reading(id, device, ts string) *SoilReading {
	return &SoilReading{ID: id, DeviceID: device, Timestamp: ts}
}

func TestReadingFilter_Apply(t *testing.T) {
	all := []*SoilReading{
		reading("1", "a", "2024-03-11T14:05:47Z"),
		reading("2", "b", "2024-03-12T08:15:33Z"),
		reading("3", "a", "2024-03-13T10:22:05Z"),
		reading("4", "a", "not-a-date"),
		reading("5", "b", "2024-03-15T09:31:27.000Z"),
	}

	from := time.Date(2024, 3, 12, 8, 15, 33, 0, time.UTC)
	to := time.Date(2024, 3, 15, 9, 31, 27, 0, time.UTC)

	tests := []struct {
		name   string
		filter ReadingFilter
		want   []string
	}{
		{"zero filter", ReadingFilter{}, []string{"1", "2", "3", "4", "5"}},
		{"device", ReadingFilter{DeviceID: "a"}, []string{"1", "3", "4"}},
		{"inclusive range", ReadingFilter{From: &from, To: &to}, []string{"2", "3", "5"}},
		{"from only", ReadingFilter{From: &from, DeviceID: "a"}, []string{"3"}},
		{"limit keeps most recent", ReadingFilter{Limit: 2}, []string{"4", "5"}},
		{"limit larger than result", ReadingFilter{DeviceID: "b", Limit: 10}, []string{"2", "5"}},
		{"no match", ReadingFilter{DeviceID: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(all)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
	assert.Len(t, all, 5)
}

func TestReadingFilter_Validate(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	assert.NoError(t, ReadingFilter{}.Validate())
	assert.NoError(t, ReadingFilter{From: &early, To: &late, Limit: 3}.Validate())
	assert.NoError(t, ReadingFilter{From: &early, To: &early}.Validate())

	err := ReadingFilter{From: &late, To: &early}.Validate()
	var filterErr *InvalidFilterError
	assert.ErrorAs(t, err, &filterErr)
	assert.Equal(t, "from", filterErr.Param)

	assert.Error(t, ReadingFilter{Limit: -1}.Validate())
}

func TestMissingMetricsError(t *testing.T) {
	err := &MissingMetricsError{Metrics: []Metric{MetricPhosphorus, MetricPH}}
	assert.Equal(t, "phosphorus, ph", err.List())
	assert.Equal(t, "missing required metrics: phosphorus, ph", err.Error())
}

func TestReadings_Value(t *testing.T) {
	r := Readings{Nitrogen: 65, Phosphorus: 42, Potassium: 120, PH: 6.8, Temperature: 22.5, Moisture: 38}
	want := []float64{65, 42, 120, 6.8, 22.5, 38}
	for i, m := range RequiredMetrics {
		assert.Equal(t, want[i], r.Value(m), string(m))
	}
	assert.Zero(t, r.Value(Metric("salinity")))
}
