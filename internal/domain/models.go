package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Metric is one of the six soil measurements a reading must carry
type Metric string

const (
	MetricNitrogen    Metric = "nitrogen"
	MetricPhosphorus  Metric = "phosphorus"
	MetricPotassium   Metric = "potassium"
	MetricPH          Metric = "ph"
	MetricTemperature Metric = "temperature"
	MetricMoisture    Metric = "moisture"
)

// RequiredMetrics in the order used for error messages and summaries.
var RequiredMetrics = []Metric{
	MetricNitrogen,
	MetricPhosphorus,
	MetricPotassium,
	MetricPH,
	MetricTemperature,
	MetricMoisture,
}

// TimestampLayout matches JavaScript's Date.toISOString output.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Readings holds the six metric values of a submission
type Readings struct {
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
	PH          float64 `json:"ph"`
	Temperature float64 `json:"temperature"`
	Moisture    float64 `json:"moisture"`
}

// Value returns the value of the given metric.
func (r Readings) Value(m Metric) float64 {
	switch m {
	case MetricNitrogen:
		return r.Nitrogen
	case MetricPhosphorus:
		return r.Phosphorus
	case MetricPotassium:
		return r.Potassium
	case MetricPH:
		return r.PH
	case MetricTemperature:
		return r.Temperature
	case MetricMoisture:
		return r.Moisture
	default:
		return 0
	}
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SoilReading is one stored measurement submission
type SoilReading struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"deviceId"`
	Timestamp string    `json:"timestamp"`
	Readings  Readings  `json:"readings"`
	Location  *Location `json:"location,omitempty"`
}

// ObservedAt parses Timestamp as RFC 3339. ok is false when the client sent
// a timestamp in some other format.
func (r *SoilReading) ObservedAt() (t time.Time, ok bool) {
	t, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ReadingFilter narrows a listing. The zero value matches everything.
type ReadingFilter struct {
	DeviceID string
	From     *time.Time
	To       *time.Time
	Limit    int
}

func (f ReadingFilter) IsZero() bool {
	return f.DeviceID == "" && f.From == nil && f.To == nil && f.Limit == 0
}

// Match reports whether r passes the device and time range conditions.
// Limit is not considered here, see Apply.
func (f ReadingFilter) Match(r *SoilReading) bool {
	if f.DeviceID != "" && r.DeviceID != f.DeviceID {
		return false
	}
	if f.From == nil && f.To == nil {
		return true
	}

	at, ok := r.ObservedAt()
	if !ok {
		return false
	}
	if f.From != nil && at.Before(*f.From) {
		return false
	}
	if f.To != nil && at.After(*f.To) {
		return false
	}
	return true
}

// Apply filters readings (kept in insertion order) and keeps the Limit most
// recent matches. The input slice is not modified.
func (f ReadingFilter) Apply(readings []*SoilReading) []*SoilReading {
	out := make([]*SoilReading, 0, len(readings))
	for _, r := range readings {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// Validate checks that the range is ordered and the limit is sane.
func (f ReadingFilter) Validate() error {
	if f.Limit < 0 {
		return &InvalidFilterError{Param: "limit", Reason: "must be a positive integer"}
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return &InvalidFilterError{Param: "from", Reason: "must not be after to"}
	}
	return nil
}

var (
	// ErrMissingFields is returned when deviceId or readings is absent.
	ErrMissingFields = errors.New("missing required fields")
	// ErrMalformedPayload wraps decode failures of a submission body.
	ErrMalformedPayload = errors.New("malformed payload")
	ErrNotFound         = errors.New("not found")
)

// MissingMetricsError lists the absent metrics in RequiredMetrics order.
type MissingMetricsError struct {
	Metrics []Metric
}

func (e *MissingMetricsError) Error() string {
	return "missing required metrics: " + e.List()
}

// List joins the metric names the way they are reported to clients.
func (e *MissingMetricsError) List() string {
	names := make([]string, len(e.Metrics))
	for i, m := range e.Metrics {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

type InvalidFilterError struct {
	Param  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s parameter: %s", e.Param, e.Reason)
}
