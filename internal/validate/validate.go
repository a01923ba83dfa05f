package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
)

// submission mirrors the POST body. Fields stay raw until their presence
// has been decided, so a falsy value is never mistaken for a type error.
type submission struct {
	DeviceID  json.RawMessage  `json:"deviceId"`
	Timestamp json.RawMessage  `json:"timestamp"`
	Readings  json.RawMessage  `json:"readings"`
	Location  *domain.Location `json:"location"`
}

// ValidatePayload decodes a raw submission and applies the presence checks
// in order: deviceId/readings, then the six metrics. A missing timestamp is
// filled with now. The returned reading has no ID yet.
//
// deviceId, readings and timestamp count as missing when absent or falsy
// (null, false, 0, ""). A metric counts as missing when absent, null, false
// or "". A metric of 0 is present.
func ValidatePayload(raw []byte, now time.Time) (*domain.SoilReading, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty body", domain.ErrMalformedPayload)
	}

	var s submission
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	if falsy(s.DeviceID) || falsy(s.Readings) {
		return nil, domain.ErrMissingFields
	}

	var deviceID string
	if err := json.Unmarshal(s.DeviceID, &deviceID); err != nil {
		return nil, fmt.Errorf("%w: deviceId: %v", domain.ErrMalformedPayload, err)
	}

	readings, err := decodeReadings(s.Readings)
	if err != nil {
		return nil, err
	}

	ts := now.UTC().Format(domain.TimestampLayout)
	if !falsy(s.Timestamp) {
		if err := json.Unmarshal(s.Timestamp, &ts); err != nil {
			return nil, fmt.Errorf("%w: timestamp: %v", domain.ErrMalformedPayload, err)
		}
	}

	return &domain.SoilReading{
		DeviceID:  deviceID,
		Timestamp: ts,
		Readings:  readings,
		Location:  s.Location,
	}, nil
}

// decodeReadings extracts the six metrics. A readings value that is not an
// object carries none of them.
func decodeReadings(raw json.RawMessage) (domain.Readings, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		fields = map[string]json.RawMessage{}
	}

	var (
		r       domain.Readings
		missing []domain.Metric
	)
	for _, m := range domain.RequiredMetrics {
		v, ok := fields[string(m)]
		if !ok || isBlank(v) {
			missing = append(missing, m)
			continue
		}

		var value float64
		if err := json.Unmarshal(v, &value); err != nil {
			return r, fmt.Errorf("%w: readings.%s: %v", domain.ErrMalformedPayload, m, err)
		}
		setMetric(&r, m, value)
	}
	if len(missing) > 0 {
		return r, &domain.MissingMetricsError{Metrics: missing}
	}
	return r, nil
}

func setMetric(r *domain.Readings, m domain.Metric, v float64) {
	switch m {
	case domain.MetricNitrogen:
		r.Nitrogen = v
	case domain.MetricPhosphorus:
		r.Phosphorus = v
	case domain.MetricPotassium:
		r.Potassium = v
	case domain.MetricPH:
		r.PH = v
	case domain.MetricTemperature:
		r.Temperature = v
	case domain.MetricMoisture:
		r.Moisture = v
	}
}

// isBlank reports absent, null, false or "".
func isBlank(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", `""`:
		return true
	}
	return false
}

// falsy is isBlank plus any numeric zero.
func falsy(raw json.RawMessage) bool {
	if isBlank(raw) {
		return true
	}
	v, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	return err == nil && v == 0
}

// Truncate shortens a payload for log output without splitting a UTF-8
// sequence.
func Truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return string(b[:n]) + "…"
}
