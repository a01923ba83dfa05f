package forwarder

import (
	"context"
	"fmt"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/config"
	"github.com/Muhammadxon2oo7/agro/internal/domain"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const measurement = "soil_reading"

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes one point per reading, tagged by device.
type InfluxSink struct {
	writer pointWriter
	close  func()
	now    func() time.Time
}

func NewInfluxSink(cfg config.InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		close:  client.Close,
		now:    time.Now,
	}
}

func (s *InfluxSink) Name() string { return "influxdb" }

// Point converts a reading. Timestamps that are not RFC 3339 are replaced
// by the publish time.
func (s *InfluxSink) Point(reading *domain.SoilReading) *write.Point {
	at, ok := reading.ObservedAt()
	if !ok {
		at = s.now()
	}

	p := influxdb2.NewPointWithMeasurement(measurement).
		AddTag("deviceId", reading.DeviceID).
		AddField("id", reading.ID).
		SetTime(at)
	for _, m := range domain.RequiredMetrics {
		p.AddField(string(m), reading.Readings.Value(m))
	}
	if reading.Location != nil {
		p.AddField("latitude", reading.Location.Latitude)
		p.AddField("longitude", reading.Location.Longitude)
	}
	return p
}

func (s *InfluxSink) Publish(ctx context.Context, reading *domain.SoilReading) error {
	if err := s.writer.WritePoint(ctx, s.Point(reading)); err != nil {
		return fmt.Errorf("influxdb write: %w", err)
	}
	return nil
}

func (s *InfluxSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
