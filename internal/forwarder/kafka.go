package forwarder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/config"
	"github.com/Muhammadxon2oo7/agro/internal/domain"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes readings as JSON keyed by device id, so every device
// lands on one partition.
type KafkaSink struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaSink(cfg config.KafkaConfig) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              100,
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		now: time.Now,
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, reading *domain.SoilReading) error {
	value, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(reading.DeviceID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "receivedAt", Value: []byte(s.now().UTC().Format(time.RFC3339Nano))},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
