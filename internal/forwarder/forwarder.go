package forwarder

import (
	"context"
	"sync"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
	"github.com/Muhammadxon2oo7/agro/internal/metrics"

	"go.uber.org/zap"
)

// Sink is a downstream system that accepted readings are copied to.
type Sink interface {
	Name() string
	Publish(ctx context.Context, reading *domain.SoilReading) error
	Close() error
}

// Forwarder fans accepted readings out to every sink from a fixed pool of
// workers. Publishing never blocks ingestion.
type Forwarder struct {
	sinks   []Sink
	workers int
	timeout time.Duration
	logger  *zap.Logger

	queue chan *domain.SoilReading
	mu    sync.RWMutex
	done  bool
	wg    sync.WaitGroup
}

func NewForwarder(sinks []Sink, workers, queueSize int, logger *zap.Logger) *Forwarder {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Forwarder{
		sinks:   sinks,
		workers: workers,
		timeout: 5 * time.Second,
		logger:  logger,
		queue:   make(chan *domain.SoilReading, queueSize),
	}
}

// Start launches the workers and returns. They exit when ctx is cancelled
// or after Stop has drained the queue.
func (f *Forwarder) Start(ctx context.Context) {
	f.logger.Info("starting forwarder",
		zap.Int("workers", f.workers),
		zap.Int("sinks", len(f.sinks)),
		zap.String("start_time", time.Now().Format(time.RFC3339)),
	)

	metrics.ForwardActiveWorkers.Set(float64(f.workers))

	for i := 0; i < f.workers; i++ {
		f.wg.Add(1)
		go func(workerID int) {
			defer f.wg.Done()
			defer metrics.ForwardActiveWorkers.Dec()

			f.logger.Debug("worker started", zap.Int("worker_id", workerID))

			for {
				select {
				case reading, ok := <-f.queue:
					if !ok {
						f.logger.Debug("queue closed, exiting worker", zap.Int("worker_id", workerID))
						return
					}
					metrics.ForwardQueueDepth.Set(float64(len(f.queue)))
					f.publish(ctx, workerID, reading)

				case <-ctx.Done():
					f.logger.Debug("context cancelled, exiting worker", zap.Int("worker_id", workerID))
					return
				}
			}
		}(i)
	}
}

func (f *Forwarder) publish(ctx context.Context, workerID int, reading *domain.SoilReading) {
	for _, sink := range f.sinks {
		pubCtx, cancel := context.WithTimeout(ctx, f.timeout)
		startTime := time.Now()
		err := sink.Publish(pubCtx, reading)
		cancel()

		if err != nil {
			metrics.ForwardFailed.WithLabelValues(sink.Name()).Inc()
			f.logger.Error("[Forwarder] failed to publish reading",
				zap.Int("worker_id", workerID),
				zap.String("sink", sink.Name()),
				zap.String("id", reading.ID),
				zap.String("device_id", reading.DeviceID),
				zap.Error(err),
			)
			continue
		}

		elapsed := time.Since(startTime)
		metrics.ForwardPublished.WithLabelValues(sink.Name()).Inc()
		metrics.ForwardPublishTime.WithLabelValues(sink.Name()).Observe(elapsed.Seconds())

		f.logger.Debug("[Forwarder] reading published",
			zap.Int("worker_id", workerID),
			zap.String("sink", sink.Name()),
			zap.String("id", reading.ID),
			zap.Duration("publish_time", elapsed),
		)
	}
}

// Enqueue hands a reading to the workers. It reports false when the queue
// is full or the forwarder is stopped, in which case the reading is dropped.
func (f *Forwarder) Enqueue(reading *domain.SoilReading) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.done {
		return false
	}

	select {
	case f.queue <- reading:
		metrics.ForwardQueueDepth.Set(float64(len(f.queue)))
		return true
	default:
		metrics.ForwardDropped.Inc()
		f.logger.Warn("[Forwarder] queue full, dropping reading",
			zap.String("id", reading.ID),
			zap.String("device_id", reading.DeviceID),
		)
		return false
	}
}

// Stop closes the queue. Workers finish what is already queued.
func (f *Forwarder) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done {
		return
	}
	f.done = true
	close(f.queue)
	f.logger.Info("stopping forwarder gracefully")
}

// Wait blocks until every worker has exited and then closes the sinks.
func (f *Forwarder) Wait() {
	f.wg.Wait()
	metrics.ForwardActiveWorkers.Set(0)

	for _, sink := range f.sinks {
		if err := sink.Close(); err != nil {
			f.logger.Warn("[Forwarder] failed to close sink",
				zap.String("sink", sink.Name()),
				zap.Error(err),
			)
		}
	}

	f.logger.Info("forwarder stopped",
		zap.String("stop_time", time.Now().Format(time.RFC3339)),
	)
}
