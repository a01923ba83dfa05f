package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "HTTP response size in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 5),
	}, []string{"method", "path"})

	// gRPC
	GRPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grpc_requests_total",
		Help: "Total number of gRPC requests",
	}, []string{"method", "status"})

	GRPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grpc_request_duration_seconds",
		Help:    "gRPC request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})

	// storage
	DBQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Database query duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver", "operation"})

	DBActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_active_connections",
		Help: "Number of active database connections",
	})

	DBIdleConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_idle_connections",
		Help: "Number of idle database connections",
	})

	StoredReadings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soil_readings_stored",
		Help: "Number of readings held by the in-memory store",
	})

	// ingestion
	ReadingsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soil_readings_accepted_total",
		Help: "Total number of soil readings accepted",
	})

	ReadingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soil_readings_rejected_total",
		Help: "Total number of soil reading submissions rejected",
	}, []string{"reason"})

	// forwarder
	ForwardQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forwarder_queue_depth",
		Help: "Readings waiting to be forwarded to sinks",
	})

	ForwardDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_readings_dropped_total",
		Help: "Readings dropped because the forward queue was full",
	})

	ForwardPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forwarder_readings_published_total",
		Help: "Readings published per sink",
	}, []string{"sink"})

	ForwardFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forwarder_publish_failed_total",
		Help: "Failed publish attempts per sink",
	}, []string{"sink"})

	ForwardPublishTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forwarder_publish_seconds",
		Help:    "Histogram of sink publish durations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms .. ~16s
	}, []string{"sink"})

	ForwardActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forwarder_active_workers",
		Help: "Current number of forwarder workers",
	})
)

// Rejection reasons for ReadingsRejected.
const (
	ReasonMissingFields  = "missing_fields"
	ReasonMissingMetrics = "missing_metrics"
	ReasonMalformed      = "malformed"
	ReasonStorage        = "storage"
)
