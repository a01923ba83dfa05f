package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
	"github.com/Muhammadxon2oo7/agro/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type SoilService interface {
	Submit(ctx context.Context, raw []byte) (*domain.SoilReading, error)
	ListReadings(ctx context.Context, filter domain.ReadingFilter) ([]*domain.SoilReading, error)
	Summarize(ctx context.Context, deviceID string) (*domain.ReadingSummary, error)
	CheckStorage(ctx context.Context) error
}

type DeviceRegistry interface {
	List(query string) []domain.Device
	Get(id string) (domain.Device, error)
	Remove(id string) error
}

type HTTPServer struct {
	server  *http.Server
	service SoilService
	devices DeviceRegistry
	logger  *zap.Logger
}

type Option func(*http.Server)

// WithTimeouts sets the read and write deadlines of the underlying server.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *http.Server) {
		s.ReadTimeout = read
		s.ReadHeaderTimeout = read
		s.WriteTimeout = write
		s.IdleTimeout = 4 * write
	}
}

func NewHTTPServer(addr string, service SoilService, devices DeviceRegistry, logger *zap.Logger, opts ...Option) *HTTPServer {
	router := mux.NewRouter()

	s := &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		service: service,
		devices: devices,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s.server)
	}

	router.Use(s.metricsMiddleware)
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/soil-data", s.submitReading).Methods(http.MethodPost)
	api.HandleFunc("/soil-data", s.listReadings).Methods(http.MethodGet)
	api.HandleFunc("/soil-data/summary", s.getSummary).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.listDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.getDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.removeDevice).Methods(http.MethodDelete)
	api.HandleFunc("/devices/{id}/readings", s.listDeviceReadings).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// responseWriter records status code and body size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// metricsMiddleware labels requests by route template, not raw path
func (s *HTTPServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		method := r.Method
		status := strconv.Itoa(rw.statusCode)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		metrics.HTTPRequests.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
		metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(rw.size))
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("ip", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
			zap.Int("status", rw.statusCode),
			zap.Int("response_size", rw.size),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *HTTPServer) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CheckStorage(r.Context()); err != nil {
		s.logger.Error("Health check failed", zap.Error(err))
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
