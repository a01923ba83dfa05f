package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
	"github.com/Muhammadxon2oo7/agro/internal/metrics"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

type SoilService interface {
	Submit(ctx context.Context, raw []byte) (*domain.SoilReading, error)
	ListReadings(ctx context.Context, filter domain.ReadingFilter) ([]*domain.SoilReading, error)
	Summarize(ctx context.Context, deviceID string) (*domain.ReadingSummary, error)
}

// GRPCServer serves soil.v1.SoilDataService and the standard health service
type GRPCServer struct {
	server  *grpc.Server
	health  *health.Server
	service SoilService
	logger  *zap.Logger
}

func NewGRPCServer(service SoilService, logger *zap.Logger) *GRPCServer {
	loggingInterceptor := logging.UnaryServerInterceptor(interceptorLogger(logger))
	metricsInterceptor := grpc_prometheus.UnaryServerInterceptor
	customMetricsInterceptor := unaryMetricsInterceptor()

	chain := grpc.ChainUnaryInterceptor(
		loggingInterceptor,
		metricsInterceptor,
		customMetricsInterceptor,
	)

	s := &GRPCServer{
		server:  grpc.NewServer(chain),
		health:  health.NewServer(),
		service: service,
		logger:  logger,
	}

	RegisterSoilDataServer(s.server, s)
	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	grpc_prometheus.Register(s.server)
	grpc_prometheus.EnableHandlingTimeHistogram()

	return s
}

func (s *GRPCServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
	return s.server.Serve(lis)
}

func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down gRPC server")
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}

// unaryMetricsInterceptor records request count and duration per status code
func unaryMetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		var statusCode string
		if err != nil {
			if st, ok := status.FromError(err); ok {
				statusCode = st.Code().String()
			} else {
				statusCode = codes.Unknown.String()
			}
		} else {
			statusCode = codes.OK.String()
		}

		duration := time.Since(start).Seconds()

		metrics.GRPCRequests.WithLabelValues(info.FullMethod, statusCode).Inc()
		metrics.GRPCRequestDuration.WithLabelValues(info.FullMethod, statusCode).Observe(duration)

		return resp, err
	}
}

// interceptorLogger adapts zap to the go-grpc-middleware logging interface
func interceptorLogger(l *zap.Logger) logging.Logger {
	return logging.LoggerFunc(func(_ context.Context, lvl logging.Level, msg string, fields ...any) {
		f := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			f = append(f, zap.Any(key, fields[i+1]))
		}
		logger := l.WithOptions(zap.AddCallerSkip(1)).With(f...)

		switch lvl {
		case logging.LevelDebug:
			logger.Debug(msg)
		case logging.LevelInfo:
			logger.Info(msg)
		case logging.LevelWarn:
			logger.Warn(msg)
		case logging.LevelError:
			logger.Error(msg)
		default:
			logger.Info(msg)
		}
	})
}

func (s *GRPCServer) SubmitReading(ctx context.Context, req *SubmitReadingRequest) (*SubmitReadingResponse, error) {
	reading, err := s.service.Submit(ctx, req.Payload)
	if err != nil {
		var missing *domain.MissingMetricsError
		switch {
		case errors.Is(err, domain.ErrMissingFields):
			return nil, status.Error(codes.InvalidArgument, "Missing required fields")
		case errors.As(err, &missing):
			return nil, status.Error(codes.InvalidArgument, "Missing required metrics: "+missing.List())
		default:
			s.logger.Error("Failed to process soil data", zap.Error(err))
			return nil, status.Error(codes.Internal, "Failed to process data")
		}
	}

	return &SubmitReadingResponse{
		Success: true,
		Message: "Data received successfully",
		ID:      reading.ID,
	}, nil
}

func (s *GRPCServer) ListReadings(ctx context.Context, req *ListReadingsRequest) (*ListReadingsResponse, error) {
	filter, err := req.filter()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	data, err := s.service.ListReadings(ctx, filter)
	if err != nil {
		var invalid *domain.InvalidFilterError
		if errors.As(err, &invalid) {
			return nil, status.Error(codes.InvalidArgument, invalid.Error())
		}
		s.logger.Error("Failed to retrieve soil data", zap.Error(err))
		return nil, status.Error(codes.Internal, "Failed to retrieve data")
	}
	if data == nil {
		data = []*domain.SoilReading{}
	}

	return &ListReadingsResponse{Data: data}, nil
}

func (s *GRPCServer) GetSummary(ctx context.Context, req *GetSummaryRequest) (*GetSummaryResponse, error) {
	summary, err := s.service.Summarize(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "No readings found")
		}
		s.logger.Error("Failed to summarize soil data", zap.Error(err))
		return nil, status.Error(codes.Internal, "Failed to retrieve data")
	}
	return &GetSummaryResponse{Data: summary}, nil
}

func (r *ListReadingsRequest) filter() (domain.ReadingFilter, error) {
	filter := domain.ReadingFilter{DeviceID: r.DeviceID, Limit: r.Limit}

	if r.From != "" {
		t, err := time.Parse(time.RFC3339, r.From)
		if err != nil {
			return filter, &domain.InvalidFilterError{Param: "from", Reason: "must be an RFC 3339 timestamp"}
		}
		filter.From = &t
	}
	if r.To != "" {
		t, err := time.Parse(time.RFC3339, r.To)
		if err != nil {
			return filter, &domain.InvalidFilterError{Param: "to", Reason: "must be an RFC 3339 timestamp"}
		}
		filter.To = &t
	}
	return filter, filter.Validate()
}
