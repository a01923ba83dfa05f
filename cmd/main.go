package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/config"
	"github.com/Muhammadxon2oo7/agro/internal/forwarder"
	appgrpc "github.com/Muhammadxon2oo7/agro/internal/grpc"
	apphttp "github.com/Muhammadxon2oo7/agro/internal/http"
	applogger "github.com/Muhammadxon2oo7/agro/internal/logger"
	"github.com/Muhammadxon2oo7/agro/internal/registry"
	"github.com/Muhammadxon2oo7/agro/internal/repository/memory"
	"github.com/Muhammadxon2oo7/agro/internal/repository/postgres"
	"github.com/Muhammadxon2oo7/agro/internal/repository/sqlite"
	"github.com/Muhammadxon2oo7/agro/internal/service"

	"go.uber.org/zap"
)

type store interface {
	service.Repository
	Close()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := applogger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Error during logger sync: %v", err)
		}
	}()

	logger.Info("Starting Soil Data Service",
		zap.String("version", "1.0.0"),
		zap.String("storage", cfg.StorageDriver))

	repo, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage", zap.Error(err))
		return
	}
	defer func() {
		repo.Close()
		logger.Info("Storage closed")
	}()

	devices, err := openRegistry(cfg)
	if err != nil {
		logger.Error("Failed to load device registry", zap.Error(err))
		return
	}

	fwd := forwarder.NewForwarder(buildSinks(cfg, logger), cfg.ForwardWorkers, cfg.ForwardQueueSize, logger)
	fwd.Start(ctx)

	soilService := service.NewSoilService(repo, logger, service.WithPublisher(fwd))

	if cfg.DemoReadings > 0 {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		if err := soilService.SeedDemo(ctx, devices.IDs(), cfg.DemoReadings, rng); err != nil {
			logger.Warn("Failed to seed demo readings", zap.Error(err))
		}
	}

	httpServer := apphttp.NewHTTPServer(cfg.RESTPort, soilService, devices, logger,
		apphttp.WithTimeouts(cfg.HTTPReadTimeout, cfg.HTTPWriteTimeout))
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	grpcServer := appgrpc.NewGRPCServer(soilService, logger)
	go func() {
		if err := grpcServer.Start(cfg.GRPCPort); err != nil {
			logger.Error("gRPC server failed", zap.Error(err))
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("gRPC server shutdown due to timeout")
		} else {
			logger.Error("gRPC server shutdown failed", zap.Error(err))
		}
	}

	// No more submissions can arrive; let the forwarder drain its queue.
	fwd.Stop()
	fwd.Wait()
	cancel()

	logger.Info("Soil Data Service stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		return postgres.NewPostgresRepository(ctx, cfg.DBConfig, logger)
	case config.StorageSQLite:
		return sqlite.NewSQLiteRepository(ctx, cfg.SQLitePath, logger)
	default:
		return memory.NewMemoryRepository(), nil
	}
}

func openRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.DevicesFile != "" {
		return registry.LoadFile(cfg.DevicesFile)
	}
	return registry.New(registry.DefaultDevices())
}

func buildSinks(cfg *config.Config, logger *zap.Logger) []forwarder.Sink {
	var sinks []forwarder.Sink
	if cfg.Kafka.Enabled() {
		sinks = append(sinks, forwarder.NewKafkaSink(cfg.Kafka))
		logger.Info("Forwarding readings to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}
	if cfg.Influx.Enabled() {
		sinks = append(sinks, forwarder.NewInfluxSink(cfg.Influx))
		logger.Info("Forwarding readings to InfluxDB",
			zap.String("url", cfg.Influx.URL),
			zap.String("bucket", cfg.Influx.Bucket))
	}
	return sinks
}
