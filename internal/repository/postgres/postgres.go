package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/config"
	"github.com/Muhammadxon2oo7/agro/internal/domain"
	"github.com/Muhammadxon2oo7/agro/internal/metrics"
	"github.com/Muhammadxon2oo7/agro/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const driver = "postgres"

type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresRepository(ctx context.Context, dbConfig config.DBConfig, logger *zap.Logger) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(dbConfig.DBSource)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.MaxConns = int32(dbConfig.MaxDBConnections)
	config.MinConns = int32(dbConfig.MinDBConnections)
	config.MaxConnLifetime = dbConfig.MaxConnLifetime
	config.MaxConnIdleTime = dbConfig.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &PostgresRepository{
		pool:   pool,
		logger: logger,
	}

	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	go monitorConnections(ctx, pool, logger)

	return repo, nil
}

func (r *PostgresRepository) ensureSchema(ctx context.Context) error {
	for _, stmt := range repository.Schema("BIGSERIAL PRIMARY KEY") {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// monitorConnections updates pool gauges until ctx is cancelled
func monitorConnections(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping monitorConnections goroutine due to context cancellation")
			return
		case <-ticker.C:
			stats := pool.Stat()
			metrics.DBActiveConnections.Set(float64(stats.AcquiredConns()))
			metrics.DBIdleConnections.Set(float64(stats.IdleConns()))

			logger.Debug("Database connection stats",
				zap.Int("acquired", int(stats.AcquiredConns())),
				zap.Int("idle", int(stats.IdleConns())),
				zap.Int("max", int(stats.MaxConns())),
			)
		}
	}
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (r *PostgresRepository) Append(ctx context.Context, reading *domain.SoilReading) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues(driver, "append").Observe(time.Since(start).Seconds())
	}()

	if _, err := r.pool.Exec(ctx, repository.InsertQuery(placeholder), repository.InsertArgs(reading)...); err != nil {
		return fmt.Errorf("failed to save soil reading: %w", err)
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter domain.ReadingFilter) ([]*domain.SoilReading, error) {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues(driver, "list").Observe(time.Since(start).Seconds())
	}()

	query, args := repository.ListQuery(filter, placeholder)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query soil readings: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.SoilReading, 0)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

func scanReading(rows pgx.Rows) (*domain.SoilReading, error) {
	var (
		reading  domain.SoilReading
		lat, lon *float64
	)
	err := rows.Scan(
		&reading.ID,
		&reading.DeviceID,
		&reading.Timestamp,
		&reading.Readings.Nitrogen,
		&reading.Readings.Phosphorus,
		&reading.Readings.Potassium,
		&reading.Readings.PH,
		&reading.Readings.Temperature,
		&reading.Readings.Moisture,
		&lat,
		&lon,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		reading.Location = &domain.Location{Latitude: *lat, Longitude: *lon}
	}
	return &reading, nil
}

func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues(driver, "health_check").Observe(time.Since(start).Seconds())
	}()

	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
