package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
	"github.com/Muhammadxon2oo7/agro/internal/metrics"
	"github.com/Muhammadxon2oo7/agro/internal/repository"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const driver = "sqlite"

// SQLiteRepository is a single-file durable store for small deployments.
type SQLiteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteRepository(ctx context.Context, path string, logger *zap.Logger) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one writer at a time; sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	for _, stmt := range repository.Schema("INTEGER PRIMARY KEY AUTOINCREMENT") {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logger.Info("SQLite store ready", zap.String("path", path))

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func placeholder(int) string { return "?" }

func (r *SQLiteRepository) Append(ctx context.Context, reading *domain.SoilReading) error {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues(driver, "append").Observe(time.Since(start).Seconds())
	}()

	if _, err := r.db.ExecContext(ctx, repository.InsertQuery(placeholder), repository.InsertArgs(reading)...); err != nil {
		return fmt.Errorf("failed to save soil reading: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, filter domain.ReadingFilter) ([]*domain.SoilReading, error) {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues(driver, "list").Observe(time.Since(start).Seconds())
	}()

	query, args := repository.ListQuery(filter, placeholder)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query soil readings: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.SoilReading, 0)
	for rows.Next() {
		var (
			reading  domain.SoilReading
			lat, lon sql.NullFloat64
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
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if lat.Valid && lon.Valid {
			reading.Location = &domain.Location{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		results = append(results, &reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

func (r *SQLiteRepository) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() {
	if err := r.db.Close(); err != nil {
		r.logger.Warn("Failed to close sqlite database", zap.Error(err))
	}
}
