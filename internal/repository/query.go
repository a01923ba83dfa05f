// Package repository holds the SQL shared by the relational reading stores.
package repository

import (
	"fmt"
	"strings"

	"github.com/Muhammadxon2oo7/agro/internal/domain"
)

// schemaColumns is portable between PostgreSQL and SQLite. The seq
// column is declared per driver.
const schemaColumns = `
	id                TEXT NOT NULL UNIQUE,
	device_id         TEXT NOT NULL,
	reading_timestamp TEXT NOT NULL,
	observed_at_ns    BIGINT,
	nitrogen          DOUBLE PRECISION NOT NULL,
	phosphorus        DOUBLE PRECISION NOT NULL,
	potassium         DOUBLE PRECISION NOT NULL,
	ph                DOUBLE PRECISION NOT NULL,
	temperature       DOUBLE PRECISION NOT NULL,
	moisture          DOUBLE PRECISION NOT NULL,
	latitude          DOUBLE PRECISION,
	longitude         DOUBLE PRECISION`

// Schema returns the DDL for the readings table using seqDecl for the
// insertion-order column.
func Schema(seqDecl string) []string {
	return []string{
		"CREATE TABLE IF NOT EXISTS soil_readings (\n\tseq " + seqDecl + "," + schemaColumns + "\n)",
		"CREATE INDEX IF NOT EXISTS soil_readings_device_seq_idx ON soil_readings (device_id, seq)",
	}
}

const selectColumns = "id, device_id, reading_timestamp, nitrogen, phosphorus, potassium, ph, temperature, moisture, latitude, longitude"

// InsertQuery returns the insert statement with numbered placeholders.
func InsertQuery(placeholder func(n int) string) string {
	marks := make([]string, 12)
	for i := range marks {
		marks[i] = placeholder(i + 1)
	}
	return "INSERT INTO soil_readings (id, device_id, reading_timestamp, observed_at_ns, nitrogen, phosphorus, potassium, ph, temperature, moisture, latitude, longitude) VALUES (" +
		strings.Join(marks, ", ") + ")"
}

// InsertArgs matches the column order of InsertQuery.
func InsertArgs(r *domain.SoilReading) []any {
	var observed any
	if at, ok := r.ObservedAt(); ok {
		observed = at.UnixNano()
	}
	var lat, lon any
	if r.Location != nil {
		lat, lon = r.Location.Latitude, r.Location.Longitude
	}
	return []any{
		r.ID, r.DeviceID, r.Timestamp, observed,
		r.Readings.Nitrogen, r.Readings.Phosphorus, r.Readings.Potassium,
		r.Readings.PH, r.Readings.Temperature, r.Readings.Moisture,
		lat, lon,
	}
}

// ListQuery translates a filter into SQL. Rows come back in insertion
// order; with a limit only the most recent matches are kept.
func ListQuery(filter domain.ReadingFilter, placeholder func(n int) string) (string, []any) {
	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.DeviceID != "" {
		where = append(where, "device_id = "+next(filter.DeviceID))
	}
	if filter.From != nil {
		where = append(where, "observed_at_ns >= "+next(filter.From.UnixNano()))
	}
	if filter.To != nil {
		where = append(where, "observed_at_ns <= "+next(filter.To.UnixNano()))
	}

	inner := "SELECT seq, " + selectColumns + " FROM soil_readings"
	if len(where) > 0 {
		inner += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.Limit > 0 {
		inner += fmt.Sprintf(" ORDER BY seq DESC LIMIT %s", next(filter.Limit))
	}

	return "SELECT " + selectColumns + " FROM (" + inner + ") AS recent ORDER BY seq ASC", args
}
