package measurement

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

var (
	ErrDBNotAvailable = fmt.Errorf("SQL DB is not available")
)

const (
	createSamplesTable = `
CREATE TABLE IF NOT EXISTS samples (
	device    TEXT NOT NULL,
	channel   TEXT NOT NULL,
	timestamp BIGINT NOT NULL,
	value     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (device, channel, timestamp)
)`
	insertSample      = `INSERT INTO samples (device, channel, timestamp, value) VALUES (?, ?, ?, ?) ON CONFLICT (device, channel, timestamp) DO NOTHING`
	selectSampleSpan  = `SELECT timestamp, value FROM samples WHERE device = ? AND channel = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC`
	selectLastSample  = `SELECT MAX(timestamp) FROM samples WHERE device = ? AND channel = ?`
	deleteDeviceQuery = `DELETE FROM samples WHERE device = ?`
)

type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func NewSQLRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) (*SQLRepository, error) {
	if db == nil {
		logger.Error("SQL DB is not initialized")
		return nil, ErrDBNotAvailable
	}

	return &SQLRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}, nil
}

// Migrate creates the samples table when it does not exist yet.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSamplesTable); err != nil {
		r.logger.Error("Failed to create samples table", "error", err)
		return fmt.Errorf("failed to create samples table: %w", err)
	}

	r.logger.Debug("Samples table is ready")
	return nil
}

func (r *SQLRepository) IsReady() bool {
	if r.logger == nil {
		fmt.Println("Logger of SQLRepository is not initialized")
		return false
	}

	if r.db == nil {
		r.logger.Error("SQL DB is not initialized")
		return false
	}

	return true
}

func (r *SQLRepository) Close() error {
	if r.db == nil {
		return ErrDBNotAvailable
	}

	if err := r.db.Close(); err != nil {
		r.logger.Error("Failed to close SQL DB", "error", err)
		return err
	}

	r.logger.Info("SQL DB closed successfully")
	return nil
}

func (r *SQLRepository) InsertBatch(ctx context.Context, batch Batch) (int, error) {
	if err := validateBatch(batch); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, r.dialect.Rebind(insertSample))
	if err != nil {
		r.logger.Error("Failed to prepare sample insert", "error", err)
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, sample := range batch.Samples {
		res, err := stmt.ExecContext(ctx, batch.Device, string(batch.Channel), int64(sample.Timestamp), sample.Value)
		if err != nil {
			r.logger.Error("Failed to insert sample", "device", batch.Device, "channel", batch.Channel, "sample", sample, "error", err)
			_ = tx.Rollback()
			return 0, err
		}

		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit sample batch", "device", batch.Device, "channel", batch.Channel, "error", err)
		return 0, err
	}

	r.logger.Debug("Sample batch stored", "device", batch.Device, "channel", batch.Channel,
		"received", len(batch.Samples), "inserted", inserted)
	return inserted, nil
}

// GetTimeseries retrieves the samples of a device channel within period.
func (r *SQLRepository) GetTimeseries(ctx context.Context, device string, channel Channel, period Period) (*Timeseries, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(selectSampleSpan),
		device, string(channel), int64(period.Start), int64(period.End))
	if err != nil {
		r.logger.Error("Failed to query samples", "device", device, "channel", channel, "error", err)
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var sample Sample
		if err := rows.Scan(&sample.Timestamp, &sample.Value); err != nil {
			r.logger.Error("Failed to scan sample row", "error", err)
			return nil, err
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error occurred during row iteration", "error", err)
		return nil, err
	}

	r.logger.Debug("Timeseries retrieved", "device", device, "channel", channel,
		"start", period.Start, "end", period.End, "count", len(samples))
	return &Timeseries{
		Device:  device,
		Channel: channel,
		Unit:    channel.Unit(),
		Samples: samples,
		Start:   period.Start,
		End:     period.End,
	}, nil
}

func (r *SQLRepository) LastTimestamp(ctx context.Context, device string, channel Channel) (Epoch, bool, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectLastSample), device, string(channel))

	var last sql.NullInt64
	if err := row.Scan(&last); err != nil {
		r.logger.Error("Failed to scan last sample timestamp", "device", device, "channel", channel, "error", err)
		return 0, false, err
	}

	if !last.Valid {
		return 0, false, nil
	}
	return Epoch(last.Int64), true, nil
}

func (r *SQLRepository) DeleteDevice(ctx context.Context, device string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(deleteDeviceQuery), device)
	if err != nil {
		r.logger.Error("Failed to delete device samples", "device", device, "error", err)
		return err
	}

	removed, _ := res.RowsAffected()
	r.logger.Info("Device samples deleted", "device", device, "count", removed)
	return nil
}

var _ Repository = (*SQLRepository)(nil)
