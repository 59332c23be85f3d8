package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/response"
)

const (
	createDevicesTable = `
CREATE TABLE IF NOT EXISTS devices (
	address TEXT PRIMARY KEY,
	name    TEXT NOT NULL
)`
	countDevices   = `SELECT COUNT(*) FROM devices`
	selectDevices  = `SELECT address, name FROM devices ORDER BY address LIMIT ? OFFSET ?`
	selectDevice   = `SELECT address, name FROM devices WHERE address = ?`
	registerDevice = `INSERT INTO devices (address, name) VALUES (?, ?) ON CONFLICT (address) DO NOTHING`
	renameDevice   = `INSERT INTO devices (address, name) VALUES (?, ?) ON CONFLICT (address) DO UPDATE SET name = excluded.name`
	deleteDevice   = `DELETE FROM devices WHERE address = ?`
)

// SQLRepository stores the registry in the devices table of a SQLite or Postgres database.
type SQLRepository struct {
	db      *sql.DB
	dialect measurement.Dialect
	logger  *slog.Logger
}

func NewSQLRepository(db *sql.DB, dialect measurement.Dialect, logger *slog.Logger) (*SQLRepository, error) {
	if db == nil {
		logger.Error("SQL DB is not initialized")
		return nil, measurement.ErrDBNotAvailable
	}

	return &SQLRepository{db: db, dialect: dialect, logger: logger}, nil
}

func (r *SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createDevicesTable); err != nil {
		r.logger.Error("Failed to create devices table", "error", err)
		return fmt.Errorf("failed to create devices table: %w", err)
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context, offset int, limit int) (*Collection, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, countDevices).Scan(&total); err != nil {
		r.logger.Error("Failed to count devices", "error", err)
		return nil, err
	}

	offset, limit, count := normalizePage(offset, limit, total)
	items := make([]Device, 0, count)
	if count == 0 {
		return &Collection{Items: items, Pagination: response.NewPagination(offset, limit, total)}, nil
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(selectDevices), count, offset)
	if err != nil {
		r.logger.Error("Failed to query devices", "error", err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.Address, &d.Name); err != nil {
			r.logger.Error("Failed to scan device row", "error", err)
			return nil, err
		}
		items = append(items, d)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error occurred during row iteration", "error", err)
		return nil, err
	}

	r.logger.Debug("Listed devices", "offset", offset, "limit", limit, "total", total)
	return &Collection{Items: items, Pagination: response.NewPagination(offset, limit, total)}, nil
}

func (r *SQLRepository) Get(ctx context.Context, address string) (*Device, error) {
	var d Device
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectDevice), address).Scan(&d.Address, &d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get device", "address", address, "error", err)
		return nil, err
	}

	return &d, nil
}

func (r *SQLRepository) Register(ctx context.Context, device *Device) error {
	return r.upsert(ctx, registerDevice, device)
}

func (r *SQLRepository) Rename(ctx context.Context, device *Device) error {
	return r.upsert(ctx, renameDevice, device)
}

func (r *SQLRepository) upsert(ctx context.Context, query string, device *Device) error {
	if device == nil {
		return ErrNilDevice
	}

	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), device.Address, device.Name); err != nil {
		r.logger.Error("Failed to store device", "address", device.Address, "error", err)
		return err
	}

	r.logger.Debug("Device stored", "address", device.Address, "name", device.Name)
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, address string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(deleteDevice), address)
	if err != nil {
		r.logger.Error("Failed to delete device", "address", address, "error", err)
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDeviceNotFound
	}

	r.logger.Info("Device deleted", "address", address)
	return nil
}

func (r *SQLRepository) IsReady() bool {
	return r.db != nil && r.logger != nil
}

// Close is a no-op; the database handle is shared with the sample repository and closed there.
func (r *SQLRepository) Close() error {
	return nil
}

var _ Repository = (*SQLRepository)(nil)
