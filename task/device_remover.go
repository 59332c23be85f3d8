package task

import (
	"context"
	"errors"
	"log/slog"

	"github.com/timgluz/luftspiegel/device"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/snapshot"
)

// DeviceRemover forgets a device together with its samples and cached snapshot.
type DeviceRemover struct {
	measurementRepo measurement.Repository
	deviceRepo      device.Repository
	snapshotRepo    snapshot.Repository
	logger          *slog.Logger
}

func NewDeviceRemover(
	measurementRepo measurement.Repository,
	deviceRepo device.Repository,
	snapshotRepo snapshot.Repository,
	logger *slog.Logger,
) *DeviceRemover {
	return &DeviceRemover{measurementRepo, deviceRepo, snapshotRepo, logger}
}

func (r *DeviceRemover) Run(ctx context.Context, address string) error {
	canonical, err := measurement.ParseAddress(address)
	if err != nil {
		return err
	}

	if err := r.measurementRepo.DeleteDevice(ctx, canonical); err != nil {
		r.logger.Error("Failed to delete device samples", "device", canonical, "error", err)
		return err
	}

	if err := r.snapshotRepo.Delete(ctx, canonical); err != nil && !errors.Is(err, snapshot.ErrSnapshotNotFound) {
		r.logger.Error("Failed to delete cached snapshot", "device", canonical, "error", err)
		return err
	}

	if err := r.deviceRepo.Delete(ctx, canonical); err != nil && !errors.Is(err, device.ErrDeviceNotFound) {
		r.logger.Error("Failed to delete device", "device", canonical, "error", err)
		return err
	}

	r.logger.Info("Device removed", "device", canonical)
	return nil
}
