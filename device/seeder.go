package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// LoadDevices reads a JSON array of devices, canonicalizing every address.
func LoadDevices(r io.Reader) ([]Device, error) {
	var raw []Device
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode device list: %w", err)
	}

	devices := make([]Device, 0, len(raw))
	for _, d := range raw {
		device, err := New(d.Address, d.Name)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}

	return devices, nil
}

type Seeder struct {
	logger *slog.Logger
}

func NewSeeder(logger *slog.Logger) *Seeder {
	return &Seeder{logger: logger}
}

// Seed names the given devices in the registry, overwriting names that are already stored.
func (s *Seeder) Seed(ctx context.Context, devices []Device, repository Repository) error {
	if !repository.IsReady() {
		return ErrRepositoryNotReady
	}

	if len(devices) == 0 {
		s.logger.Info("No devices found to seed")
		return nil
	}

	s.logger.Info("Seeding devices", "count", len(devices))
	for i := range devices {
		device := &devices[i]
		if err := repository.Rename(ctx, device); err != nil {
			s.logger.Error("Failed to seed device", "address", device.Address, "error", err)
			return err
		}
		s.logger.Debug("Device seeded successfully", "address", device.Address, "name", device.Name)
	}

	s.logger.Info("Seeding completed successfully")
	return nil
}
