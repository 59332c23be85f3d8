// Package gateway turns Ruuvi Gateway MQTT messages into advertisements for the collector.
package gateway

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/timgluz/luftspiegel/decoder"
)

// RuuviCompanyID is the Bluetooth SIG company identifier of Ruuvi Innovations.
const RuuviCompanyID uint16 = 0x0499

const adTypeManufacturerData byte = 0xFF

var (
	ErrNoManufacturerData     = errors.New("advertisement carries no Ruuvi manufacturer data")
	ErrMalformedAdvertisement = errors.New("malformed advertisement")
)

// ExtractManufacturerData walks the AD structures of a raw BLE advertisement and returns the
// Ruuvi manufacturer data without its company identifier. Payloads shorter than a frame are
// zero-padded to decoder.FrameLength.
func ExtractManufacturerData(raw []byte) ([]byte, error) {
	for i := 0; i < len(raw); {
		length := int(raw[i])
		if length == 0 {
			break
		}

		end := i + 1 + length
		if end > len(raw) {
			return nil, fmt.Errorf("%w: AD structure at %d overruns %d bytes", ErrMalformedAdvertisement, i, len(raw))
		}

		structure := raw[i+1 : end]
		if structure[0] == adTypeManufacturerData && len(structure) >= 3 &&
			binary.LittleEndian.Uint16(structure[1:3]) == RuuviCompanyID {
			return padFrame(structure[3:]), nil
		}

		i = end
	}

	return nil, ErrNoManufacturerData
}

func padFrame(payload []byte) []byte {
	frame := make([]byte, max(len(payload), decoder.FrameLength))
	copy(frame, payload)
	return frame
}
