package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/timgluz/luftspiegel/measurement"
)

// Log read destinations of the legacy log protocol.
const (
	DestinationTemperature byte = byte(legacyTemperature)
	DestinationHumidity    byte = byte(legacyHumidity)
	DestinationPressure    byte = byte(legacyPressure)
	DestinationAll         byte = 0x3A

	logReadCommand byte = 0x11
)

// SensorAll selects every logged channel.
const SensorAll = "all"

// LogDestination maps a sensor name ("all", "temperature", "humidity", "air_pressure") to its
// log read destination byte.
func LogDestination(sensor string) (byte, error) {
	if strings.EqualFold(strings.TrimSpace(sensor), SensorAll) {
		return DestinationAll, nil
	}

	channel, err := measurement.ParseChannel(sensor)
	if err != nil {
		return 0, err
	}

	switch channel {
	case measurement.Temperature:
		return DestinationTemperature, nil
	case measurement.Humidity:
		return DestinationHumidity, nil
	case measurement.AirPressure:
		return DestinationPressure, nil
	default:
		return 0, fmt.Errorf("%w: %s is not logged", measurement.ErrUnknownChannel, channel)
	}
}

// LogRequest builds the command asking a device for its log entries newer than start.
func LogRequest(destination byte, now, start measurement.Epoch) []byte {
	req := make([]byte, legacyPacketLength)
	req[0] = destination
	req[1] = destination
	req[2] = logReadCommand
	binary.BigEndian.PutUint32(req[3:7], uint32(now))
	binary.BigEndian.PutUint32(req[7:11], uint32(start))
	return req
}

// ParseLegacyLog turns the packets of one log transfer into records. Packets addressed to
// another destination are ignored; packets after the end marker are not read. complete
// reports whether the end marker was seen.
func ParseLegacyLog(packets [][]byte, destination byte) (records []Record, complete bool, skipped []error) {
	for i, packet := range packets {
		if len(packet) == 0 || packet[0] != destination {
			continue
		}

		rec, err := ParseLegacyPacket(packet)
		switch {
		case errors.Is(err, ErrEndOfLog):
			return records, true, skipped
		case err != nil:
			skipped = append(skipped, &RecordError{Index: i, Err: err})
		default:
			records = append(records, rec)
		}
	}

	return records, false, skipped
}
