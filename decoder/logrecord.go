package decoder

import (
	"encoding/binary"
	"math"

	"github.com/timgluz/luftspiegel/measurement"
)

// Record is one entry of a bulk historical log. Legacy records hold
// [tag, channel, reserved, timestamp, value]; E1 records hold
// [tag, channel, reserved, timestamp, temperature, humidity, pressure, pm25, co2, voc, nox, flags, ...].
type Record []int64

// Format reports which record shape r has, or FormatUnknown when it has neither.
func (r Record) Format() measurement.Format {
	switch {
	case len(r) == legacyFieldCount:
		return measurement.FormatLegacy
	case len(r) >= e1MinFieldCount:
		return measurement.FormatE1
	default:
		return measurement.FormatUnknown
	}
}

// DecodeLogRecord decodes one log record of the device at address.
func DecodeLogRecord(rec Record, address string) (*measurement.Snapshot, error) {
	device, err := measurement.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	if len(rec) > recTimestamp && (rec[recTimestamp] < 0 || rec[recTimestamp] > math.MaxUint32) {
		return nil, malformed("timestamp %d out of range", rec[recTimestamp])
	}

	switch rec.Format() {
	case measurement.FormatLegacy:
		return decodeLegacy(rec, device), nil
	case measurement.FormatE1:
		return decodeE1(rec, device)
	default:
		return nil, malformed("record has %d fields", len(rec))
	}
}

// DecodeLog decodes every record of a log. Records that fail to decode are skipped and
// reported as *RecordError; they never stop the remaining records from being decoded.
func DecodeLog(records []Record, address string) ([]*measurement.Snapshot, []error) {
	snapshots := make([]*measurement.Snapshot, 0, len(records))
	var skipped []error

	for i, rec := range records {
		snap, err := DecodeLogRecord(rec, address)
		if err != nil {
			skipped = append(skipped, &RecordError{Index: i, Err: err})
			continue
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, skipped
}

// ParseLegacyPacket parses one 11-byte packet of a legacy log transfer.
// The terminating packet yields ErrEndOfLog.
func ParseLegacyPacket(packet []byte) (Record, error) {
	if len(packet) != legacyPacketLength {
		return nil, malformed("legacy packet is %d bytes, expected %d", len(packet), legacyPacketLength)
	}

	ts := binary.BigEndian.Uint32(packet[3:7])
	value := binary.BigEndian.Uint32(packet[7:11])
	if ts == legacyEndMarker && value == legacyEndMarker {
		return nil, ErrEndOfLog
	}

	return Record{
		int64(packet[0]),
		int64(packet[1]),
		int64(packet[2]),
		int64(ts),
		int64(int32(value)),
	}, nil
}

func decodeLegacy(rec Record, device string) *measurement.Snapshot {
	snap := measurement.NewSnapshot(device, measurement.Epoch(rec[recTimestamp]), measurement.FormatLegacy)
	value := float64(rec[recValue]) / 100

	switch rec[recChannel] {
	case legacyTemperature:
		add(snap, measurement.Temperature, value)
	case legacyHumidity:
		add(snap, measurement.Humidity, value)
	case legacyPressure:
		add(snap, measurement.AirPressure, value)
	}

	return snap
}

func decodeE1(rec Record, device string) (*measurement.Snapshot, error) {
	if rec[recE1Temperature] != sentinelLogTemp && (rec[recE1Temperature] < math.MinInt16 || rec[recE1Temperature] > math.MaxInt16) {
		return nil, malformed("temperature %d out of range", rec[recE1Temperature])
	}
	for _, i := range []int{recE1Humidity, recE1Pressure, recE1PM25, recE1CO2} {
		if rec[i] < 0 || rec[i] > math.MaxUint16 {
			return nil, malformed("field %d value %d out of range", i, rec[i])
		}
	}
	for _, i := range []int{recE1VOC, recE1NOx, recE1Flags} {
		if rec[i] < 0 || rec[i] > math.MaxUint8 {
			return nil, malformed("field %d value %d out of range", i, rec[i])
		}
	}

	snap := measurement.NewSnapshot(device, measurement.Epoch(rec[recTimestamp]), measurement.FormatE1)

	if rec[recE1Temperature] == sentinelLogTemp {
		snap.Reject(measurement.Temperature, measurement.ErrSentinel)
	} else {
		add(snap, measurement.Temperature, float64(rec[recE1Temperature])/200)
	}

	addUnlessSentinel(snap, measurement.Humidity, uint16(rec[recE1Humidity]), sentinelU16, func(raw uint16) float64 {
		return float64(raw) / 400
	})
	addUnlessSentinel(snap, measurement.AirPressure, uint16(rec[recE1Pressure]), sentinelU16, func(raw uint16) float64 {
		return pressure(int64(raw))
	})
	addUnlessSentinel(snap, measurement.PM25, uint16(rec[recE1PM25]), sentinelU16, func(raw uint16) float64 {
		return particulates(int64(raw))
	})
	addUnlessSentinel(snap, measurement.CO2, uint16(rec[recE1CO2]), sentinelU16, toFloat)

	flags := byte(rec[recE1Flags])
	addUnlessSentinel(snap, measurement.VOC, nineBit(byte(rec[recE1VOC]), flags, flagVOCLowBit), sentinelNineBit, toFloat)
	addUnlessSentinel(snap, measurement.NOx, nineBit(byte(rec[recE1NOx]), flags, flagNOxLowBit), sentinelNineBit, toFloat)
	snap.CalibrationInProgress = flags&flagCalibration != 0

	return snap, nil
}
