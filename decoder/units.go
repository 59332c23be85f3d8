package decoder

import (
	"math"

	"github.com/timgluz/luftspiegel/measurement"
)

type valueRange struct {
	min, max float64
}

var physicalRanges = map[measurement.Channel]valueRange{
	measurement.Humidity:    {0, 100},
	measurement.AirPressure: {0, 10000},
}

func temperature(raw int16) float64 {
	return float64(raw) * 0.005
}

func humidity(raw uint16) float64 {
	return float64(raw) * 0.0025
}

func pressure(raw int64) float64 {
	return float64(raw+50000) / 100
}

func particulates(raw int64) float64 {
	return float64(raw) / 10
}

func acceleration(raw int16) float64 {
	return float64(raw) / 1000
}

func txPower(power uint16) float64 {
	return float64(power&txPowerMask)*2 - 40
}

func batteryVoltage(power uint16) float64 {
	return float64(power>>batteryShift)/1000 + 1.6
}

// nineBit rebuilds a 9-bit index from its high byte and one low bit of the flag byte.
func nineBit(high byte, flags byte, lowBit uint) uint16 {
	return uint16(high)<<1 | uint16(flags>>lowBit&1)
}

func u16(b []byte, offset int) uint16 {
	return uint16(b[offset])<<8 | uint16(b[offset+1])
}

// add stores value unless it is outside the channel's physical range.
func add(snap *measurement.Snapshot, channel measurement.Channel, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		snap.Reject(channel, measurement.ErrInvalidChannel)
		return
	}
	if r, ok := physicalRanges[channel]; ok && (value < r.min || value > r.max) {
		snap.Reject(channel, measurement.ErrInvalidChannel)
		return
	}

	snap.Add(channel, value)
}

func addUnlessSentinel(snap *measurement.Snapshot, channel measurement.Channel, raw, sentinel uint16, convert func(uint16) float64) {
	if raw == sentinel {
		snap.Reject(channel, measurement.ErrSentinel)
		return
	}

	add(snap, channel, convert(raw))
}
