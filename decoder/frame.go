package decoder

import (
	"github.com/timgluz/luftspiegel/measurement"
)

// DecodeFrame decodes one manufacturer data frame received at ts.
//
// DF5 frames carry the device address in their last six bytes; for DF6 the advertisement
// source address is used. Channels holding a "no reading" marker or an out-of-range value
// are left out of the snapshot and listed in Snapshot.Rejected.
func DecodeFrame(frame []byte, address string, ts measurement.Epoch) (*measurement.Snapshot, error) {
	if len(frame) != FrameLength {
		return nil, malformed("frame is %d bytes, expected %d", len(frame), FrameLength)
	}

	if isZero(frame) {
		return nil, ErrEmptyFrame
	}

	switch frame[formatOffset] {
	case DataFormat5:
		return decodeDF5(frame, ts)
	case DataFormat6:
		return decodeDF6(frame, address, ts)
	default:
		return nil, &UnsupportedFormatError{Format: frame[formatOffset]}
	}
}

func decodeDF5(frame []byte, ts measurement.Epoch) (*measurement.Snapshot, error) {
	address, err := measurement.FormatAddress(frame[df5Address : df5Address+measurement.AddressLength])
	if err != nil {
		return nil, err
	}

	snap := measurement.NewSnapshot(address, ts, measurement.FormatDF5)
	add(snap, measurement.Temperature, temperature(int16(u16(frame, df5Temperature))))
	addUnlessSentinel(snap, measurement.Humidity, u16(frame, df5Humidity), sentinelU16, humidity)
	addUnlessSentinel(snap, measurement.AirPressure, u16(frame, df5Pressure), sentinelU16, func(raw uint16) float64 {
		return pressure(int64(raw))
	})

	add(snap, measurement.AccelerationX, acceleration(int16(u16(frame, df5AccelX))))
	add(snap, measurement.AccelerationY, acceleration(int16(u16(frame, df5AccelY))))
	add(snap, measurement.AccelerationZ, acceleration(int16(u16(frame, df5AccelZ))))

	power := u16(frame, df5Power)
	add(snap, measurement.BatteryVoltage, batteryVoltage(power))
	add(snap, measurement.TxPower, txPower(power))

	add(snap, measurement.MovementCounter, float64(frame[df5Movement]))
	add(snap, measurement.MeasurementSequence, float64(u16(frame, df5Sequence)))

	return snap, nil
}

func decodeDF6(frame []byte, address string, ts measurement.Epoch) (*measurement.Snapshot, error) {
	device, err := measurement.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	snap := measurement.NewSnapshot(device, ts, measurement.FormatDF6)
	addUnlessSentinel(snap, measurement.Temperature, u16(frame, df6Temperature), sentinelTemperature, func(raw uint16) float64 {
		return temperature(int16(raw))
	})
	addUnlessSentinel(snap, measurement.Humidity, u16(frame, df6Humidity), sentinelU16, humidity)
	addUnlessSentinel(snap, measurement.AirPressure, u16(frame, df6Pressure), sentinelU16, func(raw uint16) float64 {
		return pressure(int64(raw))
	})
	addUnlessSentinel(snap, measurement.PM25, u16(frame, df6PM25), sentinelU16, func(raw uint16) float64 {
		return particulates(int64(raw))
	})
	addUnlessSentinel(snap, measurement.CO2, u16(frame, df6CO2), sentinelU16, func(raw uint16) float64 {
		return float64(raw)
	})

	flags := frame[df6Flags]
	addUnlessSentinel(snap, measurement.VOC, nineBit(frame[df6VOC], flags, flagVOCLowBit), sentinelNineBit, toFloat)
	addUnlessSentinel(snap, measurement.NOx, nineBit(frame[df6NOx], flags, flagNOxLowBit), sentinelNineBit, toFloat)

	add(snap, measurement.MeasurementSequence, float64(frame[df6Sequence]))
	snap.CalibrationInProgress = flags&flagCalibration != 0

	return snap, nil
}

func toFloat(raw uint16) float64 {
	return float64(raw)
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
