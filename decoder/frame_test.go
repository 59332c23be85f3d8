package decoder

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timgluz/luftspiegel/measurement"
)

const sourceAddress = "aa:bb:cc:dd:ee:ff"

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func value(t *testing.T, snap *measurement.Snapshot, ch measurement.Channel) float64 {
	t.Helper()
	v, ok := snap.Get(ch)
	require.True(t, ok, "channel %s missing", ch)
	return v
}

func TestDecodeFrameDF5ReferenceVector(t *testing.T) {
	frame := mustHex(t, "0512FC5394C37C0004FFFC040CAC364200CDCBB8334C884F")

	snap, err := DecodeFrame(frame, sourceAddress, 1700000000)
	require.NoError(t, err)

	assert.Equal(t, "CB:B8:33:4C:88:4F", snap.Device)
	assert.Equal(t, measurement.FormatDF5, snap.Format)
	assert.Equal(t, measurement.Epoch(1700000000), snap.Timestamp)
	assert.InDelta(t, 24.3, value(t, snap, measurement.Temperature), 1e-9)
	assert.InDelta(t, 53.49, value(t, snap, measurement.Humidity), 1e-9)
	assert.InDelta(t, 1000.44, value(t, snap, measurement.AirPressure), 1e-9)
	assert.InDelta(t, 0.004, value(t, snap, measurement.AccelerationX), 1e-9)
	assert.InDelta(t, -0.004, value(t, snap, measurement.AccelerationY), 1e-9)
	assert.InDelta(t, 1.036, value(t, snap, measurement.AccelerationZ), 1e-9)
	assert.InDelta(t, 2.977, value(t, snap, measurement.BatteryVoltage), 1e-9)
	assert.Equal(t, 4.0, value(t, snap, measurement.TxPower))
	assert.Equal(t, 66.0, value(t, snap, measurement.MovementCounter))
	assert.Equal(t, 205.0, value(t, snap, measurement.MeasurementSequence))
	assert.Empty(t, snap.Rejected)
}

func TestDecodeFrameDF5Sentinels(t *testing.T) {
	frame := mustHex(t, "0512FCFFFFFFFF0004FFFC040CAC364200CDCBB8334C884F")

	snap, err := DecodeFrame(frame, sourceAddress, 1)
	require.NoError(t, err)

	assert.False(t, snap.Has(measurement.Humidity))
	assert.False(t, snap.Has(measurement.AirPressure))
	assert.True(t, snap.Has(measurement.Temperature))
	require.Len(t, snap.Rejected, 2)
	for _, rejection := range snap.Rejected {
		assert.ErrorIs(t, rejection.Reason, measurement.ErrSentinel)
	}
}

func TestDecodeFrameDF5HumidityOutOfRange(t *testing.T) {
	frame := mustHex(t, "0512FCFFFEC37C0004FFFC040CAC364200CDCBB8334C884F")

	snap, err := DecodeFrame(frame, sourceAddress, 1)
	require.NoError(t, err)

	assert.False(t, snap.Has(measurement.Humidity))
	assert.True(t, snap.Has(measurement.AirPressure))
	require.Len(t, snap.Rejected, 1)
	assert.ErrorIs(t, snap.Rejected[0].Reason, measurement.ErrInvalidChannel)
}

func df6Frame(flags byte) []byte {
	frame := make([]byte, FrameLength)
	frame[0] = DataFormat6
	binary.BigEndian.PutUint16(frame[df6Temperature:], 0x12FC)
	binary.BigEndian.PutUint16(frame[df6Humidity:], 0x5394)
	binary.BigEndian.PutUint16(frame[df6Pressure:], 0xC37C)
	binary.BigEndian.PutUint16(frame[df6PM25:], 100)
	binary.BigEndian.PutUint16(frame[df6CO2:], 800)
	frame[df6VOC] = 50
	frame[df6NOx] = 1
	frame[df6Sequence] = 123
	frame[df6Flags] = flags
	copy(frame[17:20], []byte{0xDD, 0xEE, 0xFF})
	return frame
}

func TestDecodeFrameDF6(t *testing.T) {
	snap, err := DecodeFrame(df6Frame(0xC1), sourceAddress, 42)
	require.NoError(t, err)

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", snap.Device)
	assert.Equal(t, measurement.FormatDF6, snap.Format)
	assert.InDelta(t, 24.3, value(t, snap, measurement.Temperature), 1e-9)
	assert.InDelta(t, 53.49, value(t, snap, measurement.Humidity), 1e-9)
	assert.InDelta(t, 1000.44, value(t, snap, measurement.AirPressure), 1e-9)
	assert.InDelta(t, 10.0, value(t, snap, measurement.PM25), 1e-9)
	assert.Equal(t, 800.0, value(t, snap, measurement.CO2))
	assert.Equal(t, 101.0, value(t, snap, measurement.VOC))
	assert.Equal(t, 3.0, value(t, snap, measurement.NOx))
	assert.Equal(t, 123.0, value(t, snap, measurement.MeasurementSequence))
	assert.True(t, snap.CalibrationInProgress)
}

func TestDecodeFrameDF6FlagBitsClear(t *testing.T) {
	snap, err := DecodeFrame(df6Frame(0x00), sourceAddress, 42)
	require.NoError(t, err)

	assert.Equal(t, 100.0, value(t, snap, measurement.VOC))
	assert.Equal(t, 2.0, value(t, snap, measurement.NOx))
	assert.False(t, snap.CalibrationInProgress)
}

func TestDecodeFrameDF6Sentinels(t *testing.T) {
	frame := make([]byte, FrameLength)
	frame[0] = DataFormat6
	binary.BigEndian.PutUint16(frame[df6Temperature:], 0x7FFF)
	binary.BigEndian.PutUint16(frame[df6Humidity:], 0xFFFF)
	binary.BigEndian.PutUint16(frame[df6Pressure:], 0xFFFF)
	binary.BigEndian.PutUint16(frame[df6PM25:], 0xFFFF)
	binary.BigEndian.PutUint16(frame[df6CO2:], 0xFFFF)
	frame[df6VOC] = 0xFF
	frame[df6NOx] = 0xFF
	frame[df6Sequence] = 9
	frame[df6Flags] = 0xC0

	snap, err := DecodeFrame(frame, sourceAddress, 42)
	require.NoError(t, err)

	require.Len(t, snap.Measurements, 1)
	assert.Equal(t, measurement.MeasurementSequence, snap.Measurements[0].Channel)
	assert.Len(t, snap.Rejected, 7)
	for _, rejection := range snap.Rejected {
		assert.ErrorIs(t, rejection.Reason, measurement.ErrSentinel)
	}
}

func TestDecodeFrameDF6RequiresAddress(t *testing.T) {
	_, err := DecodeFrame(df6Frame(0), "not-an-address", 42)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestDecodeFrameErrors(t *testing.T) {
	unsupported := make([]byte, FrameLength)
	unsupported[0] = 0x03

	testCases := []struct {
		name     string
		frame    []byte
		expected error
	}{
		{name: "all zero", frame: make([]byte, FrameLength), expected: ErrEmptyFrame},
		{name: "unknown format", frame: unsupported, expected: ErrUnsupportedFormat},
		{name: "too short", frame: []byte{0x05, 0x01}, expected: ErrMalformedRecord},
		{name: "too long", frame: make([]byte, FrameLength+1), expected: ErrMalformedRecord},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := DecodeFrame(tc.frame, sourceAddress, 1)
			assert.Nil(t, snap)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestUnsupportedFormatReportsValue(t *testing.T) {
	frame := make([]byte, FrameLength)
	frame[0] = 0xE1

	_, err := DecodeFrame(frame, sourceAddress, 1)

	var formatErr *UnsupportedFormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, byte(0xE1), formatErr.Format)
	assert.False(t, errors.Is(err, ErrEmptyFrame))
}

type df5Values struct {
	temperature, humidity, pressure float64
	accel                           [3]float64
	battery, tx                     float64
	movement                        byte
	sequence                        uint16
}

// encodeDF5 is the inverse of the DF5 decode rules.
func encodeDF5(v df5Values, address []byte) []byte {
	frame := make([]byte, FrameLength)
	frame[0] = DataFormat5
	binary.BigEndian.PutUint16(frame[df5Temperature:], uint16(int16(math.Round(v.temperature/0.005))))
	binary.BigEndian.PutUint16(frame[df5Humidity:], uint16(math.Round(v.humidity/0.0025)))
	binary.BigEndian.PutUint16(frame[df5Pressure:], uint16(math.Round(v.pressure*100-50000)))
	for i, offset := range []int{df5AccelX, df5AccelY, df5AccelZ} {
		binary.BigEndian.PutUint16(frame[offset:], uint16(int16(math.Round(v.accel[i]*1000))))
	}
	battery := uint16(math.Round((v.battery - 1.6) * 1000))
	tx := uint16(math.Round((v.tx + 40) / 2))
	binary.BigEndian.PutUint16(frame[df5Power:], battery<<batteryShift|tx)
	frame[df5Movement] = v.movement
	binary.BigEndian.PutUint16(frame[df5Sequence:], v.sequence)
	copy(frame[df5Address:], address)
	return frame
}

func TestDecodeFrameDF5RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	address := []byte{0xC0, 0xFF, 0xEE, 0x00, 0x00, 0x01}

	for i := 0; i < 500; i++ {
		v := df5Values{
			temperature: -163 + rng.Float64()*326,
			humidity:    rng.Float64() * 100,
			pressure:    500 + rng.Float64()*655,
			accel:       [3]float64{-32 + rng.Float64()*64, -32 + rng.Float64()*64, -32 + rng.Float64()*64},
			battery:     1.6 + rng.Float64()*2.0,
			tx:          float64(-40 + 2*rng.Intn(32)),
			movement:    byte(rng.Intn(256)),
			sequence:    uint16(rng.Intn(65535)),
		}

		snap, err := DecodeFrame(encodeDF5(v, address), sourceAddress, 1)
		require.NoError(t, err)

		assert.Equal(t, "C0:FF:EE:00:00:01", snap.Device)
		assert.InDelta(t, v.temperature, value(t, snap, measurement.Temperature), 0.005)
		assert.InDelta(t, v.humidity, value(t, snap, measurement.Humidity), 0.0025)
		assert.InDelta(t, v.pressure, value(t, snap, measurement.AirPressure), 0.01)
		assert.InDelta(t, v.accel[0], value(t, snap, measurement.AccelerationX), 0.001)
		assert.InDelta(t, v.accel[1], value(t, snap, measurement.AccelerationY), 0.001)
		assert.InDelta(t, v.accel[2], value(t, snap, measurement.AccelerationZ), 0.001)
		assert.InDelta(t, v.battery, value(t, snap, measurement.BatteryVoltage), 0.001)
		assert.Equal(t, v.tx, value(t, snap, measurement.TxPower))
		assert.Equal(t, float64(v.movement), value(t, snap, measurement.MovementCounter))
		assert.Equal(t, float64(v.sequence), value(t, snap, measurement.MeasurementSequence))
	}
}

func FuzzDecodeFrame(f *testing.F) {
	f.Add(mustHex(f, "0512FC5394C37C0004FFFC040CAC364200CDCBB8334C884F"))
	f.Add(df6Frame(0xC1))
	f.Add(make([]byte, FrameLength))
	f.Add([]byte{0x06})

	f.Fuzz(func(t *testing.T, frame []byte) {
		snap, err := DecodeFrame(frame, sourceAddress, 1)
		if err != nil {
			require.Nil(t, snap)
			return
		}

		for _, m := range snap.Measurements {
			require.False(t, math.IsNaN(m.Value))
			if m.Channel == measurement.Humidity {
				require.LessOrEqual(t, m.Value, 100.0)
			}
		}
	})
}
