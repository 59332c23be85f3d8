package measurement

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{name: "lowercase colon", input: "cb:b8:33:4c:88:4f", expected: "CB:B8:33:4C:88:4F"},
		{name: "uppercase colon", input: "CB:B8:33:4C:88:4F", expected: "CB:B8:33:4C:88:4F"},
		{name: "hyphen delimited", input: "cb-b8-33-4c-88-4f", expected: "CB:B8:33:4C:88:4F"},
		{name: "bare hex", input: "cbb8334c884f", expected: "CB:B8:33:4C:88:4F"},
		{name: "surrounding space", input: "  cb:b8:33:4c:88:4f ", expected: "CB:B8:33:4C:88:4F"},
		{name: "eight octets", input: "01:23:45:67:89:ab:cd:ef", expectError: true},
		{name: "garbage", input: "not-a-mac", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			address, err := ParseAddress(tc.input)
			if tc.expectError {
				assert.ErrorIs(t, err, ErrInvalidAddress)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, address)
		})
	}
}

func TestFormatAddressRejectsShortInput(t *testing.T) {
	_, err := FormatAddress([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestParseChannel(t *testing.T) {
	ch, err := ParseChannel("Air Pressure")
	require.NoError(t, err)
	assert.Equal(t, AirPressure, ch)

	ch, err = ParseChannel("PM25")
	require.NoError(t, err)
	assert.Equal(t, PM25, ch)

	_, err = ParseChannel("radiation")
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestStoredChannels(t *testing.T) {
	assert.True(t, Temperature.IsStored())
	assert.True(t, NOx.IsStored())
	assert.False(t, BatteryVoltage.IsStored())
	assert.False(t, AirQualityScore.IsStored())
}

func TestMeasurementJSONWritesCountersAsIntegers(t *testing.T) {
	testCases := []struct {
		measurement Measurement
		expected    string
	}{
		{measurement: Measurement{Channel: CO2, Value: 800}, expected: `{"channel":"co2","value":800}`},
		{measurement: Measurement{Channel: TxPower, Value: -40}, expected: `{"channel":"tx_power","value":-40}`},
		{measurement: Measurement{Channel: Temperature, Value: 21.5}, expected: `{"channel":"temperature","value":21.5}`},
	}

	for _, tc := range testCases {
		t.Run(string(tc.measurement.Channel), func(t *testing.T) {
			data, err := json.Marshal(tc.measurement)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(data))
		})
	}
}

func TestSnapshotRejectKeepsChannelOut(t *testing.T) {
	snap := NewSnapshot("CB:B8:33:4C:88:4F", 100, FormatDF5)
	snap.Add(Temperature, 21.5)
	snap.Reject(Humidity, ErrSentinel)

	_, ok := snap.Get(Humidity)
	assert.False(t, ok)
	assert.True(t, snap.Has(Temperature))
	require.Len(t, snap.Rejected, 1)
	assert.ErrorIs(t, snap.Rejected[0].Reason, ErrSentinel)
}

func TestPartition(t *testing.T) {
	first := NewSnapshot("AA:AA:AA:AA:AA:AA", 10, FormatLegacy)
	first.Add(Humidity, 40)
	second := NewSnapshot("AA:AA:AA:AA:AA:AA", 5, FormatLegacy)
	second.Add(Temperature, 20)
	second.Add(BatteryVoltage, 3.0)
	third := NewSnapshot("AA:AA:AA:AA:AA:AA", 7, FormatLegacy)
	third.Add(Temperature, 21)

	batches := Partition([]*Snapshot{first, nil, second, third})

	require.Len(t, batches, 2)
	assert.Equal(t, Temperature, batches[0].Channel)
	assert.Equal(t, []Sample{{Timestamp: 5, Value: 20}, {Timestamp: 7, Value: 21}}, batches[0].Samples)
	assert.Equal(t, Humidity, batches[1].Channel)
	assert.Equal(t, []Sample{{Timestamp: 10, Value: 40}}, batches[1].Samples)
}

func TestPartitionEmpty(t *testing.T) {
	assert.Empty(t, Partition(nil))
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	score := 74
	snap := NewSnapshot("CB:B8:33:4C:88:4F", 100, FormatDF6)
	snap.Add(PM25, 10)
	snap.Add(CO2, 800)
	snap.AirQualityScore = &score
	snap.Reject(VOC, ErrSentinel)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "voc")

	var restored Snapshot
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, snap.Measurements, restored.Measurements)
	assert.Equal(t, 74, *restored.AirQualityScore)
	assert.Empty(t, restored.Rejected)
}
