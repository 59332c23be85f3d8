package airquality

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timgluz/luftspiegel/measurement"
)

func TestCalculate(t *testing.T) {
	testCases := []struct {
		name     string
		pm25     float64
		co2      float64
		expected int
	}{
		{name: "clean air", pm25: 0, co2: 420, expected: 100},
		{name: "worst case", pm25: 60, co2: 2300, expected: 0},
		{name: "beyond reference range", pm25: 500, co2: 9000, expected: 0},
		{name: "co2 below outdoor level", pm25: 0, co2: 5, expected: 100},
		{name: "mid range", pm25: 30, co2: 1200, expected: 35},
		{name: "half rounds away from zero", pm25: 4.5, co2: 420, expected: 93},
		{name: "typical indoor", pm25: 10, co2: 800, expected: 74},
		{name: "stuffy room", pm25: 12, co2: 1000, expected: 63},
		{name: "fresh room", pm25: 5, co2: 600, expected: 87},
		{name: "near half boundary", pm25: 30, co2: 1360, expected: 29},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score, ok := Calculate(tc.pm25, tc.co2).Value()
			require.True(t, ok)
			assert.Equal(t, tc.expected, score)
		})
	}
}

func TestCalculateUndefined(t *testing.T) {
	testCases := []struct {
		name string
		pm25 float64
		co2  float64
	}{
		{name: "negative pm25", pm25: -1, co2: 1000},
		{name: "co2 below one", pm25: 10, co2: 0.5},
		{name: "nan", pm25: math.NaN(), co2: 800},
		{name: "infinite co2", pm25: 10, co2: math.Inf(1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, Calculate(tc.pm25, tc.co2).IsDefined())
		})
	}
}

func TestScoreJSON(t *testing.T) {
	b, err := json.Marshal([]Score{Calculate(0, 420), Undefined})
	require.NoError(t, err)
	assert.JSONEq(t, `[100, null]`, string(b))

	var decoded []Score
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, []Score{Calculate(0, 420), Undefined}, decoded)
}

func TestFromSnapshot(t *testing.T) {
	snap := measurement.NewSnapshot("AA:BB:CC:DD:EE:FF", 1, measurement.FormatDF6)
	snap.Add(measurement.PM25, 10)
	assert.False(t, FromSnapshot(snap).IsDefined())

	snap.Add(measurement.CO2, 800)
	score, ok := FromSnapshot(snap).Value()
	require.True(t, ok)
	assert.Equal(t, 74, score)
}

func TestCalculateSeriesInnerJoin(t *testing.T) {
	pm25 := []measurement.Sample{{Timestamp: 1, Value: 10}, {Timestamp: 2, Value: 20}}
	co2 := []measurement.Sample{{Timestamp: 1, Value: 500}, {Timestamp: 3, Value: 900}}

	points := CalculateSeries(pm25, co2)

	require.Len(t, points, 1)
	assert.Equal(t, measurement.Epoch(1), points[0].Timestamp)
	assert.Equal(t, Calculate(10, 500), points[0].Score)
}

func TestCalculateSeriesKeepsUndefinedTimestamps(t *testing.T) {
	pm25 := []measurement.Sample{{Timestamp: 1, Value: -1}, {Timestamp: 4, Value: 0}, {Timestamp: 6, Value: 5}}
	co2 := []measurement.Sample{{Timestamp: 1, Value: 500}, {Timestamp: 2, Value: 500}, {Timestamp: 4, Value: 420}}

	points := CalculateSeries(pm25, co2)

	require.Len(t, points, 2)
	assert.False(t, points[0].Score.IsDefined())
	assert.Equal(t, measurement.Epoch(4), points[1].Timestamp)

	samples := Samples(points)
	assert.Equal(t, []measurement.Sample{{Timestamp: 4, Value: 100}}, samples)
}

func TestCalculateSeriesEmpty(t *testing.T) {
	assert.Empty(t, CalculateSeries(nil, []measurement.Sample{{Timestamp: 1, Value: 500}}))
}
