// Package airquality derives a 0-100 air quality score from PM2.5 and CO2 readings.
package airquality

import (
	"encoding/json"
	"math"

	"github.com/timgluz/luftspiegel/measurement"
)

const (
	PM25Min = 0.0
	PM25Max = 60.0
	CO2Min  = 420.0
	CO2Max  = 2300.0
)

// Score is a value in [0, 100], or undefined when its inputs were out of domain.
type Score struct {
	value   int
	defined bool
}

// Undefined is the score of out-of-domain inputs.
var Undefined = Score{}

func (s Score) Value() (int, bool) {
	return s.value, s.defined
}

func (s Score) IsDefined() bool {
	return s.defined
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.defined {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var v *int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*s = Undefined
		return nil
	}
	*s = Score{value: *v, defined: true}
	return nil
}

// Calculate rescales both inputs onto [0, 100] after clamping them to their reference range
// and scores the Euclidean distance from the clean-air origin. Halves round away from zero.
func Calculate(pm25, co2 float64) Score {
	if !isFinite(pm25) || !isFinite(co2) || pm25 < 0 || co2 < 1 {
		return Undefined
	}

	pm25 = clamp(pm25, PM25Min, PM25Max)
	co2 = clamp(co2, CO2Min, CO2Max)

	dx := (pm25 - PM25Min) * 100 / (PM25Max - PM25Min)
	dy := (co2 - CO2Min) * 100 / (CO2Max - CO2Min)

	score := clamp(100-math.Hypot(dx, dy), 0, 100)
	return Score{value: int(math.Round(score)), defined: true}
}

// FromSnapshot scores a snapshot that carries both PM2.5 and CO2.
func FromSnapshot(snap *measurement.Snapshot) Score {
	pm25, ok := snap.Get(measurement.PM25)
	if !ok {
		return Undefined
	}
	co2, ok := snap.Get(measurement.CO2)
	if !ok {
		return Undefined
	}

	return Calculate(pm25, co2)
}

// Point is one scored timestamp of a series.
type Point struct {
	Timestamp measurement.Epoch `json:"timestamp"`
	Score     Score             `json:"value"`
}

// CalculateSeries scores the timestamps present in both ascending series. Timestamps with an
// undefined score are kept with a null value.
func CalculateSeries(pm25, co2 []measurement.Sample) []Point {
	points := make([]Point, 0, min(len(pm25), len(co2)))

	i, j := 0, 0
	for i < len(pm25) && j < len(co2) {
		switch {
		case pm25[i].Timestamp < co2[j].Timestamp:
			i++
		case pm25[i].Timestamp > co2[j].Timestamp:
			j++
		default:
			points = append(points, Point{
				Timestamp: pm25[i].Timestamp,
				Score:     Calculate(pm25[i].Value, co2[j].Value),
			})
			i++
			j++
		}
	}

	return points
}

// Samples drops undefined points and returns the rest as plain samples.
func Samples(points []Point) []measurement.Sample {
	samples := make([]measurement.Sample, 0, len(points))
	for _, p := range points {
		if v, ok := p.Score.Value(); ok {
			samples = append(samples, measurement.Sample{Timestamp: p.Timestamp, Value: float64(v)})
		}
	}
	return samples
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
