package measurement

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
)

var (
	// ErrSentinel marks a channel whose raw value was the "no reading" marker.
	ErrSentinel = errors.New("no reading")
	// ErrInvalidChannel marks a channel whose value is outside its physical range.
	ErrInvalidChannel = errors.New("value out of range")
	ErrUnknownChannel = errors.New("unknown channel")
)

// Epoch is a point in time in seconds since the Unix epoch.
type Epoch int64

type Channel string

const (
	Temperature         Channel = "temperature"
	Humidity            Channel = "humidity"
	AirPressure         Channel = "air_pressure"
	AccelerationX       Channel = "acceleration_x"
	AccelerationY       Channel = "acceleration_y"
	AccelerationZ       Channel = "acceleration_z"
	BatteryVoltage      Channel = "battery_voltage"
	TxPower             Channel = "tx_power"
	MovementCounter     Channel = "movement_counter"
	MeasurementSequence Channel = "measurement_sequence"
	PM25                Channel = "pm25"
	CO2                 Channel = "co2"
	VOC                 Channel = "voc"
	NOx                 Channel = "nox"

	// AirQualityScore is never stored; it is derived from PM25 and CO2 on read.
	AirQualityScore Channel = "air_quality_score"
)

// StoredChannels is the fixed set of channels handed to the store, in batch order.
var StoredChannels = []Channel{Temperature, Humidity, AirPressure, PM25, CO2, VOC, NOx}

var channelUnits = map[Channel]string{
	Temperature:         "°C",
	Humidity:            "%RH",
	AirPressure:         "hPa",
	AccelerationX:       "g",
	AccelerationY:       "g",
	AccelerationZ:       "g",
	BatteryVoltage:      "V",
	TxPower:             "dBm",
	MovementCounter:     "",
	MeasurementSequence: "",
	PM25:                "µg/m³",
	CO2:                 "ppm",
	VOC:                 "index",
	NOx:                 "index",
	AirQualityScore:     "score",
}

// ParseChannel accepts a channel name in any case; "air pressure" is accepted for AirPressure.
func ParseChannel(name string) (Channel, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	ch := Channel(normalized)
	if _, ok := channelUnits[ch]; !ok {
		return "", ErrUnknownChannel
	}

	return ch, nil
}

func (c Channel) Unit() string {
	return channelUnits[c]
}

func (c Channel) IsStored() bool {
	for _, stored := range StoredChannels {
		if c == stored {
			return true
		}
	}
	return false
}

// IsCounter reports whether the channel carries an integer count rather than a continuous value.
func (c Channel) IsCounter() bool {
	switch c {
	case MovementCounter, MeasurementSequence, TxPower, CO2, VOC, NOx:
		return true
	default:
		return false
	}
}

// Measurement is one decoded channel value. Invalid values are rejected by the decoder and
// never become a Measurement.
type Measurement struct {
	Channel Channel `json:"channel"`
	Value   float64 `json:"value"`
}

func (m Measurement) Int() int64 {
	return int64(math.Round(m.Value))
}

// MarshalJSON writes counter channels as integers.
func (m Measurement) MarshalJSON() ([]byte, error) {
	type plain struct {
		Channel Channel `json:"channel"`
		Value   any     `json:"value"`
	}

	if m.Channel.IsCounter() {
		return json.Marshal(plain{Channel: m.Channel, Value: m.Int()})
	}
	return json.Marshal(plain{Channel: m.Channel, Value: m.Value})
}

type Sample struct {
	Timestamp Epoch   `json:"timestamp"`
	Value     float64 `json:"value"`
}

type Timeseries struct {
	Device  string   `json:"device"`
	Channel Channel  `json:"channel"`
	Unit    string   `json:"unit"`
	Samples []Sample `json:"samples"`
	Start   Epoch    `json:"start"` // epoch time in seconds
	End     Epoch    `json:"end"`   // epoch time in seconds
}
