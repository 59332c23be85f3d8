package gateway

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/timgluz/luftspiegel/device"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/task"
)

// Message is the JSON document a Ruuvi Gateway publishes for every relayed advertisement.
type Message struct {
	GatewayMAC string    `json:"gw_mac"`
	RSSI       int       `json:"rssi"`
	Timestamp  Timestamp `json:"ts"`
	Data       string    `json:"data"`
	MAC        string    `json:"mac,omitempty"`
}

// Timestamp accepts both the quoted and the numeric "ts" of the gateway firmware versions.
type Timestamp measurement.Epoch

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*t = 0
		return nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid gateway timestamp %s: %w", data, err)
	}
	*t = Timestamp(v)
	return nil
}

// ParseMessage decodes a gateway message published on topic. The tag address is the "mac"
// field when present, otherwise the last topic segment.
func ParseMessage(topic string, payload []byte) (task.Advertisement, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return task.Advertisement{}, fmt.Errorf("failed to decode gateway message: %w", err)
	}

	address := msg.MAC
	if address == "" {
		address = lastTopicSegment(topic)
	}

	canonical, err := measurement.ParseAddress(address)
	if err != nil {
		return task.Advertisement{}, err
	}

	raw, err := hex.DecodeString(msg.Data)
	if err != nil {
		return task.Advertisement{}, fmt.Errorf("%w: data is not hex: %w", ErrMalformedAdvertisement, err)
	}

	frame, err := ExtractManufacturerData(raw)
	if err != nil {
		return task.Advertisement{}, err
	}

	return task.Advertisement{
		Address:    canonical,
		Name:       device.DefaultName(canonical),
		Data:       frame,
		ReceivedAt: measurement.Epoch(msg.Timestamp),
	}, nil
}

func lastTopicSegment(topic string) string {
	parts := strings.Split(strings.TrimRight(topic, "/"), "/")
	return parts[len(parts)-1]
}
