package measurement

import (
	"fmt"
)

// Format identifies the wire layout a snapshot was decoded from.
type Format string

const (
	FormatDF5     Format = "df5"
	FormatDF6     Format = "df6"
	FormatE1      Format = "e1"
	FormatLegacy  Format = "legacy"
	FormatUnknown Format = "unknown"
)

// Rejection records a channel that was present in the input but dropped during decoding.
type Rejection struct {
	Channel Channel `json:"channel"`
	Reason  error   `json:"-"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s: %v", r.Channel, r.Reason)
}

// Snapshot is the set of valid measurements decoded from one frame or log record.
type Snapshot struct {
	Device                string        `json:"device"`
	Timestamp             Epoch         `json:"timestamp"`
	Format                Format        `json:"format"`
	Measurements          []Measurement `json:"measurements"`
	CalibrationInProgress bool          `json:"calibration_in_progress,omitempty"`
	AirQualityScore       *int          `json:"air_quality_score,omitempty"`

	Rejected []Rejection `json:"-"`
}

func NewSnapshot(device string, timestamp Epoch, format Format) *Snapshot {
	return &Snapshot{
		Device:       device,
		Timestamp:    timestamp,
		Format:       format,
		Measurements: make([]Measurement, 0, 8),
	}
}

// Add stores a valid channel value.
func (s *Snapshot) Add(channel Channel, value float64) {
	s.Measurements = append(s.Measurements, Measurement{Channel: channel, Value: value})
}

// Reject notes that channel was dropped; it never appears in Measurements.
func (s *Snapshot) Reject(channel Channel, reason error) {
	s.Rejected = append(s.Rejected, Rejection{Channel: channel, Reason: reason})
}

func (s *Snapshot) Get(channel Channel) (float64, bool) {
	for _, m := range s.Measurements {
		if m.Channel == channel {
			return m.Value, true
		}
	}
	return 0, false
}

func (s *Snapshot) Has(channel Channel) bool {
	_, ok := s.Get(channel)
	return ok
}

func (s *Snapshot) IsEmpty() bool {
	return len(s.Measurements) == 0
}

// Batch is an arrival-ordered list of samples for one device channel, inserted as a unit.
type Batch struct {
	Device  string   `json:"device"`
	Channel Channel  `json:"channel"`
	Samples []Sample `json:"samples"`
}

// Partition splits snapshots into one batch per (device, stored channel). Samples keep the
// order in which their snapshots arrived; empty batches are not returned.
func Partition(snapshots []*Snapshot) []Batch {
	type key struct {
		device  string
		channel Channel
	}

	var devices []string
	seen := make(map[string]bool)
	lists := make(map[key][]Sample)

	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		for _, m := range snap.Measurements {
			if !m.Channel.IsStored() {
				continue
			}
			if !seen[snap.Device] {
				seen[snap.Device] = true
				devices = append(devices, snap.Device)
			}
			k := key{snap.Device, m.Channel}
			lists[k] = append(lists[k], Sample{Timestamp: snap.Timestamp, Value: m.Value})
		}
	}

	batches := make([]Batch, 0, len(lists))
	for _, device := range devices {
		for _, channel := range StoredChannels {
			samples := lists[key{device, channel}]
			if len(samples) == 0 {
				continue
			}
			batches = append(batches, Batch{Device: device, Channel: channel, Samples: samples})
		}
	}

	return batches
}
