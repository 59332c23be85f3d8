package measurement

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/relvacode/iso8601"
	"github.com/sosodev/duration"
)

var (
	ErrInvalidEpoch  = fmt.Errorf("invalid epoch value")
	ErrInvalidPeriod = fmt.Errorf("invalid period: start must be before end")
)

func CurrentEpoch() Epoch {
	return Epoch(time.Now().Unix())
}

func (e Epoch) Time() time.Time {
	return time.Unix(int64(e), 0).UTC()
}

type Period struct {
	Start Epoch `json:"start"`
	End   Epoch `json:"end"`
}

func (p *Period) IsValid() bool {
	return p.Start < p.End
}

// Contains reports whether t lies within the closed interval [Start, End].
func (p *Period) Contains(t Epoch) bool {
	return t >= p.Start && t <= p.End
}

func (p *Period) String() string {
	dtDuration := p.End.Time().Sub(p.Start.Time())

	isoDuration := duration.FromTimeDuration(dtDuration)
	return isoDuration.String()
}

// NewFromISO8601Duration returns the period of the given length that ends at until.
func NewFromISO8601Duration(periodStr string, until Epoch) (*Period, error) {
	start, err := ParseISO8601Duration(periodStr, until)
	if err != nil {
		return nil, err
	}

	return &Period{
		Start: start,
		End:   until,
	}, nil
}

func ParseEpoch(epochString string) (Epoch, error) {
	epoch, err := strconv.ParseInt(epochString, 10, 64)
	if err != nil {
		return 0, err
	}

	if epoch < 0 {
		return 0, ErrInvalidEpoch
	}

	return Epoch(epoch), nil
}

// ParseTimestamp accepts either epoch seconds or an ISO 8601 date/time.
func ParseTimestamp(value string) (Epoch, error) {
	if epoch, err := ParseEpoch(value); err == nil {
		return epoch, nil
	}

	t, err := iso8601.ParseString(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	if t.Unix() < 0 {
		return 0, ErrInvalidEpoch
	}

	return Epoch(t.Unix()), nil
}

func ParseISO8601Duration(iso8601Duration string, until Epoch) (Epoch, error) {
	d, err := duration.Parse(iso8601Duration)
	if err != nil {
		return 0, err
	}

	durationSeconds := math.Ceil(d.ToTimeDuration().Seconds())
	start := until - Epoch(durationSeconds)
	if start < 0 {
		start = 0
	}

	return start, nil
}
