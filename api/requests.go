package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/timgluz/luftspiegel/decoder"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/task"
)

const maxBodyBytes = 4 << 20

type advertisementRequest struct {
	Address    string            `json:"address"`
	Name       string            `json:"name"`
	Data       string            `json:"data"`
	ReceivedAt measurement.Epoch `json:"received_at"`
}

func (req advertisementRequest) advertisement() (task.Advertisement, error) {
	data, err := hex.DecodeString(req.Data)
	if err != nil {
		return task.Advertisement{}, fmt.Errorf("%w: data is not hex: %w", errBadPayload, err)
	}

	return task.Advertisement{
		Address:    req.Address,
		Name:       req.Name,
		Data:       data,
		ReceivedAt: req.ReceivedAt,
	}, nil
}

// logRequest carries either decoded records or the raw packets of a legacy transfer.
type logRequest struct {
	Name    string           `json:"name,omitempty"`
	Sensor  string           `json:"sensor"`
	Records []decoder.Record `json:"records"`
	Packets []string         `json:"packets"`
}

func (req logRequest) packets() ([][]byte, error) {
	packets := make([][]byte, 0, len(req.Packets))
	for i, p := range req.Packets {
		b, err := hex.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("%w: packet %d is not hex: %w", errBadPayload, i, err)
		}
		packets = append(packets, b)
	}
	return packets, nil
}

// renameRequest is a device document; the address in the path wins over the body.
type renameRequest struct {
	Address string `json:"address,omitempty"`
	Name    string `json:"name"`
}

type syncStartResponse struct {
	Device  string            `json:"device"`
	Sensor  string            `json:"sensor"`
	Start   measurement.Epoch `json:"start"`
	Request string            `json:"request"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadPayload, err)
	}
	return nil
}

// periodFromRequest reads either an ISO 8601 "period" ending now or explicit "start" and "end"
// timestamps. "end" defaults to now.
func periodFromRequest(r *http.Request) (measurement.Period, error) {
	query := r.URL.Query()
	now := measurement.CurrentEpoch()

	startParam := query.Get("start")
	if startParam == "" {
		period := query.Get("period")
		if period == "" {
			period = task.DefaultPeriod
		}

		p, err := measurement.NewFromISO8601Duration(period, now)
		if err != nil {
			return measurement.Period{}, fmt.Errorf("%w: %w", measurement.ErrInvalidPeriod, err)
		}
		return *p, nil
	}

	start, err := measurement.ParseTimestamp(startParam)
	if err != nil {
		return measurement.Period{}, fmt.Errorf("%w: %w", errBadPayload, err)
	}

	end := now
	if endParam := query.Get("end"); endParam != "" {
		if end, err = measurement.ParseTimestamp(endParam); err != nil {
			return measurement.Period{}, fmt.Errorf("%w: %w", errBadPayload, err)
		}
	}

	period := measurement.Period{Start: start, End: end}
	if !period.IsValid() {
		return measurement.Period{}, measurement.ErrInvalidPeriod
	}
	return period, nil
}

func maxPointsFromRequest(r *http.Request) (int, error) {
	param := r.URL.Query().Get("max_points")
	if param == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(param)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: max_points must be a positive integer", errBadPayload)
	}
	return n, nil
}
