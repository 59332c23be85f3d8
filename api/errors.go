package api

import (
	"errors"
	"net/http"

	"github.com/timgluz/luftspiegel/decoder"
	"github.com/timgluz/luftspiegel/device"
	"github.com/timgluz/luftspiegel/downsample"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/snapshot"
)

var (
	errNotReady   = errors.New("service is not ready")
	errPanic      = errors.New("internal server error")
	errBadPayload = errors.New("invalid request payload")
)

// statusFromError maps domain errors onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, snapshot.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadPayload),
		errors.Is(err, measurement.ErrInvalidAddress),
		errors.Is(err, measurement.ErrUnknownChannel),
		errors.Is(err, measurement.ErrInvalidPeriod),
		errors.Is(err, measurement.ErrInvalidEpoch),
		errors.Is(err, downsample.ErrUnordered):
		return http.StatusBadRequest
	case errors.Is(err, decoder.ErrEmptyFrame),
		errors.Is(err, decoder.ErrMalformedRecord),
		errors.Is(err, decoder.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
