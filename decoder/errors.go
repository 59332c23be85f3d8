package decoder

import (
	"errors"
	"fmt"

	"github.com/timgluz/luftspiegel/measurement"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported data format")
	// ErrEmptyFrame is returned for all-zero frames, which collectors emit when they have no data.
	ErrEmptyFrame      = errors.New("empty frame")
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidAddress  = measurement.ErrInvalidAddress
	// ErrEndOfLog marks the terminating packet of a legacy log transfer.
	ErrEndOfLog = errors.New("end of log")
)

// UnsupportedFormatError reports the format byte of a frame that could not be decoded.
type UnsupportedFormatError struct {
	Format byte
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported data format 0x%02X", e.Format)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// RecordError ties a decode failure to the position of the record within a log.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}
