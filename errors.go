package binlog

import (
	"fmt"

	errors "gopkg.in/src-d/go-errors.v1"
)

// Error kinds returned by the decode pipeline. Decoders return errors,
// they never panic; the driver attaches positional context before the
// error reaches the consumer.
var (
	// ErrUnexpectedEOF is returned when a field or frame is truncated.
	ErrUnexpectedEOF = errors.NewKind("unexpected end of event data")

	// ErrChecksumMismatch is returned when the CRC32 trailer does not match
	// the event payload.
	ErrChecksumMismatch = errors.NewKind("checksum mismatch: computed 0x%08x, stored 0x%08x")

	// ErrUnknownEventType is returned for an event-type code with no decoder.
	ErrUnknownEventType = errors.NewKind("unknown event type 0x%02x")

	// ErrNoPrecedingTableMap is returned when a rows event references a
	// table id with no TableMapEvent in the cache.
	ErrNoPrecedingTableMap = errors.NewKind("no preceding table map event for table id %d")

	// ErrMalformedValue is returned when a column decoder disagrees with
	// the table-map metadata.
	ErrMalformedValue = errors.NewKind("malformed %s value: %s")

	// ErrUnsupportedEncoding is returned for a charset with no decoder.
	ErrUnsupportedEncoding = errors.NewKind("unsupported charset %d")

	// ErrDecoderConflict is returned by the registry when registration
	// violates the configured conflict policy.
	ErrDecoderConflict = errors.NewKind("decoder conflict on event type %s: %s")
)

// DecodeError is the structured error record emitted alongside events.
// The stream remains usable after a non-fatal DecodeError.
type DecodeError struct {
	File      string
	Offset    uint64
	EventType EventType
	Column    int // -1 when not column related
	Err       error
}

func (e *DecodeError) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("%s:%d: event %s: column %d: %v", e.File, e.Offset, e.EventType, e.Column, e.Err)
	}
	return fmt.Sprintf("%s:%d: event %s: %v", e.File, e.Offset, e.EventType, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Fatal reports whether the stream cannot continue past this error.
func (e *DecodeError) Fatal() bool {
	return ErrUnexpectedEOF.Is(e.Err)
}
