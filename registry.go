package binlog

// DecoderPriority orders decoders competing for the same event type.
type DecoderPriority int

const (
	PriorityLow DecoderPriority = iota
	PriorityNormal
	PriorityHigh
	// PriorityCritical marks decoders the stream cannot stay consistent
	// without: table map, format description and the GTID events.
	PriorityCritical
)

func (p DecoderPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	}
	return "unknown"
}

// ConflictPolicy governs registering a second decoder for an event
// type that already has one.
type ConflictPolicy int

const (
	// ConflictReject fails the registration.
	ConflictReject ConflictPolicy = iota
	// ConflictOverrideLower replaces the existing decoder only when the
	// new one has strictly higher priority.
	ConflictOverrideLower
	// ConflictKeepExisting silently keeps the registered decoder.
	ConflictKeepExisting
)

// EventDecoder decodes the body of one (or several versioned) event
// types. The reader is positioned after the common header with the
// checksum trailer already stripped.
type EventDecoder interface {
	Name() string
	Priority() DecoderPriority

	// CanDecode pre-checks applicability, letting one decoder claim
	// several versioned type codes (e.g. WriteRows v1 and v2).
	CanDecode(typ EventType, body []byte) bool

	Decode(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error)
}

// DecoderFunc adapts a function to the EventDecoder interface.
type DecoderFunc struct {
	DecoderName     string
	DecoderPriority DecoderPriority
	Func            func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error)
}

func (d DecoderFunc) Name() string                     { return d.DecoderName }
func (d DecoderFunc) Priority() DecoderPriority        { return d.DecoderPriority }
func (d DecoderFunc) CanDecode(EventType, []byte) bool { return true }
func (d DecoderFunc) Decode(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
	return d.Func(r, h, ctx)
}

// decoderRegistry maps event-type codes to decoders.
type decoderRegistry struct {
	decoders map[EventType]EventDecoder
}

func newDecoderRegistry() *decoderRegistry {
	return &decoderRegistry{decoders: make(map[EventType]EventDecoder)}
}

// register installs a decoder for an event type under the given
// conflict policy.
func (reg *decoderRegistry) register(typ EventType, dec EventDecoder, policy ConflictPolicy) error {
	existing, ok := reg.decoders[typ]
	if !ok {
		reg.decoders[typ] = dec
		return nil
	}
	switch policy {
	case ConflictReject:
		return ErrDecoderConflict.New(typ, "already registered: "+existing.Name())
	case ConflictKeepExisting:
		return nil
	case ConflictOverrideLower:
		if dec.Priority() > existing.Priority() {
			reg.decoders[typ] = dec
			return nil
		}
		return ErrDecoderConflict.New(typ,
			"existing decoder "+existing.Name()+" has priority "+existing.Priority().String()+
				" >= "+dec.Priority().String())
	}
	return ErrDecoderConflict.New(typ, "unknown conflict policy")
}

// lookup returns the decoder willing to handle the event, if any.
func (reg *decoderRegistry) lookup(typ EventType, body []byte) (EventDecoder, bool) {
	dec, ok := reg.decoders[typ]
	if !ok || !dec.CanDecode(typ, body) {
		return nil, false
	}
	return dec, true
}
