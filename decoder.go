package binlog

import (
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

// StreamState is the driver's lifecycle state.
type StreamState int

const (
	// StateAwaitFormatDescription is the initial state: events are
	// decoded with default post-header lengths until a format
	// description arrives.
	StateAwaitFormatDescription StreamState = iota
	StateStreaming
	StateStopped
	StateFailed
)

func (s StreamState) String() string {
	switch s {
	case StateAwaitFormatDescription:
		return "awaitFormatDescription"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Config carries the decoder's tunables. The zero value is usable.
type Config struct {
	// ChecksumPolicyHint applies before the first format description
	// installs the authoritative policy.
	ChecksumPolicyHint ChecksumAlgorithm `yaml:"checksum_policy_hint"`

	TableMapCacheCapacity int `yaml:"table_map_cache_capacity"`

	// Value cache; zero capacity disables it.
	ValueCacheCapacity int           `yaml:"value_cache_capacity"`
	ValueCacheTTL      time.Duration `yaml:"value_cache_ttl"`

	StatisticsEnabled bool `yaml:"statistics_enabled"`

	// Tracer, when set, opens one span per delivered event.
	Tracer opentracing.Tracer `yaml:"-"`

	// Logger defaults to the standard logrus logger.
	Logger *logrus.Logger `yaml:"-"`
}

// Decoder drives the decode pipeline: one NextEvent call delivers one
// event. A Decoder owns its LogContext and must not be shared across
// goroutines; run one Decoder per stream instead.
type Decoder struct {
	cfg   Config
	ctx   *LogContext
	reg   *decoderRegistry
	state StreamState
	stats *StatsCollector
	log   *logrus.Entry

	buf []byte
	off int
}

// NewDecoder builds a decoder with the built-in event decoders
// registered.
func NewDecoder(cfg Config) *Decoder {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &Decoder{
		cfg:   cfg,
		ctx:   newLogContext(cfg.TableMapCacheCapacity),
		reg:   newDecoderRegistry(),
		stats: newStatsCollector(cfg.StatisticsEnabled),
		log:   logger.WithField("component", "binlog.decoder"),
	}
	if cfg.ValueCacheCapacity > 0 {
		d.ctx.values = NewValueCache(cfg.ValueCacheCapacity, cfg.ValueCacheTTL)
	}
	d.registerBuiltins()
	return d
}

// Feed appends one contiguous frame buffer. Bytes already consumed are
// dropped, so the event buffer does not grow without bound.
func (d *Decoder) Feed(buf []byte) {
	if d.off > 0 {
		d.buf = append([]byte(nil), d.buf[d.off:]...)
		d.off = 0
	}
	d.buf = append(d.buf, buf...)
}

// RegisterDecoder installs a user decoder for an event type under the
// given conflict policy. Built-in decoders for the critical events
// (table map, format description, GTID) register at PriorityCritical
// and win OverrideLower conflicts.
func (d *Decoder) RegisterDecoder(typ EventType, dec EventDecoder, policy ConflictPolicy) error {
	return d.reg.register(typ, dec, policy)
}

// State returns the driver's lifecycle state.
func (d *Decoder) State() StreamState { return d.state }

// Statistics returns the stream's statistics collector.
func (d *Decoder) Statistics() *StatsCollector { return d.stats }

// GtidSet returns a copy of the cumulative GTID set observed.
func (d *Decoder) GtidSet() *GtidSet {
	d.ctx.gtids.Flush()
	return d.ctx.gtids.Set()
}

// Position returns the byte offset into the current logical file.
func (d *Decoder) Position() uint64 { return d.ctx.Position() }

// File returns the current logical binlog file name.
func (d *Decoder) File() string { return d.ctx.File() }

// Context exposes the log context to event decoders and tests.
func (d *Decoder) Context() *LogContext { return d.ctx }

// checksumAlgorithm resolves the active policy, falling back to the
// configured hint before any format description arrived.
func (d *Decoder) checksumAlgorithm() ChecksumAlgorithm {
	if d.ctx.checksum == checksumUndef {
		return d.cfg.ChecksumPolicyHint
	}
	return d.ctx.checksum
}

// NextEvent decodes and returns the next event of the fed frames.
// It returns (nil, nil) at end of frame and after a clean stop.
//
// Recoverable decode failures come back as an *Event whose Err field
// carries the structured error record; the driver has already advanced
// past the broken event. Truncation, driver failure and an event type
// with no decoder that is not flagged ignorable surface as a plain error.
func (d *Decoder) NextEvent() (*Event, error) {
	switch d.state {
	case StateStopped:
		return nil, nil
	case StateFailed:
		return nil, ErrMalformedValue.New("stream", "driver failed; re-initialize")
	}
	if d.off == len(d.buf) {
		return nil, nil
	}
	if len(d.buf)-d.off < eventHeaderSize {
		return nil, d.positionedError(ErrUnexpectedEOF.New(), UNKNOWN_EVENT, -1)
	}

	var h EventHeader
	hr := newFrameReader(d.buf[d.off : d.off+eventHeaderSize])
	if err := h.decode(hr); err != nil {
		return nil, d.positionedError(err, UNKNOWN_EVENT, -1)
	}
	size := int(h.EventSize)
	if size < eventHeaderSize {
		d.state = StateFailed
		return nil, d.positionedError(ErrMalformedValue.New("eventHeader", "event size below header size"), h.EventType, -1)
	}
	if len(d.buf)-d.off < size {
		// truncated frame: do not advance, the caller may feed more
		return nil, d.positionedError(ErrUnexpectedEOF.New(), h.EventType, -1)
	}
	whole := d.buf[d.off : d.off+size]

	alg := d.checksumAlgorithm()
	if alg == ChecksumCRC32 && h.EventType != FORMAT_DESCRIPTION_EVENT {
		if err := verifyChecksum(whole); err != nil {
			return d.failEvent(&h, size, err, -1), nil
		}
	}

	body := whole[eventHeaderSize:]
	if alg == ChecksumCRC32 && h.EventType != FORMAT_DESCRIPTION_EVENT {
		body = body[:len(body)-4]
	}

	dec, ok := d.reg.lookup(h.EventType, body)
	if !ok {
		if h.Ignorable() {
			d.advance(&h, size)
			return &Event{Header: h, Data: &UnknownEvent{Type: h.EventType}}, nil
		}
		// no decoder and not ignorable: the rest of the frame cannot
		// be trusted
		d.off = len(d.buf)
		return nil, d.positionedError(ErrUnknownEventType.New(uint8(h.EventType)), h.EventType, -1)
	}

	var span opentracing.Span
	if d.cfg.Tracer != nil {
		span = d.cfg.Tracer.StartSpan("binlog.decode")
		span.SetTag("event.type", h.EventType.String())
	}
	start := time.Now()
	data, err := dec.Decode(newFrameReader(body), &h, d.ctx)
	elapsed := time.Since(start)
	if span != nil {
		if err != nil {
			span.SetTag("error", true)
		}
		span.Finish()
	}
	if err != nil {
		col := -1
		if de, ok := err.(*DecodeError); ok {
			col, err = de.Column, de.Err
		}
		return d.failEvent(&h, size, err, col), nil
	}

	d.stats.recordSuccess(h.EventType, uint64(size), elapsed)
	d.applySideEffects(&h, data)
	d.advance(&h, size)

	ev := &Event{Header: h, Data: data}
	return ev, nil
}

// applySideEffects mutates the log context for the events that carry
// stream state, before the event is handed to the consumer.
func (d *Decoder) applySideEffects(h *EventHeader, data interface{}) {
	switch e := data.(type) {
	case *FormatDescriptionEvent:
		d.ctx.setFormatDescription(e)
		if d.state == StateAwaitFormatDescription {
			d.log.WithFields(logrus.Fields{
				"serverVersion": e.ServerVersion,
				"checksum":      e.ChecksumAlgorithm,
			}).Debug("format description installed, streaming")
			d.state = StateStreaming
		}
	case *RotateEvent:
		d.ctx.rotate(e.NextBinlog, e.Position)
	case *StopEvent:
		d.state = StateStopped
	case *TableMapEvent:
		d.ctx.PutTableMap(e)
	case *GtidLogEvent:
		d.ctx.setGtid(e)
	case *PreviousGtidsEvent:
		d.ctx.gtids.Merge(e.Set)
	case *RowsEvent:
		if g := d.ctx.CurrentGtid(); g != nil && !g.Anonymous {
			gtid := g.GTID
			e.GTID = &gtid
		}
		e.Position = uint64(h.NextPos)
		d.stats.Rows().observe(e)
	case *XidEvent:
		// transaction committed; the annotation scope ends
		d.ctx.currentGtid = nil
	}
}

// advance moves past the event and tracks the logical file position.
// Artificial events carry a zero next-position and leave the position
// to their side effects (Rotate installs its own).
func (d *Decoder) advance(h *EventHeader, size int) {
	d.off += size
	if h.NextPos != 0 {
		d.ctx.position = uint64(h.NextPos)
	}
}

// failEvent emits a structured error record, advances past the broken
// event and keeps the stream usable.
func (d *Decoder) failEvent(h *EventHeader, size int, err error, col int) *Event {
	d.stats.recordError(h.EventType)
	record := d.positionedError(err, h.EventType, col)
	d.log.WithFields(logrus.Fields{
		"file":   record.File,
		"offset": record.Offset,
		"event":  h.EventType.String(),
	}).WithError(err).Warn("event decode failed")
	d.advance(h, size)
	return &Event{Header: *h, Err: record}
}

func (d *Decoder) positionedError(err error, typ EventType, col int) *DecodeError {
	if de, ok := err.(*DecodeError); ok {
		return de
	}
	return &DecodeError{
		File:      d.ctx.File(),
		Offset:    d.ctx.Position(),
		EventType: typ,
		Column:    col,
		Err:       err,
	}
}
