package binlog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// GTID identifies one committed transaction globally.
type GTID struct {
	SID uuid.UUID // originating server
	GNO uint64    // transaction number, starting at 1
}

func (g GTID) String() string {
	return fmt.Sprintf("%s:%d", g.SID, g.GNO)
}

// ParseGTID parses the "uuid:gno" form.
func ParseGTID(s string) (GTID, error) {
	var g GTID
	i := strings.LastIndexByte(s, ':')
	if i == -1 {
		return g, ErrMalformedValue.New("gtid", s)
	}
	sid, err := uuid.Parse(s[:i])
	if err != nil {
		return g, ErrMalformedValue.New("gtid", err.Error())
	}
	var gno uint64
	if _, err := fmt.Sscanf(s[i+1:], "%d", &gno); err != nil || gno == 0 {
		return g, ErrMalformedValue.New("gtid", s)
	}
	g.SID, g.GNO = sid, gno
	return g, nil
}

// logicalTimestampTypecode marks the presence of the last_committed /
// sequence_number pair used by the multi-threaded applier.
const logicalTimestampTypecode = 2

// GtidLogEvent precedes every transaction when GTIDs are enabled. The
// anonymous variant shares the layout with a zero SID.
type GtidLogEvent struct {
	CommitFlag     bool
	GTID           GTID
	LastCommitted  uint64
	SequenceNumber uint64
	Anonymous      bool
}

func (e *GtidLogEvent) decode(r *reader, eventType EventType) error {
	e.Anonymous = eventType == ANONYMOUS_GTID_EVENT
	e.CommitFlag = r.int1() != 0
	sid := r.bytesInternal(16)
	if r.err != nil {
		return r.err
	}
	copy(e.GTID.SID[:], sid)
	e.GTID.GNO = r.int8()
	if r.more() {
		ltType := r.int1()
		if ltType == logicalTimestampTypecode {
			e.LastCommitted = r.int8()
			e.SequenceNumber = r.int8()
		}
	}
	return r.err
}

// PreviousGtidsEvent is written at the start of each binlog file and
// carries the set of transactions contained in earlier files.
type PreviousGtidsEvent struct {
	Set *GtidSet
}

func (e *PreviousGtidsEvent) decode(r *reader) error {
	e.Set = NewGtidSet()
	nSids := r.int8()
	if r.err != nil {
		return r.err
	}
	for i := uint64(0); i < nSids; i++ {
		var sid uuid.UUID
		copy(sid[:], r.bytesInternal(16))
		nIntervals := r.int8()
		if r.err != nil {
			return r.err
		}
		for j := uint64(0); j < nIntervals; j++ {
			start := r.int8()
			end := r.int8() // stored exclusive
			if r.err != nil {
				return r.err
			}
			if end <= start {
				return ErrMalformedValue.New(PREVIOUS_GTIDS_EVENT, "empty interval")
			}
			e.Set.AddInterval(sid.String(), start, end-1)
		}
	}
	return r.err
}

// TransactionPayload field types and compression algorithms.
const (
	payloadHeaderEndMark    = 0
	payloadSizeField        = 1
	payloadCompressionField = 2
	payloadUncompressedSize = 3

	PayloadCompressionZstd = 0
	PayloadCompressionNone = 255
)

// TransactionPayloadEvent wraps a whole compressed transaction. Payload
// holds the decompressed inner event stream; callers re-feed it to a
// decoder to obtain the contained events.
type TransactionPayloadEvent struct {
	CompressionType  uint64
	UncompressedSize uint64
	Payload          []byte
}

func (e *TransactionPayloadEvent) decode(r *reader) error {
	e.CompressionType = PayloadCompressionNone
	for r.more() {
		typ := r.intN()
		if r.err != nil {
			return r.err
		}
		if typ == payloadHeaderEndMark {
			break
		}
		size := r.intN()
		if r.err != nil {
			return r.err
		}
		switch typ {
		case payloadSizeField:
			_ = r.intFixed(int(size))
		case payloadCompressionField:
			e.CompressionType = r.intFixed(int(size))
		case payloadUncompressedSize:
			e.UncompressedSize = r.intFixed(int(size))
		default:
			r.skip(int(size))
		}
	}
	raw := r.bytesEOF()
	if r.err != nil {
		return r.err
	}
	switch e.CompressionType {
	case PayloadCompressionNone:
		e.Payload = raw
		return nil
	case PayloadCompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return ErrMalformedValue.New(TRANSACTION_PAYLOAD_EVENT, err.Error())
		}
		defer dec.Close()
		e.Payload, err = dec.DecodeAll(raw, nil)
		if err != nil {
			return ErrMalformedValue.New(TRANSACTION_PAYLOAD_EVENT, err.Error())
		}
		return nil
	default:
		return ErrMalformedValue.New(TRANSACTION_PAYLOAD_EVENT, "unknown compression algorithm")
	}
}
