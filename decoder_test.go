package binlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func next(t *testing.T, d *Decoder) *Event {
	t.Helper()
	e, err := d.NextEvent()
	require.NoError(t, err)
	require.NotNil(t, e)
	return e
}

func TestDecoder_FormatDescriptionThenStop(t *testing.T) {
	d := NewDecoder(Config{})
	feedAll(d,
		buildFDE("5.7.30-log", ChecksumCRC32),
		buildEvent(STOP_EVENT, nil, true, 0),
	)

	e := next(t, d)
	require.Nil(t, e.Err)
	fde, ok := e.Data.(*FormatDescriptionEvent)
	require.True(t, ok)
	require.Equal(t, uint16(4), fde.BinlogVersion)
	require.Equal(t, "5.7.30-log", fde.ServerVersion)
	require.Equal(t, uint32(1596175634), fde.CreateTimestamp)
	require.Equal(t, ChecksumCRC32, d.Context().ChecksumAlgorithm())
	require.Equal(t, StateStreaming, d.State())

	e = next(t, d)
	require.IsType(t, &StopEvent{}, e.Data)
	require.Equal(t, StateStopped, d.State())

	// terminal: no more events
	e2, err := d.NextEvent()
	require.NoError(t, err)
	require.Nil(t, e2)
}

func TestDecoder_PreChecksumServerHasNoTrailer(t *testing.T) {
	// a 5.5 FDE carries neither an algorithm byte nor a checksum
	d := NewDecoder(Config{})
	sv := make([]byte, 50)
	copy(sv, "5.5.62")
	body := cat(le16(4), sv, le32(0), []byte{19}, make([]byte, 35))
	d.Feed(buildEvent(FORMAT_DESCRIPTION_EVENT, body, false, 0))
	e := next(t, d)
	require.Nil(t, e.Err)
	require.Equal(t, ChecksumNone, e.Data.(*FormatDescriptionEvent).ChecksumAlgorithm)
	require.Equal(t, ChecksumNone, d.Context().ChecksumAlgorithm())
}

func TestDecoder_Rotate(t *testing.T) {
	d := NewDecoder(Config{})
	body := cat(le64(4), []byte("mysql_bin.000002"))
	d.Feed(buildEvent(ROTATE_EVENT, body, false, 0))

	e := next(t, d)
	re := e.Data.(*RotateEvent)
	require.Equal(t, uint64(4), re.Position)
	require.Equal(t, "mysql_bin.000002", re.NextBinlog)
	require.Equal(t, "mysql_bin.000002", d.File())
	require.Equal(t, uint64(4), d.Position())
}

func TestDecoder_IntVarLastInsertID(t *testing.T) {
	d := NewDecoder(Config{})
	d.Feed(buildEvent(INTVAR_EVENT, cat([]byte{LastInsertIdEvent}, le64(0)), false, 0))

	e := next(t, d)
	iv := e.Data.(*IntVarEvent)
	require.Equal(t, uint8(LastInsertIdEvent), iv.Type)
	require.Equal(t, uint64(0), iv.Value)
}

func TestDecoder_ChecksumMismatchIsPerEvent(t *testing.T) {
	d := NewDecoder(Config{})
	good := buildEvent(XID_EVENT, le64(7), true, 0)
	feedAll(d, buildFDE("5.7.30-log", ChecksumCRC32))
	_ = next(t, d)

	// corrupt one payload byte of the first xid event
	bad := append([]byte(nil), good...)
	bad[eventHeaderSize] ^= 0xff
	feedAll(d, bad, good)

	e := next(t, d)
	require.NotNil(t, e.Err)
	require.True(t, ErrChecksumMismatch.Is(e.Err.Err))

	// ...and only that event: the stream continues
	e = next(t, d)
	require.Nil(t, e.Err)
	require.Equal(t, uint64(7), e.Data.(*XidEvent).Xid)
}

func TestDecoder_ContinuesAfterMalformedValue(t *testing.T) {
	d := NewDecoder(Config{})
	feedAll(d, buildFDE("5.7.30-log", ChecksumCRC32))
	_ = next(t, d)

	tm := buildTableMap(9, "db", "t", []ColumnType{TypeTime}, [][]byte{nil}, []byte{0}, nil)
	feedAll(d, buildEvent(TABLE_MAP_EVENT, tm, true, 0))
	_ = next(t, d)

	// negative TIME v1 value: per-column decoder rejects it
	neg := int32(-10000)
	rows := cat(
		le48(9), le16(0),
		le16(2),      // v2 extra data: just the length
		[]byte{1},    // one column
		[]byte{0x01}, // present bitmap
		[]byte{0x00}, // null bitmap
		[]byte{byte(neg), byte(neg >> 8), byte(neg >> 16)},
	)
	feedAll(d,
		buildEvent(WRITE_ROWS_EVENTv2, rows, true, 0),
		buildEvent(XID_EVENT, le64(3), true, 0),
	)

	e := next(t, d)
	require.NotNil(t, e.Err)
	require.True(t, ErrMalformedValue.Is(e.Err.Err))
	require.Equal(t, 0, e.Err.Column)

	// driver advanced past the broken event
	e = next(t, d)
	require.Nil(t, e.Err)
	require.IsType(t, &XidEvent{}, e.Data)
}

func TestDecoder_NoPrecedingTableMap(t *testing.T) {
	d := NewDecoder(Config{})
	rows := cat(
		le48(404), le16(0),
		le16(2),
		[]byte{1},
		[]byte{0x01},
	)
	d.Feed(buildEvent(WRITE_ROWS_EVENTv2, rows, false, 0))
	e := next(t, d)
	require.NotNil(t, e.Err)
	require.True(t, ErrNoPrecedingTableMap.Is(e.Err.Err))
}

func TestDecoder_UnknownTypeIgnorableFlag(t *testing.T) {
	d := NewDecoder(Config{})
	d.Feed(buildEvent(EventType(0x7a), []byte{1, 2, 3}, false, LOG_EVENT_IGNORABLE_F))
	e := next(t, d)
	require.Nil(t, e.Err)
	u := e.Data.(*UnknownEvent)
	require.Equal(t, EventType(0x7a), u.Type)
}

func TestDecoder_UnknownTypeNotIgnorable(t *testing.T) {
	d := NewDecoder(Config{})
	d.Feed(buildEvent(EventType(0x7a), []byte{1, 2, 3}, false, 0))
	_, err := d.NextEvent()
	require.Error(t, err)
	require.True(t, ErrUnknownEventType.Is(err.(*DecodeError).Err))
}

func TestDecoder_TruncatedFrameDoesNotAdvance(t *testing.T) {
	d := NewDecoder(Config{})
	whole := buildEvent(XID_EVENT, le64(7), false, 0)
	d.Feed(whole[:10])
	_, err := d.NextEvent()
	require.Error(t, err)

	// feeding the rest completes the event
	d.Feed(whole[10:])
	e := next(t, d)
	require.Equal(t, uint64(7), e.Data.(*XidEvent).Xid)
}

func TestDecoder_EndOfFrame(t *testing.T) {
	d := NewDecoder(Config{})
	e, err := d.NextEvent()
	require.NoError(t, err)
	require.Nil(t, e)
}

func TestDecoder_ParseDeterminism(t *testing.T) {
	frame := cat(
		buildFDE("5.7.30-log", ChecksumCRC32),
		buildEvent(XID_EVENT, le64(99), true, 0),
	)
	run := func() []Event {
		d := NewDecoder(Config{})
		d.Feed(frame)
		var out []Event
		for {
			e, err := d.NextEvent()
			require.NoError(t, err)
			if e == nil {
				break
			}
			out = append(out, *e)
		}
		return out
	}
	a, b := run(), run()
	require.Equal(t, a, b)
}

func TestDecoder_GtidAccumulation(t *testing.T) {
	d := NewDecoder(Config{})
	sidBytes := make([]byte, 16)
	for i := range sidBytes {
		sidBytes[i] = byte(i + 1)
	}
	gtidBody := func(gno uint64) []byte {
		return cat([]byte{1}, sidBytes, le64(gno), []byte{2}, le64(0), le64(gno))
	}
	feedAll(d,
		buildEvent(GTID_EVENT, gtidBody(1), false, 0),
		buildEvent(GTID_EVENT, gtidBody(2), false, 0),
		buildEvent(GTID_EVENT, gtidBody(3), false, 0),
	)
	for i := 0; i < 3; i++ {
		e := next(t, d)
		require.Nil(t, e.Err)
	}
	sid := "01020304-0506-0708-090a-0b0c0d0e0f10"
	require.Equal(t, sid+":1-3", d.GtidSet().String())

	feedAll(d, buildEvent(GTID_EVENT, gtidBody(5), false, 0))
	_ = next(t, d)
	require.Equal(t, sid+":1-3:5", d.GtidSet().String())

	feedAll(d, buildEvent(GTID_EVENT, gtidBody(4), false, 0))
	_ = next(t, d)
	require.Equal(t, sid+":1-5", d.GtidSet().String())
}

func TestDecoder_PreviousGtidsMerged(t *testing.T) {
	d := NewDecoder(Config{})
	sidBytes := make([]byte, 16)
	sidBytes[0] = 0xaa
	body := cat(
		le64(1),  // one sid
		sidBytes, // uuid
		le64(1),  // one interval
		le64(1), le64(8), // [1, 8) exclusive
	)
	d.Feed(buildEvent(PREVIOUS_GTIDS_EVENT, body, false, 0))
	e := next(t, d)
	require.Nil(t, e.Err)
	require.Equal(t, "aa000000-0000-0000-0000-000000000000:1-7", d.GtidSet().String())
}

func TestDecoder_RowsEventAnnotatedWithGtid(t *testing.T) {
	d := NewDecoder(Config{})
	feedAll(d, buildFDE("5.7.30-log", ChecksumCRC32))
	_ = next(t, d)

	sidBytes := make([]byte, 16)
	sidBytes[15] = 0x42
	gtid := cat([]byte{1}, sidBytes, le64(11), []byte{2}, le64(0), le64(1))
	tm := buildTableMap(5, "db", "t", []ColumnType{TypeLong}, [][]byte{nil}, []byte{0}, nil)
	rows := cat(
		le48(5), le16(0), le16(2),
		[]byte{1}, []byte{0x01},
		[]byte{0x00}, le32(123),
	)
	feedAll(d,
		buildEvent(GTID_EVENT, gtid, true, 0),
		buildEvent(TABLE_MAP_EVENT, tm, true, 0),
		buildEvent(WRITE_ROWS_EVENTv2, rows, true, 0),
		buildEvent(XID_EVENT, le64(1), true, 0),
	)

	_ = next(t, d) // gtid
	_ = next(t, d) // table map
	e := next(t, d)
	re := e.Data.(*RowsEvent)
	require.NotNil(t, re.GTID)
	require.Equal(t, uint64(11), re.GTID.GNO)

	_ = next(t, d) // xid clears the annotation scope
	require.Nil(t, d.Context().CurrentGtid())
}

func TestDecoder_RegisterConflict(t *testing.T) {
	d := NewDecoder(Config{})
	custom := DecoderFunc{
		DecoderName:     "custom-xid",
		DecoderPriority: PriorityLow,
		Func: func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
			return &XidEvent{Xid: 0xdead}, nil
		},
	}
	err := d.RegisterDecoder(XID_EVENT, custom, ConflictReject)
	require.True(t, ErrDecoderConflict.Is(err))

	// KeepExisting is a silent no-op
	require.NoError(t, d.RegisterDecoder(XID_EVENT, custom, ConflictKeepExisting))

	// OverrideLower fails against the higher-priority builtin
	err = d.RegisterDecoder(XID_EVENT, custom, ConflictOverrideLower)
	require.True(t, ErrDecoderConflict.Is(err))

	// an unclaimed type registers cleanly
	require.NoError(t, d.RegisterDecoder(EventType(0x70), custom, ConflictReject))
}
