package binlog

import "fmt"

// EventType represents Binlog Event Type.
type EventType uint8

// Event Type Constants.
//
// https://dev.mysql.com/doc/internals/en/binlog-event-type.html
// https://dev.mysql.com/doc/internals/en/event-meanings.html
const (
	UNKNOWN_EVENT             EventType = 0x00 // should never occur. used when event cannot be recognized.
	START_EVENT_V3            EventType = 0x01 // descriptor event written to binlog beginning. deprecated.
	QUERY_EVENT               EventType = 0x02 // written when an updating statement is done.
	STOP_EVENT                EventType = 0x03 // written when mysqld stops.
	ROTATE_EVENT              EventType = 0x04 // written when mysqld switches to a new binary log file.
	INTVAR_EVENT              EventType = 0x05 // if stmt uses AUTO_INCREMENT col or LAST_INSERT_ID().
	LOAD_EVENT                EventType = 0x06 // used for LOAD DATA INFILE statements in MySQL 3.23.
	SLAVE_EVENT               EventType = 0x07 // not used.
	CREATE_FILE_EVENT         EventType = 0x08 // used for LOAD DATA INFILE statements in MySQL 4.0 and 4.1.
	APPEND_BLOCK_EVENT        EventType = 0x09 // used for LOAD DATA INFILE statements in MySQL 4.0 and 4.1.
	EXEC_LOAD_EVENT           EventType = 0x0a // used for LOAD DATA INFILE statements in MySQL 4.0 and 4.1.
	DELETE_FILE_EVENT         EventType = 0x0b // used for LOAD DATA INFILE statements in MySQL 4.0 and 4.1.
	NEW_LOAD_EVENT            EventType = 0x0c // used for LOAD DATA INFILE statements in MySQL 4.0 and 4.1.
	RAND_EVENT                EventType = 0x0d // if stmt uses RAND().
	USER_VAR_EVENT            EventType = 0x0e // if stmt uses a user variable.
	FORMAT_DESCRIPTION_EVENT  EventType = 0x0f // descriptor event written to binlog beginning.
	XID_EVENT                 EventType = 0x10 // for XA commit transaction.
	BEGIN_LOAD_QUERY_EVENT    EventType = 0x11 // used for LOAD DATA INFILE statements in MySQL 5.0.
	EXECUTE_LOAD_QUERY_EVENT  EventType = 0x12 // used for LOAD DATA INFILE statements in MySQL 5.0.
	TABLE_MAP_EVENT           EventType = 0x13 // precedes rbr event. contains table definition.
	WRITE_ROWS_EVENTv0        EventType = 0x14 // logs inserts of rows in a single table.
	UPDATE_ROWS_EVENTv0       EventType = 0x15 // logs updates of rows in a single table.
	DELETE_ROWS_EVENTv0       EventType = 0x16 // logs deletions of rows in a single table.
	WRITE_ROWS_EVENTv1        EventType = 0x17 // logs inserts of rows in a single table.
	UPDATE_ROWS_EVENTv1       EventType = 0x18 // logs updates of rows in a single table.
	DELETE_ROWS_EVENTv1       EventType = 0x19 // logs deletions of rows in a single table.
	INCIDENT_EVENT            EventType = 0x1a // out of the ordinary event occurred on the master.
	HEARTBEAT_EVENT           EventType = 0x1b // master is still alive. not written to file.
	IGNORABLE_EVENT           EventType = 0x1c
	ROWS_QUERY_EVENT          EventType = 0x1d
	WRITE_ROWS_EVENTv2        EventType = 0x1e // logs inserts of rows in a single table.
	UPDATE_ROWS_EVENTv2       EventType = 0x1f // logs updates of rows in a single table.
	DELETE_ROWS_EVENTv2       EventType = 0x20 // logs deletions of rows in a single table.
	GTID_EVENT                EventType = 0x21
	ANONYMOUS_GTID_EVENT      EventType = 0x22
	PREVIOUS_GTIDS_EVENT      EventType = 0x23
	TRANSACTION_CONTEXT_EVENT EventType = 0x24
	VIEW_CHANGE_EVENT         EventType = 0x25
	XA_PREPARE_LOG_EVENT      EventType = 0x26
	PARTIAL_UPDATE_ROWS_EVENT EventType = 0x27
	TRANSACTION_PAYLOAD_EVENT EventType = 0x28
	HEARTBEAT_LOG_EVENT_V2    EventType = 0x29
)

// LOG_EVENT_IGNORABLE_F marks an event the reader may skip when it does
// not know how to decode it.
const LOG_EVENT_IGNORABLE_F = 0x0080

var eventTypeNames = map[EventType]string{
	UNKNOWN_EVENT:             "unknown",
	START_EVENT_V3:            "startV3",
	QUERY_EVENT:               "query",
	STOP_EVENT:                "stop",
	ROTATE_EVENT:              "rotate",
	INTVAR_EVENT:              "intVar",
	LOAD_EVENT:                "load",
	SLAVE_EVENT:               "slave",
	CREATE_FILE_EVENT:         "createFile",
	APPEND_BLOCK_EVENT:        "appendBlock",
	EXEC_LOAD_EVENT:           "execLoad",
	DELETE_FILE_EVENT:         "deleteFile",
	NEW_LOAD_EVENT:            "newLoad",
	RAND_EVENT:                "rand",
	USER_VAR_EVENT:            "userVar",
	FORMAT_DESCRIPTION_EVENT:  "formatDescription",
	XID_EVENT:                 "xid",
	BEGIN_LOAD_QUERY_EVENT:    "beginLoadQuery",
	EXECUTE_LOAD_QUERY_EVENT:  "executeLoadQuery",
	TABLE_MAP_EVENT:           "tableMap",
	WRITE_ROWS_EVENTv0:        "writeRowsV0",
	UPDATE_ROWS_EVENTv0:       "updateRowsV0",
	DELETE_ROWS_EVENTv0:       "deleteRowsV0",
	WRITE_ROWS_EVENTv1:        "writeRowsV1",
	UPDATE_ROWS_EVENTv1:       "updateRowsV1",
	DELETE_ROWS_EVENTv1:       "deleteRowsV1",
	INCIDENT_EVENT:            "incident",
	HEARTBEAT_EVENT:           "heartbeat",
	IGNORABLE_EVENT:           "ignorable",
	ROWS_QUERY_EVENT:          "rowsQuery",
	WRITE_ROWS_EVENTv2:        "writeRowsV2",
	UPDATE_ROWS_EVENTv2:       "updateRowsV2",
	DELETE_ROWS_EVENTv2:       "deleteRowsV2",
	GTID_EVENT:                "gtid",
	ANONYMOUS_GTID_EVENT:      "anonymousGTID",
	PREVIOUS_GTIDS_EVENT:      "previousGTIDs",
	TRANSACTION_CONTEXT_EVENT: "transactionContext",
	VIEW_CHANGE_EVENT:         "viewChange",
	XA_PREPARE_LOG_EVENT:      "xaPrepare",
	PARTIAL_UPDATE_ROWS_EVENT: "partialUpdateRows",
	TRANSACTION_PAYLOAD_EVENT: "transactionPayload",
	HEARTBEAT_LOG_EVENT_V2:    "heartbeatV2",
}

func (t EventType) String() string {
	if s, ok := eventTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("0x%02x", uint8(t))
}

// IsWriteRows tells if this EventType is a WRITE_ROWS_EVENT.
// MySQL has multiple versions of WRITE_ROWS_EVENT.
func (t EventType) IsWriteRows() bool {
	return t == WRITE_ROWS_EVENTv0 || t == WRITE_ROWS_EVENTv1 || t == WRITE_ROWS_EVENTv2
}

// IsUpdateRows tells if this EventType is an UPDATE_ROWS_EVENT.
func (t EventType) IsUpdateRows() bool {
	return t == UPDATE_ROWS_EVENTv0 || t == UPDATE_ROWS_EVENTv1 || t == UPDATE_ROWS_EVENTv2 ||
		t == PARTIAL_UPDATE_ROWS_EVENT
}

// IsDeleteRows tells if this EventType is a DELETE_ROWS_EVENT.
func (t EventType) IsDeleteRows() bool {
	return t == DELETE_ROWS_EVENTv0 || t == DELETE_ROWS_EVENTv1 || t == DELETE_ROWS_EVENTv2
}

// IsRows tells if this EventType carries row images.
func (t EventType) IsRows() bool {
	return t.IsWriteRows() || t.IsUpdateRows() || t.IsDeleteRows()
}

// Event represents one decoded binlog event.
type Event struct {
	Header EventHeader
	Data   interface{} // one of XXXEvent

	// Err is set instead of Data when the event could not be decoded
	// but the stream remains usable.
	Err *DecodeError
}

// EventHeader represents the 19-byte common event header.
//
// https://dev.mysql.com/doc/internals/en/binlog-event-header.html
type EventHeader struct {
	Timestamp uint32    // seconds since unix epoch
	EventType EventType // binlog event type
	ServerID  uint32    // server-id of the originating mysql-server
	EventSize uint32    // size of the event (header + post-header + body + checksum)
	NextPos   uint32    // position of the next event
	Flags     uint16
}

func (h *EventHeader) decode(r *reader) error {
	h.Timestamp = r.int4()
	h.EventType = EventType(r.int1())
	h.ServerID = r.int4()
	h.EventSize = r.int4()
	h.NextPos = r.int4()
	h.Flags = r.int2()
	return r.err
}

// Ignorable reports whether the common header carries LOG_EVENT_IGNORABLE_F.
func (h *EventHeader) Ignorable() bool {
	return h.Flags&LOG_EVENT_IGNORABLE_F != 0
}

// eventHeaderSize is the v4 common header length.
const eventHeaderSize = 19

// StopEvent signals the last event in the file.
type StopEvent struct{}

// HeartbeatEvent is sent by a master to signal it is still alive.
// Not written to log files.
type HeartbeatEvent struct{}

// HeartbeatV2Event is the 8.0.26+ heartbeat carrying the log position
// as a tag-length-value block.
type HeartbeatV2Event struct {
	LogFile string
	LogPos  uint64
}

func (e *HeartbeatV2Event) decode(r *reader) error {
	// OTW_HB_LOG_FILENAME_FIELD=0, OTW_HB_LOG_POSITION_FIELD=1
	for r.more() {
		typ := r.int1()
		size := r.intN()
		if r.err != nil {
			return r.err
		}
		switch typ {
		case 0:
			e.LogFile = r.string(int(size))
		case 1:
			e.LogPos = r.intFixed(int(size))
		default:
			r.skip(int(size))
		}
	}
	return r.err
}

// IgnorableEvent is a placeholder for events the master marked skippable.
type IgnorableEvent struct{}

// UnknownEvent is produced when an event-type code cannot be recognized
// but its header allows skipping it.
type UnknownEvent struct {
	Type EventType
}

// RotateEvent is written when mysqld switches to a new binary log file.
//
// https://dev.mysql.com/doc/internals/en/rotate-event.html
type RotateEvent struct {
	Position   uint64 // position of next event
	NextBinlog string // name of next binlog file
}

func (e *RotateEvent) decode(r *reader) error {
	e.Position = r.int8()
	e.NextBinlog = r.stringEOF()
	return r.err
}

// XidEvent marks a transaction commit under an XA-capable engine.
type XidEvent struct {
	Xid uint64
}

func (e *XidEvent) decode(r *reader) error {
	e.Xid = r.int8()
	return r.err
}

// XAPrepareEvent logs the XA PREPARE of an externally coordinated
// transaction.
type XAPrepareEvent struct {
	OnePhase bool
	FormatID uint32
	GtridLen uint32
	BqualLen uint32
	Data     []byte
}

func (e *XAPrepareEvent) decode(r *reader) error {
	e.OnePhase = r.int1() != 0
	e.FormatID = r.int4()
	e.GtridLen = r.int4()
	e.BqualLen = r.int4()
	if r.err != nil {
		return r.err
	}
	e.Data = r.bytes(int(e.GtridLen + e.BqualLen))
	return r.err
}

// IntVarEvent subtype constants.
const (
	InvalidIntEvent   = 0x00
	LastInsertIdEvent = 0x01
	InsertIdEvent     = 0x02
)

// IntVarEvent is written every time a statement uses an AUTO_INCREMENT
// column or the LAST_INSERT_ID() function.
//
// https://dev.mysql.com/doc/internals/en/intvar-event.html
type IntVarEvent struct {
	Type  uint8 // one of InvalidIntEvent, LastInsertIdEvent, InsertIdEvent
	Value uint64
}

func (e *IntVarEvent) decode(r *reader) error {
	e.Type = r.int1()
	e.Value = r.int8()
	return r.err
}

// RandEvent indicates the seed values for RAND() in the next statement.
//
// https://dev.mysql.com/doc/internals/en/rand-event.html
type RandEvent struct {
	Seed1 uint64
	Seed2 uint64
}

func (e *RandEvent) decode(r *reader) error {
	e.Seed1 = r.int8()
	e.Seed2 = r.int8()
	return r.err
}

// UserVarEvent value type constants.
const (
	UserVarString = iota
	UserVarReal
	UserVarInt
	UserVarRow
	UserVarDecimal
	UserVarValueTypeCount
)

// UserVarEvent is written every time a statement uses a user variable.
//
// https://dev.mysql.com/doc/internals/en/user-var-event.html
type UserVarEvent struct {
	Name     string
	Null     bool
	Type     uint8
	Charset  uint32
	Value    []byte
	Unsigned bool
}

func (e *UserVarEvent) decode(r *reader) error {
	nameLen := r.int4()
	if r.err != nil {
		return r.err
	}
	e.Name = r.string(int(nameLen))
	e.Null = r.int1() != 0
	if r.err != nil {
		return r.err
	}
	if !e.Null {
		e.Type = r.int1()
		e.Charset = r.int4()
		valueLen := r.int4()
		if r.err != nil {
			return r.err
		}
		e.Value = r.bytes(int(valueLen))
		if e.Type == UserVarInt && r.more() {
			e.Unsigned = r.int1()&0x01 != 0
		}
	}
	return r.err
}

// IncidentEvent notifies the replica that something happened on the
// master that might leave data in an inconsistent state.
//
// https://dev.mysql.com/doc/internals/en/incident-event.html
type IncidentEvent struct {
	Type    uint16
	Message string
}

func (e *IncidentEvent) decode(r *reader) error {
	e.Type = r.int2()
	e.Message = r.string1()
	return r.err
}

// RowsQueryEvent carries the query text that caused the following rows
// events. Written only when binlog_rows_query_log_events is ON.
type RowsQueryEvent struct {
	Query string
}

func (e *RowsQueryEvent) decode(r *reader) error {
	r.int1() // length, unreliable for long queries
	e.Query = r.stringEOF()
	return r.err
}

// BeginLoadQueryEvent carries the first block of a LOAD DATA INFILE
// file transfer.
type BeginLoadQueryEvent struct {
	FileID uint32
	Block  []byte
}

func (e *BeginLoadQueryEvent) decode(r *reader) error {
	e.FileID = r.int4()
	e.Block = r.bytesEOF()
	return r.err
}

// ExecuteLoadQueryEvent ends a LOAD DATA INFILE transfer. It is a
// Query event variant with file positions spliced into the statement.
type ExecuteLoadQueryEvent struct {
	SlaveProxyID     uint32
	ExecutionTime    uint32
	ErrorCode        uint16
	StatusVars       []StatusVar
	Schema           string
	FileID           uint32
	StartPos         uint32
	EndPos           uint32
	DupHandlingFlags uint8
	Query            string
}

func (e *ExecuteLoadQueryEvent) decode(r *reader) error {
	e.SlaveProxyID = r.int4()
	e.ExecutionTime = r.int4()
	schemaLen := r.int1()
	e.ErrorCode = r.int2()
	statusVarsLen := r.int2()
	e.FileID = r.int4()
	e.StartPos = r.int4()
	e.EndPos = r.int4()
	e.DupHandlingFlags = r.int1()
	if r.err != nil {
		return r.err
	}
	var err error
	if e.StatusVars, err = decodeStatusVars(r.bytesInternal(int(statusVarsLen))); err != nil {
		return err
	}
	e.Schema = r.string(int(schemaLen))
	r.skip(1)
	e.Query = r.stringEOF()
	return r.err
}

// AppendBlockEvent carries a continuation block of a file transfer.
type AppendBlockEvent struct {
	FileID uint32
	Block  []byte
}

func (e *AppendBlockEvent) decode(r *reader) error {
	e.FileID = r.int4()
	e.Block = r.bytesEOF()
	return r.err
}

// DeleteFileEvent signals abort of a LOAD DATA INFILE transfer.
type DeleteFileEvent struct {
	FileID uint32
}

func (e *DeleteFileEvent) decode(r *reader) error {
	e.FileID = r.int4()
	return r.err
}

// The MySQL 3.23/4.x LOAD DATA INFILE family. Decoded for completeness
// of the taxonomy; modern servers never write them.
type LoadEvent struct{ Raw []byte }
type NewLoadEvent struct{ Raw []byte }
type CreateFileEvent struct{ Raw []byte }
type ExecLoadEvent struct{ Raw []byte }
type SlaveEvent struct{ Raw []byte }
type StartV3Event struct {
	BinlogVersion   uint16
	ServerVersion   string
	CreateTimestamp uint32
}

func (e *StartV3Event) decode(r *reader) error {
	e.BinlogVersion = r.int2()
	e.ServerVersion = trimZeroPadded(r.string(50))
	e.CreateTimestamp = r.int4()
	return r.err
}

// ViewChangeEvent marks a group-replication view change.
type ViewChangeEvent struct {
	ViewID string
	SeqNo  uint64
}

func (e *ViewChangeEvent) decode(r *reader) error {
	e.ViewID = trimZeroPadded(r.string(40))
	e.SeqNo = r.int8()
	return r.err
}

// TransactionContextEvent is written by group replication; the core
// records its raw payload without interpreting the certification data.
type TransactionContextEvent struct {
	Raw []byte
}
