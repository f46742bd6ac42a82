package binlog

// registerBuiltins installs the stock decoder set. Critical decoders
// guard the events the stream cannot stay consistent without.
// ConflictOverrideLower replaces only a decoder of strictly lower
// priority, so a user decoder at PriorityCritical does not displace
// them, and ConflictKeepExisting leaves them in place.
func (d *Decoder) registerBuiltins() {
	critical := func(name string, fn func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error)) EventDecoder {
		return DecoderFunc{DecoderName: name, DecoderPriority: PriorityCritical, Func: fn}
	}
	high := func(name string, fn func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error)) EventDecoder {
		return DecoderFunc{DecoderName: name, DecoderPriority: PriorityHigh, Func: fn}
	}
	normal := func(name string, fn func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error)) EventDecoder {
		return DecoderFunc{DecoderName: name, DecoderPriority: PriorityNormal, Func: fn}
	}

	reg := func(typ EventType, dec EventDecoder) {
		// stock set is conflict free
		_ = d.reg.register(typ, dec, ConflictReject)
	}

	reg(FORMAT_DESCRIPTION_EVENT, critical("formatDescription", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &FormatDescriptionEvent{}
		return e, e.decode(r)
	}))
	reg(TABLE_MAP_EVENT, critical("tableMap", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &TableMapEvent{}
		return e, e.decode(r, ctx.FormatDescription())
	}))
	reg(GTID_EVENT, critical("gtid", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &GtidLogEvent{}
		return e, e.decode(r, h.EventType)
	}))
	reg(ANONYMOUS_GTID_EVENT, critical("anonymousGtid", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &GtidLogEvent{}
		return e, e.decode(r, h.EventType)
	}))

	rows := rowsEventDecoder{}
	reg(WRITE_ROWS_EVENTv1, rows)
	reg(WRITE_ROWS_EVENTv2, rows)
	reg(UPDATE_ROWS_EVENTv1, rows)
	reg(UPDATE_ROWS_EVENTv2, rows)
	reg(DELETE_ROWS_EVENTv1, rows)
	reg(DELETE_ROWS_EVENTv2, rows)
	reg(WRITE_ROWS_EVENTv0, rows)
	reg(UPDATE_ROWS_EVENTv0, rows)
	reg(DELETE_ROWS_EVENTv0, rows)
	reg(PARTIAL_UPDATE_ROWS_EVENT, rows)

	reg(QUERY_EVENT, high("query", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &QueryEvent{}
		return e, e.decode(r)
	}))
	reg(ROTATE_EVENT, high("rotate", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &RotateEvent{}
		return e, e.decode(r)
	}))
	reg(XID_EVENT, high("xid", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &XidEvent{}
		return e, e.decode(r)
	}))
	reg(PREVIOUS_GTIDS_EVENT, high("previousGtids", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &PreviousGtidsEvent{}
		return e, e.decode(r)
	}))
	reg(TRANSACTION_PAYLOAD_EVENT, high("transactionPayload", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &TransactionPayloadEvent{}
		return e, e.decode(r)
	}))

	reg(STOP_EVENT, normal("stop", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &StopEvent{}, nil
	}))
	reg(HEARTBEAT_EVENT, normal("heartbeat", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &HeartbeatEvent{}, nil
	}))
	reg(HEARTBEAT_LOG_EVENT_V2, normal("heartbeatV2", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &HeartbeatV2Event{}
		return e, e.decode(r)
	}))
	reg(IGNORABLE_EVENT, normal("ignorable", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &IgnorableEvent{}, nil
	}))
	reg(UNKNOWN_EVENT, normal("unknown", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &UnknownEvent{Type: UNKNOWN_EVENT}, nil
	}))
	reg(INTVAR_EVENT, normal("intVar", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &IntVarEvent{}
		return e, e.decode(r)
	}))
	reg(RAND_EVENT, normal("rand", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &RandEvent{}
		return e, e.decode(r)
	}))
	reg(USER_VAR_EVENT, normal("userVar", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &UserVarEvent{}
		return e, e.decode(r)
	}))
	reg(INCIDENT_EVENT, normal("incident", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &IncidentEvent{}
		return e, e.decode(r)
	}))
	reg(ROWS_QUERY_EVENT, normal("rowsQuery", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &RowsQueryEvent{}
		return e, e.decode(r)
	}))
	reg(BEGIN_LOAD_QUERY_EVENT, normal("beginLoadQuery", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &BeginLoadQueryEvent{}
		return e, e.decode(r)
	}))
	reg(EXECUTE_LOAD_QUERY_EVENT, normal("executeLoadQuery", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &ExecuteLoadQueryEvent{}
		return e, e.decode(r)
	}))
	reg(APPEND_BLOCK_EVENT, normal("appendBlock", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &AppendBlockEvent{}
		return e, e.decode(r)
	}))
	reg(DELETE_FILE_EVENT, normal("deleteFile", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &DeleteFileEvent{}
		return e, e.decode(r)
	}))
	reg(START_EVENT_V3, normal("startV3", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &StartV3Event{}
		return e, e.decode(r)
	}))
	reg(XA_PREPARE_LOG_EVENT, normal("xaPrepare", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &XAPrepareEvent{}
		return e, e.decode(r)
	}))
	reg(VIEW_CHANGE_EVENT, normal("viewChange", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		e := &ViewChangeEvent{}
		return e, e.decode(r)
	}))
	reg(TRANSACTION_CONTEXT_EVENT, normal("transactionContext", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &TransactionContextEvent{Raw: r.bytesEOF()}, r.err
	}))
	reg(LOAD_EVENT, normal("load", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &LoadEvent{Raw: r.bytesEOF()}, r.err
	}))
	reg(NEW_LOAD_EVENT, normal("newLoad", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &NewLoadEvent{Raw: r.bytesEOF()}, r.err
	}))
	reg(CREATE_FILE_EVENT, normal("createFile", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &CreateFileEvent{Raw: r.bytesEOF()}, r.err
	}))
	reg(EXEC_LOAD_EVENT, normal("execLoad", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &ExecLoadEvent{Raw: r.bytesEOF()}, r.err
	}))
	reg(SLAVE_EVENT, normal("slave", func(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
		return &SlaveEvent{Raw: r.bytesEOF()}, r.err
	}))
}

// rowsEventDecoder handles every versioned rows event through one
// decoder; CanDecode is the versioning pre-check.
type rowsEventDecoder struct{}

func (rowsEventDecoder) Name() string              { return "rows" }
func (rowsEventDecoder) Priority() DecoderPriority { return PriorityHigh }

func (rowsEventDecoder) CanDecode(typ EventType, _ []byte) bool {
	return typ.IsRows()
}

func (rowsEventDecoder) Decode(r *reader, h *EventHeader, ctx *LogContext) (interface{}, error) {
	e := &RowsEvent{}
	return e, e.decode(r, ctx.FormatDescription(), ctx, h.EventType)
}
