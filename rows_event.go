package binlog

// RW_V_EXTRAINFO_TAG is the only documented tag of the rows-event v2
// extra-data block; anything else is skipped by its length.
const RW_V_EXTRAINFO_TAG = 0

// RowsEventExtra is one tag-length-value entry of the v2 extra-data
// block.
type RowsEventExtra struct {
	Tag  uint8
	Data []byte
}

// dummyTableID marks a rows event that carries no rows (used by the
// server to flush statement boundaries).
const dummyTableID = 0x00ffffff

// RowsEvent captures changed rows in a table. For write and delete
// events each row carries one image; for updates the rows live in
// Updates as before/after pairs.
//
// https://dev.mysql.com/doc/internals/en/rows-event.html
type RowsEvent struct {
	Type     EventType
	TableID  uint64
	TableMap *TableMapEvent
	Flags    uint16
	Extra    []RowsEventExtra

	// columns carried by the images of this event
	Present      bitmap // write/delete image, or update before-image
	PresentAfter bitmap // update after-image

	Rows    []*RowData       // one image per row (write/delete)
	Updates []*UpdateRowData // before/after pairs (update)

	// transaction annotation, filled by the driver
	GTID     *GTID
	Position uint64
}

// SchemaName returns the database the rows belong to.
func (e *RowsEvent) SchemaName() string {
	if e.TableMap == nil {
		return ""
	}
	return e.TableMap.SchemaName
}

// TableName returns the table the rows belong to.
func (e *RowsEvent) TableName() string {
	if e.TableMap == nil {
		return ""
	}
	return e.TableMap.TableName
}

// Columns returns the column definitions of the underlying table map.
func (e *RowsEvent) Columns() []Column {
	if e.TableMap == nil {
		return nil
	}
	return e.TableMap.Columns
}

func (e *RowsEvent) decode(r *reader, fde *FormatDescriptionEvent, ctx *LogContext, eventType EventType) error {
	e.Type = eventType
	if fde.postHeaderLength(eventType, 8) == 6 {
		e.TableID = uint64(r.int4())
	} else {
		e.TableID = r.int6()
	}
	e.Flags = r.int2()

	switch eventType {
	case WRITE_ROWS_EVENTv2, UPDATE_ROWS_EVENTv2, DELETE_ROWS_EVENTv2, PARTIAL_UPDATE_ROWS_EVENT:
		extraDataLength := int(r.int2())
		if r.err != nil {
			return r.err
		}
		if extraDataLength < 2 {
			return ErrMalformedValue.New(eventType, "extra data length below its own size")
		}
		e.Extra = decodeRowsExtra(r.bytesInternal(extraDataLength - 2))
	}

	numCol := r.intN()
	if r.err != nil {
		return r.err
	}
	if e.TableID == dummyTableID || numCol == 0 {
		// dummy event: no table map, no rows
		r.skip(r.remaining())
		return r.err
	}

	tme, ok := ctx.TableMap(e.TableID)
	if !ok {
		return ErrNoPrecedingTableMap.New(e.TableID)
	}
	e.TableMap = tme
	if uint64(len(tme.Columns)) != numCol {
		return ErrMalformedValue.New(eventType, "column count disagrees with table map")
	}

	e.Present = r.bitmap(numCol)
	if eventType.IsUpdateRows() {
		e.PresentAfter = r.bitmap(numCol)
	}
	if r.err != nil {
		return r.err
	}

	cache := ctx.ValueCache()
	for r.more() {
		if eventType.IsUpdateRows() {
			before, err := decodeRowImage(r, tme, e.Present, cache)
			if err != nil {
				return err
			}
			after, err := decodeRowImage(r, tme, e.PresentAfter, cache)
			if err != nil {
				return err
			}
			e.Updates = append(e.Updates, NewUpdateRowData(before, after))
		} else {
			row, err := decodeRowImage(r, tme, e.Present, cache)
			if err != nil {
				return err
			}
			e.Rows = append(e.Rows, row)
		}
	}
	return r.err
}

// decodeRowImage reconstructs one typed row tuple from the compact
// binary image. Cells of columns absent from the image are Missing;
// cells with their null bit set are nil.
//
// The null bitmap covers only the columns present in the image, so the
// bit for column i sits at i minus the count of absent columns before
// it.
func decodeRowImage(r *reader, tme *TableMapEvent, present bitmap, cache *ValueCache) (*RowData, error) {
	numCol := len(tme.Columns)
	cellsIncluded := present.popcount(numCol)
	nulls := r.bitmap(uint64(cellsIncluded))
	if r.err != nil {
		return nil, r.err
	}

	row := &RowData{Cells: make([]interface{}, numCol)}
	skipped := 0
	for i := 0; i < numCol; i++ {
		if !present.isTrue(i) {
			row.Cells[i] = Missing
			skipped++
			continue
		}
		if nulls.isTrue(i - skipped) {
			row.Cells[i] = nil
			continue
		}
		v, err := tme.Columns[i].decodeValueCached(r, cache)
		if err != nil {
			// the driver fills in file/offset/event type
			return nil, &DecodeError{Column: i, Err: err}
		}
		row.Cells[i] = v
	}
	return row, nil
}

// decodeRowsExtra splits the v2 extra-data block into entries. The
// block is advisory; malformed framing yields what was readable.
func decodeRowsExtra(buf []byte) []RowsEventExtra {
	var entries []RowsEventExtra
	r := newFrameReader(buf)
	for r.more() {
		tag := r.int1()
		size := int(r.int1())
		data := r.bytes(size)
		if r.err != nil {
			return entries
		}
		entries = append(entries, RowsEventExtra{Tag: tag, Data: data})
	}
	return entries
}
