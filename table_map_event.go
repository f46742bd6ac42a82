package binlog

// Extended table metadata entry tags, present when the server runs
// with binlog_row_metadata=FULL (column names and friends) or MINIMAL
// (signedness, charsets, primary key).
//
// https://dev.mysql.com/worklog/task/?id=4618
const (
	metaSignedness               = 1
	metaDefaultCharset           = 2
	metaColumnCharset            = 3
	metaColumnName               = 4
	metaSetStrValue              = 5
	metaEnumStrValue             = 6
	metaGeometryType             = 7
	metaSimplePrimaryKey         = 8
	metaPrimaryKeyWithPrefix     = 9
	metaEnumAndSetDefaultCharset = 10
	metaEnumAndSetColumnCharset  = 11
	metaColumnVisibility         = 12
)

// TableMapEvent declares how a table that is about to be changed is
// defined. It precedes each sequence of row operation events and maps a
// table definition to a numeric id so row events stay compact.
//
// A registered map is immutable; a table id resolves to exactly one
// TableMapEvent for the duration of a transaction.
//
// https://dev.mysql.com/doc/internals/en/table-map-event.html
type TableMapEvent struct {
	TableID    uint64
	Flags      uint16
	SchemaName string
	TableName  string
	Columns    []Column
}

func (e *TableMapEvent) decode(r *reader, fde *FormatDescriptionEvent) error {
	if fde != nil && fde.BinlogVersion != 0 && fde.BinlogVersion < 4 {
		// per-column metadata widths below assume a 5.6+ server
		return ErrMalformedValue.New(TABLE_MAP_EVENT, "binlog version < 4 not supported")
	}
	e.TableID = r.int6()
	e.Flags = r.int2()
	_ = r.int1() // schema name length
	e.SchemaName = r.stringNull()
	_ = r.int1() // table name length
	e.TableName = r.stringNull()
	numCol := r.intN()
	if r.err != nil {
		return r.err
	}
	e.Columns = make([]Column, numCol)
	for i := range e.Columns {
		e.Columns[i].Ordinal = i
		e.Columns[i].Type = ColumnType(r.int1())
		e.Columns[i].Visible = true
	}

	_ = r.intN() // metadata block length
	for i := range e.Columns {
		switch e.Columns[i].Type {
		default:
			// zero metadata bytes
		case TypeBlob, TypeTinyBlob, TypeMediumBlob, TypeLongBlob,
			TypeDouble, TypeFloat, TypeGeometry, TypeJSON,
			TypeTime2, TypeDateTime2, TypeTimestamp2:
			e.Columns[i].Meta = uint16(r.int1())
		case TypeVarchar, TypeVarString, TypeDecimal, TypeNewDecimal:
			e.Columns[i].Meta = r.int2()
		case TypeBit:
			// (bytes)(bits), wire order high byte first
			bytes := r.int1()
			bits := r.int1()
			e.Columns[i].Meta = uint16(bytes)<<8 | uint16(bits)
		case TypeEnum, TypeSet:
			// (real type)(pack length); only the pack length matters
			_ = r.int1()
			e.Columns[i].Meta = uint16(r.int1())
		case TypeString:
			// (real type)(length); kept packed for realType()
			b0 := r.int1()
			b1 := r.int1()
			e.Columns[i].Meta = uint16(b0)<<8 | uint16(b1)
		}
	}

	nullable := r.bitmap(numCol)
	if r.err != nil {
		return r.err
	}
	for i := range e.Columns {
		e.Columns[i].Nullable = nullable.isTrue(i)
	}

	return e.decodeExtraMetadata(r)
}

// decodeExtraMetadata walks the optional tag-length-value entries that
// follow the null bitmap. Unknown tags are skipped by their length.
func (e *TableMapEvent) decodeExtraMetadata(r *reader) error {
	for r.more() {
		typ := r.int1()
		size := int(r.intN())
		if r.err != nil {
			return r.err
		}
		switch typ {
		case metaSignedness:
			unsigned := reverseBitmap(r.bytesInternal(size))
			if r.err != nil {
				return r.err
			}
			inum := 0
			for i := range e.Columns {
				if e.Columns[i].Type.isNumeric() {
					e.Columns[i].Unsigned = unsigned.isTrue(inum)
					inum++
				}
			}
		case metaDefaultCharset:
			if err := e.decodeDefaultCharset(r, size, ColumnType.isCharacter); err != nil {
				return err
			}
		case metaColumnCharset:
			if err := e.decodeColumnCharset(r, size, ColumnType.isCharacter); err != nil {
				return err
			}
		case metaColumnName:
			for i := range e.Columns {
				e.Columns[i].Name = r.stringN()
			}
		case metaSetStrValue:
			if err := e.decodeValueList(r, size, TypeSet); err != nil {
				return err
			}
		case metaEnumStrValue:
			if err := e.decodeValueList(r, size, TypeEnum); err != nil {
				return err
			}
		case metaGeometryType:
			igeo := 0
			for size > 0 {
				v, n := r.intPacked()
				size -= n
				if r.err != nil {
					return r.err
				}
				for igeo < len(e.Columns) && e.Columns[igeo].Type != TypeGeometry {
					igeo++
				}
				if igeo < len(e.Columns) {
					e.Columns[igeo].GeometryType = v
					igeo++
				}
			}
		case metaSimplePrimaryKey:
			for size > 0 {
				ord, n := r.intPacked()
				size -= n
				if r.err != nil {
					return r.err
				}
				if int(ord) < len(e.Columns) {
					e.Columns[ord].PrimaryKey = true
				}
			}
		case metaPrimaryKeyWithPrefix:
			for size > 0 {
				ord, n := r.intPacked()
				size -= n
				prefix, m := r.intPacked()
				size -= m
				if r.err != nil {
					return r.err
				}
				if int(ord) < len(e.Columns) {
					e.Columns[ord].PrimaryKey = true
					e.Columns[ord].PrefixLength = prefix
				}
			}
		case metaEnumAndSetDefaultCharset:
			if err := e.decodeDefaultCharset(r, size, ColumnType.isEnumSet); err != nil {
				return err
			}
		case metaEnumAndSetColumnCharset:
			if err := e.decodeColumnCharset(r, size, ColumnType.isEnumSet); err != nil {
				return err
			}
		case metaColumnVisibility:
			visible := reverseBitmap(r.bytesInternal(size))
			if r.err != nil {
				return r.err
			}
			for i := range e.Columns {
				e.Columns[i].Visible = visible.isTrue(i)
			}
		default:
			r.skip(size)
		}
	}
	return r.err
}

// decodeDefaultCharset reads (default, [(ordinal, charset)...]) and
// backfills the default onto matching columns not enumerated.
func (e *TableMapEvent) decodeDefaultCharset(r *reader, size int, f func(ColumnType) bool) error {
	defCharset, n := r.intPacked()
	size -= n
	if r.err != nil {
		return r.err
	}
	for size > 0 {
		ord, n := r.intPacked()
		size -= n
		if r.err != nil {
			return r.err
		}
		charset, n := r.intPacked()
		size -= n
		if r.err != nil {
			return r.err
		}
		if int(ord) < len(e.Columns) {
			e.Columns[ord].Charset = charset
		}
	}
	if size != 0 {
		return ErrMalformedValue.New(TABLE_MAP_EVENT, "invalid defaultCharset block")
	}
	for i := range e.Columns {
		if f(e.Columns[i].Type) && e.Columns[i].Charset == 0 {
			e.Columns[i].Charset = defCharset
		}
	}
	return nil
}

// decodeColumnCharset reads one charset id per matching column.
func (e *TableMapEvent) decodeColumnCharset(r *reader, size int, f func(ColumnType) bool) error {
	for i := range e.Columns {
		if !f(e.Columns[i].Type) {
			continue
		}
		charset, n := r.intPacked()
		e.Columns[i].Charset = charset
		size -= n
		if r.err != nil {
			return r.err
		}
	}
	if size != 0 {
		return ErrMalformedValue.New(TABLE_MAP_EVENT, "invalid columnCharset block")
	}
	return nil
}

// decodeValueList reads the permitted-values lists of enum or set
// columns, in column order.
func (e *TableMapEvent) decodeValueList(r *reader, size int, typ ColumnType) error {
	var icol int
	for size > 0 {
		nVal, n := r.intPacked()
		size -= n
		if r.err != nil {
			return r.err
		}
		vals := make([]string, nVal)
		for i := range vals {
			l, n := r.intPacked()
			size -= n
			if r.err != nil {
				return r.err
			}
			vals[i] = r.string(int(l))
			size -= int(l)
			if r.err != nil {
				return r.err
			}
		}
		for icol < len(e.Columns) {
			rt, _ := e.Columns[icol].realType()
			if rt == typ {
				break
			}
			icol++
		}
		if icol == len(e.Columns) {
			return ErrMalformedValue.New(TABLE_MAP_EVENT, "more value lists than enum/set columns")
		}
		e.Columns[icol].Values = vals
		icol++
	}
	if size != 0 {
		return ErrMalformedValue.New(TABLE_MAP_EVENT, "invalid enum/set value block")
	}
	return r.err
}

// ColumnNames returns the declared names, or nil when the binlog was
// written without binlog_row_metadata=FULL.
func (e *TableMapEvent) ColumnNames() []string {
	if len(e.Columns) == 0 || e.Columns[0].Name == "" {
		return nil
	}
	names := make([]string, len(e.Columns))
	for i := range e.Columns {
		names[i] = e.Columns[i].Name
	}
	return names
}

// PrimaryKey returns the ordinals of the primary-key columns.
func (e *TableMapEvent) PrimaryKey() []int {
	var pk []int
	for i := range e.Columns {
		if e.Columns[i].PrimaryKey {
			pk = append(pk, i)
		}
	}
	return pk
}
