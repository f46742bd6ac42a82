package binlog

// Query event status variable codes.
//
// https://dev.mysql.com/doc/internals/en/query-event.html
const (
	QFlags2Code                   = 0x00
	QSQLModeCode                  = 0x01
	QCatalog                      = 0x02
	QAutoIncrement                = 0x03
	QCharsetCode                  = 0x04
	QTimeZoneCode                 = 0x05
	QCatalogNZCode                = 0x06
	QLcTimeNamesCode              = 0x07
	QCharsetDatabaseCode          = 0x08
	QTableMapForUpdateCode        = 0x09
	QMasterDataWrittenCode        = 0x0a
	QInvokers                     = 0x0b
	QUpdatedDBNames               = 0x0c
	QMicroseconds                 = 0x0d
	QExplicitDefaultsForTimestamp = 0x0e
	QDDLLoggedWithXid             = 0x10
	QDefaultCollationForUtf8mb4   = 0x11
	QSQLRequirePrimaryKey         = 0x12
	QDefaultTableEncryption       = 0x13
)

// StatusVar is one tag-prefixed entry of a Query event's status block.
// Value holds the raw payload of the tag; typed accessors live on
// QueryEvent for the tags consumers actually ask for.
type StatusVar struct {
	Code  uint8
	Value []byte
}

// QueryEvent is written when an updating statement is executed. With
// row-based logging it still frames transactions (BEGIN/COMMIT) and
// carries DDL.
//
// https://dev.mysql.com/doc/internals/en/query-event.html
type QueryEvent struct {
	SlaveProxyID  uint32
	ExecutionTime uint32
	ErrorCode     uint16
	StatusVars    []StatusVar
	Schema        string
	Query         string
}

func (e *QueryEvent) decode(r *reader) error {
	e.SlaveProxyID = r.int4()
	e.ExecutionTime = r.int4()
	schemaLen := r.int1()
	e.ErrorCode = r.int2()
	statusVarsLen := r.int2()
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

// SQLMode returns the Q_SQL_MODE_CODE value, if present.
func (e *QueryEvent) SQLMode() (uint64, bool) {
	if v, ok := e.statusVar(QSQLModeCode); ok && len(v) == 8 {
		return littleEndian(v), true
	}
	return 0, false
}

// Charset returns (client, connection collation, server collation) from
// Q_CHARSET_CODE, if present.
func (e *QueryEvent) Charset() (client, connection, server uint16, ok bool) {
	v, ok := e.statusVar(QCharsetCode)
	if !ok || len(v) != 6 {
		return 0, 0, 0, false
	}
	return uint16(littleEndian(v[0:2])), uint16(littleEndian(v[2:4])), uint16(littleEndian(v[4:6])), true
}

func (e *QueryEvent) statusVar(code uint8) ([]byte, bool) {
	for _, sv := range e.StatusVars {
		if sv.Code == code {
			return sv.Value, true
		}
	}
	return nil, false
}

// statusVarSizes maps fixed-width status-var codes to payload size.
var statusVarSizes = map[uint8]int{
	QFlags2Code:                   4,
	QSQLModeCode:                  8,
	QAutoIncrement:                4,
	QCharsetCode:                  6,
	QLcTimeNamesCode:              2,
	QCharsetDatabaseCode:          2,
	QTableMapForUpdateCode:        8,
	QMasterDataWrittenCode:        4,
	QMicroseconds:                 3,
	QExplicitDefaultsForTimestamp: 1,
	QDDLLoggedWithXid:             8,
	QDefaultCollationForUtf8mb4:   2,
	QSQLRequirePrimaryKey:         1,
	QDefaultTableEncryption:       1,
}

// decodeStatusVars walks the status block. Unknown tags end the walk:
// without a known payload width the remainder cannot be framed, and the
// block's total length has already bounded the damage.
func decodeStatusVars(buf []byte) ([]StatusVar, error) {
	var vars []StatusVar
	r := newFrameReader(buf)
	for r.more() {
		code := r.int1()
		var value []byte
		switch code {
		case QCatalog:
			value = append(r.bytes(int(r.int1())), 0)
			r.skip(1)
		case QCatalogNZCode, QTimeZoneCode:
			value = r.bytes(int(r.int1()))
		case QInvokers:
			user := r.bytes(int(r.int1()))
			host := r.bytes(int(r.int1()))
			value = append(append(user, 0), host...)
		case QUpdatedDBNames:
			count := int(r.int1())
			value = []byte{byte(count)}
			for i := 0; i < count && r.err == nil; i++ {
				value = append(append(value, r.bytesNull()...), 0)
			}
		default:
			size, known := statusVarSizes[code]
			if !known {
				// cannot frame past an unknown tag
				return vars, nil
			}
			value = r.bytes(size)
		}
		if r.err != nil {
			return vars, r.err
		}
		vars = append(vars, StatusVar{Code: code, Value: value})
	}
	return vars, r.err
}

func littleEndian(buf []byte) uint64 {
	var v uint64
	for i, b := range buf {
		v |= uint64(b) << (uint(i) * 8)
	}
	return v
}
