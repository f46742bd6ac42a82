package binlog

import (
	"encoding/binary"
	"math"
)

// jsonDecoder decodes the binary JSON storage format into Go values:
// map[string]interface{}, []interface{}, strings, numbers, booleans and
// the opaque custom column types.
//
// https://dev.mysql.com/worklog/task/?id=8132
type jsonDecoder struct{}

const (
	jsonSmallObj byte = iota
	jsonLargeObj
	jsonSmallArr
	jsonLargeArr
	jsonLiteral
	jsonInt16
	jsonUInt16
	jsonInt32
	jsonUInt32
	jsonInt64
	jsonUInt64
	jsonDouble
	jsonString
	jsonCustom = 0x0f
)

func (d *jsonDecoder) decodeValue(data []byte) (interface{}, error) {
	if len(data) == 0 {
		// an empty image is a NULL JSON document
		return nil, nil
	}
	return d.decodeValueType(data[0], data[1:])
}

func (d *jsonDecoder) decodeValueType(typ byte, data []byte) (interface{}, error) {
	switch typ {
	case jsonSmallObj:
		return d.decodeComposite(data, true, true)
	case jsonLargeObj:
		return d.decodeComposite(data, false, true)
	case jsonSmallArr:
		return d.decodeComposite(data, true, false)
	case jsonLargeArr:
		return d.decodeComposite(data, false, false)
	case jsonLiteral:
		return d.decodeLiteral(data)
	case jsonInt16:
		v, err := d.uint16(data)
		return int16(v), err
	case jsonUInt16:
		return d.uint16(data)
	case jsonInt32:
		v, err := d.uint32(data)
		return int32(v), err
	case jsonUInt32:
		return d.uint32(data)
	case jsonInt64:
		v, err := d.uint64(data)
		return int64(v), err
	case jsonUInt64:
		return d.uint64(data)
	case jsonDouble:
		v, err := d.uint64(data)
		return math.Float64frombits(v), err
	case jsonString:
		return d.decodeString(data)
	case jsonCustom:
		return d.decodeCustom(data)
	}
	return nil, ErrMalformedValue.New(TypeJSON, "invalid value type")
}

func (d *jsonDecoder) decodeComposite(data []byte, small, obj bool) (interface{}, error) {
	var off int
	decodeUInt := func() (uint32, error) {
		if small {
			v, err := d.uint16(data[off:])
			off += 2
			return uint32(v), err
		}
		v, err := d.uint32(data[off:])
		off += 4
		return v, err
	}
	elemCount, err := decodeUInt()
	if err != nil {
		return nil, err
	}
	if _, err := decodeUInt(); err != nil { // total size, unused
		return nil, err
	}
	var keys []string
	if obj {
		keys = make([]string, elemCount)
		for i := uint32(0); i < elemCount; i++ {
			keyOff, err := decodeUInt()
			if err != nil {
				return nil, err
			}
			keyLen, err := d.uint16(data[off:])
			if err != nil {
				return nil, err
			}
			off += 2
			if len(data) < int(keyOff)+int(keyLen) {
				return nil, ErrUnexpectedEOF.New()
			}
			keys[i] = string(data[keyOff : keyOff+uint32(keyLen)])
		}
	}

	inlineValue := func(typ byte) bool {
		switch typ {
		case jsonLiteral, jsonInt16, jsonUInt16:
			return true
		case jsonInt32, jsonUInt32:
			return !small
		}
		return false
	}
	vals := make([]interface{}, elemCount)
	for i := uint32(0); i < elemCount; i++ {
		if off >= len(data) {
			return nil, ErrUnexpectedEOF.New()
		}
		typ := data[off]
		off++
		if inlineValue(typ) {
			v, err := d.decodeValueType(typ, data[off:])
			if err != nil {
				return nil, err
			}
			vals[i] = v
			if small {
				off += 2
			} else {
				off += 4
			}
		} else {
			valueOff, err := decodeUInt()
			if err != nil {
				return nil, err
			}
			if int(valueOff) > len(data) {
				return nil, ErrUnexpectedEOF.New()
			}
			v, err := d.decodeValueType(typ, data[valueOff:])
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
	}

	if obj {
		m := make(map[string]interface{}, elemCount)
		for i, key := range keys {
			m[key] = vals[i]
		}
		return m, nil
	}
	return vals, nil
}

func (d *jsonDecoder) decodeLiteral(data []byte) (interface{}, error) {
	if len(data) < 1 {
		return nil, ErrUnexpectedEOF.New()
	}
	switch data[0] {
	case 0x00:
		return nil, nil
	case 0x01:
		return true, nil
	case 0x02:
		return false, nil
	}
	return nil, ErrMalformedValue.New(TypeJSON, "invalid literal")
}

func (d *jsonDecoder) uint16(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, ErrUnexpectedEOF.New()
	}
	return binary.LittleEndian.Uint16(data), nil
}

func (d *jsonDecoder) uint32(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, ErrUnexpectedEOF.New()
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (d *jsonDecoder) uint64(data []byte) (uint64, error) {
	if len(data) < 8 {
		return 0, ErrUnexpectedEOF.New()
	}
	return binary.LittleEndian.Uint64(data), nil
}

// decodeDataLen reads the varint length prefix used by strings and
// custom values. math.MaxUint32 fits in 5 bytes.
func (d *jsonDecoder) decodeDataLen(data []byte) (uint64, []byte, error) {
	const max = 5
	var size uint64
	for i := 0; i < max; i++ {
		if len(data) == 0 {
			return 0, data, ErrUnexpectedEOF.New()
		}
		v := data[0]
		data = data[1:]
		size |= uint64(v&0x7F) << uint(7*i)
		if v&0x80 == 0 {
			return size, data, nil
		}
	}
	return 0, nil, ErrMalformedValue.New(TypeJSON, "invalid length prefix")
}

func (d *jsonDecoder) decodeString(data []byte) (string, error) {
	size, data, err := d.decodeDataLen(data)
	if err != nil {
		return "", err
	}
	if uint64(len(data)) < size {
		return "", ErrUnexpectedEOF.New()
	}
	return string(data[:size]), nil
}

// decodeCustom decodes an opaque column value embedded in a JSON
// document: decimals and temporals keep their typed form, anything else
// surfaces as a string.
func (d *jsonDecoder) decodeCustom(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, ErrUnexpectedEOF.New()
	}
	typ := ColumnType(data[0])
	size, data, err := d.decodeDataLen(data[1:])
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) < size {
		return nil, ErrUnexpectedEOF.New()
	}
	data = data[:size]

	switch typ {
	case TypeNewDecimal:
		if len(data) < 2 {
			return nil, ErrUnexpectedEOF.New()
		}
		return decodeDecimal(data[2:], int(data[0]), int(data[1]))
	case TypeTime:
		if len(data) < 8 {
			return nil, ErrUnexpectedEOF.New()
		}
		v := int64(binary.LittleEndian.Uint64(data))
		neg := v < 0
		if neg {
			v = -v
		}
		frac := v % (1 << 24)
		v >>= 24
		return Time{
			Negative: neg,
			Hour:     int16(v >> 12 % (1 << 10)),
			Min:      uint8(v >> 6 % (1 << 6)),
			Sec:      uint8(v % (1 << 6)),
			Millis:   uint16(frac / 1000),
		}, nil
	case TypeDate, TypeDateTime, TypeTimestamp:
		if len(data) < 8 {
			return nil, ErrUnexpectedEOF.New()
		}
		v := binary.LittleEndian.Uint64(data)
		frac := v % (1 << 24)
		v >>= 24
		ymd := v >> 17
		ym := ymd >> 5
		hms := v % (1 << 17)
		dt := DateTime{
			Year:   uint16(ym / 13),
			Month:  uint8(ym % 13),
			Day:    uint8(ymd % (1 << 5)),
			Hour:   uint8(hms >> 12),
			Min:    uint8(hms >> 6 % (1 << 6)),
			Sec:    uint8(hms % (1 << 6)),
			Millis: uint16(frac / 1000),
		}
		if typ == TypeDate {
			return Date{Year: dt.Year, Month: dt.Month, Day: dt.Day}, nil
		}
		return dt, nil
	default:
		return string(data), nil
	}
}
