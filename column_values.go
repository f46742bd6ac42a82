package binlog

import (
	"math"
	"time"
)

// decodeValueCached consults the decoded-value cache for the types
// whose byte span is known up front and whose decode is expensive
// enough to be worth remembering (packed decimal, JSON documents,
// geometry). Everything else goes straight to decodeValue.
func (col Column) decodeValueCached(r *reader, cache *ValueCache) (interface{}, error) {
	if cache == nil {
		return col.decodeValue(r)
	}
	typ, meta := col.realType()
	switch typ {
	case TypeDecimal, TypeNewDecimal:
		precision := int(byte(meta))
		scale := int(byte(meta >> 8))
		data := r.bytesInternal(decimalSize(precision, scale))
		if r.err != nil {
			return nil, r.err
		}
		if v, ok := cache.Get(typ, meta, data); ok {
			return v, nil
		}
		start := time.Now()
		v, err := decodeDecimal(data, precision, scale)
		if err != nil {
			return nil, err
		}
		cache.Put(typ, meta, data, v, time.Since(start))
		return v, nil
	case TypeJSON:
		size := r.intFixed(int(meta))
		data := r.bytes(int(size))
		if r.err != nil {
			return nil, r.err
		}
		if v, ok := cache.Get(typ, meta, data); ok {
			return v, nil
		}
		start := time.Now()
		j := JSON{Raw: data}
		if v, err := new(jsonDecoder).decodeValue(data); err == nil {
			j.Val = v
		}
		cache.Put(typ, meta, data, j, time.Since(start))
		return j, nil
	case TypeGeometry:
		size := r.intFixed(int(meta))
		data := r.bytes(int(size))
		if r.err != nil {
			return nil, r.err
		}
		if v, ok := cache.Get(typ, meta, data); ok {
			return v, nil
		}
		start := time.Now()
		g := decodeGeometry(data)
		cache.Put(typ, meta, data, g, time.Since(start))
		return g, nil
	}
	return col.decodeValue(r)
}

// decodeValue consumes one cell of a row image and returns its typed
// value. The column's metadata drives the wire width; signedness comes
// from the table map's extra metadata.
func (col Column) decodeValue(r *reader) (interface{}, error) {
	typ, meta := col.realType()
	switch typ {
	case TypeTiny:
		if col.Unsigned {
			return r.int1(), r.err
		}
		return int8(r.int1()), r.err
	case TypeShort:
		if col.Unsigned {
			return r.int2(), r.err
		}
		return int16(r.int2()), r.err
	case TypeInt24:
		if col.Unsigned {
			return r.int3(), r.err
		}
		return r.int3Signed(), r.err
	case TypeLong:
		if col.Unsigned {
			return r.int4(), r.err
		}
		return int32(r.int4()), r.err
	case TypeLongLong:
		if col.Unsigned {
			return r.int8(), r.err
		}
		return int64(r.int8()), r.err
	case TypeFloat:
		return math.Float32frombits(r.int4()), r.err
	case TypeDouble:
		return math.Float64frombits(r.int8()), r.err
	case TypeDecimal, TypeNewDecimal:
		precision := int(byte(meta))
		scale := int(byte(meta >> 8))
		buf := r.bytesInternal(decimalSize(precision, scale))
		if r.err != nil {
			return nil, r.err
		}
		return decodeDecimal(buf, precision, scale)
	case TypeVarchar, TypeVarString, TypeString:
		var size int
		if meta < 256 {
			size = int(r.int1())
		} else {
			size = int(r.int2())
		}
		buf := r.bytesInternal(size)
		if r.err != nil {
			return nil, r.err
		}
		return decodeCharsetString(buf, col.Charset), nil
	case TypeEnum:
		switch meta {
		case 1:
			return Enum{Val: uint32(r.int1()), Values: col.Values}, r.err
		case 2:
			return Enum{Val: uint32(r.int2()), Values: col.Values}, r.err
		default:
			return nil, ErrMalformedValue.New(TypeEnum, "invalid pack length")
		}
	case TypeSet:
		if meta == 0 || meta > 8 {
			return nil, ErrMalformedValue.New(TypeSet, "invalid pack length")
		}
		return Set{Val: r.intFixed(int(meta)), Values: col.Values}, r.err
	case TypeBit:
		nbits := int(meta>>8)*8 + int(meta&0xFF)
		buf := r.bytes((nbits + 7) / 8)
		if r.err != nil {
			return nil, r.err
		}
		return Bit{Bytes: buf, Len: nbits}, nil
	case TypeBlob, TypeTinyBlob, TypeMediumBlob, TypeLongBlob:
		size := r.intFixed(int(meta))
		buf := r.bytes(int(size))
		if r.err != nil {
			return nil, r.err
		}
		if col.Charset == 0 || isBinaryCharset(col.Charset) {
			return Blob(buf), nil
		}
		return decodeCharsetString(buf, col.Charset), nil
	case TypeGeometry:
		size := r.intFixed(int(meta))
		buf := r.bytes(int(size))
		if r.err != nil {
			return nil, r.err
		}
		return decodeGeometry(buf), nil
	case TypeJSON:
		size := r.intFixed(int(meta))
		buf := r.bytes(int(size))
		if r.err != nil {
			return nil, r.err
		}
		v, err := new(jsonDecoder).decodeValue(buf)
		if err != nil {
			// keep the raw image; the structural parse is best effort
			return JSON{Raw: buf}, nil
		}
		return JSON{Raw: buf, Val: v}, nil
	case TypeYear:
		v := r.int1()
		if v == 0 {
			return uint16(0), r.err
		}
		return 1900 + uint16(v), r.err
	case TypeDate, TypeNewDate:
		v := r.int3()
		if r.err != nil {
			return nil, r.err
		}
		return Date{
			Year:  uint16(v >> 9),
			Month: uint8(v >> 5 & 0x0f),
			Day:   uint8(v & 0x1f),
		}, nil
	case TypeTime:
		v := r.int3Signed()
		if r.err != nil {
			return nil, r.err
		}
		if v < 0 {
			return nil, ErrMalformedValue.New(TypeTime, "negative time values not supported")
		}
		sec := v % 100
		v /= 100
		min := v % 100
		v /= 100
		return Time{Hour: int16(v), Min: uint8(min), Sec: uint8(sec)}, nil
	case TypeTime2:
		return decodeTime2(r, meta)
	case TypeTimestamp:
		sec := r.int4()
		return Timestamp(uint64(sec) * 1000), r.err
	case TypeTimestamp2:
		sec := r.intFixedBE(4)
		ms, err := fractionalMillis(meta, r)
		if err != nil {
			return nil, err
		}
		return Timestamp(sec*1000 + uint64(ms)), r.err
	case TypeDateTime:
		v := r.int8()
		if r.err != nil {
			return nil, r.err
		}
		// packed decimal YYYYMMDDhhmmss
		d := v / 1000000
		t := v % 1000000
		return DateTime{
			Year:  uint16(d / 10000),
			Month: uint8(d / 100 % 100),
			Day:   uint8(d % 100),
			Hour:  uint8(t / 10000),
			Min:   uint8(t / 100 % 100),
			Sec:   uint8(t % 100),
		}, nil
	case TypeDateTime2:
		return decodeDateTime2(r, meta)
	case TypeNull:
		return nil, nil
	}
	return nil, ErrMalformedValue.New(typ, "no decoder for column type")
}

// decodeDateTime2 reads the 5-byte big-endian 5.6+ DATETIME image:
// sign(1) | year*13+month(17) | day(5) | hour(5) | minute(6) | second(6)
// followed by the fractional-seconds image.
func decodeDateTime2(r *reader, meta uint16) (interface{}, error) {
	dt := r.intFixedBE(5)
	if r.err != nil {
		return nil, r.err
	}
	ym := bitSlice(dt, 40, 1, 17)
	ms, err := fractionalMillis(meta, r)
	if err != nil {
		return nil, err
	}
	return DateTime{
		Year:   uint16(ym / 13),
		Month:  uint8(ym % 13),
		Day:    uint8(bitSlice(dt, 40, 18, 5)),
		Hour:   uint8(bitSlice(dt, 40, 23, 5)),
		Min:    uint8(bitSlice(dt, 40, 28, 6)),
		Sec:    uint8(bitSlice(dt, 40, 34, 6)),
		Millis: uint16(ms),
	}, nil
}

// decodeTime2 reads the 3-byte big-endian 5.6+ TIME image:
// sign(1) | unused(1) | hour(10) | minute(6) | second(6)
// followed by the fractional-seconds image. Negative values are stored
// in two's complement over the combined image.
func decodeTime2(r *reader, meta uint16) (interface{}, error) {
	t := r.intFixedBE(3)
	if r.err != nil {
		return nil, r.err
	}
	sign := bitSlice(t, 24, 0, 1)
	hour := bitSlice(t, 24, 2, 10)
	min := bitSlice(t, 24, 12, 6)
	sec := bitSlice(t, 24, 18, 6)
	var ms int
	if sign == 0 {
		// negative: complement each field, take the fraction's absolute
		hour = ^hour & mask(10) & unsetSignMask(10)
		min = ^min & mask(6) & unsetSignMask(6)
		sec = ^sec & mask(6) & unsetSignMask(6)
		frac, err := fractionalMicrosNegative(meta, r)
		if err != nil {
			return nil, err
		}
		if frac == 0 && sec < 59 {
			sec++
		}
		ms = frac / 1000
	} else {
		var err error
		ms, err = fractionalMillis(meta, r)
		if err != nil {
			return nil, err
		}
	}
	return Time{
		Negative: sign == 0,
		Hour:     int16(hour),
		Min:      uint8(min),
		Sec:      uint8(sec),
		Millis:   uint16(ms),
	}, r.err
}

func bitSlice(v uint64, bits, off, length int) int {
	v >>= uint(bits - (off + length))
	return int(v & (1<<uint(length) - 1))
}

// fractionalMicros reads the fsp image: width ceil(fsp/2) bytes
// big-endian, scaled to microseconds by 100^(3-width).
func fractionalMicros(fsp uint16, r *reader) (int, error) {
	n := int(fsp+1) / 2
	if n == 0 {
		return 0, nil
	}
	v := r.intFixedBE(n)
	if r.err != nil {
		return 0, r.err
	}
	return int(v) * pow100(3-n), nil
}

// fractionalMillis truncates the microsecond fraction to milliseconds.
func fractionalMillis(fsp uint16, r *reader) (int, error) {
	us, err := fractionalMicros(fsp, r)
	return us / 1000, err
}

// fractionalMicrosNegative complements the stored fraction of a
// negative TIME2 image.
func fractionalMicrosNegative(fsp uint16, r *reader) (int, error) {
	n := int(fsp+1) / 2
	if n == 0 {
		return 0, nil
	}
	v := int(r.intFixedBE(n))
	if r.err != nil {
		return 0, r.err
	}
	if v != 0 {
		bits := n * 8
		v = ^v & mask(bits)
		v = v&unsetSignMask(bits) + 1
	}
	return v * pow100(3-n), nil
}

func pow100(n int) int {
	v := 1
	for i := 0; i < n; i++ {
		v *= 100
	}
	return v
}

func mask(bits int) int {
	return 1<<uint(bits) - 1
}

func unsetSignMask(bits int) int {
	return ^(1 << uint(bits))
}
