package binlog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeOne(t *testing.T, col Column, buf []byte) interface{} {
	t.Helper()
	r := newFrameReader(buf)
	v, err := col.decodeValue(r)
	require.NoError(t, err)
	require.False(t, r.more(), "decoder left %d bytes unread", r.remaining())
	return v
}

func TestDecodeValue_Integers(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		buf  []byte
		want interface{}
	}{
		{"tiny min", Column{Type: TypeTiny}, []byte{0x80}, int8(-128)},
		{"tiny max", Column{Type: TypeTiny}, []byte{0x7f}, int8(127)},
		{"utiny max", Column{Type: TypeTiny, Unsigned: true}, []byte{0xff}, uint8(255)},
		{"short min", Column{Type: TypeShort}, []byte{0x00, 0x80}, int16(-32768)},
		{"ushort max", Column{Type: TypeShort, Unsigned: true}, []byte{0xff, 0xff}, uint16(65535)},
		{"int24 min", Column{Type: TypeInt24}, []byte{0x00, 0x00, 0x80}, int32(-8388608)},
		{"int24 max", Column{Type: TypeInt24}, []byte{0xff, 0xff, 0x7f}, int32(8388607)},
		{"uint24 max", Column{Type: TypeInt24, Unsigned: true}, []byte{0xff, 0xff, 0xff}, uint32(16777215)},
		{"long", Column{Type: TypeLong}, le32(1), int32(1)},
		{"long min", Column{Type: TypeLong}, []byte{0x00, 0x00, 0x00, 0x80}, int32(-2147483648)},
		{"ulong max", Column{Type: TypeLong, Unsigned: true}, []byte{0xff, 0xff, 0xff, 0xff}, uint32(4294967295)},
		{"longlong min", Column{Type: TypeLongLong}, []byte{0, 0, 0, 0, 0, 0, 0, 0x80}, int64(math.MinInt64)},
		{"ulonglong max", Column{Type: TypeLongLong, Unsigned: true}, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, uint64(math.MaxUint64)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, decodeOne(t, tc.col, tc.buf))
		})
	}
}

func TestDecodeValue_Floats(t *testing.T) {
	col := Column{Type: TypeFloat, Meta: 4}
	require.Equal(t, float32(1.0), decodeOne(t, col, le32(math.Float32bits(1.0))))
	require.Equal(t, float32(4.0), decodeOne(t, col, le32(math.Float32bits(4.0))))
	require.True(t, math.IsNaN(float64(decodeOne(t, col, le32(math.Float32bits(float32(math.NaN())))).(float32))))

	dcol := Column{Type: TypeDouble, Meta: 8}
	require.Equal(t, -2.5, decodeOne(t, dcol, le64(math.Float64bits(-2.5))))
	require.Equal(t, math.Inf(1), decodeOne(t, dcol, le64(math.Float64bits(math.Inf(1)))))
}

func TestDecodeValue_Strings(t *testing.T) {
	// one-byte length prefix for meta < 256
	col := Column{Type: TypeVarchar, Meta: 160}
	require.Equal(t, "abcde", decodeOne(t, col, cat([]byte{5}, []byte("abcde"))))

	// two-byte prefix for wide varchars
	wide := Column{Type: TypeVarchar, Meta: 1024}
	require.Equal(t, "xy", decodeOne(t, wide, cat(le16(2), []byte("xy"))))
}

func TestDecodeValue_StringCharsets(t *testing.T) {
	latin1 := Column{Type: TypeVarchar, Meta: 20, Charset: 8}
	require.Equal(t, "café", decodeOne(t, latin1, cat([]byte{4}, []byte{'c', 'a', 'f', 0xe9})))

	binary := Column{Type: TypeVarchar, Meta: 20, Charset: 63}
	require.Equal(t, "00ff", decodeOne(t, binary, cat([]byte{2}, []byte{0x00, 0xff})))
}

func TestDecodeValue_EnumSet(t *testing.T) {
	enum1 := Column{Type: TypeEnum, Meta: 1, Values: []string{"red", "green"}}
	v := decodeOne(t, enum1, []byte{2})
	require.Equal(t, Enum{Val: 2, Values: []string{"red", "green"}}, v)
	require.Equal(t, "green", v.(Enum).String())

	enum2 := Column{Type: TypeEnum, Meta: 2}
	require.Equal(t, Enum{Val: 0x0102}, decodeOne(t, enum2, []byte{0x02, 0x01}))

	set := Column{Type: TypeSet, Meta: 1, Values: []string{"a", "b", "c"}}
	sv := decodeOne(t, set, []byte{0b101})
	require.Equal(t, []string{"a", "c"}, sv.(Set).Members())
}

func TestDecodeValue_EnumViaStringMetadata(t *testing.T) {
	// ENUM declared as STRING with the real type in the metadata high
	// byte: the rewrite helper must dispatch to the enum decoder.
	col := Column{Type: TypeString, Meta: uint16(TypeEnum)<<8 | 1}
	rt, meta := col.realType()
	require.Equal(t, TypeEnum, rt)
	require.Equal(t, uint16(1), meta)
	require.Equal(t, Enum{Val: 3}, decodeOne(t, col, []byte{3}))

	scol := Column{Type: TypeString, Meta: uint16(TypeSet)<<8 | 2}
	require.Equal(t, Set{Val: 0x0201}, decodeOne(t, scol, []byte{0x01, 0x02}))
}

func TestDecodeValue_OversizedCharMetadata(t *testing.T) {
	// CHAR(n) with n > 255 hides the two high length bits in the
	// metadata high byte
	b0 := byte(TypeString) & ^byte(0x30) // clear the 0x30 band
	col := Column{Type: TypeString, Meta: uint16(b0)<<8 | 0x04}
	rt, meta := col.realType()
	require.Equal(t, TypeString, rt)
	require.Equal(t, uint16(0x304), meta)
}

func TestDecodeValue_Bit(t *testing.T) {
	// 2 bytes, 4 bits => 12 bits
	col := Column{Type: TypeBit, Meta: 1<<8 | 4}
	v := decodeOne(t, col, []byte{0x0a, 0x0f}).(Bit)
	require.Equal(t, 12, v.Len)
	require.Equal(t, uint64(0x0a0f), v.Uint64())
	require.True(t, v.Bit(0))
	require.False(t, v.Bit(4))
	require.Equal(t, "101000001111", v.String())
}

func TestDecodeValue_Blob(t *testing.T) {
	// 2-byte length prefix
	col := Column{Type: TypeBlob, Meta: 2}
	v := decodeOne(t, col, cat(le16(3), []byte{1, 2, 3}))
	require.Equal(t, Blob([]byte{1, 2, 3}), v)

	// text column: charset turns it into a string
	text := Column{Type: TypeBlob, Meta: 2, Charset: 45}
	require.Equal(t, "hey", decodeOne(t, text, cat(le16(3), []byte("hey"))))

	// all four prefix widths frame correctly
	for width := 1; width <= 4; width++ {
		prefix := make([]byte, width)
		prefix[0] = 1
		col := Column{Type: TypeBlob, Meta: uint16(width)}
		require.Equal(t, Blob([]byte{0xaa}), decodeOne(t, col, cat(prefix, []byte{0xaa})), "width=%d", width)
	}
}

func TestDecodeValue_Year(t *testing.T) {
	col := Column{Type: TypeYear}
	require.Equal(t, uint16(2020), decodeOne(t, col, []byte{120}))
	require.Equal(t, uint16(1901), decodeOne(t, col, []byte{1}))
	require.Equal(t, uint16(0), decodeOne(t, col, []byte{0}))
}

func TestDecodeValue_Date(t *testing.T) {
	col := Column{Type: TypeDate}
	// 2020-07-31: 2020<<9 | 7<<5 | 31
	v := uint32(2020)<<9 | 7<<5 | 31
	require.Equal(t, Date{Year: 2020, Month: 7, Day: 31},
		decodeOne(t, col, []byte{byte(v), byte(v >> 8), byte(v >> 16)}))
	require.Equal(t, Date{}, decodeOne(t, col, []byte{0, 0, 0}))
}

func TestDecodeValue_TimeV1(t *testing.T) {
	col := Column{Type: TypeTime}
	// 838:59:58 stored as 8385958
	v := uint32(8385958)
	require.Equal(t, Time{Hour: 838, Min: 59, Sec: 58},
		decodeOne(t, col, []byte{byte(v), byte(v >> 8), byte(v >> 16)}))
}

func TestDecodeValue_TimeV1Negative(t *testing.T) {
	col := Column{Type: TypeTime}
	v := int32(-10000) // -1:00:00
	r := newFrameReader([]byte{byte(v), byte(v >> 8), byte(v >> 16)})
	_, err := col.decodeValue(r)
	require.True(t, ErrMalformedValue.Is(err))
}

// buildTime2 packs the big-endian 3-byte TIME2 base image.
func buildTime2(neg bool, hour, min, sec int) []byte {
	v := uint32(1)<<23 | uint32(hour)<<12 | uint32(min)<<6 | uint32(sec)
	if neg {
		v = ^v & (1<<24 - 1)
		// two's complement without fraction bytes
		v++
	}
	return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
}

func TestDecodeValue_Time2(t *testing.T) {
	col := Column{Type: TypeTime2, Meta: 0}
	require.Equal(t, Time{Hour: 12, Min: 34, Sec: 56},
		decodeOne(t, col, buildTime2(false, 12, 34, 56)))
}

func TestDecodeValue_Time2Fractional(t *testing.T) {
	// fsp=3 => 2 fraction bytes, value 123400 us = 1234 stored
	col := Column{Type: TypeTime2, Meta: 3}
	buf := cat(buildTime2(false, 1, 2, 3), []byte{0x04, 0xd2}) // 1234 BE
	v := decodeOne(t, col, buf).(Time)
	require.Equal(t, uint16(123), v.Millis)
	require.Equal(t, int16(1), v.Hour)
}

func TestDecodeValue_Time2Negative(t *testing.T) {
	col := Column{Type: TypeTime2, Meta: 0}
	v := decodeOne(t, col, buildTime2(true, 1, 2, 3)).(Time)
	require.True(t, v.Negative)
	require.Equal(t, int16(1), v.Hour)
	require.Equal(t, uint8(2), v.Min)
	require.Equal(t, uint8(3), v.Sec)
	require.Equal(t, "-01:02:03", v.String())
}

func TestDecodeValue_TimestampV1(t *testing.T) {
	col := Column{Type: TypeTimestamp}
	require.Equal(t, Timestamp(1596175634000), decodeOne(t, col, le32(1596175634)))
}

func TestDecodeValue_Timestamp2(t *testing.T) {
	col := Column{Type: TypeTimestamp2, Meta: 0}
	sec := uint32(1596175634)
	buf := []byte{byte(sec >> 24), byte(sec >> 16), byte(sec >> 8), byte(sec)}
	require.Equal(t, Timestamp(1596175634000), decodeOne(t, col, buf))

	// fsp=6 => 3 fraction bytes, microseconds truncated to millis
	col6 := Column{Type: TypeTimestamp2, Meta: 6}
	us := uint32(123456)
	buf = cat(buf[:4], []byte{byte(us >> 16), byte(us >> 8), byte(us)})
	require.Equal(t, Timestamp(1596175634123), decodeOne(t, col6, buf))
}

func TestDecodeValue_DateTimeV1(t *testing.T) {
	col := Column{Type: TypeDateTime}
	require.Equal(t,
		DateTime{Year: 2020, Month: 7, Day: 31, Hour: 6, Min: 47, Sec: 14},
		decodeOne(t, col, le64(20200731064714)))
}

func TestDecodeValue_DateTime2(t *testing.T) {
	col := Column{Type: TypeDateTime2, Meta: 0}
	// sign(1) | yearMonth(17) | day(5) | hour(5) | min(6) | sec(6)
	ym := uint64(2020*13 + 7)
	v := uint64(1)<<39 | ym<<22 | 31<<17 | 6<<12 | 47<<6 | 14
	buf := []byte{byte(v >> 32), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	require.Equal(t,
		DateTime{Year: 2020, Month: 7, Day: 31, Hour: 6, Min: 47, Sec: 14},
		decodeOne(t, col, buf))
}

func TestDecodeValue_Truncation(t *testing.T) {
	for _, col := range []Column{
		{Type: TypeLong},
		{Type: TypeDouble, Meta: 8},
		{Type: TypeVarchar, Meta: 160},
		{Type: TypeDateTime2, Meta: 0},
		{Type: TypeNewDecimal, Meta: 10 | 4<<8},
	} {
		r := newFrameReader([]byte{0x01})
		_, err := col.decodeValue(r)
		require.Error(t, err, "type %s", col.Type)
		require.True(t, ErrUnexpectedEOF.Is(err), "type %s: %v", col.Type, err)
	}
}

func TestDecodeValue_DecimalMetadata(t *testing.T) {
	// metadata packs (precision, scale) low/high
	col := Column{Type: TypeNewDecimal, Meta: 10 | 4<<8}
	require.Equal(t, Decimal("3.0000"), decodeOne(t, col, decimal3_0000))
}

func TestDecodeValue_Geometry(t *testing.T) {
	wkb := cat(le32(0), []byte{1}, le32(wkbPoint),
		le64(math.Float64bits(1.5)), le64(math.Float64bits(-2.5)))
	col := Column{Type: TypeGeometry, Meta: 1}
	v := decodeOne(t, col, cat([]byte{byte(len(wkb))}, wkb)).(Geometry)
	require.Equal(t, Point{X: 1.5, Y: -2.5}, v.Shape)
	require.Equal(t, wkb, v.Raw)
}

func TestDecodeValue_GeometryUnparseableKeepsRaw(t *testing.T) {
	junk := []byte{9, 9, 9, 9, 9}
	col := Column{Type: TypeGeometry, Meta: 1}
	v := decodeOne(t, col, cat([]byte{byte(len(junk))}, junk)).(Geometry)
	require.Nil(t, v.Shape)
	require.Equal(t, junk, v.Raw)
}

func TestDecodeValue_JSON(t *testing.T) {
	// {"a": 7} as a small object
	doc := cat(
		[]byte{jsonSmallObj},
		le16(1), le16(13), // count, size
		le16(11), le16(1), // key offset, key length
		[]byte{jsonInt16}, le16(7),
		[]byte("a"),
	)
	col := Column{Type: TypeJSON, Meta: 1}
	v := decodeOne(t, col, cat([]byte{byte(len(doc))}, doc)).(JSON)
	require.Equal(t, map[string]interface{}{"a": int16(7)}, v.Val)
	require.Equal(t, doc, v.Raw)
}
