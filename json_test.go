package binlog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func jsonDecode(t *testing.T, doc []byte) interface{} {
	t.Helper()
	v, err := new(jsonDecoder).decodeValue(doc)
	require.NoError(t, err)
	return v
}

func TestJSON_Scalars(t *testing.T) {
	require.Equal(t, int16(-7), jsonDecode(t, cat([]byte{jsonInt16}, le16(0xfff9))))
	require.Equal(t, uint16(7), jsonDecode(t, cat([]byte{jsonUInt16}, le16(7))))
	require.Equal(t, int32(-1), jsonDecode(t, cat([]byte{jsonInt32}, le32(0xffffffff))))
	require.Equal(t, uint32(9), jsonDecode(t, cat([]byte{jsonUInt32}, le32(9))))
	require.Equal(t, int64(5), jsonDecode(t, cat([]byte{jsonInt64}, le64(5))))
	require.Equal(t, uint64(5), jsonDecode(t, cat([]byte{jsonUInt64}, le64(5))))
	require.Equal(t, 2.5, jsonDecode(t, cat([]byte{jsonDouble}, le64(math.Float64bits(2.5)))))
}

func TestJSON_Literals(t *testing.T) {
	require.Nil(t, jsonDecode(t, []byte{jsonLiteral, 0x00}))
	require.Equal(t, true, jsonDecode(t, []byte{jsonLiteral, 0x01}))
	require.Equal(t, false, jsonDecode(t, []byte{jsonLiteral, 0x02}))

	_, err := new(jsonDecoder).decodeValue([]byte{jsonLiteral, 0x07})
	require.Error(t, err)
}

func TestJSON_String(t *testing.T) {
	require.Equal(t, "hi", jsonDecode(t, cat([]byte{jsonString, 2}, []byte("hi"))))

	// two-byte varint length: 0x80 continuation
	long := make([]byte, 130)
	for i := range long {
		long[i] = 'x'
	}
	doc := cat([]byte{jsonString, 0x82, 0x01}, long)
	require.Equal(t, string(long), jsonDecode(t, doc))
}

func TestJSON_SmallArray(t *testing.T) {
	// [true, 300]: literal inline, uint16 inline
	doc := cat(
		[]byte{jsonSmallArr},
		le16(2), le16(12),
		[]byte{jsonLiteral}, le16(1),
		[]byte{jsonUInt16}, le16(300),
	)
	require.Equal(t, []interface{}{true, uint16(300)}, jsonDecode(t, doc))
}

func TestJSON_ObjectOffsetValue(t *testing.T) {
	// {"k": "v"}: string value referenced by offset
	doc := cat(
		[]byte{jsonSmallObj},
		le16(1), le16(16),
		le16(11), le16(1), // key offset/length
		[]byte{jsonString}, le16(12), // value type + offset
		[]byte("k"),
		[]byte{1}, []byte("v"),
	)
	require.Equal(t, map[string]interface{}{"k": "v"}, jsonDecode(t, doc))
}

func TestJSON_CustomDecimal(t *testing.T) {
	payload := cat([]byte{10, 4}, decimal3_0000)
	doc := cat([]byte{jsonCustom, byte(TypeNewDecimal), byte(len(payload))}, payload)
	require.Equal(t, Decimal("3.0000"), jsonDecode(t, doc))
}

func TestJSON_EmptyDocumentIsNull(t *testing.T) {
	require.Nil(t, jsonDecode(t, nil))
}

func TestJSON_Truncated(t *testing.T) {
	for _, doc := range [][]byte{
		{jsonInt16, 0x01},
		{jsonString, 5, 'a'},
		{jsonSmallObj, 1},
	} {
		_, err := new(jsonDecoder).decodeValue(doc)
		require.Error(t, err)
	}
}
