package binlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeCharsetString(t *testing.T) {
	tests := []struct {
		name    string
		charset uint64
		data    []byte
		want    string
	}{
		{"utf8", 45, []byte("héllo"), "héllo"},
		{"utf8 lossy", 45, []byte{0xff, 'a'}, "�a"},
		{"latin1 direct mapping", 8, []byte{'c', 'a', 'f', 0xe9}, "café"},
		{"latin1 high band", 8, []byte{0xfc}, "ü"},
		{"ascii clean", 11, []byte("plain"), "plain"},
		{"ascii rejects high bytes", 11, []byte{'a', 0x80}, "a�"},
		{"cp1252 euro", 26, []byte{0x80}, "€"},
		{"cp1252 low half is latin", 26, []byte{'o', 'k'}, "ok"},
		{"cp1252 oe ligature", 26, []byte{0x9c}, "œ"},
		{"binary is hex", 63, []byte{0xde, 0xad}, "dead"},
		{"unknown falls back to utf8", 9999, []byte("x"), "x"},
		{"gbk lossy fallback", 28, []byte("abc"), "abc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, decodeCharsetString(tc.data, tc.charset))
		})
	}
}

func TestIsBinaryCharset(t *testing.T) {
	require.True(t, isBinaryCharset(63))
	require.False(t, isBinaryCharset(45))
}
