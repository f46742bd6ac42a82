package binlog

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MySQL packed decimal: nine decimal digits per four bytes, with a
// compressed partial group on each side of the point. The sign lives in
// the high bit of the first byte, inverted for positive numbers.
//
// https://dev.mysql.com/doc/internals/en/binary-protocol-value.html

const digitsPerInteger = 9

var compressedBytes = []int{0, 1, 1, 2, 2, 3, 3, 4, 4, 4}

func decimalSize(precision, scale int) int {
	integral := precision - scale
	uncompIntegral := integral / digitsPerInteger
	uncompFractional := scale / digitsPerInteger
	compIntegral := integral - uncompIntegral*digitsPerInteger
	compFractional := scale - uncompFractional*digitsPerInteger

	return uncompIntegral*4 + compressedBytes[compIntegral] +
		uncompFractional*4 + compressedBytes[compFractional]
}

func decodeDecimalDecompressValue(compIndex int, data []byte, mask uint8) (size int, value uint32) {
	size = compressedBytes[compIndex]
	buf := make([]byte, size)
	for i := 0; i < size; i++ {
		buf[i] = data[i] ^ mask
	}
	return size, uint32(bigEndian(buf))
}

// decodeDecimal produces the exact textual form: the declared scale is
// kept in full, the integral part loses leading zeros only.
func decodeDecimal(data []byte, precision, scale int) (Decimal, error) {
	integral := precision - scale
	uncompIntegral := integral / digitsPerInteger
	uncompFractional := scale / digitsPerInteger
	compIntegral := integral - uncompIntegral*digitsPerInteger
	compFractional := scale - uncompFractional*digitsPerInteger

	binSize := uncompIntegral*4 + compressedBytes[compIntegral] +
		uncompFractional*4 + compressedBytes[compFractional]
	if len(data) < binSize {
		return "", ErrUnexpectedEOF.New()
	}

	// the sign bit is cleared in place, so work on a copy
	buf := make([]byte, binSize)
	copy(buf, data[:binSize])
	data = buf

	var res bytes.Buffer
	var mask uint32
	if data[0]&0x80 == 0 {
		mask = ^uint32(0)
		res.WriteByte('-')
	}
	data[0] ^= 0x80

	pos, value := decodeDecimalDecompressValue(compIntegral, data, uint8(mask))
	fmt.Fprintf(&res, "%d", value)

	for i := 0; i < uncompIntegral; i++ {
		value = binary.BigEndian.Uint32(data[pos:]) ^ mask
		pos += 4
		fmt.Fprintf(&res, "%09d", value)
	}

	if scale > 0 {
		res.WriteByte('.')
		for i := 0; i < uncompFractional; i++ {
			value = binary.BigEndian.Uint32(data[pos:]) ^ mask
			pos += 4
			fmt.Fprintf(&res, "%09d", value)
		}
		if size, value := decodeDecimalDecompressValue(compFractional, data[pos:], uint8(mask)); size > 0 {
			fmt.Fprintf(&res, "%0*d", compFractional, value)
		}
	}

	// trim integral leading zeros: "-0003.14" => "-3.14", "000" => "0"
	s := res.String()
	neg := ""
	if s[0] == '-' {
		neg, s = "-", s[1:]
	}
	for len(s) > 1 && s[0] == '0' && s[1] != '.' {
		s = s[1:]
	}
	return Decimal(neg + s), nil
}
