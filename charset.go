package binlog

import (
	"encoding/hex"
	"strings"

	"github.com/sirupsen/logrus"
)

// charsetEncoding identifies the byte-level encoding behind a MySQL
// collation id.
type charsetEncoding int

const (
	encUTF8 charsetEncoding = iota
	encLatin1
	encASCII
	encCP1252
	encBinary
	encGBK
	encBig5
	encSJIS
	encEUCKR
)

// collationEncodings maps the collation ids a binlog actually carries
// to their byte encoding. Ids not listed fall back to lossy UTF-8.
var collationEncodings = map[uint64]charsetEncoding{
	1:   encBig5,
	84:  encBig5,
	5:   encLatin1,
	8:   encLatin1,
	15:  encLatin1,
	31:  encLatin1,
	47:  encLatin1,
	48:  encLatin1,
	49:  encLatin1,
	94:  encLatin1,
	11:  encASCII,
	65:  encASCII,
	13:  encSJIS,
	88:  encSJIS,
	19:  encEUCKR,
	85:  encEUCKR,
	26:  encCP1252,
	28:  encGBK,
	87:  encGBK,
	33:  encUTF8,
	83:  encUTF8,
	45:  encUTF8,
	46:  encUTF8,
	63:  encBinary,
	76:  encUTF8,
	224: encUTF8,
	246: encUTF8,
	255: encUTF8,
}

// BinaryCharset is the collation id of the binary pseudo-charset.
const BinaryCharset = 63

// cp1252Overrides maps the 0x80-0x9F band per the Windows-1252 table.
// Unmapped slots (0x81, 0x8D, 0x8F, 0x90, 0x9D) pass through as the
// corresponding C1 control.
var cp1252Overrides = map[byte]rune{
	0x80: '€', 0x82: '‚', 0x83: 'ƒ', 0x84: '„',
	0x85: '…', 0x86: '†', 0x87: '‡', 0x88: 'ˆ',
	0x89: '‰', 0x8A: 'Š', 0x8B: '‹', 0x8C: 'Œ',
	0x8E: 'Ž', 0x91: '‘', 0x92: '’', 0x93: '“',
	0x94: '”', 0x95: '•', 0x96: '–', 0x97: '—',
	0x98: '˜', 0x99: '™', 0x9A: 'š', 0x9B: '›',
	0x9C: 'œ', 0x9E: 'ž', 0x9F: 'Ÿ',
}

// decodeCharsetString converts raw column bytes under the given
// collation id. DBCS encodings (gbk, big5, sjis, euckr) decode as lossy
// UTF-8 with a warning; callers still get a usable value rather than an
// UnsupportedEncoding failure.
func decodeCharsetString(data []byte, charset uint64) string {
	enc, known := collationEncodings[charset]
	if !known {
		enc = encUTF8
	}
	switch enc {
	case encUTF8:
		return decodeUTF8Lossy(data)
	case encLatin1:
		// direct byte-to-codepoint mapping
		var sb strings.Builder
		sb.Grow(len(data))
		for _, b := range data {
			sb.WriteRune(rune(b))
		}
		return sb.String()
	case encASCII:
		var sb strings.Builder
		sb.Grow(len(data))
		for _, b := range data {
			if b >= 0x80 {
				sb.WriteRune('�')
			} else {
				sb.WriteByte(b)
			}
		}
		return sb.String()
	case encCP1252:
		var sb strings.Builder
		sb.Grow(len(data))
		for _, b := range data {
			if ru, ok := cp1252Overrides[b]; ok {
				sb.WriteRune(ru)
			} else {
				sb.WriteRune(rune(b))
			}
		}
		return sb.String()
	case encBinary:
		return hex.EncodeToString(data)
	default:
		// gbk/big5/sjis/euckr: full table mapping not carried; lossy
		// UTF-8 is the documented minimum behavior
		logrus.WithFields(logrus.Fields{
			"charset": charset,
		}).Warn("no table for DBCS charset, decoding as lossy utf-8")
		return decodeUTF8Lossy(data)
	}
}

// isBinaryCharset reports whether the collation means "raw bytes".
func isBinaryCharset(charset uint64) bool {
	return charset == BinaryCharset
}
