package binlog

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Missing marks a cell whose column is absent from the row image
// (columns-present bit cleared). NULL cells are plain nil.
type MissingValue struct{}

// Missing is the singleton MissingValue cell marker.
var Missing = MissingValue{}

func (MissingValue) String() string { return "<missing>" }

// A Decimal represents a MySQL DECIMAL/NUMERIC literal in its exact
// textual form: the declared scale is preserved, negatives carry a
// leading minus.
//
// https://dev.mysql.com/doc/refman/8.0/en/fixed-point-types.html
type Decimal string

func (d Decimal) String() string { return string(d) }

// Float64 returns the number as a float64.
func (d Decimal) Float64() (float64, error) {
	return strconv.ParseFloat(string(d), 64)
}

// BigFloat returns the number as a *big.Float.
func (d Decimal) BigFloat() (*big.Float, error) {
	f, _, err := new(big.Float).Parse(string(d), 0)
	return f, err
}

// Big returns the number as an arbitrary-precision decimal.
func (d Decimal) Big() (decimal.Decimal, error) {
	return decimal.NewFromString(string(d))
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d), nil
}

// Enum represents a value of TypeEnum.
//
// https://dev.mysql.com/doc/refman/8.0/en/enum.html
type Enum struct {
	// index into the list of permitted values, starting at 1.
	// 0 means the empty-string invalid value.
	Val uint32

	// permitted values; populated only when binlog_row_metadata==FULL.
	Values []string
}

func (e Enum) String() string {
	if len(e.Values) > 0 {
		if e.Val == 0 {
			return ""
		}
		return e.Values[e.Val-1]
	}
	return strconv.FormatUint(uint64(e.Val), 10)
}

func (e Enum) MarshalJSON() ([]byte, error) {
	if len(e.Values) > 0 {
		return []byte(strconv.Quote(e.String())), nil
	}
	return []byte(e.String()), nil
}

// Set represents a value of TypeSet.
//
// https://dev.mysql.com/doc/refman/8.0/en/set.html
type Set struct {
	// bitmask with bits set for the members that make up the value.
	Val uint64

	// permitted values; populated only when binlog_row_metadata==FULL.
	Values []string
}

// Members returns the values present in this set.
func (s Set) Members() []string {
	var m []string
	for i, val := range s.Values {
		if s.Val&(1<<uint(i)) != 0 {
			m = append(m, val)
		}
	}
	return m
}

func (s Set) String() string {
	if len(s.Values) > 0 {
		if s.Val == 0 {
			return ""
		}
		return strings.Join(s.Members(), ",")
	}
	return strconv.FormatUint(s.Val, 10)
}

func (s Set) MarshalJSON() ([]byte, error) {
	if len(s.Values) > 0 {
		var buf bytes.Buffer
		err := json.NewEncoder(&buf).Encode(s.Members())
		return bytes.TrimRight(buf.Bytes(), "\n"), err
	}
	return []byte(s.String()), nil
}

// Bit represents a value of TypeBit: Len bits, bit 0 being the least
// significant bit of the big-endian wire image.
type Bit struct {
	Bytes []byte // big-endian
	Len   int    // declared number of bits
}

// Bit reports bit i, counting from the least significant.
func (b Bit) Bit(i int) bool {
	idx := len(b.Bytes) - 1 - i/8
	if idx < 0 {
		return false
	}
	return b.Bytes[idx]&(1<<uint(i%8)) != 0
}

// Uint64 returns the numeric value; valid for Len <= 64.
func (b Bit) Uint64() uint64 {
	return bigEndian(b.Bytes)
}

func (b Bit) String() string {
	var sb strings.Builder
	for i := b.Len - 1; i >= 0; i-- {
		if b.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Date represents a DATE value. The zero value is the invalid
// 0000-00-00 date MySQL stores for zero dates.
type Date struct {
	Year  uint16
	Month uint8
	Day   uint8
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time represents a TIME value: an interval, not a time of day.
// Hours range up to 838; Negative carries the sign.
type Time struct {
	Negative bool
	Hour     int16
	Min      uint8
	Sec      uint8
	Millis   uint16
}

func (t Time) String() string {
	sign := ""
	if t.Negative {
		sign = "-"
	}
	if t.Millis > 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, t.Hour, t.Min, t.Sec, t.Millis)
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, t.Hour, t.Min, t.Sec)
}

// DateTime represents a DATETIME value (no timezone).
type DateTime struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Min    uint8
	Sec    uint8
	Millis uint16
}

func (d DateTime) String() string {
	s := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Min, d.Sec)
	if d.Millis > 0 {
		s += fmt.Sprintf(".%03d", d.Millis)
	}
	return s
}

// Timestamp represents a TIMESTAMP value as milliseconds since the
// unix epoch.
type Timestamp uint64

func (t Timestamp) Millis() uint64 { return uint64(t) }

// JSON represents a value of TypeJSON: the raw binary image plus the
// structural value decoded from it, when decodable.
//
// https://dev.mysql.com/doc/refman/8.0/en/json.html
type JSON struct {
	Raw []byte
	Val interface{}
}

func (j JSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	err := json.NewEncoder(&buf).Encode(j.Val)
	return bytes.TrimRight(buf.Bytes(), "\n"), err
}

// Blob represents a value of the *BLOB/*TEXT family. Text columns
// (charset known and not binary) decode to Text instead.
type Blob []byte

func (b Blob) String() string {
	return hex.EncodeToString(b)
}
