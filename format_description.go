package binlog

import (
	"strconv"
	"strings"
)

// FormatDescriptionEvent is written to the beginning of each binary log
// file. It supersedes START_EVENT_V3 as of MySQL 5.0 and declares how
// the remaining events of the file are framed.
//
// https://dev.mysql.com/doc/internals/en/format-description-event.html
type FormatDescriptionEvent struct {
	BinlogVersion          uint16 // version of this binlog format
	ServerVersion          string // version of the MySQL server that created the binlog
	CreateTimestamp        uint32 // seconds since unix epoch when the binlog was created
	EventHeaderLength      uint8  // length of the common header of next events
	EventTypeHeaderLengths []byte // post-header lengths for different event-types
	ChecksumAlgorithm      ChecksumAlgorithm
}

// decode consumes the FDE body, which the driver hands over whole: the
// trailing five bytes are the checksum-algorithm byte plus the event's
// own CRC32, present on servers >= 5.6.1 only. Before that version no
// algorithm byte exists and the policy is none.
func (e *FormatDescriptionEvent) decode(r *reader) error {
	e.BinlogVersion = r.int2()
	e.ServerVersion = trimZeroPadded(r.string(50))
	e.CreateTimestamp = r.int4()
	e.EventHeaderLength = r.int1()
	if r.err != nil {
		return r.err
	}
	rest := r.bytesEOF()

	e.ChecksumAlgorithm = ChecksumNone
	if sv, err := newServerVersion(e.ServerVersion); err == nil && !sv.lt(serverVersion{5, 6, 1}) {
		if len(rest) < 5 {
			return ErrUnexpectedEOF.New()
		}
		e.ChecksumAlgorithm = ChecksumAlgorithm(rest[len(rest)-5])
		rest = rest[:len(rest)-5]
	}
	e.EventTypeHeaderLengths = rest
	return r.err
}

// postHeaderLength returns the post-header length for the given event
// type, or def when the table does not cover it.
func (e *FormatDescriptionEvent) postHeaderLength(typ EventType, def int) int {
	if e == nil {
		return def
	}
	if int(typ) >= 1 && len(e.EventTypeHeaderLengths) >= int(typ) {
		return int(e.EventTypeHeaderLengths[typ-1])
	}
	return def
}

func trimZeroPadded(s string) string {
	if i := strings.IndexByte(s, 0); i != -1 {
		return s[:i]
	}
	return s
}

// serverVersion is the dotted numeric prefix of a server version string.
type serverVersion []int

func newServerVersion(s string) (serverVersion, error) {
	if i := strings.IndexByte(s, '-'); i != -1 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '+'); i != -1 {
		s = s[:i]
	}
	var sv serverVersion
	for _, v := range strings.Split(s, ".") {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		sv = append(sv, n)
	}
	if len(sv) != 3 {
		return nil, ErrMalformedValue.New("serverVersion", s)
	}
	return sv, nil
}

func (sv serverVersion) lt(v serverVersion) bool {
	for i := range sv {
		if sv[i] < v[i] {
			return true
		}
		if sv[i] == v[i] {
			continue
		}
		return false
	}
	return false
}
