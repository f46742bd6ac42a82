package binlog

import (
	"encoding/binary"
	"hash/crc32"
)

// test fixture builders: wire images are assembled by hand so the
// tests stay independent of any encoder the package might grow.

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func le48(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b[:6]
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// buildEvent frames a complete event: 19-byte header, body, and a
// CRC32 trailer when withChecksum is set.
func buildEvent(typ EventType, body []byte, withChecksum bool, flags uint16) []byte {
	size := eventHeaderSize + len(body)
	if withChecksum {
		size += 4
	}
	header := cat(
		le32(1596175634),   // timestamp
		[]byte{byte(typ)},  // event type
		le32(1),            // server id
		le32(uint32(size)), // event size
		le32(0),            // next position (tests set it when needed)
		le16(flags),        // flags
	)
	ev := cat(header, body)
	if withChecksum {
		ev = append(ev, le32(crc32.ChecksumIEEE(ev))...)
	}
	return ev
}

// buildEventAt is buildEvent with an explicit next-position field.
func buildEventAt(typ EventType, body []byte, withChecksum bool, nextPos uint32) []byte {
	ev := buildEvent(typ, body, withChecksum, 0)
	binary.LittleEndian.PutUint32(ev[13:], nextPos)
	if withChecksum {
		binary.LittleEndian.PutUint32(ev[len(ev)-4:], crc32.ChecksumIEEE(ev[:len(ev)-4]))
	}
	return ev
}

// buildFDE assembles a format description event for the given server
// version. For >= 5.6.1 servers the body ends with the checksum
// algorithm byte and the event carries a CRC32 trailer.
func buildFDE(server string, alg ChecksumAlgorithm) []byte {
	sv := make([]byte, 50)
	copy(sv, server)
	postHeaderLens := make([]byte, 40)
	for i := range postHeaderLens {
		postHeaderLens[i] = 0
	}
	postHeaderLens[ROTATE_EVENT-1] = 8
	postHeaderLens[FORMAT_DESCRIPTION_EVENT-1] = 95
	postHeaderLens[TABLE_MAP_EVENT-1] = 8
	postHeaderLens[WRITE_ROWS_EVENTv1-1] = 8
	postHeaderLens[UPDATE_ROWS_EVENTv1-1] = 8
	postHeaderLens[DELETE_ROWS_EVENTv1-1] = 8
	postHeaderLens[WRITE_ROWS_EVENTv2-1] = 10
	postHeaderLens[UPDATE_ROWS_EVENTv2-1] = 10
	postHeaderLens[DELETE_ROWS_EVENTv2-1] = 10
	body := cat(
		le16(4), // binlog version
		sv,
		le32(1596175634), // create timestamp
		[]byte{19},       // common header length
		postHeaderLens,
		[]byte{byte(alg)},
	)
	return buildEvent(FORMAT_DESCRIPTION_EVENT, body, true, 0)
}

// buildTableMap assembles a table-map body for the given column types
// and per-column raw metadata, all columns nullable per nullBits.
func buildTableMap(tableID uint64, schema, table string, types []ColumnType, metas [][]byte, nullBits []byte, extra []byte) []byte {
	body := cat(
		le48(tableID),
		le16(1), // flags
		[]byte{byte(len(schema))}, []byte(schema), []byte{0},
		[]byte{byte(len(table))}, []byte(table), []byte{0},
		[]byte{byte(len(types))},
	)
	for _, t := range types {
		body = append(body, byte(t))
	}
	var metaBlob []byte
	for _, m := range metas {
		metaBlob = append(metaBlob, m...)
	}
	body = append(body, byte(len(metaBlob)))
	body = append(body, metaBlob...)
	body = append(body, nullBits...)
	body = append(body, extra...)
	return body
}

// decimal 3.0000 and 4.0000 at precision 10, scale 4
var (
	decimal3_0000 = []byte{0x80, 0x00, 0x03, 0x00, 0x00}
	decimal4_0000 = []byte{0x80, 0x00, 0x04, 0x00, 0x00}
)

func feedAll(d *Decoder, events ...[]byte) {
	d.Feed(cat(events...))
}
