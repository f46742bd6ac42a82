package binlog

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultTableMapCacheSize bounds the table-map cache. A stream that
// touches more live tables than this between row events loses maps and
// the affected row events fail with ErrNoPrecedingTableMap.
const defaultTableMapCacheSize = 1000

// LogContext is the mutable per-stream state shared by the driver and
// the event decoders. A context belongs to exactly one driver; it is
// not safe to share across drivers.
type LogContext struct {
	position uint64
	fileName string

	fde      *FormatDescriptionEvent
	checksum ChecksumAlgorithm

	tableMaps *lru.Cache[uint64, *TableMapEvent]
	evicted   map[uint64]bool

	currentGtid *GtidLogEvent
	gtids       *GtidManager

	values *ValueCache
}

func newLogContext(tableMapCapacity int) *LogContext {
	if tableMapCapacity <= 0 {
		tableMapCapacity = defaultTableMapCacheSize
	}
	ctx := &LogContext{
		checksum: checksumUndef,
		evicted:  make(map[uint64]bool),
		gtids:    NewGtidManager(),
	}
	ctx.tableMaps, _ = lru.NewWithEvict[uint64, *TableMapEvent](
		tableMapCapacity,
		func(id uint64, _ *TableMapEvent) {
			ctx.evicted[id] = true
		},
	)
	return ctx
}

// Position returns the running byte offset into the current logical
// binlog file.
func (ctx *LogContext) Position() uint64 { return ctx.position }

// File returns the current logical binlog file name.
func (ctx *LogContext) File() string { return ctx.fileName }

// FormatDescription returns the last seen format description, or nil
// before one arrived.
func (ctx *LogContext) FormatDescription() *FormatDescriptionEvent { return ctx.fde }

// ChecksumAlgorithm returns the active checksum policy.
func (ctx *LogContext) ChecksumAlgorithm() ChecksumAlgorithm {
	if ctx.checksum == checksumUndef {
		return ChecksumNone
	}
	return ctx.checksum
}

// setFormatDescription installs a new format description, replacing
// any previous one and its checksum policy.
func (ctx *LogContext) setFormatDescription(fde *FormatDescriptionEvent) {
	ctx.fde = fde
	ctx.checksum = fde.ChecksumAlgorithm
}

// rotate switches the context to a new logical file. The table-map
// cache deliberately survives rotation: a transaction may span files.
func (ctx *LogContext) rotate(file string, pos uint64) {
	ctx.fileName = file
	ctx.position = pos
}

// PutTableMap registers a table map. The map for an id is immutable
// for a transaction; re-registering the same id replaces it, which is
// how the server re-announces tables between transactions.
func (ctx *LogContext) PutTableMap(e *TableMapEvent) {
	ctx.tableMaps.Add(e.TableID, e)
	delete(ctx.evicted, e.TableID)
}

// TableMap resolves a table id against the cache.
func (ctx *LogContext) TableMap(id uint64) (*TableMapEvent, bool) {
	return ctx.tableMaps.Peek(id)
}

// WasEvicted reports whether the id was pushed out of the cache since
// it was last registered — the observable error condition behind an
// unexpected ErrNoPrecedingTableMap.
func (ctx *LogContext) WasEvicted(id uint64) bool {
	return ctx.evicted[id]
}

// ValueCache returns the decoded-column value cache, or nil when
// caching is disabled.
func (ctx *LogContext) ValueCache() *ValueCache { return ctx.values }

// CurrentGtid returns the GTID event governing the current transaction.
func (ctx *LogContext) CurrentGtid() *GtidLogEvent { return ctx.currentGtid }

// Gtids returns the cumulative GTID manager of the stream.
func (ctx *LogContext) Gtids() *GtidManager { return ctx.gtids }

func (ctx *LogContext) setGtid(e *GtidLogEvent) {
	ctx.currentGtid = e
	if !e.Anonymous {
		ctx.gtids.AddIncremental(e.GTID)
	}
}
