package binlog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// EventTypeStats are the per-event-type counters of one stream.
type EventTypeStats struct {
	Count          uint64
	TotalBytes     uint64
	TotalParseTime time.Duration
	MinParseTime   time.Duration
	MaxParseTime   time.Duration
	ErrorCount     uint64
	FirstSeen      time.Time
	LastSeen       time.Time
}

// SuccessRate is successful decodes over all attempts, 0..1.
func (s *EventTypeStats) SuccessRate() float64 {
	total := s.Count + s.ErrorCount
	if total == 0 {
		return 1
	}
	return float64(s.Count) / float64(total)
}

// EventsPerSecond is the observed rate between first and last event.
func (s *EventTypeStats) EventsPerSecond() float64 {
	d := s.LastSeen.Sub(s.FirstSeen)
	if d <= 0 {
		return 0
	}
	return float64(s.Count) / d.Seconds()
}

// BytesPerSecond is the observed byte rate.
func (s *EventTypeStats) BytesPerSecond() float64 {
	d := s.LastSeen.Sub(s.FirstSeen)
	if d <= 0 {
		return 0
	}
	return float64(s.TotalBytes) / d.Seconds()
}

// AverageParseTime is the mean decode latency.
func (s *EventTypeStats) AverageParseTime() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalParseTime / time.Duration(s.Count)
}

// StatsCollector aggregates decode statistics. Multiple writers are
// permitted; one mutex keeps each update atomic.
type StatsCollector struct {
	mu        sync.Mutex
	enabled   bool
	started   time.Time
	perType   map[EventType]*EventTypeStats
	rowsStats *RowMonitor
}

func newStatsCollector(enabled bool) *StatsCollector {
	return &StatsCollector{
		enabled:   enabled,
		started:   time.Now(),
		perType:   make(map[EventType]*EventTypeStats),
		rowsStats: newRowMonitor(),
	}
}

func (c *StatsCollector) recordSuccess(typ EventType, bytes uint64, parseTime time.Duration) {
	if !c.enabled {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.statsLocked(typ)
	if s.Count == 0 || parseTime < s.MinParseTime {
		s.MinParseTime = parseTime
	}
	if parseTime > s.MaxParseTime {
		s.MaxParseTime = parseTime
	}
	if s.FirstSeen.IsZero() {
		s.FirstSeen = now
	}
	s.LastSeen = now
	s.Count++
	s.TotalBytes += bytes
	s.TotalParseTime += parseTime
}

func (c *StatsCollector) recordError(typ EventType) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statsLocked(typ).ErrorCount++
}

func (c *StatsCollector) statsLocked(typ EventType) *EventTypeStats {
	s, ok := c.perType[typ]
	if !ok {
		s = &EventTypeStats{}
		c.perType[typ] = s
	}
	return s
}

// EventTypeStats returns a copy of the counters for one event type.
func (c *StatsCollector) EventTypeStats(typ EventType) (EventTypeStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.perType[typ]
	if !ok {
		return EventTypeStats{}, false
	}
	return *s, true
}

// Totals sums counters across event types.
func (c *StatsCollector) Totals() EventTypeStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	var t EventTypeStats
	for _, s := range c.perType {
		if s.Count > 0 && (t.Count == 0 || s.MinParseTime < t.MinParseTime) {
			t.MinParseTime = s.MinParseTime
		}
		if s.MaxParseTime > t.MaxParseTime {
			t.MaxParseTime = s.MaxParseTime
		}
		if t.FirstSeen.IsZero() || (!s.FirstSeen.IsZero() && s.FirstSeen.Before(t.FirstSeen)) {
			t.FirstSeen = s.FirstSeen
		}
		if s.LastSeen.After(t.LastSeen) {
			t.LastSeen = s.LastSeen
		}
		t.Count += s.Count
		t.TotalBytes += s.TotalBytes
		t.TotalParseTime += s.TotalParseTime
		t.ErrorCount += s.ErrorCount
	}
	return t
}

// TopEventTypes returns the n most frequent event types, descending.
func (c *StatsCollector) TopEventTypes(n int) []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]EventType, 0, len(c.perType))
	for t := range c.perType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return c.perType[types[i]].Count > c.perType[types[j]].Count
	})
	if len(types) > n {
		types = types[:n]
	}
	return types
}

// Distribution returns each event type's share of the total count.
func (c *StatsCollector) Distribution() map[EventType]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total uint64
	for _, s := range c.perType {
		total += s.Count
	}
	dist := make(map[EventType]float64, len(c.perType))
	if total == 0 {
		return dist
	}
	for t, s := range c.perType {
		dist[t] = float64(s.Count) / float64(total)
	}
	return dist
}

// Rows exposes the sampled per-row monitor.
func (c *StatsCollector) Rows() *RowMonitor { return c.rowsStats }

// Summary renders a human-readable report of the stream so far.
func (c *StatsCollector) Summary() string {
	t := c.Totals()
	top := c.TopEventTypes(5)

	var sb strings.Builder
	fmt.Fprintf(&sb, "events: %s (%s errors), bytes: %s\n",
		humanize.Comma(int64(t.Count)), humanize.Comma(int64(t.ErrorCount)), humanize.Bytes(t.TotalBytes))
	if d := t.LastSeen.Sub(t.FirstSeen); d > 0 {
		fmt.Fprintf(&sb, "rate: %.1f events/s, %s/s\n",
			float64(t.Count)/d.Seconds(), humanize.Bytes(uint64(float64(t.TotalBytes)/d.Seconds())))
	}
	fmt.Fprintf(&sb, "parse time: avg %v, min %v, max %v\n",
		t.AverageParseTime(), t.MinParseTime, t.MaxParseTime)
	if len(top) > 0 {
		sb.WriteString("top event types:\n")
		c.mu.Lock()
		for _, typ := range top {
			s := c.perType[typ]
			fmt.Fprintf(&sb, "  %-20s %s\n", typ, humanize.Comma(int64(s.Count)))
		}
		c.mu.Unlock()
	}
	return sb.String()
}

// Reset drops all counters.
func (c *StatsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perType = make(map[EventType]*EventTypeStats)
	c.rowsStats = newRowMonitor()
	c.started = time.Now()
}

// rowSampleEvery is the sampling interval of the row monitor: every
// nth row event is measured in full.
const rowSampleEvery = 16

// RowMonitor samples decoded row events for shape distributions. All
// histograms are bucketed coarsely; the monitor informs capacity
// planning, not billing.
type RowMonitor struct {
	mu      sync.Mutex
	seen    uint64
	sampled uint64

	RowSizeBuckets   [6]uint64 // <64, <256, <1K, <16K, <256K, rest (bytes of cells)
	NullDensity      [5]uint64 // 0-20%, .., 80-100%
	LobSizeBuckets   [4]uint64 // <1K, <64K, <1M, rest
	ChangePctBuckets [5]uint64 // 0-20%, .., 80-100% (updates only)
	ColumnTypes      map[ColumnType]uint64
}

func newRowMonitor() *RowMonitor {
	return &RowMonitor{ColumnTypes: make(map[ColumnType]uint64)}
}

// observe samples one rows event.
func (m *RowMonitor) observe(e *RowsEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen++
	if m.seen%rowSampleEvery != 1 {
		return
	}
	m.sampled++

	rows := append([]*RowData(nil), e.Rows...)
	for _, u := range e.Updates {
		rows = append(rows, u.After)
		diff := u.Difference()
		m.ChangePctBuckets[pctBucket(diff.ChangePercentage())]++
	}
	for _, row := range rows {
		var nulls, present int
		var size int
		for i, cell := range row.Cells {
			if _, missing := cell.(MissingValue); missing {
				continue
			}
			present++
			if i < len(e.Columns()) {
				m.ColumnTypes[e.Columns()[i].Type]++
			}
			if cell == nil {
				nulls++
				continue
			}
			switch v := cell.(type) {
			case Blob:
				size += len(v)
				m.LobSizeBuckets[lobBucket(len(v))]++
			case JSON:
				size += len(v.Raw)
				m.LobSizeBuckets[lobBucket(len(v.Raw))]++
			case Geometry:
				size += len(v.Raw)
				m.LobSizeBuckets[lobBucket(len(v.Raw))]++
			case string:
				size += len(v)
			default:
				size += 8
			}
		}
		m.RowSizeBuckets[rowSizeBucket(size)]++
		if present > 0 {
			m.NullDensity[pctBucket(float64(nulls)/float64(present)*100)]++
		}
	}
}

// Sampled returns how many row events were fully measured.
func (m *RowMonitor) Sampled() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampled
}

func rowSizeBucket(size int) int {
	switch {
	case size < 64:
		return 0
	case size < 256:
		return 1
	case size < 1<<10:
		return 2
	case size < 16<<10:
		return 3
	case size < 256<<10:
		return 4
	default:
		return 5
	}
}

func lobBucket(size int) int {
	switch {
	case size < 1<<10:
		return 0
	case size < 64<<10:
		return 1
	case size < 1<<20:
		return 2
	default:
		return 3
	}
}

func pctBucket(pct float64) int {
	b := int(pct / 20)
	if b > 4 {
		b = 4
	}
	if b < 0 {
		b = 0
	}
	return b
}
