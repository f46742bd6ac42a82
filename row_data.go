package binlog

import "reflect"

// RowData is one decoded row image: one cell per table column. A nil
// cell is SQL NULL; a MissingValue cell was absent from the image.
type RowData struct {
	Cells []interface{}
}

// Cell returns the value at index i, reporting whether the column was
// present in the image.
func (r *RowData) Cell(i int) (v interface{}, present bool) {
	if i < 0 || i >= len(r.Cells) {
		return nil, false
	}
	if _, missing := r.Cells[i].(MissingValue); missing {
		return nil, false
	}
	return r.Cells[i], true
}

// FieldChange records one changed column of an update.
type FieldChange struct {
	ColumnIndex int
	Before      interface{}
	After       interface{}
}

// IsNullToValue reports NULL → value transitions.
func (c FieldChange) IsNullToValue() bool {
	return c.Before == nil && c.After != nil
}

// IsValueToNull reports value → NULL transitions.
func (c FieldChange) IsValueToNull() bool {
	return c.Before != nil && c.After == nil
}

// UpdateDifference is the ordered list of changed columns of one
// update, with a dense membership map for O(1) lookup.
type UpdateDifference struct {
	ChangedFields []FieldChange
	ChangeMap     []bool // indexed by column ordinal
	TotalColumns  int
	ChangedCount  int
}

func newUpdateDifference(totalColumns int) *UpdateDifference {
	return &UpdateDifference{
		ChangeMap:    make([]bool, totalColumns),
		TotalColumns: totalColumns,
	}
}

func (d *UpdateDifference) addChange(c FieldChange) {
	d.ChangedFields = append(d.ChangedFields, c)
	d.ChangeMap[c.ColumnIndex] = true
	d.ChangedCount++
}

// IsColumnChanged reports whether the column at the ordinal changed.
func (d *UpdateDifference) IsColumnChanged(i int) bool {
	return i >= 0 && i < len(d.ChangeMap) && d.ChangeMap[i]
}

// ColumnChange returns the change record for the ordinal, if any.
func (d *UpdateDifference) ColumnChange(i int) (FieldChange, bool) {
	for _, c := range d.ChangedFields {
		if c.ColumnIndex == i {
			return c, true
		}
	}
	return FieldChange{}, false
}

// ChangePercentage is the share of columns that changed, 0..100.
func (d *UpdateDifference) ChangePercentage() float64 {
	if d.TotalColumns == 0 {
		return 0
	}
	return float64(d.ChangedCount) / float64(d.TotalColumns) * 100
}

// IsPartialUpdate reports whether some but not all columns changed.
func (d *UpdateDifference) IsPartialUpdate() bool {
	return d.ChangedCount > 0 && d.ChangedCount < d.TotalColumns
}

// UpdateRowData pairs the before and after images of one updated row.
// The difference is computed lazily on first request and cached.
type UpdateRowData struct {
	Before *RowData
	After  *RowData

	diff *UpdateDifference
}

func NewUpdateRowData(before, after *RowData) *UpdateRowData {
	return &UpdateRowData{Before: before, After: after}
}

// Difference returns the changed columns, computing them on first call.
func (u *UpdateRowData) Difference() *UpdateDifference {
	if u.diff == nil {
		u.diff = u.computeDifference(nil)
	}
	return u.diff
}

// PartialDifference filters the difference to the given column
// ordinals; changes outside the set are dropped. The result is cached
// as the row's difference.
func (u *UpdateRowData) PartialDifference(columns []int) *UpdateDifference {
	counted := make(map[int]bool, len(columns))
	for _, c := range columns {
		counted[c] = true
	}
	u.diff = u.computeDifference(counted)
	return u.diff
}

func (u *UpdateRowData) computeDifference(counted map[int]bool) *UpdateDifference {
	n := len(u.Before.Cells)
	diff := newUpdateDifference(n)
	for i := 0; i < n; i++ {
		if counted != nil && !counted[i] {
			continue
		}
		before := u.Before.Cells[i]
		var after interface{}
		if i < len(u.After.Cells) {
			after = u.After.Cells[i]
		}
		if _, missing := before.(MissingValue); missing {
			continue
		}
		if _, missing := after.(MissingValue); missing {
			continue
		}
		if !cellsEqual(before, after) {
			diff.addChange(FieldChange{ColumnIndex: i, Before: before, After: after})
		}
	}
	return diff
}

// HasChanges reports whether any column changed.
func (u *UpdateRowData) HasChanges() bool {
	return u.Difference().ChangedCount > 0
}

// ChangedOnly projects the update down to its changed columns, the
// form an incremental downstream writer wants.
func (u *UpdateRowData) ChangedOnly() map[int]FieldChange {
	diff := u.Difference()
	m := make(map[int]FieldChange, diff.ChangedCount)
	for _, c := range diff.ChangedFields {
		m[c.ColumnIndex] = c
	}
	return m
}

// cellsEqual compares two decoded cell values. Cell types are either
// comparable scalars or small composites; reflect covers the slices
// (Blob, Bit, JSON raw bytes).
func cellsEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

// UpdateBatchStats aggregates difference analysis across the rows of
// one update event.
type UpdateBatchStats struct {
	Rows           int
	TotalChanged   int
	TotalColumns   int
	SparseUpdates  int // rows changing under half their columns
	FullRowUpdates int
}

// AnalyzeUpdates computes aggregate change statistics over a batch of
// update rows.
func AnalyzeUpdates(updates []*UpdateRowData) UpdateBatchStats {
	var s UpdateBatchStats
	for _, u := range updates {
		diff := u.Difference()
		s.Rows++
		s.TotalChanged += diff.ChangedCount
		s.TotalColumns += diff.TotalColumns
		if diff.ChangedCount == diff.TotalColumns {
			s.FullRowUpdates++
		} else if diff.ChangePercentage() < 50 {
			s.SparseUpdates++
		}
	}
	return s
}

// ChangeRatio is the share of cells changed across the batch, 0..1.
func (s UpdateBatchStats) ChangeRatio() float64 {
	if s.TotalColumns == 0 {
		return 0
	}
	return float64(s.TotalChanged) / float64(s.TotalColumns)
}
