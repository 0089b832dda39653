package clone

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
)

// Table is an ordered set of clone/pool rows.
// Derived tables share *Record with their source and never modify them.
type Table struct {
	Columns []string
	Records []*Record

	// numeric columns beyond NumericFields
	numeric map[string]bool
}

func NewTable(columns []string, records []*Record) *Table {
	return &Table{Columns: columns, Records: records}
}

// derive is a table of records sharing the columns of t.
func (t *Table) derive(records []*Record) *Table {
	return &Table{Columns: t.Columns, Records: records, numeric: t.numeric}
}

// SetNumeric marks columns as holding numbers.
func (t *Table) SetNumeric(columns ...string) {
	if t.numeric == nil {
		t.numeric = make(map[string]bool)
	}
	for _, c := range columns {
		t.numeric[c] = true
	}
}

func (t *Table) IsNumeric(column string) bool {
	return t.numeric[column] || lo.Contains(NumericFields, column)
}

func (t *Table) Len() int {
	return len(t.Records)
}

func (t *Table) Has(field string) bool {
	return lo.Contains(t.Columns, field)
}

// Require reports the first of fields missing from the table.
func (t *Table) Require(fields ...string) error {
	for _, f := range fields {
		if !t.Has(f) {
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}
	return nil
}

// Filter keeps records for which keep returns true.
func (t *Table) Filter(keep func(r *Record) bool) *Table {
	return t.derive(lo.Filter(t.Records, func(r *Record, _ int) bool { return keep(r) }))
}

// Unique returns the distinct values of field in first-seen order.
func (t *Table) Unique(field string) []string {
	return lo.Uniq(lo.Map(t.Records, func(r *Record, _ int) string { return r.Get(field) }))
}

// Group is the records sharing one value of a field.
type Group struct {
	Key     string
	Records []*Record
}

// Table returns the group as a table with the columns of parent.
func (g *Group) Table(parent *Table) *Table {
	return parent.derive(g.Records)
}

// GroupBy groups records by the space-joined value of fields, groups sorted by key.
func (t *Table) GroupBy(fields ...string) []*Group {
	var (
		groups = lo.GroupBy(t.Records, func(r *Record) string { return r.Key(fields...) })
		keys   = lo.Keys(groups)
	)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) *Group {
		return &Group{Key: k, Records: groups[k]}
	})
}

// CountDistinct counts distinct values of field among records.
func CountDistinct(records []*Record, field string) int {
	return len(lo.UniqBy(records, func(r *Record) string { return r.Get(field) }))
}

// Sum sums a numeric field over records, skipping missing values.
func Sum(records []*Record, field string) (float64, error) {
	var total float64
	for _, r := range records {
		v, err := r.Value(field)
		if err != nil {
			return 0, err
		}
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total, nil
}

// Concat appends tables, columns become the union in first-seen order.
func Concat(tables ...*Table) *Table {
	var out = &Table{}
	for _, t := range tables {
		out.Columns = lo.Union(out.Columns, t.Columns)
		out.Records = append(out.Records, t.Records...)
		for c := range t.numeric {
			out.SetNumeric(c)
		}
	}
	return out
}
