package dataset

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delay-risk-cli/internal/fetcher"
)

// Joined is the flat result of Join. Column names are unique; when two
// tables share a column name the earlier table in join order keeps it.
type Joined struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// Index returns the position of column, or -1.
func (j *Joined) Index(column string) int {
	if i, ok := j.index[column]; ok {
		return i
	}
	return -1
}

// Value returns the cell for a row and column name. A column that is absent
// or a left join that found no match both yield "".
func (j *Joined) Value(row int, column string) string {
	i := j.Index(column)
	if i < 0 || row < 0 || row >= len(j.Rows) || i >= len(j.Rows[row]) {
		return ""
	}
	return j.Rows[row][i]
}

// joinSide is one right-hand table prepared for lookup.
type joinSide struct {
	cols  []int // source column positions copied into the output
	byKey map[string][]int
	table *fetcher.Table
	inner bool
}

// Join combines the tables on Order_ID: orders inner-joined with delivery
// performance, then left-joined with routes, the Rating and Would_Recommend
// columns of customer feedback, and costs. Output rows follow the order of
// the orders table. A key matched by several right-hand rows yields one
// output row per match.
func Join(t Tables) (*Joined, error) {
	if t.Orders == nil || t.Delivery == nil || t.Routes == nil || t.Feedback == nil || t.Costs == nil {
		return nil, eris.New("dataset: join needs all five tables")
	}

	out := &Joined{index: make(map[string]int)}
	addColumn := func(name string) bool {
		if _, dup := out.index[name]; dup {
			return false
		}
		out.index[name] = len(out.Header)
		out.Header = append(out.Header, name)
		return true
	}

	left := t.Orders
	leftKey := left.Index(ColOrderID)
	leftCols := make([]int, 0, len(left.Header))
	for i, h := range left.Header {
		if addColumn(strings.TrimSpace(h)) {
			leftCols = append(leftCols, i)
		}
	}

	sides := []*joinSide{
		newJoinSide(t.Delivery, true, nil, addColumn),
		newJoinSide(t.Routes, false, nil, addColumn),
		newJoinSide(t.Feedback, false, []string{ColRating, ColWouldRecommend}, addColumn),
		newJoinSide(t.Costs, false, nil, addColumn),
	}

	for r := range left.Rows {
		key := strings.TrimSpace(left.Value(r, leftKey))
		base := make([]string, 0, len(out.Header))
		for _, c := range leftCols {
			base = append(base, left.Value(r, c))
		}
		partial := [][]string{base}
		for _, s := range sides {
			partial = s.extend(partial, key)
			if len(partial) == 0 {
				break
			}
		}
		out.Rows = append(out.Rows, partial...)
	}

	if len(out.Rows) == 0 {
		return nil, eris.Errorf("dataset: join produced no rows (%d orders, %d delivery records)",
			len(t.Orders.Rows), len(t.Delivery.Rows))
	}
	return out, nil
}

// newJoinSide indexes table by Order_ID. only restricts the copied columns;
// nil copies every non-key column.
func newJoinSide(table *fetcher.Table, inner bool, only []string, addColumn func(string) bool) *joinSide {
	s := &joinSide{table: table, inner: inner, byKey: make(map[string][]int)}
	key := table.Index(ColOrderID)
	for i, h := range table.Header {
		h = strings.TrimSpace(h)
		if i == key {
			continue
		}
		if only != nil && !slices.Contains(only, h) {
			continue
		}
		if addColumn(h) {
			s.cols = append(s.cols, i)
		}
	}
	for r := range table.Rows {
		k := strings.TrimSpace(table.Value(r, key))
		s.byKey[k] = append(s.byKey[k], r)
	}
	return s
}

// extend appends this side's columns to every partial row.
func (s *joinSide) extend(partial [][]string, key string) [][]string {
	matches := s.byKey[key]
	if len(matches) == 0 {
		if s.inner {
			return nil
		}
		for i := range partial {
			partial[i] = append(partial[i], make([]string, len(s.cols))...)
		}
		return partial
	}

	next := make([][]string, 0, len(partial)*len(matches))
	for _, p := range partial {
		for _, m := range matches {
			row := make([]string, len(p), len(p)+len(s.cols))
			copy(row, p)
			for _, c := range s.cols {
				row = append(row, s.table.Value(m, c))
			}
			next = append(next, row)
		}
	}
	return next
}
