// Package detail builds the tabular drill-down shown for a selected
// category: its records, sortable, filterable and paged.
package detail

import (
	"cmp"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

// PageSize is the number of rows per page.
const PageSize = 20

// ErrUnknownColumn is returned for a column name outside Columns.
var ErrUnknownColumn = errors.New("unknown column")

// Column names a table column.
type Column string

const (
	ColumnSource  Column = "source"
	ColumnTarget  Column = "target"
	ColumnPackets Column = "packets"
	ColumnPort    Column = "port"
)

// ColumnDef describes how a column is shown and filtered.
type ColumnDef struct {
	Header  string
	Column  Column
	Numeric bool
}

// Columns in display order.
var Columns = []ColumnDef{
	{Header: "Source", Column: ColumnSource},
	{Header: "Target", Column: ColumnTarget},
	{Header: "Packets", Column: ColumnPackets, Numeric: true},
	{Header: "Port", Column: ColumnPort, Numeric: true},
}

// ParseColumn resolves a column name, case-insensitively.
func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := columnDef(c); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, s)
	}
	return c, nil
}

func columnDef(c Column) (ColumnDef, bool) {
	for _, def := range Columns {
		if def.Column == c {
			return def, true
		}
	}
	return ColumnDef{}, false
}

// Table holds the records of one category.
type Table struct {
	Category traffic.Category
	Rows     []traffic.Record
}

// New builds the table for a category. The records are copied; the table
// can be sorted without touching the caller's slice.
func New(records []traffic.Record, category traffic.Category) *Table {
	return &Table{
		Category: category,
		Rows:     traffic.FilterByCategory(records, category),
	}
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// Sort orders rows by a column. Equal rows keep their relative order.
func (t *Table) Sort(column Column, desc bool) error {
	def, ok := columnDef(column)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	sort.SliceStable(t.Rows, func(i, j int) bool {
		var c int
		if def.Numeric {
			c = cmp.Compare(numericCell(t.Rows[i], column), numericCell(t.Rows[j], column))
		} else {
			c = strings.Compare(Cell(t.Rows[i], column), Cell(t.Rows[j], column))
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return nil
}

// Filter returns a table holding the matching rows. Text columns match rows
// containing text (case-insensitive); numeric columns match rows whose value
// is at least text. Empty text matches everything.
func (t *Table) Filter(column Column, text string) (*Table, error) {
	def, ok := columnDef(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	text = strings.TrimSpace(text)
	out := &Table{Category: t.Category, Rows: make([]traffic.Record, 0, len(t.Rows))}
	if text == "" {
		out.Rows = append(out.Rows, t.Rows...)
		return out, nil
	}

	if def.Numeric {
		floor, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", column, err)
		}
		for _, r := range t.Rows {
			if numericCell(r, column) >= floor {
				out.Rows = append(out.Rows, r)
			}
		}
		return out, nil
	}

	needle := strings.ToLower(text)
	for _, r := range t.Rows {
		if strings.Contains(strings.ToLower(Cell(r, column)), needle) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}

// Pages returns the number of pages; an empty table has none.
func (t *Table) Pages() int {
	return (len(t.Rows) + PageSize - 1) / PageSize
}

// Page returns the rows of 1-based page n, clamped to the valid range, and
// the total page count.
func (t *Table) Page(n int) ([]traffic.Record, int) {
	total := t.Pages()
	if total == 0 {
		return []traffic.Record{}, 0
	}
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}

	start := (n - 1) * PageSize
	end := min(start+PageSize, len(t.Rows))
	return t.Rows[start:end], total
}

// Cell formats a record field for display.
func Cell(r traffic.Record, column Column) string {
	switch column {
	case ColumnSource:
		return r.Source
	case ColumnTarget:
		return r.Target
	case ColumnPackets:
		return strconv.FormatInt(r.Packets, 10)
	case ColumnPort:
		return strconv.Itoa(r.Port)
	}
	return ""
}

func numericCell(r traffic.Record, column Column) int64 {
	if column == ColumnPort {
		return int64(r.Port)
	}
	return r.Packets
}

// Query selects one page of a sorted, filtered table.
type Query struct {
	Sort   Column
	Desc   bool
	Filter Column
	Text   string
	Page   int
}

// Result is one page of a query.
type Result struct {
	Category   traffic.Category `json:"category"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	TotalRows  int              `json:"totalRows"`
	Rows       []traffic.Record `json:"rows"`
}

// Run applies the filter, then the sort, then pages. The receiver is not
// modified.
func (t *Table) Run(q Query) (Result, error) {
	view := &Table{Category: t.Category, Rows: append([]traffic.Record(nil), t.Rows...)}
	if q.Filter != "" {
		filtered, err := view.Filter(q.Filter, q.Text)
		if err != nil {
			return Result{}, err
		}
		view = filtered
	}
	if q.Sort != "" {
		if err := view.Sort(q.Sort, q.Desc); err != nil {
			return Result{}, err
		}
	}

	rows, total := view.Page(q.Page)
	page := min(max(q.Page, 1), max(total, 1))
	return Result{
		Category:   t.Category,
		Page:       page,
		TotalPages: total,
		TotalRows:  view.Len(),
		Rows:       rows,
	}, nil
}
