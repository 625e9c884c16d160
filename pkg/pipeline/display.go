package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

// PrepareForDisplay tidies a result table for presentation. Tables with
// year and month columns get a synthesized date column and chronological
// order; otherwise the first parseable date-like column is used for
// ordering. Each candidate that fails to parse is skipped in favor of the
// next; a table with no workable candidate is returned unchanged.
func PrepareForDisplay(tbl warehouse.Table) warehouse.Table {
	if tbl.Empty() {
		return tbl
	}

	if tbl.HasColumn("year") && tbl.HasColumn("month") {
		if out, ok := synthesizeDateColumn(tbl); ok {
			return out
		}
	}

	for _, col := range tbl.Columns {
		if strings.Contains(strings.ToLower(col), "date") {
			if out, ok := sortByDateColumn(tbl, col); ok {
				return out
			}
		}
	}

	return tbl
}

// synthesizeDateColumn builds a date column from year+month and sorts
// chronologically. Fails (ok=false) if any year or month is not numeric.
func synthesizeDateColumn(tbl warehouse.Table) (warehouse.Table, bool) {
	out := tbl.Clone()

	type keyed struct {
		row warehouse.Row
		t   time.Time
	}
	rows := make([]keyed, 0, len(out.Rows))
	for _, row := range out.Rows {
		year, ok := coerceInt(row["year"])
		if !ok {
			return warehouse.Table{}, false
		}
		month, ok := coerceInt(row["month"])
		if !ok || month < 1 || month > 12 {
			return warehouse.Table{}, false
		}
		t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		row["date"] = t.Format("2006-01-02")
		rows = append(rows, keyed{row: row, t: t})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })

	for i, k := range rows {
		out.Rows[i] = k.row
	}
	if !out.HasColumn("date") {
		out.Columns = append(out.Columns, "date")
	}
	return out, true
}

// dateLayouts are tried in order when parsing a date-like column.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02",
	"2006-01",
	"2006/01/02",
	"01/02/2006",
}

// sortByDateColumn orders rows by a parseable date column. Every value
// must parse under one of the known layouts or the table is left alone.
func sortByDateColumn(tbl warehouse.Table, col string) (warehouse.Table, bool) {
	out := tbl.Clone()

	type keyed struct {
		row warehouse.Row
		t   time.Time
	}
	rows := make([]keyed, 0, len(out.Rows))
	for _, row := range out.Rows {
		s := fmt.Sprintf("%v", row[col])
		t, ok := parseDate(s)
		if !ok {
			return warehouse.Table{}, false
		}
		rows = append(rows, keyed{row: row, t: t})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })

	for i, k := range rows {
		out.Rows[i] = k.row
	}
	return out, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func coerceInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		if val == float64(int64(val)) {
			return int(val), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
