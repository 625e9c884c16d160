package transform

import (
	"fmt"
	"sort"
	"time"

	"go.starlark.net/starlark"

	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

// ToStarlark converts a table to a Starlark list of row dicts, the shape
// transform code operates on.
func ToStarlark(tbl warehouse.Table) *starlark.List {
	rows := make([]starlark.Value, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		d := starlark.NewDict(len(tbl.Columns))
		for _, col := range tbl.Columns {
			// SetKey on a fresh dict cannot fail.
			_ = d.SetKey(starlark.String(col), goToStarlark(row[col]))
		}
		rows = append(rows, d)
	}
	return starlark.NewList(rows)
}

// FromStarlark converts a transform's output back to a table. Accepted
// shapes: a list of row dicts (columns in first-seen order), or a dict
// keyed by date/time strings, which is flattened into an explicit `date`
// column so downstream consumers see a uniform shape.
func FromStarlark(v starlark.Value) (warehouse.Table, error) {
	switch val := v.(type) {
	case *starlark.List:
		return tableFromRows(listValues(val))
	case starlark.Tuple:
		return tableFromRows([]starlark.Value(val))
	case *starlark.Dict:
		return tableFromKeyedDict(val)
	default:
		return warehouse.Table{}, fmt.Errorf("unsupported result type %s (expected a list of dicts)", v.Type())
	}
}

func listValues(l *starlark.List) []starlark.Value {
	out := make([]starlark.Value, l.Len())
	for i := 0; i < l.Len(); i++ {
		out[i] = l.Index(i)
	}
	return out
}

func tableFromRows(rows []starlark.Value) (warehouse.Table, error) {
	tbl := warehouse.Table{Rows: []warehouse.Row{}}
	seen := map[string]bool{}

	for i, rv := range rows {
		d, ok := rv.(*starlark.Dict)
		if !ok {
			return warehouse.Table{}, fmt.Errorf("row %d is %s, expected a dict", i, rv.Type())
		}
		row := make(warehouse.Row, d.Len())
		for _, kv := range d.Items() {
			key, ok := starlark.AsString(kv[0])
			if !ok {
				return warehouse.Table{}, fmt.Errorf("row %d has non-string column name %s", i, kv[0].String())
			}
			if !seen[key] {
				seen[key] = true
				tbl.Columns = append(tbl.Columns, key)
			}
			row[key] = starlarkToGo(kv[1])
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	tbl.Count = len(tbl.Rows)
	return tbl, nil
}

// tableFromKeyedDict flattens {key: value} or {key: {col: value}} into rows
// with the key exposed as a `date` column, sorted ascending by key. This is
// how a transform that grouped by a time bucket comes back as a table.
func tableFromKeyedDict(d *starlark.Dict) (warehouse.Table, error) {
	type entry struct {
		key string
		val starlark.Value
	}
	entries := make([]entry, 0, d.Len())
	for _, kv := range d.Items() {
		key, ok := starlark.AsString(kv[0])
		if !ok {
			key = kv[0].String()
		}
		entries = append(entries, entry{key: key, val: kv[1]})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	tbl := warehouse.Table{Columns: []string{"date"}, Rows: []warehouse.Row{}}
	seen := map[string]bool{"date": true}

	for _, e := range entries {
		row := warehouse.Row{"date": e.key}
		if nested, ok := e.val.(*starlark.Dict); ok {
			for _, kv := range nested.Items() {
				col, ok := starlark.AsString(kv[0])
				if !ok {
					col = kv[0].String()
				}
				if !seen[col] {
					seen[col] = true
					tbl.Columns = append(tbl.Columns, col)
				}
				row[col] = starlarkToGo(kv[1])
			}
		} else {
			if !seen["value"] {
				seen["value"] = true
				tbl.Columns = append(tbl.Columns, "value")
			}
			row["value"] = starlarkToGo(e.val)
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	tbl.Count = len(tbl.Rows)
	return tbl, nil
}

func goToStarlark(v any) starlark.Value {
	switch val := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(val)
	case int:
		return starlark.MakeInt(val)
	case int32:
		return starlark.MakeInt(int(val))
	case int64:
		return starlark.MakeInt64(val)
	case uint64:
		return starlark.MakeUint64(val)
	case float32:
		return starlark.Float(float64(val))
	case float64:
		return starlark.Float(val)
	case string:
		return starlark.String(val)
	case []byte:
		return starlark.String(string(val))
	case time.Time:
		return starlark.String(val.Format("2006-01-02 15:04:05"))
	default:
		return starlark.String(fmt.Sprintf("%v", val))
	}
}

func starlarkToGo(v starlark.Value) any {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(val)
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i
		}
		return val.String()
	case starlark.Float:
		return float64(val)
	case starlark.String:
		return string(val)
	case *starlark.List:
		out := make([]any, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			out = append(out, starlarkToGo(val.Index(i)))
		}
		return out
	case starlark.Tuple:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, starlarkToGo(item))
		}
		return out
	default:
		return v.String()
	}
}
