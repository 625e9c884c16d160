// Package warehouse provides access to the DuckDB star-schema warehouse:
// query execution with generic row scanning, and a textual schema
// description used as planning context.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// Table is a tabular query result. Columns preserves the warehouse's
// column order; Rows preserves the warehouse's row order.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	Count   int      `json:"count"`
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return t.Count == 0
}

// HasColumn reports whether the table has a column with the given name.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the table. Rows are copied map-by-map so
// callers can reshape the clone without mutating the original.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
		Count:   t.Count,
	}
	for i, row := range t.Rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Warehouse wraps a long-lived DuckDB connection. It is constructed once
// at process startup and passed by handle into the request path.
type Warehouse struct {
	log *slog.Logger
	db  *sql.DB
}

// Open opens the DuckDB database at the given path. An empty path opens
// an in-memory database.
func Open(path string, log *slog.Logger) (*Warehouse, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", path, err)
	}
	return &Warehouse{log: log, db: db}, nil
}

// Close closes the underlying database.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// DB exposes the underlying *sql.DB for batch jobs like the ETL.
func (w *Warehouse) DB() *sql.DB {
	return w.db
}

// Query executes a SQL query and scans every row into a Table.
// NULLs are preserved as nil; []byte values are converted to strings.
// The returned error carries the driver's message verbatim.
func (w *Warehouse) Query(ctx context.Context, sqlText string) (Table, error) {
	rows, err := w.db.QueryContext(ctx, sqlText)
	if err != nil {
		return Table{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Table{}, fmt.Errorf("failed to get columns: %w", err)
	}

	result := Table{Columns: columns, Rows: []Row{}}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return Table{}, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Table{}, err
	}

	result.Count = len(result.Rows)
	if w.log != nil {
		w.log.Debug("warehouse: query executed", "rows", result.Count)
	}
	return result, nil
}
