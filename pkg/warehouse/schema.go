package warehouse

import (
	"context"
	"fmt"
	"strings"
)

const maxSampleValues = 15

// DescribeSchema returns a textual description of every table and column
// in the warehouse, enriched with sample values for low-cardinality text
// columns. The description is rebuilt on every call so the planner always
// sees the current state of the warehouse.
func (w *Warehouse) DescribeSchema(ctx context.Context) (string, error) {
	cols, err := w.fetchColumns(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch columns: %w", err)
	}
	w.enrichWithSampleValues(ctx, cols)
	return formatSchema(cols), nil
}

type columnInfo struct {
	Table        string
	Name         string
	Type         string
	SampleValues []string
}

func (w *Warehouse) fetchColumns(ctx context.Context) ([]columnInfo, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type
		FROM duckdb_columns()
		WHERE database_name = current_database()
		  AND schema_name = 'main'
		  AND NOT internal
		  AND table_name NOT LIKE 'stg_%'
		ORDER BY table_name, column_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.Table, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// isCategoricalType returns true if the column type should have sample values displayed.
func isCategoricalType(colType string) bool {
	t := strings.ToUpper(colType)
	return t == "VARCHAR" || strings.HasPrefix(t, "ENUM")
}

// shouldSkipColumn returns true for columns that shouldn't have samples fetched.
func shouldSkipColumn(colName string) bool {
	name := strings.ToLower(colName)
	skipSuffixes := []string{"_id", "_key", "_code", "_date", "_month", "_week"}
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	skipExact := []string{"id", "name", "description", "comment", "city", "zipcode"}
	for _, exact := range skipExact {
		if name == exact {
			return true
		}
	}
	return false
}

// enrichWithSampleValues fetches distinct values for categorical columns so
// the planner can use real filter values instead of guessing.
func (w *Warehouse) enrichWithSampleValues(ctx context.Context, cols []columnInfo) {
	for i := range cols {
		col := &cols[i]
		if !isCategoricalType(col.Type) || shouldSkipColumn(col.Name) {
			continue
		}
		samples, err := w.fetchColumnSamples(ctx, col.Table, col.Name)
		if err == nil && len(samples) > 0 && len(samples) <= maxSampleValues {
			col.SampleValues = samples
		}
	}
}

// fetchColumnSamples returns distinct values for a column, capped to detect
// high cardinality.
func (w *Warehouse) fetchColumnSamples(ctx context.Context, table, column string) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %q FROM %q WHERE %q IS NOT NULL ORDER BY 1 LIMIT 20`,
		column, table, column)
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v != "" {
			samples = append(samples, v)
		}
	}
	return samples, rows.Err()
}

func formatSchema(cols []columnInfo) string {
	var sb strings.Builder
	currentTable := ""
	for _, col := range cols {
		if col.Table != currentTable {
			if currentTable != "" {
				sb.WriteString("\n")
			}
			currentTable = col.Table
			sb.WriteString(col.Table + ":\n")
		}
		if len(col.SampleValues) > 0 {
			sb.WriteString("  - " + col.Name + " (" + col.Type + ") values: " + strings.Join(col.SampleValues, ", ") + "\n")
		} else {
			sb.WriteString("  - " + col.Name + " (" + col.Type + ")\n")
		}
	}
	return sb.String()
}
