package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

// Execute runs the plan's SQL and applies its transform script.
// This is Step 2 of the pipeline.
func (p *Pipeline) Execute(ctx context.Context, plan AnalysisPlan) (warehouse.Table, error) {
	tbl, err := p.cfg.Querier.Query(ctx, plan.SQLQuery)
	if err != nil {
		return warehouse.Table{}, &QueryError{SQL: plan.SQLQuery, Err: err}
	}

	if p.log != nil {
		p.log.Info("pipeline: query executed", "rows", tbl.Count)
	}

	if plan.TransformCode == "" {
		return tbl, nil
	}

	transformed, err := p.cfg.Transformer.Apply(plan.TransformCode, tbl)
	if err != nil {
		return warehouse.Table{}, &TransformError{Err: err}
	}

	if p.log != nil {
		p.log.Info("pipeline: transform applied", "rowsIn", tbl.Count, "rowsOut", transformed.Count)
	}

	return transformed, nil
}

// formatValueForLLM formats a single value for display to the LLM.
// Floats are rounded to 2 decimal places to avoid long decimals (like
// 3.3333333333333335) that can confuse the LLM into thinking they're
// encoded values.
func formatValueForLLM(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val) // Whole number, no decimals
		}
		return fmt.Sprintf("%.2f", val)
	case float32:
		if val == float32(int32(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case nil:
		return ""
	default:
		s := fmt.Sprintf("%v", v)
		// Truncate long values
		if len(s) > 100 {
			s = s[:97] + "..."
		}
		return s
	}
}

// FormatTable formats a result table for display in the narration prompt.
func FormatTable(tbl warehouse.Table) string {
	if tbl.Count == 0 {
		return "Query returned no results."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(tbl.Columns, ", ")))
	sb.WriteString(fmt.Sprintf("Rows (%d total):\n", tbl.Count))

	// Limit display to 50 rows
	maxRows := 50
	displayRows := tbl.Count
	if displayRows > maxRows {
		displayRows = maxRows
	}

	for i := 0; i < displayRows && i < len(tbl.Rows); i++ {
		values := make([]string, len(tbl.Columns))
		for j, col := range tbl.Columns {
			values[j] = formatValueForLLM(tbl.Rows[i][col])
		}
		sb.WriteString(strings.Join(values, " | ") + "\n")
	}

	if tbl.Count > maxRows {
		sb.WriteString(fmt.Sprintf("... and %d more rows\n", tbl.Count-maxRows))
	}

	return sb.String()
}
