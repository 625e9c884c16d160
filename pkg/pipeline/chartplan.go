package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

// PlanChart asks the LLM for chart code over the result table.
// Charting is best-effort: any failure returns "" and the answer ships
// without a figure.
func (p *Pipeline) PlanChart(ctx context.Context, question string, tbl warehouse.Table) string {
	userPrompt := fmt.Sprintf(`Question: %s

Result table:
%s

Write the chart code for this data.`, question, describeTableForChart(tbl))

	response, err := p.cfg.LLM.Complete(ctx, p.cfg.Prompts.Chart, userPrompt)
	if err != nil {
		if p.log != nil {
			p.log.Warn("pipeline: chart planning failed", "error", err)
		}
		return ""
	}

	return extractCodeBlock(response)
}

// describeTableForChart summarizes columns, inferred types, and a few
// sample rows so the LLM can pick axes without seeing the full table.
func describeTableForChart(tbl warehouse.Table) string {
	var sb strings.Builder
	sb.WriteString("Columns:\n")
	for _, col := range tbl.Columns {
		sb.WriteString(fmt.Sprintf("  - %s (%s)\n", col, inferColumnKind(tbl, col)))
	}

	sb.WriteString(fmt.Sprintf("Rows: %d\n", tbl.Count))
	sb.WriteString("Sample:\n")
	for i := 0; i < len(tbl.Rows) && i < 3; i++ {
		values := make([]string, len(tbl.Columns))
		for j, col := range tbl.Columns {
			values[j] = formatValueForLLM(tbl.Rows[i][col])
		}
		sb.WriteString("  " + strings.Join(values, " | ") + "\n")
	}
	return sb.String()
}

// inferColumnKind reports "numeric" or "text" based on the first
// non-nil value in the column.
func inferColumnKind(tbl warehouse.Table, col string) string {
	for _, row := range tbl.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case float64, float32, int, int32, int64, uint64:
			return "numeric"
		default:
			return "text"
		}
	}
	return "text"
}

// extractCodeBlock pulls code out of a fenced block, preferring a
// labeled fence. A response with no fence at all is treated as bare code.
func extractCodeBlock(response string) string {
	response = strings.TrimSpace(response)

	for _, label := range []string{"```starlark", "```python"} {
		if start := strings.Index(response, label); start != -1 {
			start += len(label)
			if end := strings.Index(response[start:], "```"); end != -1 {
				return strings.TrimSpace(response[start : start+end])
			}
		}
	}

	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		// Skip a language tag on the fence line
		if nl := strings.Index(response[start:], "\n"); nl != -1 && nl < 20 {
			start += nl + 1
		}
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	return response
}
