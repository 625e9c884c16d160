package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "starlark fence",
			response: "Here you go:\n```starlark\nfig = line_chart(df, x=\"date\", y=\"total\")\n```",
			want:     `fig = line_chart(df, x="date", y="total")`,
		},
		{
			name:     "python fence",
			response: "```python\nfig = bar_chart(df, x=\"category\", y=\"total\")\n```",
			want:     `fig = bar_chart(df, x="category", y="total")`,
		},
		{
			name:     "bare fence",
			response: "```\nfig = bar_chart(df, x=\"c\", y=\"t\")\n```",
			want:     `fig = bar_chart(df, x="c", y="t")`,
		},
		{
			name:     "no fence treated as bare code",
			response: `fig = line_chart(df, x="date", y="total")`,
			want:     `fig = line_chart(df, x="date", y="total")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCodeBlock(tt.response))
		})
	}
}

func TestPlanChartLLMFailureReturnsEmpty(t *testing.T) {
	llm := &mockLLMClient{responses: []string{""}, errs: []error{errors.New("overloaded")}}
	p := newTestPipeline(t, llm, &mockQuerier{})

	got := p.PlanChart(context.Background(), "q", monthlyTable())
	assert.Empty(t, got)
}

func TestDescribeTableForChart(t *testing.T) {
	got := describeTableForChart(warehouse.Table{
		Columns: []string{"category", "total"},
		Rows: []warehouse.Row{
			{"category": "Books", "total": 12.5},
		},
		Count: 1,
	})

	assert.Contains(t, got, "category (text)")
	assert.Contains(t, got, "total (numeric)")
	assert.Contains(t, got, "Books | 12.50")
}
