package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

func TestExecuteNoTransformPassesThrough(t *testing.T) {
	sql := "SELECT year, month, total FROM monthly"
	q := &mockQuerier{tables: map[string]warehouse.Table{sql: monthlyTable()}}
	p := newTestPipeline(t, &mockLLMClient{responses: []string{""}}, q)

	tbl, err := p.Execute(context.Background(), AnalysisPlan{SQLQuery: sql})
	require.NoError(t, err)

	// Row order preserved exactly as the warehouse returned it
	assert.Equal(t, monthlyTable(), tbl)
}

func TestExecuteAppliesTransform(t *testing.T) {
	sql := "SELECT total FROM monthly"
	q := &mockQuerier{tables: map[string]warehouse.Table{sql: monthlyTable()}}
	p := newTestPipeline(t, &mockLLMClient{responses: []string{""}}, q)

	plan := AnalysisPlan{
		SQLQuery:      sql,
		TransformCode: `result_df = [r for r in df if r["total"] > 15]`,
	}
	tbl, err := p.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Count)
}

func TestExecuteWrapsQueryError(t *testing.T) {
	sql := "SELECT nope"
	q := &mockQuerier{errs: map[string]error{sql: fmt.Errorf("Parser Error: syntax error")}}
	p := newTestPipeline(t, &mockLLMClient{responses: []string{""}}, q)

	_, err := p.Execute(context.Background(), AnalysisPlan{SQLQuery: sql})

	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, sql, qerr.SQL)
	assert.Contains(t, qerr.Err.Error(), "Parser Error")
}

func TestExecuteWrapsTransformError(t *testing.T) {
	sql := "SELECT total FROM monthly"
	q := &mockQuerier{tables: map[string]warehouse.Table{sql: monthlyTable()}}
	p := newTestPipeline(t, &mockLLMClient{responses: []string{""}}, q)

	plan := AnalysisPlan{SQLQuery: sql, TransformCode: "result_df = boom()"}
	_, err := p.Execute(context.Background(), plan)

	var terr *TransformError
	require.ErrorAs(t, err, &terr)
}

func TestFormatTable(t *testing.T) {
	tbl := warehouse.Table{
		Columns: []string{"category", "avg_price"},
		Rows: []warehouse.Row{
			{"category": "Books", "avg_price": 3.3333333333333335},
			{"category": "Games", "avg_price": 20.0},
			{"category": nil, "avg_price": nil},
		},
		Count: 3,
	}

	got := FormatTable(tbl)
	assert.Contains(t, got, "Columns: category, avg_price")
	assert.Contains(t, got, "Rows (3 total):")
	assert.Contains(t, got, "Books | 3.33")
	assert.Contains(t, got, "Games | 20")
	assert.NotContains(t, got, "3.3333333333333335")
}

func TestFormatTableEmpty(t *testing.T) {
	assert.Equal(t, "Query returned no results.", FormatTable(warehouse.Table{}))
}

func TestFormatTableCapsAtFiftyRows(t *testing.T) {
	tbl := warehouse.Table{Columns: []string{"n"}, Count: 120}
	for i := 0; i < 120; i++ {
		tbl.Rows = append(tbl.Rows, warehouse.Row{"n": i})
	}

	got := FormatTable(tbl)
	assert.Contains(t, got, "... and 70 more rows")
	// Two header lines, 50 data rows, one trailer
	assert.Len(t, strings.Split(strings.TrimRight(got, "\n"), "\n"), 53)
}
