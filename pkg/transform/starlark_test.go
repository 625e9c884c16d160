package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

func sampleTable() warehouse.Table {
	return warehouse.Table{
		Columns: []string{"month", "total"},
		Rows: []warehouse.Row{
			{"month": "2024-01", "total": 10.0},
			{"month": "2024-02", "total": 20.0},
			{"month": "2024-03", "total": 30.0},
		},
		Count: 3,
	}
}

func TestApplyEmptyCodeIsNoOp(t *testing.T) {
	e := NewEvaluator()

	out, err := e.Apply("", sampleTable())
	require.NoError(t, err)
	assert.Equal(t, sampleTable(), out)

	out, err = e.Apply("  \n\t", sampleTable())
	require.NoError(t, err)
	assert.Equal(t, sampleTable(), out)
}

func TestApplyResultDFWins(t *testing.T) {
	e := NewEvaluator()

	code := `
df.append({"month": "2024-04", "total": 40.0})
result_df = [r for r in df if r["total"] >= 20]
`
	out, err := e.Apply(code, sampleTable())
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, "2024-04", out.Rows[2]["month"])
}

func TestApplyMutatedDFFallback(t *testing.T) {
	e := NewEvaluator()

	code := `
for r in df:
    r["total_x2"] = r["total"] * 2
`
	out, err := e.Apply(code, sampleTable())
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, []string{"month", "total", "total_x2"}, out.Columns)
	assert.Equal(t, 20.0, out.Rows[0]["total_x2"])
}

func TestApplyReboundDFFallback(t *testing.T) {
	e := NewEvaluator()

	code := `
df = [r for r in df if r["total"] > 10]
df.append({"month": "2024-04", "total": 40.0})
`
	out, err := e.Apply(code, sampleTable())
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, "2024-02", out.Rows[0]["month"])
	assert.Equal(t, "2024-04", out.Rows[2]["month"])
}

func TestApplyResultDFWinsOverReboundDF(t *testing.T) {
	e := NewEvaluator()

	code := `
df = [{"month": "2024-04", "total": 40.0}]
result_df = [{"month": "2024-05", "total": 50.0}]
`
	out, err := e.Apply(code, sampleTable())
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "2024-05", out.Rows[0]["month"])
}

func TestApplyDerivedColumn(t *testing.T) {
	e := NewEvaluator()

	code := `
total = 0.0
for r in df:
    total += r["total"]
result_df = [{"month": r["month"], "share": r["total"] / total} for r in df]
`
	out, err := e.Apply(code, sampleTable())
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "share"}, out.Columns)
	assert.InDelta(t, 0.5, out.Rows[2]["share"].(float64), 1e-9)
}

func TestApplyExecutionError(t *testing.T) {
	e := NewEvaluator()

	_, err := e.Apply("result_df = no_such_name", sampleTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform execution")
}

func TestApplyBadOutputShape(t *testing.T) {
	e := NewEvaluator()

	_, err := e.Apply("result_df = 42", sampleTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform output")
}

func TestApplyStepLimit(t *testing.T) {
	e := &Evaluator{MaxSteps: 1000, Timeout: time.Second}

	code := `
n = 0
while True:
    n += 1
`
	_, err := e.Apply(code, sampleTable())
	require.Error(t, err)
}

func TestApplyNoImportsOrIO(t *testing.T) {
	e := NewEvaluator()

	_, err := e.Apply(`load("os.star", "os")`, sampleTable())
	require.Error(t, err)
}

func TestFromStarlarkKeyedDict(t *testing.T) {
	e := NewEvaluator()

	code := `
grouped = {}
for r in df:
    grouped[r["month"]] = r["total"]
result_df = grouped
`
	out, err := e.Apply(code, sampleTable())
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "value"}, out.Columns)
	require.Equal(t, 3, out.Count)
	// Keys come back sorted ascending
	assert.Equal(t, "2024-01", out.Rows[0]["date"])
	assert.Equal(t, "2024-03", out.Rows[2]["date"])
	assert.Equal(t, 10.0, out.Rows[0]["value"])
}

func TestFromStarlarkKeyedDictOfDicts(t *testing.T) {
	e := NewEvaluator()

	code := `
result_df = {
    "2024-02": {"total": 20.0, "orders": 2},
    "2024-01": {"total": 10.0, "orders": 1},
}
`
	out, err := e.Apply(code, sampleTable())
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "total", "orders"}, out.Columns)
	assert.Equal(t, "2024-01", out.Rows[0]["date"])
	assert.Equal(t, int64(1), out.Rows[0]["orders"])
}

func TestConversionRoundTrip(t *testing.T) {
	tbl := warehouse.Table{
		Columns: []string{"s", "i", "f", "b", "n", "t"},
		Rows: []warehouse.Row{
			{"s": "x", "i": int64(7), "f": 1.5, "b": true, "n": nil,
				"t": time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)},
		},
		Count: 1,
	}

	out, err := FromStarlark(ToStarlark(tbl))
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns, out.Columns)
	row := out.Rows[0]
	assert.Equal(t, "x", row["s"])
	assert.Equal(t, int64(7), row["i"])
	assert.Equal(t, 1.5, row["f"])
	assert.Equal(t, true, row["b"])
	assert.Nil(t, row["n"])
	assert.Equal(t, "2024-05-01 12:30:00", row["t"])
}
