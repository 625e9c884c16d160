// Package chart turns generator-authored charting code into a Figure.
// The code runs in the same restricted Starlark sandbox as transforms,
// with only the table (`df`) and two figure constructors predeclared; it
// must bind its result to `fig`. The Figure is a declarative chart spec
// handed to the presentation layer, so no plotting code ever executes
// with ambient access to the process.
package chart

import (
	"fmt"
	"strconv"
	"time"

	"go.starlark.net/starlark"

	"github.com/darkrai19/ai-powered-analyst/pkg/transform"
	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

// FigureName is the fixed name chart code must bind its output under.
const FigureName = "fig"

// Theme is the visual theme applied to every figure.
const Theme = "dark"

const (
	maxSteps = uint64(100_000)
	timeout  = 2 * time.Second
)

// Series is a single named sequence of y-values.
type Series struct {
	Name string    `json:"name"`
	Y    []float64 `json:"y"`
}

// Figure is a declarative chart specification.
type Figure struct {
	Kind   string   `json:"kind"` // "line" or "bar"
	Title  string   `json:"title"`
	Theme  string   `json:"theme"`
	XLabel string   `json:"x_label"`
	YLabel string   `json:"y_label"`
	X      []any    `json:"x"`
	Series []Series `json:"series"`
}

// Render executes chart code against the table and returns the bound
// figure. Any failure (bad code, missing fig binding, unknown columns)
// is an error the caller is expected to absorb: charting is best-effort.
func Render(code string, tbl warehouse.Table) (*Figure, error) {
	if code == "" {
		return nil, fmt.Errorf("no chart code")
	}

	thread := &starlark.Thread{Name: "chart"}
	thread.SetMaxExecutionSteps(maxSteps)

	predeclared := starlark.StringDict{
		transform.InputName: transform.ToStarlark(tbl),
		"line_chart":        starlark.NewBuiltin("line_chart", makeChartBuiltin("line")),
		"bar_chart":         starlark.NewBuiltin("bar_chart", makeChartBuiltin("bar")),
	}

	var globals starlark.StringDict
	err := transform.RunWithTimeout(thread, timeout, func() error {
		g, err := starlark.ExecFileOptions(transform.FileOptions(), thread, "chart.star", code, predeclared)
		globals = g
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("chart execution: %w", err)
	}

	v, ok := globals[FigureName]
	if !ok {
		return nil, fmt.Errorf("chart code did not bind %q", FigureName)
	}
	fv, ok := v.(*figureValue)
	if !ok {
		return nil, fmt.Errorf("%q is %s, expected a figure", FigureName, v.Type())
	}
	return fv.fig, nil
}

// figureValue wraps a Figure as an opaque Starlark value.
type figureValue struct {
	fig *Figure
}

func (f *figureValue) String() string        { return fmt.Sprintf("<figure %s %q>", f.fig.Kind, f.fig.Title) }
func (f *figureValue) Type() string          { return "figure" }
func (f *figureValue) Freeze()               {}
func (f *figureValue) Truth() starlark.Bool  { return starlark.True }
func (f *figureValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: figure") }

// makeChartBuiltin builds the line_chart/bar_chart constructor. Signature:
//
//	line_chart(df, x="month", y="sales", title=..., x_label=..., y_label=...)
//
// y accepts a column name or a list of column names.
func makeChartBuiltin(kind string) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			dfVal  starlark.Value
			xName  string
			yVal   starlark.Value
			title  string
			xLabel string
			yLabel string
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"df", &dfVal, "x", &xName, "y", &yVal,
			"title?", &title, "x_label?", &xLabel, "y_label?", &yLabel,
		); err != nil {
			return nil, err
		}

		tbl, err := transform.FromStarlark(dfVal)
		if err != nil {
			return nil, fmt.Errorf("%s: df: %w", b.Name(), err)
		}

		yNames, err := columnNames(yVal)
		if err != nil {
			return nil, fmt.Errorf("%s: y: %w", b.Name(), err)
		}

		if xLabel == "" {
			xLabel = xName
		}
		if yLabel == "" && len(yNames) == 1 {
			yLabel = yNames[0]
		}

		fig := &Figure{
			Kind:   kind,
			Title:  title,
			Theme:  Theme,
			XLabel: xLabel,
			YLabel: yLabel,
		}

		if !tbl.HasColumn(xName) {
			return nil, fmt.Errorf("%s: unknown x column %q", b.Name(), xName)
		}
		for _, row := range tbl.Rows {
			fig.X = append(fig.X, row[xName])
		}

		for _, name := range yNames {
			if !tbl.HasColumn(name) {
				return nil, fmt.Errorf("%s: unknown y column %q", b.Name(), name)
			}
			s := Series{Name: name}
			for _, row := range tbl.Rows {
				f, err := toFloat(row[name])
				if err != nil {
					return nil, fmt.Errorf("%s: column %q: %w", b.Name(), name, err)
				}
				s.Y = append(s.Y, f)
			}
			fig.Series = append(fig.Series, s)
		}

		return &figureValue{fig: fig}, nil
	}
}

func columnNames(v starlark.Value) ([]string, error) {
	switch val := v.(type) {
	case starlark.String:
		return []string{string(val)}, nil
	case *starlark.List:
		names := make([]string, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			s, ok := starlark.AsString(val.Index(i))
			if !ok {
				return nil, fmt.Errorf("element %d is %s, expected a string", i, val.Index(i).Type())
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("expected a column name or list of names, got %s", v.Type())
	}
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", val)
		}
		return f, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}
