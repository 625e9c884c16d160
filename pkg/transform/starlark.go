// Package transform executes generator-authored post-processing code
// against a query result inside a restricted Starlark sandbox. The code
// sees exactly one binding: the input table as `df` (a list of row dicts).
// It either assigns its output to `result_df` or mutates `df` in place.
package transform

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

const (
	// InputName is the fixed name the SQL result is bound under.
	InputName = "df"
	// OutputName is the fixed name a transform binds its output under.
	OutputName = "result_df"

	defaultMaxSteps = uint64(100_000)
	defaultTimeout  = 2 * time.Second
)

// Evaluator runs transform code with an execution-step budget and a
// wall-clock timeout. The zero value is not usable; call NewEvaluator.
type Evaluator struct {
	MaxSteps uint64
	Timeout  time.Duration
}

// NewEvaluator creates an Evaluator with the default limits.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		MaxSteps: defaultMaxSteps,
		Timeout:  defaultTimeout,
	}
}

// Apply runs the transform code against the table. Empty code is a no-op.
// If the code binds result_df, that binding wins; otherwise the df
// binding, rebound at top level or mutated in place, becomes the output. Any evaluation or conversion
// failure is returned as an error distinct from SQL execution errors.
func (e *Evaluator) Apply(code string, tbl warehouse.Table) (warehouse.Table, error) {
	if isBlank(code) {
		return tbl, nil
	}

	df := ToStarlark(tbl)
	thread := &starlark.Thread{Name: "transform"}
	thread.SetMaxExecutionSteps(e.MaxSteps)

	predeclared := starlark.StringDict{InputName: df}

	var globals starlark.StringDict
	err := RunWithTimeout(thread, e.Timeout, func() error {
		g, err := starlark.ExecFileOptions(FileOptions(), thread, "transform.star", code, predeclared)
		globals = g
		return err
	})
	if err != nil {
		return warehouse.Table{}, fmt.Errorf("transform execution: %w", err)
	}

	// result_df wins; a top-level rebinding of df comes next; otherwise
	// the predeclared value, which the code may have mutated in place.
	out := starlark.Value(df)
	if v, ok := globals[InputName]; ok {
		out = v
	}
	if v, ok := globals[OutputName]; ok {
		out = v
	}

	result, err := FromStarlark(out)
	if err != nil {
		return warehouse.Table{}, fmt.Errorf("transform output: %w", err)
	}
	return result, nil
}

// FileOptions allows top-level control flow so generated scripts can loop
// and reassign without wrapping everything in functions.
func FileOptions() *syntax.FileOptions {
	return &syntax.FileOptions{
		TopLevelControl: true,
		GlobalReassign:  true,
		While:           true,
		Set:             true,
	}
}

// RunWithTimeout executes fn, cancelling the Starlark thread if the
// timeout elapses first.
func RunWithTimeout(thread *starlark.Thread, timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		thread.Cancel("execution timed out")
		err := <-done
		if err != nil {
			return fmt.Errorf("execution timed out after %s: %w", timeout, err)
		}
		return fmt.Errorf("execution timed out after %s", timeout)
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
