package pipeline

import "fmt"

// PlanParseError means the LLM response could not be turned into an
// analysis plan. It is not retried with feedback because there is no
// SQL error to feed back.
type PlanParseError struct {
	Reason string
}

func (e *PlanParseError) Error() string {
	return fmt.Sprintf("plan parse: %s", e.Reason)
}

// QueryError means the warehouse rejected or failed the planned SQL.
// The pipeline retries these by asking the planner to fix the query,
// passing the failed SQL and the driver's error message back.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// TransformError means the query succeeded but the follow-up transform
// script failed. Not retryable: the data is fine, the script is not.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform failed: %v", e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
