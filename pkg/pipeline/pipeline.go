// Package pipeline answers natural-language questions about warehouse
// data. Each question runs through discrete steps: plan (LLM produces
// SQL plus an optional transform script), execute (warehouse query,
// retried with error feedback), transform, narrate, and chart.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/darkrai19/ai-powered-analyst/pkg/chart"
	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

// Config holds the configuration for the pipeline.
type Config struct {
	Logger        *slog.Logger
	LLM           LLMClient
	Querier       Querier
	SchemaFetcher SchemaFetcher
	Transformer   Transformer
	Prompts       *Prompts
	MaxTokens     int64
	MaxSQLRetries int // Max replans for failed queries (default 2)
}

// LLMClient is the interface for interacting with an LLM.
type LLMClient interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Querier executes SQL queries.
type Querier interface {
	// Query executes a SQL query and returns the result table.
	Query(ctx context.Context, sql string) (warehouse.Table, error)
}

// SchemaFetcher retrieves warehouse schema information.
type SchemaFetcher interface {
	// DescribeSchema returns a formatted string describing the warehouse schema.
	DescribeSchema(ctx context.Context) (string, error)
}

// Transformer applies a transform script to a result table.
type Transformer interface {
	Apply(code string, tbl warehouse.Table) (warehouse.Table, error)
}

// Result holds the complete outcome of answering one question. Table and
// Figure may be nil: a failed analysis still carries a narrative.
type Result struct {
	Question  string
	Plan      AnalysisPlan
	Table     *warehouse.Table
	Narrative string
	ChartCode string
	Figure    *chart.Figure
}

// Pipeline orchestrates the question-answering process.
type Pipeline struct {
	cfg *Config
	log *slog.Logger
}

// New creates a new Pipeline.
func New(cfg *Config) (*Pipeline, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if cfg.Querier == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if cfg.SchemaFetcher == nil {
		return nil, fmt.Errorf("schema fetcher is required")
	}
	if cfg.Transformer == nil {
		return nil, fmt.Errorf("transformer is required")
	}
	if cfg.Prompts == nil {
		return nil, fmt.Errorf("prompts are required")
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxSQLRetries == 0 {
		cfg.MaxSQLRetries = 2
	}

	return &Pipeline{
		cfg: cfg,
		log: cfg.Logger,
	}, nil
}

// Answer runs the full pipeline for a question. It never returns an
// error: every failure mode degrades to a Result whose narrative
// explains what went wrong.
func (p *Pipeline) Answer(ctx context.Context, question string) (result *Result) {
	result = &Result{Question: question}

	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Error("pipeline: panic during analysis", "panic", r)
			}
			result.Table = nil
			result.Figure = nil
			result.Narrative = NormalizeProse(fmt.Sprintf("An error occurred during analysis: %v", r))
		}
	}()

	// Step 1: plan
	if p.log != nil {
		p.log.Info("pipeline: planning", "question", question)
	}
	plan, err := p.Plan(ctx, question)
	if err != nil {
		if p.log != nil {
			p.log.Warn("pipeline: planning failed", "error", err)
		}
		result.Narrative = NormalizeProse(fmt.Sprintf("The planner failed to generate a valid SQL query: %v", err))
		return result
	}
	// Step 2: execute with replan-on-error. A replan rewrites the plan in
	// place, so Result captures the plan that actually produced the table.
	tbl, err := p.executeWithRetry(ctx, question, &plan)
	result.Plan = plan
	if err != nil {
		if p.log != nil {
			p.log.Warn("pipeline: execution failed", "error", err)
		}
		result.Narrative = NormalizeProse(fmt.Sprintf("An error occurred during analysis: %v", err))
		return result
	}

	// Step 3: narrate (degrades internally, never fails)
	result.Narrative = p.Narrate(ctx, question, plan, tbl)

	// Step 4: prepare for display
	display := PrepareForDisplay(tbl)
	result.Table = &display

	// Step 5: chart (best-effort, only worth it for more than one row)
	if display.Count > 1 {
		code := p.PlanChart(ctx, question, display)
		result.ChartCode = code
		if code != "" {
			fig, err := chart.Render(code, display)
			if err != nil {
				if p.log != nil {
					p.log.Warn("pipeline: chart rendering failed", "error", err)
				}
			} else {
				result.Figure = fig
			}
		}
	}

	return result
}

// executeWithRetry runs the plan's SQL and transform. Warehouse errors
// trigger a replan with the error message fed back; transform errors do
// not, since the query itself succeeded.
func (p *Pipeline) executeWithRetry(ctx context.Context, question string, plan *AnalysisPlan) (warehouse.Table, error) {
	tbl, err := p.Execute(ctx, *plan)
	if err == nil {
		return tbl, nil
	}

	var qerr *QueryError
	for attempt := 1; errors.As(err, &qerr) && attempt <= p.cfg.MaxSQLRetries; attempt++ {
		if p.log != nil {
			p.log.Info("pipeline: replanning failed query",
				"attempt", attempt,
				"error", qerr.Err)
		}

		replanned, rerr := p.Replan(ctx, question, qerr.SQL, qerr.Err.Error())
		if rerr != nil {
			// Replanning failed, keep the previous error
			continue
		}
		*plan = replanned

		tbl, err = p.Execute(ctx, *plan)
		if err == nil {
			if p.log != nil {
				p.log.Info("pipeline: replan succeeded", "attempt", attempt)
			}
			return tbl, nil
		}
	}

	return warehouse.Table{}, err
}
