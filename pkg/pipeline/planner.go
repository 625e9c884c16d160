package pipeline

import (
	"context"
	"fmt"
)

// Plan asks the LLM for an analysis plan for a question.
// This is Step 1 of the pipeline.
func (p *Pipeline) Plan(ctx context.Context, question string) (AnalysisPlan, error) {
	// Fetch the live schema so the prompt reflects whatever the ETL built
	schema, err := p.cfg.SchemaFetcher.DescribeSchema(ctx)
	if err != nil {
		return AnalysisPlan{}, fmt.Errorf("failed to fetch schema: %w", err)
	}

	systemPrompt := buildPlanPrompt(p.cfg.Prompts.Plan, schema)
	userPrompt := fmt.Sprintf("Question: %s\n\nRespond with JSON only.", question)

	response, err := p.cfg.LLM.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return AnalysisPlan{}, fmt.Errorf("LLM completion failed: %w", err)
	}

	plan, err := ParsePlan(response)
	if err != nil {
		if p.log != nil {
			p.log.Warn("plan: failed to parse LLM response",
				"responseLen", len(response),
				"responsePreview", truncateString(response, 500))
		}
		return AnalysisPlan{}, err
	}

	return plan, nil
}

// Replan asks the LLM to fix a plan whose SQL failed, feeding the failed
// query and the warehouse's error message back.
func (p *Pipeline) Replan(ctx context.Context, question string, failedSQL, errorMsg string) (AnalysisPlan, error) {
	schema, err := p.cfg.SchemaFetcher.DescribeSchema(ctx)
	if err != nil {
		return AnalysisPlan{}, fmt.Errorf("failed to fetch schema: %w", err)
	}

	systemPrompt := buildPlanPrompt(p.cfg.Prompts.Plan, schema)

	userPrompt := fmt.Sprintf(`Question: %s

The previous SQL query failed with an error. Please fix it.

Failed SQL:
%s

Error message:
%s

Generate a corrected plan that avoids this error. Respond with JSON only.`, question, failedSQL, errorMsg)

	response, err := p.cfg.LLM.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return AnalysisPlan{}, fmt.Errorf("LLM completion failed: %w", err)
	}

	plan, err := ParsePlan(response)
	if err != nil {
		return AnalysisPlan{}, err
	}

	return plan, nil
}

// buildPlanPrompt combines the static prompt with the live schema.
func buildPlanPrompt(staticPrompt, schema string) string {
	return staticPrompt + "\n\n## Warehouse Schema\n\n```\n" + schema + "```"
}
