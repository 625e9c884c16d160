package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

// Narrate turns a result table into a short written insight.
// This is Step 3 of the pipeline. It never fails: if the LLM call goes
// wrong the narrative degrades to an apology that carries the error.
func (p *Pipeline) Narrate(ctx context.Context, question string, plan AnalysisPlan, tbl warehouse.Table) string {
	userPrompt := fmt.Sprintf(`Question: %s

Analysis approach: %s

Data gathered:
%s

Write the insight for the user based on the data above.`, question, plan.Reasoning, FormatTable(tbl))

	response, err := p.cfg.LLM.Complete(ctx, p.cfg.Prompts.Narrate, userPrompt)
	if err != nil {
		if p.log != nil {
			p.log.Warn("pipeline: narration failed", "error", err)
		}
		return NormalizeProse(fmt.Sprintf("The analysis produced %d rows, but a summary could not be generated: %v", tbl.Count, err))
	}

	return NormalizeProse(strings.TrimSpace(response))
}
