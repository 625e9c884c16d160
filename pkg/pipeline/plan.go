package pipeline

import (
	"encoding/json"
	"strings"
)

// AnalysisPlan is the structured plan the LLM produces for a question:
// what it intends to do, the SQL to run, and an optional post-query
// transform script.
type AnalysisPlan struct {
	Reasoning     string `json:"thought_process"`
	SQLQuery      string `json:"sql_query"`
	TransformCode string `json:"transform_code"`
}

// planResponse is the raw JSON shape accepted from the LLM. transform_code
// is the current key; pandas_code is accepted for older prompt revisions.
type planResponse struct {
	ThoughtProcess string `json:"thought_process"`
	SQLQuery       string `json:"sql_query"`
	TransformCode  string `json:"transform_code"`
	PandasCode     string `json:"pandas_code"`
}

// ParsePlan extracts an AnalysisPlan from an LLM response. The JSON may
// arrive in a ```json block, a bare code block, or as raw text.
func ParsePlan(response string) (AnalysisPlan, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return AnalysisPlan{}, &PlanParseError{Reason: "no JSON object in response"}
	}

	var parsed planResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return AnalysisPlan{}, &PlanParseError{Reason: "invalid JSON: " + err.Error()}
	}

	if strings.TrimSpace(parsed.SQLQuery) == "" {
		return AnalysisPlan{}, &PlanParseError{Reason: "plan has no sql_query"}
	}

	plan := AnalysisPlan{
		Reasoning:     strings.TrimSpace(parsed.ThoughtProcess),
		SQLQuery:      cleanSQL(parsed.SQLQuery),
		TransformCode: strings.TrimSpace(parsed.TransformCode),
	}
	if plan.TransformCode == "" {
		plan.TransformCode = strings.TrimSpace(parsed.PandasCode)
	}
	if plan.Reasoning == "" {
		plan.Reasoning = "Analysis complete."
	}

	return plan, nil
}

// cleanSQL normalizes SQL by trimming whitespace and removing trailing semicolons.
func cleanSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(sql, ";")
	return sql
}

// extractJSON pulls the plan JSON out of a model response. Fenced ```json
// blocks are trusted most, then any fenced block that opens with a brace,
// then the first brace-delimited object in the raw text.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if body, ok := fencedBlock(response, "```json"); ok {
		return body
	}
	if body, ok := fencedBlock(response, "```"); ok && strings.HasPrefix(body, "{") {
		return body
	}
	if start := strings.Index(response, "{"); start != -1 {
		return extractJSONObject(response, start)
	}
	return ""
}

// fencedBlock returns the trimmed contents of the first fence opened by
// marker, if the fence is closed.
func fencedBlock(s, marker string) (string, bool) {
	start := strings.Index(s, marker)
	if start == -1 {
		return "", false
	}
	start += len(marker)
	end := strings.Index(s[start:], "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(s[start : start+end]), true
}

// extractJSONObject returns the balanced {...} object beginning at start.
// Braces inside JSON strings (including escaped quotes) do not count
// toward nesting. Returns "" when the braces never balance.
func extractJSONObject(s string, start int) string {
	if start >= len(s) || s[start] != '{' {
		return ""
	}

	var depth int
	var inString, escaped bool
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// truncateString caps s at maxLen bytes for log previews.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
