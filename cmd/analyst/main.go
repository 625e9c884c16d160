// Command analyst answers a natural-language question about the
// warehouse from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	flag "github.com/spf13/pflag"

	"github.com/darkrai19/ai-powered-analyst/pkg/logger"
	"github.com/darkrai19/ai-powered-analyst/pkg/pipeline"
	"github.com/darkrai19/ai-powered-analyst/pkg/transform"
	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

const (
	defaultDBPath    = "analytics.duckdb"
	defaultModel     = string(anthropic.ModelClaude3_5Haiku20241022)
	defaultOllamaURL = "http://localhost:11434"
	defaultTimeout   = 2 * time.Minute
	defaultMaxTokens = 4096
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	dbPathFlag := flag.String("db", defaultDBPath, "path to the DuckDB database file")
	questionFlag := flag.String("question", "", "question to answer")
	providerFlag := flag.String("provider", "anthropic", "LLM provider: anthropic or ollama")
	modelFlag := flag.String("model", "", "model name (defaults per provider)")
	ollamaURLFlag := flag.String("ollama-url", defaultOllamaURL, "Ollama server URL")
	timeoutFlag := flag.Duration("timeout", defaultTimeout, "overall analysis timeout")
	showFigureFlag := flag.Bool("figure", false, "print the figure spec as JSON")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	flag.Parse()

	question := *questionFlag
	if question == "" && flag.NArg() > 0 {
		question = flag.Arg(0)
	}
	if question == "" {
		return fmt.Errorf("a question is required (use --question or a positional argument)")
	}

	log := logger.New(*verboseFlag)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeoutFlag)
	defer cancelTimeout()

	wh, err := warehouse.Open(*dbPathFlag, log)
	if err != nil {
		return fmt.Errorf("failed to open warehouse: %w", err)
	}
	defer wh.Close()

	llm, err := newLLMClient(log, *providerFlag, *modelFlag, *ollamaURLFlag)
	if err != nil {
		return err
	}

	prompts, err := pipeline.LoadPrompts()
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	p, err := pipeline.New(&pipeline.Config{
		Logger:        log,
		LLM:           llm,
		Querier:       wh,
		SchemaFetcher: wh,
		Transformer:   transform.NewEvaluator(),
		Prompts:       prompts,
		MaxTokens:     defaultMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	result := p.Answer(ctx, question)

	fmt.Println()
	fmt.Println(result.Narrative)
	fmt.Println()

	if result.Table != nil && result.Table.Count > 0 {
		renderTable(*result.Table)
		fmt.Println()
	}

	switch {
	case result.Figure != nil && *showFigureFlag:
		b, err := json.MarshalIndent(result.Figure, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode figure: %w", err)
		}
		fmt.Println(string(b))
	case result.Figure != nil:
		fmt.Printf("Chart: %s %q (use --figure to print it as JSON)\n", result.Figure.Kind, result.Figure.Title)
	case result.Table != nil && result.Table.Count <= 1:
		fmt.Println("Chart skipped: single-value result.")
	}

	return nil
}

func newLLMClient(log *slog.Logger, provider, model, ollamaURL string) (pipeline.LLMClient, error) {
	switch provider {
	case "anthropic":
		if model == "" {
			model = defaultModel
		}
		return pipeline.NewAnthropicLLMClient(log, anthropic.Model(model), defaultMaxTokens), nil
	case "ollama":
		if model == "" {
			model = "llama3.1"
		}
		return pipeline.NewOllamaLLMClient(ollamaURL, model, defaultMaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (use anthropic or ollama)", provider)
	}
}

func renderTable(tbl warehouse.Table) {
	w := tablewriter.NewWriter(os.Stdout)
	w.SetAutoWrapText(false)
	w.SetAutoFormatHeaders(false)
	w.SetHeader(tbl.Columns)

	for _, row := range tbl.Rows {
		values := make([]string, len(tbl.Columns))
		for i, col := range tbl.Columns {
			values[i] = formatCell(row[col])
		}
		w.Append(values)
	}
	w.Render()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
