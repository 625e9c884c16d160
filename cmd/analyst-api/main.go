// Command analyst-api serves the analysis pipeline over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/darkrai19/ai-powered-analyst/pkg/logger"
	"github.com/darkrai19/ai-powered-analyst/pkg/pipeline"
	"github.com/darkrai19/ai-powered-analyst/pkg/server"
	"github.com/darkrai19/ai-powered-analyst/pkg/transform"
	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

const (
	defaultDBPath     = "analytics.duckdb"
	defaultListenAddr = ":8080"
	defaultModel      = string(anthropic.ModelClaude3_5Haiku20241022)
	defaultOllamaURL  = "http://localhost:11434"
	defaultMaxTokens  = 4096
	defaultAskTimeout = 2 * time.Minute
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
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "HTTP listen address")
	providerFlag := flag.String("provider", "anthropic", "LLM provider: anthropic or ollama")
	modelFlag := flag.String("model", "", "model name (defaults per provider)")
	ollamaURLFlag := flag.String("ollama-url", defaultOllamaURL, "Ollama server URL")
	askTimeoutFlag := flag.Duration("ask-timeout", defaultAskTimeout, "per-question analysis timeout")
	originsFlag := flag.StringSlice("allowed-origins", []string{"http://localhost:5173"}, "CORS allowed origins")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	flag.Parse()

	log := logger.New(*verboseFlag)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	wh, err := warehouse.Open(*dbPathFlag, log)
	if err != nil {
		return fmt.Errorf("failed to open warehouse: %w", err)
	}
	defer wh.Close()

	var llm pipeline.LLMClient
	switch *providerFlag {
	case "anthropic":
		model := *modelFlag
		if model == "" {
			model = defaultModel
		}
		llm = pipeline.NewAnthropicLLMClient(log, anthropic.Model(model), defaultMaxTokens)
	case "ollama":
		model := *modelFlag
		if model == "" {
			model = "llama3.1"
		}
		llm = pipeline.NewOllamaLLMClient(*ollamaURLFlag, model, defaultMaxTokens)
	default:
		return fmt.Errorf("unknown provider %q (use anthropic or ollama)", *providerFlag)
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

	srv, err := server.New(server.Config{
		Logger:         log,
		Pipeline:       p,
		Addr:           *listenAddrFlag,
		AllowedOrigins: *originsFlag,
		AskTimeout:     *askTimeoutFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}
