// Command etl loads the raw orders CSV into a DuckDB star schema.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/darkrai19/ai-powered-analyst/pkg/etl"
	"github.com/darkrai19/ai-powered-analyst/pkg/logger"
	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

const (
	defaultDBPath  = "analytics.duckdb"
	defaultCSVPath = "orders.csv"
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
	csvPathFlag := flag.String("csv", defaultCSVPath, "path to the raw orders CSV")
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

	if err := etl.Build(ctx, log, wh.DB(), *csvPathFlag); err != nil {
		return fmt.Errorf("etl failed: %w", err)
	}

	log.Info("etl: warehouse built", "db", *dbPathFlag, "csv", *csvPathFlag)
	return nil
}
