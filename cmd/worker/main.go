package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"nextfinance/internal/logger"
	"nextfinance/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := worker.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()
	log := logger.Named("worker")

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	pipeline := worker.NewPipelineClient(cfg.APIURL, cfg.PipelineAPIKey, httpClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := worker.NewRunner(pipeline, cfg.MaxAttempts, log).Run(ctx, cfg.Jobs)

	log.Infow("worker run completed", "jobs", len(results))

	if worker.Failed(results) {
		logger.Sync()
		os.Exit(2)
	}
}
