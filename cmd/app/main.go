package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"SignalDesk/internal/di"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	tickers := flag.String("tickers", "", "comma separated tickers for the pivot engine, overrides config")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	var explicit usecase.ExplicitTickers
	if *tickers != "" {
		explicit = strings.Split(*tickers, ",")
	}

	app, err := di.InitializeApp(cfg, explicit)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Printf("app error: %v", err)
		stop()
		os.Exit(1)
	}
}
