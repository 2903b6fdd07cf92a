// Command console runs the boutique back-office console: a local HTTP
// surface over the checkout and fulfillment core, acting as a client
// of the remote commerce API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/atelierpos/atelier/internal/cart"
	"github.com/atelierpos/atelier/internal/checkout"
	"github.com/atelierpos/atelier/internal/commerce"
	"github.com/atelierpos/atelier/internal/config"
	"github.com/atelierpos/atelier/internal/console"
	"github.com/atelierpos/atelier/internal/fiscal"
	"github.com/atelierpos/atelier/internal/loyalty"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (default: ~/.atelier/config.yaml)")
		port       = flag.Int("port", 0, "HTTP listen port (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := run(*configPath, *port, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "console:", err)
		os.Exit(1)
	}
}

func run(configPath string, port int, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Console.Port = port
	}

	client := commerce.NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.API.APISecret, cfg.API.Timeout, logger)
	cartStore := cart.NewStore(cfg.Cart.SnapshotPath, logger)
	validator := checkout.NewValidator(client, logger)
	orchestrator := checkout.NewOrchestrator(cartStore, client, validator, logger)
	tracker := fiscal.NewTracker(client, logger)
	ledger, err := loyalty.NewLedger(client, cfg.Earning, logger)
	if err != nil {
		return err
	}

	handler := console.NewHandler(cartStore, client, validator, orchestrator, tracker, ledger, logger)
	return console.NewServer(handler, cfg.Console.Port, logger).Serve()
}
