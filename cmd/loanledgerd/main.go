package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"loanledger/config"
	"loanledger/gateway"
	"loanledger/observability/logging"
	"loanledger/processor"
	"loanledger/settings"
	"loanledger/storage"
)

// verbosity implements the repeatable -v flag.
type verbosity int

func (v *verbosity) String() string { return strconv.Itoa(int(*v)) }

func (v *verbosity) Set(s string) error {
	if s == "true" || s == "" {
		*v++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*v = verbosity(n)
	return nil
}

func (v *verbosity) IsBoolFlag() bool { return true }

func main() {
	var verbose verbosity
	configFile := flag.String("config", "./loanledgerd.toml", "Path to the configuration file")
	endpoint := flag.String("E", "", "Validator endpoint to serve transaction requests on")
	gatewayEndpoint := flag.String("G", "", "Local settlement gateway endpoint")
	flag.Var(&verbose, "v", "Increase log verbosity (repeatable)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *endpoint != "" {
		cfg.ValidatorEndpoint = *endpoint
	}
	if *gatewayEndpoint != "" {
		cfg.GatewayEndpoint = *gatewayEndpoint
	}

	logger := logging.Setup("loanledgerd", logging.Options{
		Verbosity:  int(verbose),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	registry := settings.NewRegistry(db, logger)
	registry.Start()
	defer registry.Stop()

	client := gateway.NewClient(cfg.GatewayEndpoint, registry, logger,
		gateway.WithTimeouts(cfg.LocalGatewayTimeout(), cfg.ExternalGatewayTimeout()))
	defer client.Close()

	handler := processor.NewHandler(client, registry, logger)
	server := processor.NewServer(cfg.ValidatorEndpoint, handler, db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Error("Server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
