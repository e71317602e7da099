package main

import (
	"flag"
	"fmt"
	"os"

	"KISChat/internal/app"
	"KISChat/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config file: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Trading-assistant server base URL")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the chat state database")
	flag.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for logs and telemetry output")
	flag.StringVar(&cfg.SessionID, "session-id", "", "Activate an existing session by ID")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	flag.Parse()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
