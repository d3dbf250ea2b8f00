package main

import (
	"flag"
	"log"
	"os"

	"CommuteTrends/internal/di"
	"CommuteTrends/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment overrides")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath, *envFile)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s config_source=%s driver=%s", cfg.Environment, cfg.ConfigSource, cfg.Database.Driver)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
