// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/weed_mapper/internal/app"
	"github.com/relabs-tech/weed_mapper/internal/config"
	"github.com/relabs-tech/weed_mapper/internal/logging"
)

func main() {
	log.Println("starting weed-mapper web server (MQTT subscriber)")

	// Load configuration
	cfg, err := config.Load("weed_mapper_config.txt")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewLogger("web", cfg.LogDebug)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	log.Println("Note: live data requires the mapper or producer to be running")

	if err := app.RunWeb(cfg, logger); err != nil {
		logging.Fatal(logger, err)
	}
}
