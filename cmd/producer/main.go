package main

import (
	"log"

	"github.com/relabs-tech/weed_mapper/internal/app"
	"github.com/relabs-tech/weed_mapper/internal/config"
	"github.com/relabs-tech/weed_mapper/internal/logging"
)

func main() {
	log.Println("starting weed-mapper producer (mock NMEA, simulated weeds)")

	// Load configuration
	cfg, err := config.Load("weed_mapper_config.txt")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewLogger("producer", cfg.LogDebug)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := app.RunProducer(cfg, logger); err != nil {
		logging.Fatal(logger, err)
	}
}
