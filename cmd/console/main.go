// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/weed_mapper/internal/app"
	"github.com/relabs-tech/weed_mapper/internal/logging"
)

func main() {
	parser := flag.String("parser", "gga", "sentence parser: gga or nmea")
	count := flag.Int("n", 0, "stop after n fixes (0 runs forever)")
	flag.Parse()

	log.Println("starting weed-mapper (mock console)")

	logger, err := logging.NewLogger("console", false)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := app.RunMockConsole(*parser, *count, logger); err != nil {
		logging.Fatal(logger, err)
	}
}
