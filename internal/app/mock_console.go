// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/relabs-tech/weed_mapper/internal/gps"
	"github.com/relabs-tech/weed_mapper/internal/metrics"
)

// RunMockConsole prints the mock receiver's fixes without MQTT or
// hardware. It stops after n fixes, or never when n is 0.
func RunMockConsole(parserKind string, n int, logger *zap.SugaredLogger) error {
	src := gps.NewMockSource(nil, mockCenterLat, mockCenterLon)
	tracker := gps.NewTracker(gps.NewParser(parserKind, nil), logger, metrics.NewMetrics(prometheus.NewRegistry()))

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; n == 0 || i < n; i++ {
		<-ticker.C
		line, err := src.Next()
		if err != nil {
			return err
		}

		fix, ok := tracker.Feed(line)
		if !ok {
			fmt.Printf("rejected: %s\n", line)
			continue
		}
		fmt.Println(formatFix(*fix))
	}
	return nil
}
