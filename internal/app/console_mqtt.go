package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/relabs-tech/weed_mapper/internal/config"
	"github.com/relabs-tech/weed_mapper/internal/gps"
	"github.com/relabs-tech/weed_mapper/internal/ledger"
)

func RunConsoleMQTT(cfg *config.Config, logger *zap.SugaredLogger) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, logger)
	if err != nil {
		return err
	}

	// Subscribe to GPS
	if err := subscribeJSON(client, cfg.TopicGPS, logger, func(f gps.Fix) {
		fmt.Println(formatFix(f))
	}); err != nil {
		return err
	}

	// Subscribe to weed marks
	if err := subscribeJSON(client, cfg.TopicWeeds, logger, func(e ledger.WeedEntry) {
		fmt.Println(formatWeed(e))
	}); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("console shutting down")
	client.Disconnect(250)
	return nil
}

func formatFix(f gps.Fix) string {
	return fmt.Sprintf(
		"[GPS ]  time=%s lat=%.6f lon=%.6f alt=%.1fm",
		f.CapturedAt.Format("15:04:05.000"), f.Latitude, f.Longitude, f.Altitude,
	)
}

func formatWeed(e ledger.WeedEntry) string {
	return fmt.Sprintf(
		"[WEED]  time=%s lat=%.6f lon=%.6f type=%s",
		e.RecordedAt.Format("15:04:05.000"), e.Position.Latitude, e.Position.Longitude, e.WeedType,
	)
}
