package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/relabs-tech/weed_mapper/internal/config"
	"github.com/relabs-tech/weed_mapper/internal/detect"
	"github.com/relabs-tech/weed_mapper/internal/gps"
	"github.com/relabs-tech/weed_mapper/internal/ledger"
	"github.com/relabs-tech/weed_mapper/internal/metrics"
)

// Field the mock receiver circles around.
const (
	mockCenterLat = 48.1173
	mockCenterLon = 11.5167
)

// RunMapper opens the GPS serial port, maps weeds while fixes arrive and
// publishes fixes and weed marks as JSON over MQTT. The weed map is saved
// on Ctrl+C.
func RunMapper(cfg *config.Config, logger *zap.SugaredLogger) error {
	src, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
	if err != nil {
		return err
	}
	logger.Infof("GPS serial port opened on %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)

	return runMapping(cfg, src, detect.NoopDetector{}, logger)
}

// RunProducer runs the same pipeline on the mock NMEA source, one
// sentence per second, with a detector that finds a dandelion at every
// detection pass.
func RunProducer(cfg *config.Config, logger *zap.SugaredLogger) error {
	src := newPacedSource(gps.NewMockSource(nil, mockCenterLat, mockCenterLon), time.Second)
	logger.Info("using mock NMEA source")

	return runMapping(cfg, src, detect.SimulatedDetector{WeedType: "dandelion"}, logger)
}

func runMapping(cfg *config.Config, src gps.LineSource, det detect.Detector, logger *zap.SugaredLogger) error {
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	go serveMetrics(ctx, cfg.MetricsPort, reg, logger)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDMapper, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	tracker := gps.NewTracker(gps.NewParser(cfg.GPSParser, nil), logger.Named("gps"), m)
	weeds := ledger.New(nil, logger.Named("ledger"), m)
	proc := detect.NewProcessor(det, nil, nil, logger.Named("detect"), m)

	mapper := NewMapper(src, tracker, weeds, proc, NewMQTTPublisher(client), MapperOptions{
		TopicGPS:       cfg.TopicGPS,
		TopicWeeds:     cfg.TopicWeeds,
		DetectInterval: cfg.DetectInterval,
		WeedMapPath:    cfg.WeedMapPath,
	}, logger)

	// A serial read blocks until data arrives; closing the port is the
	// only way to wake it on shutdown.
	go func() {
		<-ctx.Done()
		_ = src.Close()
	}()

	logger.Info("reading GPS positions, press Ctrl+C to stop and save the weed map")
	err = mapper.Run(ctx)
	logger.Infof("mapping stopped: %d weed(s) detected", proc.Count())
	return err
}

func serveMetrics(ctx context.Context, port int, reg *prometheus.Registry, logger *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("metrics listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("metrics server: %v", err)
	}
}

// pacedSource hands out at most one line per tick. Close wakes a pending
// Next, which then reports io.EOF.
type pacedSource struct {
	gps.LineSource
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func newPacedSource(src gps.LineSource, every time.Duration) *pacedSource {
	return &pacedSource{LineSource: src, ticker: time.NewTicker(every), done: make(chan struct{})}
}

func (p *pacedSource) Next() (string, error) {
	select {
	case <-p.done:
		return "", io.EOF
	case <-p.ticker.C:
		return p.LineSource.Next()
	}
}

func (p *pacedSource) Close() error {
	var err error
	p.once.Do(func() {
		p.ticker.Stop()
		close(p.done)
		err = p.LineSource.Close()
	})
	return err
}
