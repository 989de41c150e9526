package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/relabs-tech/weed_mapper/internal/detect"
	"github.com/relabs-tech/weed_mapper/internal/gps"
	"github.com/relabs-tech/weed_mapper/internal/ledger"
)

// MapperOptions are the knobs the mapping loop needs from the config.
type MapperOptions struct {
	TopicGPS       string
	TopicWeeds     string
	DetectInterval int // run the detector every N new fixes
	WeedMapPath    string
}

// Mapper ties the pieces together: NMEA lines feed the tracker, every
// new fix is published, and every DetectInterval fixes the detector runs
// and each detection is marked in the ledger at the current position.
type Mapper struct {
	source    gps.LineSource
	tracker   *gps.Tracker
	ledger    *ledger.Ledger
	processor *detect.Processor
	pub       Publisher
	opts      MapperOptions
	logger    *zap.SugaredLogger

	fixes int
}

func NewMapper(
	source gps.LineSource,
	tracker *gps.Tracker,
	l *ledger.Ledger,
	processor *detect.Processor,
	pub Publisher,
	opts MapperOptions,
	logger *zap.SugaredLogger,
) *Mapper {
	if opts.DetectInterval < 1 {
		opts.DetectInterval = 1
	}
	return &Mapper{
		source:    source,
		tracker:   tracker,
		ledger:    l,
		processor: processor,
		pub:       pub,
		opts:      opts,
		logger:    logger,
	}
}

// Run reads lines until ctx is cancelled or the source ends, then saves
// the weed map if anything was marked. Closing the source is the caller's
// job; closing it is also how a blocked serial read is interrupted.
func (m *Mapper) Run(ctx context.Context) error {
	runErr := m.loop(ctx)

	if m.ledger.Len() > 0 {
		if err := m.ledger.Persist(m.opts.WeedMapPath); err != nil {
			return errors.Join(runErr, err)
		}
		m.logger.Infof("saved %d weed location(s) to %s", m.ledger.Len(), m.opts.WeedMapPath)
	}
	return runErr
}

func (m *Mapper) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := m.source.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("GPS read error: %w", err)
		}

		m.Step(line)
	}
}

// Step handles one raw NMEA line.
func (m *Mapper) Step(line string) {
	fix, updated := m.tracker.Feed(line)
	if !updated {
		return
	}

	if err := m.pub.Publish(m.opts.TopicGPS, true, fix); err != nil {
		m.logger.Warnf("GPS publish error: %v", err)
	}
	m.logger.Debugf("published GPS fix: %+v", *fix)

	m.fixes++
	if m.fixes%m.opts.DetectInterval != 0 {
		return
	}

	// No camera frames are wired in yet; detectors see a nil frame.
	res, err := m.processor.ProcessFrame(nil)
	if err != nil {
		m.logger.Warnf("weed detection failed: %v", err)
		return
	}

	for _, d := range res.Detections {
		entry, ok := m.ledger.Mark(m.tracker.Current(), d.WeedType)
		if !ok {
			continue
		}
		if err := m.pub.Publish(m.opts.TopicWeeds, false, entry); err != nil {
			m.logger.Warnf("weed publish error: %v", err)
		}
	}
}
