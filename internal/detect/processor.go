package detect

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/relabs-tech/weed_mapper/internal/metrics"
)

// Result is the outcome of processing one frame.
type Result struct {
	Timestamp  time.Time   `json:"timestamp"`
	Detections []Detection `json:"detections"`
	WeedCount  int         `json:"weed_count"`
}

// Processor runs a Detector over frames, fills in missing weed types with
// a Classifier and keeps a running detection count.
type Processor struct {
	mu    sync.Mutex
	count int

	detector   Detector
	classifier Classifier
	clock      clock.Clock
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
}

// NewProcessor wires a detector and classifier. A nil clock means wall
// time; a nil classifier labels everything Unknown. A nil logger or
// metrics set discards what it would have recorded.
func NewProcessor(det Detector, cls Classifier, clk clock.Clock, logger *zap.SugaredLogger, m *metrics.Metrics) *Processor {
	if clk == nil {
		clk = clock.New()
	}
	if cls == nil {
		cls = UnknownClassifier{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if m == nil {
		m = metrics.NewMetrics(prometheus.NewRegistry())
	}
	return &Processor{detector: det, classifier: cls, clock: clk, logger: logger, metrics: m}
}

func (p *Processor) ProcessFrame(frame image.Image) (Result, error) {
	res := Result{Timestamp: p.clock.Now().UTC(), Detections: []Detection{}}

	dets, err := p.detector.Detect(frame)
	if err != nil {
		return res, fmt.Errorf("weed detection: %w", err)
	}
	if len(dets) == 0 {
		p.logger.Debug("no weeds in frame")
		return res, nil
	}

	for i := range dets {
		if dets[i].WeedType == "" {
			dets[i].WeedType = p.classifier.Classify(dets[i])
		}
	}
	res.Detections = dets
	res.WeedCount = len(dets)

	p.mu.Lock()
	p.count += len(dets)
	p.mu.Unlock()

	p.metrics.Detections.Add(float64(len(dets)))
	p.logger.Infof("detected %d weed(s)", len(dets))
	return res, nil
}

// Count returns the number of weeds detected since start or the last Reset.
func (p *Processor) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (p *Processor) Reset() {
	p.mu.Lock()
	p.count = 0
	p.mu.Unlock()
	p.logger.Info("detection count reset")
}
