package gps

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/relabs-tech/weed_mapper/internal/metrics"
)

// Tracker keeps the last known fix. Lines that fail to parse leave it
// untouched, so a receiver that drops its fix still reports the last
// good position.
type Tracker struct {
	mu      sync.RWMutex
	parser  Parser
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	current *Fix
}

// NewTracker wraps parser. A nil logger or metrics set discards what it
// would have recorded.
func NewTracker(parser Parser, logger *zap.SugaredLogger, m *metrics.Metrics) *Tracker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if m == nil {
		m = metrics.NewMetrics(prometheus.NewRegistry())
	}
	return &Tracker{parser: parser, logger: logger, metrics: m}
}

// Feed parses one line. It returns the last known fix (nil before the
// first good sentence) and whether this line produced a new one.
func (t *Tracker) Feed(line string) (*Fix, bool) {
	fix, ok := t.parser.Parse(line)

	t.mu.Lock()
	defer t.mu.Unlock()

	if !ok {
		t.metrics.SentencesRejected.Inc()
		t.logger.Debugw("nmea sentence rejected", "line", line)
		return t.copyCurrent(), false
	}

	t.metrics.SentencesParsed.Inc()
	t.current = &fix
	return t.copyCurrent(), true
}

// Current returns a copy of the last known fix, or nil.
func (t *Tracker) Current() *Fix {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.copyCurrent()
}

func (t *Tracker) copyCurrent() *Fix {
	if t.current == nil {
		return nil
	}
	f := *t.current
	return &f
}
