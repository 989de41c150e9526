package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/relabs-tech/weed_mapper/internal/gps"
	"github.com/relabs-tech/weed_mapper/internal/metrics"
)

// UnknownWeed labels entries marked without a classification.
const UnknownWeed = "unknown"

// ErrPersist wraps every failure to write the weed map.
var ErrPersist = errors.New("weed map persist failed")

// WeedEntry is one marked weed location.
type WeedEntry struct {
	Position   gps.Fix   `json:"position"`
	RecordedAt time.Time `json:"timestamp"`
	WeedType   string    `json:"weed_type"`
}

// Ledger is the append-only, chronological list of weed marks for one
// session. All methods hold the same mutex for their whole duration, so
// List and Persist always see a prefix of the marks in order.
type Ledger struct {
	mu      sync.Mutex
	entries []WeedEntry

	clock   clock.Clock
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// New creates an empty ledger. A nil clock means wall time; a nil logger
// or metrics set discards what it would have recorded.
func New(clk clock.Clock, logger *zap.SugaredLogger, m *metrics.Metrics) *Ledger {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if m == nil {
		m = metrics.NewMetrics(prometheus.NewRegistry())
	}
	return &Ledger{
		entries: []WeedEntry{},
		clock:   clk,
		logger:  logger,
		metrics: m,
	}
}

// Mark records a weed at fix. With no fix there is nothing to record: it
// returns false and leaves the ledger alone. An empty weedType is stored
// as UnknownWeed. The fix is copied, so later changes to the caller's
// value do not reach the entry. Its capture time is kept in UTC at
// microsecond precision, which is what the weed map file can hold.
func (l *Ledger) Mark(fix *gps.Fix, weedType string) (WeedEntry, bool) {
	if fix == nil {
		l.metrics.MarksWithoutFix.Inc()
		l.logger.Debug("weed mark skipped: no GPS fix yet")
		return WeedEntry{}, false
	}
	if weedType == "" {
		weedType = UnknownWeed
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	position := *fix
	position.CapturedAt = position.CapturedAt.UTC().Truncate(time.Microsecond)
	entry := WeedEntry{
		Position:   position,
		RecordedAt: l.clock.Now().UTC().Round(0),
		WeedType:   weedType,
	}
	l.entries = append(l.entries, entry)
	n := len(l.entries)

	l.metrics.WeedsMarked.WithLabelValues(weedType).Inc()
	l.metrics.LedgerEntries.Set(float64(n))
	l.logger.Infow("weed marked",
		"weed_type", weedType,
		"lat", fix.Latitude,
		"lon", fix.Longitude,
		"entries", n,
	)
	return entry, true
}

// List returns a copy of every entry in mark order.
func (l *Ledger) List() []WeedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]WeedEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Persist writes the whole ledger to path as a JSON array. The file is
// written next to path and renamed over it, so a crash mid-write leaves
// the previous map intact.
func (l *Ledger) Persist(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return l.persistFailed(path, err)
	}
	if err := writeFileAtomic(path, b); err != nil {
		return l.persistFailed(path, err)
	}

	l.logger.Infow("weed map saved", "path", path, "entries", len(l.entries))
	return nil
}

func (l *Ledger) persistFailed(path string, err error) error {
	l.metrics.PersistFailures.Inc()
	l.logger.Errorw("weed map save failed", "path", path, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrPersist, path, err)
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load reads a weed map written by Persist. Entries stored with a null
// weed_type come back as UnknownWeed.
func Load(path string) ([]WeedEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weed map: %w", err)
	}

	var entries []WeedEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode weed map %s: %w", path, err)
	}
	for i := range entries {
		if entries[i].WeedType == "" {
			entries[i].WeedType = UnknownWeed
		}
	}
	if entries == nil {
		entries = []WeedEntry{}
	}
	return entries, nil
}
