package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/weed_mapper/internal/detect"
	"github.com/relabs-tech/weed_mapper/internal/gps"
	"github.com/relabs-tech/weed_mapper/internal/ledger"
	"github.com/relabs-tech/weed_mapper/internal/metrics"
)

const gga = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"

type sliceSource struct {
	lines []string
	err   error // returned once lines run out, io.EOF when nil
}

func (s *sliceSource) Next() (string, error) {
	if len(s.lines) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *sliceSource) Close() error { return nil }

type published struct {
	topic    string
	retained bool
	v        any
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(topic string, retained bool, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic, retained, v})
	return p.err
}

func (p *recordingPublisher) on(topic string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, m := range p.msgs {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

type mapperRig struct {
	mapper  *Mapper
	ledger  *ledger.Ledger
	pub     *recordingPublisher
	metrics *metrics.Metrics
	path    string
}

func newRig(t *testing.T, src gps.LineSource, det detect.Detector, interval int) *mapperRig {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	clk := clock.NewMock()

	tracker := gps.NewTracker(gps.NewGGAParser(clk), logger, m)
	l := ledger.New(clk, logger, m)
	proc := detect.NewProcessor(det, nil, clk, logger, m)
	pub := &recordingPublisher{}
	path := filepath.Join(t.TempDir(), "weed_map.json")

	mapper := NewMapper(src, tracker, l, proc, pub, MapperOptions{
		TopicGPS:       "weeder/gps",
		TopicWeeds:     "weeder/weeds",
		DetectInterval: interval,
		WeedMapPath:    path,
	}, logger)

	return &mapperRig{mapper: mapper, ledger: l, pub: pub, metrics: m, path: path}
}

func TestMapper_PublishesFixesAndMarksWeeds(t *testing.T) {
	src := &sliceSource{lines: []string{gga, "garbage", gga, gga, gga}}
	rig := newRig(t, src, detect.SimulatedDetector{WeedType: "thistle"}, 2)

	require.NoError(t, rig.mapper.Run(context.Background()))

	fixes := rig.pub.on("weeder/gps")
	require.Len(t, fixes, 4)
	for _, m := range fixes {
		assert.True(t, m.retained)
		fix, ok := m.v.(*gps.Fix)
		require.True(t, ok)
		assert.InDelta(t, 48.1173, fix.Latitude, 1e-4)
	}

	weeds := rig.pub.on("weeder/weeds")
	require.Len(t, weeds, 2)
	for _, m := range weeds {
		assert.False(t, m.retained)
		entry, ok := m.v.(ledger.WeedEntry)
		require.True(t, ok)
		assert.Equal(t, "thistle", entry.WeedType)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(rig.metrics.SentencesRejected))
	assert.Equal(t, 2.0, testutil.ToFloat64(rig.metrics.WeedsMarked.WithLabelValues("thistle")))

	saved, err := ledger.Load(rig.path)
	require.NoError(t, err)
	assert.Equal(t, rig.ledger.List(), saved)
}

func TestMapper_NoDetectionsWritesNoFile(t *testing.T) {
	rig := newRig(t, &sliceSource{lines: []string{gga, gga, gga}}, detect.NoopDetector{}, 1)

	require.NoError(t, rig.mapper.Run(context.Background()))

	assert.Len(t, rig.pub.on("weeder/gps"), 3)
	assert.Empty(t, rig.pub.on("weeder/weeds"))
	_, err := os.Stat(rig.path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMapper_NoFixNoMark(t *testing.T) {
	rig := newRig(t, &sliceSource{lines: []string{"$GPGGA,123519,,N,,E,0,00,,,M,,M,,*47"}}, detect.SimulatedDetector{}, 1)

	require.NoError(t, rig.mapper.Run(context.Background()))
	assert.Empty(t, rig.pub.msgs)
	assert.Zero(t, rig.ledger.Len())
}

func TestMapper_PublishErrorsDoNotStopMapping(t *testing.T) {
	rig := newRig(t, &sliceSource{lines: []string{gga, gga}}, detect.SimulatedDetector{}, 1)
	rig.pub.err = errors.New("broker gone")

	require.NoError(t, rig.mapper.Run(context.Background()))
	assert.Equal(t, 2, rig.ledger.Len())
}

func TestMapper_ReadErrorIsReturnedAfterSaving(t *testing.T) {
	readErr := errors.New("device unplugged")
	rig := newRig(t, &sliceSource{lines: []string{gga}, err: readErr}, detect.SimulatedDetector{}, 1)

	err := rig.mapper.Run(context.Background())
	assert.ErrorIs(t, err, readErr)

	saved, loadErr := ledger.Load(rig.path)
	require.NoError(t, loadErr)
	assert.Len(t, saved, 1)
}

func TestMapper_PersistFailure(t *testing.T) {
	rig := newRig(t, &sliceSource{lines: []string{gga}}, detect.SimulatedDetector{}, 1)
	rig.mapper.opts.WeedMapPath = filepath.Join(t.TempDir(), "missing", "weed_map.json")

	err := rig.mapper.Run(context.Background())
	assert.ErrorIs(t, err, ledger.ErrPersist)
	assert.Equal(t, 1.0, testutil.ToFloat64(rig.metrics.PersistFailures))
}

func TestMapper_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &sliceSource{lines: []string{gga}}
	rig := newRig(t, src, detect.NoopDetector{}, 1)

	require.NoError(t, rig.mapper.Run(ctx))
	assert.Len(t, src.lines, 1, "nothing read after cancellation")
}

func TestNewMapper_ClampsInterval(t *testing.T) {
	rig := newRig(t, &sliceSource{}, detect.NoopDetector{}, 0)
	assert.Equal(t, 1, rig.mapper.opts.DetectInterval)
}

func TestPacedSource_CloseWakesNext(t *testing.T) {
	src := newPacedSource(&sliceSource{lines: []string{gga}}, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		_, err := src.Next()
		errCh <- err
	}()

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(5 * time.Second):
		t.Fatal("Next still blocked after Close")
	}
}

func TestPacedSource_OneLinePerTick(t *testing.T) {
	src := newPacedSource(&sliceSource{lines: []string{gga, gga}}, time.Millisecond)
	defer src.Close()

	line, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, gga, line)
}
