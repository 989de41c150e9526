package gps_test

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/weed_mapper/internal/gps"
)

type nopCloser struct {
	io.ReadWriter
}

func (nopCloser) Close() error { return nil }

func TestReaderSource_TrimsAndSkipsBlankLines(t *testing.T) {
	buf := bytes.NewBufferString("\r\n" + munichGGA + "\r\n\n$GPVTG,054.7,T\n")
	src := gps.NewReaderSource(nopCloser{buf})

	line, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, munichGGA, line)

	line, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, "$GPVTG,054.7,T", line)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMockSource_EmitsParseableSentences(t *testing.T) {
	clk := clock.NewMock()
	src := gps.NewMockSource(clk, 48.1173, -11.5167)
	gga := gps.NewGGAParser(clk)
	lib := gps.NewNMEAParser(clk)

	for i := 0; i < 20; i++ {
		line, err := src.Next()
		require.NoError(t, err)

		fix, ok := gga.Parse(line)
		require.True(t, ok, line)
		assert.InDelta(t, 48.1173, fix.Latitude, 0.001)
		assert.InDelta(t, -11.5167, fix.Longitude, 0.001)
		assert.InDelta(t, 545.4, fix.Altitude, 1e-9)

		_, ok = lib.Parse(line)
		assert.True(t, ok, line)

		clk.Add(3 * time.Second)
	}
}

func TestFix_JSONShape(t *testing.T) {
	captured := time.Date(2026, 5, 1, 10, 0, 0, 123456000, time.UTC)
	fix := gps.Fix{Latitude: 48.1173, Longitude: 11.5167, Altitude: 545.4, CapturedAt: captured}

	b, err := json.Marshal(fix)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.ElementsMatch(t, []string{"latitude", "longitude", "altitude", "timestamp"}, keys(raw))
	assert.InDelta(t, float64(captured.UnixMicro())/1e6, raw["timestamp"], 1e-6)

	var back gps.Fix
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.CapturedAt.Equal(captured))
	assert.InDelta(t, fix.Latitude, back.Latitude, 0)
}

func TestFix_Point(t *testing.T) {
	p := gps.Fix{Latitude: 48.1, Longitude: -11.5}.Point()
	assert.InDelta(t, 48.1, p.Lat(), 0)
	assert.InDelta(t, -11.5, p.Lng(), 0)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
