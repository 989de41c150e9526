// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"math"

	"github.com/benbjohnson/clock"
)

// MockSource synthesizes $GPGGA lines walking a slow circle around a field
// center, so the mapper can run on a bench without a receiver.
type MockSource struct {
	clock     clock.Clock
	startTime int64
	centerLat float64
	centerLon float64
	radiusDeg float64
	altitude  float64
}

// NewMockSource creates a mock line source centered on lat/lon.
func NewMockSource(clk clock.Clock, lat, lon float64) *MockSource {
	if clk == nil {
		clk = clock.New()
	}
	return &MockSource{
		clock:     clk,
		startTime: clk.Now().UnixNano(),
		centerLat: lat,
		centerLon: lon,
		radiusDeg: 0.0005,
		altitude:  545.4,
	}
}

func (m *MockSource) Next() (string, error) {
	now := m.clock.Now()
	elapsed := float64(now.UnixNano()-m.startTime) / 1e9

	lat := m.centerLat + m.radiusDeg*math.Sin(elapsed*0.1)
	lon := m.centerLon + m.radiusDeg*math.Cos(elapsed*0.1)

	latStr, latHemi := formatDegMin(lat, 2, "N", "S")
	lonStr, lonHemi := formatDegMin(lon, 3, "E", "W")

	payload := fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,08,0.9,%.1f,M,46.9,M,,",
		now.UTC().Format("150405.00"), latStr, latHemi, lonStr, lonHemi, m.altitude)
	return fmt.Sprintf("$%s*%02X", payload, Checksum(payload)), nil
}

func (m *MockSource) Close() error { return nil }

// formatDegMin is the inverse of decodeDegMin.
func formatDegMin(v float64, degWidth int, pos, neg string) (string, string) {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	deg := math.Floor(v)
	mins := (v - deg) * 60
	return fmt.Sprintf("%0*d%07.4f", degWidth, int(deg), mins), hemi
}

// Checksum is the NMEA XOR of every byte between '$' and '*'.
func Checksum(payload string) byte {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}
