package gps

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

// Parser turns one newline-stripped NMEA line into a Fix.
// ok is false when the line carries no usable position. GPS receivers emit
// plenty of those while searching for satellites, so it is not an error.
type Parser interface {
	Parse(sentence string) (fix Fix, ok bool)
}

const ggaTalker = "$GPGGA"

// GGA field indexes (comma split, talker at 0).
const (
	ggaLat     = 2
	ggaLatHemi = 3
	ggaLon     = 4
	ggaLonHemi = 5
	ggaAlt     = 9
)

// GGAParser accepts only $GPGGA sentences and performs no checksum
// validation. Any malformed field rejects the whole sentence.
type GGAParser struct {
	clock clock.Clock
}

// NewGGAParser returns a strict GPGGA parser. A nil clock means wall time.
func NewGGAParser(clk clock.Clock) *GGAParser {
	if clk == nil {
		clk = clock.New()
	}
	return &GGAParser{clock: clk}
}

// ParseGGA parses a sentence with a wall-clock capture time.
func ParseGGA(sentence string) (Fix, bool) {
	return NewGGAParser(nil).Parse(sentence)
}

func (p *GGAParser) Parse(sentence string) (Fix, bool) {
	fields := strings.Split(sentence, ",")
	if fields[0] != ggaTalker || len(fields) <= ggaAlt {
		return Fix{}, false
	}
	if fields[ggaLat] == "" || fields[ggaLon] == "" {
		return Fix{}, false
	}

	lat, ok := decodeDegMin(fields[ggaLat], fields[ggaLatHemi] == "S")
	if !ok || lat < -90 || lat > 90 {
		return Fix{}, false
	}
	lon, ok := decodeDegMin(fields[ggaLon], fields[ggaLonHemi] == "W")
	if !ok || lon < -180 || lon > 180 {
		return Fix{}, false
	}

	// Empty altitude is allowed; garbage is not.
	alt := 0.0
	if fields[ggaAlt] != "" {
		alt, ok = parseFinite(fields[ggaAlt])
		if !ok {
			return Fix{}, false
		}
	}

	return Fix{
		Latitude:   lat,
		Longitude:  lon,
		Altitude:   alt,
		CapturedAt: p.clock.Now().UTC().Truncate(time.Microsecond),
	}, true
}

// decodeDegMin converts DDMM.mmmm / DDDMM.mmmm into decimal degrees:
//
//	deg = floor(R / 100)
//	min = R - deg*100
//	dec = deg + min/60
func decodeDegMin(raw string, negate bool) (float64, bool) {
	r, ok := parseFinite(raw)
	if !ok || r < 0 {
		return 0, false
	}
	deg := math.Floor(r / 100)
	mins := r - deg*100
	dec := deg + mins/60
	if negate {
		dec = -dec
	}
	return dec, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
