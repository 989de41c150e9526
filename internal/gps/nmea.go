package gps

import (
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/benbjohnson/clock"
)

// NMEAParser is the library-backed parser variant. It validates checksums,
// accepts any talker (GP, GN, GL...) and understands both GGA and RMC.
// RMC carries no altitude, so fixes built from it report 0.
type NMEAParser struct {
	clock clock.Clock
}

// NewNMEAParser returns a go-nmea backed parser. A nil clock means wall time.
func NewNMEAParser(clk clock.Clock) *NMEAParser {
	if clk == nil {
		clk = clock.New()
	}
	return &NMEAParser{clock: clk}
}

func (p *NMEAParser) Parse(sentence string) (Fix, bool) {
	s, err := nmea.Parse(sentence)
	if err != nil {
		return Fix{}, false
	}

	var fix Fix
	switch s.DataType() {
	case nmea.TypeGGA:
		m := s.(nmea.GGA)
		if m.FixQuality == "" || m.FixQuality == nmea.Invalid {
			return Fix{}, false
		}
		fix = Fix{Latitude: m.Latitude, Longitude: m.Longitude, Altitude: m.Altitude}

	case nmea.TypeRMC:
		m := s.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			return Fix{}, false
		}
		fix = Fix{Latitude: m.Latitude, Longitude: m.Longitude}

	default:
		// GSA, GSV, VTG and friends carry no position
		return Fix{}, false
	}

	if fix.Latitude < -90 || fix.Latitude > 90 || fix.Longitude < -180 || fix.Longitude > 180 {
		return Fix{}, false
	}
	fix.CapturedAt = p.clock.Now().UTC().Truncate(time.Microsecond)
	return fix, true
}

// NewParser picks a parser variant by name: "gga" (strict $GPGGA, the
// default) or "nmea" (checksummed GGA+RMC from any talker).
func NewParser(kind string, clk clock.Clock) Parser {
	if kind == "nmea" {
		return NewNMEAParser(clk)
	}
	return NewGGAParser(clk)
}
