package gps

import (
	"encoding/json"
	"math"
	"time"

	geo "github.com/kellydunn/golang-geo"
)

// Fix represents a single decoded GPS position suitable for JSON and MQTT.
type Fix struct {
	Latitude   float64   // decimal degrees, south negative
	Longitude  float64   // decimal degrees, west negative
	Altitude   float64   // meters, 0 when the sentence omits it
	CapturedAt time.Time // when the sentence was parsed
}

// fixJSON is the wire shape. The timestamp is float seconds since the epoch
// so existing map tooling can read it unchanged.
type fixJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Timestamp float64 `json:"timestamp"`
}

func (f Fix) MarshalJSON() ([]byte, error) {
	return json.Marshal(fixJSON{
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Altitude:  f.Altitude,
		Timestamp: float64(f.CapturedAt.UnixMicro()) / 1e6,
	})
}

func (f *Fix) UnmarshalJSON(b []byte) error {
	var raw fixJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f.Latitude = raw.Latitude
	f.Longitude = raw.Longitude
	f.Altitude = raw.Altitude
	f.CapturedAt = time.UnixMicro(int64(math.Round(raw.Timestamp * 1e6))).UTC()
	return nil
}

// Point returns the fix as a geo point for distance math.
func (f Fix) Point() *geo.Point {
	return geo.NewPoint(f.Latitude, f.Longitude)
}
