package ledger

import "time"

// Summary describes a weed map at a glance.
type Summary struct {
	Count  int            `json:"count"`
	ByType map[string]int `json:"by_type"`

	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`

	// PathMeters is the great-circle distance walked from mark to mark.
	PathMeters float64 `json:"path_m"`

	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

func Summarize(entries []WeedEntry) Summary {
	s := Summary{Count: len(entries), ByType: map[string]int{}}
	if len(entries) == 0 {
		return s
	}

	first := entries[0]
	s.MinLat, s.MaxLat = first.Position.Latitude, first.Position.Latitude
	s.MinLon, s.MaxLon = first.Position.Longitude, first.Position.Longitude
	s.First = first.RecordedAt
	s.Last = entries[len(entries)-1].RecordedAt

	for i, e := range entries {
		s.ByType[e.WeedType]++

		p := e.Position
		s.MinLat = min(s.MinLat, p.Latitude)
		s.MaxLat = max(s.MaxLat, p.Latitude)
		s.MinLon = min(s.MinLon, p.Longitude)
		s.MaxLon = max(s.MaxLon, p.Longitude)

		if i > 0 {
			// GreatCircleDistance is in km
			s.PathMeters += entries[i-1].Position.Point().GreatCircleDistance(p.Point()) * 1000
		}
	}
	return s
}
