package app

import (
	"fmt"
	"io"
	"sort"

	"github.com/relabs-tech/weed_mapper/internal/ledger"
)

// RunWeedMap prints a summary of a saved weed map followed by every entry.
func RunWeedMap(path string, out io.Writer) error {
	entries, err := ledger.Load(path)
	if err != nil {
		return err
	}
	return writeWeedMapReport(out, path, entries)
}

func writeWeedMapReport(out io.Writer, path string, entries []ledger.WeedEntry) error {
	s := ledger.Summarize(entries)

	fmt.Fprintf(out, "Weed map %s: %d location(s)\n", path, s.Count)
	if s.Count == 0 {
		return nil
	}

	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(out, "  %-12s %d\n", t, s.ByType[t])
	}

	fmt.Fprintf(out, "Area: lat %.6f..%.6f lon %.6f..%.6f\n", s.MinLat, s.MaxLat, s.MinLon, s.MaxLon)
	fmt.Fprintf(out, "Path: %.1f m from %s to %s\n",
		s.PathMeters, s.First.Format("2006-01-02 15:04:05"), s.Last.Format("2006-01-02 15:04:05"))

	for i, e := range entries {
		_, err := fmt.Fprintf(out, "%3d. %.6f, %.6f  %s\n", i+1, e.Position.Latitude, e.Position.Longitude, e.WeedType)
		if err != nil {
			return err
		}
	}
	return nil
}
