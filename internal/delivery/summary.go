package delivery

import (
	"fmt"
	"strings"

	"github.com/forest-guardian/rainfall-cli/internal/boundary"
	"github.com/forest-guardian/rainfall-cli/internal/period"
)

// DescribeBoundary formats the extent and centroid of a boundary.
func DescribeBoundary(b *boundary.Boundary) string {
	bound := b.Bound()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Boundary: %s\n", b.Name)
	fmt.Fprintf(&sb, "Polygons: %d\n", len(b.Polygons()))
	fmt.Fprintf(&sb, "Bounds: lon %.4f..%.4f, lat %.4f..%.4f\n", bound.Min.Lon(), bound.Max.Lon(), bound.Min.Lat(), bound.Max.Lat())
	if c, err := b.Centroid(); err == nil {
		fmt.Fprintf(&sb, "Centroid: lon %.4f, lat %.4f\n", c.Lon(), c.Lat())
	}
	return sb.String()
}

// Summary formats the outcome of an analysis for the terminal and notifications.
func Summary(result *Result) string {
	var sb strings.Builder
	s := result.Stats
	fmt.Fprintf(&sb, "Region: %s (%s)\n", result.Boundary.Name, period.Label(result.Months))
	fmt.Fprintf(&sb, "Months with data: %d/%d\n", s.ValidMonths, s.Months)
	if s.ValidMonths > 0 {
		fmt.Fprintf(&sb, "Mean monthly rainfall: %.2f mm\n", s.Mean)
		fmt.Fprintf(&sb, "Wettest month: %s (%.2f mm)\n", s.Wettest.Format("2006-01"), s.Max)
		fmt.Fprintf(&sb, "Driest month: %s (%.2f mm)\n", s.Driest.Format("2006-01"), s.Min)
	}
	if len(result.Station) > 0 {
		fmt.Fprintf(&sb, "Station comparison: %d months\n", len(result.Station))
	}
	fmt.Fprintf(&sb, "Series: %s\n", result.Files.SeriesCSV)
	if result.Files.Chart != "" {
		fmt.Fprintf(&sb, "Chart: %s\n", result.Files.Chart)
	}
	fmt.Fprintf(&sb, "Map: %s\n", result.Files.MeanMap)
	fmt.Fprintf(&sb, "GeoJSON: %s", result.Files.GeoJSON)
	return sb.String()
}
