package ui

import (
	"fmt"

	"github.com/forest-guardian/rainfall-cli/internal/delivery"
)

// ListBoundaries handles the UI for viewing the list of local boundary files
func ListBoundaries() {
	names, err := delivery.ListBoundaryFiles()
	if err != nil {
		PrintError(fmt.Sprintf("Error reading geojsons folder: %s", err.Error()))
		return
	}

	PrintWarning("To add a new boundary, add its '.geojson' file at 'data/geojsons' folder.")

	if len(names) == 0 {
		fmt.Printf("\n%sNo boundary files found.%s\n", ColorYellow, ColorReset)
		return
	}
	fmt.Printf("\n%sAvailable boundaries:%s\n", ColorGreen, ColorReset)
	for _, name := range names {
		fmt.Printf("%s- %s%s\n", ColorGreen, name, ColorReset)
	}
}

// ShowBoundary fetches a country boundary and prints its extent.
func ShowBoundary(s *Session) {
	cfg := *s.config
	cfg.Analysis.BoundaryFile = ""
	cfg.Analysis.Country = ReadStringDefault("Enter the country name", s.config.Analysis.Country)

	platform, err := s.Platform()
	if err != nil {
		PrintError(err.Error())
		return
	}
	b, err := delivery.LoadBoundary(s.ctx, &cfg, platform)
	if err != nil {
		PrintError(err.Error())
		return
	}
	PrintSuccess(delivery.DescribeBoundary(b))
}
