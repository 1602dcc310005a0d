package ui

import (
	"fmt"
	"strings"

	"github.com/forest-guardian/rainfall-cli/internal/config"
	"github.com/forest-guardian/rainfall-cli/internal/delivery"
	"github.com/forest-guardian/rainfall-cli/internal/notification"
)

// AnalyzeCountry handles the UI for the monthly rainfall analysis of a country
// from the hosted boundary table.
func AnalyzeCountry(s *Session) {
	cfg := *s.config
	cfg.Analysis.BoundaryFile = ""
	cfg.Analysis.Country = ReadStringDefault("Enter the country name", s.config.Analysis.Country)
	runAnalysis(s, &cfg)
}

// AnalyzeBoundaryFile handles the UI for an analysis over a local GeoJSON
// boundary.
func AnalyzeBoundaryFile(s *Session) {
	PrintWarning("- A '.geojson' file with the boundary should be present in data/geojsons folder.\n" +
		"- Features are selected by the '" + s.config.Analysis.BoundaryField + "' property; leave the name empty to use all of them.")
	ListBoundaries()

	cfg := *s.config
	cfg.Analysis.BoundaryFile = ReadString("Enter the boundary file name: ")
	if cfg.Analysis.BoundaryFile == "" {
		PrintError("boundary file name cannot be empty")
		return
	}
	cfg.Analysis.Country = ReadString("Enter the region name (empty for all features): ")
	if cfg.Analysis.Country == "" {
		cfg.Analysis.Country = strings.TrimSuffix(cfg.Analysis.BoundaryFile, ".geojson")
		cfg.Analysis.BoundaryField = ""
	}
	runAnalysis(s, &cfg)
}

func runAnalysis(s *Session, cfg *config.Config) {
	start, end, err := ReadYearSpan(cfg.Analysis.StartYear, cfg.Analysis.EndYear)
	if err != nil {
		PrintError(err.Error())
		return
	}
	cfg.Analysis.StartYear, cfg.Analysis.EndYear = start, end
	if err := cfg.Validate(); err != nil {
		PrintError(err.Error())
		return
	}

	platform, err := s.Platform()
	if err != nil {
		PrintError(err.Error())
		return
	}

	result, err := delivery.RunRainfallAnalysis(s.ctx, cfg, delivery.Deps{
		Platform:     platform,
		Station:      delivery.NewStationSource(cfg),
		ShowProgress: true,
	})
	if err != nil {
		PrintError(fmt.Sprintf("Error analyzing rainfall: %s", err.Error()))
		if nerr := notification.SendDiscordErrorNotification(fmt.Sprintf("Rainfall CLI\n\nError analyzing rainfall for %s: %s", cfg.Analysis.Country, err.Error())); nerr != nil {
			PrintError(fmt.Sprintf("Failed to send notification: %s", nerr.Error()))
		}
		return
	}

	summary := delivery.Summary(result)
	PrintSuccess("Successful analysis!\n" + summary)
	if err := notification.SendDiscordSuccessNotification("Rainfall CLI\n\n" + summary); err != nil {
		PrintError(fmt.Sprintf("Failed to send notification: %s", err.Error()))
	}
}
