package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/forest-guardian/rainfall-cli/internal/cache"
	"github.com/forest-guardian/rainfall-cli/internal/config"
	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/forest-guardian/rainfall-cli/internal/weather"
)

// NewPlatformClient authenticates with the configured service account. The
// key's project is used when EE_PROJECT is not set.
func NewPlatformClient(ctx context.Context, cfg *config.Config) (*earthengine.Client, error) {
	ee := cfg.EarthEngine
	httpClient, projectID, err := earthengine.NewServiceAccountHTTPClient(ctx, ee.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with Earth Engine: %w", err)
	}
	project := ee.Project
	if project == "" {
		project = projectID
	}
	return earthengine.NewClient(earthengine.Options{
		BaseURL:        ee.BaseURL,
		Project:        project,
		HTTPClient:     httpClient,
		Timeout:        ee.Timeout,
		Retries:        ee.Retries,
		InitialBackoff: ee.InitialBackoff,
		MaxBackoff:     ee.MaxBackoff,
	})
}

// NewStationSource returns nil when the station comparison is disabled.
func NewStationSource(cfg *config.Config) StationSource {
	if !cfg.Station.Enabled {
		return nil
	}
	var c cache.CacheService[weather.DailyPrecipitation] = cache.Disabled[weather.DailyPrecipitation]{}
	if !cfg.Analysis.NoCache {
		// The archive backfills the most recent days late.
		c = cache.NewFileCache[weather.DailyPrecipitation]("weather").WithMaxAge(7 * 24 * time.Hour)
	}
	return weather.NewClient(weather.Options{
		BaseURL: cfg.Station.URL,
		Retries: cfg.Station.Retries,
		Cache:   c,
	})
}
