package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forest-guardian/rainfall-cli/internal/boundary"
	"github.com/forest-guardian/rainfall-cli/internal/cache"
	"github.com/forest-guardian/rainfall-cli/internal/config"
	"github.com/forest-guardian/rainfall-cli/internal/properties"
)

// LoadBoundary reads the local boundary override when one is configured and
// otherwise fetches the country geometry from the boundary table.
func LoadBoundary(ctx context.Context, cfg *config.Config, evaluator boundary.Evaluator) (*boundary.Boundary, error) {
	a := cfg.Analysis
	if a.BoundaryFile != "" {
		path, err := resolveBoundaryFile(a.BoundaryFile)
		if err != nil {
			return nil, err
		}
		field := a.BoundaryField
		if a.Country == "" {
			field = ""
		}
		return boundary.LoadFile(path, field, a.Country)
	}

	if evaluator == nil {
		return nil, fmt.Errorf("no platform client available to fetch the boundary of %s", a.Country)
	}

	var c cache.CacheService[string] = cache.Disabled[string]{}
	if !a.NoCache {
		c = cache.NewFileCache[string]("boundary")
	}
	return boundary.NewSource(evaluator, a.BoundaryDataset, a.BoundaryField, c).Fetch(ctx, a.Country)
}

// resolveBoundaryFile accepts a path or a bare name under data/geojsons.
func resolveBoundaryFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	if filepath.Ext(name) == "" {
		path := properties.GeoJSONPath(name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("boundary file %s not found", name)
}

// ListBoundaryFiles returns the names of the GeoJSON files under data/geojsons.
func ListBoundaryFiles() ([]string, error) {
	matches, err := filepath.Glob(properties.DataPath("geojsons", "*.geojson"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		names = append(names, base[:len(base)-len(filepath.Ext(base))])
	}
	return names, nil
}
