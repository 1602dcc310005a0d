package boundary

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadFile reads a GeoJSON FeatureCollection, Feature or bare geometry. For
// collections, features whose property field equals value are kept; an empty
// field keeps every feature.
func LoadFile(path, field, value string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("error decoding GEOJSON: %w", err)
	}

	name := value
	var geometries []orb.Geometry

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("error decoding GEOJSON: %w", err)
		}
		for _, feature := range fc.Features {
			if field != "" && feature.Properties.MustString(field, "") != value {
				continue
			}
			geometries = append(geometries, feature.Geometry)
		}
		if len(geometries) == 0 {
			return nil, fmt.Errorf("no feature with %s=%s in %s", field, value, path)
		}
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("error decoding GEOJSON: %w", err)
		}
		if name == "" {
			name = feature.Properties.MustString(field, "")
		}
		geometries = append(geometries, feature.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("error decoding GEOJSON: %w", err)
		}
		geometries = append(geometries, g.Geometry())
	}

	geometry, err := merge(geometries)
	if err != nil {
		return nil, err
	}
	return New(name, geometry)
}
