package output

import (
	"fmt"
	"os"

	"github.com/forest-guardian/rainfall-cli/internal/boundary"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// CreateBoundaryGeoJSON writes the boundary as a single feature carrying the
// monthly series and summary figures as properties.
func CreateBoundaryGeoJSON(b *boundary.Boundary, properties map[string]interface{}, outputPath string) error {
	feature := b.Feature()
	for k, v := range properties {
		feature.Properties[k] = v
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(feature)

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("error encoding GeoJSON: %w", err)
	}
	if err := ensureParent(outputPath); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("error creating GeoJSON file: %w", err)
	}
	logrus.Infof("GeoJSON file created at %s", outputPath)
	return nil
}
