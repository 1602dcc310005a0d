package boundary

import (
	"errors"
	"fmt"

	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var ErrEmptyGeometry = errors.New("boundary geometry is empty")

// Boundary is a country outline. When it was resolved on the platform the
// server-side definition is kept so requests reference it instead of
// uploading every vertex.
type Boundary struct {
	Name     string
	Geometry orb.Geometry
	remote   *earthengine.ValueNode
}

func New(name string, geometry orb.Geometry) (*Boundary, error) {
	if geometry == nil || len(Polygons(geometry)) == 0 {
		return nil, ErrEmptyGeometry
	}
	return &Boundary{Name: name, Geometry: geometry}, nil
}

func (b *Boundary) Bound() orb.Bound {
	return b.Geometry.Bound()
}

func (b *Boundary) Centroid() (orb.Point, error) {
	centroid, area := planar.CentroidArea(b.Geometry)
	if area <= 0 {
		return orb.Point{}, errors.New("error getting centroid")
	}
	return centroid, nil
}

func (b *Boundary) Polygons() []orb.Polygon {
	return Polygons(b.Geometry)
}

// Node returns the platform geometry for the boundary.
func (b *Boundary) Node() *earthengine.ValueNode {
	if b.remote != nil {
		return b.remote
	}
	polygons := b.Polygons()
	if len(polygons) == 1 {
		return earthengine.Invoke("GeometryConstructors.Polygon", map[string]*earthengine.ValueNode{
			"coordinates": earthengine.Constant(polygons[0]),
			"geodesic":    earthengine.Constant(false),
		})
	}
	return earthengine.Invoke("GeometryConstructors.MultiPolygon", map[string]*earthengine.ValueNode{
		"coordinates": earthengine.Constant(orb.MultiPolygon(polygons)),
		"geodesic":    earthengine.Constant(false),
	})
}

func (b *Boundary) Feature() *geojson.Feature {
	feature := geojson.NewFeature(b.Geometry)
	feature.Properties["name"] = b.Name
	return feature
}

// Polygons flattens polygonal parts of g; points and lines are dropped.
func Polygons(g orb.Geometry) []orb.Polygon {
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) == 0 {
			return nil
		}
		return []orb.Polygon{geom}
	case orb.MultiPolygon:
		polygons := make([]orb.Polygon, 0, len(geom))
		for _, p := range geom {
			if len(p) > 0 {
				polygons = append(polygons, p)
			}
		}
		return polygons
	case orb.Collection:
		var polygons []orb.Polygon
		for _, part := range geom {
			polygons = append(polygons, Polygons(part)...)
		}
		return polygons
	case orb.Bound:
		return []orb.Polygon{geom.ToPolygon()}
	default:
		return nil
	}
}

func merge(geometries []orb.Geometry) (orb.Geometry, error) {
	var polygons orb.MultiPolygon
	for _, g := range geometries {
		polygons = append(polygons, Polygons(g)...)
	}
	switch len(polygons) {
	case 0:
		return nil, ErrEmptyGeometry
	case 1:
		return polygons[0], nil
	default:
		return polygons, nil
	}
}

func parseGeometry(data []byte) (orb.Geometry, error) {
	geometry, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse boundary GeoJSON: %w", err)
	}
	return merge([]orb.Geometry{geometry.Geometry()})
}
