package boundary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/forest-guardian/rainfall-cli/internal/cache"
	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/sirupsen/logrus"
)

type Evaluator interface {
	ComputeValue(ctx context.Context, expr *earthengine.Expression) (json.RawMessage, error)
}

// Source resolves country boundaries from a hosted boundary table.
type Source struct {
	evaluator Evaluator
	dataset   string
	field     string
	cache     cache.CacheService[string]
}

func NewSource(evaluator Evaluator, dataset, field string, c cache.CacheService[string]) *Source {
	if c == nil {
		c = cache.Disabled[string]{}
	}
	return &Source{
		evaluator: evaluator,
		dataset:   dataset,
		field:     field,
		cache:     c,
	}
}

// RegionNode is the server-side geometry of the table rows matching value.
func RegionNode(dataset, field, value string) *earthengine.ValueNode {
	table := earthengine.Filter(earthengine.LoadTable(dataset), earthengine.FilterEquals(field, value))
	return earthengine.CollectionGeometry(table)
}

func (s *Source) Fetch(ctx context.Context, country string) (*Boundary, error) {
	node := RegionNode(s.dataset, s.field, country)
	key := s.cache.GenerateKey(s.dataset, s.field, country)

	log := logrus.WithFields(logrus.Fields{"dataset": s.dataset, "country": country})

	if cached, ok := s.cache.Get(key); ok {
		log.Debug("boundary served from cache")
		return s.decode(country, []byte(cached), node)
	}

	result, err := s.evaluator.ComputeValue(ctx, earthengine.Build(node))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch boundary for %s: %w", country, err)
	}
	if len(bytes.TrimSpace(result)) == 0 || bytes.Equal(bytes.TrimSpace(result), []byte("null")) {
		return nil, fmt.Errorf("no boundary found for %s=%s in %s", s.field, country, s.dataset)
	}

	b, err := s.decode(country, result, node)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(key, string(result)); err != nil {
		log.Warnf("failed to cache boundary: %v", err)
	}
	log.Info("boundary fetched")
	return b, nil
}

func (s *Source) decode(country string, data []byte, node *earthengine.ValueNode) (*Boundary, error) {
	geometry, err := parseGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("boundary for %s: %w", country, err)
	}
	return &Boundary{Name: country, Geometry: geometry, remote: node}, nil
}
