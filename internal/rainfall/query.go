package rainfall

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/forest-guardian/rainfall-cli/internal/period"
)

const (
	// NoData fills masked pixels of rendered layers.
	NoData = -9999.0

	maxPixels = int64(1e13)
)

var timeNow = time.Now

// Query describes the server-side rainfall computation for one region.
type Query struct {
	Dataset   string
	Band      string
	Scale     int
	Region    *earthengine.ValueNode
	RegionKey string
	Months    []period.MonthRange
}

func (q *Query) Validate() error {
	switch {
	case q.Dataset == "":
		return fmt.Errorf("rainfall dataset is required")
	case q.Band == "":
		return fmt.Errorf("rainfall band is required")
	case q.Region == nil:
		return fmt.Errorf("region geometry is required")
	case len(q.Months) == 0:
		return fmt.Errorf("at least one month is required")
	case q.Scale <= 0:
		return fmt.Errorf("scale must be positive")
	}
	return nil
}

// collection is the daily dataset restricted to the whole span and the region.
func (q *Query) collection(region *earthengine.ValueNode) *earthengine.ValueNode {
	start, end := period.Span(q.Months)
	byDate := earthengine.Filter(earthengine.LoadImageCollection(q.Dataset), earthengine.FilterDate(start, end))
	return earthengine.Filter(byDate, earthengine.FilterBounds(region))
}

// monthlyTotal sums the daily images of one month, clipped to the region and
// stamped with the month start.
func (q *Query) monthlyTotal(collection, region *earthengine.ValueNode, r period.MonthRange) *earthengine.ValueNode {
	month := earthengine.Filter(collection, earthengine.FilterDate(r.Start, r.End))
	// A month without daily images reduces to a zero-band image, so the total
	// keeps the reducer's "<band>_sum" name instead of being renamed.
	total := earthengine.Reduce(month, earthengine.ReducerSum())
	stamped := earthengine.Set(total, earthengine.TimeStartProperty, earthengine.Constant(r.Start.UnixMilli()))
	return earthengine.Clip(stamped, region)
}

// MonthlyMeanExpression evaluates to a dictionary holding the region mean of
// one month's total.
func (q *Query) MonthlyMeanExpression(r period.MonthRange) *earthengine.Expression {
	b := earthengine.NewBuilder()
	region := b.Define(q.Region)
	collection := b.Define(q.collection(region))

	total := q.monthlyTotal(collection, region, r)
	return b.Build(earthengine.ReduceRegion(total, earthengine.ReducerMean(), region, q.Scale, maxPixels))
}

// StartedMonths returns the months that have begun, the only ones the dataset
// can hold images for.
func (q *Query) StartedMonths() []period.MonthRange {
	now := timeNow()
	started := make([]period.MonthRange, 0, len(q.Months))
	for _, r := range q.Months {
		if r.Start.Before(now) {
			started = append(started, r)
		}
	}
	return started
}

// MeanImageExpression is the mean of the monthly totals of every started month,
// clipped to the region, with masked pixels set to NoData.
func (q *Query) MeanImageExpression() (*earthengine.Expression, error) {
	months := q.StartedMonths()
	if len(months) == 0 {
		return nil, fmt.Errorf("no month between %s and %s has started yet", q.Months[0].Key(), q.Months[len(q.Months)-1].Key())
	}

	b := earthengine.NewBuilder()
	region := b.Define(q.Region)
	collection := b.Define(q.collection(region))

	totals := make([]*earthengine.ValueNode, 0, len(months))
	for _, r := range months {
		totals = append(totals, q.monthlyTotal(collection, region, r))
	}

	mean := earthengine.Rename(earthengine.Reduce(earthengine.FromImages(totals...), earthengine.ReducerMean()), q.Band)
	return b.Build(earthengine.Unmask(earthengine.Clip(mean, region), NoData)), nil
}

// parseRegionMean reads the band value out of a reduceRegion dictionary. A
// null value means the region had no unmasked pixels that month.
func parseRegionMean(raw json.RawMessage, band string) (float64, bool, error) {
	var values map[string]*float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return 0, false, fmt.Errorf("unexpected reduceRegion result %s: %w", string(raw), err)
	}

	if len(values) == 0 {
		return 0, false, nil
	}
	value, ok := values[band]
	if !ok && len(values) == 1 {
		for _, v := range values {
			value = v
		}
		ok = true
	}
	if !ok {
		return 0, false, fmt.Errorf("band %s missing from reduceRegion result", band)
	}
	if value == nil {
		return 0, false, nil
	}
	return *value, true, nil
}
