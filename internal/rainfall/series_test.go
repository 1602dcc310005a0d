package rainfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/forest-guardian/rainfall-cli/internal/cache"
	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monthEvaluator answers reduceRegion requests with the month number of the
// requested month as the rainfall value.
type monthEvaluator struct {
	mu      sync.Mutex
	calls   int
	missing map[time.Month]bool
	empty   map[time.Month]bool
	failOn  time.Month
}

func monthOf(expr *earthengine.Expression) time.Time {
	root := expr.Values[expr.Result].FunctionInvocationValue
	clip := root.Arguments["image"].FunctionInvocationValue
	set := clip.Arguments["input"].FunctionInvocationValue
	return time.UnixMilli(set.Arguments["value"].ConstantValue.(int64)).UTC()
}

func (e *monthEvaluator) ComputeValue(_ context.Context, expr *earthengine.Expression) (json.RawMessage, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	month := monthOf(expr)
	if e.failOn != 0 && month.Month() == e.failOn {
		return nil, errors.New("computation timed out")
	}
	if e.empty[month.Month()] {
		return json.RawMessage(`{}`), nil
	}
	if e.missing[month.Month()] {
		return json.RawMessage(`{"precipitation": null}`), nil
	}
	return json.RawMessage(fmt.Sprintf(`{"precipitation": %d}`, int(month.Month()))), nil
}

func TestFetcher_FetchOrdersMonths(t *testing.T) {
	q := testQuery(t, 2018, 2024)
	ev := &monthEvaluator{missing: map[time.Month]bool{time.February: true}}

	series, err := NewFetcher(ev, q, FetcherOptions{Workers: 8}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, series.Points, 84)
	assert.Equal(t, 84, ev.calls)

	for i, p := range series.Points {
		assert.Equal(t, q.Months[i], p.Month)
		if p.Month.Start.Month() == time.February {
			assert.False(t, p.Valid)
			continue
		}
		assert.True(t, p.Valid)
		assert.Equal(t, float64(p.Month.Start.Month()), p.Value)
	}

	stats := series.Stats()
	assert.Equal(t, 84, stats.Months)
	assert.Equal(t, 77, stats.ValidMonths)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 12.0, stats.Max)
	assert.Equal(t, time.December, stats.Wettest.Month())
	assert.Equal(t, time.January, stats.Driest.Month())
}

func TestFetcher_UsesCache(t *testing.T) {
	q := testQuery(t, 2020, 2020)
	c := cache.NewFileCacheAt[*float64](t.TempDir())
	ev := &monthEvaluator{missing: map[time.Month]bool{time.March: true}}

	first, err := NewFetcher(ev, q, FetcherOptions{Workers: 3, Cache: c}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, ev.calls)

	second, err := NewFetcher(ev, q, FetcherOptions{Workers: 3, Cache: c}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, ev.calls)
	assert.Equal(t, first.Points, second.Points)
	assert.False(t, second.Points[2].Valid)
}

func TestFetcher_PropagatesFirstError(t *testing.T) {
	q := testQuery(t, 2019, 2019)
	ev := &monthEvaluator{failOn: time.July}

	_, err := NewFetcher(ev, q, FetcherOptions{Workers: 1}).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2019-07")
	assert.Contains(t, err.Error(), "computation timed out")
}

func TestFetcher_CancelledContext(t *testing.T) {
	q := testQuery(t, 2019, 2019)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(&monthEvaluator{}, q, FetcherOptions{Workers: 2}).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeriesStats_Empty(t *testing.T) {
	stats := (&Series{}).Stats()
	assert.Equal(t, 0, stats.ValidMonths)
	assert.Equal(t, 0.0, stats.Min)
	assert.Equal(t, 0.0, stats.Max)
}

func TestFetcher_EmptyReductionIsMissing(t *testing.T) {
	q := testQuery(t, 2021, 2021)
	ev := &monthEvaluator{empty: map[time.Month]bool{time.June: true, time.July: true}}

	series, err := NewFetcher(ev, q, FetcherOptions{Workers: 4}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, series.Points, 12)
	assert.False(t, series.Points[5].Valid)
	assert.False(t, series.Points[6].Valid)
	assert.Equal(t, 0.0, series.Points[5].Value)
	assert.Equal(t, 10, series.Stats().ValidMonths)
}

func TestFetcher_CurrentAndFutureMonths(t *testing.T) {
	defer func(now func() time.Time) { timeNow = now }(timeNow)
	timeNow = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }

	q := testQuery(t, 2024, 2024)
	c := cache.NewFileCacheAt[*float64](t.TempDir())
	ev := &monthEvaluator{}

	series, err := NewFetcher(ev, q, FetcherOptions{Workers: 4, Cache: c}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ev.calls)
	assert.True(t, series.Points[2].Valid)
	for _, p := range series.Points[3:] {
		assert.False(t, p.Valid)
	}

	_, err = NewFetcher(ev, q, FetcherOptions{Workers: 4, Cache: c}).Fetch(context.Background())
	require.NoError(t, err)
	// January and February come from the cache, March is still in progress.
	assert.Equal(t, 4, ev.calls)
}
