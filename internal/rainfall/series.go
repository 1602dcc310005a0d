package rainfall

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/forest-guardian/rainfall-cli/internal/cache"
	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/forest-guardian/rainfall-cli/internal/period"
	"github.com/forest-guardian/rainfall-cli/internal/utils"
	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

type Evaluator interface {
	ComputeValue(ctx context.Context, expr *earthengine.Expression) (json.RawMessage, error)
}

// Point is the region mean of one month's total rainfall in mm. Valid is false
// when the platform had no data for the month.
type Point struct {
	Month period.MonthRange
	Value float64
	Valid bool
}

type Series struct {
	Points []Point
}

type Stats struct {
	Months      int
	ValidMonths int
	Min         float64
	Max         float64
	Mean        float64
	Wettest     time.Time
	Driest      time.Time
}

func (s *Series) Stats() Stats {
	stats := Stats{Months: len(s.Points), Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, p := range s.Points {
		if !p.Valid {
			continue
		}
		stats.ValidMonths++
		sum += p.Value
		if p.Value < stats.Min {
			stats.Min = p.Value
			stats.Driest = p.Month.Start
		}
		if p.Value > stats.Max {
			stats.Max = p.Value
			stats.Wettest = p.Month.Start
		}
	}
	if stats.ValidMonths == 0 {
		stats.Min, stats.Max = 0, 0
		return stats
	}
	stats.Mean = sum / float64(stats.ValidMonths)
	return stats
}

type FetcherOptions struct {
	Workers      int
	Cache        cache.CacheService[*float64]
	ShowProgress bool
}

// Fetcher requests one region mean per month.
type Fetcher struct {
	evaluator Evaluator
	query     *Query
	workers   int
	cache     *cache.MonthlyValues
	progress  bool
}

func NewFetcher(evaluator Evaluator, query *Query, opts FetcherOptions) *Fetcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Fetcher{
		evaluator: evaluator,
		query:     query,
		workers:   opts.Workers,
		cache:     cache.NewMonthlyValues(opts.Cache),
		progress:  opts.ShowProgress,
	}
}

func (f *Fetcher) Fetch(ctx context.Context) (*Series, error) {
	if err := f.query.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var bar *progressbar.ProgressBar
	if f.progress {
		bar = progressbar.Default(int64(len(f.query.Months)), "Fetching monthly rainfall")
	} else {
		bar = progressbar.DefaultSilent(int64(len(f.query.Months)))
	}

	results := make(map[time.Time]Point, len(f.query.Months))
	errChan := make(chan error, 1)
	var stopProcessing sync.Once

	wp := workerpool.New(f.workers)
	for _, month := range f.query.Months {
		m := month
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			point, err := f.fetchMonth(ctx, m)
			if err != nil {
				stopProcessing.Do(func() {
					errChan <- fmt.Errorf("month %s: %w", m.Key(), err)
					cancel()
				})
				return
			}
			utils.ExecuteWithMutex(func() {
				results[m.Start] = point
				bar.Add(1)
			})
		})
	}

	go func() {
		wp.StopWait()
		close(errChan)
	}()

	if err := <-errChan; err != nil {
		return nil, fmt.Errorf("error fetching monthly rainfall: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bar.Finish()

	series := &Series{Points: make([]Point, 0, len(results))}
	for _, month := range utils.GetSortedKeys(results, true) {
		series.Points = append(series.Points, results[month])
	}

	stats := series.Stats()
	logrus.WithFields(logrus.Fields{
		"months":       stats.Months,
		"valid_months": stats.ValidMonths,
		"mean_mm":      fmt.Sprintf("%.2f", stats.Mean),
	}).Info("monthly rainfall series fetched")

	return series, nil
}

func (f *Fetcher) fetchMonth(ctx context.Context, month period.MonthRange) (Point, error) {
	q := f.query
	key := cache.MonthKey{Dataset: q.Dataset, Band: q.Band, Region: q.RegionKey, Scale: q.Scale, Month: month.Key()}
	point := Point{Month: month}

	if !month.Start.Before(timeNow()) {
		return point, nil
	}

	if value, valid, hit := f.cache.Lookup(key); hit {
		point.Value, point.Valid = value, valid
		return point, nil
	}

	raw, err := f.evaluator.ComputeValue(ctx, q.MonthlyMeanExpression(month))
	if err != nil {
		return point, err
	}

	value, valid, err := parseRegionMean(raw, q.Band)
	if err != nil {
		return point, err
	}
	point.Value, point.Valid = value, valid

	// The current month keeps changing until it ends.
	if month.End.After(timeNow()) {
		return point, nil
	}

	if err := f.cache.Store(key, value, valid); err != nil {
		logrus.Warnf("failed to cache month %s: %v", month.Key(), err)
	}
	return point, nil
}
