package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/forest-guardian/rainfall-cli/internal/boundary"
	"github.com/forest-guardian/rainfall-cli/internal/cache"
	"github.com/forest-guardian/rainfall-cli/internal/config"
	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/forest-guardian/rainfall-cli/internal/period"
	"github.com/forest-guardian/rainfall-cli/internal/properties"
	"github.com/forest-guardian/rainfall-cli/internal/rainfall"
	"github.com/forest-guardian/rainfall-cli/internal/raster"
	"github.com/forest-guardian/rainfall-cli/internal/weather"
	"github.com/forest-guardian/rainfall-cli/output"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const legendTitle = "Rainfall (mm)"

// Platform is the part of the Earth Engine client the analysis needs.
type Platform interface {
	ComputeValue(ctx context.Context, expr *earthengine.Expression) (json.RawMessage, error)
	ComputePixels(ctx context.Context, req earthengine.PixelsRequest) ([]byte, error)
}

type StationSource interface {
	FetchMonthlyTotals(ctx context.Context, latitude, longitude float64, months []period.MonthRange) ([]weather.MonthlyTotal, error)
}

type Deps struct {
	Platform Platform
	// Station is optional; nil skips the station comparison.
	Station StationSource
	// DecodeRaster persists GeoTIFF bytes at path and decodes them.
	DecodeRaster func(data []byte, path string) (*raster.Raster, error)
	ShowProgress bool
}

type Files struct {
	SeriesCSV string
	Chart     string
	MeanTIFF  string
	MeanMap   string
	GeoJSON   string
}

type Result struct {
	Boundary *boundary.Boundary
	Months   []period.MonthRange
	Series   *rainfall.Series
	Stats    rainfall.Stats
	Station  []weather.MonthlyTotal
	Mean     *raster.Raster
	Files    Files
}

func RunRainfallAnalysis(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	if deps.Platform == nil {
		return nil, fmt.Errorf("platform client is required")
	}
	if deps.DecodeRaster == nil {
		deps.DecodeRaster = raster.Save
	}

	a := cfg.Analysis
	months, err := period.MonthRanges(a.StartYear, a.EndYear)
	if err != nil {
		return nil, err
	}
	palette, err := output.NewPalette(cfg.Vis.Min, cfg.Vis.Max, cfg.Vis.Palette)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	b, err := LoadBoundary(ctx, cfg, deps.Platform)
	if err != nil {
		return nil, fmt.Errorf("error loading boundary: %w", err)
	}

	query := &rainfall.Query{
		Dataset:   a.Dataset,
		Band:      a.Band,
		Scale:     a.Scale,
		Region:    b.Node(),
		RegionKey: regionKey(cfg),
		Months:    months,
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	name := b.Name
	if name == "" {
		name = a.Country
	}
	label := period.Label(months)
	resultDir := properties.ResultPath(name)
	result := &Result{
		Boundary: b,
		Months:   months,
		Files: Files{
			SeriesCSV: filepath.Join(resultDir, "monthly_rainfall.csv"),
			Chart:     filepath.Join(resultDir, "monthly_rainfall.png"),
			MeanTIFF:  filepath.Join(resultDir, "mean_rainfall.tif"),
			MeanMap:   filepath.Join(resultDir, "mean_rainfall.png"),
			GeoJSON:   filepath.Join(resultDir, "boundary.geojson"),
		},
	}

	log := logrus.WithFields(logrus.Fields{"region": name, "period": label})
	log.Info("starting rainfall analysis")

	var seriesCache cache.CacheService[*float64] = cache.Disabled[*float64]{}
	if !a.NoCache {
		seriesCache = cache.NewFileCache[*float64]("rainfall")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fetcher := rainfall.NewFetcher(deps.Platform, query, rainfall.FetcherOptions{
			Workers:      a.Workers,
			Cache:        seriesCache,
			ShowProgress: deps.ShowProgress,
		})
		series, err := fetcher.Fetch(gctx)
		if err != nil {
			return err
		}
		result.Series = series
		return nil
	})

	g.Go(func() error {
		mean, err := renderMeanLayer(gctx, deps, query, b, a.MapWidth, result.Files.MeanTIFF)
		if err != nil {
			return fmt.Errorf("error rendering mean rainfall layer: %w", err)
		}
		result.Mean = mean
		return output.CreateMapImage(mean, b, palette, output.MapOptions{
			Title:       fmt.Sprintf("Mean Monthly Rainfall in %s (%s)", name, label),
			LegendTitle: legendTitle,
		}, result.Files.MeanMap)
	})

	if deps.Station != nil {
		g.Go(func() error {
			centroid, err := b.Centroid()
			if err != nil {
				log.Warnf("station comparison skipped: %v", err)
				return nil
			}
			totals, err := deps.Station.FetchMonthlyTotals(gctx, centroid.Lat(), centroid.Lon(), months)
			if err != nil {
				log.Warnf("station comparison skipped: %v", err)
				return nil
			}
			result.Station = totals
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Stats = result.Series.Stats()

	if err := output.SaveSeriesCSV(seriesRows(result), result.Files.SeriesCSV); err != nil {
		return nil, err
	}
	if result.Stats.ValidMonths == 0 {
		log.Warn("no month has rainfall data, chart skipped")
		result.Files.Chart = ""
	} else if err := output.CreateSeriesChart(chartLines(result), output.ChartOptions{
		Title: fmt.Sprintf("Monthly Rainfall in %s (%s)", name, label),
	}, result.Files.Chart); err != nil {
		return nil, err
	}
	if err := output.CreateBoundaryGeoJSON(b, geoJSONProperties(result, label), result.Files.GeoJSON); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"valid_months": result.Stats.ValidMonths,
		"mean_mm":      fmt.Sprintf("%.2f", result.Stats.Mean),
		"elapsed":      time.Since(start).Round(time.Millisecond),
	}).Info("rainfall analysis finished")

	return result, nil
}

func renderMeanLayer(ctx context.Context, deps Deps, query *rainfall.Query, b *boundary.Boundary, width int, path string) (*raster.Raster, error) {
	grid, err := raster.GridFor(b.Bound(), width)
	if err != nil {
		return nil, err
	}
	expr, err := query.MeanImageExpression()
	if err != nil {
		return nil, err
	}
	data, err := deps.Platform.ComputePixels(ctx, earthengine.PixelsRequest{
		Expression: expr,
		FileFormat: earthengine.FormatGeoTIFF,
		Grid:       grid,
	})
	if err != nil {
		return nil, err
	}
	r, err := deps.DecodeRaster(data, path)
	if err != nil {
		return nil, err
	}
	if !r.HasNoData {
		r.NoData, r.HasNoData = rainfall.NoData, true
	}
	return r, nil
}

func regionKey(cfg *config.Config) string {
	a := cfg.Analysis
	if a.BoundaryFile != "" {
		return "file:" + a.BoundaryFile + ":" + a.Country
	}
	return a.BoundaryDataset + ":" + a.BoundaryField + ":" + a.Country
}

func stationByMonth(totals []weather.MonthlyTotal) map[time.Time]weather.MonthlyTotal {
	byMonth := make(map[time.Time]weather.MonthlyTotal, len(totals))
	for _, t := range totals {
		byMonth[t.Month.Start] = t
	}
	return byMonth
}

func seriesRows(result *Result) []output.SeriesRow {
	station := stationByMonth(result.Station)
	rows := make([]output.SeriesRow, 0, len(result.Series.Points))
	for _, p := range result.Series.Points {
		s := station[p.Month.Start]
		rows = append(rows, output.NewSeriesRow(p.Month.Start, p.Month.End, p.Value, p.Valid, s.Value, s.Valid))
	}
	return rows
}

func chartLines(result *Result) []output.Line {
	chirps := output.Line{Name: "CHIRPS"}
	for _, p := range result.Series.Points {
		if p.Valid {
			chirps.Points = append(chirps.Points, output.LinePoint{Time: p.Month.Start, Value: p.Value})
		}
	}
	lines := []output.Line{chirps}

	if len(result.Station) > 0 {
		station := output.Line{Name: "Station (Open-Meteo)"}
		for _, t := range result.Station {
			if t.Valid {
				station.Points = append(station.Points, output.LinePoint{Time: t.Month.Start, Value: t.Value})
			}
		}
		if len(station.Points) > 0 {
			lines = append(lines, station)
		}
	}
	return lines
}

func geoJSONProperties(result *Result, label string) map[string]interface{} {
	monthly := make(map[string]interface{}, len(result.Series.Points))
	for _, p := range result.Series.Points {
		if p.Valid {
			monthly[p.Month.Key()] = p.Value
		} else {
			monthly[p.Month.Key()] = nil
		}
	}
	props := map[string]interface{}{
		"period":       label,
		"months":       result.Stats.Months,
		"valid_months": result.Stats.ValidMonths,
		"mean_mm":      result.Stats.Mean,
		"min_mm":       result.Stats.Min,
		"max_mm":       result.Stats.Max,
		"monthly_mm":   monthly,
	}
	if result.Stats.ValidMonths > 0 {
		props["wettest_month"] = result.Stats.Wettest.Format("2006-01")
		props["driest_month"] = result.Stats.Driest.Format("2006-01")
	}
	return props
}
