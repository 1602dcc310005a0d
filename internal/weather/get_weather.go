package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/forest-guardian/rainfall-cli/internal/cache"
	"github.com/forest-guardian/rainfall-cli/internal/period"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const DefaultArchiveURL = "https://archive-api.open-meteo.com/v1/archive"

type DailyData struct {
	Time          []string   `json:"time"`
	Precipitation []*float64 `json:"precipitation_sum"`
}

type WeatherResponse struct {
	Daily DailyData `json:"daily"`
}

// DailyPrecipitation maps a "2006-01-02" date to the day's precipitation in mm.
// Days the archive has no value for are absent.
type DailyPrecipitation map[string]float64

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Retries is the number of attempts after the first one.
	Retries        int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Cache          cache.CacheService[DailyPrecipitation]
}

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// rejectedError is a response retrying cannot fix.
type rejectedError struct{ status int }

func (e *rejectedError) Error() string {
	return fmt.Sprintf("archive returned status %d", e.status)
}

// Client reads daily station-equivalent precipitation from the Open-Meteo
// historical archive.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	retries        int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	circuit        *gobreaker.CircuitBreaker
	cache          cache.CacheService[DailyPrecipitation]
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultArchiveURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: time.Minute}
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 2 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.Cache == nil {
		opts.Cache = cache.Disabled[DailyPrecipitation]{}
	}
	return &Client{
		baseURL:        opts.BaseURL,
		httpClient:     opts.HTTPClient,
		retries:        opts.Retries,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "open-meteo-archive",
			MaxRequests: 1,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				var rejected *rejectedError
				return err == nil || errors.As(err, &rejected)
			},
		}),
		cache: opts.Cache,
	}
}

// FetchPrecipitation returns daily precipitation sums for [startDate, endDate],
// both inclusive.
func (c *Client) FetchPrecipitation(ctx context.Context, latitude, longitude float64, startDate, endDate time.Time) (DailyPrecipitation, error) {
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s is before start date %s", endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	cacheKey := c.cache.GenerateKey(fmt.Sprintf("%f_%f_%s_%s", latitude, longitude, startDate.Format("2006-01-02"), endDate.Format("2006-01-02")))
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(latitude, 'f', 6, 64))
	params.Set("longitude", strconv.FormatFloat(longitude, 'f', 6, 64))
	params.Set("start_date", startDate.Format("2006-01-02"))
	params.Set("end_date", endDate.Format("2006-01-02"))
	params.Set("daily", "precipitation_sum")
	params.Set("timezone", "UTC")
	requestURL := c.baseURL + "?" + params.Encode()

	data, err := c.getWithResilience(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(cacheKey, data); err != nil {
		logrus.Warnf("failed to cache precipitation: %v", err)
	}
	return data, nil
}

// getWithResilience retries rate limits, server and transport errors with
// exponential backoff behind the client's circuit breaker.
func (c *Client) getWithResilience(ctx context.Context, requestURL string) (DailyPrecipitation, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			return c.get(ctx, requestURL)
		})
		if err == nil {
			return result.(DailyPrecipitation), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable(err) {
			return nil, err
		}
		if attempt >= c.retries {
			return nil, fmt.Errorf("failed to retrieve precipitation after %d attempts: %w", attempt+1, err)
		}

		delay := c.initialBackoff * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.maxBackoff {
			delay = c.maxBackoff
		}
		logrus.Warnf("failed to retrieve precipitation: %v. Retrying in %s (%d/%d)", err, delay, attempt+1, c.retries)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func retryable(err error) bool {
	var transport *url.Error
	return errors.Is(err, errRateLimited) || errors.Is(err, errServerError) || errors.As(err, &transport)
}

func (c *Client) get(ctx context.Context, requestURL string) (DailyPrecipitation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &rejectedError{status: resp.StatusCode}
	}

	var weatherData WeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&weatherData); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(weatherData.Daily.Time) != len(weatherData.Daily.Precipitation) {
		return nil, fmt.Errorf("response has %d dates but %d values", len(weatherData.Daily.Time), len(weatherData.Daily.Precipitation))
	}

	data := DailyPrecipitation{}
	for i, date := range weatherData.Daily.Time {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		if v := weatherData.Daily.Precipitation[i]; v != nil {
			data[date] = *v
		}
	}
	return data, nil
}

type MonthlyTotal struct {
	Month period.MonthRange
	Value float64
	Days  int
	Valid bool
}

// MonthlyTotals sums daily values into the given months. A month with no daily
// value at all is not valid.
func MonthlyTotals(daily DailyPrecipitation, months []period.MonthRange) []MonthlyTotal {
	totals := make([]MonthlyTotal, len(months))
	for i, m := range months {
		totals[i].Month = m
		for d := m.Start; d.Before(m.End); d = d.AddDate(0, 0, 1) {
			if v, ok := daily[d.Format("2006-01-02")]; ok {
				totals[i].Value += v
				totals[i].Days++
			}
		}
		totals[i].Valid = totals[i].Days > 0
	}
	return totals
}

// FetchMonthlyTotals fetches the daily archive covering all months and sums it
// per month.
func (c *Client) FetchMonthlyTotals(ctx context.Context, latitude, longitude float64, months []period.MonthRange) ([]MonthlyTotal, error) {
	if len(months) == 0 {
		return nil, nil
	}
	start, end := period.Span(months)
	daily, err := c.FetchPrecipitation(ctx, latitude, longitude, start, end.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	return MonthlyTotals(daily, months), nil
}
