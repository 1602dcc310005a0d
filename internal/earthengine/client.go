package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://earthengine.googleapis.com/v1"
	Scope          = "https://www.googleapis.com/auth/earthengine"

	FormatGeoTIFF = "GEO_TIFF"
)

var (
	ErrMissingProject = errors.New("earth engine project is required")
	ErrCircuitOpen    = errors.New("earth engine circuit breaker open")
)

type Options struct {
	BaseURL        string
	Project        string
	HTTPClient     *http.Client
	Timeout        time.Duration
	Retries        int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type Client struct {
	baseURL        string
	project        string
	httpClient     *http.Client
	timeout        time.Duration
	retries        int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	circuit        *gobreaker.CircuitBreaker
}

func NewClient(opts Options) (*Client, error) {
	if opts.Project == "" {
		return nil, ErrMissingProject
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client not configured")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	return &Client{
		baseURL:        strings.TrimSuffix(opts.BaseURL, "/"),
		project:        opts.Project,
		httpClient:     opts.HTTPClient,
		timeout:        opts.Timeout,
		retries:        opts.Retries,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "earthengine",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 10
			},
			// A rejected request says nothing about the health of the service.
			IsSuccessful: func(err error) bool {
				var permanent *permanentError
				return err == nil || errors.As(err, &permanent)
			},
		}),
	}, nil
}

// ComputeValue evaluates expr and returns the raw "result" field.
func (c *Client) ComputeValue(ctx context.Context, expr *Expression) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{"expression": expr})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal expression")
	}

	respBody, err := c.post(ctx, "value:compute", body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode value:compute response")
	}
	return payload.Result, nil
}

type GridDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type AffineTransform struct {
	ScaleX     float64 `json:"scaleX"`
	ShearX     float64 `json:"shearX"`
	TranslateX float64 `json:"translateX"`
	ShearY     float64 `json:"shearY"`
	ScaleY     float64 `json:"scaleY"`
	TranslateY float64 `json:"translateY"`
}

type PixelGrid struct {
	Dimensions      GridDimensions  `json:"dimensions"`
	AffineTransform AffineTransform `json:"affineTransform"`
	CrsCode         string          `json:"crsCode"`
}

type PixelsRequest struct {
	Expression *Expression `json:"expression"`
	FileFormat string      `json:"fileFormat"`
	Grid       *PixelGrid  `json:"grid,omitempty"`
	BandIDs    []string    `json:"bandIds,omitempty"`
}

// ComputePixels renders an image expression on an explicit grid.
func (c *Client) ComputePixels(ctx context.Context, req PixelsRequest) ([]byte, error) {
	if req.FileFormat == "" {
		req.FileFormat = FormatGeoTIFF
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal computePixels request")
	}
	return c.post(ctx, "image:computePixels", body)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (c *Client) post(ctx context.Context, method string, body []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/projects/%s/%s", c.baseURL, c.project, method)
	log := logrus.WithField("method", method)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			return c.send(ctx, url, body)
		})
		if err == nil {
			return result.([]byte), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrap(ErrCircuitOpen, err.Error())
		}
		var permanent *permanentError
		if errors.As(err, &permanent) {
			return nil, permanent.err
		}

		lastErr = err
		if attempt >= c.retries {
			return nil, errors.Wrapf(lastErr, "%s failed after %d attempts", method, attempt+1)
		}

		delay := c.backoff(attempt)
		log.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay,
		}).Warnf("request failed, retrying: %v", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) send(ctx context.Context, url string, body []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &permanentError{errors.Wrap(err, "failed to build request")}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	apiErr := decodeAPIError(resp.StatusCode, respBody)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, apiErr
	}
	return nil, &permanentError{apiErr}
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.initialBackoff * time.Duration(math.Pow(2, float64(attempt)))
	if c.maxBackoff > 0 && delay > c.maxBackoff {
		delay = c.maxBackoff
	}
	return delay
}
