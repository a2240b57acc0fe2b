// Package client fetches multi-hour forecasts from the upstream weather API
// and converts them into domain forecasts via the weather-code table.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/cache"
	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
	"github.com/soratext/soratext/internal/wxcode"
)

// WeatherClient is the fetch contract consumed by the pipeline and the warmer.
type WeatherClient interface {
	FetchNextDayHours(ctx context.Context, lat, lon float64) (models.ForecastCollection, error)
}

var (
	ErrAPIKeyMissing   = errors.New("API key missing")
	ErrAPIKeyInvalid   = errors.New("invalid API key")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrEmptyData       = errors.New("empty forecast payload")
)

// ErrorKindFor maps a client error onto the pipeline error taxonomy.
func ErrorKindFor(err error) models.ErrorKind {
	switch {
	case errors.Is(err, ErrAPIKeyMissing):
		return models.ErrKindAPIKeyMissing
	case errors.Is(err, ErrAPIKeyInvalid):
		return models.ErrKindAPIKeyInvalid
	case errors.Is(err, ErrRateLimited):
		return models.ErrKindRateLimit
	case errors.Is(err, ErrEmptyData):
		return models.ErrKindEmptyData
	case errors.Is(err, ErrUpstreamFailure):
		return models.ErrKindServer
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrKindTimeout
	default:
		return models.ErrKindNetwork
	}
}

// WxTechClient talks to the wxdata endpoint. Stateless apart from its HTTP
// configuration; a fetched collection is saved through the forecast cache when
// one is attached.
type WxTechClient struct {
	apiKey         string
	apiURL         string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	forecastCache  *cache.LayeredCache // may be nil
	logger         *zap.Logger
}

// New creates a WxTechClient. forecastCache may be nil to disable
// save-through.
func New(apiKey, apiURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration, forecastCache *cache.LayeredCache, logger *zap.Logger) (*WxTechClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set WEATHER_API_KEY", ErrAPIKeyMissing)
	}
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	return &WxTechClient{
		apiKey:         apiKey,
		apiURL:         apiURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		forecastCache:  forecastCache,
		logger:         logger,
		client:         &http.Client{Timeout: timeout},
	}, nil
}

// wxResponse mirrors the upstream wire format.
type wxResponse struct {
	WxData []struct {
		SRF []wxHourly `json:"srf"`
		MRF []wxDaily  `json:"mrf"`
	} `json:"wxdata"`
}

type wxHourly struct {
	Date    string  `json:"date"`
	Wx      string  `json:"wx"`
	Temp    float64 `json:"temp"`
	Prec    float64 `json:"prec"`
	Rhum    float64 `json:"rhum"`
	WndSpd  float64 `json:"wndspd"`
	WndDir  int     `json:"wnddir"`
}

type wxDaily struct {
	Date    string  `json:"date"`
	Wx      string  `json:"wx"`
	MaxTemp float64 `json:"maxtemp"`
	Pop     float64 `json:"pop"`
}

// FetchNextDayHours issues a single GET for the hourly (srf) and daily (mrf)
// forecast arrays and converts them. At most retryAttempts tries with
// exponential backoff; 401 and 429 are surfaced immediately.
func (c *WxTechClient) FetchNextDayHours(ctx context.Context, lat, lon float64) (models.ForecastCollection, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.WeatherAPIRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return models.ForecastCollection{}, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		coll, err := c.callAPI(ctx, lat, lon)
		if err == nil {
			return coll, nil
		}
		lastErr = err
		if !c.isRetryable(err) {
			return models.ForecastCollection{}, err
		}
	}
	return models.ForecastCollection{}, fmt.Errorf("exhausted retries: %w", lastErr)
}

// FetchAndCache fetches for a named coordinate, labels the forecasts and saves
// each through the layered cache.
func (c *WxTechClient) FetchAndCache(ctx context.Context, coord models.LocationCoordinate) (models.ForecastCollection, error) {
	coll, err := c.FetchNextDayHours(ctx, coord.Latitude, coord.Longitude)
	if err != nil {
		return coll, err
	}
	coll.LocationName = coord.Name
	for i := range coll.Forecasts {
		coll.Forecasts[i].LocationName = coord.Name
	}
	if c.forecastCache != nil {
		c.forecastCache.RegisterLocation(coord)
		for _, f := range coll.Forecasts {
			c.forecastCache.Save(ctx, f)
		}
	}
	return coll, nil
}

func (c *WxTechClient) callAPI(ctx context.Context, lat, lon float64) (models.ForecastCollection, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, lat, lon)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.ForecastCollection{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.ForecastCollection{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.ForecastCollection{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(duration)

	if err := handleErrorResponse(resp); err != nil {
		return models.ForecastCollection{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ForecastCollection{}, fmt.Errorf("read response body: %w", err)
	}

	var apiResp wxResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.ForecastCollection{}, fmt.Errorf("parse response: %w", err)
	}

	coll := c.convert(apiResp)
	if len(coll.Forecasts) == 0 {
		return models.ForecastCollection{}, ErrEmptyData
	}
	return coll, nil
}

// convert maps the wire arrays onto domain forecasts. Forecasts failing
// range validation are dropped with a warning; the pipeline continues with
// whatever remains.
func (c *WxTechClient) convert(resp wxResponse) models.ForecastCollection {
	var coll models.ForecastCollection
	if len(resp.WxData) == 0 {
		return coll
	}
	data := resp.WxData[0]

	for _, h := range data.SRF {
		ts, err := parseWxDate(h.Date)
		if err != nil {
			c.warnDrop("unparseable srf date", h.Date, err)
			continue
		}
		cond, desc := wxcode.Lookup(h.Wx)
		dir, deg := wxcode.LookupWind(h.WndDir)
		f := models.Forecast{
			Timestamp:     ts,
			Temperature:   h.Temp,
			WeatherCode:   h.Wx,
			Condition:     cond,
			Description:   desc,
			Precipitation: h.Prec,
			Humidity:      h.Rhum,
			WindSpeed:     h.WndSpd,
			WindDirection: dir,
			WindDegrees:   deg,
		}
		if err := f.Validate(); err != nil {
			c.warnDrop("dropping out-of-range forecast", h.Date, err)
			continue
		}
		coll.Forecasts = append(coll.Forecasts, f)
	}

	for _, d := range data.MRF {
		ts, err := parseWxDate(d.Date)
		if err != nil {
			c.warnDrop("unparseable mrf date", d.Date, err)
			continue
		}
		cond, desc := wxcode.Lookup(d.Wx)
		f := models.Forecast{
			Timestamp:   ts,
			Temperature: d.MaxTemp,
			WeatherCode: d.Wx,
			Condition:   cond,
			Description: desc,
		}
		if err := f.Validate(); err != nil {
			c.warnDrop("dropping out-of-range forecast", d.Date, err)
			continue
		}
		coll.Forecasts = append(coll.Forecasts, f)
	}

	coll.Sort()
	return coll
}

func (c *WxTechClient) warnDrop(msg, date string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, zap.String("date", date), zap.Error(err))
	}
}

// parseWxDate accepts ISO-8601 with or without a Z suffix, normalized to JST.
func parseWxDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, models.JST); err == nil {
			return t.In(models.JST), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func (c *WxTechClient) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAPIKeyInvalid) || errors.Is(err, ErrRateLimited) {
		return false
	}
	if errors.Is(err, ErrUpstreamFailure) || errors.Is(err, ErrEmptyData) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "connection")
}

func (c *WxTechClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}
	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *WxTechClient) buildRequest(ctx context.Context, lat, lon float64) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	return req, nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP 401", ErrAPIKeyInvalid)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == 429:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
