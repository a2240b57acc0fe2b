package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soratext/soratext/internal/models"
)

const validPayload = `{
	"wxdata": [{
		"srf": [
			{"date": "2024-07-06T09:00:00", "wx": "100", "temp": 28.5, "prec": 0, "rhum": 55, "wndspd": 3.2, "wnddir": 5},
			{"date": "2024-07-06T12:00:00", "wx": "300", "temp": 26.0, "prec": 4.5, "rhum": 85, "wndspd": 6.0, "wnddir": 3}
		],
		"mrf": [
			{"date": "2024-07-07T00:00:00", "wx": "200", "maxtemp": 30.0, "pop": 40}
		]
	}]
}`

func newTestClient(t *testing.T, url string) *WxTechClient {
	t.Helper()
	c, err := New("test-key", url, 5*time.Second, 3, time.Millisecond, 10*time.Millisecond, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("", "http://example", time.Second, 3, time.Millisecond, time.Millisecond, nil, nil)
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("New with empty key = %v, want ErrAPIKeyMissing", err)
	}
}

func TestFetchParsesHourlyAndDaily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("X-API-Key = %q", got)
		}
		if r.URL.Query().Get("lat") == "" || r.URL.Query().Get("lon") == "" {
			t.Error("missing lat/lon query parameters")
		}
		w.Write([]byte(validPayload))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	coll, err := c.FetchNextDayHours(context.Background(), 35.68, 139.76)
	if err != nil {
		t.Fatalf("FetchNextDayHours: %v", err)
	}
	if len(coll.Forecasts) != 3 {
		t.Fatalf("got %d forecasts, want 3 (2 srf + 1 mrf)", len(coll.Forecasts))
	}

	first := coll.Forecasts[0]
	if first.Condition != models.ConditionClear || first.Temperature != 28.5 {
		t.Errorf("first forecast = %s/%.1f, want clear/28.5", first.Condition, first.Temperature)
	}
	if first.WindDirection != models.WindSouth {
		t.Errorf("wind direction = %s, want south", first.WindDirection)
	}

	second := coll.Forecasts[1]
	if second.Condition != models.ConditionRain || second.Precipitation != 4.5 {
		t.Errorf("second forecast = %s/%.1f, want rain/4.5", second.Condition, second.Precipitation)
	}

	daily := coll.Forecasts[2]
	if daily.Condition != models.ConditionCloudy || daily.Temperature != 30.0 {
		t.Errorf("daily forecast = %s/%.1f, want cloudy/30.0", daily.Condition, daily.Temperature)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(validPayload))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	coll, err := c.FetchNextDayHours(context.Background(), 35.68, 139.76)
	if err != nil {
		t.Fatalf("FetchNextDayHours: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
	if len(coll.Forecasts) == 0 {
		t.Error("no forecasts after successful retry")
	}
}

func TestFetchDoesNotRetryAuthErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.FetchNextDayHours(context.Background(), 35.68, 139.76)
	if !errors.Is(err, ErrAPIKeyInvalid) {
		t.Errorf("error = %v, want ErrAPIKeyInvalid", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestFetchDoesNotRetryRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.FetchNextDayHours(context.Background(), 35.68, 139.76)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestFetchEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"wxdata": []}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.FetchNextDayHours(context.Background(), 35.68, 139.76)
	if !errors.Is(err, ErrEmptyData) {
		t.Errorf("error = %v, want ErrEmptyData", err)
	}
}

func TestFetchDropsOutOfRangeForecasts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"wxdata": [{"srf": [
			{"date": "2024-07-06T09:00:00", "wx": "100", "temp": 28.5, "prec": 0, "rhum": 55, "wndspd": 3.2, "wnddir": 5},
			{"date": "2024-07-06T12:00:00", "wx": "100", "temp": 99.0, "prec": 0, "rhum": 55, "wndspd": 3.2, "wnddir": 5}
		], "mrf": []}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	coll, err := c.FetchNextDayHours(context.Background(), 35.68, 139.76)
	if err != nil {
		t.Fatalf("FetchNextDayHours: %v", err)
	}
	if len(coll.Forecasts) != 1 {
		t.Errorf("got %d forecasts, want 1 after dropping the 99C row", len(coll.Forecasts))
	}
}

func TestErrorKindFor(t *testing.T) {
	tests := []struct {
		err  error
		want models.ErrorKind
	}{
		{ErrAPIKeyMissing, models.ErrKindAPIKeyMissing},
		{ErrAPIKeyInvalid, models.ErrKindAPIKeyInvalid},
		{ErrRateLimited, models.ErrKindRateLimit},
		{ErrEmptyData, models.ErrKindEmptyData},
		{ErrUpstreamFailure, models.ErrKindServer},
		{context.DeadlineExceeded, models.ErrKindTimeout},
		{errors.New("dial tcp: refused"), models.ErrKindNetwork},
	}
	for _, tt := range tests {
		if got := ErrorKindFor(tt.err); got != tt.want {
			t.Errorf("ErrorKindFor(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
