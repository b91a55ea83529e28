package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTP(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveHTTP("/chat", http.MethodPost, 200, 120*time.Millisecond)
	c.ObserveHTTP("/chat", http.MethodPost, 200, 80*time.Millisecond)
	c.ObserveHTTP("/chat", http.MethodPost, 500, time.Second)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("/chat", "POST", "200")); got != 2 {
		t.Errorf("requests_total{code=200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("/chat", "POST", "500")); got != 1 {
		t.Errorf("requests_total{code=500} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c.httpDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestObserveUpstream(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveUpstream("tags", nil, 10*time.Millisecond)
	c.ObserveUpstream("tags", errors.New("connection refused"), time.Millisecond)
	c.ObserveUpstream("chat", nil, 3*time.Second)

	tests := []struct {
		endpoint, outcome string
		want              float64
	}{
		{"tags", OutcomeSuccess, 1},
		{"tags", OutcomeError, 1},
		{"chat", OutcomeSuccess, 1},
		{"chat", OutcomeError, 0},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(c.upstreamRequests.WithLabelValues(tt.endpoint, tt.outcome))
		if got != tt.want {
			t.Errorf("upstream_requests_total{%s,%s} = %v, want %v", tt.endpoint, tt.outcome, got, tt.want)
		}
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector

	// Must not panic.
	c.ObserveHTTP("/chat", "POST", 200, time.Second)
	c.ObserveUpstream("chat", nil, time.Second)
	if c.Registry() != nil {
		t.Error("Registry() on nil collector should be nil")
	}

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestHandler_Exposition(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveHTTP("/health", http.MethodGet, 200, time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		"chatrelay_http_requests_total",
		`route="/health"`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
