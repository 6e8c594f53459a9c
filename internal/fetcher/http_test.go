package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/delay-risk-cli/internal/resilience"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
		RateLimit: 100,
	})
}

func TestHTTPFetcher_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("Order_ID\nORD1\n"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL+"/orders.csv")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "Order_ID\nORD1\n", string(data))
}

func TestHTTPFetcher_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{status: http.StatusServiceUnavailable, transient: true},
		{status: http.StatusTooManyRequests, transient: true},
		{status: http.StatusNotFound, transient: false},
		{status: http.StatusForbidden, transient: false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestFetcher().Download(context.Background(), srv.URL+"/orders.csv")
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("unexpected status %d", tt.status))
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
			assert.Equal(t, int32(1), calls.Load(), "the fetcher itself never retries")
		})
	}
}

func TestHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, 30*time.Second, f.client.Timeout)
	assert.Equal(t, "delay-risk/1.0", f.opts.UserAgent)
	assert.InDelta(t, 5.0, float64(f.limiter.Limit()), 1e-9)
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher().Download(ctx, "http://127.0.0.1:1/orders.csv")
	require.Error(t, err)
}
