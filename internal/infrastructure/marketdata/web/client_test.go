package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		mockResponse string
		delay        time.Duration
		expectError  bool
	}{
		{
			name:         "Success",
			statusCode:   http.StatusOK,
			mockResponse: `<html><span class="bQbnak">Köp1,00</span></html>`,
		},
		{
			name:         "Not Found",
			statusCode:   http.StatusNotFound,
			mockResponse: `not found`,
			expectError:  true,
		},
		{
			name:         "Server Error",
			statusCode:   http.StatusInternalServerError,
			mockResponse: `Internal Server Error`,
			expectError:  true,
		},
		{
			name:         "Timeout",
			statusCode:   http.StatusOK,
			mockResponse: `too late`,
			delay:        300 * time.Millisecond,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
				if tt.delay > 0 {
					select {
					case <-time.After(tt.delay):
					case <-r.Context().Done():
						return
					}
				}
				w.WriteHeader(tt.statusCode)
				_, err := w.Write([]byte(tt.mockResponse))
				if err != nil {
					t.Logf("Error writing response: %v", err)
				}
			}))
			defer server.Close()

			client := NewClient(Config{Timeout: 100 * time.Millisecond, UserAgent: "test-agent"})
			defer func() { _ = client.Close() }()

			body, err := client.Fetch(context.Background(), server.URL+"/marknaden/mini-futures/1")
			if tt.expectError {
				assert.ErrorIs(t, err, domain.ErrFetch)
				assert.Equal(t, domain.KindFetch, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mockResponse, body)
		})
	}
}

func TestClient_Fetch_NetworkError(t *testing.T) {
	client := NewClient(Config{Timeout: time.Second})

	_, err := client.Fetch(context.Background(), "http://127.0.0.1:0/unreachable")
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestClient_Fetch_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(Config{}).Fetch(ctx, server.URL)
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestClient_Fetch_RateLimited(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{RatePerSecond: 10})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
	}

	// three takes at 10/s need at least two 100ms gaps
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, int32(3), hits.Load())
}
