package openfoodfacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/foodlens/backend/internal/domain"
)

const productBody = `{
	"code": "3017620422003",
	"status": 1,
	"status_verbose": "product found",
	"product": {
		"code": "3017620422003",
		"product_name": "Nutella",
		"nutriments": {"sugars_100g": 56.3, "salt_100g": 0.107}
	}
}`

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{BaseURL: baseURL, RequestsPerMinute: 6000, Burst: 100})
}

func TestNewClient(t *testing.T) {
	t.Run("creates client with default values", func(t *testing.T) {
		client := NewClient(ClientConfig{})

		assert.NotNil(t, client)
		assert.Equal(t, "https://world.openfoodfacts.net", client.baseURL)
		assert.Equal(t, 6*time.Second, client.httpClient.Timeout)
		assert.Contains(t, client.userAgent, "FoodLens")
		assert.NotNil(t, client.rateLimiter)
		assert.False(t, client.debug)
	})

	t.Run("creates client with custom values", func(t *testing.T) {
		client := NewClient(ClientConfig{
			BaseURL:   "https://api.example.com/",
			UserAgent: "test-agent",
			Timeout:   time.Second,
		})

		assert.Equal(t, "https://api.example.com", client.baseURL)
		assert.Equal(t, "test-agent", client.userAgent)
		assert.Equal(t, time.Second, client.httpClient.Timeout)
	})

	t.Run("converts requests per minute to a per-second limit", func(t *testing.T) {
		assert.Equal(t, rate.Limit(100.0/60), NewClient(ClientConfig{}).RateLimit())
		assert.Equal(t, rate.Limit(0.5), NewClient(ClientConfig{RequestsPerMinute: 30}).RateLimit())
	})
}

func TestSetDebug(t *testing.T) {
	client := NewClient(ClientConfig{})

	client.SetDebug(true)
	assert.True(t, client.debug)

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
	}
}

func TestFetchProduct_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/product/3017620422003", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "FoodLens")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(productBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	product, err := client.FetchProduct(context.Background(), "3017620422003")

	require.NoError(t, err)
	assert.Equal(t, "Nutella", product["product_name"])
	nutriments, ok := product["nutriments"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 56.3, nutriments["sugars_100g"])
}

func TestFetchProduct_CodeFromEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "12345678", "status": 1, "product": {"product_name": "Water"}}`))
	}))
	defer server.Close()

	product, err := newTestClient(server.URL).FetchProduct(context.Background(), "12345678")

	require.NoError(t, err)
	assert.Equal(t, "12345678", product["code"])
}

func TestFetchProduct_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found status code", http.StatusNotFound, `{}`, domain.ErrProductNotFound},
		{"status zero", http.StatusOK, `{"status": 0, "status_verbose": "product not found"}`, domain.ErrProductNotFound},
		{"invalid json", http.StatusOK, `not valid json`, domain.ErrInvalidUpstreamResponse},
		{"missing product", http.StatusOK, `{"status": 1}`, domain.ErrMalformedProduct},
		{"empty product", http.StatusOK, `{"status": 1, "product": {}}`, domain.ErrMalformedProduct},
		{"client error", http.StatusBadRequest, `bad barcode`, domain.ErrUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			product, err := newTestClient(server.URL).FetchProduct(context.Background(), "3017620422003")

			assert.Nil(t, product)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, attempts, "should not retry")
		})
	}
}

func TestFetchProduct_ServerError_Retries(t *testing.T) {
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(productBody))
	}))
	defer server.Close()

	product, err := newTestClient(server.URL).FetchProduct(context.Background(), "3017620422003")

	require.NoError(t, err)
	assert.Equal(t, "Nutella", product["product_name"])
	assert.Equal(t, 3, attempts)
}

func TestFetchProduct_TooManyRequests_Retries(t *testing.T) {
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(productBody))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchProduct(context.Background(), "3017620422003")

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestFetchProduct_AllRetriesFail(t *testing.T) {
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	product, err := newTestClient(server.URL).FetchProduct(context.Background(), "3017620422003")

	assert.Nil(t, product)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Equal(t, 3, attempts)
}

func TestFetchProduct_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.Write([]byte(productBody))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	product, err := newTestClient(server.URL).FetchProduct(ctx, "3017620422003")

	assert.Nil(t, product)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "cancellation must not wait for retries")
}

func TestFetchProduct_RequestCreationError(t *testing.T) {
	client := newTestClient("://invalid-url")

	product, err := client.FetchProduct(context.Background(), "3017620422003")

	assert.Nil(t, product)
	assert.Error(t, err)
}

func TestReadLimitedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			w.Write([]byte("0123456789"))
		}
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := readLimitedBody(resp.Body, 100)
	require.NoError(t, err)
	assert.Len(t, body, 100)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate([]byte("short"), 10))
	assert.Equal(t, "0123...", truncate([]byte("0123456789"), 4))
}
