package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodlens/backend/config"
	"github.com/foodlens/backend/internal/domain"
	"github.com/foodlens/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

// stubProducts is a hand-written ProductAnalyzer
type stubProducts struct {
	analyzeBarcode func(ctx context.Context, barcode string, opts usecase.AnalyzeOptions) (*domain.ProductReport, error)
	analyzeRaw     func(ctx context.Context, raw domain.RawProduct, opts usecase.AnalyzeOptions) (*domain.ProductReport, error)
	lookupAdditive func(code string) (*domain.AdditiveDetail, error)
}

func (s *stubProducts) AnalyzeBarcode(ctx context.Context, barcode string, opts usecase.AnalyzeOptions) (*domain.ProductReport, error) {
	return s.analyzeBarcode(ctx, barcode, opts)
}

func (s *stubProducts) AnalyzeRaw(ctx context.Context, raw domain.RawProduct, opts usecase.AnalyzeOptions) (*domain.ProductReport, error) {
	return s.analyzeRaw(ctx, raw, opts)
}

func (s *stubProducts) LookupAdditive(code string) (*domain.AdditiveDetail, error) {
	return s.lookupAdditive(code)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
	}
}

// setupTestRouter creates a test router with default configuration
func setupTestRouter(products ProductAnalyzer) *gin.Engine {
	return SetupRouter(testConfig(), NewHandler(products), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleReport(barcode string) *domain.ProductReport {
	return &domain.ProductReport{
		Barcode: barcode,
		Product: domain.ProductInfo{Code: barcode, Name: "Oat Biscuits", Brand: "Acme"},
		Highlights: domain.Highlights{
			HealthScore: 58,
			Verdict:     domain.VerdictModerate,
			Likes:       []string{},
			Concerns:    []string{"High sugar"},
		},
		Source: usecase.SourceLive,
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "foodlens-backend", body["service"])
		assert.NotEmpty(t, body["version"])
		assert.NotContains(t, body, "cache")
	})

	t.Run("includes cache stats when configured", func(t *testing.T) {
		handler := NewHandler(nil, WithCacheStats(func() any {
			return map[string]int{"entries": 3, "hits": 7}
		}))
		router := SetupRouter(testConfig(), handler, slog.New(slog.NewTextHandler(io.Discard, nil)))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		require.Contains(t, body, "cache")
		assert.Equal(t, map[string]any{"entries": 3.0, "hits": 7.0}, body["cache"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(nil)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(method, "/health", nil))

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestGetProduct(t *testing.T) {
	t.Run("returns the report", func(t *testing.T) {
		var gotBarcode string
		var gotOpts usecase.AnalyzeOptions
		router := setupTestRouter(&stubProducts{
			analyzeBarcode: func(ctx context.Context, barcode string, opts usecase.AnalyzeOptions) (*domain.ProductReport, error) {
				gotBarcode, gotOpts = barcode, opts
				return sampleReport(barcode), nil
			},
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products/5000112548167", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5000112548167", gotBarcode)
		assert.Equal(t, usecase.AnalyzeOptions{}, gotOpts)

		var report domain.ProductReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, 58, report.Highlights.HealthScore)
		assert.Equal(t, "live", report.Source)
	})

	t.Run("parses query options", func(t *testing.T) {
		var gotOpts usecase.AnalyzeOptions
		router := setupTestRouter(&stubProducts{
			analyzeBarcode: func(ctx context.Context, barcode string, opts usecase.AnalyzeOptions) (*domain.ProductReport, error) {
				gotOpts = opts
				return sampleReport(barcode), nil
			},
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products/123456?debug=true&insights=false", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gotOpts.Debug)
		assert.True(t, gotOpts.SkipInsights)
	})

	t.Run("rejects malformed query options", func(t *testing.T) {
		router := setupTestRouter(&stubProducts{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products/123456?debug=maybe", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "debug")
	})

	t.Run("maps service errors to status codes", func(t *testing.T) {
		tests := []struct {
			err        error
			wantStatus int
		}{
			{fmt.Errorf("%w: barcode must be 4 to 14 digits", domain.ErrInvalidRequest), http.StatusBadRequest},
			{fmt.Errorf("%w: 123456", domain.ErrProductNotFound), http.StatusNotFound},
			{domain.ErrRateLimited, http.StatusTooManyRequests},
			{fmt.Errorf("%w: status 503", domain.ErrUpstreamFailure), http.StatusBadGateway},
			{domain.ErrInvalidUpstreamResponse, http.StatusBadGateway},
			{domain.ErrMalformedProduct, http.StatusBadGateway},
			{context.DeadlineExceeded, http.StatusGatewayTimeout},
			{fmt.Errorf("database is locked"), http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.err.Error(), func(t *testing.T) {
				router := setupTestRouter(&stubProducts{
					analyzeBarcode: func(context.Context, string, usecase.AnalyzeOptions) (*domain.ProductReport, error) {
						return nil, tt.err
					},
				})

				req := httptest.NewRequest("GET", "/api/v1/products/123456", nil)
				req.Header.Set("X-Request-ID", "req-42")
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)

				assert.Equal(t, tt.wantStatus, w.Code)
				body := decodeBody(t, w)
				assert.Equal(t, "req-42", body["request_id"])
				if tt.wantStatus == http.StatusInternalServerError {
					assert.Equal(t, "internal server error", body["error"])
				} else {
					assert.Equal(t, tt.err.Error(), body["error"])
				}
			})
		}
	})

	t.Run("returns 503 without a service", func(t *testing.T) {
		router := setupTestRouter(nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products/123456", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "not configured")
	})
}

func TestAnalyzeProduct(t *testing.T) {
	t.Run("accepts a bare record", func(t *testing.T) {
		var gotRaw domain.RawProduct
		router := setupTestRouter(&stubProducts{
			analyzeRaw: func(ctx context.Context, raw domain.RawProduct, opts usecase.AnalyzeOptions) (*domain.ProductReport, error) {
				gotRaw = raw
				report := sampleReport("")
				report.Source = usecase.SourceRequest
				return report, nil
			},
		})

		payload := `{"product_name": "Oat Biscuits", "nutriments": {"sugars": 15}}`
		req := httptest.NewRequest("POST", "/api/v1/products/analyze", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Oat Biscuits", gotRaw["product_name"])
		assert.Equal(t, "request", decodeBody(t, w)["source"])
	})

	t.Run("unwraps an upstream envelope", func(t *testing.T) {
		var gotRaw domain.RawProduct
		router := setupTestRouter(&stubProducts{
			analyzeRaw: func(ctx context.Context, raw domain.RawProduct, opts usecase.AnalyzeOptions) (*domain.ProductReport, error) {
				gotRaw = raw
				return sampleReport("123456"), nil
			},
		})

		payload := `{"code": "123456", "status": 1, "product": {"product_name": "Oat Biscuits"}}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/products/analyze", strings.NewReader(payload)))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Oat Biscuits", gotRaw["product_name"])
		assert.Equal(t, "123456", gotRaw["code"])
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		router := setupTestRouter(&stubProducts{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/products/analyze", strings.NewReader(`[1, 2`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("passes the insights option", func(t *testing.T) {
		var gotOpts usecase.AnalyzeOptions
		router := setupTestRouter(&stubProducts{
			analyzeRaw: func(ctx context.Context, raw domain.RawProduct, opts usecase.AnalyzeOptions) (*domain.ProductReport, error) {
				gotOpts = opts
				return sampleReport(""), nil
			},
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/products/analyze?insights=0", strings.NewReader(`{"code": "1"}`)))

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gotOpts.SkipInsights)
	})
}

func TestGetAdditive(t *testing.T) {
	router := setupTestRouter(&stubProducts{
		lookupAdditive: func(code string) (*domain.AdditiveDetail, error) {
			if code == "e250" {
				return &domain.AdditiveDetail{Code: "E250", Name: "Sodium nitrite", Risk: domain.RiskHigh}, nil
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrAdditiveNotFound, code)
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/additives/e250", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "E250", body["code"])
	assert.Equal(t, "Sodium nitrite", body["name"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/additives/e999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter(nil)

	for _, origin := range []string{"chrome-extension://abcdefghijklmnop", "http://localhost:3000"} {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
	}
}

func TestAPIVersioning(t *testing.T) {
	router := setupTestRouter(nil)

	for _, path := range []string{"/products/123456", "/api/products/123456", "/api/v2/products/123456"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("Path %s: Status = %d, want %d", path, w.Code, http.StatusNotFound)
		}
	}
}

func TestRouterRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{PerIP: 1, Burst: 1}
	handler := NewHandler(&stubProducts{
		analyzeBarcode: func(ctx context.Context, barcode string, opts usecase.AnalyzeOptions) (*domain.ProductReport, error) {
			return sampleReport(barcode), nil
		},
	})
	router := SetupRouter(cfg, handler, slog.New(slog.NewTextHandler(io.Discard, nil)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products/123456", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products/123456", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health is not rate limited")
}
