package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodlens/backend/internal/domain"
	"github.com/foodlens/backend/internal/usecase"
)

// Version is reported by the health endpoint and overridden at build time
var Version = "1.0.0"

const maxRawProductBytes = 2 << 20

// ProductAnalyzer is the product use case the handlers depend on
type ProductAnalyzer interface {
	AnalyzeBarcode(ctx context.Context, barcode string, opts usecase.AnalyzeOptions) (*domain.ProductReport, error)
	AnalyzeRaw(ctx context.Context, raw domain.RawProduct, opts usecase.AnalyzeOptions) (*domain.ProductReport, error)
	LookupAdditive(code string) (*domain.AdditiveDetail, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	products   ProductAnalyzer
	cacheStats func() any
}

// HandlerOption configures optional handler dependencies
type HandlerOption func(*Handler)

// WithCacheStats reports the result of stats under "cache" on the health endpoint
func WithCacheStats(stats func() any) HandlerOption {
	return func(h *Handler) {
		h.cacheStats = stats
	}
}

// NewHandler creates a new HTTP handler. A nil analyzer makes the product
// endpoints answer 503.
func NewHandler(products ProductAnalyzer, opts ...HandlerOption) *Handler {
	h := &Handler{products: products}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": "foodlens-backend",
		"version": Version,
	}
	if h.cacheStats != nil {
		body["cache"] = h.cacheStats()
	}
	c.JSON(http.StatusOK, body)
}

// GetProduct analyzes a product by barcode.
// Query: debug=true bypasses cached reports; insights=false skips commentary.
func (h *Handler) GetProduct(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	opts, err := analyzeOptions(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	report, err := h.products.AnalyzeBarcode(c.Request.Context(), c.Param("barcode"), opts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// AnalyzeProduct analyzes a product record supplied in the request body.
// The body is either the bare record or an upstream envelope with a
// "product" object.
func (h *Handler) AnalyzeProduct(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	opts, err := analyzeOptions(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	raw, err := decodeRawProduct(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	report, err := h.products.AnalyzeRaw(c.Request.Context(), raw, opts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetAdditive returns the knowledge-base entry for an additive code
func (h *Handler) GetAdditive(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	detail, err := h.products.LookupAdditive(c.Param("code"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.products != nil {
		return true
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"error":      "product service not configured",
		"request_id": requestID(c),
	})
	return false
}

func analyzeOptions(c *gin.Context) (usecase.AnalyzeOptions, error) {
	var opts usecase.AnalyzeOptions

	if v := c.Query("debug"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return opts, invalidParam("debug", v)
		}
		opts.Debug = debug
	}

	if v := c.Query("insights"); v != "" {
		insights, err := strconv.ParseBool(v)
		if err != nil {
			return opts, invalidParam("insights", v)
		}
		opts.SkipInsights = !insights
	}

	return opts, nil
}

func invalidParam(name, value string) error {
	return fmt.Errorf("%w: invalid value %q for query parameter %s", domain.ErrInvalidRequest, value, name)
}

func decodeRawProduct(c *gin.Context) (domain.RawProduct, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRawProductBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	var raw domain.RawProduct
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: request body must be a JSON object", domain.ErrInvalidRequest)
	}

	return raw.Unwrap(), nil
}
