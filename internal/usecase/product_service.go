package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/foodlens/backend/internal/domain"
)

// barcodeRegex accepts EAN-8, UPC-A, EAN-13 and GTIN-14 style codes
var barcodeRegex = regexp.MustCompile(`^\d{4,14}$`)

// Report sources
const (
	SourceLive    = "live"
	SourceStore   = "store"
	SourceCache   = "cache"
	SourceRequest = "request"
)

// ProductServiceConfig holds configuration for the product service
type ProductServiceConfig struct {
	CacheTTL time.Duration
	Analyzer AnalyzerConfig
}

// ProductServiceDeps are the collaborators of the product service. Store,
// Insights and Events are optional.
type ProductServiceDeps struct {
	Cache     domain.CacheRepository
	Fetcher   domain.ProductFetcher
	Store     domain.ReportStore
	Additives domain.AdditiveLookup
	Insights  domain.InsightGenerator
	Events    domain.EventPublisher
	Logger    *slog.Logger
}

// AnalyzeOptions tune a single analysis request
type AnalyzeOptions struct {
	// Debug bypasses cache and store and persists the raw upstream record
	Debug bool
	// SkipInsights leaves the insights section empty
	SkipInsights bool
}

// ProductService analyzes products by barcode
type ProductService struct {
	cache     domain.CacheRepository
	fetcher   domain.ProductFetcher
	store     domain.ReportStore
	additives domain.AdditiveLookup
	insights  domain.InsightGenerator
	events    domain.EventPublisher
	analyzer  *Analyzer
	cacheTTL  time.Duration
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewProductService creates a new product service with dependencies
func NewProductService(deps ProductServiceDeps, config ProductServiceConfig) *ProductService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ProductService{
		cache:     deps.Cache,
		fetcher:   deps.Fetcher,
		store:     deps.Store,
		additives: deps.Additives,
		insights:  deps.Insights,
		events:    deps.Events,
		analyzer:  NewAnalyzer(deps.Additives, config.Analyzer),
		cacheTTL:  cacheTTL,
		logger:    logger.With("component", "product_service"),
		tracer:    otel.Tracer("foodlens-usecase"),
		now:       time.Now,
	}
}

// AnalyzeBarcode returns the report for a barcode.
// Flow: memory cache -> report store -> upstream fetch -> analyze -> persist -> cache -> publish
func (s *ProductService) AnalyzeBarcode(
	ctx context.Context,
	barcode string,
	opts AnalyzeOptions,
) (*domain.ProductReport, error) {
	barcode = strings.TrimSpace(barcode)
	if !barcodeRegex.MatchString(barcode) {
		return nil, fmt.Errorf("%w: barcode must be 4 to 14 digits", domain.ErrInvalidRequest)
	}

	ctx, span := s.tracer.Start(ctx, "product.analyze_barcode",
		trace.WithAttributes(
			attribute.String("barcode", barcode),
			attribute.Bool("debug", opts.Debug),
		),
	)
	defer span.End()

	if !opts.Debug {
		if report := s.lookupExisting(ctx, barcode, opts); report != nil {
			span.SetAttributes(attribute.String("source", report.Source))
			return report, nil
		}
	}

	raw, err := s.fetch(ctx, barcode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	normalized, report := s.runPipeline(ctx, raw)
	if normalized.Product.Code == "" {
		report.Barcode = barcode
		report.Product.Code = barcode
	}
	report.Insights = s.generateInsights(ctx, normalized, report, opts)
	report.Source = SourceLive

	s.persist(ctx, barcode, raw, report, opts)
	s.publish(ctx, report)

	span.SetAttributes(
		attribute.String("source", report.Source),
		attribute.Int("health_score", report.Highlights.HealthScore),
	)
	return report, nil
}

// AnalyzeRaw runs the analysis on a caller-supplied upstream record. Nothing
// is fetched or persisted.
func (s *ProductService) AnalyzeRaw(
	ctx context.Context,
	raw domain.RawProduct,
	opts AnalyzeOptions,
) (*domain.ProductReport, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty product record", domain.ErrInvalidRequest)
	}

	ctx, span := s.tracer.Start(ctx, "product.analyze_raw")
	defer span.End()

	normalized, report := s.runPipeline(ctx, raw)
	report.Insights = s.generateInsights(ctx, normalized, report, opts)
	report.Source = SourceRequest
	return report, nil
}

// LookupAdditive resolves a single additive code against the knowledge base
func (s *ProductService) LookupAdditive(code string) (*domain.AdditiveDetail, error) {
	normalized := additiveCode(code)
	if !additiveIDRegex.MatchString(normalized) {
		return nil, fmt.Errorf("%w: %q is not an additive code", domain.ErrInvalidRequest, code)
	}
	if s.additives == nil {
		return nil, domain.ErrAdditiveNotFound
	}

	info, ok := s.additives.Lookup(normalized)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAdditiveNotFound, normalized)
	}

	return &domain.AdditiveDetail{
		Code:        normalized,
		Name:        info.Name,
		Category:    info.Category,
		Risk:        info.Risk,
		Explanation: info.Explanation,
	}, nil
}

// runPipeline is the pure core: extract, normalize, analyze, format
func (s *ProductService) runPipeline(
	ctx context.Context,
	raw domain.RawProduct,
) (*domain.NormalizedProduct, *domain.ProductReport) {
	_, span := s.tracer.Start(ctx, "product.pipeline")
	defer span.End()

	normalized := NormalizeProduct(ExtractProduct(raw))
	analysis := s.analyzer.Analyze(normalized)
	report := FormatReport(normalized, analysis, nil)

	span.SetAttributes(
		attribute.Int("ingredients", normalized.TotalCount),
		attribute.Int("additives", len(normalized.Additives)),
	)
	return normalized, report
}

// lookupExisting returns a cached or stored report, or nil
func (s *ProductService) lookupExisting(
	ctx context.Context,
	barcode string,
	opts AnalyzeOptions,
) *domain.ProductReport {
	key := cacheKey(barcode)

	if s.cache != nil {
		if cached, err := s.getFromCache(ctx, key); err == nil && usable(cached, opts) {
			report := *cached
			report.Source = SourceCache
			return &report
		}
	}

	if s.store == nil {
		return nil
	}

	stored, err := s.store.GetReport(ctx, barcode)
	if err != nil {
		if !errors.Is(err, domain.ErrReportNotFound) {
			s.logger.Warn("report store lookup failed", "barcode", barcode, "error", err)
		}
		return nil
	}
	if !usable(stored, opts) {
		return nil
	}

	s.setInCache(ctx, key, stored)
	report := *stored
	report.Source = SourceStore
	return &report
}

// usable reports whether a previously built report satisfies the request
func usable(report *domain.ProductReport, opts AnalyzeOptions) bool {
	if report == nil {
		return false
	}
	return opts.SkipInsights || report.Insights != nil
}

func (s *ProductService) fetch(ctx context.Context, barcode string) (domain.RawProduct, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: no product source configured", domain.ErrUpstreamFailure)
	}

	ctx, span := s.tracer.Start(ctx, "product.fetch")
	defer span.End()

	raw, err := s.fetcher.FetchProduct(ctx, barcode)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch product %s: %w", barcode, err)
	}
	return raw, nil
}

func (s *ProductService) generateInsights(
	ctx context.Context,
	normalized *domain.NormalizedProduct,
	report *domain.ProductReport,
	opts AnalyzeOptions,
) *domain.Insights {
	if opts.SkipInsights || s.insights == nil {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "product.insights")
	defer span.End()

	analysis := &domain.AnalysisResult{
		Highlights: report.Highlights,
		Nutrients:  report.Nutrients,
		Radar:      report.Radar,
		Additives:  report.Additives,
		Serving:    report.Serving,
	}

	insights := s.insights.Generate(ctx, normalized, analysis)
	if insights != nil && insights.Status != "" {
		span.SetAttributes(attribute.String("insights.status", insights.Status))
		s.logger.Info("insights not generated",
			"barcode", report.Barcode,
			"status", insights.Status,
			"reason", insights.Reason,
		)
	}
	return insights
}

// persist saves the report. Failures are logged, never returned.
func (s *ProductService) persist(
	ctx context.Context,
	barcode string,
	raw domain.RawProduct,
	report *domain.ProductReport,
	opts AnalyzeOptions,
) {
	if s.store != nil {
		ctx, span := s.tracer.Start(ctx, "product.persist")
		if err := s.store.SaveReport(ctx, report); err != nil {
			span.RecordError(err)
			s.logger.Warn("failed to save report", "barcode", barcode, "error", err)
		}
		if opts.Debug {
			if err := s.store.SaveRaw(ctx, barcode, raw); err != nil {
				span.RecordError(err)
				s.logger.Warn("failed to save raw product", "barcode", barcode, "error", err)
			}
		}
		span.End()
	}

	if s.cache != nil {
		s.setInCache(ctx, cacheKey(barcode), report)
	}
}

func (s *ProductService) publish(ctx context.Context, report *domain.ProductReport) {
	if s.events == nil {
		return
	}

	event := domain.AnalysisEvent{
		Barcode:     report.Barcode,
		Name:        report.Product.Name,
		HealthScore: report.Highlights.HealthScore,
		Verdict:     report.Highlights.Verdict,
		NovaGroup:   report.Highlights.NovaGroup,
		AnalyzedAt:  s.now().UTC(),
	}
	if err := s.events.PublishAnalyzed(ctx, event); err != nil {
		s.logger.Warn("failed to publish analysis event", "barcode", report.Barcode, "error", err)
	}
}

// cacheKey format: "product:{barcode}"
func cacheKey(barcode string) string {
	return "product:" + barcode
}

// getFromCache retrieves a report from cache
func (s *ProductService) getFromCache(ctx context.Context, key string) (*domain.ProductReport, error) {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	report, ok := value.(*domain.ProductReport)
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return report, nil
}

// setInCache stores a report in cache
func (s *ProductService) setInCache(ctx context.Context, key string, report *domain.ProductReport) {
	if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache report", "key", key, "error", err)
	}
}
