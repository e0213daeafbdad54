package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductFetcher retrieves raw product records from the upstream food-data API
type ProductFetcher interface {
	FetchProduct(ctx context.Context, barcode string) (RawProduct, error)
}

// ReportStore persists formatted reports and, in debug mode, raw upstream records
type ReportStore interface {
	GetReport(ctx context.Context, barcode string) (*ProductReport, error)
	SaveReport(ctx context.Context, report *ProductReport) error
	SaveRaw(ctx context.Context, barcode string, raw RawProduct) error
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AdditiveLookup resolves additive codes against the knowledge base
type AdditiveLookup interface {
	Lookup(code string) (AdditiveInfo, bool)
	Resolve(code, displayText string) AdditiveInfo
}

// InsightGenerator produces optional commentary for an analyzed product.
// It never fails; problems are reported through Insights.Status.
type InsightGenerator interface {
	Generate(ctx context.Context, product *NormalizedProduct, analysis *AnalysisResult) *Insights
}

// EventPublisher announces completed analyses to other services
type EventPublisher interface {
	PublishAnalyzed(ctx context.Context, event AnalysisEvent) error
}
