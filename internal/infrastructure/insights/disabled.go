package insights

import (
	"context"

	"github.com/foodlens/backend/internal/domain"
)

// Disabled is used when no provider is configured
type Disabled struct {
	Reason string
}

// Generate reports that insights are unavailable
func (d Disabled) Generate(ctx context.Context, product *domain.NormalizedProduct, analysis *domain.AnalysisResult) *domain.Insights {
	reason := d.Reason
	if reason == "" {
		reason = "insights disabled"
	}
	return &domain.Insights{Status: domain.InsightsUnavailable, Reason: reason}
}
