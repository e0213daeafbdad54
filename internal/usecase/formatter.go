package usecase

import "github.com/foodlens/backend/internal/domain"

// Ingredient counts above which a formulation is considered complex
const (
	highlyComplexThreshold     = 20
	moderatelyComplexThreshold = 10
)

// FormatReport assembles the externally visible report. insights may be nil.
func FormatReport(
	product *domain.NormalizedProduct,
	analysis *domain.AnalysisResult,
	insights *domain.Insights,
) *domain.ProductReport {
	if product == nil {
		product = NormalizeProduct(nil)
	}
	if analysis == nil {
		analysis = NewAnalyzer(nil, AnalyzerConfig{}).Analyze(product)
	}

	meta := product.Metadata

	return &domain.ProductReport{
		Barcode:    product.Product.Code,
		Product:    product.Product,
		Highlights: analysis.Highlights,
		Nutrients:  analysis.Nutrients,
		Radar:      analysis.Radar,
		Ingredients: domain.ReportIngredients{
			Text:            product.IngredientsText,
			Ingredients:     product.Ingredients,
			Additives:       product.Additives,
			Dominant:        product.Dominant,
			ContainsPalmOil: product.ContainsPalmOil,
			Complexity:      formulationComplexity(product.TotalCount),
		},
		Additives: analysis.Additives,
		Allergens: product.Allergens,
		Serving:   analysis.Serving,
		Metadata: domain.ReportMetadata{
			NovaGroup:           meta.NovaGroup,
			NovaGroupError:      meta.NovaGroupError,
			NutriscoreGrade:     meta.NutriscoreGrade,
			NutrientLevels:      meta.NutrientLevels,
			Labels:              meta.Labels,
			FoodGroups:          meta.FoodGroups,
			Countries:           meta.Countries,
			Completeness:        meta.Completeness,
			DataQualityWarnings: meta.DataQualityWarnings,
			NutritionDataPer:    product.Serving.NutritionDataPer,
		},
		Environment: domain.Environment{
			Ecoscore:  meta.Ecoscore,
			Packaging: meta.Packaging,
		},
		Insights: insights,
	}
}

// formulationComplexity describes a product by its ingredient count
func formulationComplexity(totalCount int) string {
	switch {
	case totalCount > highlyComplexThreshold:
		return "Highly complex"
	case totalCount > moderatelyComplexThreshold:
		return "Moderately complex"
	default:
		return "Simple formulation"
	}
}
