package domain

import "time"

// Insight statuses reported when commentary could not be produced
const (
	InsightsUnavailable = "unavailable"
	InsightsError       = "error"
)

// Insights is optional free-text commentary. When Status is set the other
// fields are empty and Reason explains why.
type Insights struct {
	Status                 string   `json:"status,omitempty"`
	Reason                 string   `json:"reason,omitempty"`
	Summary                string   `json:"summary,omitempty"`
	KeyBenefits            []string `json:"key_benefits,omitempty"`
	KeyConcerns            []string `json:"key_concerns,omitempty"`
	ConsumptionAdvice      string   `json:"consumption_advice,omitempty"`
	AlternativeSuggestions []string `json:"alternative_suggestions,omitempty"`
}

// ReportIngredients is the ingredient section of a report
type ReportIngredients struct {
	Text            string               `json:"text"`
	Ingredients     []Ingredient         `json:"ingredients"`
	Additives       []Additive           `json:"additives"`
	Dominant        []DominantIngredient `json:"dominant"`
	ContainsPalmOil bool                 `json:"contains_palm_oil"`
	Complexity      string               `json:"complexity"`
}

// ReportMetadata is the classification and data-quality section of a report
type ReportMetadata struct {
	NovaGroup           *int              `json:"nova_group"`
	NovaGroupError      string            `json:"nova_group_error,omitempty"`
	NutriscoreGrade     string            `json:"nutriscore_grade,omitempty"`
	NutrientLevels      map[string]string `json:"nutrient_levels,omitempty"`
	Labels              []string          `json:"labels"`
	FoodGroups          []string          `json:"food_groups"`
	Countries           []string          `json:"countries"`
	Completeness        *float64          `json:"off_completeness"`
	DataQualityWarnings []string          `json:"data_quality_warnings"`
	NutritionDataPer    NutritionBasis    `json:"nutrition_data_per"`
}

// Environment is the environmental-impact section of a report
type Environment struct {
	Ecoscore  string   `json:"ecoscore,omitempty"`
	Packaging []string `json:"packaging"`
}

// ProductReport is the externally visible result for one product
type ProductReport struct {
	Barcode     string            `json:"barcode"`
	Product     ProductInfo       `json:"product"`
	Highlights  Highlights        `json:"highlights"`
	Nutrients   []NutrientRow     `json:"nutrients"`
	Radar       Radar             `json:"nutrient_radar"`
	Ingredients ReportIngredients `json:"ingredients"`
	Additives   []AdditiveDetail  `json:"additives_full"`
	Allergens   []string          `json:"allergens"`
	Serving     ServingView       `json:"serving"`
	Metadata    ReportMetadata    `json:"metadata"`
	Environment Environment       `json:"environment"`
	Insights    *Insights         `json:"ai_insights"`
	Source      string            `json:"source,omitempty"` // live, store, cache or request
}

// AnalysisEvent is published after a product has been analyzed
type AnalysisEvent struct {
	Barcode     string    `json:"barcode"`
	Name        string    `json:"name"`
	HealthScore int       `json:"health_score"`
	Verdict     Verdict   `json:"verdict"`
	NovaGroup   *int      `json:"nova_group,omitempty"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}
