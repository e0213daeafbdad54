package domain

// Risk is the safety tier of an additive
type Risk string

const (
	RiskHigh     Risk = "high"
	RiskModerate Risk = "moderate"
	RiskLow      Risk = "low"
	RiskUnknown  Risk = "unknown"
)

// Valid reports whether r is one of the known tiers
func (r Risk) Valid() bool {
	switch r {
	case RiskHigh, RiskModerate, RiskLow, RiskUnknown:
		return true
	}
	return false
}

// AdditiveInfo is the knowledge-base record for an additive code
type AdditiveInfo struct {
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Risk        Risk   `json:"risk" yaml:"risk"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

// Verdict is the qualitative band of a health score
type Verdict string

const (
	VerdictHealthy    Verdict = "Healthy choice"
	VerdictModerate   Verdict = "Moderate consumption recommended"
	VerdictOccasional Verdict = "Best enjoyed occasionally"
	VerdictLimit      Verdict = "Limit consumption"
)

// Rating is a traffic-light classification of a single nutrient
type Rating string

const (
	RatingRed     Rating = "red"
	RatingOrange  Rating = "orange"
	RatingGreen   Rating = "green"
	RatingNeutral Rating = "neutral"
)

// Highlights is the headline of an analysis
type Highlights struct {
	HealthScore int      `json:"health_score"`
	Verdict     Verdict  `json:"verdict"`
	Likes       []string `json:"likes"`
	Concerns    []string `json:"concerns"`
	NovaGroup   *int     `json:"nova_group"`
}

// NutrientRow is one reported nutrient with its rating and daily-value share
type NutrientRow struct {
	Name       string  `json:"name"`
	Amount100g float64 `json:"amount_100g"`
	Unit       string  `json:"unit"`
	RDAPercent float64 `json:"rda_percent"`
	Rating     Rating  `json:"rating"`
}

// AdditiveDetail is an additive resolved against the knowledge base
type AdditiveDetail struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Risk        Risk   `json:"risk"`
	Explanation string `json:"explanation"`
}

// Radar is a relative-severity vector; every axis is in [0,1]
type Radar struct {
	Salt         float64 `json:"salt"`
	SaturatedFat float64 `json:"saturated_fat"`
	Sugars       float64 `json:"sugars"`
	Energy       float64 `json:"energy"`
	Fiber        float64 `json:"fiber"`
	Protein      float64 `json:"protein"`
}

// ServingView carries per-100g values and, when a serving size is known,
// values scaled to one serving
type ServingView struct {
	Per100g      Nutrients          `json:"per_100g"`
	PerServing   map[string]float64 `json:"per_serving"`
	ServingSizeG *float64           `json:"serving_size_g"`
}

// AnalysisResult is the health assessment of a normalized product
type AnalysisResult struct {
	Highlights Highlights       `json:"highlights"`
	Nutrients  []NutrientRow    `json:"nutrients"`
	Radar      Radar            `json:"nutrient_radar"`
	Additives  []AdditiveDetail `json:"additives_full"`
	Serving    ServingView      `json:"serving"`
}
