package domain

// RawProduct is a decoded upstream product record. Any field may be missing,
// null or of an unexpected type; only the extractor reads it.
type RawProduct map[string]any

// Unwrap returns the record inside an API response envelope ({"code", "product"}),
// carrying the envelope code over when the record lacks one. Bare records are
// returned unchanged.
func (r RawProduct) Unwrap() RawProduct {
	inner, ok := r["product"].(map[string]any)
	if !ok {
		return r
	}
	product := RawProduct(inner)
	if _, hasCode := product["code"]; !hasCode {
		if code, ok := r["code"]; ok {
			product["code"] = code
		}
	}
	return product
}

// Nutrient names, in display order
const (
	NutrientEnergyKcal    = "energy_kcal"
	NutrientFat           = "fat"
	NutrientSaturatedFat  = "saturated_fat"
	NutrientCarbohydrates = "carbohydrates"
	NutrientSugars        = "sugars"
	NutrientFiber         = "fiber"
	NutrientProtein       = "protein"
	NutrientSalt          = "salt"
	NutrientCholesterol   = "cholesterol"
)

// NutritionBasis declares what quantity the upstream nutrient values refer to
type NutritionBasis string

const (
	PerHundredGrams NutritionBasis = "100g"
	PerServing      NutritionBasis = "serving"
)

// Nutrients holds per-100g quantities. A nil field means "not reported",
// which is distinct from a reported zero.
type Nutrients struct {
	EnergyKcal    *float64 `json:"energy_kcal"`
	Fat           *float64 `json:"fat"`
	SaturatedFat  *float64 `json:"saturated_fat"`
	Carbohydrates *float64 `json:"carbohydrates"`
	Sugars        *float64 `json:"sugars"`
	Fiber         *float64 `json:"fiber"`
	Protein       *float64 `json:"protein"`
	Salt          *float64 `json:"salt"`
	Cholesterol   *float64 `json:"cholesterol"`
}

// NutrientField pairs a nutrient name with its value
type NutrientField struct {
	Name  string
	Value *float64
}

// Fields returns every nutrient in display order
func (n Nutrients) Fields() []NutrientField {
	return []NutrientField{
		{NutrientEnergyKcal, n.EnergyKcal},
		{NutrientFat, n.Fat},
		{NutrientSaturatedFat, n.SaturatedFat},
		{NutrientCarbohydrates, n.Carbohydrates},
		{NutrientSugars, n.Sugars},
		{NutrientFiber, n.Fiber},
		{NutrientProtein, n.Protein},
		{NutrientSalt, n.Salt},
		{NutrientCholesterol, n.Cholesterol},
	}
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v
func Int(v int) *int {
	return &v
}

// ProductInfo is the identity of a product
type ProductInfo struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Brand      string   `json:"brand"`
	Image      string   `json:"image,omitempty"`
	Quantity   string   `json:"quantity,omitempty"`
	Categories []string `json:"categories"`
}

// Ingredient is one entry of a flattened ingredient list
type Ingredient struct {
	ID                  string   `json:"id"`
	Text                string   `json:"text"`
	PercentEstimate     *float64 `json:"percent_estimate"`
	PercentMin          *float64 `json:"percent_min"`
	PercentMax          *float64 `json:"percent_max"`
	Vegan               string   `json:"vegan,omitempty"`
	Vegetarian          string   `json:"vegetarian,omitempty"`
	FromPalmOil         string   `json:"from_palm_oil,omitempty"`
	IsInTaxonomy        *int     `json:"is_in_taxonomy"`
	CiqualFoodCode      string   `json:"ciqual_food_code,omitempty"`
	CiqualProxyFoodCode string   `json:"ciqual_proxy_food_code,omitempty"`
	EcobalyseCode       string   `json:"ecobalyse_code,omitempty"`
}

// IngredientsRaw is the ingredient section as reported upstream
type IngredientsRaw struct {
	Text       string       `json:"text"`
	Structured []Ingredient `json:"structured"`
}

// Serving describes the declared serving and the basis of the nutrient values
type Serving struct {
	ServingSize      string         `json:"serving_size,omitempty"`
	ServingSizeG     *float64       `json:"serving_size_g"`
	NutritionDataPer NutritionBasis `json:"nutrition_data_per"`
}

// Metadata holds classification and data-quality fields
type Metadata struct {
	NovaGroup           *int              `json:"nova_group"`
	NovaGroupError      string            `json:"nova_group_error,omitempty"`
	Ecoscore            string            `json:"ecoscore,omitempty"`
	NutriscoreGrade     string            `json:"nutriscore_grade,omitempty"`
	NutrientLevels      map[string]string `json:"nutrient_levels,omitempty"`
	Packaging           []string          `json:"packaging"`
	Labels              []string          `json:"labels"`
	Completeness        *float64          `json:"off_completeness"`
	DataQualityWarnings []string          `json:"data_quality_warnings"`
	FoodGroups          []string          `json:"food_groups"`
	Countries           []string          `json:"countries"`
}

// ExtractedProduct is the typed form of a RawProduct
type ExtractedProduct struct {
	Product        ProductInfo    `json:"product"`
	Nutrients      Nutrients      `json:"nutrients"`
	IngredientsRaw IngredientsRaw `json:"ingredients_raw"`
	AdditivesRaw   []string       `json:"additives_raw"`
	AllergensRaw   []string       `json:"allergens_raw"`
	Serving        Serving        `json:"serving"`
	Metadata       Metadata       `json:"metadata"`

	// Upstream display counts; 0 when not reported
	IngredientsCount int `json:"ingredients_count"`
	AdditivesCount   int `json:"additives_count"`
}
