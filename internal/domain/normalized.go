package domain

// Additive is a deduplicated additive entry. Code is the upper-case identifier
// without language prefix, e.g. "E330".
type Additive struct {
	Code string `json:"code"`
	Ingredient
}

// DominantIngredient is a named ingredient with its estimated share of the product
type DominantIngredient struct {
	Ingredient string  `json:"ingredient"`
	Percent    float64 `json:"percent"`
}

// NormalizedProduct is an extracted product with cleaned ingredient and additive lists
type NormalizedProduct struct {
	Product         ProductInfo          `json:"product"`
	Nutrients       Nutrients            `json:"nutrients"`
	IngredientsText string               `json:"ingredients_text"`
	Ingredients     []Ingredient         `json:"ingredients"`
	Additives       []Additive           `json:"additives"`
	Dominant        []DominantIngredient `json:"dominant"`
	ContainsPalmOil bool                 `json:"contains_palm_oil"`
	// TotalCount counts surviving non-junk, non-additive ingredients
	TotalCount int      `json:"total_count"`
	Allergens  []string `json:"allergens"`
	Serving    Serving  `json:"serving"`
	Metadata   Metadata `json:"metadata"`
}
