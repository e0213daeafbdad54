package usecase

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/foodlens/backend/internal/domain"
)

// servingGramsRegex matches a decimal quantity followed by a gram unit
var servingGramsRegex = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*g`)

// Salt is reported as sodium by some producers; salt = sodium * 2.5
const sodiumToSaltFactor = 2.5

// allergenKeywords is the fixed vocabulary matched against ingredient text and traces
var allergenKeywords = []string{
	"milk", "lactose",
	"soy", "soya",
	"egg",
	"wheat", "gluten",
	"almond", "cashew", "peanut", "groundnut", "hazelnut", "walnut", "pistachio",
	"sesame", "mustard",
}

// nutrientKeys maps each nutrient to its upstream nutriments key
var nutrientKeys = []struct {
	name string
	key  string
}{
	{domain.NutrientEnergyKcal, "energy-kcal"},
	{domain.NutrientFat, "fat"},
	{domain.NutrientSaturatedFat, "saturated-fat"},
	{domain.NutrientCarbohydrates, "carbohydrates"},
	{domain.NutrientSugars, "sugars"},
	{domain.NutrientFiber, "fiber"},
	{domain.NutrientProtein, "proteins"},
	{domain.NutrientSalt, "salt"},
	{domain.NutrientCholesterol, "cholesterol"},
}

// ExtractProduct pulls typed fields out of an upstream record. It never fails:
// missing or malformed numbers become nil, missing text becomes "Unknown" or "".
func ExtractProduct(raw domain.RawProduct) *domain.ExtractedProduct {
	if raw == nil {
		raw = domain.RawProduct{}
	}

	ingredientsText := stringField(raw["ingredients_text"])

	return &domain.ExtractedProduct{
		Product: domain.ProductInfo{
			Code:       stringField(raw["code"]),
			Name:       stringOr(raw["product_name"], "Unknown"),
			Brand:      stringOr(raw["brands"], "Unknown"),
			Image:      stringField(raw["image_url"]),
			Quantity:   stringField(raw["quantity"]),
			Categories: stringList(raw["categories_tags"]),
		},
		Nutrients: extractNutrients(asObject(raw["nutriments"])),
		IngredientsRaw: domain.IngredientsRaw{
			Text:       ingredientsText,
			Structured: flattenIngredients(raw["ingredients"]),
		},
		AdditivesRaw: stringList(raw["additives_tags"]),
		AllergensRaw: detectAllergens(
			ingredientsText,
			stringList(raw["traces_tags"]),
			stringList(raw["allergens_tags"]),
		),
		Serving:          extractServing(raw),
		Metadata:         extractMetadata(raw),
		IngredientsCount: countField(raw["ingredients_n"]),
		AdditivesCount:   countField(raw["additives_n"]),
	}
}

func extractNutrients(nutriments map[string]any) domain.Nutrients {
	values := make(map[string]*float64, len(nutrientKeys))
	for _, nk := range nutrientKeys {
		values[nk.name] = nutrimentValue(nutriments, nk.key)
	}

	if values[domain.NutrientSalt] == nil {
		if sodium := nutrimentValue(nutriments, "sodium"); sodium != nil {
			values[domain.NutrientSalt] = domain.Float(*sodium * sodiumToSaltFactor)
		}
	}

	return domain.Nutrients{
		EnergyKcal:    values[domain.NutrientEnergyKcal],
		Fat:           values[domain.NutrientFat],
		SaturatedFat:  values[domain.NutrientSaturatedFat],
		Carbohydrates: values[domain.NutrientCarbohydrates],
		Sugars:        values[domain.NutrientSugars],
		Fiber:         values[domain.NutrientFiber],
		Protein:       values[domain.NutrientProtein],
		Salt:          values[domain.NutrientSalt],
		Cholesterol:   values[domain.NutrientCholesterol],
	}
}

// nutrimentValue reads key, falling back to the explicit per-100g key
func nutrimentValue(nutriments map[string]any, key string) *float64 {
	if v := optionalFloat(nutriments[key]); v != nil {
		return v
	}
	return optionalFloat(nutriments[key+"_100g"])
}

// flattenIngredients walks a nested ingredient tree depth-first with an explicit
// stack. A parent is emitted immediately before its children; source order is kept.
func flattenIngredients(v any) []domain.Ingredient {
	top := asObjects(v)
	flat := make([]domain.Ingredient, 0, len(top))

	stack := make([]map[string]any, 0, len(top))
	stack = pushReversed(stack, top)

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		flat = append(flat, toIngredient(item))
		stack = pushReversed(stack, asObjects(item["ingredients"]))
	}

	return flat
}

func pushReversed(stack, items []map[string]any) []map[string]any {
	for i := len(items) - 1; i >= 0; i-- {
		stack = append(stack, items[i])
	}
	return stack
}

func toIngredient(item map[string]any) domain.Ingredient {
	return domain.Ingredient{
		ID:                  stringField(item["id"]),
		Text:                stringField(item["text"]),
		PercentEstimate:     optionalFloat(item["percent_estimate"]),
		PercentMin:          optionalFloat(item["percent_min"]),
		PercentMax:          optionalFloat(item["percent_max"]),
		Vegan:               stringField(item["vegan"]),
		Vegetarian:          stringField(item["vegetarian"]),
		FromPalmOil:         stringField(item["from_palm_oil"]),
		IsInTaxonomy:        optionalInt(item["is_in_taxonomy"]),
		CiqualFoodCode:      stringField(item["ciqual_food_code"]),
		CiqualProxyFoodCode: stringField(item["ciqual_proxy_food_code"]),
		EcobalyseCode:       stringField(item["ecobalyse_code"]),
	}
}

// detectAllergens is presence-only: the result is a sorted set, not a ranking
func detectAllergens(text string, traces, tags []string) []string {
	text = strings.ToLower(text)
	detected := make(map[string]struct{})

	for _, allergen := range allergenKeywords {
		if strings.Contains(text, allergen) || anyContains(traces, allergen) {
			detected[allergen] = struct{}{}
		}
	}

	for _, tag := range tags {
		if clean := strings.ToLower(stripLanguagePrefix(tag)); clean != "" {
			detected[clean] = struct{}{}
		}
	}

	allergens := make([]string, 0, len(detected))
	for a := range detected {
		allergens = append(allergens, a)
	}
	sort.Strings(allergens)
	return allergens
}

func anyContains(values []string, substr string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), substr) {
			return true
		}
	}
	return false
}

func extractServing(raw domain.RawProduct) domain.Serving {
	servingText := stringField(raw["serving_size"])
	return domain.Serving{
		ServingSize:      servingText,
		ServingSizeG:     parseServingGrams(servingText),
		NutritionDataPer: nutritionBasis(raw["nutrition_data_per"]),
	}
}

// parseServingGrams extracts the first "<number> g" quantity, e.g. "1 bar (30 g)" -> 30
func parseServingGrams(text string) *float64 {
	if text == "" {
		return nil
	}
	match := servingGramsRegex.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	grams, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &grams
}

func nutritionBasis(v any) domain.NutritionBasis {
	if strings.Contains(strings.ToLower(stringField(v)), "serving") {
		return domain.PerServing
	}
	return domain.PerHundredGrams
}

func extractMetadata(raw domain.RawProduct) domain.Metadata {
	return domain.Metadata{
		NovaGroup:           novaGroup(raw["nova_group"]),
		NovaGroupError:      stringField(raw["nova_group_error"]),
		Ecoscore:            stringField(raw["ecoscore_grade"]),
		NutriscoreGrade:     resolveNutriscore(raw),
		NutrientLevels:      stringMap(raw["nutrient_levels"]),
		Packaging:           stringList(raw["packaging_materials_tags"]),
		Labels:              stringList(raw["labels_tags"]),
		Completeness:        completeness(raw["completeness"]),
		DataQualityWarnings: stringList(raw["data_quality_warnings_tags"]),
		FoodGroups:          stringList(raw["food_groups_tags"]),
		Countries:           stringList(raw["countries_tags"]),
	}
}

// novaGroup accepts only the four NOVA classes
func novaGroup(v any) *int {
	group := optionalInt(v)
	if group == nil || *group < 1 || *group > 4 {
		return nil
	}
	return group
}

func completeness(v any) *float64 {
	c := optionalFloat(v)
	if c == nil {
		return nil
	}
	return domain.Float(math.Max(0, math.Min(1, *c)))
}

// resolveNutriscore prefers the newest yearly grade, then the flat grade field
func resolveNutriscore(raw domain.RawProduct) string {
	versions := asObject(raw["nutriscore"])
	years := make([]string, 0, len(versions))
	for year := range versions {
		if _, err := strconv.Atoi(year); err == nil {
			years = append(years, year)
		}
	}
	sort.Slice(years, func(i, j int) bool {
		a, _ := strconv.Atoi(years[i])
		b, _ := strconv.Atoi(years[j])
		return a > b
	})

	for _, year := range years {
		if grade := cleanGrade(asObject(versions[year])["grade"]); grade != "" {
			return grade
		}
	}
	return cleanGrade(raw["nutriscore_grade"])
}

func cleanGrade(v any) string {
	grade := strings.ToLower(stringField(v))
	switch grade {
	case "", "unknown", "not-applicable", "not applicable", "none":
		return ""
	}
	return grade
}

// coerceFloat converts JSON numbers and numeric strings. NaN, Inf, booleans
// and anything unparsable are rejected.
func coerceFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func optionalFloat(v any) *float64 {
	f, ok := coerceFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func optionalInt(v any) *int {
	f, ok := coerceFloat(v)
	if !ok || f != math.Trunc(f) {
		return nil
	}
	return domain.Int(int(f))
}

// countField is for display counts, where "not reported" degrades to 0
func countField(v any) int {
	if n := optionalInt(v); n != nil && *n > 0 {
		return *n
	}
	return 0
}

func stringField(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	}
	return ""
}

func stringOr(v any, fallback string) string {
	if s := stringField(v); s != "" {
		return s
	}
	return fallback
}

// stringList keeps the string elements of a list; never returns nil
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if strs, ok := v.([]string); ok {
			return append([]string{}, strs...)
		}
		return []string{}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringMap(v any) map[string]string {
	obj := asObject(v)
	if len(obj) == 0 {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func asObject(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case domain.RawProduct:
		return x
	}
	return nil
}

func asObjects(v any) []map[string]any {
	switch x := v.(type) {
	case []map[string]any:
		return x
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, item := range x {
			if obj := asObject(item); obj != nil {
				out = append(out, obj)
			}
		}
		return out
	}
	return nil
}
