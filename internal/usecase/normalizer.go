package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/foodlens/backend/internal/domain"
)

// junkPatternRegex matches packaging text and OCR noise that upstream parsers
// sometimes split into ingredient entries
var junkPatternRegex = regexp.MustCompile(
	`(?i)do not buy|keep away|marketed by|survey no|anc no|allergen advice|^open$|^[0-9]+$|foundamaged|direct sunlight`,
)

// additiveIDRegex matches additive identifiers once the language prefix is gone
var additiveIDRegex = regexp.MustCompile(`(?i)^e\d+`)

const (
	// Unknown-to-taxonomy entries longer than this with a zero share are OCR garbage
	longJunkTextLength     = 30
	maxDominantIngredients = 4
)

// NormalizeProduct cleans the ingredient list, reconciles additives and derives
// the palm-oil and dominant-ingredient signals. It never fails.
func NormalizeProduct(extracted *domain.ExtractedProduct) *domain.NormalizedProduct {
	if extracted == nil {
		extracted = ExtractProduct(nil)
	}

	structured := extracted.IngredientsRaw.Structured

	ingredients := make([]domain.Ingredient, 0, len(structured))
	var derivedAdditives []domain.Ingredient

	for _, ing := range structured {
		if isJunkIngredient(ing) {
			continue
		}
		if isAdditive(ing) {
			derivedAdditives = append(derivedAdditives, ing)
			continue
		}
		ingredients = append(ingredients, ing)
	}

	return &domain.NormalizedProduct{
		Product:         extracted.Product,
		Nutrients:       extracted.Nutrients,
		IngredientsText: extracted.IngredientsRaw.Text,
		Ingredients:     ingredients,
		Additives:       reconcileAdditives(extracted.AdditivesRaw, derivedAdditives),
		Dominant:        dominantIngredients(structured),
		ContainsPalmOil: containsPalmOil(structured),
		TotalCount:      len(ingredients),
		Allergens:       extracted.AllergensRaw,
		Serving:         extracted.Serving,
		Metadata:        extracted.Metadata,
	}
}

// isJunkIngredient reports whether an entry is packaging text or OCR noise
func isJunkIngredient(ing domain.Ingredient) bool {
	text := strings.TrimSpace(ing.Text)
	if junkPatternRegex.MatchString(text) {
		return true
	}

	return ing.IsInTaxonomy != nil && *ing.IsInTaxonomy == 0 &&
		ing.PercentEstimate != nil && *ing.PercentEstimate == 0 &&
		utf8.RuneCountInString(text) > longJunkTextLength
}

// isAdditive reports whether the ingredient identifier is an E-number
func isAdditive(ing domain.Ingredient) bool {
	return additiveIDRegex.MatchString(stripLanguagePrefix(ing.ID))
}

// reconcileAdditives builds the deduplicated additive list. When the upstream
// tag list exists it decides which codes appear; ingredient-derived entries only
// enrich matching tags. Otherwise the ingredient-derived entries are used.
// Duplicates are dropped by code, first occurrence wins.
func reconcileAdditives(tags []string, derived []domain.Ingredient) []domain.Additive {
	additives := make([]domain.Additive, 0, max(len(tags), len(derived)))
	seen := make(map[string]struct{})

	if len(tags) > 0 {
		for _, tag := range tags {
			code := additiveCode(tag)
			if _, dup := seen[code]; dup || code == "" {
				continue
			}
			seen[code] = struct{}{}

			entry := domain.Ingredient{ID: tag, Text: code}
			for _, d := range derived {
				if additiveCode(d.ID) == code {
					entry = mergeIngredient(entry, d)
					break
				}
			}
			additives = append(additives, domain.Additive{Code: code, Ingredient: entry})
		}
		return additives
	}

	for _, d := range derived {
		code := additiveCode(d.ID)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		additives = append(additives, domain.Additive{Code: code, Ingredient: d})
	}
	return additives
}

// mergeIngredient overlays the non-empty fields of src onto dst
func mergeIngredient(dst, src domain.Ingredient) domain.Ingredient {
	overlay := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	overlayFloat := func(d **float64, s *float64) {
		if s != nil {
			*d = s
		}
	}

	overlay(&dst.ID, src.ID)
	overlay(&dst.Text, src.Text)
	overlay(&dst.Vegan, src.Vegan)
	overlay(&dst.Vegetarian, src.Vegetarian)
	overlay(&dst.FromPalmOil, src.FromPalmOil)
	overlay(&dst.CiqualFoodCode, src.CiqualFoodCode)
	overlay(&dst.CiqualProxyFoodCode, src.CiqualProxyFoodCode)
	overlay(&dst.EcobalyseCode, src.EcobalyseCode)
	overlayFloat(&dst.PercentEstimate, src.PercentEstimate)
	overlayFloat(&dst.PercentMin, src.PercentMin)
	overlayFloat(&dst.PercentMax, src.PercentMax)
	if src.IsInTaxonomy != nil {
		dst.IsInTaxonomy = src.IsInTaxonomy
	}
	return dst
}

// dominantIngredients returns up to four named ingredients with the largest
// positive percent estimate. Ties keep source order.
func dominantIngredients(structured []domain.Ingredient) []domain.DominantIngredient {
	dominant := make([]domain.DominantIngredient, 0, maxDominantIngredients)
	seen := make(map[string]struct{})

	for _, ing := range structured {
		if isJunkIngredient(ing) || isAdditive(ing) {
			continue
		}
		text := strings.TrimSpace(ing.Text)
		if text == "" || ing.PercentEstimate == nil || *ing.PercentEstimate <= 0 {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		dominant = append(dominant, domain.DominantIngredient{
			Ingredient: text,
			Percent:    roundTo(*ing.PercentEstimate, 1),
		})
	}

	sort.SliceStable(dominant, func(i, j int) bool {
		return dominant[i].Percent > dominant[j].Percent
	})

	if len(dominant) > maxDominantIngredients {
		dominant = dominant[:maxDominantIngredients]
	}
	return dominant
}

// containsPalmOil looks at every entry, junk included
func containsPalmOil(structured []domain.Ingredient) bool {
	for _, ing := range structured {
		switch strings.ToLower(ing.FromPalmOil) {
		case "yes", "maybe":
			return true
		}
		if strings.Contains(strings.ToLower(ing.ID), "palm") ||
			strings.Contains(strings.ToLower(ing.Text), "palm") {
			return true
		}
	}
	return false
}
