package insights

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/foodlens/backend/internal/domain"
)

const promptTemplate = `You are a nutritionist AI. Given this product data, provide a concise health analysis.

Product: %s by %s
Health Score: %d/100 (%s)
Nutrients per 100g: %s
Ingredients: %s
Additives: %s
Concerns: %s
Likes: %s
NOVA Group: %s

Respond with ONLY valid JSON (no markdown, no code fences):
{
  "summary": "One compelling sentence summarizing this product's health profile",
  "key_benefits": ["List 2-3 specific nutritional benefits or positive aspects"],
  "key_concerns": ["List 2-3 specific health concerns or negative aspects"],
  "consumption_advice": "Practical guidance on how often and how much is reasonable (one sentence)",
  "alternative_suggestions": ["Suggest 2 specific healthier alternatives in the same category"]
}
`

func buildPrompt(product *domain.NormalizedProduct, analysis *domain.AnalysisResult) string {
	nutrients, err := json.Marshal(product.Nutrients)
	if err != nil {
		nutrients = []byte("{}")
	}

	codes := make([]string, 0, len(analysis.Additives))
	for _, a := range analysis.Additives {
		codes = append(codes, a.Code)
	}

	nova := "?"
	if analysis.Highlights.NovaGroup != nil {
		nova = fmt.Sprintf("%d", *analysis.Highlights.NovaGroup)
	}

	return fmt.Sprintf(promptTemplate,
		orUnknown(product.Product.Name),
		orUnknown(product.Product.Brand),
		analysis.Highlights.HealthScore,
		analysis.Highlights.Verdict,
		nutrients,
		truncateRunes(product.IngredientsText, maxIngredientsTextLength),
		joinOrNone(codes),
		joinOrNone(analysis.Highlights.Concerns),
		joinOrNone(analysis.Highlights.Likes),
		nova,
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
