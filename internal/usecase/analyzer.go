package usecase

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/foodlens/backend/internal/domain"
)

// Score bounds and verdict bands
const (
	baseHealthScore      = 100
	minHealthScore       = 0
	maxHealthScore       = 100
	healthyScoreFloor    = 75
	moderateScoreFloor   = 50
	occasionalScoreFloor = 25
	implausibleSaltGrams = 100.0 // More salt than product mass is a data error
)

// Caps applied when AnalyzerConfig leaves them unset
const (
	defaultAdditivePenaltyCap = 20
	defaultLabelBonusCap      = 5
	labelBonusPerMatch        = 2
)

// additivePenalty maps a risk tier to its score deduction
var additivePenalty = map[domain.Risk]int{
	domain.RiskHigh:     10,
	domain.RiskModerate: 4,
	domain.RiskLow:      0,
	domain.RiskUnknown:  2,
}

// positiveLabels are certification tags that earn a bonus, prefix stripped
var positiveLabels = map[string]bool{
	"organic":                true,
	"eu-organic":             true,
	"fair-trade":             true,
	"rainforest-alliance":    true,
	"vegan":                  true,
	"vegetarian":             true,
	"no-artificial-flavours": true,
	"no-artificial-colours":  true,
	"no-preservatives":       true,
	"whole-grain":            true,
}

const (
	concernPerServingData = "Nutrition values reported per-serving, not per-100g, so the analysis may be inaccurate"
	concernLimitedData    = "Very limited nutrition data available"
)

// AnalyzerConfig holds the tunable caps of the scoring model
type AnalyzerConfig struct {
	AdditivePenaltyCap int
	LabelBonusCap      int
}

// Analyzer scores normalized products. It holds only read-only state and is
// safe for concurrent use.
type Analyzer struct {
	additives          domain.AdditiveLookup
	additivePenaltyCap int
	labelBonusCap      int
}

// NewAnalyzer creates an analyzer backed by the given additive knowledge base
func NewAnalyzer(additives domain.AdditiveLookup, config AnalyzerConfig) *Analyzer {
	penaltyCap := config.AdditivePenaltyCap
	if penaltyCap <= 0 {
		penaltyCap = defaultAdditivePenaltyCap
	}

	bonusCap := config.LabelBonusCap
	if bonusCap <= 0 {
		bonusCap = defaultLabelBonusCap
	}

	return &Analyzer{
		additives:          additives,
		additivePenaltyCap: penaltyCap,
		labelBonusCap:      bonusCap,
	}
}

// scorecard accumulates the running score and its explanations
type scorecard struct {
	score    int
	likes    []string
	concerns []string
}

func (s *scorecard) like(tag string) {
	s.likes = append(s.likes, tag)
}

func (s *scorecard) concern(delta int, tag string) {
	s.score += delta
	s.concerns = append(s.concerns, tag)
}

// Analyze computes the health assessment of a product. It never fails.
func (a *Analyzer) Analyze(product *domain.NormalizedProduct) *domain.AnalysisResult {
	if product == nil {
		product = NormalizeProduct(nil)
	}

	n := product.Nutrients
	card := &scorecard{
		score:    baseHealthScore,
		likes:    []string{},
		concerns: []string{},
	}

	salt := n.Salt
	if salt != nil && *salt > implausibleSaltGrams {
		salt = nil
	}

	scoreSalt(card, salt)
	scoreSaturatedFat(card, n.SaturatedFat)
	scoreTotalFat(card, n.Fat)
	scoreSugars(card, n.Sugars)
	scoreFiber(card, n.Fiber)
	scoreProtein(card, n.Protein)
	scoreEnergy(card, n.EnergyKcal)
	scoreProcessing(card, product.Metadata.NovaGroup)

	if product.ContainsPalmOil {
		card.concern(-5, "Contains palm oil")
	}

	details := a.scoreAdditives(card, product.Additives)
	a.scoreLabels(card, product.Metadata.Labels)
	scoreCompleteness(card, product)

	score := clampScore(card.score)

	return &domain.AnalysisResult{
		Highlights: domain.Highlights{
			HealthScore: score,
			Verdict:     verdictFor(score),
			Likes:       card.likes,
			Concerns:    card.concerns,
			NovaGroup:   product.Metadata.NovaGroup,
		},
		Nutrients: nutrientRows(n),
		Radar:     nutrientRadar(n),
		Additives: details,
		Serving: domain.ServingView{
			Per100g:      n,
			PerServing:   perServing(n, product.Serving.ServingSizeG),
			ServingSizeG: product.Serving.ServingSizeG,
		},
	}
}

func scoreSalt(card *scorecard, salt *float64) {
	switch {
	case salt == nil:
		card.concern(-5, "Salt content not reported")
	case *salt > 1.5:
		card.concern(-25, "Very high salt")
	case *salt > 0.6:
		card.concern(-12, "Moderate salt")
	default:
		card.like("Low salt")
	}
}

func scoreSaturatedFat(card *scorecard, satFat *float64) {
	switch {
	case satFat == nil:
		card.concern(-5, "Saturated fat not reported")
	case *satFat > 5:
		card.concern(-20, "High saturated fat")
	case *satFat > 2.5:
		card.concern(-8, "Moderate saturated fat")
	default:
		card.like("Low saturated fat")
	}
}

func scoreTotalFat(card *scorecard, fat *float64) {
	switch {
	case fat == nil:
	case *fat > 17.5:
		card.concern(-10, "High total fat")
	case *fat > 10:
		card.score -= 4
	}
}

func scoreSugars(card *scorecard, sugars *float64) {
	switch {
	case sugars == nil:
		card.concern(-3, "Sugar content not reported")
	case *sugars > 22.5:
		card.concern(-20, "Very high sugar")
	case *sugars > 12.5:
		card.concern(-10, "High sugar")
	case *sugars > 8:
		card.concern(-4, "Moderate sugar")
	default:
		card.like("Low sugar")
	}
}

func scoreFiber(card *scorecard, fiber *float64) {
	switch {
	case fiber == nil:
	case *fiber >= 5:
		card.score += 8
		card.like("Excellent fiber content")
	case *fiber >= 3:
		card.score += 4
		card.like("Good fiber content")
	case *fiber < 1:
		card.score -= 3
	}
}

func scoreProtein(card *scorecard, protein *float64) {
	if protein != nil && *protein >= 10 {
		card.score += 5
		card.like("High protein")
	}
}

func scoreEnergy(card *scorecard, kcal *float64) {
	switch {
	case kcal == nil:
	case *kcal > 450:
		card.concern(-10, "Very high calorie density")
	case *kcal > 300:
		card.concern(-5, "High calorie density")
	}
}

func scoreProcessing(card *scorecard, nova *int) {
	if nova == nil {
		return
	}
	switch *nova {
	case 4:
		card.concern(-15, "Ultra-processed food (NOVA 4)")
	case 3:
		card.concern(-5, "Processed food (NOVA 3)")
	case 1, 2:
		card.like("Minimally processed")
	}
}

// scoreAdditives resolves every additive and applies the capped risk penalty
func (a *Analyzer) scoreAdditives(card *scorecard, additives []domain.Additive) []domain.AdditiveDetail {
	details := make([]domain.AdditiveDetail, 0, len(additives))
	penalty := 0
	highRisk := 0

	for _, additive := range additives {
		info := a.resolveAdditive(additive)
		details = append(details, domain.AdditiveDetail{
			Code:        additive.Code,
			Name:        info.Name,
			Category:    info.Category,
			Risk:        info.Risk,
			Explanation: info.Explanation,
		})

		deduction, ok := additivePenalty[info.Risk]
		if !ok {
			deduction = additivePenalty[domain.RiskUnknown]
		}
		penalty += deduction
		if info.Risk == domain.RiskHigh {
			highRisk++
		}
	}

	card.score -= min(penalty, a.additivePenaltyCap)
	if highRisk > 0 {
		card.concerns = append(card.concerns, fmt.Sprintf("%d high-risk additive(s) detected", highRisk))
	}
	return details
}

func (a *Analyzer) resolveAdditive(additive domain.Additive) domain.AdditiveInfo {
	if a.additives != nil {
		return a.additives.Resolve(additive.Code, additive.Text)
	}

	name := additive.Text
	if name == "" {
		name = additive.Code
	}
	return domain.AdditiveInfo{
		Name:        name,
		Category:    "Unknown",
		Risk:        domain.RiskUnknown,
		Explanation: "No safety data available.",
	}
}

// scoreLabels rewards certification labels, e.g. "Certified: Organic, Vegan"
func (a *Analyzer) scoreLabels(card *scorecard, labels []string) {
	matched := make(map[string]struct{})
	for _, label := range labels {
		name := strings.ToLower(stripLanguagePrefix(label))
		if positiveLabels[name] {
			matched[name] = struct{}{}
		}
	}
	if len(matched) == 0 {
		return
	}

	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)

	caser := cases.Title(language.English)
	for i, name := range names {
		names[i] = caser.String(strings.ReplaceAll(name, "-", " "))
	}

	card.score += min(len(names)*labelBonusPerMatch, a.labelBonusCap)
	card.like("Certified: " + strings.Join(names, ", "))
}

// scoreCompleteness prefers the upstream completeness fraction and falls back
// to counting the key nutrients. Per-serving data overrides both.
func scoreCompleteness(card *scorecard, product *domain.NormalizedProduct) {
	if product.Serving.NutritionDataPer == domain.PerServing {
		card.concern(-8, concernPerServingData)
		return
	}

	if c := product.Metadata.Completeness; c != nil {
		switch {
		case *c >= 0.8:
			card.score += 3
		case *c < 0.35:
			card.concern(-5, concernLimitedData)
		}
		return
	}

	n := product.Nutrients
	present := 0
	for _, v := range []*float64{n.Salt, n.SaturatedFat, n.Sugars, n.Fiber} {
		if v != nil {
			present++
		}
	}
	switch {
	case present == 4:
		card.score += 3
	case present <= 1:
		card.concern(-5, concernLimitedData)
	}
}

func clampScore(score int) int {
	return max(minHealthScore, min(maxHealthScore, score))
}

// verdictFor maps a clamped score to its band
func verdictFor(score int) domain.Verdict {
	switch {
	case score >= healthyScoreFloor:
		return domain.VerdictHealthy
	case score >= moderateScoreFloor:
		return domain.VerdictModerate
	case score >= occasionalScoreFloor:
		return domain.VerdictOccasional
	default:
		return domain.VerdictLimit
	}
}
