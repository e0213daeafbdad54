package usecase

import (
	"math"

	"github.com/foodlens/backend/internal/domain"
)

// Reference daily amounts in grams (kcal for energy)
var referenceDailyAmounts = map[string]float64{
	domain.NutrientSalt:          5,
	domain.NutrientSaturatedFat:  20,
	domain.NutrientSugars:        50,
	domain.NutrientFiber:         25,
	domain.NutrientProtein:       50,
	domain.NutrientFat:           70,
	domain.NutrientEnergyKcal:    2000,
	domain.NutrientCarbohydrates: 260,
	domain.NutrientCholesterol:   0.3,
}

const defaultReferenceDailyAmount = 100

// Radar normalization ceilings
const (
	radarSaltCeiling         = 3
	radarSaturatedFatCeiling = 10
	radarSugarsCeiling       = 25
	radarEnergyCeiling       = 600
	radarFiberCeiling        = 10
	radarProteinCeiling      = 25
)

// ratingColor classifies a single per-100g value
func ratingColor(nutrient string, value *float64) domain.Rating {
	if value == nil {
		return domain.RatingNeutral
	}
	v := *value

	switch nutrient {
	case domain.NutrientSalt:
		return highIsBad(v, 1.5, 0.6)
	case domain.NutrientSaturatedFat:
		return highIsBad(v, 5, 2.5)
	case domain.NutrientSugars:
		return highIsBad(v, 15, 8)
	case domain.NutrientFat:
		return highIsBad(v, 17.5, 10)
	case domain.NutrientEnergyKcal:
		return highIsBad(v, 400, 250)
	case domain.NutrientFiber:
		switch {
		case v >= 3:
			return domain.RatingGreen
		case v > 1:
			return domain.RatingOrange
		default:
			return domain.RatingRed
		}
	case domain.NutrientProtein:
		if v >= 10 {
			return domain.RatingGreen
		}
	}
	return domain.RatingNeutral
}

func highIsBad(v, red, orange float64) domain.Rating {
	switch {
	case v > red:
		return domain.RatingRed
	case v > orange:
		return domain.RatingOrange
	default:
		return domain.RatingGreen
	}
}

// rdaPercent is the share of the reference daily amount, one decimal
func rdaPercent(nutrient string, value float64) float64 {
	reference, ok := referenceDailyAmounts[nutrient]
	if !ok {
		reference = defaultReferenceDailyAmount
	}
	return roundTo(value/reference*100, 1)
}

func nutrientUnit(nutrient string) string {
	if nutrient == domain.NutrientEnergyKcal {
		return "kcal"
	}
	return "g"
}

// nutrientRows lists every reported nutrient in display order
func nutrientRows(n domain.Nutrients) []domain.NutrientRow {
	rows := make([]domain.NutrientRow, 0, 9)
	for _, f := range n.Fields() {
		if f.Value == nil {
			continue
		}
		rows = append(rows, domain.NutrientRow{
			Name:       f.Name,
			Amount100g: *f.Value,
			Unit:       nutrientUnit(f.Name),
			RDAPercent: rdaPercent(f.Name, *f.Value),
			Rating:     ratingColor(f.Name, f.Value),
		})
	}
	return rows
}

// perServing scales reported values to one serving. It returns nil when no
// usable serving size is known.
func perServing(n domain.Nutrients, servingSizeG *float64) map[string]float64 {
	if servingSizeG == nil || *servingSizeG == 0 {
		return nil
	}

	scaled := make(map[string]float64)
	for _, f := range n.Fields() {
		if f.Value == nil {
			continue
		}
		scaled[f.Name] = roundTo(*f.Value**servingSizeG/100, 2)
	}
	return scaled
}

func nutrientRadar(n domain.Nutrients) domain.Radar {
	return domain.Radar{
		Salt:         radarAxis(n.Salt, radarSaltCeiling),
		SaturatedFat: radarAxis(n.SaturatedFat, radarSaturatedFatCeiling),
		Sugars:       radarAxis(n.Sugars, radarSugarsCeiling),
		Energy:       radarAxis(n.EnergyKcal, radarEnergyCeiling),
		Fiber:        radarAxis(n.Fiber, radarFiberCeiling),
		Protein:      radarAxis(n.Protein, radarProteinCeiling),
	}
}

func radarAxis(value *float64, ceiling float64) float64 {
	if value == nil {
		return 0
	}
	return math.Min(1, *value/ceiling)
}

// roundTo rounds half away from zero to the given number of decimals
func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
