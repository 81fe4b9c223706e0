package utils

import (
	"math"
	"sort"
	"strings"
)

// Natural Food Index scoring engine. NOVA classification based, with a bonus
// for traditional fermented foods. Deliberately no calorie targets anywhere:
// the score rewards food-quality category and macro balance instead of
// punishing intake, so it stays safe for users with restrictive-eating risk.

var novaBaseScores = map[int]int{1: 100, 2: 70, 3: 40, 4: 10}

// Fermented-food lexicon. Matching is by substring so "aged kimchi" still
// qualifies.
var fermentedFoods = []string{
	"kimchi", "doenjang", "cheonggukjang", "ganjang", "gochujang",
	"makgeolli", "sikhye", "jeotgal", "natto",
}

// Macros is a per-portion macro snapshot. Carb/Protein/Fat in grams,
// Sodium in mg, Sugar and TransFat in grams.
type Macros struct {
	Carb     float64
	Protein  float64
	Fat      float64
	Sodium   float64
	Sugar    float64
	TransFat float64
}

// Food is one food to score. Macros nil means "unknown", which scores
// neutral balance (70) and no penalty.
type Food struct {
	Name      string
	NovaGrade int
	Macros    *Macros
	Fermented bool
	Portion   float64 // weight in the meal average, defaults to 1
}

// CatalogLookup resolves a food name against the reference catalog.
// Returns false when the name has no exact match.
type CatalogLookup func(name string) (Food, bool)

// ScoreFactor is one item-level reason a meal scored the way it did.
type ScoreFactor struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
	Impact int    `json:"impact"`
}

// ComputeNovaScore maps a NOVA grade to its base score and applies the
// fermented bonus, capped at 100. Unknown grades score like grade 4.
func ComputeNovaScore(novaGrade int, isFermented bool) int {
	base, ok := novaBaseScores[novaGrade]
	if !ok {
		base = 10
	}
	if isFermented {
		base += 15
	}
	if base > 100 {
		base = 100
	}
	return base
}

// ComputeNutritionBalanceScore rates how close the macro-energy split is to
// the ideal 50/20/30 carb/protein/fat ratio. Deviation 0 scores 100,
// deviation >= 1.0 scores 0. Zero total mass is treated as neutral (50).
func ComputeNutritionBalanceScore(m Macros) int {
	total := m.Carb + m.Protein + m.Fat
	if total == 0 {
		return 50
	}

	deviation := math.Abs(m.Carb/total-0.5) +
		math.Abs(m.Protein/total-0.2) +
		math.Abs(m.Fat/total-0.3)

	score := int(math.Round(100 - deviation*100))
	if score < 0 {
		score = 0
	}
	return score
}

// ComputePenaltyScore accumulates sodium/sugar/trans-fat penalties, higher
// meaning worse, capped at 100. Per nutrient only the higher threshold fires.
func ComputePenaltyScore(m Macros) int {
	penalty := 0
	if m.Sodium > 600 {
		penalty += 30
	} else if m.Sodium > 300 {
		penalty += 15
	}
	if m.Sugar > 25 {
		penalty += 30
	} else if m.Sugar > 12 {
		penalty += 15
	}
	if m.TransFat > 0.5 {
		penalty += 40
	}
	if penalty > 100 {
		penalty = 100
	}
	return penalty
}

// IsFermented reports whether a food counts as a traditional fermented food,
// either by the explicit flag or by lexicon match on the name.
func IsFermented(f Food) bool {
	if f.Fermented {
		return true
	}
	name := strings.ToLower(f.Name)
	for _, ff := range fermentedFoods {
		if strings.Contains(name, ff) {
			return true
		}
	}
	return false
}

// ComputeSingleFoodScore combines the three components:
// nova*0.5 + balance*0.3 - penalty*0.2, rounded. The penalty term can push
// the result below zero for extreme inputs.
func ComputeSingleFoodScore(f Food) int {
	novaScore := ComputeNovaScore(f.NovaGrade, IsFermented(f))
	balanceScore := 70
	penaltyScore := 0
	if f.Macros != nil {
		balanceScore = ComputeNutritionBalanceScore(*f.Macros)
		penaltyScore = ComputePenaltyScore(*f.Macros)
	}
	return int(math.Round(float64(novaScore)*0.5 + float64(balanceScore)*0.3 - float64(penaltyScore)*0.2))
}

// EnrichFood merges catalog data into a submitted item. Caller-supplied
// fields win over the catalog; the catalog only fills in blanks. Names with
// no exact catalog match pass through unchanged (documented behavior, not a
// bug: localized name variants simply fall back to caller data).
func EnrichFood(item Food, lookup CatalogLookup) Food {
	if lookup == nil {
		return item
	}
	ref, ok := lookup(item.Name)
	if !ok {
		return item
	}
	merged := ref
	merged.Name = item.Name
	if item.NovaGrade != 0 {
		merged.NovaGrade = item.NovaGrade
	}
	if item.Macros != nil {
		merged.Macros = item.Macros
	}
	if item.Fermented {
		merged.Fermented = true
	}
	merged.Portion = item.Portion
	return merged
}

// CalculateMealScore computes the portion-weighted average score of all
// items after catalog enrichment, clamped to [0, 100]. Empty input scores 0.
func CalculateMealScore(items []Food, lookup CatalogLookup) int {
	if len(items) == 0 {
		return 0
	}

	var totalPortion, weighted float64
	for _, item := range items {
		enriched := EnrichFood(item, lookup)
		portion := enriched.Portion
		if portion <= 0 {
			portion = 1
		}
		weighted += float64(ComputeSingleFoodScore(enriched)) * portion
		totalPortion += portion
	}

	score := int(math.Round(weighted / totalPortion))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// ScoreToGrade buckets a score into the S/A/B/C/D display grade.
func ScoreToGrade(score int) string {
	switch {
	case score >= 90:
		return "S"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	default:
		return "D"
	}
}

// AnalyzeScoreFactors explains low scores item by item. Only items with an
// exact catalog match produce factors; results are sorted most negative
// first.
func AnalyzeScoreFactors(items []Food, lookup CatalogLookup) []ScoreFactor {
	factors := []ScoreFactor{}
	if lookup == nil {
		return factors
	}

	for _, item := range items {
		ref, ok := lookup(item.Name)
		if !ok {
			continue
		}
		if ref.NovaGrade == 4 {
			factors = append(factors, ScoreFactor{
				Item: item.Name, Reason: "ultra-processed food (NOVA grade 4)", Impact: -20,
			})
		}
		if ref.Macros == nil {
			continue
		}
		if ref.Macros.Sodium > 600 {
			factors = append(factors, ScoreFactor{Item: item.Name, Reason: "high sodium", Impact: -15})
		}
		if ref.Macros.Sugar > 25 {
			factors = append(factors, ScoreFactor{Item: item.Name, Reason: "high sugar", Impact: -15})
		}
		if ref.Macros.TransFat > 0.5 {
			factors = append(factors, ScoreFactor{Item: item.Name, Reason: "contains trans fat", Impact: -20})
		}
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Impact < factors[j].Impact
	})
	return factors
}
