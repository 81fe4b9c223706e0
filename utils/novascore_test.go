package utils

import "testing"

func TestComputeNovaScore(t *testing.T) {
	tests := []struct {
		name      string
		grade     int
		fermented bool
		want      int
	}{
		{"grade 1 whole food", 1, false, 100},
		{"grade 2 processed ingredient", 2, false, 70},
		{"grade 3 processed food", 3, false, 40},
		{"grade 4 ultra-processed", 4, false, 10},
		{"unknown grade scores like grade 4", 0, false, 10},
		{"fermented bonus on grade 2", 2, true, 85},
		{"fermented bonus capped at 100", 1, true, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeNovaScore(tt.grade, tt.fermented); got != tt.want {
				t.Errorf("ComputeNovaScore(%d, %v) = %d, want %d", tt.grade, tt.fermented, got, tt.want)
			}
		})
	}
}

func TestComputeNutritionBalanceScore(t *testing.T) {
	tests := []struct {
		name string
		m    Macros
		want int
	}{
		{"ideal 50/20/30 split", Macros{Carb: 50, Protein: 20, Fat: 30}, 100},
		{"zero mass is neutral", Macros{}, 50},
		{"all carbs", Macros{Carb: 100}, 0},
		{"slightly off ideal", Macros{Carb: 55, Protein: 20, Fat: 25}, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeNutritionBalanceScore(tt.m); got != tt.want {
				t.Errorf("ComputeNutritionBalanceScore(%+v) = %d, want %d", tt.m, got, tt.want)
			}
		})
	}
}

func TestComputeNutritionBalanceScoreNeverNegative(t *testing.T) {
	// deviation can exceed 1.0; the score floors at 0
	m := Macros{Protein: 100}
	if got := ComputeNutritionBalanceScore(m); got < 0 {
		t.Errorf("balance score went negative: %d", got)
	}
}

func TestComputePenaltyScore(t *testing.T) {
	tests := []struct {
		name string
		m    Macros
		want int
	}{
		{"clean", Macros{Sodium: 100, Sugar: 5}, 0},
		{"moderate sodium", Macros{Sodium: 400}, 15},
		{"high sodium", Macros{Sodium: 700}, 30},
		{"sodium threshold is exclusive", Macros{Sodium: 600}, 15},
		{"moderate sugar", Macros{Sugar: 15}, 15},
		{"high sugar", Macros{Sugar: 30}, 30},
		{"trans fat", Macros{TransFat: 1}, 40},
		{"only higher sodium tier fires", Macros{Sodium: 900}, 30},
		{"everything bad", Macros{Sodium: 700, Sugar: 30, TransFat: 1}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputePenaltyScore(tt.m); got != tt.want {
				t.Errorf("ComputePenaltyScore(%+v) = %d, want %d", tt.m, got, tt.want)
			}
		})
	}
}

func TestIsFermented(t *testing.T) {
	if !IsFermented(Food{Name: "aged kimchi"}) {
		t.Error("substring match on known fermented food failed")
	}
	if !IsFermented(Food{Name: "plain rice", Fermented: true}) {
		t.Error("explicit flag should win regardless of name")
	}
	if IsFermented(Food{Name: "white bread"}) {
		t.Error("plain food wrongly flagged fermented")
	}
}

func TestComputeSingleFoodScore(t *testing.T) {
	// nova 100*0.5 + balance 100*0.3 - penalty 0 = 80
	f := Food{NovaGrade: 1, Macros: &Macros{Carb: 50, Protein: 20, Fat: 30}}
	if got := ComputeSingleFoodScore(f); got != 80 {
		t.Errorf("ideal whole food = %d, want 80", got)
	}

	// no macros: nova*0.5 + 70*0.3, no penalty
	noMacros := Food{NovaGrade: 1}
	if got := ComputeSingleFoodScore(noMacros); got != 71 {
		t.Errorf("no-macro food = %d, want 71", got)
	}

	// extreme junk can score below zero at item level
	junk := Food{NovaGrade: 4, Macros: &Macros{Carb: 100, Sodium: 900, Sugar: 40, TransFat: 2}}
	if got := ComputeSingleFoodScore(junk); got >= 0 {
		t.Errorf("extreme junk item = %d, expected negative", got)
	}
}

func TestCalculateMealScore(t *testing.T) {
	if got := CalculateMealScore(nil, nil); got != 0 {
		t.Errorf("empty meal = %d, want 0", got)
	}

	junk := []Food{{NovaGrade: 4, Macros: &Macros{Carb: 100, Sodium: 900, Sugar: 40, TransFat: 2}}}
	if got := CalculateMealScore(junk, nil); got != 0 {
		t.Errorf("meal score must clamp at 0, got %d", got)
	}

	meal := []Food{
		{Name: "brown rice", NovaGrade: 1, Macros: &Macros{Carb: 50, Protein: 20, Fat: 30}},
		{Name: "instant noodles", NovaGrade: 4, Macros: &Macros{Carb: 80, Protein: 10, Fat: 10, Sodium: 900}},
	}
	got := CalculateMealScore(meal, nil)
	if got < 0 || got > 100 {
		t.Fatalf("meal score out of range: %d", got)
	}

	// item order must not matter
	reversed := []Food{meal[1], meal[0]}
	if rev := CalculateMealScore(reversed, nil); rev != got {
		t.Errorf("order changed the score: %d vs %d", got, rev)
	}
}

func TestCalculateMealScorePortionWeighting(t *testing.T) {
	high := Food{NovaGrade: 1, Portion: 3}
	low := Food{NovaGrade: 4, Portion: 1}

	weighted := CalculateMealScore([]Food{high, low}, nil)
	even := CalculateMealScore([]Food{
		{NovaGrade: 1, Portion: 1},
		{NovaGrade: 4, Portion: 1},
	}, nil)
	if weighted <= even {
		t.Errorf("larger portion of the better food should raise the average: %d <= %d", weighted, even)
	}
}

func TestEnrichFood(t *testing.T) {
	lookup := func(name string) (Food, bool) {
		if name == "kimchi" {
			return Food{Name: "kimchi", NovaGrade: 3, Fermented: true,
				Macros: &Macros{Carb: 5, Protein: 2, Fat: 0.5, Sodium: 500}}, true
		}
		return Food{}, false
	}

	// catalog fills in blanks
	got := EnrichFood(Food{Name: "kimchi", Portion: 2}, lookup)
	if got.NovaGrade != 3 || !got.Fermented || got.Macros == nil {
		t.Errorf("catalog data not merged: %+v", got)
	}
	if got.Portion != 2 {
		t.Errorf("portion must come from the caller, got %v", got.Portion)
	}

	// caller-supplied fields win
	got = EnrichFood(Food{Name: "kimchi", NovaGrade: 1, Macros: &Macros{Carb: 10}}, lookup)
	if got.NovaGrade != 1 || got.Macros.Carb != 10 {
		t.Errorf("caller fields should win over catalog: %+v", got)
	}

	// unmatched names pass through untouched
	orig := Food{Name: "mystery stew", NovaGrade: 2}
	if got := EnrichFood(orig, lookup); got != orig {
		t.Errorf("unmatched name changed: %+v", got)
	}
}

func TestScoreToGrade(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{95, "S"}, {90, "S"}, {89, "A"}, {80, "A"},
		{79, "B"}, {70, "B"}, {69, "C"}, {60, "C"},
		{59, "D"}, {0, "D"},
	}
	for _, tt := range tests {
		if got := ScoreToGrade(tt.score); got != tt.want {
			t.Errorf("ScoreToGrade(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestAnalyzeScoreFactors(t *testing.T) {
	lookup := func(name string) (Food, bool) {
		switch name {
		case "instant noodles":
			return Food{Name: name, NovaGrade: 4, Macros: &Macros{Sodium: 900}}, true
		case "brown rice":
			return Food{Name: name, NovaGrade: 1, Macros: &Macros{Carb: 45}}, true
		}
		return Food{}, false
	}

	items := []Food{
		{Name: "brown rice"},
		{Name: "instant noodles"},
		{Name: "unknown dish"},
	}
	factors := AnalyzeScoreFactors(items, lookup)
	if len(factors) != 2 {
		t.Fatalf("want 2 factors (nova4 + sodium), got %d: %+v", len(factors), factors)
	}
	// sorted most negative first
	if factors[0].Impact > factors[1].Impact {
		t.Errorf("factors not sorted by impact: %+v", factors)
	}
	for _, f := range factors {
		if f.Item != "instant noodles" {
			t.Errorf("clean or unknown item produced a factor: %+v", f)
		}
	}
}
