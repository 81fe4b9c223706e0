package services

import (
	"strings"

	"backend/models"
	"backend/utils"

	"gorm.io/gorm"
)

// FoodService fronts the reference food catalog: exact-name lookup for
// enrichment inside the scoring path, plus search and variant suggestions
// for the capture UI.
type FoodService struct {
	db *gorm.DB
}

func NewFoodService(db *gorm.DB) *FoodService {
	return &FoodService{db: db}
}

// Lookup resolves a catalog entry by exact name match. Localized or
// near-duplicate names miss on purpose; the scorer then falls back to
// caller-supplied fields.
func (s *FoodService) Lookup(name string) (utils.Food, bool) {
	var ref models.FoodReference
	err := s.db.Where("name = ?", name).First(&ref).Error
	if err != nil {
		return utils.Food{}, false
	}
	return referenceToFood(ref), true
}

// Search returns catalog entries whose name contains the query.
func (s *FoodService) Search(query string) ([]models.FoodReference, error) {
	var refs []models.FoodReference
	q := "%" + strings.TrimSpace(query) + "%"
	err := s.db.Where("name LIKE ?", q).Order("name").Limit(20).Find(&refs).Error
	return refs, err
}

// Coarse recognition labels mapped to concrete catalog-friendly choices.
var foodVariants = map[string][]string{
	"rice":  {"white rice", "brown rice", "multigrain rice"},
	"bread": {"whole wheat bread", "white bread", "baguette", "croissant"},
	"egg":   {"boiled egg", "fried egg", "scrambled egg"},
	"fish":  {"salmon", "canned tuna", "grilled mackerel"},
	"soup":  {"doenjang stew", "cheonggukjang stew", "instant ramen"},
}

// Variants expands a coarse food label (as returned by image recognition)
// into concrete choices the user can pick from.
func (s *FoodService) Variants(label string) []string {
	if v, ok := foodVariants[strings.ToLower(strings.TrimSpace(label))]; ok {
		return v
	}
	return nil
}

func referenceToFood(ref models.FoodReference) utils.Food {
	return utils.Food{
		Name:      ref.Name,
		NovaGrade: ref.NovaGrade,
		Macros: &utils.Macros{
			Carb:     ref.Carb,
			Protein:  ref.Protein,
			Fat:      ref.Fat,
			Sodium:   ref.Sodium,
			Sugar:    ref.Sugar,
			TransFat: ref.TransFat,
		},
		Fermented: ref.Fermented,
		Portion:   1,
	}
}
