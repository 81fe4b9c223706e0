package models

import "gorm.io/gorm"

// FoodReference is one entry of the static food catalog: NOVA processing
// grade plus a macro snapshot per typical portion. Loaded at startup and
// treated as immutable reference data; meal items are enriched against it
// by exact name match.
type FoodReference struct {
	gorm.Model
	Name      string `gorm:"uniqueIndex;not null"`
	NovaGrade int    `gorm:"not null"` // 1 unprocessed … 4 ultra-processed
	Carb      float64
	Protein   float64
	Fat       float64
	Calories  float64
	Sodium    float64 // mg
	Sugar     float64 // g
	TransFat  float64 // g
	Fermented bool    // traditional fermented food bonus
}
