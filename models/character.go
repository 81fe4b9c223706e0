package models

import (
	"time"

	"gorm.io/gorm"
)

// CharacterProgression is the per-user gamification state. Exp only grows;
// it is mutated solely as a side effect of a successful meal entry write.
type CharacterProgression struct {
	gorm.Model
	UserID           uint `gorm:"uniqueIndex;not null"`
	Level            int  `gorm:"default:1"` // 1–50
	Exp              int  `gorm:"default:0"`
	StreakDays       int  `gorm:"default:0"`
	LastRecordDate   *time.Time
	TotalMealsLogged int `gorm:"default:0"`
}
