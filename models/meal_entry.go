package models

import (
	"time"

	"gorm.io/gorm"
)

// Input methods accepted by the submission gate.
const (
	InputMethodCamera  = "camera"
	InputMethodBarcode = "barcode"
	InputMethodManual  = "manual"
)

// MealEntry is one committed meal record. Timestamp is always assigned by
// the server inside the gate transaction, never taken from the client.
// Immutable after creation.
type MealEntry struct {
	gorm.Model
	UserID      uint      `gorm:"index:idx_user_ts,priority:1;index:idx_user_hash,priority:1;not null"`
	Timestamp   time.Time `gorm:"index:idx_user_ts,priority:2;not null"`
	ImageURL    string
	ImageHash   *string `gorm:"index:idx_user_hash,priority:2;size:64"` // nil when hashing failed
	TotalScore  int     `gorm:"not null"`
	InputMethod string  `gorm:"size:16;not null"`
	Items       []MealEntryItem
}

// MealEntryItem stores the resolved per-food snapshot as scored, so the
// entry stays self-contained even if the catalog changes later.
type MealEntryItem struct {
	gorm.Model
	MealEntryID uint   `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	NovaGrade   int
	Carb        float64
	Protein     float64
	Fat         float64
	Sodium      float64
	Sugar       float64
	TransFat    float64
	Fermented   bool
	Portion     float64 `gorm:"default:1"`
	Score       int
}
