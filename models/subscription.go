package models

import "gorm.io/gorm"

// Subscription tracks refund-program state for one user. The current-month
// counters are reset by the monthly aggregation job.
type Subscription struct {
	gorm.Model
	UserID              uint `gorm:"uniqueIndex;not null"`
	IsActive            bool `gorm:"index"`
	CurrentRecordCount  int
	CurrentAvgScore     int
	CurrentEarnedRefund int
}

// RefundRecord is one settled month. Append-only: the unique (user, month)
// index makes a re-run of the aggregation job idempotent.
type RefundRecord struct {
	gorm.Model
	UserID        uint   `gorm:"index;uniqueIndex:idx_user_month,priority:1;not null"`
	Month         string `gorm:"uniqueIndex:idx_user_month,priority:2;size:7;not null"` // "2006-01"
	RecordedDays  int
	AvgScore      int
	RefundPercent int
	Amount        int
}
