package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"backend/logger"
	"backend/models"
	"backend/utils"

	"gorm.io/gorm"
)

// aggregationBatchSize caps how many users are settled concurrently so a
// large user base never turns the monthly run into an unbounded write burst.
const aggregationBatchSize = 8

// SubscriptionService owns refund-program state and runs the monthly
// aggregation job over every active subscriber.
type SubscriptionService struct {
	db   *gorm.DB
	push *PushService

	now    func() time.Time
	notify func(userID uint, percent, amount int)
}

func NewSubscriptionService(db *gorm.DB, push *PushService) *SubscriptionService {
	s := &SubscriptionService{db: db, push: push, now: time.Now}
	s.notify = s.notifyRefund
	return s
}

// MonthlyAggregate is one user's prior-month summary.
type MonthlyAggregate struct {
	RecordedDays int
	AvgScore     int
}

// AggregationResult summarizes one job run. Per-user failures are isolated
// and counted; they never abort the batch.
type AggregationResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// SubscriptionView is the API shape for the subscription screen.
type SubscriptionView struct {
	IsActive            bool                  `json:"is_active"`
	CurrentRecordCount  int                   `json:"current_record_count"`
	CurrentAvgScore     int                   `json:"current_avg_score"`
	CurrentEarnedRefund int                   `json:"current_earned_refund"`
	RefundHistory       []models.RefundRecord `json:"refund_history"`
}

// Get returns the subscription plus refund history, oldest month first.
func (s *SubscriptionService) Get(userID uint) (*SubscriptionView, error) {
	sub, err := s.loadOrCreate(userID)
	if err != nil {
		return nil, err
	}

	var history []models.RefundRecord
	if err := s.db.Where("user_id = ?", userID).Order("month ASC").Find(&history).Error; err != nil {
		return nil, err
	}

	return &SubscriptionView{
		IsActive:            sub.IsActive,
		CurrentRecordCount:  sub.CurrentRecordCount,
		CurrentAvgScore:     sub.CurrentAvgScore,
		CurrentEarnedRefund: sub.CurrentEarnedRefund,
		RefundHistory:       history,
	}, nil
}

// NoteEntry rolls a freshly committed entry into the running current-month
// counters. Advisory projection only; the monthly job recomputes from the
// entries themselves.
func (s *SubscriptionService) NoteEntry(userID uint, score int) error {
	sub, err := s.loadOrCreate(userID)
	if err != nil {
		return err
	}

	count := sub.CurrentRecordCount
	sub.CurrentAvgScore = (sub.CurrentAvgScore*count + score + (count+1)/2) / (count + 1)
	sub.CurrentRecordCount = count + 1
	percent := utils.CalculateRefundPercent(distinctDaysEstimate(sub.CurrentRecordCount), sub.CurrentAvgScore)
	sub.CurrentEarnedRefund = utils.RefundAmount(percent)

	return s.db.Save(sub).Error
}

// RunMonthlyAggregation settles the prior calendar month for every active
// subscription: aggregate, persist the refund record, reset counters,
// notify. Users are processed in bounded batches.
func (s *SubscriptionService) RunMonthlyAggregation() (AggregationResult, error) {
	var subs []models.Subscription
	if err := s.db.Where("is_active = ?", true).Find(&subs).Error; err != nil {
		return AggregationResult{}, err
	}

	var (
		mu     sync.Mutex
		result AggregationResult
	)

	for start := 0; start < len(subs); start += aggregationBatchSize {
		end := start + aggregationBatchSize
		if end > len(subs) {
			end = len(subs)
		}

		var wg sync.WaitGroup
		for _, sub := range subs[start:end] {
			wg.Add(1)
			go func(sub models.Subscription) {
				defer wg.Done()
				if err := s.settleUser(sub.UserID); err != nil {
					logger.Error("monthly settlement failed", "user_id", sub.UserID, "error", err)
					mu.Lock()
					result.Failed++
					mu.Unlock()
					return
				}
				mu.Lock()
				result.Processed++
				mu.Unlock()
			}(sub)
		}
		wg.Wait()
	}

	logger.Info("monthly refund aggregation done",
		"processed", result.Processed, "failed", result.Failed)
	return result, nil
}

// AggregateMonth summarizes one user's entries for the month containing
// monthStart. Within each day only the first 3 entries count, mirroring the
// gate's daily cap in case anything slipped past it.
func (s *SubscriptionService) AggregateMonth(userID uint, monthStart time.Time) (MonthlyAggregate, error) {
	monthEnd := monthStart.AddDate(0, 1, 0)

	var entries []models.MealEntry
	err := s.db.
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, monthStart, monthEnd).
		Order("timestamp ASC").
		Find(&entries).Error
	if err != nil {
		return MonthlyAggregate{}, err
	}

	perDay := map[string]int{}
	sum, counted := 0, 0
	for _, e := range entries {
		day := e.Timestamp.In(time.Local).Format("2006-01-02")
		if perDay[day] >= dailyEntryCap {
			continue
		}
		perDay[day]++
		sum += e.TotalScore
		counted++
	}

	agg := MonthlyAggregate{RecordedDays: len(perDay)}
	if counted > 0 {
		agg.AvgScore = (sum + counted/2) / counted
	}
	return agg, nil
}

func (s *SubscriptionService) settleUser(userID uint) error {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, -1, 0)
	month := monthStart.Format("2006-01")

	agg, err := s.AggregateMonth(userID, monthStart)
	if err != nil {
		return err
	}

	percent := utils.CalculateRefundPercent(agg.RecordedDays, agg.AvgScore)
	amount := utils.RefundAmount(percent)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Append-only history: the unique (user, month) index turns a
		// job re-run into a no-op instead of double-crediting.
		record := models.RefundRecord{
			UserID:        userID,
			Month:         month,
			RecordedDays:  agg.RecordedDays,
			AvgScore:      agg.AvgScore,
			RefundPercent: percent,
			Amount:        amount,
		}
		res := tx.Where("user_id = ? AND month = ?", userID, month).FirstOrCreate(&record)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already settled this month
		}

		return tx.Model(&models.Subscription{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"current_record_count":  0,
				"current_avg_score":     0,
				"current_earned_refund": 0,
			}).Error
	})
	if err != nil {
		return err
	}

	// Notification is best-effort: a delivery failure never rolls back the
	// refund that was just persisted.
	if amount > 0 && s.notify != nil {
		s.notify(userID, percent, amount)
	}
	return nil
}

func (s *SubscriptionService) notifyRefund(userID uint, percent, amount int) {
	title := "Your refund points are in!"
	body := fmt.Sprintf("Last month earned you a %d%% refund. %d points credited!", percent, amount)

	if s.push != nil && s.push.HasDevices(userID) {
		s.push.PushToUser(userID, title, body, map[string]string{"type": "refund"})
		return
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		logger.Warn("refund notification skipped, user not found", "user_id", userID)
		return
	}
	if err := utils.SendRefundEmail(user.Email, percent, amount); err != nil {
		logger.Warn("refund email failed", "user_id", userID, "error", err)
	}
}

func (s *SubscriptionService) loadOrCreate(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub = models.Subscription{UserID: userID, IsActive: true}
		if err := s.db.Create(&sub).Error; err != nil {
			return nil, err
		}
		return &sub, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// distinctDaysEstimate projects recorded days from a raw entry count for the
// in-month preview (3 entries max per day).
func distinctDaysEstimate(recordCount int) int {
	return (recordCount + dailyEntryCap - 1) / dailyEntryCap
}
