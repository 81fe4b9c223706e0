package services

import (
	"context"
	"sync"
	"time"

	"backend/logger"
	"backend/models"

	"gorm.io/gorm"
)

// reminderHour is the local hour for the daily "log your meal" nudge.
const reminderHour = 20

// ReminderService runs the in-process scheduled jobs: the daily reminder
// push and the monthly refund aggregation trigger. Deployments with an
// external scheduler hit the dev endpoint instead and never Start this.
type ReminderService struct {
	db     *gorm.DB
	push   *PushService
	subs   *SubscriptionService
	wg     sync.WaitGroup
	stopCh chan struct{}
}

func NewReminderService(db *gorm.DB, push *PushService, subs *SubscriptionService) *ReminderService {
	return &ReminderService{
		db:     db,
		push:   push,
		subs:   subs,
		stopCh: make(chan struct{}),
	}
}

func (s *ReminderService) Start(ctx context.Context) {
	logger.Info("starting background jobs")
	s.wg.Add(2)
	go s.dailyReminderLoop(ctx)
	go s.monthlyAggregationLoop(ctx)
}

func (s *ReminderService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	logger.Info("background jobs stopped")
}

func (s *ReminderService) dailyReminderLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		timer := time.NewTimer(untilNextHour(time.Now(), reminderHour))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.SendDailyReminders()
		}
	}
}

func (s *ReminderService) monthlyAggregationLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	var lastRun string
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			// First hour of the first day of the month, once.
			if now.Day() != 1 || now.Hour() != 0 {
				continue
			}
			month := now.Format("2006-01")
			if month == lastRun {
				continue
			}
			lastRun = month
			if _, err := s.subs.RunMonthlyAggregation(); err != nil {
				logger.Error("scheduled monthly aggregation failed", "error", err)
			}
		}
	}
}

// SendDailyReminders pushes a nudge to every user who has not logged a meal
// today. Per-user failures are logged and skipped.
func (s *ReminderService) SendDailyReminders() {
	start := dayStartLocal(time.Now())

	var users []models.User
	if err := s.db.Where("disabled = ?", false).Find(&users).Error; err != nil {
		logger.Error("reminder user query failed", "error", err)
		return
	}

	sent := 0
	for _, u := range users {
		var count int64
		err := s.db.Model(&models.MealEntry{}).
			Where("user_id = ? AND timestamp >= ?", u.ID, start).
			Count(&count).Error
		if err != nil {
			logger.Warn("reminder entry check failed", "user_id", u.ID, "error", err)
			continue
		}
		if count > 0 {
			continue
		}

		s.push.PushToUser(u.ID, "How about logging today's meal?",
			"Check your natural food index for today!",
			map[string]string{"screen": "MealInput"})
		sent++
	}
	logger.Info("daily reminders sent", "count", sent)
}

// untilNextHour returns the duration until the next local occurrence of the
// given hour.
func untilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.Local)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
