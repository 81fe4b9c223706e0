package services

import (
	"errors"
	"fmt"
	"time"

	"backend/logger"
	"backend/models"
	"backend/utils"

	"gorm.io/gorm"
)

// CharacterService owns per-user progression state. It is only ever driven
// by the same user's own successful meal writes, so last-write-wins is
// acceptable here; the meal entry itself is the source of truth.
type CharacterService struct {
	db   *gorm.DB
	hub  *RealtimeHub
	push *PushService

	now func() time.Time
}

func NewCharacterService(db *gorm.DB, hub *RealtimeHub, push *PushService) *CharacterService {
	return &CharacterService{db: db, hub: hub, push: push, now: time.Now}
}

// CharacterView is the progression snapshot returned to clients.
type CharacterView struct {
	Level            int             `json:"level"`
	Exp              int             `json:"exp"`
	LevelInfo        utils.LevelInfo `json:"level_info"`
	StreakDays       int             `json:"streak_days"`
	TotalMealsLogged int             `json:"total_meals_logged"`
	TodayRecorded    bool            `json:"today_recorded"`
	ImageKey         string          `json:"image_key"`
}

// ApplyMealLogged awards exp for a committed meal entry, rolls the streak,
// and detects level-ups. Idempotence is not required: the caller retries at
// most once and an extra award is advisory-only state.
func (s *CharacterService) ApplyMealLogged(userID uint, score int) (*models.CharacterProgression, *utils.LevelUp, error) {
	prog, err := s.loadOrCreate(userID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	streak := utils.UpdateStreak(prog.StreakDays, prog.LastRecordDate, now)
	earned := utils.CalculateEarnedExp(score, streak.IsStreak7Days, false)

	prevExp := prog.Exp
	prog.Exp += earned.Total
	prog.StreakDays = streak.NewStreakDays
	prog.LastRecordDate = &now
	prog.TotalMealsLogged++

	info := utils.CalculateLevelInfo(prog.Exp)
	prog.Level = info.Level

	if err := s.db.Save(prog).Error; err != nil {
		return nil, nil, err
	}

	levelUp := utils.DetectLevelUp(prevExp, prog.Exp)
	s.announce(userID, prog, earned, streak, levelUp)

	return prog, levelUp, nil
}

// AwardCoachingExp grants the small AI-coaching bonus. Best-effort, called
// after a completed coaching exchange.
func (s *CharacterService) AwardCoachingExp(userID uint) error {
	prog, err := s.loadOrCreate(userID)
	if err != nil {
		return err
	}
	prevExp := prog.Exp
	prog.Exp += utils.ExpAICoaching
	info := utils.CalculateLevelInfo(prog.Exp)
	prog.Level = info.Level
	if err := s.db.Save(prog).Error; err != nil {
		return err
	}
	if up := utils.DetectLevelUp(prevExp, prog.Exp); up != nil && s.hub != nil {
		s.hub.BroadcastEvent(userID, map[string]any{"kind": "level.up", "new_level": up.NewLevel})
	}
	return nil
}

// Get returns the current progression view for a user.
func (s *CharacterService) Get(userID uint) (*CharacterView, error) {
	prog, err := s.loadOrCreate(userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	todayRecorded := prog.LastRecordDate != nil &&
		dayStartLocal(*prog.LastRecordDate).Equal(dayStartLocal(now))

	return &CharacterView{
		Level:            prog.Level,
		Exp:              prog.Exp,
		LevelInfo:        utils.CalculateLevelInfo(prog.Exp),
		StreakDays:       prog.StreakDays,
		TotalMealsLogged: prog.TotalMealsLogged,
		TodayRecorded:    todayRecorded,
		ImageKey:         utils.CharacterImageKey(prog.Level, prog.StreakDays, todayRecorded),
	}, nil
}

func (s *CharacterService) loadOrCreate(userID uint) (*models.CharacterProgression, error) {
	var prog models.CharacterProgression
	err := s.db.Where("user_id = ?", userID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prog = models.CharacterProgression{UserID: userID, Level: 1}
		if err := s.db.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

func (s *CharacterService) announce(userID uint, prog *models.CharacterProgression, earned utils.EarnedExp, streak utils.StreakUpdate, levelUp *utils.LevelUp) {
	if s.hub != nil {
		s.hub.BroadcastEvent(userID, map[string]any{
			"kind":        "progression.updated",
			"exp_earned":  earned,
			"streak_days": streak.NewStreakDays,
			"level":       prog.Level,
		})
		if levelUp != nil {
			s.hub.BroadcastEvent(userID, map[string]any{
				"kind":      "level.up",
				"new_level": levelUp.NewLevel,
			})
		}
	}

	if levelUp != nil && s.push != nil {
		s.push.PushToUser(userID, "Level up!",
			fmt.Sprintf("Your character reached level %d. Keep it going!", levelUp.NewLevel),
			map[string]string{"type": "level_up"})
	}
	if streak.IsStreak7Days {
		logger.Info("streak milestone", "user_id", userID, "streak_days", streak.NewStreakDays)
	}
}
