package utils

import (
	"math"
	"time"
)

// EXP rewards for meal logging and related milestones.
const (
	ExpMealLogged     = 10  // any logged meal
	ExpHighScoreBonus = 20  // score >= 80
	ExpStreak7Days    = 100 // 7-day streak milestone just reached
	ExpAICoaching     = 5   // used AI coaching this cycle
)

// MaxLevel is the hard level cap; exp keeps accumulating past it but no
// further levels are granted.
const MaxLevel = 50

// LevelInfo describes where a given exp total lands.
type LevelInfo struct {
	Level           int `json:"level"`
	ExpInLevel      int `json:"exp_in_level"`
	RequiredExp     int `json:"required_exp"`
	ProgressPercent int `json:"progress_percent"`
}

// ExpBreakdown is one applied exp reason.
type ExpBreakdown struct {
	Reason string `json:"reason"`
	Exp    int    `json:"exp"`
}

// EarnedExp is the total exp for one logged meal plus its breakdown.
type EarnedExp struct {
	Total     int            `json:"total"`
	Breakdown []ExpBreakdown `json:"breakdown"`
}

// StreakUpdate is the outcome of rolling the streak forward for today.
type StreakUpdate struct {
	NewStreakDays int
	IsStreak7Days bool
}

// LevelUp signals that an exp change crossed a level boundary.
type LevelUp struct {
	NewLevel int `json:"new_level"`
}

// RequiredExpForLevel is the exp needed to clear the given level.
func RequiredExpForLevel(level int) int {
	return level * 100
}

// CalculateLevelInfo consumes level thresholds greedily from level 1 until
// the remaining exp no longer covers the next level, capping at MaxLevel.
func CalculateLevelInfo(totalExp int) LevelInfo {
	level := 1
	remaining := totalExp

	for remaining >= RequiredExpForLevel(level) {
		remaining -= RequiredExpForLevel(level)
		level++
		if level >= MaxLevel {
			break
		}
	}

	required := RequiredExpForLevel(level)
	percent := int(math.Round(float64(remaining) / float64(required) * 100))
	if percent > 100 {
		percent = 100
	}
	return LevelInfo{
		Level:           level,
		ExpInLevel:      remaining,
		RequiredExp:     required,
		ProgressPercent: percent,
	}
}

// CalculateEarnedExp computes the exp for one logged meal: base reward plus
// high-score, streak-milestone and coaching bonuses.
func CalculateEarnedExp(score int, isStreak7Days, usedAI bool) EarnedExp {
	breakdown := []ExpBreakdown{{Reason: "meal logged", Exp: ExpMealLogged}}

	if score >= 80 {
		breakdown = append(breakdown, ExpBreakdown{Reason: "natural food index 80 or above", Exp: ExpHighScoreBonus})
	}
	if isStreak7Days {
		breakdown = append(breakdown, ExpBreakdown{Reason: "7-day streak reached", Exp: ExpStreak7Days})
	}
	if usedAI {
		breakdown = append(breakdown, ExpBreakdown{Reason: "AI coaching used", Exp: ExpAICoaching})
	}

	total := 0
	for _, b := range breakdown {
		total += b.Exp
	}
	return EarnedExp{Total: total, Breakdown: breakdown}
}

// UpdateStreak rolls the consecutive-day counter forward given the previous
// record date. Same-day records leave the streak untouched, a gap of exactly
// one day extends it, anything longer resets to 1. The milestone flag fires
// only when the extended streak is a multiple of 7.
func UpdateStreak(streakDays int, lastRecordDate *time.Time, now time.Time) StreakUpdate {
	if lastRecordDate == nil {
		return StreakUpdate{NewStreakDays: 1}
	}

	today := dateOnly(now)
	last := dateOnly(*lastRecordDate)

	if last.Equal(today) {
		return StreakUpdate{NewStreakDays: streakDays}
	}
	if last.Equal(today.AddDate(0, 0, -1)) {
		next := streakDays + 1
		return StreakUpdate{NewStreakDays: next, IsStreak7Days: next%7 == 0}
	}
	return StreakUpdate{NewStreakDays: 1}
}

// DetectLevelUp compares level info before and after an exp change and
// returns nil when no level boundary was crossed.
func DetectLevelUp(prevExp, newExp int) *LevelUp {
	prev := CalculateLevelInfo(prevExp)
	next := CalculateLevelInfo(newExp)
	if next.Level > prev.Level {
		return &LevelUp{NewLevel: next.Level}
	}
	return nil
}

// CharacterImageKey picks the display sprite for a level/streak state.
func CharacterImageKey(level, streakDays int, todayRecorded bool) string {
	if !todayRecorded && streakDays == 0 {
		return "sad"
	}
	switch {
	case level >= 40:
		return "legendary"
	case level >= 30:
		return "master"
	case level >= 20:
		return "advanced"
	case level >= 10:
		return "intermediate"
	default:
		return "beginner"
	}
}

func dateOnly(t time.Time) time.Time {
	tt := t.In(time.Local)
	return time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.Local)
}
