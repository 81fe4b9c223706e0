package utils

import (
	"testing"
	"time"
)

func TestCalculateLevelInfo(t *testing.T) {
	tests := []struct {
		name    string
		exp     int
		level   int
		inLevel int
		needed  int
		percent int
	}{
		{"fresh account", 0, 1, 0, 100, 0},
		{"mid level 1", 50, 1, 50, 100, 50},
		{"exactly level 2", 100, 2, 0, 200, 0},
		{"deep into level 2", 250, 2, 150, 200, 75},
		{"level 3", 300, 3, 0, 300, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateLevelInfo(tt.exp)
			if got.Level != tt.level || got.ExpInLevel != tt.inLevel ||
				got.RequiredExp != tt.needed || got.ProgressPercent != tt.percent {
				t.Errorf("CalculateLevelInfo(%d) = %+v, want level=%d inLevel=%d required=%d percent=%d",
					tt.exp, got, tt.level, tt.inLevel, tt.needed, tt.percent)
			}
		})
	}
}

func TestCalculateLevelInfoCap(t *testing.T) {
	got := CalculateLevelInfo(100_000_000)
	if got.Level != MaxLevel {
		t.Errorf("level = %d, want cap %d", got.Level, MaxLevel)
	}
	if got.ProgressPercent > 100 {
		t.Errorf("progress above 100 at cap: %d", got.ProgressPercent)
	}
}

func TestCalculateEarnedExp(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		streak7   bool
		usedAI    bool
		total     int
		breakdown int
	}{
		{"base only", 50, false, false, 10, 1},
		{"high score bonus", 80, false, false, 30, 2},
		{"score 79 is not high", 79, false, false, 10, 1},
		{"streak milestone", 50, true, false, 110, 2},
		{"everything", 90, true, true, 135, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateEarnedExp(tt.score, tt.streak7, tt.usedAI)
			if got.Total != tt.total {
				t.Errorf("total = %d, want %d", got.Total, tt.total)
			}
			if len(got.Breakdown) != tt.breakdown {
				t.Errorf("breakdown length = %d, want %d", len(got.Breakdown), tt.breakdown)
			}
			sum := 0
			for _, b := range got.Breakdown {
				sum += b.Exp
			}
			if sum != got.Total {
				t.Errorf("breakdown sums to %d, total says %d", sum, got.Total)
			}
		})
	}
}

func TestUpdateStreak(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local)
	yesterday := now.AddDate(0, 0, -1)
	threeDaysAgo := now.AddDate(0, 0, -3)

	t.Run("first ever record", func(t *testing.T) {
		got := UpdateStreak(0, nil, now)
		if got.NewStreakDays != 1 || got.IsStreak7Days {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("second record same day keeps streak", func(t *testing.T) {
		earlier := time.Date(2026, 3, 15, 8, 0, 0, 0, time.Local)
		got := UpdateStreak(4, &earlier, now)
		if got.NewStreakDays != 4 || got.IsStreak7Days {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("consecutive day extends", func(t *testing.T) {
		got := UpdateStreak(4, &yesterday, now)
		if got.NewStreakDays != 5 || got.IsStreak7Days {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("7-day milestone", func(t *testing.T) {
		got := UpdateStreak(6, &yesterday, now)
		if got.NewStreakDays != 7 || !got.IsStreak7Days {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("14-day milestone fires again", func(t *testing.T) {
		got := UpdateStreak(13, &yesterday, now)
		if got.NewStreakDays != 14 || !got.IsStreak7Days {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("gap resets to 1", func(t *testing.T) {
		got := UpdateStreak(12, &threeDaysAgo, now)
		if got.NewStreakDays != 1 || got.IsStreak7Days {
			t.Errorf("got %+v", got)
		}
	})
}

func TestDetectLevelUp(t *testing.T) {
	if lu := DetectLevelUp(90, 95); lu != nil {
		t.Errorf("no boundary crossed, got %+v", lu)
	}
	lu := DetectLevelUp(90, 110)
	if lu == nil || lu.NewLevel != 2 {
		t.Errorf("want level 2, got %+v", lu)
	}
	// crossing several levels at once reports the final one
	lu = DetectLevelUp(0, 700)
	if lu == nil || lu.NewLevel != 4 {
		t.Errorf("want level 4, got %+v", lu)
	}
}

func TestCharacterImageKey(t *testing.T) {
	if got := CharacterImageKey(1, 0, false); got != "sad" {
		t.Errorf("lapsed user sprite = %q", got)
	}
	tests := []struct {
		level int
		want  string
	}{
		{1, "beginner"}, {10, "intermediate"}, {20, "advanced"},
		{30, "master"}, {40, "legendary"}, {50, "legendary"},
	}
	for _, tt := range tests {
		if got := CharacterImageKey(tt.level, 3, true); got != tt.want {
			t.Errorf("level %d sprite = %q, want %q", tt.level, got, tt.want)
		}
	}
}
