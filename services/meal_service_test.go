package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"backend/apperror"
	"backend/config"
	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// single connection keeps concurrent writers from tripping sqlite locks
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	require.NoError(t, config.SeedFoodCatalog(db))
	return db
}

func newTestMealService(t *testing.T, db *gorm.DB) *MealService {
	t.Helper()
	characters := NewCharacterService(db, nil, nil)
	foods := NewFoodService(db)
	subs := NewSubscriptionService(db, nil)
	subs.notify = func(uint, int, int) {}

	s := NewMealService(db, foods, characters, subs)
	s.uploadImage = func(string, uint) (string, error) {
		return "https://cdn.example.com/meals/test.jpg", nil
	}
	return s
}

func validMeal() SubmitMealRequest {
	return SubmitMealRequest{
		Items:       []SubmitItemRequest{{Name: "brown rice"}, {Name: "kimchi"}},
		InputMethod: models.InputMethodManual,
	}
}

func TestSubmitMealValidation(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	_, err := s.SubmitMeal(1, SubmitMealRequest{InputMethod: models.InputMethodManual})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	req := validMeal()
	req.InputMethod = "telepathy"
	_, err = s.SubmitMeal(1, req)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	req = validMeal()
	req.Items[0].Portion = -1
	_, err = s.SubmitMeal(1, req)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSubmitMealAssignsServerTimestamp(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	serverNow := time.Date(2026, 5, 10, 12, 0, 0, 0, time.Local)
	s.now = func() time.Time { return serverNow }

	entry, err := s.SubmitMeal(1, validMeal())
	require.NoError(t, err)
	assert.True(t, entry.Timestamp.Equal(serverNow), "timestamp must come from the server clock")
	assert.GreaterOrEqual(t, entry.TotalScore, 0)
	assert.LessOrEqual(t, entry.TotalScore, 100)
	assert.Len(t, entry.Items, 2)
}

// The store behind newTestDB allows a single connection, so this also proves
// the catalog lookups cannot block against the gate's own transaction.
func TestSubmitMealEnrichesFromCatalog(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	entry, err := s.SubmitMeal(1, SubmitMealRequest{
		Items:       []SubmitItemRequest{{Name: "kimchi"}, {Name: "instant ramen"}},
		InputMethod: models.InputMethodManual,
	})
	require.NoError(t, err)
	require.Len(t, entry.Items, 2)

	var kimchi, ramen *models.MealEntryItem
	for i := range entry.Items {
		switch entry.Items[i].Name {
		case "kimchi":
			kimchi = &entry.Items[i]
		case "instant ramen":
			ramen = &entry.Items[i]
		}
	}
	require.NotNil(t, kimchi)
	require.NotNil(t, ramen)

	// snapshots carry the catalog data, not the bare request
	assert.Equal(t, 2, kimchi.NovaGrade)
	assert.True(t, kimchi.Fermented)
	assert.Equal(t, 4, ramen.NovaGrade)
	assert.Equal(t, 1700.0, ramen.Sodium)
	assert.Greater(t, kimchi.Score, ramen.Score)
}

func TestSubmitMealStaleCapture(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	old := time.Now().Add(-25 * time.Hour)
	req := validMeal()
	req.CaptureTimestamp = &old
	_, err := s.SubmitMeal(1, req)
	assert.ErrorIs(t, err, apperror.ErrStaleCapture)

	// exactly within the window passes
	recent := time.Now().Add(-23 * time.Hour)
	req = validMeal()
	req.CaptureTimestamp = &recent
	_, err = s.SubmitMeal(1, req)
	assert.NoError(t, err)
}

func TestSubmitMealDuplicateImage(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	base := time.Date(2026, 5, 10, 8, 0, 0, 0, time.Local)
	s.now = func() time.Time { return base }

	req := validMeal()
	req.ImageHash = "abc123"
	_, err := s.SubmitMeal(1, req)
	require.NoError(t, err)

	// same hash again, well past the interval
	s.now = func() time.Time { return base.Add(3 * time.Hour) }
	_, err = s.SubmitMeal(1, req)
	assert.ErrorIs(t, err, apperror.ErrDuplicateSubmission)

	// a different user may reuse the hash
	_, err = s.SubmitMeal(2, req)
	assert.NoError(t, err)
}

func TestSubmitMealMinimumInterval(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	base := time.Date(2026, 5, 10, 8, 0, 0, 0, time.Local)
	s.now = func() time.Time { return base }
	_, err := s.SubmitMeal(1, validMeal())
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(90 * time.Minute) }
	_, err = s.SubmitMeal(1, validMeal())
	assert.ErrorIs(t, err, apperror.ErrTooSoon)

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = s.SubmitMeal(1, validMeal())
	assert.NoError(t, err)
}

func TestSubmitMealDailyCap(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	base := time.Date(2026, 5, 10, 6, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		s.now = func() time.Time { return base.Add(time.Duration(i) * 3 * time.Hour) }
		_, err := s.SubmitMeal(1, validMeal())
		require.NoError(t, err)
	}

	// fourth entry the same local day
	s.now = func() time.Time { return base.Add(12 * time.Hour) }
	_, err := s.SubmitMeal(1, validMeal())
	assert.ErrorIs(t, err, apperror.ErrDailyCapReached)

	// next local day opens a fresh allowance
	s.now = func() time.Time { return base.AddDate(0, 0, 1) }
	_, err = s.SubmitMeal(1, validMeal())
	assert.NoError(t, err)
}

func TestSubmitMealConcurrentSameUser(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)
	s.now = func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.Local) }

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.SubmitMeal(1, validMeal())
		}(i)
	}
	wg.Wait()

	succeeded, tooSoon := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, apperror.ErrTooSoon):
			tooSoon++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent submission may win")
	assert.Equal(t, attempts-1, tooSoon)

	var count int64
	require.NoError(t, db.Model(&models.MealEntry{}).Where("user_id = ?", 1).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitMealUpdatesProgression(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	_, err := s.SubmitMeal(1, validMeal())
	require.NoError(t, err)

	var prog models.CharacterProgression
	require.NoError(t, db.Where("user_id = ?", 1).First(&prog).Error)
	assert.Equal(t, 1, prog.StreakDays)
	assert.Equal(t, 1, prog.TotalMealsLogged)
	assert.Greater(t, prog.Exp, 0)

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)
	assert.Equal(t, 1, sub.CurrentRecordCount)
}

func TestListByDate(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	day := time.Date(2026, 5, 10, 0, 0, 0, 0, time.Local)
	s.now = func() time.Time { return day.Add(8 * time.Hour) }
	_, err := s.SubmitMeal(1, validMeal())
	require.NoError(t, err)

	s.now = func() time.Time { return day.Add(30 * time.Hour) } // next day
	_, err = s.SubmitMeal(1, validMeal())
	require.NoError(t, err)

	entries, err := s.ListByDate(1, day)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, entries[0].Items, 2, "items must be preloaded")
}

func TestPreviewScore(t *testing.T) {
	db := newTestDB(t)
	s := newTestMealService(t, db)

	score, grade, factors := s.PreviewScore([]SubmitItemRequest{{Name: "instant ramen"}})
	assert.GreaterOrEqual(t, score, 0)
	assert.NotEmpty(t, grade)
	assert.NotEmpty(t, factors, "ultra-processed catalog item must explain itself")

	var count int64
	require.NoError(t, db.Model(&models.MealEntry{}).Count(&count).Error)
	assert.Zero(t, count, "preview must not write")
}
