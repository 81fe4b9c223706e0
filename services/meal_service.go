package services

import (
	"errors"
	"sync"
	"time"

	"backend/apperror"
	"backend/logger"
	"backend/models"
	"backend/utils"

	"gorm.io/gorm"
)

const (
	minEntryInterval = 2 * time.Hour
	dailyEntryCap    = 3
	maxCaptureAge    = 24 * time.Hour
)

// MealService is the submission gate. All writes to a user's entry
// collection go through SubmitMeal, which serializes per user so the
// duplicate/interval/cap checks and the insert can never interleave with a
// concurrent submission from the same user, whatever the store's isolation
// level.
type MealService struct {
	db         *gorm.DB
	foods      *FoodService
	characters *CharacterService
	subs       *SubscriptionService

	userLocks sync.Map // userID → *sync.Mutex

	// seams for tests; default to the real implementations
	now         func() time.Time
	uploadImage func(base64Data string, userID uint) (string, error)
}

func NewMealService(db *gorm.DB, foods *FoodService, characters *CharacterService, subs *SubscriptionService) *MealService {
	return &MealService{
		db:          db,
		foods:       foods,
		characters:  characters,
		subs:        subs,
		now:         time.Now,
		uploadImage: utils.UploadMealImage,
	}
}

// SubmitItemRequest is one food as identified by capture/search.
// NovaGrade/Macros are optional; the catalog fills in what it can and
// caller-supplied values win.
type SubmitItemRequest struct {
	Name      string        `json:"name" binding:"required"`
	NovaGrade int           `json:"nova_grade"`
	Macros    *utils.Macros `json:"macros"`
	Fermented bool          `json:"fermented"`
	Portion   float64       `json:"portion"`
}

type SubmitMealRequest struct {
	ImageBase64      string              `json:"image_base64"`
	ImageHash        string              `json:"image_hash"`
	Items            []SubmitItemRequest `json:"items" binding:"required"`
	InputMethod      string              `json:"input_method" binding:"required"`
	CaptureTimestamp *time.Time          `json:"capture_timestamp"`
}

// SubmitMeal validates and atomically commits a new meal entry.
// The image upload happens before the transaction (object storage is not
// transactional); a rejected submission may orphan the blob. Progression
// update is a best-effort side effect after the commit.
func (s *MealService) SubmitMeal(userID uint, req SubmitMealRequest) (*models.MealEntry, error) {
	if len(req.Items) == 0 {
		return nil, apperror.Validation("at least one food item is required")
	}
	switch req.InputMethod {
	case models.InputMethodCamera, models.InputMethodBarcode, models.InputMethodManual:
	default:
		return nil, apperror.Validation("input_method must be camera, barcode or manual")
	}
	for _, it := range req.Items {
		if it.Portion < 0 {
			return nil, apperror.Validation("portion must be positive")
		}
	}

	now := s.now()

	// Pre-existing photos cannot be backdated in: reject captures older
	// than 24 hours before anything is uploaded or written.
	if req.CaptureTimestamp != nil && now.Sub(*req.CaptureTimestamp) > maxCaptureAge {
		return nil, apperror.StaleCapture()
	}

	var imageURL string
	if req.ImageBase64 != "" {
		url, err := s.uploadImage(req.ImageBase64, userID)
		if err != nil {
			logger.Error("meal image upload failed", "user_id", userID, "error", err)
			return nil, apperror.Upstream(err)
		}
		imageURL = url
	}

	foods := make([]utils.Food, 0, len(req.Items))
	for _, it := range req.Items {
		foods = append(foods, utils.Food{
			Name:      it.Name,
			NovaGrade: it.NovaGrade,
			Macros:    it.Macros,
			Fermented: it.Fermented,
			Portion:   it.Portion,
		})
	}

	// Enrichment and scoring read the immutable catalog, so they run before
	// the transaction. Catalog queries inside it would need a second pool
	// connection while the transaction holds one, deadlocking on a
	// single-connection store.
	totalScore := utils.CalculateMealScore(foods, s.foods.Lookup)

	items := make([]models.MealEntryItem, 0, len(foods))
	for _, f := range foods {
		enriched := utils.EnrichFood(f, s.foods.Lookup)
		portion := enriched.Portion
		if portion <= 0 {
			portion = 1
		}
		item := models.MealEntryItem{
			Name:      enriched.Name,
			NovaGrade: enriched.NovaGrade,
			Fermented: utils.IsFermented(enriched),
			Portion:   portion,
			Score:     utils.ComputeSingleFoodScore(enriched),
		}
		if enriched.Macros != nil {
			item.Carb = enriched.Macros.Carb
			item.Protein = enriched.Macros.Protein
			item.Fat = enriched.Macros.Fat
			item.Sodium = enriched.Macros.Sodium
			item.Sugar = enriched.Macros.Sugar
			item.TransFat = enriched.Macros.TransFat
		}
		items = append(items, item)
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	var entry *models.MealEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. Duplicate image
		if req.ImageHash != "" {
			var count int64
			if err := tx.Model(&models.MealEntry{}).
				Where("user_id = ? AND image_hash = ?", userID, req.ImageHash).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperror.DuplicateSubmission()
			}
		}

		// 2. Minimum interval. LIMIT 1 on the timestamp index; the full
		// history is never scanned.
		var last models.MealEntry
		err := tx.Where("user_id = ?", userID).
			Order("timestamp DESC").
			Limit(1).
			First(&last).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil && now.Sub(last.Timestamp) < minEntryInterval {
			return apperror.TooSoon()
		}

		// 3. Daily cap, local midnight-to-midnight.
		start := dayStartLocal(now)
		end := start.Add(24 * time.Hour)
		var todayCount int64
		if err := tx.Model(&models.MealEntry{}).
			Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, start, end).
			Count(&todayCount).Error; err != nil {
			return err
		}
		if todayCount >= dailyEntryCap {
			return apperror.DailyCapReached()
		}

		// 4. Write. Timestamp is server-assigned here, never taken from
		// the request.
		e := models.MealEntry{
			UserID:      userID,
			Timestamp:   now,
			ImageURL:    imageURL,
			TotalScore:  totalScore,
			InputMethod: req.InputMethod,
			Items:       items,
		}
		if req.ImageHash != "" {
			e.ImageHash = &req.ImageHash
		}
		if err := tx.Create(&e).Error; err != nil {
			return err
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort: a failed progression or subscription update never
	// undoes the entry.
	if s.characters != nil {
		if _, _, perr := s.characters.ApplyMealLogged(userID, entry.TotalScore); perr != nil {
			logger.Warn("progression update failed", "user_id", userID, "error", perr)
		}
	}
	if s.subs != nil {
		if serr := s.subs.NoteEntry(userID, entry.TotalScore); serr != nil {
			logger.Warn("subscription counter update failed", "user_id", userID, "error", serr)
		}
	}

	return entry, nil
}

// ListByDate returns a user's entries for one local calendar day, oldest
// first.
func (s *MealService) ListByDate(userID uint, date time.Time) ([]models.MealEntry, error) {
	start := dayStartLocal(date)
	end := start.Add(24 * time.Hour)

	var entries []models.MealEntry
	err := s.db.Preload("Items").
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, start, end).
		Order("timestamp ASC").
		Find(&entries).Error
	return entries, err
}

// ListRecent returns the newest entries first.
func (s *MealService) ListRecent(userID uint, limit int) ([]models.MealEntry, error) {
	if limit <= 0 {
		limit = 3
	}
	var entries []models.MealEntry
	err := s.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// PreviewScore scores a candidate item list without writing anything.
func (s *MealService) PreviewScore(items []SubmitItemRequest) (int, string, []utils.ScoreFactor) {
	foods := make([]utils.Food, 0, len(items))
	for _, it := range items {
		foods = append(foods, utils.Food{
			Name:      it.Name,
			NovaGrade: it.NovaGrade,
			Macros:    it.Macros,
			Fermented: it.Fermented,
			Portion:   it.Portion,
		})
	}
	score := utils.CalculateMealScore(foods, s.foods.Lookup)
	return score, utils.ScoreToGrade(score), utils.AnalyzeScoreFactors(foods, s.foods.Lookup)
}

func (s *MealService) lockFor(userID uint) *sync.Mutex {
	v, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// dayStartLocal is the midnight boundary for the daily cap and calendar-day
// queries. The product ships in a single locale, so the server's time.Local
// stands in for the user's timezone; per-user zones would need a stored
// offset and a change here.
func dayStartLocal(t time.Time) time.Time {
	tt := t.In(time.Local)
	return time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.Local)
}
