package controllers

import (
	"net/http"
	"strconv"
	"time"

	"backend/services"
	"backend/utils"

	"github.com/gin-gonic/gin"
)

type MealController struct {
	Meals *services.MealService
}

func NewMealController(meals *services.MealService) *MealController {
	return &MealController{Meals: meals}
}

// POST /meals
func (m *MealController) Submit(c *gin.Context) {
	var req services.SubmitMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := c.GetUint("userID")

	entry, err := m.Meals.SubmitMeal(uid, req)
	if err != nil {
		reject(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"meal_id": entry.ID,
		"score":   entry.TotalScore,
		"grade":   utils.ScoreToGrade(entry.TotalScore),
	})
}

// GET /meals?date=2026-08-30 (defaults to today)
func (m *MealController) ListByDate(c *gin.Context) {
	uid := c.GetUint("userID")

	date := time.Now()
	if d := c.Query("date"); d != "" {
		parsed, err := time.ParseInLocation("2006-01-02", d, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	entries, err := m.Meals.ListByDate(uid, date)
	if err != nil {
		reject(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GET /meals/recent?limit=3
func (m *MealController) Recent(c *gin.Context) {
	uid := c.GetUint("userID")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "3"))

	entries, err := m.Meals.ListRecent(uid, limit)
	if err != nil {
		reject(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// POST /food/score/preview
func (m *MealController) PreviewScore(c *gin.Context) {
	var body struct {
		Items []services.SubmitItemRequest `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	score, grade, factors := m.Meals.PreviewScore(body.Items)
	c.JSON(http.StatusOK, gin.H{
		"score":   score,
		"grade":   grade,
		"factors": factors,
	})
}
