package controllers

import (
	"net/http"

	"backend/apperror"
	"backend/logger"
	"backend/services"

	"github.com/gin-gonic/gin"
)

type FoodController struct {
	Foods   *services.FoodService
	Barcode *services.BarcodeService
	Vision  *services.VisionService
}

func NewFoodController(foods *services.FoodService, barcode *services.BarcodeService, vision *services.VisionService) *FoodController {
	return &FoodController{Foods: foods, Barcode: barcode, Vision: vision}
}

// GET /food/search?q=rice
func (f *FoodController) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	refs, err := f.Foods.Search(q)
	if err != nil {
		reject(c, err)
		return
	}
	c.JSON(http.StatusOK, refs)
}

// GET /food/barcode/:code
func (f *FoodController) BarcodeLookup(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode is required"})
		return
	}

	food, err := f.Barcode.LookupWithRetry(code)
	if err != nil {
		logger.Error("barcode lookup exhausted retries", "barcode", code, "error", err)
		reject(c, apperror.Upstream(err))
		return
	}
	c.JSON(http.StatusOK, food)
}

// POST /food/recognize  { "image_base64": "data:image/jpeg;base64,..." }
func (f *FoodController) Recognize(c *gin.Context) {
	var req struct {
		ImageBase64 string `json:"image_base64" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	labels, err := f.Vision.RecognizeFoods(req.ImageBase64)
	if err != nil {
		logger.Error("food recognition failed", "error", err)
		reject(c, apperror.Upstream(err))
		return
	}

	out := make([]gin.H, 0, len(labels))
	for _, label := range labels {
		out = append(out, gin.H{
			"name":     label,
			"variants": f.Foods.Variants(label),
		})
	}
	c.JSON(http.StatusOK, gin.H{"foods": out})
}
