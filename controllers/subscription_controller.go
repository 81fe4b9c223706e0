package controllers

import (
	"net/http"

	"backend/services"

	"github.com/gin-gonic/gin"
)

type SubscriptionController struct {
	Subs *services.SubscriptionService
}

func NewSubscriptionController(subs *services.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{Subs: subs}
}

// GET /subscription
func (sc *SubscriptionController) Get(c *gin.Context) {
	uid := c.GetUint("userID")

	view, err := sc.Subs.Get(uid)
	if err != nil {
		reject(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
