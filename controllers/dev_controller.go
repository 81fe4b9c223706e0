package controllers

import (
	"net/http"

	"backend/services"

	"github.com/gin-gonic/gin"
)

type DevController struct {
	Push *services.PushService
	Subs *services.SubscriptionService
}

func NewDevController(p *services.PushService, s *services.SubscriptionService) *DevController {
	return &DevController{Push: p, Subs: s}
}

type pushReq struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

func (d *DevController) PushTest(c *gin.Context) {
	uid := c.GetUint("userID")

	var req pushReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title == "" {
		req.Title = "Test alert"
	}
	if req.Body == "" {
		req.Body = "This is only a test."
	}
	if req.Data == nil {
		req.Data = map[string]string{"type": "test"}
	}

	d.Push.PushToUser(uid, req.Title, req.Body, req.Data)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RunMonthly triggers the monthly settlement run on demand; normally the
// scheduler fires it on the first of the month.
func (d *DevController) RunMonthly(c *gin.Context) {
	res, err := d.Subs.RunMonthlyAggregation()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"processed": res.Processed,
		"failed":    res.Failed,
	})
}
