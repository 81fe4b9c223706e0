package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"backend/logger"
	"backend/services"

	"github.com/gin-gonic/gin"
)

type CoachController struct {
	Coach      *services.CoachService
	Characters *services.CharacterService
}

func NewCoachController(coach *services.CoachService, characters *services.CharacterService) *CoachController {
	return &CoachController{Coach: coach, Characters: characters}
}

// POST /coach — single JSON reply, or an SSE stream when "stream" is true.
func (cc *CoachController) Chat(c *gin.Context) {
	var req services.CoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := c.GetUint("userID")

	if req.Stream {
		cc.stream(c, uid, req)
		return
	}

	reply, err := cc.Coach.Chat(c.Request.Context(), req)
	if err != nil {
		reject(c, err)
		return
	}

	cc.awardExp(uid)
	c.JSON(http.StatusOK, gin.H{"message": reply})
}

func (cc *CoachController) stream(c *gin.Context, uid uint, req services.CoachRequest) {
	// Validate before committing to an event stream: rule violations must
	// surface as a structured 400, not as an in-stream error event.
	if _, err := cc.Coach.BuildMessages(req); err != nil {
		reject(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	ctx := c.Request.Context()
	chunks := make(chan string, 10)
	errCh := make(chan error, 1)
	go func() {
		errCh <- cc.Coach.ChatStream(ctx, req, chunks)
	}()

	for chunk := range chunks {
		data, _ := json.Marshal(gin.H{"content": chunk})
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		flusher.Flush()
	}

	if err := <-errCh; err != nil {
		logger.Warn("coach stream ended with error", "user_id", uid, "error", err)
		fmt.Fprint(c.Writer, "event: error\ndata: {\"message\": \"service temporarily unavailable\"}\n\n")
		flusher.Flush()
		return
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	flusher.Flush()
	cc.awardExp(uid)
}

func (cc *CoachController) awardExp(uid uint) {
	if cc.Characters == nil {
		return
	}
	if err := cc.Characters.AwardCoachingExp(uid); err != nil {
		logger.Warn("coaching exp award failed", "user_id", uid, "error", err)
	}
}
