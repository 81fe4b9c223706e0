package controllers

import (
	"net/http"

	"backend/services"

	"github.com/gin-gonic/gin"
)

type CharacterController struct {
	Characters *services.CharacterService
}

func NewCharacterController(characters *services.CharacterService) *CharacterController {
	return &CharacterController{Characters: characters}
}

// GET /character
func (cc *CharacterController) Get(c *gin.Context) {
	uid := c.GetUint("userID")

	view, err := cc.Characters.Get(uid)
	if err != nil {
		reject(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
