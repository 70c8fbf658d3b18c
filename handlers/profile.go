package handlers

import (
	"net/http"

	"consultline/models"
	"consultline/services/profile"
	"consultline/utils"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	Service profile.ProfileService
}

func NewProfileHandler(svc profile.ProfileService) *ProfileHandler {
	return &ProfileHandler{Service: svc}
}

func (h *ProfileHandler) GetProfileHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) UpdateProfileHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var update models.ProfileUpdate
	if !bind(c, &update) {
		return
	}
	p, err := h.Service.Update(c.Request.Context(), id, update)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
