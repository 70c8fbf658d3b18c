package handlers

import (
	"net/http"
	"strconv"

	"consultline/services/presence"
	"consultline/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PractitionerHandler struct {
	Presence presence.PresenceService
}

func NewPractitionerHandler(svc presence.PresenceService) *PractitionerHandler {
	return &PractitionerHandler{Presence: svc}
}

// ListPractitionersHandler handles GET /practitioners. ?online=true filters
// to online practitioners.
func (h *PractitionerHandler) ListPractitionersHandler(c *gin.Context) {
	onlineOnly, _ := strconv.ParseBool(c.Query("online"))
	h.list(c, onlineOnly)
}

func (h *PractitionerHandler) ListOnlinePractitionersHandler(c *gin.Context) {
	h.list(c, true)
}

func (h *PractitionerHandler) list(c *gin.Context, onlineOnly bool) {
	listings, err := h.Presence.List(c.Request.Context(), onlineOnly)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (h *PractitionerHandler) GetPractitionerHandler(c *gin.Context) {
	listing, err := h.Presence.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ToggleStatusHandler handles PUT /practitioners/toggle-status. Only isOnline
// is settable; inService belongs to the session engine.
func (h *PractitionerHandler) ToggleStatusHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		IsOnline *bool `json:"isOnline" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	status, err := h.Presence.SetOnline(c.Request.Context(), id, *req.IsOnline)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	getLogger(c).Info("Presence changed", zap.Bool("isOnline", status.IsOnline))
	c.JSON(http.StatusOK, status)
}
