package handlers

import (
	"net/http"

	"consultline/services/session"
	"consultline/utils"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	Engine session.SessionEngine
}

func NewMediaHandler(engine session.SessionEngine) *MediaHandler {
	return &MediaHandler{Engine: engine}
}

// AgoraTokenHandler handles GET /agora/token?channel=&uid=.
func (h *MediaHandler) AgoraTokenHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	channel := c.Query("channel")
	if channel == "" {
		utils.RespondError(c, utils.ValidationFields(map[string]string{"channel": "is required"}))
		return
	}
	grant, err := h.Engine.MediaTokenForChannel(c.Request.Context(), id, channel, c.Query("uid"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     grant.Token,
		"appId":     grant.AppID,
		"uid":       grant.UID,
		"channel":   grant.Channel,
		"expiresAt": grant.ExpiresAt,
	})
}
