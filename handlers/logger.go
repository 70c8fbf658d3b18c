package handlers

import (
	"net/http"

	"consultline/middleware"
	"consultline/models"
	"consultline/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// getLogger retrieves the request-scoped logger or falls back to the global one.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}

// caller returns the authenticated identity, aborting with 401 when missing.
func caller(c *gin.Context) (models.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return id, ok
}

// bind decodes the JSON body into req, responding with a validation error on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		getLogger(c).Debug("Invalid request body", zap.Error(err))
		utils.RespondError(c, utils.BindError(err))
		return false
	}
	return true
}

// sessionParam reads a session id path parameter, responding 400 unless it is a UUID.
func sessionParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		utils.RespondError(c, utils.ValidationFields(map[string]string{name: "must be a valid UUID"}))
		return "", false
	}
	return id, true
}
