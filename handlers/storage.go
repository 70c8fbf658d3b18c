package handlers

import (
	"net/http"

	"consultline/services/storage"
	"consultline/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StorageHandler struct {
	Uploader storage.Uploader
}

func NewStorageHandler(u storage.Uploader) *StorageHandler {
	return &StorageHandler{Uploader: u}
}

// UploadURLHandler handles POST /uploads/url.
func (h *StorageHandler) UploadURLHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req storage.UploadRequest
	if !bind(c, &req) {
		return
	}
	ticket, err := h.Uploader.UploadURL(c.Request.Context(), id.UserID, req.Bucket)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	getLogger(c).Debug("Issued upload URL", zap.String("bucket", ticket.Bucket), zap.String("key", ticket.ObjectKey))
	c.JSON(http.StatusOK, ticket)
}
