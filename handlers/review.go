package handlers

import (
	"net/http"

	"consultline/services/review"
	"consultline/utils"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	Service review.ReviewService
}

func NewReviewHandler(svc review.ReviewService) *ReviewHandler {
	return &ReviewHandler{Service: svc}
}

// CreateReviewHandler handles POST /reviews/create.
func (h *ReviewHandler) CreateReviewHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req review.CreateRequest
	if !bind(c, &req) {
		return
	}
	r, err := h.Service.Create(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListReviewsHandler handles GET /reviews/:sessionId.
func (h *ReviewHandler) ListReviewsHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c, "sessionId")
	if !ok {
		return
	}
	reviews, err := h.Service.ListForSession(c.Request.Context(), id, sessionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}
