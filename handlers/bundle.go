package handlers

import (
	"consultline/services/auth"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Gateway auth.Gateway

	// Auth endpoints
	SignupHandler      gin.HandlerFunc
	LoginHandler       gin.HandlerFunc
	LogoutHandler      gin.HandlerFunc
	CurrentUserHandler gin.HandlerFunc

	// Profile endpoints
	GetProfileHandler    gin.HandlerFunc
	UpdateProfileHandler gin.HandlerFunc

	// Practitioner endpoints
	ListPractitionersHandler       gin.HandlerFunc
	ListOnlinePractitionersHandler gin.HandlerFunc
	GetPractitionerHandler         gin.HandlerFunc
	ToggleStatusHandler            gin.HandlerFunc

	// Session endpoints
	StartSessionHandler         gin.HandlerFunc
	AcceptSessionHandler        gin.HandlerFunc
	AcknowledgeSessionHandler   gin.HandlerFunc
	ReadySessionHandler         gin.HandlerFunc
	RejectSessionHandler        gin.HandlerFunc
	EndSessionHandler           gin.HandlerFunc
	GetSessionHandler           gin.HandlerFunc
	PractitionerSessionsHandler gin.HandlerFunc
	SessionTokenHandler         gin.HandlerFunc
	WatchSessionHandler         gin.HandlerFunc

	// Review endpoints
	CreateReviewHandler gin.HandlerFunc
	ListReviewsHandler  gin.HandlerFunc

	// Storage and media endpoints
	UploadURLHandler  gin.HandlerFunc
	AgoraTokenHandler gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}
