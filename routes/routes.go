package routes

import (
	"reflect"
	"strings"
	"time"

	"consultline/config"
	"consultline/handlers"
	"consultline/middleware"
	"consultline/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterAuthRoutes registers signup, login and the current-user endpoints.
func RegisterAuthRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", hb.SignupHandler)
		authGroup.POST("/login", hb.LoginHandler)

		// Protected routes (Require Authentication)
		authGroup.Use(middleware.AuthMiddleware(hb.Gateway))
		authGroup.POST("/logout", hb.LogoutHandler)
		authGroup.GET("/user", hb.CurrentUserHandler)
	}
}

// RegisterProfileRoutes registers the caller's own profile endpoints.
func RegisterProfileRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	profileGroup := api.Group("/profile")
	{
		profileGroup.Use(middleware.AuthMiddleware(hb.Gateway))
		profileGroup.GET("", hb.GetProfileHandler)
		profileGroup.PUT("", hb.UpdateProfileHandler)
	}
}

// RegisterPractitionerRoutes registers directory and presence endpoints.
func RegisterPractitionerRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	practitionerGroup := api.Group("/practitioners")
	{
		practitionerGroup.Use(middleware.AuthMiddleware(hb.Gateway))
		practitionerGroup.GET("", hb.ListPractitionersHandler)
		practitionerGroup.GET("/online", hb.ListOnlinePractitionersHandler)
		practitionerGroup.GET("/:id", hb.GetPractitionerHandler)
		practitionerGroup.PUT("/toggle-status", middleware.RequireRole(models.RolePractitioner), hb.ToggleStatusHandler)
	}
}

// RegisterSessionRoutes sets up the endpoints for the session lifecycle.
func RegisterSessionRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	sessionGroup := api.Group("/sessions")
	{
		sessionGroup.Use(middleware.AuthMiddleware(hb.Gateway))
		sessionGroup.POST("/start", middleware.RequireRole(models.RoleGuest), hb.StartSessionHandler)
		sessionGroup.POST("/accept", hb.AcceptSessionHandler)
		sessionGroup.POST("/acknowledge", hb.AcknowledgeSessionHandler)
		sessionGroup.POST("/ready", hb.ReadySessionHandler)
		sessionGroup.POST("/reject", hb.RejectSessionHandler)
		sessionGroup.POST("/end", hb.EndSessionHandler)
		sessionGroup.GET("/practitioner", middleware.RequireRole(models.RolePractitioner), hb.PractitionerSessionsHandler)
		sessionGroup.GET("/:id", hb.GetSessionHandler)
		sessionGroup.GET("/:id/token", hb.SessionTokenHandler)
		sessionGroup.GET("/:id/watch", hb.WatchSessionHandler)
	}
}

// RegisterReviewRoutes registers review endpoints.
func RegisterReviewRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	reviewGroup := api.Group("/reviews")
	{
		reviewGroup.Use(middleware.AuthMiddleware(hb.Gateway))
		reviewGroup.POST("/create", middleware.RequireRole(models.RoleGuest), hb.CreateReviewHandler)
		reviewGroup.GET("/:sessionId", hb.ListReviewsHandler)
	}
}

// RegisterMediaRoutes registers upload URL and media token endpoints.
func RegisterMediaRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	protected := api.Group("")
	{
		protected.Use(middleware.AuthMiddleware(hb.Gateway))
		protected.POST("/uploads/url", hb.UploadURLHandler)
		protected.GET("/agora/token", hb.AgoraTokenHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	api.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	useJSONFieldNames()

	prefix := config.AppConfig.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}
	api := r.Group(prefix)

	RegisterAuthRoutes(api, hb)
	RegisterProfileRoutes(api, hb)
	RegisterPractitionerRoutes(api, hb)
	RegisterSessionRoutes(api, hb)
	RegisterReviewRoutes(api, hb)
	RegisterMediaRoutes(api, hb)
	RegisterHealthRoute(api, hb)
}

// useJSONFieldNames makes validation errors report JSON field names.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}
