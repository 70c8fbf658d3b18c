package handlers

import (
	"net/http"

	"consultline/middleware"
	"consultline/services/auth"
	"consultline/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	Service auth.AuthService
}

func NewAuthHandler(svc auth.AuthService) *AuthHandler {
	return &AuthHandler{Service: svc}
}

// SignupHandler handles POST /auth/signup.
func (h *AuthHandler) SignupHandler(c *gin.Context) {
	var req auth.SignupRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.Service.Signup(c.Request.Context(), req)
	if err != nil {
		getLogger(c).Warn("Signup failed", zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// LoginHandler handles POST /auth/login.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req auth.LoginRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.Service.Login(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// LogoutHandler handles POST /auth/logout.
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	if err := h.Service.Logout(c.Request.Context(), middleware.GetToken(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// CurrentUserHandler handles GET /auth/user.
func (h *AuthHandler) CurrentUserHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	res, err := h.Service.CurrentUser(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
