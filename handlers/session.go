package handlers

import (
	"context"
	"net/http"

	"consultline/models"
	"consultline/services/realtime"
	"consultline/services/session"
	"consultline/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type sessionRef struct {
	SessionID string `json:"sessionId" binding:"required,uuid"`
}

type readyRequest struct {
	SessionID string             `json:"sessionId" binding:"required,uuid"`
	Who       models.Participant `json:"who" binding:"required,oneof=guest practitioner"`
}

type SessionHandler struct {
	Engine session.SessionEngine
	Hub    *realtime.Hub
}

func NewSessionHandler(engine session.SessionEngine, hub *realtime.Hub) *SessionHandler {
	return &SessionHandler{Engine: engine, Hub: hub}
}

// StartSessionHandler handles POST /sessions/start.
func (h *SessionHandler) StartSessionHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req session.StartRequest
	if !bind(c, &req) {
		return
	}
	s, err := h.Engine.Start(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sessionId": s.ID})
}

type sessionOp func(ctx context.Context, caller models.Identity, sessionID string) (*models.Session, error)

// withSession binds {sessionId}, runs op and writes the updated session.
func withSession(op sessionOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req sessionRef
		if !bind(c, &req) {
			return
		}
		s, err := op(c.Request.Context(), id, req.SessionID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// AcceptSessionHandler handles POST /sessions/accept.
func (h *SessionHandler) AcceptSessionHandler(c *gin.Context) {
	withSession(h.Engine.Accept)(c)
}

// AcknowledgeSessionHandler handles POST /sessions/acknowledge.
func (h *SessionHandler) AcknowledgeSessionHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req sessionRef
	if !bind(c, &req) {
		return
	}
	s, err := h.Engine.Acknowledge(c.Request.Context(), id, req.SessionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session acknowledged",
		"session": s,
	})
}

// ReadySessionHandler handles POST /sessions/ready.
func (h *SessionHandler) ReadySessionHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req readyRequest
	if !bind(c, &req) {
		return
	}
	s, err := h.Engine.MarkReady(c.Request.Context(), id, req.SessionID, req.Who)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// RejectSessionHandler handles POST /sessions/reject.
func (h *SessionHandler) RejectSessionHandler(c *gin.Context) {
	withSession(h.Engine.Reject)(c)
}

// EndSessionHandler handles POST /sessions/end.
func (h *SessionHandler) EndSessionHandler(c *gin.Context) {
	withSession(h.Engine.End)(c)
}

// GetSessionHandler handles GET /sessions/:id.
func (h *SessionHandler) GetSessionHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.Engine.Get(c.Request.Context(), id, sessionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// PractitionerSessionsHandler handles GET /sessions/practitioner. The
// optional practitionerId query must match the caller.
func (h *SessionHandler) PractitionerSessionsHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	practitionerID := c.DefaultQuery("practitionerId", id.UserID)
	list, err := h.Engine.ListForPractitioner(c.Request.Context(), id, practitionerID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// SessionTokenHandler handles GET /sessions/:id/token.
func (h *SessionHandler) SessionTokenHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c, "id")
	if !ok {
		return
	}
	grant, err := h.Engine.MediaToken(c.Request.Context(), id, sessionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// WatchSessionHandler handles GET /sessions/:id/watch. Participants receive
// the current snapshot and then every change until the session ends.
func (h *SessionHandler) WatchSessionHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.Engine.Get(c.Request.Context(), id, sessionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		getLogger(c).Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	getLogger(c).Debug("Watching session", zap.String("sessionId", detail.Session.ID))
	h.Hub.Serve(conn, id.UserID, detail.Session)
}
