package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/api/middleware"
	"github.com/handout-labs/handout/internal/models"
)

// SessionStore defines the session persistence operations.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSessionWithTemplate(ctx context.Context, id uuid.UUID) (*models.SessionWithTemplate, error)
	GetSessionsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.SessionWithTemplate, error)
	GetTemplateByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// SessionHandler handles scheduled session HTTP endpoints. Any member of
// the current organization may manage its sessions.
type SessionHandler struct {
	store  SessionStore
	org    *OrgHandler
	logger zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(store SessionStore, org *OrgHandler, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		store:  store,
		org:    org,
		logger: logger.With().Str("component", "session_handler").Logger(),
	}
}

// RegisterRoutes registers session routes on the given router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.GET("", h.List)
		sessions.POST("", h.Create)
		sessions.GET("/:id", h.Get)
		sessions.PATCH("/:id/status", h.UpdateStatus)
		sessions.DELETE("/:id", h.Delete)
	}
}

// CreateSessionRequest is the payload for scheduling a session.
type CreateSessionRequest struct {
	TemplateID uuid.UUID `json:"template_id" binding:"required"`
	Date       string    `json:"date" binding:"required"` // YYYY-MM-DD
}

// UpdateStatusRequest is the payload for changing a session's status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// scopedSession loads a session by path ID and verifies its template
// belongs to the given organization. Writes the error response and returns
// nil otherwise.
func (h *SessionHandler) scopedSession(c *gin.Context, orgID uuid.UUID) *models.SessionWithTemplate {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return nil
	}

	s, err := h.store.GetSessionWithTemplate(c.Request.Context(), id)
	if err != nil || s.OrgID != orgID {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil
	}
	return s
}

// List returns the current organization's sessions, soonest first.
// GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	sessions, err := h.store.GetSessionsByOrgID(c.Request.Context(), res.Org.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// Create schedules a session from one of the organization's templates.
// POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	t, err := h.store.GetTemplateByID(c.Request.Context(), req.TemplateID)
	if err != nil || t.OrgID != res.Org.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}

	s := models.NewSession(t.ID, date)
	if err := h.store.CreateSession(c.Request.Context(), s); err != nil {
		h.logger.Error().Err(err).Msg("failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": s})
}

// Get returns one of the current organization's sessions with its template.
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	s := h.scopedSession(c, res.Org.ID)
	if s == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": s})
}

// UpdateStatus changes a session's status, e.g. to cancel it.
// PATCH /api/v1/sessions/:id/status
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	s := h.scopedSession(c, res.Org.ID)
	if s == nil {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.IsValidSessionStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	if err := h.store.UpdateSessionStatus(c.Request.Context(), s.ID, models.SessionStatus(req.Status)); err != nil {
		h.logger.Error().Err(err).Msg("failed to update session status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "session updated"})
}

// Delete removes a session.
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	s := h.scopedSession(c, res.Org.ID)
	if s == nil {
		return
	}

	if err := h.store.DeleteSession(c.Request.Context(), s.ID); err != nil {
		h.logger.Error().Err(err).Msg("failed to delete session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}
