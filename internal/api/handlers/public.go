package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/models"
)

// PublicStore defines the read operations backing the public listing.
type PublicStore interface {
	GetPublicSessions(ctx context.Context) ([]*models.PublicSession, error)
}

// PublicHandler serves the unauthenticated public listing of upcoming
// sessions across all organizations.
type PublicHandler struct {
	store  PublicStore
	logger zerolog.Logger
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(store PublicStore, logger zerolog.Logger) *PublicHandler {
	return &PublicHandler{
		store:  store,
		logger: logger.With().Str("component", "public_handler").Logger(),
	}
}

// RegisterRoutes registers public routes on the given router group.
func (h *PublicHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/sessions", h.Sessions)
}

// Sessions returns all active upcoming sessions with organization and
// template details, soonest first.
// GET /public/sessions
func (h *PublicHandler) Sessions(c *gin.Context) {
	sessions, err := h.store.GetPublicSessions(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list public sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
