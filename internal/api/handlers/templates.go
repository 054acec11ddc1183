package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/api/middleware"
	"github.com/handout-labs/handout/internal/models"
	"github.com/handout-labs/handout/internal/orgs"
)

// TemplateStore defines the template persistence operations.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *models.Template) error
	GetTemplateByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	GetTemplatesByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.Template, error)
	UpdateTemplate(ctx context.Context, t *models.Template) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
}

// TemplateHandler handles session template HTTP endpoints. Any member of
// the current organization may manage its templates.
type TemplateHandler struct {
	store  TemplateStore
	org    *OrgHandler
	logger zerolog.Logger
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(store TemplateStore, org *OrgHandler, logger zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{
		store:  store,
		org:    org,
		logger: logger.With().Str("component", "template_handler").Logger(),
	}
}

// RegisterRoutes registers template routes on the given router group.
func (h *TemplateHandler) RegisterRoutes(r *gin.RouterGroup) {
	templates := r.Group("/templates")
	{
		templates.GET("", h.List)
		templates.POST("", h.Create)
		templates.GET("/:id", h.Get)
		templates.PUT("/:id", h.Update)
		templates.DELETE("/:id", h.Delete)
	}
}

// TemplateRequest is the payload for creating or updating a template.
type TemplateRequest struct {
	Name             string `json:"name" binding:"required"`
	TicketType       string `json:"ticket_type" binding:"required"`
	StartTime        string `json:"start_time" binding:"required"`
	TicketsPerPeriod int    `json:"tickets_per_period" binding:"required,gt=0"`
	NumPeriods       int    `json:"num_periods" binding:"required,gt=0"`
	AdditionalInfo   string `json:"additional_info"`
}

// scopedTemplate loads a template by path ID and verifies it belongs to the
// resolved current organization. Writes the error response and returns nil
// otherwise.
func (h *TemplateHandler) scopedTemplate(c *gin.Context, res *orgs.Resolution) *models.Template {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template ID"})
		return nil
	}

	t, err := h.store.GetTemplateByID(c.Request.Context(), id)
	if err != nil || t.OrgID != res.Org.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return nil
	}
	return t
}

// List returns the current organization's templates.
// GET /api/v1/templates
func (h *TemplateHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	templates, err := h.store.GetTemplatesByOrgID(c.Request.Context(), res.Org.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list templates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list templates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// Create adds a template to the current organization.
// POST /api/v1/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.IsValidTicketType(req.TicketType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket type"})
		return
	}

	t := models.NewTemplate(res.Org.ID, req.Name, models.TicketType(req.TicketType),
		req.StartTime, req.TicketsPerPeriod, req.NumPeriods, req.AdditionalInfo)
	if err := h.store.CreateTemplate(c.Request.Context(), t); err != nil {
		h.logger.Error().Err(err).Msg("failed to create template")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"template": t})
}

// Get returns one of the current organization's templates.
// GET /api/v1/templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	t := h.scopedTemplate(c, res)
	if t == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": t})
}

// Update modifies a template. Existing sessions keep pointing at the
// updated template.
// PUT /api/v1/templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	t := h.scopedTemplate(c, res)
	if t == nil {
		return
	}

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.IsValidTicketType(req.TicketType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket type"})
		return
	}

	t.Name = req.Name
	t.TicketType = models.TicketType(req.TicketType)
	t.StartTime = req.StartTime
	t.TicketsPerPeriod = req.TicketsPerPeriod
	t.NumPeriods = req.NumPeriods
	t.AdditionalInfo = req.AdditionalInfo

	if err := h.store.UpdateTemplate(c.Request.Context(), t); err != nil {
		h.logger.Error().Err(err).Msg("failed to update template")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": t})
}

// Delete removes a template and, through the schema cascade, all of its
// sessions.
// DELETE /api/v1/templates/:id
func (h *TemplateHandler) Delete(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	res := h.org.resolveCurrent(c, user)
	if res == nil {
		return
	}

	t := h.scopedTemplate(c, res)
	if t == nil {
		return
	}

	if err := h.store.DeleteTemplate(c.Request.Context(), t.ID); err != nil {
		h.logger.Error().Err(err).Msg("failed to delete template")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "template deleted"})
}
