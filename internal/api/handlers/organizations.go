package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/api/middleware"
	"github.com/handout-labs/handout/internal/auth"
	"github.com/handout-labs/handout/internal/models"
	"github.com/handout-labs/handout/internal/orgs"
)

// OrgStore defines the organization persistence operations the handler
// needs beyond the orgs service.
type OrgStore interface {
	GetUserOrganizations(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
}

// OrgHandler handles organization-related HTTP endpoints.
type OrgHandler struct {
	store    OrgStore
	service  *orgs.Service
	sessions *auth.SessionStore
	logger   zerolog.Logger
}

// NewOrgHandler creates a new OrgHandler.
func NewOrgHandler(store OrgStore, service *orgs.Service, sessions *auth.SessionStore, logger zerolog.Logger) *OrgHandler {
	return &OrgHandler{
		store:    store,
		service:  service,
		sessions: sessions,
		logger:   logger.With().Str("component", "org_handler").Logger(),
	}
}

// RegisterRoutes registers organization routes on the given router group.
func (h *OrgHandler) RegisterRoutes(r *gin.RouterGroup) {
	organizations := r.Group("/organizations")
	{
		organizations.GET("", h.List)
		organizations.GET("/current", h.Current)
		organizations.POST("/switch", h.Switch)
		organizations.PUT("/current", h.Update)
		organizations.GET("/current/members", h.Members)
		organizations.DELETE("/current/members/:user_id", h.RemoveMember)
		organizations.POST("/current/invitations", h.Invite)
		organizations.GET("/current/invitations", h.Invitations)
		organizations.DELETE("/current/invitations/:id", h.RevokeInvitation)
	}

	r.Group("/invitations").POST("/accept", h.AcceptInvitation)
}

// RegisterPublicRoutes registers the invitation routes served without
// authentication, so an invitee can see what a link grants before signing
// up or logging in.
func (h *OrgHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/:token", h.PreviewInvitation)
}

// CurrentOrgResponse describes the resolved current organization.
type CurrentOrgResponse struct {
	Org  *models.Organization `json:"org"`
	Role models.OrgRole       `json:"role"`
}

// resolveCurrent resolves the user's current organization against the
// session preference, persisting the selection when it changed. Writes the
// error response and returns nil on failure.
func (h *OrgHandler) resolveCurrent(c *gin.Context, user *auth.SessionUser) *orgs.Resolution {
	preferred := uuid.Nil
	if orgID, ok := h.sessions.GetCurrentOrg(c.Request); ok {
		preferred = orgID
	}

	res, err := h.service.ResolveCurrentOrg(c.Request.Context(), user.ID, preferred)
	if err != nil {
		if errors.Is(err, orgs.ErrNoMemberships) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no organization memberships"})
			return nil
		}
		h.logger.Error().Err(err).Msg("failed to resolve current org")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve organization"})
		return nil
	}

	if res.Changed {
		if err := h.sessions.SetCurrentOrg(c.Request, c.Writer, res.Org.ID); err != nil {
			h.logger.Warn().Err(err).Msg("failed to persist current org selection")
		}
	}

	return res
}

// requireAdmin resolves the current organization and checks the caller is
// an admin of it. Writes the error response and returns nil otherwise.
func (h *OrgHandler) requireAdmin(c *gin.Context, user *auth.SessionUser) *orgs.Resolution {
	res := h.resolveCurrent(c, user)
	if res == nil {
		return nil
	}
	if res.Role != models.OrgRoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return nil
	}
	return res
}

// List returns all organizations the user belongs to.
// GET /api/v1/organizations
func (h *OrgHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	organizations, err := h.store.GetUserOrganizations(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list organizations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list organizations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": organizations})
}

// Current returns the resolved current organization and the user's role in
// it, falling back from a stale session preference to the user's first
// membership.
// GET /api/v1/organizations/current
func (h *OrgHandler) Current(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	res := h.resolveCurrent(c, user)
	if res == nil {
		return
	}

	c.JSON(http.StatusOK, CurrentOrgResponse{Org: res.Org, Role: res.Role})
}

// SwitchRequest is the payload for switching organizations.
type SwitchRequest struct {
	OrgID uuid.UUID `json:"org_id" binding:"required"`
}

// Switch stores a new organization selection. The selection is not
// validated here; the next resolution falls back if the user is not a
// member of the chosen organization.
// POST /api/v1/organizations/switch
func (h *OrgHandler) Switch(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessions.SetCurrentOrg(c.Request, c.Writer, req.OrgID); err != nil {
		h.logger.Error().Err(err).Msg("failed to persist org selection")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to switch organization"})
		return
	}

	h.logger.Debug().
		Str("user_id", user.ID.String()).
		Str("org_id", req.OrgID.String()).
		Msg("organization switched")

	c.JSON(http.StatusOK, gin.H{"message": "organization switched"})
}

// UpdateOrgRequest is the payload for updating the organization profile.
type UpdateOrgRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Website string `json:"website"`
}

// Update modifies the current organization's profile. Admin only.
// PUT /api/v1/organizations/current
func (h *OrgHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	res := h.requireAdmin(c, user)
	if res == nil {
		return
	}

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org := res.Org
	org.Name = req.Name
	org.Email = req.Email
	org.City = req.City
	org.State = req.State
	org.Country = req.Country
	org.Website = req.Website

	if err := h.store.UpdateOrganization(c.Request.Context(), org); err != nil {
		h.logger.Error().Err(err).Msg("failed to update organization")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update organization"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"org": org})
}

// Members lists the current organization's members. Admin only.
// GET /api/v1/organizations/current/members
func (h *OrgHandler) Members(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	res := h.requireAdmin(c, user)
	if res == nil {
		return
	}

	members, err := h.service.Members(c.Request.Context(), res.Org.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list members")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// RemoveMember removes a member from the current organization. Admin only.
// Self-removal and removing the last admin are rejected.
// DELETE /api/v1/organizations/current/members/:user_id
func (h *OrgHandler) RemoveMember(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	res := h.requireAdmin(c, user)
	if res == nil {
		return
	}

	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), res.Org.ID, targetID, user.ID); err != nil {
		switch {
		case errors.Is(err, orgs.ErrSelfRemoval):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot remove yourself"})
		case errors.Is(err, orgs.ErrLastAdmin):
			c.JSON(http.StatusConflict, gin.H{"error": "organization must retain at least one admin"})
		case errors.Is(err, orgs.ErrMemberNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		default:
			h.logger.Error().Err(err).Msg("failed to remove member")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove member"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

// InviteRequest is the payload for issuing an invitation.
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// InviteResponse carries the created invitation and its accept link. The
// link is only returned here, at issuance.
type InviteResponse struct {
	Invitation *models.Invitation `json:"invitation"`
	AcceptURL  string             `json:"accept_url"`
}

// Invite issues an invitation to join the current organization. Admin only.
// POST /api/v1/organizations/current/invitations
func (h *OrgHandler) Invite(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	res := h.requireAdmin(c, user)
	if res == nil {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Issue(c.Request.Context(), res.Org.ID, req.Email, req.Role, user.ID)
	if err != nil {
		if errors.Is(err, orgs.ErrInvalidRole) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		h.logger.Error().Err(err).Msg("failed to issue invitation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue invitation"})
		return
	}

	c.JSON(http.StatusCreated, InviteResponse{
		Invitation: result.Invitation,
		AcceptURL:  result.AcceptURL,
	})
}

// Invitations lists the current organization's pending invitations. Admin
// only.
// GET /api/v1/organizations/current/invitations
func (h *OrgHandler) Invitations(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	res := h.requireAdmin(c, user)
	if res == nil {
		return
	}

	invitations, err := h.service.Invitations(c.Request.Context(), res.Org.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list invitations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list invitations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

// RevokeInvitation deletes a pending invitation. Admin only.
// DELETE /api/v1/organizations/current/invitations/:id
func (h *OrgHandler) RevokeInvitation(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	res := h.requireAdmin(c, user)
	if res == nil {
		return
	}

	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invitation ID"})
		return
	}

	if err := h.service.Revoke(c.Request.Context(), res.Org.ID, invitationID); err != nil {
		if errors.Is(err, orgs.ErrInvitationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invitation not found"})
			return
		}
		h.logger.Error().Err(err).Msg("failed to revoke invitation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke invitation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "invitation revoked"})
}

// InvitationPreviewResponse describes an invitation before acceptance.
type InvitationPreviewResponse struct {
	OrgName string         `json:"org_name"`
	Email   string         `json:"email"`
	Role    models.OrgRole `json:"role"`
}

// PreviewInvitation shows what an invitation grants without consuming it.
// No authentication required; the token is the capability.
// GET /api/v1/invitations/:token
func (h *OrgHandler) PreviewInvitation(c *gin.Context) {
	inv, org, err := h.service.Preview(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.respondInvitationError(c, err)
		return
	}

	c.JSON(http.StatusOK, InvitationPreviewResponse{
		OrgName: org.Name,
		Email:   inv.Email,
		Role:    inv.Role,
	})
}

// AcceptRequest is the payload for accepting an invitation.
type AcceptRequest struct {
	Token string `json:"token" binding:"required"`
}

// AcceptInvitation consumes an invitation for the authenticated user and
// switches the session to the joined organization. Accepting an invitation
// to an organization the user already belongs to keeps the existing role
// and still consumes the invitation.
// POST /api/v1/invitations/accept
func (h *OrgHandler) AcceptInvitation(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Accept(c.Request.Context(), req.Token, user.ID)
	if err != nil {
		h.respondInvitationError(c, err)
		return
	}

	if err := h.sessions.SetCurrentOrg(c.Request, c.Writer, result.Org.ID); err != nil {
		h.logger.Warn().Err(err).Msg("failed to persist current org selection")
	}

	c.JSON(http.StatusOK, gin.H{
		"org":            result.Org,
		"role":           result.Role,
		"already_member": result.AlreadyMember,
	})
}

func (h *OrgHandler) respondInvitationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orgs.ErrInvitationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "invitation not found"})
	case errors.Is(err, orgs.ErrInvitationExpired):
		c.JSON(http.StatusGone, gin.H{"error": "invitation has expired"})
	default:
		h.logger.Error().Err(err).Msg("invitation operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invitation operation failed"})
	}
}
