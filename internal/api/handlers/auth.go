// Package handlers provides HTTP handlers for the Handout API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/auth"
	"github.com/handout-labs/handout/internal/models"
	"github.com/handout-labs/handout/internal/orgs"
)

// AuthStore defines the user persistence operations the auth handler needs.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByOIDCSubject(ctx context.Context, subject string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// AuthHandler handles authentication-related HTTP endpoints.
type AuthHandler struct {
	store    AuthStore
	service  *orgs.Service
	sessions *auth.SessionStore
	oidc     *auth.OIDC
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. oidc may be nil when SSO is not
// configured.
func NewAuthHandler(store AuthStore, service *orgs.Service, sessions *auth.SessionStore, oidc *auth.OIDC, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:    store,
		service:  service,
		sessions: sessions,
		oidc:     oidc,
		logger:   logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterRoutes registers auth routes on the given router group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
	r.POST("/invitations/register", h.RegisterWithInvite)

	if h.oidc != nil {
		r.GET("/sso/login", h.SSOLogin)
		r.GET("/sso/callback", h.SSOCallback)
	}
}

// RegisterRequest is the payload for organization registration.
type RegisterRequest struct {
	OrgName    string `json:"org_name" binding:"required"`
	OrgEmail   string `json:"org_email" binding:"required,email"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	Website    string `json:"website"`
	AdminName  string `json:"admin_name" binding:"required"`
	AdminEmail string `json:"admin_email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
}

// RegisterResponse reports the created organization and admin user.
type RegisterResponse struct {
	Org  *models.Organization `json:"org"`
	User *models.User         `json:"user"`
}

// Register creates a new organization with its first admin. The caller must
// log in separately afterwards.
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Bootstrap(c.Request.Context(), orgs.BootstrapRequest{
		OrgName:    req.OrgName,
		OrgEmail:   req.OrgEmail,
		City:       req.City,
		State:      req.State,
		Country:    req.Country,
		Website:    req.Website,
		AdminName:  req.AdminName,
		AdminEmail: req.AdminEmail,
		Password:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, orgs.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		case errors.Is(err, auth.ErrPasswordTooShort),
			errors.Is(err, auth.ErrPasswordNoLetter),
			errors.Is(err, auth.ErrPasswordNoNumber):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error().Err(err).Msg("registration failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{Org: result.Org, User: result.User})
}

// LoginRequest is the payload for password login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response for a successful login.
type LoginResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	CurrentOrgID   string `json:"current_org_id,omitempty"`
	CurrentOrgRole string `json:"current_org_role,omitempty"`
}

// Login authenticates a user with email and password and creates a session.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Debug().Str("email", req.Email).Msg("user not found for password login")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if !user.HasPassword() {
		h.logger.Debug().Str("user_id", user.ID.String()).Msg("user does not have password auth configured")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := auth.VerifyPassword(req.Password, *user.PasswordHash); err != nil {
		h.logger.Debug().Str("user_id", user.ID.String()).Msg("password verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	sessionUser := &auth.SessionUser{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		AuthenticatedAt: time.Now(),
	}
	if err := h.sessions.SetUser(c.Request, c.Writer, sessionUser); err != nil {
		h.logger.Error().Err(err).Msg("failed to save user to session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	response := LoginResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
	}

	// Resolve and persist the current organization so the client lands in
	// a sensible default. Users without memberships can still log in.
	res, err := h.service.ResolveCurrentOrg(c.Request.Context(), user.ID, h.currentOrgPreference(c))
	if err == nil {
		if err := h.sessions.SetCurrentOrg(c.Request, c.Writer, res.Org.ID); err != nil {
			h.logger.Warn().Err(err).Msg("failed to persist current org selection")
		}
		response.CurrentOrgID = res.Org.ID.String()
		response.CurrentOrgRole = string(res.Role)
	} else if !errors.Is(err, orgs.ErrNoMemberships) {
		h.logger.Warn().Err(err).Msg("failed to resolve current org on login")
	}

	h.logger.Info().
		Str("user_id", user.ID.String()).
		Msg("user authenticated via password")

	c.JSON(http.StatusOK, response)
}

// Logout clears the session cookie.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionUser, err := h.sessions.GetUser(c.Request); err == nil {
		h.logger.Info().Str("user_id", sessionUser.ID.String()).Msg("user logging out")
	}

	if err := h.sessions.ClearUser(c.Request, c.Writer); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Me returns the current authenticated user.
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	sessionUser, err := h.sessions.GetUser(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	response := LoginResponse{
		ID:    sessionUser.ID.String(),
		Email: sessionUser.Email,
		Name:  sessionUser.Name,
	}
	if orgID, ok := h.sessions.GetCurrentOrg(c.Request); ok {
		response.CurrentOrgID = orgID.String()
	}

	c.JSON(http.StatusOK, response)
}

// InviteRegisterRequest is the payload for registering through an invitation.
// The account email comes from the invitation, not the payload.
type InviteRegisterRequest struct {
	Token    string `json:"token" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterWithInvite creates an account for a new user holding an invitation
// token, consumes the invitation, and logs the user in with the joined
// organization selected. The new identity is bound to the invitation's
// target email.
// POST /auth/invitations/register
func (h *AuthHandler) RegisterWithInvite(c *gin.Context) {
	var req InviteRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate the token up front so a bad link fails before the account
	// exists.
	inv, _, err := h.service.Preview(c.Request.Context(), req.Token)
	if err != nil {
		h.respondInvitationError(c, err)
		return
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.store.GetUserByEmail(c.Request.Context(), inv.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	user := models.NewUser(inv.Email, req.Name, hash)
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		h.logger.Error().Err(err).Msg("failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	result, err := h.service.Accept(c.Request.Context(), req.Token, user.ID)
	if err != nil {
		h.respondInvitationError(c, err)
		return
	}

	sessionUser := &auth.SessionUser{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		AuthenticatedAt: time.Now(),
	}
	if err := h.sessions.SetUser(c.Request, c.Writer, sessionUser); err != nil {
		h.logger.Error().Err(err).Msg("failed to save user to session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration succeeded but login failed"})
		return
	}
	if err := h.sessions.SetCurrentOrg(c.Request, c.Writer, result.Org.ID); err != nil {
		h.logger.Warn().Err(err).Msg("failed to persist current org selection")
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": user,
		"org":  result.Org,
		"role": result.Role,
	})
}

// SSOLogin initiates the OIDC authentication flow.
// GET /auth/sso/login
func (h *AuthHandler) SSOLogin(c *gin.Context) {
	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}

	if err := h.sessions.SetOIDCState(c.Request, c.Writer, state); err != nil {
		h.logger.Error().Err(err).Msg("failed to save state to session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.oidc.AuthorizationURL(state))
}

// SSOCallback handles the OIDC callback after authentication.
// GET /auth/sso/callback
func (h *AuthHandler) SSOCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.logger.Warn().
			Str("error", errParam).
			Str("description", c.Query("error_description")).
			Msg("OIDC provider returned error")
		c.JSON(http.StatusBadRequest, gin.H{"error": errParam})
		return
	}

	state := c.Query("state")
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing state parameter"})
		return
	}

	savedState, err := h.sessions.GetOIDCState(c.Request, c.Writer)
	if err != nil || state != savedState {
		h.logger.Warn().Msg("state parameter mismatch")
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	token, err := h.oidc.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to exchange authorization code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	claims, err := h.oidc.VerifyIDToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to verify ID token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	user, err := h.findOrCreateOIDCUser(c.Request.Context(), claims)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to find or create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	sessionUser := &auth.SessionUser{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		AuthenticatedAt: time.Now(),
	}
	if err := h.sessions.SetUser(c.Request, c.Writer, sessionUser); err != nil {
		h.logger.Error().Err(err).Msg("failed to save user to session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	if res, err := h.service.ResolveCurrentOrg(c.Request.Context(), user.ID, h.currentOrgPreference(c)); err == nil {
		if err := h.sessions.SetCurrentOrg(c.Request, c.Writer, res.Org.ID); err != nil {
			h.logger.Warn().Err(err).Msg("failed to persist current org selection")
		}
	}

	h.logger.Info().
		Str("user_id", user.ID.String()).
		Msg("user authenticated via SSO")

	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// findOrCreateOIDCUser looks up a user by OIDC subject, falling back to
// email linking, and creates a fresh account otherwise. SSO users join
// organizations through invitations like everyone else.
func (h *AuthHandler) findOrCreateOIDCUser(ctx context.Context, claims *auth.IDTokenClaims) (*models.User, error) {
	user, err := h.store.GetUserByOIDCSubject(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}

	if user, err := h.store.GetUserByEmail(ctx, claims.Email); err == nil {
		return user, nil
	}

	user = models.NewOIDCUser(claims.Subject, claims.Email, claims.Name)
	if err := h.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("user_id", user.ID.String()).
		Msg("created new user from SSO login")

	return user, nil
}

// currentOrgPreference reads the stored selection, uuid.Nil when absent.
func (h *AuthHandler) currentOrgPreference(c *gin.Context) uuid.UUID {
	if orgID, ok := h.sessions.GetCurrentOrg(c.Request); ok {
		return orgID
	}
	return uuid.Nil
}

func (h *AuthHandler) respondInvitationError(c *gin.Context, err error) {
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
