package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/api/middleware"
	"github.com/handout-labs/handout/internal/auth"
	"github.com/handout-labs/handout/internal/models"
	"github.com/handout-labs/handout/internal/orgs"
)

// mockStore is an in-memory store backing all handler tests.
type mockStore struct {
	orgsByID     map[uuid.UUID]*models.Organization
	usersByID    map[uuid.UUID]*models.User
	memberships  []*models.Membership
	invitations  map[uuid.UUID]*models.Invitation
	templates    map[uuid.UUID]*models.Template
	sessions     map[uuid.UUID]*models.Session
	publicRows   []*models.PublicSession

	listOrgsErr  error
	updateOrgErr error
	createSesErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		orgsByID:    make(map[uuid.UUID]*models.Organization),
		usersByID:   make(map[uuid.UUID]*models.User),
		invitations: make(map[uuid.UUID]*models.Invitation),
		templates:   make(map[uuid.UUID]*models.Template),
		sessions:    make(map[uuid.UUID]*models.Session),
	}
}

func (m *mockStore) CreateOrganization(_ context.Context, org *models.Organization) error {
	m.orgsByID[org.ID] = org
	return nil
}

func (m *mockStore) GetOrganizationByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	if o, ok := m.orgsByID[id]; ok {
		return o, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) UpdateOrganization(_ context.Context, org *models.Organization) error {
	if m.updateOrgErr != nil {
		return m.updateOrgErr
	}
	m.orgsByID[org.ID] = org
	return nil
}

func (m *mockStore) GetUserOrganizations(_ context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	if m.listOrgsErr != nil {
		return nil, m.listOrgsErr
	}
	var out []*models.Organization
	for _, mem := range m.memberships {
		if mem.UserID == userID {
			if o, ok := m.orgsByID[mem.OrgID]; ok {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

func (m *mockStore) CreateUser(_ context.Context, user *models.User) error {
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.usersByID[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.usersByID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) GetUserByOIDCSubject(_ context.Context, subject string) (*models.User, error) {
	for _, u := range m.usersByID {
		if u.OIDCSubject != nil && *u.OIDCSubject == subject {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) CreateMembership(_ context.Context, mem *models.Membership) error {
	m.memberships = append(m.memberships, mem)
	return nil
}

func (m *mockStore) GetMembershipByUserAndOrg(_ context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	for _, mem := range m.memberships {
		if mem.UserID == userID && mem.OrgID == orgID {
			return mem, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) GetMembershipsByUserID(_ context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	var out []*models.Membership
	for _, mem := range m.memberships {
		if mem.UserID == userID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *mockStore) GetMembershipsByOrgID(_ context.Context, orgID uuid.UUID) ([]*models.MembershipWithUser, error) {
	var out []*models.MembershipWithUser
	for _, mem := range m.memberships {
		if mem.OrgID == orgID {
			row := &models.MembershipWithUser{
				ID:     mem.ID,
				UserID: mem.UserID,
				OrgID:  mem.OrgID,
				Role:   mem.Role,
			}
			if u, ok := m.usersByID[mem.UserID]; ok {
				row.Email = u.Email
				row.Name = u.Name
			}
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockStore) DeleteMembership(_ context.Context, userID, orgID uuid.UUID) error {
	for i, mem := range m.memberships {
		if mem.UserID == userID && mem.OrgID == orgID {
			m.memberships = append(m.memberships[:i], m.memberships[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockStore) CountAdminsByOrgID(_ context.Context, orgID uuid.UUID) (int, error) {
	count := 0
	for _, mem := range m.memberships {
		if mem.OrgID == orgID && mem.Role == models.OrgRoleAdmin {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) CreateInvitation(_ context.Context, inv *models.Invitation) error {
	m.invitations[inv.ID] = inv
	return nil
}

func (m *mockStore) GetInvitationByToken(_ context.Context, token string) (*models.Invitation, error) {
	for _, inv := range m.invitations {
		if inv.Token == token {
			return inv, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) GetInvitationByID(_ context.Context, id uuid.UUID) (*models.Invitation, error) {
	if inv, ok := m.invitations[id]; ok {
		return inv, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) GetInvitationsByOrgID(_ context.Context, orgID uuid.UUID) ([]*models.Invitation, error) {
	var out []*models.Invitation
	for _, inv := range m.invitations {
		if inv.OrgID == orgID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockStore) DeleteInvitation(_ context.Context, id uuid.UUID) error {
	if _, ok := m.invitations[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.invitations, id)
	return nil
}

func (m *mockStore) CreateTemplate(_ context.Context, t *models.Template) error {
	m.templates[t.ID] = t
	return nil
}

func (m *mockStore) GetTemplateByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	if t, ok := m.templates[id]; ok {
		return t, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) GetTemplatesByOrgID(_ context.Context, orgID uuid.UUID) ([]*models.Template, error) {
	var out []*models.Template
	for _, t := range m.templates {
		if t.OrgID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateTemplate(_ context.Context, t *models.Template) error {
	m.templates[t.ID] = t
	return nil
}

func (m *mockStore) DeleteTemplate(_ context.Context, id uuid.UUID) error {
	delete(m.templates, id)
	for sid, s := range m.sessions {
		if s.TemplateID == id {
			delete(m.sessions, sid)
		}
	}
	return nil
}

func (m *mockStore) CreateSession(_ context.Context, s *models.Session) error {
	if m.createSesErr != nil {
		return m.createSesErr
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *mockStore) GetSessionWithTemplate(_ context.Context, id uuid.UUID) (*models.SessionWithTemplate, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	t, ok := m.templates[s.TemplateID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &models.SessionWithTemplate{
		Session:      *s,
		TemplateName: t.Name,
		TicketType:   t.TicketType,
		StartTime:    t.StartTime,
		OrgID:        t.OrgID,
	}, nil
}

func (m *mockStore) GetSessionsByOrgID(_ context.Context, orgID uuid.UUID) ([]*models.SessionWithTemplate, error) {
	var out []*models.SessionWithTemplate
	for id := range m.sessions {
		s, err := m.GetSessionWithTemplate(context.Background(), id)
		if err != nil {
			continue
		}
		if s.OrgID == orgID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateSessionStatus(_ context.Context, id uuid.UUID, status models.SessionStatus) error {
	s, ok := m.sessions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.Status = status
	return nil
}

func (m *mockStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockStore) GetPublicSessions(_ context.Context) ([]*models.PublicSession, error) {
	return m.publicRows, nil
}

const testBaseURL = "https://handout.test"

// testEnv bundles the wired router and its collaborators.
type testEnv struct {
	router   *gin.Engine
	store    *mockStore
	sessions *auth.SessionStore
	service  *orgs.Service
}

// setupTestRouter wires the full handler stack over a mock store. When user
// is non-nil it is injected into every request's context, bypassing the
// auth middleware the way production requests pass through it.
func setupTestRouter(store *mockStore, user *auth.SessionUser) *testEnv {
	gin.SetMode(gin.TestMode)

	secret := []byte("test-secret-that-is-at-least-32-bytes-long")
	sessions, err := auth.NewSessionStore(auth.DefaultSessionConfig(secret, false), zerolog.Nop())
	if err != nil {
		panic(err)
	}

	service := orgs.NewService(store, testBaseURL, zerolog.Nop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user != nil {
			c.Set(string(middleware.UserContextKey), user)
		}
		c.Next()
	})

	authHandler := NewAuthHandler(store, service, sessions, nil, zerolog.Nop())
	orgHandler := NewOrgHandler(store, service, sessions, zerolog.Nop())
	templateHandler := NewTemplateHandler(store, orgHandler, zerolog.Nop())
	sessionHandler := NewSessionHandler(store, orgHandler, zerolog.Nop())
	publicHandler := NewPublicHandler(store, zerolog.Nop())

	authHandler.RegisterRoutes(r.Group("/auth"))
	orgHandler.RegisterPublicRoutes(r.Group("/api/v1/invitations"))
	api := r.Group("/api/v1")
	orgHandler.RegisterRoutes(api)
	templateHandler.RegisterRoutes(api)
	sessionHandler.RegisterRoutes(api)
	publicHandler.RegisterRoutes(r.Group("/public"))

	return &testEnv{router: r, store: store, sessions: sessions, service: service}
}

// doJSON performs a request with a JSON body and returns the recorder.
func (e *testEnv) doJSON(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	e.router.ServeHTTP(w, req)
	return w
}

// member adds an org plus a membership for the given user and returns the org.
func (m *mockStore) member(userID uuid.UUID, role models.OrgRole) *models.Organization {
	org := models.NewOrganization("Org "+uuid.NewString()[:8], "org@example.com", "Springfield", "IL", "US", "")
	m.orgsByID[org.ID] = org
	m.memberships = append(m.memberships, models.NewMembership(userID, org.ID, role))
	return org
}

func adminUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:    uuid.New(),
		Email: "admin@example.com",
		Name:  "Admin",
	}
}
