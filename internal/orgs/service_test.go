package orgs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/models"
)

// mockStore is an in-memory Store with per-call error injection.
type mockStore struct {
	orgs        map[uuid.UUID]*models.Organization
	users       map[uuid.UUID]*models.User
	memberships []*models.Membership
	invitations map[uuid.UUID]*models.Invitation

	createOrgErr        error
	createUserErr       error
	createMembershipErr error
	deleteInvitationErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		orgs:        make(map[uuid.UUID]*models.Organization),
		users:       make(map[uuid.UUID]*models.User),
		invitations: make(map[uuid.UUID]*models.Invitation),
	}
}

func (m *mockStore) CreateOrganization(_ context.Context, org *models.Organization) error {
	if m.createOrgErr != nil {
		return m.createOrgErr
	}
	m.orgs[org.ID] = org
	return nil
}

func (m *mockStore) GetOrganizationByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return org, nil
}

func (m *mockStore) CreateUser(_ context.Context, user *models.User) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) CreateMembership(_ context.Context, mem *models.Membership) error {
	if m.createMembershipErr != nil {
		return m.createMembershipErr
	}
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
			if u, ok := m.users[mem.UserID]; ok {
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
	inv, ok := m.invitations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return inv, nil
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
	if m.deleteInvitationErr != nil {
		return m.deleteInvitationErr
	}
	if _, ok := m.invitations[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.invitations, id)
	return nil
}

func newTestService(store Store) *Service {
	return NewService(store, "https://handout.example.com", zerolog.Nop())
}

func bootstrapReq() BootstrapRequest {
	return BootstrapRequest{
		OrgName:    "Riverside Food Bank",
		OrgEmail:   "info@riverside.org",
		City:       "Riverside",
		State:      "CA",
		Country:    "US",
		AdminName:  "Alice Admin",
		AdminEmail: "alice@riverside.org",
		Password:   "sturdy-pass1",
	}
}

func TestBootstrap(t *testing.T) {
	t.Run("creates org, user, and admin membership", func(t *testing.T) {
		store := newMockStore()
		svc := newTestService(store)

		result, err := svc.Bootstrap(context.Background(), bootstrapReq())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Org == nil || result.User == nil {
			t.Fatal("expected org and user in result")
		}
		if result.User.PasswordHash == nil {
			t.Fatal("expected password hash to be set")
		}
		if *result.User.PasswordHash == "sturdy-pass1" {
			t.Error("password must not be stored in plaintext")
		}

		m, err := store.GetMembershipByUserAndOrg(context.Background(), result.User.ID, result.Org.ID)
		if err != nil {
			t.Fatalf("expected membership: %v", err)
		}
		if m.Role != models.OrgRoleAdmin {
			t.Errorf("expected admin role, got %s", m.Role)
		}
	})

	t.Run("rejects taken email", func(t *testing.T) {
		store := newMockStore()
		svc := newTestService(store)

		if _, err := svc.Bootstrap(context.Background(), bootstrapReq()); err != nil {
			t.Fatalf("first bootstrap: %v", err)
		}

		req := bootstrapReq()
		req.OrgName = "Other Org"
		_, err := svc.Bootstrap(context.Background(), req)
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("rejects weak password before creating anything", func(t *testing.T) {
		store := newMockStore()
		svc := newTestService(store)

		req := bootstrapReq()
		req.Password = "short"
		if _, err := svc.Bootstrap(context.Background(), req); err == nil {
			t.Fatal("expected password validation error")
		}
		if len(store.orgs) != 0 {
			t.Error("no organization should be created on validation failure")
		}
	})

	t.Run("org failure leaves the user account orphaned", func(t *testing.T) {
		store := newMockStore()
		store.createOrgErr = errors.New("insert failed")
		svc := newTestService(store)

		_, err := svc.Bootstrap(context.Background(), bootstrapReq())
		if err == nil {
			t.Fatal("expected error")
		}
		if len(store.users) != 1 {
			t.Error("user created before the failure should remain")
		}
		if len(store.memberships) != 0 {
			t.Error("no membership should be created after an org failure")
		}
	})

	t.Run("membership failure is tolerated", func(t *testing.T) {
		store := newMockStore()
		store.createMembershipErr = errors.New("insert failed")
		svc := newTestService(store)

		result, err := svc.Bootstrap(context.Background(), bootstrapReq())
		if err != nil {
			t.Fatalf("membership failure should not fail the bootstrap: %v", err)
		}
		if result.Org == nil || result.User == nil {
			t.Fatal("expected org and user in result")
		}
		if len(store.memberships) != 0 {
			t.Error("membership insert was injected to fail")
		}
	})
}

func TestResolveCurrentOrg(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	setup := func() (*mockStore, uuid.UUID, uuid.UUID) {
		store := newMockStore()
		orgA := models.NewOrganization("Org A", "a@example.com", "", "", "", "")
		orgB := models.NewOrganization("Org B", "b@example.com", "", "", "", "")
		store.orgs[orgA.ID] = orgA
		store.orgs[orgB.ID] = orgB
		store.memberships = append(store.memberships,
			models.NewMembership(userID, orgA.ID, models.OrgRoleAdmin),
			models.NewMembership(userID, orgB.ID, models.OrgRoleCoordinator),
		)
		return store, orgA.ID, orgB.ID
	}

	t.Run("honors stored preference", func(t *testing.T) {
		store, _, orgB := setup()
		svc := newTestService(store)

		res, err := svc.ResolveCurrentOrg(ctx, userID, orgB)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Org.ID != orgB {
			t.Errorf("expected preferred org %s, got %s", orgB, res.Org.ID)
		}
		if res.Role != models.OrgRoleCoordinator {
			t.Errorf("expected coordinator role, got %s", res.Role)
		}
		if res.Changed {
			t.Error("resolution matching preference should not be marked changed")
		}
	})

	t.Run("falls back to first membership on stale preference", func(t *testing.T) {
		store, orgA, _ := setup()
		svc := newTestService(store)

		res, err := svc.ResolveCurrentOrg(ctx, userID, uuid.New())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Org.ID != orgA {
			t.Errorf("expected fallback to first org %s, got %s", orgA, res.Org.ID)
		}
		if !res.Changed {
			t.Error("fallback resolution should be marked changed")
		}
	})

	t.Run("falls back to first membership with no preference", func(t *testing.T) {
		store, orgA, _ := setup()
		svc := newTestService(store)

		res, err := svc.ResolveCurrentOrg(ctx, userID, uuid.Nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Org.ID != orgA {
			t.Errorf("expected first org %s, got %s", orgA, res.Org.ID)
		}
		if !res.Changed {
			t.Error("resolution from empty preference should be marked changed")
		}
	})

	t.Run("no memberships", func(t *testing.T) {
		svc := newTestService(newMockStore())

		_, err := svc.ResolveCurrentOrg(ctx, uuid.New(), uuid.Nil)
		if !errors.Is(err, ErrNoMemberships) {
			t.Errorf("expected ErrNoMemberships, got %v", err)
		}
	})
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()

	setup := func() (*mockStore, uuid.UUID, uuid.UUID, uuid.UUID) {
		store := newMockStore()
		orgID := uuid.New()
		adminID := uuid.New()
		coordID := uuid.New()
		store.memberships = append(store.memberships,
			models.NewMembership(adminID, orgID, models.OrgRoleAdmin),
			models.NewMembership(coordID, orgID, models.OrgRoleCoordinator),
		)
		return store, orgID, adminID, coordID
	}

	t.Run("removes a coordinator", func(t *testing.T) {
		store, orgID, adminID, coordID := setup()
		svc := newTestService(store)

		if err := svc.RemoveMember(ctx, orgID, coordID, adminID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := store.GetMembershipByUserAndOrg(ctx, coordID, orgID); !errors.Is(err, pgx.ErrNoRows) {
			t.Error("membership should be gone")
		}
	})

	t.Run("rejects self-removal", func(t *testing.T) {
		store, orgID, adminID, _ := setup()
		svc := newTestService(store)

		err := svc.RemoveMember(ctx, orgID, adminID, adminID)
		if !errors.Is(err, ErrSelfRemoval) {
			t.Errorf("expected ErrSelfRemoval, got %v", err)
		}
	})

	t.Run("protects the last admin", func(t *testing.T) {
		store, orgID, adminID, coordID := setup()
		svc := newTestService(store)

		err := svc.RemoveMember(ctx, orgID, adminID, coordID)
		if !errors.Is(err, ErrLastAdmin) {
			t.Errorf("expected ErrLastAdmin, got %v", err)
		}
	})

	t.Run("removes an admin when another remains", func(t *testing.T) {
		store, orgID, adminID, coordID := setup()
		secondAdmin := uuid.New()
		store.memberships = append(store.memberships,
			models.NewMembership(secondAdmin, orgID, models.OrgRoleAdmin))
		svc := newTestService(store)

		if err := svc.RemoveMember(ctx, orgID, adminID, coordID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		admins, _ := store.CountAdminsByOrgID(ctx, orgID)
		if admins != 1 {
			t.Errorf("expected 1 admin left, got %d", admins)
		}
	})

	t.Run("unknown member", func(t *testing.T) {
		store, orgID, adminID, _ := setup()
		svc := newTestService(store)

		err := svc.RemoveMember(ctx, orgID, uuid.New(), adminID)
		if !errors.Is(err, ErrMemberNotFound) {
			t.Errorf("expected ErrMemberNotFound, got %v", err)
		}
	})
}
