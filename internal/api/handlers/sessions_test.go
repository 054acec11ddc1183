package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/handout-labs/handout/internal/models"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestCreateSession(t *testing.T) {
	t.Run("schedules a session from an owned template", func(t *testing.T) {
		user := adminUser()
		store := newMockStore()
		org := store.member(user.ID, models.OrgRoleAdmin)
		tmpl := seedTemplate(store, org.ID)
		env := setupTestRouter(store, user)

		w := env.doJSON(http.MethodPost, "/api/v1/sessions",
			fmt.Sprintf(`{"template_id":%q,"date":"2026-09-05"}`, tmpl.ID))

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
		}
		var resp struct {
			Session *models.Session `json:"session"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Session.TemplateID != tmpl.ID {
			t.Errorf("template_id = %s, want %s", resp.Session.TemplateID, tmpl.ID)
		}
		if resp.Session.Status != models.SessionStatusActive {
			t.Errorf("status = %s, want active", resp.Session.Status)
		}
	})

	t.Run("rejects a template from another org", func(t *testing.T) {
		user := adminUser()
		store := newMockStore()
		store.member(user.ID, models.OrgRoleAdmin)
		foreign := seedTemplate(store, uuid.New())
		env := setupTestRouter(store, user)

		w := env.doJSON(http.MethodPost, "/api/v1/sessions",
			fmt.Sprintf(`{"template_id":%q,"date":"2026-09-05"}`, foreign.ID))

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
		if len(store.sessions) != 0 {
			t.Error("session created against a foreign template")
		}
	})

	t.Run("rejects a malformed date", func(t *testing.T) {
		user := adminUser()
		store := newMockStore()
		org := store.member(user.ID, models.OrgRoleAdmin)
		tmpl := seedTemplate(store, org.ID)
		env := setupTestRouter(store, user)

		w := env.doJSON(http.MethodPost, "/api/v1/sessions",
			fmt.Sprintf(`{"template_id":%q,"date":"05/09/2026"}`, tmpl.ID))

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestListSessions(t *testing.T) {
	user := adminUser()
	store := newMockStore()
	org := store.member(user.ID, models.OrgRoleAdmin)
	tmpl := seedTemplate(store, org.ID)
	s := models.NewSession(tmpl.ID, mustDate(t, "2026-09-05"))
	store.sessions[s.ID] = s

	foreignTmpl := seedTemplate(store, uuid.New())
	foreign := models.NewSession(foreignTmpl.ID, mustDate(t, "2026-09-06"))
	store.sessions[foreign.ID] = foreign

	env := setupTestRouter(store, user)

	w := env.doJSON(http.MethodGet, "/api/v1/sessions", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp struct {
		Sessions []*models.SessionWithTemplate `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(resp.Sessions))
	}
	if resp.Sessions[0].TemplateName != tmpl.Name {
		t.Errorf("template_name = %q, want %q", resp.Sessions[0].TemplateName, tmpl.Name)
	}
}

func TestUpdateSessionStatus(t *testing.T) {
	t.Run("cancels an active session", func(t *testing.T) {
		user := adminUser()
		store := newMockStore()
		org := store.member(user.ID, models.OrgRoleAdmin)
		tmpl := seedTemplate(store, org.ID)
		s := models.NewSession(tmpl.ID, mustDate(t, "2026-09-05"))
		store.sessions[s.ID] = s
		env := setupTestRouter(store, user)

		w := env.doJSON(http.MethodPatch, "/api/v1/sessions/"+s.ID.String()+"/status",
			`{"status":"cancelled"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
		if store.sessions[s.ID].Status != models.SessionStatusCancelled {
			t.Errorf("session status = %s, want cancelled", store.sessions[s.ID].Status)
		}
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		user := adminUser()
		store := newMockStore()
		org := store.member(user.ID, models.OrgRoleAdmin)
		tmpl := seedTemplate(store, org.ID)
		s := models.NewSession(tmpl.ID, mustDate(t, "2026-09-05"))
		store.sessions[s.ID] = s
		env := setupTestRouter(store, user)

		w := env.doJSON(http.MethodPatch, "/api/v1/sessions/"+s.ID.String()+"/status",
			`{"status":"paused"}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("hides another org's session", func(t *testing.T) {
		user := adminUser()
		store := newMockStore()
		store.member(user.ID, models.OrgRoleAdmin)
		foreignTmpl := seedTemplate(store, uuid.New())
		s := models.NewSession(foreignTmpl.ID, mustDate(t, "2026-09-05"))
		store.sessions[s.ID] = s
		env := setupTestRouter(store, user)

		w := env.doJSON(http.MethodPatch, "/api/v1/sessions/"+s.ID.String()+"/status",
			`{"status":"cancelled"}`)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestDeleteSession(t *testing.T) {
	user := adminUser()
	store := newMockStore()
	org := store.member(user.ID, models.OrgRoleAdmin)
	tmpl := seedTemplate(store, org.ID)
	s := models.NewSession(tmpl.ID, mustDate(t, "2026-09-05"))
	store.sessions[s.ID] = s
	env := setupTestRouter(store, user)

	w := env.doJSON(http.MethodDelete, "/api/v1/sessions/"+s.ID.String(), "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(store.sessions) != 0 {
		t.Error("session was not deleted")
	}
}

func TestPublicSessions(t *testing.T) {
	store := newMockStore()
	store.publicRows = []*models.PublicSession{
		{
			ID:           uuid.New(),
			Date:         mustDate(t, "2026-09-05"),
			TemplateName: "Saturday Distribution",
			TicketType:   models.TicketTypeNumbered,
			StartTime:    "09:00",
			OrgName:      "Harvest Share",
			OrgCity:      "Springfield",
		},
	}
	env := setupTestRouter(store, nil)

	// No authentication required.
	w := env.doJSON(http.MethodGet, "/public/sessions", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp struct {
		Sessions []*models.PublicSession `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(resp.Sessions))
	}
	if resp.Sessions[0].OrgName != "Harvest Share" {
		t.Errorf("org_name = %q, want Harvest Share", resp.Sessions[0].OrgName)
	}
}
