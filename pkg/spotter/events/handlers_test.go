package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/identity"
	"github.com/mikepea/spotter/pkg/spotter/mediator"
	"github.com/mikepea/spotter/pkg/spotter/models"
)

type tokenResolver map[string]identity.Identity

func (r tokenResolver) Resolve(_ context.Context, token string) (identity.Identity, error) {
	if id, ok := r[token]; ok {
		return id, nil
	}
	return identity.Identity{}, apperr.ErrInvalidCredential
}

func setupTestRouter(t *testing.T) (*gin.Engine, *Manager) {
	m, _ := setupTestManager(t)
	med := mediator.New(tokenResolver{
		"admin":  {SubjectID: 1, Role: models.RoleAdmin},
		"member": {SubjectID: 2, Role: models.RoleMember},
		"other":  {SubjectID: 3, Role: models.RoleMember},
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(m, med)
	handler.RegisterRoutes(r.Group("/events", med.Authenticate()))
	return r, m
}

func do(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	var body mediator.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode error body %q: %v", w.Body.String(), err)
	}
	return body.Kind
}

func TestCreateEventHandler(t *testing.T) {
	r, _ := setupTestRouter(t)

	req := EventRequest{Title: "Boxing", Date: "2025-06-01", Time: "18:00", Location: "Ring", MaxParticipants: 1}

	w := do(r, http.MethodPost, "/events", "member", req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected status 403 for member, got %d: %s", w.Code, w.Body.String())
	}
	if kind := errorKind(t, w); kind != string(apperr.KindRoleNotPermitted) {
		t.Errorf("Expected ROLE_NOT_PERMITTED, got %s", kind)
	}

	w = do(r, http.MethodPost, "/events", "admin", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var event models.Event
	json.Unmarshal(w.Body.Bytes(), &event)
	if event.Title != "Boxing" || event.CreatedByID != 1 {
		t.Errorf("Unexpected event: %+v", event)
	}

	w = do(r, http.MethodPost, "/events", "admin", EventRequest{Title: "No seats", Date: "2025-06-01", Time: "18:00"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing capacity, got %d", w.Code)
	}
}

func TestJoinLeaveHandlers(t *testing.T) {
	r, m := setupTestRouter(t)
	event := createEvent(t, m, 1)
	path := "/events/" + jsonID(event.ID)

	w := do(r, http.MethodPost, path+"/join", "admin", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected admin join to be refused, got %d", w.Code)
	}

	w = do(r, http.MethodPost, path+"/join", "member", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, path+"/join", "member", nil)
	if w.Code != http.StatusConflict || errorKind(t, w) != string(apperr.KindAlreadyJoined) {
		t.Errorf("Expected ALREADY_JOINED conflict, got %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, path+"/join", "other", nil)
	if w.Code != http.StatusConflict || errorKind(t, w) != string(apperr.KindFull) {
		t.Errorf("Expected FULL conflict, got %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/events/joined", "member", nil)
	var joined []models.Event
	json.Unmarshal(w.Body.Bytes(), &joined)
	if len(joined) != 1 || joined[0].ID != event.ID {
		t.Errorf("Expected the joined event, got %s", w.Body.String())
	}

	w = do(r, http.MethodDelete, path+"/leave", "other", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 leaving an event never joined, got %d", w.Code)
	}

	w = do(r, http.MethodDelete, path+"/leave", "member", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/events/999/join", "member", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown event, got %d", w.Code)
	}

	w = do(r, http.MethodPost, "/events/abc/join", "member", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed id, got %d", w.Code)
	}
}

func TestDeleteEventHandler(t *testing.T) {
	r, m := setupTestRouter(t)
	event := createEvent(t, m, 3)
	path := "/events/" + jsonID(event.ID)

	do(r, http.MethodPost, path+"/join", "member", nil)

	w := do(r, http.MethodDelete, path, "member", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected member delete to be refused, got %d", w.Code)
	}

	w = do(r, http.MethodGet, path+"/participants", "member", nil)
	var participants []Participant
	json.Unmarshal(w.Body.Bytes(), &participants)
	// user 2 has no users row, so the join filters it out
	if w.Code != http.StatusOK || len(participants) != 0 {
		t.Errorf("Unexpected participants response %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodDelete, path, "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, path, "member", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestUnauthenticatedEventRequests(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := do(r, http.MethodGet, "/events", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
	w = do(r, http.MethodGet, "/events", "forged", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
