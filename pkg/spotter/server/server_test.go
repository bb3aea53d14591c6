package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/auth"
	"github.com/mikepea/spotter/pkg/spotter/config"
	"github.com/mikepea/spotter/pkg/spotter/database"
	"github.com/mikepea/spotter/pkg/spotter/events"
	"github.com/mikepea/spotter/pkg/spotter/logging"
	"github.com/mikepea/spotter/pkg/spotter/mediator"
	"github.com/mikepea/spotter/pkg/spotter/models"
	"github.com/mikepea/spotter/pkg/spotter/workouts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@spotter.test"
	adminPassword = "admin-password"
)

type testServer struct {
	t       *testing.T
	app     *App
	db      *gorm.DB
	handler http.Handler
}

func setupTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(database.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	cfg, err := config.LoadFrom(map[string]string{
		"JWT_SECRET":           "server-test-secret",
		"CORS_ALLOWED_ORIGINS": "https://app.spotter.test",
	})
	require.NoError(t, err)

	app := New(db, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, app.EnsureAdmin(context.Background(), adminEmail, adminPassword))

	return &testServer{t: t, app: app, db: db, handler: app.Handler()}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) decode(w *httptest.ResponseRecorder, dest interface{}) {
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func (s *testServer) expect(w *httptest.ResponseRecorder, status int, kind apperr.Kind) {
	s.t.Helper()
	require.Equal(s.t, status, w.Code, w.Body.String())
	var body mediator.ErrorResponse
	s.decode(w, &body)
	assert.Equal(s.t, string(kind), body.Kind)
}

func (s *testServer) login(email, password string) auth.AuthResponse {
	w := s.do(http.MethodPost, "/api/auth/login", "", auth.LoginRequest{Email: email, Password: password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp auth.AuthResponse
	s.decode(w, &resp)
	return resp
}

func (s *testServer) register(name string) auth.AuthResponse {
	w := s.do(http.MethodPost, "/api/auth/register", "", auth.RegisterRequest{
		Email:    name + "@spotter.test",
		Password: "password123",
		Name:     name,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var resp auth.AuthResponse
	s.decode(w, &resp)
	return resp
}

func (s *testServer) createEvent(token string, seats int) models.Event {
	w := s.do(http.MethodPost, "/api/events", token, events.EventRequest{
		Title: "Circuit", Date: "2025-06-01", Time: "17:00", Location: "Main hall", MaxParticipants: seats,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var event models.Event
	s.decode(w, &event)
	return event
}

func (s *testServer) event(token string, id uint) models.Event {
	w := s.do(http.MethodGet, fmt.Sprintf("/api/events/%d", id), token, nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var event models.Event
	s.decode(w, &event)
	return event
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(logging.HeaderRequestID))

	w = s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "spotter")

	// generate one decision so the counter family is exported
	s.do(http.MethodGet, "/api/events", s.login(adminEmail, adminPassword).Token, nil)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "spotter_access_decisions_total")
}

func TestCORSPreflight(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", "https://app.spotter.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// browsers send the requested header names lowercased
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	assert.Equal(t, "https://app.spotter.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "authorization")

	req = httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	s := setupTestServer(t)
	require.NoError(t, s.app.EnsureAdmin(context.Background(), "other@spotter.test", "whatever"))

	var admins int64
	require.NoError(t, s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error)
	assert.Equal(t, int64(1), admins)
}

func TestCredentialFailures(t *testing.T) {
	s := setupTestServer(t)
	member := s.register("mia")

	s.expect(s.do(http.MethodGet, "/api/events", "", nil), http.StatusUnauthorized, apperr.KindInvalidCredential)
	s.expect(s.do(http.MethodGet, "/api/events", "not-a-jwt", nil), http.StatusUnauthorized, apperr.KindInvalidCredential)

	expired := auth.NewSigner("server-test-secret", "spotter", time.Nanosecond)
	stale, err := expired.GenerateToken(&models.User{ID: member.User.ID})
	require.NoError(t, err)
	time.Sleep(time.Second)
	s.expect(s.do(http.MethodGet, "/api/events", stale, nil), http.StatusUnauthorized, apperr.KindInvalidCredential)

	// the account disappears after the token was issued
	require.NoError(t, s.db.Unscoped().Delete(&models.User{}, member.User.ID).Error)
	s.expect(s.do(http.MethodGet, "/api/events", member.Token, nil), http.StatusUnauthorized, apperr.KindUnknownSubject)
}

func TestRoleChangeTakesEffectImmediately(t *testing.T) {
	s := setupTestServer(t)
	member := s.register("max")

	s.expect(s.do(http.MethodGet, "/api/admin/users/members", member.Token, nil), http.StatusForbidden, apperr.KindRoleNotPermitted)

	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", member.User.ID).Update("role", "Admin").Error)

	w := s.do(http.MethodGet, "/api/admin/users/members", member.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// and back down again
	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", member.User.ID).Update("role", "member").Error)
	s.expect(s.do(http.MethodGet, "/api/admin/users/members", member.Token, nil), http.StatusForbidden, apperr.KindRoleNotPermitted)
}

func TestRoleTable(t *testing.T) {
	s := setupTestServer(t)
	admin := s.login(adminEmail, adminPassword).Token
	member := s.register("mo").Token
	event := s.createEvent(admin, 5)

	memberDenied := []struct{ method, path string }{
		{http.MethodPost, "/api/events"},
		{http.MethodPut, fmt.Sprintf("/api/events/%d", event.ID)},
		{http.MethodDelete, fmt.Sprintf("/api/events/%d", event.ID)},
		{http.MethodPost, "/api/workouts"},
		{http.MethodGet, "/api/workouts"},
		{http.MethodGet, "/api/workouts/users/all-progress"},
		{http.MethodDelete, "/api/workouts/1"},
		{http.MethodGet, "/api/admin/users/members"},
		{http.MethodDelete, "/api/admin/users/members/1"},
		{http.MethodGet, "/api/admin/stats"},
	}
	for _, tt := range memberDenied {
		t.Run("member "+tt.method+" "+tt.path, func(t *testing.T) {
			s.expect(s.do(tt.method, tt.path, member, nil), http.StatusForbidden, apperr.KindRoleNotPermitted)
		})
	}

	adminDenied := []struct{ method, path string }{
		{http.MethodPost, fmt.Sprintf("/api/events/%d/join", event.ID)},
		{http.MethodDelete, fmt.Sprintf("/api/events/%d/leave", event.ID)},
		{http.MethodPatch, "/api/workouts/1/toggle-completion"},
	}
	for _, tt := range adminDenied {
		t.Run("admin "+tt.method+" "+tt.path, func(t *testing.T) {
			s.expect(s.do(tt.method, tt.path, admin, nil), http.StatusForbidden, apperr.KindRoleNotPermitted)
		})
	}

	// denied requests never touched the event
	assert.Equal(t, 0, s.event(admin, event.ID).CurrentParticipants)
}

func TestLastSeatGoesToExactlyOneMember(t *testing.T) {
	s := setupTestServer(t)
	admin := s.login(adminEmail, adminPassword).Token
	event := s.createEvent(admin, 1)

	tokens := []string{s.register("ana").Token, s.register("ben").Token}
	codes := make([]int, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		i, token := i, token
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/join", event.ID), token, nil).Code
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codes)
	assert.Equal(t, 1, s.event(admin, event.ID).CurrentParticipants)
}

func TestParticipationLifecycle(t *testing.T) {
	s := setupTestServer(t)
	admin := s.login(adminEmail, adminPassword).Token
	ana := s.register("ana").Token
	ben := s.register("ben").Token
	event := s.createEvent(admin, 2)
	path := fmt.Sprintf("/api/events/%d", event.ID)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, path+"/join", ana, nil).Code)
	s.expect(s.do(http.MethodPost, path+"/join", ana, nil), http.StatusConflict, apperr.KindAlreadyJoined)
	s.expect(s.do(http.MethodDelete, path+"/leave", ben, nil), http.StatusNotFound, apperr.KindNotFound)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, path+"/join", ben, nil).Code)
	s.expect(s.do(http.MethodPost, path+"/join", s.register("cat").Token, nil), http.StatusConflict, apperr.KindFull)

	w := s.do(http.MethodGet, path+"/participants", ana, nil)
	var participants []events.Participant
	s.decode(w, &participants)
	assert.Len(t, participants, 2)

	// capacity cannot shrink below the sign-ups
	shrink := events.EventRequest{Title: "Circuit", Date: "2025-06-01", Time: "17:00", MaxParticipants: 1}
	s.expect(s.do(http.MethodPut, path, admin, shrink), http.StatusBadRequest, apperr.KindInvalidInput)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, path+"/leave", ana, nil).Code)
	assert.Equal(t, 1, s.event(admin, event.ID).CurrentParticipants)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, path, admin, nil).Code)
	s.expect(s.do(http.MethodGet, path, ben, nil), http.StatusNotFound, apperr.KindNotFound)

	var remaining int64
	require.NoError(t, s.db.Model(&models.EventParticipation{}).Where("event_id = ?", event.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	w = s.do(http.MethodGet, "/api/events/joined", ben, nil)
	var joined []models.Event
	s.decode(w, &joined)
	assert.Empty(t, joined)
}

func TestWorkoutProgress(t *testing.T) {
	s := setupTestServer(t)
	admin := s.login(adminEmail, adminPassword).Token
	ana := s.register("ana")
	ben := s.register("ben")

	var ids []uint
	for i, sets := range []int{3, 4, 5} {
		w := s.do(http.MethodPost, "/api/workouts", admin, workouts.CreateWorkoutRequest{
			UserID: ana.User.ID, EventTitle: fmt.Sprintf("Set %d", i), Sets: sets, RepsOrSecs: 10 + i, RestTime: 30,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var workout models.Workout
		s.decode(w, &workout)
		ids = append(ids, workout.ID)
	}

	s.expect(s.do(http.MethodPatch, fmt.Sprintf("/api/workouts/%d/toggle-completion", ids[0]), ben.Token, nil), http.StatusForbidden, apperr.KindForbidden)

	for _, id := range ids[:2] {
		require.Equal(t, http.StatusOK, s.do(http.MethodPatch, fmt.Sprintf("/api/workouts/%d/toggle-completion", id), ana.Token, nil).Code)
	}

	w := s.do(http.MethodGet, fmt.Sprintf("/api/workouts/stats/%d", ana.User.ID), ana.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var snap workouts.ProgressSnapshot
	s.decode(w, &snap)
	assert.Equal(t, 3, snap.TotalWorkouts)
	assert.Equal(t, 2, snap.CompletedWorkouts)
	assert.Equal(t, 4.0, snap.AverageSets)
	assert.Equal(t, 11.0, snap.AverageReps)

	s.expect(s.do(http.MethodGet, fmt.Sprintf("/api/workouts/stats/%d", ana.User.ID), ben.Token, nil), http.StatusForbidden, apperr.KindNotOwner)

	// admins read anyone's stats
	w = s.do(http.MethodGet, fmt.Sprintf("/api/workouts/stats/%d", ana.User.ID), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// removing the member removes the workouts behind the numbers
	w = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/users/members/%d", ana.User.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, fmt.Sprintf("/api/workouts/stats/%d", ana.User.ID), admin, nil)
	s.decode(w, &snap)
	assert.Zero(t, snap.TotalWorkouts)

	s.expect(s.do(http.MethodGet, "/api/workouts/my-workout", ana.Token, nil), http.StatusUnauthorized, apperr.KindUnknownSubject)
}
