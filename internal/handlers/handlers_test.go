package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mindcare-api/internal/config"
	"mindcare-api/internal/logging"
	"mindcare-api/internal/metrics"
	"mindcare-api/internal/models"
	"mindcare-api/internal/ratelimit"
	"mindcare-api/internal/repository"
	"mindcare-api/internal/services"
	"mindcare-api/internal/utils"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const alicePassword = "Secret123"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	router *mux.Router
	store  *repository.MemoryStore
	clock  *clock
	auth   *services.AuthService
}

func newTestServer(t *testing.T, loginMax int) *testServer {
	t.Helper()
	cfg := &config.Config{
		AppEnv:           "test",
		APIPrefix:        "/api/v1",
		ClientURL:        "http://localhost:3000",
		PublicURL:        "http://localhost:5000",
		JWTCookieExpires: time.Hour,
	}
	log := logging.Discard()
	m := metrics.New()
	store := repository.NewMemoryStore()
	clk := &clock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	email := services.NewEmailService(cfg, services.NewLogMailer(log))
	auth := services.NewAuthService(store, utils.NewJWTUtil("handler-secret", time.Hour), email, m, log, bcrypt.MinCost).
		WithClock(clk.Now)
	mood := services.NewMoodService(store, m, log, time.UTC).WithClock(clk.Now)

	router := NewRouter(Deps{
		Config:       cfg,
		Store:        store,
		Auth:         auth,
		Mood:         mood,
		Metrics:      m,
		APILimiter:   ratelimit.NewMemoryLimiter(1000, time.Minute),
		LoginLimiter: ratelimit.NewMemoryLimiter(loginMax, time.Minute),
		Log:          log,
		Location:     time.UTC,
		Started:      time.Now(),
	})
	return &testServer{router: router, store: store, clock: clk, auth: auth}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func (s *testServer) register(t *testing.T, first, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"firstName": first,
		"lastName":  "Tester",
		"email":     email,
		"password":  alicePassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func loginBody(password string) map[string]interface{} {
	return map[string]interface{}{"email": "alice@example.com", "password": password}
}

func TestAliceLockoutScenario(t *testing.T) {
	s := newTestServer(t, 100)
	s.register(t, "Alice", "alice@example.com")

	for i := 1; i <= 4; i++ {
		rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", loginBody("WrongPass1"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], fmt.Sprintf("%d attempts left", 5-i))
	}

	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", loginBody("WrongPass1"))
	assert.Equal(t, http.StatusLocked, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", loginBody(alicePassword))
	require.Equal(t, http.StatusLocked, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "temporarily locked")

	s.clock.Advance(2*time.Hour + time.Minute)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", loginBody(alicePassword))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["token"])

	user, err := s.store.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, user.LoginAttempts)
	assert.Nil(t, user.LockUntil)
}

func TestOneMoodEntryPerDay(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "Alice", "alice@example.com")

	rec := s.do(t, http.MethodPost, "/api/v1/mood", token, map[string]interface{}{"mood": 4})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "Good", data["moodText"])
	assert.Equal(t, "2026-03-10", data["date"])

	rec = s.do(t, http.MethodPost, "/api/v1/mood", token, map[string]interface{}{"mood": 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Mood entry already exists for today", decode(t, rec)["error"])
}

func TestMoodValidation(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "Alice", "alice@example.com")

	rec := s.do(t, http.MethodPost, "/api/v1/mood", token, map[string]interface{}{"mood": 9, "tags": []string{"bored"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Validation failed", body["error"])
	assert.Len(t, body["errors"], 2)
}

func TestMoodRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, http.MethodGet, "/api/v1/mood", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/mood", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", decode(t, rec)["error"])
}

func TestMoodLifecycle(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "Alice", "alice@example.com")

	rec := s.do(t, http.MethodPost, "/api/v1/mood", token, map[string]interface{}{
		"mood": 3, "tags": []string{"tired"}, "sleepHours": 6.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int64(decode(t, rec)["data"].(map[string]interface{})["id"].(float64))

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/mood/%d", id), token, map[string]interface{}{"mood": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Excellent", decode(t, rec)["data"].(map[string]interface{})["moodText"])

	rec = s.do(t, http.MethodGet, "/api/v1/mood", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.EqualValues(t, 1, list["count"])
	assert.EqualValues(t, 1, list["total"])
	assert.Contains(t, list, "pagination")
	assert.Contains(t, list, "trends")
	assert.EqualValues(t, 5, list["stats"].(map[string]interface{})["averageMood"])

	rec = s.do(t, http.MethodGet, "/api/v1/mood/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode(t, rec)["data"].(map[string]interface{})
	assert.Contains(t, report, "sleepCorrelation")
	assert.Contains(t, report, "topTags")

	s.clock.Advance(25 * time.Hour)
	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/mood/%d", id), token, map[string]interface{}{"mood": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot update entries older than 24 hours", decode(t, rec)["error"])

	other := s.register(t, "Bob", "bob@example.com")
	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/mood/%d", id), other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/mood/%d", id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{}, decode(t, rec)["data"])
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "Alice", "alice@example.com")
	rec := s.do(t, http.MethodPost, "/api/v1/mood", token, map[string]interface{}{"mood": 4, "notes": "ok, fine"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/mood/export", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename=mood-data-\d+\.csv$`, rec.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Date,Time,Mood,Mood Text"))
	assert.Contains(t, lines[1], `"ok, fine"`)
}

func TestAdminUnlock(t *testing.T) {
	s := newTestServer(t, 100)
	member := s.register(t, "Alice", "alice@example.com")

	hash, err := bcrypt.GenerateFromPassword([]byte(alicePassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.store.CreateUser(context.Background(), &models.User{
		FirstName: "Root", LastName: "Admin", Email: "admin@example.com", Password: string(hash),
		Role: models.RoleAdmin, IsActive: true, Preferences: models.DefaultPreferences(),
	}))
	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email": "admin@example.com", "password": alicePassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	admin := decode(t, rec)["token"].(string)

	for i := 0; i < 5; i++ {
		s.do(t, http.MethodPost, "/api/v1/auth/login", "", loginBody("WrongPass1"))
	}
	alice, err := s.store.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.True(t, alice.IsLocked(s.clock.Now()))

	path := fmt.Sprintf("/api/v1/admin/users/%d/unlock", alice.ID)
	rec = s.do(t, http.MethodPut, path, member, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, path, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", loginBody(alicePassword))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	s.register(t, "Alice", "alice@example.com")

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", loginBody(alicePassword))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", loginBody(alicePassword))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, loginLimitMessage, decode(t, rec)["error"])

	rec = s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRememberMeSetsCookie(t *testing.T) {
	s := newTestServer(t, 100)
	s.register(t, "Alice", "alice@example.com")

	body := loginBody(alicePassword)
	body["rememberMe"] = true
	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	s.router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "alice@example.com", decode(t, me)["data"].(map[string]interface{})["email"])
}

func TestSystemRoutes(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MindCare API is running", decode(t, rec)["message"])

	rec = s.do(t, http.MethodGet, "/api/v1/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.0.0", decode(t, rec)["version"])

	rec = s.do(t, http.MethodGet, "/api/v1/forum", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decode(t, rec)["error"])

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mindcare_http_requests_total")
	assert.NotEmpty(t, rec.Header().Get(requestHeader))
}

func TestMoodQueriesOutsideDataAreEmpty(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "Alice", "alice@example.com")

	for _, path := range []string{
		"/api/v1/mood/stats?endDate=2020-01-31",
		"/api/v1/mood/stats?startDate=2020-02-01&endDate=2020-01-31",
	} {
		rec := s.do(t, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		overall := decode(t, rec)["data"].(map[string]interface{})["overall"].(map[string]interface{})
		assert.EqualValues(t, 0, overall["totalEntries"], path)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/mood?page=100000000000000000&limit=100", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 0, decode(t, rec)["count"])
}
