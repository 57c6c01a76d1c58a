package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/mygarage/mygarage/internal/auth"
	"github.com/mygarage/mygarage/internal/platform/httpx"
	"github.com/mygarage/mygarage/internal/shared"
)

type stubRepo struct {
	user     *auth.User
	created  *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, httpx.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, httpx.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) Create(ctx context.Context, email, name, passwordHash string) (*auth.User, error) {
	if s.user != nil && s.user.Email == email {
		return nil, httpx.ErrDuplicate
	}
	s.created = &auth.User{ID: 42, Email: email, Name: name, PasswordHash: passwordHash, IsActive: true}
	return s.created, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

// commitWriter commits the session before the first header write, matching
// the behavior of the app's session middleware.
type commitWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *commitWriter) WriteHeader(statusCode int) {
	if !w.committed {
		w.committed = true
		w.commit()
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

func newAuthRouter(t *testing.T, repo auth.Repository) (chi.Router, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			cw := &commitWriter{ResponseWriter: w, commit: func() {
				if err := sessionManager.Commit(ctx, w, req, sess); err != nil {
					t.Fatalf("commit session: %v", err)
				}
			}}
			next.ServeHTTP(cw, req.WithContext(ctx))
			if !cw.committed {
				cw.committed = true
				cw.commit()
			}
		})
	})
	handler.MountRoutes(r)
	return r, sessionManager
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hashed)
}

func TestRegisterCreatesUser(t *testing.T) {
	repo := &stubRepo{}
	router, _ := newAuthRouter(t, repo)

	body := `{"email":"New@Test.Local","name":"New User","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if repo.created == nil {
		t.Fatal("expected user to be created")
	}
	if repo.created.Email != "new@test.local" {
		t.Fatalf("expected lowercased email, got %q", repo.created.Email)
	}
	if repo.created.PasswordHash == "longenough" {
		t.Fatal("password stored unhashed")
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{})

	body := `{"email":"new@test.local","name":"New User","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLoginSetsSessionUser(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "user@test.local",
		PasswordHash: hashFor(t, "correctpass"),
		IsActive:     true,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	body := `{"email":"user@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		User struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.User.ID != 1 {
		t.Fatalf("expected user id 1, got %d", payload.User.ID)
	}
	if payload.CSRFToken == "" {
		t.Fatal("expected csrf token in login response")
	}

	var cookie *http.Cookie
	for _, c := range res.Result().Cookies() {
		if c.Name == sessionManager.CookieName() {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected one audit session, got %d", len(repo.sessions))
	}

	meReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	meReq.AddCookie(cookie)
	meRes := httptest.NewRecorder()
	router.ServeHTTP(meRes, meReq)
	if meRes.Code != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d", meRes.Code)
	}
	if !strings.Contains(meRes.Body.String(), "user@test.local") {
		t.Fatalf("expected current user in body, got %s", meRes.Body.String())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "user@test.local",
		PasswordHash: hashFor(t, "correctpass"),
		IsActive:     true,
	}}
	router, _ := newAuthRouter(t, repo)

	body := `{"email":"user@test.local","password":"wrongpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "user@test.local",
		PasswordHash: hashFor(t, "correctpass"),
		IsActive:     false,
	}}
	router, _ := newAuthRouter(t, repo)

	body := `{"email":"user@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "user@test.local",
		PasswordHash: hashFor(t, "correctpass"),
		IsActive:     true,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"user@test.local","password":"correctpass"}`))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRes := httptest.NewRecorder()
	router.ServeHTTP(loginRes, loginReq)
	if loginRes.Code != http.StatusOK {
		t.Fatalf("login failed: %d", loginRes.Code)
	}

	var cookie *http.Cookie
	for _, c := range loginRes.Result().Cookies() {
		if c.Name == sessionManager.CookieName() {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie from login")
	}

	logoutReq := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	logoutReq.AddCookie(cookie)
	logoutRes := httptest.NewRecorder()
	router.ServeHTTP(logoutRes, logoutReq)
	if logoutRes.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", logoutRes.Code)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("expected audit session removed, got %d", len(repo.sessions))
	}

	meReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	meReq.AddCookie(cookie)
	meRes := httptest.NewRecorder()
	router.ServeHTTP(meRes, meReq)
	if meRes.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", meRes.Code)
	}
}
