package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/listmate/internal/auth"
	"github.com/sakif/listmate/internal/handler"
	"github.com/sakif/listmate/internal/model"
	sqliteRepo "github.com/sakif/listmate/internal/repository/sqlite"
	"github.com/sakif/listmate/internal/service"
)

const strongPassword = "Secret123"

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
}

func (n *recordingNotifier) NotifyAccountCreated(_ context.Context, u *model.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, u.ID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.created)
}

type testApp struct {
	router   http.Handler
	notifier *recordingNotifier
	tokens   *auth.TokenService
}

func newTestApp(t *testing.T, providers auth.Providers) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordService(bcrypt.MinCost)
	notifier := &recordingNotifier{}

	users := service.NewUserService(db.Users(), passwords, notifier, logger)
	authSvc := service.NewAuthService(db.Users(), users, tokens, passwords, logger)
	friends := service.NewFriendService(db.Users(), db.Friendships(), logger)
	lists := service.NewListService(db.Lists(), logger)

	if providers == nil {
		providers = auth.Providers{}
	}
	ah := handler.NewAuthHandler(authSvc, providers, handler.CookieConfig{TTL: time.Hour}, logger)
	uh := handler.NewUserHandler(users, false, logger)
	fh := handler.NewFriendHandler(friends, logger)
	lh := handler.NewListHandler(lists, logger)

	r := chi.NewRouter()
	r.With(auth.OptionalAuth(authSvc)).Get("/auth/providers", ah.HandleProviders)
	r.Get("/auth/{provider}/login", ah.HandleOAuthLogin)
	r.Get("/auth/{provider}/callback", ah.HandleOAuthCallback)
	r.Post("/auth/register", ah.HandleRegister)
	r.Post("/auth/login", ah.HandleLogin)
	r.Post("/auth/logout", ah.HandleLogout)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authSvc))
		r.Get("/api/me", uh.HandleMe)
		r.Patch("/api/me", uh.HandleUpdateMe)
		r.Delete("/api/me", uh.HandleDeleteMe)
		r.Put("/api/me/password", uh.HandleChangePassword)
		r.Get("/api/users/{id}", uh.HandleGetUser)
		r.Get("/api/users/{id}/display", uh.HandleDisplay)
		r.Get("/api/friends", fh.HandleList)
		r.Get("/api/friends/inverse", fh.HandleListInverse)
		r.Post("/api/friends", fh.HandleAdd)
		r.Get("/api/friends/{id}", fh.HandleCheck)
		r.Delete("/api/friends/{id}", fh.HandleRemove)
		r.Get("/api/lists", lh.HandleList)
		r.Post("/api/lists", lh.HandleCreate)
		r.Get("/api/lists/{id}", lh.HandleGet)
		r.Patch("/api/lists/{id}", lh.HandleRename)
		r.Delete("/api/lists/{id}", lh.HandleDelete)
	})

	return &testApp{router: r, notifier: notifier, tokens: tokens}
}

// do sends a request with an optional JSON body and bearer token.
func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader = http.NoBody
	if body != nil {
		switch b := body.(type) {
		case string:
			buf = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			buf = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		MaskedEmail string `json:"maskedEmail"`
		Username    string `json:"username"`
		FullName    string `json:"fullName"`
	} `json:"user"`
}

func (a *testApp) register(t *testing.T, email, username string) session {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":                email,
		"username":             username,
		"password":             strongPassword,
		"passwordConfirmation": strongPassword,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var s session
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&s))
	return s
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var res handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	return nil
}
