package handler_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/sakif/listmate/internal/auth"
)

func TestRegister(t *testing.T) {
	app := newTestApp(t, nil)

	t.Run("creates account and session", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":                "Ada@Example.com",
			"password":             strongPassword,
			"passwordConfirmation": strongPassword,
			"fullName":             "Ada Lovelace",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		c := sessionCookie(rr)
		require.NotNil(t, c)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, 3600, c.MaxAge)

		var s session
		require.NoError(t, jsonDecode(rr, &s))
		assert.Equal(t, "ada@example.com", s.User.Email)
		assert.Equal(t, "ada", s.User.MaskedEmail)
		assert.Equal(t, "Ada Lovelace", s.User.FullName)
		assert.Equal(t, 1, app.notifier.count())
	})

	t.Run("reports every failing field", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":                "",
			"username":             "ab",
			"password":             "weak",
			"passwordConfirmation": "other",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		res := decodeError(t, rr)
		assert.Equal(t, "validation_error", res.Error)
		for _, field := range []string{"email", "username", "password", "password_confirmation"} {
			assert.Contains(t, res.Fields, field)
		}
	})

	t.Run("taken email", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":                "ada@example.com",
			"password":             strongPassword,
			"passwordConfirmation": strongPassword,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, []string{"has already been taken"}, decodeError(t, rr).Fields["email"])
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/auth/register", "", `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "malformed_input", decodeError(t, rr).Error)
	})

	t.Run("unknown field", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/auth/register", "", `{"email":"x@example.com","admin":true}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLogin(t *testing.T) {
	app := newTestApp(t, nil)
	app.register(t, "grace@example.com", "grace")

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"valid", "grace@example.com", strongPassword, http.StatusOK},
		{"email case ignored", "  GRACE@example.com ", strongPassword, http.StatusOK},
		{"wrong password", "grace@example.com", "Wrong1234", http.StatusUnauthorized},
		{"unknown email", "nobody@example.com", strongPassword, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.do(t, http.MethodPost, "/auth/login", "", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.want == http.StatusOK {
				assert.NotNil(t, sessionCookie(rr))
			} else {
				assert.Equal(t, "invalid email or password", decodeError(t, rr).Message)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	app := newTestApp(t, nil)

	rr := app.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	c := sessionCookie(rr)
	require.NotNil(t, c)
	assert.Equal(t, "", c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestProviders(t *testing.T) {
	app := newTestApp(t, fakeGitHub(t, `{}`))

	type providersBody struct {
		Providers []string `json:"providers"`
		User      *struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}

	t.Run("anonymous", func(t *testing.T) {
		rr := app.do(t, http.MethodGet, "/auth/providers", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var body providersBody
		require.NoError(t, jsonDecode(rr, &body))
		assert.Equal(t, []string{"github"}, body.Providers)
		assert.Nil(t, body.User)
	})

	t.Run("signed in", func(t *testing.T) {
		s := app.register(t, "ada@example.com", "")

		rr := app.do(t, http.MethodGet, "/auth/providers", s.Token, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var body providersBody
		require.NoError(t, jsonDecode(rr, &body))
		require.NotNil(t, body.User)
		assert.Equal(t, s.User.ID, body.User.ID)
		assert.Equal(t, "ada@example.com", body.User.Email)
	})

	t.Run("invalid token is ignored", func(t *testing.T) {
		rr := app.do(t, http.MethodGet, "/auth/providers", "not-a-token", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var body providersBody
		require.NoError(t, jsonDecode(rr, &body))
		assert.Nil(t, body.User)
	})

	t.Run("deleted account is ignored", func(t *testing.T) {
		s := app.register(t, "gone@example.com", "")
		del := app.do(t, http.MethodDelete, "/api/me", s.Token, nil)
		require.Equal(t, http.StatusNoContent, del.Code, del.Body.String())

		rr := app.do(t, http.MethodGet, "/auth/providers", s.Token, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var body providersBody
		require.NoError(t, jsonDecode(rr, &body))
		assert.Nil(t, body.User)
	})
}

// fakeGitHub serves token and profile endpoints for one fixed profile.
func fakeGitHub(t *testing.T, profile string) auth.Providers {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profile))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := auth.NewProvider("github", "id", "secret", "http://localhost/auth/github/callback")
	require.NoError(t, err)
	p.Config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/authorize",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.UserInfoURL = srv.URL + "/user"
	p.EmailsURL = ""
	return auth.Providers{"github": p}
}

// oauthRoundTrip starts a login and follows it to the callback with the
// issued state.
func oauthRoundTrip(t *testing.T, app *testApp) *httptest.ResponseRecorder {
	t.Helper()
	login := app.do(t, http.MethodGet, "/auth/github/login", "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, login.Code)

	var state *http.Cookie
	for _, c := range login.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	require.NotNil(t, state)

	loc, err := url.Parse(login.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, state.Value, loc.Query().Get("state"))

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=c1&state="+state.Value, nil)
	req.AddCookie(state)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)
	return rr
}

func TestOAuthCallback(t *testing.T) {
	app := newTestApp(t, fakeGitHub(t, `{"id": 42, "login": "octo", "name": "Mona Lisa", "email": "mona@example.com"}`))

	first := oauthRoundTrip(t, app)
	assert.Equal(t, http.StatusSeeOther, first.Code)
	assert.Equal(t, "/?welcome=1", first.Header().Get("Location"))
	c := sessionCookie(first)
	require.NotNil(t, c)

	second := oauthRoundTrip(t, app)
	assert.Equal(t, "/", second.Header().Get("Location"))
	assert.Equal(t, 1, app.notifier.count(), "the second login links the existing account")

	me := app.do(t, http.MethodGet, "/api/me", c.Value, nil)
	require.Equal(t, http.StatusOK, me.Code)
	var profile struct {
		Provider  string `json:"provider"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	require.NoError(t, jsonDecode(me, &profile))
	assert.Equal(t, "github", profile.Provider)
	assert.Equal(t, "Mona", profile.FirstName)
	assert.Equal(t, "Lisa", profile.LastName)
}

func TestOAuthCallback_InvalidProfile(t *testing.T) {
	app := newTestApp(t, fakeGitHub(t, `{"id": 7, "login": "r2", "name": "R2 D2", "email": "r2@example.com"}`))

	rr := oauthRoundTrip(t, app)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?auth=invalid", rr.Header().Get("Location"))
	assert.Nil(t, sessionCookie(rr))
	assert.Equal(t, 0, app.notifier.count())
}

func TestOAuthCallback_BadState(t *testing.T) {
	app := newTestApp(t, fakeGitHub(t, `{"id": 1}`))

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=c1&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "real"})
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOAuthCallback_Denied(t *testing.T) {
	app := newTestApp(t, fakeGitHub(t, `{"id": 1}`))

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?error=access_denied&state=s", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s"})
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
}

func TestOAuthLogin_UnknownProvider(t *testing.T) {
	app := newTestApp(t, nil)

	rr := app.do(t, http.MethodGet, "/auth/myspace/login", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
