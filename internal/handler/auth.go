package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/auth"
	"github.com/sakif/listmate/internal/service"
)

const stateCookie = "oauth_state"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

// AuthHandler runs the OAuth login flow and password sign-up and sign-in.
//
//	GET  /auth/providers            enabled provider names, current user
//	GET  /auth/{provider}/login     redirect to the provider
//	GET  /auth/{provider}/callback  link or create the account, set session
//	POST /auth/register
//	POST /auth/login
//	POST /auth/logout
type AuthHandler struct {
	auth      *service.AuthService
	providers auth.Providers
	cookies   CookieConfig
	logger    *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	providers auth.Providers,
	cookies CookieConfig,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:      authService,
		providers: providers,
		cookies:   cookies,
		logger:    logger,
	}
}

type providersResponse struct {
	Providers []string     `json:"providers"`
	User      *profileView `json:"user,omitempty"`
}

// HandleProviders lists the enabled OAuth providers. Mounted behind
// OptionalAuth, it also returns the signed-in user's profile.
func (h *AuthHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	resp := providersResponse{Providers: h.providers.Names()}

	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		u, err := h.auth.GetUserByID(r.Context(), userID)
		switch {
		case err == nil:
			view := newProfileView(u)
			resp.User = &view
		case errors.Is(err, apperror.ErrNotFound):
			// account deleted after the token was issued
		default:
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleOAuthLogin stores a random state in a short-lived cookie and
// redirects to the provider. The callback must echo the same state.
func (h *AuthHandler) HandleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleOAuthCallback checks state, exchanges the code and signs the user
// in. Outcomes are reported to the browser with a redirect:
//
//	/?auth=denied   the user refused at the provider
//	/?auth=invalid  the provider profile failed account validation
//	/?welcome=1     a new account was created
//	/               an existing account signed in
func (h *AuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("oauth callback: state mismatch", slog.String("provider", provider.Name))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied",
			slog.String("provider", provider.Name),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	assertion, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed",
			slog.String("provider", provider.Name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, created, err := h.auth.LoginOAuth(r.Context(), *assertion)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			http.Redirect(w, r, "/?auth=invalid", http.StatusSeeOther)
			return
		}
		h.logger.Error("oauth callback: login failed",
			slog.String("provider", provider.Name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.setSession(w, result.Token)

	target := "/"
	if created {
		target = "/?welcome=1"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type sessionResponse struct {
	User  profileView `json:"user"`
	Token string      `json:"token"`
}

// HandleRegister creates a password account and signs it in.
//
// HTTP: POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSession(w, result.Token)
	writeJSON(w, http.StatusCreated, sessionResponse{User: newProfileView(result.User), Token: result.Token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.LoginPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSession(w, result.Token)
	writeJSON(w, http.StatusOK, sessionResponse{User: newProfileView(result.User), Token: result.Token})
}

// HandleLogout deletes the session cookie. The token itself stays valid
// until it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookies.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSession(w http.ResponseWriter) {
	clearSession(w, h.cookies.Secure)
}

func clearSession(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
