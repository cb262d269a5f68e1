package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/auth"
	"github.com/sakif/listmate/internal/service"
)

// UserHandler serves the signed-in user's own account and the public
// view of other users. Every route sits behind RequireAuth.
type UserHandler struct {
	users         *service.UserService
	secureCookies bool
	logger        *slog.Logger
}

func NewUserHandler(users *service.UserService, secureCookies bool, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, secureCookies: secureCookies, logger: logger}
}

// currentUserID reads the ID set by RequireAuth. Missing means the route
// was mounted without the middleware.
func currentUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
	}
	return id, ok
}

// HTTP: GET /api/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(u))
}

// HTTP: PATCH /api/me
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req service.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(u))
}

type changePasswordRequest struct {
	CurrentPassword      string `json:"currentPassword"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// HTTP: PUT /api/me/password
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.Password, req.PasswordConfirmation); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteMe removes the account along with its lists and the
// friendships it owns, then ends the session.
//
// HTTP: DELETE /api/me
func (h *UserHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	clearSession(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPublicView(u))
}

// HandleDisplay resolves how a user is shown. ?as=username shows the
// username when set; anything else shows the masked email.
//
// HTTP: GET /api/users/{id}/display?as=username
func (h *UserHandler) HandleDisplay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name, err := h.users.DisplayUserAs(r.Context(), id, r.URL.Query().Get("as"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "displayName": name})
}
