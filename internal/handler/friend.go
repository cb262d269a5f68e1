package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/listmate/internal/service"
)

// FriendHandler exposes the signed-in user's outgoing friendship edges.
// Adding someone never adds the reverse edge.
type FriendHandler struct {
	friends *service.FriendService
	logger  *slog.Logger
}

func NewFriendHandler(friends *service.FriendService, logger *slog.Logger) *FriendHandler {
	return &FriendHandler{friends: friends, logger: logger}
}

type addFriendRequest struct {
	FriendID string `json:"friendId"`
}

type friendshipView struct {
	OwnerID   string    `json:"ownerId"`
	FriendID  string    `json:"friendId"`
	CreatedAt time.Time `json:"createdAt"`
}

// HTTP: POST /api/friends
func (h *FriendHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req addFriendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	f, err := h.friends.AddFriend(r.Context(), userID, req.FriendID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, friendshipView{OwnerID: f.OwnerID, FriendID: f.FriendID, CreatedAt: f.CreatedAt})
}

// HTTP: DELETE /api/friends/{id}
func (h *FriendHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.friends.Unfriend(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/friends/{id}
func (h *FriendHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	friend, err := h.friends.IsFriend(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"friend": friend})
}

// HTTP: GET /api/friends?limit=&offset=
func (h *FriendHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, err)
		return
	}

	friends, err := h.friends.ListFriends(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPublicViews(friends))
}

// HandleListInverse returns the users who have added the caller.
//
// HTTP: GET /api/friends/inverse?limit=&offset=
func (h *FriendHandler) HandleListInverse(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, err)
		return
	}

	users, err := h.friends.ListInverseFriends(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPublicViews(users))
}
