package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/auth"
	"github.com/sakif/listmate/internal/model"
	"github.com/sakif/listmate/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory UserRepository enforcing the same unique
// columns as the SQLite store.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int

	// beforeCreate runs inside Create before the uniqueness checks.
	beforeCreate func()
	findErr      error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) insert(u *model.User) error {
	for _, other := range f.users {
		switch {
		case other.Email == u.Email:
			return apperror.ConstraintViolation("email", "has already been taken")
		case u.Username != "" && other.Username == u.Username:
			return apperror.ConstraintViolation("username", "has already been taken")
		case u.Provider != "" && other.Provider == u.Provider && other.UID == u.UID:
			return apperror.ConstraintViolation("uid", "has already been taken")
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if f.beforeCreate != nil {
		hook := f.beforeCreate
		f.beforeCreate = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(u)
}

func (f *fakeUserRepo) find(match func(*model.User) bool, key string) (*model.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeUserRepo) FindByProviderUID(_ context.Context, provider, uid string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Provider == provider && u.UID == uid }, provider+"/"+uid)
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username }, username)
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email }, email)
}

func (f *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.ID]
	if !ok {
		return apperror.NotFound("user", u.ID)
	}
	for _, other := range f.users {
		if other.ID != u.ID && u.Username != "" && other.Username == u.Username {
			return apperror.ConstraintViolation("username", "has already been taken")
		}
	}
	stored.Username, stored.FirstName, stored.LastName = u.Username, u.FirstName, u.LastName
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	stored.PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// fakeFriendshipRepo stores edges and hides those whose far end is no
// longer in users.
type fakeFriendshipRepo struct {
	users *fakeUserRepo
	edges []model.Friendship
}

func (f *fakeFriendshipRepo) alive(id string) bool {
	_, err := f.users.GetByID(context.Background(), id)
	return err == nil
}

func (f *fakeFriendshipRepo) Create(_ context.Context, fr *model.Friendship) error {
	for _, e := range f.edges {
		if e.OwnerID == fr.OwnerID && e.FriendID == fr.FriendID {
			return apperror.ConstraintViolation("friend_id", "has already been taken")
		}
	}
	fr.ID = fmt.Sprintf("edge-%d", len(f.edges)+1)
	fr.CreatedAt = time.Now()
	f.edges = append(f.edges, *fr)
	return nil
}

func (f *fakeFriendshipRepo) Delete(_ context.Context, ownerID, friendID string) error {
	for i, e := range f.edges {
		if e.OwnerID == ownerID && e.FriendID == friendID {
			f.edges = append(f.edges[:i], f.edges[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("friendship", ownerID+"->"+friendID)
}

func (f *fakeFriendshipRepo) Exists(_ context.Context, ownerID, friendID string) (bool, error) {
	for _, e := range f.edges {
		if e.OwnerID == ownerID && e.FriendID == friendID && f.alive(friendID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFriendshipRepo) ListFriends(ctx context.Context, ownerID string, _ repository.ListOptions) ([]model.User, error) {
	var out []model.User
	for _, e := range f.edges {
		if e.OwnerID == ownerID {
			if u, err := f.users.GetByID(ctx, e.FriendID); err == nil {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

func (f *fakeFriendshipRepo) ListInverseFriends(ctx context.Context, friendID string, _ repository.ListOptions) ([]model.User, error) {
	var out []model.User
	for _, e := range f.edges {
		if e.FriendID == friendID {
			if u, err := f.users.GetByID(ctx, e.OwnerID); err == nil {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

// fakeNotifier counts account-created events.
type fakeNotifier struct {
	mu      sync.Mutex
	created []string
}

func (n *fakeNotifier) NotifyAccountCreated(_ context.Context, u *model.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, u.ID)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.created)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testServices struct {
	repo     *fakeUserRepo
	notifier *fakeNotifier
	users    *UserService
	auth     *AuthService
	tokens   *auth.TokenService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordService(bcrypt.MinCost)

	repo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	users := NewUserService(repo, passwords, notifier, testLogger())

	return &testServices{
		repo:     repo,
		notifier: notifier,
		users:    users,
		auth:     NewAuthService(repo, users, tokens, passwords, testLogger()),
		tokens:   tokens,
	}
}
