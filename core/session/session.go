// Package session holds the authenticated identity of a browser and decides what
// every protected route may render for it.
//
// Sessions are written by exactly one component: the auth flows (login, logout,
// OTP verification) own a *Store. Everything else gets a Reader.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

var ErrNotFound = core.NewNotFoundError("session not found")

// Session is the identity carried by an authenticated browser.
// Role is fixed for the lifetime of the session.
type Session struct {
	ID         string    `json:"-"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Identity is what the auth flows know about a user when opening a session.
type Identity struct {
	UserID     string
	Username   string
	Email      string
	Role       Role
	AvatarURL  string
	IsVerified bool
}

type (
	Reader interface {
		GetSession(ctx context.Context, id string) (Session, error)
	}

	Repository interface {
		Reader
		CreateSession(ctx context.Context, s Session) (Session, error)
		DeleteSession(ctx context.Context, id string) error
		DeleteUserSessions(ctx context.Context, userID string) (int, error)
		// PurgeSessions removes expired sessions and sessions whose user was deactivated or changed role.
		PurgeSessions(ctx context.Context, now time.Time) (int, error)
	}
)

// Store is the single writer of sessions.
type Store struct {
	repo    Repository
	ttl     time.Duration
	NowFunc func() time.Time // mockable
}

func NewStore(repo Repository, ttl time.Duration) *Store {
	return &Store{repo: repo, ttl: ttl, NowFunc: time.Now}
}

// Reader returns a read-only view for components that only consult sessions.
func (st *Store) Reader() Reader {
	return readOnly{repo: st.repo}
}

// Open creates a session for a freshly authenticated identity.
func (st *Store) Open(ctx context.Context, id Identity) (Session, error) {
	if !id.Role.Valid() {
		return Session{}, errors.Wrap(ErrInvalidRole, "opening session")
	}
	now := st.NowFunc().UTC()
	s := Session{
		ID:         uuid.New().String(),
		UserID:     id.UserID,
		Username:   id.Username,
		Email:      id.Email,
		Role:       id.Role,
		AvatarURL:  id.AvatarURL,
		IsVerified: id.IsVerified,
		CreatedAt:  now,
		ExpiresAt:  now.Add(st.ttl),
	}
	s, err := st.repo.CreateSession(ctx, s)
	if err != nil {
		return Session{}, errors.Wrap(err, "creating session")
	}
	return s, nil
}

// Close destroys a session. Closing an unknown session is not an error.
func (st *Store) Close(ctx context.Context, id string) error {
	if err := st.repo.DeleteSession(ctx, id); err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}

// CloseAll destroys every session of a user (password reset).
func (st *Store) CloseAll(ctx context.Context, userID string) error {
	if _, err := st.repo.DeleteUserSessions(ctx, userID); err != nil {
		return errors.Wrap(err, "deleting user sessions")
	}
	return nil
}

// Purge removes sessions that can no longer hydrate; run periodically.
func (st *Store) Purge(ctx context.Context) (int, error) {
	n, err := st.repo.PurgeSessions(ctx, st.NowFunc().UTC())
	return n, errors.Wrap(err, "purging sessions")
}

type readOnly struct {
	repo Repository
}

func (r readOnly) GetSession(ctx context.Context, id string) (Session, error) {
	return r.repo.GetSession(ctx, id)
}
