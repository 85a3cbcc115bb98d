package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(_ context.Context, s session.Session) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	repo.db.sessions[s.ID] = s
	return s, nil
}

func (repo *sessionRepository) GetSession(_ context.Context, id string) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.sessions[id]; ok {
		return s, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) DeleteSession(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(repo.db.sessions, id)
	return nil
}

func (repo *sessionRepository) DeleteUserSessions(_ context.Context, userID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := 0
	for id, s := range repo.db.sessions {
		if s.UserID == userID {
			delete(repo.db.sessions, id)
			n++
		}
	}
	return n, nil
}

func (repo *sessionRepository) PurgeSessions(_ context.Context, now time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := 0
	for id, s := range repo.db.sessions {
		usr, ok := repo.db.users[s.UserID]
		if s.Expired(now) || !ok || !usr.IsActive || usr.Role != s.Role {
			delete(repo.db.sessions, id)
			n++
		}
	}
	return n, nil
}
