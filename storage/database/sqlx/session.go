package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

var sessionColumns = []string{"id", "user_id", "username", "email", "role", "avatar_url", "is_verified", "created_at", "expires_at"}

type sessionRow struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	Username   string       `db:"username"`
	Email      string       `db:"email"`
	Role       session.Role `db:"role"`
	AvatarURL  null.String  `db:"avatar_url"`
	IsVerified bool         `db:"is_verified"`
	CreatedAt  time.Time    `db:"created_at"`
	ExpiresAt  time.Time    `db:"expires_at"`
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	b := psql.Insert("sessions").Columns(sessionColumns...).Values(
		s.ID, s.UserID, s.Username, s.Email, s.Role, null.NewString(s.AvatarURL, s.AvatarURL != ""),
		s.IsVerified, s.CreatedAt.UTC(), s.ExpiresAt.UTC(),
	)
	if _, err := exec(ctx, repo.db, b); err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return s, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return session.Session{}, session.ErrNotFound
	}
	var row sessionRow
	if err := get(ctx, repo.db, &row, psql.Select(sessionColumns...).From("sessions").Where(sq.Eq{"id": id})); err != nil {
		return session.Session{}, trapNoRowsErr(err, session.ErrNotFound, "getting session")
	}
	return session.Session{
		ID:         row.ID,
		UserID:     row.UserID,
		Username:   row.Username,
		Email:      row.Email,
		Role:       row.Role,
		AvatarURL:  row.AvatarURL.String,
		IsVerified: row.IsVerified,
		CreatedAt:  row.CreatedAt.UTC(),
		ExpiresAt:  row.ExpiresAt.UTC(),
	}, nil
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return session.ErrNotFound
	}
	n, err := exec(ctx, repo.db, psql.Delete("sessions").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (repo *sessionRepository) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	n, err := exec(ctx, repo.db, psql.Delete("sessions").Where(sq.Eq{"user_id": userID}))
	return int(n), errors.Wrap(err, "deleting user sessions")
}

func (repo *sessionRepository) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	b := psql.Delete("sessions").Where(sq.Or{
		sq.LtOrEq{"expires_at": now.UTC()},
		sq.Expr("NOT EXISTS (SELECT 1 FROM users u WHERE u.id = sessions.user_id AND u.is_active AND u.role = sessions.role)"),
	})
	n, err := exec(ctx, repo.db, b)
	if err != nil {
		return 0, errors.Wrap(err, "purging sessions")
	}
	return int(n), nil
}
