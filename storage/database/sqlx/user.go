package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

var userColumns = []string{
	"id", "name", "username", "email", "phone", "role", "avatar_url", "is_active", "is_verified",
	"password_hash", "created_at", "updated_at", "last_login",
}

var userOrdering = map[string]string{
	"name": "name", "username": "username", "email": "email", "role": "role",
	"created_at": "created_at", "last_login": "last_login",
}

type userRow struct {
	ID           string       `db:"id"`
	Name         string       `db:"name"`
	Username     string       `db:"username"`
	Email        string       `db:"email"`
	Phone        string       `db:"phone"`
	Role         session.Role `db:"role"`
	AvatarURL    null.String  `db:"avatar_url"`
	IsActive     bool         `db:"is_active"`
	IsVerified   bool         `db:"is_verified"`
	PasswordHash []byte       `db:"password_hash"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastLogin    null.Time    `db:"last_login"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		Phone:        r.Phone,
		Role:         r.Role,
		AvatarURL:    r.AvatarURL,
		IsActive:     r.IsActive,
		IsVerified:   r.IsVerified,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(r.LastLogin.Time.UTC(), r.LastLogin.Valid),
	}
}

type otpRow struct {
	UserID    string    `db:"user_id"`
	CodeHash  []byte    `db:"code_hash"`
	Attempts  int       `db:"attempts"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	or := sq.Or{}
	if username != "" {
		or = append(or, sq.Eq{"username": username})
	}
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	if len(or) == 0 {
		return nil
	}
	b := psql.Select("username", "email").From("users").Where(or)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		b = b.Where(sq.NotEq{"id": ids})
	}

	var found []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := selectAll(ctx, repo.db, &found, b); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, f := range found {
		if email != "" && f.Email == email {
			return user.ErrEmailExists
		}
		if username != "" && f.Username == username {
			return user.ErrUsernameExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	b := psql.Insert("users").Columns(userColumns...).Values(
		usr.ID, usr.Name, usr.Username, usr.Email, usr.Phone, usr.Role, usr.AvatarURL, usr.IsActive, usr.IsVerified,
		usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin,
	)
	if _, err := exec(ctx, repo.db, b); err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			if constraint == "users_username_key" {
				return user.User{}, user.ErrUsernameExists
			}
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, pred interface{}, msg string) (user.User, error) {
	var row userRow
	if err := get(ctx, repo.db, &row, psql.Select(userColumns...).From("users").Where(pred)); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, msg)
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(ctx, sq.Eq{"id": id}, "getting user by ID")
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, sq.Eq{"email": email}, "getting user by email")
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, login string) (user.User, error) {
	return repo.getUser(ctx, sq.Or{sq.Eq{"username": login}, sq.Eq{"email": login}}, "getting user by username or email")
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	b := psql.Select(userColumns...).From("users")
	if filter.Search != "" {
		b = b.Where(ilike(filter.Search, "name", "username", "email"))
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, r := range filter.Roles {
			roles = append(roles, r.String())
		}
		b = b.Where(sq.Eq{"role": roles})
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	b = orderBy(b, userOrdering, ordering)

	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	b := psql.Update("users").SetMap(map[string]interface{}{
		"name":          usr.Name,
		"username":      usr.Username,
		"email":         usr.Email,
		"phone":         usr.Phone,
		"role":          usr.Role,
		"avatar_url":    usr.AvatarURL,
		"is_active":     usr.IsActive,
		"is_verified":   usr.IsVerified,
		"password_hash": usr.PasswordHash,
		"updated_at":    usr.UpdatedAt.UTC(),
		"last_login":    usr.LastLogin,
	}).Where(sq.Eq{"id": usr.ID})

	n, err := exec(ctx, repo.db, b)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SaveOTP(ctx context.Context, otp user.OTP) error {
	b := psql.Insert("otps").
		Columns("user_id", "code_hash", "attempts", "expires_at", "created_at").
		Values(otp.UserID, otp.CodeHash, otp.Attempts, otp.ExpiresAt.UTC(), otp.CreatedAt.UTC()).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET " +
			"code_hash = EXCLUDED.code_hash, attempts = EXCLUDED.attempts, " +
			"expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at")
	_, err := exec(ctx, repo.db, b)
	return errors.Wrap(err, "saving OTP")
}

func (repo *userRepository) GetOTP(ctx context.Context, userID string) (user.OTP, error) {
	var row otpRow
	b := psql.Select("user_id", "code_hash", "attempts", "expires_at", "created_at").From("otps").Where(sq.Eq{"user_id": userID})
	if err := get(ctx, repo.db, &row, b); err != nil {
		return user.OTP{}, trapNoRowsErr(err, user.ErrOTPNotFound, "getting OTP")
	}
	return user.OTP{
		UserID:    row.UserID,
		CodeHash:  row.CodeHash,
		Attempts:  row.Attempts,
		ExpiresAt: row.ExpiresAt.UTC(),
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}

func (repo *userRepository) DeleteOTP(ctx context.Context, userID string) error {
	_, err := exec(ctx, repo.db, psql.Delete("otps").Where(sq.Eq{"user_id": userID}))
	return errors.Wrap(err, "deleting OTP")
}

func (repo *userRepository) PurgeExpiredOTPs(ctx context.Context, now time.Time) (int, error) {
	n, err := exec(ctx, repo.db, psql.Delete("otps").Where(sq.LtOrEq{"expires_at": now.UTC()}))
	if err != nil {
		return 0, errors.Wrap(err, "purging OTPs")
	}
	return int(n), nil
}
