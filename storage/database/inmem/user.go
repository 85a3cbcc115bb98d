package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

var userOrdering = map[string]comparator[user.User]{
	"name":       func(a, b user.User) int { return compare(a.Name, b.Name) },
	"username":   func(a, b user.User) int { return compare(a.Username, b.Username) },
	"email":      func(a, b user.User) int { return compare(a.Email, b.Email) },
	"role":       func(a, b user.User) int { return compare(a.Role.String(), b.Role.String()) },
	"created_at": func(a, b user.User) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	"last_login": func(a, b user.User) int { return compareTime(a.LastLogin.Time, b.LastLogin.Time) },
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if isExcluded(usr, excludedUsers) {
			continue
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if u.Username == usr.Username {
			return user.User{}, user.ErrUsernameExists
		}
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) find(match func(user.User) bool) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if match(usr) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return repo.find(func(u user.User) bool { return u.Email == email })
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, login string) (user.User, error) {
	return repo.find(func(u user.User) bool { return u.Username == login || u.Email == login })
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if filter.Search != "" && !matchesAny(filter.Search, usr.Name, usr.Username, usr.Email) {
			continue
		}
		if len(filter.Roles) > 0 && !hasRole(filter, usr) {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, usr)
	}
	sortBy(users, userOrdering, func(u user.User) string { return u.ID }, ordering)
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	for _, u := range repo.db.users {
		if u.ID != usr.ID && u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	repo.db.deleteUser(id)
	return nil
}

func (repo *userRepository) SaveOTP(_ context.Context, otp user.OTP) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.otps[otp.UserID] = otp
	return nil
}

func (repo *userRepository) GetOTP(_ context.Context, userID string) (user.OTP, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if otp, ok := repo.db.otps[userID]; ok {
		return otp, nil
	}
	return user.OTP{}, user.ErrOTPNotFound
}

func (repo *userRepository) DeleteOTP(_ context.Context, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.otps, userID)
	return nil
}

func (repo *userRepository) PurgeExpiredOTPs(_ context.Context, now time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := 0
	for id, otp := range repo.db.otps {
		if otp.Expired(now) {
			delete(repo.db.otps, id)
			n++
		}
	}
	return n, nil
}

func hasRole(filter user.QueryFilter, usr user.User) bool {
	for _, r := range filter.Roles {
		if r == usr.Role {
			return true
		}
	}
	return false
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, u := range excludedUsers {
		if u.ID == usr.ID {
			return true
		}
	}
	return false
}
