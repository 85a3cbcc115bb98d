package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Role         session.Role `json:"role"`
	AvatarURL    null.String  `json:"avatar_url"`
	IsActive     bool         `json:"is_active"`
	IsVerified   bool         `json:"is_verified"`
	PasswordHash []byte       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"` // UTC
	UpdatedAt    time.Time    `json:"updated_at"` // UTC
	LastLogin    null.Time    `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Identity is what a session remembers of the user.
func (u User) Identity() session.Identity {
	return session.Identity{
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		AvatarURL:  u.AvatarURL.String,
		IsVerified: u.IsVerified,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string       `json:"name" validate:"required,notblank"`
	Username        string       `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string       `json:"email" validate:"required,email"`
	Phone           string       `json:"phone" validate:"omitempty,phone"`
	Role            session.Role `json:"role" validate:"role"`
	AvatarURL       string       `json:"avatar_url" validate:"omitempty,url"`
	Password        string       `json:"password" validate:"required,min=6"`
	PasswordConfirm string       `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.AvatarURL = core.CleanString(nu.AvatarURL)
}

// loginName is the username to store: users created without one log in with their email.
func (nu NewUser) loginName() string {
	if nu.Username == "" {
		return core.CleanString(nu.Email, true /* lower */)
	}
	return nu.Username
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Clean()
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nu.loginName(), nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Nil fields are left untouched.
type UpdateUser struct {
	Name            *string `json:"name" validate:"omitempty,notblank"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Phone           *string `json:"phone" validate:"omitempty,phone"`
	AvatarURL       *string `json:"avatar_url" validate:"omitempty,url"`
	IsActive        *bool   `json:"is_active"`
	Password        string  `json:"password" validate:"omitempty,min=6"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Clean() {
	cleanPtr := func(s *string, lower ...bool) {
		if s != nil {
			*s = core.CleanString(*s, lower...)
		}
	}
	cleanPtr(uu.Name)
	cleanPtr(uu.Email, true /* lower */)
	cleanPtr(uu.Phone)
	cleanPtr(uu.AvatarURL)
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc *Service) error {
	uu.Clean()
	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Email != nil && *uu.Email != origUsr.Email {
		return svc.checkUniqueness(ctx, "", *uu.Email, origUsr)
	}
	return nil
}

// apply copies the set fields onto usr.
func (uu UpdateUser) apply(usr *User) error {
	if uu.Name != nil {
		usr.Name = *uu.Name
	}
	if uu.Email != nil {
		usr.Email = *uu.Email
	}
	if uu.Phone != nil {
		usr.Phone = *uu.Phone
	}
	if uu.AvatarURL != nil {
		usr.AvatarURL = null.NewString(*uu.AvatarURL, *uu.AvatarURL != "")
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		return usr.SetPassword(uu.Password)
	}
	return nil
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=6"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search   string         `query:"search"`
	Roles    []session.Role `query:"-"` // bound from ?role= by the API
	IsActive *bool          `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OTP is a one-time verification code sent by email.
type OTP struct {
	UserID    string
	CodeHash  []byte
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (o OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
