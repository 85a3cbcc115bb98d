package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

// Student is a user with the student role plus its school profile. ID is the user ID.
type Student struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Level     string      `json:"level"`
	ParentID  null.String `json:"parent_id"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

// Profile is the student specific part of a Student.
type Profile struct {
	UserID    string
	Level     string
	ParentID  null.String
	CreatedAt time.Time
	UpdatedAt time.Time
}

type NewStudent struct {
	Name            string `json:"name" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
	Level           string `json:"level" validate:"required,notblank"`
	ParentID        string `json:"parent_id" validate:"omitempty,uuid"`
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ns NewStudent) newUser() user.NewUser {
	return user.NewUser{
		Name:            ns.Name,
		Email:           ns.Email,
		Phone:           ns.Phone,
		Role:            session.RoleStudent,
		Password:        ns.Password,
		PasswordConfirm: ns.PasswordConfirm,
	}
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Level = core.CleanString(ns.Level)
	ns.ParentID = core.CleanString(ns.ParentID, true /* lower */)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	nu := ns.newUser()
	if err := nu.Validate(ctx, validate, svc.users); err != nil {
		return err
	}
	ns.Name, ns.Email, ns.Phone = nu.Name, nu.Email, nu.Phone
	return svc.checkParent(ctx, ns.ParentID)
}

// UpdateStudent is a partial update: nil fields are left untouched.
// An empty parent_id unlinks the parent.
type UpdateStudent struct {
	Name            *string `json:"name" validate:"omitempty,notblank"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Phone           *string `json:"phone" validate:"omitempty,phone"`
	Level           *string `json:"level" validate:"omitempty,notblank"`
	ParentID        *string `json:"parent_id" validate:"omitempty,uuid|len=0"`
	IsActive        *bool   `json:"is_active"`
	Password        string  `json:"password" validate:"omitempty,min=6"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (us UpdateStudent) updateUser() user.UpdateUser {
	return user.UpdateUser{
		Name:            us.Name,
		Email:           us.Email,
		Phone:           us.Phone,
		IsActive:        us.IsActive,
		Password:        us.Password,
		PasswordConfirm: us.PasswordConfirm,
	}
}

func (us *UpdateStudent) Validate(ctx context.Context, orig user.User, validate *validator.Validate, svc *Service) error {
	if us.Level != nil {
		*us.Level = core.CleanString(*us.Level)
	}
	if us.ParentID != nil {
		*us.ParentID = core.CleanString(*us.ParentID, true /* lower */)
	}
	if err := validate.Struct(us); err != nil {
		return err
	}
	uu := us.updateUser()
	if err := uu.Validate(ctx, orig, validate, svc.users); err != nil {
		return err
	}
	us.Name, us.Email, us.Phone = uu.Name, uu.Email, uu.Phone
	if us.ParentID != nil {
		return svc.checkParent(ctx, *us.ParentID)
	}
	return nil
}

type QueryFilter struct {
	Search   string `query:"search"`
	Level    string `query:"level"`
	IsActive *bool  `query:"is_active"`
	ParentID string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Level = core.CleanString(qf.Level)
}

// OrderingFields are the fields a listing may be ordered by.
var OrderingFields = map[string]bool{"name": true, "email": true, "level": true, "created_at": true}
