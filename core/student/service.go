// Package student manages student accounts and their school profile.
package student

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

var (
	ErrNotFound      = core.NewNotFoundError("student not found")
	ErrInvalidParent = errors.New("parent not found")
)

type (
	Repository interface {
		CreateProfile(ctx context.Context, p Profile) error
		UpdateProfile(ctx context.Context, p Profile) error
		GetStudent(ctx context.Context, id string) (Student, error)
		// FilterStudents returns the requested page and the total count of matches.
		// QueryFilter.Search does a case-insensitive match on one of name, email or phone.
		FilterStudents(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]Student, int, error)
	}

	Service struct {
		repo  Repository
		users *user.Service

		NowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository, users *user.Service) *Service {
	return &Service{repo: repo, users: users, NowFunc: time.Now}
}

func (svc *Service) checkParent(ctx context.Context, parentID string) error {
	if parentID == "" {
		return nil
	}
	parent, err := svc.users.GetByID(ctx, parentID)
	if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "getting parent")
	}
	if err != nil || parent.Role != session.RoleParent {
		return core.NewValidationError(ErrInvalidParent, core.FieldError{Field: "parent_id", Error: ErrInvalidParent.Error()})
	}
	return nil
}

// Create opens a student account. The account is removed again if the profile cannot be saved.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	usr, err := svc.users.Create(ctx, ns.newUser())
	if err != nil {
		return Student{}, errors.Wrap(err, "creating account")
	}

	now := svc.NowFunc().UTC()
	p := Profile{
		UserID:    usr.ID,
		Level:     ns.Level,
		ParentID:  null.NewString(ns.ParentID, ns.ParentID != ""),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = svc.repo.CreateProfile(ctx, p); err != nil {
		if dErr := svc.users.Delete(ctx, usr.ID); dErr != nil {
			return Student{}, errors.Wrapf(err, "creating profile (cleanup failed: %v)", dErr)
		}
		return Student{}, errors.Wrap(err, "creating profile")
	}
	return svc.repo.GetStudent(ctx, usr.ID)
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]Student, int, error) {
	filter.Clean()
	page.Clean()
	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if OrderingFields[ord.Field] {
			valid = append(valid, ord)
		}
	}
	if len(valid) == 0 {
		valid = append(valid, core.DBOrdering{Field: "created_at"})
	}
	return svc.repo.FilterStudents(ctx, filter, page, valid...)
}

// ChildrenOf lists the students linked to a parent.
func (svc *Service) ChildrenOf(ctx context.Context, parentID string) ([]Student, error) {
	students, _, err := svc.repo.FilterStudents(ctx, QueryFilter{ParentID: parentID}, core.Page{}, core.DBOrdering{Field: "name", Ascending: true})
	return students, err
}

func (svc *Service) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := svc.repo.GetStudent(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsChildOf reports whether a student is linked to a parent.
func (svc *Service) IsChildOf(ctx context.Context, studentID, parentID string) (bool, error) {
	std, err := svc.repo.GetStudent(ctx, studentID)
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return std.ParentID.Valid && std.ParentID.String == parentID, nil
}

// Account returns the user behind a student, used to validate updates.
func (svc *Service) Account(ctx context.Context, id string) (user.User, error) {
	if _, err := svc.repo.GetStudent(ctx, id); err != nil {
		return user.User{}, err
	}
	return svc.users.GetByID(ctx, id)
}

// Update applies a validated partial update to the account and the profile.
func (svc *Service) Update(ctx context.Context, usr user.User, us UpdateStudent) (Student, error) {
	if _, err := svc.users.Update(ctx, usr, us.updateUser()); err != nil {
		return Student{}, errors.Wrap(err, "updating account")
	}

	if us.Level != nil || us.ParentID != nil {
		std, err := svc.repo.GetStudent(ctx, usr.ID)
		if err != nil {
			return Student{}, err
		}
		p := Profile{UserID: std.ID, Level: std.Level, ParentID: std.ParentID, CreatedAt: std.CreatedAt}
		if us.Level != nil {
			p.Level = *us.Level
		}
		if us.ParentID != nil {
			p.ParentID = null.NewString(*us.ParentID, *us.ParentID != "")
		}
		p.UpdatedAt = svc.NowFunc().UTC()
		if err = svc.repo.UpdateProfile(ctx, p); err != nil {
			return Student{}, errors.Wrap(err, "updating profile")
		}
	}
	return svc.repo.GetStudent(ctx, usr.ID)
}

// Delete removes the student account; the profile goes with it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetStudent(ctx, id); err != nil {
		return err
	}
	return svc.users.Delete(ctx, id)
}
