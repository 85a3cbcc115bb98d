package inmemdb

import (
	"context"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
)

var studentOrdering = map[string]comparator[student.Student]{
	"name":       func(a, b student.Student) int { return compare(a.Name, b.Name) },
	"email":      func(a, b student.Student) int { return compare(a.Email, b.Email) },
	"level":      func(a, b student.Student) int { return compare(a.Level, b.Level) },
	"created_at": func(a, b student.Student) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

// join builds a Student from a profile and its account. Callers hold the lock.
func (repo *studentRepository) join(p student.Profile) (student.Student, bool) {
	usr, ok := repo.db.users[p.UserID]
	if !ok {
		return student.Student{}, false
	}
	return student.Student{
		ID:        usr.ID,
		Name:      usr.Name,
		Username:  usr.Username,
		Email:     usr.Email,
		Phone:     usr.Phone,
		Level:     p.Level,
		ParentID:  p.ParentID,
		IsActive:  usr.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, true
}

func (repo *studentRepository) CreateProfile(_ context.Context, p student.Profile) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.students[p.UserID] = p
	return nil
}

func (repo *studentRepository) UpdateProfile(_ context.Context, p student.Profile) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[p.UserID]; !ok {
		return student.ErrNotFound
	}
	repo.db.students[p.UserID] = p
	return nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	p, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	std, ok := repo.join(p)
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

func (repo *studentRepository) FilterStudents(_ context.Context, filter student.QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]student.Student, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0)
	for _, p := range repo.db.students {
		std, ok := repo.join(p)
		if !ok {
			continue
		}
		if filter.Search != "" && !matchesAny(filter.Search, std.Name, std.Email, std.Phone) {
			continue
		}
		if filter.Level != "" && std.Level != filter.Level {
			continue
		}
		if filter.IsActive != nil && std.IsActive != *filter.IsActive {
			continue
		}
		if filter.ParentID != "" && std.ParentID.String != filter.ParentID {
			continue
		}
		students = append(students, std)
	}
	sortBy(students, studentOrdering, func(s student.Student) string { return s.ID }, ordering)

	start, end := page.Slice(len(students))
	return students[start:end], len(students), nil
}
