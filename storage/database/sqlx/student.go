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
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
)

var studentColumns = []string{
	"u.id", "u.name", "u.username", "u.email", "u.phone", "s.level", "s.parent_id", "u.is_active",
	"s.created_at", "s.updated_at",
}

var studentOrdering = map[string]string{
	"name": "u.name", "email": "u.email", "level": "s.level", "created_at": "s.created_at",
}

type studentRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Username  string      `db:"username"`
	Email     string      `db:"email"`
	Phone     string      `db:"phone"`
	Level     string      `db:"level"`
	ParentID  null.String `db:"parent_id"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:        r.ID,
		Name:      r.Name,
		Username:  r.Username,
		Email:     r.Email,
		Phone:     r.Phone,
		Level:     r.Level,
		ParentID:  r.ParentID,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) students() sq.SelectBuilder {
	return psql.Select(studentColumns...).From("students s").Join("users u ON u.id = s.user_id")
}

func (repo *studentRepository) filtered(b sq.SelectBuilder, filter student.QueryFilter) sq.SelectBuilder {
	if filter.Search != "" {
		b = b.Where(ilike(filter.Search, "u.name", "u.email", "u.phone"))
	}
	if filter.Level != "" {
		b = b.Where(sq.Eq{"s.level": filter.Level})
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"u.is_active": *filter.IsActive})
	}
	if filter.ParentID != "" {
		b = b.Where(sq.Eq{"s.parent_id": filter.ParentID})
	}
	return b
}

func (repo *studentRepository) CreateProfile(ctx context.Context, p student.Profile) error {
	b := psql.Insert("students").
		Columns("user_id", "level", "parent_id", "created_at", "updated_at").
		Values(p.UserID, p.Level, p.ParentID, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	_, err := exec(ctx, repo.db, b)
	return errors.Wrap(err, "inserting student")
}

func (repo *studentRepository) UpdateProfile(ctx context.Context, p student.Profile) error {
	b := psql.Update("students").
		Set("level", p.Level).
		Set("parent_id", p.ParentID).
		Set("updated_at", p.UpdatedAt.UTC()).
		Where(sq.Eq{"user_id": p.UserID})
	n, err := exec(ctx, repo.db, b)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	if err := get(ctx, repo.db, &row, repo.students().Where(sq.Eq{"s.user_id": id})); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return row.student(), nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]student.Student, int, error) {
	var total int
	count := repo.filtered(psql.Select("COUNT(*)").From("students s").Join("users u ON u.id = s.user_id"), filter)
	if err := get(ctx, repo.db, &total, count); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	b := orderBy(repo.filtered(repo.students(), filter), studentOrdering, ordering)
	if page.Size > 0 {
		b = b.Limit(page.Limit()).Offset(page.Offset())
	}
	var rows []studentRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, 0, errors.Wrap(err, "filtering students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, total, nil
}
