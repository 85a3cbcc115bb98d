package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
)

var gradeColumns = []string{"id", "student_id", "subject", "date", "score", "max_score", "notes", "created_at", "updated_at"}

var gradeOrdering = map[string]string{"date": "date", "subject": "subject", "score": "score", "created_at": "created_at"}

type gradeRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	Subject   string    `db:"subject"`
	Date      time.Time `db:"date"`
	Score     float64   `db:"score"`
	MaxScore  float64   `db:"max_score"`
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r gradeRow) grade() grade.DailyGrade {
	g := grade.DailyGrade(r)
	g.Date = g.Date.UTC()
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return g
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, g grade.DailyGrade) error {
	b := psql.Insert("daily_grades").Columns(gradeColumns...).Values(
		g.ID, g.StudentID, g.Subject, g.Date.UTC(), g.Score, g.MaxScore, g.Notes, g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
	)
	_, err := exec(ctx, repo.db, b)
	return errors.Wrap(err, "inserting daily grade")
}

func (repo *gradeRepository) GetGrade(ctx context.Context, id string) (grade.DailyGrade, error) {
	if _, err := uuid.Parse(id); err != nil {
		return grade.DailyGrade{}, grade.ErrNotFound
	}
	var row gradeRow
	if err := get(ctx, repo.db, &row, psql.Select(gradeColumns...).From("daily_grades").Where(sq.Eq{"id": id})); err != nil {
		return grade.DailyGrade{}, trapNoRowsErr(err, grade.ErrNotFound, "getting daily grade")
	}
	return row.grade(), nil
}

func (repo *gradeRepository) FilterGrades(ctx context.Context, filter grade.QueryFilter, ordering ...core.DBOrdering) ([]grade.DailyGrade, error) {
	b := psql.Select(gradeColumns...).From("daily_grades")
	if filter.StudentID != "" {
		b = b.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.Subject != "" {
		b = b.Where(sq.ILike{"subject": filter.Subject})
	}
	if filter.From != nil {
		b = b.Where(sq.GtOrEq{"date": filter.From.UTC()})
	}
	if filter.To != nil {
		b = b.Where(sq.LtOrEq{"date": filter.To.UTC()})
	}
	b = orderBy(b, gradeOrdering, ordering)

	var rows []gradeRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "filtering daily grades")
	}
	grades := make([]grade.DailyGrade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.grade())
	}
	return grades, nil
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, g grade.DailyGrade) error {
	b := psql.Update("daily_grades").SetMap(map[string]interface{}{
		"subject":    g.Subject,
		"date":       g.Date.UTC(),
		"score":      g.Score,
		"max_score":  g.MaxScore,
		"notes":      g.Notes,
		"updated_at": g.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": g.ID})
	n, err := exec(ctx, repo.db, b)
	if err != nil {
		return errors.Wrap(err, "updating daily grade")
	}
	if n == 0 {
		return grade.ErrNotFound
	}
	return nil
}

func (repo *gradeRepository) DeleteGrade(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("daily_grades").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting daily grade")
	}
	if n == 0 {
		return grade.ErrNotFound
	}
	return nil
}
