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
	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
)

var examColumns = []string{
	"id", "title", "description", "level", "duration", "questions", "is_active", "created_by", "created_at", "updated_at",
}

var examOrdering = map[string]string{"title": "title", "level": "level", "created_at": "created_at"}

var resultColumns = []string{
	"id", "exam_id", "exam_title", "student_id", "student_name", "student_email", "answers",
	"obtained_score", "total_score", "percentage", "items", "submitted_at",
}

type examRow struct {
	ID          string                      `db:"id"`
	Title       string                      `db:"title"`
	Description string                      `db:"description"`
	Level       string                      `db:"level"`
	Duration    int                         `db:"duration"`
	Questions   jsonColumn[[]exam.Question] `db:"questions"`
	IsActive    bool                        `db:"is_active"`
	CreatedBy   null.String                 `db:"created_by"`
	CreatedAt   time.Time                   `db:"created_at"`
	UpdatedAt   time.Time                   `db:"updated_at"`
}

func (r examRow) exam() exam.Exam {
	e := exam.Exam{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Level:       r.Level,
		Duration:    r.Duration,
		Questions:   r.Questions.V,
		IsActive:    r.IsActive,
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if e.Questions == nil {
		e.Questions = []exam.Question{}
	}
	return e
}

type resultRow struct {
	ID            string                       `db:"id"`
	ExamID        string                       `db:"exam_id"`
	ExamTitle     string                       `db:"exam_title"`
	StudentID     string                       `db:"student_id"`
	StudentName   string                       `db:"student_name"`
	StudentEmail  string                       `db:"student_email"`
	Answers       jsonColumn[[]grading.Answer] `db:"answers"`
	ObtainedScore float64                      `db:"obtained_score"`
	TotalScore    float64                      `db:"total_score"`
	Percentage    float64                      `db:"percentage"`
	Items         jsonColumn[[]grading.Item]   `db:"items"`
	SubmittedAt   time.Time                    `db:"submitted_at"`
}

// result derives the display fields from the stored percentage.
func (r resultRow) result() exam.Result {
	res := exam.Result{
		ID:            r.ID,
		ExamID:        r.ExamID,
		ExamTitle:     r.ExamTitle,
		StudentID:     r.StudentID,
		StudentName:   r.StudentName,
		StudentEmail:  r.StudentEmail,
		Answers:       r.Answers.V,
		ObtainedScore: r.ObtainedScore,
		TotalScore:    r.TotalScore,
		Percentage:    r.Percentage,
		Passed:        grading.Passed(r.Percentage),
		Tier:          grading.TierFor(r.Percentage),
		Items:         r.Items.V,
		SubmittedAt:   r.SubmittedAt.UTC(),
	}
	if res.Answers == nil {
		res.Answers = []grading.Answer{}
	}
	if res.Items == nil {
		res.Items = []grading.Item{}
	}
	return res
}

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) exam.Repository {
	return &examRepository{db: db}
}

func (repo *examRepository) CreateExam(ctx context.Context, e exam.Exam) error {
	b := psql.Insert("exams").Columns(examColumns...).Values(
		e.ID, e.Title, e.Description, e.Level, e.Duration, jsonColumn[[]exam.Question]{V: e.Questions}, e.IsActive,
		null.NewString(e.CreatedBy, e.CreatedBy != ""), e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	_, err := exec(ctx, repo.db, b)
	return errors.Wrap(err, "inserting exam")
}

func (repo *examRepository) GetExam(ctx context.Context, id string) (exam.Exam, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Exam{}, exam.ErrNotFound
	}
	var row examRow
	if err := get(ctx, repo.db, &row, psql.Select(examColumns...).From("exams").Where(sq.Eq{"id": id})); err != nil {
		return exam.Exam{}, trapNoRowsErr(err, exam.ErrNotFound, "getting exam")
	}
	return row.exam(), nil
}

func (repo *examRepository) FilterExams(ctx context.Context, filter exam.QueryFilter, ordering ...core.DBOrdering) ([]exam.Exam, error) {
	b := psql.Select(examColumns...).From("exams")
	if filter.Search != "" {
		b = b.Where(ilike(filter.Search, "title"))
	}
	if filter.Level != "" {
		b = b.Where(sq.Eq{"level": filter.Level})
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	b = orderBy(b, examOrdering, ordering)

	var rows []examRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "filtering exams")
	}
	exams := make([]exam.Exam, 0, len(rows))
	for _, r := range rows {
		exams = append(exams, r.exam())
	}
	return exams, nil
}

func (repo *examRepository) UpdateExam(ctx context.Context, e exam.Exam) error {
	b := psql.Update("exams").SetMap(map[string]interface{}{
		"title":       e.Title,
		"description": e.Description,
		"level":       e.Level,
		"duration":    e.Duration,
		"questions":   jsonColumn[[]exam.Question]{V: e.Questions},
		"is_active":   e.IsActive,
		"updated_at":  e.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": e.ID})
	n, err := exec(ctx, repo.db, b)
	if err != nil {
		return errors.Wrap(err, "updating exam")
	}
	if n == 0 {
		return exam.ErrNotFound
	}
	return nil
}

func (repo *examRepository) DeleteExam(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("exams").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting exam")
	}
	if n == 0 {
		return exam.ErrNotFound
	}
	return nil
}

func (repo *examRepository) CreateResult(ctx context.Context, r exam.Result) error {
	b := psql.Insert("exam_results").Columns(resultColumns...).Values(
		r.ID, r.ExamID, r.ExamTitle, r.StudentID, r.StudentName, r.StudentEmail,
		jsonColumn[[]grading.Answer]{V: r.Answers}, r.ObtainedScore, r.TotalScore, r.Percentage,
		jsonColumn[[]grading.Item]{V: r.Items}, r.SubmittedAt.UTC(),
	)
	if _, err := exec(ctx, repo.db, b); err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return exam.ErrAlreadySubmitted
		}
		return errors.Wrap(err, "inserting result")
	}
	return nil
}

func (repo *examRepository) FilterResults(ctx context.Context, filter exam.ResultFilter) ([]exam.Result, error) {
	b := psql.Select(resultColumns...).From("exam_results").OrderBy("submitted_at ASC", "id ASC")
	if filter.ExamID != "" {
		b = b.Where(sq.Eq{"exam_id": filter.ExamID})
	}
	if filter.StudentID != "" {
		b = b.Where(sq.Eq{"student_id": filter.StudentID})
	}
	var rows []resultRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "filtering results")
	}
	results := make([]exam.Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.result())
	}
	return results, nil
}
