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
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
)

var homeworkColumns = []string{
	"id", "title", "description", "level", "due_date", "max_score", "questions", "attachments",
	"is_active", "created_by", "created_at", "updated_at",
}

var homeworkOrdering = map[string]string{
	"title": "title", "due_date": "due_date", "level": "level", "created_at": "created_at",
}

var submissionColumns = []string{
	"id", "homework_id", "student_id", "answers", "content", "submitted_at", "obtained_score", "total_score",
	"percentage", "tier", "items", "status", "feedback", "graded_at",
}

type homeworkRow struct {
	ID          string                           `db:"id"`
	Title       string                           `db:"title"`
	Description string                           `db:"description"`
	Level       string                           `db:"level"`
	DueDate     time.Time                        `db:"due_date"`
	MaxScore    float64                          `db:"max_score"`
	Questions   jsonColumn[[]homework.Question]  `db:"questions"`
	Attachments jsonColumn[[]homeworkAttachment] `db:"attachments"`
	IsActive    bool                             `db:"is_active"`
	CreatedBy   null.String                      `db:"created_by"`
	CreatedAt   time.Time                        `db:"created_at"`
	UpdatedAt   time.Time                        `db:"updated_at"`
}

// homeworkAttachment is the stored form of homework.Attachment, whose key is hidden from JSON.
type homeworkAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Key         string `json:"key"`
}

func (r homeworkRow) homework() homework.Homework {
	hw := homework.Homework{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Level:       r.Level,
		DueDate:     r.DueDate.UTC(),
		MaxScore:    r.MaxScore,
		Questions:   r.Questions.V,
		Attachments: make([]homework.Attachment, 0, len(r.Attachments.V)),
		IsActive:    r.IsActive,
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if hw.Questions == nil {
		hw.Questions = []homework.Question{}
	}
	for _, a := range r.Attachments.V {
		hw.Attachments = append(hw.Attachments, homework.Attachment(a))
	}
	return hw
}

func homeworkValues(hw homework.Homework) map[string]interface{} {
	atts := make([]homeworkAttachment, 0, len(hw.Attachments))
	for _, a := range hw.Attachments {
		atts = append(atts, homeworkAttachment(a))
	}
	return map[string]interface{}{
		"id":          hw.ID,
		"title":       hw.Title,
		"description": hw.Description,
		"level":       hw.Level,
		"due_date":    hw.DueDate.UTC(),
		"max_score":   hw.MaxScore,
		"questions":   jsonColumn[[]homework.Question]{V: hw.Questions},
		"attachments": jsonColumn[[]homeworkAttachment]{V: atts},
		"is_active":   hw.IsActive,
		"created_by":  null.NewString(hw.CreatedBy, hw.CreatedBy != ""),
		"created_at":  hw.CreatedAt.UTC(),
		"updated_at":  hw.UpdatedAt.UTC(),
	}
}

type submissionRow struct {
	ID            string                       `db:"id"`
	HomeworkID    string                       `db:"homework_id"`
	StudentID     string                       `db:"student_id"`
	Answers       jsonColumn[[]grading.Answer] `db:"answers"`
	Content       string                       `db:"content"`
	SubmittedAt   time.Time                    `db:"submitted_at"`
	ObtainedScore float64                      `db:"obtained_score"`
	TotalScore    float64                      `db:"total_score"`
	Percentage    float64                      `db:"percentage"`
	Tier          string                       `db:"tier"`
	Items         jsonColumn[[]grading.Item]   `db:"items"`
	Status        string                       `db:"status"`
	Feedback      string                       `db:"feedback"`
	GradedAt      null.Time                    `db:"graded_at"`
}

func (r submissionRow) submission() homework.Submission {
	sub := homework.Submission{
		ID:            r.ID,
		HomeworkID:    r.HomeworkID,
		StudentID:     r.StudentID,
		Answers:       r.Answers.V,
		Content:       r.Content,
		SubmittedAt:   r.SubmittedAt.UTC(),
		ObtainedScore: r.ObtainedScore,
		TotalScore:    r.TotalScore,
		Percentage:    r.Percentage,
		Tier:          grading.Tier(r.Tier),
		Items:         r.Items.V,
		Status:        homework.Status(r.Status),
		Feedback:      r.Feedback,
		GradedAt:      null.NewTime(r.GradedAt.Time.UTC(), r.GradedAt.Valid),
	}
	if sub.Answers == nil {
		sub.Answers = []grading.Answer{}
	}
	if sub.Items == nil {
		sub.Items = []grading.Item{}
	}
	return sub
}

type homeworkRepository struct {
	db *sqlx.DB
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db *sqlx.DB) homework.Repository {
	return &homeworkRepository{db: db}
}

func (repo *homeworkRepository) CreateHomework(ctx context.Context, hw homework.Homework) error {
	_, err := exec(ctx, repo.db, psql.Insert("homework").SetMap(homeworkValues(hw)))
	return errors.Wrap(err, "inserting homework")
}

func (repo *homeworkRepository) GetHomework(ctx context.Context, id string) (homework.Homework, error) {
	if _, err := uuid.Parse(id); err != nil {
		return homework.Homework{}, homework.ErrNotFound
	}
	var row homeworkRow
	if err := get(ctx, repo.db, &row, psql.Select(homeworkColumns...).From("homework").Where(sq.Eq{"id": id})); err != nil {
		return homework.Homework{}, trapNoRowsErr(err, homework.ErrNotFound, "getting homework")
	}
	return row.homework(), nil
}

func (repo *homeworkRepository) FilterHomework(ctx context.Context, filter homework.QueryFilter, ordering ...core.DBOrdering) ([]homework.Homework, error) {
	b := psql.Select(homeworkColumns...).From("homework")
	if filter.Search != "" {
		b = b.Where(ilike(filter.Search, "title"))
	}
	if filter.Level != "" {
		b = b.Where(sq.Eq{"level": filter.Level})
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	b = orderBy(b, homeworkOrdering, ordering)

	var rows []homeworkRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "filtering homework")
	}
	hws := make([]homework.Homework, 0, len(rows))
	for _, r := range rows {
		hws = append(hws, r.homework())
	}
	return hws, nil
}

func (repo *homeworkRepository) UpdateHomework(ctx context.Context, hw homework.Homework) error {
	vals := homeworkValues(hw)
	delete(vals, "id")
	delete(vals, "created_at")
	delete(vals, "created_by")
	n, err := exec(ctx, repo.db, psql.Update("homework").SetMap(vals).Where(sq.Eq{"id": hw.ID}))
	if err != nil {
		return errors.Wrap(err, "updating homework")
	}
	if n == 0 {
		return homework.ErrNotFound
	}
	return nil
}

func (repo *homeworkRepository) DeleteHomework(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("homework").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	if n == 0 {
		return homework.ErrNotFound
	}
	return nil
}

func (repo *homeworkRepository) SaveSubmission(ctx context.Context, sub homework.Submission) error {
	b := psql.Insert("homework_submissions").Columns(submissionColumns...).Values(
		sub.ID, sub.HomeworkID, sub.StudentID, jsonColumn[[]grading.Answer]{V: sub.Answers}, sub.Content,
		sub.SubmittedAt.UTC(), sub.ObtainedScore, sub.TotalScore, sub.Percentage, string(sub.Tier),
		jsonColumn[[]grading.Item]{V: sub.Items}, string(sub.Status), sub.Feedback, sub.GradedAt,
	).Suffix("ON CONFLICT (homework_id, student_id) DO UPDATE SET " +
		"answers = EXCLUDED.answers, content = EXCLUDED.content, submitted_at = EXCLUDED.submitted_at, " +
		"obtained_score = EXCLUDED.obtained_score, total_score = EXCLUDED.total_score, " +
		"percentage = EXCLUDED.percentage, tier = EXCLUDED.tier, items = EXCLUDED.items, " +
		"status = EXCLUDED.status, feedback = EXCLUDED.feedback, graded_at = EXCLUDED.graded_at")
	_, err := exec(ctx, repo.db, b)
	return errors.Wrap(err, "saving submission")
}

func (repo *homeworkRepository) getSubmission(ctx context.Context, pred sq.Eq) (homework.Submission, error) {
	var row submissionRow
	if err := get(ctx, repo.db, &row, psql.Select(submissionColumns...).From("homework_submissions").Where(pred)); err != nil {
		return homework.Submission{}, trapNoRowsErr(err, homework.ErrSubmissionNotFound, "getting submission")
	}
	return row.submission(), nil
}

func (repo *homeworkRepository) GetSubmission(ctx context.Context, id string) (homework.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return homework.Submission{}, homework.ErrSubmissionNotFound
	}
	return repo.getSubmission(ctx, sq.Eq{"id": id})
}

func (repo *homeworkRepository) GetStudentSubmission(ctx context.Context, homeworkID, studentID string) (homework.Submission, error) {
	return repo.getSubmission(ctx, sq.Eq{"homework_id": homeworkID, "student_id": studentID})
}

func (repo *homeworkRepository) FilterSubmissions(ctx context.Context, filter homework.SubmissionFilter) ([]homework.Submission, error) {
	b := psql.Select(submissionColumns...).From("homework_submissions").OrderBy("submitted_at ASC")
	if filter.HomeworkID != "" {
		b = b.Where(sq.Eq{"homework_id": filter.HomeworkID})
	}
	if filter.StudentID != "" {
		b = b.Where(sq.Eq{"student_id": filter.StudentID})
	}
	var rows []submissionRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "filtering submissions")
	}
	subs := make([]homework.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.submission())
	}
	return subs, nil
}
