// Package exam manages exams, their submission by students and the aggregate results.
package exam

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("exam not found")
	ErrResultNotFound   = core.NewNotFoundError("result not found")
	ErrAlreadySubmitted = errors.New("exam already submitted")
	ErrUnavailable      = errors.New("exam is not available")
	ErrQuestionsLocked  = errors.New("questions cannot change once the exam has results")
)

type (
	Repository interface {
		CreateExam(ctx context.Context, e Exam) error
		GetExam(ctx context.Context, id string) (Exam, error)
		// FilterExams applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Exam.Title.
		FilterExams(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Exam, error)
		UpdateExam(ctx context.Context, e Exam) error
		// DeleteExam removes the exam with its results.
		DeleteExam(ctx context.Context, id string) error

		// CreateResult returns ErrAlreadySubmitted if the student already has a result for the exam.
		CreateResult(ctx context.Context, r Result) error
		// FilterResults returns results ordered by submission date.
		FilterResults(ctx context.Context, filter ResultFilter) ([]Result, error)
	}

	Service struct {
		repo Repository

		NowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, NowFunc: time.Now}
}

func (svc *Service) Create(ctx context.Context, ne NewExam, createdBy string) (Exam, error) {
	now := svc.NowFunc().UTC()
	e := Exam{
		ID:          uuid.New().String(),
		Title:       ne.Title,
		Description: ne.Description,
		Level:       ne.Level,
		Duration:    ne.Duration,
		Questions:   buildQuestions(ne.Questions),
		IsActive:    ne.IsActive == nil || *ne.IsActive,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.repo.CreateExam(ctx, e); err != nil {
		return Exam{}, errors.Wrap(err, "creating exam")
	}
	return e, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Exam, error) {
	return svc.repo.GetExam(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Exam, error) {
	filter.Clean()
	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if OrderingFields[ord.Field] {
			valid = append(valid, ord)
		}
	}
	if len(valid) == 0 {
		valid = append(valid, core.DBOrdering{Field: "created_at"})
	}
	return svc.repo.FilterExams(ctx, filter, valid...)
}

// Available lists the active exams open to a level, without correct answers.
func (svc *Service) Available(ctx context.Context, level string) ([]Exam, error) {
	exams, err := svc.Filter(ctx, QueryFilter{IsActive: core.BoolPtr(true)})
	if err != nil {
		return nil, err
	}
	out := make([]Exam, 0, len(exams))
	for _, e := range exams {
		if e.OpenTo(level) {
			out = append(out, e.Public())
		}
	}
	return out, nil
}

// Update applies a validated partial update. Questions are frozen once results exist,
// since stored results were scored against them.
func (svc *Service) Update(ctx context.Context, e Exam, ue UpdateExam) (Exam, error) {
	if ue.Questions != nil {
		results, err := svc.Results(ctx, e.ID)
		if err != nil {
			return Exam{}, errors.Wrap(err, "checking results")
		}
		if len(results) > 0 {
			return Exam{}, ErrQuestionsLocked
		}
	}
	ue.apply(&e)
	e.UpdatedAt = svc.NowFunc().UTC()
	if err := svc.repo.UpdateExam(ctx, e); err != nil {
		return Exam{}, errors.Wrap(err, "updating exam")
	}
	return e, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetExam(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteExam(ctx, id)
}

// Submit scores the answers of a student against the exam's answer key and stores the result.
// A student submits an exam once.
func (svc *Service) Submit(ctx context.Context, e Exam, std student.Student, ns NewSubmission) (Result, error) {
	if !e.OpenTo(std.Level) {
		return Result{}, ErrUnavailable
	}

	out := grading.Score(e.scoring(), ns.Answers)
	r := Result{
		ID:            uuid.New().String(),
		ExamID:        e.ID,
		ExamTitle:     e.Title,
		StudentID:     std.ID,
		StudentName:   std.Name,
		StudentEmail:  std.Email,
		Answers:       ns.Answers,
		ObtainedScore: out.Obtained,
		TotalScore:    out.Total,
		Percentage:    out.Percentage,
		Passed:        grading.Passed(out.Percentage),
		Tier:          grading.TierFor(out.Percentage),
		Items:         out.Items,
		SubmittedAt:   svc.NowFunc().UTC(),
	}
	if err := svc.repo.CreateResult(ctx, r); err != nil {
		if errors.Cause(err) == ErrAlreadySubmitted {
			return Result{}, err
		}
		return Result{}, errors.Wrap(err, "saving result")
	}
	return r, nil
}

func (svc *Service) Results(ctx context.Context, examID string) ([]Result, error) {
	return svc.repo.FilterResults(ctx, ResultFilter{ExamID: examID})
}

// StudentResults lists every result of a student, across exams.
func (svc *Service) StudentResults(ctx context.Context, studentID string) ([]Result, error) {
	return svc.repo.FilterResults(ctx, ResultFilter{StudentID: studentID})
}

// Statistics aggregates the results of an exam. It is computed on every call.
func (svc *Service) Statistics(ctx context.Context, e Exam) (grading.Statistics, error) {
	results, err := svc.Results(ctx, e.ID)
	if err != nil {
		return grading.Statistics{}, err
	}
	subs := make([]grading.Submission, len(results))
	for i, r := range results {
		subs[i] = grading.Submission{Percentage: r.Percentage, Items: r.Items}
	}
	return grading.Summarize(e.questionIDs(), subs), nil
}

// ExportRows converts results to export rows, keeping their order.
func ExportRows(results []Result) []grading.ExportRow {
	rows := make([]grading.ExportRow, len(results))
	for i, r := range results {
		rows[i] = r.exportRow()
	}
	return rows
}

// Export renders the results of an exam as CSV and returns the document with its file name.
func (svc *Service) Export(ctx context.Context, e Exam) ([]byte, string, error) {
	results, err := svc.Results(ctx, e.ID)
	if err != nil {
		return nil, "", err
	}
	doc, err := grading.ExportCSV(ExportRows(results))
	if err != nil {
		return nil, "", errors.Wrap(err, "exporting results")
	}
	return doc, grading.ExportFilename(e.ID), nil
}
