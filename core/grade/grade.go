// Package grade manages the daily grades given to students.
package grade

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
)

var ErrNotFound = core.NewNotFoundError("daily grade not found")

// DailyGrade is one scored activity of a student. Percentage and Tier are derived, never stored.
type DailyGrade struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"` // UTC
	Score     float64   `json:"score"`
	MaxScore  float64   `json:"max_score"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (g DailyGrade) Percentage() float64 {
	return grading.Percentage(g.Score, g.MaxScore)
}

func (g DailyGrade) Tier() grading.Tier {
	return grading.TierFor(g.Percentage())
}

func (g DailyGrade) MarshalJSON() ([]byte, error) {
	type alias DailyGrade
	return json.Marshal(struct {
		alias
		Percentage float64      `json:"percentage"`
		Tier       grading.Tier `json:"tier"`
	}{alias(g), g.Percentage(), g.Tier()})
}

type NewDailyGrade struct {
	StudentID string    `json:"student_id" validate:"required,uuid"`
	Subject   string    `json:"subject" validate:"required,notblank"`
	Date      time.Time `json:"date" validate:"required"`
	Score     float64   `json:"score" validate:"gte=0,ltefield=MaxScore"`
	MaxScore  float64   `json:"max_score" validate:"gt=0"`
	Notes     string    `json:"notes"`
}

// Validate checks the fields; students is used to make sure the grade belongs to an existing student.
func (ng *NewDailyGrade) Validate(ctx context.Context, validate *validator.Validate, students StudentChecker) error {
	ng.StudentID = core.CleanString(ng.StudentID, true /* lower */)
	ng.Subject = core.CleanString(ng.Subject)
	ng.Notes = core.CleanString(ng.Notes)
	if err := validate.Struct(ng); err != nil {
		return err
	}
	return checkStudent(ctx, students, ng.StudentID)
}

// UpdateDailyGrade is a partial update: nil fields are left untouched.
// The merged score is validated against the merged max score.
type UpdateDailyGrade struct {
	Subject  *string    `json:"subject" validate:"omitempty,notblank"`
	Date     *time.Time `json:"date"`
	Score    *float64   `json:"score" validate:"omitempty,gte=0"`
	MaxScore *float64   `json:"max_score" validate:"omitempty,gt=0"`
	Notes    *string    `json:"notes"`
}

func (ug *UpdateDailyGrade) Validate(orig DailyGrade, validate *validator.Validate) error {
	if ug.Subject != nil {
		*ug.Subject = core.CleanString(*ug.Subject)
	}
	if ug.Notes != nil {
		*ug.Notes = core.CleanString(*ug.Notes)
	}
	if err := validate.Struct(ug); err != nil {
		return err
	}
	merged := orig
	ug.apply(&merged)
	return grading.ValidateScore(merged.Score, merged.MaxScore)
}

func (ug UpdateDailyGrade) apply(g *DailyGrade) {
	if ug.Subject != nil {
		g.Subject = *ug.Subject
	}
	if ug.Date != nil {
		g.Date = ug.Date.UTC()
	}
	if ug.Score != nil {
		g.Score = *ug.Score
	}
	if ug.MaxScore != nil {
		g.MaxScore = *ug.MaxScore
	}
	if ug.Notes != nil {
		g.Notes = *ug.Notes
	}
}

type QueryFilter struct {
	StudentID string     `query:"student_id"`
	Subject   string     `query:"subject"`
	From      *time.Time `query:"-"`
	To        *time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID, true /* lower */)
	qf.Subject = core.CleanString(qf.Subject)
}

var OrderingFields = map[string]bool{"date": true, "subject": true, "score": true, "created_at": true}

type (
	Repository interface {
		CreateGrade(ctx context.Context, g DailyGrade) error
		GetGrade(ctx context.Context, id string) (DailyGrade, error)
		// FilterGrades applies AND operation on available QueryFilter fields; From and To are inclusive.
		FilterGrades(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]DailyGrade, error)
		UpdateGrade(ctx context.Context, g DailyGrade) error
		DeleteGrade(ctx context.Context, id string) error
	}

	// StudentChecker reports whether a student exists.
	StudentChecker interface {
		Exists(ctx context.Context, studentID string) (bool, error)
	}

	Service struct {
		repo Repository

		NowFunc func() time.Time // mockable
	}
)

var errUnknownStudent = errors.New("student not found")

func checkStudent(ctx context.Context, students StudentChecker, id string) error {
	if students == nil {
		return nil
	}
	ok, err := students.Exists(ctx, id)
	if err != nil {
		return errors.Wrap(err, "checking student")
	}
	if !ok {
		return core.NewValidationError(errUnknownStudent, core.FieldError{Field: "student_id", Error: errUnknownStudent.Error()})
	}
	return nil
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, NowFunc: time.Now}
}

func (svc *Service) Create(ctx context.Context, ng NewDailyGrade) (DailyGrade, error) {
	now := svc.NowFunc().UTC()
	g := DailyGrade{
		ID:        uuid.New().String(),
		StudentID: ng.StudentID,
		Subject:   ng.Subject,
		Date:      ng.Date.UTC(),
		Score:     ng.Score,
		MaxScore:  ng.MaxScore,
		Notes:     ng.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.repo.CreateGrade(ctx, g); err != nil {
		return DailyGrade{}, errors.Wrap(err, "creating daily grade")
	}
	return g, nil
}

func (svc *Service) Get(ctx context.Context, id string) (DailyGrade, error) {
	return svc.repo.GetGrade(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]DailyGrade, error) {
	filter.Clean()
	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if OrderingFields[ord.Field] {
			valid = append(valid, ord)
		}
	}
	if len(valid) == 0 {
		valid = append(valid, core.DBOrdering{Field: "date"})
	}
	return svc.repo.FilterGrades(ctx, filter, valid...)
}

// OfStudent lists the grades of one student, most recent first.
func (svc *Service) OfStudent(ctx context.Context, studentID string) ([]DailyGrade, error) {
	return svc.Filter(ctx, QueryFilter{StudentID: studentID})
}

func (svc *Service) Update(ctx context.Context, g DailyGrade, ug UpdateDailyGrade) (DailyGrade, error) {
	ug.apply(&g)
	g.UpdatedAt = svc.NowFunc().UTC()
	if err := svc.repo.UpdateGrade(ctx, g); err != nil {
		return DailyGrade{}, errors.Wrap(err, "updating daily grade")
	}
	return g, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetGrade(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteGrade(ctx, id)
}
