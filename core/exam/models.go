package exam

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
)

type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Marks         float64  `json:"marks"`
}

type Exam struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Level       string     `json:"level"`    // empty: every level
	Duration    int        `json:"duration"` // minutes, 0: untimed
	Questions   []Question `json:"questions"`
	IsActive    bool       `json:"is_active"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

// TotalMarks is the sum of all question marks.
func (e Exam) TotalMarks() float64 {
	var total float64
	for _, q := range e.Questions {
		total += q.Marks
	}
	return total
}

// Public returns a copy without the correct answers.
func (e Exam) Public() Exam {
	qs := make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		q.CorrectAnswer = ""
		qs[i] = q
	}
	e.Questions = qs
	return e
}

func (e Exam) OpenTo(level string) bool {
	return e.IsActive && (e.Level == "" || e.Level == level)
}

func (e Exam) questionIDs() []string {
	ids := make([]string, len(e.Questions))
	for i, q := range e.Questions {
		ids[i] = q.ID
	}
	return ids
}

func (e Exam) scoring() []grading.Question {
	qs := make([]grading.Question, len(e.Questions))
	for i, q := range e.Questions {
		qs[i] = grading.Question{ID: q.ID, CorrectAnswer: q.CorrectAnswer, Marks: q.Marks}
	}
	return qs
}

// Result is the scored submission of a student. Obtained, total and percentage are computed
// on submission from the exam's answer key; scores sent by the client are never read.
type Result struct {
	ID            string           `json:"id"`
	ExamID        string           `json:"exam_id"`
	ExamTitle     string           `json:"exam_title"`
	StudentID     string           `json:"student_id"`
	StudentName   string           `json:"student_name"`
	StudentEmail  string           `json:"student_email"`
	Answers       []grading.Answer `json:"answers"`
	ObtainedScore float64          `json:"obtained_score"`
	TotalScore    float64          `json:"total_score"`
	Percentage    float64          `json:"percentage"`
	Passed        bool             `json:"passed"`
	Tier          grading.Tier     `json:"tier"`
	Items         []grading.Item   `json:"items"`
	SubmittedAt   time.Time        `json:"submitted_at"` // UTC
}

func (r Result) exportRow() grading.ExportRow {
	return grading.ExportRow{
		StudentName: r.StudentName,
		Email:       r.StudentEmail,
		Obtained:    r.ObtainedScore,
		Total:       r.TotalScore,
		Percentage:  r.Percentage,
		SubmittedAt: r.SubmittedAt,
	}
}

type NewQuestion struct {
	ID            string   `json:"id"`
	Text          string   `json:"text" validate:"required,notblank"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer" validate:"required,notblank"`
	Marks         float64  `json:"marks" validate:"gt=0"`
}

func newQuestionIDs(nqs []NewQuestion) []string {
	ids := make([]string, len(nqs))
	for i, nq := range nqs {
		ids[i] = core.CleanString(nq.ID)
	}
	return ids
}

func buildQuestions(nqs []NewQuestion) []Question {
	qs := make([]Question, len(nqs))
	for i, nq := range nqs {
		id := core.CleanString(nq.ID)
		if id == "" {
			id = uuid.New().String()
		}
		qs[i] = Question{ID: id, Text: core.CleanString(nq.Text), Options: nq.Options, CorrectAnswer: core.CleanString(nq.CorrectAnswer), Marks: nq.Marks}
	}
	return qs
}

type NewExam struct {
	Title       string        `json:"title" validate:"required,notblank"`
	Description string        `json:"description"`
	Level       string        `json:"level"`
	Duration    int           `json:"duration" validate:"gte=0"`
	Questions   []NewQuestion `json:"questions" validate:"required,min=1,dive"`
	IsActive    *bool         `json:"is_active"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Level = core.CleanString(ne.Level)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	return grading.ValidateQuestionIDs(newQuestionIDs(ne.Questions))
}

// UpdateExam is a partial update: nil fields are left untouched.
type UpdateExam struct {
	Title       *string        `json:"title" validate:"omitempty,notblank"`
	Description *string        `json:"description"`
	Level       *string        `json:"level"`
	Duration    *int           `json:"duration" validate:"omitempty,gte=0"`
	Questions   *[]NewQuestion `json:"questions" validate:"omitempty,min=1,dive"`
	IsActive    *bool          `json:"is_active"`
}

func (ue *UpdateExam) Validate(validate *validator.Validate) error {
	if ue.Title != nil {
		*ue.Title = core.CleanString(*ue.Title)
	}
	if ue.Level != nil {
		*ue.Level = core.CleanString(*ue.Level)
	}
	if err := validate.Struct(ue); err != nil {
		return err
	}
	if ue.Questions != nil {
		return grading.ValidateQuestionIDs(newQuestionIDs(*ue.Questions))
	}
	return nil
}

func (ue UpdateExam) apply(e *Exam) {
	if ue.Title != nil {
		e.Title = *ue.Title
	}
	if ue.Description != nil {
		e.Description = *ue.Description
	}
	if ue.Level != nil {
		e.Level = *ue.Level
	}
	if ue.Duration != nil {
		e.Duration = *ue.Duration
	}
	if ue.Questions != nil {
		e.Questions = buildQuestions(*ue.Questions)
	}
	if ue.IsActive != nil {
		e.IsActive = *ue.IsActive
	}
}

type NewSubmission struct {
	Answers []grading.Answer `json:"answers" validate:"required,dive"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Level    string `query:"level"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Level = core.CleanString(qf.Level)
}

var OrderingFields = map[string]bool{"title": true, "level": true, "created_at": true}

type ResultFilter struct {
	ExamID    string
	StudentID string
}
