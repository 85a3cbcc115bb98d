package homework

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

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

type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Key         string `json:"-"`
}

type Homework struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Level       string       `json:"level"`
	DueDate     time.Time    `json:"due_date"` // UTC
	MaxScore    float64      `json:"max_score"`
	Questions   []Question   `json:"questions"`
	Attachments []Attachment `json:"attachments"`
	IsActive    bool         `json:"is_active"`
	CreatedBy   string       `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
	UpdatedAt   time.Time    `json:"updated_at"` // UTC
}

// Public returns a copy without the correct answers, as shown to students and parents.
func (hw Homework) Public() Homework {
	qs := make([]Question, len(hw.Questions))
	for i, q := range hw.Questions {
		q.CorrectAnswer = ""
		qs[i] = q
	}
	hw.Questions = qs
	return hw
}

func (hw Homework) scoring() []grading.Question {
	qs := make([]grading.Question, len(hw.Questions))
	for i, q := range hw.Questions {
		qs[i] = grading.Question{ID: q.ID, CorrectAnswer: q.CorrectAnswer, Marks: q.Marks}
	}
	return qs
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

func buildQuestions(nqs []NewQuestion) ([]Question, float64) {
	var total float64
	qs := make([]Question, len(nqs))
	for i, nq := range nqs {
		id := core.CleanString(nq.ID)
		if id == "" {
			id = uuid.New().String()
		}
		qs[i] = Question{ID: id, Text: nq.Text, Options: nq.Options, CorrectAnswer: nq.CorrectAnswer, Marks: nq.Marks}
		total += nq.Marks
	}
	return qs, total
}

// NewHomework creates a homework. When questions are given, max_score is their total marks.
type NewHomework struct {
	Title       string        `json:"title" validate:"required,notblank"`
	Description string        `json:"description"`
	Level       string        `json:"level" validate:"required,notblank"`
	DueDate     time.Time     `json:"due_date" validate:"required"`
	MaxScore    float64       `json:"max_score" validate:"gte=0"`
	Questions   []NewQuestion `json:"questions" validate:"dive"`
	IsActive    *bool         `json:"is_active"`
}

func (nh *NewHomework) Validate(validate *validator.Validate) error {
	nh.Title = core.CleanString(nh.Title)
	nh.Level = core.CleanString(nh.Level)
	if err := validate.Struct(nh); err != nil {
		return err
	}
	if err := grading.ValidateQuestionIDs(newQuestionIDs(nh.Questions)); err != nil {
		return err
	}
	if len(nh.Questions) > 0 {
		_, nh.MaxScore = buildQuestions(nh.Questions)
	}
	return grading.ValidateScore(0, nh.MaxScore)
}

// UpdateHomework is a partial update: nil fields are left untouched.
type UpdateHomework struct {
	Title       *string        `json:"title" validate:"omitempty,notblank"`
	Description *string        `json:"description"`
	Level       *string        `json:"level" validate:"omitempty,notblank"`
	DueDate     *time.Time     `json:"due_date"`
	MaxScore    *float64       `json:"max_score" validate:"omitempty,gt=0"`
	Questions   *[]NewQuestion `json:"questions" validate:"omitempty,dive"`
	IsActive    *bool          `json:"is_active"`
}

func (uh *UpdateHomework) Validate(orig Homework, validate *validator.Validate) error {
	if uh.Title != nil {
		*uh.Title = core.CleanString(*uh.Title)
	}
	if uh.Level != nil {
		*uh.Level = core.CleanString(*uh.Level)
	}
	if err := validate.Struct(uh); err != nil {
		return err
	}
	max := orig.MaxScore
	if uh.MaxScore != nil {
		max = *uh.MaxScore
	}
	if uh.Questions != nil && len(*uh.Questions) > 0 {
		if err := grading.ValidateQuestionIDs(newQuestionIDs(*uh.Questions)); err != nil {
			return err
		}
		_, max = buildQuestions(*uh.Questions)
	}
	return grading.ValidateScore(0, max)
}

func (uh UpdateHomework) apply(hw *Homework) {
	if uh.Title != nil {
		hw.Title = *uh.Title
	}
	if uh.Description != nil {
		hw.Description = *uh.Description
	}
	if uh.Level != nil {
		hw.Level = *uh.Level
	}
	if uh.DueDate != nil {
		hw.DueDate = uh.DueDate.UTC()
	}
	if uh.MaxScore != nil {
		hw.MaxScore = *uh.MaxScore
	}
	if uh.Questions != nil {
		qs, total := buildQuestions(*uh.Questions)
		hw.Questions = qs
		if len(qs) > 0 {
			hw.MaxScore = total
		}
	}
	if uh.IsActive != nil {
		hw.IsActive = *uh.IsActive
	}
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

var OrderingFields = map[string]bool{"title": true, "due_date": true, "level": true, "created_at": true}

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusGraded    Status = "graded"
)

type Submission struct {
	ID            string           `json:"id"`
	HomeworkID    string           `json:"homework_id"`
	StudentID     string           `json:"student_id"`
	Answers       []grading.Answer `json:"answers"`
	Content       string           `json:"content"`
	SubmittedAt   time.Time        `json:"submitted_at"` // UTC
	ObtainedScore float64          `json:"obtained_score"`
	TotalScore    float64          `json:"total_score"`
	Percentage    float64          `json:"percentage"`
	Tier          grading.Tier     `json:"tier,omitempty"`
	Items         []grading.Item   `json:"items"`
	Status        Status           `json:"status"`
	Feedback      string           `json:"feedback"`
	GradedAt      null.Time        `json:"graded_at"`
}

type NewSubmission struct {
	Answers []grading.Answer `json:"answers" validate:"dive"`
	Content string           `json:"content"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if len(ns.Answers) == 0 && ns.Content == "" {
		return core.NewValidationError(ErrEmptySubmission, core.FieldError{Field: "content", Error: ErrEmptySubmission.Error()})
	}
	return nil
}

// Grade is a manual grading of a submission, bounded by the homework's max score.
type Grade struct {
	Score    float64 `json:"score" validate:"gte=0"`
	Feedback string  `json:"feedback"`
}

func (g *Grade) Validate(sub Submission, validate *validator.Validate) error {
	g.Feedback = core.CleanString(g.Feedback)
	if err := validate.Struct(g); err != nil {
		return err
	}
	return grading.ValidateScore(g.Score, sub.TotalScore)
}
