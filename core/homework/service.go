// Package homework manages homework assignments, their attachments and the students' submissions.
package homework

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("homework not found")
	ErrSubmissionNotFound = core.NewNotFoundError("submission not found")
	ErrAttachmentNotFound = core.NewNotFoundError("attachment not found")
	ErrEmptySubmission    = errors.New("a submission needs answers or content")
	ErrClosed             = errors.New("homework is not open for submissions")
	ErrAlreadyGraded      = errors.New("submission has already been graded")
	ErrQuestionsLocked    = errors.New("questions cannot change once the homework has submissions")
)

type (
	Repository interface {
		CreateHomework(ctx context.Context, hw Homework) error
		GetHomework(ctx context.Context, id string) (Homework, error)
		// FilterHomework applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Homework.Title.
		FilterHomework(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Homework, error)
		UpdateHomework(ctx context.Context, hw Homework) error
		DeleteHomework(ctx context.Context, id string) error

		// SaveSubmission inserts or replaces the submission of a student for a homework.
		SaveSubmission(ctx context.Context, sub Submission) error
		GetSubmission(ctx context.Context, id string) (Submission, error)
		GetStudentSubmission(ctx context.Context, homeworkID, studentID string) (Submission, error)
		FilterSubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
	}

	SubmissionFilter struct {
		HomeworkID string
		StudentID  string
	}

	Service struct {
		repo   Repository
		files  core.FileStore
		logger core.Logger

		NowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository, files core.FileStore, logger core.Logger) *Service {
	return &Service{repo: repo, files: files, logger: logger, NowFunc: time.Now}
}

func (svc *Service) now() time.Time {
	return svc.NowFunc().UTC()
}

// Create persists a validated NewHomework.
func (svc *Service) Create(ctx context.Context, nh NewHomework, createdBy string) (Homework, error) {
	now := svc.now()
	qs, total := buildQuestions(nh.Questions)
	hw := Homework{
		ID:          uuid.New().String(),
		Title:       nh.Title,
		Description: nh.Description,
		Level:       nh.Level,
		DueDate:     nh.DueDate.UTC(),
		MaxScore:    nh.MaxScore,
		Questions:   qs,
		Attachments: []Attachment{},
		IsActive:    nh.IsActive == nil || *nh.IsActive,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(qs) > 0 {
		hw.MaxScore = total
	}
	if err := svc.repo.CreateHomework(ctx, hw); err != nil {
		return Homework{}, errors.Wrap(err, "creating homework")
	}
	return hw, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Homework, error) {
	return svc.repo.GetHomework(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Homework, error) {
	filter.Clean()
	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if OrderingFields[ord.Field] {
			valid = append(valid, ord)
		}
	}
	if len(valid) == 0 {
		valid = append(valid, core.DBOrdering{Field: "due_date"})
	}
	return svc.repo.FilterHomework(ctx, filter, valid...)
}

// ForLevel lists the active homework of a class level, without correct answers.
func (svc *Service) ForLevel(ctx context.Context, level string) ([]Homework, error) {
	hws, err := svc.Filter(ctx, QueryFilter{Level: level, IsActive: core.BoolPtr(true)}, core.DBOrdering{Field: "due_date", Ascending: true})
	if err != nil {
		return nil, err
	}
	for i := range hws {
		hws[i] = hws[i].Public()
	}
	return hws, nil
}

// Update applies a validated partial update. Questions are frozen once submissions exist.
func (svc *Service) Update(ctx context.Context, hw Homework, uh UpdateHomework) (Homework, error) {
	if uh.Questions != nil {
		subs, err := svc.Submissions(ctx, SubmissionFilter{HomeworkID: hw.ID})
		if err != nil {
			return Homework{}, errors.Wrap(err, "checking submissions")
		}
		if len(subs) > 0 {
			return Homework{}, ErrQuestionsLocked
		}
	}
	uh.apply(&hw)
	hw.UpdatedAt = svc.now()
	if err := svc.repo.UpdateHomework(ctx, hw); err != nil {
		return Homework{}, errors.Wrap(err, "updating homework")
	}
	return hw, nil
}

// Delete removes a homework with its submissions. Attachment files are removed on a best effort basis.
func (svc *Service) Delete(ctx context.Context, id string) error {
	hw, err := svc.repo.GetHomework(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteHomework(ctx, id); err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	for _, att := range hw.Attachments {
		if err = svc.files.Delete(ctx, att.Key); err != nil {
			svc.logger.Warn("deleting attachment "+att.Key, err)
		}
	}
	return nil
}

// AddAttachment stores a file and appends it to the homework attachments.
func (svc *Service) AddAttachment(ctx context.Context, hw Homework, name, contentType string, r io.Reader) (Homework, error) {
	name = path.Base(strings.ReplaceAll(core.CleanString(name), "\\", "/"))
	if name == "." || name == "/" {
		name = "attachment"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := hw.ID + "/" + uuid.New().String() + strings.ToLower(path.Ext(name))

	size, err := svc.files.Save(ctx, key, r)
	if err != nil {
		return Homework{}, errors.Wrap(err, "saving attachment")
	}
	hw.Attachments = append(hw.Attachments, Attachment{Name: name, ContentType: contentType, Size: size, Key: key})
	hw.UpdatedAt = svc.now()
	if err = svc.repo.UpdateHomework(ctx, hw); err != nil {
		_ = svc.files.Delete(ctx, key)
		return Homework{}, errors.Wrap(err, "updating homework")
	}
	return hw, nil
}

// OpenAttachment opens the attachment at index. The caller closes the reader.
func (svc *Service) OpenAttachment(ctx context.Context, hw Homework, index int) (Attachment, io.ReadCloser, error) {
	if index < 0 || index >= len(hw.Attachments) {
		return Attachment{}, nil, ErrAttachmentNotFound
	}
	att := hw.Attachments[index]
	rc, err := svc.files.Open(ctx, att.Key)
	if err != nil {
		if core.IsNotFound(err) {
			return Attachment{}, nil, ErrAttachmentNotFound
		}
		return Attachment{}, nil, errors.Wrap(err, "opening attachment")
	}
	return att, rc, nil
}

// Submit records the submission of a student. Homework with questions is graded on the spot;
// anything else waits for a manual grade. A submission may be replaced until it is graded.
func (svc *Service) Submit(ctx context.Context, hw Homework, studentID string, ns NewSubmission) (Submission, error) {
	if !hw.IsActive {
		return Submission{}, ErrClosed
	}

	sub, err := svc.repo.GetStudentSubmission(ctx, hw.ID, studentID)
	switch {
	case err == nil:
		if sub.Status == StatusGraded {
			return Submission{}, ErrAlreadyGraded
		}
	case core.IsNotFound(err):
		sub = Submission{ID: uuid.New().String(), HomeworkID: hw.ID, StudentID: studentID}
	default:
		return Submission{}, errors.Wrap(err, "getting submission")
	}

	now := svc.now()
	sub.Answers = ns.Answers
	if sub.Answers == nil {
		sub.Answers = []grading.Answer{}
	}
	sub.Content = ns.Content
	sub.SubmittedAt = now
	sub.TotalScore = hw.MaxScore
	sub.Items = []grading.Item{}
	sub.Status = StatusSubmitted

	if len(hw.Questions) > 0 {
		out := grading.Score(hw.scoring(), ns.Answers)
		sub.ObtainedScore = out.Obtained
		sub.TotalScore = out.Total
		sub.Percentage = out.Percentage
		sub.Tier = grading.TierFor(out.Percentage)
		sub.Items = out.Items
		sub.Status = StatusGraded
		sub.GradedAt = null.TimeFrom(now)
	}

	if err = svc.repo.SaveSubmission(ctx, sub); err != nil {
		return Submission{}, errors.Wrap(err, "saving submission")
	}
	return sub, nil
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

// StudentSubmission returns the submission of a student for a homework.
func (svc *Service) StudentSubmission(ctx context.Context, homeworkID, studentID string) (Submission, error) {
	return svc.repo.GetStudentSubmission(ctx, homeworkID, studentID)
}

func (svc *Service) Submissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error) {
	return svc.repo.FilterSubmissions(ctx, filter)
}

// GradeSubmission sets a validated manual score; the percentage is always derived here.
func (svc *Service) GradeSubmission(ctx context.Context, sub Submission, g Grade) (Submission, error) {
	sub.ObtainedScore = g.Score
	sub.Percentage = grading.Percentage(g.Score, sub.TotalScore)
	sub.Tier = grading.TierFor(sub.Percentage)
	sub.Feedback = g.Feedback
	sub.Status = StatusGraded
	sub.GradedAt = null.TimeFrom(svc.now())
	if err := svc.repo.SaveSubmission(ctx, sub); err != nil {
		return Submission{}, errors.Wrap(err, "saving grade")
	}
	return sub, nil
}
