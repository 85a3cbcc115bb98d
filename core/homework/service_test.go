package homework_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
	inmemdb "github.com/karemsaeed20020/Education-Platform-sub002/storage/database/inmem"
	filestore "github.com/karemsaeed20020/Education-Platform-sub002/storage/files"
)

func newService(t *testing.T) *homework.Service {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Media.Dir = t.TempDir()
	files, err := filestore.NewDiskStore(conf)
	require.NoError(t, err)
	return homework.NewService(inmemdb.NewHomeworkRepository(inmemdb.Open()), files, core.NopLogger{})
}

var due = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func TestService_Submit_autoGraded(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	hw, err := svc.Create(ctx, homework.NewHomework{
		Title:    "Arithmetic",
		Level:    "grade-1",
		DueDate:  due,
		MaxScore: 100, // replaced by the total marks
		Questions: []homework.NewQuestion{
			{ID: "q1", Text: "1+1?", CorrectAnswer: "2", Marks: 3},
			{ID: "q2", Text: "2+2?", CorrectAnswer: "4", Marks: 1},
		},
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 4.0, hw.MaxScore)
	assert.True(t, hw.IsActive)

	pub := hw.Public()
	assert.Empty(t, pub.Questions[0].CorrectAnswer)
	assert.Equal(t, "2", hw.Questions[0].CorrectAnswer, "Public must not change the original")

	sub, err := svc.Submit(ctx, hw, "s1", homework.NewSubmission{Answers: []grading.Answer{
		{QuestionID: "q1", Answer: " 2 "},
		{QuestionID: "q2", Answer: "5"},
	}})
	require.NoError(t, err)
	assert.Equal(t, homework.StatusGraded, sub.Status)
	assert.Equal(t, 3.0, sub.ObtainedScore)
	assert.Equal(t, 4.0, sub.TotalScore)
	assert.Equal(t, 75.0, sub.Percentage)
	assert.Equal(t, grading.TierGood, sub.Tier)
	assert.True(t, sub.GradedAt.Valid)

	_, err = svc.Submit(ctx, hw, "s1", homework.NewSubmission{Content: "again"})
	assert.Equal(t, homework.ErrAlreadyGraded, errors.Cause(err))
}

func TestService_Submit_manual(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	validate := core.NewValidate(core.NewTranslator())

	hw, err := svc.Create(ctx, homework.NewHomework{Title: "Essay", Level: "grade-2", DueDate: due, MaxScore: 20}, "admin")
	require.NoError(t, err)

	first, err := svc.Submit(ctx, hw, "s1", homework.NewSubmission{Content: "draft"})
	require.NoError(t, err)
	assert.Equal(t, homework.StatusSubmitted, first.Status)

	// replaceable until graded, keeping its identity
	second, err := svc.Submit(ctx, hw, "s1", homework.NewSubmission{Content: "final"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	subs, err := svc.Submissions(ctx, homework.SubmissionFilter{HomeworkID: hw.ID})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "final", subs[0].Content)

	tooHigh := homework.Grade{Score: 21}
	err = tooHigh.Validate(second, validate)
	assert.Equal(t, grading.ErrScoreAboveMax, errors.Cause(err).(*core.ValidationError).Err)

	g := homework.Grade{Score: 17, Feedback: "  good work "}
	require.NoError(t, g.Validate(second, validate))
	graded, err := svc.GradeSubmission(ctx, second, g)
	require.NoError(t, err)
	assert.Equal(t, 85.0, graded.Percentage)
	assert.Equal(t, grading.TierVeryGood, graded.Tier)
	assert.Equal(t, "good work", graded.Feedback)

	got, err := svc.StudentSubmission(ctx, hw.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, homework.StatusGraded, got.Status)

	// inactive homework is closed
	inactive := false
	hw, err = svc.Update(ctx, hw, homework.UpdateHomework{IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, hw, "s2", homework.NewSubmission{Content: "late"})
	assert.Equal(t, homework.ErrClosed, errors.Cause(err))
}

func TestService_attachments(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	hw, err := svc.Create(ctx, homework.NewHomework{Title: "Reading", Level: "grade-1", DueDate: due}, "admin")
	require.NoError(t, err)

	hw, err = svc.AddAttachment(ctx, hw, `..\..\etc\Notes.PDF`, "", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, hw.Attachments, 1)
	att := hw.Attachments[0]
	assert.Equal(t, "Notes.PDF", att.Name)
	assert.Equal(t, "application/octet-stream", att.ContentType)
	assert.Equal(t, int64(8), att.Size)
	assert.True(t, strings.HasPrefix(att.Key, hw.ID+"/"))
	assert.True(t, strings.HasSuffix(att.Key, ".pdf"))

	_, rc, err := svc.OpenAttachment(ctx, hw, 0)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, _, err = svc.OpenAttachment(ctx, hw, 1)
	assert.Equal(t, homework.ErrAttachmentNotFound, err)

	require.NoError(t, svc.Delete(ctx, hw.ID))
	_, _, err = svc.OpenAttachment(ctx, hw, 0)
	assert.Equal(t, homework.ErrAttachmentNotFound, err, "files go with the homework")
	_, err = svc.Get(ctx, hw.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_Update_questions(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	validate := core.NewValidate(core.NewTranslator())
	q := func(id, answer string) homework.NewQuestion {
		return homework.NewQuestion{ID: id, Text: "1+1?", CorrectAnswer: answer, Marks: 1}
	}

	nh := homework.NewHomework{Title: "Quiz", Level: "grade-1", DueDate: due, Questions: []homework.NewQuestion{q("q1", "2"), q("q1", "3")}}
	var vErr *core.ValidationError
	require.True(t, errors.As(nh.Validate(validate), &vErr))
	assert.Equal(t, grading.ErrDuplicateID, vErr.Err)

	nh.Questions = []homework.NewQuestion{q("q1", "2")}
	require.NoError(t, nh.Validate(validate))
	hw, err := svc.Create(ctx, nh, "admin")
	require.NoError(t, err)

	dup := []homework.NewQuestion{q("q1", "2"), q("q1", "2")}
	uh := homework.UpdateHomework{Questions: &dup}
	require.True(t, errors.As(uh.Validate(hw, validate), &vErr))
	assert.Equal(t, grading.ErrDuplicateID, vErr.Err)

	_, err = svc.Submit(ctx, hw, "s1", homework.NewSubmission{Answers: []grading.Answer{{QuestionID: "q1", Answer: "2"}}})
	require.NoError(t, err)

	regraded := []homework.NewQuestion{q("q1", "3")}
	_, err = svc.Update(ctx, hw, homework.UpdateHomework{Questions: &regraded})
	assert.Equal(t, homework.ErrQuestionsLocked, errors.Cause(err))

	title := "Quiz 2"
	hw, err = svc.Update(ctx, hw, homework.UpdateHomework{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Quiz 2", hw.Title)
	assert.Equal(t, "2", hw.Questions[0].CorrectAnswer)
}
