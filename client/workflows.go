package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
)

func NewStudents(c *Client) *Resource[student.Student] {
	return NewResource(c, ResourceConfig[student.Student]{
		Name:         "student",
		Path:         "/api/users/students",
		UpdateMethod: http.MethodPatch,
		ID:           func(s student.Student) string { return s.ID },
		Label:        func(s student.Student) string { return fmt.Sprintf("%s <%s>", s.Name, s.Email) },
	})
}

func NewHomework(c *Client) *Resource[homework.Homework] {
	return NewResource(c, ResourceConfig[homework.Homework]{
		Name:         "homework",
		Path:         "/api/homework",
		UpdateMethod: http.MethodPut,
		ID:           func(hw homework.Homework) string { return hw.ID },
		Label:        func(hw homework.Homework) string { return fmt.Sprintf("%s (%s)", hw.Title, hw.Level) },
	})
}

func NewSchedules(c *Client) *Resource[schedule.Schedule] {
	return NewResource(c, ResourceConfig[schedule.Schedule]{
		Name:         "schedule",
		Path:         "/api/schedules",
		UpdateMethod: http.MethodPut,
		ID:           func(s schedule.Schedule) string { return s.ID },
		Label:        func(s schedule.Schedule) string { return fmt.Sprintf("%s, %s %s", s.Title, s.Day, s.StartsAt) },
	})
}

func NewExams(c *Client) *Resource[exam.Exam] {
	return NewResource(c, ResourceConfig[exam.Exam]{
		Name:         "exam",
		Path:         "/api/exams",
		UpdateMethod: http.MethodPut,
		ID:           func(e exam.Exam) string { return e.ID },
		Label:        func(e exam.Exam) string { return e.Title },
	})
}

// Grades is the daily grade workflow; score edits are bounded before submission.
type Grades struct {
	*Resource[grade.DailyGrade]
}

func NewGrades(c *Client) *Grades {
	return &Grades{NewResource(c, ResourceConfig[grade.DailyGrade]{
		Name:         "grade",
		Path:         "/api/daily-grades",
		UpdateMethod: http.MethodPut,
		ID:           func(g grade.DailyGrade) string { return g.ID },
		Label: func(g grade.DailyGrade) string {
			return fmt.Sprintf("%s, %s: %s/%s", g.Subject, g.Date.Format("2006-01-02"),
				strconv.FormatFloat(g.Score, 'f', -1, 64), strconv.FormatFloat(g.MaxScore, 'f', -1, 64))
		},
		Check: checkScore,
	})}
}

// EditScore changes the score of g, enforcing 0 <= score <= g.MaxScore first.
func (gr *Grades) EditScore(ctx context.Context, g grade.DailyGrade, score float64) (grade.DailyGrade, error) {
	if err := fromCore(grading.ValidateScore(score, g.MaxScore)); err != nil {
		return grade.DailyGrade{}, err
	}
	return gr.Update(ctx, g.ID, grade.UpdateDailyGrade{Score: &score})
}

// checkScore bounds score edits that carry both values.
func checkScore(fields interface{}) error {
	switch f := fields.(type) {
	case grade.NewDailyGrade:
		return fromCore(grading.ValidateScore(f.Score, f.MaxScore))
	case *grade.NewDailyGrade:
		return fromCore(grading.ValidateScore(f.Score, f.MaxScore))
	case grade.UpdateDailyGrade:
		if f.Score != nil && f.MaxScore != nil {
			return fromCore(grading.ValidateScore(*f.Score, *f.MaxScore))
		}
	case *grade.UpdateDailyGrade:
		if f.Score != nil && f.MaxScore != nil {
			return fromCore(grading.ValidateScore(*f.Score, *f.MaxScore))
		}
	}
	return nil
}

// fromCore turns a core validation error into the client taxonomy.
func fromCore(err error) error {
	if err == nil {
		return nil
	}
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		return err
	}
	fields := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		fields[f.Field] = f.Error
	}
	return &ValidationError{Message: vErr.Error(), Fields: fields}
}

// SubmitExam sends the student's answers; the server scores them from its answer key.
func (c *Client) SubmitExam(ctx context.Context, examID string, answers []grading.Answer) (exam.Result, error) {
	body := exam.NewSubmission{Answers: answers}
	if err := c.Prevalidate(body); err != nil {
		return exam.Result{}, err
	}
	var r exam.Result
	if err := c.call(ctx, http.MethodPost, "/api/exams/"+url.PathEscape(examID)+"/submit", body, &r); err != nil {
		c.notifyError(err)
		return exam.Result{}, err
	}
	c.notifySuccess("exam submitted")
	return r, nil
}

func (c *Client) ExamResults(ctx context.Context, examID string) ([]exam.Result, error) {
	var results []exam.Result
	if err := c.call(ctx, http.MethodGet, "/api/exams/"+url.PathEscape(examID)+"/results", nil, &results); err != nil {
		c.notifyError(err)
		return nil, err
	}
	return results, nil
}

// FetchStatistics is recomputed by the server on every call.
func (c *Client) FetchStatistics(ctx context.Context, examID string) (grading.Statistics, error) {
	var stats grading.Statistics
	if err := c.call(ctx, http.MethodGet, "/api/exams/"+url.PathEscape(examID)+"/statistics", nil, &stats); err != nil {
		c.notifyError(err)
		return grading.Statistics{}, err
	}
	return stats, nil
}

// SubmitHomework is replaceable until the homework is graded.
func (c *Client) SubmitHomework(ctx context.Context, homeworkID string, sub homework.NewSubmission) (homework.Submission, error) {
	if err := c.Prevalidate(sub); err != nil {
		return homework.Submission{}, err
	}
	var out homework.Submission
	if err := c.call(ctx, http.MethodPost, "/api/homework/"+url.PathEscape(homeworkID)+"/submit", sub, &out); err != nil {
		c.notifyError(err)
		return homework.Submission{}, err
	}
	c.notifySuccess("homework submitted")
	return out, nil
}

// DownloadAttachment returns the file content and its Content-Disposition header.
func (c *Client) DownloadAttachment(ctx context.Context, homeworkID string, index int) ([]byte, string, error) {
	path := fmt.Sprintf("/api/homework/%s/download/%d", url.PathEscape(homeworkID), index)
	data, disposition, err := c.download(ctx, path)
	if err != nil {
		c.notifyError(err)
		return nil, "", err
	}
	return data, disposition, nil
}

// RegisterSchedule registers the logged in student; a full schedule is a ConflictError.
func (c *Client) RegisterSchedule(ctx context.Context, scheduleID string) error {
	if err := c.call(ctx, http.MethodPost, "/api/student/schedules/"+url.PathEscape(scheduleID)+"/register", nil, nil); err != nil {
		c.notifyError(err)
		return err
	}
	c.notifySuccess("registered")
	return nil
}

func (c *Client) UnregisterSchedule(ctx context.Context, scheduleID string) error {
	if err := c.call(ctx, http.MethodDelete, "/api/student/schedules/"+url.PathEscape(scheduleID)+"/register", nil, nil); err != nil {
		c.notifyError(err)
		return err
	}
	c.notifySuccess("registration cancelled")
	return nil
}

func (c *Client) AvailableSchedules(ctx context.Context) ([]schedule.Schedule, error) {
	var ss []schedule.Schedule
	if err := c.call(ctx, http.MethodGet, "/api/student/schedules/available", nil, &ss); err != nil {
		c.notifyError(err)
		return nil, err
	}
	return ss, nil
}
