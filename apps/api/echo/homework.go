package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
	metricsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/metrics"
)

type homeworkApi struct {
	svc           *homework.Service
	students      *student.Service
	metrics       *metricsvc.Metrics
	validate      *validator.Validate
	maxUploadSize int64
}

func registerHomeworkAPI(g *echo.Group, api *homeworkApi) {
	hg := g.Group("/homework")
	hg.GET("", api.query, adminOnly)
	hg.POST("", api.create, adminOnly)
	hg.PUT("/submissions/:id/grade", api.grade, adminOnly)

	// detail endpoints
	dg := hg.Group("/:id", authOnly, homeworkObject(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminOnly)
	dg.DELETE("", api.destroy, adminOnly)
	dg.POST("/attachments", api.upload, adminOnly)
	dg.GET("/download/:fileIndex", api.download)
	dg.GET("/submissions", api.submissions, adminOnly)
	dg.POST("/submit", api.submit, studentOnly)

	sg := g.Group("/student/homework", studentOnly)
	sg.GET("", api.mine)
	sg.GET("/:id/submission", api.mySubmission)
}

func (api *homeworkApi) query(ctx echo.Context) error {
	var filter homework.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	var ordering Ordering
	ordering.Bind(ctx)

	hws, err := api.svc.Filter(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying homework")
	}
	if hws == nil {
		hws = []homework.Homework{}
	}
	return respondPage(ctx, hws, len(hws))
}

func (api *homeworkApi) create(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	var data homework.NewHomework
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomework")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	hw, err := api.svc.Create(ctx.Request().Context(), data, s.UserID)
	if err != nil {
		return errors.Wrap(err, "creating homework")
	}
	return respond(ctx, http.StatusCreated, hw)
}

// visible returns the homework as the session may see it: students only see the homework of
// their level, and nobody but admins sees the correct answers.
func (api *homeworkApi) visible(ctx echo.Context, hw homework.Homework) (homework.Homework, error) {
	s, err := contextSession(ctx)
	if err != nil {
		return homework.Homework{}, err
	}
	switch s.Role {
	case session.RoleAdmin:
		return hw, nil
	case session.RoleStudent:
		std, err := api.students.Get(ctx.Request().Context(), s.UserID)
		if err != nil {
			return homework.Homework{}, err
		}
		if !hw.IsActive || hw.Level != std.Level {
			return homework.Homework{}, homework.ErrNotFound
		}
	}
	return hw.Public(), nil
}

func (api *homeworkApi) retrieve(ctx echo.Context) error {
	hw, ok := ctx.Get("object").(homework.Homework)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving homework")
	}
	hw, err := api.visible(ctx, hw)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, hw)
}

func (api *homeworkApi) update(ctx echo.Context) error {
	hw, ok := ctx.Get("object").(homework.Homework)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving homework")
	}

	var data homework.UpdateHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateHomework")
	}
	if err := data.Validate(hw, api.validate); err != nil {
		return err
	}

	hw, err := api.svc.Update(ctx.Request().Context(), hw, data)
	if err != nil {
		return errors.Wrap(err, "updating homework")
	}
	return respond(ctx, http.StatusOK, hw)
}

func (api *homeworkApi) destroy(ctx echo.Context) error {
	hw, ok := ctx.Get("object").(homework.Homework)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving homework")
	}
	if err := api.svc.Delete(ctx.Request().Context(), hw.ID); err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *homeworkApi) upload(ctx echo.Context) error {
	hw, ok := ctx.Get("object").(homework.Homework)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving homework")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return errInvalidUpload
	}
	if api.maxUploadSize > 0 && fh.Size > api.maxUploadSize {
		msg := fmt.Sprintf("file must not exceed %d bytes", api.maxUploadSize)
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "file", Error: msg})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	hw, err = api.svc.AddAttachment(ctx.Request().Context(), hw, fh.Filename, fh.Header.Get(echo.HeaderContentType), f)
	if err != nil {
		return errors.Wrap(err, "adding attachment")
	}
	return respond(ctx, http.StatusCreated, hw)
}

func (api *homeworkApi) download(ctx echo.Context) error {
	hw, ok := ctx.Get("object").(homework.Homework)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving homework")
	}
	hw, err := api.visible(ctx, hw)
	if err != nil {
		return err
	}
	index, ok := bindIndex(ctx, "fileIndex")
	if !ok {
		return homework.ErrAttachmentNotFound
	}

	att, rc, err := api.svc.OpenAttachment(ctx.Request().Context(), hw, index)
	if err != nil {
		return err
	}
	defer rc.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", att.Name))
	return ctx.Stream(http.StatusOK, att.ContentType, rc)
}

func (api *homeworkApi) submissions(ctx echo.Context) error {
	hw, ok := ctx.Get("object").(homework.Homework)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving homework")
	}
	subs, err := api.svc.Submissions(ctx.Request().Context(), homework.SubmissionFilter{HomeworkID: hw.ID})
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []homework.Submission{}
	}
	return respond(ctx, http.StatusOK, subs)
}

func (api *homeworkApi) submit(ctx echo.Context) error {
	hw, ok := ctx.Get("object").(homework.Homework)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving homework")
	}
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	std, err := api.students.Get(ctx.Request().Context(), s.UserID)
	if err != nil {
		return err
	}
	if hw.Level != std.Level {
		return homework.ErrNotFound
	}

	var data homework.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), hw, std.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting homework")
	}
	api.metrics.Submitted("homework")
	return respond(ctx, http.StatusCreated, sub)
}

func (api *homeworkApi) grade(ctx echo.Context) error {
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data homework.Grade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Grade")
	}
	if err = data.Validate(sub, api.validate); err != nil {
		return err
	}

	if sub, err = api.svc.GradeSubmission(ctx.Request().Context(), sub, data); err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return respond(ctx, http.StatusOK, sub)
}

func (api *homeworkApi) mine(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	std, err := api.students.Get(ctx.Request().Context(), s.UserID)
	if err != nil {
		return err
	}
	hws, err := api.svc.ForLevel(ctx.Request().Context(), std.Level)
	if err != nil {
		return errors.Wrap(err, "querying homework")
	}
	if hws == nil {
		hws = []homework.Homework{}
	}
	return respond(ctx, http.StatusOK, hws)
}

func (api *homeworkApi) mySubmission(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.StudentSubmission(ctx.Request().Context(), ctx.Param("id"), s.UserID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, sub)
}

func homeworkObject(svc *homework.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			hw, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set("object", hw)
			return next(ctx)
		}
	}
}
