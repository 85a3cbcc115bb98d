package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
	metricsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/metrics"
)

const mimeTextCSV = "text/csv; charset=utf-8"

type examApi struct {
	svc      *exam.Service
	students *student.Service
	metrics  *metricsvc.Metrics
	validate *validator.Validate
}

func registerExamAPI(g *echo.Group, api *examApi) {
	eg := g.Group("/exams")
	eg.GET("", api.query, adminOnly)
	eg.POST("", api.create, adminOnly)

	// detail endpoints
	dg := eg.Group("/:id", authOnly, examObject(api.svc))
	dg.GET("", api.retrieve, adminOnly)
	dg.PUT("", api.update, adminOnly)
	dg.DELETE("", api.destroy, adminOnly)
	dg.GET("/results", api.results, adminOnly)
	dg.GET("/results/export", api.export, adminOnly)
	dg.GET("/statistics", api.statistics, adminOnly)
	dg.POST("/submit", api.submit, studentOnly)

	sg := g.Group("/student/exams", studentOnly)
	sg.GET("", api.available)
	sg.GET("/results", api.myResults)
	sg.GET("/:id", api.take)
}

func (api *examApi) query(ctx echo.Context) error {
	var filter exam.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	var ordering Ordering
	ordering.Bind(ctx)

	exams, err := api.svc.Filter(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	if exams == nil {
		exams = []exam.Exam{}
	}
	return respondPage(ctx, exams, len(exams))
}

func (api *examApi) create(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	var data exam.NewExam
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Create(ctx.Request().Context(), data, s.UserID)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return respond(ctx, http.StatusCreated, e)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	e, ok := ctx.Get("object").(exam.Exam)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving exam")
	}
	return respond(ctx, http.StatusOK, e)
}

func (api *examApi) update(ctx echo.Context) error {
	e, ok := ctx.Get("object").(exam.Exam)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving exam")
	}

	var data exam.UpdateExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateExam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Update(ctx.Request().Context(), e, data)
	if err != nil {
		return errors.Wrap(err, "updating exam")
	}
	return respond(ctx, http.StatusOK, e)
}

func (api *examApi) destroy(ctx echo.Context) error {
	e, ok := ctx.Get("object").(exam.Exam)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving exam")
	}
	if err := api.svc.Delete(ctx.Request().Context(), e.ID); err != nil {
		return errors.Wrap(err, "deleting exam")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) results(ctx echo.Context) error {
	e, ok := ctx.Get("object").(exam.Exam)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving exam")
	}
	results, err := api.svc.Results(ctx.Request().Context(), e.ID)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []exam.Result{}
	}
	return respond(ctx, http.StatusOK, results)
}

func (api *examApi) statistics(ctx echo.Context) error {
	e, ok := ctx.Get("object").(exam.Exam)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving exam")
	}
	stats, err := api.svc.Statistics(ctx.Request().Context(), e)
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return respond(ctx, http.StatusOK, stats)
}

func (api *examApi) export(ctx echo.Context) error {
	e, ok := ctx.Get("object").(exam.Exam)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving exam")
	}
	doc, filename, err := api.svc.Export(ctx.Request().Context(), e)
	if err != nil {
		return errors.Wrap(err, "exporting results")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, mimeTextCSV, doc)
}

func (api *examApi) currentStudent(ctx echo.Context) (student.Student, error) {
	s, err := contextSession(ctx)
	if err != nil {
		return student.Student{}, err
	}
	return api.students.Get(ctx.Request().Context(), s.UserID)
}

func (api *examApi) submit(ctx echo.Context) error {
	e, ok := ctx.Get("object").(exam.Exam)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving exam")
	}
	std, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}

	var data exam.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Submit(ctx.Request().Context(), e, std, data)
	if err != nil {
		return errors.Wrap(err, "submitting exam")
	}
	api.metrics.Submitted("exam")
	return respond(ctx, http.StatusCreated, r)
}

func (api *examApi) available(ctx echo.Context) error {
	std, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	exams, err := api.svc.Available(ctx.Request().Context(), std.Level)
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	return respond(ctx, http.StatusOK, exams)
}

// take returns an exam open to the student, without the answer key.
func (api *examApi) take(ctx echo.Context) error {
	std, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !e.OpenTo(std.Level) {
		return exam.ErrNotFound
	}
	return respond(ctx, http.StatusOK, e.Public())
}

func (api *examApi) myResults(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	results, err := api.svc.StudentResults(ctx.Request().Context(), s.UserID)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []exam.Result{}
	}
	return respond(ctx, http.StatusOK, results)
}

func examObject(svc *exam.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			e, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set("object", e)
			return next(ctx)
		}
	}
}
