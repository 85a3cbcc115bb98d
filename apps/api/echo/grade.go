package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
)

type gradeApi struct {
	svc      *grade.Service
	students *student.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, api *gradeApi) {
	gg := g.Group("/daily-grades", adminOnly)
	gg.GET("", api.query)
	gg.POST("", api.create)

	// detail endpoints
	dg := gg.Group("/:id", gradeObject(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	g.GET("/student/daily-grades", api.mine, studentOnly)
}

func bindGradeFilter(ctx echo.Context) (grade.QueryFilter, error) {
	var filter grade.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return filter, errors.Wrap(err, "binding to QueryFilter")
	}
	var err error
	if filter.From, err = bindDate(ctx, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = bindDate(ctx, "to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (api *gradeApi) query(ctx echo.Context) error {
	filter, err := bindGradeFilter(ctx)
	if err != nil {
		return err
	}
	var ordering Ordering
	ordering.Bind(ctx)

	grades, err := api.svc.Filter(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying daily grades")
	}
	if grades == nil {
		grades = []grade.DailyGrade{}
	}
	return respondPage(ctx, grades, len(grades))
}

func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewDailyGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDailyGrade")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.students); err != nil {
		return err
	}

	g, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating daily grade")
	}
	return respond(ctx, http.StatusCreated, g)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	g, ok := ctx.Get("object").(grade.DailyGrade)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving daily grade")
	}
	return respond(ctx, http.StatusOK, g)
}

func (api *gradeApi) update(ctx echo.Context) error {
	g, ok := ctx.Get("object").(grade.DailyGrade)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving daily grade")
	}

	var data grade.UpdateDailyGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDailyGrade")
	}
	if err := data.Validate(g, api.validate); err != nil {
		return err
	}

	g, err := api.svc.Update(ctx.Request().Context(), g, data)
	if err != nil {
		return errors.Wrap(err, "updating daily grade")
	}
	return respond(ctx, http.StatusOK, g)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	g, ok := ctx.Get("object").(grade.DailyGrade)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving daily grade")
	}
	if err := api.svc.Delete(ctx.Request().Context(), g.ID); err != nil {
		return errors.Wrap(err, "deleting daily grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *gradeApi) mine(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	grades, err := api.svc.OfStudent(ctx.Request().Context(), s.UserID)
	if err != nil {
		return errors.Wrap(err, "querying daily grades")
	}
	if grades == nil {
		grades = []grade.DailyGrade{}
	}
	return respond(ctx, http.StatusOK, grades)
}

func gradeObject(svc *grade.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			g, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set("object", g)
			return next(ctx)
		}
	}
}
