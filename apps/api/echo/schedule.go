package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
)

type scheduleApi struct {
	svc      *schedule.Service
	students *student.Service
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, api *scheduleApi) {
	sg := g.Group("/schedules", adminOnly)
	sg.GET("", api.query)
	sg.POST("", api.create)

	// detail endpoints
	dg := sg.Group("/:id", scheduleObject(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	mg := g.Group("/student/schedules", studentOnly)
	mg.GET("/available", api.available)
	mg.GET("/mine", api.mine)
	mg.POST("/:id/register", api.register)
	mg.DELETE("/:id/register", api.unregister)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	var filter schedule.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ss, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if ss == nil {
		ss = []schedule.Schedule{}
	}
	return respondPage(ctx, ss, len(ss))
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return respond(ctx, http.StatusCreated, s)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get("object").(schedule.Schedule)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving schedule")
	}
	return respond(ctx, http.StatusOK, s)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	s, ok := ctx.Get("object").(schedule.Schedule)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving schedule")
	}

	var data schedule.UpdateSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err := data.Validate(s, api.validate); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return respond(ctx, http.StatusOK, s)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get("object").(schedule.Schedule)
	if !ok {
		return errors.Wrap(errObjNotInCtx, "retrieving schedule")
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) currentStudent(ctx echo.Context) (student.Student, error) {
	s, err := contextSession(ctx)
	if err != nil {
		return student.Student{}, err
	}
	return api.students.Get(ctx.Request().Context(), s.UserID)
}

func (api *scheduleApi) available(ctx echo.Context) error {
	std, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	ss, err := api.svc.Available(ctx.Request().Context(), std.ID, std.Level)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	return respond(ctx, http.StatusOK, ss)
}

func (api *scheduleApi) mine(ctx echo.Context) error {
	std, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	ss, err := api.svc.Mine(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	return respond(ctx, http.StatusOK, ss)
}

func (api *scheduleApi) register(ctx echo.Context) error {
	std, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	ss, err := api.svc.Register(ctx.Request().Context(), ctx.Param("id"), std.ID, std.Level)
	if err != nil {
		return errors.Wrap(err, "registering")
	}
	return respond(ctx, http.StatusCreated, ss)
}

func (api *scheduleApi) unregister(ctx echo.Context) error {
	std, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Unregister(ctx.Request().Context(), ctx.Param("id"), std.ID); err != nil {
		return errors.Wrap(err, "unregistering")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func scheduleObject(svc *schedule.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			s, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set("object", s)
			return next(ctx)
		}
	}
}
