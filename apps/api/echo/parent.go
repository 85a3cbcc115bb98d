package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
)

// parentApi gives parents a read-only view of their children.
type parentApi struct {
	students *student.Service
	grades   *grade.Service
	exams    *exam.Service
}

func registerParentAPI(g *echo.Group, api *parentApi) {
	pg := g.Group("/parent/children", parentOnly)
	pg.GET("", api.children)

	dg := pg.Group("/:id", childObject(api.students))
	dg.GET("/grades", api.childGrades)
	dg.GET("/results", api.childResults)
}

func (api *parentApi) children(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	children, err := api.students.ChildrenOf(ctx.Request().Context(), s.UserID)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	if children == nil {
		children = []student.Student{}
	}
	return respond(ctx, http.StatusOK, children)
}

func (api *parentApi) childGrades(ctx echo.Context) error {
	grades, err := api.grades.OfStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying daily grades")
	}
	if grades == nil {
		grades = []grade.DailyGrade{}
	}
	return respond(ctx, http.StatusOK, grades)
}

func (api *parentApi) childResults(ctx echo.Context) error {
	results, err := api.exams.StudentResults(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []exam.Result{}
	}
	return respond(ctx, http.StatusOK, results)
}

// childObject lets the request through only for a student linked to the session's parent.
// Other students are reported as not found.
func childObject(svc *student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			s, err := contextSession(ctx)
			if err != nil {
				return err
			}
			ok, err := svc.IsChildOf(ctx.Request().Context(), ctx.Param("id"), s.UserID)
			if err != nil {
				return errors.Wrap(err, "checking child")
			}
			if !ok {
				return student.ErrNotFound
			}
			return next(ctx)
		}
	}
}
