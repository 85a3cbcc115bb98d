package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

var errUnknownEntity = core.NewNotFoundError("unknown entity")

// schemas are the request bodies clients may pre-validate, by entity name.
var schemas = map[string]interface{}{
	"user":                user.NewUser{},
	"user_update":         user.UpdateUser{},
	"password_reset":      user.ResetUserPassword{},
	"student":             student.NewStudent{},
	"student_update":      student.UpdateStudent{},
	"homework":            homework.NewHomework{},
	"homework_update":     homework.UpdateHomework{},
	"homework_question":   homework.NewQuestion{},
	"homework_submission": homework.NewSubmission{},
	"homework_grade":      homework.Grade{},
	"daily_grade":         grade.NewDailyGrade{},
	"daily_grade_update":  grade.UpdateDailyGrade{},
	"schedule":            schedule.NewSchedule{},
	"schedule_update":     schedule.UpdateSchedule{},
	"exam":                exam.NewExam{},
	"exam_update":         exam.UpdateExam{},
	"exam_question":       exam.NewQuestion{},
	"exam_submission":     exam.NewSubmission{},
}

// Schema lists the validation rules the server applies to one request body.
type Schema struct {
	Entity string           `json:"entity"`
	Fields []core.FieldRule `json:"fields"`
}

func registerSchemaAPI(g *echo.Group) {
	g.GET("/schema/:entity", schemaOf)
}

func schemaOf(ctx echo.Context) error {
	entity := ctx.Param("entity")
	v, ok := schemas[entity]
	if !ok {
		return errUnknownEntity
	}
	return respond(ctx, http.StatusOK, Schema{Entity: entity, Fields: core.DescribeRules(v)})
}
