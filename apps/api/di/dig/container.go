// Package digcontainer builds the dependency graph of the API server.
package digcontainer

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/karemsaeed20020/Education-Platform-sub002/apps/api/echo"
	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
	emailsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/email"
	jobsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/jobs"
	logsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/logger"
	metricsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/metrics"
	"github.com/karemsaeed20020/Education-Platform-sub002/storage/database"
	sqlxrepos "github.com/karemsaeed20020/Education-Platform-sub002/storage/database/sqlx"
	filestore "github.com/karemsaeed20020/Education-Platform-sub002/storage/files"
)

type (
	// Loggers are the named loggers of the API.
	Loggers struct {
		dig.In
		API *logsvc.RollbarLogger `name:"apiLogger"`
		DB  *logsvc.RollbarLogger `name:"dbLogger"`
	}

	serverParams struct {
		dig.In
		Conf        *core.Config
		Logger      *logsvc.RollbarLogger `name:"apiLogger"`
		Validate    *validator.Validate
		Translator  ut.Translator
		Metrics     *metricsvc.Metrics
		Sessions    *session.Store
		UserSvc     *user.Service
		StudentSvc  *student.Service
		HomeworkSvc *homework.Service
		GradeSvc    *grade.Service
		ScheduleSvc *schedule.Service
		ExamSvc     *exam.Service
	}
)

func newLogger(name string) func(conf *core.Config) *logsvc.RollbarLogger {
	return func(conf *core.Config) *logsvc.RollbarLogger {
		logger := logsvc.NewRollbarLogger(logsvc.NewZap(conf, name), conf)
		logger.Enable(!conf.Debug && conf.RollbarToken != "")
		return logger
	}
}

type dbParams struct {
	dig.In
	Conf   *core.Config
	Logger *logsvc.RollbarLogger `name:"dbLogger"`
}

func newDB(p dbParams) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.Conf.Server.ShutdownTimeout)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, p.Conf); err != nil {
		// the app user may lack the rights to create; the database may still be there
		p.Logger.Warn(fmt.Sprintf("creating database: %v", err))
	}
	db, err := database.Open(p.Conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newEmailService(conf *core.Config, p Loggers) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, p.API)
	}
	return emailsvc.NewSendgridService(conf, p.API)
}

func newFileStore(conf *core.Config) (core.FileStore, error) {
	return filestore.NewDiskStore(conf)
}

func newSessionStore(conf *core.Config, repo session.Repository) *session.Store {
	return session.NewStore(repo, conf.Server.JWTExpirationDelta)
}

func newUserService(conf *core.Config, repo user.Repository, mailSvc core.EmailService, p Loggers) *user.Service {
	return user.NewService(conf, repo, mailSvc, p.API)
}

func newHomeworkService(repo homework.Repository, files core.FileStore, p Loggers) *homework.Service {
	return homework.NewService(repo, files, p.API)
}

func newScheduler(sessions *session.Store, usrSvc *user.Service, metrics *metricsvc.Metrics, p Loggers) *jobsvc.Scheduler {
	return jobsvc.NewScheduler(sessions, usrSvc, metrics, p.API)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		Metrics:     p.Metrics,
		Sessions:    p.Sessions,
		UserSvc:     p.UserSvc,
		StudentSvc:  p.StudentSvc,
		HomeworkSvc: p.HomeworkSvc,
		GradeSvc:    p.GradeSvc,
		ScheduleSvc: p.ScheduleSvc,
		ExamSvc:     p.ExamSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	// ambient
	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger("api"), dig.Name("apiLogger")))
	must(c.Provide(newLogger("db"), dig.Name("dbLogger")))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(core.NewValidate))
	must(c.Provide(metricsvc.New))

	// storage
	must(c.Provide(newDB))
	must(c.Provide(newFileStore))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewSessionRepository))
	must(c.Provide(sqlxrepos.NewStudentRepository))
	must(c.Provide(sqlxrepos.NewHomeworkRepository))
	must(c.Provide(sqlxrepos.NewGradeRepository))
	must(c.Provide(sqlxrepos.NewScheduleRepository))
	must(c.Provide(sqlxrepos.NewExamRepository))

	// services
	must(c.Provide(newEmailService))
	must(c.Provide(newSessionStore))
	must(c.Provide(newUserService))
	must(c.Provide(student.NewService))
	must(c.Provide(newHomeworkService))
	must(c.Provide(grade.NewService))
	must(c.Provide(schedule.NewService))
	must(c.Provide(exam.NewService))
	must(c.Provide(newScheduler))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
