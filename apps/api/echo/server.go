// Package echoapi serves the REST API of the platform with echo.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
	metricsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/metrics"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Metrics        *metricsvc.Metrics
		DisableReqLogs bool

		// Sessions is only handed to the auth endpoints; everything else reads through the Hydrator.
		Sessions    *session.Store
		UserSvc     *user.Service
		StudentSvc  *student.Service
		HomeworkSvc *homework.Service
		GradeSvc    *grade.Service
		ScheduleSvc *schedule.Service
		ExamSvc     *exam.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.CORSAllowOrigins,
		AllowCredentials: true,
	}))
	if conf.Media.MaxUploadSize > 0 {
		// multipart overhead on top of the largest accepted file
		s.app.Use(middleware.BodyLimit(strconv.FormatInt(conf.Media.MaxUploadSize+1<<20, 10)))
	}
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
	}

	tokens := newTokenSigner(conf)
	hydrator := session.NewHydrator(s.deps.Sessions.Reader(), s.deps.UserSvc, conf.Server.HydrationTimeout)
	s.app.Use(sessionMiddleware(tokens, hydrator))

	s.app.GET("/", home)

	g := s.app.Group("/api")
	validate := s.deps.Validate

	registerGateAPI(g)
	registerSchemaAPI(g)
	registerShellAPI(g, &shellApi{breakpoint: conf.Shell.Breakpoint})
	registerAuthAPI(g, &authApi{svc: s.deps.UserSvc, sessions: s.deps.Sessions, tokens: tokens, validate: validate},
		newRateLimiter(conf.Server.LoginRateLimit, authRateWindow))
	registerStudentAPI(g, &studentApi{svc: s.deps.StudentSvc, validate: validate})
	registerUserAPI(g, &userApi{svc: s.deps.UserSvc, sessions: s.deps.Sessions, validate: validate})
	registerHomeworkAPI(g, &homeworkApi{
		svc:           s.deps.HomeworkSvc,
		students:      s.deps.StudentSvc,
		metrics:       s.deps.Metrics,
		validate:      validate,
		maxUploadSize: conf.Media.MaxUploadSize,
	})
	registerGradeAPI(g, &gradeApi{svc: s.deps.GradeSvc, students: s.deps.StudentSvc, validate: validate})
	registerScheduleAPI(g, &scheduleApi{svc: s.deps.ScheduleSvc, students: s.deps.StudentSvc, validate: validate})
	registerExamAPI(g, &examApi{svc: s.deps.ExamSvc, students: s.deps.StudentSvc, metrics: s.deps.Metrics, validate: validate})
	registerParentAPI(g, &parentApi{students: s.deps.StudentSvc, grades: s.deps.GradeSvc, exams: s.deps.ExamSvc})
}

// Start listens until Shutdown; listener errors are reported on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the process to stop as if it received SIGTERM.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Madrasa API!")
}
