package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

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
	metricsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/metrics"
	inmemdb "github.com/karemsaeed20020/Education-Platform-sub002/storage/database/inmem"
	filestore "github.com/karemsaeed20020/Education-Platform-sub002/storage/files"
)

const testPassword = "pass123"

// requestLog counts the requests that reached the server, by "METHOD path".
type requestLog struct {
	mu    sync.Mutex
	calls map[string]int
	total int
}

func (l *requestLog) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		if l.calls == nil {
			l.calls = make(map[string]int)
		}
		l.calls[r.Method+" "+r.URL.Path]++
		l.total++
		l.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (l *requestLog) count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[key]
}

func (l *requestLog) all() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// testEnv is a real API server over a fresh in-memory database.
type testEnv struct {
	srv      *httptest.Server
	requests *requestLog

	usrSvc  *user.Service
	stdSvc  *student.Service
	examSvc *exam.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Media.Dir = t.TempDir()

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	files, err := filestore.NewDiskStore(conf)
	require.NoError(t, err)

	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	user.InitValidators(validate, translator)

	usrSvc := user.NewServiceMock(conf, usrRepo, emailsvc.NewConsoleServiceMock(conf), core.NopLogger{})
	env := &testEnv{
		requests: &requestLog{},
		usrSvc:   usrSvc,
		stdSvc:   student.NewService(inmemdb.NewStudentRepository(db), usrSvc),
		examSvc:  exam.NewService(inmemdb.NewExamRepository(db)),
	}
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         core.NopLogger{},
		Validate:       validate,
		Translator:     translator,
		Metrics:        metricsvc.New(conf),
		DisableReqLogs: true,
		Sessions:       session.NewStore(inmemdb.NewSessionRepository(db), conf.Server.JWTExpirationDelta),
		UserSvc:        usrSvc,
		StudentSvc:     env.stdSvc,
		HomeworkSvc:    homework.NewService(inmemdb.NewHomeworkRepository(db), files, core.NopLogger{}),
		GradeSvc:       grade.NewService(inmemdb.NewGradeRepository(db)),
		ScheduleSvc:    schedule.NewService(inmemdb.NewScheduleRepository(db)),
		ExamSvc:        env.examSvc,
	})
	env.srv = httptest.NewServer(env.requests.wrap(app))
	t.Cleanup(env.srv.Close)
	return env
}

func (env *testEnv) createAdmin(t *testing.T, email string) user.User {
	t.Helper()
	usr, err := env.usrSvc.Create(context.Background(), user.NewUser{
		Name:            "Admin",
		Email:           email,
		Role:            session.RoleAdmin,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	return usr
}

func (env *testEnv) createStudent(t *testing.T, name, email, level string) student.Student {
	t.Helper()
	std, err := env.stdSvc.Create(context.Background(), student.NewStudent{
		Name:            name,
		Email:           email,
		Level:           level,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	return std
}

// client returns a logged in client with its own cookie jar and notification recorder.
func (env *testEnv) client(t *testing.T, login string, opts ...Option) (*Client, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	c, err := New(env.srv.URL, append([]Option{WithNotifier(rec)}, opts...)...)
	require.NoError(t, err)
	if login != "" {
		_, err = c.Login(context.Background(), login, testPassword)
		require.NoError(t, err)
	}
	return c, rec
}
