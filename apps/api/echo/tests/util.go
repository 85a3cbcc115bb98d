package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
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

// testEnv is one server over a fresh in-memory database.
type testEnv struct {
	conf    *core.Config
	app     *echoapi.Server
	mailSvc *emailsvc.ConsoleServiceMock

	usrRepo  user.Repository
	sessions *session.Store
	usrSvc   *user.Service
	stdSvc   *student.Service
	hwSvc    *homework.Service
	gradeSvc *grade.Service
	schedSvc *schedule.Service
	examSvc  *exam.Service
}

func setup(t *testing.T, opts ...func(conf *core.Config)) *testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Media.Dir = t.TempDir()
	for _, opt := range opts {
		opt(conf)
	}

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)

	files, err := filestore.NewDiskStore(conf)
	require.NoError(t, err)

	// set up services
	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	user.InitValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(conf, usrRepo, mailSvc, core.NopLogger{})
	sessions := session.NewStore(inmemdb.NewSessionRepository(db), conf.Server.JWTExpirationDelta)

	env := &testEnv{
		conf:     conf,
		mailSvc:  mailSvc,
		usrRepo:  usrRepo,
		sessions: sessions,
		usrSvc:   usrSvc,
		stdSvc:   student.NewService(inmemdb.NewStudentRepository(db), usrSvc),
		hwSvc:    homework.NewService(inmemdb.NewHomeworkRepository(db), files, core.NopLogger{}),
		gradeSvc: grade.NewService(inmemdb.NewGradeRepository(db)),
		schedSvc: schedule.NewService(inmemdb.NewScheduleRepository(db)),
		examSvc:  exam.NewService(inmemdb.NewExamRepository(db)),
	}

	// set up server
	env.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         core.NopLogger{},
		Validate:       validate,
		Translator:     translator,
		Metrics:        metricsvc.New(conf),
		DisableReqLogs: true,
		Sessions:       sessions,
		UserSvc:        usrSvc,
		StudentSvc:     env.stdSvc,
		HomeworkSvc:    env.hwSvc,
		GradeSvc:       env.gradeSvc,
		ScheduleSvc:    env.schedSvc,
		ExamSvc:        env.examSvc,
	})
	return env
}

func (env *testEnv) createUser(t *testing.T, name, email string, role session.Role, isActive bool) user.User {
	t.Helper()
	ctx := context.Background()
	usr, err := env.usrSvc.Create(ctx, user.NewUser{
		Name:            name,
		Username:        email,
		Email:           email,
		Role:            role,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	if !isActive {
		usr.IsActive = false
		usr, err = env.usrRepo.UpdateUser(ctx, usr)
		require.NoError(t, err)
	}
	return usr
}

func (env *testEnv) createStudent(t *testing.T, name, email, level string, parentID ...string) student.Student {
	t.Helper()
	ns := student.NewStudent{
		Name:            name,
		Email:           email,
		Level:           level,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	}
	if len(parentID) > 0 {
		ns.ParentID = parentID[0]
	}
	std, err := env.stdSvc.Create(context.Background(), ns)
	require.NoError(t, err)
	return std
}

// login goes through the login endpoint and returns the session cookie it set.
func (env *testEnv) login(t *testing.T, login string) *http.Cookie {
	t.Helper()
	body := marshalObj(t, echoapi.LoginRequest{Username: login, Password: testPassword})
	rec := env.do(http.MethodPost, "/api/auth/login", nil, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, env.conf, rec)
}

func sessionCookie(t *testing.T, conf *core.Config, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == conf.Server.CookieName {
			return c
		}
	}
	t.Fatalf("no %q cookie in response", conf.Server.CookieName)
	return nil
}

func (env *testEnv) do(method, path string, cookie *http.Cookie, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, cookie, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookie   *http.Cookie
	wantCode int
	wantData []byte // compared with the envelope's data when set
}

func (env *testEnv) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.cookie, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newRequest(method, path string, cookie *http.Cookie, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 && data[0] != nil {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	return req, httptest.NewRecorder()
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// decodeData unmarshals the envelope's data into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, v), rec.Body.String())
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	l1, ok1 := j1.([]interface{})
	l2, ok2 := j2.([]interface{})
	if !ok1 || !ok2 {
		return false, nil
	}
	return assert.ElementsMatch(t, l1, l2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, decodeEnvelope(t, rec).Data, tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
