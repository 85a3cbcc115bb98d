package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/karemsaeed20020/Education-Platform-sub002/apps/api/echo"
	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

func Test_authApi_login(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	env.createUser(t, "Gone", "gone@test.cd", session.RoleParent, false)

	login := func(uname, pwd string) []byte {
		return marshalObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}

	env.run(t, []httpTest{
		{
			name:     "empty body",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     login("nobody@test.cd", testPassword),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     login("admin@test.cd", "wrong-pass"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     login("gone@test.cd", testPassword),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "ok, case insensitive",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     login(" ADMIN@test.cd ", testPassword),
			wantCode: http.StatusOK,
		},
	})
}

func Test_authApi_sessionLifecycle(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)

	rec := env.do(http.MethodPost, "/api/auth/login", nil, marshalObj(t, echoapi.LoginRequest{Username: "admin@test.cd", Password: testPassword}))
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, env.conf, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	var resp struct {
		User    user.User       `json:"user"`
		Session session.Session `json:"session"`
	}
	decodeData(t, rec, &resp)
	assert.Equal(t, admin.ID, resp.User.ID)
	assert.Equal(t, session.RoleAdmin, resp.Session.Role)
	assert.True(t, resp.User.LastLogin.Valid)

	// the cookie hydrates
	rec = env.do(http.MethodGet, "/api/auth/me", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &resp)
	assert.Equal(t, admin.Email, resp.Session.Email)

	// logout destroys the session and clears the cookie
	rec = env.do(http.MethodPost, "/api/auth/logout", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, sessionCookie(t, env.conf, rec).MaxAge)

	rec = env.do(http.MethodGet, "/api/auth/me", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"redirect": "/login"}`, string(decodeEnvelope(t, rec).Data))
}

func Test_authApi_forgedCookie(t *testing.T) {
	env := setup(t)
	forged := &http.Cookie{Name: env.conf.Server.CookieName, Value: "not.a.jwt"}

	rec := env.do(http.MethodGet, "/api/auth/me", forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, -1, sessionCookie(t, env.conf, rec).MaxAge)
}

func Test_authApi_otp(t *testing.T) {
	env := setup(t)
	parent := env.createUser(t, "Parent", "parent@test.cd", session.RoleParent, true)
	require.False(t, parent.IsVerified)

	// unknown emails get the same answer
	rec := env.do(http.MethodPost, "/api/auth/otp/request", nil, []byte(`{"email": "nobody@test.cd"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	_, sent := env.mailSvc.LastMessage()
	assert.False(t, sent)

	rec = env.do(http.MethodPost, "/api/auth/otp/request", nil, []byte(`{"email": "parent@test.cd"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	msg, sent := env.mailSvc.LastMessage()
	require.True(t, sent)
	assert.Equal(t, parent.Email, msg.To[0].Address)
	code, _ := msg.TemplateData.(map[string]interface{})["Code"].(string)
	require.Len(t, code, env.conf.OTP.Length)

	verify := func(code string) []byte {
		return marshalObj(t, echoapi.OTPVerifyRequest{Email: "parent@test.cd", Code: code})
	}
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	env.run(t, []httpTest{
		{
			name:     "not numeric",
			method:   http.MethodPost,
			path:     "/api/auth/otp/verify",
			body:     verify("abc"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong code",
			method:   http.MethodPost,
			path:     "/api/auth/otp/verify",
			body:     verify(wrong),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"code": user.ErrInvalidOTP.Error()}),
		},
		{
			name:     "ok",
			method:   http.MethodPost,
			path:     "/api/auth/otp/verify",
			body:     verify(code),
			wantCode: http.StatusOK,
		},
		{
			name:     "code is single use",
			method:   http.MethodPost,
			path:     "/api/auth/otp/verify",
			body:     verify(code),
			wantCode: http.StatusBadRequest,
		},
	})

	usr, err := env.usrSvc.GetByID(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.True(t, usr.IsVerified)
}

func Test_authApi_passwordReset(t *testing.T) {
	env := setup(t)
	std := env.createUser(t, "Student", "std@test.cd", session.RoleStudent, true)
	cookie := env.login(t, "std@test.cd")

	rec := env.do(http.MethodPost, "/api/auth/password-reset", nil, []byte(`{"email": "std@test.cd"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	msg, sent := env.mailSvc.LastMessage()
	require.True(t, sent)
	data := msg.TemplateData.(map[string]interface{})

	confirm := func(token, uid, pwd string) []byte {
		return marshalObj(t, user.ResetUserPassword{Token: token, UID: uid, Password: pwd, PasswordConfirm: pwd})
	}

	env.run(t, []httpTest{
		{
			name:     "bad token",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset-confirm",
			body:     confirm("bad-token", user.EncodeUID(std), "newpass1"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "ok",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset-confirm",
			body:     confirm(data["Token"].(string), data["UID"].(string), "newpass1"),
			wantCode: http.StatusOK,
		},
	})

	// every session of the user is gone
	rec = env.do(http.MethodGet, "/api/auth/me", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", nil, marshalObj(t, echoapi.LoginRequest{Username: "std@test.cd", Password: "newpass1"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_rateLimit(t *testing.T) {
	env := setup(t, func(conf *core.Config) { conf.Server.LoginRateLimit = 2 })
	body := marshalObj(t, echoapi.LoginRequest{Username: "nobody@test.cd", Password: testPassword})

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/api/auth/login", nil, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := env.do(http.MethodPost, "/api/auth/login", nil, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other endpoints are not limited
	rec = env.do(http.MethodGet, "/api/gate?route=/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_rateLimitIgnoresForwardingHeaders(t *testing.T) {
	env := setup(t, func(conf *core.Config) { conf.Server.LoginRateLimit = 2 })
	body := marshalObj(t, echoapi.LoginRequest{Username: "nobody@test.cd", Password: testPassword})

	attempt := func(remoteAddr, forwarded string) int {
		req, rec := newRequest(http.MethodPost, "/api/auth/login", nil, body)
		req.RemoteAddr = remoteAddr
		if forwarded != "" {
			req.Header.Set(echo.HeaderXRealIP, forwarded)
			req.Header.Set(echo.HeaderXForwardedFor, forwarded)
		}
		env.app.ServeHTTP(rec, req)
		return rec.Code
	}

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		codes = append(codes, attempt("10.0.0.7:5000", fmt.Sprintf("203.0.113.%d", i+1)))
	}
	assert.Equal(t, []int{
		http.StatusBadRequest, http.StatusBadRequest,
		http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)

	// another peer has its own window, whatever port it comes from
	assert.Equal(t, http.StatusBadRequest, attempt("10.0.0.8:6000", ""))
	assert.Equal(t, http.StatusBadRequest, attempt("10.0.0.8:6001", ""))
	assert.Equal(t, http.StatusTooManyRequests, attempt("10.0.0.8:6002", ""))
}

func Test_authApi_deactivationEndsSessions(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	prt := env.createUser(t, "Parent", "parent@test.cd", session.RoleParent, true)
	adminCookie := env.login(t, "admin@test.cd")
	prtCookie := env.login(t, "parent@test.cd")

	rec := env.do(http.MethodGet, "/api/auth/me", prtCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPatch, "/api/users/"+prt.ID, adminCookie, []byte(`{"is_active": false}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/auth/me", prtCookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
