package tests

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

func Test_gateRoute(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	env.createUser(t, "Student", "std@test.cd", session.RoleStudent, true)
	env.createUser(t, "Parent", "parent@test.cd", session.RoleParent, true)
	adminCookie := env.login(t, "admin@test.cd")
	stdCookie := env.login(t, "std@test.cd")
	prtCookie := env.login(t, "parent@test.cd")

	path := func(route string) string {
		return "/api/gate?route=" + url.QueryEscape(route)
	}
	render := func(role string) []byte {
		if role == "" {
			return []byte(`{"action": "render"}`)
		}
		return []byte(`{"action": "render", "role": "` + role + `"}`)
	}
	redirect := func(to, role string) []byte {
		if role == "" {
			return []byte(`{"action": "redirect", "redirect": "` + to + `"}`)
		}
		return []byte(`{"action": "redirect", "redirect": "` + to + `", "role": "` + role + `"}`)
	}

	env.run(t, []httpTest{
		{name: "public, anonymous", method: http.MethodGet, path: path("/about"), wantCode: http.StatusOK, wantData: render("")},
		{name: "login page, anonymous", method: http.MethodGet, path: path("/login"), wantCode: http.StatusOK, wantData: render("")},
		{name: "admin, anonymous", method: http.MethodGet, path: path("/admin/users"), wantCode: http.StatusOK, wantData: redirect("/login", "")},
		{name: "dashboard, anonymous", method: http.MethodGet, path: path("/dashboard"), wantCode: http.StatusOK, wantData: redirect("/login", "")},
		{name: "admin, admin", method: http.MethodGet, path: path("/admin/users"), cookie: adminCookie, wantCode: http.StatusOK, wantData: render("admin")},
		{name: "admin, student", method: http.MethodGet, path: path("/admin/users"), cookie: stdCookie, wantCode: http.StatusOK, wantData: redirect("/student/dashboard", "student")},
		{name: "student, parent", method: http.MethodGet, path: path("/student/exams?id=1"), cookie: prtCookie, wantCode: http.StatusOK, wantData: redirect("/parent/dashboard", "parent")},
		{name: "parent, parent", method: http.MethodGet, path: path("/parent/children/"), cookie: prtCookie, wantCode: http.StatusOK, wantData: render("parent")},
		{name: "prefix is not a segment", method: http.MethodGet, path: path("/administration"), cookie: stdCookie, wantCode: http.StatusOK, wantData: render("student")},
		{name: "profile, any role", method: http.MethodGet, path: path("/profile"), cookie: stdCookie, wantCode: http.StatusOK, wantData: render("student")},
	})
}

func Test_apiGate(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	env.createUser(t, "Student", "std@test.cd", session.RoleStudent, true)
	env.createUser(t, "Parent", "parent@test.cd", session.RoleParent, true)
	adminCookie := env.login(t, "admin@test.cd")
	stdCookie := env.login(t, "std@test.cd")
	prtCookie := env.login(t, "parent@test.cd")

	env.run(t, []httpTest{
		{
			name:     "anonymous on admin endpoint",
			method:   http.MethodGet,
			path:     "/api/users/students",
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"redirect": "/login"}`),
		},
		{
			name:     "student on admin endpoint",
			method:   http.MethodGet,
			path:     "/api/users/students",
			cookie:   stdCookie,
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"redirect": "/student/dashboard"}`),
		},
		{
			name:     "parent on student endpoint",
			method:   http.MethodGet,
			path:     "/api/student/daily-grades",
			cookie:   prtCookie,
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"redirect": "/parent/dashboard"}`),
		},
		{
			name:     "admin on parent endpoint",
			method:   http.MethodGet,
			path:     "/api/parent/children",
			cookie:   adminCookie,
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"redirect": "/admin/dashboard"}`),
		},
		{
			name:     "admin on admin endpoint",
			method:   http.MethodGet,
			path:     "/api/users/students",
			cookie:   adminCookie,
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     "/api/users/roles",
			cookie:   adminCookie,
			wantCode: http.StatusOK,
			wantData: []byte(`["admin", "student", "parent", "guest"]`),
		},
	})
}
