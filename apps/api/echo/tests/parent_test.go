package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
)

func Test_parentApi(t *testing.T) {
	env := setup(t)
	prt := env.createUser(t, "Parent", "parent@test.cd", session.RoleParent, true)
	env.createUser(t, "Lonely", "lonely@test.cd", session.RoleParent, true)
	zoe := env.createStudent(t, "Zoe", "zoe@test.cd", "grade-1", prt.ID)
	adam := env.createStudent(t, "Adam", "adam@test.cd", "grade-2", prt.ID)
	stranger := env.createStudent(t, "Stranger", "stranger@test.cd", "grade-1")
	prtCookie := env.login(t, "parent@test.cd")
	lonelyCookie := env.login(t, "lonely@test.cd")
	zoeCookie := env.login(t, "zoe@test.cd")

	env.createGrade(t, zoe.ID, "Math", "2024-03-01", 8, 10)
	env.createGrade(t, stranger.ID, "Math", "2024-03-01", 2, 10)
	e := env.createExam(t, "Midterm", "", true)
	rec := env.do(http.MethodPost, "/api/exams/"+e.ID+"/submit", zoeCookie, submission(t, "q1", "B"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/parent/children", prtCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var children []student.Student
	decodeData(t, rec, &children)
	require.Len(t, children, 2)
	assert.Equal(t, adam.ID, children[0].ID)
	assert.Equal(t, zoe.ID, children[1].ID)

	rec = env.do(http.MethodGet, "/api/parent/children/"+zoe.ID+"/grades", prtCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var grades []grade.DailyGrade
	decodeData(t, rec, &grades)
	require.Len(t, grades, 1)
	assert.Equal(t, float64(8), grades[0].Score)

	rec = env.do(http.MethodGet, "/api/parent/children/"+zoe.ID+"/results", prtCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []exam.Result
	decodeData(t, rec, &results)
	require.Len(t, results, 1)
	assert.Equal(t, float64(50), results[0].Percentage)

	env.run(t, []httpTest{
		{name: "no children", method: http.MethodGet, path: "/api/parent/children", cookie: lonelyCookie, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "child without results", method: http.MethodGet, path: "/api/parent/children/" + adam.ID + "/results", cookie: prtCookie, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "not a child", method: http.MethodGet, path: "/api/parent/children/" + stranger.ID + "/grades", cookie: prtCookie, wantCode: http.StatusNotFound},
		{name: "someone else's child", method: http.MethodGet, path: "/api/parent/children/" + zoe.ID + "/results", cookie: lonelyCookie, wantCode: http.StatusNotFound},
		{name: "unknown student", method: http.MethodGet, path: "/api/parent/children/nope/grades", cookie: prtCookie, wantCode: http.StatusNotFound},
		{name: "student", method: http.MethodGet, path: "/api/parent/children", cookie: zoeCookie, wantCode: http.StatusForbidden},
	})
}
