package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func (env *testEnv) createGrade(t *testing.T, studentID, subject, day string, score, max float64) grade.DailyGrade {
	t.Helper()
	g, err := env.gradeSvc.Create(context.Background(), grade.NewDailyGrade{
		StudentID: studentID,
		Subject:   subject,
		Date:      date(day),
		Score:     score,
		MaxScore:  max,
	})
	require.NoError(t, err)
	return g
}

func Test_gradeApi_create(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	std := env.createStudent(t, "Bob", "bob@test.cd", "grade-1")
	adminCookie := env.login(t, "admin@test.cd")

	newGrade := func(studentID string, score, max float64) []byte {
		return marshalObj(t, grade.NewDailyGrade{
			StudentID: studentID,
			Subject:   " Math ",
			Date:      date("2024-03-10"),
			Score:     score,
			MaxScore:  max,
		})
	}

	env.run(t, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/api/daily-grades",
			body:     []byte(`{}`),
			cookie:   adminCookie,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "score above max",
			method:   http.MethodPost,
			path:     "/api/daily-grades",
			body:     newGrade(std.ID, 25, 20),
			cookie:   adminCookie,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "zero max score",
			method:   http.MethodPost,
			path:     "/api/daily-grades",
			body:     newGrade(std.ID, 0, 0),
			cookie:   adminCookie,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown student",
			method:   http.MethodPost,
			path:     "/api/daily-grades",
			body:     newGrade("7c9a4f7e-0000-4000-8000-000000000000", 10, 20),
			cookie:   adminCookie,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"student_id": "student not found"}`),
		},
	})

	rec := env.do(http.MethodPost, "/api/daily-grades", adminCookie, newGrade(std.ID, 17, 20))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var g struct {
		Subject    string       `json:"subject"`
		Percentage float64      `json:"percentage"`
		Tier       grading.Tier `json:"tier"`
	}
	decodeData(t, rec, &g)
	assert.Equal(t, "Math", g.Subject)
	assert.Equal(t, float64(85), g.Percentage)
	assert.Equal(t, grading.TierVeryGood, g.Tier)
}

func Test_gradeApi_query(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	bob := env.createStudent(t, "Bob", "bob@test.cd", "grade-1")
	alice := env.createStudent(t, "Alice", "alice@test.cd", "grade-1")
	adminCookie := env.login(t, "admin@test.cd")

	env.createGrade(t, bob.ID, "Math", "2024-03-01", 10, 20)
	env.createGrade(t, bob.ID, "Science", "2024-03-10", 18, 20)
	env.createGrade(t, alice.ID, "Math", "2024-03-20", 9, 10)

	query := func(q string) []grade.DailyGrade {
		rec := env.do(http.MethodGet, "/api/daily-grades"+q, adminCookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var grades []grade.DailyGrade
		decodeData(t, rec, &grades)
		return grades
	}
	subjects := func(grades []grade.DailyGrade) []string {
		out := make([]string, len(grades))
		for i, g := range grades {
			out[i] = g.Subject
		}
		return out
	}

	assert.Len(t, query(""), 3)
	assert.Equal(t, []string{"Math", "Science"}, subjects(query("?student_id="+bob.ID+"&ordering=date")))
	assert.Equal(t, []string{"Science", "Math"}, subjects(query("?from=2024-03-05&ordering=date")))
	assert.Equal(t, []string{"Math", "Science"}, subjects(query("?to=2024-03-10&ordering=date")))
	assert.Len(t, query("?subject=Math"), 2)

	rec := env.do(http.MethodGet, "/api/daily-grades?from=10-03-2024", adminCookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_gradeApi_detail(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	std := env.createStudent(t, "Bob", "bob@test.cd", "grade-1")
	adminCookie := env.login(t, "admin@test.cd")

	g := env.createGrade(t, std.ID, "Math", "2024-03-01", 10, 20)
	path := "/api/daily-grades/" + g.ID

	env.run(t, []httpTest{
		{name: "unknown", method: http.MethodGet, path: "/api/daily-grades/nope", cookie: adminCookie, wantCode: http.StatusNotFound},
		{name: "retrieve", method: http.MethodGet, path: path, cookie: adminCookie, wantCode: http.StatusOK},
		{
			name:     "lowered max below score",
			method:   http.MethodPut,
			path:     path,
			body:     []byte(`{"max_score": 5}`),
			cookie:   adminCookie,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"score": "score must not exceed the maximum score"}`),
		},
		{
			name:     "partial update",
			method:   http.MethodPut,
			path:     path,
			body:     []byte(`{"score": 19, "notes": " well done "}`),
			cookie:   adminCookie,
			wantCode: http.StatusOK,
		},
	})

	updated, err := env.gradeSvc.Get(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(19), updated.Score)
	assert.Equal(t, float64(20), updated.MaxScore)
	assert.Equal(t, "well done", updated.Notes)
	assert.Equal(t, grading.TierExcellent, updated.Tier())

	rec := env.do(http.MethodDelete, path, adminCookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodGet, path, adminCookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_gradeApi_studentView(t *testing.T) {
	env := setup(t)
	bob := env.createStudent(t, "Bob", "bob@test.cd", "grade-1")
	alice := env.createStudent(t, "Alice", "alice@test.cd", "grade-1")
	bobCookie := env.login(t, "bob@test.cd")

	env.createGrade(t, bob.ID, "Math", "2024-03-01", 10, 20)
	env.createGrade(t, alice.ID, "Math", "2024-03-01", 20, 20)

	rec := env.do(http.MethodGet, "/api/student/daily-grades", bobCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var grades []grade.DailyGrade
	decodeData(t, rec, &grades)
	require.Len(t, grades, 1)
	assert.Equal(t, bob.ID, grades[0].StudentID)

	// the admin endpoints stay closed
	rec = env.do(http.MethodGet, "/api/daily-grades", bobCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
