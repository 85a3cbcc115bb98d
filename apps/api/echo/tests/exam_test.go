package tests

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

func (env *testEnv) createExam(t *testing.T, title, level string, active bool) exam.Exam {
	t.Helper()
	e, err := env.examSvc.Create(context.Background(), exam.NewExam{
		Title: title,
		Level: level,
		Questions: []exam.NewQuestion{
			{ID: "q1", Text: "Pick B", Options: []string{"A", "B"}, CorrectAnswer: "B", Marks: 2},
			{ID: "q2", Text: "Capital of France?", CorrectAnswer: "Paris", Marks: 2},
		},
		IsActive: core.BoolPtr(active),
	}, "admin")
	require.NoError(t, err)
	return e
}

// submission builds a submission body from question id, answer pairs.
func submission(t *testing.T, answers ...string) []byte {
	ns := exam.NewSubmission{}
	for i := 0; i+1 < len(answers); i += 2 {
		ns.Answers = append(ns.Answers, grading.Answer{QuestionID: answers[i], Answer: answers[i+1]})
	}
	return marshalObj(t, ns)
}

func Test_examApi_create(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	adminCookie := env.login(t, "admin@test.cd")

	env.run(t, []httpTest{
		{
			name:     "no questions",
			method:   http.MethodPost,
			path:     "/api/exams",
			body:     []byte(`{"title": "Midterm", "questions": []}`),
			cookie:   adminCookie,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "question without answer key",
			method:   http.MethodPost,
			path:     "/api/exams",
			body:     []byte(`{"title": "Midterm", "questions": [{"text": "2+2?", "marks": 1}]}`),
			cookie:   adminCookie,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "zero marks",
			method:   http.MethodPost,
			path:     "/api/exams",
			body:     []byte(`{"title": "Midterm", "questions": [{"text": "2+2?", "correct_answer": "4", "marks": 0}]}`),
			cookie:   adminCookie,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "repeated question id",
			method:   http.MethodPost,
			path:     "/api/exams",
			body:     []byte(`{"title": "Midterm", "questions": [{"id": "q1", "text": "2+2?", "correct_answer": "4", "marks": 1}, {"id": "q1", "text": "3+3?", "correct_answer": "6", "marks": 1}]}`),
			cookie:   adminCookie,
			wantCode: http.StatusBadRequest,
		},
	})

	rec := env.do(http.MethodPost, "/api/exams", adminCookie,
		[]byte(`{"title": " Midterm ", "level": "grade-1", "duration": 30, "questions": [{"text": "2+2?", "correct_answer": "4", "marks": 1}]}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e exam.Exam
	decodeData(t, rec, &e)
	assert.Equal(t, "Midterm", e.Title)
	assert.True(t, e.IsActive)
	require.Len(t, e.Questions, 1)
	assert.NotEmpty(t, e.Questions[0].ID)
	assert.Equal(t, "4", e.Questions[0].CorrectAnswer)

	rec = env.do(http.MethodPut, "/api/exams/"+e.ID, adminCookie, []byte(`{"is_active": false}`))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &e)
	assert.False(t, e.IsActive)
	assert.Equal(t, "Midterm", e.Title)
}

func Test_examApi_questionsLockedAfterResults(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	env.createStudent(t, "Bob", "bob@test.cd", "grade-1")
	adminCookie := env.login(t, "admin@test.cd")
	bobCookie := env.login(t, "bob@test.cd")

	e := env.createExam(t, "Midterm", "grade-1", true)
	path := "/api/exams/" + e.ID
	rekey := []byte(`{"questions": [{"id": "q1", "text": "Pick A", "options": ["A", "B"], "correct_answer": "A", "marks": 2}]}`)

	env.run(t, []httpTest{
		{name: "repeated question id", method: http.MethodPut, path: path, body: []byte(`{"questions": [{"id": "q1", "text": "a", "correct_answer": "a", "marks": 1}, {"id": "q1", "text": "b", "correct_answer": "b", "marks": 1}]}`), cookie: adminCookie, wantCode: http.StatusBadRequest},
		{name: "submit", method: http.MethodPost, path: path + "/submit", body: submission(t, "q1", "B", "q2", "Paris"), cookie: bobCookie, wantCode: http.StatusCreated},
		{name: "questions after a result", method: http.MethodPut, path: path, body: rekey, cookie: adminCookie, wantCode: http.StatusConflict},
		{name: "title after a result", method: http.MethodPut, path: path, body: []byte(`{"title": "Midterm 1"}`), cookie: adminCookie, wantCode: http.StatusOK},
	})

	stored, err := env.examSvc.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Midterm 1", stored.Title)
	assert.Equal(t, "B", stored.Questions[0].CorrectAnswer)
}

func Test_examApi_studentFlow(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	env.createStudent(t, "Bob", "bob@test.cd", "grade-1")
	env.createStudent(t, "Alice", "alice@test.cd", "grade-1")
	env.createStudent(t, "Carl", "carl@test.cd", "grade-2")
	adminCookie := env.login(t, "admin@test.cd")
	bobCookie := env.login(t, "bob@test.cd")
	aliceCookie := env.login(t, "alice@test.cd")
	carlCookie := env.login(t, "carl@test.cd")

	e := env.createExam(t, "Midterm", "grade-1", true)
	draft := env.createExam(t, "Final", "grade-1", false)
	submit := "/api/exams/" + e.ID + "/submit"

	// listing and taking never leak the answer key
	rec := env.do(http.MethodGet, "/api/student/exams", bobCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var exams []exam.Exam
	decodeData(t, rec, &exams)
	require.Len(t, exams, 1)
	assert.Equal(t, e.ID, exams[0].ID)
	for _, q := range exams[0].Questions {
		assert.Empty(t, q.CorrectAnswer)
	}
	assert.NotContains(t, rec.Body.String(), "Paris")

	rec = env.do(http.MethodGet, "/api/student/exams/"+e.ID, bobCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correct_answer")

	env.run(t, []httpTest{
		{name: "take, other level", method: http.MethodGet, path: "/api/student/exams/" + e.ID, cookie: carlCookie, wantCode: http.StatusNotFound},
		{name: "take, inactive", method: http.MethodGet, path: "/api/student/exams/" + draft.ID, cookie: bobCookie, wantCode: http.StatusNotFound},
		{name: "submit, admin", method: http.MethodPost, path: submit, body: submission(t, "q1", "B"), cookie: adminCookie, wantCode: http.StatusForbidden},
		{name: "submit, other level", method: http.MethodPost, path: submit, body: submission(t, "q1", "B"), cookie: carlCookie, wantCode: http.StatusConflict},
		{name: "submit, inactive", method: http.MethodPost, path: "/api/exams/" + draft.ID + "/submit", body: submission(t, "q1", "B"), cookie: bobCookie, wantCode: http.StatusConflict},
		{name: "submit, no question id", method: http.MethodPost, path: submit, body: []byte(`{"answers": [{"answer": "B"}]}`), cookie: bobCookie, wantCode: http.StatusBadRequest},
	})

	// scores come from the answer key, whatever the client sends
	rec = env.do(http.MethodPost, submit, bobCookie, []byte(`{"answers": [{"question_id": "q1", "answer": " b "}, {"question_id": "q2", "answer": "paris"}], "obtained_score": 0}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var r exam.Result
	decodeData(t, rec, &r)
	assert.Equal(t, float64(4), r.ObtainedScore)
	assert.Equal(t, float64(4), r.TotalScore)
	assert.Equal(t, float64(100), r.Percentage)
	assert.True(t, r.Passed)
	assert.Equal(t, grading.TierExcellent, r.Tier)

	rec = env.do(http.MethodPost, submit, bobCookie, submission(t, "q1", "A"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, submit, aliceCookie, submission(t, "q1", "B", "q2", "London"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodGet, "/api/student/exams/results", aliceCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []exam.Result
	decodeData(t, rec, &results)
	require.Len(t, results, 1)
	assert.Equal(t, float64(50), results[0].Percentage)
	assert.Equal(t, grading.TierPass, results[0].Tier)

	rec = env.do(http.MethodGet, "/api/exams/"+e.ID+"/results", adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &results)
	assert.Len(t, results, 2)

	env.run(t, []httpTest{
		{
			name:     "statistics",
			method:   http.MethodGet,
			path:     "/api/exams/" + e.ID + "/statistics",
			cookie:   adminCookie,
			wantCode: http.StatusOK,
			wantData: []byte(`{
				"total_submissions": 2,
				"average_score": 75,
				"highest_score": 100,
				"lowest_score": 50,
				"pass_count": 2,
				"fail_count": 0,
				"per_question_accuracy": [
					{"question_id": "q1", "correct": 2, "answered": 2, "accuracy": 100},
					{"question_id": "q2", "correct": 1, "answered": 2, "accuracy": 50}
				]
			}`),
		},
		{
			name:     "statistics, no submissions",
			method:   http.MethodGet,
			path:     "/api/exams/" + draft.ID + "/statistics",
			cookie:   adminCookie,
			wantCode: http.StatusOK,
			wantData: []byte(`{
				"total_submissions": 0,
				"average_score": 0,
				"highest_score": 0,
				"lowest_score": 0,
				"pass_count": 0,
				"fail_count": 0,
				"per_question_accuracy": [
					{"question_id": "q1", "correct": 0, "answered": 0, "accuracy": 0},
					{"question_id": "q2", "correct": 0, "answered": 0, "accuracy": 0}
				]
			}`),
		},
		{name: "statistics, student", method: http.MethodGet, path: "/api/exams/" + e.ID + "/statistics", cookie: bobCookie, wantCode: http.StatusForbidden},
	})
}

func Test_examApi_export(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Admin", "admin@test.cd", session.RoleAdmin, true)
	env.createStudent(t, "Bob", "bob@test.cd", "grade-1")
	adminCookie := env.login(t, "admin@test.cd")
	bobCookie := env.login(t, "bob@test.cd")

	e := env.createExam(t, "Midterm", "", true)
	rec := env.do(http.MethodPost, "/api/exams/"+e.ID+"/submit", bobCookie, submission(t, "q1", "A", "q2", "Paris"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/exams/"+e.ID+"/results/export", adminCookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+grading.ExportFilename(e.ID)+`"`, rec.Header().Get("Content-Disposition"))

	body := rec.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
	records, err := csv.NewReader(bytes.NewReader(body[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, grading.ExportHeader, records[0])
	assert.Equal(t, []string{"Bob", "bob@test.cd", "2", "4", "50"}, records[1][:5])
	assert.Equal(t, grading.LabelPassed, records[1][5])

	// the export is repeatable
	again := env.do(http.MethodGet, "/api/exams/"+e.ID+"/results/export", adminCookie)
	assert.Equal(t, body, again.Body.Bytes())

	rec = env.do(http.MethodGet, "/api/exams/"+e.ID+"/results/export", bobCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodDelete, "/api/exams/"+e.ID, adminCookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodGet, "/api/exams/"+e.ID, adminCookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
