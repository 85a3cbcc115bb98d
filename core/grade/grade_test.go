package grade_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grading"
	inmemdb "github.com/karemsaeed20020/Education-Platform-sub002/storage/database/inmem"
)

const studentID = "6f1c2a8e-9d43-4c55-8a0c-1f6c0b6d2f11"

type students map[string]bool

func (s students) Exists(_ context.Context, id string) (bool, error) { return s[id], nil }

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func TestNewDailyGrade_Validate(t *testing.T) {
	validate := core.NewValidate(core.NewTranslator())
	known := students{studentID: true}

	tests := []struct {
		name    string
		ng      grade.NewDailyGrade
		wantErr bool
	}{
		{name: "ok", ng: grade.NewDailyGrade{StudentID: studentID, Subject: " Math ", Date: day(1), Score: 20, MaxScore: 20}},
		{name: "zero score", ng: grade.NewDailyGrade{StudentID: studentID, Subject: "Math", Date: day(1), Score: 0, MaxScore: 20}},
		{name: "above max", ng: grade.NewDailyGrade{StudentID: studentID, Subject: "Math", Date: day(1), Score: 21, MaxScore: 20}, wantErr: true},
		{name: "negative", ng: grade.NewDailyGrade{StudentID: studentID, Subject: "Math", Date: day(1), Score: -1, MaxScore: 20}, wantErr: true},
		{name: "no max", ng: grade.NewDailyGrade{StudentID: studentID, Subject: "Math", Date: day(1)}, wantErr: true},
		{name: "no date", ng: grade.NewDailyGrade{StudentID: studentID, Subject: "Math", Score: 1, MaxScore: 2}, wantErr: true},
		{name: "blank subject", ng: grade.NewDailyGrade{StudentID: studentID, Subject: "  ", Date: day(1), MaxScore: 2}, wantErr: true},
		{name: "unknown student", ng: grade.NewDailyGrade{StudentID: "0b7a3c9e-4f1d-4b8a-9c2e-5d6f7a8b9c0d", Subject: "Math", Date: day(1), MaxScore: 2}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ng.Validate(context.Background(), validate, known)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateDailyGrade_Validate(t *testing.T) {
	validate := core.NewValidate(core.NewTranslator())
	orig := grade.DailyGrade{Score: 12, MaxScore: 20}
	f := func(v float64) *float64 { return &v }

	assert.NoError(t, (&grade.UpdateDailyGrade{Score: f(20)}).Validate(orig, validate))
	assert.NoError(t, (&grade.UpdateDailyGrade{MaxScore: f(12)}).Validate(orig, validate))

	// checked against the merged max score
	err := (&grade.UpdateDailyGrade{MaxScore: f(10)}).Validate(orig, validate)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, grading.ErrScoreAboveMax, vErr.Err)

	err = (&grade.UpdateDailyGrade{Score: f(30), MaxScore: f(25)}).Validate(orig, validate)
	assert.Error(t, err)
}

func TestService(t *testing.T) {
	svc := grade.NewService(inmemdb.NewGradeRepository(inmemdb.Open()))
	ctx := context.Background()

	for i, ng := range []grade.NewDailyGrade{
		{StudentID: studentID, Subject: "Math", Date: day(1), Score: 9, MaxScore: 10},
		{StudentID: studentID, Subject: "Arabic", Date: day(3), Score: 14, MaxScore: 20},
		{StudentID: "other", Subject: "Math", Date: day(2), Score: 1, MaxScore: 10},
	} {
		_, err := svc.Create(ctx, ng)
		require.NoError(t, err, i)
	}

	got, err := svc.OfStudent(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Arabic", got[0].Subject, "most recent first")
	assert.Equal(t, 70.0, got[0].Percentage())
	assert.Equal(t, grading.TierGood, got[0].Tier())

	from, to := day(2), day(3)
	got, err = svc.Filter(ctx, grade.QueryFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	data, err := json.Marshal(got[0])
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Contains(t, body, "percentage")
	assert.Contains(t, body, "tier")

	score := 10.0
	g, err := svc.Update(ctx, got[0], grade.UpdateDailyGrade{Score: &score})
	require.NoError(t, err)
	stored, err := svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, stored.Score)

	require.NoError(t, svc.Delete(ctx, g.ID))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, g.ID)))
}
