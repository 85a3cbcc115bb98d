package grading

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

func TestPercentageAndTier(t *testing.T) {
	for max := 1.0; max <= 60; max++ {
		for score := 0.0; score <= max; score += 0.25 {
			pct := Percentage(score, max)
			assert.Equal(t, math.Round(score/max*100), pct, "%v/%v", score, max)
			assert.True(t, pct >= 0 && pct <= 100)
			assert.Contains(t, Tiers, TierFor(pct))
			assert.NoError(t, ValidateScore(score, max))
		}
	}
}

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want Tier
	}{
		{100, TierExcellent},
		{90, TierExcellent},
		{89.99, TierVeryGood},
		{80, TierVeryGood},
		{79, TierGood},
		{70, TierGood},
		{69, TierPass},
		{50, TierPass},
		{49, TierWeak},
		{0, TierWeak},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, TierFor(tc.pct), "pct %v", tc.pct)
	}
	assert.True(t, Passed(50))
	assert.False(t, Passed(49))
}

func TestPercentageRounding(t *testing.T) {
	assert.Equal(t, 33.0, Percentage(1, 3))
	assert.Equal(t, 67.0, Percentage(2, 3))
	assert.Equal(t, 13.0, Percentage(1, 8)) // 12.5
	assert.Equal(t, 0.0, Percentage(5, 0))
}

func TestValidateScore(t *testing.T) {
	tests := []struct {
		name       string
		score, max float64
		wantErr    error
		wantField  string
	}{
		{name: "negative", score: -1, max: 10, wantErr: ErrNegativeScore, wantField: "score"},
		{name: "above max", score: 10.5, max: 10, wantErr: ErrScoreAboveMax, wantField: "score"},
		{name: "zero max", score: 0, max: 0, wantErr: ErrInvalidMaxScore, wantField: "max_score"},
		{name: "bounds", score: 10, max: 10},
		{name: "zero", score: 0, max: 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateScore(tc.score, tc.max)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.wantErr, vErr.Err)
			assert.Equal(t, tc.wantField, vErr.Fields[0].Field)
		})
	}
}

func TestScore(t *testing.T) {
	questions := []Question{
		{ID: "q1", CorrectAnswer: "Paris", Marks: 2},
		{ID: "q2", CorrectAnswer: "4", Marks: 1},
		{ID: "q3", CorrectAnswer: "الرباط", Marks: 2},
	}

	out := Score(questions, []Answer{
		{QuestionID: "q1", Answer: "  paris "},
		{QuestionID: "q2", Answer: "5"},
		{QuestionID: "q3", Answer: "الرباط"},
		{QuestionID: "unknown", Answer: "x"},
	})
	assert.Equal(t, 4.0, out.Obtained)
	assert.Equal(t, 5.0, out.Total)
	assert.Equal(t, 80.0, out.Percentage)
	require.Len(t, out.Items, 3)
	assert.True(t, out.Items[0].Correct)
	assert.False(t, out.Items[1].Correct)
	assert.Equal(t, 0.0, out.Items[1].Awarded)
	assert.True(t, out.Items[2].Correct)

	t.Run("empty answer never matches", func(t *testing.T) {
		out := Score([]Question{{ID: "q", CorrectAnswer: " ", Marks: 1}}, []Answer{{QuestionID: "q", Answer: ""}})
		assert.Equal(t, 0.0, out.Obtained)
	})

	t.Run("no questions", func(t *testing.T) {
		out := Score(nil, nil)
		assert.Equal(t, 0.0, out.Percentage)
		assert.Empty(t, out.Items)
	})
}

func TestSummarize(t *testing.T) {
	subs := []Submission{
		{Percentage: 40, Items: []Item{{QuestionID: "q1", Correct: false}, {QuestionID: "q2", Correct: true}}},
		{Percentage: 60, Items: []Item{{QuestionID: "q1", Correct: true}, {QuestionID: "q2", Correct: true}}},
		{Percentage: 90, Items: []Item{{QuestionID: "q1", Correct: true}, {QuestionID: "q2", Correct: false}}},
	}
	stats := Summarize([]string{"q1", "q2"}, subs)

	assert.Equal(t, 3, stats.TotalSubmissions)
	assert.Equal(t, 2, stats.PassCount)
	assert.Equal(t, 1, stats.FailCount)
	assert.InDelta(t, 63.33, stats.AverageScore, 0.01)
	assert.Equal(t, 90.0, stats.HighestScore)
	assert.Equal(t, 40.0, stats.LowestScore)
	require.Len(t, stats.PerQuestionAccuracy, 2)
	assert.Equal(t, QuestionAccuracy{QuestionID: "q1", Correct: 2, Answered: 3, Accuracy: 66.67}, stats.PerQuestionAccuracy[0])
	assert.Equal(t, QuestionAccuracy{QuestionID: "q2", Correct: 2, Answered: 3, Accuracy: 66.67}, stats.PerQuestionAccuracy[1])

	t.Run("no submissions", func(t *testing.T) {
		stats := Summarize([]string{"q1"}, nil)
		assert.Equal(t, 0, stats.TotalSubmissions)
		assert.Equal(t, 0.0, stats.HighestScore)
		assert.Equal(t, 0.0, stats.LowestScore)
		assert.Equal(t, []QuestionAccuracy{{QuestionID: "q1"}}, stats.PerQuestionAccuracy)
	})
}

func TestExportCSV(t *testing.T) {
	at := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	rows := []ExportRow{
		{StudentName: "أحمد علي", Email: "ahmed@test.eg", Obtained: 9, Total: 10, Percentage: 90, SubmittedAt: at},
		{StudentName: "Sara, K", Email: "sara@test.eg", Obtained: 4.5, Total: 10, Percentage: 45, SubmittedAt: at.Add(time.Hour)},
	}

	first, err := ExportCSV(rows)
	require.NoError(t, err)
	second, err := ExportCSV(rows)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.True(t, bytes.HasPrefix(first, []byte{0xEF, 0xBB, 0xBF}))
	lines := strings.Split(strings.TrimSuffix(string(first[3:]), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "student_name,email,obtained,total,percentage,result,submitted_at", lines[0])
	assert.Equal(t, "أحمد علي,ahmed@test.eg,9,10,90,ناجح,2024-05-02 09:30:00", lines[1])
	assert.Equal(t, `"Sara, K",sara@test.eg,4.5,10,45,راسب,2024-05-02 10:30:00`, lines[2])

	assert.Equal(t, "exam-42-results.csv", ExportFilename("42"))
}

func TestValidateQuestionIDs(t *testing.T) {
	tests := []struct {
		name    string
		ids     []string
		wantErr bool
	}{
		{name: "none", ids: nil},
		{name: "distinct", ids: []string{"q1", "q2"}},
		{name: "generated later", ids: []string{"", "", "q1"}},
		{name: "repeated", ids: []string{"q1", "q2", "q1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestionIDs(tt.ids)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			assert.Equal(t, ErrDuplicateID, vErr.Err)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, "questions", vErr.Fields[0].Field)
		})
	}
}
