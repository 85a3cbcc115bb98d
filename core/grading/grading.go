// Package grading scores submissions and classifies percentages.
// Everything here is pure: no I/O, no clock.
package grading

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

// PassThreshold is the percentage from which a result counts as passed. Display only.
const PassThreshold = 50

// Tier is the letter bucket of a percentage.
type Tier string

const (
	TierExcellent Tier = "ممتاز"
	TierVeryGood  Tier = "جيد جداً"
	TierGood      Tier = "جيد"
	TierPass      Tier = "مقبول"
	TierWeak      Tier = "ضعيف"
)

// Tiers lists every tier from best to worst.
var Tiers = []Tier{TierExcellent, TierVeryGood, TierGood, TierPass, TierWeak}

const (
	LabelPassed = "ناجح"
	LabelFailed = "راسب"
)

var (
	ErrNegativeScore   = errors.New("score must not be negative")
	ErrScoreAboveMax   = errors.New("score must not exceed the maximum score")
	ErrInvalidMaxScore = errors.New("maximum score must be positive")
	ErrDuplicateID     = errors.New("question ids must be unique")
)

// ValidateQuestionIDs rejects repeated question ids. Empty ids are generated later and never collide.
func ValidateQuestionIDs(ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if seen[id] {
			return core.NewValidationError(ErrDuplicateID, core.FieldError{Field: "questions", Error: ErrDuplicateID.Error() + ": " + id})
		}
		seen[id] = true
	}
	return nil
}

// ValidateScore enforces 0 <= score <= max.
func ValidateScore(score, max float64) error {
	switch {
	case max <= 0:
		return core.NewValidationError(ErrInvalidMaxScore, core.FieldError{Field: "max_score", Error: ErrInvalidMaxScore.Error()})
	case score < 0:
		return core.NewValidationError(ErrNegativeScore, core.FieldError{Field: "score", Error: ErrNegativeScore.Error()})
	case score > max:
		return core.NewValidationError(ErrScoreAboveMax, core.FieldError{Field: "score", Error: ErrScoreAboveMax.Error()})
	}
	return nil
}

// Percentage returns obtained/total*100 rounded to the nearest whole percent; 0 when total is 0.
func Percentage(obtained, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(obtained / total * 100)
}

// TierFor maps a percentage to its tier:
// [90,100] ممتاز, [80,90) جيد جداً, [70,80) جيد, [50,70) مقبول, [0,50) ضعيف.
func TierFor(pct float64) Tier {
	switch {
	case pct >= 90:
		return TierExcellent
	case pct >= 80:
		return TierVeryGood
	case pct >= 70:
		return TierGood
	case pct >= 50:
		return TierPass
	default:
		return TierWeak
	}
}

func Passed(pct float64) bool {
	return pct >= PassThreshold
}

func PassLabel(pct float64) string {
	if Passed(pct) {
		return LabelPassed
	}
	return LabelFailed
}

// Question is the scoring view of an exam or homework question.
type Question struct {
	ID            string
	CorrectAnswer string
	Marks         float64
}

// Answer is one submitted answer.
type Answer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

// Item is the per-question breakdown of a scored submission.
type Item struct {
	QuestionID string  `json:"question_id"`
	Answer     string  `json:"answer"`
	Correct    bool    `json:"correct"`
	Marks      float64 `json:"marks"`
	Awarded    float64 `json:"awarded"`
}

// Outcome is a scored submission.
type Outcome struct {
	Obtained   float64 `json:"obtained_score"`
	Total      float64 `json:"total_score"`
	Percentage float64 `json:"percentage"`
	Items      []Item  `json:"items"`
}

// Score sums the marks of the questions whose answer matches the correct key.
// Matching ignores case and surrounding or repeated whitespace. Unanswered questions score 0.
// Answers to unknown questions are ignored; the last answer to a question wins.
func Score(questions []Question, answers []Answer) Outcome {
	given := make(map[string]string, len(answers))
	for _, a := range answers {
		given[a.QuestionID] = a.Answer
	}

	out := Outcome{Items: make([]Item, 0, len(questions))}
	for _, q := range questions {
		ans, answered := given[q.ID]
		item := Item{QuestionID: q.ID, Answer: ans, Marks: q.Marks}
		if answered && Normalize(ans) != "" && Normalize(ans) == Normalize(q.CorrectAnswer) {
			item.Correct = true
			item.Awarded = q.Marks
		}
		out.Total += q.Marks
		out.Obtained += item.Awarded
		out.Items = append(out.Items, item)
	}
	out.Percentage = Percentage(out.Obtained, out.Total)
	return out
}

// Normalize folds case and collapses whitespace of an answer.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
