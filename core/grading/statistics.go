package grading

import "math"

type QuestionAccuracy struct {
	QuestionID string  `json:"question_id"`
	Correct    int     `json:"correct"`
	Answered   int     `json:"answered"`
	Accuracy   float64 `json:"accuracy"` // percent of submissions that got it right
}

type Statistics struct {
	TotalSubmissions    int                `json:"total_submissions"`
	AverageScore        float64            `json:"average_score"`
	HighestScore        float64            `json:"highest_score"`
	LowestScore         float64            `json:"lowest_score"`
	PassCount           int                `json:"pass_count"`
	FailCount           int                `json:"fail_count"`
	PerQuestionAccuracy []QuestionAccuracy `json:"per_question_accuracy"`
}

// Submission is what statistics need of one scored submission.
type Submission struct {
	Percentage float64
	Items      []Item
}

// Summarize aggregates submissions by percentage. Scores are percentages; the
// average is rounded to 2 decimals. questionIDs fixes the order of the accuracy list.
func Summarize(questionIDs []string, subs []Submission) Statistics {
	stats := Statistics{
		TotalSubmissions:    len(subs),
		PerQuestionAccuracy: make([]QuestionAccuracy, len(questionIDs)),
	}
	idx := make(map[string]int, len(questionIDs))
	for i, id := range questionIDs {
		idx[id] = i
		stats.PerQuestionAccuracy[i].QuestionID = id
	}
	if len(subs) == 0 {
		return stats
	}

	var sum float64
	stats.HighestScore = math.Inf(-1)
	stats.LowestScore = math.Inf(1)
	for _, s := range subs {
		sum += s.Percentage
		stats.HighestScore = math.Max(stats.HighestScore, s.Percentage)
		stats.LowestScore = math.Min(stats.LowestScore, s.Percentage)
		if Passed(s.Percentage) {
			stats.PassCount++
		} else {
			stats.FailCount++
		}
		for _, it := range s.Items {
			i, ok := idx[it.QuestionID]
			if !ok {
				continue
			}
			stats.PerQuestionAccuracy[i].Answered++
			if it.Correct {
				stats.PerQuestionAccuracy[i].Correct++
			}
		}
	}
	stats.AverageScore = round2(sum / float64(len(subs)))
	for i, qa := range stats.PerQuestionAccuracy {
		stats.PerQuestionAccuracy[i].Accuracy = round2(float64(qa.Correct) / float64(len(subs)) * 100)
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
