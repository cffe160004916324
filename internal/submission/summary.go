package submission

import "math"

// PassPercent is the score percentage counted as a pass on the roster.
const PassPercent = 70

// Summary is the roster header for an assignment.
type Summary struct {
	Total        int     `json:"total"`
	Graded       int     `json:"graded"`
	Pending      int     `json:"pending"`
	AverageScore float64 `json:"average_score"` // mean final score of graded submissions
	PassRate     int     `json:"pass_rate"`     // whole percent of graded submissions at or above PassPercent
}

func Summarize(list []Submission) Summary {
	sum := Summary{Total: len(list)}
	var total float64
	passed := 0
	for _, s := range list {
		switch s.Status {
		case StatusPending:
			sum.Pending++
		case StatusGraded:
			if s.FinalScore == nil {
				continue
			}
			sum.Graded++
			total += float64(*s.FinalScore)
			if s.BaseScore != nil && *s.BaseScore > 0 &&
				float64(*s.FinalScore)*100 >= PassPercent*float64(*s.BaseScore) {
				passed++
			}
		}
	}
	if sum.Graded > 0 {
		sum.AverageScore = math.Round(total/float64(sum.Graded)*10) / 10
		sum.PassRate = int(math.Round(float64(passed) * 100 / float64(sum.Graded)))
	}
	return sum
}
