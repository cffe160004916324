package submission

import (
	"errors"

	"github.com/mind-engage/examgrade/internal/grading"
)

var (
	ErrNotFound   = errors.New("submission not found")
	ErrNoNeighbor = errors.New("no submission in that direction")
)

type Status string

const (
	StatusPending   Status = "pending"   // awaiting the AI pass
	StatusSubmitted Status = "submitted" // rubric drafted, awaiting review
	StatusGraded    Status = "graded"
)

// Submission is one student's paper for an assignment. BaseScore doubles as
// the maximum score; it stays nil until the paper has been scored.
type Submission struct {
	ID           string               `json:"id"`
	AssignmentID string               `json:"assignment_id"`
	StudentID    string               `json:"student_id"`
	StudentName  string               `json:"student_name,omitempty"`
	BaseScore    *int                 `json:"base_score"`
	Status       Status               `json:"status"`
	Reviewed     bool                 `json:"reviewed"`
	FinalScore   *int                 `json:"final_score,omitempty"`
	Feedback     string               `json:"feedback,omitempty"`
	GradedBy     string               `json:"graded_by,omitempty"`
	Rubric       []grading.RubricItem `json:"rubric"`
	SubmittedAt  int64                `json:"submitted_at"`
	GradedAt     int64                `json:"graded_at,omitempty"`
}

// Scoring returns the view the scoring engine works on.
func (s Submission) Scoring() grading.Submission {
	return grading.Submission{ID: s.ID, BaseScore: s.BaseScore, Items: s.Rubric}
}

type ListOpts struct {
	AssignmentID string
	Status       Status // optional filter
	Limit        int
	Offset       int
}

type Direction string

const (
	DirNext               Direction = "next"
	DirPrevious           Direction = "previous"
	DirNextUnreviewed     Direction = "next-unreviewed"
	DirPreviousUnreviewed Direction = "previous-unreviewed"
)

func (d Direction) Valid() bool {
	switch d {
	case DirNext, DirPrevious, DirNextUnreviewed, DirPreviousUnreviewed:
		return true
	}
	return false
}
