package grading

import (
	"fmt"
	"time"
)

// Review is a reviewer's working state for one submission: the rubric as
// currently toggled, the feedback draft, and the score derived from both.
// It is not safe for concurrent use; each reviewer view owns its own.
type Review struct {
	id       string
	base     int
	items    []RubricItem
	index    map[string]int
	policy   Policy
	feedback string
	result   Result
}

// Approval is the frozen outcome of a review.
type Approval struct {
	SubmissionID string       `json:"submission_id"`
	Reviewer     string       `json:"reviewer,omitempty"`
	Feedback     string       `json:"feedback"`
	Score        Result       `json:"score"`
	Items        []RubricItem `json:"items"`
	ApprovedAt   time.Time    `json:"approved_at"`
}

func NewReview(s Submission, p Policy) (*Review, error) {
	res, err := ScoreSubmission(s, p)
	if err != nil {
		return nil, err
	}
	items := make([]RubricItem, len(s.Items))
	copy(items, s.Items)
	idx := make(map[string]int, len(items))
	for i, it := range items {
		idx[it.ID] = i
	}
	return &Review{
		id:     s.ID,
		base:   *s.BaseScore,
		items:  items,
		index:  idx,
		policy: p,
		result: res,
	}, nil
}

// Toggle sets an item's applied flag and returns the recomputed score.
func (r *Review) Toggle(itemID string, applied bool) (Result, error) {
	i, ok := r.index[itemID]
	if !ok {
		return r.result, fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	r.items[i].Applied = applied
	return r.recompute()
}

// AddItem appends a rubric item and returns the recomputed score.
func (r *Review) AddItem(it RubricItem) (Result, error) {
	if err := validateItem(it); err != nil {
		return r.result, err
	}
	if _, dup := r.index[it.ID]; dup {
		return r.result, fmt.Errorf("%w: duplicate rubric item id %q", ErrInvalidInput, it.ID)
	}
	r.index[it.ID] = len(r.items)
	r.items = append(r.items, it)
	return r.recompute()
}

func (r *Review) recompute() (Result, error) {
	res, err := Score(r.base, r.items, r.policy)
	if err != nil {
		return r.result, err
	}
	r.result = res
	return res, nil
}

func (r *Review) Result() Result { return r.result }

func (r *Review) Items() []RubricItem {
	out := make([]RubricItem, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Review) Feedback() string     { return r.feedback }
func (r *Review) SetFeedback(s string) { r.feedback = s }

// Approve freezes the current score, rubric and feedback.
func (r *Review) Approve(reviewer string) Approval {
	return Approval{
		SubmissionID: r.id,
		Reviewer:     reviewer,
		Feedback:     r.feedback,
		Score:        r.result,
		Items:        r.Items(),
		ApprovedAt:   time.Now().UTC(),
	}
}
