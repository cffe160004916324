package grading

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput marks caller-supplied data the engine refuses to score.
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownItem  = errors.New("unknown rubric item")
)

type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNegative Category = "negative"
)

// RubricItem is one criterion a reviewer can mark as applying to a submission.
// Points is a signed delta: negative is a deduction, positive a bonus.
// Category is display metadata and never changes how points are summed.
type RubricItem struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Points   int      `json:"points"`
	Applied  bool     `json:"applied"`
	Category Category `json:"category,omitempty"`
}

// Submission is the minimal view of a submission the engine needs.
// BaseScore is also the maximum score; nil means it was never set.
type Submission struct {
	ID        string       `json:"id"`
	BaseScore *int         `json:"base_score"`
	Items     []RubricItem `json:"items"`
}

// Policy switches scoring rules that are still product decisions.
// The zero value counts deductions only and clamps at zero.
type Policy struct {
	CountBonuses bool `json:"count_bonuses"` // add applied positive deltas
	ClampToBase  bool `json:"clamp_to_base"` // never exceed the base score
}

// Result is the score breakdown. Deductions and Bonuses are magnitudes.
type Result struct {
	Base       int `json:"base"`
	Deductions int `json:"deductions"`
	Bonuses    int `json:"bonuses"`
	Final      int `json:"final"`
}

// Score computes max(0, base - deductions [+ bonuses]) over applied items.
func Score(base int, items []RubricItem, p Policy) (Result, error) {
	if base < 0 {
		return Result{}, fmt.Errorf("%w: base score %d is negative", ErrInvalidInput, base)
	}
	if err := ValidateItems(items); err != nil {
		return Result{}, err
	}
	res := Result{Base: base}
	for _, it := range items {
		if !it.Applied {
			continue
		}
		switch {
		case it.Points < 0:
			res.Deductions = addSat(res.Deductions, magnitude(it.Points))
		case it.Points > 0 && p.CountBonuses:
			res.Bonuses = addSat(res.Bonuses, it.Points)
		}
	}
	final := 0
	if gross := addSat(base, res.Bonuses); res.Deductions < gross {
		final = gross - res.Deductions
	}
	if p.ClampToBase && final > base {
		final = base
	}
	res.Final = final
	return res, nil
}

// addSat adds non-negative totals, saturating at math.MaxInt instead of wrapping.
func addSat(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// magnitude is |points| for a negative delta; math.MinInt maps to math.MaxInt.
func magnitude(points int) int {
	if points == math.MinInt {
		return math.MaxInt
	}
	return -points
}

// ScoreSubmission is Score over a Submission; a missing base score is an error.
func ScoreSubmission(s Submission, p Policy) (Result, error) {
	if s.BaseScore == nil {
		return Result{}, fmt.Errorf("%w: submission %q has no base score", ErrInvalidInput, s.ID)
	}
	return Score(*s.BaseScore, s.Items, p)
}

// ValidateItems checks ids are present and unique and categories are known.
func ValidateItems(items []RubricItem) error {
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if err := validateItem(it); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: duplicate rubric item id %q", ErrInvalidInput, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

func validateItem(it RubricItem) error {
	if it.ID == "" {
		return fmt.Errorf("%w: rubric item id is empty", ErrInvalidInput)
	}
	switch it.Category {
	case "", CategoryPositive, CategoryNegative:
		return nil
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, it.Category)
	}
}
