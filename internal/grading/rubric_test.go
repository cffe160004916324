package grading_test

import (
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examgrade/internal/grading"
)

func ded(id string, pts int, applied bool) grading.RubricItem {
	return grading.RubricItem{ID: id, Points: pts, Applied: applied, Category: grading.CategoryNegative}
}

func TestScore_Examples(t *testing.T) {
	cases := []struct {
		name  string
		base  int
		items []grading.RubricItem
		want  int
	}{
		{"two applied deductions", 74, []grading.RubricItem{ded("a", -2, true), ded("b", -2, true)}, 70},
		{"unapplied deduction", 74, []grading.RubricItem{ded("a", -2, false)}, 74},
		{"clamped at zero", 0, []grading.RubricItem{ded("a", -5, true)}, 0},
		{"no items", 10, nil, 10},
		{"bonus ignored by default", 10, []grading.RubricItem{{ID: "b", Points: 3, Applied: true, Category: grading.CategoryPositive}}, 10},
		{"category does not decide sign", 74, []grading.RubricItem{{ID: "1", Text: "Fully Correct", Points: -1, Applied: true, Category: grading.CategoryPositive}}, 73},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := grading.Score(tc.base, tc.items, grading.Policy{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Final)
		})
	}
}

func TestScore_Policy(t *testing.T) {
	items := []grading.RubricItem{
		ded("d", -4, true),
		{ID: "b1", Points: 6, Applied: true, Category: grading.CategoryPositive},
		{ID: "b2", Points: 9, Applied: false, Category: grading.CategoryPositive},
	}

	res, err := grading.Score(10, items, grading.Policy{CountBonuses: true})
	require.NoError(t, err)
	assert.Equal(t, grading.Result{Base: 10, Deductions: 4, Bonuses: 6, Final: 12}, res)

	res, err = grading.Score(10, items, grading.Policy{CountBonuses: true, ClampToBase: true})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Final)

	res, err = grading.Score(10, items, grading.Policy{})
	require.NoError(t, err)
	assert.Equal(t, grading.Result{Base: 10, Deductions: 4, Final: 6}, res)
}

func TestScore_InvalidInput(t *testing.T) {
	_, err := grading.Score(-1, nil, grading.Policy{})
	assert.ErrorIs(t, err, grading.ErrInvalidInput)

	_, err = grading.Score(5, []grading.RubricItem{ded("", -1, true)}, grading.Policy{})
	assert.ErrorIs(t, err, grading.ErrInvalidInput)

	_, err = grading.Score(5, []grading.RubricItem{ded("x", -1, true), ded("x", -2, false)}, grading.Policy{})
	assert.ErrorIs(t, err, grading.ErrInvalidInput)

	_, err = grading.Score(5, []grading.RubricItem{{ID: "x", Category: "neutral"}}, grading.Policy{})
	assert.ErrorIs(t, err, grading.ErrInvalidInput)

	_, err = grading.ScoreSubmission(grading.Submission{ID: "s1"}, grading.Policy{})
	assert.ErrorIs(t, err, grading.ErrInvalidInput)
}

func TestScore_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 500; n++ {
		base := rng.Intn(120)
		items := make([]grading.RubricItem, rng.Intn(8))
		wantDed, huge := 0, false
		for i := range items {
			items[i] = grading.RubricItem{
				ID:      strconv.Itoa(i),
				Points:  rng.Intn(21) - 10,
				Applied: rng.Intn(2) == 0,
			}
			if rng.Intn(20) == 0 {
				items[i].Points = math.MinInt + rng.Intn(3)
			}
			if !items[i].Applied || items[i].Points >= 0 {
				continue
			}
			if items[i].Points < -1000 {
				huge = true
			} else {
				wantDed += -items[i].Points
			}
		}

		res, err := grading.Score(base, items, grading.Policy{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Final, 0)
		assert.GreaterOrEqual(t, res.Deductions, 0)
		if huge {
			assert.Equal(t, 0, res.Final)
		} else {
			assert.Equal(t, max(0, base-wantDed), res.Final)
		}

		if len(items) == 0 {
			continue
		}
		k := rng.Intn(len(items))
		orig := items[k].Applied
		items[k].Applied = !orig
		_, err = grading.Score(base, items, grading.Policy{})
		require.NoError(t, err)
		items[k].Applied = orig
		again, err := grading.Score(base, items, grading.Policy{})
		require.NoError(t, err)
		assert.Equal(t, res, again)
	}
}

func TestScore_ExtremeDeltas(t *testing.T) {
	cases := []struct {
		name  string
		base  int
		items []grading.RubricItem
		p     grading.Policy
		want  grading.Result
	}{
		{"two max deductions", 10, []grading.RubricItem{ded("a", -math.MaxInt, true), ded("b", -math.MaxInt, true)},
			grading.Policy{}, grading.Result{Base: 10, Deductions: math.MaxInt, Final: 0}},
		{"min int deduction", 10, []grading.RubricItem{ded("a", math.MinInt, true)},
			grading.Policy{}, grading.Result{Base: 10, Deductions: math.MaxInt, Final: 0}},
		{"max base minus max deduction", math.MaxInt, []grading.RubricItem{ded("a", -math.MaxInt, true)},
			grading.Policy{}, grading.Result{Base: math.MaxInt, Deductions: math.MaxInt, Final: 0}},
		{"max base small deduction", math.MaxInt, []grading.RubricItem{ded("a", -1, true)},
			grading.Policy{}, grading.Result{Base: math.MaxInt, Deductions: 1, Final: math.MaxInt - 1}},
		{"bonuses saturate", 5, []grading.RubricItem{
			{ID: "a", Points: math.MaxInt, Applied: true}, {ID: "b", Points: math.MaxInt, Applied: true}},
			grading.Policy{CountBonuses: true}, grading.Result{Base: 5, Bonuses: math.MaxInt, Final: math.MaxInt}},
		{"bonuses saturate clamped", 5, []grading.RubricItem{
			{ID: "a", Points: math.MaxInt, Applied: true}, ded("b", -3, true)},
			grading.Policy{CountBonuses: true, ClampToBase: true}, grading.Result{Base: 5, Deductions: 3, Bonuses: math.MaxInt, Final: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := grading.Score(tc.base, tc.items, tc.p)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got.Deductions, 0)
		})
	}
}
