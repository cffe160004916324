package submission

import (
	"context"
	"fmt"

	"github.com/mind-engage/examgrade/internal/grading"
)

// Neighbor finds the submission next to id within its assignment, in list
// order. The unreviewed directions skip submissions already reviewed.
func Neighbor(ctx context.Context, st Store, id string, dir Direction) (Submission, error) {
	if !dir.Valid() {
		return Submission{}, fmt.Errorf("%w: unknown direction %q", grading.ErrInvalidInput, dir)
	}
	cur, err := st.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	list, err := st.ListSubmissions(ctx, ListOpts{AssignmentID: cur.AssignmentID})
	if err != nil {
		return Submission{}, err
	}
	pos := -1
	for i := range list {
		if list[i].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return Submission{}, ErrNotFound
	}

	step := 1
	if dir == DirPrevious || dir == DirPreviousUnreviewed {
		step = -1
	}
	onlyUnreviewed := dir == DirNextUnreviewed || dir == DirPreviousUnreviewed
	for i := pos + step; i >= 0 && i < len(list); i += step {
		if onlyUnreviewed && list[i].Reviewed {
			continue
		}
		return list[i], nil
	}
	return Submission{}, ErrNoNeighbor
}
