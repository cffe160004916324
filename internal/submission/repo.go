package submission

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mind-engage/examgrade/internal/grading"
)

// Store persists submissions. Lists are ordered by submission time, then id.
type Store interface {
	PutSubmission(ctx context.Context, s Submission) error
	GetSubmission(ctx context.Context, id string) (Submission, error)
	ListSubmissions(ctx context.Context, opts ListOpts) ([]Submission, error)

	SetRubricItem(ctx context.Context, id, itemID string, applied bool) (Submission, error)
	AddRubricItem(ctx context.Context, id string, item grading.RubricItem) (Submission, error)
	SaveApproval(ctx context.Context, a grading.Approval) (Submission, error)
	MarkReviewed(ctx context.Context, id string) (Submission, error)
}

type memoryStore struct {
	mu   sync.RWMutex
	subs map[string]Submission
}

func NewInMemoryStore() Store {
	return &memoryStore{subs: map[string]Submission{}}
}

// clone detaches the rubric slice from the stored copy.
func clone(s Submission) Submission {
	s.Rubric = append([]grading.RubricItem(nil), s.Rubric...)
	if s.BaseScore != nil {
		v := *s.BaseScore
		s.BaseScore = &v
	}
	if s.FinalScore != nil {
		v := *s.FinalScore
		s.FinalScore = &v
	}
	return s
}

func (m *memoryStore) PutSubmission(_ context.Context, s Submission) error {
	if s.ID == "" {
		return fmt.Errorf("%w: submission id is empty", grading.ErrInvalidInput)
	}
	if s.Status == "" {
		s.Status = StatusPending
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = clone(s)
	return nil
}

func (m *memoryStore) GetSubmission(_ context.Context, id string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subs[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return clone(s), nil
}

func (m *memoryStore) ListSubmissions(_ context.Context, opts ListOpts) ([]Submission, error) {
	m.mu.RLock()
	out := make([]Submission, 0, len(m.subs))
	for _, s := range m.subs {
		if opts.AssignmentID != "" && s.AssignmentID != opts.AssignmentID {
			continue
		}
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		out = append(out, clone(s))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt != out[j].SubmittedAt {
			return out[i].SubmittedAt < out[j].SubmittedAt
		}
		return out[i].ID < out[j].ID
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Submission{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// update applies fn to the stored submission under the write lock.
func (m *memoryStore) update(id string, fn func(*Submission) error) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	s = clone(s)
	if err := fn(&s); err != nil {
		return Submission{}, err
	}
	m.subs[id] = s
	return clone(s), nil
}

func (m *memoryStore) SetRubricItem(_ context.Context, id, itemID string, applied bool) (Submission, error) {
	return m.update(id, func(s *Submission) error { return setApplied(s, itemID, applied) })
}

func (m *memoryStore) AddRubricItem(_ context.Context, id string, item grading.RubricItem) (Submission, error) {
	return m.update(id, func(s *Submission) error { return addItem(s, item) })
}

func (m *memoryStore) SaveApproval(_ context.Context, a grading.Approval) (Submission, error) {
	return m.update(a.SubmissionID, func(s *Submission) error { applyApproval(s, a); return nil })
}

func (m *memoryStore) MarkReviewed(_ context.Context, id string) (Submission, error) {
	return m.update(id, func(s *Submission) error { s.Reviewed = true; return nil })
}

// --- mutations shared by both stores ---

func setApplied(s *Submission, itemID string, applied bool) error {
	for i := range s.Rubric {
		if s.Rubric[i].ID == itemID {
			s.Rubric[i].Applied = applied
			return nil
		}
	}
	return fmt.Errorf("%w: %q", grading.ErrUnknownItem, itemID)
}

func addItem(s *Submission, item grading.RubricItem) error {
	next := append(append([]grading.RubricItem(nil), s.Rubric...), item)
	if err := grading.ValidateItems(next); err != nil {
		return err
	}
	s.Rubric = next
	return nil
}

func applyApproval(s *Submission, a grading.Approval) {
	final := a.Score.Final
	s.FinalScore = &final
	s.Feedback = a.Feedback
	s.GradedBy = a.Reviewer
	s.Rubric = append([]grading.RubricItem(nil), a.Items...)
	s.Status = StatusGraded
	s.Reviewed = true
	s.GradedAt = a.ApprovedAt.Unix()
}
