package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/examgrade/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

const selectCols = `id,assignment_id,student_id,student_name,base_score,status,reviewed,final_score,feedback,graded_by,rubric_json,submitted_at,graded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (Submission, error) {
	var (
		s                 Submission
		base, final, gAt  sql.NullInt64
		reviewed          int
		status, rubricRaw string
	)
	if err := row.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.StudentName, &base, &status,
		&reviewed, &final, &s.Feedback, &s.GradedBy, &rubricRaw, &s.SubmittedAt, &gAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	s.Status = Status(status)
	s.Reviewed = reviewed != 0
	if base.Valid {
		v := int(base.Int64)
		s.BaseScore = &v
	}
	if final.Valid {
		v := int(final.Int64)
		s.FinalScore = &v
	}
	if gAt.Valid {
		s.GradedAt = gAt.Int64
	}
	if err := json.Unmarshal([]byte(rubricRaw), &s.Rubric); err != nil {
		return Submission{}, fmt.Errorf("decode rubric of %s: %w", s.ID, err)
	}
	return s, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLStore) PutSubmission(ctx context.Context, sub Submission) error {
	if sub.ID == "" {
		return fmt.Errorf("%w: submission id is empty", grading.ErrInvalidInput)
	}
	if sub.Status == "" {
		sub.Status = StatusPending
	}
	if sub.Rubric == nil {
		sub.Rubric = []grading.RubricItem{}
	}
	rj, err := json.Marshal(sub.Rubric)
	if err != nil {
		return err
	}
	var gradedAt sql.NullInt64
	if sub.GradedAt != 0 {
		gradedAt = sql.NullInt64{Int64: sub.GradedAt, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO submissions (`+selectCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET assignment_id=EXCLUDED.assignment_id, student_id=EXCLUDED.student_id,
		  student_name=EXCLUDED.student_name, base_score=EXCLUDED.base_score, status=EXCLUDED.status,
		  reviewed=EXCLUDED.reviewed, final_score=EXCLUDED.final_score, feedback=EXCLUDED.feedback,
		  graded_by=EXCLUDED.graded_by, rubric_json=EXCLUDED.rubric_json, submitted_at=EXCLUDED.submitted_at,
		  graded_at=EXCLUDED.graded_at`,
		sub.ID, sub.AssignmentID, sub.StudentID, sub.StudentName, nullInt(sub.BaseScore), string(sub.Status),
		boolInt(sub.Reviewed), nullInt(sub.FinalScore), sub.Feedback, sub.GradedBy, string(rj), sub.SubmittedAt, gradedAt)
	return err
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return scanSubmission(s.db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM submissions WHERE id=$1`, id))
}

func (s *SQLStore) ListSubmissions(ctx context.Context, opts ListOpts) ([]Submission, error) {
	var (
		where []string
		args  []any
	)
	if opts.AssignmentID != "" {
		args = append(args, opts.AssignmentID)
		where = append(where, fmt.Sprintf("assignment_id=$%d", len(args)))
	}
	if opts.Status != "" {
		args = append(args, string(opts.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	q := `SELECT ` + selectCols + ` FROM submissions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY submitted_at, id"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	} else if opts.Offset > 0 && s.driver != "postgres" {
		q += " LIMIT -1" // sqlite needs a LIMIT before OFFSET
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// update loads, mutates and writes back a submission in one transaction.
func (s *SQLStore) update(ctx context.Context, id string, fn func(*Submission) error) (Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Submission{}, err
	}
	defer tx.Rollback()

	q := `SELECT ` + selectCols + ` FROM submissions WHERE id=$1`
	if s.driver == "postgres" {
		q += " FOR UPDATE"
	}
	sub, err := scanSubmission(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return Submission{}, err
	}
	if err := fn(&sub); err != nil {
		return Submission{}, err
	}
	rj, err := json.Marshal(sub.Rubric)
	if err != nil {
		return Submission{}, err
	}
	var gradedAt sql.NullInt64
	if sub.GradedAt != 0 {
		gradedAt = sql.NullInt64{Int64: sub.GradedAt, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `UPDATE submissions SET status=$1, reviewed=$2, final_score=$3, feedback=$4,
		graded_by=$5, rubric_json=$6, graded_at=$7 WHERE id=$8`,
		string(sub.Status), boolInt(sub.Reviewed), nullInt(sub.FinalScore), sub.Feedback,
		sub.GradedBy, string(rj), gradedAt, id)
	if err != nil {
		return Submission{}, err
	}
	if err := tx.Commit(); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (s *SQLStore) SetRubricItem(ctx context.Context, id, itemID string, applied bool) (Submission, error) {
	return s.update(ctx, id, func(sub *Submission) error { return setApplied(sub, itemID, applied) })
}

func (s *SQLStore) AddRubricItem(ctx context.Context, id string, item grading.RubricItem) (Submission, error) {
	return s.update(ctx, id, func(sub *Submission) error { return addItem(sub, item) })
}

func (s *SQLStore) SaveApproval(ctx context.Context, a grading.Approval) (Submission, error) {
	return s.update(ctx, a.SubmissionID, func(sub *Submission) error { applyApproval(sub, a); return nil })
}

func (s *SQLStore) MarkReviewed(ctx context.Context, id string) (Submission, error) {
	return s.update(ctx, id, func(sub *Submission) error { sub.Reviewed = true; return nil })
}
