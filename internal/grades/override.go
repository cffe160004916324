// Package grades records manual per-question grade overrides.
package grades

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mind-engage/examgrade/internal/grading"
	syncx "github.com/mind-engage/examgrade/internal/sync"
)

var ErrNotFound = errors.New("grade override not found")

type Override struct {
	ExamID     string  `json:"exam_id"`
	QuestionID string  `json:"question_id"`
	Grade      float64 `json:"grade"`
	Feedback   string  `json:"feedback"`
	UpdatedAt  int64   `json:"updated_at"`
}

type Repo struct {
	db     *sql.DB
	events *syncx.EventRepo
	siteID string
}

func NewRepo(db *sql.DB, events *syncx.EventRepo, siteID string) *Repo {
	return &Repo{db: db, events: events, siteID: siteID}
}

func validate(o Override) error {
	switch {
	case o.ExamID == "":
		return fmt.Errorf("%w: exam id is empty", grading.ErrInvalidInput)
	case o.QuestionID == "":
		return fmt.Errorf("%w: question id is empty", grading.ErrInvalidInput)
	case math.IsNaN(o.Grade) || math.IsInf(o.Grade, 0) || o.Grade < 0:
		return fmt.Errorf("%w: grade %v", grading.ErrInvalidInput, o.Grade)
	}
	return nil
}

// Upsert stores the override and appends a GradeOverridden event atomically.
func (r *Repo) Upsert(ctx context.Context, o Override) (Override, error) {
	if err := validate(o); err != nil {
		return Override{}, err
	}
	o.UpdatedAt = time.Now().Unix()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Override{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO grade_overrides (exam_id,question_id,grade,feedback,updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (exam_id,question_id) DO UPDATE SET grade=EXCLUDED.grade, feedback=EXCLUDED.feedback, updated_at=EXCLUDED.updated_at`,
		o.ExamID, o.QuestionID, o.Grade, o.Feedback, o.UpdatedAt)
	if err != nil {
		return Override{}, fmt.Errorf("upsert override: %w", err)
	}
	ev, err := syncx.NewEvent(r.siteID, syncx.TypeGradeOverridden, o.ExamID, o)
	if err != nil {
		return Override{}, err
	}
	if err := r.events.AppendTx(ctx, tx, ev); err != nil {
		return Override{}, fmt.Errorf("log override: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Override{}, err
	}
	return o, nil
}

func (r *Repo) Get(ctx context.Context, examID, questionID string) (Override, error) {
	o := Override{ExamID: examID, QuestionID: questionID}
	err := r.db.QueryRowContext(ctx,
		`SELECT grade,feedback,updated_at FROM grade_overrides WHERE exam_id=$1 AND question_id=$2`,
		examID, questionID).Scan(&o.Grade, &o.Feedback, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Override{}, ErrNotFound
	}
	if err != nil {
		return Override{}, err
	}
	return o, nil
}
