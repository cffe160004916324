package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/examgrade/internal/grades"
	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/submission"
	syncx "github.com/mind-engage/examgrade/internal/sync"
)

const msgGradeFailed = "Failed to update grade"

type gradeReq struct {
	ExamID     string   `json:"examId" validate:"required"`
	QuestionID string   `json:"questionId" validate:"required"`
	Grade      *float64 `json:"grade" validate:"required,gte=0"`
	Feedback   string   `json:"feedback"`
}

type gradeResp struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	ExamID          string  `json:"examId"`
	QuestionID      string  `json:"questionId"`
	UpdatedGrade    float64 `json:"updatedGrade"`
	UpdatedFeedback string  `json:"updatedFeedback"`
}

// POST /api/grade
// An unreadable body answers 500 like any other failure; a readable body
// with missing or non-numeric fields answers 400.
func GradeOverrideHandler(repo *grades.Repo, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gradeReq
		if err := decodeJSON(r, &req); err != nil {
			if errors.Is(err, errMalformed) {
				log.ErrorContext(r.Context(), "grading error", "err", err)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgGradeFailed})
				return
			}
			writeError(w, r, log, err, msgGradeFailed)
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, log, err, msgGradeFailed)
			return
		}
		o, err := repo.Upsert(r.Context(), grades.Override{
			ExamID:     req.ExamID,
			QuestionID: req.QuestionID,
			Grade:      *req.Grade,
			Feedback:   req.Feedback,
		})
		if err != nil {
			writeError(w, r, log, err, msgGradeFailed)
			return
		}
		writeJSON(w, http.StatusOK, gradeResp{
			Success:         true,
			Message:         "Grade updated successfully",
			ExamID:          o.ExamID,
			QuestionID:      o.QuestionID,
			UpdatedGrade:    o.Grade,
			UpdatedFeedback: o.Feedback,
		})
	}
}

type submissionView struct {
	Submission submission.Submission `json:"submission"`
	Score      *grading.Result       `json:"score,omitempty"`
}

// view attaches the live score; submissions without a base score have none.
func view(s submission.Submission, p grading.Policy) submissionView {
	v := submissionView{Submission: s}
	if res, err := grading.ScoreSubmission(s.Scoring(), p); err == nil {
		v.Score = &res
	}
	return v
}

// loadReview fetches a submission and opens a review over it.
func loadReview(r *http.Request, store submission.Store, p grading.Policy) (submission.Submission, *grading.Review, error) {
	id := strings.TrimSpace(chi.URLParam(r, "submissionID"))
	sub, err := store.GetSubmission(r.Context(), id)
	if err != nil {
		return submission.Submission{}, nil, err
	}
	rv, err := grading.NewReview(sub.Scoring(), p)
	if err != nil {
		return submission.Submission{}, nil, err
	}
	return sub, rv, nil
}

type toggleReq struct {
	Applied *bool `json:"applied" validate:"required"`
}

// PUT /api/submissions/{submissionID}/rubric/{itemID}
func ToggleRubricItemHandler(store submission.Store, p grading.Policy, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req toggleReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, log, err, "toggle rubric item")
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, log, err, "toggle rubric item")
			return
		}
		sub, rv, err := loadReview(r, store, p)
		if err != nil {
			writeError(w, r, log, err, "toggle rubric item")
			return
		}
		itemID := chi.URLParam(r, "itemID")
		if _, err := rv.Toggle(itemID, *req.Applied); err != nil {
			writeError(w, r, log, err, "toggle rubric item")
			return
		}
		sub, err = store.SetRubricItem(r.Context(), sub.ID, itemID, *req.Applied)
		if err != nil {
			writeError(w, r, log, err, "toggle rubric item")
			return
		}
		writeJSON(w, http.StatusOK, view(sub, p))
	}
}

type addItemReq struct {
	ID       string           `json:"id" validate:"max=64"`
	Text     string           `json:"text" validate:"required,max=500"`
	Points   int              `json:"points"`
	Applied  bool             `json:"applied"`
	Category grading.Category `json:"category" validate:"omitempty,oneof=positive negative"`
}

// POST /api/submissions/{submissionID}/rubric
func AddRubricItemHandler(store submission.Store, p grading.Policy, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, log, err, "add rubric item")
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, log, err, "add rubric item")
			return
		}
		item := grading.RubricItem{
			ID:       strings.TrimSpace(req.ID),
			Text:     req.Text,
			Points:   req.Points,
			Applied:  req.Applied,
			Category: req.Category,
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		sub, rv, err := loadReview(r, store, p)
		if err != nil {
			writeError(w, r, log, err, "add rubric item")
			return
		}
		if _, err := rv.AddItem(item); err != nil {
			writeError(w, r, log, err, "add rubric item")
			return
		}
		sub, err = store.AddRubricItem(r.Context(), sub.ID, item)
		if err != nil {
			writeError(w, r, log, err, "add rubric item")
			return
		}
		writeJSON(w, http.StatusCreated, view(sub, p))
	}
}

type approveReq struct {
	Feedback *string `json:"feedback" validate:"omitempty,max=10000"`
	Reviewer string  `json:"reviewer" validate:"max=128"`
}

// POST /api/submissions/{submissionID}/approve
// Freezes the current rubric score; omitting feedback keeps the stored one.
func ApproveGradeHandler(store submission.Store, events *syncx.EventRepo, siteID string, p grading.Policy, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req approveReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, log, err, "approve grade")
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, log, err, "approve grade")
			return
		}
		sub, rv, err := loadReview(r, store, p)
		if err != nil {
			writeError(w, r, log, err, "approve grade")
			return
		}
		rv.SetFeedback(sub.Feedback)
		if req.Feedback != nil {
			rv.SetFeedback(*req.Feedback)
		}
		approval := rv.Approve(strings.TrimSpace(req.Reviewer))
		sub, err = store.SaveApproval(r.Context(), approval)
		if err != nil {
			writeError(w, r, log, err, "approve grade")
			return
		}
		if events != nil {
			ev, err := syncx.NewEvent(siteID, syncx.TypeGradeApproved, sub.ID, approval)
			if err == nil {
				err = events.Append(r.Context(), ev)
			}
			if err != nil {
				log.ErrorContext(r.Context(), "log approval", "err", err, "submission", sub.ID)
			}
		}
		log.InfoContext(r.Context(), "grade approved", "submission", sub.ID, "final", approval.Score.Final)
		writeJSON(w, http.StatusOK, view(sub, p))
	}
}
