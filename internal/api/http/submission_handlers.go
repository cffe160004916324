package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/submission"
	syncx "github.com/mind-engage/examgrade/internal/sync"
)

// GET /api/submissions/{submissionID}
func GetSubmissionHandler(store submission.Store, p grading.Policy, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := store.GetSubmission(r.Context(), chi.URLParam(r, "submissionID"))
		if err != nil {
			writeError(w, r, log, err, "get submission")
			return
		}
		writeJSON(w, http.StatusOK, view(sub, p))
	}
}

// POST /api/submissions/{submissionID}/reviewed
func MarkReviewedHandler(store submission.Store, p grading.Policy, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := store.MarkReviewed(r.Context(), chi.URLParam(r, "submissionID"))
		if err != nil {
			writeError(w, r, log, err, "mark reviewed")
			return
		}
		writeJSON(w, http.StatusOK, view(sub, p))
	}
}

// GET /api/submissions/{submissionID}/navigate?direction=next|previous|next-unreviewed|previous-unreviewed
func NavigateHandler(store submission.Store, p grading.Policy, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dir := submission.Direction(r.URL.Query().Get("direction"))
		if dir == "" {
			dir = submission.DirNext
		}
		sub, err := submission.Neighbor(r.Context(), store, chi.URLParam(r, "submissionID"), dir)
		if err != nil {
			writeError(w, r, log, err, "navigate")
			return
		}
		writeJSON(w, http.StatusOK, view(sub, p))
	}
}

// GET /api/submissions/{submissionID}/history
func HistoryHandler(events *syncx.EventRepo, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := events.List(r.Context(), chi.URLParam(r, "submissionID"))
		if err != nil {
			writeError(w, r, log, err, "history")
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
