package http

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/submission"
)

type rosterResp struct {
	Submissions []submissionView   `json:"submissions"`
	Summary     submission.Summary `json:"summary"`
}

// GET /api/assignments/{assignmentID}/submissions?status=&limit=&offset=
// The summary always covers the whole assignment, not the filtered page.
func ListSubmissionsHandler(store submission.Store, p grading.Policy, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		q := r.URL.Query()
		status := submission.Status(strings.TrimSpace(q.Get("status")))
		switch status {
		case "", submission.StatusPending, submission.StatusSubmitted, submission.StatusGraded:
		default:
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown status " + strconv.Quote(string(status))})
			return
		}

		all, err := store.ListSubmissions(r.Context(), submission.ListOpts{AssignmentID: assignmentID})
		if err != nil {
			writeError(w, r, log, err, "list submissions")
			return
		}
		page, err := store.ListSubmissions(r.Context(), submission.ListOpts{
			AssignmentID: assignmentID,
			Status:       status,
			Limit:        parseIntDefault(q.Get("limit"), 50),
			Offset:       parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, r, log, err, "list submissions")
			return
		}
		out := rosterResp{Submissions: make([]submissionView, 0, len(page)), Summary: submission.Summarize(all)}
		for _, s := range page {
			out.Submissions = append(out.Submissions, view(s, p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /api/assignments/{assignmentID}/export
func ExportGradesHandler(store submission.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		list, err := store.ListSubmissions(r.Context(), submission.ListOpts{AssignmentID: assignmentID})
		if err != nil {
			writeError(w, r, log, err, "export grades")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+assignmentID+"-grades.csv\"")
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"submission_id", "student_id", "student_name", "status", "final_score", "max_score", "feedback"})
		for _, s := range list {
			_ = cw.Write([]string{s.ID, s.StudentID, s.StudentName, string(s.Status), optInt(s.FinalScore), optInt(s.BaseScore), s.Feedback})
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			log.ErrorContext(r.Context(), "export grades", "err", err)
		}
	}
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return def
	}
	return n
}
