package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/examgrade/internal/grades"
	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/submission"
	syncx "github.com/mind-engage/examgrade/internal/sync"
	"github.com/mind-engage/examgrade/internal/uploads"
)

type Deps struct {
	Submissions submission.Store
	Grades      *grades.Repo
	Uploads     *uploads.Service
	Events      *syncx.EventRepo

	Policy         grading.Policy
	SiteID         string
	MaxUploadBytes int64
	CORSOrigins    []string
	Log            *slog.Logger
}

// NewRouter builds the gateway's handler tree.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 32 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(ar chi.Router) {
		ar.Post("/grade", GradeOverrideHandler(d.Grades, d.Log))
		ar.Post("/upload", UploadExamHandler(d.Uploads, d.MaxUploadBytes, d.Log))
		ar.Get("/uploads/{examID}", GetUploadHandler(d.Uploads, d.Log))
		ar.Get("/uploads/{examID}/files/{index}", DownloadUploadFileHandler(d.Uploads, d.Log))

		ar.Route("/assignments/{assignmentID}", func(sr chi.Router) {
			sr.Get("/submissions", ListSubmissionsHandler(d.Submissions, d.Policy, d.Log))
			sr.Get("/export", ExportGradesHandler(d.Submissions, d.Log))
		})

		ar.Route("/submissions/{submissionID}", func(sr chi.Router) {
			sr.Get("/", GetSubmissionHandler(d.Submissions, d.Policy, d.Log))
			sr.Post("/rubric", AddRubricItemHandler(d.Submissions, d.Policy, d.Log))
			sr.Put("/rubric/{itemID}", ToggleRubricItemHandler(d.Submissions, d.Policy, d.Log))
			sr.Post("/approve", ApproveGradeHandler(d.Submissions, d.Events, d.SiteID, d.Policy, d.Log))
			sr.Post("/reviewed", MarkReviewedHandler(d.Submissions, d.Policy, d.Log))
			sr.Get("/navigate", NavigateHandler(d.Submissions, d.Policy, d.Log))
			sr.Get("/history", HistoryHandler(d.Events, d.Log))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	return r
}
