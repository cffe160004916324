package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/uploads"
)

const msgUploadFailed = "Failed to upload exam"

type uploadForm struct {
	ExamTitle      string                  `json:"examTitle" validate:"max=200"`
	QuestionType   string                  `json:"questionType" validate:"questiontype"`
	TotalQuestions int                     `json:"totalQuestions" validate:"gte=0,lte=1000"`
	ExamFiles      []*multipart.FileHeader `json:"examFiles" validate:"min=1"`
	AnswerKeyFiles []*multipart.FileHeader `json:"answerKeyFiles"`
}

type uploadResp struct {
	ExamID        string `json:"examId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	EstimatedTime string `json:"estimatedTime"`
}

func parseUploadForm(mf *multipart.Form) (uploadForm, error) {
	first := func(k string) string {
		if v := mf.Value[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	f := uploadForm{
		ExamTitle:      first("examTitle"),
		QuestionType:   first("questionType"),
		ExamFiles:      mf.File["examFiles"],
		AnswerKeyFiles: mf.File["answerKeyFiles"],
	}
	if s := first("totalQuestions"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, fmt.Errorf("%w: totalQuestions must be a whole number", grading.ErrInvalidInput)
		}
		f.TotalQuestions = n
	}
	return f, validateStruct(f)
}

func sources(kind uploads.FileKind, hdrs []*multipart.FileHeader) []uploads.Source {
	out := make([]uploads.Source, 0, len(hdrs))
	for _, h := range hdrs {
		h := h
		out = append(out, uploads.Source{
			Kind: kind,
			Name: h.Filename,
			Size: h.Size,
			Open: func() (io.ReadCloser, error) { return h.Open() },
		})
	}
	return out
}

// POST /api/upload (multipart: examFiles[], answerKeyFiles[], examTitle, questionType, totalQuestions)
func UploadExamHandler(svc *uploads.Service, maxBytes int64, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit)})
				return
			}
			log.ErrorContext(r.Context(), "upload error", "err", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgUploadFailed})
			return
		}
		defer r.MultipartForm.RemoveAll()

		form, err := parseUploadForm(r.MultipartForm)
		if err != nil {
			writeError(w, r, log, err, msgUploadFailed)
			return
		}
		files := append(sources(uploads.KindExam, form.ExamFiles), sources(uploads.KindAnswerKey, form.AnswerKeyFiles)...)
		up, err := svc.Create(r.Context(), uploads.Intake{
			Title:          form.ExamTitle,
			QuestionType:   form.QuestionType,
			TotalQuestions: form.TotalQuestions,
			Files:          files,
		})
		if err != nil {
			writeError(w, r, log, err, msgUploadFailed)
			return
		}
		log.InfoContext(r.Context(), "exam uploaded", "exam", up.ExamID, "files", len(up.Files))
		writeJSON(w, http.StatusOK, uploadResp{
			ExamID:        up.ExamID,
			Status:        up.Status,
			Message:       "Exam uploaded successfully. AI grading in progress...",
			EstimatedTime: "2-3 minutes",
		})
	}
}

// GET /api/uploads/{examID}
func GetUploadHandler(svc *uploads.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, err := svc.Get(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeError(w, r, log, err, "get upload")
			return
		}
		writeJSON(w, http.StatusOK, up)
	}
}

// GET /api/uploads/{examID}/files/{index}
func DownloadUploadFileHandler(svc *uploads.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "file index must be a whole number"})
			return
		}
		f, rc, err := svc.OpenFile(r.Context(), chi.URLParam(r, "examID"), n)
		if err != nil {
			writeError(w, r, log, err, "download file")
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(path.Base(f.Key)))
		if _, err := io.Copy(w, rc); err != nil {
			log.ErrorContext(r.Context(), "download file", "err", err, "key", f.Key)
		}
	}
}
