// Package uploads records exam papers and answer keys handed in for grading.
// Files land in the blob store; text extraction and AI grading happen
// elsewhere, so an upload stays "processing" once accepted.
package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/storage"
	syncx "github.com/mind-engage/examgrade/internal/sync"
)

var ErrNotFound = errors.New("upload not found")

const StatusProcessing = "processing"

type FileKind string

const (
	KindExam      FileKind = "exam"
	KindAnswerKey FileKind = "answer-key"
)

var questionTypes = map[string]bool{
	"multiple-choice": true,
	"true-false":      true,
	"short-answer":    true,
	"essay":           true,
	"mixed":           true,
}

// ValidQuestionType reports whether t is empty or a known question type.
func ValidQuestionType(t string) bool { return t == "" || questionTypes[t] }

type File struct {
	Kind FileKind `json:"kind"`
	Name string   `json:"name"`
	Key  string   `json:"key"`
	Size int64    `json:"size"`
	URL  string   `json:"url,omitempty"` // signed link, never persisted
}

type Upload struct {
	ExamID         string `json:"exam_id"`
	Title          string `json:"title"`
	QuestionType   string `json:"question_type,omitempty"`
	TotalQuestions int    `json:"total_questions,omitempty"`
	Status         string `json:"status"`
	Files          []File `json:"files"`
	CreatedAt      int64  `json:"created_at"`
}

// Source is one incoming file; Open is called once.
type Source struct {
	Kind FileKind
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type Intake struct {
	Title          string
	QuestionType   string
	TotalQuestions int
	Files          []Source
}

type Service struct {
	db     *sql.DB
	blobs  storage.BlobStore
	events *syncx.EventRepo
	siteID string
	now    func() time.Time
}

func NewService(db *sql.DB, blobs storage.BlobStore, events *syncx.EventRepo, siteID string) *Service {
	return &Service{db: db, blobs: blobs, events: events, siteID: siteID, now: time.Now}
}

func (in Intake) validate() error {
	if !ValidQuestionType(in.QuestionType) {
		return fmt.Errorf("%w: unknown question type %q", grading.ErrInvalidInput, in.QuestionType)
	}
	if in.TotalQuestions < 0 {
		return fmt.Errorf("%w: total questions %d", grading.ErrInvalidInput, in.TotalQuestions)
	}
	for _, f := range in.Files {
		if f.Kind == KindExam {
			return nil
		}
	}
	return fmt.Errorf("%w: at least one exam file is required", grading.ErrInvalidInput)
}

// Create stores every file and records the upload as processing.
func (s *Service) Create(ctx context.Context, in Intake) (Upload, error) {
	if err := in.validate(); err != nil {
		return Upload{}, err
	}
	now := s.now()
	up := Upload{
		ExamID:         newExamID(now),
		Title:          strings.TrimSpace(in.Title),
		QuestionType:   in.QuestionType,
		TotalQuestions: in.TotalQuestions,
		Status:         StatusProcessing,
		Files:          make([]File, 0, len(in.Files)),
		CreatedAt:      now.Unix(),
	}
	committed := false
	defer func() {
		if !committed {
			s.discard(up.Files)
		}
	}()
	for _, src := range in.Files {
		f, err := s.store(up.ExamID, src)
		if err != nil {
			return Upload{}, fmt.Errorf("store %s %q: %w", src.Kind, src.Name, err)
		}
		up.Files = append(up.Files, f)
	}

	fj, err := json.Marshal(up.Files)
	if err != nil {
		return Upload{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Upload{}, err
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `INSERT INTO uploads (exam_id,title,question_type,total_questions,status,files_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		up.ExamID, up.Title, up.QuestionType, up.TotalQuestions, up.Status, string(fj), up.CreatedAt)
	if err != nil {
		return Upload{}, fmt.Errorf("record upload: %w", err)
	}
	ev, err := syncx.NewEvent(s.siteID, syncx.TypeExamUploaded, up.ExamID, up)
	if err != nil {
		return Upload{}, err
	}
	if err := s.events.AppendTx(ctx, tx, ev); err != nil {
		return Upload{}, fmt.Errorf("log upload: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Upload{}, err
	}
	committed = true
	return s.withURLs(up), nil
}

// newExamID keeps the exam_<millis> shape; the suffix separates uploads
// made in the same millisecond.
func newExamID(now time.Time) string {
	return "exam_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// discard removes blobs written for an upload that was never recorded.
func (s *Service) discard(files []File) {
	for _, f := range files {
		_ = s.blobs.Delete(f.Key)
	}
}

func (s *Service) store(examID string, src Source) (File, error) {
	rc, err := src.Open()
	if err != nil {
		return File{}, err
	}
	defer rc.Close()
	name := path.Base(strings.ReplaceAll(src.Name, `\`, "/"))
	if name == "." || name == "/" {
		name = "file"
	}
	key := path.Join("uploads", examID, string(src.Kind), uuid.NewString()+"-"+name)
	key, err = s.blobs.Put(key, rc)
	if err != nil {
		return File{}, err
	}
	return File{Kind: src.Kind, Name: src.Name, Key: key, Size: src.Size}, nil
}

func (s *Service) Get(ctx context.Context, examID string) (Upload, error) {
	var (
		up Upload
		fj string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT exam_id,title,question_type,total_questions,status,files_json,created_at FROM uploads WHERE exam_id=$1`,
		examID).Scan(&up.ExamID, &up.Title, &up.QuestionType, &up.TotalQuestions, &up.Status, &fj, &up.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Upload{}, ErrNotFound
	}
	if err != nil {
		return Upload{}, err
	}
	if err := json.Unmarshal([]byte(fj), &up.Files); err != nil {
		return Upload{}, fmt.Errorf("decode files of %s: %w", examID, err)
	}
	return s.withURLs(up), nil
}

// withURLs fills each file's signed link. A key the store refuses leaves
// the link empty.
func (s *Service) withURLs(up Upload) Upload {
	files := make([]File, len(up.Files))
	for i, f := range up.Files {
		f.URL, _ = s.blobs.SignedURL(f.Key)
		files[i] = f
	}
	up.Files = files
	return up
}

// OpenFile streams the n-th stored file of an upload.
func (s *Service) OpenFile(ctx context.Context, examID string, n int) (File, io.ReadCloser, error) {
	up, err := s.Get(ctx, examID)
	if err != nil {
		return File{}, nil, err
	}
	if n < 0 || n >= len(up.Files) {
		return File{}, nil, fmt.Errorf("%w: %s has no file %d", ErrNotFound, examID, n)
	}
	f := up.Files[n]
	rc, err := s.blobs.Get(f.Key)
	if err != nil {
		return File{}, nil, fmt.Errorf("open %s: %w", f.Key, err)
	}
	return f, rc, nil
}
