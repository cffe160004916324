package uploads

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/storage"
	syncx "github.com/mind-engage/examgrade/internal/sync"
	"github.com/mind-engage/examgrade/internal/testutil"
)

func source(kind FileKind, name, body string) Source {
	return Source{Kind: kind, Name: name, Size: int64(len(body)), Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}}
}

func newService(t *testing.T) (*Service, *storage.FSStore, *syncx.EventRepo) {
	t.Helper()
	h := testutil.OpenDB(t)
	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	events := syncx.NewEventRepo(h)
	svc := NewService(h, blobs, events, "local")
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return svc, blobs, events
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, blobs, events := newService(t)

	up, err := svc.Create(ctx, Intake{
		Title:          "  Calculus Final Exam ",
		QuestionType:   "mixed",
		TotalQuestions: 10,
		Files: []Source{
			source(KindExam, "alice.pdf", "alice paper"),
			source(KindExam, `C:\scans\bob.png`, "bob paper"),
			source(KindAnswerKey, "key.pdf", "answers"),
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^exam_1700000000123_[0-9a-f]{8}$`, up.ExamID)
	assert.Equal(t, "Calculus Final Exam", up.Title)
	assert.Equal(t, StatusProcessing, up.Status)
	require.Len(t, up.Files, 3)
	assert.True(t, strings.HasPrefix(up.Files[1].Key, "uploads/"+up.ExamID+"/exam/"))
	assert.True(t, strings.HasSuffix(up.Files[1].Key, "-bob.png"))
	assert.True(t, strings.HasPrefix(up.Files[2].Key, "uploads/"+up.ExamID+"/answer-key/"))
	assert.True(t, strings.HasPrefix(up.Files[2].URL, "file://"))

	rc, err := blobs.Get(up.Files[2].Key)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "answers", string(b))

	got, err := svc.Get(ctx, up.ExamID)
	require.NoError(t, err)
	assert.Equal(t, up, got)

	log, err := events.List(ctx, up.ExamID)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, syncx.TypeExamUploaded, log[0].Type)
}

func TestService_CreateRejects(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	cases := map[string]Intake{
		"no exam file":   {Files: []Source{source(KindAnswerKey, "key.pdf", "k")}},
		"unknown type":   {QuestionType: "oral", Files: []Source{source(KindExam, "a.pdf", "a")}},
		"negative count": {TotalQuestions: -1, Files: []Source{source(KindExam, "a.pdf", "a")}},
	}
	for name, in := range cases {
		_, err := svc.Create(ctx, in)
		assert.ErrorIs(t, err, grading.ErrInvalidInput, name)
	}

	_, err := svc.Get(ctx, "exam_0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidQuestionType(t *testing.T) {
	assert.True(t, ValidQuestionType(""))
	assert.True(t, ValidQuestionType("true-false"))
	assert.False(t, ValidQuestionType("True/False"))
}

func TestService_OpenFile(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	up, err := svc.Create(ctx, Intake{Files: []Source{
		source(KindExam, "a.pdf", "paper"),
		source(KindAnswerKey, "key.pdf", "answers"),
	}})
	require.NoError(t, err)

	f, rc, err := svc.OpenFile(ctx, up.ExamID, 1)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, KindAnswerKey, f.Kind)
	assert.Equal(t, "answers", string(b))

	_, _, err = svc.OpenFile(ctx, up.ExamID, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = svc.OpenFile(ctx, "exam_0", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func countBlobs(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	require.NoError(t, filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	}))
	return n
}

func TestService_CreateSameMillisecond(t *testing.T) {
	ctx := context.Background()
	h := testutil.OpenDB(t)
	dir := t.TempDir()
	blobs, err := storage.NewFSStore(dir)
	require.NoError(t, err)
	svc := NewService(h, blobs, syncx.NewEventRepo(h), "local")
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }

	first, err := svc.Create(ctx, Intake{Files: []Source{source(KindExam, "a.pdf", "a")}})
	require.NoError(t, err)
	second, err := svc.Create(ctx, Intake{Files: []Source{source(KindExam, "b.pdf", "b")}})
	require.NoError(t, err)
	assert.NotEqual(t, first.ExamID, second.ExamID)
	assert.Equal(t, 2, countBlobs(t, dir))
}

func TestService_CreateFailureRemovesBlobs(t *testing.T) {
	ctx := context.Background()
	h := testutil.OpenDB(t)
	dir := t.TempDir()
	blobs, err := storage.NewFSStore(dir)
	require.NoError(t, err)
	svc := NewService(h, blobs, syncx.NewEventRepo(h), "local")

	broken := Source{Kind: KindAnswerKey, Name: "key.pdf", Open: func() (io.ReadCloser, error) {
		return nil, errors.New("scanner unplugged")
	}}
	_, err = svc.Create(ctx, Intake{Files: []Source{source(KindExam, "a.pdf", "a"), broken}})
	require.Error(t, err)
	assert.Equal(t, 0, countBlobs(t, dir))

	require.NoError(t, h.Close())
	_, err = svc.Create(ctx, Intake{Files: []Source{source(KindExam, "a.pdf", "a")}})
	require.Error(t, err)
	assert.Equal(t, 0, countBlobs(t, dir))
}
