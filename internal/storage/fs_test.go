package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutGet(t *testing.T) {
	base := t.TempDir()
	s, err := NewFSStore(base)
	require.NoError(t, err)

	key, err := s.Put("uploads/exam_1/exam/a.pdf", strings.NewReader("page one"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/exam_1/exam/a.pdf", key)

	rc, err := s.Get(key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "page one", string(b))

	u, err := s.SignedURL(key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "/uploads/exam_1/exam/a.pdf"))
}

func TestFSStore_KeysStayInsideBase(t *testing.T) {
	base := t.TempDir()
	s, err := NewFSStore(filepath.Join(base, "blobs"))
	require.NoError(t, err)

	key, err := s.Put("../../escape.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "escape.txt", key)
	_, err = os.Stat(filepath.Join(base, "blobs", "escape.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = s.Put("/", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrBadKey)
	_, err = s.Get("")
	assert.ErrorIs(t, err, ErrBadKey)
}

func TestFSStore_Delete(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put("uploads/exam_1/exam/a.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(key))
	_, err = s.Get(key)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(key), "deleting twice")
	assert.ErrorIs(t, s.Delete(""), ErrBadKey)
}
