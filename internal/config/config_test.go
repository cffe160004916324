package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examgrade/internal/grading"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "UPLOAD_MAX_MB", "SCORE_COUNT_BONUSES", "SCORE_CLAMP_TO_BASE", "CORS_ORIGINS_OFFLINE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, ModeOffline, c.Mode)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, int64(32<<20), c.UploadMaxBytes())
	assert.Equal(t, grading.Policy{}, c.Policy())
	assert.Equal(t, []string{"http://localhost:3000"}, c.CORSOrigins())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("UPLOAD_MAX_MB", "nope")
	t.Setenv("SCORE_COUNT_BONUSES", "yes")
	t.Setenv("SCORE_CLAMP_TO_BASE", "1")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")

	c := FromEnv()
	assert.Equal(t, 32, c.UploadMaxMB)
	assert.Equal(t, grading.Policy{CountBonuses: true, ClampToBase: true}, c.Policy())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins())
}

func TestLoad_DotEnvDoesNotOverrideEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9999\nSITE_ID=campus-a\n"), 0o600))
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("SITE_ID", "")
	os.Unsetenv("SITE_ID")

	c := Load(path)
	assert.Equal(t, ":7070", c.HTTPAddr)
	assert.Equal(t, "campus-a", c.SiteID)
	os.Unsetenv("SITE_ID")
}
