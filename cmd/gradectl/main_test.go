package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examgrade/internal/db"
	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/submission"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"s1","base_score":74,"items":[
		{"id":"a","points":-2,"applied":true},{"id":"b","points":-2,"applied":true},{"id":"c","points":5,"applied":true}]}`), 0o600))

	out, err := run(t, "", "score", path)
	require.NoError(t, err)
	var res grading.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, grading.Result{Base: 74, Deductions: 4, Final: 70}, res)

	out, err = run(t, "", "score", "--count-bonuses", "--clamp-to-base", path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 74, res.Final)
}

func TestScore_Stdin(t *testing.T) {
	out, err := run(t, `{"id":"s","base_score":0,"items":[{"id":"x","points":-5,"applied":true}]}`, "score", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"final": 0`)

	_, err = run(t, `{"id":"s","items":[]}`, "score", "-")
	assert.ErrorIs(t, err, grading.ErrInvalidInput)

	_, err = run(t, `{"id":"s","base_score":"high"}`, "score", "-")
	assert.ErrorIs(t, err, grading.ErrInvalidInput)
}

func TestSeed(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "seed.db")
	out, err := run(t, "", "seed", "--db-driver", "sqlite", "--db-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 5 submissions")

	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	require.NoError(t, err)
	defer dbh.Close()
	store := submission.NewSQLStore(dbh, "sqlite")

	alice, err := store.GetSubmission(ctx, "calc-stu001")
	require.NoError(t, err)
	res, err := grading.ScoreSubmission(alice.Scoring(), grading.Policy{})
	require.NoError(t, err)
	assert.Equal(t, 70, res.Final)

	list, err := store.ListSubmissions(ctx, submission.ListOpts{AssignmentID: demoAssignment})
	require.NoError(t, err)
	sum := submission.Summarize(list)
	assert.Equal(t, 3, sum.Graded)
	assert.Equal(t, 86.3, sum.AverageScore)
	assert.Equal(t, 100, sum.PassRate)
}
