package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mind-engage/examgrade/internal/db"
	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/submission"
)

const demoAssignment = "calculus-final"

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo Calculus Final Exam roster",
		Args:  cobra.NoArgs,
		RunE:  runSeed,
	}
}

func demoSubmissions(day func(string) int64) []submission.Submission {
	base := func(v int) *int { return &v }
	return []submission.Submission{
		{
			ID: "calc-stu001", AssignmentID: demoAssignment, StudentID: "STU001", StudentName: "Alice Johnson",
			BaseScore: base(74), Status: submission.StatusSubmitted, SubmittedAt: day("2024-01-15"),
			Feedback: "For the case where n+1 is even, try writing n+1 = 2k and applying the inductive hypothesis to k.",
			Rubric: []grading.RubricItem{
				{ID: "1", Text: "Fully Correct", Points: -1, Category: grading.CategoryPositive},
				{ID: "2", Text: "Fully Incorrect", Points: -1, Category: grading.CategoryNegative},
				{ID: "3", Text: "Didn't consider n = 1", Points: -2, Category: grading.CategoryNegative},
				{ID: "4", Text: "Didn't consider odd case", Points: -2, Applied: true, Category: grading.CategoryNegative},
				{ID: "5", Text: "Didn't apply inductive hypothesis to n-1 and identify addition by 1 = 2^1 (odd case)", Points: -2, Applied: true, Category: grading.CategoryNegative},
			},
		},
		{ID: "calc-stu002", AssignmentID: demoAssignment, StudentID: "STU002", StudentName: "Bob Smith",
			BaseScore: base(100), FinalScore: base(78), Status: submission.StatusGraded, Reviewed: true,
			SubmittedAt: day("2024-01-15"), GradedAt: day("2024-01-16")},
		{ID: "calc-stu003", AssignmentID: demoAssignment, StudentID: "STU003", StudentName: "Carol Davis",
			BaseScore: base(100), FinalScore: base(92), Status: submission.StatusGraded, Reviewed: true,
			SubmittedAt: day("2024-01-14"), GradedAt: day("2024-01-15")},
		{ID: "calc-stu004", AssignmentID: demoAssignment, StudentID: "STU004", StudentName: "David Wilson",
			Status: submission.StatusPending, SubmittedAt: day("2024-01-16")},
		{ID: "calc-stu005", AssignmentID: demoAssignment, StudentID: "STU005", StudentName: "Emma Brown",
			BaseScore: base(100), FinalScore: base(89), Status: submission.StatusGraded, Reviewed: true,
			SubmittedAt: day("2024-01-15"), GradedAt: day("2024-01-16")},
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	driver, _ := cmd.Flags().GetString("db-driver")
	dsn, _ := cmd.Flags().GetString("db-dsn")

	dbh, err := db.Open(cmd.Context(), db.Driver(driver), dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer dbh.Close()
	store := submission.NewSQLStore(dbh, driver)

	day := func(s string) int64 {
		t, _ := time.Parse(time.DateOnly, s)
		return t.Unix()
	}
	subs := demoSubmissions(day)
	for _, s := range subs {
		if err := store.PutSubmission(cmd.Context(), s); err != nil {
			return fmt.Errorf("seed %s: %w", s.ID, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d submissions into assignment %q\n", len(subs), demoAssignment)
	return nil
}
