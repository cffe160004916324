package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/examgrade/internal/config"
	"github.com/mind-engage/examgrade/internal/grading"
)

func scoreCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <submission.json|->",
		Short: "Score a submission file with the rubric engine",
		Long: `Reads {"id", "base_score", "items": [{"id","text","points","applied","category"}]}
and prints the score breakdown as JSON. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runScore,
	}
	cmd.Flags().Bool("count-bonuses", cfg.ScoreCountBonuses, "add applied positive deltas")
	cmd.Flags().Bool("clamp-to-base", cfg.ScoreClampToBase, "cap the final score at the base score")
	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	var p grading.Policy
	p.CountBonuses, _ = cmd.Flags().GetBool("count-bonuses")
	p.ClampToBase, _ = cmd.Flags().GetBool("clamp-to-base")

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	var sub grading.Submission
	if err := json.NewDecoder(in).Decode(&sub); err != nil {
		return fmt.Errorf("%w: decode submission: %v", grading.ErrInvalidInput, err)
	}
	res, err := grading.ScoreSubmission(sub, p)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
