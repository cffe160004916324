package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mind-engage/examgrade/internal/config"
)

func rootCmd() *cobra.Command {
	cfg := config.Load()
	root := &cobra.Command{
		Use:           "gradectl",
		Short:         "Operator tools for the exam grading service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("db-driver", cfg.DBDriver, "database driver (sqlite, postgres)")
	root.PersistentFlags().String("db-dsn", cfg.DBDSN, "database DSN")

	root.AddCommand(scoreCmd(cfg))
	root.AddCommand(seedCmd())
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
