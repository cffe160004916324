package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/examgrade/internal/api/http"
	"github.com/mind-engage/examgrade/internal/config"
	"github.com/mind-engage/examgrade/internal/db"
	"github.com/mind-engage/examgrade/internal/grades"
	"github.com/mind-engage/examgrade/internal/storage"
	"github.com/mind-engage/examgrade/internal/submission"
	syncx "github.com/mind-engage/examgrade/internal/sync"
	"github.com/mind-engage/examgrade/internal/uploads"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		logger.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer dbh.Close()

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		logger.Error("blob store", "err", err)
		os.Exit(1)
	}

	events := syncx.NewEventRepo(dbh)
	handler := api.NewRouter(api.Deps{
		Submissions:    submission.NewSQLStore(dbh, cfg.DBDriver),
		Grades:         grades.NewRepo(dbh, events, cfg.SiteID),
		Uploads:        uploads.NewService(dbh, bs, events, cfg.SiteID),
		Events:         events,
		Policy:         cfg.Policy(),
		SiteID:         cfg.SiteID,
		MaxUploadBytes: cfg.UploadMaxBytes(),
		CORSOrigins:    cfg.CORSOrigins(),
		Log:            logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver,
		"count_bonuses", cfg.ScoreCountBonuses, "clamp_to_base", cfg.ScoreClampToBase)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("server closed")
}
