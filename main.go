package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/api/handlers"
	"github.com/pulsepoint/eris-api/api/scheduler"
	"github.com/pulsepoint/eris-api/config"
	"github.com/pulsepoint/eris-api/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//initialize state store, engine and router
	if err := a.Initialize(ctx); err != nil {
		zap.S().Fatalw("failed to initialize", "error", err)
	}

	var mailer scheduler.Mailer
	if a.Config.SendGridKey != "" && a.Config.ReportTo != "" {
		mailer = scheduler.NewSendGridMailer(a.Config.SendGridKey, a.Config.ReportFrom, a.Config.ReportTo)
	}
	jobs := scheduler.NewScheduler(a.Config, a.Engine, a.Store, mailer, logging.New("scheduler"))
	if err := jobs.Start(); err != nil {
		zap.S().Fatalw("failed to start scheduler", "error", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", a.Config.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zap.S().Infow("eris-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	zap.S().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("server shutdown failed", "error", err)
	}
	jobs.Stop()

	// final write so nothing committed since the last save is lost
	if err := jobs.Backup(shutdownCtx); err != nil {
		zap.S().Errorw("final backup failed", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		zap.S().Errorw("failed to close state store", "error", err)
	}
	_ = zap.L().Sync()
}
