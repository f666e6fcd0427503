package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/cache"
	"github.com/justsurfingit/KarirConnect/internal/config"
	"github.com/justsurfingit/KarirConnect/internal/database"
	"github.com/justsurfingit/KarirConnect/internal/handlers"
	"github.com/justsurfingit/KarirConnect/internal/logger"
	"github.com/justsurfingit/KarirConnect/internal/notify"
	"github.com/justsurfingit/KarirConnect/internal/scheduler"
	"github.com/justsurfingit/KarirConnect/internal/services"
	"github.com/justsurfingit/KarirConnect/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// 1. Configuration & logging
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logr, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logr.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database Connection
	db, err := database.Connect(cfg.Database, logr)
	if err != nil {
		return err
	}

	// 3. Infrastructure
	threadCache := cache.New(cfg.Cache, logr)
	if r, ok := threadCache.(*cache.Redis); ok {
		defer r.Close()
	}
	store, err := storage.New(ctx, cfg.Storage, logr)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// 4. Notification channels; a nil sender disables the channel
	var emailSender notify.EmailSender
	switch cfg.Email.Driver {
	case "mailgun":
		if mg := notify.NewMailgunSender(cfg.Email, logr); mg != nil {
			emailSender = mg
		} else {
			logr.Warn("mailgun not configured; email notifications disabled")
		}
	case "gmail":
		gm, err := notify.NewGmailSender(ctx, cfg.Email, logr)
		if err != nil {
			logr.Warn("gmail sender unavailable; email notifications disabled", zap.Error(err))
		} else {
			emailSender = gm
		}
	default:
		logr.Info("email notifications disabled")
	}
	var waSender notify.WhatsAppSender
	if wa := notify.NewWhatsAppGateway(cfg.WhatsApp, logr); wa != nil {
		waSender = wa
	} else {
		logr.Info("whatsapp notifications disabled")
	}

	// 5. Services
	notifications := services.NewNotificationService(db, emailSender, waSender, logr)
	users := services.NewUserService(db)
	companies := services.NewCompanyService(db, store, logr)
	jobs := services.NewJobService(db, logr)
	applications := services.NewApplicationService(db, store, notifications, logr)
	invitations := services.NewInvitationService(db, threadCache, cfg.Cache.ThreadTTL, notifications, logr)
	dashboards := services.NewDashboardService(db, invitations)
	llm, err := services.NewLLMService(ctx, cfg.LLM, services.NewMatcherService(db), logr)
	if err != nil {
		logr.Warn("job extraction unavailable", zap.Error(err))
	}

	// 6. Background jobs
	sched := scheduler.New(logr)
	if cfg.Scheduler.Enabled {
		if err := scheduler.Register(sched, cfg.Scheduler, jobs, notifications); err != nil {
			return err
		}
		sched.Start()
	}

	// 7. HTTP server
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Deps{
		Config:        cfg.Server,
		Log:           logr,
		DB:            db,
		Verifier:      auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Storage:       store,
		Users:         users,
		Companies:     companies,
		Jobs:          jobs,
		Applications:  applications,
		Invitations:   invitations,
		Notifications: notifications,
		Dashboards:    dashboards,
		LLM:           llm,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := database.Close(db); err != nil {
		logr.Warn("closing database", zap.Error(err))
	}
	logr.Info("server stopped")
	return nil
}
