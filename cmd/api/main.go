package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/lenskeep/studio-api/internal/config"
	"github.com/lenskeep/studio-api/internal/email"
	healthHandler "github.com/lenskeep/studio-api/internal/handler/health"
	notificationHandler "github.com/lenskeep/studio-api/internal/handler/notification"
	opsHandler "github.com/lenskeep/studio-api/internal/handler/ops"
	statusHandler "github.com/lenskeep/studio-api/internal/handler/status"
	wsHandler "github.com/lenskeep/studio-api/internal/handler/ws"
	"github.com/lenskeep/studio-api/internal/middleware"
	"github.com/lenskeep/studio-api/internal/repository/postgres"
	"github.com/lenskeep/studio-api/internal/router"
	"github.com/lenskeep/studio-api/internal/scheduler"
	"github.com/lenskeep/studio-api/internal/service/audit"
	"github.com/lenskeep/studio-api/internal/service/duedate"
	"github.com/lenskeep/studio-api/internal/service/lifecycle"
	"github.com/lenskeep/studio-api/internal/service/notification"
	"github.com/lenskeep/studio-api/internal/service/todo"
	"github.com/lenskeep/studio-api/pkg/auth"
	"github.com/lenskeep/studio-api/pkg/logger"
	redisbroker "github.com/lenskeep/studio-api/pkg/messaging/redis"
	"github.com/lenskeep/studio-api/pkg/metrics"
	"github.com/lenskeep/studio-api/pkg/realtime"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Realtime: this replica's hub receives user-addressed envelopes from
	// the broker, covering pushes produced by any process.
	hub := realtime.NewHub(log)
	bridge := realtime.NewBridge(broker, hub, log)
	if err := bridge.Start(ctx); err != nil {
		log.Fatal(err, "Failed to start realtime bridge")
	}
	publisher := realtime.NewBrokerPublisher(broker, log)

	m := metrics.NewMetrics("studio_api")

	base := postgres.NewBaseRepository(db)
	eventRepo := postgres.NewClientEventRepository(&base)
	statusRepo := postgres.NewDeliveryStatusRepository(&base)
	notifRepo := postgres.NewNotificationRepository(&base)
	taskRepo := postgres.NewFollowUpTaskRepository(&base)
	auditRepo := postgres.NewAuditRepository(&base)
	userRepo := postgres.NewUserRepository(&base)
	projectRepo := postgres.NewProjectRepository(&base)

	auditSvc := audit.NewService(auditRepo)
	notifSvc := notification.NewService(notifRepo, publisher, log, m)
	todoSvc := todo.NewService(taskRepo, log, m)
	var mailer email.Service
	if cfg.SMTP.Host != "" {
		mailer = email.NewService(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	lifecycleSvc := lifecycle.NewService(lifecycle.Deps{
		Events:            eventRepo,
		Statuses:          statusRepo,
		Projects:          projectRepo,
		Users:             userRepo,
		Notifier:          notifSvc,
		Tasks:             todoSvc,
		Auditor:           auditSvc,
		Realtime:          publisher,
		Logger:            log,
		Metrics:           m,
		SideEffectTimeout: cfg.Scheduler.SideEffectTimeout(),
	})
	duedateSvc := duedate.NewService(duedate.Deps{
		Events:   eventRepo,
		Projects: projectRepo,
		Users:    userRepo,
		Notifier: notifSvc,
		Mailer:   mailer,
		Logger:   log,
		Metrics:  m,
		Config: duedate.Config{
			ThresholdDays: cfg.DueDate.ThresholdDays,
			MatchMode:     cfg.DueDate.MatchMode,
		},
	})

	// The API does not start the tickers; it only holds the scheduler for
	// the synchronous operational trigger endpoints.
	sched := scheduler.NewScheduler(lifecycleSvc, duedateSvc, scheduler.Config{
		LifecycleInterval: cfg.Scheduler.LifecycleInterval(),
		DueDateInterval:   cfg.Scheduler.DueDateInterval(),
	}, log)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMw := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(
		authMw,
		notificationHandler.NewHandler(notifSvc),
		statusHandler.NewHandler(statusRepo),
		opsHandler.NewHandler(sched),
		wsHandler.NewHandler(hub, jwtSvc, log),
		healthHandler.NewHandler(db),
		router.Config{
			RateLimit:      rate.Limit(50),
			RateBurst:      100,
			CORSConfig:     middleware.DefaultCORSConfig(),
			RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		},
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("API server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Graceful shutdown failed")
	}
}
