package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"

	"github.com/lenskeep/studio-api/internal/config"
	"github.com/lenskeep/studio-api/internal/email"
	"github.com/lenskeep/studio-api/internal/repository/postgres"
	"github.com/lenskeep/studio-api/internal/scheduler"
	"github.com/lenskeep/studio-api/internal/service/audit"
	"github.com/lenskeep/studio-api/internal/service/duedate"
	"github.com/lenskeep/studio-api/internal/service/lifecycle"
	"github.com/lenskeep/studio-api/internal/service/notification"
	"github.com/lenskeep/studio-api/internal/service/todo"
	"github.com/lenskeep/studio-api/internal/worker"
	"github.com/lenskeep/studio-api/pkg/logger"
	redisbroker "github.com/lenskeep/studio-api/pkg/messaging/redis"
	"github.com/lenskeep/studio-api/pkg/metrics"
	"github.com/lenskeep/studio-api/pkg/realtime"
)

// workerEnv holds the knobs that vary per deployment of the scheduler
// process; everything else comes from the shared config file.
type workerEnv struct {
	LifecycleInterval time.Duration `envconfig:"LIFECYCLE_INTERVAL" default:"1m"`
	DueDateInterval   time.Duration `envconfig:"DUE_DATE_INTERVAL" default:"24h"`
	SideEffectTimeout time.Duration `envconfig:"SIDE_EFFECT_TIMEOUT" default:"15s"`
	HealthPort        int           `envconfig:"HEALTH_PORT" default:"8081"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load config")
	}

	var env workerEnv
	if err := envconfig.Process("scheduler", &env); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to process environment")
	}

	log := logger.NewLogger(nil).WithFields(map[string]interface{}{"component": "scheduler"})

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

	// The scheduler has no websocket sessions of its own; pushes go out
	// over the broker and land on whichever API replica holds the user.
	publisher := realtime.NewBrokerPublisher(broker, log)

	m := metrics.NewMetrics("studio_scheduler")

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
		SideEffectTimeout: env.SideEffectTimeout,
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

	sched := scheduler.NewScheduler(lifecycleSvc, duedateSvc, scheduler.Config{
		LifecycleInterval: env.LifecycleInterval,
		DueDateInterval:   env.DueDateInterval,
	}, log)

	retention := worker.NewRetentionWorker(
		notifSvc,
		auditSvc,
		cfg.Retention.NotificationDays,
		cfg.Retention.AuditDays,
		time.Duration(cfg.Retention.IntervalHours)*time.Hour,
		log,
	)

	go sched.Start(ctx)
	go retention.Start(ctx)
	setupHealthCheck(env.HealthPort, log)

	log.Info("Scheduler started",
		"lifecycle_interval", env.LifecycleInterval.String(),
		"due_date_interval", env.DueDateInterval.String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down...")
	cancel()
}

func setupHealthCheck(port int, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error(err, "Health check server failed")
		}
	}()
}
