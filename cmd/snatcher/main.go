package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/rainbow59216/snatcher/internal/enroll"
	"github.com/rainbow59216/snatcher/internal/handler"
	"github.com/rainbow59216/snatcher/internal/middleware"
	"github.com/rainbow59216/snatcher/internal/models"
	"github.com/rainbow59216/snatcher/internal/notify"
	"github.com/rainbow59216/snatcher/internal/progress"
	"github.com/rainbow59216/snatcher/internal/repository"
	"github.com/rainbow59216/snatcher/internal/selection"
	"github.com/rainbow59216/snatcher/internal/service"
	"github.com/rainbow59216/snatcher/internal/session"
	"github.com/rainbow59216/snatcher/internal/token"
	"github.com/rainbow59216/snatcher/pkg/cache"
	"github.com/rainbow59216/snatcher/pkg/config"
	"github.com/rainbow59216/snatcher/pkg/database"
	"github.com/rainbow59216/snatcher/pkg/jobs"
	"github.com/rainbow59216/snatcher/pkg/logger"
	corsmiddleware "github.com/rainbow59216/snatcher/pkg/middleware/cors"
	reqidmiddleware "github.com/rainbow59216/snatcher/pkg/middleware/requestid"
)

// runLogStarter adapts the progress logger to the runner's log interface.
type runLogStarter struct {
	logs *progress.Logger
}

func (s runLogStarter) Start(ctx context.Context, key, fuelID string, index int) (selection.AttemptLog, error) {
	return s.logs.Start(ctx, key, fuelID, index)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	sessionRedis, err := cache.NewRedis(cfg.Redis, cfg.Redis.SessionDB)
	if err != nil {
		logr.Sugar().Fatalw("session redis connection failed", "error", err)
	}
	defer sessionRedis.Close()

	progressRedis, err := cache.NewRedis(cfg.Redis, cfg.Redis.ProgressDB)
	if err != nil {
		logr.Sugar().Fatalw("progress redis connection failed", "error", err)
	}
	defer progressRedis.Close()

	sharedRedis, err := cache.NewRedis(cfg.Redis, cfg.Redis.SharedDB)
	if err != nil {
		logr.Sugar().Fatalw("shared redis connection failed", "error", err)
	}
	defer sharedRedis.Close()

	store := session.NewStore(sessionRedis, cfg.Enroll.ContextIDTTL, logr)
	weights := session.NewWeightTable(sharedRedis, logr)
	if err := weights.Seed(ctx, cfg.Enroll.Hosts); err != nil {
		logr.Sugar().Fatalw("host weight seeding failed", "error", err)
	}
	picker := session.NewPicker(store, weights)

	client := enroll.NewClient(cfg.Enroll, logr)
	progLogger := progress.NewLogger(progressRedis, logr)
	fuelCodec := token.NewFuelCodec(cfg.Fuel.Secret)
	mailer := notify.NewMailer(cfg.Mail, logr)

	tokenRepo := repository.NewTokenRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	metricsSvc := service.NewMetricsService()

	machine := selection.NewMachine(picker, weights, client, store, cfg.Enroll, logr)
	runner := selection.NewRunner(machine, tokenRepo, recordRepo, runLogStarter{logs: progLogger}, mailer, metricsSvc, logr)

	queue := jobs.NewQueue("booking", func(jctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(models.BookingJob)
		if !ok {
			return fmt.Errorf("unexpected payload on job %s", job.ID)
		}
		return runner.Run(jctx, payload)
	}, jobs.QueueConfig{
		Workers:    cfg.Queue.Workers,
		BufferSize: cfg.Queue.BufferSize,
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		JobTimeout: cfg.Queue.JobTimeout,
		Logger:     logr,
		OnDepth:    metricsSvc.SetQueueDepth,
	})
	queue.Start(ctx)
	defer queue.Stop()

	validate := validator.New()
	bookingSvc := service.NewBookingService(tokenRepo, fuelCodec, store, client, weights, queue, mailer, metricsSvc, validate, cfg.Enroll, logr)
	tokenSvc := service.NewTokenService(tokenRepo, fuelCodec, logr)
	progressSvc := service.NewProgressService(progLogger, fuelCodec, logr)
	catalogSvc := service.NewCatalogService(courseRepo, cfg.Enroll, logr)
	recordSvc := service.NewRecordService(recordRepo, logr)
	watcherSvc := service.NewWatcherService(sharedRedis, client, picker, mailer, cfg.Enroll, cfg.Watcher, logr)
	if err := watcherSvc.Start(ctx); err != nil {
		logr.Sugar().Fatalw("seat watcher start failed", "error", err)
	}
	defer watcherSvc.Stop()

	bookingHandler := handler.NewBookingHandler(bookingSvc, metricsSvc)
	tokenHandler := handler.NewTokenHandler(tokenSvc)
	progressHandler := handler.NewProgressHandler(progressSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	recordHandler := handler.NewRecordHandler(recordSvc)
	watcherHandler := handler.NewWatcherHandler(watcherSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/bookings", bookingHandler.Create)
		api.GET("/window", bookingHandler.Window)

		api.POST("/tokens", tokenHandler.Issue)
		api.GET("/tokens", tokenHandler.List)

		api.GET("/progress", progressHandler.Report)
		api.GET("/progress/stream", progressHandler.Stream)

		api.GET("/courses", catalogHandler.List)

		api.GET("/records/submitted", recordHandler.Submitted)
		api.GET("/records/failures", recordHandler.Failures)

		api.POST("/watches", watcherHandler.Create)
		api.DELETE("/watches/:sectionId", watcherHandler.Delete)
		api.POST("/watches/pause", watcherHandler.Pause)
		api.POST("/watches/resume", watcherHandler.Resume)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
