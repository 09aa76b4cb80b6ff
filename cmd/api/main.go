package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment/internal/config"
	"github.com/noah-isme/gema-assessment/internal/database"
	"github.com/noah-isme/gema-assessment/internal/handler"
	"github.com/noah-isme/gema-assessment/internal/middleware"
	"github.com/noah-isme/gema-assessment/internal/observability"
	"github.com/noah-isme/gema-assessment/internal/repository"
	"github.com/noah-isme/gema-assessment/internal/router"
	"github.com/noah-isme/gema-assessment/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseURL, database.Options{
		Logger:          logger,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		SlowThreshold:   cfg.Database.SlowQuery,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, ingest locking and redis events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	groupRepo := repository.NewStudentGroupRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	referenceRepo := repository.NewReferenceDataRepository(db)
	planRepo := repository.NewAssessmentPlanRepository(db)
	resultRepo := repository.NewAssessmentResultRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	criterionResolver := service.NewCriterionResolver(planRepo, referenceRepo, cfg.Grading, logger)
	slotResolver := service.NewScheduleConflictResolver(scheduleRepo, logger)
	provisioner := service.NewPlanProvisioner(planRepo, referenceRepo, courseRepo, groupRepo, scheduleRepo, slotResolver, cfg.Grading, logger)
	upserter := service.NewResultUpserter(resultRepo, criterionResolver, logger)
	locker := service.NewRedisLocker(redisClient, cfg.EventChannel+":ingest_lock:", cfg.IngestLockTTL, cfg.IngestLockWait, logger)
	ingestor := service.NewSubmissionIngestor(studentRepo, courseRepo, groupRepo, provisioner, upserter, locker, validate, cfg.Grading, logger)
	events := service.NewResultEventPublisher(redisClient, cfg.EventChannel, natsConn, logger)

	submissionService := service.NewSubmissionService(submissionRepo, resultRepo, ingestor, events, validate, cfg.Grading, logger)
	resultService := service.NewResultService(resultRepo, events, logger)
	consolidationService := service.NewConsolidationService(resultRepo, validate, logger)
	settingsService := service.NewSettingsService(referenceRepo, cfg.Grading)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		ResultHandler:     handler.NewResultHandler(resultService, consolidationService, logger),
		SettingsHandler:   handler.NewSettingsHandler(settingsService, logger),
		Health:            handler.HealthDependencies{DB: db, Redis: redisClient, NATS: natsConn},
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
