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
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduva-go-api/internal/config"
	"github.com/noah-isme/eduva-go-api/internal/database"
	"github.com/noah-isme/eduva-go-api/internal/handler"
	"github.com/noah-isme/eduva-go-api/internal/middleware"
	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
	"github.com/noah-isme/eduva-go-api/internal/router"
	"github.com/noah-isme/eduva-go-api/internal/service"
	cloud "github.com/noah-isme/eduva-go-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Course{},
		&models.CourseModule{},
		&models.Lesson{},
		&models.CourseEnrollment{},
		&models.ModuleEnrollment{},
		&models.Assessment{},
		&models.Question{},
		&models.QuestionOption{},
		&models.StudentAssessmentAttempt{},
		&models.StudentAnswer{},
		&models.AuditEvent{},
	)
	if err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assessmentRepo := repository.NewAssessmentRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	optionRepo := repository.NewOptionRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditService := service.NewAuditService(auditRepo, logger)
	publisher := service.NewNATSEventPublisher(natsConn, cfg.GradedEventSubject, logger)
	eligibilityService := service.NewEligibilityService(catalogRepo, logger)
	assessmentService := service.NewAssessmentService(assessmentRepo, catalogRepo, validate, auditService, logger)
	questionService := service.NewQuestionService(questionRepo, assessmentRepo, validate, uploader, auditService, logger)
	optionService := service.NewOptionService(optionRepo, questionRepo, assessmentRepo, validate, logger)
	gradingService := service.NewGradingService(answerRepo, attemptRepo, validate, auditService, publisher, logger)
	attemptService := service.NewAttemptService(attemptRepo, assessmentRepo, eligibilityService, gradingService, validate, redisClient, cfg.AttemptLockTTL, auditService, logger)

	assessmentHandler := handler.NewAssessmentHandler(assessmentService, logger)
	questionHandler := handler.NewQuestionHandler(questionService, optionService, logger)
	attemptHandler := handler.NewAttemptHandler(attemptService, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.ExpirySweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := attemptService.ExpireOverdue(ctx); err != nil {
			logger.Error().Err(err).Msg("expiry sweep failed")
		}
	})
	if err != nil {
		log.Fatalf("failed to schedule expiry sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssessmentHandler: assessmentHandler,
		QuestionHandler:   questionHandler,
		AttemptHandler:    attemptHandler,
		GradingHandler:    gradingHandler,
		AuditHandler:      auditHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
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
