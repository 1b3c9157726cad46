package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/fumi-go-api/internal/config"
	"github.com/noah-isme/fumi-go-api/internal/database"
	"github.com/noah-isme/fumi-go-api/internal/grading"
	"github.com/noah-isme/fumi-go-api/internal/handler"
	"github.com/noah-isme/fumi-go-api/internal/middleware"
	"github.com/noah-isme/fumi-go-api/internal/observability"
	"github.com/noah-isme/fumi-go-api/internal/realtime"
	"github.com/noah-isme/fumi-go-api/internal/repository"
	"github.com/noah-isme/fumi-go-api/internal/router"
	"github.com/noah-isme/fumi-go-api/internal/service"
	"github.com/noah-isme/fumi-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppName).Logger()
	observability.RegisterMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set; task cache and cross-node events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	grader, err := buildGrader(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create grader: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	seedRepo := repository.NewSeedRepository(db)

	queryService := service.NewQueryService(service.QueryRepositories{
		Users:       userRepo,
		Questions:   questionRepo,
		Tasks:       taskRepo,
		Submissions: submissionRepo,
	}, redisClient, cfg.TaskCacheTTL, logger)
	catalogService := service.NewCatalogService(service.QueryRepositories{
		Users:       userRepo,
		Questions:   questionRepo,
		Tasks:       taskRepo,
		Submissions: submissionRepo,
	}, validate, redisClient, cfg.TaskCacheTTL, logger)
	seedService := service.NewSeedService(seedRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	hub := realtime.NewHub(redisClient, cfg.EventsChannel, logger)
	hub.Start(ctx)

	var (
		dispatcher      service.GradingDispatcher
		localDispatcher *grading.LocalDispatcher
	)
	if natsConn != nil {
		dispatcher = grading.NewNATSDispatcher(natsConn, cfg.GradingSubject)
	} else {
		localDispatcher = grading.NewLocalDispatcher(logger)
		dispatcher = localDispatcher
	}

	submissionService := service.NewSubmissionService(service.SubmissionRepositories{
		Submissions: submissionRepo,
		Tasks:       taskRepo,
		Users:       userRepo,
	}, validate, hub, dispatcher, service.SubmissionConfig{RequireAIGrade: cfg.RequireAIGrade}, logger)

	worker := grading.NewWorker(submissionService, queryService, grader, cfg.GradingTimeout, logger)
	if localDispatcher != nil {
		localDispatcher.Bind(worker)
	} else if err := worker.Subscribe(ctx, natsConn, cfg.GradingSubject, cfg.GradingQueue); err != nil {
		log.Fatalf("failed to subscribe grading worker: %v", err)
	}
	sweeper := grading.NewSweeper(queryService, dispatcher, logger)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx, cfg.GradingSweep)
	}()

	if cfg.SeedDemo {
		affected, err := seedService.LoadDemo(ctx)
		if err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
		logger.Info().Int64("rows", affected).Msg("demo data loaded")
	}

	questionHandler := handler.NewQuestionHandler(queryService, catalogService, logger)
	taskHandler := handler.NewTaskHandler(queryService, catalogService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, queryService,
		middleware.RateLimit("submission_write", cfg.WriteRateLimit, cfg.WriteRateWindow), logger)
	streamHandler := handler.NewStreamHandler(queryService, hub, logger)
	seedHandler := handler.NewSeedHandler(seedService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: logger, AllowOrigins: cfg.AllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		QuestionHandler:   questionHandler,
		TaskHandler:       taskHandler,
		SubmissionHandler: submissionHandler,
		StreamHandler:     streamHandler,
		SeedHandler:       seedHandler,
		HealthProbes:      healthProbes(db, redisClient, natsConn),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		ExposeMetrics:     cfg.ExposeMetrics,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)

	cancel()
	<-sweepDone
	if localDispatcher != nil {
		localDispatcher.Wait()
	}
}

func buildGrader(cfg config.Config, logger zerolog.Logger) (ai.Grader, error) {
	heuristic := ai.NewHeuristicGrader()
	if cfg.AIProvider != "openai" {
		return heuristic, nil
	}

	openaiGrader, err := ai.NewOpenAIGrader(ai.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.OpenAIModel,
		MaxTokens: cfg.OpenAIMaxTokens,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return ai.NewFallbackGrader(openaiGrader, heuristic, logger), nil
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return errors.New("nats disconnected")
			}
			return nil
		}
	}
	return probes
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
