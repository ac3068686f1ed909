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
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hivedesk/taskhub-api/internal/access"
	"github.com/hivedesk/taskhub-api/internal/config"
	"github.com/hivedesk/taskhub-api/internal/database"
	"github.com/hivedesk/taskhub-api/internal/handler"
	"github.com/hivedesk/taskhub-api/internal/middleware"
	"github.com/hivedesk/taskhub-api/internal/models"
	"github.com/hivedesk/taskhub-api/internal/repository"
	"github.com/hivedesk/taskhub-api/internal/router"
	"github.com/hivedesk/taskhub-api/internal/service"
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

	if err := db.AutoMigrate(&models.User{}, &models.Task{}, &models.TaskComment{}, &models.ActivityLog{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, realtime events stay node-local")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, realtime events stay node-local")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	engine := access.NewEngine(userRepo)

	activityService := service.NewActivityService(activityRepo, engine, validate, logger)
	broadcastService := service.NewBroadcastService(redisClient, cfg.EventChannelBase, natsConn, logger)
	broadcastService.Start(ctx)

	authService := service.NewAuthService(userRepo, activityService, validate, logger, cfg.JWTSecret, cfg.TokenTTL)
	taskService := service.NewTaskService(taskRepo, userRepo, engine, activityService, broadcastService, validate, logger)
	userService := service.NewUserService(userRepo, taskRepo, engine, activityService, validate, logger)

	if err := bootstrapSuperadmin(ctx, cfg, userRepo, logger); err != nil {
		log.Fatalf("failed to bootstrap superadmin: %v", err)
	}

	authHandler := handler.NewAuthHandler(authService, validate, logger)
	taskHandler := handler.NewTaskHandler(taskService, validate, logger)
	userHandler := handler.NewUserHandler(userService, validate, logger)
	activityHandler := handler.NewActivityHandler(activityService, validate, logger)
	realtimeHandler := handler.NewRealtimeHandler(broadcastService, userRepo, cfg.JWTSecret, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     authHandler,
		TaskHandler:     taskHandler,
		UserHandler:     userHandler,
		ActivityHandler: activityHandler,
		RealtimeHandler: realtimeHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
		ActorMiddleware: middleware.LoadActor(userRepo),
		LoginRateLimit:  middleware.RateLimit("login", cfg.LoginRateLimit, cfg.LoginRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app)
}

// bootstrapSuperadmin seeds the initial superadmin account when the users
// table is empty and bootstrap credentials are configured.
func bootstrapSuperadmin(ctx context.Context, cfg config.Config, users repository.UserRepository, logger zerolog.Logger) error {
	if cfg.BootstrapUsername == "" || cfg.BootstrapPassword == "" {
		return nil
	}

	total, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	fullName := cfg.BootstrapFullName
	if fullName == "" {
		fullName = "System Administrator"
	}

	admin := models.User{
		Username:     cfg.BootstrapUsername,
		Email:        cfg.BootstrapEmail,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         models.RoleSuperadmin,
		IsActive:     true,
	}

	if err := users.Create(ctx, &admin); err != nil {
		return err
	}

	logger.Info().Str("username", admin.Username).Msg("bootstrap superadmin created")
	return nil
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
