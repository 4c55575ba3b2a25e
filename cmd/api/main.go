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
	"github.com/rs/zerolog"

	"github.com/noah-isme/chulseok-go-api/internal/config"
	"github.com/noah-isme/chulseok-go-api/internal/database"
	"github.com/noah-isme/chulseok-go-api/internal/handler"
	"github.com/noah-isme/chulseok-go-api/internal/middleware"
	"github.com/noah-isme/chulseok-go-api/internal/models"
	"github.com/noah-isme/chulseok-go-api/internal/repository"
	"github.com/noah-isme/chulseok-go-api/internal/router"
	"github.com/noah-isme/chulseok-go-api/internal/service"
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

	if err := db.AutoMigrate(
		&models.User{},
		&models.Student{},
		&models.Teacher{},
		&models.Class{},
		&models.Attendance{},
		&models.AttendanceDetail{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, logger)
	rosterService := service.NewRosterService(userRepo, studentRepo, teacherRepo, classRepo, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, teacherRepo, classRepo, redisClient, cfg.SummaryCacheTTL, logger)

	if err := authService.EnsureAdmin(context.Background()); err != nil {
		log.Fatalf("failed to bootstrap admin account: %v", err)
	}

	authHandler := handler.NewAuthHandler(authService, validate, logger)
	uploadHandler := handler.NewUploadHandler(rosterService, cfg.UploadMaxMB, logger)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:       authHandler,
		UploadHandler:     uploadHandler,
		AttendanceHandler: attendanceHandler,
		JWTMiddleware:     middleware.Authenticated(authService),
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
