package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/config"
	"github.com/classbeacon/classbeacon-backend/internal/database"
	"github.com/classbeacon/classbeacon-backend/internal/geo"
	"github.com/classbeacon/classbeacon-backend/internal/handler"
	"github.com/classbeacon/classbeacon-backend/internal/logger"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/classbeacon/classbeacon-backend/internal/router"
	"github.com/classbeacon/classbeacon-backend/internal/service"
	"github.com/classbeacon/classbeacon-backend/internal/validator"
	"github.com/classbeacon/classbeacon-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ClassBeacon Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	profileRepo := repository.NewProfileRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	codeRepo := repository.NewAttendanceCodeRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, profileRepo)
	classService := service.NewClassService(classRepo, enrollmentRepo)
	rosterService := service.NewRosterService(rdb, log)
	geocodeQueue := service.NewGeocodeQueue(rdb, log)
	issuanceService := service.NewIssuanceService(codeRepo, cfg, log)
	redemptionService := service.NewRedemptionService(
		codeRepo, enrollmentRepo, attendanceRepo, profileRepo,
		rosterService, geocodeQueue, cfg, log,
	)
	attendanceService := service.NewAttendanceService(attendanceRepo, codeRepo, classService)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Class:      handler.NewClassHandler(classService),
		Attendance: handler.NewAttendanceHandler(classService, issuanceService, redemptionService, attendanceService),
		RosterWS:   handler.NewRosterWSHandler(classService, rosterService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	geocoder := geo.NewGeocoder(cfg.GeocoderBaseURL)
	geocodeWorker := worker.NewGeocodeWorker(attendanceRepo, rdb, geocoder, log)
	codeSweeper := worker.NewCodeSweeper(codeRepo, cfg.CodeRetention, log)

	go geocodeWorker.Start(workerCtx)
	go codeSweeper.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the geocode queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
