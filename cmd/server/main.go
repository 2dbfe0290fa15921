package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/talentsift/recruitex-backend/internal/config"
	"github.com/talentsift/recruitex-backend/internal/database"
	"github.com/talentsift/recruitex-backend/internal/handler"
	"github.com/talentsift/recruitex-backend/internal/logger"
	"github.com/talentsift/recruitex-backend/internal/repository"
	"github.com/talentsift/recruitex-backend/internal/router"
	"github.com/talentsift/recruitex-backend/internal/service"
	"github.com/talentsift/recruitex-backend/internal/validator"
	"github.com/talentsift/recruitex-backend/internal/worker"
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
		Msg("Starting RecruitEx Backend")

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
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	activityLogRepo := repository.NewActivityLogRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService)
	adminService := service.NewAdminService(adminRepo, authService)
	profileService := service.NewProfileService(studentRepo, roleRepo)
	roleService := service.NewRoleService(roleRepo)
	questionService := service.NewQuestionService(questionRepo, roleRepo)
	picker := service.NewQuestionPicker(questionRepo)
	examService := service.NewExamSessionService(sessionRepo, answerRepo, studentRepo, picker, cfg.ExamDuration, log)
	activityService := service.NewActivityService(sessionRepo, examService, rdb, log)
	signalService := service.NewSignalService(sessionRepo, activityService, examService, log)
	evaluationService := service.NewEvaluationService(sessionRepo, answerRepo, activityLogRepo, studentRepo, log)
	monitorService := service.NewMonitorService(sessionRepo, activityLogRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, studentService, adminService),
		Profile:  handler.NewProfileHandler(profileService, roleService),
		Exam:     handler.NewExamHandler(examService, signalService),
		Activity: handler.NewActivityHandler(activityService, signalService),
		Admin:    handler.NewAdminHandler(evaluationService),
		Role:     handler.NewRoleHandler(roleService),
		Question: handler.NewQuestionHandler(questionService),
		Monitor:  handler.NewMonitorHandler(rdb, monitorService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	activityLogWorker := worker.NewActivityLogWorker(activityLogRepo, rdb, log)
	deadlineWorker := worker.NewDeadlineWorker(sessionRepo, signalService, log)

	go activityLogWorker.Start(workerCtx)
	go deadlineWorker.Start(workerCtx)

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

	// 2. Release server-side trackers.
	signalService.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
