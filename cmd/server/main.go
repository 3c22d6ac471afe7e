package main

import (
	"context"
	"crypto/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/content"
	"github.com/stemsi/handout-viewer/internal/database"
	"github.com/stemsi/handout-viewer/internal/handler"
	"github.com/stemsi/handout-viewer/internal/logger"
	"github.com/stemsi/handout-viewer/internal/pdf"
	"github.com/stemsi/handout-viewer/internal/repository"
	"github.com/stemsi/handout-viewer/internal/router"
	"github.com/stemsi/handout-viewer/internal/service"
	"github.com/stemsi/handout-viewer/internal/session"
	"github.com/stemsi/handout-viewer/internal/validator"
	"github.com/stemsi/handout-viewer/internal/view"
	"github.com/stemsi/handout-viewer/internal/worker"
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
		Str("course_filter", cfg.CourseTitleFilter).
		Msg("Starting handout viewer")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL (read-only) ─────────────────────────────
	pool, err := database.NewReadOnlyPool(ctx, cfg, log)
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

	// ─── Sessions ──────────────────────────────────────────────────────
	sessions, err := session.NewManager(cfg, rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session manager")
	}

	// ─── Lesson Catalog & Templates ────────────────────────────────────
	catalog, err := content.LoadCatalog(content.Source(cfg.ContentDir))
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ContentDir).Msg("Failed to load lesson catalog")
	}
	views, err := view.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}
	log.Info().
		Str("program", catalog.Program).
		Int("lessons", len(catalog.Lessons)).
		Msg("Lesson catalog loaded")

	// ─── PDF Backend (selected once) ───────────────────────────────────
	renderer := worker.NewRenderQueue(pdf.New(cfg, log), cfg.PDFWorkers, log)
	workersDone := make(chan struct{})
	go func() {
		renderer.Start(ctx)
		close(workersDone)
	}()

	// ─── Initialize Repositories ───────────────────────────────────────
	accessRepo := repository.NewAccessRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	classRepo := repository.NewClassRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	gate := service.NewAccessService(accessRepo, userRepo, classRepo, cfg, log)
	authService := service.NewAuthService(cfg, userRepo, rdb)
	lessons, err := service.NewLessonViewer(catalog, views)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render lesson bodies")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Lesson: handler.NewLessonHandler(gate, lessons, renderer, cfg, log),
		Auth:   handler.NewAuthHandler(authService, sessions, cfg, log),
		System: handler.NewSystemHandler(map[string]handler.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, renderer, log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, sessions, gate, views, cfg, log)
	h := router.Wrap(r, sessions, views, cfg, csrfKey(cfg, log), log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// ─── Stop Render Workers ───────────────────────────────────────────
	cancel()
	<-workersDone
	if err := renderer.Close(); err != nil {
		log.Error().Err(err).Msg("PDF backend shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// csrfKey returns the configured 32-byte key, or a random one. A random key
// invalidates open forms on restart.
func csrfKey(cfg *config.Config, log zerolog.Logger) []byte {
	if len(cfg.CSRFKey) >= 32 {
		return []byte(cfg.CSRFKey[:32])
	}

	if cfg.CSRFKey != "" {
		log.Warn().Msg("CSRF_KEY shorter than 32 bytes, using a random key")
	} else {
		log.Warn().Msg("CSRF_KEY not set, using a random key")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate CSRF key")
	}
	return key
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
