package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/handler"
	"github.com/stemsi/handout-viewer/internal/metrics"
	"github.com/stemsi/handout-viewer/internal/middleware"
	"github.com/stemsi/handout-viewer/internal/response"
	"github.com/stemsi/handout-viewer/internal/session"
	"github.com/stemsi/handout-viewer/internal/view"
)

const staticMaxAge = 24 * 60 * 60

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Lesson *handler.LessonHandler
	Auth   *handler.AuthHandler
	System *handler.SystemHandler
}

// SetupRouter configures the Gin engine with all routes and middlewares.
func SetupRouter(
	handlers *Handlers,
	sessions *session.Manager,
	gate middleware.SessionValidator,
	views *view.Views,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(middleware.AccessLog(), gin.Recovery())
	router.HTMLRender = views

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID", "X-CSRF-Token"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.Middleware())
	router.Use(middleware.Brotli())

	static := router.Group("/static")
	static.Use(middleware.CacheControl(staticMaxAge))
	{
		static.StaticFS("/", http.FS(view.Static()))
	}

	// ─── Operational ───────────────────────────────────────────────────
	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ─── Sign-in ───────────────────────────────────────────────────────
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	router.GET("/login", handlers.Auth.LoginPage)
	router.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
	router.POST("/logout", handlers.Auth.Logout)
	if handlers.Auth.HandoffEnabled() {
		router.GET("/auth/handoff", loginLimiter.Middleware(), middleware.NoStore(), handlers.Auth.Handoff)
	}

	// ─── Handouts (viewer session required) ────────────────────────────
	handouts := router.Group("/handouts")
	handouts.Use(middleware.NoStore())
	handouts.Use(middleware.RequireViewerSession(sessions, gate, cfg.LoginURL, log))
	{
		handouts.GET("", handlers.Lesson.Index)
		handouts.GET("/:lesson", handlers.Lesson.Show)
	}

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/handouts")
	})

	router.NoRoute(func(c *gin.Context) {
		response.AbortPage(c, http.StatusNotFound, response.ErrNotFound, view.KindNotFound)
	})

	return router
}

// Wrap adds the net/http layers that sit outside gin: session load/save and
// CSRF protection for form posts.
func Wrap(engine http.Handler, sessions *session.Manager, views *view.Views, cfg *config.Config, csrfKey []byte, log zerolog.Logger) http.Handler {
	csrfFailed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Warn().Str("path", r.URL.Path).Msg("CSRF check failed")
		body, err := views.RenderPage(view.PageMessage, response.MessagePage(response.ErrForbidden, view.KindDenied))
		if err != nil {
			http.Error(w, response.GetMessage(response.ErrForbidden), http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(body))
	})

	return middleware.Chain(engine,
		middleware.CSRF(csrfKey, middleware.CSRFOptions{
			Secure:         cfg.SecureCookies,
			TrustedOrigins: cfg.AllowedOrigins,
			ErrorHandler:   csrfFailed,
		}),
		sessions.Wrap,
	)
}
