// Package api is the gin HTTP layer on top of the engine.
package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/gameportal/gameportal/internal/api/handler"
	"github.com/gameportal/gameportal/internal/config"
	"github.com/gameportal/gameportal/internal/engine"
	"github.com/gameportal/gameportal/internal/stats"
)

// Server is the HTTP server.
type Server struct {
	cfg        *config.Config
	ginEngine  *gin.Engine
	engine     *engine.Engine
	collector  *stats.Collector
	routesOnce sync.Once
}

// New creates the API server.
func New(cfg *config.Config, e *engine.Engine, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if e == nil {
		return nil, fmt.Errorf("engine is required")
	}

	if !debug && !cfg.Settings.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:       cfg,
		ginEngine: gin.Default(),
		engine:    e,
		collector: stats.NewCollector(),
	}, nil
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions("gameportal_session", store))
}

func (s *Server) setupRoutes() {
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression))
	s.setupSession()

	// Remember-me auto-login runs before any route logic.
	s.ginEngine.Use(s.autoLogin())

	h := handler.New(s.engine, s.collector, s.cfg.SecureCookies, s.cfg.RememberTokenDays)

	s.ginEngine.GET("/", h.Home)
	s.ginEngine.GET("/heartbeat", h.Heartbeat)
	s.ginEngine.GET("/login", h.LoginPage)
	s.ginEngine.POST("/login", h.Login)
	s.ginEngine.GET("/register", h.RegisterPage)
	s.ginEngine.POST("/register", h.Register)
	s.ginEngine.GET("/logout", h.Logout)

	protected := s.ginEngine.Group("/")
	protected.Use(s.requireAuth(), s.maintenanceGate())

	protected.GET("/profile", h.Profile)
	protected.POST("/profile/username", h.RenameUser)

	admin := s.ginEngine.Group("/admin")
	admin.Use(s.requireAuth(), s.requireAdmin())

	admin.GET("/users", h.ListUsers)
	admin.GET("/settings", h.GetSettings)
	admin.POST("/settings", h.UpdateSettings)
	admin.GET("/stats", h.Stats)
	admin.POST("/stats/reset", h.ResetStats)
	admin.GET("/jobs", h.Jobs)
}

// Handler returns the fully routed http.Handler. Used by Run and by tests.
func (s *Server) Handler() http.Handler {
	s.routesOnce.Do(s.setupRoutes)
	return s.ginEngine
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	s.routesOnce.Do(s.setupRoutes)
	return s.ginEngine.Run(s.cfg.Listen)
}
