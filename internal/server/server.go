// Package server exposes accounts, groups and free-time calculation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/theakshaypant/gaps/internal/core"
)

const (
	DefaultAddr          = ":3000"
	DefaultRatePerMinute = 200

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// WindowDefaults fills in planning-window fields a request leaves out.
type WindowDefaults struct {
	Timezone     string
	DayStartHour int
	DayEndHour   int
	HorizonDays  int
}

// DefaultWindow matches the hours and zone the service has always used.
func DefaultWindow() WindowDefaults {
	return WindowDefaults{
		Timezone:     "Asia/Jerusalem",
		DayStartHour: 7,
		DayEndHour:   21,
		HorizonDays:  7,
	}
}

// Config holds everything New needs. Storage and Provider are required.
type Config struct {
	Addr     string
	Storage  core.Storage
	Provider core.Provider
	Window   WindowDefaults

	// BoundsDuration reports durations measured between clipped bounds.
	BoundsDuration bool

	// RatePerMinute caps requests per client IP. Zero or less disables the limit.
	RatePerMinute int

	Logger *zap.Logger

	// Now is the clock used as the planning reference. Defaults to time.Now.
	Now func() time.Time
}

// Server wires the gin engine to storage and a calendar provider.
type Server struct {
	cfg     Config
	log     *zap.Logger
	engine  *gin.Engine
	metrics *metrics
}

func New(cfg Config) (*Server, error) {
	if cfg.Storage == nil {
		return nil, errors.New("server: storage is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("server: event provider is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Window == (WindowDefaults{}) {
		cfg.Window = DefaultWindow()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: newMetrics(),
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(requestLogger(s.log), s.metrics.middleware())
	if s.cfg.RatePerMinute > 0 {
		r.Use(newRateLimiter(s.cfg.RatePerMinute).middleware(s.log))
	}

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	r.POST("/register", s.register)
	r.POST("/login", s.login)
	r.GET("/events", s.events)
	r.POST("/calculate-free-time", s.calculateFreeTime)

	groups := r.Group("/groups")
	{
		groups.POST("", s.createGroup)
		groups.POST("/:groupName/users", s.addGroupMember)
	}
	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
