package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"advisory-trading-bot/internal/engine"
	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
)

// Server exposes the bot's run controls and a read-only state view over HTTP.
// stopTimeout bounds how long a stop request waits for the in-flight tick.
const stopTimeout = 30 * time.Second

type Server struct {
	Router  *gin.Engine
	bot     interfaces.Controller
	version string
	http    *http.Server
}

func New(bot interfaces.Controller, version string) *Server {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())

	s := &Server{Router: r, bot: bot, version: version}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/healthz", s.health)

	bot := s.Router.Group("/api/bot")
	{
		bot.POST("/start", s.start)
		bot.POST("/stop", s.stop)
		bot.POST("/tick", s.tick)
		bot.POST("/refresh", s.refresh)
		bot.GET("/state", s.state)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) start(c *gin.Context) {
	if err := s.bot.Start(c.Request.Context()); err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Failed to start bot", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_state": s.bot.Snapshot().RunState})
}

func (s *Server) stop(c *gin.Context) {
	// A client hanging up must not cut the stop short.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), stopTimeout)
	defer cancel()

	if err := s.bot.Stop(ctx); err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Failed to stop bot", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_state": s.bot.Snapshot().RunState})
}

func (s *Server) tick(c *gin.Context) {
	res, err := s.bot.TickNow(c.Request.Context())
	switch {
	case errors.Is(err, engine.ErrNotRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) refresh(c *gin.Context) {
	res, err := s.bot.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) state(c *gin.Context) {
	c.JSON(http.StatusOK, s.bot.Snapshot())
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// RequestIDMiddleware adds unique request ID for tracking
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("RequestID", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger logs each request once it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("RequestID"),
		)
	}
}
