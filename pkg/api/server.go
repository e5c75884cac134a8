// Package api exposes run status and a stop control over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gwillem/pumpbot/pkg/motion"
	"github.com/gwillem/pumpbot/pkg/sequence"
)

// Source provides progress snapshots of a run.
type Source interface {
	Snapshot() sequence.Progress
}

// Response is the envelope of every API reply.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PatternInfo describes one step of the configured plan.
type PatternInfo struct {
	Name      string            `json:"name"`
	Power     byte              `json:"power"`
	Dwell     float64           `json:"dwell"`
	Waypoints []motion.Waypoint `json:"waypoints"`
}

// Server serves the status API for one run.
type Server struct {
	source  Source
	plan    sequence.Plan
	stop    func()
	stopped sync.Once
}

// NewServer creates a server. stop is called once, on the first stop request.
func NewServer(source Source, plan sequence.Plan, stop func()) *Server {
	return &Server{source: source, plan: plan, stop: stop}
}

// SetupRoutes registers the API routes on r.
func (s *Server) SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/patterns", s.handlePatterns)
		api.POST("/stop", s.handleStop)
	}
}

// Handler returns a gin engine with CORS and the API routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	s.SetupRoutes(r)
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   s.source.Snapshot(),
	})
}

func (s *Server) handlePatterns(c *gin.Context) {
	patterns := make([]PatternInfo, 0, len(s.plan))
	for _, step := range s.plan {
		patterns = append(patterns, PatternInfo{
			Name:      step.Name(),
			Power:     step.Power,
			Dwell:     step.Dwell.Seconds(),
			Waypoints: step.Waypoints,
		})
	}
	c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   patterns,
	})
}

func (s *Server) handleStop(c *gin.Context) {
	s.stopped.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
	c.JSON(http.StatusAccepted, Response{
		Status: "success",
		Data:   s.source.Snapshot(),
	})
}
