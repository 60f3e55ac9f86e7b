package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/monitoring"
)

// Shell is the view of the running controller the server exposes. All
// methods must be safe to call from request goroutines.
type Shell interface {
	Snapshot(ctx context.Context) (any, error)
	Classify(rawURL string, mainFrame bool) any
	ToggleUIVersion(ctx context.Context) error
}

// Config configures the diagnostics server
type Config struct {
	Addr string
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	shell   Shell
	hub     *Hub
	metrics *monitoring.Metrics
	logger  *zap.Logger

	upgrader websocket.Upgrader
}

// New creates a diagnostics server
func New(cfg Config, shell Shell, hub *Hub, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))

	s := &Server{
		router:  router,
		shell:   shell,
		hub:     hub,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: sameHostOrigin,
		},
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/state", s.state)
	router.GET("/classify", s.classify)
	router.POST("/ui-version/toggle", requireSameOrigin(), s.toggleUIVersion)
	router.GET("/events", s.events)

	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address in the background and returns
// the bound address
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("diagnostics server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("diagnostics server listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "event_clients": s.hub.Clients()})
}

func (s *Server) state(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	snap, err := s.shell.Snapshot(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) classify(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	mainFrame := true
	if v := c.Query("frame"); v != "" {
		sub, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "frame must be a boolean"})
			return
		}
		mainFrame = !sub
	}

	c.JSON(http.StatusOK, s.shell.Classify(raw, mainFrame))
}

func (s *Server) toggleUIVersion(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.shell.ToggleUIVersion(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "toggling"})
}

func (s *Server) events(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	// Reader goroutine notices client disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// requireSameOrigin rejects browser requests sent from other sites
func requireSameOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sameHostOrigin(c.Request) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "cross-origin request"})
			return
		}
		c.Next()
	}
}

// sameHostOrigin accepts tools without an Origin header and pages served
// from the server's own host
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = r.Host
	}
	return u.Hostname() == host
}
