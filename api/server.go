// Package api exposes the hub over HTTP: producer ingestion, read-only
// diagnostics and the WebSocket endpoint.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"

	"github.com/4NDR3S-01/ExposIA/domain"
	"github.com/4NDR3S-01/ExposIA/protocol"
	"github.com/4NDR3S-01/ExposIA/websocket"
)

const (
	serviceName    = "websocket-notifications"
	serviceVersion = "1.0.0"
	tokenHeader    = "X-Service-Token"
)

// Hub is what the HTTP surface needs from the dispatcher.
type Hub interface {
	websocket.Dispatcher
	Submit(n domain.Notification) domain.NotificationRecord
	Stats() domain.Stats
	History() []domain.NotificationRecord
	ConnectionCount() int
	OccupiedRooms() int
}

type Options struct {
	Addr            string
	Token           string
	AllowedOrigins  []string
	Socket          websocket.Config
	ShutdownTimeout time.Duration
}

type Server struct {
	hub      Hub
	opts     Options
	upgrader gws.Upgrader
	engine   *gin.Engine
	logger   *slog.Logger
}

func NewServer(h Hub, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		hub:    h,
		opts:   opts,
		logger: logger.With("component", "api"),
	}
	s.upgrader = gws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.Use(cors.New(s.corsConfig()))

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.handleStats)
	router.GET("/history", s.handleHistory)

	authed := router.Group("/", RequireToken(s.opts.Token))
	{
		authed.POST("/notify", s.handleNotify)
		authed.POST("/test-notification", s.handleTestNotification)
	}

	router.GET("/ws/:client_id", s.handleWebSocket)
	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", tokenHeader},
		MaxAge:       12 * time.Hour,
	}
	if allowsAny(s.opts.AllowedOrigins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.opts.AllowedOrigins
	}
	return cfg
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if allowsAny(s.opts.AllowedOrigins) {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func allowsAny(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Writer.Status() == http.StatusSwitchingProtocols {
			return
		}
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// RequireToken rejects requests that do not carry the shared service token
// as ?token=, a Bearer Authorization header or X-Service-Token.
func RequireToken(token string) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		got := requestToken(c)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
			return
		}
		c.Next()
	}
}

func requestToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	if auth := c.GetHeader("Authorization"); auth != "" {
		if t, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	return c.GetHeader(tokenHeader)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "ExposIA WebSocket Notifications",
		"version":     serviceVersion,
		"description": "real-time notification service",
		"endpoints": gin.H{
			"websocket": "/ws/{client_id}",
			"notify":    "POST /notify",
			"stats":     "GET /stats",
			"history":   "GET /history",
			"health":    "GET /health",
		},
		"timestamp": protocol.Now(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      serviceName,
		"timestamp":    protocol.Now(),
		"connections":  s.hub.ConnectionCount(),
		"rooms_active": s.hub.OccupiedRooms(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.hub.Stats())
}

func (s *Server) handleHistory(c *gin.Context) {
	history := s.hub.History()
	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"total":   len(history),
	})
}

func (s *Server) handleNotify(c *gin.Context) {
	n, err := domain.DecodeNotification(c.Request.Body)
	if err != nil {
		s.logger.Warn("rejected notification", "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	rec := s.hub.Submit(n)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "notification sent",
		"event":     rec.Event,
		"id":        rec.ID,
		"timestamp": protocol.Now(),
	})
}

func (s *Server) handleTestNotification(c *gin.Context) {
	s.hub.Submit(domain.Notification{
		Event: "test.notification",
		Payload: map[string]any{
			"message":   "this is a test notification",
			"timestamp": protocol.Now(),
			"test":      true,
		},
		Source: "test-endpoint",
	})
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "test notification sent",
		"connections": s.hub.ConnectionCount(),
	})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	clientID := c.Param("client_id")
	if strings.TrimSpace(clientID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "client_id is required"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("upgrade error", "clientId", clientID, "error", err)
		return
	}

	room := c.Query("room")
	if room == "" {
		room = domain.DefaultRoom
	}

	websocket.NewConn(clientID, c.Query("user_id"), room, conn, s.hub, s.opts.Socket, s.logger).Start()
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.opts.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
