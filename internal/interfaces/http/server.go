package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/service"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Services bundles the application services the server exposes
type Services struct {
	Deviations service.DeviationService
	Overtime   service.OvertimeService
	Inventory  service.InventoryService
	Failures   service.FailureService
	Reports    service.ReportService
}

// Server is the HTTP adapter
type Server struct {
	config     ServerConfig
	auth       AuthConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     *zap.Logger
}

// NewServer creates a new HTTP server over the given services
func NewServer(config ServerConfig, auth AuthConfig, services Services, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		auth:     auth,
		router:   gin.New(),
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
}

func (s *Server) setupRoutes() {
	deviations := NewDeviationHandlers(s.services.Deviations)
	overtime := NewOvertimeHandlers(s.services.Overtime)
	inventory := NewInventoryHandlers(s.services.Inventory)
	failures := NewFailureHandlers(s.services.Failures)
	reports := NewReportHandlers(s.services.Reports)

	s.router.GET("/health", func(c *gin.Context) {
		respondOK(c, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := s.router.Group("/api")
	api.Use(authMiddleware(s.auth, s.logger))
	{
		d := api.Group("/deviations")
		{
			d.GET("", deviations.List)
			d.GET("/counts", deviations.Counts)
			d.POST("", deviations.Create)
			d.GET("/:id", deviations.Get)
			d.PUT("/:id", deviations.Update)
			d.POST("/:id/submit", deviations.Submit)
			d.POST("/:id/approve", deviations.Approve)
			d.POST("/:id/reject", deviations.Reject)
			d.POST("/:id/begin-progress", deviations.BeginProgress)
			d.POST("/:id/close", deviations.Close)
			d.POST("/:id/reopen", deviations.Reopen)
			d.POST("/:id/role-approval", deviations.DecideRole)
			d.POST("/:id/actions", deviations.AddAction)
			d.POST("/:id/actions/:actionID/status", deviations.SetActionStatus)
			d.POST("/:id/notes", deviations.AddNote)
			d.POST("/bulk/delete", deviations.BulkDelete)
		}

		o := api.Group("/overtime-orders")
		{
			o.GET("", overtime.List)
			o.GET("/counts", overtime.Counts)
			o.POST("", overtime.Create)
			o.GET("/:id", overtime.Get)
			o.POST("/:id/confirm", overtime.Confirm)
			o.POST("/:id/approve", overtime.Approve)
			o.POST("/:id/cancel", overtime.Cancel)
			o.POST("/:id/complete", overtime.Complete)
			o.POST("/:id/mark-accounted", overtime.MarkAccounted)
			o.POST("/:id/reactivate", overtime.Reactivate)
			o.POST("/:id/notes", overtime.AddNote)
			o.POST("/bulk/account", overtime.BulkMarkAccounted)
			o.POST("/bulk/delete", overtime.BulkDelete)
		}

		i := api.Group("/inventory")
		{
			i.GET("", inventory.List)
			i.GET("/counts", inventory.Counts)
			i.POST("", inventory.Create)
			i.GET("/:id", inventory.Get)
			i.POST("/:id/assign", inventory.Assign)
			i.POST("/:id/release", inventory.Release)
			i.POST("/:id/send-repair", inventory.SendToRepair)
			i.POST("/:id/return-repair", inventory.ReturnFromRepair)
			i.POST("/:id/dispose", inventory.Dispose)
			i.POST("/:id/notes", inventory.AddNote)
		}

		f := api.Group("/failures")
		{
			f.GET("", failures.List)
			f.GET("/counts", failures.Counts)
			f.POST("", failures.Create)
			f.GET("/:id", failures.Get)
			f.POST("/:id/take", failures.Take)
			f.POST("/:id/resolve", failures.Resolve)
			f.POST("/:id/reopen", failures.Reopen)
		}

		r := api.Group("/reports")
		{
			r.GET("/deviations.xlsx", reports.DeviationRegister)
			r.GET("/overtime.xlsx", reports.OvertimeMonthly)
		}
	}
}

// Start starts the HTTP server and blocks until the context is
// canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
