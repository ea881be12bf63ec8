package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/bluefunda/greenapi-console/rest/docs"
	"github.com/bluefunda/greenapi-console/rest/models"
	"github.com/bluefunda/greenapi-console/rest/service"
	"github.com/bluefunda/greenapi-console/types"
	"github.com/bluefunda/greenapi-console/web"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIBase is the prefix of the four form endpoints.
const APIBase = "/api/v1"

// Config represents the REST server configuration
type Config struct {
	Address         string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// BreakerOpen is the sentinel the gateway client wraps when its circuit
	// breaker rejects a call.
	BreakerOpen error

	Version   string
	BuildTime string
	GitCommit string
}

// breakerReporter is implemented by gateway clients that expose breaker state.
type breakerReporter interface {
	BreakerState() string
}

// RestServer serves the browser form and proxies its calls to the gateway
type RestServer struct {
	logger  *zap.Logger
	config  *Config
	gateway types.GatewayClient
	service *service.Service
	engine  *gin.Engine
}

// NewRestServer creates a new REST server instance
func NewRestServer(config *Config, logger *zap.Logger, gateway types.GatewayClient) *RestServer {
	rs := &RestServer{
		logger:  logger.With(zap.String("component", "rest_server")),
		config:  config,
		gateway: gateway,
		service: service.New(gateway, logger, config.BreakerOpen),
	}
	rs.engine = rs.routes()
	return rs
}

// Handler exposes the router, mainly for tests.
func (rs *RestServer) Handler() http.Handler {
	return rs.engine
}

func (rs *RestServer) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(RequestLogger(rs.logger))
	engine.Use(cors.New(rs.corsConfig()))

	engine.GET("/health", rs.healthHandler)
	engine.GET("/version", rs.versionHandler)

	engine.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", docs.OpenAPIYAML)
	})
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/docs/index.html")
	})
	engine.GET("/docs/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docs.SwaggerHTML("/openapi.yaml")))
	})

	static := web.Static()
	engine.GET("/", func(c *gin.Context) {
		page, err := fs.ReadFile(static, "index.html")
		if err != nil {
			rs.sendError(c, &models.APIError{StatusCode: http.StatusInternalServerError, Code: "internal_error", Message: "form is unavailable"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	})
	engine.StaticFS("/static", http.FS(static))

	api := engine.Group(APIBase)
	api.POST("/settings", rs.getSettingsHandler)
	api.POST("/state", rs.getStateHandler)
	api.POST("/send-message", rs.sendMessageHandler)
	api.POST("/send-file-by-url", rs.sendFileByURLHandler)

	return engine
}

func (rs *RestServer) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	for _, origin := range rs.config.AllowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = rs.config.AllowedOrigins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func (rs *RestServer) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         rs.config.Address,
		Handler:      rs.engine,
		ReadTimeout:  rs.config.ReadTimeout,
		WriteTimeout: rs.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		rs.logger.Info("Starting REST server", zap.String("address", rs.config.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		rs.logger.Info("Shutting down REST server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rs.config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	rs.logger.Info("REST server stopped")
	return nil
}

// healthHandler handles health check requests
func (rs *RestServer) healthHandler(c *gin.Context) {
	health := models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if reporter, ok := rs.gateway.(breakerReporter); ok {
		health.Breaker = reporter.BreakerState()
	}
	c.JSON(http.StatusOK, health)
}

// versionHandler handles version requests
func (rs *RestServer) versionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.VersionResponse{
		Version:   rs.config.Version,
		BuildTime: rs.config.BuildTime,
		GitCommit: rs.config.GitCommit,
	})
}
