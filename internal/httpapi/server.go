// Package httpapi exposes the retrieval pipeline over HTTP.
//
// Identity arrives on trusted headers set by the fronting identity
// provider; the server never validates tokens itself. Requests without a
// complete, well-formed identity are rejected before reaching any handler.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sentryd/internal/identity"
	"github.com/fyrsmithlabs/sentryd/internal/logging"
	"github.com/fyrsmithlabs/sentryd/internal/retrieval"
)

// Trusted identity headers, populated by the external identity provider.
const (
	HeaderUserID    = "X-User-ID"
	HeaderOrgID     = "X-Org-ID"
	HeaderRole      = "X-Role"
	HeaderClearance = "X-Clearance"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides the HTTP endpoints for sentryd.
type Server struct {
	echo    *echo.Echo
	service *retrieval.Service
	logger  *logging.Logger
	config  *Config
}

// NewServer creates the HTTP server. The gatherer backs GET /metrics; nil
// disables the endpoint.
func NewServer(service *retrieval.Service, logger *logging.Logger, gatherer prometheus.Gatherer, cfg *Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("retrieval service is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg == nil {
		cfg = &Config{Host: "0.0.0.0", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		service: service,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes(gatherer)
	return s, nil
}

func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.echo.GET("/health", s.handleHealth)
	if gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.echo.Group("/api/v1", s.principalMiddleware)
	v1.POST("/ingest", s.handleIngest)
	v1.POST("/query", s.handleQuery)
}

// principalMiddleware builds the request principal from the trusted
// identity headers. Requests with a missing or malformed identity never
// reach a handler.
func (s *Server) principalMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Request().Header
		p := &identity.Principal{
			UserID:    h.Get(HeaderUserID),
			OrgID:     h.Get(HeaderOrgID),
			Role:      identity.Role(h.Get(HeaderRole)),
			Clearance: identity.Clearance(h.Get(HeaderClearance)),
		}
		if err := p.Validate(); err != nil {
			s.logger.Warn(c.Request().Context(), "request with invalid identity", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Code:    "invalid_identity",
				Message: "missing or malformed identity headers",
			})
		}

		ctx := identity.ContextWithPrincipal(c.Request().Context(), p)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
