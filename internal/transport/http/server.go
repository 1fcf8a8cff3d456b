// Package http assembles the echo server for the support desk API.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xiaot623/gogo/supportdesk/internal/metrics"
	"github.com/xiaot623/gogo/supportdesk/internal/ratelimit"
	"github.com/xiaot623/gogo/supportdesk/internal/service"
	v1 "github.com/xiaot623/gogo/supportdesk/internal/transport/http/v1"
)

// NewServer creates the public HTTP server.
func NewServer(svc *service.Service, limiter ratelimit.Limiter, m *metrics.Metrics) *echo.Echo {
	cfg := svc.Config()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(cfg.IsProduction())

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		ExposeHeaders:    []string{"X-Agent-Type", "X-Reasoning", "X-Conversation-Id"},
	}))
	if limiter != nil {
		e.Use(rateLimit(limiter, m))
	}

	// Handlers
	v1.NewHandler(svc).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	return e
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("http_request", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("http_request", attrs...)
			return nil
		},
	})
}

// rateLimit admits requests per client IP. A failing backend lets requests through.
func rateLimit(limiter ratelimit.Limiter, m *metrics.Metrics) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/health" || p == "/metrics"
		},
		Store: &limiterStore{limiter: limiter},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, errorBody("Unable to identify client", http.StatusForbidden))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			m.RateLimited()
			return c.JSON(http.StatusTooManyRequests, errorBody("Rate limit exceeded", http.StatusTooManyRequests))
		},
	})
}

type limiterStore struct {
	limiter ratelimit.Limiter
}

func (s *limiterStore) Allow(identifier string) (bool, error) {
	ok, err := s.limiter.Allow(context.Background(), identifier)
	if err != nil {
		slog.Warn("rate_limit_unavailable", "error", err)
		return true, nil
	}
	return ok, nil
}

func errorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			slog.Error("http_unhandled_error", "path", c.Path(), "error", err)
			if production {
				message = "Internal Server Error"
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorBody(message, code))
	}
}

func errorBody(message string, code int) map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"message": message,
			"code":    code,
		},
	}
}
