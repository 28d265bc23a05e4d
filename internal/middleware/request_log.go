package middleware

import (
	"strings"
	"time"

	"erp-onboarding/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var skipLogPrefixes = []string{"/health", "/ready", "/live", "/metrics"}

// RequestLogger writes one structured line per request. Health check and
// scrape traffic is skipped.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	log = log.Named("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if shouldSkipLogging(req.Method, req.URL.Path) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			}
			// Authentication replaces the request, so read the context after next.
			if userID, ok := common.GetUserIDFromContext(c.Request().Context()); ok {
				fields = append(fields, zap.String("user_id", userID.String()))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			switch status := c.Response().Status; {
			case status >= 500:
				log.Error("request", fields...)
			case status >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		}
	}
}

func shouldSkipLogging(method, path string) bool {
	if method != "GET" {
		return false
	}
	for _, prefix := range skipLogPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
