package middleware

import (
	"net/http"
	"strconv"
	"time"

	"erp-onboarding/internal/caching"
	"erp-onboarding/internal/common"
	"erp-onboarding/internal/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RateLimit allows limit requests per client IP within window, counted in
// the shared cache under scope. Cache errors let the request through.
func RateLimit(cache caching.CacheService, scope string, limit int, window time.Duration, m *metrics.Metrics, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := scope + ":" + c.RealIP()
			limited, err := cache.IsRateLimited(c.Request().Context(), key, limit, window)
			if err != nil {
				log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			if limited {
				m.RateLimited.Inc()
				c.Response().Header().Set("Retry-After", retryAfter(window))
				return c.JSON(http.StatusTooManyRequests,
					common.CreateErrorResponse(common.CodeRateLimited, common.ErrRateLimited.Message, nil))
			}
			return next(c)
		}
	}
}

func retryAfter(window time.Duration) string {
	return strconv.Itoa(int(window.Seconds()))
}
