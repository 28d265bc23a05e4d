package middleware

import (
	"net/http"

	"erp-onboarding/internal/common"

	"github.com/labstack/echo/v4"
)

// RoleAdmin is the operator role allowed on admin routes.
const RoleAdmin = "admin"

// RequireRole rejects requests whose token does not carry role. It must run
// after JWTMiddleware.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized,
					common.CreateErrorResponse(common.CodeUnauthorized, "Authentication required", nil))
			}
			if claims.Role != role {
				return c.JSON(http.StatusForbidden,
					common.CreateErrorResponse(common.CodeForbidden, "Insufficient permissions", nil))
			}
			return next(c)
		}
	}
}
