package middleware

import (
	"context"
	"net/http"

	"erp-onboarding/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const tokenContextKey = "user"

// AdminClaims are the claims carried by operator tokens.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTMiddleware validates HS256 bearer tokens signed with secret and
// stores the subject in the request context.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		ContextKey:    tokenContextKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(AdminClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized,
				common.CreateErrorResponse(common.CodeUnauthorized, "Invalid or missing token", nil))
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			claims, ok := ClaimsFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized,
					common.CreateErrorResponse(common.CodeUnauthorized, "Invalid claims", nil))
			}
			if userID, err := uuid.Parse(claims.Subject); err == nil {
				ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		})
	}
}

// ClaimsFromContext returns the verified claims of the current request.
func ClaimsFromContext(c echo.Context) (*AdminClaims, bool) {
	token, ok := c.Get(tokenContextKey).(*jwt.Token)
	if !ok {
		return nil, false
	}
	claims, ok := token.Claims.(*AdminClaims)
	return claims, ok
}
