package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"plaasstop-backend/pkg/jwtutil"
	"plaasstop-backend/pkg/logger"
)

const identityContextKey = "identity"

// AuthMiddleware validates the bearer token issued by the identity provider
// and stores the verified claims in the request context. There is no
// unauthenticated fallback: a missing or bad credential always gets a 401.
func AuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized: No token provided"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized: No token provided"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized: Invalid token"})
			}

			c.Set(identityContextKey, claims)
			log.Debug("Bearer token validated",
				zap.String("user_id", claims.UserID()),
				zap.String("email", claims.Email))

			return next(c)
		}
	}
}

// IdentityFromContext returns the verified identity claims stored by
// AuthMiddleware, or nil when the request was not authenticated.
func IdentityFromContext(c echo.Context) *jwtutil.IdentityClaims {
	claims, ok := c.Get(identityContextKey).(*jwtutil.IdentityClaims)
	if !ok {
		return nil
	}
	return claims
}
