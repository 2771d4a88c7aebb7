package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const identityContextKey = "identity"

// RequireSession verifies the bearer session token before any handler logic
// runs and stores the caller's identity in the request context. A missing or
// malformed header yields 403; a token that fails verification yields 500.
func RequireSession(sessions SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerTokenFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"auth": false, "message": "No token provided."})
			}
			ident, err := sessions.Verify(token)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"auth": false, "message": "Failed to authenticate token."})
			}
			c.Set(identityContextKey, ident)
			return next(c)
		}
	}
}

func identityFrom(c echo.Context) Identity {
	ident, _ := c.Get(identityContextKey).(Identity)
	return ident
}
