package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kanban-api/domain"
)

func googleLogin(identity IdentityProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Redirect(http.StatusFound, identity.AuthCodeURL(""))
	}
}

// googleCallback completes the sign-in: code exchange, ID token verification,
// user lookup-or-create, session issuance. The client receives the session
// token via redirect because the callback arrives as a browser navigation.
// No user is created before verification succeeds.
func googleCallback(store Storage, sessions SessionService, identity IdentityProvider, clientURL string, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		profile, accessToken, err := identity.Exchange(ctx, c.QueryParam("code"))
		if err != nil {
			logger.WithError(err).Error("google sign-in failed")
			return c.JSON(http.StatusInternalServerError, detailsBody("Failed to verify ID token", err))
		}

		user, err := store.UserByGoogleID(ctx, profile.Subject)
		if errors.Is(err, domain.ErrNotFound) {
			user = &domain.User{
				GoogleID: profile.Subject,
				Name:     profile.Name,
				Email:    profile.Email,
				Avatar:   placeholderAvatar(),
			}
			err = store.InsertUser(ctx, user)
		}
		if err != nil {
			logger.WithError(err).Error("load or create user")
			return c.JSON(http.StatusInternalServerError, detailsBody("Failed to sign in", err))
		}

		token, err := sessions.Issue(user.ID.Hex(), accessToken)
		if err != nil {
			logger.WithError(err).Error("issue session token")
			return c.JSON(http.StatusInternalServerError, detailsBody("Failed to sign in", err))
		}
		return c.Redirect(http.StatusFound, clientURL+"?token="+url.QueryEscape(token))
	}
}

func placeholderAvatar() string {
	return "https://api.dicebear.com/7.x/identicon/svg?seed=" + uuid.NewString()
}

func getProfile(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := primitive.ObjectIDFromHex(identityFrom(c).UserID)
		if err != nil {
			return c.JSON(http.StatusNotFound, messageBody("User not found"))
		}
		user, err := store.UserByID(c.Request().Context(), userID)
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, messageBody("User not found"))
		}
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, detailsBody("Internal server error", err))
		}
		return c.JSON(http.StatusOK, user)
	}
}

// logout forwards revocation of the delegated access token to the provider.
func logout(identity IdentityProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident := identityFrom(c)
		if ident.AccessToken == "" {
			return c.JSON(http.StatusBadRequest, messageBody("accessToken is required"))
		}
		if err := identity.Revoke(c.Request().Context(), ident.AccessToken); err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false,
				"message": "Failed to logout from Google.",
				"details": err.Error(),
			})
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Google logout successful."})
	}
}
