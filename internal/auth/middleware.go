package auth

import (
	"context"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

const (
	uidContextKey   = "auth.uid"
	emailContextKey = "auth.email"
)

// TokenVerifier is the slice of the Firebase auth client this middleware
// needs; *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// Middleware verifies the Authorization bearer token against Firebase
// Auth and stashes the caller's uid and email on the echo context.
func Middleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"error":   "Missing authorization token",
				})
			}

			idToken := strings.TrimPrefix(header, "Bearer ")
			token, err := verifier.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"error":   "Invalid authorization token",
				})
			}

			c.Set(uidContextKey, token.UID)
			if email, ok := token.Claims["email"].(string); ok {
				c.Set(emailContextKey, email)
			}

			return next(c)
		}
	}
}

// UID returns the authenticated caller's uid, or "" when the middleware
// did not run.
func UID(c echo.Context) string {
	uid, _ := c.Get(uidContextKey).(string)
	return uid
}

func Email(c echo.Context) string {
	email, _ := c.Get(emailContextKey).(string)
	return email
}
