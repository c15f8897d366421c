package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/service"
	"github.com/iliyamo/user-service/internal/utils"
)

// TokenVerifier resolves a raw bearer token into the identity it carries.
type TokenVerifier interface {
	Verify(raw string) (utils.Identity, error)
}

// BearerAuth returns an Echo middleware that requires an
// `Authorization: Bearer <token>` header. Absent or malformed headers are
// rejected before the verifier is consulted. On success the account id and
// email are stored in the context under "account_id" and "email"; handlers
// read them through CurrentIdentity.
func BearerAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				return reject(c, http.StatusUnauthorized, "No token provided. Authorization denied.")
			}
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" || strings.ContainsRune(raw, ' ') {
				return reject(c, http.StatusUnauthorized, "Malformed authorization header.")
			}

			id, err := v.Verify(raw)
			switch {
			case errors.Is(err, utils.ErrTokenExpired):
				return reject(c, http.StatusUnauthorized, "Token expired. Please login again.")
			case err != nil:
				return reject(c, http.StatusUnauthorized, "Invalid token. Authorization denied.")
			}

			c.Set(ctxAccountID, id.UserID)
			c.Set(ctxEmail, id.Email)
			return next(c)
		}
	}
}

func reject(c echo.Context, status int, message string) error {
	r := service.Failure(status, message)
	return c.JSON(r.Status, r.Body)
}
