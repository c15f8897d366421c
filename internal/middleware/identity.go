package middleware

// identity.go holds the context keys set by BearerAuth and the helpers that
// read them back. Rate limiting and caching key on accountID, which falls
// back to "guest" for anonymous requests.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/utils"
)

const (
	ctxAccountID = "account_id"
	ctxEmail     = "email"
)

// CurrentIdentity returns the identity attached by BearerAuth.
func CurrentIdentity(c echo.Context) (utils.Identity, bool) {
	id, _ := c.Get(ctxAccountID).(string)
	email, _ := c.Get(ctxEmail).(string)
	if id == "" {
		return utils.Identity{}, false
	}
	return utils.Identity{UserID: id, Email: email}, true
}

// accountID is the authenticated account id or "guest".
func accountID(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return id.UserID
	}
	return "guest"
}
