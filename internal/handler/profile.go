package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/middleware"
	"github.com/iliyamo/user-service/internal/service"
)

// ProfileHandler serves the owner's profile and the public lookup by id.
type ProfileHandler struct {
	Profiles *service.ProfileService
	// Changed runs after a successful update, e.g. to evict cached public views.
	Changed func(ctx context.Context, accountID string)
}

func NewProfileHandler(p *service.ProfileService, changed func(ctx context.Context, accountID string)) *ProfileHandler {
	return &ProfileHandler{Profiles: p, Changed: changed}
}

func (h *ProfileHandler) GetProfile(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return render(c, service.Failure(http.StatusUnauthorized, "No token provided. Authorization denied."))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return render(c, h.Profiles.GetProfile(ctx, id.UserID))
}

func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return render(c, service.Failure(http.StatusUnauthorized, "No token provided. Authorization denied."))
	}
	var req service.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res := h.Profiles.UpdateProfile(ctx, id.UserID, req)
	if res.Body.Success && h.Changed != nil {
		h.Changed(ctx, id.UserID)
	}
	return render(c, res)
}

func (h *ProfileHandler) GetUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return render(c, h.Profiles.GetPublic(ctx, c.Param("userId")))
}
