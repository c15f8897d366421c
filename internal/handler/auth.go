package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/middleware"
	"github.com/iliyamo/user-service/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// AuthHandler adapts the auth façade to HTTP.
type AuthHandler struct {
	Auth *service.AuthFacade
}

func NewAuthHandler(auth *service.AuthFacade) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type resendReq struct {
	Email string `json:"email"`
}

func render(c echo.Context, r service.Result) error {
	return c.JSON(r.Status, r.Body)
}

func badBody(c echo.Context) error {
	return render(c, service.Failure(http.StatusBadRequest, "Invalid request body"))
}

// Register: create an unverified account; the verification email goes out
// in the background.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return render(c, h.Auth.Register(ctx, service.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password}))
}

// Login: verify credentials and return a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return render(c, h.Auth.Login(ctx, req.Email, req.Password))
}

// VerifyEmail: consume the token from ?token=.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return render(c, h.Auth.VerifyEmail(ctx, c.QueryParam("token")))
}

// ResendVerification: issue a fresh token and mail it. The send happens
// inline so the mail timeout is added on top of the store budget.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req resendReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	return render(c, h.Auth.ResendVerification(c.Request().Context(), req.Email))
}

// VerifyToken: whoami for the bearer token BearerAuth already checked.
func (h *AuthHandler) VerifyToken(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return render(c, service.Failure(http.StatusUnauthorized, "No token provided. Authorization denied."))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return render(c, h.Auth.WhoAmI(ctx, id))
}
