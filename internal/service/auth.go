package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iliyamo/user-service/internal/model"
	"github.com/iliyamo/user-service/internal/utils"
)

// LoginData is the payload of a successful login.
type LoginData struct {
	model.Summary
	Token     string    `json:"token"`
	ExpiresIn string    `json:"expiresIn"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthFacade is what the transport layer calls. It validates input, runs the
// matching flow and turns every outcome into a status and envelope.
type AuthFacade struct {
	Credentials  *CredentialService
	Verification *VerificationService
	Store        AccountStore
	Log          *slog.Logger
	Debug        bool // attach diagnostic detail to 500 responses
}

func (f *AuthFacade) Register(ctx context.Context, in RegisterInput) Result {
	var v model.ValidationErrors
	v.CheckName(in.Name)
	v.CheckEmail(in.Email)
	v.CheckNewPassword(in.Password)
	if len(v) > 0 {
		return ValidationFailed(v)
	}

	summary, err := f.Credentials.Register(ctx, in)
	if err != nil {
		return f.failure(ctx, "Server error during registration", err)
	}
	return ok(http.StatusCreated, "Registration successful. Please check your email to verify your account.", summary)
}

func (f *AuthFacade) Login(ctx context.Context, email, password string) Result {
	var v model.ValidationErrors
	v.CheckEmail(email)
	v.CheckRequired("Password", password)
	if len(v) > 0 {
		return ValidationFailed(v)
	}

	res, err := f.Credentials.Login(ctx, model.NormalizeEmail(email), password)
	if err != nil {
		return f.failure(ctx, "Server error during login", err)
	}
	return ok(http.StatusOK, "Login successful", LoginData{
		Summary:   res.Account,
		Token:     res.Token.Token,
		ExpiresIn: f.Credentials.tokens.TTL().String(),
		ExpiresAt: res.Token.Exp,
	})
}

func (f *AuthFacade) VerifyEmail(ctx context.Context, token string) Result {
	if token == "" {
		return ValidationFailed([]string{"Verification token is required"})
	}
	if err := f.Verification.Verify(ctx, token); err != nil {
		return f.failure(ctx, "Server error during email verification", err)
	}
	return ok(http.StatusOK, "Email verified successfully. You can now log in.", nil)
}

func (f *AuthFacade) ResendVerification(ctx context.Context, email string) Result {
	var v model.ValidationErrors
	v.CheckEmail(email)
	if len(v) > 0 {
		return ValidationFailed(v)
	}
	if err := f.Verification.Resend(ctx, model.NormalizeEmail(email)); err != nil {
		return f.failure(ctx, "Server error while resending verification email", err)
	}
	return ok(http.StatusOK, "Verification email sent. Please check your inbox.", nil)
}

// WhoAmI resolves the identity carried by an already verified bearer token.
func (f *AuthFacade) WhoAmI(ctx context.Context, id utils.Identity) Result {
	a, err := f.Store.FindByID(ctx, id.UserID)
	if err != nil {
		return f.failure(ctx, "Server error during token verification", lookupErr(err))
	}
	return ok(http.StatusOK, "Token is valid", a.Summary())
}

// failure maps a domain error to its status and message. Anything it does
// not recognize becomes a 500 carrying internal, logged at error level.
func (f *AuthFacade) failure(ctx context.Context, internal string, err error) Result {
	return mapError(ctx, f.Log, f.Debug, internal, err)
}

func mapError(ctx context.Context, log *slog.Logger, debug bool, internal string, err error) Result {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return fail(http.StatusBadRequest, "User with this email already exists")
	case errors.Is(err, ErrInvalidCredentials):
		return fail(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrEmailNotVerified):
		return fail(http.StatusForbidden, "Please verify your email before logging in")
	case errors.Is(err, ErrAccountDeactivated):
		return fail(http.StatusForbidden, "Account is deactivated. Please contact support.")
	case errors.Is(err, ErrInvalidOrExpired):
		return fail(http.StatusBadRequest, "Invalid or expired verification token")
	case errors.Is(err, ErrNotFound):
		return fail(http.StatusNotFound, "User not found")
	case errors.Is(err, ErrAlreadyVerified):
		return fail(http.StatusBadRequest, "Email is already verified")
	case errors.Is(err, ErrMailDelivery):
		log.ErrorContext(ctx, internal, "err", err)
		r := fail(http.StatusInternalServerError, "Failed to send verification email")
		if debug {
			r.Body.Error = err.Error()
		}
		return r
	}

	log.ErrorContext(ctx, internal, "err", err)
	r := fail(http.StatusInternalServerError, internal)
	if debug {
		r.Body.Error = err.Error()
	}
	return r
}
