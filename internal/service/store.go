// Package service holds the authentication and identity-lifecycle logic:
// credentials, the email-verification state machine, bearer tokens, and the
// façade that turns their outcomes into transport-ready results.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/user-service/internal/model"
	"github.com/iliyamo/user-service/internal/utils"
)

// AccountStore is the persistence capability the services depend on.
// Implementations report repository.ErrNotFound, repository.ErrConflict and
// repository.ErrAlreadyVerified. Save never touches verification state;
// ReissueTicket and ConsumeVerificationToken change it atomically.
type AccountStore interface {
	Create(ctx context.Context, a *model.Account) error
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindCredentialsByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*model.Account, error)
	Save(ctx context.Context, a *model.Account) error
	ReissueTicket(ctx context.Context, id string, t model.VerificationTicket) error
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*model.Account, error)
}

// PasswordHasher is satisfied by utils.BcryptHasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	Burn(plain string)
}

// TokenIssuer is satisfied by utils.TokenService.
type TokenIssuer interface {
	Issue(userID, email string) (utils.AccessToken, error)
	TTL() time.Duration
}
