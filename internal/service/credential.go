package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/user-service/internal/model"
	"github.com/iliyamo/user-service/internal/repository"
	"github.com/iliyamo/user-service/internal/utils"
)

// RegisterInput is an already validated registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is what a successful login hands back.
type LoginResult struct {
	Account model.Summary
	Token   utils.AccessToken
}

// CredentialService registers accounts and authenticates passwords.
type CredentialService struct {
	store        AccountStore
	hasher       PasswordHasher
	tokens       TokenIssuer
	verification *VerificationService
	log          *slog.Logger

	// passwordFirst checks the password before revealing verified/active state.
	passwordFirst bool
	mailTimeout   time.Duration

	inflight sync.WaitGroup
}

// CredentialConfig tunes login ordering and background mail.
type CredentialConfig struct {
	VerifyPasswordFirst bool
	MailTimeout         time.Duration
}

func NewCredentialService(store AccountStore, hasher PasswordHasher, tokens TokenIssuer, verification *VerificationService, cfg CredentialConfig, log *slog.Logger) *CredentialService {
	return &CredentialService{
		store:         store,
		hasher:        hasher,
		tokens:        tokens,
		verification:  verification,
		log:           log,
		passwordFirst: cfg.VerifyPasswordFirst,
		mailTimeout:   cfg.MailTimeout,
	}
}

// Register creates an unverified account and mails its verification link
// in the background. Mail failures are logged, never returned.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (model.Summary, error) {
	email := model.NormalizeEmail(in.Email)

	// Friendly pre-check; the store's unique index has the final word.
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return model.Summary{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Summary{}, fmt.Errorf("check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.Summary{}, fmt.Errorf("hash password: %w", err)
	}
	ticket, err := s.verification.IssueTicket()
	if err != nil {
		return model.Summary{}, err
	}

	a := model.NewAccount(in.Name, email, hash, ticket)
	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Summary{}, ErrEmailTaken
		}
		return model.Summary{}, fmt.Errorf("create account: %w", err)
	}
	s.log.InfoContext(ctx, "credentials: account registered", "account_id", a.ID)

	s.sendInBackground(ctx, a)
	return a.Summary(), nil
}

func (s *CredentialService) sendInBackground(ctx context.Context, a *model.Account) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mailTimeout)
		defer cancel()
		if err := s.verification.Send(mailCtx, a); err != nil {
			s.log.WarnContext(mailCtx, "credentials: verification email not delivered", "account_id", a.ID, "err", err)
		}
	}()
}

// Wait blocks until background verification mails have finished. Each of
// them is bounded by the mail timeout.
func (s *CredentialService) Wait() {
	s.inflight.Wait()
}

// Login authenticates email and password and issues a bearer token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *CredentialService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	a, err := s.store.FindCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Burn(password)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find credentials: %w", err)
	}

	if s.passwordFirst {
		if !s.hasher.Verify(password, a.PasswordHash) {
			return LoginResult{}, ErrInvalidCredentials
		}
		if err := checkStanding(a); err != nil {
			return LoginResult{}, err
		}
	} else {
		if err := checkStanding(a); err != nil {
			return LoginResult{}, err
		}
		if !s.hasher.Verify(password, a.PasswordHash) {
			return LoginResult{}, ErrInvalidCredentials
		}
	}

	tok, err := s.tokens.Issue(a.ID, a.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Account: a.Summary(), Token: tok}, nil
}

func checkStanding(a *model.Account) error {
	if !a.IsEmailVerified {
		return ErrEmailNotVerified
	}
	if !a.IsActive {
		return ErrAccountDeactivated
	}
	return nil
}
