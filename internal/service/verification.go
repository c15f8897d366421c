package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/user-service/internal/mail"
	"github.com/iliyamo/user-service/internal/model"
	"github.com/iliyamo/user-service/internal/repository"
	"github.com/iliyamo/user-service/internal/utils"
)

// VerificationConfig tunes the email-verification flow.
type VerificationConfig struct {
	TTL         time.Duration             // lifetime of a verification token
	MailTimeout time.Duration             // upper bound for a single delivery attempt
	Link        func(token string) string // builds the URL placed in the email
}

// VerificationService drives an account from Unverified{token, expiresAt}
// to Verified, re-issuing tickets on request. It never reveals whether a
// presented token was unknown or merely expired.
type VerificationService struct {
	store  AccountStore
	mailer mail.Sender
	cfg    VerificationConfig
	now    func() time.Time
	log    *slog.Logger
}

func NewVerificationService(store AccountStore, mailer mail.Sender, cfg VerificationConfig, log *slog.Logger) *VerificationService {
	return &VerificationService{store: store, mailer: mailer, cfg: cfg, now: time.Now, log: log}
}

// IssueTicket mints a fresh random token valid for the configured TTL.
// The ticket only takes effect once the account carrying it is written.
func (s *VerificationService) IssueTicket() (model.VerificationTicket, error) {
	token, err := utils.RandomHex(utils.VerificationTokenBytes)
	if err != nil {
		return model.VerificationTicket{}, fmt.Errorf("generate verification token: %w", err)
	}
	return model.VerificationTicket{Token: token, ExpiresAt: s.now().UTC().Add(s.cfg.TTL)}, nil
}

// Verify consumes token: the owning account becomes verified and loses its
// ticket. Unknown, expired and already used tokens all yield
// ErrInvalidOrExpired.
func (s *VerificationService) Verify(ctx context.Context, token string) error {
	a, err := s.store.ConsumeVerificationToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logRejected(ctx, token)
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("consume verification token: %w", err)
	}
	s.log.InfoContext(ctx, "verification: email verified", "account_id", a.ID)
	return nil
}

// logRejected tells unknown tokens apart from expired ones in debug logs
// only. Callers always see ErrInvalidOrExpired.
func (s *VerificationService) logRejected(ctx context.Context, token string) {
	if !s.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	a, err := s.store.FindByVerificationToken(ctx, token)
	if err != nil {
		s.log.DebugContext(ctx, "verification: unknown token")
		return
	}
	s.log.DebugContext(ctx, "verification: expired token", "account_id", a.ID)
}

// Resend replaces the outstanding ticket of an unverified account and mails
// the new link. Delivery failure is returned to the caller.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	a, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find by email: %w", err)
	}
	if a.IsEmailVerified {
		return ErrAlreadyVerified
	}

	ticket, err := s.IssueTicket()
	if err != nil {
		return err
	}
	if err := s.store.ReissueTicket(ctx, a.ID, ticket); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyVerified):
			return ErrAlreadyVerified
		case errors.Is(err, repository.ErrNotFound):
			return ErrNotFound
		}
		return fmt.Errorf("reissue verification ticket: %w", err)
	}
	a.Reissue(ticket)

	mailCtx, cancel := context.WithTimeout(ctx, s.cfg.MailTimeout)
	defer cancel()
	if err := s.Send(mailCtx, a); err != nil {
		s.log.ErrorContext(ctx, "verification: resend delivery failed", "account_id", a.ID, "err", err)
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}
	return nil
}

// Send renders and delivers the verification email for a's current ticket.
func (s *VerificationService) Send(ctx context.Context, a *model.Account) error {
	if a.Verification == nil {
		return errors.New("account has no outstanding verification ticket")
	}
	msg, err := mail.VerificationMessage(a.Email, a.Name, s.cfg.Link(a.Verification.Token), s.cfg.TTL)
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}
	return s.mailer.Send(ctx, msg)
}
