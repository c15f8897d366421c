package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/user-service/internal/logging"
	"github.com/iliyamo/user-service/internal/mail"
	"github.com/iliyamo/user-service/internal/model"
	"github.com/iliyamo/user-service/internal/repository"
	"github.com/iliyamo/user-service/internal/utils"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (o *outbox) Send(_ context.Context, m mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, m)
	return nil
}

func (o *outbox) sent() []mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mail.Message(nil), o.msgs...)
}

type fixture struct {
	store        *repository.MemoryAccountRepo
	mailer       *outbox
	tokens       *utils.TokenService
	verification *VerificationService
	credentials  *CredentialService
	facade       *AuthFacade
	profiles     *ProfileService
}

func newFixture(t *testing.T, cfg CredentialConfig) *fixture {
	t.Helper()
	log := logging.Discard()
	f := &fixture{
		store:  repository.NewMemoryAccountRepo(),
		mailer: &outbox{},
		tokens: utils.NewTokenService(testSecret, time.Hour, nil),
	}
	f.verification = NewVerificationService(f.store, f.mailer, VerificationConfig{
		TTL:         10 * time.Minute,
		MailTimeout: time.Second,
		Link:        func(tok string) string { return "http://app.test/verify-email?token=" + tok },
	}, log)
	if cfg.MailTimeout == 0 {
		cfg.MailTimeout = time.Second
	}
	f.credentials = NewCredentialService(f.store, utils.NewBcryptHasher(4), f.tokens, f.verification, cfg, log)
	f.facade = &AuthFacade{Credentials: f.credentials, Verification: f.verification, Store: f.store, Log: log}
	f.profiles = &ProfileService{Store: f.store, Log: log}
	t.Cleanup(f.credentials.Wait)
	return f
}

func (f *fixture) ticket(t *testing.T, email string) *model.VerificationTicket {
	t.Helper()
	a, err := f.store.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return a.Verification
}

func (f *fixture) registerVerified(t *testing.T, name, email, password string) model.Summary {
	t.Helper()
	ctx := context.Background()
	s, err := f.credentials.Register(ctx, RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	require.NoError(t, f.verification.Verify(ctx, f.ticket(t, email).Token))
	return s
}

func TestRegister_CreatesUnverifiedAccountAndMailsLink(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()

	s, err := f.credentials.Register(ctx, RegisterInput{Name: "  Alice ", Email: " Alice@X.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.UserID)
	assert.Equal(t, "Alice", s.Name)
	assert.Equal(t, "alice@x.com", s.Email)
	assert.False(t, s.IsEmailVerified)

	stored, err := f.store.FindCredentialsByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.False(t, stored.IsEmailVerified)
	assert.True(t, stored.IsActive)
	require.NotNil(t, stored.Verification)
	assert.Len(t, stored.Verification.Token, 2*utils.VerificationTokenBytes)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), stored.Verification.ExpiresAt, 5*time.Second)
	assert.True(t, f.credentials.hasher.Verify("secret1", stored.PasswordHash))

	f.credentials.Wait()
	msgs := f.mailer.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice@x.com", msgs[0].To)
	assert.Contains(t, msgs[0].HTML, "verify-email?token="+stored.Verification.Token)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()

	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = f.credentials.Register(ctx, RegisterInput{Name: "Other", Email: "A@X.COM", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	const n = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		taken   int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.credentials.Register(context.Background(), RegisterInput{Name: "Racer", Email: "race@x.com", Password: "secret1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrEmailTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, taken)
}

func TestRegister_MailFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	f.mailer.err = errors.New("smtp down")

	s, err := f.credentials.Register(context.Background(), RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.UserID)
	f.credentials.Wait()
	assert.Empty(t, f.mailer.sent())
}

func TestLogin_UnverifiedAlwaysRejected(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.credentials.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
	_, err = f.credentials.Login(ctx, "a@x.com", "wrong-password")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestLogin_PasswordFirstHidesAccountState(t *testing.T) {
	f := newFixture(t, CredentialConfig{VerifyPasswordFirst: true})
	ctx := context.Background()
	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.credentials.Login(ctx, "a@x.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.credentials.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestLogin_WrongPasswordMatchesUnknownEmail(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	f.registerVerified(t, "Alice", "a@x.com", "secret1")

	wrong := f.facade.Login(ctx, "a@x.com", "wrong-password")
	unknown := f.facade.Login(ctx, "nobody@x.com", "secret1")
	assert.Equal(t, http.StatusUnauthorized, wrong.Status)
	assert.Equal(t, wrong, unknown)
}

func TestLogin_Deactivated(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	s := f.registerVerified(t, "Alice", "a@x.com", "secret1")

	a, err := f.store.FindByID(ctx, s.UserID)
	require.NoError(t, err)
	a.IsActive = false
	require.NoError(t, f.store.Save(ctx, a))

	_, err = f.credentials.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrAccountDeactivated)
	assert.Equal(t, http.StatusForbidden, f.facade.Login(ctx, "a@x.com", "secret1").Status)
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	s := f.registerVerified(t, "Alice", "a@x.com", "secret1")

	res, err := f.credentials.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, s.UserID, res.Account.UserID)
	assert.True(t, res.Account.IsEmailVerified)

	id, err := f.tokens.Verify(res.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, utils.Identity{UserID: s.UserID, Email: "a@x.com"}, id)
}

func TestVerify_ExpiredIndistinguishableFromUnknown(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	tok := f.ticket(t, "a@x.com").Token

	f.verification.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	random, err := utils.RandomHex(utils.VerificationTokenBytes)
	require.NoError(t, err)

	assert.ErrorIs(t, f.verification.Verify(ctx, tok), ErrInvalidOrExpired)
	assert.ErrorIs(t, f.verification.Verify(ctx, random), ErrInvalidOrExpired)
	assert.Equal(t, f.facade.VerifyEmail(ctx, tok), f.facade.VerifyEmail(ctx, random))

	a, err := f.store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, a.IsEmailVerified)
}

func TestVerify_DebugLogTellsExpiredFromUnknown(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	f.credentials.Wait()
	tok := f.ticket(t, "a@x.com").Token

	var buf bytes.Buffer
	f.verification.log = logging.New(true, &buf)
	f.verification.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	assert.ErrorIs(t, f.verification.Verify(ctx, tok), ErrInvalidOrExpired)
	assert.Contains(t, buf.String(), "verification: expired token")
	assert.NotContains(t, buf.String(), tok)

	buf.Reset()
	assert.ErrorIs(t, f.verification.Verify(ctx, "nope"), ErrInvalidOrExpired)
	assert.Contains(t, buf.String(), "verification: unknown token")
}

func TestVerify_ConsumesTicket(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	tok := f.ticket(t, "a@x.com").Token

	require.NoError(t, f.verification.Verify(ctx, tok))
	a, err := f.store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, a.IsEmailVerified)
	assert.Nil(t, a.Verification)

	assert.ErrorIs(t, f.verification.Verify(ctx, tok), ErrInvalidOrExpired)
	assert.ErrorIs(t, f.verification.Verify(ctx, ""), ErrInvalidOrExpired)
}

func TestResend(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	f.credentials.Wait()
	old := f.ticket(t, "a@x.com").Token

	require.NoError(t, f.verification.Resend(ctx, "a@x.com"))
	fresh := f.ticket(t, "a@x.com").Token
	assert.NotEqual(t, old, fresh)

	msgs := f.mailer.sent()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].HTML, fresh)

	assert.ErrorIs(t, f.verification.Verify(ctx, old), ErrInvalidOrExpired)
	require.NoError(t, f.verification.Verify(ctx, fresh))

	assert.ErrorIs(t, f.verification.Resend(ctx, "a@x.com"), ErrAlreadyVerified)
	assert.ErrorIs(t, f.verification.Resend(ctx, "nobody@x.com"), ErrNotFound)
}

func TestResend_MailFailurePropagates(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	f.credentials.Wait()
	f.mailer.err = errors.New("smtp down")

	err = f.verification.Resend(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrMailDelivery)

	res := f.facade.ResendVerification(ctx, "a@x.com")
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.False(t, res.Body.Success)
	assert.Empty(t, res.Body.Error)
}

// interleavingStore runs hook once, right after the first FindByEmail
// returns, to force a write between a caller's read and its update.
type interleavingStore struct {
	AccountStore
	once sync.Once
	hook func()
}

func (s *interleavingStore) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := s.AccountStore.FindByEmail(ctx, email)
	s.once.Do(s.hook)
	return a, err
}

func TestResend_VerifiedInBetweenStaysVerified(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	f.credentials.Wait()
	tok := f.ticket(t, "a@x.com").Token

	store := &interleavingStore{AccountStore: f.store, hook: func() {
		require.NoError(t, f.verification.Verify(ctx, tok))
	}}
	resend := NewVerificationService(store, f.mailer, f.verification.cfg, logging.Discard())

	assert.ErrorIs(t, resend.Resend(ctx, "a@x.com"), ErrAlreadyVerified)

	a, err := f.store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, a.IsEmailVerified)
	assert.Nil(t, a.Verification)
	assert.Len(t, f.mailer.sent(), 1)
}

func TestVerify_ConcurrentSameTokenSucceedsOnce(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	_, err := f.credentials.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	tok := f.ticket(t, "a@x.com").Token

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.verification.Verify(ctx, tok)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidOrExpired)
	}
	assert.Equal(t, 1, succeeded)
}

func TestFacade_Statuses(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()

	r := f.facade.Register(ctx, RegisterInput{Name: "A", Email: "bad", Password: "123"})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, []string{
		"Name must be at least 2 characters",
		"Please provide a valid email",
		"Password must be at least 6 characters",
	}, r.Body.Errors)

	r = f.facade.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	assert.Equal(t, http.StatusCreated, r.Status)
	assert.True(t, r.Body.Success)
	_, isSummary := r.Body.Data.(model.Summary)
	assert.True(t, isSummary)

	r = f.facade.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "User with this email already exists", r.Body.Message)

	assert.Equal(t, http.StatusBadRequest, f.facade.Login(ctx, "", "").Status)
	assert.Equal(t, http.StatusForbidden, f.facade.Login(ctx, "a@x.com", "secret1").Status)
	assert.Equal(t, http.StatusBadRequest, f.facade.VerifyEmail(ctx, "").Status)
	assert.Equal(t, http.StatusNotFound, f.facade.ResendVerification(ctx, "nobody@x.com").Status)
	assert.Equal(t, http.StatusBadRequest, f.facade.ResendVerification(ctx, "nope").Status)
	assert.Equal(t, http.StatusNotFound, f.facade.WhoAmI(ctx, utils.Identity{UserID: "gone", Email: "gone@x.com"}).Status)
}

func TestFacade_Scenario(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()

	r := f.facade.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.Equal(t, http.StatusBadRequest, r.Status, "single-character names are rejected")

	r = f.facade.Register(ctx, RegisterInput{Name: "Al", Email: "a@x.com", Password: "secret1"})
	require.Equal(t, http.StatusCreated, r.Status)
	tok := f.ticket(t, "a@x.com").Token

	r = f.facade.VerifyEmail(ctx, tok)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Nil(t, f.ticket(t, "a@x.com"))

	r = f.facade.Login(ctx, "a@x.com", "secret1")
	require.Equal(t, http.StatusOK, r.Status)
	data, isLogin := r.Body.Data.(LoginData)
	require.True(t, isLogin)
	assert.Equal(t, "1h0m0s", data.ExpiresIn)

	id, err := f.tokens.Verify(data.Token)
	require.NoError(t, err)
	r = f.facade.WhoAmI(ctx, id)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, data.Summary, r.Body.Data)

	r = f.facade.Login(ctx, "a@x.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "Invalid credentials", r.Body.Message)
}

type brokenStore struct {
	AccountStore
}

func (brokenStore) FindByEmail(context.Context, string) (*model.Account, error) {
	return nil, errors.New("connection refused")
}

func TestFacade_InternalErrorDetailOnlyInDebug(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	f.credentials.store = brokenStore{f.store}
	ctx := context.Background()
	in := RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"}

	r := f.facade.Register(ctx, in)
	assert.Equal(t, http.StatusInternalServerError, r.Status)
	assert.Equal(t, "Server error during registration", r.Body.Message)
	assert.Empty(t, r.Body.Error)

	f.facade.Debug = true
	r = f.facade.Register(ctx, in)
	assert.Contains(t, r.Body.Error, "connection refused")
}

func TestProfile(t *testing.T) {
	f := newFixture(t, CredentialConfig{})
	ctx := context.Background()
	s := f.registerVerified(t, "Alice", "a@x.com", "secret1")

	r := f.profiles.GetProfile(ctx, s.UserID)
	require.Equal(t, http.StatusOK, r.Status)
	p := r.Body.Data.(model.Profile)
	assert.Equal(t, "Alice", p.Name)
	assert.True(t, p.IsEmailVerified)

	name, bio := "  Alicia ", "hello"
	r = f.profiles.UpdateProfile(ctx, s.UserID, ProfileUpdate{Name: &name, Bio: &bio})
	require.Equal(t, http.StatusOK, r.Status)
	p = r.Body.Data.(model.Profile)
	assert.Equal(t, "Alicia", p.Name)
	assert.Equal(t, "hello", p.Bio)
	assert.Empty(t, p.Avatar)

	short := "x"
	r = f.profiles.UpdateProfile(ctx, s.UserID, ProfileUpdate{Name: &short})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = f.profiles.GetPublic(ctx, s.UserID)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, "Alicia", r.Body.Data.(model.PublicProfile).Name)

	creds, err := f.store.FindCredentialsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, f.credentials.hasher.Verify("secret1", creds.PasswordHash), "profile edits keep the password")

	assert.Equal(t, http.StatusNotFound, f.profiles.GetPublic(ctx, "missing").Status)
	assert.Equal(t, http.StatusNotFound, f.profiles.UpdateProfile(ctx, "missing", ProfileUpdate{Bio: &bio}).Status)
}
