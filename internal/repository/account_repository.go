package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/user-service/internal/model"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Default reads leave password_hash out; only credential lookups select it.
const (
	accountColumns = "id,name,email,is_active,is_email_verified," +
		"email_verification_token,email_verification_expires,bio,avatar,created_at,updated_at"
	credentialColumns = accountColumns + ",password_hash"
)

// AccountRepo persists accounts in the MySQL `accounts` table.
type AccountRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{DB: db, now: time.Now}
}

// Create inserts a new account, assigning its id and timestamps. A duplicate
// email yields ErrConflict.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	id := uuid.NewString()
	now := r.now().UTC().Truncate(time.Millisecond)
	token, expires := ticketColumns(a.Verification)

	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (id,name,email,password_hash,is_active,is_email_verified,"+
			"email_verification_token,email_verification_expires,bio,avatar,created_at,updated_at) "+
			"VALUES (?,?,?,?,?,?,?,?,?,?,?,?)",
		id, a.Name, a.Email, a.PasswordHash, a.IsActive, a.IsEmailVerified,
		token, expires, a.Bio, a.Avatar, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// FindByEmail fetches an account by normalized email without its password hash.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.queryOne(ctx, false, "email=?", model.NormalizeEmail(email))
}

// FindCredentialsByEmail is FindByEmail plus the password hash.
func (r *AccountRepo) FindCredentialsByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.queryOne(ctx, true, "email=?", model.NormalizeEmail(email))
}

// FindByID fetches an account by id.
func (r *AccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.queryOne(ctx, false, "id=?", id)
}

// FindByVerificationToken returns the account holding token. Expiry is not
// filtered here; callers decide what an expired ticket means.
func (r *AccountRepo) FindByVerificationToken(ctx context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return r.queryOne(ctx, false, "email_verification_token=?", token)
}

// Save writes the profile columns and the active flag. Verification state
// is left alone; it only moves through ReissueTicket and
// ConsumeVerificationToken.
func (r *AccountRepo) Save(ctx context.Context, a *model.Account) error {
	now := r.now().UTC().Truncate(time.Millisecond)

	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET name=?,bio=?,avatar=?,is_active=?,updated_at=? WHERE id=?",
		a.Name, a.Bio, a.Avatar, a.IsActive, now, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	a.UpdatedAt = now
	return nil
}

// ReissueTicket replaces the ticket of an account that is still unverified.
// The condition is checked by the UPDATE itself, so a verification that
// lands first wins and this call reports ErrAlreadyVerified.
func (r *AccountRepo) ReissueTicket(ctx context.Context, id string, t model.VerificationTicket) error {
	now := r.now().UTC().Truncate(time.Millisecond)
	token, expires := ticketColumns(&t)

	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET email_verification_token=?,email_verification_expires=?,updated_at=? "+
			"WHERE id=? AND is_email_verified=FALSE",
		token, expires, now, id)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("reissue ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reissue ticket: %w", err)
	}
	if n > 0 {
		return nil
	}
	// No row matched: either the id is gone or the account is verified.
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyVerified
}

// ConsumeVerificationToken marks the account holding token as verified and
// clears its ticket, provided the ticket is still valid at now. Unknown,
// expired and already consumed tokens all yield ErrNotFound. Of two
// concurrent calls with the same token at most one succeeds.
func (r *AccountRepo) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*model.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	a, err := r.queryOne(ctx, false, "email_verification_token=?", token)
	if err != nil {
		return nil, err
	}

	stamp := r.now().UTC().Truncate(time.Millisecond)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET is_email_verified=TRUE,email_verification_token=NULL,"+
			"email_verification_expires=NULL,updated_at=? "+
			"WHERE id=? AND email_verification_token=? AND email_verification_expires>?",
		stamp, a.ID, token, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("consume verification token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("consume verification token: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	a.MarkVerified()
	a.UpdatedAt = stamp
	return a, nil
}

func (r *AccountRepo) queryOne(ctx context.Context, withPassword bool, where string, arg any) (*model.Account, error) {
	cols := accountColumns
	if withPassword {
		cols = credentialColumns
	}
	var (
		a       model.Account
		token   sql.NullString
		expires sql.NullTime
	)
	dest := []any{&a.ID, &a.Name, &a.Email, &a.IsActive, &a.IsEmailVerified,
		&token, &expires, &a.Bio, &a.Avatar, &a.CreatedAt, &a.UpdatedAt}
	if withPassword {
		dest = append(dest, &a.PasswordHash)
	}
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+cols+" FROM accounts WHERE "+where+" LIMIT 1", arg).Scan(dest...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	if token.Valid && expires.Valid {
		a.Verification = &model.VerificationTicket{Token: token.String, ExpiresAt: expires.Time}
	}
	return &a, nil
}

func ticketColumns(t *model.VerificationTicket) (sql.NullString, sql.NullTime) {
	if t == nil {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: t.Token, Valid: true},
		sql.NullTime{Time: t.ExpiresAt.UTC(), Valid: true}
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
