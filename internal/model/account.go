package model

import "time"

// Account represents a registered identity as stored in the `accounts`
// table. Handlers never serialize it directly; they render Summary,
// Profile or PublicProfile instead, so the secret columns carry `json:"-"`
// as a second line of defence.
//
// Fields:
//
//	ID              – opaque identifier assigned by the store on create.
//	Name            – display name, 2–50 characters after trimming.
//	Email           – normalized (trimmed, lower-case) unique address.
//	PasswordHash    – bcrypt hash; only populated by explicit credential reads.
//	IsActive        – deactivated accounts may not authenticate.
//	IsEmailVerified – gates login.
//	Verification    – outstanding email-verification ticket, nil when none.
//	Bio, Avatar     – free-form profile fields.
//	CreatedAt       – timestamp of creation.
//	UpdatedAt       – timestamp of last update.
type Account struct {
	ID              string              `json:"id"`              // accounts.id
	Name            string              `json:"name"`            // accounts.name
	Email           string              `json:"email"`           // accounts.email
	PasswordHash    string              `json:"-"`               // accounts.password_hash
	IsActive        bool                `json:"isActive"`        // accounts.is_active
	IsEmailVerified bool                `json:"isEmailVerified"` // accounts.is_email_verified
	Verification    *VerificationTicket `json:"-"`               // accounts.email_verification_{token,expires}
	Bio             string              `json:"bio"`             // accounts.bio
	Avatar          string              `json:"avatar"`          // accounts.avatar
	CreatedAt       time.Time           `json:"createdAt"`       // accounts.created_at
	UpdatedAt       time.Time           `json:"updatedAt"`       // accounts.updated_at
}

// VerificationTicket pairs an email-verification token with its expiry.
// The two columns are always written and cleared together, so an account
// either has a complete ticket or none at all.
type VerificationTicket struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the ticket is no longer usable at now.
// A ticket expiring exactly at now is treated as expired.
func (t VerificationTicket) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// NewAccount returns an account in its initial lifecycle state: active,
// unverified and carrying the given ticket.
func NewAccount(name, email, passwordHash string, ticket VerificationTicket) *Account {
	return &Account{
		Name:            NormalizeName(name),
		Email:           NormalizeEmail(email),
		PasswordHash:    passwordHash,
		IsActive:        true,
		IsEmailVerified: false,
		Verification:    &ticket,
	}
}

// MarkVerified moves the account to the verified state and drops the ticket.
func (a *Account) MarkVerified() {
	a.IsEmailVerified = true
	a.Verification = nil
}

// Reissue replaces any outstanding ticket, invalidating the previous token.
func (a *Account) Reissue(ticket VerificationTicket) {
	a.Verification = &ticket
}

// Summary is the minimal account view returned by the auth endpoints.
type Summary struct {
	UserID          string `json:"userId"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

// Summary projects the account onto its public auth view.
func (a *Account) Summary() Summary {
	return Summary{
		UserID:          a.ID,
		Name:            a.Name,
		Email:           a.Email,
		IsEmailVerified: a.IsEmailVerified,
	}
}

// Profile is the owner's view of their own account.
type Profile struct {
	ID              string    `json:"_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Bio             string    `json:"bio"`
	Avatar          string    `json:"avatar"`
	IsActive        bool      `json:"isActive"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (a *Account) Profile() Profile {
	return Profile{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Bio:             a.Bio,
		Avatar:          a.Avatar,
		IsActive:        a.IsActive,
		IsEmailVerified: a.IsEmailVerified,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// PublicProfile is what anyone may look up by id.
type PublicProfile struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a *Account) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Bio:       a.Bio,
		Avatar:    a.Avatar,
		CreatedAt: a.CreatedAt,
	}
}
