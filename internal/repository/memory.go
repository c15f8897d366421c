package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/user-service/internal/model"
)

// MemoryAccountRepo is a process-local store with the same contract as
// AccountRepo: unique emails, unique verification tokens, and reads that
// omit the password hash unless asked for it. Records are copied in and
// out so callers never share state with the map.
type MemoryAccountRepo struct {
	mu       sync.RWMutex
	byID     map[string]*model.Account
	idxEmail map[string]string
	idxToken map[string]string
	now      func() time.Time
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{
		byID:     make(map[string]*model.Account),
		idxEmail: make(map[string]string),
		idxToken: make(map[string]string),
		now:      time.Now,
	}
}

func (r *MemoryAccountRepo) Create(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := model.NormalizeEmail(a.Email)
	if _, taken := r.idxEmail[email]; taken {
		return ErrConflict
	}
	if a.Verification != nil {
		if _, taken := r.idxToken[a.Verification.Token]; taken {
			return ErrConflict
		}
	}

	now := r.now().UTC()
	a.ID = uuid.NewString()
	a.Email = email
	a.CreatedAt = now
	a.UpdatedAt = now

	stored := clone(a, true)
	r.byID[a.ID] = stored
	r.idxEmail[email] = a.ID
	if stored.Verification != nil {
		r.idxToken[stored.Verification.Token] = a.ID
	}
	return nil
}

func (r *MemoryAccountRepo) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	return r.lookup(r.idxEmail, model.NormalizeEmail(email), false)
}

func (r *MemoryAccountRepo) FindCredentialsByEmail(_ context.Context, email string) (*model.Account, error) {
	return r.lookup(r.idxEmail, model.NormalizeEmail(email), true)
}

func (r *MemoryAccountRepo) FindByID(_ context.Context, id string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a, false), nil
}

func (r *MemoryAccountRepo) FindByVerificationToken(_ context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return r.lookup(r.idxToken, token, false)
}

// Save writes the profile fields and the active flag of an existing
// account. Verification state and the password hash are left untouched.
func (r *MemoryAccountRepo) Save(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[a.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = a.Name
	cur.Bio = a.Bio
	cur.Avatar = a.Avatar
	cur.IsActive = a.IsActive
	cur.UpdatedAt = r.now().UTC()
	a.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *MemoryAccountRepo) ReissueTicket(_ context.Context, id string, t model.VerificationTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if cur.IsEmailVerified {
		return ErrAlreadyVerified
	}
	if owner, taken := r.idxToken[t.Token]; taken && owner != id {
		return ErrConflict
	}

	if cur.Verification != nil {
		delete(r.idxToken, cur.Verification.Token)
	}
	cur.Verification = &t
	cur.UpdatedAt = r.now().UTC()
	r.idxToken[t.Token] = id
	return nil
}

func (r *MemoryAccountRepo) ConsumeVerificationToken(_ context.Context, token string, now time.Time) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.idxToken[token]
	if !ok || token == "" {
		return nil, ErrNotFound
	}
	cur := r.byID[id]
	if cur.Verification == nil || cur.Verification.Expired(now) {
		return nil, ErrNotFound
	}

	delete(r.idxToken, token)
	cur.MarkVerified()
	cur.UpdatedAt = r.now().UTC()
	return clone(cur, false), nil
}

func (r *MemoryAccountRepo) lookup(idx map[string]string, key string, withPassword bool) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := idx[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r.byID[id], withPassword), nil
}

func clone(a *model.Account, withPassword bool) *model.Account {
	c := *a
	if !withPassword {
		c.PasswordHash = ""
	}
	if a.Verification != nil {
		t := *a.Verification
		c.Verification = &t
	}
	return &c
}
