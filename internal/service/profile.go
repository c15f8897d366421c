package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iliyamo/user-service/internal/model"
	"github.com/iliyamo/user-service/internal/repository"
)

// ProfileUpdate carries the optional fields of a profile edit; nil leaves
// the stored value untouched.
type ProfileUpdate struct {
	Name   *string `json:"name"`
	Bio    *string `json:"bio"`
	Avatar *string `json:"avatar"`
}

// ProfileService exposes owner-only profile reads and edits plus the public
// lookup by id.
type ProfileService struct {
	Store AccountStore
	Log   *slog.Logger
	Debug bool
}

func (p *ProfileService) GetProfile(ctx context.Context, accountID string) Result {
	a, err := p.Store.FindByID(ctx, accountID)
	if err != nil {
		return mapError(ctx, p.Log, p.Debug, "Server error fetching profile", lookupErr(err))
	}
	return ok(http.StatusOK, "Profile fetched successfully", a.Profile())
}

func (p *ProfileService) UpdateProfile(ctx context.Context, accountID string, in ProfileUpdate) Result {
	var v model.ValidationErrors
	if in.Name != nil {
		v.CheckName(*in.Name)
	}
	if in.Bio != nil {
		v.CheckBio(*in.Bio)
	}
	if in.Avatar != nil {
		v.CheckAvatar(*in.Avatar)
	}
	if len(v) > 0 {
		return ValidationFailed(v)
	}

	a, err := p.Store.FindByID(ctx, accountID)
	if err != nil {
		return mapError(ctx, p.Log, p.Debug, "Server error updating profile", lookupErr(err))
	}
	if in.Name != nil {
		a.Name = model.NormalizeName(*in.Name)
	}
	if in.Bio != nil {
		a.Bio = *in.Bio
	}
	if in.Avatar != nil {
		a.Avatar = *in.Avatar
	}
	if err := p.Store.Save(ctx, a); err != nil {
		return mapError(ctx, p.Log, p.Debug, "Server error updating profile", lookupErr(err))
	}
	return ok(http.StatusOK, "Profile updated successfully", a.Profile())
}

func (p *ProfileService) GetPublic(ctx context.Context, accountID string) Result {
	a, err := p.Store.FindByID(ctx, accountID)
	if err != nil {
		return mapError(ctx, p.Log, p.Debug, "Server error fetching user", lookupErr(err))
	}
	return ok(http.StatusOK, "User fetched successfully", a.PublicProfile())
}

// lookupErr turns the store's not-found into the domain one.
func lookupErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
