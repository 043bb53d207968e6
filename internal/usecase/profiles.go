package usecase

import (
	"context"
	"time"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
)

// ProfilePatch carries the owner-editable profile fields. Nil fields
// stay unchanged.
type ProfilePatch struct {
	Username      *string
	PhotoURL      *string
	Bio           *string
	Theme         *string
	Notifications *bool
}

type ProfileUsecase struct {
	repo ProfileRepository
}

func NewProfileUsecase(repo ProfileRepository) *ProfileUsecase {
	return &ProfileUsecase{repo: repo}
}

func (uc *ProfileUsecase) Get(ctx context.Context, uid string) (edustake.Profile, error) {
	profile, found := uc.repo.FindByID(ctx, uid)
	if !found {
		return edustake.Profile{}, domain.NotFoundError{Resource: "profile"}
	}
	return profile, nil
}

// Update applies a patch to the requester's own profile. Only the
// owning user may update.
func (uc *ProfileUsecase) Update(ctx context.Context, uid, requesterID string, patch ProfilePatch) (edustake.Profile, error) {
	if requesterID == "" {
		return edustake.Profile{}, domain.ValidationError{Reason: "sign in to update your profile"}
	}
	if uid != requesterID {
		return edustake.Profile{}, domain.ValidationError{Reason: "profiles can only be updated by their owner"}
	}

	profile, found := uc.repo.FindByID(ctx, uid)
	if !found {
		return edustake.Profile{}, domain.NotFoundError{Resource: "profile"}
	}

	if patch.Username != nil {
		profile.Username = *patch.Username
	}
	if patch.PhotoURL != nil {
		profile.PhotoURL = *patch.PhotoURL
	}
	if patch.Bio != nil {
		profile.Bio = *patch.Bio
	}
	if patch.Theme != nil {
		profile.Settings.Theme = *patch.Theme
	}
	if patch.Notifications != nil {
		profile.Settings.Notifications = *patch.Notifications
	}
	profile.LastUpdated = time.Now().UnixMilli()

	if err := uc.repo.Upsert(ctx, profile); err != nil {
		return edustake.Profile{}, err
	}
	return profile, nil
}
