package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
)

const profileCacheTTL = 300 // seconds

// ProfileRepository stores user profiles keyed by uid, with an optional
// memcached lookaside for the frequent photoURL/username lookups the
// presentation layer makes while rendering messages.
type ProfileRepository struct {
	col *Collection[edustake.Profile]
	mc  *memcache.Client
}

func NewProfileRepository(store localstore.Store, mc *memcache.Client) *ProfileRepository {
	return &ProfileRepository{
		col: NewCollection(store, edustake.KeyUserProfiles,
			func(p edustake.Profile) string { return p.UID }),
		mc: mc,
	}
}

func (r *ProfileRepository) GetAll(ctx context.Context) []edustake.Profile {
	return r.col.GetAll(ctx)
}

func (r *ProfileRepository) FindByID(ctx context.Context, uid string) (edustake.Profile, bool) {

	if r.mc != nil {
		item, err := r.mc.Get(profileCacheKey(uid))
		if err == nil {
			var profile edustake.Profile
			if json.Unmarshal(item.Value, &profile) == nil {
				return profile, true
			}
		} else if !errors.Is(err, memcache.ErrCacheMiss) {
			slog.DebugContext(ctx, "Profile cache lookup failed",
				slog.String("uid", uid),
				slog.String("error", err.Error()),
				slog.String("module", "repository"),
			)
		}
	}

	profile, found := r.col.FindByID(ctx, uid)
	if found {
		r.cacheProfile(profile)
	}
	return profile, found
}

func (r *ProfileRepository) Upsert(ctx context.Context, profile edustake.Profile) error {
	if err := r.col.Upsert(ctx, profile); err != nil {
		return err
	}
	r.cacheProfile(profile)
	return nil
}

func (r *ProfileRepository) RemoveByID(ctx context.Context, uid string) error {
	if r.mc != nil {
		_ = r.mc.Delete(profileCacheKey(uid))
	}
	return r.col.RemoveByID(ctx, uid)
}

func (r *ProfileRepository) cacheProfile(profile edustake.Profile) {
	if r.mc == nil {
		return
	}
	encoded, err := json.Marshal(profile)
	if err != nil {
		return
	}
	_ = r.mc.Set(&memcache.Item{
		Key:        profileCacheKey(profile.UID),
		Value:      encoded,
		Expiration: profileCacheTTL,
	})
}

func profileCacheKey(uid string) string {
	return "edustake:profile:" + uid
}
