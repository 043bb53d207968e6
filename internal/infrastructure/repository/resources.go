package repository

import (
	"context"
	"log/slog"
	"slices"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
)

// ResourceRepository stores the active resource collection along with
// its by-community/by-subject id indexes and the like markers guarding
// like idempotence.
type ResourceRepository struct {
	store localstore.Store
	col   *Collection[edustake.Resource]
	likes *Collection[edustake.LikeMarker]
}

func NewResourceRepository(store localstore.Store) *ResourceRepository {
	return &ResourceRepository{
		store: store,
		col: NewCollection(store, edustake.KeyResources,
			func(r edustake.Resource) string { return r.ID }),
		likes: NewCollection(store, edustake.KeyResourceLikes,
			func(m edustake.LikeMarker) string { return m.ID }),
	}
}

func (r *ResourceRepository) GetAll(ctx context.Context) []edustake.Resource {
	return r.col.GetAll(ctx)
}

func (r *ResourceRepository) FindByID(ctx context.Context, id string) (edustake.Resource, bool) {
	return r.col.FindByID(ctx, id)
}

func (r *ResourceRepository) Upsert(ctx context.Context, res edustake.Resource) error {
	if err := r.col.Upsert(ctx, res); err != nil {
		return err
	}
	r.indexAdd(ctx, edustake.KeyResourcesByCommunity, res.CommunityID, res.ID)
	r.indexAdd(ctx, edustake.KeyResourcesBySubject, res.SubjectID, res.ID)
	return nil
}

func (r *ResourceRepository) RemoveByID(ctx context.Context, id string) error {
	res, found := r.col.FindByID(ctx, id)
	if err := r.col.RemoveByID(ctx, id); err != nil {
		return err
	}
	if found {
		r.indexRemove(ctx, edustake.KeyResourcesByCommunity, res.CommunityID, id)
		r.indexRemove(ctx, edustake.KeyResourcesBySubject, res.SubjectID, id)
	}
	return nil
}

// ByCommunity resolves the community index against the active
// collection. Ids pointing at records no longer present are skipped.
func (r *ResourceRepository) ByCommunity(ctx context.Context, communityID string) []edustake.Resource {
	return r.byIndex(ctx, edustake.KeyResourcesByCommunity, communityID)
}

func (r *ResourceRepository) BySubject(ctx context.Context, subjectID string) []edustake.Resource {
	return r.byIndex(ctx, edustake.KeyResourcesBySubject, subjectID)
}

func (r *ResourceRepository) HasLike(ctx context.Context, resourceID, userID string) bool {
	_, found := r.likes.FindByID(ctx, edustake.LikeMarkerID(resourceID, userID))
	return found
}

func (r *ResourceRepository) AddLike(ctx context.Context, marker edustake.LikeMarker) error {
	return r.likes.Upsert(ctx, marker)
}

func (r *ResourceRepository) RemoveLike(ctx context.Context, resourceID, userID string) error {
	return r.likes.RemoveByID(ctx, edustake.LikeMarkerID(resourceID, userID))
}

func (r *ResourceRepository) byIndex(ctx context.Context, indexKey, bucket string) []edustake.Resource {
	index := r.readIndex(ctx, indexKey)
	ids := index[bucket]
	if len(ids) == 0 {
		return nil
	}

	byID := map[string]edustake.Resource{}
	for _, res := range r.col.GetAll(ctx) {
		byID[res.ID] = res
	}

	out := make([]edustake.Resource, 0, len(ids))
	for _, id := range ids {
		if res, ok := byID[id]; ok {
			out = append(out, res)
		}
	}
	return out
}

func (r *ResourceRepository) readIndex(ctx context.Context, key string) map[string][]string {
	index := map[string][]string{}
	localstore.ReadJSON(ctx, r.store, key, &index)
	return index
}

func (r *ResourceRepository) indexAdd(ctx context.Context, key, bucket, id string) {
	if bucket == "" {
		return
	}
	index := r.readIndex(ctx, key)
	if slices.Contains(index[bucket], id) {
		return
	}
	index[bucket] = append(index[bucket], id)
	r.writeIndex(ctx, key, index)
}

func (r *ResourceRepository) indexRemove(ctx context.Context, key, bucket, id string) {
	if bucket == "" {
		return
	}
	index := r.readIndex(ctx, key)
	before := len(index[bucket])
	index[bucket] = slices.DeleteFunc(index[bucket], func(s string) bool { return s == id })
	if len(index[bucket]) == before {
		return
	}
	if len(index[bucket]) == 0 {
		delete(index, bucket)
	}
	r.writeIndex(ctx, key, index)
}

func (r *ResourceRepository) writeIndex(ctx context.Context, key string, index map[string][]string) {
	if err := r.store.Write(ctx, key, index); err != nil {
		slog.WarnContext(ctx, "Index write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
			slog.String("module", "repository"),
		)
	}
}
