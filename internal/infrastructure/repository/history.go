package repository

import (
	"context"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
)

// SearchHistoryRepository stores search-history entries for all users
// of this profile, most recent first per user.
type SearchHistoryRepository struct {
	col *Collection[edustake.SearchEntry]
}

func NewSearchHistoryRepository(store localstore.Store) *SearchHistoryRepository {
	return &SearchHistoryRepository{
		col: NewCollection(store, edustake.KeySearchHistory,
			func(e edustake.SearchEntry) string { return e.ID }),
	}
}

func (r *SearchHistoryRepository) GetAll(ctx context.Context) []edustake.SearchEntry {
	return r.col.GetAll(ctx)
}

func (r *SearchHistoryRepository) ReplaceAll(ctx context.Context, entries []edustake.SearchEntry) error {
	return r.col.ReplaceAll(ctx, entries)
}

func (r *SearchHistoryRepository) Upsert(ctx context.Context, entry edustake.SearchEntry) error {
	return r.col.Upsert(ctx, entry)
}

func (r *SearchHistoryRepository) RemoveByID(ctx context.Context, id string) error {
	return r.col.RemoveByID(ctx, id)
}

func (r *SearchHistoryRepository) ForUser(ctx context.Context, userID string) []edustake.SearchEntry {
	var out []edustake.SearchEntry
	for _, entry := range r.col.GetAll(ctx) {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out
}
