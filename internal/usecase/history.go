package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
)

// DefaultHistoryLimit is the local retention cap for search history.
const DefaultHistoryLimit = 10

type SearchHistoryUsecase struct {
	repo  SearchHistoryRepository
	limit int
}

func NewSearchHistoryUsecase(repo SearchHistoryRepository, limit int) *SearchHistoryUsecase {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &SearchHistoryUsecase{repo: repo, limit: limit}
}

// Record appends a search to the user's history. Queries dedup
// case-insensitively: re-searching an existing query moves it to the
// front instead of growing the list. The per-user list is capped at
// the retention limit, oldest entries dropped.
func (uc *SearchHistoryUsecase) Record(ctx context.Context, userID, query string, resultCount int) (edustake.SearchEntry, error) {
	if userID == "" {
		return edustake.SearchEntry{}, domain.ValidationError{Reason: "sign in to record searches"}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return edustake.SearchEntry{}, domain.ValidationError{Reason: "query is required"}
	}

	entry := edustake.SearchEntry{
		ID:          edustake.NewID(edustake.PrefixSearch),
		Query:       query,
		UserID:      userID,
		Timestamp:   time.Now().UnixMilli(),
		ResultCount: resultCount,
	}

	all := uc.repo.GetAll(ctx)
	folded := strings.ToLower(query)

	// Rebuild: the new entry first, then the user's other entries up to
	// the cap, then everyone else's untouched.
	next := []edustake.SearchEntry{entry}
	kept := 1
	for _, e := range all {
		if e.UserID != userID {
			continue
		}
		if strings.ToLower(e.Query) == folded {
			continue
		}
		if kept >= uc.limit {
			continue
		}
		next = append(next, e)
		kept++
	}
	for _, e := range all {
		if e.UserID != userID {
			next = append(next, e)
		}
	}

	if err := uc.repo.ReplaceAll(ctx, next); err != nil {
		return edustake.SearchEntry{}, err
	}
	return entry, nil
}

// List returns the user's history, most recent first.
func (uc *SearchHistoryUsecase) List(ctx context.Context, userID string) []edustake.SearchEntry {
	return uc.repo.ForUser(ctx, userID)
}

func (uc *SearchHistoryUsecase) Remove(ctx context.Context, id string) error {
	return uc.repo.RemoveByID(ctx, id)
}
