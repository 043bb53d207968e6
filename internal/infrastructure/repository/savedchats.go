package repository

import (
	"context"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
)

// SavedChatRepository stores the active saved-chat collection.
type SavedChatRepository struct {
	col *Collection[edustake.SavedChat]
}

func NewSavedChatRepository(store localstore.Store) *SavedChatRepository {
	return &SavedChatRepository{
		col: NewCollection(store, edustake.KeySavedChats,
			func(s edustake.SavedChat) string { return s.ID }),
	}
}

func (r *SavedChatRepository) GetAll(ctx context.Context) []edustake.SavedChat {
	return r.col.GetAll(ctx)
}

func (r *SavedChatRepository) FindByID(ctx context.Context, id string) (edustake.SavedChat, bool) {
	return r.col.FindByID(ctx, id)
}

func (r *SavedChatRepository) Upsert(ctx context.Context, chat edustake.SavedChat) error {
	return r.col.Upsert(ctx, chat)
}

func (r *SavedChatRepository) RemoveByID(ctx context.Context, id string) error {
	return r.col.RemoveByID(ctx, id)
}

// ForUser filters the collection down to one user's bookmarks.
func (r *SavedChatRepository) ForUser(ctx context.Context, userID string) []edustake.SavedChat {
	var out []edustake.SavedChat
	for _, chat := range r.col.GetAll(ctx) {
		if chat.UserID == userID {
			out = append(out, chat)
		}
	}
	return out
}

// FindByUserAndMessage locates an existing bookmark for the
// (userId, messageId) pair, the dedup key for re-saves.
func (r *SavedChatRepository) FindByUserAndMessage(ctx context.Context, userID, messageID string) (edustake.SavedChat, bool) {
	for _, chat := range r.col.GetAll(ctx) {
		if chat.UserID == userID && chat.MessageID == messageID {
			return chat, true
		}
	}
	return edustake.SavedChat{}, false
}
