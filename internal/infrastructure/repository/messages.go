package repository

import (
	"context"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
)

// MessageRepository stores the current-channel message collection.
type MessageRepository struct {
	col *Collection[edustake.Message]
}

func NewMessageRepository(store localstore.Store) *MessageRepository {
	return &MessageRepository{
		col: NewCollection(store, edustake.KeyCurrentMessages,
			func(m edustake.Message) string { return m.ID }),
	}
}

func (r *MessageRepository) GetAll(ctx context.Context) []edustake.Message {
	return r.col.GetAll(ctx)
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (edustake.Message, bool) {
	return r.col.FindByID(ctx, id)
}

// Upsert assigns a generated id first when the message lacks one, so
// every persisted message participates in id-keyed merges.
func (r *MessageRepository) Upsert(ctx context.Context, msg edustake.Message) error {
	if msg.ID == "" {
		msg.ID = edustake.NewID(edustake.PrefixMessage)
	}
	return r.col.Upsert(ctx, msg)
}

func (r *MessageRepository) RemoveByID(ctx context.Context, id string) error {
	return r.col.RemoveByID(ctx, id)
}

func (r *MessageRepository) ByChannel(ctx context.Context, channelID string) []edustake.Message {
	var out []edustake.Message
	for _, msg := range r.col.GetAll(ctx) {
		if msg.ChannelID == channelID {
			out = append(out, msg)
		}
	}
	return out
}
