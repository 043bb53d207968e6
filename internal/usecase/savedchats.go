package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
)

// SaveChatInput is the validated input for bookmarking a message.
type SaveChatInput struct {
	UserID  string
	Message edustake.Message
}

type SavedChatUsecase struct {
	repo   SavedChatRepository
	signal Publisher
}

func NewSavedChatUsecase(repo SavedChatRepository, signal Publisher) *SavedChatUsecase {
	if signal == nil {
		signal = NopPublisher{}
	}
	return &SavedChatUsecase{repo: repo, signal: signal}
}

// Save bookmarks a message. One saved chat per (userId, messageId)
// pair: re-saving updates the existing record in place instead of
// duplicating it.
func (uc *SavedChatUsecase) Save(ctx context.Context, input SaveChatInput) (edustake.SavedChat, error) {
	if input.UserID == "" {
		return edustake.SavedChat{}, domain.ValidationError{Reason: "sign in to save chats"}
	}
	if input.Message.ID == "" {
		return edustake.SavedChat{}, domain.ValidationError{Reason: "message id is required"}
	}

	chat := edustake.SavedChat{
		MessageID:         input.Message.ID,
		UserID:            input.UserID,
		Text:              input.Message.Text,
		OriginalUserID:    input.Message.Username,
		Username:          input.Message.Username,
		PhotoURL:          input.Message.PhotoURL,
		ChannelID:         input.Message.ChannelID,
		OriginalTimestamp: input.Message.Timestamp,
		SavedAt:           time.Now().UnixMilli(),
		Attachments:       input.Message.Attachments,
	}

	existing, found := uc.repo.FindByUserAndMessage(ctx, input.UserID, input.Message.ID)
	if found {
		chat.ID = existing.ID
	} else {
		chat.ID = edustake.NewID(edustake.PrefixSavedChat)
	}

	if err := uc.repo.Upsert(ctx, chat); err != nil {
		return edustake.SavedChat{}, err
	}
	uc.publish(ctx, "upsert", chat.ID)
	return chat, nil
}

func (uc *SavedChatUsecase) List(ctx context.Context, userID string) []edustake.SavedChat {
	return uc.repo.ForUser(ctx, userID)
}

// Remove deletes one bookmark from the active collection. Deletion is
// local-first; the global mirror reconciles on the next merge pass.
func (uc *SavedChatUsecase) Remove(ctx context.Context, id, requesterID string) error {
	chat, found := uc.repo.FindByID(ctx, id)
	if !found {
		return domain.NotFoundError{Resource: "saved chat"}
	}
	if chat.UserID != requesterID {
		return domain.ValidationError{Reason: "only the owner can remove a saved chat"}
	}
	if err := uc.repo.RemoveByID(ctx, id); err != nil {
		return err
	}
	uc.publish(ctx, "remove", id)
	return nil
}

func (uc *SavedChatUsecase) publish(ctx context.Context, op, id string) {
	err := uc.signal.Publish(ctx, edustake.Event{
		Kind: domain.KindSavedChats.String(),
		Op:   op,
		ID:   id,
	})
	if err != nil {
		slog.DebugContext(ctx, "Event publish failed",
			slog.String("error", err.Error()),
			slog.String("module", "savedchats"),
		)
	}
}
