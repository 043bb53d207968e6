package usecase

import (
	"context"

	"github.com/edustake/edustake-core"
)

// ResourceRepository defines storage operations for resources, their
// secondary indexes, and like markers.
type ResourceRepository interface {
	GetAll(ctx context.Context) []edustake.Resource
	FindByID(ctx context.Context, id string) (edustake.Resource, bool)
	Upsert(ctx context.Context, res edustake.Resource) error
	RemoveByID(ctx context.Context, id string) error
	ByCommunity(ctx context.Context, communityID string) []edustake.Resource
	BySubject(ctx context.Context, subjectID string) []edustake.Resource
	HasLike(ctx context.Context, resourceID, userID string) bool
	AddLike(ctx context.Context, marker edustake.LikeMarker) error
	RemoveLike(ctx context.Context, resourceID, userID string) error
}

// SavedChatRepository defines storage operations for saved chats.
type SavedChatRepository interface {
	GetAll(ctx context.Context) []edustake.SavedChat
	FindByID(ctx context.Context, id string) (edustake.SavedChat, bool)
	FindByUserAndMessage(ctx context.Context, userID, messageID string) (edustake.SavedChat, bool)
	ForUser(ctx context.Context, userID string) []edustake.SavedChat
	Upsert(ctx context.Context, chat edustake.SavedChat) error
	RemoveByID(ctx context.Context, id string) error
}

// MessageRepository defines storage operations for channel messages.
type MessageRepository interface {
	GetAll(ctx context.Context) []edustake.Message
	FindByID(ctx context.Context, id string) (edustake.Message, bool)
	ByChannel(ctx context.Context, channelID string) []edustake.Message
	Upsert(ctx context.Context, msg edustake.Message) error
	RemoveByID(ctx context.Context, id string) error
}

// SearchHistoryRepository defines storage operations for search
// history.
type SearchHistoryRepository interface {
	GetAll(ctx context.Context) []edustake.SearchEntry
	ReplaceAll(ctx context.Context, entries []edustake.SearchEntry) error
	ForUser(ctx context.Context, userID string) []edustake.SearchEntry
	RemoveByID(ctx context.Context, id string) error
}

// ProfileRepository defines storage operations for user profiles.
type ProfileRepository interface {
	GetAll(ctx context.Context) []edustake.Profile
	FindByID(ctx context.Context, uid string) (edustake.Profile, bool)
	Upsert(ctx context.Context, profile edustake.Profile) error
	RemoveByID(ctx context.Context, uid string) error
}

// BlobUploader pushes file contents to the remote blob store.
type BlobUploader interface {
	UploadBlob(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// Publisher emits change events for the realtime feed. Resolved once
// at startup; NopPublisher stands in when no signal bus is configured.
type Publisher interface {
	Publish(ctx context.Context, event edustake.Event) error
}

// NopPublisher drops all events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, edustake.Event) error { return nil }
