package usecase

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
	"github.com/edustake/edustake-core/schemas"
)

// AttachmentInput is one file attached to an outgoing message.
type AttachmentInput struct {
	Name string
	Type string
	Data []byte
}

// SendMessageInput is the validated input for sending a channel
// message.
type SendMessageInput struct {
	Text        string
	Username    string
	PhotoURL    string
	ChannelID   string
	Attachments []AttachmentInput
}

type MessageUsecase struct {
	repo   MessageRepository
	blobs  BlobUploader
	signal Publisher
}

func NewMessageUsecase(repo MessageRepository, blobs BlobUploader, signal Publisher) *MessageUsecase {
	if signal == nil {
		signal = NopPublisher{}
	}
	return &MessageUsecase{repo: repo, blobs: blobs, signal: signal}
}

// Send persists a new message. Attachments upload to the remote blob
// store when reachable and embed as data URIs otherwise.
func (uc *MessageUsecase) Send(ctx context.Context, input SendMessageInput) (edustake.Message, error) {
	if input.ChannelID == "" {
		return edustake.Message{}, domain.ValidationError{Reason: "channel id is required"}
	}
	if input.Text == "" && len(input.Attachments) == 0 {
		return edustake.Message{}, domain.ValidationError{Reason: "message is empty"}
	}

	msg := edustake.Message{
		ID:        edustake.NewID(edustake.PrefixMessage),
		Text:      input.Text,
		Username:  input.Username,
		PhotoURL:  input.PhotoURL,
		Timestamp: time.Now().UnixMilli(),
		ChannelID: input.ChannelID,
	}

	if len(input.Attachments) > 0 {
		msg.Attachments = map[string]edustake.Attachment{}
		for _, att := range input.Attachments {
			id := edustake.NewID(edustake.PrefixAttachment)
			msg.Attachments[id] = edustake.Attachment{
				Type: att.Type,
				Name: att.Name,
				Size: int64(len(att.Data)),
				URL:  uc.uploadOrEmbed(ctx, input.ChannelID, att),
			}
		}
	}

	if err := uc.repo.Upsert(ctx, msg); err != nil {
		return edustake.Message{}, err
	}
	uc.publish(ctx, "upsert", msg.ID)
	return msg, nil
}

func (uc *MessageUsecase) uploadOrEmbed(ctx context.Context, channelID string, att AttachmentInput) string {
	if uc.blobs != nil {
		url, err := uc.blobs.UploadBlob(ctx, schemas.MessageBlobPath(channelID, att.Name), att.Type, att.Data)
		if err == nil {
			return url
		}
		slog.WarnContext(ctx, "Attachment upload failed, embedding content locally",
			slog.String("name", att.Name),
			slog.String("error", err.Error()),
			slog.String("module", "messages"),
		)
	}
	return "data:" + att.Type + ";base64," + base64.StdEncoding.EncodeToString(att.Data)
}

func (uc *MessageUsecase) ByChannel(ctx context.Context, channelID string) []edustake.Message {
	return uc.repo.ByChannel(ctx, channelID)
}

// Remove deletes one message from the active collection (local UI
// removal). Mirrored copies survive until explicitly deleted there.
func (uc *MessageUsecase) Remove(ctx context.Context, id string) error {
	if err := uc.repo.RemoveByID(ctx, id); err != nil {
		return err
	}
	uc.publish(ctx, "remove", id)
	return nil
}

func (uc *MessageUsecase) publish(ctx context.Context, op, id string) {
	err := uc.signal.Publish(ctx, edustake.Event{
		Kind: domain.KindMessages.String(),
		Op:   op,
		ID:   id,
	})
	if err != nil {
		slog.DebugContext(ctx, "Event publish failed",
			slog.String("error", err.Error()),
			slog.String("module", "messages"),
		)
	}
}
