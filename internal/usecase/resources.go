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

// UploadResourceInput is the validated input for uploading a resource.
type UploadResourceInput struct {
	Name         string
	Type         string // MIME type
	Data         []byte
	CommunityID  string
	SubjectID    string
	UploaderID   string
	UploaderName string
}

type ResourceUsecase struct {
	repo   ResourceRepository
	blobs  BlobUploader
	signal Publisher
}

func NewResourceUsecase(repo ResourceRepository, blobs BlobUploader, signal Publisher) *ResourceUsecase {
	if signal == nil {
		signal = NopPublisher{}
	}
	return &ResourceUsecase{repo: repo, blobs: blobs, signal: signal}
}

// Upload stores a new resource. The file goes to the remote blob store
// when reachable; otherwise the content is embedded as a data URI so
// the record stays usable in local-only mode.
func (uc *ResourceUsecase) Upload(ctx context.Context, input UploadResourceInput) (edustake.Resource, error) {
	if input.UploaderID == "" {
		return edustake.Resource{}, domain.ValidationError{Reason: "uploader is required"}
	}
	if input.Name == "" {
		return edustake.Resource{}, domain.ValidationError{Reason: "resource name is required"}
	}

	res := edustake.Resource{
		ID:           edustake.NewID(edustake.PrefixResource),
		Name:         input.Name,
		Type:         input.Type,
		Size:         int64(len(input.Data)),
		CommunityID:  input.CommunityID,
		SubjectID:    input.SubjectID,
		UploaderID:   input.UploaderID,
		UploaderName: input.UploaderName,
		UploadedAt:   time.Now().UnixMilli(),
	}

	res.URL = uc.uploadOrEmbed(ctx, res, input.Data)

	if err := uc.repo.Upsert(ctx, res); err != nil {
		return edustake.Resource{}, err
	}
	uc.publish(ctx, "upsert", res.ID)
	return res, nil
}

func (uc *ResourceUsecase) uploadOrEmbed(ctx context.Context, res edustake.Resource, data []byte) string {
	if uc.blobs != nil {
		url, err := uc.blobs.UploadBlob(ctx, schemas.ResourceBlobPath(res.ID, res.Name), res.Type, data)
		if err == nil {
			return url
		}
		slog.WarnContext(ctx, "Blob upload failed, embedding content locally",
			slog.String("resource", res.ID),
			slog.String("error", err.Error()),
			slog.String("module", "resources"),
		)
	}
	return "data:" + res.Type + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (uc *ResourceUsecase) List(ctx context.Context) []edustake.Resource {
	return uc.repo.GetAll(ctx)
}

func (uc *ResourceUsecase) ByCommunity(ctx context.Context, communityID string) []edustake.Resource {
	return uc.repo.ByCommunity(ctx, communityID)
}

func (uc *ResourceUsecase) BySubject(ctx context.Context, subjectID string) []edustake.Resource {
	return uc.repo.BySubject(ctx, subjectID)
}

func (uc *ResourceUsecase) Get(ctx context.Context, id string) (edustake.Resource, error) {
	res, found := uc.repo.FindByID(ctx, id)
	if !found {
		return edustake.Resource{}, domain.NotFoundError{Resource: "resource"}
	}
	return res, nil
}

// Remove deletes a resource from the active collection. Only the
// uploader may delete; the global mirror keeps its copy until an
// explicit user-initiated deletion there.
func (uc *ResourceUsecase) Remove(ctx context.Context, id, requesterID string) error {
	res, found := uc.repo.FindByID(ctx, id)
	if !found {
		return domain.NotFoundError{Resource: "resource"}
	}
	if res.UploaderID != requesterID {
		return domain.ValidationError{Reason: "only the uploader can delete a resource"}
	}
	if err := uc.repo.RemoveByID(ctx, id); err != nil {
		return err
	}
	uc.publish(ctx, "remove", id)
	return nil
}

// Like increments the like counter once per user. A second like from
// the same user is a no-op because the marker already exists.
func (uc *ResourceUsecase) Like(ctx context.Context, id, userID string) (edustake.Resource, error) {
	if userID == "" {
		return edustake.Resource{}, domain.ValidationError{Reason: "sign in to like resources"}
	}
	res, found := uc.repo.FindByID(ctx, id)
	if !found {
		return edustake.Resource{}, domain.NotFoundError{Resource: "resource"}
	}

	if uc.repo.HasLike(ctx, id, userID) {
		return res, nil
	}

	marker := edustake.LikeMarker{
		ID:         edustake.LikeMarkerID(id, userID),
		ResourceID: id,
		UserID:     userID,
		LikedAt:    time.Now().UnixMilli(),
	}
	if err := uc.repo.AddLike(ctx, marker); err != nil {
		return res, err
	}

	res.Likes++
	if err := uc.repo.Upsert(ctx, res); err != nil {
		return res, err
	}
	uc.publish(ctx, "upsert", res.ID)
	return res, nil
}

// Unlike removes the user's like. A no-op when no marker exists, so
// the counter never goes below the true count.
func (uc *ResourceUsecase) Unlike(ctx context.Context, id, userID string) (edustake.Resource, error) {
	if userID == "" {
		return edustake.Resource{}, domain.ValidationError{Reason: "sign in to like resources"}
	}
	res, found := uc.repo.FindByID(ctx, id)
	if !found {
		return edustake.Resource{}, domain.NotFoundError{Resource: "resource"}
	}

	if !uc.repo.HasLike(ctx, id, userID) {
		return res, nil
	}

	if err := uc.repo.RemoveLike(ctx, id, userID); err != nil {
		return res, err
	}

	if res.Likes > 0 {
		res.Likes--
	}
	if err := uc.repo.Upsert(ctx, res); err != nil {
		return res, err
	}
	uc.publish(ctx, "upsert", res.ID)
	return res, nil
}

// IncrementViews bumps the view counter.
func (uc *ResourceUsecase) IncrementViews(ctx context.Context, id string) (edustake.Resource, error) {
	res, found := uc.repo.FindByID(ctx, id)
	if !found {
		return edustake.Resource{}, domain.NotFoundError{Resource: "resource"}
	}
	res.Views++
	if err := uc.repo.Upsert(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

func (uc *ResourceUsecase) publish(ctx context.Context, op, id string) {
	err := uc.signal.Publish(ctx, edustake.Event{
		Kind: domain.KindResources.String(),
		Op:   op,
		ID:   id,
	})
	if err != nil {
		slog.DebugContext(ctx, "Event publish failed",
			slog.String("error", err.Error()),
			slog.String("module", "resources"),
		)
	}
}
