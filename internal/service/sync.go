package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
	"github.com/edustake/edustake-core/internal/usecase"
	"github.com/edustake/edustake-core/schemas"
)

// RemoteStore is the document store contract the sync adapter consumes.
type RemoteStore interface {
	Query(ctx context.Context, collection, field, value, orderBy string, limit int, out any) error
	GetDocument(ctx context.Context, collection, id string, out any) error
	SetDocument(ctx context.Context, collection, id string, doc any) error
}

// SyncService pushes and pulls entity collections to and from the
// remote document store, scoped by the authenticated uid. All remote
// operations are best-effort: the local store stays authoritative and
// remote records are only ever added locally, never used to delete.
type SyncService struct {
	remote       RemoteStore
	store        localstore.Store
	resources    usecase.ResourceRepository
	chats        usecase.SavedChatRepository
	messages     usecase.MessageRepository
	history      usecase.SearchHistoryRepository
	profiles     usecase.ProfileRepository
	historyLimit int
}

func NewSyncService(
	remote RemoteStore,
	store localstore.Store,
	resources usecase.ResourceRepository,
	chats usecase.SavedChatRepository,
	messages usecase.MessageRepository,
	history usecase.SearchHistoryRepository,
	profiles usecase.ProfileRepository,
	historyLimit int,
) *SyncService {
	if historyLimit <= 0 {
		historyLimit = usecase.DefaultHistoryLimit
	}
	return &SyncService{
		remote:       remote,
		store:        store,
		resources:    resources,
		chats:        chats,
		messages:     messages,
		history:      history,
		profiles:     profiles,
		historyLimit: historyLimit,
	}
}

// --- pull ---

// PullResources queries the remote resource collection. Resources are
// globally readable, so the query is not uid-scoped. Nil on any remote
// error; a successful pull of an empty collection is non-nil.
func (s *SyncService) PullResources(ctx context.Context) []edustake.Resource {
	out := []edustake.Resource{}
	err := s.remote.Query(ctx, schemas.CollectionResources, "", "", "uploadedAt", 0, &out)
	if err != nil {
		s.logPullFailure(ctx, domain.KindResources, err)
		return nil
	}
	return out
}

func (s *SyncService) PullSavedChats(ctx context.Context, uid string) []edustake.SavedChat {
	if uid == "" {
		return nil
	}
	out := []edustake.SavedChat{}
	err := s.remote.Query(ctx, schemas.CollectionSavedChats, "userId", uid, "savedAt", 0, &out)
	if err != nil {
		s.logPullFailure(ctx, domain.KindSavedChats, err)
		return nil
	}
	return out
}

func (s *SyncService) PullSearchHistory(ctx context.Context, uid string) []edustake.SearchEntry {
	if uid == "" {
		return nil
	}
	out := []edustake.SearchEntry{}
	err := s.remote.Query(ctx, schemas.CollectionSearchHistory, "userId", uid, "timestamp", s.historyLimit, &out)
	if err != nil {
		s.logPullFailure(ctx, domain.KindSearchHistory, err)
		return nil
	}
	return out
}

func (s *SyncService) PullMessages(ctx context.Context, channelID string) []edustake.Message {
	out := []edustake.Message{}
	err := s.remote.Query(ctx, schemas.CollectionMessages, "channelId", channelID, "timestamp", 0, &out)
	if err != nil {
		s.logPullFailure(ctx, domain.KindMessages, err)
		return nil
	}
	return out
}

func (s *SyncService) PullProfile(ctx context.Context, uid string) (edustake.Profile, bool) {
	if uid == "" {
		return edustake.Profile{}, false
	}
	var out edustake.Profile
	err := s.remote.GetDocument(ctx, schemas.CollectionUserProfiles, uid, &out)
	if err != nil {
		s.logPullFailure(ctx, domain.KindProfiles, err)
		return edustake.Profile{}, false
	}
	return out, true
}

// --- sync down ---

// SyncDown pulls every kind and upserts remote records that are absent
// locally. Local records absent remotely are kept: remote is
// additive-only from the local perspective. Kinds fail independently;
// the first error is reported after all kinds ran.
func (s *SyncService) SyncDown(ctx context.Context, uid string) error {
	ctx, span := tracer.Start(ctx, "Sync.Service.SyncDown")
	defer span.End()

	if uid == "" {
		return domain.ErrNotAuthenticated
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
			span.RecordError(err)
		}
	}

	record(s.syncResources(ctx))
	record(s.syncSavedChats(ctx, uid))
	record(s.syncSearchHistory(ctx, uid))
	record(s.syncProfile(ctx, uid))

	return firstErr
}

func (s *SyncService) syncResources(ctx context.Context) error {
	remote := s.PullResources(ctx)
	if remote == nil {
		return errors.Wrap(domain.ErrRemoteUnavailable, "resources pull failed")
	}
	for _, res := range remote {
		if res.ID == "" {
			continue
		}
		if _, found := s.resources.FindByID(ctx, res.ID); found {
			continue
		}
		if err := s.resources.Upsert(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) syncSavedChats(ctx context.Context, uid string) error {
	remote := s.PullSavedChats(ctx, uid)
	if remote == nil {
		return errors.Wrap(domain.ErrRemoteUnavailable, "saved chats pull failed")
	}
	for _, chat := range remote {
		if chat.ID == "" {
			continue
		}
		if _, found := s.chats.FindByID(ctx, chat.ID); found {
			continue
		}
		if err := s.chats.Upsert(ctx, chat); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) syncSearchHistory(ctx context.Context, uid string) error {
	remote := s.PullSearchHistory(ctx, uid)
	if remote == nil {
		return errors.Wrap(domain.ErrRemoteUnavailable, "search history pull failed")
	}
	local := s.history.GetAll(ctx)
	known := make(map[string]struct{}, len(local))
	for _, e := range local {
		known[e.ID] = struct{}{}
	}
	added := false
	for _, e := range remote {
		if e.ID == "" {
			continue
		}
		if _, found := known[e.ID]; found {
			continue
		}
		local = append(local, e)
		known[e.ID] = struct{}{}
		added = true
	}
	if !added {
		return nil
	}
	return s.history.ReplaceAll(ctx, local)
}

func (s *SyncService) syncProfile(ctx context.Context, uid string) error {
	profile, ok := s.PullProfile(ctx, uid)
	if !ok {
		return errors.Wrap(domain.ErrRemoteUnavailable, "profile pull failed")
	}
	if _, found := s.profiles.FindByID(ctx, profile.UID); found {
		return nil
	}
	return s.profiles.Upsert(ctx, profile)
}

// SyncChannelIntoLocal merges remote messages for one channel into the
// local collection, additive-only.
func (s *SyncService) SyncChannelIntoLocal(ctx context.Context, channelID string) error {
	remote := s.PullMessages(ctx, channelID)
	if remote == nil {
		return errors.Wrap(domain.ErrRemoteUnavailable, "messages pull failed")
	}
	for _, msg := range remote {
		if msg.ID == "" {
			continue
		}
		if _, found := s.messages.FindByID(ctx, msg.ID); found {
			continue
		}
		if err := s.messages.Upsert(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// --- push ---

// Push creates or updates one record remotely. Callers proceed as if
// the local copy is authoritative when it fails.
func (s *SyncService) Push(ctx context.Context, collection, id string, record any, uid string) error {
	if uid == "" {
		return domain.ErrNotAuthenticated
	}
	err := s.remote.SetDocument(ctx, collection, id, record)
	if err != nil {
		return errors.Wrap(err, "failed to push "+collection+"/"+id)
	}
	return nil
}

type pushRecord struct {
	id     string
	record any
}

// PushUnsynced pushes every record whose content hash differs from the
// last successfully pushed version, then advances the sync bookkeeping.
// Returns how many records were pushed.
func (s *SyncService) PushUnsynced(ctx context.Context, uid string) (int, error) {
	ctx, span := tracer.Start(ctx, "Sync.Service.PushUnsynced")
	defer span.End()

	if uid == "" {
		return 0, domain.ErrNotAuthenticated
	}

	ledger := map[string]map[string]string{}
	localstore.ReadJSON(ctx, s.store, edustake.KeySyncHashes, &ledger)

	pushed := 0
	var firstErr error

	push := func(kind domain.Kind, collection string, records []pushRecord) {
		if ledger[kind.String()] == nil {
			ledger[kind.String()] = map[string]string{}
		}
		for _, rec := range records {
			hash := edustake.HashRecord(rec.record)
			if hash != "" && ledger[kind.String()][rec.id] == hash {
				continue
			}
			if err := s.Push(ctx, collection, rec.id, rec.record, uid); err != nil {
				slog.WarnContext(ctx, "Push failed, keeping record for next pass",
					slog.String("kind", kind.String()),
					slog.String("id", rec.id),
					slog.String("error", err.Error()),
					slog.String("module", "sync"),
				)
				if firstErr == nil {
					firstErr = err
					span.RecordError(err)
				}
				continue
			}
			ledger[kind.String()][rec.id] = hash
			pushed++
		}
	}

	var resourceRecs []pushRecord
	for _, res := range s.resources.GetAll(ctx) {
		resourceRecs = append(resourceRecs, pushRecord{id: res.ID, record: res})
	}
	push(domain.KindResources, schemas.CollectionResources, resourceRecs)

	var chatRecs []pushRecord
	for _, chat := range s.chats.ForUser(ctx, uid) {
		chatRecs = append(chatRecs, pushRecord{id: chat.ID, record: chat})
	}
	push(domain.KindSavedChats, schemas.CollectionSavedChats, chatRecs)

	var historyRecs []pushRecord
	for _, entry := range s.history.ForUser(ctx, uid) {
		historyRecs = append(historyRecs, pushRecord{id: entry.ID, record: entry})
	}
	push(domain.KindSearchHistory, schemas.CollectionSearchHistory, historyRecs)

	var messageRecs []pushRecord
	for _, msg := range s.messages.GetAll(ctx) {
		messageRecs = append(messageRecs, pushRecord{id: msg.ID, record: msg})
	}
	push(domain.KindMessages, schemas.CollectionMessages, messageRecs)

	if profile, found := s.profiles.FindByID(ctx, uid); found {
		push(domain.KindProfiles, schemas.CollectionUserProfiles,
			[]pushRecord{{id: profile.UID, record: profile}})
	}

	if err := s.store.Write(ctx, edustake.KeySyncHashes, ledger); err != nil {
		slog.WarnContext(ctx, "Sync ledger write failed",
			slog.String("error", err.Error()),
			slog.String("module", "sync"),
		)
	}
	if err := s.store.Write(ctx, edustake.KeyLastSyncTimestamp, time.Now().UnixMilli()); err != nil {
		slog.WarnContext(ctx, "Sync timestamp write failed",
			slog.String("error", err.Error()),
			slog.String("module", "sync"),
		)
	}

	return pushed, firstErr
}

func (s *SyncService) logPullFailure(ctx context.Context, kind domain.Kind, err error) {
	slog.WarnContext(ctx, "Pull failed, continuing with local data",
		slog.String("kind", kind.String()),
		slog.String("error", err.Error()),
		slog.String("module", "sync"),
	)
}
