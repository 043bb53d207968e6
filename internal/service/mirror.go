package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
)

// DefaultMirrorInterval is how often the periodic active→global pass
// runs.
const DefaultMirrorInterval = 10 * time.Second

type mirrorBinding struct {
	activeKey  string
	globalKey  string
	legacyKeys []string
	// assignIDs marks kinds whose id-less records get a generated id
	// before merging. Other kinds drop id-less records.
	assignIDs bool
	idPrefix  string
}

// MirrorService keeps the session-independent global mirror of each
// mirrored collection in sync with the active collection, in both
// directions, by id-set-difference union. Merges only ever add records
// whose id is new to the destination; on an id collision the existing
// record wins.
type MirrorService struct {
	store    localstore.Store
	interval time.Duration
	bindings map[domain.Kind]mirrorBinding
}

func NewMirrorService(store localstore.Store, interval time.Duration) *MirrorService {
	if interval <= 0 {
		interval = DefaultMirrorInterval
	}
	return &MirrorService{
		store:    store,
		interval: interval,
		bindings: map[domain.Kind]mirrorBinding{
			domain.KindResources: {
				activeKey:  edustake.KeyResources,
				globalKey:  edustake.KeyGlobalResources,
				legacyKeys: []string{edustake.LegacyGlobalResources},
			},
			domain.KindSavedChats: {
				activeKey:  edustake.KeySavedChats,
				globalKey:  edustake.KeyGlobalChats,
				legacyKeys: []string{edustake.LegacyGlobalChats},
			},
			domain.KindMessages: {
				activeKey:  edustake.KeyCurrentMessages,
				globalKey:  edustake.KeyGlobalMessages,
				legacyKeys: []string{edustake.LegacyGlobalMessages},
				assignIDs:  true,
				idPrefix:   edustake.PrefixMessage,
			},
		},
	}
}

// Enabled reports the permanent-storage flag. Absent means enabled.
func (s *MirrorService) Enabled(ctx context.Context) bool {
	var enabled bool
	if !localstore.ReadJSON(ctx, s.store, edustake.KeyPermanentStorageEnabled, &enabled) {
		return true
	}
	return enabled
}

// MergeGlobalIntoActive folds everything the global mirror holds that
// the active collection lacks into the active collection. This is how
// a freshly signed-in session inherits prior contributions.
func (s *MirrorService) MergeGlobalIntoActive(ctx context.Context, kind domain.Kind) error {
	b, ok := s.bindings[kind]
	if !ok {
		return domain.ValidationError{Reason: "no mirror for kind " + kind.String()}
	}
	return s.merge(ctx, kind, b, b.globalKey, b.activeKey)
}

// MergeActiveIntoGlobal is the symmetric pass, run periodically and
// unconditionally before logout.
func (s *MirrorService) MergeActiveIntoGlobal(ctx context.Context, kind domain.Kind) error {
	b, ok := s.bindings[kind]
	if !ok {
		return domain.ValidationError{Reason: "no mirror for kind " + kind.String()}
	}
	return s.merge(ctx, kind, b, b.activeKey, b.globalKey)
}

// ImportLegacyIntoGlobal folds the pre-unification mirror keys into the
// unified global mirror. Merging is idempotent, so this runs on every
// startup; the legacy keys are read but never written.
func (s *MirrorService) ImportLegacyIntoGlobal(ctx context.Context, kind domain.Kind) error {
	b, ok := s.bindings[kind]
	if !ok {
		return domain.ValidationError{Reason: "no mirror for kind " + kind.String()}
	}
	for _, legacy := range b.legacyKeys {
		if err := s.merge(ctx, kind, b, legacy, b.globalKey); err != nil {
			return err
		}
	}
	return nil
}

// MergeAllGlobalIntoActive runs the global→active pass for every
// mirrored kind. A failure on one kind never blocks the others.
func (s *MirrorService) MergeAllGlobalIntoActive(ctx context.Context) {
	s.forEachKind(ctx, "global->active", s.MergeGlobalIntoActive)
}

// MergeAllActiveIntoGlobal runs the active→global pass for every
// mirrored kind.
func (s *MirrorService) MergeAllActiveIntoGlobal(ctx context.Context) {
	s.forEachKind(ctx, "active->global", s.MergeActiveIntoGlobal)
}

// ImportAllLegacy runs the legacy import for every mirrored kind.
func (s *MirrorService) ImportAllLegacy(ctx context.Context) {
	s.forEachKind(ctx, "legacy import", s.ImportLegacyIntoGlobal)
}

func (s *MirrorService) forEachKind(ctx context.Context, pass string, fn func(context.Context, domain.Kind) error) {
	if !s.Enabled(ctx) {
		return
	}
	for kind := range s.bindings {
		if err := fn(ctx, kind); err != nil {
			slog.WarnContext(ctx, "Merge pass failed",
				slog.String("pass", pass),
				slog.String("kind", kind.String()),
				slog.String("error", err.Error()),
				slog.String("module", "mirror"),
			)
		}
	}
}

// Run executes the periodic active→global pass until ctx is done.
func (s *MirrorService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.MergeAllActiveIntoGlobal(ctx)
		}
	}
}

func (s *MirrorService) merge(ctx context.Context, kind domain.Kind, b mirrorBinding, srcKey, dstKey string) error {

	src := s.readCollection(ctx, srcKey)
	if len(src) == 0 {
		return nil
	}

	src, changed := s.normalize(ctx, kind, b, src)
	if changed && srcKey != dstKey {
		// Persist assigned ids so the next pass sees the same records
		// instead of re-adding them under fresh ids.
		if err := s.store.Write(ctx, srcKey, src); err != nil {
			return err
		}
	}

	dst := s.readCollection(ctx, dstKey)
	merged, added := mergeRecords(dst, src)
	if added == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Merged new records",
		slog.String("kind", kind.String()),
		slog.String("from", srcKey),
		slog.String("to", dstKey),
		slog.Int("added", added),
		slog.String("module", "mirror"),
	)
	return s.store.Write(ctx, dstKey, merged)
}

func (s *MirrorService) readCollection(ctx context.Context, key string) []map[string]any {
	var items []map[string]any
	localstore.ReadJSON(ctx, s.store, key, &items)
	return items
}

// normalize ensures the id-set-difference check is well-defined:
// id-less records either get a generated id (messages) or are dropped.
func (s *MirrorService) normalize(ctx context.Context, kind domain.Kind, b mirrorBinding, items []map[string]any) ([]map[string]any, bool) {
	changed := false
	kept := items[:0]
	for _, item := range items {
		if recordID(item) == "" {
			if !b.assignIDs {
				slog.WarnContext(ctx, "Dropping record without id",
					slog.String("kind", kind.String()),
					slog.String("module", "mirror"),
				)
				changed = true
				continue
			}
			item["id"] = edustake.NewID(b.idPrefix)
			changed = true
		}
		kept = append(kept, item)
	}
	return kept, changed
}

// mergeRecords unions src into dst keyed by id. Records already present
// in dst are never overwritten.
func mergeRecords(dst, src []map[string]any) ([]map[string]any, int) {
	seen := make(map[string]struct{}, len(dst))
	for _, item := range dst {
		if id := recordID(item); id != "" {
			seen[id] = struct{}{}
		}
	}

	added := 0
	for _, item := range src {
		id := recordID(item)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		dst = append(dst, item)
		seen[id] = struct{}{}
		added++
	}
	return dst, added
}

func recordID(item map[string]any) string {
	id, _ := item["id"].(string)
	return id
}
