package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
)

func readIDs(t *testing.T, store *localstore.MemStore, key string) []string {
	t.Helper()
	var items []map[string]any
	localstore.ReadJSON(context.Background(), store, key, &items)
	var ids []string
	for _, item := range items {
		id, _ := item["id"].(string)
		ids = append(ids, id)
	}
	return ids
}

func TestMirrorFreshSessionInheritsGlobal(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemStore()
	mirror := NewMirrorService(store, 0)

	// a previous session left r1 in the global mirror
	require.NoError(t, store.Write(ctx, edustake.KeyGlobalResources,
		[]map[string]any{{"id": "r1", "name": "notes.pdf"}}))

	require.NoError(t, mirror.MergeGlobalIntoActive(ctx, domain.KindResources))

	assert.Equal(t, []string{"r1"}, readIDs(t, store, edustake.KeyResources))
}

func TestMirrorExistingRecordWins(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemStore()
	mirror := NewMirrorService(store, 0)

	require.NoError(t, store.Write(ctx, edustake.KeyResources,
		[]map[string]any{{"id": "r1", "likes": float64(5)}}))
	require.NoError(t, store.Write(ctx, edustake.KeyGlobalResources,
		[]map[string]any{{"id": "r1", "likes": float64(0)}, {"id": "r2"}}))

	require.NoError(t, mirror.MergeGlobalIntoActive(ctx, domain.KindResources))

	var active []map[string]any
	localstore.ReadJSON(ctx, store, edustake.KeyResources, &active)
	require.Len(t, active, 2)
	assert.Equal(t, float64(5), active[0]["likes"], "active copy of r1 must survive the merge")
	assert.Equal(t, "r2", active[1]["id"])
}

func TestMirrorMergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemStore()
	mirror := NewMirrorService(store, 0)

	require.NoError(t, store.Write(ctx, edustake.KeySavedChats,
		[]map[string]any{{"id": "c1"}, {"id": "c2"}}))

	require.NoError(t, mirror.MergeActiveIntoGlobal(ctx, domain.KindSavedChats))
	after, ok := store.Raw(edustake.KeyGlobalChats)
	require.True(t, ok)

	// a second pass with nothing new must not rewrite the destination
	require.NoError(t, mirror.MergeActiveIntoGlobal(ctx, domain.KindSavedChats))
	again, ok := store.Raw(edustake.KeyGlobalChats)
	require.True(t, ok)
	assert.True(t, bytes.Equal(after, again), "repeat merge must be byte-stable")
}

func TestMirrorUnionNeverDuplicates(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemStore()
	mirror := NewMirrorService(store, 0)

	require.NoError(t, store.Write(ctx, edustake.KeyResources,
		[]map[string]any{{"id": "r1"}, {"id": "r2"}}))
	require.NoError(t, store.Write(ctx, edustake.KeyGlobalResources,
		[]map[string]any{{"id": "r2"}, {"id": "r3"}}))

	require.NoError(t, mirror.MergeActiveIntoGlobal(ctx, domain.KindResources))

	assert.ElementsMatch(t, []string{"r1", "r2", "r3"},
		readIDs(t, store, edustake.KeyGlobalResources))
}

func TestMirrorLogoutPreservesContributions(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemStore()
	mirror := NewMirrorService(store, 0)

	// session contributed c1 on top of the inherited c0
	require.NoError(t, store.Write(ctx, edustake.KeyGlobalChats,
		[]map[string]any{{"id": "c0"}}))
	require.NoError(t, mirror.MergeGlobalIntoActive(ctx, domain.KindSavedChats))

	var active []map[string]any
	localstore.ReadJSON(ctx, store, edustake.KeySavedChats, &active)
	active = append(active, map[string]any{"id": "c1"})
	require.NoError(t, store.Write(ctx, edustake.KeySavedChats, active))

	// logout-time pass
	require.NoError(t, mirror.MergeActiveIntoGlobal(ctx, domain.KindSavedChats))

	assert.ElementsMatch(t, []string{"c0", "c1"},
		readIDs(t, store, edustake.KeyGlobalChats))
}

func TestMirrorAssignsMessageIDsAndPersistsThem(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemStore()
	mirror := NewMirrorService(store, 0)

	require.NoError(t, store.Write(ctx, edustake.KeyCurrentMessages,
		[]map[string]any{{"text": "hello"}, {"id": "m1", "text": "typed"}}))

	require.NoError(t, mirror.MergeActiveIntoGlobal(ctx, domain.KindMessages))

	activeIDs := readIDs(t, store, edustake.KeyCurrentMessages)
	require.Len(t, activeIDs, 2)
	assert.NotEmpty(t, activeIDs[0], "assigned id must be written back to the source")

	// the next pass must see the same ids and add nothing
	globalBefore, _ := store.Raw(edustake.KeyGlobalMessages)
	require.NoError(t, mirror.MergeActiveIntoGlobal(ctx, domain.KindMessages))
	globalAfter, _ := store.Raw(edustake.KeyGlobalMessages)
	assert.True(t, bytes.Equal(globalBefore, globalAfter),
		"re-merging the same messages must not duplicate them")
}

func TestMirrorDropsIDLessNonMessageRecords(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemStore()
	mirror := NewMirrorService(store, 0)

	require.NoError(t, store.Write(ctx, edustake.KeyResources,
		[]map[string]any{{"name": "orphan"}, {"id": "r1"}}))

	require.NoError(t, mirror.MergeActiveIntoGlobal(ctx, domain.KindResources))

	assert.Equal(t, []string{"r1"}, readIDs(t, store, edustake.KeyGlobalResources))
}

func TestMirrorLegacyImport(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemStore()
	mirror := NewMirrorService(store, 0)

	require.NoError(t, store.Write(ctx, edustake.LegacyGlobalResources,
		[]map[string]any{{"id": "r1"}}))
	require.NoError(t, store.Write(ctx, edustake.KeyGlobalResources,
		[]map[string]any{{"id": "r2"}}))

	mirror.ImportAllLegacy(ctx)
	assert.ElementsMatch(t, []string{"r1", "r2"},
		readIDs(t, store, edustake.KeyGlobalResources))

	// legacy keys are read-only
	assert.Equal(t, []string{"r1"}, readIDs(t, store, edustake.LegacyGlobalResources))

	// importing again changes nothing
	before, _ := store.Raw(edustake.KeyGlobalResources)
	mirror.ImportAllLegacy(ctx)
	after, _ := store.Raw(edustake.KeyGlobalResources)
	assert.True(t, bytes.Equal(before, after))
}

func TestMirrorDisabledByPermanentStorageFlag(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemStore()
	mirror := NewMirrorService(store, 0)

	require.NoError(t, store.Write(ctx, edustake.KeyPermanentStorageEnabled, false))
	require.NoError(t, store.Write(ctx, edustake.KeySavedChats,
		[]map[string]any{{"id": "c1"}}))

	mirror.MergeAllActiveIntoGlobal(ctx)

	_, ok := store.Raw(edustake.KeyGlobalChats)
	assert.False(t, ok, "disabled mirror must not write")

	// absent flag means enabled
	require.NoError(t, store.Remove(ctx, edustake.KeyPermanentStorageEnabled))
	assert.True(t, mirror.Enabled(ctx))
}
