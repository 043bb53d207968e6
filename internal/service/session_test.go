package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
	"github.com/edustake/edustake-core/internal/infrastructure/repository"
	"github.com/edustake/edustake-core/schemas"
)

type sessionFixture struct {
	session    *SessionService
	remoteAuth *mockRemoteAuth
	remote     *mockRemote
	store      *localstore.MemStore
	chats      *repository.SavedChatRepository
}

func newSessionFixture() *sessionFixture {
	remoteAuth := &mockRemoteAuth{
		identity: edustake.Identity{UID: "user_a", Email: "a@example.com", Username: "alice"},
	}
	remote := newMockRemote()
	store := localstore.NewMemStore()

	resources := repository.NewResourceRepository(store)
	chats := repository.NewSavedChatRepository(store)
	messages := repository.NewMessageRepository(store)
	history := repository.NewSearchHistoryRepository(store)
	profiles := repository.NewProfileRepository(store, nil)

	auth := NewAuthService(remoteAuth, store, profiles)
	sync := NewSyncService(remote, store, resources, chats, messages, history, profiles, 10)
	mirror := NewMirrorService(store, 0)

	return &sessionFixture{
		session:    NewSessionService(auth, sync, mirror, 0),
		remoteAuth: remoteAuth,
		remote:     remote,
		store:      store,
		chats:      chats,
	}
}

func TestSessionSignInReachesIdle(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.remote.getDocs[schemas.CollectionUserProfiles + "/user_a"] = edustake.Profile{UID: "user_a"}

	result, err := f.session.SignIn(ctx, "a@example.com", "secret")
	require.NoError(t, err)
	assert.Empty(t, result.Warning)
	assert.Equal(t, domain.StateIdle, f.session.State())

	identity, ok := f.session.Identity()
	require.True(t, ok)
	assert.Equal(t, "user_a", identity.UID)
}

func TestSessionSignInDegradesToLocalOnly(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	// remote auth works but the document store is down
	f.remote.failAll = true

	result, err := f.session.SignIn(ctx, "a@example.com", "secret")
	require.NoError(t, err, "a failed sync must not block sign-in")
	assert.NotEmpty(t, result.Warning)
	assert.Equal(t, domain.StateIdle, f.session.State())
}

func TestSessionFailedSignInReturnsToSignedOut(t *testing.T) {
	f := newSessionFixture()
	f.remoteAuth.failAuth = true

	_, err := f.session.SignIn(context.Background(), "a@example.com", "secret")
	assert.Error(t, err)
	assert.Equal(t, domain.StateSignedOut, f.session.State())

	_, ok := f.session.Identity()
	assert.False(t, ok)
}

func TestSessionSignInInheritsGlobalMirror(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	// a previous session left a bookmark in the global mirror
	require.NoError(t, f.store.Write(ctx, edustake.KeyGlobalChats,
		[]map[string]any{{"id": "saved_1", "userId": "user_a"}}))
	f.remote.getDocs[schemas.CollectionUserProfiles + "/user_a"] = edustake.Profile{UID: "user_a"}

	_, err := f.session.SignIn(ctx, "a@example.com", "secret")
	require.NoError(t, err)

	_, found := f.chats.FindByID(ctx, "saved_1")
	assert.True(t, found, "fresh session must inherit the global mirror")
}

func TestSessionSignOutPreservesLocalData(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.remote.getDocs[schemas.CollectionUserProfiles + "/user_a"] = edustake.Profile{UID: "user_a"}
	result, err := f.session.SignIn(ctx, "a@example.com", "secret")
	require.NoError(t, err)

	// contribution made during the session
	require.NoError(t, f.chats.Upsert(ctx, edustake.SavedChat{ID: "saved_1", UserID: "user_a"}))

	require.NoError(t, f.session.SignOut(ctx, result.Token))
	assert.Equal(t, domain.StateSignedOut, f.session.State())

	var mirrored []map[string]any
	require.True(t, localstore.ReadJSON(ctx, f.store, edustake.KeyGlobalChats, &mirrored))
	require.Len(t, mirrored, 1)
	assert.Equal(t, "saved_1", mirrored[0]["id"], "sign-out must merge contributions into the global mirror")

	assert.Greater(t, f.remote.sets[schemas.CollectionSavedChats + "/saved_1"], 0,
		"sign-out must push unsynced records")
}
