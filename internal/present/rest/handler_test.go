package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
	"github.com/edustake/edustake-core/internal/infrastructure/repository"
	"github.com/edustake/edustake-core/internal/present/rest/middleware"
	"github.com/edustake/edustake-core/internal/service"
	"github.com/edustake/edustake-core/internal/usecase"
)

// --- mocks ---

// stubRemote satisfies both the auth and document store contracts with
// canned responses, so the handlers run on purely local state.
type stubRemote struct {
	identity edustake.Identity
}

func (s *stubRemote) SignUp(ctx context.Context, email, password, username string) (edustake.Identity, error) {
	return s.identity, nil
}

func (s *stubRemote) SignIn(ctx context.Context, email, password string) (edustake.Identity, error) {
	return s.identity, nil
}

func (s *stubRemote) Query(ctx context.Context, collection, field, value, orderBy string, limit int, out any) error {
	return json.Unmarshal([]byte("[]"), out)
}

func (s *stubRemote) GetDocument(ctx context.Context, collection, id string, out any) error {
	doc, err := json.Marshal(map[string]string{"uid": id})
	if err != nil {
		return err
	}
	return json.Unmarshal(doc, out)
}

func (s *stubRemote) SetDocument(ctx context.Context, collection, id string, doc any) error {
	return nil
}

type stubBlobs struct{}

func (stubBlobs) UploadBlob(ctx context.Context, path, contentType string, data []byte) (string, error) {
	return "https://blobs/" + path, nil
}

type fixture struct {
	e     *echo.Echo
	store *localstore.MemStore
}

func newFixture() *fixture {
	remote := &stubRemote{
		identity: edustake.Identity{UID: "user_a", Email: "a@example.com", Username: "alice"},
	}
	store := localstore.NewMemStore()

	resourceRepo := repository.NewResourceRepository(store)
	chatRepo := repository.NewSavedChatRepository(store)
	messageRepo := repository.NewMessageRepository(store)
	historyRepo := repository.NewSearchHistoryRepository(store)
	profileRepo := repository.NewProfileRepository(store, nil)

	auth := service.NewAuthService(remote, store, profileRepo)
	sync := service.NewSyncService(remote, store, resourceRepo, chatRepo, messageRepo, historyRepo, profileRepo, 10)
	mirror := service.NewMirrorService(store, 0)
	session := service.NewSessionService(auth, sync, mirror, 0)

	h := NewHandler(
		session,
		sync,
		nil,
		usecase.NewResourceUsecase(resourceRepo, stubBlobs{}, nil),
		usecase.NewSavedChatUsecase(chatRepo, nil),
		usecase.NewMessageUsecase(messageRepo, stubBlobs{}, nil),
		usecase.NewSearchHistoryUsecase(historyRepo, 10),
		usecase.NewProfileUsecase(profileRepo),
	)

	e := echo.New()
	e.Use(middleware.NewAuthMiddleware(auth).IdentifyRequester)
	h.RegisterRoutes(e)

	return &fixture{e: e, store: store}
}

func (f *fixture) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	f.e.ServeHTTP(res, req)
	return res
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	res := f.request(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "a@example.com", "password": "secret"})
	if res.Code != http.StatusOK {
		t.Fatalf("login failed with %d: %s", res.Code, res.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Token == "" {
		t.Fatal("expected session token")
	}
	return out.Token
}

// --- tests ---

func TestLoginAndSessionState(t *testing.T) {
	f := newFixture()
	f.login(t)

	res := f.request(t, http.MethodGet, "/api/v1/session", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	var out struct {
		State    string `json:"state"`
		SignedIn bool   `json:"signedIn"`
	}
	json.Unmarshal(res.Body.Bytes(), &out)
	if out.State != "Idle" || !out.SignedIn {
		t.Fatalf("unexpected session %+v", out)
	}
}

func TestUploadResourceRequiresAuth(t *testing.T) {
	f := newFixture()

	res := f.request(t, http.MethodPost, "/api/v1/resources", "",
		map[string]string{"name": "notes.pdf"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", res.Code)
	}
}

func TestUploadAndListResources(t *testing.T) {
	f := newFixture()
	token := f.login(t)

	res := f.request(t, http.MethodPost, "/api/v1/resources", token, map[string]any{
		"name":        "notes.pdf",
		"type":        "application/pdf",
		"data":        "aGVsbG8=",
		"communityId": "c1",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", res.Code, res.Body.String())
	}

	res = f.request(t, http.MethodGet, "/api/v1/resources?communityId=c1", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	var listed []edustake.Resource
	json.Unmarshal(res.Body.Bytes(), &listed)
	if len(listed) != 1 || listed[0].Name != "notes.pdf" {
		t.Fatalf("unexpected resources %+v", listed)
	}
	if listed[0].UploaderID != "user_a" {
		t.Fatalf("expected uploader from session got %s", listed[0].UploaderID)
	}
}

func TestLikeEndpointIsIdempotent(t *testing.T) {
	f := newFixture()
	token := f.login(t)

	res := f.request(t, http.MethodPost, "/api/v1/resources", token, map[string]any{
		"name": "notes.pdf", "data": "aGVsbG8=",
	})
	var uploaded edustake.Resource
	json.Unmarshal(res.Body.Bytes(), &uploaded)

	for i := 0; i < 2; i++ {
		res = f.request(t, http.MethodPost, "/api/v1/resources/"+uploaded.ID+"/like", token, nil)
		if res.Code != http.StatusOK {
			t.Fatalf("like failed with %d", res.Code)
		}
	}

	var liked edustake.Resource
	json.Unmarshal(res.Body.Bytes(), &liked)
	if liked.Likes != 1 {
		t.Fatalf("expected 1 like got %d", liked.Likes)
	}
}

func TestSearchHistoryRoundTrip(t *testing.T) {
	f := newFixture()
	token := f.login(t)

	res := f.request(t, http.MethodPost, "/api/v1/search-history", token,
		map[string]any{"query": "calculus", "resultCount": 3})
	if res.Code != http.StatusOK {
		t.Fatalf("record failed with %d: %s", res.Code, res.Body.String())
	}

	res = f.request(t, http.MethodGet, "/api/v1/search-history", token, nil)
	var entries []edustake.SearchEntry
	json.Unmarshal(res.Body.Bytes(), &entries)
	if len(entries) != 1 || entries[0].Query != "calculus" {
		t.Fatalf("unexpected history %+v", entries)
	}
}

func TestMessagesRequireChannelID(t *testing.T) {
	f := newFixture()

	res := f.request(t, http.MethodGet, "/api/v1/messages", "", nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
}

func TestRealtimeWithoutSignalBus(t *testing.T) {
	f := newFixture()

	res := f.request(t, http.MethodGet, "/realtime", "", nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
}
