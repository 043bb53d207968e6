package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/edustake/edustake-core"
)

func TestSignIn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/signIn" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email != "a@example.com" {
			t.Errorf("unexpected email %s", creds.Email)
		}
		json.NewEncoder(w).Encode(edustake.Identity{UID: "user_a", Email: creds.Email})
	}))
	defer server.Close()

	c := New(server.URL)
	identity, err := c.SignIn(context.Background(), "a@example.com", "secret")
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if identity.UID != "user_a" {
		t.Fatalf("unexpected uid %s", identity.UID)
	}
}

func TestSignInRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := New(server.URL)
	if _, err := c.SignIn(context.Background(), "a@example.com", "wrong"); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestQueryBuildsParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("field") != "userId" || q.Get("value") != "user_a" {
			t.Errorf("unexpected filter %s=%s", q.Get("field"), q.Get("value"))
		}
		if q.Get("orderBy") != "savedAt" || q.Get("limit") != "5" {
			t.Errorf("unexpected ordering %s limit %s", q.Get("orderBy"), q.Get("limit"))
		}
		json.NewEncoder(w).Encode([]edustake.SavedChat{{ID: "saved_1"}})
	}))
	defer server.Close()

	c := New(server.URL)
	var out []edustake.SavedChat
	err := c.Query(context.Background(), "savedChats", "userId", "user_a", "savedAt", 5, &out)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(out) != 1 || out[0].ID != "saved_1" {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestSetDocumentUsesPut(t *testing.T) {
	var method, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL)
	err := c.SetDocument(context.Background(), "resources", "res 1", edustake.Resource{ID: "res 1"})
	if err != nil {
		t.Fatalf("set document failed: %v", err)
	}
	if method != http.MethodPut {
		t.Fatalf("expected PUT got %s", method)
	}
	if path != "/v1/resources/res%201" {
		t.Fatalf("expected escaped id in path got %s", path)
	}
}

func TestUploadBlob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/blobs/resources/res_1/notes.pdf" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload struct {
			ContentType string `json:"contentType"`
			Data        string `json:"data"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.ContentType != "application/pdf" || payload.Data == "" {
			t.Errorf("unexpected payload %+v", payload)
		}
		json.NewEncoder(w).Encode(map[string]string{"url": "https://blobs/notes.pdf"})
	}))
	defer server.Close()

	c := New(server.URL)
	url, err := c.UploadBlob(context.Background(), "resources/res_1/notes.pdf", "application/pdf", []byte("content"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if url != "https://blobs/notes.pdf" {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestGetProfileCaches(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(edustake.Profile{UID: "user_a", Username: "alice"})
	}))
	defer server.Close()

	c := New(server.URL)
	for i := 0; i < 3; i++ {
		profile, err := c.GetProfile(context.Background(), "user_a")
		if err != nil {
			t.Fatalf("get profile failed: %v", err)
		}
		if profile.Username != "alice" {
			t.Fatalf("unexpected profile %+v", profile)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 upstream hit got %d", hits.Load())
	}
}

func TestUserAgentHeader(t *testing.T) {
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL)
	_ = c.DeleteDocument(context.Background(), "resources", "res_1")
	if ua != "edustake-core/1.0" {
		t.Fatalf("unexpected user agent %s", ua)
	}
}
