// Package client talks to the remote document/auth store. Everything
// here is best-effort from the caller's point of view: the sync adapter
// and the auth service degrade to local-only operation when a call
// fails.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/edustake/edustake-core"
)

const defaultTimeout = 3 * time.Second

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	baseURL   string
	userAgent string
}

func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		baseURL:   baseURL,
		userAgent: "edustake-core/1.0",
	}
	httpClient.Transport = c
	return c
}

// SetTimeout overrides the default per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.client.Timeout = d
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

func (c *Client) do(ctx context.Context, method, path string, body any, response any) error {

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if response == nil {
		return nil
	}
	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

// --- auth ---

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

func (c *Client) SignUp(ctx context.Context, email, password, username string) (edustake.Identity, error) {
	var identity edustake.Identity
	err := c.do(ctx, http.MethodPost, "/v1/auth/signUp",
		credentials{Email: email, Password: password, Username: username}, &identity)
	if err != nil {
		return edustake.Identity{}, fmt.Errorf("failed to sign up: %v", err)
	}
	return identity, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (edustake.Identity, error) {
	var identity edustake.Identity
	err := c.do(ctx, http.MethodPost, "/v1/auth/signIn",
		credentials{Email: email, Password: password}, &identity)
	if err != nil {
		return edustake.Identity{}, fmt.Errorf("failed to sign in: %v", err)
	}
	return identity, nil
}

// --- documents ---

func (c *Client) GetDocument(ctx context.Context, collection, id string, out any) error {
	return c.do(ctx, http.MethodGet,
		"/v1/"+collection+"/"+url.PathEscape(id), nil, out)
}

// SetDocument creates or replaces one document under a known id.
func (c *Client) SetDocument(ctx context.Context, collection, id string, doc any) error {
	return c.do(ctx, http.MethodPut,
		"/v1/"+collection+"/"+url.PathEscape(id), doc, nil)
}

// AddDocument creates a document under a server-assigned id.
func (c *Client) AddDocument(ctx context.Context, collection string, doc any) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/"+collection, doc, &created)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) DeleteDocument(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete,
		"/v1/"+collection+"/"+url.PathEscape(id), nil, nil)
}

// Query lists a collection, optionally filtered by one field equality
// and ordered by a recency field. A limit of 0 means no limit.
func (c *Client) Query(ctx context.Context, collection, field, value, orderBy string, limit int, out any) error {

	params := url.Values{}
	if field != "" {
		params.Set("field", field)
		params.Set("value", value)
	}
	if orderBy != "" {
		params.Set("orderBy", orderBy)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := "/v1/" + collection
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// --- blobs ---

// UploadBlob stores a file under the path convention
// messages/{channelId}/{fileName} or resources/{resourceId}/{fileName}
// and returns the retrievable download locator.
func (c *Client) UploadBlob(ctx context.Context, path, contentType string, data []byte) (string, error) {

	payload := struct {
		ContentType string `json:"contentType"`
		Data        string `json:"data"`
	}{
		ContentType: contentType,
		Data:        base64.StdEncoding.EncodeToString(data),
	}

	var uploaded struct {
		URL string `json:"url"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/blobs/"+path, payload, &uploaded)
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %v", err)
	}
	return uploaded.URL, nil
}

// --- cached reads ---

// GetProfile fetches a remote profile with a short-lived cache in
// front, since the same uids are resolved over and over while
// rendering.
func (c *Client) GetProfile(ctx context.Context, uid string) (edustake.Profile, error) {

	cacheKey := "profile:" + uid
	x, found := c.cache.Get(cacheKey)
	if found {
		return x.(edustake.Profile), nil
	}

	var profile edustake.Profile
	err := c.GetDocument(ctx, "userProfiles", uid, &profile)
	if err != nil {
		return edustake.Profile{}, fmt.Errorf("failed to get profile: %v", err)
	}

	c.cache.Set(cacheKey, profile, cache.DefaultExpiration)
	return profile, nil
}
