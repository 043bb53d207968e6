package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
	"github.com/edustake/edustake-core/internal/usecase"
	"github.com/edustake/edustake-core/schemas"
)

var tracer = otel.Tracer("edustake")

const sessionTTL = 12 * time.Hour

// RemoteAuth is the slice of the remote service the auth flow needs.
type RemoteAuth interface {
	SignUp(ctx context.Context, email, password, username string) (edustake.Identity, error)
	SignIn(ctx context.Context, email, password string) (edustake.Identity, error)
	SetDocument(ctx context.Context, collection, id string, doc any) error
}

// AuthService resolves the current identity against the remote auth
// service, with a locally cached fallback: a bcrypt hash of the last
// successful credentials allows a degraded local-only sign-in when the
// remote is unreachable.
type AuthService struct {
	remote   RemoteAuth
	store    localstore.Store
	profiles usecase.ProfileRepository
	tokens   *gocache.Cache
}

func NewAuthService(remote RemoteAuth, store localstore.Store, profiles usecase.ProfileRepository) *AuthService {
	return &AuthService{
		remote:   remote,
		store:    store,
		profiles: profiles,
		tokens:   gocache.New(sessionTTL, time.Hour),
	}
}

// AuthResult is a successful authentication. Warning carries the
// non-blocking degradation notice when part of the flow fell back to
// local-only operation.
type AuthResult struct {
	Identity edustake.Identity
	Token    string
	Warning  string
}

type cachedCredential struct {
	UID  string `json:"uid"`
	Hash string `json:"hash"`
}

// Register creates an account remotely and seeds the local profile
// cache. A failed remote profile write degrades to success with a
// warning rather than failing registration.
func (s *AuthService) Register(ctx context.Context, email, password, username string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Register")
	defer span.End()

	if email == "" || password == "" || username == "" {
		return nil, domain.ValidationError{Reason: "email, password and username are required"}
	}

	identity, err := s.remote.SignUp(ctx, email, password, username)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "registration failed")
	}

	now := time.Now().UnixMilli()
	profile := edustake.Profile{
		UID:         identity.UID,
		Username:    username,
		Email:       email,
		PhotoURL:    identity.PhotoURL,
		CreatedAt:   now,
		LastUpdated: now,
		Settings:    edustake.ProfileSettings{Theme: "light", Notifications: true},
	}

	result := &AuthResult{Identity: identity}
	err = s.remote.SetDocument(ctx, schemas.CollectionUserProfiles, identity.UID, profile)
	if err != nil {
		span.RecordError(err)
		result.Warning = "account created, but the profile could not be saved remotely; it will sync later"
	}

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		span.RecordError(err)
	}
	s.cacheIdentity(ctx, identity)
	s.cacheCredential(ctx, email, identity.UID, password)

	result.Token = s.issueToken(identity.UID)
	return result, nil
}

// SignIn authenticates against the remote service. When the remote is
// unreachable, the password is checked against the cached credential
// hash and a degraded local-only session opens with a warning.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.SignIn")
	defer span.End()

	if email == "" || password == "" {
		return nil, domain.ValidationError{Reason: "email and password are required"}
	}

	identity, err := s.remote.SignIn(ctx, email, password)
	if err != nil {
		span.RecordError(err)
		return s.signInLocally(ctx, email, password, err)
	}

	s.cacheIdentity(ctx, identity)
	s.cacheCredential(ctx, email, identity.UID, password)

	return &AuthResult{
		Identity: identity,
		Token:    s.issueToken(identity.UID),
	}, nil
}

func (s *AuthService) signInLocally(ctx context.Context, email, password string, remoteErr error) (*AuthResult, error) {

	creds := map[string]cachedCredential{}
	localstore.ReadJSON(ctx, s.store, edustake.KeyCachedCredentials, &creds)

	cred, ok := creds[email]
	if !ok {
		return nil, errors.Wrap(remoteErr, "sign in failed and no cached credentials exist")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.Hash), []byte(password)) != nil {
		return nil, domain.ValidationError{Reason: "invalid credentials"}
	}

	identity := s.identityFor(ctx, cred.UID, email)
	s.cacheIdentity(ctx, identity)

	return &AuthResult{
		Identity: identity,
		Token:    s.issueToken(identity.UID),
		Warning:  "remote sign-in unavailable; using locally cached session",
	}, nil
}

func (s *AuthService) identityFor(ctx context.Context, uid, email string) edustake.Identity {

	var cached edustake.Identity
	if localstore.ReadJSON(ctx, s.store, edustake.KeyCurrentUser, &cached) && cached.UID == uid {
		return cached
	}

	identity := edustake.Identity{UID: uid, Email: email}
	if profile, found := s.profiles.FindByID(ctx, uid); found {
		identity.Username = profile.Username
		identity.DisplayName = profile.Username
		identity.PhotoURL = profile.PhotoURL
	}
	return identity
}

// Authenticate resolves a bearer token to the uid it was issued for.
func (s *AuthService) Authenticate(token string) (string, bool) {
	x, found := s.tokens.Get(token)
	if !found {
		return "", false
	}
	return x.(string), true
}

// RevokeToken invalidates one session token.
func (s *AuthService) RevokeToken(token string) {
	s.tokens.Delete(token)
}

// CurrentIdentity returns the cached identity snapshot, if any.
func (s *AuthService) CurrentIdentity(ctx context.Context) (edustake.Identity, bool) {
	var identity edustake.Identity
	if !localstore.ReadJSON(ctx, s.store, edustake.KeyCurrentUser, &identity) {
		return edustake.Identity{}, false
	}
	return identity, identity.UID != ""
}

// ClearIdentity removes the cached identity snapshot on sign-out. The
// cached credential hash stays so offline sign-in keeps working.
func (s *AuthService) ClearIdentity(ctx context.Context) {
	_ = s.store.Remove(ctx, edustake.KeyCurrentUser)
}

func (s *AuthService) cacheIdentity(ctx context.Context, identity edustake.Identity) {
	_ = s.store.Write(ctx, edustake.KeyCurrentUser, identity)
}

func (s *AuthService) cacheCredential(ctx context.Context, email, uid, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return
	}
	creds := map[string]cachedCredential{}
	localstore.ReadJSON(ctx, s.store, edustake.KeyCachedCredentials, &creds)
	creds[email] = cachedCredential{UID: uid, Hash: string(hash)}
	_ = s.store.Write(ctx, edustake.KeyCachedCredentials, creds)
}

func (s *AuthService) issueToken(uid string) string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	token := hex.EncodeToString(buf)
	s.tokens.Set(token, uid, gocache.DefaultExpiration)
	return token
}
