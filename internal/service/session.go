package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/edustake/edustake-core"
	"github.com/edustake/edustake-core/internal/domain"
)

// SessionService drives the authenticated-session lifecycle:
// SignedOut -> SigningIn -> SignedIn -> SyncingDown -> Idle ->
// SigningOut -> PreservingLocalData -> SignedOut. A remote error during
// SyncingDown degrades to Idle on local-only data instead of blocking
// sign-in; PreservingLocalData forces the active→global merge and a
// push of anything unsynced before the session closes.
type SessionService struct {
	auth   *AuthService
	sync   *SyncService
	mirror *MirrorService

	pushInterval time.Duration

	mu       sync.Mutex
	state    domain.SessionState
	identity *edustake.Identity
}

func NewSessionService(auth *AuthService, sync *SyncService, mirror *MirrorService, pushInterval time.Duration) *SessionService {
	if pushInterval <= 0 {
		pushInterval = 30 * time.Second
	}
	return &SessionService{
		auth:         auth,
		sync:         sync,
		mirror:       mirror,
		pushInterval: pushInterval,
		state:        domain.StateSignedOut,
	}
}

func (s *SessionService) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionService) Identity() (edustake.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return edustake.Identity{}, false
	}
	return *s.identity, true
}

// Register creates an account and opens the session around it.
func (s *SessionService) Register(ctx context.Context, email, password, username string) (*AuthResult, error) {
	s.setState(domain.StateSigningIn)

	result, err := s.auth.Register(ctx, email, password, username)
	if err != nil {
		s.setState(domain.StateSignedOut)
		return nil, err
	}

	s.open(ctx, result)
	return result, nil
}

// SignIn authenticates and brings the session to Idle, syncing down
// remote data when the remote store is reachable.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	s.setState(domain.StateSigningIn)

	result, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.setState(domain.StateSignedOut)
		return nil, err
	}

	s.open(ctx, result)
	return result, nil
}

func (s *SessionService) open(ctx context.Context, result *AuthResult) {
	s.mu.Lock()
	identity := result.Identity
	s.identity = &identity
	s.mu.Unlock()

	s.setState(domain.StateSignedIn)
	s.setState(domain.StateSyncingDown)

	if err := s.sync.SyncDown(ctx, result.Identity.UID); err != nil {
		slog.WarnContext(ctx, "Sync down failed, continuing with local data",
			slog.String("error", err.Error()),
			slog.String("module", "session"),
		)
		if result.Warning == "" {
			result.Warning = "remote sync unavailable; showing locally stored data"
		}
	}

	s.mirror.MergeAllGlobalIntoActive(ctx)
	s.setState(domain.StateIdle)
}

// SignOut closes the session, preserving local data first: merge every
// active collection into its global mirror, then push anything the
// remote store has not seen.
func (s *SessionService) SignOut(ctx context.Context, token string) error {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()

	s.setState(domain.StateSigningOut)
	s.setState(domain.StatePreservingLocalData)

	s.mirror.MergeAllActiveIntoGlobal(ctx)

	if identity != nil {
		if _, err := s.sync.PushUnsynced(ctx, identity.UID); err != nil {
			slog.WarnContext(ctx, "Final push failed, data stays in the global mirror",
				slog.String("error", err.Error()),
				slog.String("module", "session"),
			)
		}
	}

	s.auth.RevokeToken(token)
	s.auth.ClearIdentity(ctx)

	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()
	s.setState(domain.StateSignedOut)
	return nil
}

// Run drives the periodic push while the session sits in Idle.
func (s *SessionService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.State() != domain.StateIdle {
				continue
			}
			identity, ok := s.Identity()
			if !ok {
				continue
			}
			if _, err := s.sync.PushUnsynced(ctx, identity.UID); err != nil {
				slog.DebugContext(ctx, "Periodic push failed",
					slog.String("error", err.Error()),
					slog.String("module", "session"),
				)
			}
		}
	}
}

func (s *SessionService) setState(state domain.SessionState) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	if prev != state {
		slog.Debug("Session state changed",
			slog.String("from", prev.String()),
			slog.String("to", state.String()),
			slog.String("module", "session"),
		)
	}
}
