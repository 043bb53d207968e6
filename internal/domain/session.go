package domain

// SessionState tracks where an authenticated session is in its
// lifecycle. Remote errors during SyncingDown degrade the session to
// Idle on local-only data instead of blocking sign-in.
type SessionState int

const (
	StateSignedOut SessionState = iota
	StateSigningIn
	StateSignedIn
	StateSyncingDown
	StateIdle
	StateSigningOut
	StatePreservingLocalData
)

func (s SessionState) String() string {
	switch s {
	case StateSignedOut:
		return "SignedOut"
	case StateSigningIn:
		return "SigningIn"
	case StateSignedIn:
		return "SignedIn"
	case StateSyncingDown:
		return "SyncingDown"
	case StateIdle:
		return "Idle"
	case StateSigningOut:
		return "SigningOut"
	case StatePreservingLocalData:
		return "PreservingLocalData"
	default:
		return "Unknown"
	}
}
