package domain

// Kind names one entity collection handled by the repositories, the
// mirror engine, and the sync adapter.
type Kind string

const (
	KindResources     Kind = "resources"
	KindSavedChats    Kind = "saved_chats"
	KindMessages      Kind = "messages"
	KindSearchHistory Kind = "search_history"
	KindProfiles      Kind = "user_profiles"
)

func (k Kind) String() string {
	return string(k)
}

// MirroredKinds are the kinds that carry a session-independent global
// mirror. Search history is retention-capped per user and profiles are
// already uid-global, so neither is mirrored.
var MirroredKinds = []Kind{KindResources, KindSavedChats, KindMessages}
