package edustake

// Local durable store key layout. Every component reads and writes
// through these names exclusively; each entity kind owns a fixed set of
// keys by convention.
const (
	// Active (current session) collections.
	KeyResources            = "edustake_resources"
	KeyResourcesByCommunity = "edustake_resources_by_community"
	KeyResourcesBySubject   = "edustake_resources_by_subject"
	KeyResourceLikes        = "edustake_resource_likes"
	KeySavedChats           = "edustake_saved_chats"
	KeyCurrentMessages      = "edustake_current_messages"
	KeySearchHistory        = "edustake_search_history"
	KeyUserProfiles         = "edustake_user_profiles"

	// Unified global mirrors. These survive logout and are merged back
	// into whichever session loads next.
	KeyGlobalResources = "edustake_global_resources"
	KeyGlobalChats     = "edustake_global_chats"
	KeyGlobalMessages  = "edustake_global_messages"

	// Mirror keys written by the pre-unification storage layer. Read
	// once at startup by the legacy import pass, never written.
	LegacyGlobalResources = "global_resources_data"
	LegacyGlobalChats     = "global_chats_data"
	LegacyGlobalMessages  = "global_messages_data"

	// Flags and bookkeeping.
	KeyPermanentStorageEnabled = "edustake_permanent_storage_enabled"
	KeyLastSyncTimestamp       = "global_last_sync_timestamp"
	KeyCurrentUser             = "currentUser"
	KeySyncHashes              = "edustake_sync_hashes"
	KeyCachedCredentials       = "edustake_cached_credentials"
)
