package edustake

// Attachment describes one file attached to a message or saved chat.
type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Resource is a study material uploaded to a community. Owned by its
// uploader for mutation purposes, globally readable.
type Resource struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"` // MIME type
	Size         int64  `json:"size"`
	URL          string `json:"url"` // remote locator or embedded data URI
	CommunityID  string `json:"communityId"`
	SubjectID    string `json:"subjectId"`
	UploaderID   string `json:"uploaderId"`
	UploaderName string `json:"uploaderName"`
	UploadedAt   int64  `json:"uploadedAt"` // epoch ms
	Views        int    `json:"views"`
	Likes        int    `json:"likes"`
}

// Message is a channel chat message. Immutable after send except via
// merge reconciliation.
type Message struct {
	ID          string                `json:"id"`
	Text        string                `json:"text"`
	Username    string                `json:"username"`
	PhotoURL    string                `json:"photoURL"`
	Timestamp   int64                 `json:"timestamp"` // epoch ms
	ChannelID   string                `json:"channelId"`
	Attachments map[string]Attachment `json:"attachments,omitempty"`
}

// SavedChat is a user's bookmark of a message. At most one per
// (userId, messageId) pair; re-saving updates the existing record.
type SavedChat struct {
	ID                string                `json:"id"`
	MessageID         string                `json:"messageId"`
	UserID            string                `json:"userId"`
	Text              string                `json:"text"`
	OriginalUserID    string                `json:"originalUserId"`
	Username          string                `json:"username"`
	PhotoURL          string                `json:"photoURL"`
	ChannelID         string                `json:"channelId"`
	OriginalTimestamp int64                 `json:"originalTimestamp"`
	SavedAt           int64                 `json:"savedAt"` // epoch ms
	Attachments       map[string]Attachment `json:"attachments,omitempty"`
}

// SearchEntry is one search-history record. The collection is
// append-only with a retention cap, deduplicated by query text.
type SearchEntry struct {
	ID          string `json:"id"`
	Query       string `json:"query"`
	UserID      string `json:"userId"`
	Timestamp   int64  `json:"timestamp"` // epoch ms
	ResultCount int    `json:"resultCount"`
}

// ProfileSettings holds per-user presentation preferences.
type ProfileSettings struct {
	Theme         string `json:"theme"`
	Notifications bool   `json:"notifications"`
}

// Profile is a user profile, one per uid, updated by its owner only.
type Profile struct {
	UID         string          `json:"uid"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	PhotoURL    string          `json:"photoURL"`
	Bio         string          `json:"bio"`
	LastUpdated int64           `json:"lastUpdated"`
	CreatedAt   int64           `json:"createdAt"`
	Settings    ProfileSettings `json:"settings"`
}

// LikeMarker records that a user has liked a resource. Its id is the
// resourceId_userId compound key, which makes like/unlike idempotent.
type LikeMarker struct {
	ID         string `json:"id"`
	ResourceID string `json:"resourceId"`
	UserID     string `json:"userId"`
	LikedAt    int64  `json:"likedAt"`
}

// Identity is the cached snapshot of the authenticated user, kept under
// the currentUser key for use when the remote auth session is not
// immediately available.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	Username    string `json:"username"`
}

// Event is a change notification published when a collection mutates.
type Event struct {
	Kind string `json:"kind"`
	Op   string `json:"op"` // upsert, remove
	ID   string `json:"id"`
}
