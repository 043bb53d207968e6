// Package schemas fixes the remote document store's collection names
// and blob path conventions. The remote store is an external
// collaborator reached through this small CRUD/query contract only.
package schemas

const (
	CollectionUserProfiles  = "userProfiles"
	CollectionSavedChats    = "savedChats"
	CollectionSearchHistory = "searchHistory"
	CollectionResources     = "resources"
	CollectionResourceLikes = "resourceLikes"
	CollectionMessages      = "messages"
	CollectionChannels      = "channels"
)

// MessageBlobPath addresses an uploaded message attachment.
func MessageBlobPath(channelID, fileName string) string {
	return CollectionMessages + "/" + channelID + "/" + fileName
}

// ResourceBlobPath addresses an uploaded resource file.
func ResourceBlobPath(resourceID, fileName string) string {
	return CollectionResources + "/" + resourceID + "/" + fileName
}
