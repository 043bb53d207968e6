package edustake

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const (
	PrefixMessage    = "msg"
	PrefixResource   = "res"
	PrefixSavedChat  = "saved"
	PrefixSearch     = "search"
	PrefixAttachment = "att"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID generates a collection-unique identifier of the form
// <prefix>_<epoch millis>_<random base36 suffix>. The suffix keeps ids
// generated within the same millisecond from colliding.
func NewID(prefix string) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte('_')
	sb.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 10))
	sb.WriteByte('_')
	sb.WriteString(randBase36(9))
	return sb.String()
}

func randBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-derived suffix rather than panicking mid-save.
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36[int(b)%len(base36)]
	}
	return string(out)
}

// LikeMarkerID builds the compound key guarding like idempotence.
func LikeMarkerID(resourceID, userID string) string {
	return resourceID + "_" + userID
}
