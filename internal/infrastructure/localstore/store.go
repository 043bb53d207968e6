// Package localstore implements the local durable store: namespaced
// JSON blobs under fixed string keys, persisted across restarts and
// across login sessions. Higher components degrade to an empty default
// whenever Read reports absent, so first-run and corrupted-cache cases
// behave identically to "no data yet".
package localstore

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Store is the key-granular persistence contract. Read reports absent
// (never an error) for missing keys, backend failures, and values that
// are not valid JSON; Write replaces the whole value unconditionally.
type Store interface {
	Read(ctx context.Context, key string) (json.RawMessage, bool)
	Write(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

// ReadJSON decodes the value under key into out. Absent keys and decode
// failures leave out untouched and return false; decode failures are
// logged but never propagated.
func ReadJSON(ctx context.Context, s Store, key string, out any) bool {
	raw, ok := s.Read(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.WarnContext(ctx, "Discarding undecodable value",
			slog.String("key", key),
			slog.String("error", err.Error()),
			slog.String("module", "localstore"),
		)
		return false
	}
	return true
}
