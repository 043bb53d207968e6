// Package repository provides typed CRUD over one local durable store
// key per entity kind. Every mutation is a full read-modify-write of
// the underlying key; there is no in-memory cache layer, so callers
// needing batch semantics batch at a higher level.
package repository

import (
	"context"
	"log/slog"

	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
)

// Collection is a generic ordered sequence of records under a single
// storage key, identified by the id extractor.
type Collection[T any] struct {
	store localstore.Store
	key   string
	id    func(T) string
}

func NewCollection[T any](store localstore.Store, key string, id func(T) string) *Collection[T] {
	return &Collection[T]{store: store, key: key, id: id}
}

func (c *Collection[T]) Key() string {
	return c.key
}

func (c *Collection[T]) IDOf(item T) string {
	return c.id(item)
}

// GetAll returns the stored sequence, or an empty one when the key is
// absent or undecodable.
func (c *Collection[T]) GetAll(ctx context.Context) []T {
	var items []T
	localstore.ReadJSON(ctx, c.store, c.key, &items)
	return items
}

// ReplaceAll persists the whole sequence, overwriting the previous
// value of the key.
func (c *Collection[T]) ReplaceAll(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	err := c.store.Write(ctx, c.key, items)
	if err != nil {
		slog.WarnContext(ctx, "Collection write failed",
			slog.String("key", c.key),
			slog.String("error", err.Error()),
			slog.String("module", "repository"),
		)
	}
	return err
}

// Upsert replaces the record with a matching id, or appends when none
// exists. At most one record per id remains after the call.
func (c *Collection[T]) Upsert(ctx context.Context, item T) error {
	items := c.GetAll(ctx)
	id := c.id(item)

	replaced := false
	for i := range items {
		if c.id(items[i]) == id {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}

	return c.ReplaceAll(ctx, items)
}

// RemoveByID filters out the matching record and persists the
// remainder. No-op when the id is absent.
func (c *Collection[T]) RemoveByID(ctx context.Context, id string) error {
	items := c.GetAll(ctx)

	kept := items[:0]
	for _, item := range items {
		if c.id(item) != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return nil
	}

	return c.ReplaceAll(ctx, kept)
}

// FindByID scans the collection for a matching record.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, bool) {
	for _, item := range c.GetAll(ctx) {
		if c.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}
