package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edustake/edustake-core/internal/infrastructure/database/models"
)

// GormStore persists keys in the kv_entries table of the embedded
// database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Read(ctx context.Context, key string) (json.RawMessage, bool) {

	var entry models.KVEntry
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.WarnContext(ctx, "Read failed, treating as absent",
				slog.String("key", key),
				slog.String("error", err.Error()),
				slog.String("module", "localstore"),
			)
		}
		return nil, false
	}

	if !json.Valid([]byte(entry.Value)) {
		slog.WarnContext(ctx, "Stored value is not valid JSON, treating as absent",
			slog.String("key", key),
			slog.String("module", "localstore"),
		)
		return nil, false
	}

	return json.RawMessage(entry.Value), true
}

func (s *GormStore) Write(ctx context.Context, key string, value any) error {

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := models.KVEntry{
		Key:       key,
		Value:     string(encoded),
		UpdatedAt: time.Now(),
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *GormStore) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&models.KVEntry{}, "key = ?", key).Error
}
