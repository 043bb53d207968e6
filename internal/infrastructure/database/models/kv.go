package models

import "time"

// KVEntry is one durable key-value row. The value is always a JSON
// document; writes replace it atomically at key granularity.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
