package models

import (
	"encoding/json"
	"time"

	"github.com/offerhubhq/offerhub-backend/pkg/enums"
)

// Event is an append-only activity feed entry. Rows are never mutated or
// deleted; the feed is the sole source for inbox and activity views.
type Event struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64           `gorm:"column:user_id;not null;index"`
	Type      enums.EventType `gorm:"column:type;type:event_type;not null"`
	RefID     *int64          `gorm:"column:ref_id"`
	Metadata  json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
