package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// StatusEvent is one decoded status packet, retained for the dashboard and
// for offline analysis.
type StatusEvent struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Kind        string    `gorm:"index;size:20;not null" json:"kind"`
	SystemID    uint16    `gorm:"index;not null" json:"system_id"`
	WACN        uint32    `gorm:"not null" json:"wacn"`
	NAC         uint16    `gorm:"not null" json:"nac"`
	TalkgroupID uint16    `gorm:"index" json:"talkgroup_id"`
	RadioID     uint32    `gorm:"index;not null" json:"radio_id"`
	EventTime   time.Time `gorm:"index;not null" json:"event_time"`
	Source      string    `gorm:"size:64" json:"source"` // Producer address
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for StatusEvent
func (StatusEvent) TableName() string {
	return "status_events"
}

// BeforeCreate hook to ensure timestamps are set
func (e *StatusEvent) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.EventTime.IsZero() {
		e.EventTime = time.Now()
	}
	return nil
}

// TalkgroupAlias maps a talkgroup ID to its human-readable label, synced
// from an external CSV export.
type TalkgroupAlias struct {
	TalkgroupID uint16    `gorm:"primarykey;not null" json:"talkgroup_id"`
	Label       string    `gorm:"index;size:100" json:"label"`
	Category    string    `gorm:"size:100" json:"category"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for TalkgroupAlias
func (TalkgroupAlias) TableName() string {
	return "talkgroup_aliases"
}

// Display returns the label when known, falling back to the numeric ID.
func (a *TalkgroupAlias) Display() string {
	if a.Label != "" {
		return a.Label
	}
	return fmt.Sprintf("TG %d", a.TalkgroupID)
}
