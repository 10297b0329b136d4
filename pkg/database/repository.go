package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trunkstat/trunkstat/pkg/protocol"
)

// StatusEventFromPacket converts a decoded packet into its storage record.
func StatusEventFromPacket(pkt *protocol.StatusPacket, source string) *StatusEvent {
	return &StatusEvent{
		Kind:        pkt.Kind.String(),
		SystemID:    protocol.UnpackSystemID(pkt.P25ID),
		WACN:        protocol.UnpackWACN(pkt.P25ID),
		NAC:         pkt.NAC,
		TalkgroupID: pkt.TalkgroupID,
		RadioID:     pkt.RadioID,
		EventTime:   time.Unix(int64(pkt.Timestamp), 0).UTC(),
		Source:      source,
	}
}

// EventRepository provides access to stored status events
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Save persists a status event
func (r *EventRepository) Save(event *StatusEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to save status event: %w", err)
	}
	return nil
}

// Recent returns the most recent events, newest first
func (r *EventRepository) Recent(limit int) ([]StatusEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var events []StatusEvent
	err := r.db.Order("id DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	return events, nil
}

// ByRadio returns the most recent events for one radio, newest first
func (r *EventRepository) ByRadio(radioID uint32, limit int) ([]StatusEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var events []StatusEvent
	err := r.db.Where("radio_id = ?", radioID).
		Order("id DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query events for radio %d: %w", radioID, err)
	}
	return events, nil
}

// CountByKind returns event counts grouped by kind
func (r *EventRepository) CountByKind() (map[string]int64, error) {
	type row struct {
		Kind  string
		Count int64
	}

	var rows []row
	err := r.db.Model(&StatusEvent{}).
		Select("kind, count(*) as count").
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count events by kind: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Kind] = r.Count
	}
	return counts, nil
}

// Count returns the total number of stored events
func (r *EventRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&StatusEvent{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Prune deletes events older than the cutoff, returning the number removed
func (r *EventRepository) Prune(olderThan time.Time) (int64, error) {
	result := r.db.Where("event_time < ?", olderThan).Delete(&StatusEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// TalkgroupRepository provides access to talkgroup aliases
type TalkgroupRepository struct {
	db *gorm.DB
}

// NewTalkgroupRepository creates a new talkgroup alias repository
func NewTalkgroupRepository(db *gorm.DB) *TalkgroupRepository {
	return &TalkgroupRepository{db: db}
}

// Get returns the alias for a talkgroup ID, or nil when unknown
func (r *TalkgroupRepository) Get(talkgroupID uint16) (*TalkgroupAlias, error) {
	var alias TalkgroupAlias
	err := r.db.First(&alias, "talkgroup_id = ?", talkgroupID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up talkgroup %d: %w", talkgroupID, err)
	}
	return &alias, nil
}

// All returns every known alias ordered by talkgroup ID
func (r *TalkgroupRepository) All() ([]TalkgroupAlias, error) {
	var aliases []TalkgroupAlias
	if err := r.db.Order("talkgroup_id").Find(&aliases).Error; err != nil {
		return nil, fmt.Errorf("failed to list talkgroup aliases: %w", err)
	}
	return aliases, nil
}

// UpsertBatch inserts or updates aliases in batches
func (r *TalkgroupRepository) UpsertBatch(aliases []TalkgroupAlias, batchSize int) error {
	if len(aliases) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	for start := 0; start < len(aliases); start += batchSize {
		end := start + batchSize
		if end > len(aliases) {
			end = len(aliases)
		}

		err := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "talkgroup_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"label", "category", "updated_at"}),
		}).Create(aliases[start:end]).Error
		if err != nil {
			return fmt.Errorf("failed to upsert alias batch: %w", err)
		}
	}

	return nil
}

// Count returns the number of known aliases
func (r *TalkgroupRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&TalkgroupAlias{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count aliases: %w", err)
	}
	return count, nil
}
