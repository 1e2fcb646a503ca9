package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Match maps matches. The sync engine owns every column except Notes and
// NotifiedAt, which belong to the notification side.
type Match struct {
	MatchID            int64      `gorm:"column:match_id;primaryKey;autoIncrement"`
	MatchUUID          string     `gorm:"column:match_uuid;size:36;not null;uniqueIndex"`
	OrganizerKey       string     `gorm:"column:organizer_key;not null;uniqueIndex:ux_matches_key,priority:1"`
	MatchDate          string     `gorm:"column:match_date;size:10;not null;uniqueIndex:ux_matches_key,priority:2"`
	LocationKey        string     `gorm:"column:location_key;not null;uniqueIndex:ux_matches_key,priority:3"`
	Organizer          string     `gorm:"column:organizer;not null"`
	Location           string     `gorm:"column:location;not null"`
	Type               string     `gorm:"column:type;not null"`
	RegistrationText   string     `gorm:"column:registration_text;not null"`
	RegistrationStatus string     `gorm:"column:registration_status;size:16;not null;default:open"`
	OpensAt            *time.Time `gorm:"column:opens_at"`
	Remark             string     `gorm:"column:remark;not null;default:''"`
	SourceCalendarID   string     `gorm:"column:source_calendar_id;not null"`
	Notes              *string    `gorm:"column:notes"`
	NotifiedAt         *time.Time `gorm:"column:notified_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;not null"`
	LastUpdated        time.Time  `gorm:"column:last_updated;not null"`
}

func (Match) TableName() string { return "matches" }

func (m *Match) BeforeCreate(_ *gorm.DB) error {
	if m.MatchUUID == "" {
		m.MatchUUID = uuid.NewString()
	}
	return nil
}

// SyncRun maps sync_runs, one row per pipeline run.
type SyncRun struct {
	RunID              int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID            string     `gorm:"column:run_uuid;size:36;not null;uniqueIndex"`
	TriggeredBy        string     `gorm:"column:triggered_by;size:32;not null"`
	Status             string     `gorm:"column:status;size:16;not null;default:running"`
	StartedAt          time.Time  `gorm:"column:started_at;not null"`
	FinishedAt         *time.Time `gorm:"column:finished_at"`
	RecordsFetched     int        `gorm:"column:records_fetched;not null;default:0"`
	Dropped            int        `gorm:"column:dropped;not null;default:0"`
	ClassifiedFallback int        `gorm:"column:classified_fallback;not null;default:0"`
	Corrected          int        `gorm:"column:corrected;not null;default:0"`
	Duplicates         int        `gorm:"column:duplicates;not null;default:0"`
	Inserted           int        `gorm:"column:inserted;not null;default:0"`
	Updated            int        `gorm:"column:updated;not null;default:0"`
	Closed             int        `gorm:"column:closed;not null;default:0"`
	Errors             int        `gorm:"column:errors;not null;default:0"`
	ErrorMessage       *string    `gorm:"column:error_message"`
}

func (SyncRun) TableName() string { return "sync_runs" }

func (r *SyncRun) BeforeCreate(_ *gorm.DB) error {
	if r.RunUUID == "" {
		r.RunUUID = uuid.NewString()
	}
	return nil
}

// RunLock maps run_locks. An empty holder means the lock is free.
type RunLock struct {
	Name       string     `gorm:"column:name;size:32;primaryKey"`
	Holder     string     `gorm:"column:holder;size:128;not null;default:''"`
	AcquiredAt *time.Time `gorm:"column:acquired_at"`
}

func (RunLock) TableName() string { return "run_locks" }

func autoMigrateModels() []any {
	return []any{
		&Match{},
		&SyncRun{},
		&RunLock{},
	}
}
