package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"horse.fit/jachtproef/internal/reconcile"
	"horse.fit/jachtproef/internal/record"
)

// MatchStore persists matches for the reconcile engine. Only owned columns are
// written; notes and notified_at are never touched.
type MatchStore struct {
	pool *Pool
}

func NewMatchStore(pool *Pool) *MatchStore {
	return &MatchStore{pool: pool}
}

func (s *MatchStore) FindByKey(ctx context.Context, key record.Key) (reconcile.Stored, error) {
	if err := s.ready(); err != nil {
		return reconcile.Stored{}, err
	}

	var row Match
	err := s.pool.gdb.WithContext(ctx).
		Where("organizer_key = ? AND match_date = ? AND location_key = ?", key.Organizer, key.Date, key.Location).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return reconcile.Stored{}, reconcile.ErrNotFound
	}
	if err != nil {
		return reconcile.Stored{}, fmt.Errorf("find match %s: %w", key, err)
	}
	return row.toStored()
}

func (s *MatchStore) Insert(ctx context.Context, match reconcile.Stored) (reconcile.Stored, error) {
	if err := s.ready(); err != nil {
		return reconcile.Stored{}, err
	}

	row := matchFromStored(match)
	if err := s.pool.gdb.WithContext(ctx).Create(&row).Error; err != nil {
		return reconcile.Stored{}, fmt.Errorf("insert match %s: %w", match.Key(), err)
	}
	match.ID = row.MatchUUID
	return match, nil
}

func (s *MatchStore) Update(ctx context.Context, id string, patch reconcile.Patch) error {
	if err := s.ready(); err != nil {
		return err
	}
	columns := patchColumns(patch)
	if len(columns) == 0 {
		return nil
	}

	res := s.pool.gdb.WithContext(ctx).
		Model(&Match{}).
		Where("match_uuid = ?", id).
		Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("update match %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return reconcile.ErrNotFound
	}
	return nil
}

func (s *MatchStore) ListOpen(ctx context.Context) ([]reconcile.Stored, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var rows []Match
	err := s.pool.gdb.WithContext(ctx).
		Where("registration_status <> ?", string(record.StatusClosed)).
		Order("match_date ASC, match_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list open matches: %w", err)
	}

	out := make([]reconcile.Stored, 0, len(rows))
	for _, row := range rows {
		stored, err := row.toStored()
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (s *MatchStore) ready() error {
	if s == nil || s.pool == nil || s.pool.gdb == nil {
		return fmt.Errorf("match store is not initialized")
	}
	return nil
}

func (m Match) toStored() (reconcile.Stored, error) {
	date, err := time.Parse(record.DateLayout, m.MatchDate)
	if err != nil {
		return reconcile.Stored{}, fmt.Errorf("match %s has invalid date %q: %w", m.MatchUUID, m.MatchDate, err)
	}
	return reconcile.Stored{
		ID:                 m.MatchUUID,
		OrganizerKey:       m.OrganizerKey,
		LocationKey:        m.LocationKey,
		Date:               date,
		Organizer:          m.Organizer,
		Location:           m.Location,
		Type:               m.Type,
		RegistrationText:   m.RegistrationText,
		RegistrationStatus: record.RegistrationState(m.RegistrationStatus),
		OpensAt:            utcPtr(m.OpensAt),
		Remark:             m.Remark,
		SourceCalendarID:   m.SourceCalendarID,
		LastUpdated:        m.LastUpdated.UTC(),
	}, nil
}

func matchFromStored(s reconcile.Stored) Match {
	lastUpdated := s.LastUpdated.UTC()
	return Match{
		MatchUUID:          s.ID,
		OrganizerKey:       s.OrganizerKey,
		MatchDate:          s.Date.Format(record.DateLayout),
		LocationKey:        s.LocationKey,
		Organizer:          s.Organizer,
		Location:           s.Location,
		Type:               s.Type,
		RegistrationText:   s.RegistrationText,
		RegistrationStatus: string(s.RegistrationStatus),
		OpensAt:            utcPtr(s.OpensAt),
		Remark:             s.Remark,
		SourceCalendarID:   s.SourceCalendarID,
		CreatedAt:          lastUpdated,
		LastUpdated:        lastUpdated,
	}
}

func patchColumns(p reconcile.Patch) map[string]any {
	columns := make(map[string]any, 9)
	if p.Organizer != nil {
		columns["organizer"] = *p.Organizer
	}
	if p.Location != nil {
		columns["location"] = *p.Location
	}
	if p.Type != nil {
		columns["type"] = *p.Type
	}
	if p.RegistrationText != nil {
		columns["registration_text"] = *p.RegistrationText
	}
	if p.RegistrationStatus != nil {
		columns["registration_status"] = string(*p.RegistrationStatus)
	}
	if p.OpensAt != nil {
		columns["opens_at"] = utcPtr(*p.OpensAt)
	}
	if p.Remark != nil {
		columns["remark"] = *p.Remark
	}
	if p.SourceCalendarID != nil {
		columns["source_calendar_id"] = *p.SourceCalendarID
	}
	if p.LastUpdated != nil {
		columns["last_updated"] = p.LastUpdated.UTC()
	}
	return columns
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
