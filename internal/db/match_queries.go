package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const maxMatchListLimit = 500

// MatchListOptions filters the match listing. Empty fields do not filter.
type MatchListOptions struct {
	Status   string
	Type     string
	Calendar string
	From     string
	To       string
	Limit    int
	Offset   int
}

// MatchView is the read model served by the API and the CLI.
type MatchView struct {
	MatchUUID          string     `json:"match_uuid"`
	Date               string     `json:"date"`
	Organizer          string     `json:"organizer"`
	Location           string     `json:"location"`
	Type               string     `json:"type"`
	RegistrationText   string     `json:"registration_text"`
	RegistrationStatus string     `json:"registration_status"`
	OpensAt            *time.Time `json:"opens_at,omitempty"`
	Remark             string     `json:"remark,omitempty"`
	SourceCalendarID   string     `json:"source_calendar_id"`
	CreatedAt          time.Time  `json:"created_at"`
	LastUpdated        time.Time  `json:"last_updated"`
}

const matchViewColumns = `
	m.match_uuid,
	m.match_date,
	m.organizer,
	m.location,
	m.type,
	m.registration_text,
	m.registration_status,
	m.opens_at,
	m.remark,
	m.source_calendar_id,
	m.created_at,
	m.last_updated
`

// ListMatches lists matches in calendar order.
func (p *Pool) ListMatches(ctx context.Context, opts MatchListOptions) ([]MatchView, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	if opts.Limit > maxMatchListLimit {
		opts.Limit = maxMatchListLimit
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("offset must be >= 0")
	}

	where := make([]string, 0, 5)
	args := make([]any, 0, 7)
	if status := strings.ToLower(strings.TrimSpace(opts.Status)); status != "" {
		where = append(where, "m.registration_status = ?")
		args = append(args, status)
	}
	if typ := strings.TrimSpace(opts.Type); typ != "" {
		where = append(where, "m.type = ?")
		args = append(args, typ)
	}
	if calendar := strings.TrimSpace(opts.Calendar); calendar != "" {
		where = append(where, "m.source_calendar_id = ?")
		args = append(args, calendar)
	}
	if from := strings.TrimSpace(opts.From); from != "" {
		where = append(where, "m.match_date >= ?")
		args = append(args, from)
	}
	if to := strings.TrimSpace(opts.To); to != "" {
		where = append(where, "m.match_date <= ?")
		args = append(args, to)
	}

	q := "SELECT" + matchViewColumns + "FROM matches m\n"
	if len(where) > 0 {
		q += "WHERE " + strings.Join(where, "\n  AND ") + "\n"
	}
	q += "ORDER BY m.match_date ASC, m.match_id ASC\nLIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := p.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchView, 0, min(opts.Limit, 64))
	for rows.Next() {
		item, err := scanMatchView(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match rows: %w", err)
	}
	return items, nil
}

// GetMatch returns one match by UUID, or ErrNoRows.
func (p *Pool) GetMatch(ctx context.Context, matchUUID string) (*MatchView, error) {
	trimmed := strings.TrimSpace(matchUUID)
	if trimmed == "" {
		return nil, fmt.Errorf("match UUID is required")
	}

	q := "SELECT" + matchViewColumns + "FROM matches m\nWHERE m.match_uuid = ?"
	item, err := scanMatchView(p.QueryRow(ctx, q, trimmed))
	if err != nil {
		return nil, err
	}
	return &item, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatchView(row scanner) (MatchView, error) {
	var item MatchView
	if err := row.Scan(
		&item.MatchUUID,
		&item.Date,
		&item.Organizer,
		&item.Location,
		&item.Type,
		&item.RegistrationText,
		&item.RegistrationStatus,
		&item.OpensAt,
		&item.Remark,
		&item.SourceCalendarID,
		&item.CreatedAt,
		&item.LastUpdated,
	); err != nil {
		if IsNoRows(err) {
			return MatchView{}, err
		}
		return MatchView{}, fmt.Errorf("scan match row: %w", err)
	}
	item.OpensAt = utcPtr(item.OpensAt)
	item.CreatedAt = item.CreatedAt.UTC()
	item.LastUpdated = item.LastUpdated.UTC()
	return item, nil
}
