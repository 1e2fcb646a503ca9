package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/jachtproef/internal/db"
	"horse.fit/jachtproef/internal/globaltime"
	"horse.fit/jachtproef/internal/pipeline"
	"horse.fit/jachtproef/internal/record"
)

const (
	defaultMatchLimit = 100
	maxMatchLimit     = 500
	defaultRunLimit   = 20
	maxRunLimit       = 200
)

var validStatuses = map[string]struct{}{
	string(record.StatusOpen):    {},
	string(record.StatusOpensAt): {},
	string(record.StatusClosed):  {},
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "jachtproef",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleMatches(c echo.Context) error {
	fieldErrors := make(map[string]string)

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultMatchLimit, 1, maxMatchLimit)
	if err != nil {
		fieldErrors["limit"] = err.Error()
	}
	offset, err := parsePositiveInt(c.QueryParam("offset"), 0, 0, 1_000_000)
	if err != nil {
		fieldErrors["offset"] = err.Error()
	}
	from, err := parseDateFilter(c.QueryParam("from"))
	if err != nil {
		fieldErrors["from"] = err.Error()
	}
	to, err := parseDateFilter(c.QueryParam("to"))
	if err != nil {
		fieldErrors["to"] = err.Error()
	}
	if from != "" && to != "" && from > to {
		fieldErrors["date_range"] = "from must be <= to"
	}
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	if status != "" {
		if _, ok := validStatuses[status]; !ok {
			fieldErrors["status"] = "must be open, opens_at or closed"
		}
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	opts := db.MatchListOptions{
		Status:   status,
		Type:     strings.TrimSpace(c.QueryParam("type")),
		Calendar: strings.TrimSpace(c.QueryParam("calendar")),
		From:     from,
		To:       to,
		Limit:    limit,
		Offset:   offset,
	}
	items, err := s.reader.ListMatches(c.Request().Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("query matches failed")
		return internalError(c, "Failed to load matches")
	}

	return success(c, map[string]any{
		"items": items,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(items),
		},
		"filters": map[string]any{
			"status":   opts.Status,
			"type":     opts.Type,
			"calendar": opts.Calendar,
			"from":     opts.From,
			"to":       opts.To,
		},
	})
}

func (s *Server) handleMatchDetail(c echo.Context) error {
	matchUUID := strings.TrimSpace(c.Param("match_uuid"))
	if matchUUID == "" {
		return failValidation(c, map[string]string{"match_uuid": "is required"})
	}

	item, err := s.reader.GetMatch(c.Request().Context(), matchUUID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Match not found")
		}
		s.logger.Error().Err(err).Str("match_uuid", matchUUID).Msg("query match failed")
		return internalError(c, "Failed to load match")
	}
	return success(c, item)
}

func (s *Server) handleRuns(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultRunLimit, 1, maxRunLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	runs, err := s.reader.ListRuns(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query sync runs failed")
		return internalError(c, "Failed to load sync runs")
	}
	return success(c, map[string]any{
		"items": runs,
		"limit": limit,
	})
}

func (s *Server) handleTriggerRun(c echo.Context) error {
	if s.runner == nil {
		return fail(c, http.StatusServiceUnavailable, "Sync runner is not configured", nil)
	}

	// The run outlives a client that hangs up.
	ctx := context.WithoutCancel(c.Request().Context())
	summary, err := s.runner.Run(ctx, "api")
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			return failConflict(c, "A sync run is already in progress")
		}
		s.logger.Error().Err(err).Str("run_uuid", summary.RunUUID).Msg("api sync run failed")
		return errorWithData(c, "Sync run failed", summary)
	}
	return success(c, summary)
}
