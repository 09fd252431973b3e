package leaderboard

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/classroom-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/classroom-quiz/pkg/http/ws"
)

// LiveSource recomputes standings of sessions held in memory.
type LiveSource interface {
	LiveStandings(sessionID string) ([]Standing, bool)
}

// PersistedSource reads standings from the database.
type PersistedSource interface {
	Standings(ctx context.Context, sessionID string) ([]Standing, error)
}

// SnapshotSource reads the latest periodic capture.
type SnapshotSource interface {
	Latest(ctx context.Context, sessionID string) ([]Standing, time.Time, error)
}

// HTTPHandler exposes the leaderboard of a session over REST.
type HTTPHandler struct {
	live      LiveSource
	persisted PersistedSource
	snapshots SnapshotSource
	logger    zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler. Any source may be nil.
func NewHTTPHandler(live LiveSource, persisted PersistedSource, snapshots SnapshotSource, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		live:      live,
		persisted: persisted,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// Response is the body of GET /v1/sessions/{id}/leaderboard.
type Response struct {
	SessionID     string                `json:"session_id"`
	Top           []ws.LeaderboardEntry `json:"top"`
	ClassAccuracy float64               `json:"class_accuracy"`
	Source        string                `json:"source"`
	RetrievedAt   string                `json:"retrievedAt"`
}

// HandleGet responds with the session leaderboard: the live recompute when
// this instance holds the session, else the database, else the last snapshot.
// Route: GET /v1/sessions/{id}/leaderboard?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "session id required", "id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	standings, source := h.lookup(r.Context(), sessionID)
	classAccuracy := ClassAccuracy(standings)
	if limit > 0 && len(standings) > limit {
		standings = standings[:limit]
	}

	httperrors.RespondJSON(w, http.StatusOK, Response{
		SessionID:     sessionID,
		Top:           ToWSEntries(standings),
		ClassAccuracy: classAccuracy,
		Source:        source,
		RetrievedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HTTPHandler) lookup(ctx context.Context, sessionID string) ([]Standing, string) {
	if h.live != nil {
		if standings, ok := h.live.LiveStandings(sessionID); ok {
			return standings, "live"
		}
	}

	if h.persisted != nil {
		standings, err := h.persisted.Standings(ctx, sessionID)
		if err == nil && len(standings) > 0 {
			return standings, "database"
		}
		if err != nil {
			h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("persisted leaderboard fetch failed")
		}
	}

	if h.snapshots != nil {
		standings, _, err := h.snapshots.Latest(ctx, sessionID)
		if err != nil {
			h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("snapshot fetch failed")
		} else if len(standings) > 0 {
			return standings, "snapshot"
		}
	}

	return []Standing{}, "empty"
}
