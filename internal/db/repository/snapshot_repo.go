package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/classroom-quiz/internal/db/queries"
	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
)

type snapshotStore interface {
	InsertLeaderboardSnapshot(ctx context.Context, arg queries.InsertLeaderboardSnapshotParams) error
	LatestLeaderboardSnapshot(ctx context.Context, sessionID string) (queries.LeaderboardSnapshot, error)
}

// SnapshotRepository stores periodic leaderboard captures.
type SnapshotRepository struct {
	store snapshotStore
}

func NewSnapshotRepository(store snapshotStore) *SnapshotRepository {
	return &SnapshotRepository{store: store}
}

// Save records the standings of a session as of now.
func (r *SnapshotRepository) Save(ctx context.Context, sessionID string, standings []leaderboard.Standing) error {
	payload, err := json.Marshal(standings)
	if err != nil {
		return fmt.Errorf("marshal standings: %w", err)
	}
	return r.store.InsertLeaderboardSnapshot(ctx, queries.InsertLeaderboardSnapshotParams{
		SessionID: sessionID,
		Standings: payload,
	})
}

// Latest returns the most recent capture. A session without one yields no
// standings and a zero time.
func (r *SnapshotRepository) Latest(ctx context.Context, sessionID string) ([]leaderboard.Standing, time.Time, error) {
	row, err := r.store.LatestLeaderboardSnapshot(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var standings []leaderboard.Standing
	if err := json.Unmarshal(row.Standings, &standings); err != nil {
		return nil, time.Time{}, fmt.Errorf("unmarshal standings: %w", err)
	}
	return standings, row.CapturedAt.Time, nil
}
