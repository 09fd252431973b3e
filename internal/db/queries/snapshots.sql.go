package queries

import (
	"context"
)

const insertLeaderboardSnapshot = `
INSERT INTO leaderboard_snapshots (session_id, standings)
VALUES ($1, $2)
`

type InsertLeaderboardSnapshotParams struct {
	SessionID string `json:"session_id"`
	Standings []byte `json:"standings"`
}

func (q *Queries) InsertLeaderboardSnapshot(ctx context.Context, arg InsertLeaderboardSnapshotParams) error {
	_, err := q.db.Exec(ctx, insertLeaderboardSnapshot, arg.SessionID, arg.Standings)
	return err
}

const latestLeaderboardSnapshot = `
SELECT snapshot_id, session_id, standings, captured_at
FROM leaderboard_snapshots
WHERE session_id = $1
ORDER BY captured_at DESC, snapshot_id DESC
LIMIT 1
`

func (q *Queries) LatestLeaderboardSnapshot(ctx context.Context, sessionID string) (LeaderboardSnapshot, error) {
	row := q.db.QueryRow(ctx, latestLeaderboardSnapshot, sessionID)
	var i LeaderboardSnapshot
	err := row.Scan(
		&i.SnapshotID,
		&i.SessionID,
		&i.Standings,
		&i.CapturedAt,
	)
	return i, err
}
