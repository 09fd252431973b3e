package leaderboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// LiveLister enumerates sessions held in memory with their current standings.
type LiveLister interface {
	LiveSessions() map[string][]Standing
}

// SnapshotStore persists a leaderboard capture.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, standings []Standing) error
}

// SnapshotWorker periodically persists live session leaderboards into Postgres.
type SnapshotWorker struct {
	live     LiveLister
	store    SnapshotStore
	logger   zerolog.Logger
	interval time.Duration

	lastHash map[string]string
}

func NewSnapshotWorker(live LiveLister, store SnapshotStore, interval time.Duration, logger zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SnapshotWorker{
		live:     live,
		store:    store,
		logger:   logger.With().Str("component", "leaderboard_snapshot_worker").Logger(),
		interval: interval,
		lastHash: make(map[string]string),
	}
}

// Run blocks until context cancellation.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	if w.live == nil || w.store == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SnapshotWorker) tick(ctx context.Context) {
	sessions := w.live.LiveSessions()
	for sessionID, standings := range sessions {
		if err := w.snapshotSession(ctx, sessionID, standings); err != nil {
			w.logger.Warn().Err(err).Str("session_id", sessionID).Msg("snapshot failed")
		}
	}
	for sessionID := range w.lastHash {
		if _, ok := sessions[sessionID]; !ok {
			delete(w.lastHash, sessionID)
		}
	}
}

// snapshotSession skips captures identical to the previous one.
func (w *SnapshotWorker) snapshotSession(ctx context.Context, sessionID string, standings []Standing) error {
	if len(standings) == 0 {
		return nil
	}

	data, err := json.Marshal(standings)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if w.lastHash[sessionID] == hash {
		return nil
	}

	if err := w.store.Save(ctx, sessionID, standings); err != nil {
		return err
	}
	w.lastHash[sessionID] = hash

	w.logger.Info().
		Str("session_id", sessionID).
		Int("entries", len(standings)).
		Msg("leaderboard snapshot persisted")

	return nil
}
