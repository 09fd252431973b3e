package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// unlockScript deletes the lock only while we still own it.
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// StateStore mirrors live session state into Redis and guards session
// ownership with a per-session lock.
type StateStore struct {
	redis    *redis.Client
	stateTTL time.Duration
	lockTTL  time.Duration
	logger   zerolog.Logger
}

// NewStateStore creates a state store backed by Redis.
func NewStateStore(client *redis.Client, stateTTL, lockTTL time.Duration, logger zerolog.Logger) *StateStore {
	return &StateStore{
		redis:    client,
		stateTTL: stateTTL,
		lockTTL:  lockTTL,
		logger:   logger,
	}
}

func stateKey(sessionID string) string { return fmt.Sprintf("session:state:%s", sessionID) }
func lockKey(sessionID string) string  { return fmt.Sprintf("session:lock:%s", sessionID) }

// Lock claims the session for this instance. The returned func releases it.
func (s *StateStore) Lock(ctx context.Context, sessionID string) (func(context.Context) error, error) {
	key := lockKey(sessionID)
	owner := uuid.New().String()

	acquired, err := s.redis.SetNX(ctx, key, owner, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrSessionLocked
	}

	unlock := func(ctx context.Context) error {
		return s.redis.Eval(ctx, unlockScript, []string{key}, owner).Err()
	}
	return unlock, nil
}

// SaveSnapshot stores the latest externally visible state of a session.
func (s *StateStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.redis.Set(ctx, stateKey(snap.SessionID), data, s.stateTTL).Err()
}

// LoadSnapshot returns nil without error when nothing is stored.
func (s *StateStore) LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, stateKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete drops the mirrored state of a session.
func (s *StateStore) Delete(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, stateKey(sessionID)).Err()
}
