package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
	"github.com/gokatarajesh/classroom-quiz/internal/metrics"
)

// QuestionSource loads the ordered question list of a session.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, sessionID string) ([]Question, error)
}

// QuizDirectory answers who owns the quiz behind a session.
type QuizDirectory interface {
	QuizOwner(ctx context.Context, sessionID string) (uuid.UUID, error)
}

// Store is the shared state a manager needs: ownership locks and the mirror.
type Store interface {
	StateMirror
	Lock(ctx context.Context, sessionID string) (func(context.Context) error, error)
	LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

type liveSession struct {
	coord  *Coordinator
	unlock func(context.Context) error
}

// Manager is the registry of live sessions held by this instance.
type Manager struct {
	backend   Backend
	questions QuestionSource
	quizzes   QuizDirectory
	store     Store
	publisher Publisher
	opts      Options
	base      zerolog.Logger
	logger    zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// NewManager wires a session registry.
func NewManager(backend Backend, questions QuestionSource, quizzes QuizDirectory, store Store, publisher Publisher, opts Options, logger zerolog.Logger) *Manager {
	return &Manager{
		backend:   backend,
		questions: questions,
		quizzes:   quizzes,
		store:     store,
		publisher: publisher,
		opts:      opts,
		base:      logger,
		logger:    logger.With().Str("component", "session_manager").Logger(),
		sessions:  make(map[string]*liveSession),
	}
}

// Open claims a session for this instance and puts it in the lobby. Opening a
// session the same professor already has open returns the live coordinator.
func (m *Manager) Open(ctx context.Context, sessionID string, professorID uuid.UUID) (*Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if live, ok := m.sessions[sessionID]; ok {
		if live.coord.ProfessorID() != professorID {
			return nil, ErrSessionExists
		}
		return live.coord, nil
	}

	owner, err := m.quizzes.QuizOwner(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if owner != professorID {
		return nil, ErrNotProfessor
	}

	unlock, err := m.store.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	questions, err := m.questions.FetchQuestions(ctx, sessionID)
	if err != nil {
		m.release(ctx, sessionID, unlock)
		metrics.BackendErrors.WithLabelValues("fetch_questions").Inc()
		return nil, fmt.Errorf("fetch questions: %w", err)
	}

	if err := m.backend.OpenLobby(ctx, sessionID); err != nil {
		m.release(ctx, sessionID, unlock)
		if errors.Is(err, ErrSessionEnded) {
			return nil, err
		}
		metrics.BackendErrors.WithLabelValues("open_lobby").Inc()
		return nil, fmt.Errorf("open lobby: %w", err)
	}

	coord := NewCoordinator(sessionID, professorID, questions, m.backend, m.publisher, m.store, m.opts, m.base)
	m.sessions[sessionID] = &liveSession{coord: coord, unlock: unlock}
	metrics.SessionsOpen.Inc()

	if err := m.store.SaveSnapshot(ctx, coord.Snapshot()); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("mirror new session failed")
	}

	m.logger.Info().
		Str("session_id", sessionID).
		Str("professor_id", professorID.String()).
		Int("questions", len(questions)).
		Msg("session opened")

	return coord, nil
}

// Get returns the live coordinator of a session.
func (m *Manager) Get(sessionID string) (*Coordinator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	live, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return live.coord, nil
}

// Live returns the coordinators held by this instance ordered by session id.
func (m *Manager) Live() []*Coordinator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Coordinator, 0, len(m.sessions))
	for _, live := range m.sessions {
		out = append(out, live.coord)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// LiveStandings returns the current ranking of a session held by this instance.
func (m *Manager) LiveStandings(sessionID string) ([]leaderboard.Standing, bool) {
	coord, err := m.Get(sessionID)
	if err != nil {
		return nil, false
	}
	return coord.Standings(), true
}

// LiveSessions maps every held session to its current ranking.
func (m *Manager) LiveSessions() map[string][]leaderboard.Standing {
	live := m.Live()
	out := make(map[string][]leaderboard.Standing, len(live))
	for _, coord := range live {
		out[coord.ID()] = coord.Standings()
	}
	return out
}

// Snapshot reads the live state, falling back to the Redis mirror for
// sessions held by another instance.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	if coord, err := m.Get(sessionID); err == nil {
		return coord.Snapshot(), nil
	}
	snap, err := m.store.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if snap == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	return *snap, nil
}

// Dismiss ends and destroys a session on behalf of its professor.
func (m *Manager) Dismiss(ctx context.Context, sessionID string, actorID uuid.UUID) error {
	m.mu.Lock()
	live, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if err := live.coord.Dismiss(ctx, actorID); err != nil {
		m.mu.Unlock()
		return err
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	metrics.SessionsOpen.Dec()
	if err := m.store.Delete(ctx, sessionID); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("delete session state failed")
	}
	m.release(ctx, sessionID, live.unlock)

	m.logger.Info().Str("session_id", sessionID).Msg("session destroyed")
	return nil
}

// Shutdown stops every session timer and releases the locks. Mirrored state
// is left in Redis so clients can still read where their session stopped.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*liveSession)
	m.mu.Unlock()

	for id, live := range sessions {
		live.coord.Close()
		metrics.SessionsOpen.Dec()
		m.release(ctx, id, live.unlock)
	}
	m.logger.Info().Int("sessions", len(sessions)).Msg("session manager stopped")
}

func (m *Manager) release(ctx context.Context, sessionID string, unlock func(context.Context) error) {
	if err := unlock(ctx); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("release session lock failed")
	}
}
