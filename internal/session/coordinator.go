package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/classroom-quiz/internal/events"
	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
	"github.com/gokatarajesh/classroom-quiz/internal/metrics"
	ws "github.com/gokatarajesh/classroom-quiz/pkg/http/ws"
)

// Quiz statuses written to the backend as the session moves along.
const (
	QuizStatusInLobby  = "in lobby"
	QuizStatusActive   = "active"
	QuizStatusArchived = "archived"
)

// Backend is the durable store behind a live session.
type Backend interface {
	JoinRoom(ctx context.Context, sessionID string, participantID uuid.UUID, profile Profile, displayName string) (bool, error)
	LeaveRoom(ctx context.Context, sessionID string, participantID uuid.UUID) (bool, error)
	SubmitAnswer(ctx context.Context, sessionID string, rec AnswerRecord) (bool, error)
	UpdateLeaderboard(ctx context.Context, sessionID string, participantID uuid.UUID, profile Profile, score, correctCount, wrongCount int) ([]leaderboard.Standing, error)
	SendEndGame(ctx context.Context, sessionID string) (bool, error)
	SetQuizStatus(ctx context.Context, sessionID, status string) error
	// OpenLobby starts a new run of the quiz, discarding rows of an earlier
	// run. It returns ErrSessionEnded for an archived quiz.
	OpenLobby(ctx context.Context, sessionID string) error
}

// Publisher is the real-time channel events go out on.
type Publisher interface {
	Publish(evt events.Event) error
}

// StateMirror receives a snapshot after every state change.
type StateMirror interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
}

// Options tune timing and grading of a coordinator.
type Options struct {
	TickInterval           time.Duration
	RevealDelay            time.Duration
	MatchPolicy            MatchPolicy
	AdvanceWhenAllAnswered bool
	BackendTimeout         time.Duration
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.RevealDelay <= 0 {
		o.RevealDelay = 5 * time.Second
	}
	if o.MatchPolicy == "" {
		o.MatchPolicy = MatchExact
	}
	if o.BackendTimeout <= 0 {
		o.BackendTimeout = 5 * time.Second
	}
	return o
}

// Coordinator owns the phase state machine of one live session.
type Coordinator struct {
	id          string
	professorID uuid.UUID
	questions   []Question
	opts        Options

	backend   Backend
	publisher Publisher
	mirror    StateMirror
	logger    zerolog.Logger

	mu           sync.Mutex
	emitMu       sync.Mutex
	phase        Phase
	index        int
	participants map[uuid.UUID]*Participant
	departed     map[uuid.UUID]*Participant
	kicked       map[uuid.UUID]struct{}
	nextSeq      int
	tracker      *Tracker
	countdown    *Countdown
	revealGen    uint64
	revealTimer  *time.Timer
	updatedAt    time.Time
	closed       bool
}

// NewCoordinator creates a session in the lobby phase. Questions are copied.
func NewCoordinator(id string, professorID uuid.UUID, questions []Question, backend Backend, publisher Publisher, mirror StateMirror, opts Options, logger zerolog.Logger) *Coordinator {
	opts = opts.withDefaults()
	qs := make([]Question, len(questions))
	copy(qs, questions)
	for i := range qs {
		qs[i].Distractors = append([]string(nil), questions[i].Distractors...)
	}

	return &Coordinator{
		id:           id,
		professorID:  professorID,
		questions:    qs,
		opts:         opts,
		backend:      backend,
		publisher:    publisher,
		mirror:       mirror,
		logger:       logger.With().Str("component", "session").Str("session_id", id).Logger(),
		phase:        PhaseLobby,
		participants: make(map[uuid.UUID]*Participant),
		departed:     make(map[uuid.UUID]*Participant),
		kicked:       make(map[uuid.UUID]struct{}),
		tracker:      NewTracker(opts.MatchPolicy),
		countdown:    NewCountdown(opts.TickInterval),
		updatedAt:    time.Now().UTC(),
	}
}

// ID returns the session id.
func (c *Coordinator) ID() string { return c.id }

// ProfessorID returns the owner of the session.
func (c *Coordinator) ProfessorID() uuid.UUID { return c.professorID }

// Join adds a participant in the lobby, or restores a known participant in any
// phase before the end. Joining twice is a no-op that reports the current state.
func (c *Coordinator) Join(ctx context.Context, profile Profile) (ResumeState, error) {
	c.mu.Lock()
	if c.phase == PhaseEnded || c.closed {
		c.mu.Unlock()
		return ResumeState{}, ErrSessionEnded
	}
	if _, kicked := c.kicked[profile.ID]; kicked {
		c.mu.Unlock()
		return ResumeState{}, ErrKicked
	}
	if _, active := c.participants[profile.ID]; active {
		state := c.resumeLocked(profile.ID)
		c.mu.Unlock()
		return state, nil
	}

	prior, rejoining := c.departed[profile.ID]
	if !rejoining && c.phase != PhaseLobby {
		c.mu.Unlock()
		return ResumeState{}, ErrJoinClosed
	}

	if _, err := c.backend.JoinRoom(ctx, c.id, profile.ID, profile, profile.DisplayName); err != nil {
		c.mu.Unlock()
		metrics.BackendErrors.WithLabelValues("join_room").Inc()
		return ResumeState{}, fmt.Errorf("join room: %w", err)
	}

	var p *Participant
	if rejoining {
		p = prior
		delete(c.departed, profile.ID)
		if profile.DisplayName != "" {
			p.DisplayName = profile.DisplayName
		}
		if profile.Avatar != "" {
			p.Avatar = profile.Avatar
		}
	} else {
		p = &Participant{Profile: profile, JoinSeq: c.nextSeq, JoinedAt: time.Now().UTC()}
		c.nextSeq++
	}
	c.participants[p.ID] = p
	c.touchLocked()

	c.logger.Info().
		Str("participant_id", p.ID.String()).
		Str("display_name", p.DisplayName).
		Bool("rejoined", rejoining).
		Msg("participant joined session")

	evts := []events.Event{
		c.eventLocked(events.KindRoster, ws.TypeParticipantJoined, ws.ParticipantJoinedPayload{
			SessionID:   c.id,
			Participant: ws.Participant{ParticipantID: p.ID.String(), DisplayName: p.DisplayName, Avatar: p.Avatar},
			Rejoined:    rejoining,
			Count:       len(c.participants),
		}),
		c.leaderboardEventLocked(),
	}
	state := c.resumeLocked(p.ID)
	c.emitAndUnlock(evts)
	return state, nil
}

// Leave removes a participant from the active set. Their score is retained so
// a later Join restores it.
func (c *Coordinator) Leave(ctx context.Context, participantID uuid.UUID) error {
	c.mu.Lock()
	p, ok := c.participants[participantID]
	if !ok {
		c.mu.Unlock()
		return ErrParticipantNotFound
	}
	if _, err := c.backend.LeaveRoom(ctx, c.id, participantID); err != nil {
		c.mu.Unlock()
		metrics.BackendErrors.WithLabelValues("leave_room").Inc()
		return fmt.Errorf("leave room: %w", err)
	}

	delete(c.participants, participantID)
	c.departed[participantID] = p
	c.touchLocked()

	c.logger.Info().Str("participant_id", participantID.String()).Msg("participant left session")

	evts := []events.Event{
		c.eventLocked(events.KindRoster, ws.TypeParticipantLeft, ws.ParticipantLeftPayload{
			SessionID:     c.id,
			ParticipantID: participantID.String(),
			Count:         len(c.participants),
		}),
		c.leaderboardEventLocked(),
	}
	evts = append(evts, c.maybeRevealLocked()...)
	c.emitAndUnlock(evts)
	return nil
}

// Start moves the lobby to the first question. Only the professor may start.
func (c *Coordinator) Start(ctx context.Context, actorID uuid.UUID) error {
	c.mu.Lock()
	if actorID != c.professorID {
		c.mu.Unlock()
		return ErrNotProfessor
	}
	if c.phase != PhaseLobby {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(c.questions) == 0 {
		c.mu.Unlock()
		return ErrNoQuestions
	}
	if err := c.backend.SetQuizStatus(ctx, c.id, QuizStatusActive); err != nil {
		c.mu.Unlock()
		metrics.BackendErrors.WithLabelValues("set_quiz_status").Inc()
		return fmt.Errorf("mark quiz active: %w", err)
	}

	c.logger.Info().Int("participants", len(c.participants)).Int("questions", len(c.questions)).Msg("game started")

	evts := []events.Event{
		c.eventLocked(events.KindGame, ws.TypeGameStarted, ws.GameStartedPayload{
			SessionID:     c.id,
			QuestionCount: len(c.questions),
			StartedAt:     time.Now().UTC().Format(time.RFC3339),
		}),
	}
	evts = append(evts, c.beginQuestionLocked(0)...)
	c.emitAndUnlock(evts)
	return nil
}

// Submit records the participant's answer to the active question. A repeated
// submission is not an error: it returns Accepted=false and leaves the first
// result untouched.
func (c *Coordinator) Submit(ctx context.Context, participantID, questionID uuid.UUID, value string) (SubmitResult, error) {
	c.mu.Lock()
	if c.phase != PhaseInProgress {
		c.mu.Unlock()
		return SubmitResult{}, ErrNotAcceptingAnswers
	}
	p, ok := c.participants[participantID]
	if !ok {
		c.mu.Unlock()
		if _, kicked := c.kicked[participantID]; kicked {
			return SubmitResult{}, ErrKicked
		}
		return SubmitResult{}, ErrParticipantNotFound
	}
	q := c.questions[c.index]
	if q.ID != questionID {
		c.mu.Unlock()
		return SubmitResult{}, ErrQuestionMismatch
	}

	rec, fresh := c.tracker.Record(q, participantID, value, time.Now().UTC())
	if !fresh {
		result := SubmitResult{Accepted: false, Correct: rec.Correct, Score: p.Score, LeaderboardSynced: true}
		c.mu.Unlock()
		metrics.Answers.WithLabelValues("duplicate").Inc()
		return result, nil
	}

	stored, err := c.backend.SubmitAnswer(ctx, c.id, rec)
	if err != nil {
		c.tracker.Forget(q.ID, participantID)
		c.mu.Unlock()
		metrics.BackendErrors.WithLabelValues("submit_answer").Inc()
		return SubmitResult{}, fmt.Errorf("submit answer: %w", err)
	}
	if !stored {
		result := SubmitResult{Accepted: false, Score: p.Score, LeaderboardSynced: true}
		c.mu.Unlock()
		metrics.Answers.WithLabelValues("duplicate").Inc()
		return result, nil
	}

	c.applyLocked(p, q, rec)
	synced := c.syncLeaderboardLocked(ctx, p)

	result := SubmitResult{
		Accepted:          true,
		Correct:           rec.Correct,
		PointsAwarded:     rec.Points,
		Score:             p.Score,
		LeaderboardSynced: synced,
	}

	c.logger.Debug().
		Str("participant_id", participantID.String()).
		Int("question_index", c.index).
		Bool("correct", rec.Correct).
		Msg("answer recorded")

	evts := []events.Event{c.leaderboardEventLocked()}
	evts = append(evts, c.maybeRevealLocked()...)
	c.emitAndUnlock(evts)
	return result, nil
}

// Kick removes a participant immediately regardless of phase and bars them
// from rejoining. Other participants are untouched.
func (c *Coordinator) Kick(ctx context.Context, actorID, participantID uuid.UUID) error {
	c.mu.Lock()
	if actorID != c.professorID {
		c.mu.Unlock()
		return ErrNotProfessor
	}
	_, active := c.participants[participantID]
	_, departed := c.departed[participantID]
	if !active && !departed {
		c.mu.Unlock()
		return ErrParticipantNotFound
	}
	if _, err := c.backend.LeaveRoom(ctx, c.id, participantID); err != nil {
		c.mu.Unlock()
		metrics.BackendErrors.WithLabelValues("leave_room").Inc()
		return fmt.Errorf("kick participant: %w", err)
	}

	delete(c.participants, participantID)
	delete(c.departed, participantID)
	c.kicked[participantID] = struct{}{}
	c.touchLocked()
	metrics.Kicks.Inc()

	c.logger.Info().Str("participant_id", participantID.String()).Msg("participant kicked")

	kick := c.eventLocked(events.KindKick, ws.TypeKicked, ws.KickedPayload{
		SessionID:     c.id,
		ParticipantID: participantID.String(),
	}).ForParticipant(participantID.String())

	evts := []events.Event{
		kick,
		c.eventLocked(events.KindRoster, ws.TypeParticipantLeft, ws.ParticipantLeftPayload{
			SessionID:     c.id,
			ParticipantID: participantID.String(),
			Count:         len(c.participants),
		}),
		c.leaderboardEventLocked(),
	}
	evts = append(evts, c.maybeRevealLocked()...)
	c.emitAndUnlock(evts)
	return nil
}

// Dismiss tears the session down. A session that has not ended is ended first.
func (c *Coordinator) Dismiss(ctx context.Context, actorID uuid.UUID) error {
	c.mu.Lock()
	if actorID != c.professorID {
		c.mu.Unlock()
		return ErrNotProfessor
	}
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	var evts []events.Event
	if c.phase != PhaseEnded {
		evts = append(evts, c.endLocked(ctx)...)
	}
	c.closed = true
	c.stopTimersLocked()
	evts = append(evts, c.eventLocked(events.KindGame, ws.TypeSessionDismissed, ws.SessionDismissedPayload{SessionID: c.id}))

	c.logger.Info().Msg("session dismissed")
	c.emitAndUnlock(evts)
	return nil
}

// Close stops timers without publishing anything. Used on shutdown.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimersLocked()
}

// Standings recomputes the leaderboard of active participants.
func (c *Coordinator) Standings() []leaderboard.Standing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.standingsLocked()
}

// Snapshot returns the current externally visible state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Resume reports where a participant stands without joining them. The
// professor gets the same view without a standing.
func (c *Coordinator) Resume(participantID uuid.UUID) (ResumeState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if participantID == c.professorID {
		return c.resumeLocked(participantID), nil
	}
	if _, kicked := c.kicked[participantID]; kicked {
		return ResumeState{}, ErrKicked
	}
	_, active := c.participants[participantID]
	_, departed := c.departed[participantID]
	if !active && !departed {
		return ResumeState{}, ErrParticipantNotFound
	}
	return c.resumeLocked(participantID), nil
}

// Summary returns a participant's score, rank and answered-question review.
func (c *Coordinator) Summary(participantID uuid.UUID) (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.participants[participantID]
	if !ok {
		p, ok = c.departed[participantID]
	}
	if !ok {
		return Summary{}, ErrParticipantNotFound
	}

	rank := 0
	if s, found := leaderboard.Find(c.standingsLocked(), participantID); found {
		rank = s.Rank
	}
	return Summary{
		SessionID:     c.id,
		ParticipantID: p.ID,
		DisplayName:   p.DisplayName,
		Score:         p.Score,
		CorrectCount:  p.CorrectCount,
		WrongCount:    p.WrongCount,
		Accuracy:      p.Accuracy(),
		Rank:          rank,
		Review:        append([]ReviewItem(nil), p.Review...),
	}, nil
}

// Questions returns a copy of the question list.
func (c *Coordinator) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

func (c *Coordinator) beginQuestionLocked(i int) []events.Event {
	c.phase = PhaseInProgress
	c.index = i
	c.touchLocked()
	metrics.PhaseTransitions.WithLabelValues(string(PhaseInProgress)).Inc()

	q := c.questions[i]
	c.countdown.Start(q.TimeLimit, c.onTick(i), func() { c.timeUp(i) })

	c.logger.Info().Int("question_index", i).Int("time_limit", q.TimeLimit).Msg("question started")

	return []events.Event{
		c.eventLocked(events.KindGame, ws.TypeQuestionStarted, ws.QuestionStartedPayload{
			SessionID:     c.id,
			QuestionIndex: i,
			QuestionCount: len(c.questions),
			Question:      questionPayload(q),
		}),
	}
}

func (c *Coordinator) onTick(i int) func(int) {
	return func(remaining int) {
		c.mu.Lock()
		if c.closed || c.phase != PhaseInProgress || c.index != i {
			c.mu.Unlock()
			return
		}
		evt := c.eventLocked(events.KindTick, ws.TypeQuestionTick, ws.QuestionTickPayload{
			SessionID:        c.id,
			QuestionIndex:    i,
			RemainingSeconds: remaining,
		})
		c.emitAndUnlock([]events.Event{evt})
	}
}

// timeUp records an empty, wrong answer for everyone who did not answer
// question i, then reveals it.
func (c *Coordinator) timeUp(i int) {
	c.mu.Lock()
	if c.closed || c.phase != PhaseInProgress || c.index != i {
		c.mu.Unlock()
		return
	}

	q := c.questions[i]
	now := time.Now().UTC()
	for _, p := range c.activeByJoinLocked() {
		if c.tracker.Has(q.ID, p.ID) {
			continue
		}
		rec, _ := c.tracker.RecordTimeout(q, p.ID, now)
		c.persistTimeoutLocked(p, q, rec)
	}

	c.logger.Info().Int("question_index", i).Msg("question timed out")
	c.emitAndUnlock(c.revealLocked())
}

// persistTimeoutLocked stores one timed-out answer and scores it. Each
// participant gets its own backend deadline. A row the backend already holds
// is not scored again.
func (c *Coordinator) persistTimeoutLocked(p *Participant, q Question, rec AnswerRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.BackendTimeout)
	defer cancel()

	stored, err := c.backend.SubmitAnswer(ctx, c.id, rec)
	if err != nil {
		metrics.BackendErrors.WithLabelValues("submit_answer").Inc()
		c.logger.Warn().Err(err).Str("participant_id", p.ID.String()).Msg("persist timed-out answer failed")
	} else if !stored {
		metrics.Answers.WithLabelValues("duplicate").Inc()
		return
	}
	c.applyLocked(p, q, rec)
	c.syncLeaderboardLocked(ctx, p)
}

func (c *Coordinator) maybeRevealLocked() []events.Event {
	if !c.opts.AdvanceWhenAllAnswered || c.phase != PhaseInProgress || len(c.participants) == 0 {
		return nil
	}
	q := c.questions[c.index]
	for id := range c.participants {
		if !c.tracker.Has(q.ID, id) {
			return nil
		}
	}
	return c.revealLocked()
}

func (c *Coordinator) revealLocked() []events.Event {
	c.countdown.Stop()
	c.phase = PhaseReveal
	c.touchLocked()
	metrics.PhaseTransitions.WithLabelValues(string(PhaseReveal)).Inc()

	q := c.questions[c.index]
	standings := c.standingsLocked()
	final := c.index+1 >= len(c.questions)

	c.revealGen++
	gen := c.revealGen
	c.revealTimer = time.AfterFunc(c.opts.RevealDelay, func() { c.advance(gen) })

	return []events.Event{
		c.eventLocked(events.KindGame, ws.TypeQuestionRevealed, ws.QuestionRevealedPayload{
			SessionID:     c.id,
			QuestionIndex: c.index,
			QuestionID:    q.ID.String(),
			CorrectAnswer: q.Answer,
			AnsweredCount: c.tracker.Count(q.ID),
			Leaderboard:   leaderboard.ToWSEntries(standings),
			NextInSeconds: int(c.opts.RevealDelay.Round(time.Second) / time.Second),
			Final:         final,
		}),
	}
}

func (c *Coordinator) advance(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.revealGen || c.phase != PhaseReveal {
		c.mu.Unlock()
		return
	}

	var evts []events.Event
	if next := c.index + 1; next < len(c.questions) {
		evts = c.beginQuestionLocked(next)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.BackendTimeout)
		defer cancel()
		evts = c.endLocked(ctx)
	}
	c.emitAndUnlock(evts)
}

func (c *Coordinator) endLocked(ctx context.Context) []events.Event {
	c.stopTimersLocked()
	c.phase = PhaseEnded
	c.touchLocked()
	metrics.PhaseTransitions.WithLabelValues(string(PhaseEnded)).Inc()

	if _, err := c.backend.SendEndGame(ctx, c.id); err != nil {
		metrics.BackendErrors.WithLabelValues("send_end_game").Inc()
		c.logger.Error().Err(err).Msg("send end game failed")
	}

	standings := c.standingsLocked()
	c.logger.Info().Int("participants", len(standings)).Msg("game ended")

	return []events.Event{
		c.eventLocked(events.KindGame, ws.TypeGameEnded, ws.GameEndedPayload{
			SessionID:     c.id,
			Leaderboard:   leaderboard.ToWSEntries(standings),
			ClassAccuracy: leaderboard.ClassAccuracy(standings),
			EndedAt:       c.updatedAt.Format(time.RFC3339),
		}),
	}
}

func (c *Coordinator) applyLocked(p *Participant, q Question, rec AnswerRecord) {
	switch {
	case rec.Correct:
		p.Score += rec.Points
		p.CorrectCount++
		metrics.Answers.WithLabelValues("correct").Inc()
	case rec.TimedOut:
		p.WrongCount++
		metrics.Answers.WithLabelValues("timeout").Inc()
	default:
		p.WrongCount++
		metrics.Answers.WithLabelValues("wrong").Inc()
	}
	p.Review = append(p.Review, ReviewItem{
		QuestionID:    q.ID,
		Prompt:        q.Prompt,
		UserAnswer:    rec.Value,
		CorrectAnswer: q.Answer,
		Correct:       rec.Correct,
	})
	c.touchLocked()
}

func (c *Coordinator) syncLeaderboardLocked(ctx context.Context, p *Participant) bool {
	_, err := c.backend.UpdateLeaderboard(ctx, c.id, p.ID, p.Profile, p.Score, p.CorrectCount, p.WrongCount)
	if err != nil {
		metrics.BackendErrors.WithLabelValues("update_leaderboard").Inc()
		c.logger.Warn().Err(err).Str("participant_id", p.ID.String()).Msg("leaderboard update failed")
		return false
	}
	return true
}

func (c *Coordinator) stopTimersLocked() {
	c.countdown.Stop()
	c.revealGen++
	if c.revealTimer != nil {
		c.revealTimer.Stop()
		c.revealTimer = nil
	}
}

func (c *Coordinator) activeByJoinLocked() []*Participant {
	out := make([]*Participant, 0, len(c.participants))
	for _, p := range c.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinSeq < out[j].JoinSeq })
	return out
}

func (c *Coordinator) standingsLocked() []leaderboard.Standing {
	in := make([]leaderboard.Participant, 0, len(c.participants))
	for _, p := range c.participants {
		in = append(in, p.rankInput())
	}
	return leaderboard.Rank(in)
}

func (c *Coordinator) remainingLocked() int {
	if c.phase != PhaseInProgress {
		return 0
	}
	return c.countdown.Remaining()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:        c.id,
		ProfessorID:      c.professorID,
		Status:           c.phase.Status(),
		Phase:            c.phase,
		QuestionIndex:    c.index,
		QuestionCount:    len(c.questions),
		RemainingSeconds: c.remainingLocked(),
		Standings:        c.standingsLocked(),
		UpdatedAt:        c.updatedAt,
	}
}

func (c *Coordinator) resumeLocked(participantID uuid.UUID) ResumeState {
	_, joined := c.participants[participantID]
	state := ResumeState{
		SessionID:        c.id,
		Phase:            c.phase,
		QuestionIndex:    c.index,
		QuestionCount:    len(c.questions),
		RemainingSeconds: c.remainingLocked(),
		Joined:           joined,
	}
	if c.phase == PhaseInProgress || c.phase == PhaseReveal {
		state.Answered = c.tracker.Has(c.questions[c.index].ID, participantID)
	}
	if c.phase == PhaseInProgress {
		q := questionPayload(c.questions[c.index])
		state.Question = &q
	}
	if s, ok := leaderboard.Find(c.standingsLocked(), participantID); ok {
		state.Standing = &s
	} else if p, ok := c.departed[participantID]; ok {
		s := leaderboard.Rank([]leaderboard.Participant{p.rankInput()})[0]
		s.Rank = 0
		state.Standing = &s
	}
	return state
}

func (c *Coordinator) touchLocked() {
	c.updatedAt = time.Now().UTC()
}

func (c *Coordinator) leaderboardEventLocked() events.Event {
	standings := c.standingsLocked()
	return c.eventLocked(events.KindLeaderboard, ws.TypeLeaderboardUpdate, ws.LeaderboardUpdatePayload{
		SessionID:     c.id,
		Top:           leaderboard.ToWSEntries(standings),
		ClassAccuracy: leaderboard.ClassAccuracy(standings),
	})
}

func (c *Coordinator) eventLocked(kind events.Kind, eventType string, payload any) events.Event {
	evt, err := events.New(kind, eventType, c.id, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("type", eventType).Msg("build event failed")
	}
	return evt
}

// emitAndUnlock hands the event batch over to the publisher in state order:
// emitMu is taken before mu is released so batches never overtake each other.
func (c *Coordinator) emitAndUnlock(evts []events.Event) {
	var snap *Snapshot
	if c.mirror != nil && len(evts) > 0 && evts[0].Kind != events.KindTick {
		s := c.snapshotLocked()
		snap = &s
	}

	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()

	for _, evt := range evts {
		if evt.Type == "" || c.publisher == nil {
			continue
		}
		if err := c.publisher.Publish(evt); err != nil {
			c.logger.Warn().Err(err).Str("type", evt.Type).Msg("publish event failed")
		}
	}

	if snap != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.BackendTimeout)
		defer cancel()
		if err := c.mirror.SaveSnapshot(ctx, *snap); err != nil {
			c.logger.Warn().Err(err).Msg("mirror session state failed")
		}
	}
}

func questionPayload(q Question) ws.QuestionPayload {
	options := append([]string(nil), q.Distractors...)
	if q.Type != QuestionShortAnswer {
		options = append(options, q.Answer)
		sort.Strings(options)
	}
	return ws.QuestionPayload{
		ID:        q.ID.String(),
		Prompt:    q.Prompt,
		Type:      string(q.Type),
		Options:   options,
		Points:    q.Points,
		TimeLimit: q.TimeLimit,
	}
}
