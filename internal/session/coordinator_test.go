package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/classroom-quiz/internal/events"
	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
	ws "github.com/gokatarajesh/classroom-quiz/pkg/http/ws"
)

type fakeBackend struct {
	mu          sync.Mutex
	joins       []uuid.UUID
	leaves      []uuid.UUID
	answers     []AnswerRecord
	boardWrites int
	endCalls    int
	statuses    []string

	submitErr  error
	boardErr   error
	rejectNext bool

	// stored mirrors the answers primary key: a second insert for the same
	// pair is dropped until OpenLobby clears the run.
	stored   map[answerKey]bool
	archived bool
	// submitDelay makes each SubmitAnswer wait, honouring ctx.
	submitDelay time.Duration
}

func (b *fakeBackend) JoinRoom(_ context.Context, _ string, id uuid.UUID, _ Profile, _ string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joins = append(b.joins, id)
	return true, nil
}

func (b *fakeBackend) LeaveRoom(_ context.Context, _ string, id uuid.UUID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaves = append(b.leaves, id)
	return true, nil
}

func (b *fakeBackend) SubmitAnswer(ctx context.Context, _ string, rec AnswerRecord) (bool, error) {
	if b.submitDelay > 0 {
		select {
		case <-time.After(b.submitDelay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		err := b.submitErr
		b.submitErr = nil
		return false, err
	}
	if b.rejectNext {
		b.rejectNext = false
		return false, nil
	}
	key := answerKey{question: rec.QuestionID, participant: rec.ParticipantID}
	if b.stored[key] {
		return false, nil
	}
	if b.stored == nil {
		b.stored = make(map[answerKey]bool)
	}
	b.stored[key] = true
	b.answers = append(b.answers, rec)
	return true, nil
}

func (b *fakeBackend) UpdateLeaderboard(_ context.Context, _ string, _ uuid.UUID, _ Profile, _, _, _ int) ([]leaderboard.Standing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.boardErr != nil {
		return nil, b.boardErr
	}
	b.boardWrites++
	return nil, nil
}

func (b *fakeBackend) SendEndGame(context.Context, string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endCalls++
	b.archived = true
	return true, nil
}

func (b *fakeBackend) OpenLobby(context.Context, string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.archived {
		return ErrSessionEnded
	}
	b.stored = nil
	b.statuses = append(b.statuses, QuizStatusInLobby)
	return nil
}

func (b *fakeBackend) SetQuizStatus(_ context.Context, _ string, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, status)
	return nil
}

func (b *fakeBackend) recorded() []AnswerRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]AnswerRecord(nil), b.answers...)
}

func (b *fakeBackend) ended() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.endCalls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		out = append(out, evt.Type)
	}
	return out
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, evt := range p.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

var professor = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")

func student(n byte, name string) Profile {
	var id uuid.UUID
	id[15] = n
	return Profile{ID: id, DisplayName: name}
}

func mcq(points, seconds int) Question {
	return Question{
		ID:          uuid.New(),
		Prompt:      "2 + 2 = ?",
		Type:        QuestionMultipleChoice,
		Distractors: []string{"3", "5", "22"},
		Answer:      "4",
		Points:      points,
		TimeLimit:   seconds,
	}
}

// slowOptions keeps timers out of the way of tests that drive the session by hand.
func slowOptions() Options {
	return Options{TickInterval: time.Hour, RevealDelay: time.Hour}
}

func newTestCoordinator(t *testing.T, questions []Question, opts Options) (*Coordinator, *fakeBackend, *recordingPublisher) {
	t.Helper()
	backend := &fakeBackend{}
	pub := &recordingPublisher{}
	c := NewCoordinator("CS101", professor, questions, backend, pub, nil, opts, zerolog.New(io.Discard))
	t.Cleanup(c.Close)
	return c, backend, pub
}

func TestCorrectAnswerAwardsQuestionPoints(t *testing.T) {
	q := mcq(2, 30)
	c, backend, _ := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	result, err := c.Submit(ctx, alice.ID, q.ID, "4")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.True(t, result.Correct)
	assert.Equal(t, 2, result.PointsAwarded)
	assert.Equal(t, 2, result.Score)
	assert.True(t, result.LeaderboardSynced)

	standings := c.Standings()
	require.Len(t, standings, 1)
	assert.Equal(t, 2, standings[0].Score)
	assert.Equal(t, 1, standings[0].CorrectCount)
	assert.Equal(t, 100.0, standings[0].Accuracy)

	require.Len(t, backend.recorded(), 1)
	assert.Equal(t, "4", backend.recorded()[0].Value)
	assert.Equal(t, []string{QuizStatusActive}, backend.statuses)
}

func TestWrongAnswerCountsAgainstAccuracy(t *testing.T) {
	q := mcq(2, 30)
	c, _, _ := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	result, err := c.Submit(ctx, alice.ID, q.ID, "5")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.False(t, result.Correct)
	assert.Equal(t, 0, result.Score)

	summary, err := c.Summary(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.WrongCount)
	assert.Equal(t, 0.0, summary.Accuracy)
	require.Len(t, summary.Review, 1)
	assert.Equal(t, "5", summary.Review[0].UserAnswer)
	assert.Equal(t, "4", summary.Review[0].CorrectAnswer)
}

func TestDuplicateSubmitKeepsFirstResult(t *testing.T) {
	q := mcq(1, 30)
	c, backend, _ := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	first, err := c.Submit(ctx, alice.ID, q.ID, "4")
	require.NoError(t, err)
	require.True(t, first.Accepted)

	second, err := c.Submit(ctx, alice.ID, q.ID, "5")
	require.NoError(t, err)
	assert.False(t, second.Accepted)
	assert.True(t, second.Correct)
	assert.Equal(t, 1, second.Score)

	assert.Len(t, backend.recorded(), 1)
	assert.Equal(t, 1, c.Standings()[0].Score)
}

func TestBackendRejectionIsNotScored(t *testing.T) {
	q := mcq(1, 30)
	c, backend, _ := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	backend.mu.Lock()
	backend.rejectNext = true
	backend.mu.Unlock()

	result, err := c.Submit(ctx, alice.ID, q.ID, "4")
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, 0, c.Standings()[0].Score)
}

func TestSubmitBackendErrorAllowsRetry(t *testing.T) {
	q := mcq(1, 30)
	c, backend, _ := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	backend.mu.Lock()
	backend.submitErr = errors.New("connection reset")
	backend.mu.Unlock()

	_, err = c.Submit(ctx, alice.ID, q.ID, "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 0, c.Standings()[0].Score)

	result, err := c.Submit(ctx, alice.ID, q.ID, "4")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 1, result.Score)
}

func TestLeaderboardFailureStillAcceptsAnswer(t *testing.T) {
	q := mcq(3, 30)
	c, backend, _ := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	backend.mu.Lock()
	backend.boardErr = errors.New("leaderboard unavailable")
	backend.mu.Unlock()

	result, err := c.Submit(ctx, alice.ID, q.ID, "4")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.False(t, result.LeaderboardSynced)
	assert.Equal(t, 3, result.Score)
}

func TestSubmitOutsideQuestionIsRejected(t *testing.T) {
	q1, q2 := mcq(1, 30), mcq(1, 30)
	c, _, _ := newTestCoordinator(t, []Question{q1, q2}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)

	_, err = c.Submit(ctx, alice.ID, q1.ID, "4")
	assert.ErrorIs(t, err, ErrNotAcceptingAnswers)

	require.NoError(t, c.Start(ctx, professor))

	_, err = c.Submit(ctx, alice.ID, q2.ID, "4")
	assert.ErrorIs(t, err, ErrQuestionMismatch)

	_, err = c.Submit(ctx, uuid.New(), q1.ID, "4")
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestTimeoutRecordsEmptyWrongAnswer(t *testing.T) {
	q := mcq(1, 2)
	c, backend, pub := newTestCoordinator(t, []Question{q}, Options{TickInterval: 20 * time.Millisecond, RevealDelay: time.Hour})
	ctx := context.Background()
	alice := student(1, "alice")
	bob := student(2, "bob")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	_, err = c.Join(ctx, bob)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	_, err = c.Submit(ctx, alice.ID, q.ID, "4")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return c.Snapshot().Phase == PhaseReveal }, time.Second, time.Millisecond)

	recs := backend.recorded()
	require.Len(t, recs, 2)
	assert.Equal(t, bob.ID, recs[1].ParticipantID)
	assert.Equal(t, "", recs[1].Value)
	assert.True(t, recs[1].TimedOut)
	assert.False(t, recs[1].Correct)

	bobSummary, err := c.Summary(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, bobSummary.WrongCount)
	assert.Equal(t, 0, bobSummary.Score)

	ticks := pub.ofType(ws.TypeQuestionTick)
	require.Len(t, ticks, 2)
	var last ws.QuestionTickPayload
	require.NoError(t, json.Unmarshal(ticks[1].Payload, &last))
	assert.Equal(t, 0, last.RemainingSeconds)

	revealed := pub.ofType(ws.TypeQuestionRevealed)
	require.Len(t, revealed, 1)
	var payload ws.QuestionRevealedPayload
	require.NoError(t, json.Unmarshal(revealed[0].Payload, &payload))
	assert.Equal(t, "4", payload.CorrectAnswer)
	assert.Equal(t, 2, payload.AnsweredCount)
	assert.True(t, payload.Final)
}

func TestSessionEndsAfterLastQuestion(t *testing.T) {
	questions := make([]Question, 5)
	for i := range questions {
		questions[i] = mcq(1, 1)
	}
	c, backend, pub := newTestCoordinator(t, questions, Options{TickInterval: 2 * time.Millisecond, RevealDelay: 2 * time.Millisecond})
	ctx := context.Background()

	_, err := c.Join(ctx, student(1, "alice"))
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	assert.Eventually(t, func() bool { return c.Snapshot().Phase == PhaseEnded }, 2*time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return len(pub.ofType(ws.TypeGameEnded)) == 1 }, time.Second, time.Millisecond)

	started := pub.ofType(ws.TypeQuestionStarted)
	require.Len(t, started, 5)
	for i, evt := range started {
		var payload ws.QuestionStartedPayload
		require.NoError(t, json.Unmarshal(evt.Payload, &payload))
		assert.Equal(t, i, payload.QuestionIndex)
		assert.Equal(t, 5, payload.QuestionCount)
	}

	snap := c.Snapshot()
	assert.Equal(t, StatusEnded, snap.Status)
	assert.Equal(t, 4, snap.QuestionIndex)
	assert.Equal(t, 1, backend.ended())
	assert.Len(t, backend.recorded(), 5)

	_, err = c.Join(ctx, student(2, "late"))
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestAdvanceWhenAllAnswered(t *testing.T) {
	q1, q2 := mcq(1, 30), mcq(1, 30)
	c, _, pub := newTestCoordinator(t, []Question{q1, q2}, Options{
		TickInterval:           time.Hour,
		RevealDelay:            2 * time.Millisecond,
		AdvanceWhenAllAnswered: true,
	})
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	_, err = c.Submit(ctx, alice.ID, q1.ID, "4")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Phase == PhaseInProgress && snap.QuestionIndex == 1
	}, time.Second, time.Millisecond)
	assert.Len(t, pub.ofType(ws.TypeQuestionRevealed), 1)
}

func TestKickRemovesOnlyTarget(t *testing.T) {
	q := mcq(1, 30)
	c, backend, pub := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")
	bob := student(2, "bob")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	_, err = c.Join(ctx, bob)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	assert.ErrorIs(t, c.Kick(ctx, alice.ID, bob.ID), ErrNotProfessor)
	require.NoError(t, c.Kick(ctx, professor, bob.ID))

	kicks := pub.ofType(ws.TypeKicked)
	require.Len(t, kicks, 1)
	assert.Equal(t, events.KindKick, kicks[0].Kind)
	assert.Equal(t, bob.ID.String(), kicks[0].ParticipantID)

	standings := c.Standings()
	require.Len(t, standings, 1)
	assert.Equal(t, alice.ID, standings[0].ParticipantID)
	assert.Equal(t, []uuid.UUID{bob.ID}, backend.leaves)

	_, err = c.Submit(ctx, bob.ID, q.ID, "4")
	assert.ErrorIs(t, err, ErrKicked)
	_, err = c.Join(ctx, bob)
	assert.ErrorIs(t, err, ErrKicked)

	result, err := c.Submit(ctx, alice.ID, q.ID, "4")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}

func TestRejoinRestoresScore(t *testing.T) {
	q1, q2 := mcq(2, 30), mcq(1, 30)
	c, _, _ := newTestCoordinator(t, []Question{q1, q2}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")
	bob := student(2, "bob")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	_, err = c.Join(ctx, bob)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	_, err = c.Submit(ctx, alice.ID, q1.ID, "4")
	require.NoError(t, err)
	require.NoError(t, c.Leave(ctx, alice.ID))
	assert.Len(t, c.Standings(), 1)

	away, err := c.Resume(alice.ID)
	require.NoError(t, err)
	assert.False(t, away.Joined)
	assert.True(t, away.Answered)

	state, err := c.Join(ctx, alice)
	require.NoError(t, err)
	assert.True(t, state.Joined)
	require.NotNil(t, state.Standing)
	assert.Equal(t, 2, state.Standing.Score)
	assert.Equal(t, 1, state.Standing.Rank)

	again, err := c.Join(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, state.Standing.Score, again.Standing.Score)
	assert.Len(t, c.Standings(), 2)
}

func TestJoinClosedAfterStart(t *testing.T) {
	c, _, _ := newTestCoordinator(t, []Question{mcq(1, 30)}, slowOptions())
	ctx := context.Background()

	_, err := c.Join(ctx, student(1, "alice"))
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	_, err = c.Join(ctx, student(2, "bob"))
	assert.ErrorIs(t, err, ErrJoinClosed)
}

func TestStartGuards(t *testing.T) {
	ctx := context.Background()

	empty, _, _ := newTestCoordinator(t, nil, slowOptions())
	assert.ErrorIs(t, empty.Start(ctx, professor), ErrNoQuestions)

	c, _, _ := newTestCoordinator(t, []Question{mcq(1, 30)}, slowOptions())
	assert.ErrorIs(t, c.Start(ctx, uuid.New()), ErrNotProfessor)
	require.NoError(t, c.Start(ctx, professor))
	assert.ErrorIs(t, c.Start(ctx, professor), ErrAlreadyStarted)
}

func TestEventsPublishedInStateOrder(t *testing.T) {
	q := mcq(1, 30)
	c, _, pub := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))
	_, err = c.Submit(ctx, alice.ID, q.ID, "4")
	require.NoError(t, err)

	assert.Equal(t, []string{
		ws.TypeParticipantJoined,
		ws.TypeLeaderboardUpdate,
		ws.TypeGameStarted,
		ws.TypeQuestionStarted,
		ws.TypeLeaderboardUpdate,
	}, pub.types())

	started := pub.ofType(ws.TypeQuestionStarted)
	assert.NotContains(t, string(started[0].Payload), `"answer"`)
}

func TestDismissEndsRunningGame(t *testing.T) {
	q := mcq(1, 30)
	c, backend, pub := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()

	_, err := c.Join(ctx, student(1, "alice"))
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx, professor))

	assert.ErrorIs(t, c.Dismiss(ctx, uuid.New()), ErrNotProfessor)
	require.NoError(t, c.Dismiss(ctx, professor))
	require.NoError(t, c.Dismiss(ctx, professor))

	assert.Equal(t, PhaseEnded, c.Snapshot().Phase)
	assert.Equal(t, 1, backend.ended())
	assert.Len(t, pub.ofType(ws.TypeGameEnded), 1)
	assert.Len(t, pub.ofType(ws.TypeSessionDismissed), 1)
}

func TestQuestionsAreCopied(t *testing.T) {
	q := mcq(1, 30)
	questions := []Question{q}
	c, _, _ := newTestCoordinator(t, questions, slowOptions())

	questions[0].Answer = "changed"
	questions[0].Distractors[0] = "changed"

	got := c.Questions()
	assert.Equal(t, "4", got[0].Answer)
	assert.Equal(t, "3", got[0].Distractors[0])
}

func TestResumeReportsCurrentQuestion(t *testing.T) {
	q := mcq(1, 30)
	c, _, _ := newTestCoordinator(t, []Question{q}, slowOptions())
	ctx := context.Background()
	alice := student(1, "alice")

	_, err := c.Resume(alice.ID)
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	_, err = c.Join(ctx, alice)
	require.NoError(t, err)

	lobby, err := c.Resume(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseLobby, lobby.Phase)
	assert.Nil(t, lobby.Question)

	require.NoError(t, c.Start(ctx, professor))

	state, err := c.Resume(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseInProgress, state.Phase)
	assert.True(t, state.Joined)
	assert.False(t, state.Answered)
	assert.Equal(t, 30, state.RemainingSeconds)
	require.NotNil(t, state.Question)
	assert.Equal(t, q.ID.String(), state.Question.ID)
	assert.Equal(t, []string{"22", "3", "4", "5"}, state.Question.Options)

	host, err := c.Resume(professor)
	require.NoError(t, err)
	assert.False(t, host.Joined)
	assert.Nil(t, host.Standing)

	require.NoError(t, c.Kick(ctx, professor, alice.ID))
	_, err = c.Resume(alice.ID)
	assert.ErrorIs(t, err, ErrKicked)
}

func TestTimeoutGivesEachParticipantItsOwnDeadline(t *testing.T) {
	q := mcq(1, 1)
	c, backend, _ := newTestCoordinator(t, []Question{q}, Options{
		TickInterval:   10 * time.Millisecond,
		RevealDelay:    time.Hour,
		BackendTimeout: 60 * time.Millisecond,
	})
	ctx := context.Background()
	for i := byte(1); i <= 5; i++ {
		_, err := c.Join(ctx, student(i, "student"))
		require.NoError(t, err)
	}
	backend.submitDelay = 20 * time.Millisecond
	require.NoError(t, c.Start(ctx, professor))

	assert.Eventually(t, func() bool { return c.Snapshot().Phase == PhaseReveal }, 2*time.Second, 5*time.Millisecond)

	recs := backend.recorded()
	require.Len(t, recs, 5)
	for _, rec := range recs {
		assert.True(t, rec.TimedOut)
	}
	for _, s := range c.Standings() {
		assert.Equal(t, 1, s.WrongCount)
	}
}

func TestTimeoutSkipsAnswerBackendAlreadyHolds(t *testing.T) {
	q := mcq(1, 1)
	c, backend, _ := newTestCoordinator(t, []Question{q}, Options{TickInterval: 10 * time.Millisecond, RevealDelay: time.Hour})
	ctx := context.Background()
	alice := student(1, "alice")
	bob := student(2, "bob")

	_, err := c.Join(ctx, alice)
	require.NoError(t, err)
	_, err = c.Join(ctx, bob)
	require.NoError(t, err)
	backend.stored = map[answerKey]bool{{question: q.ID, participant: bob.ID}: true}
	require.NoError(t, c.Start(ctx, professor))

	assert.Eventually(t, func() bool { return c.Snapshot().Phase == PhaseReveal }, time.Second, time.Millisecond)

	aliceSummary, err := c.Summary(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, aliceSummary.WrongCount)

	bobSummary, err := c.Summary(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, bobSummary.WrongCount)
	assert.Equal(t, 0, bobSummary.Score)
}
