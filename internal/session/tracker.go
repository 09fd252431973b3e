package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type answerKey struct {
	question    uuid.UUID
	participant uuid.UUID
}

// Tracker records at most one answer per (question, participant).
type Tracker struct {
	mu      sync.Mutex
	policy  MatchPolicy
	answers map[answerKey]AnswerRecord
}

// NewTracker builds a tracker grading short answers with the given policy.
func NewTracker(policy MatchPolicy) *Tracker {
	return &Tracker{
		policy:  policy,
		answers: make(map[answerKey]AnswerRecord),
	}
}

// Record grades and stores the answer. The second return is false when the pair
// already has a record; the stored record is then returned unchanged.
func (t *Tracker) Record(q Question, participantID uuid.UUID, value string, at time.Time) (AnswerRecord, bool) {
	return t.record(q, participantID, value, at, false)
}

// RecordTimeout stores the empty, wrong answer of a participant who let the
// question run out. It follows the same first-record-wins rule as Record.
func (t *Tracker) RecordTimeout(q Question, participantID uuid.UUID, at time.Time) (AnswerRecord, bool) {
	return t.record(q, participantID, "", at, true)
}

func (t *Tracker) record(q Question, participantID uuid.UUID, value string, at time.Time, timedOut bool) (AnswerRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := answerKey{question: q.ID, participant: participantID}
	if existing, ok := t.answers[key]; ok {
		return existing, false
	}

	rec := AnswerRecord{
		QuestionID:    q.ID,
		ParticipantID: participantID,
		Value:         value,
		Correct:       !timedOut && IsCorrect(q, value, t.policy),
		TimedOut:      timedOut,
		SubmittedAt:   at,
	}
	if rec.Correct {
		rec.Points = q.Points
	}
	t.answers[key] = rec
	return rec, true
}

// Forget drops a record. Used when persisting the answer fails so the
// participant may submit again.
func (t *Tracker) Forget(questionID, participantID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.answers, answerKey{question: questionID, participant: participantID})
}

// Has reports whether the participant already answered the question.
func (t *Tracker) Has(questionID, participantID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.answers[answerKey{question: questionID, participant: participantID}]
	return ok
}

// Get returns the stored record for the pair.
func (t *Tracker) Get(questionID, participantID uuid.UUID) (AnswerRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.answers[answerKey{question: questionID, participant: participantID}]
	return rec, ok
}

// Count returns the number of records for a question.
func (t *Tracker) Count(questionID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k := range t.answers {
		if k.question == questionID {
			n++
		}
	}
	return n
}
