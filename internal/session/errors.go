package session

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExists       = errors.New("session already open")
	ErrSessionLocked       = errors.New("session is owned by another instance")
	ErrSessionEnded        = errors.New("session has ended")
	ErrSessionNotEnded     = errors.New("session has not ended")
	ErrNotProfessor        = errors.New("only the session professor can do this")
	ErrNoQuestions         = errors.New("session has no questions")
	ErrAlreadyStarted      = errors.New("session already started")
	ErrJoinClosed          = errors.New("session is not accepting new participants")
	ErrKicked              = errors.New("participant was removed from this session")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotAcceptingAnswers = errors.New("answers are not accepted in this phase")
	ErrQuestionMismatch    = errors.New("question is not the active question")
	ErrUnknownMatchPolicy  = errors.New("unknown short answer match policy")
)
