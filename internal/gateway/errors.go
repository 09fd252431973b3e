package gateway

import (
	"errors"
	"net/http"

	"github.com/gokatarajesh/classroom-quiz/internal/question"
	"github.com/gokatarajesh/classroom-quiz/internal/session"
	httperrors "github.com/gokatarajesh/classroom-quiz/pkg/http/errors"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var sessionErrors = []errorMapping{
	{session.ErrSessionNotFound, http.StatusNotFound, httperrors.ErrCodeSessionNotFound},
	{session.ErrSessionExists, http.StatusConflict, httperrors.ErrCodeSessionExists},
	{session.ErrSessionLocked, http.StatusConflict, httperrors.ErrCodeSessionLocked},
	{session.ErrSessionEnded, http.StatusConflict, httperrors.ErrCodeSessionEnded},
	{session.ErrSessionNotEnded, http.StatusConflict, httperrors.ErrCodeSessionNotEnded},
	{session.ErrNotProfessor, http.StatusForbidden, httperrors.ErrCodeNotProfessor},
	{session.ErrNoQuestions, http.StatusUnprocessableEntity, httperrors.ErrCodeNoQuestions},
	{session.ErrAlreadyStarted, http.StatusConflict, httperrors.ErrCodeAlreadyStarted},
	{session.ErrJoinClosed, http.StatusConflict, httperrors.ErrCodeJoinClosed},
	{session.ErrKicked, http.StatusForbidden, httperrors.ErrCodeKicked},
	{session.ErrParticipantNotFound, http.StatusNotFound, httperrors.ErrCodeParticipantNotFound},
	{session.ErrNotAcceptingAnswers, http.StatusConflict, httperrors.ErrCodeNotAcceptingAnswers},
	{session.ErrQuestionMismatch, http.StatusConflict, httperrors.ErrCodeQuestionMismatch},
	{question.ErrGeneratorUnavailable, http.StatusServiceUnavailable, httperrors.ErrCodeFeatureNotAvailable},
}

// classify maps a domain error onto an HTTP status and a client-facing code.
// Anything unrecognised is a backend failure.
func classify(err error) (int, string) {
	for _, m := range sessionErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusBadGateway, httperrors.ErrCodeBackendFailed
}

// respondSessionError writes err as a REST error body.
func respondSessionError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	message := err.Error()
	if code == httperrors.ErrCodeBackendFailed {
		message = "Upstream storage failed"
	}
	httperrors.RespondError(w, status, code, message)
}
