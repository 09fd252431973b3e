package errors

// Error codes carried in ErrorResponse.Error and WebSocket error payloads.
const (
	// Authentication errors
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeSessionNotFound = "session_not_found"

	// Session errors
	ErrCodeSessionExists       = "session_exists"
	ErrCodeSessionLocked       = "session_locked"
	ErrCodeSessionEnded        = "session_ended"
	ErrCodeSessionNotEnded     = "session_not_ended"
	ErrCodeNotProfessor        = "not_professor"
	ErrCodeNoQuestions         = "no_questions"
	ErrCodeAlreadyStarted      = "already_started"
	ErrCodeJoinClosed          = "join_closed"
	ErrCodeKicked              = "kicked"
	ErrCodeParticipantNotFound = "participant_not_found"
	ErrCodeNotAcceptingAnswers = "not_accepting_answers"
	ErrCodeQuestionMismatch    = "question_mismatch"
	ErrCodeBackendFailed       = "backend_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeUpstreamError = "upstream_error"

	// Feature availability
	ErrCodeFeatureNotAvailable = "feature_not_available"

	// Leaderboard / export errors
	ErrCodeExportFailed     = "export_failed"
	ErrCodeGenerationFailed = "generation_failed"
)
